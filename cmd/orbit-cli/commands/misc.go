package commands

import (
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"orbitbot/lib/scrapers/orbit"
)

func parseRow(cmd *cobra.Command, arg string) int {
	row, err := strconv.Atoi(arg)
	if err != nil {
		cmd.PrintErrln("row must be a number")
		os.Exit(1)
	}
	return row
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	documentOut = documentCmd.Flags().String("out", "", "Where to write the document, defaults to its canonical filename.")
	rootCmd.AddCommand(documentCmd)
	rootCmd.AddCommand(documentsCmd)
	timetableSemester = timetableCmd.Flags().Int("semester", 1, "Which semester to render.")
	timetableOut = timetableCmd.Flags().String("out", "", "Where to write the PDF, defaults to the generated filename.")
	rootCmd.AddCommand(timetableCmd)
	rootCmd.AddCommand(registerCmd)
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Prints upcoming calendar deadlines from the LMS.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		client, _ := createClient(ctx)

		events := unwrap(client.UpcomingEvents(ctx, time.Time{}))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Course", "Title", "Due"})
		for _, e := range events {
			t.AppendRow(table.Row{e.CourseName, e.Title, e.EndTime.Format("Mon 02/01 15:04")})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var documentOut *string

var documentCmd = &cobra.Command{
	Use:   "document <id>",
	Short: "Downloads a generated certificate by its grid id.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		client, _ := createClient(ctx)

		doc := orbit.Document(parseRow(cmd, args[0]))
		data := unwrap(client.Document(ctx, doc))

		out := *documentOut
		if out == "" {
			out = doc.Filename()
		}
		err := os.WriteFile(out, data, 0644)
		if err != nil {
			cmd.PrintErrln(err)
			os.Exit(1)
		}
		cmd.Println("wrote", out)
	},
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Lists the certificates the portal offers.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		client, _ := createClient(ctx)

		names := unwrap(client.ListDocuments(ctx))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Document"})
		for _, name := range names {
			t.AppendRow(table.Row{name})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var timetableSemester *int
var timetableOut *string

var timetableCmd = &cobra.Command{
	Use:   "timetable [--semester <n>]",
	Short: "Renders the weekly schedule to a PDF.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		client, _ := createClient(ctx)

		file := unwrap(client.Timetable(ctx, *timetableSemester))
		out := *timetableOut
		if out == "" {
			out = file.Name
		}
		err := os.WriteFile(out, file.Data, 0644)
		if err != nil {
			cmd.PrintErrln(err)
			os.Exit(1)
		}
		cmd.Println("wrote", out)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <class>",
	Short: "Registers for every open lesson of a class group.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		client, _ := createClient(ctx)

		outcome := unwrap(client.RegisterClass(ctx, args[0]))
		for _, lesson := range outcome.Registered {
			cmd.Println("registered:", lesson)
		}
		for _, lesson := range outcome.Failed {
			cmd.Println("failed:", lesson)
		}
	},
}
