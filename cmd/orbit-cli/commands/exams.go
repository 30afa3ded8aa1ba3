package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(examsCmd)
	notebookOut = notebookCmd.Flags().String("out", "notebook.pdf", "Where to write the scanned notebook.")
	rootCmd.AddCommand(notebookCmd)
}

var examsCmd = &cobra.Command{
	Use:   "exams",
	Short: "Prints the exam schedule across all dates.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		client, _ := createClient(ctx)

		exams := unwrap(client.Exams(ctx))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Row", "Subject", "Period", "Start", "Room", "Score", "Notebook"})
		for _, e := range exams {
			start := ""
			if !e.StartTime.IsZero() {
				start = e.StartTime.Format("02/01/2006 15:04")
			}
			t.AppendRow(table.Row{e.RowIndex, e.Name, e.Period, start, e.Room, e.Score, e.HasNotebook})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var notebookOut *string

var notebookCmd = &cobra.Command{
	Use:   "notebook <row>",
	Short: "Downloads the scanned exam notebook of an exams row.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		client, _ := createClient(ctx)

		row := parseRow(cmd, args[0])
		data := unwrap(client.ExamNotebook(ctx, row))
		err := os.WriteFile(*notebookOut, data, 0644)
		if err != nil {
			cmd.PrintErrln(err)
			os.Exit(1)
		}
		cmd.Println("wrote", *notebookOut)
	},
}
