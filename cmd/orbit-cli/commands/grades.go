package commands

import (
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(gradesCmd)
}

var gradesCmd = &cobra.Command{
	Use:   "grades",
	Short: "Prints every grade, all pages.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		client, _ := createClient(ctx)

		grades := unwrap(client.Grades(ctx))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Subject", "Credit Units", "Score", "Distribution Key"})
		for _, g := range grades {
			t.AppendRow(table.Row{g.Name, g.CreditUnits, g.ScoreText, g.DistributionKey})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

func init() {
	rootCmd.AddCommand(distributionCmd)
}

var distributionCmd = &cobra.Command{
	Use:   "distribution <key>",
	Short: "Prints the grade distribution behind a grades row.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		client, _ := createClient(ctx)

		dist := unwrap(client.GradeDistribution(ctx, args[0]))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendRow(table.Row{"Score", dist.Score})
		t.AppendRow(table.Row{"Average", dist.Average})
		t.AppendRow(table.Row{"Standard Deviation", dist.StandardDeviation})
		t.AppendRow(table.Row{"Rank", dist.Rank})
		t.AppendRow(table.Row{"Chart", strconv.Itoa(len(dist.ChartImage)) + " bytes"})
		t.SetStyle(table.StyleRounded)
		t.Render()

		if chartOut != nil && *chartOut != "" {
			err := os.WriteFile(*chartOut, dist.ChartImage, 0644)
			if err != nil {
				cmd.PrintErrln(err)
				os.Exit(1)
			}
		}
	},
}

var chartOut *string

func init() {
	chartOut = distributionCmd.Flags().String("chart", "", "Write the distribution chart image to this path.")
}
