package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"animlab/internal/catalog"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show scene totals per visual and narration file count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			stats, err := sess.catalog.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scenes: %d\nAudio files: %d\n", stats.TotalScenes, stats.AudioFiles)
			if len(stats.VisualTypes) > 0 {
				fmt.Fprintln(out, statsTable(stats))
			}
			return nil
		},
	}
}

func statsTable(stats catalog.Stats) string {
	visuals := make([]string, 0, len(stats.VisualTypes))
	for v := range stats.VisualTypes {
		visuals = append(visuals, v)
	}
	sort.Strings(visuals)
	rows := make([][]string, 0, len(visuals))
	for _, v := range visuals {
		rows = append(rows, []string{visualLabel(v), strconv.Itoa(stats.VisualTypes[v])})
	}
	return renderTable([]string{"Visual", "Scenes"}, rows, []columnAlignment{alignLeft, alignRight})
}
