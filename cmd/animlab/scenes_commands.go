package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"animlab/internal/fileutil"
	"animlab/internal/mirror"
	"animlab/internal/scene"
)

func newScenesCommand(ctx *commandContext) *cobra.Command {
	scenesCmd := &cobra.Command{
		Use:     "scenes",
		Aliases: []string{"scene"},
		Short:   "Inspect and manage scenes",
	}
	scenesCmd.AddCommand(
		newScenesListCommand(ctx),
		newScenesShowCommand(ctx),
		newScenesSearchCommand(ctx),
		newScenesExportCommand(ctx),
		newScenesImportCommand(ctx),
	)
	return scenesCmd
}

func newScenesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scenes in id order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			scenes, err := sess.catalog.List(cmd.Context())
			if err != nil {
				return err
			}
			return printScenes(cmd, ctx, scenes)
		},
	}
}

func newScenesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <scene-id>",
		Short: "Show one scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSceneID(args[0])
			if err != nil {
				return err
			}
			sess, err := ctx.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			sc, err := sess.catalog.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, sc)
			}
			printSceneDetail(cmd.OutOrStdout(), sc)
			return nil
		},
	}
}

func newScenesSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search concept and narration, case-insensitively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			scenes, err := sess.catalog.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printScenes(cmd, ctx, scenes)
		},
	}
}

func newScenesExportCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every scene as a scene-graph JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			scenes, err := sess.store.List(cmd.Context(), 0)
			if err != nil {
				return err
			}
			if strings.TrimSpace(output) == "" || output == "-" {
				return mirror.Encode(cmd.OutOrStdout(), scenes)
			}
			if err := fileutil.WriteAtomic(output, 0o644, func(w io.Writer) error {
				return mirror.Encode(w, scenes)
			}); err != nil {
				return fmt.Errorf("export scenes: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d scene(s) to %s\n", len(scenes), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default stdout)")
	return cmd
}

func newScenesImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add scenes from a scene-graph JSON file, skipping existing ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("import scenes: %w", err)
			}
			scenes, err := mirror.ReadFile(args[0])
			if err != nil {
				return err
			}
			sess, err := ctx.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			added, err := sess.catalog.Import(cmd.Context(), scenes)
			if err != nil {
				return err
			}
			summary := importSummary{Read: len(scenes), Added: added, Skipped: len(scenes) - added}
			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, summary)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d scene(s); %d already existed\n", summary.Added, summary.Read, summary.Skipped)
			return nil
		},
	}
}

type importSummary struct {
	Read    int `json:"read"`
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

func printScenes(cmd *cobra.Command, ctx *commandContext, scenes []scene.Scene) error {
	if scenes == nil {
		scenes = []scene.Scene{}
	}
	if ctx.wantJSON(cmd) {
		return writeJSON(cmd, map[string]any{"scenes": scenes, "total": len(scenes)})
	}
	out := cmd.OutOrStdout()
	if len(scenes) == 0 {
		fmt.Fprintln(out, "No scenes")
		return nil
	}
	fmt.Fprintln(out, sceneTable(scenes))
	return nil
}

func sceneTable(scenes []scene.Scene) string {
	rows := make([][]string, 0, len(scenes))
	for _, sc := range scenes {
		rows = append(rows, []string{
			strconv.Itoa(sc.ID),
			truncate(sc.Concept, 40),
			visualLabel(sc.Visual),
			truncate(sc.Narration, 50),
		})
	}
	return renderTable(
		[]string{"ID", "Concept", "Visual", "Narration"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	)
}

func printSceneDetail(out io.Writer, sc scene.Scene) {
	fmt.Fprintf(out, "Scene %d: %s\n", sc.ID, sc.Concept)
	fmt.Fprintf(out, "Visual: %s\n", visualLabel(sc.Visual))
	if len(sc.Explanation) > 0 {
		fmt.Fprintln(out, "Explanation:")
		for _, line := range sc.Explanation {
			fmt.Fprintf(out, "  - %s\n", line)
		}
	}
	if len(sc.Equations) > 0 {
		fmt.Fprintln(out, "Equations:")
		for _, eq := range sc.Equations {
			fmt.Fprintf(out, "  %s\n", eq)
		}
	}
	if strings.TrimSpace(sc.Narration) != "" {
		fmt.Fprintf(out, "Narration: %s\n", sc.Narration)
	}
}

func parseSceneID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid scene id %q", raw)
	}
	return id, nil
}
