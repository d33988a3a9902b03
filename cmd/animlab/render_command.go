package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"animlab/internal/render"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var sceneIDs []int
	var quality string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write a render plan and run the configured renderer in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := render.ParseQuality(quality)
			if err != nil {
				return err
			}
			sess, err := ctx.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			scenes, err := selectScenes(cmd, sess, sceneIDs)
			if err != nil {
				return err
			}
			runner := render.NewRunner(sess.cfg, cliLogger(sess.cfg))
			renderID := uuid.NewString()
			result, err := runner.Render(cmd.Context(), renderID, q, scenes)
			if err != nil {
				return err
			}
			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, map[string]any{
					"render_id": renderID,
					"quality":   q,
					"scenes":    len(scenes),
					"dir":       result.Dir,
					"plan":      result.PlanPath,
					"executed":  result.Executed,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Render %s (%s, %d scene(s))\n", renderID, q, len(scenes))
			fmt.Fprintf(out, "Plan: %s\n", result.PlanPath)
			if !result.Executed {
				fmt.Fprintln(out, "No renderer configured; plan written only")
			}
			return nil
		},
	}
	cmd.Flags().IntSliceVarP(&sceneIDs, "scene", "s", nil, "Scene id to include (repeatable; default all)")
	cmd.Flags().StringVarP(&quality, "quality", "q", "medium", "Render quality: low, medium, or high")
	return cmd
}
