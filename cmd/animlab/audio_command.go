package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"animlab/internal/scene"
	"animlab/internal/tts"
)

func newAudioCommand(ctx *commandContext) *cobra.Command {
	audioCmd := &cobra.Command{
		Use:   "audio",
		Short: "Narration audio utilities",
	}
	audioCmd.AddCommand(newAudioGenerateCommand(ctx))
	return audioCmd
}

func newAudioGenerateCommand(ctx *commandContext) *cobra.Command {
	var sceneIDs []int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Synthesize narration for every scene, or the ones given with --scene",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			scenes, err := selectScenes(cmd, sess, sceneIDs)
			if err != nil {
				return err
			}
			synth := tts.NewCommandSynthesizer(sess.cfg.TTS)
			result, err := tts.GenerateAll(cmd.Context(), synth, scenes, sess.cfg.Paths.AudioDir, cliLogger(sess.cfg))
			if err != nil {
				return err
			}
			if ctx.wantJSON(cmd) {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Generated %d, skipped %d, failed %d\n", result.Generated, result.Skipped, result.Failed)
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d narration file(s) failed", result.Failed)
			}
			return nil
		},
	}
	cmd.Flags().IntSliceVarP(&sceneIDs, "scene", "s", nil, "Scene id to synthesize (repeatable)")
	return cmd
}

// selectScenes resolves ids in order, or returns every scene when ids is empty.
func selectScenes(cmd *cobra.Command, sess *session, ids []int) ([]scene.Scene, error) {
	if len(ids) == 0 {
		return sess.store.List(cmd.Context(), 0)
	}
	scenes := make([]scene.Scene, 0, len(ids))
	for _, id := range ids {
		sc, err := sess.catalog.Get(cmd.Context(), id)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, sc)
	}
	return scenes, nil
}
