// Package tts synthesizes scene narration into WAV files by running an
// external speech engine (espeak-ng by default).
package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"animlab/internal/config"
	"animlab/internal/fileutil"
	"animlab/internal/logging"
	"animlab/internal/scene"
)

// ErrEmptyText is returned when there is nothing to speak.
var ErrEmptyText = errors.New("narration is empty")

// Synthesizer writes spoken text to a WAV file at dest.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, dest string) error
}

// CommandSynthesizer runs an espeak-compatible command line:
//
//	<command> -s <rate> [-v <voice>] -w <file> --stdin
type CommandSynthesizer struct {
	Command string
	Rate    int
	Voice   string
}

// NewCommandSynthesizer builds a synthesizer from configuration.
func NewCommandSynthesizer(cfg config.TTS) *CommandSynthesizer {
	return &CommandSynthesizer{Command: cfg.Command, Rate: cfg.Rate, Voice: cfg.Voice}
}

// Args returns the argument list used to write output.
func (s *CommandSynthesizer) Args(output string) []string {
	args := []string{"-s", strconv.Itoa(s.Rate)}
	if s.Voice != "" {
		args = append(args, "-v", s.Voice)
	}
	return append(args, "-w", output, "--stdin")
}

// Synthesize speaks text into a temporary sibling of dest and renames it into
// place once the engine succeeds.
func (s *CommandSynthesizer) Synthesize(ctx context.Context, text, dest string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	tmp, err := fileutil.TempSibling(dest)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, s.Command, s.Args(tmp)...) //nolint:gosec
	cmd.Stdin = strings.NewReader(text)
	output, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(tmp)
		detail := strings.TrimSpace(string(output))
		if detail != "" {
			return fmt.Errorf("%s: %w: %s", s.Command, err, detail)
		}
		return fmt.Errorf("%s: %w", s.Command, err)
	}
	return fileutil.ReplaceFile(tmp, dest)
}

// AudioPath returns the narration file for a scene inside dir.
func AudioPath(dir string, id int) string {
	return filepath.Join(dir, scene.AudioFileName(id))
}

// BatchResult tallies a batch run.
type BatchResult struct {
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// GenerateAll synthesizes narration for scenes one after another. Scenes with
// blank narration are skipped; failures are logged and counted. It stops
// early only when ctx is cancelled.
func GenerateAll(ctx context.Context, synth Synthesizer, scenes []scene.Scene, dir string, logger *slog.Logger) (BatchResult, error) {
	logger = logging.NewComponentLogger(logger, "tts")
	var result BatchResult
	for _, sc := range scenes {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		sceneLogger := logging.WithContext(logging.WithSceneID(ctx, sc.ID), logger)
		if strings.TrimSpace(sc.Narration) == "" {
			result.Skipped++
			sceneLogger.Info("narration empty, skipping")
			continue
		}
		dest := AudioPath(dir, sc.ID)
		if err := synth.Synthesize(ctx, sc.Narration, dest); err != nil {
			result.Failed++
			sceneLogger.Error("audio generation failed", logging.Error(err))
			continue
		}
		result.Generated++
		sceneLogger.Info("audio generated", logging.String("path", dest))
	}
	return result, nil
}
