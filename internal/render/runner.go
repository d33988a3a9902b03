package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"animlab/internal/config"
	"animlab/internal/logging"
	"animlab/internal/scene"
)

// EnvPlanPath names the environment variable carrying the plan location.
const EnvPlanPath = "ANIMLAB_RENDER_PLAN"

// Result describes a finished render job.
type Result struct {
	Dir      string
	PlanPath string
	// Executed is false when no renderer is configured.
	Executed bool
}

// Runner writes render plans and invokes the external renderer.
type Runner struct {
	command  string
	args     []string
	videoDir string
	audioDir string
	logger   *slog.Logger
}

// NewRunner builds a Runner from configuration.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{
		command:  cfg.Render.Command,
		args:     append([]string(nil), cfg.Render.Args...),
		videoDir: cfg.Paths.VideoDir,
		audioDir: cfg.Paths.AudioDir,
		logger:   logging.NewComponentLogger(logger, "render"),
	}
}

// Enabled reports whether an external renderer is configured.
func (r *Runner) Enabled() bool {
	return strings.TrimSpace(r.command) != ""
}

// Dir returns the working directory for a render id.
func (r *Runner) Dir(renderID string) string {
	return filepath.Join(r.videoDir, "renders", renderID)
}

// Render writes the plan for scenes and runs the renderer in the render
// directory. Without a configured renderer only the plan is written.
func (r *Runner) Render(ctx context.Context, renderID string, quality Quality, scenes []scene.Scene) (Result, error) {
	dir := r.Dir(renderID)
	result := Result{Dir: dir, PlanPath: filepath.Join(dir, "plan.json")}

	plan := BuildPlan(renderID, quality, scenes, r.audioDir)
	if err := WritePlan(result.PlanPath, plan); err != nil {
		return result, err
	}
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("render plan written",
		logging.String("plan", result.PlanPath),
		logging.Int("scenes", len(plan.Scenes)),
		logging.String("quality", string(quality)),
	)

	if !r.Enabled() {
		logger.Info("no renderer configured; render plan only",
			logging.String(logging.FieldEventType, "render_placeholder"),
		)
		return result, nil
	}

	args := append(append([]string(nil), r.args...), quality.Flag())
	cmd := exec.CommandContext(ctx, r.command, args...) //nolint:gosec
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), EnvPlanPath+"="+result.PlanPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		logger.Error("renderer failed",
			logging.Error(err),
			logging.String("command", r.command),
			logging.String("output", strings.TrimSpace(string(output))),
		)
		return result, fmt.Errorf("run renderer %s: %w", r.command, err)
	}
	result.Executed = true
	logger.Info("render finished", logging.String("dir", dir))
	return result, nil
}
