package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"animlab/internal/logging"
	"animlab/internal/render"
	"animlab/internal/scene"
	"animlab/internal/tts"
)

// Task kinds.
const (
	KindAudio  = "audio"
	KindRender = "render"
)

// SceneReader looks scenes up for background tasks.
type SceneReader interface {
	Get(ctx context.Context, id int) (scene.Scene, error)
	List(ctx context.Context, limit int) ([]scene.Scene, error)
}

// Renderer produces an animation from scenes.
type Renderer interface {
	Render(ctx context.Context, renderID string, quality render.Quality, scenes []scene.Scene) (render.Result, error)
}

// RenderRequest selects scenes and quality for a render. No ids means every scene.
type RenderRequest struct {
	SceneIDs []int `json:"scene_ids,omitempty"`
	Quality  string `json:"quality,omitempty"`
}

// Dispatcher builds audio and render tasks and hands them to a Scheduler.
type Dispatcher struct {
	scheduler Scheduler
	scenes    SceneReader
	synth     tts.Synthesizer
	audioDir  string
	renderer  Renderer
	logger    *slog.Logger
	newID     func() string
}

// NewDispatcher wires a dispatcher.
func NewDispatcher(scheduler Scheduler, scenes SceneReader, synth tts.Synthesizer, audioDir string, renderer Renderer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		scheduler: scheduler,
		scenes:    scenes,
		synth:     synth,
		audioDir:  audioDir,
		renderer:  renderer,
		logger:    logging.NewComponentLogger(logger, "dispatcher"),
		newID:     uuid.NewString,
	}
}

// GenerateAudio schedules narration synthesis for scene id and returns the
// job id. The scene must exist; blank narration is skipped by the task.
func (d *Dispatcher) GenerateAudio(ctx context.Context, id int) (string, error) {
	sc, err := d.scenes.Get(ctx, id)
	if err != nil {
		return "", err
	}
	jobID := d.newID()
	dest := tts.AudioPath(d.audioDir, id)
	task := Task{
		ID:   jobID,
		Kind: KindAudio,
		Run: func(ctx context.Context) error {
			logger := logging.WithContext(logging.WithSceneID(ctx, id), d.logger)
			if strings.TrimSpace(sc.Narration) == "" {
				logger.Info("narration empty, skipping audio generation")
				return nil
			}
			if err := d.synth.Synthesize(ctx, sc.Narration, dest); err != nil {
				return fmt.Errorf("scene %d: %w", id, err)
			}
			logger.Info("audio generated", logging.String("path", dest))
			return nil
		},
	}
	if err := d.scheduler.Schedule(task); err != nil {
		return "", err
	}
	logging.WithContext(logging.WithSceneID(ctx, id), d.logger).Info("audio generation scheduled",
		logging.String(logging.FieldJobID, jobID),
	)
	return jobID, nil
}

// Render validates req, schedules a render, and returns its id.
func (d *Dispatcher) Render(ctx context.Context, req RenderRequest) (string, error) {
	quality, err := render.ParseQuality(req.Quality)
	if err != nil {
		return "", err
	}
	renderID := d.newID()
	ids := append([]int(nil), req.SceneIDs...)
	task := Task{
		ID:   renderID,
		Kind: KindRender,
		Run: func(ctx context.Context) error {
			scenes, err := d.resolve(ctx, ids)
			if err != nil {
				return err
			}
			_, err = d.renderer.Render(ctx, renderID, quality, scenes)
			return err
		},
	}
	if err := d.scheduler.Schedule(task); err != nil {
		return "", err
	}
	logging.WithContext(ctx, d.logger).Info("render scheduled",
		logging.String(logging.FieldJobID, renderID),
		logging.String("quality", string(quality)),
		logging.Int("requested_scenes", len(ids)),
	)
	return renderID, nil
}

func (d *Dispatcher) resolve(ctx context.Context, ids []int) ([]scene.Scene, error) {
	if len(ids) == 0 {
		return d.scenes.List(ctx, 0)
	}
	scenes := make([]scene.Scene, 0, len(ids))
	for _, id := range ids {
		sc, err := d.scenes.Get(ctx, id)
		if errors.Is(err, scene.ErrNotFound) {
			logging.WithContext(logging.WithSceneID(ctx, id), d.logger).Warn("render skipped unknown scene",
				logging.String(logging.FieldEventType, "render_scene_missing"),
			)
			continue
		}
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, sc)
	}
	return scenes, nil
}
