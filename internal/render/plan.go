package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/wav"

	"animlab/internal/fileutil"
	"animlab/internal/scene"
)

// MinHold is the shortest time a scene stays on screen.
const MinHold = 3 * time.Second

// Plan is the document handed to the renderer.
type Plan struct {
	RenderID  string      `json:"render_id"`
	Quality   Quality     `json:"quality"`
	CreatedAt time.Time   `json:"created_at"`
	Scenes    []PlanScene `json:"scenes"`
}

// PlanScene describes one scene of the animation.
type PlanScene struct {
	SceneID     int      `json:"scene_id"`
	Title       string   `json:"title"`
	Explanation []string `json:"explanation"`
	Equations   []string `json:"equations"`
	Visual      string   `json:"visual"`
	Steps       []string `json:"steps"`
	AudioPath   string   `json:"audio_path,omitempty"`
	HoldSeconds float64  `json:"hold_seconds"`
}

var visualSteps = map[scene.Visual][]string{
	scene.VisualLinearRegression: {"create_axes", "fade_in_points", "create_fit_line"},
	scene.VisualLossCurve:        {"create_axes", "create_curve", "fade_in_dot"},
	scene.VisualGradientDescent: {
		"create_axes", "create_curve", "fade_in_dot",
		"move_dot:4", "move_dot:3.2", "move_dot:3.05",
	},
	scene.VisualNeuralNetwork: {"create_network:3,4,2"},
}

// Steps returns the fixed animation steps for v. VisualNone has none.
func Steps(v scene.Visual) []string {
	steps := visualSteps[v]
	out := make([]string, len(steps))
	copy(out, steps)
	return out
}

// BuildPlan assembles a plan for scenes, looking up narration files in audioDir.
func BuildPlan(renderID string, quality Quality, scenes []scene.Scene, audioDir string) Plan {
	plan := Plan{
		RenderID:  renderID,
		Quality:   quality,
		CreatedAt: time.Now().UTC(),
		Scenes:    make([]PlanScene, 0, len(scenes)),
	}
	for _, sc := range scenes {
		sc = sc.Clone()
		visual := scene.ParseVisual(sc.Visual)
		entry := PlanScene{
			SceneID:     sc.ID,
			Title:       sc.Concept,
			Explanation: sc.Explanation,
			Equations:   sc.Equations,
			Visual:      string(visual),
			Steps:       Steps(visual),
			HoldSeconds: MinHold.Seconds(),
		}
		audioPath := filepath.Join(audioDir, scene.AudioFileName(sc.ID))
		if _, err := os.Stat(audioPath); err == nil {
			entry.AudioPath = audioPath
			entry.HoldSeconds = HoldFor(audioPath).Seconds()
		}
		plan.Scenes = append(plan.Scenes, entry)
	}
	return plan
}

// HoldFor returns max(duration of the WAV at path, MinHold). Unreadable
// audio holds for MinHold.
func HoldFor(path string) time.Duration {
	d, err := WAVDuration(path)
	if err != nil || d < MinHold {
		return MinHold
	}
	return d
}

// WAVDuration reads the playback length of a WAV file from its format
// header and PCM chunk size.
func WAVDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if err := dec.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("%s: not a readable wav file: %w", filepath.Base(path), err)
	}
	bytesPerSecond := int64(dec.SampleRate) * int64(dec.NumChans) * int64(dec.BitDepth) / 8
	if bytesPerSecond <= 0 {
		return 0, fmt.Errorf("%s: wav header has no byte rate", filepath.Base(path))
	}
	seconds := float64(dec.PCMLen()) / float64(bytesPerSecond)
	return time.Duration(seconds * float64(time.Second)), nil
}

// WritePlan stores plan as indented JSON at path.
func WritePlan(path string, plan Plan) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("encode render plan: %w", err)
	}
	return fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

// ReadPlan loads a plan written by WritePlan.
func ReadPlan(path string) (Plan, error) {
	var plan Plan
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return plan, fmt.Errorf("render plan %s: %w", path, scene.ErrNotFound)
	}
	if err != nil {
		return plan, err
	}
	if err := json.Unmarshal(data, &plan); err != nil {
		return plan, fmt.Errorf("decode render plan: %w", err)
	}
	return plan, nil
}
