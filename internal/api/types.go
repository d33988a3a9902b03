package api

import (
	"strings"

	"animlab/internal/deps"
	"animlab/internal/media"
	"animlab/internal/scene"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "ML Animation Platform"

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status       string        `json:"status"`
	Service      string        `json:"service"`
	Dependencies []deps.Status `json:"dependencies"`
}

// SceneListResponse wraps list and search results.
type SceneListResponse struct {
	Scenes []scene.Scene `json:"scenes"`
	Total  int           `json:"total"`
}

// SceneResponse acknowledges a create or update.
type SceneResponse struct {
	Message string      `json:"message"`
	Scene   scene.Scene `json:"scene"`
}

// MessageResponse carries a bare acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// AudioJobResponse acknowledges a scheduled narration job.
type AudioJobResponse struct {
	Message string `json:"message"`
	SceneID int    `json:"scene_id"`
}

// RenderResponse acknowledges a scheduled render.
type RenderResponse struct {
	Message  string `json:"message"`
	RenderID string `json:"render_id"`
	Status   string `json:"status"`
}

// VideoListResponse lists rendered videos.
type VideoListResponse struct {
	Videos []media.Video `json:"videos"`
}

// CreateSceneRequest is the POST /api/scenes body. scene_id is required.
type CreateSceneRequest struct {
	ID          *int     `json:"scene_id"`
	Concept     string   `json:"concept"`
	Explanation []string `json:"explanation"`
	Equations   []string `json:"equations"`
	Visual      string   `json:"visual"`
	Narration   string   `json:"narration"`
}

// Scene converts the request into a scene, reporting missing required fields.
func (r CreateSceneRequest) Scene() (scene.Scene, error) {
	var missing []string
	if r.ID == nil {
		missing = append(missing, "scene_id")
	}
	if strings.TrimSpace(r.Concept) == "" {
		missing = append(missing, "concept")
	}
	if len(missing) > 0 {
		return scene.Scene{}, &fieldError{fields: missing}
	}
	sc := scene.Scene{
		ID:          *r.ID,
		Concept:     r.Concept,
		Explanation: r.Explanation,
		Equations:   r.Equations,
		Visual:      r.Visual,
		Narration:   r.Narration,
	}
	sc.Normalize()
	return sc, nil
}

type fieldError struct {
	fields []string
}

func (e *fieldError) Error() string {
	return "missing required field(s): " + strings.Join(e.fields, ", ")
}

func (e *fieldError) Unwrap() error {
	return scene.ErrValidation
}
