package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"

	"animlab/internal/deps"
	"animlab/internal/jobs"
	"animlab/internal/logging"
	"animlab/internal/scene"
)

const sceneNotFound = "Scene not found"

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{Status: "healthy", Service: ServiceName, Dependencies: []deps.Status{}}
	if s.opts.Dependencies != nil {
		resp.Dependencies = s.opts.Dependencies()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := s.scenes.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, sceneNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, SceneListResponse{Scenes: nonNil(scenes), Total: len(scenes)})
}

func (s *Server) handleGetScene(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sceneID(w, r)
	if !ok {
		return
	}
	sc, err := s.scenes.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, sceneNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleCreateScene(w http.ResponseWriter, r *http.Request) {
	var req CreateSceneRequest
	if err := decodeBody(r, &req, false); err != nil {
		s.writeServiceError(w, r, err, sceneNotFound)
		return
	}
	sc, err := req.Scene()
	if err != nil {
		s.writeServiceError(w, r, err, sceneNotFound)
		return
	}
	created, err := s.scenes.Create(r.Context(), sc)
	if err != nil {
		s.writeServiceError(w, r, err, sceneNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, SceneResponse{Message: "Scene created successfully", Scene: created})
}

func (s *Server) handleUpdateScene(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sceneID(w, r)
	if !ok {
		return
	}
	var patch scene.Patch
	if err := decodeBody(r, &patch, false); err != nil {
		s.writeServiceError(w, r, err, sceneNotFound)
		return
	}
	updated, err := s.scenes.Update(r.Context(), id, patch)
	if err != nil {
		s.writeServiceError(w, r, err, sceneNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, SceneResponse{Message: "Scene updated successfully", Scene: updated})
}

func (s *Server) handleDeleteScene(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sceneID(w, r)
	if !ok {
		return
	}
	if err := s.scenes.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, sceneNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, MessageResponse{Message: "Scene deleted successfully"})
}

func (s *Server) handleSearchScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := s.scenes.Search(r.Context(), mux.Vars(r)["query"])
	if err != nil {
		s.writeServiceError(w, r, err, sceneNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, SceneListResponse{Scenes: nonNil(scenes), Total: len(scenes)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.scenes.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, sceneNotFound)
		return
	}
	if stats.VisualTypes == nil {
		stats.VisualTypes = map[string]int{}
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGenerateAudio(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sceneID(w, r)
	if !ok {
		return
	}
	jobID, err := s.jobs.GenerateAudio(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, sceneNotFound)
		return
	}
	w.Header().Set("X-Job-ID", jobID)
	s.writeJSON(w, http.StatusOK, AudioJobResponse{Message: "Audio generation started", SceneID: id})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req jobs.RenderRequest
	if err := decodeBody(r, &req, true); err != nil {
		s.writeServiceError(w, r, err, sceneNotFound)
		return
	}
	renderID, err := s.jobs.Render(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err, sceneNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, RenderResponse{Message: "Rendering started", RenderID: renderID, Status: "processing"})
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.media.ListVideos()
	if err != nil {
		s.writeServiceError(w, r, err, "Video not found")
		return
	}
	s.writeJSON(w, http.StatusOK, VideoListResponse{Videos: videos})
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	path, err := s.media.ResolveVideo(mux.Vars(r)["filename"])
	if err != nil {
		s.writeServiceError(w, r, err, "Video not found")
		return
	}
	s.serveFile(w, r, path, "video/mp4")
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	path, err := s.media.ResolveAudio(mux.Vars(r)["filename"])
	if err != nil {
		s.writeServiceError(w, r, err, "Audio not found")
		return
	}
	s.serveFile(w, r, path, "audio/wav")
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, path, contentType string) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.writeError(w, http.StatusNotFound, "File not found")
			return
		}
		s.writeServiceError(w, r, err, "File not found")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		s.writeServiceError(w, r, err, "File not found")
		return
	}
	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

// sceneID parses the {id} route variable. The route pattern already limits
// it to digits, so only overflow fails here.
func (s *Server) sceneID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.Atoi(raw)
	if err != nil {
		logging.WithContext(r.Context(), s.logger).Debug("invalid scene id", logging.String("id", raw))
		s.writeError(w, http.StatusBadRequest, "invalid scene id")
		return 0, false
	}
	return id, true
}

func nonNil(scenes []scene.Scene) []scene.Scene {
	if scenes == nil {
		return []scene.Scene{}
	}
	return scenes
}
