// Package media locates rendered videos and narration files on disk.
package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"animlab/internal/scene"
)

// Video describes a rendered .mp4 file.
type Video struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}

// Library resolves media files under the configured directories.
type Library struct {
	videoDir string
	audioDir string
}

// NewLibrary returns a library rooted at videoDir and audioDir.
func NewLibrary(videoDir, audioDir string) *Library {
	return &Library{videoDir: videoDir, audioDir: audioDir}
}

// ListVideos walks the video directory for .mp4 files, sorted by path.
// A missing directory yields an empty list.
func (l *Library) ListVideos() ([]Video, error) {
	videos := make([]Video, 0)
	err := filepath.WalkDir(l.videoDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == l.videoDir {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".mp4") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		videos = append(videos, Video{Filename: d.Name(), Path: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].Path < videos[j].Path })
	return videos, nil
}

// ResolveVideo finds name directly in the video directory, then by base name
// anywhere below it.
func (l *Library) ResolveVideo(name string) (string, error) {
	if !safeName(name) {
		return "", notFound(name)
	}
	direct := filepath.Join(l.videoDir, name)
	if isFile(direct) {
		return direct, nil
	}
	var found string
	err := filepath.WalkDir(l.videoDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == l.videoDir {
				return fs.SkipAll
			}
			return nil
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("resolve video %s: %w", name, err)
	}
	if found == "" {
		return "", notFound(name)
	}
	return found, nil
}

// ResolveAudio finds name directly in the audio directory.
func (l *Library) ResolveAudio(name string) (string, error) {
	if !safeName(name) {
		return "", notFound(name)
	}
	path := filepath.Join(l.audioDir, name)
	if !isFile(path) {
		return "", notFound(name)
	}
	return path, nil
}

// CountAudio counts .wav files directly in the audio directory. Hidden files,
// including in-flight synthesizer output, are ignored. A missing directory
// counts as zero.
func (l *Library) CountAudio() (int, error) {
	entries, err := os.ReadDir(l.audioDir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read audio dir: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			count++
		}
	}
	return count, nil
}

func safeName(name string) bool {
	if name == "" || name == "." || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func notFound(name string) error {
	return fmt.Errorf("file %q: %w", name, scene.ErrNotFound)
}
