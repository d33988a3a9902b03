// Package scene defines the scene document, partial updates, visual tags, and
// the error taxonomy shared by the store, the HTTP API, and background jobs.
//
// A Scene is the unit of educational content: a title, explanation lines,
// formula sources, a visual tag selecting a fixed animation sequence, and
// narration text. Scenes are keyed by a creator-assigned integer ID.
package scene
