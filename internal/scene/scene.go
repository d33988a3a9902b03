package scene

import (
	"fmt"
	"slices"
	"strings"
)

// Scene is a single narrated scene. JSON field names double as the mirror
// file format.
type Scene struct {
	ID          int      `json:"scene_id"`
	Concept     string   `json:"concept"`
	Explanation []string `json:"explanation"`
	Equations   []string `json:"equations"`
	Visual      string   `json:"visual"`
	Narration   string   `json:"narration"`
}

// Normalize replaces nil slices with empty ones so documents encode as [].
func (s *Scene) Normalize() {
	if s.Explanation == nil {
		s.Explanation = []string{}
	}
	if s.Equations == nil {
		s.Equations = []string{}
	}
}

// Clone returns a deep copy.
func (s Scene) Clone() Scene {
	out := s
	out.Explanation = slices.Clone(s.Explanation)
	out.Equations = slices.Clone(s.Equations)
	out.Normalize()
	return out
}

// Validate checks the fields a new scene must carry.
func (s Scene) Validate() error {
	if strings.TrimSpace(s.Concept) == "" {
		return fmt.Errorf("%w: concept is required", ErrValidation)
	}
	return nil
}

// Matches reports whether query is a case-insensitive substring of the
// concept or the narration. An empty query matches everything.
func (s Scene) Matches(query string) bool {
	needle := strings.ToLower(query)
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s.Concept), needle) ||
		strings.Contains(strings.ToLower(s.Narration), needle)
}

// AudioFileName returns the conventional narration file name for a scene.
func AudioFileName(id int) string {
	return fmt.Sprintf("scene_%d.wav", id)
}

// Patch carries a partial update. Nil fields are not supplied.
type Patch struct {
	Concept     *string   `json:"concept,omitempty"`
	Explanation *[]string `json:"explanation,omitempty"`
	Equations   *[]string `json:"equations,omitempty"`
	Visual      *string   `json:"visual,omitempty"`
	Narration   *string   `json:"narration,omitempty"`
}

// Empty reports whether no field was supplied.
func (p Patch) Empty() bool {
	return p.Concept == nil && p.Explanation == nil && p.Equations == nil &&
		p.Visual == nil && p.Narration == nil
}

// Apply returns a copy of s with the supplied fields replaced.
func (p Patch) Apply(s Scene) Scene {
	out := s.Clone()
	if p.Concept != nil {
		out.Concept = *p.Concept
	}
	if p.Explanation != nil {
		out.Explanation = slices.Clone(*p.Explanation)
	}
	if p.Equations != nil {
		out.Equations = slices.Clone(*p.Equations)
	}
	if p.Visual != nil {
		out.Visual = *p.Visual
	}
	if p.Narration != nil {
		out.Narration = *p.Narration
	}
	out.Normalize()
	return out
}

// Fields lists the supplied field names in wire order.
func (p Patch) Fields() []string {
	var fields []string
	if p.Concept != nil {
		fields = append(fields, "concept")
	}
	if p.Explanation != nil {
		fields = append(fields, "explanation")
	}
	if p.Equations != nil {
		fields = append(fields, "equations")
	}
	if p.Visual != nil {
		fields = append(fields, "visual")
	}
	if p.Narration != nil {
		fields = append(fields, "narration")
	}
	return fields
}
