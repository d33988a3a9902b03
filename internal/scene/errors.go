package scene

import "errors"

var (
	ErrNotFound   = errors.New("scene not found")
	ErrConflict   = errors.New("scene id already exists")
	ErrValidation = errors.New("invalid scene")
)

// Kind classifies an error for logs and transport mapping.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}
