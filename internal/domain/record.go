package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Record is an opaque handle to one host note.
type Record interface {
	ID() string
	Value(field FieldID) (Value, error)
}

// Note is the concrete host record: a path plus frontmatter metadata and a markdown body.
type Note struct {
	Path      string
	Metadata  map[string]any
	Body      string
	UpdatedAt time.Time
}

// NewNote constructs a note with a normalized slash path.
func NewNote(notePath string, metadata map[string]any, body string, now time.Time) (Note, error) {
	notePath = strings.TrimSpace(strings.ReplaceAll(notePath, "\\", "/"))
	notePath = strings.TrimPrefix(notePath, "/")
	if notePath == "" {
		return Note{}, fmt.Errorf("%w: note path is required", ErrInvalidArgument)
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Note{
		Path:      path.Clean(notePath),
		Metadata:  metadata,
		Body:      body,
		UpdatedAt: now.UTC(),
	}, nil
}

// ID returns the stable record identifier.
func (n Note) ID() string {
	return n.Path
}

// Value resolves one namespaced field.
func (n Note) Value(field FieldID) (Value, error) {
	name := field.Name()
	switch field.Namespace() {
	case NamespaceNote:
		raw, ok := n.Metadata[name]
		if !ok {
			return Value{}, nil
		}
		return ValueFromAny(raw), nil
	case NamespaceFile:
		return n.fileValue(name)
	case NamespaceFormula:
		return Value{}, fmt.Errorf("%w: formula %q", ErrFieldUnavailable, name)
	default:
		return Value{}, fmt.Errorf("%w: %q", ErrInvalidFieldID, field)
	}
}

// fileValue resolves built-in file properties.
func (n Note) fileValue(name string) (Value, error) {
	base := path.Base(n.Path)
	ext := path.Ext(base)
	switch name {
	case "path":
		return TextValue(n.Path), nil
	case "name":
		return TextValue(base), nil
	case "basename":
		return TextValue(strings.TrimSuffix(base, ext)), nil
	case "ext":
		return TextValue(strings.TrimPrefix(ext, ".")), nil
	case "folder":
		dir := path.Dir(n.Path)
		if dir == "." {
			dir = ""
		}
		return TextValue(dir), nil
	case "mtime":
		if n.UpdatedAt.IsZero() {
			return Value{}, nil
		}
		return DateValue(n.UpdatedAt), nil
	default:
		return Value{}, fmt.Errorf("%w: file.%s", ErrFieldUnavailable, name)
	}
}

// FileFields lists the built-in file properties every note exposes.
func FileFields() []FieldID {
	return []FieldID{"file.name", "file.basename", "file.path", "file.folder", "file.ext", "file.mtime"}
}
