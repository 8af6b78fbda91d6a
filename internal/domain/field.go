package domain

import (
	"fmt"
	"strings"
)

// FieldNamespace identifies where a field value is read from.
type FieldNamespace string

// NamespaceNote and related constants define the supported field namespaces.
const (
	NamespaceNote    FieldNamespace = "note"
	NamespaceFile    FieldNamespace = "file"
	NamespaceFormula FieldNamespace = "formula"
)

// FieldID is a namespaced field identifier of the form `<namespace>.<name>`.
type FieldID string

// ParseFieldID canonicalizes raw input into a FieldID; bare names default to the note namespace.
func ParseFieldID(raw string) (FieldID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidFieldID
	}
	ns, name, found := strings.Cut(raw, ".")
	if !found {
		return FieldID(string(NamespaceNote) + "." + raw), nil
	}
	switch FieldNamespace(strings.ToLower(ns)) {
	case NamespaceNote, NamespaceFile, NamespaceFormula:
	default:
		return "", fmt.Errorf("%w: unknown namespace %q", ErrInvalidFieldID, ns)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidFieldID
	}
	return FieldID(strings.ToLower(ns) + "." + name), nil
}

// MustFieldID parses raw and panics on failure. Intended for constants and tests.
func MustFieldID(raw string) FieldID {
	id, err := ParseFieldID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// Namespace returns the namespace part, defaulting to note.
func (f FieldID) Namespace() FieldNamespace {
	ns, _, found := strings.Cut(string(f), ".")
	if !found {
		return NamespaceNote
	}
	return FieldNamespace(ns)
}

// Name returns the bare metadata key.
func (f FieldID) Name() string {
	return ExtractFieldName(string(f))
}

// ExtractFieldName strips the namespace from a field id; only the first dot separates it.
func ExtractFieldName(id string) string {
	_, name, found := strings.Cut(id, ".")
	if !found {
		return id
	}
	return name
}
