// Package vault moves notes between a directory of markdown files and the note host.
package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evanschultz/kanbases/internal/domain"
)

// fence delimits YAML frontmatter.
const fence = "---"

// ErrMalformedFrontmatter reports frontmatter that cannot be decoded.
var ErrMalformedFrontmatter = errors.New("malformed frontmatter")

// NoteSink receives imported notes.
type NoteSink interface {
	UpsertNote(context.Context, domain.Note) error
}

// Split separates YAML frontmatter from the markdown body.
func Split(content []byte) (map[string]any, string, error) {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	if !strings.HasPrefix(text, fence+"\n") {
		return map[string]any{}, text, nil
	}
	rest := text[len(fence)+1:]
	var (
		header string
		body   string
	)
	switch {
	case strings.HasPrefix(rest, fence+"\n") || rest == fence:
		body = strings.TrimPrefix(strings.TrimPrefix(rest, fence), "\n")
	default:
		end := strings.Index(rest, "\n"+fence+"\n")
		if end < 0 {
			if !strings.HasSuffix(rest, "\n"+fence) {
				return nil, "", fmt.Errorf("%w: missing closing fence", ErrMalformedFrontmatter)
			}
			end = len(rest) - len(fence) - 1
			header = rest[:end]
			body = ""
			break
		}
		header = rest[:end]
		body = rest[end+len(fence)+2:]
	}
	metadata := map[string]any{}
	if strings.TrimSpace(header) != "" {
		if err := yaml.Unmarshal([]byte(header), &metadata); err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrMalformedFrontmatter, err)
		}
	}
	return normalizeMap(metadata), body, nil
}

// Join renders metadata as frontmatter followed by body.
func Join(metadata map[string]any, body string) ([]byte, error) {
	var buf bytes.Buffer
	if len(metadata) > 0 {
		header, err := yaml.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("encode frontmatter: %w", err)
		}
		buf.WriteString(fence + "\n")
		buf.Write(header)
		buf.WriteString(fence + "\n")
	}
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// Import walks dir for *.md files and upserts each one into sink. It returns the number of imported notes.
func Import(ctx context.Context, dir string, sink NoteSink) (int, error) {
	dir = filepath.Clean(dir)
	count := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(p), ".md") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}
		metadata, body, err := Split(content)
		if err != nil {
			return fmt.Errorf("parse %s: %w", rel, err)
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", rel, err)
		}
		note, err := domain.NewNote(filepath.ToSlash(rel), metadata, body, info.ModTime())
		if err != nil {
			return err
		}
		if err := sink.UpsertNote(ctx, note); err != nil {
			return fmt.Errorf("import %s: %w", rel, err)
		}
		count++
		return nil
	})
	return count, err
}

// Export writes notes under dir as frontmatter markdown files.
func Export(ctx context.Context, dir string, notes []domain.Note) (int, error) {
	count := 0
	for _, note := range notes {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		rel := path.Clean(note.Path)
		if rel == "." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
			return count, fmt.Errorf("%w: note path %q escapes the export dir", domain.ErrInvalidArgument, note.Path)
		}
		content, err := Join(note.Metadata, note.Body)
		if err != nil {
			return count, fmt.Errorf("export %s: %w", rel, err)
		}
		target := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return count, fmt.Errorf("create dir for %s: %w", rel, err)
		}
		if err := os.WriteFile(target, content, 0o644); err != nil {
			return count, fmt.Errorf("write %s: %w", rel, err)
		}
		if !note.UpdatedAt.IsZero() {
			_ = os.Chtimes(target, time.Now(), note.UpdatedAt)
		}
		count++
	}
	return count, nil
}

// normalizeMap converts YAML-decoded values into JSON-compatible shapes.
func normalizeMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = normalizeValue(value)
	}
	return out
}

// normalizeValue rewrites nested maps, ints, and timestamps.
func normalizeValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return normalizeMap(typed)
	case []any:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, normalizeValue(item))
		}
		return out
	case int:
		return float64(typed)
	case time.Time:
		h, m, s := typed.Clock()
		if h == 0 && m == 0 && s == 0 && typed.Nanosecond() == 0 {
			return typed.Format("2006-01-02")
		}
		return typed.UTC().Format(time.RFC3339)
	default:
		return typed
	}
}
