package app

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/evanschultz/kanbases/internal/domain"
)

// NormalizeKey trims, lowercases, collapses whitespace runs to one hyphen, and drops characters outside [a-z0-9-].
func NormalizeKey(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	var b strings.Builder
	b.Grow(len(raw))
	inSpace := false
	for _, r := range raw {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
			continue
		}
		inSpace = false
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// KeyLabel de-slugifies a group key for display; the sentinel keeps its literal label.
func KeyLabel(key domain.GroupKey) string {
	if key == domain.SentinelKey {
		return string(domain.SentinelKey)
	}
	words := strings.Split(strings.ReplaceAll(string(key), "-", " "), " ")
	for i, word := range words {
		words[i] = upperFirst(word)
	}
	return strings.Join(words, " ")
}

// Descriptor builds the column descriptor for key.
func Descriptor(key domain.GroupKey) domain.ColumnDescriptor {
	return domain.ColumnDescriptor{Key: key, Label: KeyLabel(key)}
}

// ApplyFilter applies one named template filter; unknown names pass the input through.
func ApplyFilter(name, value string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "lowercase":
		return strings.ToLower(value)
	case "uppercase":
		return strings.ToUpper(value)
	case "capitalize":
		return upperFirst(strings.ToLower(value))
	case "kebab-case":
		return strings.Join(caseWords(value), "-")
	case "snake-case":
		return strings.Join(caseWords(value), "_")
	case "trim":
		return strings.TrimSpace(value)
	default:
		return value
	}
}

// RenderTemplate substitutes every placeholder with the record's filtered field value.
// The boolean reports whether at least one placeholder produced data.
func RenderTemplate(record domain.Record, template string) (string, bool) {
	matched := false
	out := domain.PlaceholderPattern().ReplaceAllStringFunc(template, func(raw string) string {
		placeholders := domain.ParsePlaceholders(raw)
		if len(placeholders) == 0 || placeholders[0].Field == "" {
			return ""
		}
		ph := placeholders[0]
		value, err := record.Value(ph.Field)
		if err != nil || value.IsEmpty() {
			return ""
		}
		text := value.String()
		for _, filter := range ph.Filters {
			text = ApplyFilter(filter, text)
		}
		if strings.TrimSpace(text) != "" {
			matched = true
		}
		return text
	})
	return out, matched
}

// ResolveKey derives the group key for one record under cfg.
func ResolveKey(record domain.Record, cfg domain.GroupingConfig) domain.GroupKey {
	var raw string
	switch cfg.Mode {
	case domain.GroupingTemplate:
		rendered, ok := RenderTemplate(record, cfg.Template)
		if !ok {
			return domain.SentinelKey
		}
		raw = rendered
	default:
		if strings.TrimSpace(string(cfg.Field)) == "" {
			return domain.SentinelKey
		}
		value, err := record.Value(cfg.Field)
		if err != nil || value.IsEmpty() {
			return domain.SentinelKey
		}
		raw = value.String()
	}
	return keyFromRaw(raw, cfg.Normalize)
}

// KeysFromNames converts configured column names into unique group keys, in order.
func KeysFromNames(names []string, normalize bool) []domain.GroupKey {
	out := make([]domain.GroupKey, 0, len(names))
	seen := map[domain.GroupKey]struct{}{}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		key := keyFromRaw(name, normalize)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// BucketRecords groups records by resolved key. Groups appear in first-seen order.
func BucketRecords(records []domain.Record, cfg domain.GroupingConfig) []domain.Group {
	groups := make([]domain.Group, 0)
	index := map[domain.GroupKey]int{}
	for _, record := range records {
		if record == nil {
			continue
		}
		key := ResolveKey(record, cfg)
		idx, ok := index[key]
		if !ok {
			idx = len(groups)
			index[key] = idx
			groups = append(groups, domain.Group{Key: key})
		}
		groups[idx].Records = append(groups[idx].Records, record)
	}
	return groups
}

// keyFromRaw trims and optionally normalizes a raw grouping value.
func keyFromRaw(raw string, normalize bool) domain.GroupKey {
	key := strings.TrimSpace(raw)
	if normalize {
		key = NormalizeKey(key)
		if key == NormalizeKey(string(domain.SentinelKey)) {
			return domain.SentinelKey
		}
	}
	if key == "" {
		return domain.SentinelKey
	}
	return domain.GroupKey(key)
}

// caseWords splits s into lowercase alphanumeric words.
func caseWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// upperFirst uppercases the first rune of s.
func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
