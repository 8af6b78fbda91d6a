package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ValueKind tags the closed set of field value variants.
type ValueKind string

// ValueNone and related constants define the supported value kinds.
const (
	ValueNone      ValueKind = ""
	ValueText      ValueKind = "text"
	ValueNumber    ValueKind = "number"
	ValueBoolean   ValueKind = "boolean"
	ValueDate      ValueKind = "date"
	ValueList      ValueKind = "list"
	ValueReference ValueKind = "reference"
)

// dateLayout is the canonical date-only rendering.
const dateLayout = "2006-01-02"

// Value holds one typed field value. The zero value is absent.
type Value struct {
	Kind   ValueKind
	Text   string
	Number float64
	Bool   bool
	Time   time.Time
	Items  []Value
}

// TextValue constructs a text value.
func TextValue(s string) Value { return Value{Kind: ValueText, Text: s} }

// NumberValue constructs a number value.
func NumberValue(n float64) Value { return Value{Kind: ValueNumber, Number: n} }

// BoolValue constructs a boolean value.
func BoolValue(b bool) Value { return Value{Kind: ValueBoolean, Bool: b} }

// DateValue constructs a date value.
func DateValue(t time.Time) Value { return Value{Kind: ValueDate, Time: t} }

// ReferenceValue constructs a link to another record.
func ReferenceValue(target string) Value { return Value{Kind: ValueReference, Text: target} }

// ListValue constructs a list value.
func ListValue(items ...Value) Value {
	return Value{Kind: ValueList, Items: append([]Value(nil), items...)}
}

// IsEmpty reports whether the value should be treated as absent.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case ValueNone:
		return true
	case ValueText, ValueReference:
		return strings.TrimSpace(v.Text) == ""
	case ValueList:
		for _, item := range v.Items {
			if !item.IsEmpty() {
				return false
			}
		}
		return true
	case ValueDate:
		return v.Time.IsZero()
	default:
		return false
	}
}

// String renders the value as plain text.
func (v Value) String() string {
	switch v.Kind {
	case ValueText, ValueReference:
		return v.Text
	case ValueNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case ValueBoolean:
		return strconv.FormatBool(v.Bool)
	case ValueDate:
		if v.Time.IsZero() {
			return ""
		}
		h, m, s := v.Time.Clock()
		if h == 0 && m == 0 && s == 0 && v.Time.Nanosecond() == 0 {
			return v.Time.Format(dateLayout)
		}
		return v.Time.Format(time.RFC3339)
	case ValueList:
		parts := make([]string, 0, len(v.Items))
		for _, item := range v.Items {
			if item.IsEmpty() {
				continue
			}
			parts = append(parts, item.String())
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

// ValueFromAny converts decoded frontmatter or JSON metadata into a typed value.
func ValueFromAny(raw any) Value {
	switch typed := raw.(type) {
	case nil:
		return Value{}
	case Value:
		return typed
	case string:
		return valueFromString(typed)
	case bool:
		return BoolValue(typed)
	case int:
		return NumberValue(float64(typed))
	case int64:
		return NumberValue(float64(typed))
	case float64:
		if math.IsNaN(typed) {
			return Value{}
		}
		return NumberValue(typed)
	case time.Time:
		return DateValue(typed)
	case []string:
		items := make([]Value, 0, len(typed))
		for _, item := range typed {
			items = append(items, valueFromString(item))
		}
		return ListValue(items...)
	case []any:
		items := make([]Value, 0, len(typed))
		for _, item := range typed {
			items = append(items, ValueFromAny(item))
		}
		return ListValue(items...)
	case map[string]any:
		return TextValue(fmt.Sprintf("%v", typed))
	default:
		return TextValue(fmt.Sprint(typed))
	}
}

// valueFromString detects references and ISO dates inside string metadata.
func valueFromString(s string) Value {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "[[") && strings.HasSuffix(trimmed, "]]") && len(trimmed) > 4 {
		target := strings.TrimSpace(trimmed[2 : len(trimmed)-2])
		if alias := strings.Index(target, "|"); alias >= 0 {
			target = target[:alias]
		}
		return ReferenceValue(target)
	}
	if len(trimmed) == len(dateLayout) {
		if t, err := time.Parse(dateLayout, trimmed); err == nil {
			return DateValue(t)
		}
	}
	if len(trimmed) > len(dateLayout) && trimmed[4] == '-' {
		if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
			return DateValue(t)
		}
	}
	return TextValue(s)
}
