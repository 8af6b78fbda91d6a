package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/evanschultz/kanbases/internal/domain"
)

// View-setting keys stored through the config surface.
const (
	KeyGroupingMode     = "board-groupingMode"
	KeyGroupingField    = "board-groupingField"
	KeyGroupingTemplate = "board-groupingTemplate"
	KeyNormalizeKeys    = "board-normalizeKeys"
	KeyCardTitle        = "board-cardTitleProperty"
	KeyCardTags         = "board-cardTagsProperty"
	KeyCardType         = "board-cardTypeProperty"
	KeyCardPoints       = "board-cardStoryPointsProperty"
	KeyCardPriority     = "board-cardPriorityProperty"
)

// DefaultColumnNames is the stock column ordering.
var DefaultColumnNames = []string{"Backlog", "Todo", "In Progress", "In Review", "Done"}

// OptionKind identifies one view-option control.
type OptionKind string

// OptionGroup and related constants define view-option controls.
const (
	OptionGroup    OptionKind = "group"
	OptionText     OptionKind = "text"
	OptionProperty OptionKind = "property"
	OptionToggle   OptionKind = "toggle"
	OptionDropdown OptionKind = "dropdown"
)

// ViewOption describes one configurable control the host renders.
type ViewOption struct {
	Kind        OptionKind   `json:"type"`
	Key         string       `json:"key,omitempty"`
	DisplayName string       `json:"displayName"`
	Default     string       `json:"default,omitempty"`
	Placeholder string       `json:"placeholder,omitempty"`
	Options     []string     `json:"options,omitempty"`
	Items       []ViewOption `json:"items,omitempty"`
}

// ViewSettings is the user-facing board configuration.
type ViewSettings struct {
	Grouping    domain.GroupingConfig `json:"grouping"`
	ColumnNames []string              `json:"column_names"`
	Cards       CardMapping           `json:"cards"`
}

// DefaultViewSettings returns stock settings grouped by note.status.
func DefaultViewSettings() ViewSettings {
	return ViewSettings{
		Grouping: domain.GroupingConfig{
			Mode:  domain.GroupingProperty,
			Field: "note.status",
		},
		ColumnNames: append([]string(nil), DefaultColumnNames...),
		Cards:       DefaultCardMapping(),
	}
}

// ViewOptions returns the view-options descriptor with defaults taken from defaults.
func ViewOptions(defaults ViewSettings) []ViewOption {
	return []ViewOption{
		{
			Kind:        OptionGroup,
			DisplayName: "Grouping",
			Items: []ViewOption{
				{
					Kind:        OptionDropdown,
					Key:         KeyGroupingMode,
					DisplayName: "Group by",
					Default:     string(orMode(defaults.Grouping.Mode)),
					Options:     []string{string(domain.GroupingProperty), string(domain.GroupingTemplate)},
				},
				{
					Kind:        OptionProperty,
					Key:         KeyGroupingField,
					DisplayName: "Group property",
					Default:     string(defaults.Grouping.Field),
					Placeholder: "note.status",
				},
				{
					Kind:        OptionText,
					Key:         KeyGroupingTemplate,
					DisplayName: "Group template",
					Default:     defaults.Grouping.Template,
					Placeholder: "{{note.status|kebab-case}}",
				},
				{
					Kind:        OptionToggle,
					Key:         KeyNormalizeKeys,
					DisplayName: "Normalize column keys",
					Default:     strconv.FormatBool(defaults.Grouping.Normalize),
				},
			},
		},
		{
			Kind:        OptionGroup,
			DisplayName: "Columns",
			Items: []ViewOption{
				{
					Kind:        OptionText,
					Key:         KeyColumnNames,
					DisplayName: "Column order",
					Default:     strings.Join(defaults.ColumnNames, ","),
					Placeholder: strings.Join(DefaultColumnNames, ","),
				},
			},
		},
		{
			Kind:        OptionGroup,
			DisplayName: "Cards",
			Items: []ViewOption{
				{Kind: OptionProperty, Key: KeyCardTitle, DisplayName: "Title property", Default: string(defaults.Cards.Title)},
				{Kind: OptionProperty, Key: KeyCardTags, DisplayName: "Tags property", Default: string(defaults.Cards.Tags)},
				{Kind: OptionProperty, Key: KeyCardType, DisplayName: "Type property", Default: string(defaults.Cards.Type)},
				{Kind: OptionProperty, Key: KeyCardPoints, DisplayName: "Story points property", Default: string(defaults.Cards.Points)},
				{Kind: OptionProperty, Key: KeyCardPriority, DisplayName: "Priority property", Default: string(defaults.Cards.Priority)},
			},
		},
	}
}

// LoadViewSettings overlays stored values onto defaults. Unparseable values are logged and skipped.
func LoadViewSettings(ctx context.Context, cfg ConfigStore, defaults ViewSettings, logger Logger) (ViewSettings, error) {
	logger = loggerOrNop(logger)
	out := defaults
	out.ColumnNames = append([]string(nil), defaults.ColumnNames...)

	read := func(key string) (string, bool, error) {
		raw, ok, err := cfg.ConfigValue(ctx, key)
		if err != nil {
			return "", false, fmt.Errorf("read %s: %w", key, err)
		}
		raw = strings.TrimSpace(raw)
		return raw, ok && raw != "", nil
	}

	if raw, ok, err := read(KeyGroupingMode); err != nil {
		return defaults, err
	} else if ok {
		out.Grouping.Mode = domain.GroupingMode(strings.ToLower(raw))
	}
	if raw, ok, err := read(KeyGroupingField); err != nil {
		return defaults, err
	} else if ok {
		field, parseErr := domain.ParseFieldID(raw)
		if parseErr != nil {
			logger.Warn("stored grouping field is invalid, keeping default", "value", raw, "err", parseErr)
		} else {
			out.Grouping.Field = field
		}
	}
	if raw, ok, err := read(KeyGroupingTemplate); err != nil {
		return defaults, err
	} else if ok {
		out.Grouping.Template = raw
	}
	if raw, ok, err := read(KeyNormalizeKeys); err != nil {
		return defaults, err
	} else if ok {
		normalize, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			logger.Warn("stored normalize flag is invalid, keeping default", "value", raw, "err", parseErr)
		} else {
			out.Grouping.Normalize = normalize
		}
	}
	if raw, ok, err := read(KeyColumnNames); err != nil {
		return defaults, err
	} else if ok {
		out.ColumnNames = ParseColumnNames(raw, logger)
	}

	slots := []struct {
		key  string
		into *domain.FieldID
	}{
		{KeyCardTitle, &out.Cards.Title},
		{KeyCardTags, &out.Cards.Tags},
		{KeyCardType, &out.Cards.Type},
		{KeyCardPoints, &out.Cards.Points},
		{KeyCardPriority, &out.Cards.Priority},
	}
	for _, slot := range slots {
		raw, ok, err := read(slot.key)
		if err != nil {
			return defaults, err
		}
		if !ok {
			continue
		}
		field, parseErr := domain.ParseFieldID(raw)
		if parseErr != nil {
			logger.Warn("stored card property is invalid, keeping default", "key", slot.key, "value", raw, "err", parseErr)
			continue
		}
		*slot.into = field
	}

	if err := out.Grouping.Validate(); err != nil {
		logger.Warn("stored grouping is invalid, using defaults", "err", err)
		out.Grouping = defaults.Grouping
	}
	return out, nil
}

// SaveGrouping writes grouping through the config surface.
func SaveGrouping(ctx context.Context, cfg ConfigStore, grouping domain.GroupingConfig) error {
	if err := grouping.Validate(); err != nil {
		return err
	}
	values := []struct {
		key   string
		value string
	}{
		{KeyGroupingMode, string(orMode(grouping.Mode))},
		{KeyGroupingField, string(grouping.Field)},
		{KeyGroupingTemplate, grouping.Template},
		{KeyNormalizeKeys, strconv.FormatBool(grouping.Normalize)},
	}
	for _, v := range values {
		if err := cfg.SetConfigValue(ctx, v.key, v.value); err != nil {
			return fmt.Errorf("%w: write %s: %w", domain.ErrHostWriteFailed, v.key, err)
		}
	}
	return nil
}

// orMode defaults an empty mode to property.
func orMode(mode domain.GroupingMode) domain.GroupingMode {
	if mode == "" {
		return domain.GroupingProperty
	}
	return mode
}
