package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/evanschultz/kanbases/internal/app"
	"github.com/evanschultz/kanbases/internal/domain"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Board    BoardConfig    `toml:"board"`
	Server   ServerConfig   `toml:"server"`
	Cache    CacheConfig    `toml:"cache"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type BoardConfig struct {
	GroupingMode     string       `toml:"grouping_mode"` // property | template
	GroupingField    string       `toml:"grouping_field"`
	GroupingTemplate string       `toml:"grouping_template"`
	NormalizeKeys    bool         `toml:"normalize_keys"`
	ColumnNames      []string     `toml:"column_names"`
	Retention        string       `toml:"retention"` // until-regroup | indefinite | none
	Cards            CardsConfig  `toml:"cards"`
	Window           WindowConfig `toml:"window"`
}

type CardsConfig struct {
	Title    string `toml:"title"`
	Tags     string `toml:"tags"`
	Type     string `toml:"type"`
	Points   string `toml:"points"`
	Priority string `toml:"priority"`
}

type WindowConfig struct {
	Threshold int `toml:"threshold"`
	ItemSize  int `toml:"item_size"`
	Overscan  int `toml:"overscan"`
}

type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type CacheConfig struct {
	RedisAddr string   `toml:"redis_addr"`
	TTL       Duration `toml:"ttl"`
	KeyPrefix string   `toml:"key_prefix"`
}

// Duration decodes TOML strings such as "5m".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func Default(dbPath string) Config {
	view := app.DefaultViewSettings()
	window := app.DefaultWindowPolicy()
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".kanbases/log",
			},
		},
		Board: BoardConfig{
			GroupingMode:  string(view.Grouping.Mode),
			GroupingField: string(view.Grouping.Field),
			ColumnNames:   slices.Clone(view.ColumnNames),
			Retention:     string(app.RetainUntilRegroup),
			Cards: CardsConfig{
				Title:    string(view.Cards.Title),
				Tags:     string(view.Cards.Tags),
				Type:     string(view.Cards.Type),
				Points:   string(view.Cards.Points),
				Priority: string(view.Cards.Priority),
			},
			Window: WindowConfig{
				Threshold: window.Threshold,
				ItemSize:  window.ItemSize,
				Overscan:  window.Overscan,
			},
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Cache: CacheConfig{
			TTL:       Duration{Duration: 5 * time.Minute},
			KeyPrefix: "kanbases:config:",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	cfg.Board.ColumnNames = slices.Clone(defaults.Board.ColumnNames)
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	if _, err := charmLog.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if _, err := c.Board.Grouping(); err != nil {
		return fmt.Errorf("invalid board grouping: %w", err)
	}
	if _, err := app.ParseRetentionPolicy(c.Board.Retention); err != nil {
		return fmt.Errorf("invalid board.retention: %q", c.Board.Retention)
	}
	if _, err := c.Board.Cards.Mapping(); err != nil {
		return fmt.Errorf("invalid board.cards: %w", err)
	}
	if c.Board.Window.Threshold < 0 {
		return errors.New("board.window.threshold must be >= 0")
	}
	if c.Board.Window.ItemSize <= 0 {
		return errors.New("board.window.item_size must be > 0")
	}
	if c.Board.Window.Overscan < 0 {
		return errors.New("board.window.overscan must be >= 0")
	}

	if c.Cache.RedisAddr != "" && c.Cache.TTL.Duration <= 0 {
		return errors.New("cache.ttl must be > 0 when cache.redis_addr is set")
	}
	return nil
}

// Grouping converts the board section into a grouping config.
func (b BoardConfig) Grouping() (domain.GroupingConfig, error) {
	mode := domain.GroupingMode(strings.ToLower(strings.TrimSpace(b.GroupingMode)))
	if mode == "" {
		mode = domain.GroupingProperty
	}
	grouping := domain.GroupingConfig{
		Mode:      mode,
		Template:  strings.TrimSpace(b.GroupingTemplate),
		Normalize: b.NormalizeKeys,
	}
	if mode == domain.GroupingProperty && strings.TrimSpace(b.GroupingField) != "" {
		field, err := domain.ParseFieldID(b.GroupingField)
		if err != nil {
			return domain.GroupingConfig{}, err
		}
		grouping.Field = field
	}
	if err := grouping.Validate(); err != nil {
		return domain.GroupingConfig{}, err
	}
	return grouping, nil
}

// Mapping converts the cards section into a card mapping. Blank entries keep their defaults.
func (c CardsConfig) Mapping() (app.CardMapping, error) {
	out := app.DefaultCardMapping()
	for _, slot := range []struct {
		raw  string
		dest *domain.FieldID
	}{
		{c.Title, &out.Title},
		{c.Tags, &out.Tags},
		{c.Type, &out.Type},
		{c.Points, &out.Points},
		{c.Priority, &out.Priority},
	} {
		if strings.TrimSpace(slot.raw) == "" {
			continue
		}
		field, err := domain.ParseFieldID(slot.raw)
		if err != nil {
			return app.CardMapping{}, err
		}
		*slot.dest = field
	}
	return out, nil
}

// BoardViewConfig builds the engine config for this file.
func (c Config) BoardViewConfig() (app.BoardViewConfig, error) {
	grouping, err := c.Board.Grouping()
	if err != nil {
		return app.BoardViewConfig{}, err
	}
	cards, err := c.Board.Cards.Mapping()
	if err != nil {
		return app.BoardViewConfig{}, err
	}
	retention, err := app.ParseRetentionPolicy(c.Board.Retention)
	if err != nil {
		return app.BoardViewConfig{}, err
	}
	return app.BoardViewConfig{
		Defaults: app.ViewSettings{
			Grouping:    grouping,
			ColumnNames: slices.Clone(c.Board.ColumnNames),
			Cards:       cards,
		},
		Retention: retention,
		Window: app.WindowPolicy{
			Threshold: c.Board.Window.Threshold,
			ItemSize:  c.Board.Window.ItemSize,
			Overscan:  c.Board.Window.Overscan,
		},
	}, nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
