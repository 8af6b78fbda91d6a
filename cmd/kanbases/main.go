package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	serveradapter "github.com/evanschultz/kanbases/internal/adapters/server"
	servercommon "github.com/evanschultz/kanbases/internal/adapters/server/common"
	"github.com/evanschultz/kanbases/internal/adapters/storage/rediscache"
	"github.com/evanschultz/kanbases/internal/adapters/storage/sqlite"
	"github.com/evanschultz/kanbases/internal/adapters/vault"
	"github.com/evanschultz/kanbases/internal/app"
	"github.com/evanschultz/kanbases/internal/config"
	"github.com/evanschultz/kanbases/internal/domain"
	"github.com/evanschultz/kanbases/internal/platform"
	"github.com/evanschultz/kanbases/internal/tui"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// run runs the requested command flow.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	)
}

// newRootCommand wires the board TUI and its subcommands.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{appName: platform.DefaultAppName, devMode: version == "dev"}
	if envDev, ok := parseBoolEnv("KANBASES_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("KANBASES_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	root := &cobra.Command{
		Use:   "kanbases",
		Short: "Kanban boards over markdown notes",
		Long:  "kanbases groups notes into columns by a frontmatter property or template and lets you drag cards between them.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, stderr)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(opts, stdout),
		newServeCommand(opts, stderr),
		newImportCommand(opts, stdout, stderr),
		newExportCommand(opts, stdout, stderr),
		newBoardCommand(opts, stdout, stderr),
		newMoveCommand(opts, stdout, stderr),
		newColumnVisibilityCommand(opts, stdout, stderr, true),
		newColumnVisibilityCommand(opts, stdout, stderr, false),
	)
	return root
}

func newPathsCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data, and vault paths",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			paths, err := opts.paths()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(stdout, "vault: %s\n", paths.VaultDir)
			return nil
		},
	}
}

func newServeCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var (
		httpBind    string
		apiEndpoint string
		mcpEndpoint string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board over HTTP and MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, "serve", stderr, nil, func(ctx context.Context, s *session) error {
				serverCfg := s.cfg.Server
				if httpBind != "" {
					serverCfg.HTTPBind = httpBind
				}
				if apiEndpoint != "" {
					serverCfg.APIEndpoint = apiEndpoint
				}
				if mcpEndpoint != "" {
					serverCfg.MCPEndpoint = mcpEndpoint
				}
				instanceID := uuid.NewString()
				s.logger.Info("serve starting", "http_bind", serverCfg.HTTPBind, "api", serverCfg.APIEndpoint, "mcp", serverCfg.MCPEndpoint, "instance_id", instanceID)
				board := s.board
				return serveCommandRunner(ctx, serveradapter.Config{
					HTTPBind:      serverCfg.HTTPBind,
					APIEndpoint:   serverCfg.APIEndpoint,
					MCPEndpoint:   serverCfg.MCPEndpoint,
					ServerName:    opts.appName,
					ServerVersion: version,
					InstanceID:    instanceID,
				}, serveradapter.Dependencies{
					Board: servercommon.NewBoardAdapter(board),
					Ready: func() error {
						if state := board.Snapshot(); state.Revision == 0 {
							return fmt.Errorf("%w: board has not loaded", domain.ErrNotReady)
						}
						return nil
					},
				})
			})
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "HTTP listen address (default from config)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "HTTP API base endpoint (default from config)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP streamable HTTP endpoint (default from config)")
	return cmd
}

func newImportCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "import [dir]",
		Short: "Import markdown notes with YAML frontmatter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, "import", stderr, nil, func(ctx context.Context, s *session) error {
				dir := s.paths.VaultDir
				if len(args) == 1 {
					dir = args[0]
				}
				count, err := vault.Import(ctx, dir, s.repo)
				if err != nil {
					return fmt.Errorf("import vault %q: %w", dir, err)
				}
				s.logger.Info("vault imported", "dir", dir, "notes", count)
				_, _ = fmt.Fprintf(stdout, "imported %d notes from %s\n", count, dir)
				return nil
			})
		},
	}
}

func newExportCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "export [dir]",
		Short: "Export notes as markdown with YAML frontmatter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, "export", stderr, nil, func(ctx context.Context, s *session) error {
				dir := s.paths.VaultDir
				if len(args) == 1 {
					dir = args[0]
				}
				notes, err := s.repo.ListNotes(ctx)
				if err != nil {
					return fmt.Errorf("list notes: %w", err)
				}
				count, err := vault.Export(ctx, dir, notes)
				if err != nil {
					return fmt.Errorf("export vault %q: %w", dir, err)
				}
				s.logger.Info("vault exported", "dir", dir, "notes", count)
				_, _ = fmt.Fprintf(stdout, "exported %d notes to %s\n", count, dir)
				return nil
			})
		},
	}
}

func newBoardCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Print the board as a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, "board", stderr, nil, func(_ context.Context, s *session) error {
				_, err := fmt.Fprintln(stdout, renderBoardTable(s.board.Snapshot()))
				return err
			})
		},
	}
}

func newMoveCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "move <record> <column>",
		Short: "Move a record into a column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, "move", stderr, nil, func(ctx context.Context, s *session) error {
				recordID, column := args[0], domain.GroupKey(args[1])
				if err := s.board.MoveRecord(ctx, recordID, column); err != nil {
					return fmt.Errorf("move %s: %w", recordID, err)
				}
				_, _ = fmt.Fprintf(stdout, "moved %s to %s\n", recordID, column)
				return nil
			})
		},
	}
}

// newColumnVisibilityCommand builds the hide or show command.
func newColumnVisibilityCommand(opts *rootOptions, stdout, stderr io.Writer, hide bool) *cobra.Command {
	use, short, verb := "show <column>", "Show a hidden column", "showing"
	if hide {
		use, short, verb = "hide <column>", "Hide a column", "hid"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, cmd.Name(), stderr, nil, func(ctx context.Context, s *session) error {
				key := domain.GroupKey(args[0])
				var err error
				if hide {
					err = s.board.HideColumn(ctx, key)
				} else {
					err = s.board.ShowColumn(ctx, key)
				}
				if err != nil {
					return fmt.Errorf("%s %s: %w", cmd.Name(), key, err)
				}
				_, _ = fmt.Fprintf(stdout, "%s %s\n", verb, key)
				return nil
			})
		},
	}
}

// runTUI runs the interactive board with console logging muted.
func runTUI(ctx context.Context, opts *rootOptions, stderr io.Writer) error {
	opener := tui.NewOpener()
	return withSession(ctx, opts, "tui", stderr, opener, func(ctx context.Context, s *session) error {
		m := tui.NewModel(
			s.board,
			tui.WithContext(ctx),
			tui.WithOpener(opener),
			tui.WithLogger(s.logger),
		)
		s.logger.Info("starting tui program loop")
		if _, err := programFactory(m).Run(); err != nil {
			s.logger.Error("tui program terminated with error", "err", err)
			return fmt.Errorf("run tui program: %w", err)
		}
		return nil
	})
}

// session is the wired runtime for one command.
type session struct {
	cfg    config.Config
	paths  platform.Paths
	logger *runtimeLogger
	repo   *sqlite.Repository
	board  *app.BoardView
}

// paths resolves platform paths for the current app name and mode.
func (o *rootOptions) paths() (platform.Paths, error) {
	return platform.DefaultPathsWithOptions(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
}

// withSession resolves config, opens storage, loads the board, and runs fn.
func withSession(ctx context.Context, opts *rootOptions, command string, stderr io.Writer, opener app.RecordOpener, fn func(context.Context, *session) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	paths, err := opts.paths()
	if err != nil {
		return err
	}

	configPath := opts.configPath
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("KANBASES_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(opts.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("KANBASES_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		logger.SetConsoleEnabled(false)
	}
	defer func() {
		if closeErr := logger.Close(); closeErr != nil && logger.shouldLogToSink(logger.consoleSink) {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
		}
	}()

	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", dbPath)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		return fmt.Errorf("open sqlite repository: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Warn("sqlite close failed", "db_path", cfg.Database.Path, "err", closeErr)
		}
	}()

	var configStore app.ConfigStore = repo
	if addr := strings.TrimSpace(cfg.Cache.RedisAddr); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				logger.Warn("redis close failed", "addr", addr, "err", closeErr)
			}
		}()
		configStore = rediscache.New(repo, client, cfg.Cache.TTL.Duration,
			rediscache.WithKeyPrefix(cfg.Cache.KeyPrefix),
			rediscache.WithLogger(logger),
		)
		logger.Info("board config cache enabled", "addr", addr, "ttl", cfg.Cache.TTL.Duration)
	}

	viewCfg, err := cfg.BoardViewConfig()
	if err != nil {
		return fmt.Errorf("board config: %w", err)
	}
	board, err := app.NewBoardView(app.BoardViewDeps{
		Source:  repo,
		Records: repo,
		Writer:  repo,
		Config:  configStore,
		Opener:  opener,
		Logger:  logger,
	}, viewCfg)
	if err != nil {
		return fmt.Errorf("build board view: %w", err)
	}
	defer func() { _ = board.Close() }()
	if err := board.Load(ctx); err != nil {
		return fmt.Errorf("load board: %w", err)
	}
	if err := board.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh board: %w", err)
	}

	stop := repo.OnChange(func(change sqlite.Change) {
		if err := board.Refresh(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("board refresh after note change failed", "path", change.Path, "op", string(change.Op), "err", err)
		}
	})
	defer stop()

	logger.Info("command flow start", "command", command)
	if err := fn(ctx, &session{cfg: cfg, paths: paths, logger: logger, repo: repo, board: board}); err != nil {
		logger.Error("command flow failed", "command", command, "err", err)
		return err
	}
	logger.Info("command flow complete", "command", command)
	return nil
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
