package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hylla/kanboard/internal/adapters/script"
	serveradapter "github.com/hylla/kanboard/internal/adapters/server"
	servercommon "github.com/hylla/kanboard/internal/adapters/server/common"
	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/config"
	"github.com/hylla/kanboard/internal/platform"
	"github.com/hylla/kanboard/internal/reorder"
	"github.com/hylla/kanboard/internal/tui"
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

// main handles main.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCommand(os.Stdout, os.Stderr)
	if err := fang.Execute(ctx, root, fang.WithVersion(version)); err != nil {
		stop()
		os.Exit(1)
	}
}

// run executes the command tree with explicit args and writers.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SilenceUsage = true
	root.SilenceErrors = true
	return root.ExecuteContext(ctx)
}

// rootOptions holds persistent flag values shared by every command.
type rootOptions struct {
	configPath string
	appName    string
	devMode    bool
}

// newRootCommand builds the kanboard command tree.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	opts := &rootOptions{appName: platform.DefaultAppName}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("KANBOARD_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("KANBOARD_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	var boardPath string
	root := &cobra.Command{
		Use:     "kanboard",
		Short:   "A drag-and-drop kanban board for the terminal",
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, boardPath, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config TOML")
	root.PersistentFlags().StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	root.PersistentFlags().BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")
	root.Flags().StringVar(&boardPath, "board", "", "start from a board snapshot JSON file")

	root.AddCommand(newReplayCommand(opts, stdout, stderr))
	root.AddCommand(newPathsCommand(opts, stdout))
	root.AddCommand(newServeCommand(opts, stderr))
	return root
}

// newPathsCommand prints resolved runtime paths.
func newPathsCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data and log paths",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			paths, err := resolvePaths(opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", resolveConfigPath(opts, paths))
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "log_dir: %s\n", paths.LogDir)
			return nil
		},
	}
}

// newReplayCommand runs a YAML gesture script against a fresh board.
func newReplayCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		asJSON bool
		plain  bool
	)
	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Replay a gesture script and print the resulting board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON && plain {
				return errors.New("--json and --plain are mutually exclusive")
			}
			sess, err := openSession(opts, stderr, false)
			if err != nil {
				return err
			}
			defer sess.close(stderr)
			return runReplay(sess, args[0], asJSON, plain, stdout)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the replay report as JSON")
	cmd.Flags().BoolVar(&plain, "plain", false, "print raw markdown without terminal styling")
	return cmd
}

// serveOptions holds serve command flag values.
type serveOptions struct {
	httpBind    string
	apiEndpoint string
	mcpEndpoint string
	boardPath   string
}

// newServeCommand exposes one board session over REST and MCP.
func newServeCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	serveOpts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve one board session over HTTP (REST and MCP)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(opts, stderr, false)
			if err != nil {
				return err
			}
			defer sess.close(stderr)
			return runServe(cmd.Context(), sess, opts.appName, *serveOpts)
		},
	}
	cmd.Flags().StringVar(&serveOpts.httpBind, "http", "127.0.0.1:8080", "HTTP listen address")
	cmd.Flags().StringVar(&serveOpts.apiEndpoint, "api-endpoint", "/api/v1", "HTTP API base endpoint")
	cmd.Flags().StringVar(&serveOpts.mcpEndpoint, "mcp-endpoint", "/mcp", "MCP streamable HTTP endpoint")
	cmd.Flags().StringVar(&serveOpts.boardPath, "board", "", "start from a board snapshot JSON file")
	return cmd
}

// runServe prepares the board and blocks in the HTTP server until ctx ends.
func runServe(ctx context.Context, sess *session, appName string, serveOpts serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(serveOpts.boardPath) != "" {
		if err := loadBoard(sess.svc, serveOpts.boardPath); err != nil {
			sess.logger.Error("board snapshot load failed", "path", serveOpts.boardPath, "err", err)
			return err
		}
		sess.logger.Info("board snapshot loaded", "path", serveOpts.boardPath)
	}
	if _, err := sess.svc.EnsureDefaultColumns(); err != nil {
		return fmt.Errorf("seed default columns: %w", err)
	}

	sess.logger.Info("command flow start", "command", "serve")
	err := serveCommandRunner(ctx, serveradapter.Config{
		HTTPBind:      serveOpts.httpBind,
		APIEndpoint:   serveOpts.apiEndpoint,
		MCPEndpoint:   serveOpts.mcpEndpoint,
		ServerName:    appName,
		ServerVersion: version,
	}, serveradapter.Dependencies{
		Board:  servercommon.NewAppServiceAdapter(sess.svc),
		Logger: sess.logger,
	})
	if err != nil {
		sess.logger.Error("command flow failed", "command", "serve", "err", err)
		return fmt.Errorf("run serve command: %w", err)
	}
	sess.logger.Info("command flow complete", "command", "serve")
	return nil
}

// session bundles the wiring shared by the TUI and replay flows.
type session struct {
	cfg        config.Config
	configPath string
	logger     *runtimeLogger
	svc        *app.Service
}

func (s *session) close(stderr io.Writer) {
	if closeErr := s.logger.Close(); closeErr != nil && s.logger.shouldLogToSink(s.logger.consoleSink) {
		_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
	}
}

// openSession resolves paths and config, configures logging and builds the service.
func openSession(opts *rootOptions, stderr io.Writer, muteConsole bool) (*session, error) {
	paths, err := resolvePaths(opts)
	if err != nil {
		return nil, err
	}
	configPath := resolveConfigPath(opts, paths)
	cfg, err := config.Load(configPath, config.Default())
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	placement, err := reorder.ParseDropPlacement(string(cfg.Drag.DropOnColumn))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if muteConsole {
		// Runtime logs stay in the dev-file sink while the board owns the terminal.
		logger.SetConsoleEnabled(false)
	}
	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "log_dir", paths.LogDir)
	logger.Info("configuration loaded", "config_path", configPath, "drop_on_column", placement, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	svc := app.NewService(uuid.NewString, nil, app.ServiceConfig{
		ColumnTitleTemplate: cfg.Board.ColumnTitleTemplate,
		CardTitleTemplate:   cfg.Board.CardTitleTemplate,
		DropPlacement:       placement,
		SeedColumns:         cfg.Board.SeedColumns,
		ActivityLimit:       cfg.Activity.Limit,
	}, logger)
	return &session{cfg: cfg, configPath: configPath, logger: logger, svc: svc}, nil
}

// runTUI launches the interactive board.
func runTUI(ctx context.Context, opts *rootOptions, boardPath string, stderr io.Writer) error {
	sess, err := openSession(opts, stderr, true)
	if err != nil {
		return err
	}
	defer sess.close(stderr)

	if strings.TrimSpace(boardPath) != "" {
		if err := loadBoard(sess.svc, boardPath); err != nil {
			sess.logger.Error("board snapshot load failed", "path", boardPath, "err", err)
			return err
		}
		sess.logger.Info("board snapshot loaded", "path", boardPath)
	}
	columns, err := sess.svc.EnsureDefaultColumns()
	if err != nil {
		return fmt.Errorf("seed default columns: %w", err)
	}
	sess.logger.Debug("board ready", "columns", len(columns))

	m := tui.NewModel(
		sess.svc,
		tui.WithActivationDistance(sess.cfg.Drag.ActivationDistance),
		tui.WithTitle(opts.appName),
	)
	sess.logger.Info("starting tui program loop")
	if ctx != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if _, err := programFactory(m).Run(); err != nil {
		sess.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	sess.logger.Info("command flow complete", "command", "tui")
	return nil
}

// loadBoard replaces the session board with a snapshot JSON file.
func loadBoard(svc *app.Service, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read board file: %w", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return fmt.Errorf("decode board json: %w", err)
	}
	if err := svc.ImportSnapshot(snap); err != nil {
		return fmt.Errorf("import board: %w", err)
	}
	return nil
}

// runReplay applies a script and prints the report in the requested format.
func runReplay(sess *session, path string, asJSON, plain bool, stdout io.Writer) error {
	sc, err := script.Load(path)
	if err != nil {
		sess.logger.Error("replay script rejected", "path", path, "err", err)
		return err
	}
	sess.logger.Info("command flow start", "command", "replay", "script", path, "steps", len(sc.Steps))
	report, err := script.Run(sess.svc, sc)
	if err != nil {
		sess.logger.Error("command flow failed", "command", "replay", "err", err)
		return fmt.Errorf("replay %q: %w", path, err)
	}
	if failed := report.Failed(); failed > 0 {
		sess.logger.Warn("replay steps rejected", "failed", failed, "total", len(report.Steps))
	}

	switch {
	case asJSON:
		encoded, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode replay json: %w", err)
		}
		encoded = append(encoded, '\n')
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write replay report: %w", err)
		}
	case plain:
		if _, err := io.WriteString(stdout, script.Markdown(report)); err != nil {
			return fmt.Errorf("write replay report: %w", err)
		}
	default:
		rendered, err := glamour.Render(script.Markdown(report), "dark")
		if err != nil {
			return fmt.Errorf("render replay report: %w", err)
		}
		if _, err := io.WriteString(stdout, rendered); err != nil {
			return fmt.Errorf("write replay report: %w", err)
		}
	}
	sess.logger.Info("command flow complete", "command", "replay")
	return nil
}

// resolvePaths computes platform paths for the current flags.
func resolvePaths(opts *rootOptions) (platform.Paths, error) {
	return platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
}

// resolveConfigPath applies flag, then environment, then the platform default.
func resolveConfigPath(opts *rootOptions, paths platform.Paths) string {
	if path := strings.TrimSpace(opts.configPath); path != "" {
		return path
	}
	if envPath := strings.TrimSpace(os.Getenv("KANBOARD_CONFIG")); envPath != "" {
		return envPath
	}
	return paths.ConfigPath
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

// runtimeLogger fans log events to a styled console sink and an optional dev-file sink.
type runtimeLogger struct {
	sinks          []*charmLog.Logger
	consoleSink    *charmLog.Logger
	consoleEnabled bool
	closeFile      func() error
	devLog         string
}

// newRuntimeLogger configures runtime log sinks from CLI/config state.
func newRuntimeLogger(stderr io.Writer, appName string, devMode bool, cfg config.LoggingConfig, now func() time.Time) (*runtimeLogger, error) {
	level, err := charmLog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}
	if now == nil {
		now = time.Now
	}
	if stderr == nil {
		stderr = io.Discard
	}

	consoleLogger := charmLog.NewWithOptions(stderr, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.TextFormatter,
	})
	consoleLogger.SetStyles(consoleStyles())

	logger := &runtimeLogger{
		sinks:          []*charmLog.Logger{consoleLogger},
		consoleSink:    consoleLogger,
		consoleEnabled: true,
	}
	if !devMode || !cfg.DevFile.Enabled {
		return logger, nil
	}

	devLogPath, err := devLogFilePath(cfg.DevFile.Dir, appName, now().UTC())
	if err != nil {
		return nil, fmt.Errorf("resolve dev log file path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(devLogPath), 0o755); err != nil {
		return nil, fmt.Errorf("create dev log dir: %w", err)
	}
	logFile, err := os.OpenFile(devLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dev log file: %w", err)
	}

	// File output stays unstyled logfmt.
	fileLogger := charmLog.NewWithOptions(logFile, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.LogfmtFormatter,
	})
	logger.sinks = append(logger.sinks, fileLogger)
	logger.closeFile = logFile.Close
	logger.devLog = devLogPath
	return logger, nil
}

// consoleStyles returns level badges for the console sink.
func consoleStyles() *charmLog.Styles {
	styles := charmLog.DefaultStyles()
	styles.Levels[charmLog.DebugLevel] = lipgloss.NewStyle().SetString("DEBU").Foreground(lipgloss.Color("63"))
	styles.Levels[charmLog.InfoLevel] = lipgloss.NewStyle().SetString("INFO").Foreground(lipgloss.Color("86"))
	styles.Levels[charmLog.WarnLevel] = lipgloss.NewStyle().SetString("WARN").Bold(true).Foreground(lipgloss.Color("214"))
	styles.Levels[charmLog.ErrorLevel] = lipgloss.NewStyle().SetString("ERRO").Bold(true).Foreground(lipgloss.Color("204"))
	styles.Keys["err"] = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	return styles
}

// DevLogPath returns the active dev log file path.
func (l *runtimeLogger) DevLogPath() string {
	if l == nil {
		return ""
	}
	return l.devLog
}

// Close closes the optional dev-file sink.
func (l *runtimeLogger) Close() error {
	if l == nil || l.closeFile == nil {
		return nil
	}
	return l.closeFile()
}

// SetConsoleEnabled toggles whether the console sink receives runtime events.
func (l *runtimeLogger) SetConsoleEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.consoleEnabled = enabled
}

// shouldLogToSink reports whether one sink should receive runtime output.
func (l *runtimeLogger) shouldLogToSink(sink *charmLog.Logger) bool {
	if l == nil || sink == nil {
		return false
	}
	if sink == l.consoleSink && !l.consoleEnabled {
		return false
	}
	return true
}

// Debug logs a debug event to all configured sinks.
func (l *runtimeLogger) Debug(msg any, keyvals ...any) {
	l.each(func(sink *charmLog.Logger) { sink.Debug(msg, keyvals...) })
}

// Info logs an informational event to all configured sinks.
func (l *runtimeLogger) Info(msg any, keyvals ...any) {
	l.each(func(sink *charmLog.Logger) { sink.Info(msg, keyvals...) })
}

// Warn logs a warning event to all configured sinks.
func (l *runtimeLogger) Warn(msg any, keyvals ...any) {
	l.each(func(sink *charmLog.Logger) { sink.Warn(msg, keyvals...) })
}

// Error logs an error event to all configured sinks.
func (l *runtimeLogger) Error(msg any, keyvals ...any) {
	l.each(func(sink *charmLog.Logger) { sink.Error(msg, keyvals...) })
}

func (l *runtimeLogger) each(fn func(*charmLog.Logger)) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if l.shouldLogToSink(sink) {
			fn(sink)
		}
	}
}

// devLogFilePath resolves a workspace-local dev log file path for the current run day.
func devLogFilePath(configDir, appName string, now time.Time) (string, error) {
	baseDir := strings.TrimSpace(configDir)
	if baseDir == "" {
		baseDir = ".kanboard/log"
	}
	if !filepath.IsAbs(baseDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working dir: %w", err)
		}
		baseDir = filepath.Join(workspaceRootFrom(cwd), baseDir)
	}
	fileName := fmt.Sprintf("%s-%s.log", sanitizeLogFileStem(appName), now.Format("20060102"))
	return filepath.Join(filepath.Clean(baseDir), fileName), nil
}

// workspaceRootFrom resolves the nearest ancestor workspace marker for stable local log placement.
func workspaceRootFrom(start string) string {
	start = filepath.Clean(strings.TrimSpace(start))
	if start == "" {
		return "."
	}
	dir := start
	for {
		if hasWorkspaceMarker(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// hasWorkspaceMarker reports whether a directory looks like a project workspace root.
func hasWorkspaceMarker(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	return false
}

// sanitizeLogFileStem normalizes app names into safe file-name segments.
func sanitizeLogFileStem(appName string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-")
	stem := strings.Trim(replacer.Replace(strings.TrimSpace(appName)), "-")
	if stem == "" {
		return platform.DefaultAppName
	}
	return stem
}
