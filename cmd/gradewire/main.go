package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/campus-tools/gradewire/internal/canvas"
	"github.com/campus-tools/gradewire/internal/course"
	"github.com/campus-tools/gradewire/internal/creds"
	"github.com/campus-tools/gradewire/internal/qualtrics"
	"github.com/campus-tools/gradewire/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gradewire",
		Short: "Course and survey platform automation for self-graded homework",
	}

	pf := root.PersistentFlags()
	pf.String("canvas-url", "", "Course platform base URL (e.g. https://canvas.example.edu)")
	pf.String("canvas-token", "", "Course platform API token (default: OS keychain)")
	pf.String("qualtrics-datacenter", "", "Survey platform data center (e.g. uni.ca1)")
	pf.String("qualtrics-token", "", "Survey platform API token (default: OS keychain)")
	pf.Bool("save-tokens", false, "Save prompted tokens to the OS keychain")
	pf.String("timezone", "America/New_York", "Course time zone for due dates")
	pf.String("due-time", "17:00:00", "Default due time of day")
	pf.String("preamble", "HW", "Assignment name prefix")
	pf.String("email-domain", "", "Email domain for student addresses")
	pf.String("state-db", "", "Build journal database path (default: ~/.local/state/gradewire/gradewire.db)")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (text, json)")

	root.AddCommand(
		coursesCmd(),
		assignmentsCmd(),
		syncRosterCmd(),
		setupSelfgradeCmd(),
		importScoresCmd(),
		importGraderCmd(),
		uploadHWCmd(),
		dueDatesCmd(),
		uploadQuestionsCmd(),
		slotSurveyCmd(),
		buildsCmd(),
	)
	return root
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("GRADEWIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("gradewire")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/gradewire")
	v.AddConfigPath("/etc/gradewire")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// app bundles the configuration and platform clients one command invocation
// uses.
type app struct {
	v      *viper.Viper
	course *canvas.Client
	survey *qualtrics.Client
}

// newApp sets up logging and the course platform client; the survey platform
// client (and its token) only when asked for.
func newApp(cmd *cobra.Command, needSurvey bool) (*app, error) {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	a := &app{v: v}

	baseURL := v.GetString("canvas-url")
	if baseURL == "" {
		return nil, fmt.Errorf("no course platform URL: set --canvas-url or GRADEWIRE_CANVAS_URL")
	}
	token, err := creds.Resolve(v.GetString("canvas-token"), creds.AccountCourse,
		"Course platform API token", v.GetBool("save-tokens"))
	if err != nil {
		return nil, err
	}
	a.course = canvas.New(baseURL, token)

	if needSurvey {
		dc := v.GetString("qualtrics-datacenter")
		if dc == "" {
			return nil, fmt.Errorf("no survey platform data center: set --qualtrics-datacenter or GRADEWIRE_QUALTRICS_DATACENTER")
		}
		token, err := creds.Resolve(v.GetString("qualtrics-token"), creds.AccountSurvey,
			"Survey platform API token", v.GetBool("save-tokens"))
		if err != nil {
			return nil, err
		}
		a.survey = qualtrics.New(qualtrics.BaseURL(dc), token)
	}
	return a, nil
}

// openSession binds a session to the course given on the command line.
func (a *app) openSession(ctx context.Context, arg string) (*course.Session, error) {
	id, err := course.ParseCourseID(arg)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(a.v.GetString("timezone"))
	if err != nil {
		return nil, fmt.Errorf("load time zone: %w", err)
	}
	return course.NewSession(ctx, a.course, id,
		course.WithPreamble(a.v.GetString("preamble")),
		course.WithLocation(loc),
		course.WithDueTime(a.v.GetString("due-time")),
	)
}

// openJournal opens the build/run journal, creating its directory on first
// use.
func (a *app) openJournal() (*store.Store, error) {
	path := a.v.GetString("state-db")
	if path == "" {
		path = defaultStateDB()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}
	return store.New(path)
}

func defaultStateDB() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "gradewire.db"
	}
	return filepath.Join(home, ".local", "state", "gradewire", "gradewire.db")
}

// emailDomain returns the configured student email domain; several workflows
// cannot run without one.
func (a *app) emailDomain() (string, error) {
	d := a.v.GetString("email-domain")
	if d == "" {
		return "", fmt.Errorf("no email domain: set --email-domain or GRADEWIRE_EMAIL_DOMAIN")
	}
	return d, nil
}

// parseNumber parses an assignment number given on the command line.
func parseNumber(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid assignment number %q", arg)
	}
	return n, nil
}
