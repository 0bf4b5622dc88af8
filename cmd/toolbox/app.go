package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"toolbox/internal/actions"
	"toolbox/internal/api"
	"toolbox/internal/cache"
	"toolbox/internal/config"
	"toolbox/internal/featureflags"
	"toolbox/internal/history"
	"toolbox/internal/observability"
	"toolbox/internal/render"
	"toolbox/internal/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// errUsage marks a bad invocation; main exits with status 2 for it.
var errUsage = errors.New("usage")

type usageError struct{ msg string }

func (e usageError) Error() string        { return e.msg }
func (e usageError) Is(target error) bool { return target == errUsage }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// displayError carries the message a view chose for a failure.
type displayError struct {
	msg string
	err error
}

func (e displayError) Error() string { return e.msg }
func (e displayError) Unwrap() error { return e.err }

// viewError prefers the view's display message over the raw error.
func viewError(v interface{ LastError() string }, err error) error {
	if err == nil {
		return nil
	}
	if msg := v.LastError(); msg != "" {
		return displayError{msg: msg, err: err}
	}
	return err
}

// stdio bundles the streams a command reads and writes.
type stdio struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// app holds everything one CLI invocation needs.
type app struct {
	cfg    *config.Config
	io     stdio
	in     *bufio.Reader
	flags  *featureflags.Manager
	reg    *prometheus.Registry
	metric *observability.Collector
	sess   *session.Session
	client *api.Client
	redis  *redis.Client
	now    func() time.Time

	format      render.Format
	assumeYes   bool
	metricsFile string

	db   *gorm.DB
	hist history.Repository
}

// newApp wires the session, caches and API client described by cfg.
func newApp(ctx context.Context, cfg *config.Config, s stdio) (*app, error) {
	a := &app{
		cfg:   cfg,
		io:    s,
		in:    bufio.NewReader(s.in),
		flags: featureflags.NewManager(cfg.FeatureFlags),
		reg:   prometheus.NewRegistry(),
		now:   time.Now,
	}
	a.metric = observability.NewCollector(a.reg)
	logger := observability.NewLogger(s.errOut)

	if a.needsRedis() {
		rc, err := cache.NewClient(cfg.RedisURL, a.metric)
		if err == nil {
			err = cache.Ping(ctx, rc)
			if err != nil {
				_ = rc.Close()
			}
		}
		switch {
		case err == nil:
			a.redis = rc
		case cfg.SessionStore == config.SessionStoreRedis:
			return nil, fmt.Errorf("connect to redis session store: %w", err)
		default:
			logger.Warn("formula cache disabled", "error", err.Error())
		}
	}

	var store session.Store = session.FileStore{Path: cfg.TokenFile}
	if cfg.SessionStore == config.SessionStoreRedis {
		store = session.NewRedisStore(a.redis)
	}
	a.sess = session.New(store)
	if err := a.sess.Init(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load session: %w", err)
	}

	opts := []api.Option{
		api.WithTimeout(cfg.RequestTimeout),
		api.WithRetries(cfg.MaxRetries, 0),
		api.WithRateLimit(cfg.RateLimitRPS),
		api.WithFeatureFlags(a.flags),
		api.WithRecorder(a.metric),
		api.WithLogger(logger),
	}
	if a.redis != nil {
		store := cache.NewStore(a.redis, "formulas", "toolbox:formulas:", a.metric)
		opts = append(opts, api.WithFormulaCache(store, cfg.FormulaCacheTTL))
	}
	a.client = api.New(cfg.BackendURL, a.sess, opts...)
	return a, nil
}

// needsRedis reports whether any component is configured to use Redis. The
// formula cache counts when its flag is listed and not switched off.
func (a *app) needsRedis() bool {
	if a.cfg.SessionStore == config.SessionStoreRedis {
		return true
	}
	v, ok := a.flags.Raw()[featureflags.FormulaCache]
	if !ok {
		return false
	}
	switch v {
	case "off", "false", "0", "0%":
		return false
	}
	return true
}

// Close releases the history database and the Redis client.
func (a *app) Close() {
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// history opens the calculation history on first use.
func (a *app) history() (history.Repository, error) {
	if a.hist != nil {
		return a.hist, nil
	}
	db, err := history.Open(a.cfg.HistoryDB)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.hist = history.NewRepository(db)
	return a.hist, nil
}

func (a *app) printer() *render.Printer {
	return render.New(a.io.out, a.format, render.WithClock(a.now), render.WithViewer(a.sess.User()))
}

// confirmer asks on stdin, or agrees to everything under -yes.
func (a *app) confirmer() actions.Confirmer {
	return actions.ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		if a.assumeYes {
			return true, nil
		}
		fmt.Fprintf(a.io.errOut, "%s [y/N] ", prompt)
		line, err := a.in.ReadString('\n')
		if err != nil && line == "" {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	})
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.io.errOut)
	return fs
}

// run parses the global flags and dispatches to a subcommand.
func (a *app) run(ctx context.Context, args []string) error {
	fs := a.flagSet("toolbox")
	output := fs.String("o", "text", "output format: text, json or yaml")
	fs.BoolVar(&a.assumeYes, "yes", false, "answer yes to every confirmation")
	fs.StringVar(&a.metricsFile, "metrics-file", "", "write client metrics to this file on exit")
	fs.Usage = func() { a.usage() }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return usageError{msg: err.Error()}
	}
	format, err := render.ParseFormat(*output)
	if err != nil {
		return usageError{msg: err.Error()}
	}
	a.format = format

	rest := fs.Args()
	if len(rest) == 0 {
		a.usage()
		return usagef("no command given")
	}
	if rest[0] == "help" {
		a.usage()
		return nil
	}
	cmd, ok := lookup(rest[0])
	if !ok {
		a.usage()
		return usagef("unknown command: %s", rest[0])
	}

	runErr := cmd.run(ctx, a, rest[1:])
	if a.metricsFile != "" {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.reg); err != nil {
			return errors.Join(runErr, fmt.Errorf("write metrics: %w", err))
		}
	}
	return runErr
}

func (a *app) usage() {
	w := a.io.errOut
	fmt.Fprintln(w, "Usage: toolbox [-o text|json|yaml] [-yes] [-metrics-file path] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-16s %s\n", c.name, c.usage)
	}
}
