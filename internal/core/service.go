package core

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/wrohdewald/restaround/internal/hooks"
	"github.com/wrohdewald/restaround/internal/profile"
	"github.com/wrohdewald/restaround/internal/schema"
	"github.com/wrohdewald/restaround/internal/storage/config"
	"github.com/wrohdewald/restaround/internal/storage/db"
	"github.com/wrohdewald/restaround/internal/ui"
)

// ServiceConfig holds the settings the service needs per invocation
type ServiceConfig struct {
	ConfigDir   string // user profile root, also holds config.yaml
	SystemDir   string // system profile root (default /etc/restaround)
	DataDir     string // history database location; empty disables history
	Restic      string // restic binary, overrides config.yaml
	DryRun      bool
	PassUnknown bool
	NoHistory   bool
}

// Service wires locator, resolver, composer and script orchestration into
// one invocation of the wrapped restic command
type Service struct {
	cfg    ServiceConfig
	app    *config.Config
	loc    *profile.Locator
	runner *hooks.Runner
	db     *db.DB
}

// NewService creates the service, loading config.yaml and opening the
// history database. A broken history database degrades to a warning.
func NewService(cfg ServiceConfig) (*Service, error) {
	app, err := config.Load(cfg.ConfigDir)
	if err != nil {
		return nil, err
	}
	if cfg.Restic == "" {
		cfg.Restic = app.Restic
	}
	cfg.PassUnknown = cfg.PassUnknown || app.PassUnknownFlags
	if cfg.SystemDir == "" {
		cfg.SystemDir = app.SystemRoot
	}
	if cfg.SystemDir == "" {
		cfg.SystemDir = profile.SystemRoot
	}

	s := &Service{
		cfg:    cfg,
		app:    app,
		loc:    profile.NewLocator(cfg.ConfigDir, cfg.SystemDir),
		runner: &hooks.Runner{Timeout: app.HookTimeout, Warn: ui.Warnf},
	}

	if cfg.DataDir != "" && !cfg.NoHistory && !app.DisableHistory {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		s.db, err = db.New(filepath.Join(cfg.DataDir, "history.db"))
		if err != nil {
			ui.Warnf("history disabled: %v", err)
			s.db = nil
		}
	}
	return s, nil
}

// Close releases the history database
func (s *Service) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// Locator exposes the profile locator, for listing profiles
func (s *Service) Locator() *profile.Locator { return s.loc }

// DB returns the history database, nil when history is disabled
func (s *Service) DB() *db.DB { return s.db }

// Restic returns the restic binary the service invokes
func (s *Service) Restic() string { return s.cfg.Restic }

// Invocation identifies one restaround run
type Invocation struct {
	Profile  string
	Command  string
	ToolArgs []string // literal arguments after the command word
}

// resolve runs the full locate/decode/inherit/compose pipeline. It is pure
// with respect to engine state, so re-resolution after a pre script is just
// calling it again.
func (s *Service) resolve(inv Invocation) (*profile.Composition, error) {
	args, err := profile.ArgsProfile(inv.Command, inv.ToolArgs)
	if err != nil {
		return nil, err
	}
	order, err := profile.NewResolver(s.loc, inv.Command).Resolve(inv.Profile, args)
	if err != nil {
		return nil, err
	}
	composer := &profile.Composer{
		Command:     inv.Command,
		PassUnknown: s.cfg.PassUnknown,
		Warn:        ui.Warnf,
	}
	return composer.Compose(order)
}

// Run performs one full invocation: pre scripts, the restic call (or a
// pseudo command, or the dry-run printout), post scripts. The returned int
// is the overall exit status: a failing pre script's status verbatim,
// otherwise restic's own.
func (s *Service) Run(ctx context.Context, inv Invocation) (int, error) {
	if !schema.IsCommand(inv.Command) {
		return 0, fmt.Errorf("unknown command: %s", inv.Command)
	}
	started := time.Now()

	comp, err := s.resolve(inv)
	if err != nil {
		return 0, err
	}

	env := hooks.NewEnv()
	env.Set(hooks.EnvPID, strconv.Itoa(os.Getpid()))
	env.Set(hooks.EnvProfile, inv.Profile)
	env.Set(hooks.EnvDryRun, zeroOne(s.cfg.DryRun))
	env.Set(hooks.EnvLogLevel, ui.CurrentLevel().String())

	// Pre chain. After every successful script the whole pipeline is
	// re-resolved, so files the script just created are picked up. The
	// chain position survives re-resolution; scripts already run are not
	// run again even if re-resolution reorders the chain.
	executed := 0
	for executed < len(comp.PreScripts) {
		script := comp.PreScripts[executed]
		ui.Debugf("pre: %s", script)
		code, err := s.runner.Run(ctx, script, env)
		if err != nil {
			return 1, err
		}
		if code != 0 {
			ui.Errorf("pre script %s exited with %d, aborting", script, code)
			s.record(inv, comp, started, code)
			return code, nil
		}
		executed++
		if comp, err = s.resolve(inv); err != nil {
			return 1, err
		}
	}

	exit, err := s.invoke(ctx, inv, comp, env)
	if err != nil {
		return 1, err
	}

	// Post scripts all run, whatever restic or earlier post scripts did.
	env.Set(hooks.EnvResticExit, strconv.Itoa(exit))
	for _, script := range comp.PostScripts {
		ui.Debugf("post: %s", script)
		code, err := s.runner.Run(ctx, script, env)
		switch {
		case err != nil:
			ui.Errorf("post script %s: %v", script, err)
		case code != 0:
			ui.Warnf("post script %s exited with %d", script, code)
		}
	}

	s.record(inv, comp, started, exit)
	return exit, nil
}

// invoke runs the actual command: a pseudo command, the dry-run printout,
// or restic itself with stdio passed through.
func (s *Service) invoke(ctx context.Context, inv Invocation, comp *profile.Composition, env *hooks.Env) (int, error) {
	if schema.IsSpecial(inv.Command) {
		return s.runSpecial(inv, comp)
	}
	if s.cfg.DryRun {
		ui.Infof("%s", shellquote.Join(s.commandLine(inv, comp)...))
		return 0, nil
	}

	args := append([]string{inv.Command}, comp.Args...)
	cmd := exec.CommandContext(ctx, s.cfg.Restic, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// Scripts may have exported credentials such as RESTIC_PASSWORD.
	cmd.Env = append(os.Environ(), env.Pairs()...)

	ui.Debugf("exec: %s", shellquote.Join(s.commandLine(inv, comp)...))
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return 0, fmt.Errorf("running %s: %w", s.cfg.Restic, err)
	}
	return 0, nil
}

// commandLine is the full restic command line, for display and history
func (s *Service) commandLine(inv Invocation, comp *profile.Composition) []string {
	return append([]string{s.cfg.Restic, inv.Command}, comp.Args...)
}

// record appends the invocation to the history database
func (s *Service) record(inv Invocation, comp *profile.Composition, started time.Time, exit int) {
	if s.db == nil {
		return
	}
	err := s.db.RecordRun(&db.Run{
		Profile:    inv.Profile,
		Command:    inv.Command,
		Args:       shellquote.Join(s.commandLine(inv, comp)...),
		DryRun:     s.cfg.DryRun,
		ExitCode:   exit,
		StartedAt:  started,
		FinishedAt: time.Now(),
	})
	if err != nil {
		ui.Warnf("recording history: %v", err)
	}
}

func zeroOne(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
