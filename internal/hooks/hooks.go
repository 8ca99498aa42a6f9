package hooks

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// Environment variables every pre/post script receives.
const (
	EnvPID        = "RESTAROUND_PID"
	EnvProfile    = "RESTAROUND_PROFILE"
	EnvDryRun     = "RESTAROUND_DRY_RUN"
	EnvLogLevel   = "RESTAROUND_LOG_LEVEL"
	EnvResticExit = "RESTAROUND_RESTIC_EXIT"
)

// exportLine matches the NAME=VALUE stdout protocol.
var exportLine = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)

// Runner executes one hook script at a time with the chain environment.
type Runner struct {
	// Timeout limits one script run; 0 means no limit. Hook scripts may
	// legitimately run a whole nested backup, so the default is no limit.
	Timeout time.Duration

	// Warn receives non-fatal diagnostics, such as stdout lines that do
	// not follow the NAME=VALUE protocol. May be nil.
	Warn func(format string, args ...any)
}

// Run executes the script with the process environment plus the accumulated
// chain variables. NAME=VALUE lines on its stdout are merged back into env.
// The returned code is the script's exit status; err is only non-nil for
// engine-level failures (missing script, no exec bit, timeout).
func (r *Runner) Run(ctx context.Context, script string, env *Env) (int, error) {
	info, err := os.Stat(script)
	if os.IsNotExist(err) {
		return 0, fmt.Errorf("hook script not found: %s", script)
	}
	if err != nil {
		return 0, fmt.Errorf("checking hook script: %w", err)
	}
	if info.Mode()&0111 == 0 {
		return 0, fmt.Errorf("hook script not executable: %s", script)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, script)
	cmd.WaitDelay = 100 * time.Millisecond // Allow graceful shutdown after context cancel
	cmd.Env = append(os.Environ(), env.Pairs()...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr

	runErr := cmd.Run()
	r.mergeExports(script, &stdout, env)

	if runErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return 0, fmt.Errorf("hook timed out after %v: %s", r.Timeout, script)
		}
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return 0, fmt.Errorf("running hook: %w", runErr)
	}
	return 0, nil
}

// mergeExports parses the NAME=VALUE stdout protocol into env. Other
// non-empty output is a protocol violation and reported via Warn.
func (r *Runner) mergeExports(script string, stdout *bytes.Buffer, env *Env) {
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !exportLine.MatchString(line) {
			r.warnf("%s: ignoring stdout line that is not NAME=VALUE: %q", script, line)
			continue
		}
		name, value, _ := strings.Cut(line, "=")
		env.Set(name, value)
	}
}

func (r *Runner) warnf(format string, args ...any) {
	if r.Warn != nil {
		r.Warn(format, args...)
	}
}
