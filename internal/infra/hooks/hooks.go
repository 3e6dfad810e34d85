// Package hooks runs configured shell commands on monitor events.
package hooks

import (
	"context"
	"os"
	"os/exec"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/osa030/autologout/internal/app/idle"
	"github.com/osa030/autologout/internal/app/notification"
	"github.com/osa030/autologout/internal/infra/logger"
)

// Config lists the commands for each stage.
type Config struct {
	OnWarning   []string
	OnLoggedOut []string
	OnStopped   []string
}

// Runner executes hook commands with sh -c.
type Runner struct {
	cfg    Config
	logger zerolog.Logger
	wg     sync.WaitGroup
}

// New creates a hook runner.
func New(cfg Config) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: logger.Component("hooks"),
	}
}

// Run executes commands in order. A failing command does not stop the rest;
// the first error is returned.
func (r *Runner) Run(ctx context.Context, stage string, commands []string, env map[string]string) error {
	if len(commands) == 0 {
		return nil
	}

	r.logger.Info().Msgf("Executing %s hooks (%d commands)", stage, len(commands))

	var first error
	for _, hook := range commands {
		r.logger.Info().Msgf("Executing hook: %s", hook)
		cmd := exec.CommandContext(ctx, "sh", "-c", hook)
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
		cmd.Env = os.Environ()
		cmd.Env = append(cmd.Env, "AUTOLOGOUT_STAGE="+stage)
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}

		if err := cmd.Run(); err != nil {
			r.logger.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
			if first == nil {
				first = errors.Wrapf(err, "hook %q", hook)
			}
		}
	}
	return first
}

// Sink runs the warning and logged-out hooks in the background.
func (r *Runner) Sink(ctx context.Context) notification.Sink {
	return notification.SinkFunc(func(n notification.Notification) error {
		var stage string
		var commands []string
		switch n.Event.Type {
		case idle.EventWarningShown:
			stage, commands = "on_warning", r.cfg.OnWarning
		case idle.EventLoggedOut:
			stage, commands = "on_logged_out", r.cfg.OnLoggedOut
		default:
			return nil
		}
		if len(commands) == 0 {
			return nil
		}

		env := map[string]string{
			"AUTOLOGOUT_EVENT":    n.Event.Type.String(),
			"AUTOLOGOUT_INSTANCE": n.Event.InstanceID,
			"AUTOLOGOUT_STATE":    n.Event.State.String(),
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			_ = r.Run(ctx, stage, commands, env)
		}()
		return nil
	})
}

// Stopped runs the on_stopped hooks after background hooks have finished.
func (r *Runner) Stopped(ctx context.Context) error {
	r.wg.Wait()
	return r.Run(ctx, "on_stopped", r.cfg.OnStopped, nil)
}
