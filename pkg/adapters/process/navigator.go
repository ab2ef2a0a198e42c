package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/aretw0/stageflow/internal/logging"
)

// Environment variables handed to every command.
const (
	EnvTarget    = "STAGEFLOW_TARGET"
	EnvTargetRaw = "STAGEFLOW_TARGET_RAW"
)

// ErrNotRegistered is returned when no allow-listed command matches a target.
var ErrNotRegistered = errors.New("no command registered for target")

// Navigator implements ports.Navigator by running local processes.
// It follows a strict registry pattern (allow-listing): a target "name:arg" runs
// the command registered as name, anything else runs the default command.
// The target is passed through STAGEFLOW_TARGET, never as a command-line argument.
type Navigator struct {
	registry map[string]CommandConfig
	fallback string
	baseDir  string
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures the navigator.
type Option func(*Navigator)

// WithConfig populates the allow-list and default from a loaded file.
func WithConfig(cfg ConfigFile) Option {
	return func(n *Navigator) {
		for _, c := range cfg.Commands {
			n.registry[c.Name] = c
		}
		n.fallback = cfg.Default
	}
}

// WithDefault selects the command for targets without a registered prefix.
func WithDefault(name string) Option {
	return func(n *Navigator) {
		n.fallback = name
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) Option {
	return func(n *Navigator) {
		n.baseDir = dir
	}
}

// WithTimeout bounds each command. Zero means no limit beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(n *Navigator) {
		n.timeout = d
	}
}

// WithLogger configures a logger for command output.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Navigator) {
		n.logger = logger
	}
}

// NewNavigator creates a process navigator.
func NewNavigator(opts ...Option) *Navigator {
	n := &Navigator{
		registry: make(map[string]CommandConfig),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Register adds a trusted command to the allow-list.
func (n *Navigator) Register(name string, command string, args ...string) {
	n.registry[name] = CommandConfig{
		Name:    name,
		Command: command,
		Args:    args,
	}
}

// resolve picks the command for target and the argument handed to it.
func (n *Navigator) resolve(target string) (CommandConfig, string, bool) {
	if name, arg, found := strings.Cut(target, ":"); found {
		if c, ok := n.registry[name]; ok {
			return c, arg, true
		}
	}
	if n.fallback != "" {
		if c, ok := n.registry[n.fallback]; ok {
			return c, target, true
		}
	}
	return CommandConfig{}, "", false
}

// Navigate implements ports.Navigator. It blocks until the command exits.
func (n *Navigator) Navigate(ctx context.Context, target string) error {
	c, arg, ok := n.resolve(target)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotRegistered, target)
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Command, c.Args...)
	cmd.Dir = n.baseDir
	env := cmd.Environ()
	for k, v := range c.Environment {
		env = append(env, k+"="+v)
	}
	cmd.Env = append(env, EnvTarget+"="+arg, EnvTargetRaw+"="+target)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("command %s failed: %w: %s", c.Name, err, msg)
		}
		return fmt.Errorf("command %s failed: %w", c.Name, err)
	}

	n.logger.Debug("Navigation command finished",
		"command", c.Name,
		"target", target,
		"duration", time.Since(start),
		"output", strings.TrimSpace(stdout.String()),
	)
	return nil
}
