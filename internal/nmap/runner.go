package nmap

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// ErrToolUnavailable means the nmap binary is not installed or not on PATH.
// Callers surface it as "this feature is unavailable"; scanning and
// monitoring are unaffected.
var ErrToolUnavailable = errors.New("nmap is not installed")

// Profiles are the canned argument sets offered to the user.
var Profiles = map[string][]string{
	"quick":    {"-T4", "-F"},
	"ping":     {"-sn"},
	"services": {"-sV"},
	"os":       {"-O"},
	"full":     {"-T4", "-A", "-v"},
}

type Runner struct {
	path    string
	timeout time.Duration
	log     zerolog.Logger
}

func NewRunner(path string, timeout time.Duration, log zerolog.Logger) *Runner {
	if path == "" {
		path = "nmap"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Runner{path: path, timeout: timeout, log: log}
}

// Run invokes nmap against target with the given arguments and returns its
// combined output.
func (r *Runner) Run(ctx context.Context, target string, args []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.path, append(append([]string{}, args...), target)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w (looked for %q)", ErrToolUnavailable, r.path)
		}
		if ctx.Err() == context.DeadlineExceeded {
			return string(out), fmt.Errorf("nmap timed out after %s", r.timeout)
		}
		return string(out), fmt.Errorf("nmap: %w", err)
	}
	r.log.Debug().Str("target", target).Strs("args", args).Msg("nmap finished")
	return string(out), nil
}

// RunProfile runs one of the canned profiles.
func (r *Runner) RunProfile(ctx context.Context, target, profile string) (string, error) {
	args, ok := Profiles[profile]
	if !ok {
		return "", fmt.Errorf("unknown nmap profile %q", profile)
	}
	return r.Run(ctx, target, args)
}
