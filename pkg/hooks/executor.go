package hooks

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/jingkaihe/pluginlint/pkg/logger"
	"github.com/jingkaihe/pluginlint/pkg/osutil"
)

// Invocation describes one hook subprocess.
type Invocation struct {
	// Argv is the program and its arguments.
	Argv []string
	// Dir is the working directory.
	Dir   string
	Event ToolEvent
	// Env is appended after the tool event variables.
	Env []string
}

// Result is what a hook subprocess produced.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Output parses stdout as a hook response.
func (r *Result) Output() (Output, error) {
	return ParseOutput(r.Stdout)
}

// Runner spawns hook subprocesses one at a time.
type Runner struct {
	Timeout time.Duration
	// Attempts bounds spawn retries on "text file busy".
	Attempts uint
}

// NewRunner returns a Runner with the given timeout, or DefaultTimeout when
// timeout is zero.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{Timeout: timeout, Attempts: 5}
}

// Run executes inv and waits for it. A non-zero exit status is reported in
// Result.ExitCode, not as an error; errors are reserved for failures to spawn
// and timeouts.
func (r *Runner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if len(inv.Argv) == 0 {
		return nil, errors.New("hook invocation has no command")
	}
	name := inv.Argv[0]

	timeout := r.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	attempts := r.Attempts
	if attempts == 0 {
		attempts = 1
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		result *Result
		stdout bytes.Buffer
		stderr bytes.Buffer
	)
	err := retry.Do(
		func() error {
			stdout.Reset()
			stderr.Reset()

			cmd := exec.CommandContext(ctx, name, inv.Argv[1:]...)
			cmd.Dir = inv.Dir
			cmd.Env = append(baseEnviron(), inv.Event.Environ()...)
			cmd.Env = append(cmd.Env, inv.Env...)
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr
			cmd.WaitDelay = time.Second
			osutil.IsolateProcessGroup(cmd)

			start := time.Now()
			err := cmd.Run()
			result = &Result{Duration: time.Since(start)}

			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) && ctx.Err() == nil {
				result.ExitCode = exitErr.ExitCode()
				return nil
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(20*time.Millisecond),
		retry.RetryIf(isTextFileBusy),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("hook", name).WithField("attempt", n+1).Debug("retrying hook spawn")
		}),
	)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Errorf("hook %s timed out after %s", name, timeout)
		}
		return nil, errors.Wrapf(err, "hook %s failed to run: %s", name, stderr.String())
	}

	result.Stdout = append([]byte(nil), stdout.Bytes()...)
	result.Stderr = append([]byte(nil), stderr.Bytes()...)
	logger.G(ctx).WithField("hook", name).
		WithField("exit_code", result.ExitCode).
		WithField("duration", result.Duration).
		Debug("hook finished")
	return result, nil
}

// isTextFileBusy matches the spawn failure seen when a script is executed
// while its writer still holds it open.
func isTextFileBusy(err error) bool {
	return errors.Is(err, syscall.ETXTBSY) || strings.Contains(err.Error(), "text file busy")
}

// baseEnviron is the parent environment without any contract variables, so a
// stale value from the caller never leaks into a scenario.
func baseEnviron() []string {
	var out []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, EnvToolName+"=") ||
			strings.HasPrefix(kv, EnvToolInput+"=") ||
			strings.HasPrefix(kv, EnvSessionDir+"=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}
