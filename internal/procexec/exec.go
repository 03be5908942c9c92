package procexec

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Executor abstracts streaming command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Process is a started command that has not necessarily exited.
type Process interface {
	PID() int
	Wait() error
}

// Starter launches commands without waiting for them.
type Starter interface {
	Start(ctx context.Context, binary string, args []string) (Process, error)
}

// StartError reports that a command could not be launched at all.
type StartError struct {
	Binary string
	Err    error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Binary, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// IsStartError reports whether err came from a failed launch.
func IsStartError(err error) bool {
	var startErr *StartError
	return errors.As(err, &startErr)
}

// WithTimeout derives a context bounded by seconds; zero or negative leaves ctx
// untouched.
func WithTimeout(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}

// MaxLineBytes caps a single streamed output line. Longer lines are dropped
// whole and reading continues with the next line.
const MaxLineBytes = 1024 * 1024

// CommandExecutor runs real processes.
type CommandExecutor struct {
	// Stderr receives the command's stderr lines when non-nil; otherwise they
	// are discarded.
	Stderr func(string)
	// StdoutDropped is told the size of every stdout line discarded for
	// exceeding MaxLineBytes.
	StdoutDropped func(size int)
}

// Run starts binary, forwards stdout lines to onStdout, and blocks until exit.
func (e CommandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return &StartError{Binary: binary, Err: err}
	}

	var wg sync.WaitGroup
	var readErr error
	var once sync.Once

	read := func(r io.Reader, forward func(string), dropped func(int)) {
		defer wg.Done()
		if err := readLines(r, MaxLineBytes, forward, dropped); err != nil {
			once.Do(func() {
				readErr = err
			})
			// Keep the pipe drained so the child never blocks on a full pipe.
			_, _ = io.Copy(io.Discard, r)
		}
	}

	wg.Add(2)
	go read(stdout, onStdout, e.StdoutDropped)
	go read(stderr, e.Stderr, nil)

	wg.Wait()
	if readErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("read output: %w", readErr)
	}

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("wait command: %w", ctxErr)
		}
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

// readLines splits r into lines like bufio.ScanLines, except that a line
// longer than limit is reported to dropped and skipped instead of ending the
// stream.
func readLines(r io.Reader, limit int, forward func(string), dropped func(int)) error {
	br := bufio.NewReaderSize(r, 64*1024)
	line := make([]byte, 0, 4096)
	size := 0
	for {
		chunk, err := br.ReadSlice('\n')
		size += len(chunk)
		if size <= limit+2 {
			line = append(line, chunk...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if size > 0 {
			text := strings.TrimSuffix(strings.TrimSuffix(string(line), "\n"), "\r")
			switch {
			case size > limit+2 || len(text) > limit:
				if dropped != nil {
					dropped(size)
				}
			case forward != nil:
				forward(text)
			}
		}
		line = line[:0]
		size = 0
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// CommandStarter launches real processes.
type CommandStarter struct{}

// Start launches binary and returns immediately.
func (CommandStarter) Start(ctx context.Context, binary string, args []string) (Process, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stderr = &limitedWriter{w: &stderr, limit: 4096}
	if err := cmd.Start(); err != nil {
		return nil, &StartError{Binary: binary, Err: err}
	}
	return &process{ctx: ctx, cmd: cmd, stderr: &stderr}, nil
}

type process struct {
	ctx    context.Context
	cmd    *exec.Cmd
	stderr *strings.Builder
}

func (p *process) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *process) Wait() error {
	err := p.cmd.Wait()
	if err == nil {
		return nil
	}
	if ctxErr := p.ctx.Err(); ctxErr != nil {
		return fmt.Errorf("wait command: %w", ctxErr)
	}
	if detail := strings.TrimSpace(p.stderr.String()); detail != "" {
		return fmt.Errorf("wait command: %w: %s", err, detail)
	}
	return fmt.Errorf("wait command: %w", err)
}

// limitedWriter keeps at most limit bytes of output.
type limitedWriter struct {
	w     io.Writer
	limit int
	n     int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	remaining := l.limit - l.n
	if remaining > 0 {
		chunk := p
		if len(chunk) > remaining {
			chunk = chunk[:remaining]
		}
		written, err := l.w.Write(chunk)
		l.n += written
		if err != nil {
			return written, err
		}
	}
	return len(p), nil
}

// Output runs binary and returns its stdout, wrapping failures with stderr.
func Output(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout bytes.Buffer
	var stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &limitedWriter{w: &stderr, limit: 4096}
	if err := cmd.Start(); err != nil {
		return nil, &StartError{Binary: binary, Err: err}
	}
	if err := cmd.Wait(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return stdout.Bytes(), fmt.Errorf("%w: %s", err, detail)
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}
