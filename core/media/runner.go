package media

import (
	"bytes"
	"context"
	"os/exec"
)

// Process is a handle to a started external command. Liveness is checked by
// polling Done; Wait must be called exactly once after Done reports true.
type Process interface {
	// Done reports whether the process has exited.
	Done() bool
	// Wait blocks until exit and returns the process error, if any.
	Wait() error
	// Stderr returns the diagnostic output captured so far.
	Stderr() string
}

// CommandRunner abstracts os/exec so the conversion pipeline can be tested
// without a real ffmpeg install.
type CommandRunner interface {
	// Run executes a command to completion, returning combined stdout and
	// stderr separately along with the run error.
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
	// Start launches a command without waiting for it.
	Start(ctx context.Context, name string, args ...string) (Process, error)
}

// ExecCommandRunner is the production CommandRunner backed by os/exec.
type ExecCommandRunner struct{}

func (r *ExecCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

func (r *ExecCommandRunner) Start(ctx context.Context, name string, args ...string) (Process, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &execProcess{cmd: cmd, stderr: &stderr, done: make(chan struct{})}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd     *exec.Cmd
	stderr  *bytes.Buffer
	done    chan struct{}
	waitErr error
}

func (p *execProcess) Done() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *execProcess) Wait() error {
	<-p.done
	return p.waitErr
}

func (p *execProcess) Stderr() string {
	// Safe only after Done; the poll loop never reads it mid-flight.
	return p.stderr.String()
}

var _ CommandRunner = (*ExecCommandRunner)(nil)
