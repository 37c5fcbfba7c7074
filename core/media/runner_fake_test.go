package media

import (
	"context"
	"os"
	"strings"
	"sync"
)

// fakeProcess is a scripted Process for converter tests. It reports running
// for pollsUntilDone liveness checks before flipping to done.
type fakeProcess struct {
	mu             sync.Mutex
	pollsUntilDone int
	stderr         string
	waitErr        error
	onExit         func()
	exited         bool
}

func (p *fakeProcess) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pollsUntilDone > 0 {
		p.pollsUntilDone--
		return false
	}
	p.finish()
	return true
}

func (p *fakeProcess) Wait() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finish()
	return p.waitErr
}

func (p *fakeProcess) Stderr() string {
	return p.stderr
}

func (p *fakeProcess) finish() {
	if !p.exited && p.onExit != nil {
		p.onExit()
	}
	p.exited = true
}

// fakeRunner scripts the external commands the pipeline issues. Every
// invocation is recorded for assertions.
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string

	versionErr    error  // result of `ffmpeg -version`
	probeStdout   string // ffprobe stdout
	probeErr      error
	bannerStderr  string // `ffmpeg -i x -hide_banner` stderr
	bannerErr     error
	startErr      error
	encodeProcess *fakeProcess
}

func (r *fakeRunner) record(name string, args []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{name}, args...))
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.record(name, args)
	switch {
	case len(args) > 0 && args[0] == "-version":
		return nil, nil, r.versionErr
	case strings.Contains(name, "ffprobe"):
		return []byte(r.probeStdout), nil, r.probeErr
	default: // ffmpeg -i <x> -hide_banner inspection
		return nil, []byte(r.bannerStderr), r.bannerErr
	}
}

func (r *fakeRunner) Start(ctx context.Context, name string, args ...string) (Process, error) {
	r.record(name, args)
	if r.startErr != nil {
		return nil, r.startErr
	}
	if r.encodeProcess == nil {
		r.encodeProcess = &fakeProcess{}
	}
	return r.encodeProcess, nil
}

// countStarts counts encoder launches (the `-i` invocations that are not the
// inspection fallback).
func (r *fakeRunner) countStarts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, call := range r.calls {
		if len(call) > 1 && call[1] == "-i" && !contains(call, "-hide_banner") {
			n++
		}
	}
	return n
}

func contains(call []string, arg string) bool {
	for _, a := range call {
		if a == arg {
			return true
		}
	}
	return false
}

// writeFile is a test helper creating a file with the given content.
func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}
