package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/go-pkgz/lgr"
)

// State of the managed worker child process
type State int

// worker lifecycle states
const (
	StateAbsent State = iota
	StateStarting
	StateReady
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateCrashed:
		return "crashed"
	}
	return "unknown"
}

// Config holds worker manager settings
type Config struct {
	Binary          string   // worker child executable
	Args            []string // extra child arguments
	ModelPath       string
	CtxTokens       int
	Threads         int
	PingTimeout     time.Duration // short, child must answer promptly
	LoadTimeout     time.Duration // long, model loads are slow
	GenerateTimeout time.Duration
	StopGrace       time.Duration
}

// Manager supervises a single enrichment worker child process over the
// line-delimited JSON protocol. At most one child exists at a time; all RPC
// calls are serialized because the protocol is a single unframed stream.
// A crash inside the child never propagates to the parent - the manager
// observes a dead process or missing response and respawns on the next Start.
type Manager struct {
	cfg Config

	mu          sync.Mutex // guards state transitions and the start sequence
	state       State
	loadedModel string
	cmd         *exec.Cmd
	sess        *session

	callMu sync.Mutex // serializes RPC calls, one in flight at a time
}

// session is one live child's RPC plumbing. Callers snapshot it under m.mu so
// a concurrent Stop can close the pipes but never pull them out from under an
// in-flight call.
type session struct {
	stdin io.WriteCloser
	lines chan string
	done  chan struct{}
}

// NewManager creates a worker manager. The child is spawned lazily on the
// first Start call.
func NewManager(cfg Config) *Manager {
	if cfg.PingTimeout == 0 {
		cfg.PingTimeout = 5 * time.Second
	}
	if cfg.LoadTimeout == 0 {
		cfg.LoadTimeout = 60 * time.Second
	}
	if cfg.GenerateTimeout == 0 {
		cfg.GenerateTimeout = 30 * time.Second
	}
	if cfg.StopGrace == 0 {
		cfg.StopGrace = 3 * time.Second
	}
	return &Manager{cfg: cfg}
}

// State returns the current worker state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Ready reports whether the worker can serve calls right now
func (m *Manager) Ready() bool { return m.State() == StateReady }

// Pid returns the child process id, 0 when no child exists
func (m *Manager) Pid() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd == nil || m.cmd.Process == nil {
		return 0
	}
	return m.cmd.Process.Pid
}

// Start brings the worker up: spawn, ping, load. Idempotent when a ready
// session already serves the configured model. The whole sequence runs under
// the manager lock, so concurrent callers wait and observe the result of the
// single spawn instead of racing a second one.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateReady && m.loadedModel == m.cfg.ModelPath {
		return nil
	}

	// drop a crashed or stale session before respawning
	m.teardownLocked()
	m.state = StateStarting

	if err := m.spawnLocked(); err != nil {
		m.state = StateAbsent
		return fmt.Errorf("spawn worker: %w", err)
	}

	// child must answer ping quickly before we commit to the slow load
	if _, err := m.callLocked(ctx, "ping", nil, m.cfg.PingTimeout); err != nil {
		m.teardownLocked()
		m.state = StateAbsent
		return fmt.Errorf("worker ping failed: %w", err)
	}

	params := mustMarshal(LoadParams{Model: m.cfg.ModelPath, CtxTokens: m.cfg.CtxTokens, Threads: m.cfg.Threads})
	if _, err := m.callLocked(ctx, "load", params, m.cfg.LoadTimeout); err != nil {
		m.teardownLocked()
		m.state = StateAbsent
		return fmt.Errorf("worker load failed: %w", err)
	}

	m.state = StateReady
	m.loadedModel = m.cfg.ModelPath
	lgr.Printf("[INFO] worker ready, model %s, pid %d", m.cfg.ModelPath, m.cmd.Process.Pid)
	return nil
}

// spawnLocked starts the child process with piped stdio, caller holds m.mu
func (m *Manager) spawnLocked() error {
	cmd := exec.Command(m.cfg.Binary, m.cfg.Args...) //nolint:gosec // binary path comes from config
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	lines := make(chan string, 16)
	done := make(chan struct{})

	go func() { // stdout is the RPC channel, one frame per line
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	go func() { // child diagnostics
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			lgr.Printf("[DEBUG] worker: %s", scanner.Text())
		}
	}()

	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	m.cmd = cmd
	m.sess = &session{stdin: stdin, lines: lines, done: done}
	return nil
}

// Call sends one request and waits for the single-line response within the
// timeout. Calls are strictly serialized. On timeout, parse failure or dead
// process the session is marked crashed and nil is returned with an error;
// the next Start respawns a fresh child.
func (m *Manager) Call(ctx context.Context, method string, params json.RawMessage, timeout time.Duration) (*Response, error) {
	m.mu.Lock()
	if m.state != StateReady {
		m.mu.Unlock()
		return nil, fmt.Errorf("worker not ready, state %s", m.state)
	}
	sess := m.sess
	m.mu.Unlock()

	if sess == nil {
		return nil, fmt.Errorf("worker session closed")
	}

	resp, err := m.call(ctx, sess, method, params, timeout)
	if err != nil {
		m.mu.Lock()
		if m.state == StateReady {
			m.state = StateCrashed
			lgr.Printf("[WARN] worker call %s failed, session marked crashed: %v", method, err)
		}
		m.mu.Unlock()
		return nil, err
	}
	return resp, nil
}

// callLocked is used during bring-up when m.mu is already held
func (m *Manager) callLocked(ctx context.Context, method string, params json.RawMessage, timeout time.Duration) (*Response, error) {
	return m.call(ctx, m.sess, method, params, timeout)
}

func (m *Manager) call(ctx context.Context, sess *session, method string, params json.RawMessage, timeout time.Duration) (*Response, error) {
	m.callMu.Lock()
	defer m.callMu.Unlock()

	req, err := json.Marshal(Request{Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if _, err := sess.stdin.Write(append(req, '\n')); err != nil {
		return nil, fmt.Errorf("write to worker: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case line, ok := <-sess.lines:
		if !ok {
			return nil, fmt.Errorf("worker process died")
		}
		var resp Response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			return nil, fmt.Errorf("parse worker response: %w", err)
		}
		if !resp.Success {
			return nil, fmt.Errorf("worker error: %s", resp.Error)
		}
		return &resp, nil
	case <-sess.done:
		return nil, fmt.Errorf("worker process died")
	case <-timer.C:
		return nil, fmt.Errorf("worker call %s timed out after %v", method, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Generate asks the worker to rewrite the prompt, bounded by the generate
// timeout.
func (m *Manager) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := m.Call(ctx, "generate", mustMarshal(GenerateParams{Prompt: prompt}), m.cfg.GenerateTimeout)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Stop terminates the child gracefully, force-killing after the grace period,
// and always clears the session state.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
	m.state = StateAbsent
}

func (m *Manager) teardownLocked() {
	sess := m.sess
	m.sess, m.loadedModel = nil, ""

	if m.cmd == nil || m.cmd.Process == nil || sess == nil {
		m.cmd = nil
		return
	}

	_ = sess.stdin.Close() // EOF tells a healthy child to exit
	_ = m.cmd.Process.Signal(syscall.SIGTERM)

	select {
	case <-sess.done:
	case <-time.After(m.cfg.StopGrace):
		lgr.Printf("[WARN] worker did not exit in %v, killing pid %d", m.cfg.StopGrace, m.cmd.Process.Pid)
		_ = m.cmd.Process.Kill()
		<-sess.done
	}

	m.cmd = nil
}
