package worker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperWorker is not a real test - it is re-executed as the worker child
// process by the manager tests, speaking the protocol on stdin/stdout.
func TestHelperWorker(t *testing.T) {
	if len(os.Args) == 0 || os.Args[len(os.Args)-1] != "worker-child" {
		t.Skip("helper process entry point")
	}
	_ = Serve(os.Stdin, os.Stdout, &helperBackend{})
	os.Exit(0) // keep the test framework from printing on the RPC channel
}

type helperBackend struct{ model string }

func (b *helperBackend) Load(model string, _, _ int) error {
	if model == "bad-model" {
		return fmt.Errorf("cannot load %s", model)
	}
	b.model = model
	return nil
}

func (b *helperBackend) Generate(prompt string) (string, error) {
	switch prompt {
	case "crash":
		os.Exit(3) // simulate a crash inside inference
	case "slow":
		time.Sleep(2 * time.Second)
	}
	return "rewritten: " + prompt, nil
}

func (b *helperBackend) Unload() error { b.model = ""; return nil }

func testConfig(model string) Config {
	return Config{
		Binary:          os.Args[0],
		Args:            []string{"-test.run=^TestHelperWorker$", "--", "worker-child"},
		ModelPath:       model,
		CtxTokens:       2048,
		Threads:         2,
		PingTimeout:     5 * time.Second,
		LoadTimeout:     10 * time.Second,
		GenerateTimeout: 500 * time.Millisecond,
		StopGrace:       2 * time.Second,
	}
}

func TestManager_StartGenerateStop(t *testing.T) {
	m := NewManager(testConfig("/models/test.gguf"))
	defer m.Stop()

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	assert.Equal(t, StateReady, m.State())
	assert.NotZero(t, m.Pid())

	text, err := m.Generate(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "rewritten: hello", text)

	m.Stop()
	assert.Equal(t, StateAbsent, m.State())
	assert.Zero(t, m.Pid())
}

func TestManager_StartIdempotent(t *testing.T) {
	m := NewManager(testConfig("/models/test.gguf"))
	defer m.Stop()

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	pid := m.Pid()

	require.NoError(t, m.Start(ctx), "second start with same model is a no-op")
	assert.Equal(t, pid, m.Pid(), "no second child spawned")
}

func TestManager_SingletonUnderConcurrentStart(t *testing.T) {
	m := NewManager(testConfig("/models/test.gguf"))
	defer m.Stop()

	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs[n] = m.Start(ctx)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, StateReady, m.State())
	assert.NotZero(t, m.Pid(), "exactly one child serves all callers")
}

func TestManager_FailedLoadLeavesNoProcess(t *testing.T) {
	m := NewManager(testConfig("bad-model"))
	defer m.Stop()

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load failed")
	assert.Equal(t, StateAbsent, m.State(), "no half-started process left behind")
	assert.Zero(t, m.Pid())
}

func TestManager_CrashIsolationAndRecovery(t *testing.T) {
	m := NewManager(testConfig("/models/test.gguf"))
	defer m.Stop()

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))

	// the child dies mid-generate; the parent observes a failure, not a panic
	_, err := m.Generate(ctx, "crash")
	require.Error(t, err)
	assert.Equal(t, StateCrashed, m.State())

	// a fresh start spawns a replacement child
	require.NoError(t, m.Start(ctx))
	assert.Equal(t, StateReady, m.State())

	text, err := m.Generate(ctx, "after recovery")
	require.NoError(t, err)
	assert.Equal(t, "rewritten: after recovery", text)
}

func TestManager_ExternalKillIsolation(t *testing.T) {
	m := NewManager(testConfig("/models/test.gguf"))
	defer m.Stop()

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))

	// kill the child from outside, like an OOM kill would
	require.NoError(t, syscall.Kill(m.Pid(), syscall.SIGKILL))
	time.Sleep(100 * time.Millisecond)

	_, err := m.Generate(ctx, "anything")
	require.Error(t, err, "call after external kill fails without raising")
	assert.Equal(t, StateCrashed, m.State())

	require.NoError(t, m.Start(ctx), "respawn after external kill")
	assert.Equal(t, StateReady, m.State())
}

func TestManager_GenerateTimeout(t *testing.T) {
	m := NewManager(testConfig("/models/test.gguf"))
	defer m.Stop()

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))

	_, err := m.Generate(ctx, "slow")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Equal(t, StateCrashed, m.State(), "timed out session is not reused")
}

func TestManager_CallBeforeStart(t *testing.T) {
	m := NewManager(testConfig("/models/test.gguf"))
	_, err := m.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready")
}

func TestManager_StopDuringCallFailsCleanly(t *testing.T) {
	m := NewManager(testConfig("/models/test.gguf"))
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := m.Generate(ctx, "slow") // holds the session while Stop tears it down
		assert.Error(t, err)
	}()
	time.Sleep(50 * time.Millisecond)

	m.Stop() // concurrent teardown must surface as a call error, never a panic
	wg.Wait()
	assert.Equal(t, StateAbsent, m.State())
}

func TestManager_CallAfterTeardownFailsCleanly(t *testing.T) {
	m := NewManager(testConfig("/models/test.gguf"))

	// ready state observed with the session already gone, the narrow window a
	// caller can hit when racing Stop
	m.mu.Lock()
	m.state = StateReady
	m.mu.Unlock()

	_, err := m.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session closed")
}
