//go:build integration

package manager

import (
	"context"
	"net"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgate/pkg/types"
)

// buildFakeServer compiles testdata/fake_llama_server.go into a temp dir.
func buildFakeServer(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "fake_llama_server")
	cmd := exec.Command("go", "build", "-o", bin, "./testdata/fake_llama_server.go")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build fake server: %s", out)
	return bin
}

// freePortBase returns a PortBase whose slot 0 port is currently free.
func freePortBase(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()
	return port - 1
}

func fakeServerAdapter(t *testing.T, bin, extra string, pub EventPublisher) *subprocessAdapter {
	return NewSubprocessAdapter(SubprocessConfig{
		Command:          bin,
		Args:             strings.TrimSpace("--model {model} --host {host} --port {port} " + extra),
		PortBase:         freePortBase(t),
		MaxReadyAttempts: 50,
		ReadyInterval:    50 * time.Millisecond,
		StopTimeout:      time.Second,
	}, zerolog.Nop(), pub).(*subprocessAdapter)
}

var fakeDesc = types.Model{ID: "acme/alpha", Path: "/models/acme/alpha.gguf"}

func TestSubprocess_AcquireChatRelease(t *testing.T) {
	bin := buildFakeServer(t)
	pub := &eventLog{}
	a := fakeServerAdapter(t, bin, "", pub)

	res, err := a.Acquire(context.Background(), fakeDesc, 0)
	require.NoError(t, err)
	info := res.Info()
	assert.Equal(t, a.cfg.PortBase+1, info.Port)
	assert.NotZero(t, info.PID)

	s, err := res.Chat(context.Background(), types.ChatCompletionRequest{Model: fakeDesc.ID, Messages: []types.ChatMessage{{Role: "user", Content: "hi"}}})
	require.NoError(t, err)
	chunks, err := drain(t, s)
	require.NoError(t, err)
	assert.Equal(t, []types.Chunk{{Content: "Hel"}, {Content: "lo"}, {FinishReason: "stop"}}, chunks)

	require.NoError(t, res.Release(context.Background()))
	assert.Equal(t, 1, pub.count(EventSpawnStart, fakeDesc.ID))
	assert.Equal(t, 1, pub.count(EventSpawnStop, fakeDesc.ID))
}

func TestSubprocess_EarlyExitReportsOutputTail(t *testing.T) {
	bin := buildFakeServer(t)
	a := fakeServerAdapter(t, bin, "--fail-early", nil)

	_, err := a.Acquire(context.Background(), fakeDesc, 0)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, err.Error(), "cannot load model")
}

func TestSubprocess_NeverReadyTimesOut(t *testing.T) {
	bin := buildFakeServer(t)
	a := fakeServerAdapter(t, bin, "--never-ready", nil)
	a.cfg.MaxReadyAttempts = 3

	_, err := a.Acquire(context.Background(), fakeDesc, 0)
	var te *LoadTimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 3, te.Attempts)
}

func TestSubprocess_ReleaseEscalatesToKill(t *testing.T) {
	bin := buildFakeServer(t)
	a := fakeServerAdapter(t, bin, "--ignore-term", nil)
	a.cfg.StopTimeout = 100 * time.Millisecond

	res, err := a.Acquire(context.Background(), fakeDesc, 0)
	require.NoError(t, err)
	start := time.Now()
	err = res.Release(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "killed")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSubprocess_CanceledAcquireKillsProcess(t *testing.T) {
	bin := buildFakeServer(t)
	a := fakeServerAdapter(t, bin, "--never-ready", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err := a.Acquire(ctx, fakeDesc, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubprocess_KilledBackendReloadsOnNextRequest(t *testing.T) {
	bin := buildFakeServer(t)
	pub := &eventLog{}
	a := fakeServerAdapter(t, bin, "", pub)
	m := NewWithConfig(ManagerConfig{Registry: []types.Model{fakeDesc}, Adapter: a, Publisher: pub, Logger: zerolog.Nop()})
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	req := types.ChatCompletionRequest{Model: fakeDesc.ID, Messages: []types.ChatMessage{{Role: "user", Content: "hi"}}}

	_, err := m.Complete(context.Background(), req)
	require.NoError(t, err)
	h := mustHandle(t, m, fakeDesc.ID)
	firstPID := h.Status().PID
	require.NotZero(t, firstPID)

	require.NoError(t, syscall.Kill(firstPID, syscall.SIGKILL))
	require.Eventually(t, func() bool { return h.State() == StateUnloaded }, 5*time.Second, 10*time.Millisecond)

	out, err := m.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Hello", out.Choices[0].Message.Content)
	assert.Equal(t, StateReady, h.State())
	assert.NotEqual(t, firstPID, h.Status().PID)
	assert.Equal(t, 2, pub.count(EventSpawnStart, fakeDesc.ID))
}
