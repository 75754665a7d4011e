package manager

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgate/pkg/types"
)

func chatReq(model string) types.ChatCompletionRequest {
	return types.ChatCompletionRequest{
		Model:    model,
		Messages: []types.ChatMessage{{Role: "user", Content: "hi"}},
	}
}

func helloChunks() []types.Chunk {
	return []types.Chunk{{Content: "Hel"}, {Content: "lo"}, {FinishReason: "stop"}}
}

func TestComplete_AggregatesChunks(t *testing.T) {
	fa := &fakeAdapter{chunks: helloChunks()}
	m := newTestManager(t, fa)

	out, err := m.Complete(testCtx(t), chatReq("acme/alpha"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.ID, "chatcmpl-"), out.ID)
	assert.Equal(t, "chat.completion", out.Object)
	assert.Equal(t, "acme/alpha", out.Model)
	require.Len(t, out.Choices, 1)
	assert.Equal(t, "assistant", out.Choices[0].Message.Role)
	assert.Equal(t, "Hello", out.Choices[0].Message.Content)
	assert.Equal(t, "stop", out.Choices[0].FinishReason)

	h := mustHandle(t, m, "acme/alpha")
	assert.Equal(t, StateReady, h.State())
	assert.Zero(t, len(h.genCh))
	assert.Zero(t, len(h.queueCh))
}

func TestComplete_EOFWithoutTerminalDefaultsToStop(t *testing.T) {
	fa := &fakeAdapter{chunks: []types.Chunk{{Content: "abc"}}}
	m := newTestManager(t, fa)

	out, err := m.Complete(testCtx(t), chatReq("acme/beta"))
	require.NoError(t, err)
	assert.Equal(t, "abc", out.Choices[0].Message.Content)
	assert.Equal(t, "stop", out.Choices[0].FinishReason)
}

func TestComplete_UnknownModelTouchesNothing(t *testing.T) {
	fa := &fakeAdapter{}
	m := newTestManager(t, fa)

	_, err := m.Complete(testCtx(t), chatReq("ghost/model"))
	require.Error(t, err)
	assert.True(t, IsUnknownModel(err))
	assert.EqualValues(t, 0, fa.acquires.Load())
}

func TestComplete_LoadFailureSurfaces(t *testing.T) {
	fa := &fakeAdapter{acquireErr: errBoom}
	m := newTestManager(t, fa)

	_, err := m.Complete(testCtx(t), chatReq("acme/alpha"))
	require.Error(t, err)
	assert.True(t, IsLoadFailure(err))
	h := mustHandle(t, m, "acme/alpha")
	assert.Zero(t, len(h.queueCh), "queue slot must be returned")
}

func TestComplete_ChatErrorIsInferenceError(t *testing.T) {
	fa := &fakeAdapter{chatErr: errBoom}
	m := newTestManager(t, fa)

	_, err := m.Complete(testCtx(t), chatReq("acme/alpha"))
	var ie *InferenceError
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, errBoom)
	h := mustHandle(t, m, "acme/alpha")
	assert.Equal(t, StateReady, h.State(), "generation failures do not unload the backend")
	assert.Zero(t, len(h.genCh))
}

func TestComplete_PassesSamplingFields(t *testing.T) {
	fa := &fakeAdapter{chunks: helloChunks()}
	m := newTestManager(t, fa)
	maxTok, temp := 32, 0.2
	req := chatReq("acme/alpha")
	req.MaxTokens = &maxTok
	req.Temperature = &temp
	req.Stop = []string{"###"}

	_, err := m.Complete(testCtx(t), req)
	require.NoError(t, err)
	got := fa.lastResource().lastReq
	require.NotNil(t, got.MaxTokens)
	assert.Equal(t, 32, *got.MaxTokens)
	assert.Equal(t, 0.2, *got.Temperature)
	assert.Equal(t, []string{"###"}, got.Stop)
}

func TestStream_RecvAndClose(t *testing.T) {
	fa := &fakeAdapter{chunks: helloChunks()}
	m := newTestManager(t, fa)

	s, err := m.Stream(testCtx(t), chatReq("acme/alpha"))
	require.NoError(t, err)
	h := mustHandle(t, m, "acme/alpha")
	assert.Equal(t, 1, len(h.genCh))

	var got []types.Chunk
	for {
		c, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, c)
	}
	assert.Equal(t, helloChunks(), got)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Zero(t, len(h.genCh))
	assert.Zero(t, len(h.queueCh))
}

func TestStream_UpstreamErrorIsWrapped(t *testing.T) {
	s := &Stream{
		Model:   "acme/alpha",
		src:     &sliceStream{ctx: context.Background(), chunks: []types.Chunk{{Content: "x"}}, err: errBoom},
		cancel:  func() {},
		stop:    func() bool { return true },
		release: func(bool) {},
	}
	_, err := s.Recv()
	require.NoError(t, err)
	_, err = s.Recv()
	var ie *InferenceError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "acme/alpha", ie.Model)
	assert.ErrorIs(t, err, errBoom)
}

func TestStream_SecondRequestTooBusy(t *testing.T) {
	fa := &fakeAdapter{chunks: helloChunks()}
	m := newTestManager(t, fa, func(c *ManagerConfig) { c.MaxWait = 30 * time.Millisecond })

	s, err := m.Stream(testCtx(t), chatReq("acme/alpha"))
	require.NoError(t, err)
	defer s.Close()

	_, err = m.Stream(testCtx(t), chatReq("acme/alpha"))
	require.Error(t, err)
	assert.True(t, IsTooBusy(err))

	// Other backends are unaffected.
	s2, err := m.Stream(testCtx(t), chatReq("acme/beta"))
	require.NoError(t, err)
	s2.Close()
}

func TestStream_CanceledRequestKeepsBackendReady(t *testing.T) {
	fa := &fakeAdapter{chunks: helloChunks()}
	m := newTestManager(t, fa)

	ctx, cancel := context.WithCancel(context.Background())
	s, err := m.Stream(ctx, chatReq("acme/alpha"))
	require.NoError(t, err)
	cancel()
	_, err = s.Recv()
	assert.ErrorIs(t, err, context.Canceled)
	s.Close()

	h := mustHandle(t, m, "acme/alpha")
	assert.Equal(t, StateReady, h.State())
	assert.Zero(t, len(h.genCh))
}

func TestComplete_ExitedBackendIsReloaded(t *testing.T) {
	pub := &eventLog{}
	fa := &fakeAdapter{chunks: helloChunks(), exitable: true}
	m := newTestManager(t, fa, func(c *ManagerConfig) { c.Publisher = pub })

	_, err := m.Complete(testCtx(t), chatReq("acme/alpha"))
	require.NoError(t, err)
	fa.lastResource().crash()

	// Whether the exit watcher or the failing request notices first, the
	// dead backend must not survive the next request.
	_, _ = m.Complete(testCtx(t), chatReq("acme/alpha"))
	out, err := m.Complete(testCtx(t), chatReq("acme/alpha"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", out.Choices[0].Message.Content)
	assert.EqualValues(t, 2, fa.acquires.Load())
	assert.Equal(t, 1, pub.count(EventEvict, "acme/alpha"))
	assert.Equal(t, ReasonCrashed, evictReason(pub))
}

func TestExitWatcher_UnloadsWithoutTraffic(t *testing.T) {
	fa := &fakeAdapter{exitable: true}
	m := newTestManager(t, fa)
	h := mustHandle(t, m, "acme/alpha")
	_, err := h.EnsureReady(testCtx(t))
	require.NoError(t, err)

	fa.lastResource().crash()
	require.Eventually(t, func() bool { return h.State() == StateUnloaded }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, h.LastUsed().IsZero())
}

func TestComplete_FailedChatDoesNotRefreshLastUsed(t *testing.T) {
	clk := newFakeClock()
	fa := &fakeAdapter{chatErr: errBoom, onChat: func() { clk.Advance(time.Minute) }}
	m := newTestManager(t, fa, func(c *ManagerConfig) { c.Clock = clk.Now })
	h := mustHandle(t, m, "acme/alpha")

	admitted := clk.Now()
	_, err := m.Complete(testCtx(t), chatReq("acme/alpha"))
	require.Error(t, err)
	assert.Equal(t, admitted, h.LastUsed(), "a failed generation must not count as use")
}

// evictReason returns the reason of the most recent evict event.
func evictReason(pub *eventLog) any {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	for i := len(pub.all) - 1; i >= 0; i-- {
		if pub.all[i].Name == EventEvict {
			return pub.all[i].Fields["reason"]
		}
	}
	return nil
}
