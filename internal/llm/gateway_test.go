package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock completer for gateway routing tests
type mockCompleter struct {
	name     string
	response string
	err      error
	delay    time.Duration

	mu    sync.Mutex
	calls int
}

func (m *mockCompleter) Name() string {
	return m.name
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockCompleter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testGateway(remote, local Completer) *Gateway {
	return &Gateway{
		remote:        remote,
		local:         local,
		remoteTimeout: time.Second,
		localTimeout:  time.Second,
	}
}

func TestGenerateUsesRemoteWhenHealthy(t *testing.T) {
	remote := &mockCompleter{name: ProviderOpenAI, response: "remote answer"}
	local := &mockCompleter{name: ProviderOllama, response: "local answer"}
	g := testGateway(remote, local)

	out, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "remote answer", out)
	assert.Equal(t, 1, remote.callCount())
	assert.Equal(t, 0, local.callCount())
}

func TestGenerateFallsBackOnRemoteFailure(t *testing.T) {
	remote := &mockCompleter{name: ProviderOpenAI, err: errors.New("429 too many requests")}
	local := &mockCompleter{name: ProviderOllama, response: "local answer"}
	g := testGateway(remote, local)

	out, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "local answer", out)
	assert.Equal(t, 1, remote.callCount())
	assert.Equal(t, 1, local.callCount())
}

func TestGenerateLocalOnlyWithoutRemote(t *testing.T) {
	local := &mockCompleter{name: ProviderOllama, response: "local answer"}
	g := testGateway(nil, local)

	out, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "local answer", out)
	assert.Equal(t, 1, local.callCount())
}

func TestGenerateSurfacesLastErrorWhenAllFail(t *testing.T) {
	remote := &mockCompleter{name: ProviderOpenAI, err: errors.New("connection refused")}
	local := &mockCompleter{name: ProviderOllama, err: errors.New("connection refused")}
	g := testGateway(remote, local)

	_, err := g.Generate(context.Background(), "prompt")
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ProviderOllama, perr.Provider)
	assert.Equal(t, KindNetwork, perr.Kind)

	// Exactly one attempt each: no retry loops.
	assert.Equal(t, 1, remote.callCount())
	assert.Equal(t, 1, local.callCount())
}

func TestGenerateFallsBackOnEveryCallOfASequence(t *testing.T) {
	remote := &mockCompleter{name: ProviderOpenAI, err: errors.New("503 service unavailable")}
	local := &mockCompleter{name: ProviderOllama, response: "local answer"}
	g := testGateway(remote, local)

	// A full debate's worth of turns against a dead remote: every call must
	// still produce text, and every call must re-attempt the remote first.
	for i := 0; i < 10; i++ {
		out, err := g.Generate(context.Background(), "prompt")
		require.NoError(t, err)
		assert.Equal(t, "local answer", out)
	}
	assert.Equal(t, 10, remote.callCount())
	assert.Equal(t, 10, local.callCount())
}

func TestGenerateRemoteRetriedOnNextCall(t *testing.T) {
	remote := &mockCompleter{name: ProviderOpenAI, err: errors.New("503 service unavailable")}
	local := &mockCompleter{name: ProviderOllama, response: "local answer"}
	g := testGateway(remote, local)

	_, err := g.Generate(context.Background(), "first")
	require.NoError(t, err)

	// The failed remote attempt must not latch the gateway onto local.
	remote.err = nil
	remote.response = "remote is back"

	out, err := g.Generate(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, "remote is back", out)
	assert.Equal(t, 2, remote.callCount())
}

func TestGenerateTimesOutSlowRemote(t *testing.T) {
	remote := &mockCompleter{name: ProviderOpenAI, response: "too late", delay: 200 * time.Millisecond}
	local := &mockCompleter{name: ProviderOllama, response: "local answer"}
	g := testGateway(remote, local)
	g.remoteTimeout = 20 * time.Millisecond

	out, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "local answer", out)
}

func TestNewGatewaySkipsRemoteForPlaceholderKey(t *testing.T) {
	g, err := NewGateway(Options{
		RemoteAPIKey: "your-openai-api-key",
		RemoteModel:  "gpt-4o-mini",
		LocalModel:   "llama3.1",
	})
	require.NoError(t, err)
	assert.False(t, g.RemoteEnabled())
}

func TestNewGatewayEnablesRemoteForRealKey(t *testing.T) {
	g, err := NewGateway(Options{
		RemoteAPIKey: "sk-proj-abcdef123456",
		RemoteModel:  "gpt-4o-mini",
		LocalModel:   "llama3.1",
	})
	require.NoError(t, err)
	assert.True(t, g.RemoteEnabled())
}

func TestIsPlaceholderKey(t *testing.T) {
	placeholders := []string{
		"",
		"   ",
		"your-openai-api-key",
		"YOUR-API-KEY",
		"changeme",
		"change-me-now",
		"placeholder",
		"<paste key here>",
		"xxxxxxxx",
		"put-api-key-here",
	}
	for _, key := range placeholders {
		assert.True(t, IsPlaceholderKey(key), "expected placeholder: %q", key)
	}

	real := []string{
		"sk-proj-abc123",
		"sk-live-9f8e7d",
	}
	for _, key := range real {
		assert.False(t, IsPlaceholderKey(key), "expected real key: %q", key)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{context.DeadlineExceeded, KindTimeout},
		{errors.New("Post \"https://api.openai.com\": context deadline exceeded"), KindTimeout},
		{errors.New("429 Too Many Requests"), KindRateLimited},
		{errors.New("quota exceeded for project"), KindRateLimited},
		{errors.New("401 Unauthorized"), KindAuth},
		{errors.New("Incorrect API key provided"), KindAuth},
		{errors.New("dial tcp: connection refused"), KindNetwork},
		{errors.New("no such host"), KindNetwork},
		{errors.New("502 Bad Gateway"), KindNetwork},
		{errors.New("empty response from ollama"), KindBadResponse},
		{errors.New("something novel"), KindUnknown},
		{nil, KindUnknown},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.err), "error: %v", tc.err)
	}
}
