package api

import (
	"bufio"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailcouncil/pkg/models"
)

func TestSSEStreamDeliversDebateEvents(t *testing.T) {
	ts := newTestServer(t)

	// The whole-request timeout bounds the read loop if the stream never
	// produces the terminal event.
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(ts.URL + "/api/v1/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	// Submit after the stream is open: the 200 means the subscription is
	// already registered, so no events can be missed.
	post := ts.postJSON(t, "/api/v1/debates", `{"team": "triage", "query": "stream me"}`)
	defer post.Body.Close()
	require.Equal(t, http.StatusAccepted, post.StatusCode)

	var created struct {
		TaskID string `json:"task_id"`
	}
	require.NoError(t, json.NewDecoder(post.Body).Decode(&created))

	var sawAgentMessage bool
	var completeData string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() && completeData == "" {
		switch line := scanner.Text(); {
		case line == "event: agent_message":
			sawAgentMessage = true
		case line == "event: debate_complete":
			for scanner.Scan() {
				if data, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
					completeData = data
					break
				}
			}
		}
	}

	assert.True(t, sawAgentMessage)
	require.NotEmpty(t, completeData, "stream ended without a debate_complete event")

	var data models.EventData
	require.NoError(t, json.Unmarshal([]byte(completeData), &data))
	assert.Equal(t, created.TaskID, data.TaskID)
	require.NotNil(t, data.Decision)
	assert.Equal(t, "Quarantine the message.", data.Decision.Summary)
}

func TestSSEStreamSendsHeartbeats(t *testing.T) {
	ts := newTestServer(t)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(ts.URL + "/api/v1/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	// No debates are running, so the first line on the wire is a heartbeat
	// comment.
	scanner := bufio.NewScanner(resp.Body)
	require.True(t, scanner.Scan())
	assert.Equal(t, ": heartbeat", scanner.Text())
}

func TestWebSocketStreamDeliversDebateEvents(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	post := ts.postJSON(t, "/api/v1/debates", `{"team": "triage", "query": "stream me"}`)
	defer post.Body.Close()
	require.Equal(t, http.StatusAccepted, post.StatusCode)

	var created struct {
		TaskID string `json:"task_id"`
	}
	require.NoError(t, json.NewDecoder(post.Body).Decode(&created))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))

	var sawAgentMessage bool
	for {
		var ev models.Event
		require.NoError(t, conn.ReadJSON(&ev))

		switch ev.Type {
		case models.EventAgentMessage:
			sawAgentMessage = true
			assert.Equal(t, created.TaskID, ev.Data.TaskID)
		case models.EventDebateComplete:
			assert.True(t, sawAgentMessage)
			assert.Equal(t, created.TaskID, ev.Data.TaskID)
			require.NotNil(t, ev.Data.Decision)
			assert.Equal(t, "Quarantine the message.", ev.Data.Decision.Summary)
			return
		case models.EventDebateError:
			t.Fatalf("debate failed: %s", ev.Data.Reason)
		}
	}
}

func TestSSEStreamRequiresAuthWhenConfigured(t *testing.T) {
	ts := newTestServerWith(t, Options{JWTSecret: "test-secret"}, &stubGenerator{})

	resp, err := http.Get(ts.URL + "/api/v1/events")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
