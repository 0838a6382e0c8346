package events

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/mathlan/internal/dependencies/mocks"
	"github.com/mcoot/mathlan/internal/model"
	"github.com/mcoot/mathlan/internal/testutil"
)

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "lobby",
			data:      `{"type":"lobby"}`,
			expected:  "event: lobby\ndata: {\"type\":\"lobby\"}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "chat",
			data:      "a\nb",
			expected:  "event: chat\ndata: a\ndata: b\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "data with carriage returns",
			eventName: "test",
			data:      "line1\r\nline2",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(FormatSSEMessage(tt.eventName, tt.data)))
		})
	}
}

func TestServeSSE_StreamsEvents(t *testing.T) {
	bus := NewBus(mocks.NewMockClock(time.Unix(0, 0)), testutil.NopLogger())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSSE(w, r, bus)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	require.True(t, scanner.Scan())
	assert.Equal(t, "event: connected", scanner.Text())

	// The subscription exists once the connected frame has been sent
	require.Eventually(t, func() bool { return bus.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)
	bus.Publish(model.EventChat, model.ChatPayload{PlayerID: "p-1", Text: "hello", At: 1})

	var sawChat bool
	for scanner.Scan() {
		line := scanner.Text()
		if line == "event: chat" {
			require.True(t, scanner.Scan())
			assert.True(t, strings.HasPrefix(scanner.Text(), "data: "))
			assert.Contains(t, scanner.Text(), `"text":"hello"`)
			sawChat = true
			break
		}
	}
	assert.True(t, sawChat)
}
