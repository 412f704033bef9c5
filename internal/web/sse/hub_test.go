package sse

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/geoduel/internal/model"
	"github.com/mcoot/geoduel/internal/testutil"
)

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "new-round",
			data:      `{"round":1}`,
			expected:  "event: new-round\ndata: {\"round\":1}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "note",
			data:      "line1\nline2",
			expected:  "event: note\ndata: line1\ndata: line2\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "carriage returns and trailing newline",
			eventName: "test",
			data:      "line1\r\nline2\r\n",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(formatMessage(tt.eventName, tt.data)))
		})
	}
}

func receive(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg := <-c.send:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("client did not receive message")
	}
	return ""
}

func TestHubBroadcastsToEveryClient(t *testing.T) {
	hub := NewHub("ROOM01", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	clients := []*Client{NewClient("a"), NewClient("b")}
	for _, c := range clients {
		require.True(t, hub.Register(c))
	}
	assert.Equal(t, 2, hub.ClientCount())

	hub.BroadcastEvent("update", "data")

	for _, c := range clients {
		assert.Equal(t, "event: update\ndata: data\n\n", receive(t, c))
	}
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub("ROOM01", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	c := NewClient("a")
	require.True(t, hub.Register(c))
	hub.Unregister(c)

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-c.send
	assert.False(t, open)
}

func TestHubCloseDeliversQueuedEvents(t *testing.T) {
	hub := NewHub("ROOM01", testutil.NopLogger())
	go hub.Run()

	c := NewClient("a")
	require.True(t, hub.Register(c))
	hub.BroadcastEvent(EventRoomClosed, "{}")
	hub.Close()

	assert.Contains(t, receive(t, c), "event: room-closed")
	assert.False(t, hub.Register(NewClient("late")))
}

func TestHubManagerHubs(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())

	assert.Nil(t, manager.GetHub("ABC234"))
	a := NewClient("a")
	hub, ok := manager.Attach("ABC234", a)
	require.True(t, ok)
	again, ok := manager.Attach("ABC234", NewClient("b"))
	require.True(t, ok)
	assert.Same(t, hub, again)
	assert.Equal(t, 2, hub.ClientCount())
	other, _ := manager.Attach("XYZ789", NewClient("c"))
	assert.NotSame(t, hub, other)
	assert.Same(t, hub, manager.GetHub("ABC234"))

	manager.RemoveHub("ABC234")
	assert.Nil(t, manager.GetHub("ABC234"))
	manager.RemoveHub("NOTEXIST")
	_, open := <-a.send
	assert.False(t, open)

	// XYZ789 still has its observer
	assert.Equal(t, 0, manager.CleanupEmptyHubs())
	assert.Same(t, other, manager.GetHub("XYZ789"))
}

func TestHubManagerCleansUpEmptyHubs(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	c := NewClient("a")
	hub, ok := manager.Attach("ABC234", c)
	require.True(t, ok)

	assert.Equal(t, 0, manager.CleanupEmptyHubs())
	hub.Unregister(c)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, manager.CleanupEmptyHubs())
	assert.Nil(t, manager.GetHub("ABC234"))
}

func TestAttachIsNotUndoneByConcurrentCleanup(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	const observers = 50

	stop := make(chan struct{})
	var sweeps sync.WaitGroup
	sweeps.Add(1)
	go func() {
		defer sweeps.Done()
		for {
			select {
			case <-stop:
				return
			default:
				manager.CleanupEmptyHubs()
			}
		}
	}()

	clients := make([]*Client, observers)
	hubs := make([]*Hub, observers)
	var attach sync.WaitGroup
	for i := range clients {
		clients[i] = NewClient(fmt.Sprintf("observer-%d", i))
		attach.Add(1)
		go func() {
			defer attach.Done()
			hub, ok := manager.Attach("ABC234", clients[i])
			assert.True(t, ok)
			hubs[i] = hub
		}()
	}
	attach.Wait()
	close(stop)
	sweeps.Wait()

	hub := manager.GetHub("ABC234")
	require.NotNil(t, hub)
	assert.Equal(t, observers, hub.ClientCount())
	for i, c := range clients {
		assert.Same(t, hub, hubs[i])
		select {
		case _, open := <-c.send:
			assert.True(t, open, "observer %d stream was closed", i)
		default:
		}
	}

	hub.BroadcastEvent("update", "data")
	for _, c := range clients {
		assert.Equal(t, "event: update\ndata: data\n\n", receive(t, c))
	}
	manager.RemoveHub("ABC234")
}

func TestHubManagerForwardsRoomEvents(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())

	// No hub, nothing to do
	manager.RoomEvent("NOBODY", model.EventNewRound, nil)

	c := NewClient("a")
	_, ok := manager.Attach("ABC234", c)
	require.True(t, ok)

	manager.RoomEvent("ABC234", model.EventBecameHost, model.BecameHostPayload{Code: "ABC234"})
	assert.Equal(t, "event: became-host\ndata: {\"code\":\"ABC234\"}\n\n", receive(t, c))

	manager.RoomClosed("ABC234")
	assert.Equal(t, "event: room-closed\ndata: {\"code\":\"ABC234\"}\n\n", receive(t, c))
	assert.Nil(t, manager.GetHub("ABC234"))
}

func TestServeSSEStreamsEvents(t *testing.T) {
	hub := NewHub("ABC234", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := NewClient("observer")
		if hub.Register(client) {
			ServeSSE(w, r, hub, client)
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	hub.BroadcastEvent("new-round", `{"round":2}`)

	var got []string
	for len(got) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line = strings.TrimSpace(line); strings.HasPrefix(line, "event: new-round") || strings.HasPrefix(line, `data: {"round"`) {
			got = append(got, line)
		}
	}
	assert.Equal(t, []string{"event: new-round", `data: {"round":2}`}, got)
}
