//go:build unit

package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lounge-booking/internal/infra/notify"
	"lounge-booking/internal/usecase/shared"
	"lounge-booking/tests/common/builder"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) Notify(context.Context, shared.ReservationEvent) error {
	s.calls++
	return s.err
}

func sampleEvent() shared.ReservationEvent {
	res := builder.NewReservationBuilder().MustBuild()
	return shared.NewReservationEvent(shared.EventCreated, res, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
}

// =============================================================================
// Fanout Tests
// =============================================================================

func TestFanout_Notify(t *testing.T) {
	errBroker := errors.New("broker down")

	testCases := []struct {
		name      string
		notifiers []*stubNotifier
		expectErr error
	}{
		{
			name:      "success: every notifier is called",
			notifiers: []*stubNotifier{{}, {}},
		},
		{
			name:      "error: one failure does not stop delivery to the rest",
			notifiers: []*stubNotifier{{err: errBroker}, {}},
			expectErr: errBroker,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fanout := notify.Fanout{}
			for _, n := range tc.notifiers {
				fanout = append(fanout, n)
			}
			fanout = append(fanout, nil, notify.LogNotifier{})

			err := fanout.Notify(context.Background(), sampleEvent())

			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
			} else {
				assert.NoError(t, err)
			}
			for _, n := range tc.notifiers {
				assert.Equal(t, 1, n.calls)
			}
		})
	}
}

// =============================================================================
// Hub Tests
// =============================================================================

func TestHub_BroadcastsToConnectedTerminals(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := notify.NewHub(nil)
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	event := sampleEvent()
	require.NoError(t, hub.Notify(ctx, event))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var got shared.ReservationEvent
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, event.Kind, got.Kind)
	assert.Equal(t, event.ReservationID, got.ReservationID)
	assert.Equal(t, event.ResourceIDs, got.ResourceIDs)
	assert.True(t, event.Start.Equal(got.Start))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := notify.NewHub([]string{"http://lounge.local"})
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://elsewhere.example"}})

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHub_NotifyNeverBlocks(t *testing.T) {
	hub := notify.NewHub(nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 500 {
			_ = hub.Notify(context.Background(), sampleEvent())
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked without a running hub")
	}
}
