package posestream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func upd(x float64) Update {
	return Update{Position: [2]float64{x, 0}, Timestamp: time.Now().UnixMilli()}
}

func TestHubLatestWins(t *testing.T) {
	h := NewHub(zap.NewNop().Sugar())
	sub := h.Subscribe()
	defer sub.Cancel()

	// Nobody reads the subscriber while three updates arrive; only the
	// newest survives in its slot.
	h.Publish(upd(1))
	h.Publish(upd(2))
	h.Publish(upd(3))

	select {
	case u := <-sub.C:
		assert.Equal(t, 3.0, u.Position[0])
	default:
		t.Fatal("expected an update in the slot")
	}

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, 3.0, latest.Position[0])
}

func TestHubNewSubscriberGetsLatest(t *testing.T) {
	h := NewHub(zap.NewNop().Sugar())
	h.Publish(upd(7))

	sub := h.Subscribe()
	defer sub.Cancel()
	select {
	case u := <-sub.C:
		assert.Equal(t, 7.0, u.Position[0])
	default:
		t.Fatal("expected the latest update immediately")
	}
}

func TestHubSlowSubscriberIsolation(t *testing.T) {
	h := NewHub(zap.NewNop().Sugar())
	slow := h.Subscribe()
	defer slow.Cancel()
	fast := h.Subscribe()
	defer fast.Cancel()

	// The slow subscriber never drains; the fast one must still see
	// every publish's newest value without the publisher blocking.
	for i := 1; i <= 5; i++ {
		h.Publish(upd(float64(i)))
		select {
		case u := <-fast.C:
			assert.Equal(t, float64(i), u.Position[0])
		default:
			t.Fatalf("fast subscriber missed update %d", i)
		}
	}
	select {
	case u := <-slow.C:
		assert.Equal(t, 5.0, u.Position[0])
	default:
		t.Fatal("slow subscriber slot empty")
	}
}

func TestHubCancelRemovesSubscriber(t *testing.T) {
	h := NewHub(zap.NewNop().Sugar())
	sub := h.Subscribe()
	sub.Cancel()
	h.Publish(upd(1))

	h.lock.Lock()
	defer h.lock.Unlock()
	assert.Empty(t, h.subs)
}

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	h := NewHub(zap.NewNop().Sugar())
	mux := http.NewServeMux()
	mux.HandleFunc("/source", h.ServeSource)
	mux.HandleFunc("/view", h.ServeViewer)
	mux.HandleFunc("/latest", h.ServeLatest)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return h, srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestSourceToViewerEndToEnd(t *testing.T) {
	_, srv := newTestServer(t)

	viewer, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/view"), nil)
	require.NoError(t, err)
	defer viewer.Close()

	source, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/source"), nil)
	require.NoError(t, err)
	defer source.Close()

	want := upd(42)
	require.NoError(t, source.WriteJSON(want))

	require.NoError(t, viewer.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got Update
	require.NoError(t, viewer.ReadJSON(&got))
	assert.Equal(t, want.Position, got.Position)
}

func TestServeLatest(t *testing.T) {
	h, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/latest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	h.Publish(upd(9))
	resp, err = http.Get(srv.URL + "/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got Update
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 9.0, got.Position[0])
}
