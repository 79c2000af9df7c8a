package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func mustEvent(t *testing.T, eventType string, payload interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	})
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	return data
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newIdleFeed() *LiveFeed {
	return NewLiveFeed(New("http://unused.invalid", newTestCredentials()), FeedOptions{})
}

func TestApplyReplacesFullListsWholesale(t *testing.T) {
	feed := newIdleFeed()

	feed.apply(mustEvent(t, eventAmbulancesUpdate, []Ambulance{
		{ID: "a1", Status: AmbulanceAvailable},
		{ID: "a2", Status: AmbulanceOnDuty},
	}))
	feed.apply(mustEvent(t, eventRequestsUpdate, []EmergencyRequest{
		{ID: "r1", Status: RequestPending},
	}))

	ambulances, requests := feed.Snapshot()
	if len(ambulances) != 2 || len(requests) != 1 {
		t.Fatalf("expected 2 ambulances and 1 request, got %d/%d", len(ambulances), len(requests))
	}

	// A later full update replaces, never merges.
	feed.apply(mustEvent(t, eventAmbulancesUpdate, []Ambulance{{ID: "a3"}}))
	ambulances, _ = feed.Snapshot()
	if len(ambulances) != 1 || ambulances[0].ID != "a3" {
		t.Errorf("full update should replace the mirror, got %v", ambulances)
	}
}

func TestApplyMergesSingleEntityEventsByID(t *testing.T) {
	feed := newIdleFeed()
	feed.apply(mustEvent(t, eventAmbulancesUpdate, []Ambulance{
		{ID: "a1", Status: AmbulanceAvailable},
		{ID: "a2", Status: AmbulanceAvailable},
	}))
	feed.apply(mustEvent(t, eventRequestsUpdate, []EmergencyRequest{
		{ID: "r1", Status: RequestPending},
	}))

	feed.apply(mustEvent(t, eventAmbulanceStatusChange, Ambulance{ID: "a2", Status: AmbulanceDispatched}))
	feed.apply(mustEvent(t, eventRequestStatusChange, EmergencyRequest{ID: "r1", Status: RequestDispatched}))

	ambulances, requests := feed.Snapshot()
	if ambulances[0].Status != AmbulanceAvailable || ambulances[1].Status != AmbulanceDispatched {
		t.Errorf("status change should replace only the matching ambulance, got %v", ambulances)
	}
	if requests[0].Status != RequestDispatched {
		t.Errorf("status change should replace the matching request, got %v", requests)
	}

	// Messages apply in arrival order: the last write wins.
	feed.apply(mustEvent(t, eventAmbulanceStatusChange, Ambulance{ID: "a2", Status: AmbulanceOnDuty}))
	ambulances, _ = feed.Snapshot()
	if ambulances[1].Status != AmbulanceOnDuty {
		t.Errorf("last status change should win, got %s", ambulances[1].Status)
	}

	// An update for an unknown entity is dropped.
	feed.apply(mustEvent(t, eventAmbulanceStatusChange, Ambulance{ID: "ghost", Status: AmbulanceOnDuty}))
	ambulances, _ = feed.Snapshot()
	if len(ambulances) != 2 {
		t.Errorf("unknown entity must not be inserted, got %d ambulances", len(ambulances))
	}
}

func TestApplyPrependsNewRequests(t *testing.T) {
	feed := newIdleFeed()
	feed.apply(mustEvent(t, eventRequestsUpdate, []EmergencyRequest{{ID: "r1"}}))
	feed.apply(mustEvent(t, eventNewEmergencyRequest, EmergencyRequest{ID: "r2", Status: RequestPending}))

	_, requests := feed.Snapshot()
	if len(requests) != 2 || requests[0].ID != "r2" || requests[1].ID != "r1" {
		t.Errorf("new requests should be prepended, got %v", requests)
	}
}

func TestApplyIgnoresMalformedMessages(t *testing.T) {
	feed := newIdleFeed()
	feed.apply(mustEvent(t, eventAmbulancesUpdate, []Ambulance{{ID: "a1"}}))

	feed.apply([]byte("not json at all"))
	feed.apply(mustEvent(t, "UNKNOWN_EVENT", "whatever"))
	feed.apply([]byte(`{"type":"AMBULANCES_UPDATE","payload":"not a list"}`))

	ambulances, _ := feed.Snapshot()
	if len(ambulances) != 1 {
		t.Errorf("malformed messages must leave the mirror untouched, got %v", ambulances)
	}
}

func TestStats(t *testing.T) {
	feed := newIdleFeed()
	feed.apply(mustEvent(t, eventAmbulancesUpdate, []Ambulance{
		{ID: "a1", Status: AmbulanceAvailable},
		{ID: "a2", Status: AmbulanceDispatched},
		{ID: "a3", Status: AmbulanceOnDuty},
		{ID: "a4", Status: AmbulanceMaintenance},
	}))
	feed.apply(mustEvent(t, eventRequestsUpdate, []EmergencyRequest{
		{ID: "r1", Status: RequestPending},
		{ID: "r2", Status: RequestDispatched},
		{ID: "r3", Status: RequestCompleted},
		{ID: "r4", Status: RequestCancelled},
	}))

	stats := feed.Stats()
	if stats.TotalAmbulances != 4 || stats.AvailableAmbulances != 1 ||
		stats.DispatchedAmbulances != 1 || stats.OnDutyAmbulances != 1 {
		t.Errorf("unexpected ambulance stats: %+v", stats)
	}
	if stats.TotalRequests != 4 || stats.PendingRequests != 1 || stats.ActiveRequests != 2 {
		t.Errorf("unexpected request stats: %+v", stats)
	}
}

func TestRefreshDegradesPerCollection(t *testing.T) {
	var errCount int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ambulances", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, nil, "fleet store is down")
	})
	mux.HandleFunc("/api/requests", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, RequestPage{
			Content: []EmergencyRequest{{ID: "r1"}, {ID: "r2"}},
		}, "")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	feed := NewLiveFeed(New(server.URL, newTestCredentials()), FeedOptions{
		OnError: func(error) { atomic.AddInt64(&errCount, 1) },
	})
	feed.Refresh(context.Background())

	ambulances, requests := feed.Snapshot()
	if len(ambulances) != 0 {
		t.Errorf("failed half should degrade to empty, got %v", ambulances)
	}
	if len(requests) != 2 {
		t.Errorf("healthy half should still load, got %d requests", len(requests))
	}
	if atomic.LoadInt64(&errCount) == 0 {
		t.Error("the failure should be reported through OnError")
	}
}

func TestOptimisticUpdateRevertsOnFailure(t *testing.T) {
	var errCount int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ambulances/a1/status", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, nil, "write failed")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	feed := NewLiveFeed(New(server.URL, newTestCredentials()), FeedOptions{
		OnError: func(error) { atomic.AddInt64(&errCount, 1) },
	})
	feed.apply(mustEvent(t, eventAmbulancesUpdate, []Ambulance{
		{ID: "a1", Status: AmbulanceOnDuty, DriverName: "Alex Carter"},
	}))

	err := feed.UpdateAmbulanceStatus(context.Background(), "a1", AmbulanceAvailable)
	if err == nil {
		t.Fatal("expected the rejected update to surface an error")
	}

	ambulances, _ := feed.Snapshot()
	if ambulances[0].Status != AmbulanceOnDuty {
		t.Errorf("rejected update should be reverted, got %s", ambulances[0].Status)
	}
	if ambulances[0].DriverName != "Alex Carter" {
		t.Error("revert should restore the prior entity state")
	}
	if atomic.LoadInt64(&errCount) == 0 {
		t.Error("the failure should be reported through OnError")
	}
}

func TestOptimisticUpdateKeepsSuccessfulWrite(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ambulances/a1/status", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, Ambulance{ID: "a1", Status: AmbulanceAvailable}, "")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	feed := NewLiveFeed(New(server.URL, newTestCredentials()), FeedOptions{})
	feed.apply(mustEvent(t, eventAmbulancesUpdate, []Ambulance{
		{ID: "a1", Status: AmbulanceOnDuty},
	}))

	if err := feed.UpdateAmbulanceStatus(context.Background(), "a1", AmbulanceAvailable); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ambulances, _ := feed.Snapshot()
	if ambulances[0].Status != AmbulanceAvailable {
		t.Errorf("successful update should stick, got %s", ambulances[0].Status)
	}
}

// feedServer backs the lifecycle tests: REST endpoints with a poll counter
// and a push endpoint that accepts a single connection.
type feedServer struct {
	server    *httptest.Server
	pollCount int64
	wsConns   chan *websocket.Conn
	accepting int32
}

func newFeedServer(t *testing.T) *feedServer {
	t.Helper()

	fs := &feedServer{wsConns: make(chan *websocket.Conn, 4), accepting: 1}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/ambulances", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&fs.pollCount, 1)
		writeEnvelope(w, http.StatusOK, []Ambulance{{ID: "a1", Status: AmbulanceAvailable}}, "")
	})
	mux.HandleFunc("/api/requests", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, RequestPage{Content: []EmergencyRequest{{ID: "r1"}}}, "")
	})
	mux.HandleFunc("/ws/live-updates", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&fs.accepting) == 0 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.wsConns <- conn
	})

	fs.server = httptest.NewServer(mux)
	return fs
}

func (fs *feedServer) wsURL() string {
	return "ws" + strings.TrimPrefix(fs.server.URL, "http") + "/ws/live-updates"
}

func (fs *feedServer) close() {
	close(fs.wsConns)
	for conn := range fs.wsConns {
		conn.Close()
	}
	fs.server.Close()
}

func TestFeedConnectsAndAppliesPushMessages(t *testing.T) {
	fs := newFeedServer(t)
	defer fs.close()

	feed := NewLiveFeed(New(fs.server.URL, newTestCredentials()), FeedOptions{
		WSURL:           fs.wsURL(),
		EnableWebSocket: true,
		PollInterval:    time.Hour, // polling must not be needed while connected
	})
	feed.Start(context.Background())
	defer feed.Close()

	if feed.Loading() {
		t.Error("Start should end the loading state")
	}
	waitFor(t, 2*time.Second, "push channel to connect", feed.Connected)

	conn := <-fs.wsConns
	msg := mustEvent(t, eventNewEmergencyRequest, EmergencyRequest{ID: "r2", Status: RequestPending})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("failed to push message: %v", err)
	}

	waitFor(t, 2*time.Second, "push message to apply", func() bool {
		_, requests := feed.Snapshot()
		return len(requests) == 2 && requests[0].ID == "r2"
	})
}

func TestFeedDoesNotPollWhileConnected(t *testing.T) {
	fs := newFeedServer(t)
	defer fs.close()

	feed := NewLiveFeed(New(fs.server.URL, newTestCredentials()), FeedOptions{
		WSURL:           fs.wsURL(),
		EnableWebSocket: true,
		PollInterval:    20 * time.Millisecond,
	})
	feed.Start(context.Background())
	defer feed.Close()

	waitFor(t, 2*time.Second, "push channel to connect", feed.Connected)

	// Let any tick started before the connect settled finish, then watch the
	// counter across several poll intervals.
	time.Sleep(30 * time.Millisecond)
	baseline := atomic.LoadInt64(&fs.pollCount)
	time.Sleep(120 * time.Millisecond)

	if !feed.Connected() {
		t.Fatal("push channel dropped during the observation window")
	}
	if got := atomic.LoadInt64(&fs.pollCount); got != baseline {
		t.Errorf("no poll may fire while the push channel is open, count moved from %d to %d", baseline, got)
	}
}

func TestFeedFallsBackToPollingOnDisconnect(t *testing.T) {
	fs := newFeedServer(t)
	defer fs.close()

	feed := NewLiveFeed(New(fs.server.URL, newTestCredentials()), FeedOptions{
		WSURL:           fs.wsURL(),
		EnableWebSocket: true,
		PollInterval:    20 * time.Millisecond,
		ReconnectDelay:  10 * time.Millisecond,
	})
	feed.Start(context.Background())
	defer feed.Close()

	waitFor(t, 2*time.Second, "push channel to connect", feed.Connected)

	// Refuse further connections, then drop the live one.
	atomic.StoreInt32(&fs.accepting, 0)
	baseline := atomic.LoadInt64(&fs.pollCount)
	conn := <-fs.wsConns
	conn.Close()

	waitFor(t, 2*time.Second, "feed to notice the disconnect", func() bool {
		return feed.State() == StateDisconnected
	})
	waitFor(t, 2*time.Second, "fallback polling to run", func() bool {
		return atomic.LoadInt64(&fs.pollCount) > baseline
	})
}

func TestFeedWithoutWebSocketPolls(t *testing.T) {
	fs := newFeedServer(t)
	defer fs.close()

	feed := NewLiveFeed(New(fs.server.URL, newTestCredentials()), FeedOptions{
		PollInterval: 20 * time.Millisecond,
	})
	feed.Start(context.Background())
	defer feed.Close()

	if feed.Connected() {
		t.Error("feed should not report a push connection when disabled")
	}
	// Start's fetch-all plus at least one poll tick.
	waitFor(t, 2*time.Second, "poll ticks", func() bool {
		return atomic.LoadInt64(&fs.pollCount) >= 2
	})

	ambulances, requests := feed.Snapshot()
	if len(ambulances) != 1 || len(requests) != 1 {
		t.Errorf("polling should populate the mirror, got %d/%d", len(ambulances), len(requests))
	}
}

func TestCloseStopsPollingAndReconnects(t *testing.T) {
	fs := newFeedServer(t)
	defer fs.close()

	feed := NewLiveFeed(New(fs.server.URL, newTestCredentials()), FeedOptions{
		PollInterval: 20 * time.Millisecond,
	})
	feed.Start(context.Background())

	waitFor(t, 2*time.Second, "polling to start", func() bool {
		return atomic.LoadInt64(&fs.pollCount) >= 2
	})

	feed.Close()
	feed.Close() // closing twice is safe

	// Allow any in-flight tick to finish, then verify polling stopped.
	time.Sleep(50 * time.Millisecond)
	settled := atomic.LoadInt64(&fs.pollCount)
	time.Sleep(80 * time.Millisecond)
	if got := atomic.LoadInt64(&fs.pollCount); got != settled {
		t.Errorf("polling must stop after Close, count moved from %d to %d", settled, got)
	}
}
