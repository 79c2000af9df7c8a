package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Live feed defaults: poll every 30s while the push channel is down, retry
// the connection after 5s.
const (
	DefaultPollInterval   = 30 * time.Second
	DefaultReconnectDelay = 5 * time.Second
)

// FeedState is the connection state of the live feed.
type FeedState int

const (
	// StateConnecting: a push channel connect attempt is in flight.
	StateConnecting FeedState = iota
	// StateConnected: push messages drive the mirror; no polling runs.
	StateConnected
	// StateDisconnected: polling drives the mirror until reconnection.
	StateDisconnected
)

// Push message types, mirrored from the server's hub.
const (
	eventAmbulancesUpdate      = "AMBULANCES_UPDATE"
	eventRequestsUpdate        = "REQUESTS_UPDATE"
	eventAmbulanceStatusChange = "AMBULANCE_STATUS_CHANGE"
	eventRequestStatusChange   = "REQUEST_STATUS_CHANGE"
	eventNewEmergencyRequest   = "NEW_EMERGENCY_REQUEST"
)

type feedEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// FeedStats are dashboard counters derived from the current mirror.
type FeedStats struct {
	TotalAmbulances      int
	AvailableAmbulances  int
	DispatchedAmbulances int
	OnDutyAmbulances     int
	TotalRequests        int
	PendingRequests      int
	ActiveRequests       int
}

// FeedOptions configures a LiveFeed.
type FeedOptions struct {
	// WSURL is the push channel endpoint, e.g. "ws://host/ws/live-updates".
	WSURL string
	// EnableWebSocket gates the push channel; when false the feed polls only.
	EnableWebSocket bool
	// PollInterval is the fallback polling period. Zero means the default.
	PollInterval time.Duration
	// ReconnectDelay is the wait before a reconnect attempt. Zero means the default.
	ReconnectDelay time.Duration
	// OnError receives asynchronous failures (poll errors, rejected
	// optimistic updates). May be nil.
	OnError func(error)
}

// LiveFeed maintains an in-memory mirror of ambulances and requests, kept
// current via the push channel with interval polling as fallback. Exactly one
// of {push subscription, poll timer} is active once the initial connect
// attempt settles; overlap happens only transiently during reconnection.
type LiveFeed struct {
	client *Client
	opts   FeedOptions

	mu         sync.Mutex
	ambulances []Ambulance
	requests   []EmergencyRequest
	state      FeedState
	loading    bool
	closed     bool
	conn       *websocket.Conn
	pollStop   chan struct{}
	reconnect  *time.Timer
}

// NewLiveFeed creates a live feed over the gateway. Call Start to begin.
func NewLiveFeed(c *Client, opts FeedOptions) *LiveFeed {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	return &LiveFeed{
		client:  c,
		opts:    opts,
		state:   StateConnecting,
		loading: true,
	}
}

// Start performs the initial fetch-all, then opens the push channel (or
// starts polling when the channel is disabled).
func (f *LiveFeed) Start(ctx context.Context) {
	f.Refresh(ctx)

	f.mu.Lock()
	f.loading = false
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return
	}

	if f.opts.EnableWebSocket {
		go f.connect()
	} else {
		f.mu.Lock()
		f.state = StateDisconnected
		f.startPollingLocked()
		f.mu.Unlock()
	}
}

// Close tears down the socket, the reconnect timer and the poll timer.
// Nothing owned by the feed survives a Close.
func (f *LiveFeed) Close() {
	f.mu.Lock()
	f.closed = true
	f.stopPollingLocked()
	if f.reconnect != nil {
		f.reconnect.Stop()
		f.reconnect = nil
	}
	conn := f.conn
	f.conn = nil
	f.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// State returns the current connection state.
func (f *LiveFeed) State() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Connected reports whether the push channel is open.
func (f *LiveFeed) Connected() bool {
	return f.State() == StateConnected
}

// Loading reports whether the initial fetch is still in progress.
func (f *LiveFeed) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// Snapshot returns copies of the current ambulance and request mirrors.
func (f *LiveFeed) Snapshot() ([]Ambulance, []EmergencyRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ambulances := make([]Ambulance, len(f.ambulances))
	copy(ambulances, f.ambulances)
	requests := make([]EmergencyRequest, len(f.requests))
	copy(requests, f.requests)
	return ambulances, requests
}

// Stats derives dashboard counters from the current mirror.
func (f *LiveFeed) Stats() FeedStats {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := FeedStats{
		TotalAmbulances: len(f.ambulances),
		TotalRequests:   len(f.requests),
	}
	for _, a := range f.ambulances {
		switch a.Status {
		case AmbulanceAvailable:
			stats.AvailableAmbulances++
		case AmbulanceDispatched:
			stats.DispatchedAmbulances++
		case AmbulanceOnDuty:
			stats.OnDutyAmbulances++
		}
	}
	for _, r := range f.requests {
		if r.Status == RequestPending {
			stats.PendingRequests++
		}
		if !IsTerminalStatus(r.Status) {
			stats.ActiveRequests++
		}
	}
	return stats
}

// Refresh performs one immediate fetch-all and replaces the mirror
// wholesale, regardless of connection state. Either half failing degrades to
// an empty slice so the rest of a dashboard still renders.
func (f *LiveFeed) Refresh(ctx context.Context) {
	ambulances, err := f.client.Ambulances(ctx)
	if err != nil {
		f.reportError(err)
		ambulances = nil
	}

	var requests []EmergencyRequest
	if page, err := f.client.Requests(ctx, 0, 100, ""); err != nil {
		f.reportError(err)
	} else {
		requests = page.Content
	}

	f.mu.Lock()
	f.ambulances = ambulances
	f.requests = requests
	f.mu.Unlock()
}

// UpdateAmbulanceStatus applies the status change to the mirror immediately,
// then fires the remote call. On failure the optimistic write is reverted to
// the prior entity state and the error reported through OnError.
func (f *LiveFeed) UpdateAmbulanceStatus(ctx context.Context, id, status string) error {
	var prev *Ambulance
	f.mu.Lock()
	for i := range f.ambulances {
		if f.ambulances[i].ID == id {
			snapshot := f.ambulances[i]
			prev = &snapshot
			f.ambulances[i].Status = status
			break
		}
	}
	f.mu.Unlock()

	_, err := f.client.UpdateAmbulanceStatus(ctx, id, status)
	if err == nil {
		return nil
	}

	if prev != nil {
		f.mu.Lock()
		for i := range f.ambulances {
			if f.ambulances[i].ID == id {
				f.ambulances[i] = *prev
				break
			}
		}
		f.mu.Unlock()
	}
	f.reportError(err)
	return err
}

// connect attempts to open the push channel. Failure counts as a disconnect:
// polling starts and a reconnect is scheduled.
func (f *LiveFeed) connect() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.state = StateConnecting
	f.mu.Unlock()

	header := http.Header{}
	if token := f.client.Credentials().Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(f.opts.WSURL, header)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		f.reportError(err)
		f.handleDisconnect()
		return
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		conn.Close()
		return
	}
	f.conn = conn
	f.state = StateConnected
	// Entry action for Connected: the poll timer stops.
	f.stopPollingLocked()
	f.mu.Unlock()

	go f.readLoop(conn)
}

// readLoop applies push messages in arrival order until the channel closes.
func (f *LiveFeed) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			f.handleDisconnect()
			return
		}
		f.apply(data)
	}
}

// handleDisconnect is the entry action for Disconnected: start the fallback
// poll timer and schedule one reconnect attempt.
func (f *LiveFeed) handleDisconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.conn = nil
	f.state = StateDisconnected
	f.startPollingLocked()
	if f.reconnect != nil {
		f.reconnect.Stop()
	}
	f.reconnect = time.AfterFunc(f.opts.ReconnectDelay, func() { f.connect() })
}

func (f *LiveFeed) startPollingLocked() {
	if f.pollStop != nil {
		return // Already polling.
	}
	stop := make(chan struct{})
	f.pollStop = stop
	go f.pollLoop(stop)
}

func (f *LiveFeed) stopPollingLocked() {
	if f.pollStop != nil {
		close(f.pollStop)
		f.pollStop = nil
	}
}

func (f *LiveFeed) pollLoop(stop chan struct{}) {
	ticker := time.NewTicker(f.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			f.poll()
		}
	}
}

// poll fetches both collections; a failed tick leaves the mirror untouched.
func (f *LiveFeed) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	ambulances, err := f.client.Ambulances(ctx)
	if err != nil {
		f.reportError(err)
		return
	}
	page, err := f.client.Requests(ctx, 0, 100, "")
	if err != nil {
		f.reportError(err)
		return
	}

	f.mu.Lock()
	f.ambulances = ambulances
	f.requests = page.Content
	f.mu.Unlock()
}

// apply merges one push message into the mirror. Full-list events replace
// wholesale; single-entity events replace by id, last write wins.
func (f *LiveFeed) apply(data []byte) {
	var event feedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return // Ignore malformed messages.
	}

	switch event.Type {
	case eventAmbulancesUpdate:
		var ambulances []Ambulance
		if err := json.Unmarshal(event.Payload, &ambulances); err != nil {
			return
		}
		f.mu.Lock()
		f.ambulances = ambulances
		f.mu.Unlock()

	case eventRequestsUpdate:
		var requests []EmergencyRequest
		if err := json.Unmarshal(event.Payload, &requests); err != nil {
			return
		}
		f.mu.Lock()
		f.requests = requests
		f.mu.Unlock()

	case eventAmbulanceStatusChange:
		var ambulance Ambulance
		if err := json.Unmarshal(event.Payload, &ambulance); err != nil {
			return
		}
		f.mu.Lock()
		for i := range f.ambulances {
			if f.ambulances[i].ID == ambulance.ID {
				f.ambulances[i] = ambulance
				break
			}
		}
		f.mu.Unlock()

	case eventRequestStatusChange:
		var request EmergencyRequest
		if err := json.Unmarshal(event.Payload, &request); err != nil {
			return
		}
		f.mu.Lock()
		for i := range f.requests {
			if f.requests[i].ID == request.ID {
				f.requests[i] = request
				break
			}
		}
		f.mu.Unlock()

	case eventNewEmergencyRequest:
		var request EmergencyRequest
		if err := json.Unmarshal(event.Payload, &request); err != nil {
			return
		}
		f.mu.Lock()
		f.requests = append([]EmergencyRequest{request}, f.requests...)
		f.mu.Unlock()
	}
}

func (f *LiveFeed) reportError(err error) {
	if f.opts.OnError != nil {
		f.opts.OnError(err)
	}
}
