package client

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/park285/webchess/pkg/chessdto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type FeedState string

const (
	FeedDisconnected FeedState = "disconnected"
	FeedConnecting   FeedState = "connecting"
	FeedConnected    FeedState = "connected"
	FeedReconnecting FeedState = "reconnecting"
	FeedFailed       FeedState = "failed"
)

type EventCallback func(ev chessdto.Event)

type StateCallback func(state FeedState)

type eventCallbackEntry struct {
	id       int
	callback EventCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// Feed follows the server's websocket event stream and reconnects with
// backoff when the connection drops.
type Feed struct {
	wsURL string

	conn   *websocket.Conn
	connM  sync.Mutex
	state  FeedState
	stateM sync.RWMutex

	eventCbs []eventCallbackEntry
	stateCbs []stateCallbackEntry
	nextID   int
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	headerProvider HeaderProvider
}

func NewFeed(wsURL string, maxReconnectAttempts int) *Feed {
	ctx, cancel := context.WithCancel(context.Background())
	return &Feed{
		wsURL:                wsURL,
		state:                FeedDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
		rootCtx:              ctx,
		rootCancel:           cancel,
	}
}

// SetHeaderProvider allows injecting headers into the WS handshake.
func (f *Feed) SetHeaderProvider(h HeaderProvider) {
	f.headerProvider = h
}

func (f *Feed) Connect(ctx context.Context) error {
	f.stateM.RLock()
	state := f.state
	f.stateM.RUnlock()
	if state == FeedConnected || state == FeedConnecting {
		return nil
	}
	f.setState(FeedConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := f.dial(dialCtx)
	if err != nil {
		f.setState(FeedFailed)
		f.scheduleReconnect()
		return err
	}
	f.attach(conn)
	return nil
}

func (f *Feed) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, f.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      f.buildHeaders(),
	})
	return conn, err
}

func (f *Feed) attach(conn *websocket.Conn) {
	f.connM.Lock()
	f.conn = conn
	f.connM.Unlock()
	f.setState(FeedConnected)

	f.wg.Add(2)
	go f.listen(conn)
	go f.pingLoop(conn)
}

func (f *Feed) listen(conn *websocket.Conn) {
	defer f.wg.Done()
	for {
		var ev chessdto.Event
		if err := wsjson.Read(f.rootCtx, conn, &ev); err != nil {
			if f.isStopping() {
				return
			}
			f.setState(FeedDisconnected)
			f.closeConn(conn, websocket.StatusGoingAway, "reconnect")
			f.scheduleReconnect()
			return
		}

		f.cbM.RLock()
		callbacks := make([]eventCallbackEntry, len(f.eventCbs))
		copy(callbacks, f.eventCbs)
		f.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.callback != nil {
				entry.callback(ev)
			}
		}
	}
}

func (f *Feed) pingLoop(conn *websocket.Conn) {
	defer f.wg.Done()
	t := time.NewTicker(f.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-f.stopCh:
			return
		case <-f.rootCtx.Done():
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(f.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				// Closing unblocks listen, which schedules the reconnect.
				f.closeConn(conn, websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (f *Feed) scheduleReconnect() {
	if f.maxReconnectAttempts <= 0 || f.isStopping() {
		return
	}
	f.setState(FeedReconnecting)

	go func() {
		for attempt := 1; attempt <= f.maxReconnectAttempts; attempt++ {
			select {
			case <-f.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}

			dialCtx, cancel := context.WithTimeout(f.rootCtx, 10*time.Second)
			conn, err := f.dial(dialCtx)
			cancel()
			if err != nil {
				continue
			}
			f.attach(conn)
			return
		}
		f.setState(FeedFailed)
	}()
}

func (f *Feed) OnEvent(cb EventCallback) int {
	f.cbM.Lock()
	defer f.cbM.Unlock()
	f.nextID++
	f.eventCbs = append(f.eventCbs, eventCallbackEntry{id: f.nextID, callback: cb})
	return f.nextID
}

func (f *Feed) RemoveEventCallback(id int) {
	f.cbM.Lock()
	defer f.cbM.Unlock()
	for i, cb := range f.eventCbs {
		if cb.id == id {
			f.eventCbs = append(f.eventCbs[:i], f.eventCbs[i+1:]...)
			break
		}
	}
}

func (f *Feed) OnStateChange(cb StateCallback) int {
	f.cbM.Lock()
	defer f.cbM.Unlock()
	f.nextID++
	f.stateCbs = append(f.stateCbs, stateCallbackEntry{id: f.nextID, callback: cb})
	return f.nextID
}

func (f *Feed) RemoveStateCallback(id int) {
	f.cbM.Lock()
	defer f.cbM.Unlock()
	for i, cb := range f.stateCbs {
		if cb.id == id {
			f.stateCbs = append(f.stateCbs[:i], f.stateCbs[i+1:]...)
			break
		}
	}
}

func (f *Feed) State() FeedState {
	f.stateM.RLock()
	defer f.stateM.RUnlock()
	return f.state
}

func (f *Feed) setState(state FeedState) {
	f.stateM.Lock()
	f.state = state
	f.stateM.Unlock()

	f.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(f.stateCbs))
	copy(callbacks, f.stateCbs)
	f.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

func (f *Feed) Close(ctx context.Context) error {
	f.stopOnce.Do(func() { close(f.stopCh) })
	f.connM.Lock()
	conn := f.conn
	f.connM.Unlock()
	if conn != nil {
		f.closeConn(conn, websocket.StatusNormalClosure, "close")
	}
	f.rootCancel()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		f.setState(FeedDisconnected)
		return nil
	}
}

func (f *Feed) closeConn(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	f.connM.Lock()
	if f.conn == conn {
		f.conn = nil
	}
	f.connM.Unlock()
	_ = conn.Close(code, reason)
}

func (f *Feed) isStopping() bool {
	select {
	case <-f.stopCh:
		return true
	default:
		return false
	}
}

func (f *Feed) buildHeaders() http.Header {
	hdr := http.Header{}
	if f.headerProvider == nil {
		return hdr
	}
	for k, v := range f.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
