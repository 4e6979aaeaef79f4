package boardclient

import (
	"context"
	"sync"
	"time"

	"freebites/internal/board"
	"freebites/internal/models"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	// DefaultPollInterval matches the server's expectation that clients
	// re-fetch at least once a minute even when push delivery works.
	DefaultPollInterval = 60 * time.Second

	handshakeTimeout = 10 * time.Second
	maxReconnectWait = 60 * time.Second
)

// Watcher keeps a local copy of the card list current. It polls on a fixed
// interval and additionally refreshes whenever the server pushes a board
// event, so a missed push is corrected by the next poll at the latest. Both
// triggers run the same idempotent refresh.
type Watcher struct {
	client   *Client
	interval time.Duration
	onUpdate func([]models.Card)

	mu     sync.RWMutex
	cards  []models.Card
	filter board.Filter

	refreshCh chan struct{}
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithPollInterval overrides the poll interval.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.interval = d }
}

// WithOnUpdate registers a callback invoked with the full card list after
// every successful refresh.
func WithOnUpdate(fn func([]models.Card)) WatcherOption {
	return func(w *Watcher) { w.onUpdate = fn }
}

// NewWatcher creates a Watcher over the given client. Call Start to begin.
func NewWatcher(client *Client, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		client:    client,
		interval:  DefaultPollInterval,
		refreshCh: make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start performs an initial fetch and launches the poll loop and the push
// listener. It returns the initial fetch error, if any; the loops keep
// retrying regardless.
func (w *Watcher) Start(ctx context.Context) error {
	err := w.refresh(ctx)

	w.wg.Add(2)
	go w.pollLoop(ctx)
	go w.listenLoop(ctx)

	return err
}

// Close stops the watcher and waits for its goroutines.
func (w *Watcher) Close() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
}

// Cards returns the current filtered snapshot of the board.
func (w *Watcher) Cards() []models.Card {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]models.Card, 0, len(w.cards))
	for i := range w.cards {
		if w.filter.Match(&w.cards[i]) {
			out = append(out, w.cards[i])
		}
	}
	return out
}

// SetFilter replaces the view filter. The stored snapshot is unfiltered, so
// no refetch is needed.
func (w *Watcher) SetFilter(f board.Filter) {
	w.mu.Lock()
	w.filter = f
	w.mu.Unlock()
}

// RequestRefresh schedules a refresh. Multiple requests before the refresh
// runs coalesce into one.
func (w *Watcher) RequestRefresh() {
	select {
	case w.refreshCh <- struct{}{}:
	default:
	}
}

func (w *Watcher) pollLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = w.refresh(ctx)
		case <-w.refreshCh:
			_ = w.refresh(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// refresh replaces the snapshot with the server's card list. Refreshing twice
// for one change is harmless, which is what makes the poll and push triggers
// safe to combine.
func (w *Watcher) refresh(ctx context.Context) error {
	cards, err := w.client.ListCards(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.cards = cards
	w.mu.Unlock()

	if w.onUpdate != nil {
		w.onUpdate(cards)
	}
	return nil
}

// listenLoop maintains the push connection, reconnecting with exponential
// backoff. Every board event simply schedules a refresh; the event payload is
// advisory and the card list is always re-fetched from the server.
func (w *Watcher) listenLoop(ctx context.Context) {
	defer w.wg.Done()

	backoff := time.Second
	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := w.listenOnce(ctx); err == nil {
			backoff = time.Second
			continue
		}

		select {
		case <-time.After(backoff):
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

type boardEvent struct {
	Type string `json:"type"`
}

func (w *Watcher) listenOnce(ctx context.Context) error {
	ticket, err := w.client.IssueWSTicket(ctx)
	if err != nil {
		// Ticket issuance needs Redis; fall back to the token parameter.
		ticket = ""
	}

	wsURL, err := w.client.websocketURL(ticket)
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return err
	}
	defer conn.Close()

	// Close the socket when the watcher stops so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-w.stopChan:
			_ = conn.Close()
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	// The connection could have been established after changes were missed.
	w.RequestRefresh()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.stopChan:
				return nil
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		var event boardEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}

		switch event.Type {
		case "card_created", "card_edited", "card_deleted", "comment_created", "events_dropped":
			w.RequestRefresh()
		}
	}
}
