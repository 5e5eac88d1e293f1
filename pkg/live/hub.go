package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/reactive/pkg/collection"
	"github.com/vango-dev/reactive/pkg/reactive"
)

// Errors returned by the publish functions.
var (
	ErrDuplicateFeed = errors.New("live: feed already published")
	ErrHubClosed     = errors.New("live: hub closed")
)

// Config configures a Hub.
type Config struct {
	// WriteTimeout bounds every WebSocket write (default: 10s).
	WriteTimeout time.Duration

	// PingInterval is the keepalive period for WebSocket connections
	// (default: 30s).
	PingInterval time.Duration

	// SendBuffer is the number of snapshots queued per connection before it
	// is considered too slow and dropped (default: 16).
	SendBuffer int

	// CheckOrigin is passed to the WebSocket upgrader. Nil allows all
	// origins.
	CheckOrigin func(r *http.Request) bool

	// Logger receives connection lifecycle records (default: slog.Default()).
	Logger *slog.Logger

	// Registry receives the hub's Prometheus collectors. Nil disables
	// metrics.
	Registry prometheus.Registerer

	// Namespace prefixes metric names (default: "reactive").
	Namespace string
}

// DefaultConfig returns the default hub configuration.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		SendBuffer:   16,
		Namespace:    "reactive",
	}
}

// Snapshot is the JSON message carrying the content of a feed.
type Snapshot struct {
	Name  string `json:"name"`
	Seq   uint64 `json:"seq"`
	Items any    `json:"items"`
}

// FeedInfo describes a feed in the listing.
type FeedInfo struct {
	Name        string `json:"name"`
	Seq         uint64 `json:"seq"`
	Connections int    `json:"connections"`
}

// feed holds the latest encoded snapshot of one source and fans new ones
// out to connections.
type feed struct {
	name string

	mu   sync.Mutex
	seq  uint64
	last []byte
	out  reactive.Channel[[]byte]
}

func (f *feed) push(items any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(Snapshot{Name: f.name, Seq: f.seq + 1, Items: items})
	if err != nil {
		return fmt.Errorf("encode snapshot %q: %w", f.name, err)
	}
	f.seq++
	f.last = data
	return f.out.Fire(data)
}

// subscribe registers fn and hands it the latest snapshot without letting a
// concurrent push slip between the two.
func (f *feed) subscribe(fn func([]byte), scope *reactive.Scope) *reactive.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()

	h := f.out.Subscribe(fn, scope)
	if f.last != nil && h.Active() {
		fn(f.last)
	}
	return h
}

func (f *feed) info() FeedInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FeedInfo{Name: f.name, Seq: f.seq, Connections: f.out.Len()}
}

func (f *feed) snapshot() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Hub serves published feeds.
type Hub struct {
	config   Config
	logger   *slog.Logger
	upgrader websocket.Upgrader
	router   chi.Router
	metrics  *metrics

	// scope owns every publisher subscription and every connection scope.
	scope *reactive.Scope

	mu    sync.RWMutex
	feeds map[string]*feed

	conns atomic.Int64
}

// NewHub creates a hub. Zero fields of config take their defaults.
func NewHub(config Config) *Hub {
	defaults := DefaultConfig()
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = defaults.SendBuffer
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Namespace == "" {
		config.Namespace = defaults.Namespace
	}
	checkOrigin := config.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	h := &Hub{
		config: config,
		logger: config.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		scope: reactive.NewScope(nil),
		feeds: make(map[string]*feed),
	}
	if config.Registry != nil {
		h.metrics = newMetrics(config.Registry, config.Namespace)
	}

	r := chi.NewRouter()
	r.Get("/collections", h.handleList)
	r.Get("/collections/{name}", h.handleSnapshot)
	r.Get("/collections/{name}/ws", h.handleStream)
	h.router = r
	return h
}

// Handler returns the HTTP handler serving the hub's routes.
func (h *Hub) Handler() http.Handler {
	return h.router
}

// Connections returns the number of open WebSocket connections.
func (h *Hub) Connections() int {
	return int(h.conns.Load())
}

// Close stops every publisher and closes every connection. It is
// idempotent.
func (h *Hub) Close() {
	h.scope.Cancel()
}

// register creates the feed for name.
func (h *Hub) register(name string) (*feed, error) {
	if h.scope.Cancelled() {
		return nil, ErrHubClosed
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.feeds[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateFeed, name)
	}
	f := &feed{name: name}
	h.feeds[name] = f
	return f, nil
}

func (h *Hub) lookup(name string) (*feed, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	f, ok := h.feeds[name]
	return f, ok
}

// Feeds lists the published feeds sorted by name.
func (h *Hub) Feeds() []FeedInfo {
	h.mu.RLock()
	feeds := make([]*feed, 0, len(h.feeds))
	for _, f := range h.feeds {
		feeds = append(feeds, f)
	}
	h.mu.RUnlock()

	infos := make([]FeedInfo, len(feeds))
	for i, f := range feeds {
		infos[i] = f.info()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Publish streams the content of c under its name. The current content is
// published immediately.
func Publish[T comparable](h *Hub, c *collection.Collection[T]) error {
	f, err := h.register(c.Name())
	if err != nil {
		return err
	}
	c.ListenAndRepeat(func(ch collection.Change[T]) {
		if err := f.push(ch.NewState); err != nil {
			h.logger.Error("publish failed", "feed", f.name, "error", err)
		}
	}, h.scope)
	return nil
}

// PublishSet streams the members of s under its name.
func PublishSet[T comparable](h *Hub, s *collection.KeyedSet[T]) error {
	f, err := h.register(s.Name())
	if err != nil {
		return err
	}
	push := func() {
		if err := f.push(s.ToSlice()); err != nil {
			h.logger.Error("publish failed", "feed", f.name, "error", err)
		}
	}
	s.Listen(func(collection.SetChange[T]) { push() }, h.scope)
	push()
	return nil
}

// PublishCell streams the value of c under name.
func PublishCell[T any](h *Hub, name string, c *reactive.Cell[T]) error {
	f, err := h.register(name)
	if err != nil {
		return err
	}
	c.ListenAndRepeat(func(v T) {
		if err := f.push(v); err != nil {
			h.logger.Error("publish failed", "feed", f.name, "error", err)
		}
	}, h.scope)
	return nil
}
