package store

import (
	"context"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const changeChannel = "records:changed"

// snapshotReader is the slice of the store the notifier needs to re-read a
// path after a change.
type snapshotReader interface {
	ReadOnce(ctx context.Context, path string) (Snapshot, error)
}

// Notifier fans record changes out to path subscriptions. A write anywhere
// under a subscribed path re-reads that path and delivers a fresh snapshot.
// When a Redis client is supplied, changes also travel through pub/sub so
// every instance sees writes made by its peers.
type Notifier struct {
	mu     sync.Mutex
	subs   map[string]map[uint64]chan Snapshot
	nextID uint64

	// deliverMu serializes read-then-send so a snapshot queued later was
	// also read later; subscribers always converge on the newest state
	deliverMu sync.Mutex

	reader snapshotReader
	rdb    *redis.Client
	origin string
	logger *zap.Logger
}

func NewNotifier(rdb *redis.Client, logger *zap.Logger) *Notifier {
	return &Notifier{
		subs:   make(map[string]map[uint64]chan Snapshot),
		rdb:    rdb,
		origin: ulid.Make().String(),
		logger: logger,
	}
}

func (n *Notifier) bind(reader snapshotReader) {
	n.reader = reader
}

// subscribe registers a long-lived subscription on path. The current value is
// delivered first, then one snapshot per change. The returned cancel is safe
// to call exactly once per the gateway contract, and tolerant of more.
func (n *Notifier) subscribe(path string) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 16)

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	if n.subs[path] == nil {
		n.subs[path] = make(map[uint64]chan Snapshot)
	}
	n.subs[path][id] = ch
	n.mu.Unlock()

	// first delivery: the current value, absent or not
	go n.deliver(path)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			if set, ok := n.subs[path]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(n.subs, path)
				}
			}
			n.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// changed dispatches a write locally and announces it to peer instances.
func (n *Notifier) changed(path string) {
	n.dispatch(path)
	if n.rdb == nil {
		return
	}
	payload := n.origin + "|" + path
	if err := n.rdb.Publish(context.Background(), changeChannel, payload).Err(); err != nil {
		n.logger.Warn("failed to publish record change", zap.String("path", path), zap.Error(err))
	}
}

// dispatch re-reads and delivers every subscribed path that observes a write
// at changed: the path itself and each of its ancestors.
func (n *Notifier) dispatch(changed string) {
	n.mu.Lock()
	var touched []string
	for _, p := range ancestors(changed) {
		if len(n.subs[p]) > 0 {
			touched = append(touched, p)
		}
	}
	n.mu.Unlock()

	for _, p := range touched {
		go n.deliver(p)
	}
}

func (n *Notifier) deliver(path string) {
	n.deliverMu.Lock()
	defer n.deliverMu.Unlock()

	snap, err := n.reader.ReadOnce(context.Background(), path)
	if err != nil {
		// a failed re-read stops this round of updates, nothing more
		n.logger.Warn("subscription re-read failed", zap.String("path", path), zap.Error(err))
		return
	}

	// sends stay under the lock so a concurrent cancel cannot close a
	// channel mid-delivery; they never block on the buffered channels
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[path] {
		select {
		case ch <- snap:
		default:
			// full buffer: evict the oldest queued snapshot so the slow
			// subscriber still ends up at the latest value
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Run consumes peer change announcements from Redis pub/sub until the context
// is cancelled. Without a Redis client it returns immediately.
func (n *Notifier) Run(ctx context.Context) {
	if n.rdb == nil {
		return
	}
	sub := n.rdb.Subscribe(ctx, changeChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			origin, path, found := strings.Cut(msg.Payload, "|")
			if !found || origin == n.origin {
				continue // our own writes were dispatched synchronously
			}
			n.dispatch(path)
		}
	}
}
