package presence

import (
	"context"
	"sync"
	"time"

	"github.com/meetnearby/meetnearby/pkg/logger"
)

type TrackerConfig struct {
	DebounceWindow    time.Duration
	WriteCooldown     time.Duration
	RecomputeInterval time.Duration
}

// Tracker keeps the viewer's own online flag accurate server-side and a
// bounded relevant-id set of other users fresh client-side. One tracker
// per attached view.
type Tracker struct {
	id         string
	writer     Writer
	subscriber Subscriber
	cfg        TrackerConfig
	log        logger.Logger
	now        func() time.Time

	// relevantFn recomputes the tracked id set (closest nearby users plus
	// recent chat partners). Called at most once per recompute interval.
	relevantFn func(ctx context.Context) []string

	// patch applies an online-flag change to matching list entries.
	patch func(id string, online bool)

	mu              sync.Mutex
	relevant        map[string]struct{}
	pending         *time.Timer
	pendingState    bool
	lastOnlineWrite time.Time
}

func NewTracker(
	id string,
	writer Writer,
	subscriber Subscriber,
	relevantFn func(ctx context.Context) []string,
	patch func(id string, online bool),
	cfg TrackerConfig,
	log logger.Logger,
) *Tracker {
	return &Tracker{
		id:         id,
		writer:     writer,
		subscriber: subscriber,
		relevantFn: relevantFn,
		patch:      patch,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
		relevant:   make(map[string]struct{}),
	}
}

// Start marks the viewer online immediately (write-through, no debounce on
// the online transition) and runs the subscription loop until ctx is
// cancelled. On teardown any pending debounced write is discarded and an
// explicit offline write is issued.
func (t *Tracker) Start(ctx context.Context) {
	if err := t.writer.SetOnline(ctx, t.id, true); err != nil {
		t.log.Warn("initial online write failed", "user", t.id, "error", err)
	} else {
		t.mu.Lock()
		t.lastOnlineWrite = t.now()
		t.mu.Unlock()
	}

	t.recompute(ctx)
	sub, events := t.resubscribe(ctx, nil)

	ticker := time.NewTicker(t.cfg.RecomputeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.recompute(ctx)
			sub, events = t.resubscribe(ctx, sub)
		case ev, ok := <-events:
			if !ok {
				// Channel failure; retried on the next recompute tick.
				events = nil
				continue
			}
			t.handle(ev)
		case <-ctx.Done():
			if sub != nil {
				sub.Close()
			}
			t.teardown()
			return
		}
	}
}

// SetVisible records a tab-visibility transition. Going hidden writes
// offline immediately, best effort. Going visible is debounced so rapid
// toggles collapse into the final state, and skipped when the cooldown
// since the last successful online write has not elapsed.
func (t *Tracker) SetVisible(visible bool) {
	t.mu.Lock()
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}

	if !visible {
		t.mu.Unlock()
		go t.writeNow(false)
		return
	}

	t.pendingState = true
	t.pending = time.AfterFunc(t.cfg.DebounceWindow, t.flushPending)
	t.mu.Unlock()
}

func (t *Tracker) flushPending() {
	t.mu.Lock()
	t.pending = nil
	state := t.pendingState

	if state && t.now().Sub(t.lastOnlineWrite) < t.cfg.WriteCooldown {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.writeNow(state)
}

func (t *Tracker) writeNow(online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := t.writer.SetOnline(ctx, t.id, online); err != nil {
		// Routine heartbeat failure, swallowed.
		t.log.Debug("presence write failed", "user", t.id, "online", online, "error", err)
		return
	}

	if online {
		t.mu.Lock()
		t.lastOnlineWrite = t.now()
		t.mu.Unlock()
	}
}

func (t *Tracker) recompute(ctx context.Context) {
	ids := t.relevantFn(ctx)

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	t.mu.Lock()
	t.relevant = set
	t.mu.Unlock()
}

// resubscribe tears down the previous subscription before opening a new
// one so the same logical channel is never attached twice.
func (t *Tracker) resubscribe(ctx context.Context, old Subscription) (Subscription, <-chan StatusEvent) {
	if old != nil {
		if err := old.Close(); err != nil {
			t.log.Debug("failed to close presence subscription", "error", err)
		}
	}

	sub, err := t.subscriber.Subscribe(ctx)
	if err != nil {
		t.log.Debug("presence subscribe failed", "error", err)
		return nil, nil
	}
	return sub, sub.Events()
}

func (t *Tracker) handle(ev StatusEvent) {
	t.mu.Lock()
	_, tracked := t.relevant[ev.ID]
	t.mu.Unlock()

	if !tracked {
		return
	}
	t.patch(ev.ID, ev.Online)
}

// Tracked reports whether an id is currently in the relevant set.
func (t *Tracker) Tracked(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.relevant[id]
	return ok
}

func (t *Tracker) teardown() {
	t.mu.Lock()
	if t.pending != nil {
		// Discard, never flush: the final state is the explicit offline
		// write below.
		t.pending.Stop()
		t.pending = nil
	}
	t.mu.Unlock()

	t.writeNow(false)
}
