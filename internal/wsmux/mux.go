package wsmux

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devbox-run/agent/internal/logbuf"
)

// LogTarget is anything wsmux can subscribe to: a process.Record or a
// session.Record, both of which expose the shared ring/broadcaster
// substrate via these two methods.
type LogTarget interface {
	LogRing() *logbuf.Ring
	LogBroadcaster() *logbuf.Broadcaster
}

// Lookup resolves (kind, targetID) to a LogTarget, or ok=false on a miss.
// httpapi supplies this by composing the process and session registries.
type Lookup func(kind, targetID string) (LogTarget, bool)

// outboxSize is the bounded send queue per socket (SPEC_FULL.md §4.3
// backpressure: drop the oldest enqueued message rather than block the
// broadcaster).
const outboxSize = 256

type subscription struct {
	kind     string
	targetID string
	levels   map[string]bool // empty means "all levels"
	seq      int64
	consumer *logbuf.Consumer
	stop     chan struct{}
	once     sync.Once
}

func (s *subscription) cancel() {
	s.once.Do(func() { close(s.stop) })
}

func (s *subscription) nextSeq() int64 {
	return atomic.AddInt64(&s.seq, 1) - 1
}

// Conn drives one client's full-duplex socket: it owns the subscription
// table, a single writer goroutine, and a bounded drop-oldest outbox.
type Conn struct {
	ws     *websocket.Conn
	lookup Lookup

	mu   sync.Mutex
	subs map[string]*subscription

	outbox chan interface{}
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewConn wraps ws and starts its writer goroutine.
func NewConn(ws *websocket.Conn, lookup Lookup) *Conn {
	c := &Conn{
		ws:     ws,
		lookup: lookup,
		subs:   make(map[string]*subscription),
		outbox: make(chan interface{}, outboxSize),
		done:   make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// Serve reads client frames until the socket closes or errors, then tears
// down every live subscription so no consumer goroutine outlives the
// connection.
func (c *Conn) Serve() {
	defer c.teardown()
	for {
		var msg ClientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			return
		}
		c.handle(msg)
	}
}

func (c *Conn) teardown() {
	c.mu.Lock()
	subs := make([]*subscription, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.subs = make(map[string]*subscription)
	c.mu.Unlock()

	for _, s := range subs {
		s.cancel()
	}
	close(c.done)
	c.wg.Wait()
}

func (c *Conn) enqueue(msg interface{}) {
	select {
	case c.outbox <- msg:
		return
	default:
	}
	// Outbox full: drop the oldest queued message, then enqueue this one.
	select {
	case <-c.outbox:
	default:
	}
	select {
	case c.outbox <- msg:
	default:
	}
}

func (c *Conn) writeLoop() {
	for {
		select {
		case msg := <-c.outbox:
			if err := c.ws.WriteJSON(msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) handle(msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		c.handleSubscribe(msg)
	case "unsubscribe":
		c.handleUnsubscribe(msg)
	case "list":
		c.handleList()
	default:
		c.enqueue(ErrorMessage{Status: 1400, Message: "Unknown action"})
	}
}

func subKey(kind, targetID string) string { return kind + ":" + targetID }

func (c *Conn) handleSubscribe(msg ClientMessage) {
	if !validKind(msg.Type) {
		c.enqueue(ErrorMessage{Status: 1400, Message: "Unknown target type"})
		return
	}
	key := subKey(msg.Type, msg.TargetID)

	c.mu.Lock()
	if _, exists := c.subs[key]; exists {
		c.mu.Unlock()
		c.enqueue(ErrorMessage{Status: 1400, Message: "Subscription already exists"})
		return
	}
	c.mu.Unlock()

	target, ok := c.lookup(msg.Type, msg.TargetID)
	if !ok {
		c.enqueue(ErrorMessage{Status: 1404, Message: "Target not found"})
		return
	}

	levels := make(map[string]bool, len(msg.Options.Levels))
	for _, l := range msg.Options.Levels {
		levels[l] = true
	}

	sub := &subscription{
		kind:     msg.Type,
		targetID: msg.TargetID,
		levels:   levels,
		consumer: target.LogBroadcaster().Subscribe(),
		stop:     make(chan struct{}),
	}

	c.mu.Lock()
	c.subs[key] = sub
	c.mu.Unlock()

	if msg.Options.Tail > 0 {
		c.replayHistory(sub, target.LogRing().Tail(msg.Options.Tail))
	}

	c.wg.Add(1)
	go c.followLive(sub)

	levelsConfirm := make(map[string]bool, len(msg.Options.Levels))
	for _, l := range msg.Options.Levels {
		levelsConfirm[l] = true
	}
	c.enqueue(SubscriptionResult{
		Action:    "subscribed",
		Type:      msg.Type,
		TargetID:  msg.TargetID,
		Levels:    levelsConfirm,
		Timestamp: time.Now().Unix(),
	})
}

// replayHistory emits historical events for the tail lines that survive
// level filtering. Sequence numbers are assigned only to emitted entries
// — gap-free and continuing seamlessly into the live counter — per the
// deliberate correction recorded in DESIGN.md (the original Rust
// implementation numbers from the raw pre-filter index, which can produce
// gaps inconsistent with invariant I4).
func (c *Conn) replayHistory(sub *subscription, raw []string) {
	for _, line := range raw {
		entry := logbuf.Parse(line)
		if len(sub.levels) > 0 && !sub.levels[string(entry.Level)] {
			continue
		}
		c.emitLog(sub, entry, true)
	}
}

func (c *Conn) followLive(sub *subscription) {
	defer c.wg.Done()
	for {
		select {
		case line, ok := <-sub.consumer.Ch:
			if !ok {
				return
			}
			entry := logbuf.Parse(line)
			if len(sub.levels) > 0 && !sub.levels[string(entry.Level)] {
				continue
			}
			c.emitLog(sub, entry, false)
		case <-sub.stop:
			return
		case <-sub.consumer.Done():
			return
		case <-c.done:
			return
		}
	}
}

func (c *Conn) emitLog(sub *subscription, entry logbuf.Entry, isHistory bool) {
	seq := sub.nextSeq()
	c.enqueue(LogEvent{
		Type:     "log",
		DataType: "log",
		TargetID: sub.targetID,
		Log: LogEventPayload{
			Level:      entry.Level,
			Content:    entry.Content,
			Timestamp:  time.Now().Unix(),
			Sequence:   seq,
			TargetID:   sub.targetID,
			TargetType: sub.kind,
		},
		Sequence:  seq,
		IsHistory: isHistory,
	})
}

func (c *Conn) handleUnsubscribe(msg ClientMessage) {
	key := subKey(msg.Type, msg.TargetID)

	c.mu.Lock()
	sub, ok := c.subs[key]
	if ok {
		delete(c.subs, key)
	}
	c.mu.Unlock()

	if !ok {
		c.enqueue(ErrorMessage{Status: 1404, Message: "Subscription not found"})
		return
	}

	target, found := c.lookup(msg.Type, msg.TargetID)
	if found {
		target.LogBroadcaster().Unsubscribe(sub.consumer)
	}
	sub.cancel()

	c.enqueue(SubscriptionResult{
		Action:    "unsubscribed",
		Type:      msg.Type,
		TargetID:  msg.TargetID,
		Timestamp: time.Now().Unix(),
	})
}

func (c *Conn) handleList() {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SubscriptionInfo, 0, len(c.subs))
	for _, s := range c.subs {
		levels := make([]string, 0, len(s.levels))
		for l := range s.levels {
			levels = append(levels, l)
		}
		out = append(out, SubscriptionInfo{Type: s.kind, TargetID: s.targetID, Levels: levels})
	}
	c.enqueue(ListMessage{Action: "list", Subscriptions: out})
}

// validKind reports whether kind is a recognized subscription target type.
func validKind(kind string) bool {
	return kind == "process" || kind == "session"
}
