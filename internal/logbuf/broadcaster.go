package logbuf

import "sync"

// consumerInboxSize is the bounded capacity of each consumer's inbox.
// A slow consumer drops messages; the producer never blocks.
const consumerInboxSize = 100

// Consumer receives lines published after it subscribed. Ch is never
// closed; Done() is closed when the consumer is removed via
// Broadcaster.Unsubscribe.
type Consumer struct {
	Ch   chan string
	done chan struct{}
}

// Done returns a channel closed when this consumer has been removed.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Broadcaster is a single-producer, multi-consumer fan-out for live log
// lines. Publish never blocks on a slow consumer: delivery is attempted
// with a non-blocking send, and dropped for that consumer on overflow.
type Broadcaster struct {
	mu        sync.RWMutex
	consumers map[*Consumer]struct{}
}

// NewBroadcaster returns an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{consumers: make(map[*Consumer]struct{})}
}

// Subscribe registers a new consumer.
func (b *Broadcaster) Subscribe() *Consumer {
	c := &Consumer{
		Ch:   make(chan string, consumerInboxSize),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.consumers[c] = struct{}{}
	b.mu.Unlock()
	return c
}

// Unsubscribe removes a consumer and signals it to stop. Idempotent.
func (b *Broadcaster) Unsubscribe(c *Consumer) {
	b.mu.Lock()
	delete(b.consumers, c)
	b.mu.Unlock()
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

// Publish delivers line to every current consumer. Consumers whose inbox is
// full simply miss this line.
func (b *Broadcaster) Publish(line string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for c := range b.consumers {
		select {
		case c.Ch <- line:
		case <-c.done:
		default:
			// inbox full: drop for this consumer, producer keeps going
		}
	}
}
