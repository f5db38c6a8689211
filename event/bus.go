package event

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Handler receives published events.
type Handler func(Event)

// Token identifies a single subscription.
type Token uint64

type subscription struct {
	owner   string
	kind    Kind
	handler Handler
}

// Bus is a registry of event subscriptions grouped by owner.
// Handlers run synchronously on the publishing goroutine, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	next   Token
	subs   map[Token]subscription
	logger logrus.FieldLogger
}

// NewBus returns an empty bus.
func NewBus(logger logrus.FieldLogger) *Bus {
	return &Bus{subs: make(map[Token]subscription), logger: logger}
}

// Subscribe registers handler for kind on behalf of owner.
func (b *Bus) Subscribe(owner string, kind Kind, handler Handler) Token {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	b.subs[b.next] = subscription{owner: owner, kind: kind, handler: handler}
	return b.next
}

// Unsubscribe removes a single subscription. Only the owner that created it may remove it.
func (b *Bus) Unsubscribe(owner string, token Token) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[token]
	if !ok || sub.owner != owner {
		return false
	}

	delete(b.subs, token)
	return true
}

// Detach removes every subscription held by owner and returns how many were removed.
func (b *Bus) Detach(owner string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	var removed int
	for token, sub := range b.subs {
		if sub.owner == owner {
			delete(b.subs, token)
			removed++
		}
	}
	return removed
}

// Count returns the number of live subscriptions held by owner.
func (b *Bus) Count(owner string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var n int
	for _, sub := range b.subs {
		if sub.owner == owner {
			n++
		}
	}
	return n
}

// Publish delivers e to every subscriber of its kind. A panicking handler is logged
// and does not prevent delivery to the others.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	tokens := make([]Token, 0, len(b.subs))
	for token, sub := range b.subs {
		if sub.kind == e.Kind {
			tokens = append(tokens, token)
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })

	targets := make([]subscription, len(tokens))
	for i, token := range tokens {
		targets[i] = b.subs[token]
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		b.deliver(sub, e)
	}
}

func (b *Bus) deliver(sub subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithField("owner", sub.owner).Errorf("%s handler panicked: %v", e.Kind, r)
		}
	}()

	sub.handler(e)
}
