package service

import (
	"bank_manager/internal/domain"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Observer receives account lifecycle events. A returned error is logged
// and never interrupts the structural operation that fired the event.
type Observer interface {
	HandleAccountEvent(ctx context.Context, event domain.LifecycleEvent) error
}

type ObserverFunc func(ctx context.Context, event domain.LifecycleEvent) error

func (f ObserverFunc) HandleAccountEvent(ctx context.Context, event domain.LifecycleEvent) error {
	return f(ctx, event)
}

type subscription struct {
	id       uint64
	observer Observer
}

type Notifier struct {
	mu        sync.Mutex
	observers []subscription
	nextID    uint64
	logger    *slog.Logger
}

func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{logger: logger}
}

// Subscribe appends an observer and returns a function that removes it.
func (n *Notifier) Subscribe(observer Observer) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	n.observers = append(n.observers, subscription{id: id, observer: observer})

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		for i, s := range n.observers {
			if s.id == id {
				n.observers = append(n.observers[:i:i], n.observers[i+1:]...)
				return
			}
		}
	}
}

func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.observers)
}

// Notify delivers the event to every observer synchronously, in
// subscription order.
func (n *Notifier) Notify(ctx context.Context, eventType domain.LifecycleEventType, account domain.Account) {
	n.mu.Lock()
	observers := make([]subscription, len(n.observers))
	copy(observers, n.observers)
	n.mu.Unlock()

	event := domain.LifecycleEvent{
		Type:      eventType,
		Account:   account,
		Timestamp: time.Now(),
	}

	for _, s := range observers {
		n.deliver(ctx, s, event)
	}
}

func (n *Notifier) deliver(ctx context.Context, s subscription, event domain.LifecycleEvent) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.ErrorContext(ctx, "Lifecycle observer panicked",
				slog.Uint64("observer", s.id),
				slog.String("event", string(event.Type)),
				slog.String("account_id", event.Account.ID),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()

	if err := s.observer.HandleAccountEvent(ctx, event); err != nil {
		n.logger.WarnContext(ctx, "Lifecycle observer failed",
			slog.Uint64("observer", s.id),
			slog.String("event", string(event.Type)),
			slog.String("account_id", event.Account.ID),
			slog.String("error", err.Error()))
	}
}

// ConsoleObserver prints one line per lifecycle event.
type ConsoleObserver struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleObserver(out io.Writer) *ConsoleObserver {
	return &ConsoleObserver{out: out}
}

func (o *ConsoleObserver) HandleAccountEvent(ctx context.Context, event domain.LifecycleEvent) error {
	var verb string
	switch event.Type {
	case domain.EventRegistered:
		verb = "registered"
	case domain.EventDeleted:
		verb = "deleted"
	default:
		return fmt.Errorf("unknown lifecycle event: %s", event.Type)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := fmt.Fprintf(o.out, "The Client %s (%s) has been %s!\n", event.Account.Holder, event.Account.ID, verb)
	return err
}
