package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/sangkips/pos-engine/internal/domain/event"
	"go.uber.org/zap"
)

// Handler consumes one event
type Handler func(ctx context.Context, e event.Event) error

const wildcard = "*"

// Bus is an in-process event dispatcher. Handlers run synchronously in the
// order they subscribed; a failing or panicking handler does not stop the
// others.
type Bus struct {
	wg       sync.WaitGroup
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *zap.Logger
}

// NewBus creates an empty bus
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger.Named("events"),
	}
}

// Subscribe registers h for events of eventType. Use "*" for all events.
func (b *Bus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Dispatch delivers e to every matching handler and returns the first error
func (b *Bus) Dispatch(ctx context.Context, e event.Event) error {
	b.mu.RLock()
	handlers := append(append([]Handler(nil), b.handlers[e.Type()]...), b.handlers[wildcard]...)
	b.mu.RUnlock()

	var firstErr error
	for _, h := range handlers {
		if err := b.call(ctx, h, e); err != nil {
			b.logger.Warn("event handler failed", zap.String("event", e.Type()), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (b *Bus) call(ctx context.Context, h Handler, e event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panic: %v", r)
		}
	}()
	return h(ctx, e)
}

// Async wraps h so it runs in its own goroutine and never holds up the
// dispatcher. Failures are logged. Wait blocks until every async handler
// has returned.
func (b *Bus) Async(h Handler) Handler {
	return func(ctx context.Context, e event.Event) error {
		ctx = context.WithoutCancel(ctx)
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := b.call(ctx, h, e); err != nil {
				b.logger.Warn("async event handler failed", zap.String("event", e.Type()), zap.Error(err))
			}
		}()
		return nil
	}
}

// Wait blocks until all handlers started by Async have finished
func (b *Bus) Wait() {
	b.wg.Wait()
}

// LogSubscriber writes every event to the log
func LogSubscriber(logger *zap.Logger) Handler {
	return func(_ context.Context, e event.Event) error {
		switch ev := e.(type) {
		case event.StockChanged:
			logger.Info("stock changed",
				zap.String("sku", ev.SKU),
				zap.Stringer("delta", ev.Delta),
				zap.Stringer("stock", ev.Stock),
				zap.String("reason", ev.Reason.String()),
				zap.String("reference", ev.Reference),
			)
		case event.LowStock:
			logger.Warn("low stock",
				zap.String("sku", ev.SKU),
				zap.String("name", ev.Name),
				zap.Stringer("stock", ev.Stock),
				zap.Stringer("threshold", ev.Threshold),
			)
		case event.SaleCommitted:
			logger.Info("sale committed",
				zap.String("number", ev.Number),
				zap.Stringer("grand_total", ev.GrandTotal),
				zap.String("payment_method", ev.PaymentMethod.String()),
				zap.Int("lines", ev.LineCount),
			)
		case event.SaleVoided:
			logger.Info("sale voided",
				zap.String("number", ev.Number),
				zap.Stringer("original_sale_id", ev.OriginalSaleID),
				zap.Stringer("grand_total", ev.GrandTotal),
			)
		case event.CashCutSealed:
			logger.Info("cash cut sealed",
				zap.String("number", ev.Number),
				zap.Time("start", ev.Start),
				zap.Time("end", ev.End),
				zap.Int("sales", ev.SaleCount),
				zap.Stringer("grand_total", ev.GrandTotal),
				zap.String("checksum", ev.Checksum),
			)
		default:
			logger.Info("event", zap.String("type", e.Type()))
		}
		return nil
	}
}
