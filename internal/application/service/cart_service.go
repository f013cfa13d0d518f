package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/cart"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	"github.com/sangkips/pos-engine/internal/domain/pricing"
	"github.com/sangkips/pos-engine/pkg/money"
	"go.uber.org/zap"
)

// CartService keeps the open carts of every register session. Each cart has
// a single writer: operations on one cart are serialised by its own lock.
type CartService struct {
	sessions    map[uuid.UUID]*cartSession
	mu          sync.RWMutex
	catalog     cart.Catalog
	sales       *SaleService
	logger      *zap.Logger
	ttl         time.Duration
	cleanupTick time.Duration
	done        chan struct{}
	closeOnce   sync.Once
}

type cartSession struct {
	mu       sync.Mutex
	cart     *cart.Cart
	lastSeen time.Time
}

// NewCartService creates the cart registry and starts the sweeper that drops
// carts left untouched for longer than ttl
func NewCartService(catalog cart.Catalog, sales *SaleService, logger *zap.Logger, ttl time.Duration) *CartService {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	s := &CartService{
		sessions:    make(map[uuid.UUID]*cartSession),
		catalog:     catalog,
		sales:       sales,
		logger:      logger.Named("cart"),
		ttl:         ttl,
		cleanupTick: ttl / 4,
		done:        make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// Close stops the sweeper
func (s *CartService) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *CartService) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupTick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.sweep(time.Now()); n > 0 {
				s.logger.Info("expired carts dropped", zap.Int("count", n))
			}
		case <-s.done:
			return
		}
	}
}

// sweep removes carts idle since before now-ttl and returns how many
func (s *CartService) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for id, sess := range s.sessions {
		if !sess.mu.TryLock() {
			continue // in use
		}
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.sessions, id)
			dropped++
		}
		sess.mu.Unlock()
	}
	return dropped
}

// Open starts an empty cart for the operator
func (s *CartService) Open(operator entity.Operator) cart.Snapshot {
	c := cart.New(s.catalog, operator.ID)

	s.mu.Lock()
	s.sessions[c.ID()] = &cartSession{cart: c, lastSeen: time.Now()}
	s.mu.Unlock()

	return c.Snapshot()
}

// withCart runs fn while holding the cart's lock. Carts of other operators
// are reported as not found.
func (s *CartService) withCart(id uuid.UUID, operator entity.Operator, fn func(c *cart.Cart) error) error {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrCartNotFound, id)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.cart.OperatorID() != operator.ID {
		return fmt.Errorf("%w: %s", errs.ErrCartNotFound, id)
	}
	// The sweeper may have dropped the session while we waited
	s.mu.RLock()
	current, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || current != sess {
		return fmt.Errorf("%w: %s", errs.ErrCartNotFound, id)
	}

	sess.lastSeen = time.Now()
	return fn(sess.cart)
}

// Get returns the current snapshot of a cart
func (s *CartService) Get(id uuid.UUID, operator entity.Operator) (cart.Snapshot, error) {
	var snap cart.Snapshot
	err := s.withCart(id, operator, func(c *cart.Cart) error {
		snap = c.Snapshot()
		return nil
	})
	return snap, err
}

// AddItem scans code into the cart
func (s *CartService) AddItem(ctx context.Context, id uuid.UUID, operator entity.Operator, code string, qty money.Quantity) (cart.Snapshot, error) {
	var snap cart.Snapshot
	err := s.withCart(id, operator, func(c *cart.Cart) error {
		if _, err := c.AddItem(ctx, code, qty); err != nil {
			return err
		}
		snap = c.Snapshot()
		return nil
	})
	return snap, err
}

// UpdateQuantity changes the quantity of one line
func (s *CartService) UpdateQuantity(id uuid.UUID, operator entity.Operator, index int, qty money.Quantity) (cart.Snapshot, error) {
	var snap cart.Snapshot
	err := s.withCart(id, operator, func(c *cart.Cart) error {
		if err := c.UpdateQuantity(index, qty); err != nil {
			return err
		}
		snap = c.Snapshot()
		return nil
	})
	return snap, err
}

// RemoveLine deletes one line
func (s *CartService) RemoveLine(id uuid.UUID, operator entity.Operator, index int) (cart.Snapshot, error) {
	var snap cart.Snapshot
	err := s.withCart(id, operator, func(c *cart.Cart) error {
		if err := c.RemoveLine(index); err != nil {
			return err
		}
		snap = c.Snapshot()
		return nil
	})
	return snap, err
}

// SetDiscount applies a cart-wide discount
func (s *CartService) SetDiscount(id uuid.UUID, operator entity.Operator, d pricing.Discount) (cart.Snapshot, error) {
	var snap cart.Snapshot
	err := s.withCart(id, operator, func(c *cart.Cart) error {
		if err := c.SetDiscount(d); err != nil {
			return err
		}
		snap = c.Snapshot()
		return nil
	})
	return snap, err
}

// ClearDiscount removes the cart-wide discount
func (s *CartService) ClearDiscount(id uuid.UUID, operator entity.Operator) (cart.Snapshot, error) {
	var snap cart.Snapshot
	err := s.withCart(id, operator, func(c *cart.Cart) error {
		c.ClearDiscount()
		snap = c.Snapshot()
		return nil
	})
	return snap, err
}

// Reprice refreshes captured prices from the catalog and returns the
// indexes of the lines that changed
func (s *CartService) Reprice(ctx context.Context, id uuid.UUID, operator entity.Operator) (cart.Snapshot, []int, error) {
	var snap cart.Snapshot
	var changed []int
	err := s.withCart(id, operator, func(c *cart.Cart) error {
		var err error
		if changed, err = c.Reprice(ctx); err != nil {
			return err
		}
		snap = c.Snapshot()
		return nil
	})
	return snap, changed, err
}

// Cancel discards a cart without touching stock
func (s *CartService) Cancel(id uuid.UUID, operator entity.Operator) error {
	return s.withCart(id, operator, func(c *cart.Cart) error {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil
	})
}

// CheckoutInput represents the payment data of a checkout
type CheckoutInput struct {
	Payment  PaymentInput
	Operator entity.Operator
	Note     string
}

// Checkout commits the cart as a sale. The cart is destroyed on success and
// kept on failure so the operator can fix it, for example by repricing.
func (s *CartService) Checkout(ctx context.Context, id uuid.UUID, input *CheckoutInput) (*CommitResult, error) {
	var result *CommitResult
	err := s.withCart(id, input.Operator, func(c *cart.Cart) error {
		var err error
		result, err = s.sales.Commit(ctx, &CommitInput{
			Cart:     c.Snapshot(),
			Payment:  input.Payment,
			Operator: input.Operator,
			Note:     input.Note,
		})
		if err != nil {
			return err
		}
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil
	})
	return result, err
}

// Len returns the number of open carts
func (s *CartService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
