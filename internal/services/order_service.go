package services

import (
	"context"
	"fmt"
	"time"

	"booknook/internal/domain"
	"booknook/internal/repos"
)

type OrderService struct {
	Store        *repos.Store
	Pub          Publisher
	Now          func() time.Time
	CancelWindow time.Duration
}

func NewOrderService(store *repos.Store, pub Publisher, cancelWindow time.Duration) *OrderService {
	if cancelWindow <= 0 {
		cancelWindow = domain.DefaultCancelWindow
	}
	return &OrderService{Store: store, Pub: pub, Now: time.Now, CancelWindow: cancelWindow}
}

// CancelOutcome tells the caller what a cancel request ended up doing.
type CancelOutcome int

const (
	CancelOutcomeCancelled CancelOutcome = iota + 1
	// CancelOutcomeDeleted: the order was already terminal, so the request removed it instead.
	CancelOutcomeDeleted
)

// OrderView is an order as listed on the "my orders" page.
type OrderView struct {
	domain.Order
	Key         string
	Cancellable bool
	Deletable   bool
}

func (s *OrderService) List(ctx context.Context, userID string) ([]OrderView, error) {
	orders, err := s.Store.Orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	now := s.Now()
	out := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderView{
			Order:       o,
			Key:         o.Key().String(),
			Cancellable: o.IsCancellable(now, s.CancelWindow),
			Deletable:   o.IsDeletable(),
		})
	}
	return out, nil
}

// PendingCount is the number of orders neither cancelled nor received.
func (s *OrderService) PendingCount(ctx context.Context, userID string) (int, error) {
	return s.Store.Orders.CountPending(ctx, userID)
}

func ownedOrder(ctx context.Context, st *repos.Store, userID string, key domain.OrderKey) (domain.Order, error) {
	o, err := st.Orders.Get(ctx, key)
	if isNoRows(err) {
		return domain.Order{}, domain.E(domain.ErrNotFound, "Order not found.")
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("load order: %w", err)
	}
	if o.UserID != userID {
		return domain.Order{}, domain.E(domain.ErrForbidden, "This order belongs to another account.")
	}
	return o, nil
}

// Cancel cancels an open order inside the grace window and puts its copies back on the shelf.
// A request against an order that is already cancelled or received deletes it instead.
func (s *OrderService) Cancel(ctx context.Context, userID string, key domain.OrderKey) (CancelOutcome, error) {
	now := s.Now()
	var (
		outcome CancelOutcome
		pending int
	)
	err := s.Store.InTx(ctx, func(st *repos.Store) error {
		o, err := ownedOrder(ctx, st, userID, key)
		if err != nil {
			return err
		}
		if o.IsTerminal() {
			if err := deleteTerminal(ctx, st, o); err != nil {
				return err
			}
			outcome = CancelOutcomeDeleted
			return nil
		}
		if err := cancelOpen(ctx, st, o, now, s.CancelWindow); err != nil {
			return err
		}
		outcome = CancelOutcomeCancelled
		pending, err = st.Orders.CountPending(ctx, userID)
		return err
	})
	if err != nil {
		return 0, err
	}
	if outcome == CancelOutcomeCancelled {
		s.Pub.Publish(EventOrderCount, CountPayload{UserID: userID, Count: pending})
	}
	return outcome, nil
}

// windowText renders a cancel window for people: "24 hours", "90 minutes".
func windowText(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
	return d.String()
}

func cancelOpen(ctx context.Context, st *repos.Store, o domain.Order, now time.Time, window time.Duration) error {
	if !o.IsCancellable(now, window) {
		return domain.Ef(domain.ErrNotCancellable, "Orders can only be cancelled within %s of being placed.", windowText(window))
	}
	ok, err := st.Orders.MarkCancelled(ctx, o.Key(), now)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	if !ok {
		return domain.E(domain.ErrNotCancellable, "This order can no longer be cancelled.")
	}
	if err := st.Inventory.Restore(ctx, o.BookID, o.Quantity); err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	return nil
}

func deleteTerminal(ctx context.Context, st *repos.Store, o domain.Order) error {
	if !o.IsDeletable() {
		return domain.E(domain.ErrNotDeletable, "Only cancelled or received orders can be deleted.")
	}
	ok, err := st.Orders.Delete(ctx, o.Key())
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if !ok {
		return domain.E(domain.ErrNotFound, "Order not found.")
	}
	return nil
}

// Delete removes a cancelled or received order.
func (s *OrderService) Delete(ctx context.Context, userID string, key domain.OrderKey) error {
	return s.Store.InTx(ctx, func(st *repos.Store) error {
		o, err := ownedOrder(ctx, st, userID, key)
		if err != nil {
			return err
		}
		return deleteTerminal(ctx, st, o)
	})
}

// CancelMany cancels every eligible order among keys and reports how many were cancelled.
// Keys that are malformed, foreign, missing or not cancellable are skipped.
func (s *OrderService) CancelMany(ctx context.Context, userID string, keys []string) (int, error) {
	now := s.Now()
	var done, pending int
	err := s.Store.InTx(ctx, func(st *repos.Store) error {
		for _, raw := range keys {
			o, ok, err := s.bulkTarget(ctx, st, userID, raw)
			if err != nil {
				return err
			}
			if !ok || !o.IsCancellable(now, s.CancelWindow) {
				continue
			}
			if err := cancelOpen(ctx, st, o, now, s.CancelWindow); err != nil {
				if domain.CodeOf(err) != "" {
					continue
				}
				return err
			}
			done++
		}
		var err error
		pending, err = st.Orders.CountPending(ctx, userID)
		return err
	})
	if err != nil {
		return 0, err
	}
	if done > 0 {
		s.Pub.Publish(EventOrderCount, CountPayload{UserID: userID, Count: pending})
	}
	return done, nil
}

// DeleteMany deletes every terminal order among keys and reports how many were removed.
func (s *OrderService) DeleteMany(ctx context.Context, userID string, keys []string) (int, error) {
	var done int
	err := s.Store.InTx(ctx, func(st *repos.Store) error {
		for _, raw := range keys {
			o, ok, err := s.bulkTarget(ctx, st, userID, raw)
			if err != nil {
				return err
			}
			if !ok || !o.IsDeletable() {
				continue
			}
			if err := deleteTerminal(ctx, st, o); err != nil {
				if domain.CodeOf(err) != "" {
					continue
				}
				return err
			}
			done++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return done, nil
}

// bulkTarget resolves one bulk key to an order owned by userID. ok is false when the key should be skipped.
func (s *OrderService) bulkTarget(ctx context.Context, st *repos.Store, userID, raw string) (domain.Order, bool, error) {
	key, err := domain.ParseOrderKey(raw)
	if err != nil || key.UserID != userID {
		return domain.Order{}, false, nil
	}
	o, err := st.Orders.Get(ctx, key)
	if isNoRows(err) {
		return domain.Order{}, false, nil
	}
	if err != nil {
		return domain.Order{}, false, fmt.Errorf("load order: %w", err)
	}
	return o, true, nil
}
