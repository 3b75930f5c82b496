package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"booknook/internal/domain"
	"booknook/internal/repos"
)

// FulfillmentService is the staff counter: look an order up by claim code, then hand it over.
type FulfillmentService struct {
	Store *repos.Store
	Pub   Publisher
	Now   func() time.Time
}

func NewFulfillmentService(store *repos.Store, pub Publisher) *FulfillmentService {
	return &FulfillmentService{Store: store, Pub: pub, Now: time.Now}
}

type Pickup struct {
	Order    domain.Order
	Customer *domain.User
}

func NormalizeClaimCode(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

func findByClaimCode(ctx context.Context, st *repos.Store, code string) (domain.Order, error) {
	code = NormalizeClaimCode(code)
	if len(code) != domain.ClaimCodeLength {
		return domain.Order{}, domain.E(domain.ErrInvalidClaimCode, "Invalid claim code.")
	}
	o, err := st.Orders.ByClaimCode(ctx, code)
	if isNoRows(err) {
		return domain.Order{}, domain.E(domain.ErrInvalidClaimCode, "Invalid claim code.")
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("load order: %w", err)
	}
	return o, nil
}

var (
	errAlreadyCancelled = domain.E(domain.ErrAlreadyCancelled, "This order has been cancelled.")
	errAlreadyFulfilled = domain.E(domain.ErrAlreadyFulfilled, "This order has already been fulfilled.")
	errUserMismatch     = domain.E(domain.ErrUserMismatch, "The claim code does not belong to this customer.")
)

// Lookup validates a claim code for the customer at the counter without changing anything.
func (s *FulfillmentService) Lookup(ctx context.Context, code, userID string) (Pickup, error) {
	o, err := findByClaimCode(ctx, s.Store, code)
	if err != nil {
		return Pickup{}, err
	}
	switch {
	case o.IsCancelled:
		return Pickup{}, errAlreadyCancelled
	case o.IsFulfilled:
		return Pickup{}, errAlreadyFulfilled
	case o.UserID != strings.TrimSpace(userID):
		return Pickup{}, errUserMismatch
	}
	u, err := s.Store.Users.ByID(ctx, o.UserID)
	if err != nil {
		return Pickup{}, fmt.Errorf("load customer: %w", err)
	}
	return Pickup{Order: o, Customer: u}, nil
}

// Confirm re-checks the order, since it may have changed since Lookup, and marks it received.
func (s *FulfillmentService) Confirm(ctx context.Context, code, userID string) (Pickup, error) {
	now := s.Now()
	var p Pickup
	var pending int
	err := s.Store.InTx(ctx, func(st *repos.Store) error {
		o, err := findByClaimCode(ctx, st, code)
		if err != nil {
			return err
		}
		switch {
		case o.UserID != strings.TrimSpace(userID):
			return errUserMismatch
		case o.IsCancelled:
			return errAlreadyCancelled
		case o.IsFulfilled:
			return errAlreadyFulfilled
		}
		ok, err := st.Orders.MarkFulfilled(ctx, o.ClaimCode, now)
		if err != nil {
			return fmt.Errorf("fulfill order: %w", err)
		}
		if !ok {
			return errAlreadyFulfilled
		}
		o.IsFulfilled = true
		o.Status = domain.StatusReceived
		fulfilledAt := now
		o.FulfilledAt = &fulfilledAt

		u, err := st.Users.ByID(ctx, o.UserID)
		if err != nil {
			return fmt.Errorf("load customer: %w", err)
		}
		p = Pickup{Order: o, Customer: u}
		pending, err = st.Orders.CountPending(ctx, o.UserID)
		return err
	})
	if err != nil {
		return Pickup{}, err
	}

	s.Pub.Publish(EventOrderNotification, OrderNotificationPayload{
		Message: fmt.Sprintf("Order for '%s' by %s %s has been successfully fulfilled!",
			p.Order.BookTitle, p.Customer.FirstName, p.Customer.LastName),
		OrderNo: p.Order.OrderNo,
	})
	s.Pub.Publish(EventOrderCount, CountPayload{UserID: p.Order.UserID, Count: pending})
	return p, nil
}
