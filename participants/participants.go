// Package participants holds in-memory services taking part in the order
// sagas. They back the local dispatcher and the participant worker.
package participants

import (
	"context"
	"sync"

	"github.com/draftea/saga-system/shared/logger"
	"github.com/draftea/saga-system/shared/models"
	"github.com/draftea/saga-system/shared/saga"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrInvalidRequest    = errors.New("invalid participant request")
	ErrUnknownOperation  = errors.New("unknown operation")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnknownSKU        = errors.New("unknown sku")
	ErrCardDeclined      = errors.New("card declined")
	ErrOrderNotFound     = errors.New("order not found")
)

// Set groups the participants of the order sagas
type Set struct {
	Orders        *Orders
	Inventory     *Inventory
	Payments      *Payments
	Notifications *Notifications
}

// NewSet creates the participants with the given starting stock
func NewSet(stock map[string]int64, log *zap.Logger) *Set {
	log = logger.OrNop(log)
	return &Set{
		Orders:        NewOrders(log),
		Inventory:     NewInventory(stock, log),
		Payments:      NewPayments(log),
		Notifications: NewNotifications(log),
	}
}

// Register binds every step and compensating action of the built in sagas
func (s *Set) Register(p *saga.Participants) *saga.Participants {
	return p.
		// create_order
		Register(s.Orders, "validate_order", "invalidate_order").
		Register(s.Inventory, "reserve_inventory", "release_inventory").
		Register(s.Orders, "create_order", "cancel_order").
		Register(s.Payments, "charge_payment", "refund_payment").
		Register(s.Notifications, "send_order_notification", "send_order_cancelled_notification").
		// cancel_order
		Register(s.Orders, "validate_cancellation", "invalidate_cancellation").
		Register(s.Payments, "refund_payment", "charge_payment").
		Register(s.Inventory, "release_inventory", "reserve_inventory").
		Register(s.Orders, "cancel_order", "restore_order").
		Register(s.Notifications, "send_cancellation_notification", "send_cancellation_retracted_notification")
}

// ledgerCapacity bounds the results a participant keeps. Redeliveries arrive
// within the retry window of a step, so the oldest entries are evicted first.
const ledgerCapacity = 10000

// ledger remembers the result of every operation per saga so a redelivered
// request returns the first result without applying it twice
type ledger struct {
	mu       sync.Mutex
	capacity int
	results  map[string]models.Payload
	order    []string
}

func newLedger() *ledger {
	return &ledger{
		capacity: ledgerCapacity,
		results:  make(map[string]models.Payload),
	}
}

func (l *ledger) once(ctx context.Context, operation string, apply func() (models.Payload, error)) (models.Payload, error) {
	sagaID, ok := saga.SagaIDFromContext(ctx)
	if !ok {
		return apply()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := sagaID + ":" + operation
	if result, done := l.results[key]; done {
		return result.Clone(), nil
	}

	result, err := apply()
	if err != nil {
		return nil, err
	}
	l.remember(key, result.Clone())
	return result, nil
}

func (l *ledger) remember(key string, result models.Payload) {
	for len(l.order) >= l.capacity {
		delete(l.results, l.order[0])
		l.order = l.order[1:]
	}
	l.results[key] = result
	l.order = append(l.order, key)
}

func requireString(data models.Payload, key string) (string, error) {
	value, ok := data.String(key)
	if !ok || value == "" {
		return "", saga.Permanent(errors.Wrapf(ErrInvalidRequest, "%s is required", key))
	}
	return value, nil
}

func requirePositive(data models.Payload, key string) (int64, error) {
	value, ok := data.Int64(key)
	if !ok || value <= 0 {
		return 0, saga.Permanent(errors.Wrapf(ErrInvalidRequest, "%s must be a positive integer", key))
	}
	return value, nil
}

func unknownOperation(participant, operation string) error {
	return saga.Permanent(errors.Wrapf(ErrUnknownOperation, "%s cannot handle %q", participant, operation))
}
