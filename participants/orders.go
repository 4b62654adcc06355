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

// Order statuses
const (
	OrderStatusCreated   = "created"
	OrderStatusCancelled = "cancelled"
)

// Orders validates, creates and cancels orders
type Orders struct {
	mu       sync.Mutex
	statuses map[string]string // by order id
	ledger   *ledger
	logger   *zap.Logger
}

var _ saga.Participant = (*Orders)(nil)

// NewOrders creates an empty order book
func NewOrders(log *zap.Logger) *Orders {
	return &Orders{
		statuses: make(map[string]string),
		ledger:   newLedger(),
		logger:   logger.OrNop(log),
	}
}

func (o *Orders) Name() string { return "orders" }

func (o *Orders) Execute(ctx context.Context, stepName string, data models.Payload) (models.Payload, error) {
	var apply func() (models.Payload, error)
	switch stepName {
	case "validate_order":
		apply = func() (models.Payload, error) { return o.validateOrder(data) }
	case "create_order":
		apply = func() (models.Payload, error) { return o.create(data) }
	case "validate_cancellation":
		apply = func() (models.Payload, error) { return o.validateCancellation(data) }
	case "cancel_order":
		apply = func() (models.Payload, error) { return o.cancel(data) }
	default:
		return nil, unknownOperation(o.Name(), stepName)
	}
	return o.ledger.once(ctx, stepName, apply)
}

func (o *Orders) Compensate(ctx context.Context, action string, prior models.Payload) (models.Payload, error) {
	var apply func() (models.Payload, error)
	switch action {
	case "invalidate_order", "invalidate_cancellation":
		apply = func() (models.Payload, error) { return models.Payload{"invalidated": true}, nil }
	case "cancel_order":
		apply = func() (models.Payload, error) { return o.cancel(prior) }
	case "restore_order":
		apply = func() (models.Payload, error) { return o.restore(prior) }
	default:
		return nil, unknownOperation(o.Name(), action)
	}
	return o.ledger.once(ctx, action, apply)
}

// Status returns the status of orderID, or an empty string when unknown
func (o *Orders) Status(orderID string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statuses[orderID]
}

func (o *Orders) validateOrder(data models.Payload) (models.Payload, error) {
	orderID, err := requireString(data, "order_id")
	if err != nil {
		return nil, err
	}
	if _, err := requireString(data, "customer_id"); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if status, exists := o.statuses[orderID]; exists && status != OrderStatusCancelled {
		return nil, saga.Permanent(errors.Wrapf(ErrInvalidRequest, "order %s already exists", orderID))
	}
	return models.Payload{"order_id": orderID, "validated": true}, nil
}

func (o *Orders) create(data models.Payload) (models.Payload, error) {
	orderID, err := requireString(data, "order_id")
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses[orderID] = OrderStatusCreated

	o.logger.Info("order created", zap.String("order_id", orderID))
	return models.Payload{"order_id": orderID, "order_status": OrderStatusCreated}, nil
}

func (o *Orders) validateCancellation(data models.Payload) (models.Payload, error) {
	orderID, err := requireString(data, "order_id")
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	status, exists := o.statuses[orderID]
	if !exists {
		return nil, saga.Permanent(errors.Wrapf(ErrOrderNotFound, "order %s", orderID))
	}
	if status != OrderStatusCreated {
		return nil, saga.Permanent(errors.Wrapf(ErrInvalidRequest, "order %s is %s", orderID, status))
	}
	return models.Payload{"order_id": orderID, "cancellable": true}, nil
}

func (o *Orders) cancel(data models.Payload) (models.Payload, error) {
	orderID, err := requireString(data, "order_id")
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	previous, exists := o.statuses[orderID]
	if !exists {
		return models.Payload{"order_id": orderID, "order_status": OrderStatusCancelled}, nil
	}
	o.statuses[orderID] = OrderStatusCancelled

	o.logger.Info("order cancelled", zap.String("order_id", orderID))
	return models.Payload{
		"order_id":        orderID,
		"order_status":    OrderStatusCancelled,
		"previous_status": previous,
	}, nil
}

func (o *Orders) restore(prior models.Payload) (models.Payload, error) {
	orderID, err := requireString(prior, "order_id")
	if err != nil {
		return nil, err
	}
	previous, ok := prior.String("previous_status")
	if !ok || previous == "" {
		return models.Payload{"order_id": orderID, "restored": false}, nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses[orderID] = previous

	o.logger.Info("order restored", zap.String("order_id", orderID), zap.String("order_status", previous))
	return models.Payload{"order_id": orderID, "order_status": previous, "restored": true}, nil
}
