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

type reservation struct {
	sku      string
	quantity int64
}

// Inventory reserves and releases stock for orders
type Inventory struct {
	mu           sync.Mutex
	stock        map[string]int64
	reservations map[string]reservation // by order id
	ledger       *ledger
	logger       *zap.Logger
}

var _ saga.Participant = (*Inventory)(nil)

// NewInventory creates an inventory holding the given stock per sku
func NewInventory(stock map[string]int64, log *zap.Logger) *Inventory {
	inv := &Inventory{
		stock:        make(map[string]int64, len(stock)),
		reservations: make(map[string]reservation),
		ledger:       newLedger(),
		logger:       logger.OrNop(log),
	}
	for sku, qty := range stock {
		inv.stock[sku] = qty
	}
	return inv
}

func (i *Inventory) Name() string { return "inventory" }

func (i *Inventory) Execute(ctx context.Context, stepName string, data models.Payload) (models.Payload, error) {
	switch stepName {
	case "reserve_inventory":
		return i.ledger.once(ctx, stepName, func() (models.Payload, error) { return i.reserve(data) })
	case "release_inventory":
		return i.ledger.once(ctx, stepName, func() (models.Payload, error) { return i.release(data) })
	default:
		return nil, unknownOperation(i.Name(), stepName)
	}
}

func (i *Inventory) Compensate(ctx context.Context, action string, prior models.Payload) (models.Payload, error) {
	switch action {
	case "release_inventory":
		return i.ledger.once(ctx, action, func() (models.Payload, error) { return i.release(prior) })
	case "reserve_inventory":
		if released, _ := prior.Int64("released"); released == 0 {
			return models.Payload{"reserved": int64(0)}, nil
		}
		return i.ledger.once(ctx, action, func() (models.Payload, error) { return i.reserve(prior) })
	default:
		return nil, unknownOperation(i.Name(), action)
	}
}

// Available returns the unreserved stock of sku
func (i *Inventory) Available(sku string) int64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stock[sku]
}

func (i *Inventory) reserve(data models.Payload) (models.Payload, error) {
	orderID, err := requireString(data, "order_id")
	if err != nil {
		return nil, err
	}
	sku, err := requireString(data, "sku")
	if err != nil {
		return nil, err
	}
	quantity, err := requirePositive(data, "quantity")
	if err != nil {
		return nil, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if existing, ok := i.reservations[orderID]; ok {
		return reservationResult(orderID, existing), nil
	}

	available, ok := i.stock[sku]
	if !ok {
		return nil, saga.Permanent(errors.Wrapf(ErrUnknownSKU, "sku %s", sku))
	}
	if available < quantity {
		return nil, saga.Permanent(errors.Wrapf(ErrInsufficientStock, "sku %s has %d, requested %d", sku, available, quantity))
	}

	i.stock[sku] = available - quantity
	res := reservation{sku: sku, quantity: quantity}
	i.reservations[orderID] = res

	i.logger.Info("inventory reserved",
		zap.String("order_id", orderID),
		zap.String("sku", sku),
		zap.Int64("quantity", quantity),
	)
	return reservationResult(orderID, res), nil
}

// release puts the reserved stock back. Releasing an order without a
// reservation succeeds without changes.
func (i *Inventory) release(data models.Payload) (models.Payload, error) {
	orderID, err := requireString(data, "order_id")
	if err != nil {
		return nil, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	res, ok := i.reservations[orderID]
	if !ok {
		return models.Payload{"order_id": orderID, "released": int64(0)}, nil
	}

	i.stock[res.sku] += res.quantity
	delete(i.reservations, orderID)

	i.logger.Info("inventory released",
		zap.String("order_id", orderID),
		zap.String("sku", res.sku),
		zap.Int64("quantity", res.quantity),
	)
	return models.Payload{
		"order_id": orderID,
		"sku":      res.sku,
		"quantity": res.quantity,
		"released": res.quantity,
	}, nil
}

func reservationResult(orderID string, res reservation) models.Payload {
	return models.Payload{
		"order_id":       orderID,
		"sku":            res.sku,
		"quantity":       res.quantity,
		"reservation_id": "res-" + orderID,
	}
}
