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

const (
	defaultCurrency = "USD"
	declinedCard    = "declined"
)

type charge struct {
	paymentID string
	amount    models.Money
}

// Payments charges and refunds orders
type Payments struct {
	mu       sync.Mutex
	charges  map[string]charge // by order id
	captured map[string]models.Money
	ledger   *ledger
	logger   *zap.Logger
}

var _ saga.Participant = (*Payments)(nil)

// NewPayments creates a payment service without charges
func NewPayments(log *zap.Logger) *Payments {
	return &Payments{
		charges:  make(map[string]charge),
		captured: make(map[string]models.Money),
		ledger:   newLedger(),
		logger:   logger.OrNop(log),
	}
}

func (p *Payments) Name() string { return "payments" }

func (p *Payments) Execute(ctx context.Context, stepName string, data models.Payload) (models.Payload, error) {
	switch stepName {
	case "charge_payment":
		return p.ledger.once(ctx, stepName, func() (models.Payload, error) { return p.charge(data) })
	case "refund_payment":
		return p.ledger.once(ctx, stepName, func() (models.Payload, error) { return p.refund(data) })
	default:
		return nil, unknownOperation(p.Name(), stepName)
	}
}

func (p *Payments) Compensate(ctx context.Context, action string, prior models.Payload) (models.Payload, error) {
	switch action {
	case "refund_payment":
		return p.ledger.once(ctx, action, func() (models.Payload, error) { return p.refund(prior) })
	case "charge_payment":
		// nothing to restore when the refund found no charge
		if refunded, _ := prior["refunded"].(bool); !refunded {
			return models.Payload{"charged": false}, nil
		}
		return p.ledger.once(ctx, action, func() (models.Payload, error) { return p.charge(prior) })
	default:
		return nil, unknownOperation(p.Name(), action)
	}
}

// Captured returns the total amount currently charged in currency
func (p *Payments) Captured(currency string) models.Money {
	p.mu.Lock()
	defer p.mu.Unlock()
	if total, ok := p.captured[currency]; ok {
		return total
	}
	return models.NewMoney(0, currency)
}

func (p *Payments) charge(data models.Payload) (models.Payload, error) {
	orderID, err := requireString(data, "order_id")
	if err != nil {
		return nil, err
	}
	currency, ok := data.String("currency")
	if !ok || currency == "" {
		currency = defaultCurrency
	}
	amount, _ := data.Int64("amount")
	if !models.NewMoney(amount, currency).IsPositive() {
		return nil, saga.Permanent(errors.Wrap(ErrInvalidRequest, "amount must be a positive integer"))
	}
	if token, _ := data.String("card_token"); token == declinedCard {
		return nil, saga.Permanent(errors.Wrapf(ErrCardDeclined, "order %s", orderID))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.charges[orderID]; ok {
		return chargeResult(orderID, existing), nil
	}

	c := charge{
		paymentID: "pay-" + orderID,
		amount:    models.NewMoney(amount, currency),
	}
	if err := p.capture(c.amount); err != nil {
		return nil, saga.Permanent(err)
	}
	p.charges[orderID] = c

	p.logger.Info("payment charged",
		zap.String("order_id", orderID),
		zap.Int64("amount", amount),
		zap.String("currency", currency),
	)
	return chargeResult(orderID, c), nil
}

// refund returns the order's charge. Refunding an order that was never
// charged succeeds without changes.
func (p *Payments) refund(data models.Payload) (models.Payload, error) {
	orderID, err := requireString(data, "order_id")
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.charges[orderID]
	if !ok {
		return models.Payload{"order_id": orderID, "refunded": false}, nil
	}

	if err := p.release(c.amount); err != nil {
		return nil, saga.Permanent(err)
	}
	delete(p.charges, orderID)

	p.logger.Info("payment refunded",
		zap.String("order_id", orderID),
		zap.Int64("amount", c.amount.Amount),
		zap.String("currency", c.amount.Currency),
	)
	return models.Payload{
		"order_id":  orderID,
		"refund_id": "ref-" + orderID,
		"amount":    c.amount.Amount,
		"currency":  c.amount.Currency,
		"refunded":  true,
	}, nil
}

func (p *Payments) capture(amount models.Money) error {
	total, ok := p.captured[amount.Currency]
	if !ok {
		total = models.NewMoney(0, amount.Currency)
	}
	total, err := total.Add(amount)
	if err != nil {
		return errors.Wrap(err, "failed to update captured total")
	}
	p.captured[amount.Currency] = total
	return nil
}

func (p *Payments) release(amount models.Money) error {
	total, ok := p.captured[amount.Currency]
	if !ok {
		total = models.NewMoney(0, amount.Currency)
	}
	total, err := total.Subtract(amount)
	if err != nil {
		return errors.Wrap(err, "failed to update captured total")
	}
	p.captured[amount.Currency] = total
	return nil
}

func chargeResult(orderID string, c charge) models.Payload {
	return models.Payload{
		"order_id":   orderID,
		"payment_id": c.paymentID,
		"amount":     c.amount.Amount,
		"currency":   c.amount.Currency,
	}
}
