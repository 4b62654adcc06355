package participants

import (
	"context"
	"sync"

	"github.com/draftea/saga-system/shared/logger"
	"github.com/draftea/saga-system/shared/models"
	"github.com/draftea/saga-system/shared/saga"
	"go.uber.org/zap"
)

// Notification is a message sent to a customer
type Notification struct {
	ID         string
	Template   string
	OrderID    string
	CustomerID string
}

var notificationTemplates = map[string]string{
	"send_order_notification":                  "order_confirmed",
	"send_order_cancelled_notification":        "order_cancelled",
	"send_cancellation_notification":           "cancellation_confirmed",
	"send_cancellation_retracted_notification": "cancellation_retracted",
}

// Notifications sends customer notifications. Delivery is recorded in memory.
type Notifications struct {
	mu     sync.Mutex
	sent   []Notification
	ledger *ledger
	logger *zap.Logger
}

var _ saga.Participant = (*Notifications)(nil)

func NewNotifications(log *zap.Logger) *Notifications {
	return &Notifications{
		ledger: newLedger(),
		logger: logger.OrNop(log),
	}
}

func (n *Notifications) Name() string { return "notifications" }

func (n *Notifications) Execute(ctx context.Context, stepName string, data models.Payload) (models.Payload, error) {
	return n.send(ctx, stepName, data)
}

// Compensate sends the follow up message. prior is the result of the
// original notification, which carries the order and customer.
func (n *Notifications) Compensate(ctx context.Context, action string, prior models.Payload) (models.Payload, error) {
	return n.send(ctx, action, prior)
}

// Sent returns the notifications delivered so far
func (n *Notifications) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.sent))
	copy(out, n.sent)
	return out
}

func (n *Notifications) send(ctx context.Context, operation string, data models.Payload) (models.Payload, error) {
	template, ok := notificationTemplates[operation]
	if !ok {
		return nil, unknownOperation(n.Name(), operation)
	}

	return n.ledger.once(ctx, operation, func() (models.Payload, error) {
		orderID, err := requireString(data, "order_id")
		if err != nil {
			return nil, err
		}
		customerID, _ := data.String("customer_id")

		n.mu.Lock()
		defer n.mu.Unlock()

		notification := Notification{
			ID:         models.GenerateUUID().String(),
			Template:   template,
			OrderID:    orderID,
			CustomerID: customerID,
		}
		n.sent = append(n.sent, notification)

		n.logger.Info("notification sent",
			zap.String("template", template),
			zap.String("order_id", orderID),
		)
		return models.Payload{
			"notification_id": notification.ID,
			"template":        template,
			"order_id":        orderID,
			"customer_id":     customerID,
		}, nil
	})
}
