package participants

import (
	"testing"

	"github.com/draftea/saga-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifications_Send(t *testing.T) {
	notifications := NewNotifications(nil)
	ctx := sagaContext("saga-1")
	data := models.Payload{"order_id": "ord-1", "customer_id": "cus-1"}

	first, err := notifications.Execute(ctx, "send_order_notification", data)
	require.NoError(t, err)
	again, err := notifications.Execute(ctx, "send_order_notification", data)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	_, err = notifications.Compensate(ctx, "send_order_cancelled_notification", first)
	require.NoError(t, err)

	sent := notifications.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "order_confirmed", sent[0].Template)
	assert.Equal(t, "order_cancelled", sent[1].Template)
	assert.Equal(t, "cus-1", sent[1].CustomerID)

	_, err = notifications.Execute(ctx, "send_sms", data)
	assert.ErrorIs(t, err, ErrUnknownOperation)
}
