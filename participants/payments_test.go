package participants

import (
	"testing"

	"github.com/draftea/saga-system/shared/models"
	"github.com/draftea/saga-system/shared/saga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayments_Charge(t *testing.T) {
	tests := []struct {
		name             string
		data             models.Payload
		expectedResult   models.Payload
		expectedCaptured models.Money
		expectedError    error
	}{
		{
			name: "charges in default currency",
			data: models.Payload{"order_id": "ord-1", "amount": float64(1200)},
			expectedResult: models.Payload{
				"order_id":   "ord-1",
				"payment_id": "pay-ord-1",
				"amount":     int64(1200),
				"currency":   "USD",
			},
			expectedCaptured: models.NewMoney(1200, "USD"),
		},
		{
			name:             "declined card",
			data:             models.Payload{"order_id": "ord-1", "amount": float64(1200), "card_token": "declined"},
			expectedCaptured: models.NewMoney(0, "USD"),
			expectedError:    ErrCardDeclined,
		},
		{
			name:             "non positive amount",
			data:             models.Payload{"order_id": "ord-1", "amount": float64(0)},
			expectedCaptured: models.NewMoney(0, "USD"),
			expectedError:    ErrInvalidRequest,
		},
		{
			name:             "missing order",
			data:             models.Payload{"amount": float64(10)},
			expectedCaptured: models.NewMoney(0, "USD"),
			expectedError:    ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := NewPayments(nil)

			result, err := payments.Execute(sagaContext("saga-1"), "charge_payment", tt.data)

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedError)
				assert.True(t, saga.IsPermanent(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedResult, result)
			}
			assert.Equal(t, tt.expectedCaptured, payments.Captured("USD"))
		})
	}
}

func TestPayments_RefundAndRecharge(t *testing.T) {
	payments := NewPayments(nil)

	charged, err := payments.Execute(sagaContext("saga-1"), "charge_payment",
		models.Payload{"order_id": "ord-1", "amount": float64(500), "currency": "EUR"})
	require.NoError(t, err)

	refunded, err := payments.Compensate(sagaContext("saga-1"), "refund_payment", charged)
	require.NoError(t, err)
	assert.Equal(t, true, refunded["refunded"])
	assert.Equal(t, models.NewMoney(0, "EUR"), payments.Captured("EUR"))

	// the cancel saga undoing its refund charges again
	_, err = payments.Compensate(sagaContext("saga-2"), "charge_payment", refunded)
	require.NoError(t, err)
	assert.Equal(t, models.NewMoney(500, "EUR"), payments.Captured("EUR"))

	// refunding an order that was never charged succeeds
	missing, err := payments.Execute(sagaContext("saga-3"), "refund_payment", models.Payload{"order_id": "ord-2"})
	require.NoError(t, err)
	assert.Equal(t, false, missing["refunded"])

	result, err := payments.Compensate(sagaContext("saga-3"), "charge_payment", missing)
	require.NoError(t, err)
	assert.Equal(t, false, result["charged"])
	assert.Equal(t, models.NewMoney(500, "EUR"), payments.Captured("EUR"))
}
