package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("picked")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPicked, status)

	_, err = ParseOrderStatus("lost_in_transit")
	require.Error(t, err)
}

func TestOrderStatusCancellable(t *testing.T) {
	cancellable := map[OrderStatus]bool{
		OrderStatusPending:    true,
		OrderStatusConfirmed:  true,
		OrderStatusProcessing: true,
		OrderStatusPicked:     false,
		OrderStatusShipped:    false,
		OrderStatusDelivered:  false,
		OrderStatusCancelled:  false,
		OrderStatusReturned:   false,
		OrderStatusFailed:     false,
	}
	for status, want := range cancellable {
		assert.Equal(t, want, status.IsCancellable(), status)
	}
}

func TestOrderStatusVoid(t *testing.T) {
	assert.True(t, OrderStatusCancelled.IsVoid())
	assert.True(t, OrderStatusFailed.IsVoid())
	assert.False(t, OrderStatusReturned.IsVoid())
	assert.False(t, OrderStatusDelivered.IsVoid())
}

func TestPaymentStatusRecordMapping(t *testing.T) {
	assert.Equal(t, PaymentRecordCompleted, PaymentStatusPaid.RecordStatus())
	assert.Equal(t, PaymentRecordFailed, PaymentStatusFailed.RecordStatus())
	assert.Equal(t, PaymentRecordRefunded, PaymentStatusRefunded.RecordStatus())
	assert.Equal(t, PaymentRecordPending, PaymentStatusPending.RecordStatus())
}

func TestPaymentMethodRequiresTransaction(t *testing.T) {
	assert.False(t, PaymentMethodCashOnDelivery.RequiresTransaction())
	for _, m := range []PaymentMethod{PaymentMethodBkash, PaymentMethodNagad, PaymentMethodRocket, PaymentMethodCard, PaymentMethodBankTransfer} {
		assert.True(t, m.RequiresTransaction(), m)
	}
	_, err := ParsePaymentMethod("paypal")
	require.Error(t, err)
}

func TestParseStockAdjustmentOp(t *testing.T) {
	op, err := ParseStockAdjustmentOp("subtract")
	require.NoError(t, err)
	assert.Equal(t, StockOpSubtract, op)

	_, err = ParseStockAdjustmentOp("multiply")
	require.Error(t, err)
}
