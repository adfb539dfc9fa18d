package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tulparexpress/tulpar-bot/internal/models"
)

func TestParsePaymentStatus(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"PENDING", "PAID", "REFUNDED"} {
		status, err := models.ParsePaymentStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, string(status))
	}

	_, err := models.ParsePaymentStatus("DECLINED")
	require.ErrorIs(t, err, models.ErrUnknownPaymentStatus)
}

func TestPaymentStatus_Terminal(t *testing.T) {
	t.Parallel()

	assert.False(t, models.PaymentPending.Terminal())
	assert.True(t, models.PaymentPaid.Terminal())
	assert.True(t, models.PaymentRefunded.Terminal())
}

func TestParsePaymentMethod(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"CASH", "CARD", "TRANSFER"} {
		method, err := models.ParsePaymentMethod(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, string(method))
	}

	_, err := models.ParsePaymentMethod("CRYPTO")
	require.ErrorIs(t, err, models.ErrUnknownPaymentMethod)
}
