package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tulparexpress/tulpar-bot/internal/models"
)

func TestClient_DisplayCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "TE-5001", models.Client{Code: 5001}.DisplayCode())
	assert.Equal(t, "TE-0042", models.Client{Code: 42}.DisplayCode(), "short codes are zero-padded")
	assert.Equal(t, "TE-15001", models.Client{Code: 15001}.DisplayCode(), "long codes keep every digit")
}
