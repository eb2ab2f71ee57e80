package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/creditkit/pkg/logger"
)

func TestGroup(t *testing.T) {
	attr := logger.Group("req", slog.String("id", "1"), slog.Int("n", 2))
	require.Equal(t, "req", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "id", g[0].Key)
	assert.Equal(t, "n", g[1].Key)
}

func TestErrors(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	empty := logger.Errors(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	empty := logger.Error(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestTenantID(t *testing.T) {
	attr := logger.TenantID("0b043232-52f2-4d47-92a5-9a9f79b0b45f")
	require.Equal(t, "tenant_id", attr.Key)
	assert.Equal(t, "0b043232-52f2-4d47-92a5-9a9f79b0b45f", attr.Value.Any())

	empty := logger.TenantID(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestEventAttrs(t *testing.T) {
	assert.Equal(t, "event_id", logger.EventID("evt_1").Key)
	assert.Equal(t, "event_type", logger.EventType("payment.succeeded").Key)
	assert.Equal(t, "operation", logger.Operation("report").Key)
}

func TestAmountAndBalance(t *testing.T) {
	amount := logger.Amount(42)
	require.Equal(t, "amount", amount.Key)
	assert.Equal(t, int64(42), amount.Value.Int64())

	balance := logger.Balance(100)
	require.Equal(t, "balance", balance.Key)
	assert.Equal(t, int64(100), balance.Value.Int64())
}
