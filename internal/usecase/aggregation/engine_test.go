package aggregation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumenpulse/analytics-backend/internal/domain"
)

// MockRawSignalSource is a mock implementation of RawSignalSource for testing
type MockRawSignalSource struct {
	mock.Mock
}

func (m *MockRawSignalSource) QueryDay(ctx context.Context, day time.Time) ([]domain.RawSignal, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RawSignal), args.Error(1)
}

func weightPtr(w string) *decimal.Decimal {
	d := decimal.RequireFromString(w)
	return &d
}

func signal(key, score string, weight *decimal.Decimal, at time.Time) domain.RawSignal {
	return domain.RawSignal{
		Key:        key,
		Score:      decimal.RequireFromString(score),
		Weight:     weight,
		RecordedAt: at,
	}
}

func findRow(t *testing.T, rows []*domain.DailyRollup, key domain.GroupKey) *domain.DailyRollup {
	t.Helper()
	for _, row := range rows {
		if row.Key == key {
			return row
		}
	}
	t.Fatalf("no rollup found for key %s", key)
	return nil
}

func TestAggregate_WeightedStatistics(t *testing.T) {
	ctx := context.Background()
	mockSource := new(MockRawSignalSource)
	engine := NewEngine(mockSource)

	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	signals := []domain.RawSignal{
		signal("BTC", "0.5", weightPtr("10"), day.Add(2*time.Hour)),
		signal("BTC", "0.7", weightPtr("20"), day.Add(8*time.Hour)),
		signal("BTC", "0.9", weightPtr("30"), day.Add(20*time.Hour)),
	}

	mockSource.On("QueryDay", ctx, day).Return(signals, nil)

	rows, err := engine.Aggregate(ctx, day)

	require.NoError(t, err)
	require.Len(t, rows, 2) // BTC + global

	btc := findRow(t, rows, domain.AssetKey("BTC"))
	assert.True(t, btc.Avg.Equal(decimal.RequireFromString("0.7")), "avg = %s", btc.Avg)
	assert.True(t, btc.Min.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, btc.Max.Equal(decimal.RequireFromString("0.9")))
	assert.Equal(t, int64(3), btc.Count)
	require.NotNil(t, btc.TotalWeight)
	assert.True(t, btc.TotalWeight.Equal(decimal.RequireFromString("60")))

	// weighted avg = (0.5*10 + 0.7*20 + 0.9*30) / 60 = 46/60
	require.NotNil(t, btc.WeightedAvg)
	assert.True(t, btc.WeightedAvg.Round(4).Equal(decimal.RequireFromString("0.7667")),
		"weighted avg = %s", btc.WeightedAvg)

	// The single-key day makes the global row identical except for its key
	global := findRow(t, rows, domain.GlobalKey())
	assert.True(t, global.Avg.Equal(btc.Avg))
	assert.Equal(t, btc.Count, global.Count)

	mockSource.AssertExpectations(t)
}

func TestAggregate_GlobalAndPerKeyPartition(t *testing.T) {
	ctx := context.Background()
	mockSource := new(MockRawSignalSource)
	engine := NewEngine(mockSource)

	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	signals := []domain.RawSignal{
		signal("BTC", "0.8", weightPtr("5"), day.Add(time.Hour)),
		signal("ETH", "0.2", weightPtr("15"), day.Add(2*time.Hour)),
		signal("XLM", "0.5", nil, day.Add(3*time.Hour)),
	}

	mockSource.On("QueryDay", ctx, day).Return(signals, nil)

	rows, err := engine.Aggregate(ctx, day)

	require.NoError(t, err)
	require.Len(t, rows, 4) // BTC, ETH, XLM + global

	globals := 0
	keys := make(map[string]bool)
	for _, row := range rows {
		if row.Key.IsGlobal() {
			globals++
		} else {
			keys[row.Key.Asset()] = true
		}
	}
	assert.Equal(t, 1, globals)
	assert.Equal(t, map[string]bool{"BTC": true, "ETH": true, "XLM": true}, keys)

	// Global row spans all signals of the day regardless of key
	global := findRow(t, rows, domain.GlobalKey())
	assert.Equal(t, int64(3), global.Count)
	assert.True(t, global.Min.Equal(decimal.RequireFromString("0.2")))
	assert.True(t, global.Max.Equal(decimal.RequireFromString("0.8")))
	require.NotNil(t, global.TotalWeight)
	assert.True(t, global.TotalWeight.Equal(decimal.RequireFromString("20")))

	mockSource.AssertExpectations(t)
}

func TestAggregate_EmptyDay(t *testing.T) {
	ctx := context.Background()
	mockSource := new(MockRawSignalSource)
	engine := NewEngine(mockSource)

	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	mockSource.On("QueryDay", ctx, day).Return([]domain.RawSignal{}, nil)

	rows, err := engine.Aggregate(ctx, day)

	require.NoError(t, err)
	assert.Empty(t, rows)

	mockSource.AssertExpectations(t)
}

func TestAggregate_ZeroTotalWeightHasNilWeightedAvg(t *testing.T) {
	ctx := context.Background()
	mockSource := new(MockRawSignalSource)
	engine := NewEngine(mockSource)

	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	signals := []domain.RawSignal{
		signal("BTC", "0.4", weightPtr("0"), day.Add(time.Hour)),
		signal("BTC", "0.6", weightPtr("0"), day.Add(2*time.Hour)),
	}

	mockSource.On("QueryDay", ctx, day).Return(signals, nil)

	rows, err := engine.Aggregate(ctx, day)

	require.NoError(t, err)
	btc := findRow(t, rows, domain.AssetKey("BTC"))
	require.NotNil(t, btc.TotalWeight)
	assert.True(t, btc.TotalWeight.IsZero())
	assert.Nil(t, btc.WeightedAvg)
}

func TestAggregate_WeightlessSignalsHaveNilTotalWeight(t *testing.T) {
	ctx := context.Background()
	mockSource := new(MockRawSignalSource)
	engine := NewEngine(mockSource)

	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	signals := []domain.RawSignal{
		signal("XLM", "0.3", nil, day.Add(time.Hour)),
		signal("XLM", "0.5", nil, day.Add(2*time.Hour)),
	}

	mockSource.On("QueryDay", ctx, day).Return(signals, nil)

	rows, err := engine.Aggregate(ctx, day)

	require.NoError(t, err)
	xlm := findRow(t, rows, domain.AssetKey("XLM"))
	assert.Nil(t, xlm.TotalWeight)
	assert.Nil(t, xlm.WeightedAvg)
	assert.True(t, xlm.Avg.Equal(decimal.RequireFromString("0.4")))
}

func TestAggregate_NormalizesDateToUTCDay(t *testing.T) {
	ctx := context.Background()
	mockSource := new(MockRawSignalSource)
	engine := NewEngine(mockSource)

	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	// The engine must query the calendar day even when handed a mid-day timestamp
	mockSource.On("QueryDay", ctx, day).Return([]domain.RawSignal{}, nil)

	_, err := engine.Aggregate(ctx, time.Date(2024, 6, 15, 17, 42, 3, 0, time.UTC))

	require.NoError(t, err)
	mockSource.AssertExpectations(t)
}

func TestAggregate_SourceError(t *testing.T) {
	ctx := context.Background()
	mockSource := new(MockRawSignalSource)
	engine := NewEngine(mockSource)

	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	mockSource.On("QueryDay", ctx, day).Return(nil, errors.New("connection refused"))

	rows, err := engine.Aggregate(ctx, day)

	assert.Error(t, err)
	assert.Nil(t, rows)
	assert.Contains(t, err.Error(), "2024-06-15")
}
