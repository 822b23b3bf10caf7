package performance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumenpulse/analytics-backend/internal/domain"
)

// MockObservationRepository is a mock implementation of ObservationRepository for testing
type MockObservationRepository struct {
	mock.Mock
}

func (m *MockObservationRepository) Add(ctx context.Context, obs *domain.ValueObservation) error {
	args := m.Called(ctx, obs)
	return args.Error(0)
}

func (m *MockObservationRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.ValueObservation, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ValueObservation), args.Error(1)
}

func obsAt(at time.Time, value int64) *domain.ValueObservation {
	return &domain.ValueObservation{
		ID:         uuid.New(),
		AccountID:  uuid.New(),
		ObservedAt: at,
		TotalValue: decimal.NewFromInt(value),
		Source:     domain.ResolutionLive,
	}
}

func TestEvaluate_SelectsNearestPrecedingBaseline(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	observations := []*domain.ValueObservation{
		obsAt(time.Date(2024, 6, 13, 12, 0, 0, 0, time.UTC), 80),
		obsAt(time.Date(2024, 6, 19, 12, 0, 0, 0, time.UTC), 100),
	}

	results := Evaluate(decimal.NewFromInt(100), observations, []domain.Window{domain.Window7d}, now)

	require.Len(t, results, 1)
	result := results[0]
	require.True(t, result.HasData)

	// The 7d target is exactly 2024-06-13T12:00Z: the 80-value observation
	// matches it, and the later 100-value observation is never eligible.
	assert.True(t, result.BaselineValue.Equal(decimal.NewFromInt(80)))
	assert.True(t, result.BaselineObservedAt.Equal(time.Date(2024, 6, 13, 12, 0, 0, 0, time.UTC)))
	assert.True(t, result.AbsolutePnl.Equal(decimal.NewFromInt(20)))
	assert.True(t, result.PercentageChange.Equal(decimal.NewFromInt(25)), "pct = %s", result.PercentageChange)
}

func TestEvaluate_NoObservations(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	currentValue := decimal.RequireFromString("1234.56")

	results := Evaluate(currentValue, nil, domain.DefaultWindows(), now)

	require.Len(t, results, 3)
	for _, result := range results {
		assert.False(t, result.HasData)
		assert.Nil(t, result.BaselineValue)
		assert.Nil(t, result.BaselineObservedAt)
		assert.Nil(t, result.AbsolutePnl)
		assert.Nil(t, result.PercentageChange)
		assert.True(t, result.CurrentValue.Equal(currentValue))
	}
}

func TestEvaluate_NeverLooksAhead(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)

	// One minute after the 24h target: nominally very close, never eligible
	observations := []*domain.ValueObservation{
		obsAt(time.Date(2024, 6, 19, 12, 1, 0, 0, time.UTC), 90),
	}

	results := Evaluate(decimal.NewFromInt(100), observations, []domain.Window{domain.Window24h}, now)

	require.Len(t, results, 1)
	assert.False(t, results[0].HasData)
	assert.True(t, results[0].CurrentValue.Equal(decimal.NewFromInt(100)))
}

func TestEvaluate_ZeroBaselineYieldsZeroPercentage(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	observations := []*domain.ValueObservation{
		obsAt(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 0),
	}

	results := Evaluate(decimal.NewFromInt(100), observations, []domain.Window{domain.Window7d}, now)

	require.Len(t, results, 1)
	result := results[0]
	require.True(t, result.HasData)
	assert.True(t, result.AbsolutePnl.Equal(decimal.NewFromInt(100)))
	assert.True(t, result.PercentageChange.IsZero())
}

func TestEvaluate_InputOrderIrrelevant(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	a := obsAt(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), 70)
	b := obsAt(time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), 85)
	c := obsAt(time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), 60)

	forward := Evaluate(decimal.NewFromInt(100), []*domain.ValueObservation{a, b, c}, []domain.Window{domain.Window7d}, now)
	backward := Evaluate(decimal.NewFromInt(100), []*domain.ValueObservation{c, b, a}, []domain.Window{domain.Window7d}, now)

	require.True(t, forward[0].HasData)
	require.True(t, backward[0].HasData)
	assert.True(t, forward[0].BaselineValue.Equal(*backward[0].BaselineValue))
	// 7d target is 06-13; the 06-12 observation is the nearest preceding one
	assert.True(t, forward[0].BaselineValue.Equal(decimal.NewFromInt(85)))
}

func TestEvaluate_TiedTimestampsAreDeterministic(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	at := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	a := obsAt(at, 70)
	b := obsAt(at, 75)

	forward := Evaluate(decimal.NewFromInt(100), []*domain.ValueObservation{a, b}, []domain.Window{domain.Window7d}, now)
	backward := Evaluate(decimal.NewFromInt(100), []*domain.ValueObservation{b, a}, []domain.Window{domain.Window7d}, now)

	require.True(t, forward[0].HasData)
	assert.True(t, forward[0].BaselineValue.Equal(*backward[0].BaselineValue))
}

func TestEvaluate_WindowOrderPreserved(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)

	results := Evaluate(decimal.NewFromInt(100), nil, domain.DefaultWindows(), now)

	require.Len(t, results, 3)
	assert.Equal(t, domain.Window24h, results[0].Window)
	assert.Equal(t, domain.Window7d, results[1].Window)
	assert.Equal(t, domain.Window30d, results[2].Window)
}

func TestEvaluate_Rounding(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	observations := []*domain.ValueObservation{
		{
			ID:         uuid.New(),
			AccountID:  uuid.New(),
			ObservedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			TotalValue: decimal.RequireFromString("3"),
		},
	}

	results := Evaluate(decimal.RequireFromString("4.005"), observations, []domain.Window{domain.Window7d}, now)

	require.Len(t, results, 1)
	result := results[0]
	require.True(t, result.HasData)

	// 4.005 - 3 = 1.005 -> 1.01 at 2dp; 1.01/3*100 = 33.6667 at 4dp
	assert.True(t, result.AbsolutePnl.Equal(decimal.RequireFromString("1.01")), "pnl = %s", result.AbsolutePnl)
	assert.True(t, result.PercentageChange.Equal(decimal.RequireFromString("33.6667")), "pct = %s", result.PercentageChange)
}

func TestEvaluate_WindowsIndependent(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	observations := []*domain.ValueObservation{
		// Precedes the 24h target but not the 7d or 30d targets
		obsAt(time.Date(2024, 6, 19, 0, 0, 0, 0, time.UTC), 95),
	}

	results := Evaluate(decimal.NewFromInt(100), observations, domain.DefaultWindows(), now)

	require.Len(t, results, 3)
	require.True(t, results[0].HasData) // 24h
	assert.True(t, results[0].BaselineValue.Equal(decimal.NewFromInt(95)))
	assert.False(t, results[1].HasData) // 7d
	assert.False(t, results[2].HasData) // 30d
}

func TestEvaluateAccount_LoadsObservations(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockObservationRepository)
	service := NewService(mockRepo)

	accountID := uuid.New()
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	observations := []*domain.ValueObservation{
		obsAt(time.Date(2024, 6, 13, 12, 0, 0, 0, time.UTC), 80),
	}

	mockRepo.On("ListByAccount", ctx, accountID).Return(observations, nil)

	results, err := service.EvaluateAccount(ctx, accountID, decimal.NewFromInt(100), now)

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[1].HasData) // 7d baseline is the 06-13 observation

	mockRepo.AssertExpectations(t)
}

func TestEvaluateAccount_RepositoryFailure(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockObservationRepository)
	service := NewService(mockRepo)

	accountID := uuid.New()
	mockRepo.On("ListByAccount", ctx, accountID).Return(nil, errors.New("timeout"))

	results, err := service.EvaluateAccount(ctx, accountID, decimal.NewFromInt(100), time.Now())

	assert.Nil(t, results)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), accountID.String())
}
