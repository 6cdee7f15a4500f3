package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
	"github.com/bong69rip420/rugwatcher-automator/internal/storage"
)

func TestAnalysisStoreInsertAndGet(t *testing.T) {
	conn := setupConn(t)
	store := NewAnalysisStore(conn)
	ctx := context.Background()

	first := &domain.TokenAnalysis{
		TokenAddress:        "mint-a",
		TotalHolders:        40,
		MaxHolderPercentage: 35.5,
		HasUnlimitedMint:    true,
		HasBlacklist:        true,
		Volume24h:           120,
		RiskLevel:           domain.RiskHigh,
		IsSafe:              false,
		Reasons: []string{
			"Only 40 holders (minimum 100)",
			"Unlimited mint authority detected",
		},
		EvaluatedAt: 1700000000000,
	}
	require.NoError(t, store.Insert(ctx, first))

	second := &domain.TokenAnalysis{
		TokenAddress:        "mint-a",
		TotalHolders:        150,
		MaxHolderPercentage: 12,
		Volume24h:           2500,
		RiskLevel:           domain.RiskLow,
		IsSafe:              true,
		Reasons:             []string{},
		EvaluatedAt:         1700000060000,
	}
	require.NoError(t, store.Insert(ctx, second))

	got, err := store.GetByToken(ctx, "mint-a")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by evaluation time.
	require.Equal(t, int64(1700000000000), got[0].EvaluatedAt)
	require.Equal(t, uint(40), got[0].TotalHolders)
	require.Equal(t, domain.RiskHigh, got[0].RiskLevel)
	require.True(t, got[0].HasUnlimitedMint)
	require.Equal(t, first.Reasons, got[0].Reasons)

	require.True(t, got[1].IsSafe)
	require.Equal(t, domain.RiskLow, got[1].RiskLevel)
	require.Empty(t, got[1].Reasons)
}

func TestAnalysisStoreInsertBulk(t *testing.T) {
	conn := setupConn(t)
	store := NewAnalysisStore(conn)
	ctx := context.Background()

	batch := []*domain.TokenAnalysis{
		{TokenAddress: "mint-b", RiskLevel: domain.RiskLow, Reasons: []string{}, EvaluatedAt: 1},
		{TokenAddress: "mint-b", RiskLevel: domain.RiskMedium, Reasons: []string{"Pausable trading detected"}, EvaluatedAt: 2},
		{TokenAddress: "mint-c", RiskLevel: domain.RiskHigh, Reasons: []string{}, EvaluatedAt: 3},
	}
	require.NoError(t, store.InsertBulk(ctx, batch))

	got, err := store.GetByToken(ctx, "mint-b")
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = store.GetByToken(ctx, "mint-c")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestAnalysisStoreRejectsInvalidInput(t *testing.T) {
	store := NewAnalysisStore(nil)
	ctx := context.Background()

	require.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	require.ErrorIs(t, store.Insert(ctx, &domain.TokenAnalysis{}), storage.ErrInvalidInput)

	_, err := store.GetByToken(ctx, "")
	require.ErrorIs(t, err, storage.ErrInvalidInput)

	// An empty bulk insert is a no-op, not an error.
	require.NoError(t, store.InsertBulk(ctx, nil))
}
