package pmpv

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"consolidation-service/internal/db"
	"consolidation-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func input(company, a, b, c, volume string) domain.MonthInput {
	return domain.MonthInput{Company: company, ComponentA: dec(a), ComponentB: dec(b), ComponentC: dec(c), Volume: dec(volume)}
}

func newTestService(t *testing.T) *service {
	t.Helper()
	client, err := db.Open(context.Background(), db.Config{Path: filepath.Join(t.TempDir(), "pmpv.db"), Migrate: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	svc := NewService(client.DB(), nil).(*service)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return svc
}

func TestQuarterDays(t *testing.T) {
	assert.Equal(t, [3]int{31, 28, 31}, QuarterDays(2025, time.January))
	assert.Equal(t, [3]int{31, 29, 31}, QuarterDays(2024, time.January))
	assert.Equal(t, [3]int{31, 31, 28}, QuarterDays(2025, time.December))
	assert.Equal(t, [3]int{30, 31, 31}, QuarterDays(2025, time.June))
}

func TestCalculateWeightedAverage(t *testing.T) {
	months := [3][]domain.MonthInput{
		{input("PETROBRAS", "2", "0.5", "0.5", "100"), input("GALP", "4", "0", "0", "50")},
		{input("PETROBRAS", "3", "0", "0", "0")},
		nil,
	}
	calc, err := Calculate(months, [3]int{30, 28, 31}, DefaultAdjustment)
	require.NoError(t, err)

	// 100×30 a 3,00 + 50×30 a 4,00 = 9000 + 6000 sobre 4500 m³
	assert.True(t, dec("4500").Equal(calc.TotalVolume), calc.TotalVolume.String())
	assert.True(t, dec("15000").Equal(calc.TotalCost), calc.TotalCost.String())
	assert.Equal(t, "3.3333", calc.DerivedUnitPrice.StringFixed(4))
	assert.Equal(t, "3.3123", calc.FinalPrice.StringFixed(4))
}

func TestCalculateZeroVolume(t *testing.T) {
	_, err := Calculate([3][]domain.MonthInput{{input("GALP", "1", "1", "1", "0")}}, [3]int{30, 30, 30}, decimal.Zero)
	assert.ErrorIs(t, err, ErrZeroVolume)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	sess, err := svc.CreateSession(ctx, "1T2026", "")
	require.NoError(t, err)
	require.NotZero(t, sess.ID)

	rows := []domain.MonthInput{input("PETROBRAS", "2", "0.5", "0.5", "100"), input("  ", "9", "9", "9", "9"), input("GALP", "4", "0", "0", "50")}
	require.NoError(t, svc.SaveMonthInputs(ctx, sess.ID, 1, rows))
	require.NoError(t, svc.SaveMonthInputs(ctx, sess.ID, 1, rows[:1]))

	loaded, err := svc.LoadMonthInputs(ctx, sess.ID, 1)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "PETROBRAS", loaded[0].Company)
	assert.True(t, dec("0.5").Equal(loaded[0].ComponentB))

	got, err := svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	quarter, err := svc.LoadQuarter(ctx, sess.ID)
	require.NoError(t, err)
	calc, err := Calculate(quarter, [3]int{30, 30, 30}, DefaultAdjustment)
	require.NoError(t, err)

	_, found, err := svc.LatestResult(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = svc.SaveResult(ctx, sess.ID, calc)
	require.NoError(t, err)
	latest, found, err := svc.LatestResult(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, dec("3").Equal(latest.DerivedUnitPrice), latest.DerivedUnitPrice.String())
	assert.True(t, dec("-0.021").Equal(latest.Adjustment))
}

func TestSessionErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateSession(ctx, " ", "")
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = svc.GetSession(ctx, 42)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	err = svc.SaveMonthInputs(ctx, 42, 1, nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	err = svc.SaveMonthInputs(ctx, 1, 4, nil)
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestPublishedPriceUpsert(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, found, err := svc.GetPublishedPrice(ctx, "Jan/2026")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, svc.SavePublishedPrice(ctx, "Jan/2026", dec("2.5")))
	require.NoError(t, svc.SavePublishedPrice(ctx, "Fev/2026", dec("2.7")))
	require.NoError(t, svc.SavePublishedPrice(ctx, "Jan/2026", dec("2.6123")))

	price, found, err := svc.GetPublishedPrice(ctx, "Jan/2026")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, dec("2.6123").Equal(price))

	all, err := svc.ListPublishedPrices(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Jan/2026", all[0].Period)
}

func TestQuarterMonthNames(t *testing.T) {
	assert.Equal(t, [3]string{"Novembro", "Dezembro", "Janeiro"}, QuarterMonthNames(time.November))
	assert.Equal(t, [3]string{"Janeiro", "Fevereiro", "Março"}, QuarterMonthNames(time.January))
}
