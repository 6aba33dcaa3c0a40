package consolidation

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"consolidation-service/internal/db"
	"consolidation-service/internal/domain"
	"consolidation-service/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(t *testing.T) *service {
	t.Helper()
	client, err := db.Open(context.Background(), db.Config{Path: filepath.Join(t.TempDir(), "scg.db"), Migrate: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	svc := NewService(client.DB(), nil, nil).(*service)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return svc
}

func TestDerive(t *testing.T) {
	assert.True(t, dec("3000").Equal(DeriveRPV(dec("5000"), dec("2000"))))
	assert.True(t, dec("21000150").Equal(DeriveSCG(dec("3000"), dec("5000"), dec("2000"), dec("100"), dec("50"))))
	assert.True(t, dec("840070").Equal(DeriveSCG(dec("600"), dec("1000"), dec("400"), dec("50"), dec("20"))))
}

func TestEndToEndPeriod(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	require.NoError(t, svc.EnsurePeriod(ctx, "2025-Q1", "primeiro trimestre"))
	require.NoError(t, svc.SetField(ctx, "2025-Q1", domain.FieldCGR, dec("5000")))
	require.NoError(t, svc.SetField(ctx, "2025-Q1", domain.FieldCGF, dec("2000")))

	rpv, err := svc.RecomputeRPV(ctx, "2025-Q1")
	require.NoError(t, err)
	assert.True(t, dec("3000").Equal(rpv))

	require.NoError(t, svc.SetField(ctx, "2025-Q1", domain.FieldRET, dec("100")))
	require.NoError(t, svc.SetField(ctx, "2025-Q1", domain.FieldRP, dec("50")))

	scg, err := svc.RecomputeSCG(ctx, "2025-Q1")
	require.NoError(t, err)
	assert.True(t, dec("21000150").Equal(scg), scg.String())

	rec, found, err := svc.Get(ctx, "2025-Q1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, dec("5000").Equal(rec.CGR))
	assert.True(t, dec("2000").Equal(rec.CGF))
	assert.True(t, dec("100").Equal(rec.RET))
	assert.True(t, dec("50").Equal(rec.RP))
	assert.True(t, dec("3000").Equal(rec.RPV))
	assert.True(t, dec("21000150").Equal(rec.SCG))
	assert.Equal(t, "primeiro trimestre", rec.Notes)
	assert.True(t, rec.UpdatedAt.After(rec.CreatedAt))
}

func TestSetFieldDoesNotRecompute(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	require.NoError(t, svc.SetField(ctx, "P", domain.FieldCGR, dec("1000")))
	require.NoError(t, svc.SetField(ctx, "P", domain.FieldCGF, dec("400")))

	rec, found, err := svc.Get(ctx, "P")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, rec.RPV.IsZero())
	assert.True(t, rec.SCG.IsZero())

	require.NoError(t, svc.SetField(ctx, "P", domain.FieldRET, dec("50")))
	require.NoError(t, svc.SetField(ctx, "P", domain.FieldRP, dec("20")))

	rec, err = svc.Finalize(ctx, "P")
	require.NoError(t, err)
	assert.True(t, dec("600").Equal(rec.RPV))
	assert.True(t, dec("840070").Equal(rec.SCG))
}

func TestManualOverrideStaysUntilRecompute(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	require.NoError(t, svc.SetField(ctx, "P", domain.FieldCGR, dec("5000")))
	require.NoError(t, svc.SetRPVAndCGFManual(ctx, "P", dec("999"), dec("10")))

	rec, _, err := svc.Get(ctx, "P")
	require.NoError(t, err)
	assert.True(t, dec("999").Equal(rec.RPV))
	assert.True(t, dec("10").Equal(rec.CGF))

	scg, err := svc.RecomputeSCG(ctx, "P")
	require.NoError(t, err)
	assert.True(t, dec("999").Mul(dec("5010")).Equal(scg))

	rpv, err := svc.RecomputeRPV(ctx, "P")
	require.NoError(t, err)
	assert.True(t, dec("4990").Equal(rpv))
}

func TestRecomputeAbsentPeriod(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	rpv, err := svc.RecomputeRPV(ctx, "nada")
	require.NoError(t, err)
	assert.True(t, rpv.IsZero())

	scg, err := svc.RecomputeSCG(ctx, "nada")
	require.NoError(t, err)
	assert.True(t, scg.IsZero())

	_, found, err := svc.Get(ctx, "nada")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecomputeAbsentPeriodCountsNoWrite(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	svc.metrics = metrics.New()

	_, err := svc.RecomputeRPV(ctx, "nada")
	require.NoError(t, err)
	_, err = svc.RecomputeSCG(ctx, "nada")
	require.NoError(t, err)
	assert.Equal(t, float64(0), testutil.ToFloat64(svc.metrics.ConsolidationWrites.WithLabelValues("rpv")))
	assert.Equal(t, float64(0), testutil.ToFloat64(svc.metrics.ConsolidationWrites.WithLabelValues("scg")))

	require.NoError(t, svc.SetField(ctx, "2026-02", domain.FieldCGR, dec("10")))
	_, err = svc.RecomputeRPV(ctx, "2026-02")
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(svc.metrics.ConsolidationWrites.WithLabelValues("rpv")))
}

func TestEnsurePeriodIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	require.NoError(t, svc.EnsurePeriod(ctx, "P", "original"))
	require.NoError(t, svc.SetField(ctx, "P", domain.FieldCGR, dec("12.34")))
	require.NoError(t, svc.EnsurePeriod(ctx, "P", "outra"))

	rec, _, err := svc.Get(ctx, "P")
	require.NoError(t, err)
	assert.Equal(t, "original", rec.Notes)
	assert.True(t, dec("12.34").Equal(rec.CGR))

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDecimalRoundTripIsExact(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	value := dec("123456789012.345678")
	require.NoError(t, svc.SetField(ctx, "P", domain.FieldRET, value))
	rec, _, err := svc.Get(ctx, "P")
	require.NoError(t, err)
	assert.True(t, value.Equal(rec.RET), rec.RET.String())
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	require.NoError(t, svc.EnsurePeriod(ctx, "2025-01", ""))
	require.NoError(t, svc.EnsurePeriod(ctx, "2025-02", ""))
	require.NoError(t, svc.EnsurePeriod(ctx, "2025-03", ""))

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2025-03", all[0].Period)
	assert.Equal(t, "2025-01", all[2].Period)

	deleted, err := svc.Delete(ctx, "2025-02")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.Delete(ctx, "2025-02")
	require.NoError(t, err)
	assert.False(t, deleted)

	all, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	err := svc.SetField(ctx, "P", domain.ConsolidationField("scg"), dec("1"))
	assert.ErrorIs(t, err, ErrUnknownField)

	err = svc.EnsurePeriod(ctx, "  ", "")
	assert.ErrorIs(t, err, ErrEmptyPeriod)

	f, err := ParseField(" CGF ")
	require.NoError(t, err)
	assert.Equal(t, domain.FieldCGF, f)

	_, err = ParseField("rpv")
	assert.ErrorIs(t, err, ErrUnknownField)
}
