package reconciliation

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"consolidation-service/internal/config"
	"consolidation-service/internal/core/extraction"
	"consolidation-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeSource map[string]extraction.TextRead

func (f fakeSource) ReadText(_ context.Context, path string) extraction.TextRead {
	return f[filepath.Base(path)]
}

type fakeStore struct {
	field domain.ConsolidationField
	value decimal.Decimal
}

func (f *fakeStore) SetField(_ context.Context, _ string, field domain.ConsolidationField, value decimal.Decimal) error {
	f.field, f.value = field, value
	return nil
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
}

func TestEvaluate(t *testing.T) {
	rules := config.DefaultRules().Text

	it := Evaluate("/r/a.pdf", CategoryRevenue, extraction.TextRead{Text: "NOTA FISCAL total 1.234,56", Method: extraction.ReadDigital}, rules)
	assert.Equal(t, StatusOK, it.Status)
	assert.True(t, dec("1234.56").Equal(it.Amount))
	assert.Equal(t, "TEXTO_DIGITAL -> Maior Valor Detectado", it.Method)

	it = Evaluate("/r/b.pdf", CategoryRevenue, extraction.TextRead{Text: "recibo 10,00", Method: extraction.ReadOCR}, rules)
	assert.Equal(t, StatusReview, it.Status)
	assert.Equal(t, "OCR (IA Visual) -> Valor não identificado", it.Method)

	it = Evaluate("/r/c.pdf", CategoryExpense, extraction.TextRead{Method: extraction.ReadNoOCR}, rules)
	assert.Equal(t, StatusError, it.Status)
	assert.Equal(t, extraction.ReadNoOCR, it.Method)
	assert.Equal(t, "c.pdf", it.File)
}

func TestReconcileBalanceCountsOnlyOK(t *testing.T) {
	root := t.TempDir()
	revenue := filepath.Join(root, "receitas")
	expense := filepath.Join(root, "despesas")
	touch(t, filepath.Join(revenue, "r1.pdf"))
	touch(t, filepath.Join(revenue, "sub", "r2.PDF"))
	touch(t, filepath.Join(revenue, "r3.pdf"))
	touch(t, filepath.Join(expense, "d1.pdf"))
	touch(t, filepath.Join(expense, "d2.pdf"))

	source := fakeSource{
		"r1.pdf": {Text: "NOTA 1.000,00", Method: extraction.ReadDigital},
		"r2.PDF": {Text: "Fatura valor 500,50", Method: extraction.ReadDigital},
		"r3.pdf": {Text: "sem valor", Method: extraction.ReadDigital},
		"d1.pdf": {Text: "PENALIDADE 300,25", Method: extraction.ReadOCR},
		"d2.pdf": {Method: "ERRO LEITURA: corrompido"},
	}
	store := &fakeStore{}
	svc := NewService(source, store, nil, 3, nil)

	var seen atomic.Int64
	summary, err := svc.Reconcile(context.Background(), Request{RevenueDir: revenue, ExpenseDir: expense}, func(done, total int, _ Item) {
		seen.Add(1)
		assert.Equal(t, 5, total)
	})
	require.NoError(t, err)

	assert.EqualValues(t, 5, seen.Load())
	require.Len(t, summary.Items, 5)
	assert.Equal(t, CategoryRevenue, summary.Items[0].Category)
	assert.Equal(t, CategoryExpense, summary.Items[4].Category)
	assert.True(t, dec("1500.50").Equal(summary.Revenue), summary.Revenue.String())
	assert.True(t, dec("300.25").Equal(summary.Expense))
	assert.True(t, dec("1200.25").Equal(summary.Balance))
	assert.Equal(t, 1, summary.Review)
	assert.Equal(t, 1, summary.Errors)

	require.NoError(t, svc.SaveRP(context.Background(), "Jan/2026", summary))
	assert.Equal(t, domain.FieldRP, store.field)
	assert.True(t, dec("1200.25").Equal(store.value))
}

func TestReconcileRequiresInput(t *testing.T) {
	svc := NewService(fakeSource{}, &fakeStore{}, nil, 1, nil)

	_, err := svc.Reconcile(context.Background(), Request{}, nil)
	assert.ErrorIs(t, err, ErrNoFolders)

	_, err = svc.Reconcile(context.Background(), Request{ExpenseDir: t.TempDir()}, nil)
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestReconcileCancelled(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.pdf"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(fakeSource{}, &fakeStore{}, nil, 1, nil)
	_, err := svc.Reconcile(ctx, Request{RevenueDir: dir}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
