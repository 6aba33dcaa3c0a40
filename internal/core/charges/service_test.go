package charges

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"consolidation-service/internal/config"
	"consolidation-service/internal/core/extraction"
	"consolidation-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeSource map[string]string

func (f fakeSource) ReadText(_ context.Context, path string) extraction.TextRead {
	return extraction.TextRead{Text: f[filepath.Base(path)], Method: extraction.ReadDigital}
}

type fakeStore struct {
	field domain.ConsolidationField
	value decimal.Decimal
}

func (f *fakeStore) SetField(_ context.Context, _ string, field domain.ConsolidationField, value decimal.Decimal) error {
	f.field, f.value = field, value
	return nil
}

func TestAnalyze(t *testing.T) {
	text := "NOTA DE DÉBITO ND: 4521\nVencimento: 15/03/2026\nQT: 250\nValor unitário € 10,00\nTotal € 2.500,00\nTaxa R$ 12,50"
	note := Analyze("EAT/Janeiro/COPERGAS_ND_4521.pdf", text, config.DefaultRules().Charges.KnownCompanies)

	assert.Equal(t, "COPERGAS_ND_4521.pdf", note.File)
	assert.Equal(t, TypeEAT, note.ChargeType)
	assert.Equal(t, "COPERGAS", note.Company)
	assert.Equal(t, NoteDebit, note.NoteType)
	assert.Equal(t, "4521", note.Number)
	assert.Equal(t, "15/03/2026", note.DueDate)
	assert.Len(t, note.Values, 6)
	assert.True(t, dec("2500").Equal(note.Total), note.Total.String())
	assert.True(t, dec("250").Equal(note.Quantity))
	assert.True(t, dec("10").Equal(note.UnitValue))
	assert.True(t, note.HasValues())
}

func TestAnalyzeWithoutValues(t *testing.T) {
	note := Analyze("Outros/aviso.pdf", "documento sem valores QT: 3", nil)
	assert.False(t, note.HasValues())
	assert.True(t, note.Total.IsZero())
	assert.True(t, note.Quantity.IsZero())
	assert.Equal(t, NotAvailable, note.Company)
}

func TestClassification(t *testing.T) {
	assert.Equal(t, TypePenalties, ChargeType("Penalidades/2026/x.pdf"))
	assert.Equal(t, TypeTOP, ChargeType("TOP 2025/x.pdf"))
	assert.Equal(t, TypeOther, ChargeType("Outros/x.pdf"))

	assert.Equal(t, NoteCredit, NoteType("KLABIN NC 12.pdf"))
	assert.Equal(t, NoteCredit, NoteType("ambev credito.pdf"))
	assert.Equal(t, NoteDebit, NoteType("gerdau débito.pdf"))
	assert.Equal(t, NotAvailable, NoteType("nota.pdf"))

	known := config.DefaultRules().Charges.KnownCompanies
	assert.Equal(t, "M DIAS BRANCO", Company("m dias branco - debito.pdf", known))
	assert.Equal(t, "AMBEV", Company("CERVEJARIA AMBEV.pdf", known))
}

func TestProcessSummarizesByType(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		filepath.Join("EAT", "GALP ND 1.pdf"):       "ND 1 € 100,00",
		filepath.Join("TOP", "PETROBRAS NC.pdf"):    "R$ 50,00",
		filepath.Join("Outros", "vazio.pdf"):        "sem valores",
		filepath.Join("Outros", "ignorado.txt"):     "R$ 999,00",
	}
	source := fakeSource{}
	for rel, text := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
		source[filepath.Base(rel)] = text
	}

	store := &fakeStore{}
	svc := NewService(source, store, nil, 2, nil)
	summary, err := svc.Process(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, summary.Notes, 3)
	assert.Equal(t, 2, summary.WithValues)
	require.Len(t, summary.WithoutValues, 1)
	assert.Equal(t, "vazio.pdf", filepath.Base(summary.WithoutValues[0]))
	assert.True(t, dec("150").Equal(summary.Total))
	assert.True(t, dec("900").Equal(summary.TotalBRL), summary.TotalBRL.String())

	require.Len(t, summary.ByType, 3)
	assert.Equal(t, TypeEAT, summary.ByType[0].ChargeType)
	assert.True(t, dec("600").Equal(summary.ByType[0].TotalBRL))
	assert.Equal(t, TypeOther, summary.ByType[1].ChargeType)
	assert.Equal(t, TypeTOP, summary.ByType[2].ChargeType)

	require.NoError(t, svc.SaveRET(context.Background(), "Jan/2026", summary))
	assert.Equal(t, domain.FieldRET, store.field)
	assert.True(t, dec("900").Equal(store.value))
}

func TestProcessEmptyFolder(t *testing.T) {
	svc := NewService(fakeSource{}, &fakeStore{}, nil, 1, nil)
	_, err := svc.Process(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoFiles)
}
