package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"consolidation-service/internal/core/extraction"
	"consolidation-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const invoice = `<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe"><NFe><infNFe>
<ide><nNF>%s</nNF></ide>
<det nItem="1"><prod><uCom>M3</uCom><qCom>10</qCom></prod></det>
<total><ICMSTot><vICMS>18.00</vICMS><vPIS>1.65</vPIS><vCOFINS>7.60</vCOFINS><vNF>100.00</vNF></ICMSTot></total>
</infNFe></NFe></nfeProc>`

const transport = `<cteProc xmlns="http://www.portalfiscal.inf.br/cte"><CTe><infCte>
<ide><nCT>5</nCT></ide>
<vPrest><vTPrest>40.50</vTPrest></vPrest>
<infCTeNorm><infCarga><infQ><cUnid>00</cUnid><qCarga>2</qCarga></infQ></infCarga></infCTeNorm>
</infCte></CTe></cteProc>`

type fakeStore struct {
	period string
	cgr    decimal.Decimal
	calls  []string
}

func (f *fakeStore) SetField(_ context.Context, period string, field domain.ConsolidationField, value decimal.Decimal) error {
	f.period = period
	f.cgr = value
	f.calls = append(f.calls, "set:"+string(field))
	return nil
}

func (f *fakeStore) RecomputeRPV(_ context.Context, period string) (decimal.Decimal, error) {
	f.calls = append(f.calls, "rpv")
	return f.cgr.Sub(decimal.NewFromInt(40)), nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fixture(t *testing.T) string {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "GALP", "jan", "nf1.xml"), fmt.Sprintf(invoice, "1"))
	writeFile(t, filepath.Join(root, "GALP", "nf2.XML"), fmt.Sprintf(invoice, "2"))
	writeFile(t, filepath.Join(root, "PETROBRAS", "cte.xml"), transport)
	writeFile(t, filepath.Join(root, "PETROBRAS", "quebrado.xml"), "<nfeProc><NFe>")
	writeFile(t, filepath.Join(root, "ENEVA", "leiame.txt"), "x")
	return root
}

func newTestService(store Store) Service {
	return NewService(extraction.NewBatch(extraction.NewExtractor(nil), 2, nil, nil), store, nil)
}

func TestCompanies(t *testing.T) {
	root := fixture(t)
	got, err := newTestService(&fakeStore{}).Companies(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"ENEVA", "GALP", "PETROBRAS"}, got)
}

func TestAuditSelectedCompanies(t *testing.T) {
	root := fixture(t)
	var calls atomic.Int64
	run, err := newTestService(&fakeStore{}).Audit(context.Background(), root, []string{"GALP", "PETROBRAS"}, func(done, total int, _ domain.Extraction) {
		calls.Add(1)
		assert.Equal(t, 4, total)
	})
	require.NoError(t, err)

	assert.EqualValues(t, 4, calls.Load())
	require.Len(t, run.Items, 4)
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, 1, run.Errors())
	assert.Equal(t, 3, run.Totals.DocumentCount)
	assert.Equal(t, 1, run.Totals.FailureCount)
	assert.True(t, decimal.RequireFromString("240.50").Equal(run.Totals.GrandValue), run.Totals.GrandValue.String())
	assert.True(t, decimal.NewFromInt(22).Equal(run.Totals.GrandVolume))

	byCompany := map[string]int{}
	for _, it := range run.Items {
		byCompany[it.Company]++
		if it.Failed() {
			assert.Equal(t, StatusParseError, it.Status)
			assert.Equal(t, "PETROBRAS", it.Company)
		} else {
			assert.Equal(t, StatusOK, it.Status)
		}
	}
	assert.Equal(t, map[string]int{"GALP": 2, "PETROBRAS": 2}, byCompany)
}

func TestAuditWithoutFiles(t *testing.T) {
	root := fixture(t)
	_, err := newTestService(&fakeStore{}).Audit(context.Background(), root, []string{"ENEVA"}, nil)
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestQuickSumAndSave(t *testing.T) {
	root := fixture(t)
	store := &fakeStore{}
	svc := newTestService(store)

	run, err := svc.QuickSum(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Len(t, run.Items, 4)
	assert.Empty(t, run.Items[0].Company)

	rpv, err := svc.SaveCGR(context.Background(), "Dez/2025", run.Totals)
	require.NoError(t, err)
	assert.Equal(t, "Dez/2025", store.period)
	assert.True(t, decimal.RequireFromString("240.50").Equal(store.cgr))
	assert.True(t, decimal.RequireFromString("200.50").Equal(rpv))
	assert.Equal(t, []string{"set:cgr", "rpv"}, store.calls)
}

func TestSaveCGRRejectsEmptyTotals(t *testing.T) {
	store := &fakeStore{}
	_, err := newTestService(store).SaveCGR(context.Background(), "P", domain.NewAggregateTotals())
	assert.ErrorIs(t, err, ErrEmptyTotal)
	assert.Empty(t, store.calls)
}
