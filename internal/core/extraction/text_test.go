package extraction

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"consolidation-service/internal/config"

	"github.com/stretchr/testify/assert"
)

func textRules() config.TextRules {
	return config.DefaultRules().Text
}

func TestExtractValueOfficialDocument(t *testing.T) {
	v, method := ExtractValue("NOTA FISCAL DE SERVICO\nTOTAL R$ 1.234,56\nISS 12,00", textRules())
	assert.True(t, dec("1234.56").Equal(v), v.String())
	assert.Equal(t, MethodLargestValue, method)
}

func TestExtractValueNothingFound(t *testing.T) {
	v, method := ExtractValue("documento sem valores", textRules())
	assert.True(t, v.IsZero())
	assert.Equal(t, MethodNotFound, method)
}

func TestExtractValueSkipsBlacklistedYear(t *testing.T) {
	v, _ := ExtractValue("Vencimento 2025,00 Total R$ 1.500,00", textRules())
	assert.True(t, dec("1500").Equal(v), v.String())
}

func TestExtractValueYearFilterRunsBeforeThreshold(t *testing.T) {
	// 2.025,00 is above the noise threshold but is dropped as a year first.
	v, method := ExtractValue("Recibo 2.025,00 e 30,00", textRules())
	assert.True(t, v.IsZero())
	assert.Equal(t, MethodNotFound, method)
}

func TestExtractValueNoiseThresholdForNonOfficial(t *testing.T) {
	v, _ := ExtractValue("recibo 49,99 e 50,00 e 50,01", textRules())
	assert.True(t, dec("50.01").Equal(v), v.String())

	v, _ = ExtractValue("recibo 10,00 e 20,00", textRules())
	assert.True(t, v.IsZero())

	v, _ = ExtractValue("PENALIDADE 10,00 e 20,00", textRules())
	assert.True(t, dec("20").Equal(v))
}

func TestCleanOCRText(t *testing.T) {
	assert.Equal(t, "1.234,56", CleanOCRText("|l.234,56"))
	assert.Equal(t, "Tota1 1 =  5", CleanOCRText("Total != 5"))
	assert.Equal(t, "a b", CleanOCRText("a$=b"))
	assert.Equal(t, "R  = 10", CleanOCRText("R$==10"))
}

func TestPDFTextSourceReportsReadErrors(t *testing.T) {
	src := NewPDFTextSource(nil)
	read := src.ReadText(context.Background(), filepath.Join(t.TempDir(), "ausente.pdf"))
	assert.Empty(t, read.Text)
	assert.True(t, strings.HasPrefix(read.Method, readErrorLabel), read.Method)
}
