package extraction

import (
	"regexp"
	"strings"

	"consolidation-service/internal/config"
	"consolidation-service/internal/core/brl"

	"github.com/shopspring/decimal"
)

const (
	MethodLargestValue = "Maior Valor Detectado"
	MethodNotFound     = "Valor não identificado"
)

var currencyPattern = regexp.MustCompile(`\d{1,3}(?:\.\d{3})*,\d{2}`)

var ocrReplacer = []struct{ old, new string }{
	{"|", ""},
	{"!", "1"},
	{"l", "1"},
	{"$=", " "},
	{"=", " = "},
}

// CleanOCRText corrige confusões comuns do OCR, na ordem em que são aplicadas.
func CleanOCRText(text string) string {
	for _, r := range ocrReplacer {
		text = strings.ReplaceAll(text, r.old, r.new)
	}
	return text
}

// ExtractValue escolhe o maior valor monetário plausível de um texto.
// Anos da lista negra são descartados antes do limiar de ruído; documentos oficiais
// aceitam qualquer valor positivo, os demais só valores acima do limiar.
func ExtractValue(raw string, rules config.TextRules) (decimal.Decimal, string) {
	text := CleanOCRText(raw)
	upper := strings.ToUpper(text)

	official := false
	for _, kw := range rules.OfficialKeywords {
		if kw != "" && strings.Contains(upper, strings.ToUpper(kw)) {
			official = true
			break
		}
	}

	threshold := decimal.NewFromFloat(rules.NoiseThreshold)
	best, found := decimal.Zero, false
	for _, m := range currencyPattern.FindAllString(text, -1) {
		v := brl.ParseDecimal(m)
		if blacklistedYear(v, rules.YearBlacklist) {
			continue
		}
		if official {
			if !v.IsPositive() {
				continue
			}
		} else if !v.GreaterThan(threshold) {
			continue
		}
		if !found || v.GreaterThan(best) {
			best, found = v, true
		}
	}

	if !found {
		return decimal.Zero, MethodNotFound
	}
	return best, MethodLargestValue
}

func blacklistedYear(v decimal.Decimal, years []int) bool {
	for _, y := range years {
		if v.Equal(decimal.NewFromInt(int64(y))) {
			return true
		}
	}
	return false
}
