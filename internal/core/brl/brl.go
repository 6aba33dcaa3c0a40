// Package brl converte textos numéricos no formato brasileiro e formata valores em reais.
package brl

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var brazilianNumber = regexp.MustCompile(`^-?(R\$\s*)?(\d{1,3}(\.\d{3})+|\d+)(,\d+)?$`)

// ParseDecimal interpreta um texto no formato brasileiro ("R$ 1.234,56").
// Mantém apenas dígitos, vírgula e ponto; a última vírgula é o separador decimal e
// todos os pontos são separadores de milhar. Um "-" inicial ou parênteses envolvendo o
// número indicam valor negativo. Qualquer falha resulta em zero, nunca em erro.
func ParseDecimal(text string) decimal.Decimal {
	s := strings.TrimSpace(text)
	if s == "" {
		return decimal.Zero
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			neg = true
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero
	}

	intPart, fracPart := cleaned, ""
	if i := strings.LastIndex(cleaned, ","); i >= 0 {
		intPart, fracPart = cleaned[:i], cleaned[i+1:]
	}
	intPart = strings.ReplaceAll(intPart, ".", "")
	if strings.ContainsAny(intPart, ",") || strings.Contains(fracPart, ".") {
		return decimal.Zero
	}

	normalized := intPart
	if fracPart != "" {
		normalized += "." + fracPart
	}
	if normalized == "" || normalized == "." {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero
	}
	if neg {
		d = d.Neg()
	}
	return d
}

// FormatCurrency formata com duas casas, "." para milhar e "," para decimais.
func FormatCurrency(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, fracPart := s, "00"
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}

	var b strings.Builder
	if d.Round(2).IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(fracPart)
	return b.String()
}

// FormatBRL é FormatCurrency com o prefixo "R$ ".
func FormatBRL(d decimal.Decimal) string {
	return "R$ " + FormatCurrency(d)
}

// ParseSefaz lê campos numéricos de XML fiscal, que usam ponto como separador decimal.
func ParseSefaz(text string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(text))
}

// ParseLooseNumber converte células de planilha. Tenta primeiro o formato com ponto
// decimal e depois o brasileiro; o segundo retorno é false quando a célula não é numérica.
func ParseLooseNumber(text string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return decimal.Zero, false
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d, true
	}
	if !brazilianNumber.MatchString(s) {
		return decimal.Zero, false
	}
	return ParseDecimal(s), true
}
