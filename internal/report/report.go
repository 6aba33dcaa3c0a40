// Package report gera as planilhas de conferência de cada módulo.
package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"
)

const (
	headerColor = "1F4788"
	okColor     = "27AE60"
	errorColor  = "E74C3C"
	moneyFormat = `"R$ "#,##0.00`
	plainFormat = "#,##0.00"
)

// Writer grava relatórios em Dir. Now permite fixar o relógio nos testes.
type Writer struct {
	Dir string
	Now func() time.Time
}

func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Now: time.Now}
}

// path devolve prefix_AAAAMMDD_HHMMSS.xlsx em Dir, acrescentando _N se o arquivo já existir.
func (w *Writer) path(prefix string) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("erro ao criar pasta de relatórios: %w", err)
	}
	stamp := w.Now().Format("20060102_150405")
	base := fmt.Sprintf("%s_%s", prefix, stamp)
	candidate := filepath.Join(w.Dir, base+".xlsx")
	for n := 1; ; n++ {
		_, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = filepath.Join(w.Dir, fmt.Sprintf("%s_%d.xlsx", base, n))
	}
}

// build monta uma pasta de trabalho nova com fill e grava com o prefixo dado.
func (w *Writer) build(prefix string, fill func(f *excelize.File, st styles) error) (string, error) {
	f := excelize.NewFile()
	st, err := newStyles(f)
	if err == nil {
		err = fill(f, st)
	}
	if err != nil {
		return "", multierr.Append(err, f.Close())
	}
	return w.save(f, prefix)
}

// firstSheet renomeia a aba padrão.
func firstSheet(f *excelize.File, name string) error {
	return f.SetSheetName(f.GetSheetName(0), name)
}

// save grava f no próximo nome livre e fecha o arquivo.
func (w *Writer) save(f *excelize.File, prefix string) (path string, err error) {
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	path, err = w.path(prefix)
	if err != nil {
		return "", err
	}
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("erro ao salvar %s: %w", path, err)
	}
	return path, nil
}

type styles struct {
	header int
	money  int
	plain  int
	ok     int
	fail   int
	title  int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	money, plain := moneyFormat, plainFormat

	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerColor}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return s, err
	}
	if s.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: &money}); err != nil {
		return s, err
	}
	if s.plain, err = f.NewStyle(&excelize.Style{CustomNumFmt: &plain}); err != nil {
		return s, err
	}
	if s.ok, err = f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{okColor}}}); err != nil {
		return s, err
	}
	if s.fail, err = f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{errorColor}}}); err != nil {
		return s, err
	}
	s.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14, Color: headerColor}})
	return s, err
}

// writeHeader grava os títulos na linha row e aplica o estilo de cabeçalho.
func writeHeader(f *excelize.File, sheet string, row int, titles []string, style int) error {
	cells := make([]interface{}, len(titles))
	for i, t := range titles {
		cells[i] = t
	}
	start, _ := excelize.CoordinatesToCellName(1, row)
	end, _ := excelize.CoordinatesToCellName(len(titles), row)
	if err := f.SetSheetRow(sheet, start, &cells); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, start, end, style)
}

func writeRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	return f.SetSheetRow(sheet, cell, &values)
}

func styleCell(f *excelize.File, sheet string, col, row, style int) error {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	return f.SetCellStyle(sheet, cell, cell, style)
}

// number converte para float64 só na hora de gravar a célula.
func number(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
