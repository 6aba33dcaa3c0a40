package report

import (
	"consolidation-service/internal/core/pmpv"
	"consolidation-service/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	unitFormat   = "#,##0.0000"
	volumeFormat = "#,##0"
	finalColor   = "F1C40F"
)

var monthHeader = []string{"Empresa", "Molécula", "Transporte", "Logística", "Preço Unit.", "Volume (QDC)", "Custo Total"}

// PMPV grava o resumo executivo do trimestre seguido de uma aba por mês.
func (w *Writer) PMPV(names [3]string, months [3][]domain.MonthInput, calc pmpv.Calculation) (string, error) {
	return w.build("Relatorio_PMPV", func(f *excelize.File, st styles) error {
		uf, vf := unitFormat, volumeFormat
		unit, err := f.NewStyle(&excelize.Style{CustomNumFmt: &uf})
		if err != nil {
			return err
		}
		volume, err := f.NewStyle(&excelize.Style{CustomNumFmt: &vf})
		if err != nil {
			return err
		}
		final, err := f.NewStyle(&excelize.Style{
			Font:         &excelize.Font{Bold: true},
			Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{finalColor}},
			CustomNumFmt: &uf,
		})
		if err != nil {
			return err
		}

		const summary = "Resumo Executivo"
		if err := firstSheet(f, summary); err != nil {
			return err
		}
		rows := []struct {
			label string
			value interface{}
			style int
		}{
			{"FECHAMENTO TRIMESTRAL - PMPV", "", st.title},
			{"", "", 0},
			{"Volume Total (Trimestre)", number(calc.TotalVolume), volume},
			{"Custo Total (Trimestre)", number(calc.TotalCost), st.money},
			{"PMPV Calculado", number(calc.DerivedUnitPrice), unit},
			{"(+) Conta Gráfica", number(calc.Adjustment), unit},
			{"(=) PREÇO FINAL (PV)", number(calc.FinalPrice), final},
		}
		for i, r := range rows {
			row := i + 1
			if err := writeRow(f, summary, row, r.label, r.value); err != nil {
				return err
			}
			if r.style == 0 {
				continue
			}
			col := 2
			if i == 0 {
				col = 1
			}
			if err := styleCell(f, summary, col, row, r.style); err != nil {
				return err
			}
		}
		if err := f.MergeCell(summary, "A1", "D1"); err != nil {
			return err
		}
		if err := styleCell(f, summary, 1, len(rows), final); err != nil {
			return err
		}
		if err := f.SetColWidth(summary, "A", "A", 32); err != nil {
			return err
		}
		if err := f.SetColWidth(summary, "B", "B", 20); err != nil {
			return err
		}

		for i, name := range names {
			if _, err := f.NewSheet(name); err != nil {
				return err
			}
			if err := writeHeader(f, name, 1, monthHeader, st.header); err != nil {
				return err
			}
			for j, in := range months[i] {
				row := j + 2
				price := pmpv.UnitPrice(in)
				if err := writeRow(f, name, row, in.Company, number(in.ComponentA), number(in.ComponentB),
					number(in.ComponentC), number(price), number(in.Volume), number(price.Mul(in.Volume))); err != nil {
					return err
				}
				start, _ := excelize.CoordinatesToCellName(2, row)
				end, _ := excelize.CoordinatesToCellName(5, row)
				if err := f.SetCellStyle(name, start, end, unit); err != nil {
					return err
				}
				if err := styleCell(f, name, 6, row, volume); err != nil {
					return err
				}
				if err := styleCell(f, name, 7, row, st.money); err != nil {
					return err
				}
			}
			if err := f.SetColWidth(name, "A", "A", 22); err != nil {
				return err
			}
			if err := f.SetColWidth(name, "B", "G", 16); err != nil {
				return err
			}
		}
		return nil
	})
}
