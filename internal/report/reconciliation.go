package report

import (
	"consolidation-service/internal/core/reconciliation"

	"github.com/xuri/excelize/v2"
)

var reconciliationHeader = []string{"Arquivo", "Categoria", "Valor", "Status", "Método", "Caminho"}

// Reconciliation grava os PDFs conciliados seguidos do bloco RESUMO FINAL.
func (w *Writer) Reconciliation(summary reconciliation.Summary) (string, error) {
	return w.build("Conciliacao_Final", func(f *excelize.File, st styles) error {
		const sheet = "Relatorio"
		if err := firstSheet(f, sheet); err != nil {
			return err
		}
		if err := writeHeader(f, sheet, 1, reconciliationHeader, st.header); err != nil {
			return err
		}

		row := 2
		for _, it := range summary.Items {
			if err := writeRow(f, sheet, row, it.File, it.Category, number(it.Amount), it.Status, it.Method, it.Path); err != nil {
				return err
			}
			if err := styleCell(f, sheet, 3, row, st.money); err != nil {
				return err
			}
			row++
		}

		row++
		block := []struct {
			label string
			value interface{}
		}{
			{"RESUMO FINAL", ""},
			{"(+) RECEITAS", number(summary.Revenue)},
			{"(-) DESPESAS", number(summary.Expense)},
			{"(=) SALDO", number(summary.Balance)},
		}
		for i, line := range block {
			if err := writeRow(f, sheet, row, line.label, "", line.value); err != nil {
				return err
			}
			style := st.money
			if i == 0 {
				style = st.title
			}
			if err := styleCell(f, sheet, 3, row, style); err != nil {
				return err
			}
			row++
		}

		if err := f.SetColWidth(sheet, "A", "A", 40); err != nil {
			return err
		}
		return f.SetColWidth(sheet, "E", "E", 30)
	})
}
