package report

import (
	"time"

	"consolidation-service/internal/core/charges"

	"github.com/xuri/excelize/v2"
)

var (
	chargesHeader = []string{"Tipo de Encargo", "Empresa", "Nota Débito/Crédito", "Nº", "Data Vencimento", "Valor Total", "QT", "Valor Unitário", "Arquivo"}
	byTypeHeader  = []string{"Tipo de Encargo", "Valor Total", "Valor Total (R$)", "QT", "Quantidade de Arquivos"}
)

// Charges grava as notas de encargo, o resumo por tipo e o resumo geral em reais.
func (w *Writer) Charges(summary charges.Summary) (string, error) {
	now := w.Now()
	return w.build("RET_Relatorio", func(f *excelize.File, st styles) error {
		const data = "Dados Completos"
		if err := firstSheet(f, data); err != nil {
			return err
		}
		if err := writeHeader(f, data, 1, chargesHeader, st.header); err != nil {
			return err
		}
		for i, n := range summary.Notes {
			row := i + 2
			if err := writeRow(f, data, row, n.ChargeType, n.Company, n.NoteType, n.Number, n.DueDate,
				number(n.Total), number(n.Quantity), number(n.UnitValue), n.File); err != nil {
				return err
			}
			for col := 6; col <= 8; col++ {
				if err := styleCell(f, data, col, row, st.plain); err != nil {
					return err
				}
			}
		}
		if err := f.SetColWidth(data, "A", "H", 18); err != nil {
			return err
		}
		if err := f.SetColWidth(data, "I", "I", 40); err != nil {
			return err
		}

		const byType = "Resumo por Tipo"
		if _, err := f.NewSheet(byType); err != nil {
			return err
		}
		if err := writeHeader(f, byType, 1, byTypeHeader, st.header); err != nil {
			return err
		}
		for i, ts := range summary.ByType {
			if err := writeRow(f, byType, i+2, ts.ChargeType, number(ts.Total), number(ts.TotalBRL), number(ts.Quantity), ts.Files); err != nil {
				return err
			}
		}
		if err := f.SetColWidth(byType, "A", "E", 22); err != nil {
			return err
		}

		const general = "Resumo Geral"
		if _, err := f.NewSheet(general); err != nil {
			return err
		}
		rows := [][]interface{}{
			{"RESUMO GERAL DO PROCESSAMENTO", ""},
			{"", ""},
			{"Métrica", "Valor"},
			{"Total de PDFs Processados", len(summary.Notes)},
			{"PDFs sem valores", len(summary.WithoutValues)},
			{"Taxa EUR → BRL", number(summary.Rate)},
			{"Valor Total (R$)", number(summary.TotalBRL)},
			{"", ""},
			{"Data do Processamento", now.Format(time.DateTime)},
		}
		for i, r := range rows {
			if err := writeRow(f, general, i+1, r...); err != nil {
				return err
			}
		}
		if err := f.MergeCell(general, "A1", "B1"); err != nil {
			return err
		}
		if err := styleCell(f, general, 1, 1, st.title); err != nil {
			return err
		}
		if err := f.SetCellStyle(general, "A3", "B3", st.header); err != nil {
			return err
		}
		if err := styleCell(f, general, 2, 7, st.money); err != nil {
			return err
		}
		return f.SetColWidth(general, "A", "B", 30)
	})
}
