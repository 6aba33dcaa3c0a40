package report

import (
	"path/filepath"

	"consolidation-service/internal/core/audit"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var auditHeader = []string{"Empresa", "Tipo", "Número", "Valor Total", "ICMS", "PIS", "COFINS", "Volume", "Status"}

// Audit grava a planilha de auditoria de XML com o status colorido por linha.
func (w *Writer) Audit(run audit.Run) (string, error) {
	return w.build("Auditoria_XML", func(f *excelize.File, st styles) error {
		const sheet = "Auditoria"
		if err := firstSheet(f, sheet); err != nil {
			return err
		}
		return fillAudit(f, sheet, run, st)
	})
}

func fillAudit(f *excelize.File, sheet string, run audit.Run, st styles) error {
	if err := writeHeader(f, sheet, 1, auditHeader, st.header); err != nil {
		return err
	}
	row := 2
	for _, it := range run.Items {
		kind, docNumber := "ERRO", filepath.Base(it.SourcePath)
		total, icms, pis, cofins, volume := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
		if doc := it.Document; doc != nil {
			kind, docNumber = string(doc.Kind), doc.Number
			total, icms, pis, cofins, volume = doc.TotalValue, doc.Taxes.ICMS, doc.Taxes.PIS, doc.Taxes.COFINS, doc.Volume
		}
		if err := writeRow(f, sheet, row, it.Company, kind, docNumber,
			number(total), number(icms), number(pis), number(cofins), number(volume), it.Status); err != nil {
			return err
		}
		for col := 4; col <= 7; col++ {
			if err := styleCell(f, sheet, col, row, st.money); err != nil {
				return err
			}
		}
		status := st.ok
		if it.Status != audit.StatusOK {
			status = st.fail
		}
		if err := styleCell(f, sheet, 9, row, status); err != nil {
			return err
		}
		row++
	}

	row++
	totals := run.Totals
	if err := writeRow(f, sheet, row, "TOTAL GERAL", "", "", number(totals.GrandValue), "", "", "", number(totals.GrandVolume), ""); err != nil {
		return err
	}
	if err := styleCell(f, sheet, 4, row, st.money); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "I", 18)
}
