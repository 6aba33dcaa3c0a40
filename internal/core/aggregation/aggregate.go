// Package aggregation soma documentos extraídos e volumes de planilhas.
package aggregation

import (
	"consolidation-service/internal/domain"
)

// Aggregate soma valor e volume por tipo de documento. Falhas contam apenas em
// FailureCount. A soma é exata, então Aggregate(a).Add(Aggregate(b)) é igual a
// Aggregate(append(a, b...)).
func Aggregate(items []domain.Extraction) domain.AggregateTotals {
	totals := domain.NewAggregateTotals()
	for _, item := range items {
		if item.Failed() {
			totals.FailureCount++
			continue
		}
		doc := item.Document
		totals.ValueByKind[doc.Kind] = totals.ValueByKind[doc.Kind].Add(doc.TotalValue)
		totals.VolumeByKind[doc.Kind] = totals.VolumeByKind[doc.Kind].Add(doc.Volume)
		totals.GrandValue = totals.GrandValue.Add(doc.TotalValue)
		totals.GrandVolume = totals.GrandVolume.Add(doc.Volume)
		totals.DocumentCount++
	}
	return totals
}
