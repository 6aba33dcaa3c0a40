package aggregation

import (
	"testing"

	"consolidation-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func doc(kind domain.DocumentKind, value, volume string) domain.Extraction {
	return domain.Extraction{Document: &domain.ExtractedDocument{Kind: kind, TotalValue: dec(value), Volume: dec(volume)}}
}

func fail(path string) domain.Extraction {
	return domain.Extraction{SourcePath: path, Failure: &domain.ExtractionFailure{SourcePath: path, Reason: "XML malformado"}}
}

func sample() []domain.Extraction {
	return []domain.Extraction{
		doc(domain.KindInvoice, "1000.10", "10"),
		doc(domain.KindTransport, "250.00", "3.5"),
		fail("x.xml"),
		doc(domain.KindInvoice, "0.20", "0.001"),
		doc(domain.KindTransport, "49.70", "0"),
		fail("y.xml"),
		doc(domain.KindInvoice, "12345.67", "100"),
	}
}

func TestAggregate(t *testing.T) {
	totals := Aggregate(sample())

	assert.Equal(t, 5, totals.DocumentCount)
	assert.Equal(t, 2, totals.FailureCount)
	assert.True(t, dec("13345.97").Equal(totals.ValueByKind[domain.KindInvoice]))
	assert.True(t, dec("299.70").Equal(totals.ValueByKind[domain.KindTransport]))
	assert.True(t, dec("13645.67").Equal(totals.GrandValue))
	assert.True(t, dec("113.501").Equal(totals.GrandVolume))
}

func TestAggregateIsCombinable(t *testing.T) {
	items := sample()
	whole := Aggregate(items)

	for split := 0; split <= len(items); split++ {
		combined := Aggregate(items[:split]).Add(Aggregate(items[split:]))

		require.True(t, whole.GrandValue.Equal(combined.GrandValue), "split %d", split)
		require.True(t, whole.GrandVolume.Equal(combined.GrandVolume), "split %d", split)
		require.Equal(t, whole.DocumentCount, combined.DocumentCount)
		require.Equal(t, whole.FailureCount, combined.FailureCount)
		for kind, v := range whole.ValueByKind {
			require.True(t, v.Equal(combined.ValueByKind[kind]), "split %d kind %s", split, kind)
		}
		for kind, v := range whole.VolumeByKind {
			require.True(t, v.Equal(combined.VolumeByKind[kind]), "split %d kind %s", split, kind)
		}
	}
}

func TestAggregateEmpty(t *testing.T) {
	totals := Aggregate(nil)
	assert.True(t, totals.GrandValue.IsZero())
	assert.Zero(t, totals.DocumentCount)
	assert.NotNil(t, totals.ValueByKind)
}
