package aggregation

import (
	"fmt"
	"strings"

	"consolidation-service/internal/config"
	"consolidation-service/internal/core/brl"

	"github.com/shopspring/decimal"
)

// TableSummary descreve a contribuição de uma planilha.
type TableSummary struct {
	Name                string          `json:"name"`
	Role                TableRole       `json:"role"`
	Volume              decimal.Decimal `json:"volume"`
	SelfConsumption     decimal.Decimal `json:"self_consumption"`
	SelfConsumptionRows int             `json:"self_consumption_rows"`
	Skipped             bool            `json:"skipped"`
	Note                string          `json:"note,omitempty"`
}

// NetVolumeReport é o volume faturado líquido e seus componentes.
type NetVolumeReport struct {
	Billed          decimal.Decimal `json:"billed"`
	Canceled        decimal.Decimal `json:"canceled"`
	Returned        decimal.Decimal `json:"returned"`
	SelfConsumption decimal.Decimal `json:"self_consumption"`
	Net             decimal.Decimal `json:"net"`
	Tables          []TableSummary  `json:"tables"`
}

// NetVolume calcula faturado − canceladas − devoluções − consumo próprio.
// Uma linha de planilha faturada que atende ao critério de consumo próprio conta
// somente em SelfConsumption. Células não numéricas são ignoradas.
func NetVolume(tables []Table, cfg config.VolumeRules) NetVolumeReport {
	report := NetVolumeReport{}
	for _, t := range tables {
		var s TableSummary
		switch t.Role {
		case RoleBilled:
			s = sumBilled(t, cfg)
			report.Billed = report.Billed.Add(s.Volume)
			report.SelfConsumption = report.SelfConsumption.Add(s.SelfConsumption)
		case RoleCanceled:
			s = sumColumn(t, cfg.CanceledColumn)
			report.Canceled = report.Canceled.Add(s.Volume)
		case RoleReturned:
			s = sumColumn(t, cfg.ReturnedColumn)
			report.Returned = report.Returned.Add(s.Volume)
		default:
			s = TableSummary{Name: t.Name, Role: t.Role, Skipped: true, Note: "arquivo não reconhecido pelo nome"}
		}
		report.Tables = append(report.Tables, s)
	}
	report.Net = report.Billed.Sub(report.Canceled).Sub(report.Returned).Sub(report.SelfConsumption)
	return report
}

func sumBilled(t Table, cfg config.VolumeRules) TableSummary {
	s := TableSummary{Name: t.Name, Role: t.Role}
	col := t.Column(cfg.BilledColumn)
	if col < 0 {
		return missingColumn(s, t, cfg.BilledColumn)
	}

	match := selfConsumptionMatcher(t, cfg)
	for _, row := range t.Rows {
		v, ok := brl.ParseLooseNumber(t.Cell(row, col))
		selfConsumed := match(row)
		if selfConsumed {
			s.SelfConsumptionRows++
		}
		if !ok {
			continue
		}
		if selfConsumed {
			s.SelfConsumption = s.SelfConsumption.Add(v)
		} else {
			s.Volume = s.Volume.Add(v)
		}
	}
	return s
}

func sumColumn(t Table, column string) TableSummary {
	s := TableSummary{Name: t.Name, Role: t.Role}
	col := t.Column(column)
	if col < 0 {
		return missingColumn(s, t, column)
	}
	for _, row := range t.Rows {
		if v, ok := brl.ParseLooseNumber(t.Cell(row, col)); ok {
			s.Volume = s.Volume.Add(v)
		}
	}
	return s
}

func missingColumn(s TableSummary, t Table, column string) TableSummary {
	s.Skipped = true
	s.Note = fmt.Sprintf("coluna '%s' ausente", column)
	if suggestion := t.SuggestColumn(column); suggestion != "" {
		s.Note += fmt.Sprintf(" (você quis dizer '%s'?)", suggestion)
	}
	return s
}

// selfConsumptionMatcher monta o critério de consumo próprio: a coluna configurada
// igual ao valor configurado, ou qualquer célula de coluna textual contendo um dos termos.
// Uma coluna é textual quando alguma de suas células preenchidas não é numérica.
func selfConsumptionMatcher(t Table, cfg config.VolumeRules) func(row []string) bool {
	configured := -1
	if cfg.SelfConsumptionColumn != "" && cfg.SelfConsumptionValue != "" {
		configured = t.Column(cfg.SelfConsumptionColumn)
	}
	want := strings.ToUpper(strings.TrimSpace(cfg.SelfConsumptionValue))

	textual := make([]bool, len(t.Header))
	for col := range t.Header {
		for _, row := range t.Rows {
			cell := strings.TrimSpace(t.Cell(row, col))
			if cell == "" {
				continue
			}
			if _, ok := brl.ParseLooseNumber(cell); !ok {
				textual[col] = true
				break
			}
		}
	}

	terms := make([]string, 0, len(cfg.SelfConsumptionTerms))
	for _, term := range cfg.SelfConsumptionTerms {
		if term = strings.ToLower(term); term != "" {
			terms = append(terms, term)
		}
	}

	return func(row []string) bool {
		if configured >= 0 && strings.ToUpper(strings.TrimSpace(t.Cell(row, configured))) == want {
			return true
		}
		for col, isText := range textual {
			if !isText {
				continue
			}
			cell := strings.ToLower(strings.TrimSpace(t.Cell(row, col)))
			for _, term := range terms {
				if strings.Contains(cell, term) {
					return true
				}
			}
		}
		return false
	}
}
