package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind identifica a família do documento fiscal.
type DocumentKind string

const (
	KindInvoice   DocumentKind = "NF-e"
	KindTransport DocumentKind = "CT-e"
	KindUnknown   DocumentKind = "DESCONHECIDO"
)

// VolumeUnit indica se o volume extraído está em metros cúbicos.
type VolumeUnit string

const (
	UnitCubicMeter VolumeUnit = "M3"
	UnitOther      VolumeUnit = "OUTRA"
)

// TaxBreakdown agrupa os tributos destacados no documento.
type TaxBreakdown struct {
	ICMS   decimal.Decimal `json:"icms"`
	PIS    decimal.Decimal `json:"pis"`
	COFINS decimal.Decimal `json:"cofins"`
}

// ExtractedDocument é o registro normalizado de um NF-e ou CT-e.
type ExtractedDocument struct {
	Kind       DocumentKind    `json:"kind"`
	Number     string          `json:"number"`
	TotalValue decimal.Decimal `json:"total_value"`
	Taxes      TaxBreakdown    `json:"taxes"`
	Volume     decimal.Decimal `json:"volume"`
	Unit       VolumeUnit      `json:"unit"`
	UnitCode   string          `json:"unit_code"`
	UnitLabel  string          `json:"unit_label,omitempty"`
	SourcePath string          `json:"source_path"`
}

// ExtractionFailure descreve um arquivo que não pôde ser interpretado.
type ExtractionFailure struct {
	SourcePath string `json:"source_path"`
	Reason     string `json:"reason"`
}

// Extraction é o resultado de um arquivo: exatamente um entre Document e Failure é preenchido.
type Extraction struct {
	SourcePath string             `json:"source_path"`
	Document   *ExtractedDocument `json:"document,omitempty"`
	Failure    *ExtractionFailure `json:"failure,omitempty"`
}

// Failed informa se a extração terminou em falha.
func (e Extraction) Failed() bool {
	return e.Failure != nil || e.Document == nil
}

// AggregateTotals acumula valores e volumes de uma execução.
type AggregateTotals struct {
	ValueByKind   map[DocumentKind]decimal.Decimal `json:"value_by_kind"`
	VolumeByKind  map[DocumentKind]decimal.Decimal `json:"volume_by_kind"`
	GrandValue    decimal.Decimal                  `json:"grand_value"`
	GrandVolume   decimal.Decimal                  `json:"grand_volume"`
	DocumentCount int                              `json:"document_count"`
	FailureCount  int                              `json:"failure_count"`
}

// NewAggregateTotals devolve um acumulador vazio.
func NewAggregateTotals() AggregateTotals {
	return AggregateTotals{
		ValueByKind:  map[DocumentKind]decimal.Decimal{},
		VolumeByKind: map[DocumentKind]decimal.Decimal{},
	}
}

// Add soma dois acumuladores sem alterar nenhum deles.
func (t AggregateTotals) Add(other AggregateTotals) AggregateTotals {
	out := NewAggregateTotals()
	for _, src := range []AggregateTotals{t, other} {
		for k, v := range src.ValueByKind {
			out.ValueByKind[k] = out.ValueByKind[k].Add(v)
		}
		for k, v := range src.VolumeByKind {
			out.VolumeByKind[k] = out.VolumeByKind[k].Add(v)
		}
	}
	out.GrandValue = t.GrandValue.Add(other.GrandValue)
	out.GrandVolume = t.GrandVolume.Add(other.GrandVolume)
	out.DocumentCount = t.DocumentCount + other.DocumentCount
	out.FailureCount = t.FailureCount + other.FailureCount
	return out
}

// ConsolidationField nomeia os campos de entrada gravados pelos módulos produtores.
type ConsolidationField string

const (
	FieldCGR ConsolidationField = "cgr"
	FieldCGF ConsolidationField = "cgf"
	FieldRET ConsolidationField = "ret"
	FieldRP  ConsolidationField = "rp"
)

// ConsolidationRecord é a linha única de um período na tabela consolidation.
type ConsolidationRecord struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Period    string          `gorm:"column:period" json:"period"`
	CGR       decimal.Decimal `gorm:"column:cgr;type:text;not null" json:"cgr"`
	CGF       decimal.Decimal `gorm:"column:cgf;type:text;not null" json:"cgf"`
	RET       decimal.Decimal `gorm:"column:ret;type:text;not null" json:"ret"`
	RP        decimal.Decimal `gorm:"column:rp;type:text;not null" json:"rp"`
	RPV       decimal.Decimal `gorm:"column:rpv;type:text;not null" json:"rpv"`
	SCG       decimal.Decimal `gorm:"column:scg;type:text;not null" json:"scg"`
	Notes     string          `gorm:"column:notes" json:"notes"`
	CreatedAt time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (ConsolidationRecord) TableName() string { return "consolidation" }

// MonthlyPublishedPrice é o PMPV publicado (R$/m³) de um período.
type MonthlyPublishedPrice struct {
	Period    string          `gorm:"column:period;primaryKey" json:"period"`
	Price     decimal.Decimal `gorm:"column:price;type:text;not null" json:"price"`
	UpdatedAt time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (MonthlyPublishedPrice) TableName() string { return "monthly_published_price" }

// Session agrupa os lançamentos de um cálculo trimestral de PMPV.
type Session struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"column:name" json:"name"`
	Notes     string    `gorm:"column:notes" json:"notes"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Session) TableName() string { return "sessions" }

// MonthInput é uma linha de fornecedor em um mês do trimestre.
// ComponentA, ComponentB e ComponentC são molécula, transporte e logística (R$/m³).
type MonthInput struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	SessionID  uint            `gorm:"column:session_id" json:"session_id"`
	MonthIndex int             `gorm:"column:month_index" json:"month_index"`
	Company    string          `gorm:"column:company" json:"company"`
	ComponentA decimal.Decimal `gorm:"column:component_a;type:text" json:"component_a"`
	ComponentB decimal.Decimal `gorm:"column:component_b;type:text" json:"component_b"`
	ComponentC decimal.Decimal `gorm:"column:component_c;type:text" json:"component_c"`
	Volume     decimal.Decimal `gorm:"column:volume;type:text" json:"volume"`
}

func (MonthInput) TableName() string { return "month_inputs" }

// Result guarda um cálculo de PMPV concluído.
type Result struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	SessionID        uint            `gorm:"column:session_id" json:"session_id"`
	TotalVolume      decimal.Decimal `gorm:"column:total_volume;type:text" json:"total_volume"`
	TotalCost        decimal.Decimal `gorm:"column:total_cost;type:text" json:"total_cost"`
	DerivedUnitPrice decimal.Decimal `gorm:"column:derived_unit_price;type:text" json:"derived_unit_price"`
	Adjustment       decimal.Decimal `gorm:"column:adjustment;type:text" json:"adjustment"`
	FinalPrice       decimal.Decimal `gorm:"column:final_price;type:text" json:"final_price"`
	ComputedAt       time.Time       `gorm:"column:computed_at" json:"computed_at"`
}

func (Result) TableName() string { return "results" }
