package pmpv

import (
	"errors"
	"time"

	"consolidation-service/internal/domain"

	"github.com/shopspring/decimal"
)

// MonthsPerQuarter é o número de abas de lançamento de um cálculo.
const MonthsPerQuarter = 3

var ErrZeroVolume = errors.New("volume total zero")

// DefaultCompanies são os fornecedores sugeridos em cada mês novo.
var DefaultCompanies = []string{"PETROBRAS", "GALP", "PETRORECONCAVO", "BRAVA", "ENEVA", "ORIZON"}

// DefaultAdjustment é o saldo da conta gráfica aplicado quando nenhum é informado.
var DefaultAdjustment = decimal.RequireFromString("-0.0210")

// Calculation é o resultado de um trimestre.
type Calculation struct {
	TotalVolume      decimal.Decimal `json:"total_volume"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	DerivedUnitPrice decimal.Decimal `json:"derived_unit_price"`
	Adjustment       decimal.Decimal `json:"adjustment"`
	FinalPrice       decimal.Decimal `json:"final_price"`
	Days             [3]int          `json:"days"`
}

// QuarterDays devolve os dias de cada mês do trimestre iniciado em startMonth,
// virando o ano quando necessário.
func QuarterDays(year int, startMonth time.Month) [3]int {
	var days [3]int
	for i := range days {
		// dia 0 do mês seguinte é o último dia do mês
		days[i] = time.Date(year, startMonth+time.Month(i)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	}
	return days
}

var monthNames = [12]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// QuarterMonthNames devolve os nomes dos três meses a partir de startMonth.
func QuarterMonthNames(startMonth time.Month) [3]string {
	var names [3]string
	for i := range names {
		names[i] = monthNames[(int(startMonth)-1+i)%12]
	}
	return names
}

// UnitPrice soma molécula, transporte e logística.
func UnitPrice(in domain.MonthInput) decimal.Decimal {
	return in.ComponentA.Add(in.ComponentB).Add(in.ComponentC)
}

// Calculate pondera o preço unitário de cada fornecedor pelo volume diário × dias do mês.
// Linhas com volume não positivo são ignoradas.
func Calculate(months [3][]domain.MonthInput, days [3]int, adjustment decimal.Decimal) (Calculation, error) {
	calc := Calculation{Adjustment: adjustment, Days: days}
	for i, rows := range months {
		d := decimal.NewFromInt(int64(days[i]))
		for _, row := range rows {
			if !row.Volume.IsPositive() {
				continue
			}
			monthVolume := row.Volume.Mul(d)
			calc.TotalCost = calc.TotalCost.Add(UnitPrice(row).Mul(monthVolume))
			calc.TotalVolume = calc.TotalVolume.Add(monthVolume)
		}
	}
	if calc.TotalVolume.IsZero() {
		return Calculation{}, ErrZeroVolume
	}
	calc.DerivedUnitPrice = calc.TotalCost.Div(calc.TotalVolume)
	calc.FinalPrice = calc.DerivedUnitPrice.Add(adjustment)
	return calc, nil
}
