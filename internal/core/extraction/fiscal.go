package extraction

import (
	"fmt"
	"strings"

	"consolidation-service/internal/core/brl"
	"consolidation-service/internal/domain"

	"github.com/shopspring/decimal"
)

// Códigos cUnid do CT-e.
var cteUnitCodes = map[string]string{
	"00": "M3",
	"01": "KG",
	"02": "TON",
	"03": "UNIDADE",
	"04": "LITROS",
	"05": "MMBTU",
}

const cteCubicMeterCode = "00"

// parseInvoice extrai um NF-e (nfeProc ou NFe avulsa).
//
// Total: total/vNFTot (inclui IBS/CBS) tem prioridade sobre total/ICMSTot/vNF.
// Volume: soma de qCom dos itens em m³; se zero, soma de vol/qVol; se ainda zero,
// o primeiro vol/pesoL.
func parseInvoice(root *element, m3Units map[string]struct{}) (domain.ExtractedDocument, error) {
	doc := domain.ExtractedDocument{
		Kind:   domain.KindInvoice,
		Number: numberOf(root.find("ide", "nNF")),
		Unit:   domain.UnitOther,
	}

	var err error
	switch {
	case root.find("total", "vNFTot") != nil:
		doc.TotalValue, err = requiredDecimal(root.find("total", "vNFTot"), "vNFTot")
	default:
		doc.TotalValue, err = optionalDecimal(root.find("total", "ICMSTot", "vNF"), "vNF")
	}
	if err != nil {
		return domain.ExtractedDocument{}, err
	}

	if doc.Taxes, err = taxes(
		root.find("total", "ICMSTot", "vICMS"),
		root.find("total", "ICMSTot", "vPIS"),
		root.find("total", "ICMSTot", "vCOFINS"),
	); err != nil {
		return domain.ExtractedDocument{}, err
	}

	volume := decimal.Zero
	for _, prod := range root.findAll("det", "prod") {
		uCom, qCom := prod.child("uCom"), prod.child("qCom")
		if uCom == nil || qCom == nil {
			continue
		}
		if _, ok := m3Units[strings.ToUpper(uCom.text())]; !ok {
			continue
		}
		if v, err := brl.ParseSefaz(qCom.text()); err == nil {
			volume = volume.Add(v)
		}
	}
	if !volume.IsZero() {
		doc.Volume, doc.Unit, doc.UnitCode = volume, domain.UnitCubicMeter, "M3"
		return doc, nil
	}

	for _, qVol := range root.findAll("vol", "qVol") {
		if v, err := brl.ParseSefaz(qVol.text()); err == nil {
			volume = volume.Add(v)
		}
	}
	if !volume.IsZero() {
		doc.Volume, doc.UnitCode = volume, "qVol"
		return doc, nil
	}

	if pesoL := root.find("vol", "pesoL"); pesoL != nil && pesoL.text() != "" {
		if v, err := brl.ParseSefaz(pesoL.text()); err == nil && !v.IsZero() {
			doc.Volume, doc.UnitCode = v, "pesoL"
		}
	}
	return doc, nil
}

// parseTransport extrai um CT-e. Diferente do NF-e, o volume é o de um único bloco
// infQ: o primeiro com cUnid "00" (m³) e quantidade positiva, ou, na falta dele,
// o primeiro com quantidade positiva.
func parseTransport(root *element) (domain.ExtractedDocument, error) {
	doc := domain.ExtractedDocument{
		Kind:   domain.KindTransport,
		Number: numberOf(root.find("ide", "nCT")),
		Unit:   domain.UnitOther,
	}

	var err error
	if doc.TotalValue, err = optionalDecimal(root.find("vPrest", "vTPrest"), "vTPrest"); err != nil {
		return domain.ExtractedDocument{}, err
	}

	var icms *element
	if node := root.find("ICMS"); node != nil {
		icms = node.findDeep("vICMS")
	}
	if doc.Taxes, err = taxes(icms, root.find("vPIS"), root.find("vCOFINS")); err != nil {
		return domain.ExtractedDocument{}, err
	}

	blocks := root.findAll("infQ")
	for _, infQ := range blocks {
		cUnid, qCarga := infQ.child("cUnid"), infQ.child("qCarga")
		if cUnid == nil || qCarga == nil || cUnid.text() != cteCubicMeterCode {
			continue
		}
		if v, err := brl.ParseSefaz(qCarga.text()); err == nil && v.IsPositive() {
			doc.Volume, doc.Unit, doc.UnitCode = v, domain.UnitCubicMeter, "M3"
			return doc, nil
		}
	}

	for _, infQ := range blocks {
		qCarga := infQ.child("qCarga")
		if qCarga == nil {
			continue
		}
		v, err := brl.ParseSefaz(qCarga.text())
		if err != nil || !v.IsPositive() {
			continue
		}
		doc.Volume = v
		switch {
		case infQ.child("tpMed") != nil:
			doc.UnitCode = infQ.child("tpMed").text()
		case infQ.child("cUnid") != nil:
			doc.UnitCode = infQ.child("cUnid").text()
			doc.UnitLabel = cteUnitCodes[doc.UnitCode]
		default:
			doc.UnitCode = "?"
		}
		return doc, nil
	}
	return doc, nil
}

func numberOf(e *element) string {
	if e == nil || e.text() == "" {
		return "N/A"
	}
	return e.text()
}

func requiredDecimal(e *element, field string) (decimal.Decimal, error) {
	v, err := brl.ParseSefaz(e.text())
	if err != nil {
		return decimal.Zero, fmt.Errorf("campo %s não numérico (%q): %w", field, e.text(), err)
	}
	return v, nil
}

// optionalDecimal devolve zero para elemento ausente e erro para conteúdo inválido.
func optionalDecimal(e *element, field string) (decimal.Decimal, error) {
	if e == nil {
		return decimal.Zero, nil
	}
	return requiredDecimal(e, field)
}

func taxes(icms, pis, cofins *element) (domain.TaxBreakdown, error) {
	var t domain.TaxBreakdown
	var err error
	if t.ICMS, err = optionalDecimal(icms, "vICMS"); err != nil {
		return t, err
	}
	if t.PIS, err = optionalDecimal(pis, "vPIS"); err != nil {
		return t, err
	}
	if t.COFINS, err = optionalDecimal(cofins, "vCOFINS"); err != nil {
		return t, err
	}
	return t, nil
}
