// Package extraction lê documentos fiscais (NF-e/CT-e) e textos de PDF, produzindo
// registros normalizados para a consolidação.
package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"consolidation-service/internal/config"
	"consolidation-service/internal/domain"
)

const detectWindow = 500

// ErrUnknownDocument indica um XML que não é NF-e nem CT-e.
var ErrUnknownDocument = errors.New("tipo de documento desconhecido")

// DetectKind classifica o arquivo pelos primeiros 500 bytes.
func DetectKind(path string) (domain.DocumentKind, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.KindUnknown, err
	}
	defer f.Close()

	head := make([]byte, detectWindow)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return domain.KindUnknown, err
	}
	return DetectKindBytes(head[:n]), nil
}

// DetectKindBytes aplica a mesma regra de DetectKind a um trecho já lido.
func DetectKindBytes(head []byte) domain.DocumentKind {
	if len(head) > detectWindow {
		head = head[:detectWindow]
	}
	switch {
	case bytes.Contains(head, []byte("nfeProc")), bytes.Contains(head, []byte("NFe")):
		return domain.KindInvoice
	case bytes.Contains(head, []byte("cteProc")), bytes.Contains(head, []byte("CTe")):
		return domain.KindTransport
	default:
		return domain.KindUnknown
	}
}

// Extractor interpreta arquivos XML fiscais.
type Extractor struct {
	rules *config.RulesHolder
}

// NewExtractor cria um extrator com as regras de unidade em vigor.
func NewExtractor(rules *config.RulesHolder) *Extractor {
	if rules == nil {
		rules = config.StaticRules(config.DefaultRules())
	}
	return &Extractor{rules: rules}
}

// ExtractFile nunca devolve erro: falhas viram domain.ExtractionFailure.
func (x *Extractor) ExtractFile(ctx context.Context, path string) domain.Extraction {
	if err := ctx.Err(); err != nil {
		return failure(path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return failure(path, fmt.Errorf("erro ao ler arquivo: %w", err))
	}

	doc, err := x.Extract(data)
	if err != nil {
		return failure(path, err)
	}
	doc.SourcePath = path
	return domain.Extraction{SourcePath: path, Document: &doc}
}

// Extract classifica e interpreta o conteúdo de um XML fiscal.
func (x *Extractor) Extract(data []byte) (domain.ExtractedDocument, error) {
	kind := DetectKindBytes(data)
	if kind == domain.KindUnknown {
		return domain.ExtractedDocument{}, ErrUnknownDocument
	}

	root, err := parseTree(bytes.NewReader(data))
	if err != nil {
		return domain.ExtractedDocument{}, err
	}

	if kind == domain.KindInvoice {
		return parseInvoice(root, x.cubicMeterUnits())
	}
	return parseTransport(root)
}

func (x *Extractor) cubicMeterUnits() map[string]struct{} {
	units := x.rules.Get().Volume.CubicMeterUnits
	set := make(map[string]struct{}, len(units))
	for _, u := range units {
		set[strings.ToUpper(strings.TrimSpace(u))] = struct{}{}
	}
	return set
}

func failure(path string, err error) domain.Extraction {
	return domain.Extraction{
		SourcePath: path,
		Failure:    &domain.ExtractionFailure{SourcePath: path, Reason: err.Error()},
	}
}
