// Package charges lê as notas de débito e crédito de encargos (EAT, penalidades, TOP)
// e grava o total convertido para reais como RET.
package charges

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"consolidation-service/internal/config"
	"consolidation-service/internal/core/brl"
	"consolidation-service/internal/core/extraction"
	"consolidation-service/internal/domain"
	"consolidation-service/internal/logging"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	TypeEAT       = "EAT"
	TypePenalties = "Penalidades"
	TypeTOP       = "TOP"
	TypeOther     = "Outros"

	NoteDebit    = "Débito"
	NoteCredit   = "Crédito"
	NotAvailable = "N/A"
)

var ErrNoFiles = errors.New("nenhum PDF encontrado")

var (
	ndPattern       = regexp.MustCompile(`(?i)ND\s*[:\-]?\s*(\d+)`)
	datePattern     = regexp.MustCompile(`(\d{2}[/-]\d{2}[/-]\d{4})`)
	quantityPattern = regexp.MustCompile(`(?i)(?:QT|Quantidade)[:\s]*(\d+(?:[.,]\d+)?)`)
	valuePatterns   = []*regexp.Regexp{
		regexp.MustCompile(`R\$\s*(\d{1,3}(?:\.\d{3})*(?:,\d{2})?)`),
		regexp.MustCompile(`€\s*(\d{1,3}(?:\.\d{3})*(?:,\d{2})?)`),
		regexp.MustCompile(`(\d{1,3}(?:\.\d{3})*,\d{2})`),
	}
)

// Store é a parte do armazenamento de consolidação usada pelo RET.
type Store interface {
	SetField(ctx context.Context, period string, field domain.ConsolidationField, value decimal.Decimal) error
}

// Note é uma nota de encargo lida de um PDF. Valores em euro.
type Note struct {
	File       string            `json:"file"`
	Path       string            `json:"path"`
	ChargeType string            `json:"charge_type"`
	Company    string            `json:"company"`
	NoteType   string            `json:"note_type"`
	Number     string            `json:"number"`
	DueDate    string            `json:"due_date"`
	Total      decimal.Decimal   `json:"total"`
	Quantity   decimal.Decimal   `json:"quantity"`
	UnitValue  decimal.Decimal   `json:"unit_value"`
	Values     []decimal.Decimal `json:"values"`
	ReadMethod string            `json:"read_method"`
}

// HasValues informa se algum valor monetário foi encontrado.
func (n Note) HasValues() bool {
	return len(n.Values) > 0 && n.Total.IsPositive()
}

// TypeSummary agrega as notas de um tipo de encargo.
type TypeSummary struct {
	ChargeType string          `json:"charge_type"`
	Files      int             `json:"files"`
	Total      decimal.Decimal `json:"total"`
	TotalBRL   decimal.Decimal `json:"total_brl"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// Summary é o resultado de uma pasta de encargos.
type Summary struct {
	Root          string          `json:"root"`
	Notes         []Note          `json:"notes"`
	ByType        []TypeSummary   `json:"by_type"`
	Total         decimal.Decimal `json:"total"`
	TotalBRL      decimal.Decimal `json:"total_brl"`
	Rate          decimal.Decimal `json:"rate"`
	WithValues    int             `json:"with_values"`
	WithoutValues []string        `json:"without_values"`
}

type Service interface {
	Process(ctx context.Context, root string) (Summary, error)
	SaveRET(ctx context.Context, period string, summary Summary) error
}

type service struct {
	source  extraction.TextSource
	store   Store
	rules   *config.RulesHolder
	workers int
	log     *zap.Logger
}

func NewService(source extraction.TextSource, store Store, rules *config.RulesHolder, workers int, log *zap.Logger) Service {
	if rules == nil {
		rules = config.StaticRules(config.DefaultRules())
	}
	if workers <= 0 {
		workers = 1
	}
	return &service{source: source, store: store, rules: rules, workers: workers, log: logging.OrNop(log)}
}

// Process lê todos os PDF sob root. PDFs sem valores entram na lista WithoutValues.
func (s *service) Process(ctx context.Context, root string) (Summary, error) {
	paths, err := extraction.ListFiles(root, ".pdf")
	if err != nil {
		return Summary{}, fmt.Errorf("erro ao listar PDFs de %q: %w", root, err)
	}
	if len(paths) == 0 {
		return Summary{}, ErrNoFiles
	}

	rules := s.rules.Get().Charges
	notes := make([]Note, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			read := s.source.ReadText(gctx, path)
			rel, err := filepath.Rel(root, path)
			if err != nil {
				rel = filepath.Base(path)
			}
			note := Analyze(rel, read.Text, rules.KnownCompanies)
			note.Path = path
			note.ReadMethod = read.Method
			notes[i] = note
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	summary := Summarize(notes, decimal.NewFromFloat(rules.EURToBRL))
	summary.Root = root
	s.log.Info("charges processed",
		zap.String("root", root),
		zap.Int("files", len(notes)),
		zap.Int("with_values", summary.WithValues),
		zap.String("total_brl", summary.TotalBRL.StringFixed(2)))
	return summary, nil
}

// SaveRET grava o total em reais como RET do período.
func (s *service) SaveRET(ctx context.Context, period string, summary Summary) error {
	return s.store.SetField(ctx, period, domain.FieldRET, summary.TotalBRL)
}

// Analyze classifica a nota pelo caminho relativo e extrai os campos do texto.
func Analyze(relPath, text string, companies []string) Note {
	name := filepath.Base(relPath)
	note := Note{
		File:       name,
		Path:       relPath,
		ChargeType: ChargeType(relPath),
		Company:    Company(name, companies),
		NoteType:   NoteType(name),
	}

	if m := ndPattern.FindStringSubmatch(text); m != nil {
		note.Number = m[1]
	}
	if m := datePattern.FindStringSubmatch(text); m != nil {
		note.DueDate = m[1]
	}

	for _, p := range valuePatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			if v := brl.ParseDecimal(m[1]); v.IsPositive() {
				note.Values = append(note.Values, v)
			}
		}
	}
	if len(note.Values) == 0 {
		return note
	}

	note.Total = decimal.Max(note.Values[0], note.Values[1:]...)
	if m := quantityPattern.FindStringSubmatch(text); m != nil {
		if q, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ".")); err == nil {
			note.Quantity = q
		}
	}
	if note.Quantity.IsPositive() {
		note.UnitValue = note.Total.Div(note.Quantity)
	}
	return note
}

// ChargeType identifica o encargo pelas pastas do caminho.
func ChargeType(path string) string {
	upper := strings.ToUpper(path)
	switch {
	case strings.Contains(upper, "EAT"):
		return TypeEAT
	case strings.Contains(upper, "PENALIDADE"):
		return TypePenalties
	case strings.Contains(upper, "TOP"):
		return TypeTOP
	default:
		return TypeOther
	}
}

// Company devolve a primeira empresa conhecida contida no nome do arquivo.
func Company(filename string, companies []string) string {
	upper := strings.ToUpper(filename)
	for _, c := range companies {
		if c != "" && strings.Contains(upper, strings.ToUpper(c)) {
			return c
		}
	}
	return NotAvailable
}

// NoteType distingue nota de débito e de crédito pelo nome do arquivo.
func NoteType(filename string) string {
	upper := strings.ToUpper(filename)
	switch {
	case strings.Contains(upper, "ND"), strings.Contains(upper, "DEBITO"), strings.Contains(upper, "DÉBITO"):
		return NoteDebit
	case strings.Contains(upper, "NC"), strings.Contains(upper, "CREDITO"), strings.Contains(upper, "CRÉDITO"):
		return NoteCredit
	default:
		return NotAvailable
	}
}

// Summarize soma as notas por tipo e converte os totais com rate.
func Summarize(notes []Note, rate decimal.Decimal) Summary {
	summary := Summary{Notes: notes, Rate: rate}
	byType := map[string]*TypeSummary{}
	for _, n := range notes {
		ts, ok := byType[n.ChargeType]
		if !ok {
			ts = &TypeSummary{ChargeType: n.ChargeType}
			byType[n.ChargeType] = ts
		}
		ts.Files++
		ts.Total = ts.Total.Add(n.Total)
		ts.Quantity = ts.Quantity.Add(n.Quantity)
		summary.Total = summary.Total.Add(n.Total)

		if n.HasValues() {
			summary.WithValues++
		} else {
			summary.WithoutValues = append(summary.WithoutValues, n.Path)
		}
	}

	for _, ts := range byType {
		ts.TotalBRL = ts.Total.Mul(rate)
		summary.ByType = append(summary.ByType, *ts)
	}
	sort.Slice(summary.ByType, func(i, j int) bool { return summary.ByType[i].ChargeType < summary.ByType[j].ChargeType })
	summary.TotalBRL = summary.Total.Mul(rate)
	return summary
}
