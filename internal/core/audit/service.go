// Package audit lê os XML fiscais das pastas de empresas e grava o total como CGR.
package audit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"consolidation-service/internal/core/aggregation"
	"consolidation-service/internal/core/extraction"
	"consolidation-service/internal/domain"
	"consolidation-service/internal/logging"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	StatusOK         = "OK"
	StatusParseError = "ERRO_PARSE"
)

var (
	ErrNoFiles    = errors.New("nenhum arquivo XML encontrado")
	ErrEmptyTotal = errors.New("nenhum valor apurado para salvar")
)

// Store é a parte do armazenamento de consolidação usada pela auditoria.
type Store interface {
	SetField(ctx context.Context, period string, field domain.ConsolidationField, value decimal.Decimal) error
	RecomputeRPV(ctx context.Context, period string) (decimal.Decimal, error)
}

// Item é um XML auditado.
type Item struct {
	Company string `json:"company"`
	Status  string `json:"status"`
	domain.Extraction
}

// Run é o resultado de uma auditoria.
type Run struct {
	RunID  string                 `json:"run_id"`
	Root   string                 `json:"root"`
	Items  []Item                 `json:"items"`
	Totals domain.AggregateTotals `json:"totals"`
}

// Errors conta os itens que não foram interpretados.
func (r Run) Errors() int {
	n := 0
	for _, it := range r.Items {
		if it.Status != StatusOK {
			n++
		}
	}
	return n
}

type Service interface {
	Companies(root string) ([]string, error)
	Audit(ctx context.Context, root string, companies []string, progress extraction.Progress) (Run, error)
	QuickSum(ctx context.Context, root string, progress extraction.Progress) (Run, error)
	SaveCGR(ctx context.Context, period string, totals domain.AggregateTotals) (decimal.Decimal, error)
}

type service struct {
	batch *extraction.Batch
	store Store
	log   *zap.Logger
}

func NewService(batch *extraction.Batch, store Store, log *zap.Logger) Service {
	return &service{batch: batch, store: store, log: logging.OrNop(log)}
}

// Companies lista as subpastas diretas de root.
func (s *service) Companies(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler pasta %q: %w", root, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Audit extrai os XML de root/<empresa> para cada empresa informada.
// Sem empresas, todas as subpastas são auditadas.
func (s *service) Audit(ctx context.Context, root string, companies []string, progress extraction.Progress) (Run, error) {
	if len(companies) == 0 {
		all, err := s.Companies(root)
		if err != nil {
			return Run{}, err
		}
		companies = all
	}

	var paths, owners []string
	for _, company := range companies {
		files, err := extraction.ListFiles(filepath.Join(root, company), ".xml")
		if err != nil {
			return Run{}, fmt.Errorf("erro ao listar XML de %s: %w", company, err)
		}
		s.log.Info("auditing company", zap.String("company", company), zap.Int("files", len(files)))
		for _, f := range files {
			paths = append(paths, f)
			owners = append(owners, company)
		}
	}
	if len(paths) == 0 {
		return Run{}, ErrNoFiles
	}
	return s.run(ctx, root, paths, owners, progress)
}

// QuickSum soma todos os XML sob root sem separar por empresa.
func (s *service) QuickSum(ctx context.Context, root string, progress extraction.Progress) (Run, error) {
	paths, err := extraction.ListFiles(root, ".xml")
	if err != nil {
		return Run{}, fmt.Errorf("erro ao listar XML de %q: %w", root, err)
	}
	if len(paths) == 0 {
		return Run{}, ErrNoFiles
	}
	return s.run(ctx, root, paths, nil, progress)
}

func (s *service) run(ctx context.Context, root string, paths, owners []string, progress extraction.Progress) (Run, error) {
	res, err := s.batch.Run(ctx, paths, progress)
	if err != nil {
		return Run{}, err
	}

	run := Run{RunID: res.RunID, Root: root, Items: make([]Item, len(res.Items))}
	for i, ex := range res.Items {
		it := Item{Extraction: ex, Status: StatusOK}
		if owners != nil {
			it.Company = owners[i]
		}
		if ex.Failed() {
			it.Status = StatusParseError
		}
		run.Items[i] = it
	}
	run.Totals = aggregation.Aggregate(res.Items)

	s.log.Info("audit finished",
		zap.String("run_id", run.RunID),
		zap.Int("documents", run.Totals.DocumentCount),
		zap.Int("errors", run.Totals.FailureCount),
		zap.String("grand_value", run.Totals.GrandValue.StringFixed(2)))
	return run, nil
}

// SaveCGR grava o valor total como CGR e recalcula o RPV do período.
func (s *service) SaveCGR(ctx context.Context, period string, totals domain.AggregateTotals) (decimal.Decimal, error) {
	if totals.GrandValue.IsZero() {
		return decimal.Zero, ErrEmptyTotal
	}
	if err := s.store.SetField(ctx, period, domain.FieldCGR, totals.GrandValue); err != nil {
		return decimal.Zero, err
	}
	return s.store.RecomputeRPV(ctx, period)
}
