// Package reconciliation extrai o valor de PDFs de receitas e despesas e grava o saldo como RP.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"consolidation-service/internal/config"
	"consolidation-service/internal/core/extraction"
	"consolidation-service/internal/domain"
	"consolidation-service/internal/logging"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	CategoryRevenue = "Receita"
	CategoryExpense = "Despesa"

	StatusOK     = "OK"
	StatusReview = "REVISAR"
	StatusError  = "ERRO"
)

var (
	ErrNoFolders = errors.New("informe ao menos uma pasta")
	ErrNoFiles   = errors.New("nenhum PDF encontrado")
)

// Store é a parte do armazenamento de consolidação usada pela conciliação.
type Store interface {
	SetField(ctx context.Context, period string, field domain.ConsolidationField, value decimal.Decimal) error
}

// Item é um PDF conciliado.
type Item struct {
	File     string          `json:"file"`
	Path     string          `json:"path"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Status   string          `json:"status"`
	Method   string          `json:"method"`
}

// Summary soma apenas os itens com status OK.
type Summary struct {
	Items   []Item          `json:"items"`
	Revenue decimal.Decimal `json:"revenue"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
	Review  int             `json:"review"`
	Errors  int             `json:"errors"`
}

// Request aponta as pastas de receitas e despesas; uma delas pode ficar vazia.
type Request struct {
	RevenueDir string `json:"revenue_dir"`
	ExpenseDir string `json:"expense_dir"`
}

// Progress é chamado a cada PDF concluído, possivelmente de goroutines diferentes.
type Progress func(done, total int, item Item)

type Service interface {
	Reconcile(ctx context.Context, req Request, progress Progress) (Summary, error)
	SaveRP(ctx context.Context, period string, summary Summary) error
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

type job struct {
	path     string
	category string
}

func (s *service) Reconcile(ctx context.Context, req Request, progress Progress) (Summary, error) {
	if req.RevenueDir == "" && req.ExpenseDir == "" {
		return Summary{}, ErrNoFolders
	}

	var jobs []job
	for _, dir := range []struct{ path, category string }{
		{req.RevenueDir, CategoryRevenue},
		{req.ExpenseDir, CategoryExpense},
	} {
		if dir.path == "" {
			continue
		}
		files, err := extraction.ListFiles(dir.path, ".pdf")
		if err != nil {
			return Summary{}, fmt.Errorf("erro ao listar PDFs de %q: %w", dir.path, err)
		}
		for _, f := range files {
			jobs = append(jobs, job{path: f, category: dir.category})
		}
	}
	if len(jobs) == 0 {
		return Summary{}, ErrNoFiles
	}
	s.log.Info("reconciliation started", zap.Int("files", len(jobs)))

	rules := s.rules.Get().Text
	items := make([]Item, len(jobs))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = Evaluate(j.path, j.category, s.source.ReadText(gctx, j.path), rules)
			if items[i].Status == StatusError {
				s.log.Warn("pdf unreadable", zap.String("file", j.path), zap.String("error", items[i].Method))
			}
			n := done.Add(1)
			if progress != nil {
				progress(int(n), len(jobs), items[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}

	summary := Summarize(items)
	s.log.Info("reconciliation finished",
		zap.String("revenue", summary.Revenue.StringFixed(2)),
		zap.String("expense", summary.Expense.StringFixed(2)),
		zap.String("balance", summary.Balance.StringFixed(2)),
		zap.Int("review", summary.Review),
		zap.Int("errors", summary.Errors))
	return summary, nil
}

// SaveRP grava o saldo receitas − despesas como RP do período.
func (s *service) SaveRP(ctx context.Context, period string, summary Summary) error {
	return s.store.SetField(ctx, period, domain.FieldRP, summary.Balance)
}

// Evaluate transforma a leitura de um PDF em item conciliado.
// Sem texto o item fica ERRO; texto sem valor plausível fica REVISAR.
func Evaluate(path, category string, read extraction.TextRead, rules config.TextRules) Item {
	it := Item{File: filepath.Base(path), Path: path, Category: category}
	if read.Text == "" {
		it.Status = StatusError
		it.Method = read.Method
		return it
	}

	value, method := extraction.ExtractValue(read.Text, rules)
	it.Amount = value
	it.Method = read.Method + " -> " + method
	it.Status = StatusReview
	if value.IsPositive() {
		it.Status = StatusOK
	}
	return it
}

// Summarize soma receitas e despesas com status OK.
func Summarize(items []Item) Summary {
	summary := Summary{Items: items}
	for _, it := range items {
		switch it.Status {
		case StatusReview:
			summary.Review++
			continue
		case StatusError:
			summary.Errors++
			continue
		}
		switch it.Category {
		case CategoryRevenue:
			summary.Revenue = summary.Revenue.Add(it.Amount)
		case CategoryExpense:
			summary.Expense = summary.Expense.Add(it.Amount)
		}
	}
	summary.Balance = summary.Revenue.Sub(summary.Expense)
	return summary
}
