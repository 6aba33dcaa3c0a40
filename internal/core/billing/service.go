// Package billing apura o volume faturado líquido das planilhas e grava o CGF em reais.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"consolidation-service/internal/config"
	"consolidation-service/internal/core/aggregation"
	"consolidation-service/internal/domain"
	"consolidation-service/internal/logging"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	PriceFromStore  = "banco"
	PriceFromManual = "manual"
)

var (
	ErrPriceNotFound = errors.New("PMPV do período não encontrado")
	ErrNoTables      = errors.New("nenhuma planilha informada")
	ErrInvalidPrice  = errors.New("PMPV deve ser positivo")
)

// PriceSource consulta o PMPV publicado de um período.
type PriceSource interface {
	GetPublishedPrice(ctx context.Context, period string) (decimal.Decimal, bool, error)
}

// Store é a parte do armazenamento de consolidação usada pelo CGF.
type Store interface {
	SetField(ctx context.Context, period string, field domain.ConsolidationField, value decimal.Decimal) error
	RecomputeRPV(ctx context.Context, period string) (decimal.Decimal, error)
}

// Request descreve um cálculo de CGF. Price, quando informado, substitui o PMPV do banco.
type Request struct {
	Period string           `json:"period"`
	Files  []string         `json:"files"`
	Price  *decimal.Decimal `json:"price,omitempty"`
}

// Result é o CGF apurado de um período.
type Result struct {
	Period      string                      `json:"period"`
	Volume      aggregation.NetVolumeReport `json:"volume"`
	Price       decimal.Decimal             `json:"price"`
	PriceSource string                      `json:"price_source"`
	CGF         decimal.Decimal             `json:"cgf"`
	RPV         decimal.Decimal             `json:"rpv"`
	Unreadable  []domain.ExtractionFailure  `json:"unreadable,omitempty"`
}

type Service interface {
	Compute(ctx context.Context, req Request) (Result, error)
	Save(ctx context.Context, req Request) (Result, error)
}

type service struct {
	prices PriceSource
	store  Store
	rules  *config.RulesHolder
	log    *zap.Logger
}

func NewService(prices PriceSource, store Store, rules *config.RulesHolder, log *zap.Logger) Service {
	if rules == nil {
		rules = config.StaticRules(config.DefaultRules())
	}
	return &service{prices: prices, store: store, rules: rules, log: logging.OrNop(log)}
}

// Compute lê as planilhas, calcula o volume líquido e multiplica pelo PMPV.
// Nada é gravado.
func (s *service) Compute(ctx context.Context, req Request) (Result, error) {
	if len(req.Files) == 0 {
		return Result{}, ErrNoTables
	}
	res := Result{Period: strings.TrimSpace(req.Period)}

	price, source, err := s.resolvePrice(ctx, res.Period, req.Price)
	if err != nil {
		return Result{}, err
	}
	res.Price, res.PriceSource = price, source

	tables := make([]aggregation.Table, 0, len(req.Files))
	for _, path := range req.Files {
		t, err := aggregation.ReadTable(path)
		if err != nil {
			s.log.Warn("sheet unreadable", zap.String("file", path), zap.Error(err))
			res.Unreadable = append(res.Unreadable, domain.ExtractionFailure{SourcePath: path, Reason: err.Error()})
			continue
		}
		tables = append(tables, t)
	}

	res.Volume = aggregation.NetVolume(tables, s.rules.Get().Volume)
	res.CGF = res.Volume.Net.Mul(price)

	s.log.Info("cgf computed",
		zap.String("period", res.Period),
		zap.String("net_volume", res.Volume.Net.String()),
		zap.String("price", price.StringFixed(4)),
		zap.String("price_source", source),
		zap.String("cgf", res.CGF.StringFixed(2)))
	return res, nil
}

// Save calcula o CGF, grava no período e recalcula o RPV.
func (s *service) Save(ctx context.Context, req Request) (Result, error) {
	res, err := s.Compute(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if err := s.store.SetField(ctx, res.Period, domain.FieldCGF, res.CGF); err != nil {
		return Result{}, err
	}
	rpv, err := s.store.RecomputeRPV(ctx, res.Period)
	if err != nil {
		return Result{}, err
	}
	res.RPV = rpv
	return res, nil
}

func (s *service) resolvePrice(ctx context.Context, period string, override *decimal.Decimal) (decimal.Decimal, string, error) {
	if override != nil {
		if !override.IsPositive() {
			return decimal.Zero, "", ErrInvalidPrice
		}
		return *override, PriceFromManual, nil
	}
	if s.prices == nil {
		return decimal.Zero, "", fmt.Errorf("%w: %q", ErrPriceNotFound, period)
	}
	price, found, err := s.prices.GetPublishedPrice(ctx, period)
	if err != nil {
		return decimal.Zero, "", err
	}
	if !found || !price.IsPositive() {
		return decimal.Zero, "", fmt.Errorf("%w: %q", ErrPriceNotFound, period)
	}
	return price, PriceFromStore, nil
}
