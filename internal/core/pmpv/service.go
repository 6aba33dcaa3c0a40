// Package pmpv guarda as sessões do cálculo trimestral do preço médio ponderado
// de venda e o PMPV mensal publicado consultado pelo cálculo do CGF.
package pmpv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"consolidation-service/internal/db"
	"consolidation-service/internal/domain"
	"consolidation-service/internal/logging"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrSessionNotFound = errors.New("sessão não encontrada")
	ErrInvalidMonth    = errors.New("mês do trimestre deve ser 1, 2 ou 3")
	ErrEmptyName       = errors.New("nome não informado")
)

// Service define o armazenamento de sessões e preços publicados.
type Service interface {
	CreateSession(ctx context.Context, name, notes string) (domain.Session, error)
	GetSession(ctx context.Context, id uint) (domain.Session, error)
	ListSessions(ctx context.Context) ([]domain.Session, error)
	SaveMonthInputs(ctx context.Context, sessionID uint, month int, rows []domain.MonthInput) error
	LoadMonthInputs(ctx context.Context, sessionID uint, month int) ([]domain.MonthInput, error)
	LoadQuarter(ctx context.Context, sessionID uint) ([3][]domain.MonthInput, error)
	SaveResult(ctx context.Context, sessionID uint, calc Calculation) (domain.Result, error)
	LatestResult(ctx context.Context, sessionID uint) (domain.Result, bool, error)
	SavePublishedPrice(ctx context.Context, period string, price decimal.Decimal) error
	GetPublishedPrice(ctx context.Context, period string) (decimal.Decimal, bool, error)
	ListPublishedPrices(ctx context.Context) ([]domain.MonthlyPublishedPrice, error)
}

type service struct {
	conn *gorm.DB
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewService(conn *gorm.DB, log *zap.Logger) Service {
	return &service{
		conn: conn,
		repo: NewRepository(conn),
		log:  logging.OrNop(log),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) CreateSession(ctx context.Context, name, notes string) (domain.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Session{}, ErrEmptyName
	}
	now := s.now()
	sess := domain.Session{Name: name, Notes: notes, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.CreateSession(ctx, &sess); err != nil {
		return domain.Session{}, fmt.Errorf("erro ao criar sessão: %w", err)
	}
	s.log.Info("pmpv session created", zap.Uint("session_id", sess.ID), zap.String("name", name))
	return sess, nil
}

func (s *service) GetSession(ctx context.Context, id uint) (domain.Session, error) {
	sess, err := s.repo.FindSession(ctx, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("erro ao buscar sessão %d: %w", id, err)
	}
	if sess == nil {
		return domain.Session{}, ErrSessionNotFound
	}
	return *sess, nil
}

func (s *service) ListSessions(ctx context.Context) ([]domain.Session, error) {
	out, err := s.repo.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar sessões: %w", err)
	}
	return out, nil
}

// SaveMonthInputs substitui as linhas do mês e atualiza a data de modificação da sessão.
// Linhas sem empresa são descartadas.
func (s *service) SaveMonthInputs(ctx context.Context, sessionID uint, month int, rows []domain.MonthInput) error {
	if month < 1 || month > MonthsPerQuarter {
		return ErrInvalidMonth
	}

	clean := make([]domain.MonthInput, 0, len(rows))
	for _, row := range rows {
		row.Company = strings.TrimSpace(row.Company)
		if row.Company == "" {
			continue
		}
		row.ID = 0
		row.SessionID = sessionID
		row.MonthIndex = month
		clean = append(clean, row)
	}

	err := db.WithTx(ctx, s.conn, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.TouchSession(ctx, sessionID, s.now()); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		return repo.ReplaceMonthInputs(ctx, sessionID, month, clean)
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return err
		}
		s.log.Error("save month inputs failed", zap.Uint("session_id", sessionID), zap.Int("month", month), zap.Error(err))
		return fmt.Errorf("erro ao salvar mês %d da sessão %d: %w", month, sessionID, err)
	}
	return nil
}

func (s *service) LoadMonthInputs(ctx context.Context, sessionID uint, month int) ([]domain.MonthInput, error) {
	if month < 1 || month > MonthsPerQuarter {
		return nil, ErrInvalidMonth
	}
	rows, err := s.repo.MonthInputs(ctx, sessionID, month)
	if err != nil {
		return nil, fmt.Errorf("erro ao carregar mês %d da sessão %d: %w", month, sessionID, err)
	}
	return rows, nil
}

// LoadQuarter carrega os três meses de uma sessão existente.
func (s *service) LoadQuarter(ctx context.Context, sessionID uint) ([3][]domain.MonthInput, error) {
	var months [3][]domain.MonthInput
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return months, err
	}
	for i := range months {
		rows, err := s.LoadMonthInputs(ctx, sessionID, i+1)
		if err != nil {
			return months, err
		}
		months[i] = rows
	}
	return months, nil
}

func (s *service) SaveResult(ctx context.Context, sessionID uint, calc Calculation) (domain.Result, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return domain.Result{}, err
	}
	res := domain.Result{
		SessionID:        sessionID,
		TotalVolume:      calc.TotalVolume,
		TotalCost:        calc.TotalCost,
		DerivedUnitPrice: calc.DerivedUnitPrice,
		Adjustment:       calc.Adjustment,
		FinalPrice:       calc.FinalPrice,
		ComputedAt:       s.now(),
	}
	if err := s.repo.CreateResult(ctx, &res); err != nil {
		return domain.Result{}, fmt.Errorf("erro ao salvar resultado da sessão %d: %w", sessionID, err)
	}
	s.log.Info("pmpv result saved",
		zap.Uint("session_id", sessionID),
		zap.String("pmpv", calc.DerivedUnitPrice.StringFixed(4)),
		zap.String("final", calc.FinalPrice.StringFixed(4)))
	return res, nil
}

func (s *service) LatestResult(ctx context.Context, sessionID uint) (domain.Result, bool, error) {
	res, err := s.repo.LatestResult(ctx, sessionID)
	if err != nil {
		return domain.Result{}, false, fmt.Errorf("erro ao buscar resultado da sessão %d: %w", sessionID, err)
	}
	if res == nil {
		return domain.Result{}, false, nil
	}
	return *res, true, nil
}

// SavePublishedPrice grava ou substitui o PMPV do período.
func (s *service) SavePublishedPrice(ctx context.Context, period string, price decimal.Decimal) error {
	period = strings.TrimSpace(period)
	if period == "" {
		return ErrEmptyName
	}
	p := domain.MonthlyPublishedPrice{Period: period, Price: price, UpdatedAt: s.now()}
	if err := s.repo.UpsertPublishedPrice(ctx, &p); err != nil {
		s.log.Error("save published price failed", zap.String("period", period), zap.Error(err))
		return fmt.Errorf("erro ao salvar PMPV de %q: %w", period, err)
	}
	s.log.Info("published price saved", zap.String("period", period), zap.String("price", price.StringFixed(4)))
	return nil
}

func (s *service) GetPublishedPrice(ctx context.Context, period string) (decimal.Decimal, bool, error) {
	p, err := s.repo.FindPublishedPrice(ctx, strings.TrimSpace(period))
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("erro ao buscar PMPV de %q: %w", period, err)
	}
	if p == nil {
		return decimal.Zero, false, nil
	}
	return p.Price, true, nil
}

func (s *service) ListPublishedPrices(ctx context.Context) ([]domain.MonthlyPublishedPrice, error) {
	out, err := s.repo.ListPublishedPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar PMPV publicados: %w", err)
	}
	return out, nil
}
