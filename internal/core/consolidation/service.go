// Package consolidation mantém a linha por período com CGR, CGF, RET, RP e os
// derivados RPV e SCG.
//
// Os campos de entrada são gravados por módulos diferentes e nunca disparam
// recálculo: RPV e SCG só mudam por chamada explícita, podendo ficar defasados
// entre uma gravação e o próximo recálculo.
package consolidation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"consolidation-service/internal/db"
	"consolidation-service/internal/domain"
	"consolidation-service/internal/logging"
	"consolidation-service/internal/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUnknownField = errors.New("campo de consolidação desconhecido")
	ErrEmptyPeriod  = errors.New("período não informado")
)

// PersistenceError identifica o período e o campo de uma gravação que falhou.
type PersistenceError struct {
	Period string
	Field  string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("falha ao gravar %s do período %q: %v", e.Field, e.Period, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DeriveRPV calcula RPV = CGR − CGF.
func DeriveRPV(cgr, cgf decimal.Decimal) decimal.Decimal {
	return cgr.Sub(cgf)
}

// DeriveSCG calcula SCG = RPV × (CGR + CGF) + RET + RP.
func DeriveSCG(rpv, cgr, cgf, ret, rp decimal.Decimal) decimal.Decimal {
	return rpv.Mul(cgr.Add(cgf)).Add(ret).Add(rp)
}

// Service define as operações do armazenamento de consolidação.
type Service interface {
	EnsurePeriod(ctx context.Context, period, notes string) error
	SetField(ctx context.Context, period string, field domain.ConsolidationField, value decimal.Decimal) error
	RecomputeRPV(ctx context.Context, period string) (decimal.Decimal, error)
	RecomputeSCG(ctx context.Context, period string) (decimal.Decimal, error)
	SetRPVAndCGFManual(ctx context.Context, period string, rpv, cgf decimal.Decimal) error
	Finalize(ctx context.Context, period string) (domain.ConsolidationRecord, error)
	Get(ctx context.Context, period string) (domain.ConsolidationRecord, bool, error)
	List(ctx context.Context) ([]domain.ConsolidationRecord, error)
	Delete(ctx context.Context, period string) (bool, error)
}

type service struct {
	conn    *gorm.DB
	repo    Repository
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService cria o serviço sobre conn. m pode ser nil.
func NewService(conn *gorm.DB, log *zap.Logger, m *metrics.Metrics) Service {
	return &service{
		conn:    conn,
		repo:    NewRepository(conn),
		log:     logging.OrNop(log),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) EnsurePeriod(ctx context.Context, period, notes string) error {
	period, err := cleanPeriod(period)
	if err != nil {
		return err
	}
	created, err := s.repo.Ensure(ctx, period, notes, s.now())
	if err != nil {
		return s.persistenceError(period, "period", err)
	}
	if created {
		s.log.Info("period created", zap.String("period", period))
	}
	return nil
}

// SetField garante o período e sobrescreve apenas o campo informado.
func (s *service) SetField(ctx context.Context, period string, field domain.ConsolidationField, value decimal.Decimal) error {
	column, err := fieldColumn(field)
	if err != nil {
		return err
	}
	period, err = cleanPeriod(period)
	if err != nil {
		return err
	}

	err = db.WithTx(ctx, s.conn, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now()
		if _, err := repo.Ensure(ctx, period, "", now); err != nil {
			return err
		}
		return repo.Update(ctx, period, map[string]interface{}{column: value, "updated_at": now})
	})
	if err != nil {
		return s.persistenceError(period, column, err)
	}

	s.written(column)
	s.log.Info("consolidation field written", zap.String("period", period), zap.String("field", column), zap.String("value", value.String()))
	return nil
}

// RecomputeRPV grava e devolve CGR − CGF. Período inexistente devolve zero sem criar linha.
func (s *service) RecomputeRPV(ctx context.Context, period string) (decimal.Decimal, error) {
	return s.recompute(ctx, period, "rpv", func(rec *domain.ConsolidationRecord) decimal.Decimal {
		return DeriveRPV(rec.CGR, rec.CGF)
	})
}

// RecomputeSCG usa o RPV gravado, sem recalculá-lo antes.
func (s *service) RecomputeSCG(ctx context.Context, period string) (decimal.Decimal, error) {
	return s.recompute(ctx, period, "scg", func(rec *domain.ConsolidationRecord) decimal.Decimal {
		return DeriveSCG(rec.RPV, rec.CGR, rec.CGF, rec.RET, rec.RP)
	})
}

func (s *service) recompute(ctx context.Context, period, column string, derive func(*domain.ConsolidationRecord) decimal.Decimal) (decimal.Decimal, error) {
	period, err := cleanPeriod(period)
	if err != nil {
		return decimal.Zero, err
	}

	result, found := decimal.Zero, false
	err = db.WithTx(ctx, s.conn, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rec, err := repo.Find(ctx, period)
		if err != nil || rec == nil {
			return err
		}
		found = true
		result = derive(rec)
		return repo.Update(ctx, period, map[string]interface{}{column: result, "updated_at": s.now()})
	})
	if err != nil {
		return decimal.Zero, s.persistenceError(period, column, err)
	}
	if !found {
		return decimal.Zero, nil
	}

	s.written(column)
	s.log.Info("consolidation recomputed", zap.String("period", period), zap.String("field", column), zap.String("value", result.String()))
	return result, nil
}

// SetRPVAndCGFManual grava RPV e CGF como informados, sem derivar RPV de CGR − CGF.
func (s *service) SetRPVAndCGFManual(ctx context.Context, period string, rpv, cgf decimal.Decimal) error {
	period, err := cleanPeriod(period)
	if err != nil {
		return err
	}

	err = db.WithTx(ctx, s.conn, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now()
		if _, err := repo.Ensure(ctx, period, "", now); err != nil {
			return err
		}
		return repo.Update(ctx, period, map[string]interface{}{"rpv": rpv, "cgf": cgf, "updated_at": now})
	})
	if err != nil {
		return s.persistenceError(period, "rpv/cgf", err)
	}

	s.written("rpv")
	s.written("cgf")
	s.log.Info("manual rpv/cgf written", zap.String("period", period), zap.String("rpv", rpv.String()), zap.String("cgf", cgf.String()))
	return nil
}

// Finalize recalcula RPV e em seguida SCG e devolve a linha atualizada.
func (s *service) Finalize(ctx context.Context, period string) (domain.ConsolidationRecord, error) {
	if _, err := s.RecomputeRPV(ctx, period); err != nil {
		return domain.ConsolidationRecord{}, err
	}
	if _, err := s.RecomputeSCG(ctx, period); err != nil {
		return domain.ConsolidationRecord{}, err
	}
	rec, _, err := s.Get(ctx, period)
	return rec, err
}

// Get devolve found=false, sem erro, para período inexistente.
func (s *service) Get(ctx context.Context, period string) (domain.ConsolidationRecord, bool, error) {
	period, err := cleanPeriod(period)
	if err != nil {
		return domain.ConsolidationRecord{}, false, err
	}
	rec, err := s.repo.Find(ctx, period)
	if err != nil {
		return domain.ConsolidationRecord{}, false, fmt.Errorf("erro ao buscar período %q: %w", period, err)
	}
	if rec == nil {
		return domain.ConsolidationRecord{}, false, nil
	}
	return *rec, true, nil
}

func (s *service) List(ctx context.Context) ([]domain.ConsolidationRecord, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar períodos: %w", err)
	}
	return recs, nil
}

func (s *service) Delete(ctx context.Context, period string) (bool, error) {
	period, err := cleanPeriod(period)
	if err != nil {
		return false, err
	}
	deleted, err := s.repo.Delete(ctx, period)
	if err != nil {
		return false, s.persistenceError(period, "period", err)
	}
	if deleted {
		s.log.Info("period deleted", zap.String("period", period))
	}
	return deleted, nil
}

func (s *service) persistenceError(period, field string, err error) error {
	s.log.Error("consolidation write failed", zap.String("period", period), zap.String("field", field), zap.Error(err))
	return &PersistenceError{Period: period, Field: field, Err: err}
}

func (s *service) written(column string) {
	if s.metrics != nil {
		s.metrics.ConsolidationWrites.WithLabelValues(column).Inc()
	}
}

func cleanPeriod(period string) (string, error) {
	period = strings.TrimSpace(period)
	if period == "" {
		return "", ErrEmptyPeriod
	}
	return period, nil
}

// ParseField aceita o nome do campo em qualquer caixa.
func ParseField(name string) (domain.ConsolidationField, error) {
	f := domain.ConsolidationField(strings.ToLower(strings.TrimSpace(name)))
	if _, err := fieldColumn(f); err != nil {
		return "", err
	}
	return f, nil
}

func fieldColumn(f domain.ConsolidationField) (string, error) {
	switch f {
	case domain.FieldCGR, domain.FieldCGF, domain.FieldRET, domain.FieldRP:
		return string(f), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
}
