package pmpv

import (
	"context"
	"errors"
	"time"

	"consolidation-service/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persiste sessões, lançamentos mensais, resultados e o PMPV publicado.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSession(ctx context.Context, s *domain.Session) error
	FindSession(ctx context.Context, id uint) (*domain.Session, error)
	ListSessions(ctx context.Context) ([]domain.Session, error)
	TouchSession(ctx context.Context, id uint, now time.Time) error
	ReplaceMonthInputs(ctx context.Context, sessionID uint, month int, rows []domain.MonthInput) error
	MonthInputs(ctx context.Context, sessionID uint, month int) ([]domain.MonthInput, error)
	CreateResult(ctx context.Context, r *domain.Result) error
	LatestResult(ctx context.Context, sessionID uint) (*domain.Result, error)
	UpsertPublishedPrice(ctx context.Context, p *domain.MonthlyPublishedPrice) error
	FindPublishedPrice(ctx context.Context, period string) (*domain.MonthlyPublishedPrice, error)
	ListPublishedPrices(ctx context.Context) ([]domain.MonthlyPublishedPrice, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSession(ctx context.Context, s *domain.Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *repository) FindSession(ctx context.Context, id uint) (*domain.Session, error) {
	var s domain.Session
	err := r.db.WithContext(ctx).Take(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) ListSessions(ctx context.Context) ([]domain.Session, error) {
	var out []domain.Session
	err := r.db.WithContext(ctx).Order("updated_at DESC").Order("id DESC").Find(&out).Error
	return out, err
}

func (r *repository) TouchSession(ctx context.Context, id uint, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.Session{}).Where("id = ?", id).UpdateColumn("updated_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReplaceMonthInputs apaga as linhas do mês e insere rows; deve rodar dentro de uma transação.
func (r *repository) ReplaceMonthInputs(ctx context.Context, sessionID uint, month int, rows []domain.MonthInput) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("session_id = ? AND month_index = ?", sessionID, month).Delete(&domain.MonthInput{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return conn.Create(&rows).Error
}

func (r *repository) MonthInputs(ctx context.Context, sessionID uint, month int) ([]domain.MonthInput, error) {
	var out []domain.MonthInput
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND month_index = ?", sessionID, month).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *repository) CreateResult(ctx context.Context, res *domain.Result) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *repository) LatestResult(ctx context.Context, sessionID uint) (*domain.Result, error) {
	var res domain.Result
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("computed_at DESC").Order("id DESC").
		Take(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *repository) UpsertPublishedPrice(ctx context.Context, p *domain.MonthlyPublishedPrice) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "period"}},
			DoUpdates: clause.AssignmentColumns([]string{"price", "updated_at"}),
		}).
		Create(p).Error
}

func (r *repository) FindPublishedPrice(ctx context.Context, period string) (*domain.MonthlyPublishedPrice, error) {
	var p domain.MonthlyPublishedPrice
	err := r.db.WithContext(ctx).Where("period = ?", period).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) ListPublishedPrices(ctx context.Context) ([]domain.MonthlyPublishedPrice, error) {
	var out []domain.MonthlyPublishedPrice
	err := r.db.WithContext(ctx).Order("updated_at DESC").Order("period ASC").Find(&out).Error
	return out, err
}
