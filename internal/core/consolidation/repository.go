package consolidation

import (
	"context"
	"errors"
	"time"

	"consolidation-service/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persiste as linhas da tabela consolidation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Ensure(ctx context.Context, period, notes string, now time.Time) (created bool, err error)
	Find(ctx context.Context, period string) (*domain.ConsolidationRecord, error)
	Update(ctx context.Context, period string, columns map[string]interface{}) error
	List(ctx context.Context) ([]domain.ConsolidationRecord, error)
	Delete(ctx context.Context, period string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository liga o repositório a uma conexão GORM.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Ensure cria a linha do período com todos os campos em zero; não altera uma linha existente.
func (r *repository) Ensure(ctx context.Context, period, notes string, now time.Time) (bool, error) {
	rec := domain.ConsolidationRecord{Period: period, Notes: notes, CreatedAt: now, UpdatedAt: now}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "period"}}, DoNothing: true}).
		Create(&rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Find devolve nil, nil quando o período não existe.
func (r *repository) Find(ctx context.Context, period string) (*domain.ConsolidationRecord, error) {
	var rec domain.ConsolidationRecord
	err := r.db.WithContext(ctx).Where("period = ?", period).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repository) Update(ctx context.Context, period string, columns map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&domain.ConsolidationRecord{}).
		Where("period = ?", period).
		UpdateColumns(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List ordena do período criado mais recentemente para o mais antigo.
func (r *repository) List(ctx context.Context) ([]domain.ConsolidationRecord, error) {
	var out []domain.ConsolidationRecord
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&out).Error
	return out, err
}

func (r *repository) Delete(ctx context.Context, period string) (bool, error) {
	res := r.db.WithContext(ctx).Where("period = ?", period).Delete(&domain.ConsolidationRecord{})
	return res.RowsAffected > 0, res.Error
}
