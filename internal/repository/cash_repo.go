package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weps89/lb-electronica/internal/model"
)

// CashRepository persists cash sessions and their immutable movements.
type CashRepository interface {
	CreateSessionTx(tx *gorm.DB, s *model.CashSession) error
	FindOpenByUser(ctx context.Context, userID uuid.UUID) (*model.CashSession, error)
	// FindOpenByUserForUpdateTx locks the operator's open session (when any)
	// so open/close/collect serialize per operator.
	FindOpenByUserForUpdateTx(tx *gorm.DB, userID uuid.UUID) (*model.CashSession, error)
	FindSessionByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error)
	SaveSessionTx(tx *gorm.DB, s *model.CashSession) error
	CreateMovementTx(tx *gorm.DB, m *model.CashMovement) error
	ListMovementsTx(tx *gorm.DB, sessionID uuid.UUID) ([]model.CashMovement, error)
	ListSessions(ctx context.Context, from, to time.Time, userID *uuid.UUID) ([]model.CashSession, error)
	DB() *gorm.DB
}

type cashRepo struct{ db *gorm.DB }

func NewCashRepository(db *gorm.DB) CashRepository { return &cashRepo{db: db} }

func (r *cashRepo) DB() *gorm.DB { return r.db }

func (r *cashRepo) CreateSessionTx(tx *gorm.DB, s *model.CashSession) error {
	return tx.Create(s).Error
}

func (r *cashRepo) FindOpenByUser(ctx context.Context, userID uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).
		Preload("Movements").
		Where("user_id = ? AND is_open", userID).
		First(&s).Error
	return &s, err
}

func (r *cashRepo) FindOpenByUserForUpdateTx(tx *gorm.DB, userID uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND is_open", userID).
		First(&s).Error
	return &s, err
}

func (r *cashRepo) FindSessionByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).Preload("Movements").First(&s, "id = ?", id).Error
	return &s, err
}

func (r *cashRepo) SaveSessionTx(tx *gorm.DB, s *model.CashSession) error {
	return tx.Save(s).Error
}

func (r *cashRepo) CreateMovementTx(tx *gorm.DB, m *model.CashMovement) error {
	return tx.Create(m).Error
}

func (r *cashRepo) ListMovementsTx(tx *gorm.DB, sessionID uuid.UUID) ([]model.CashMovement, error) {
	var movements []model.CashMovement
	err := tx.Where("cash_session_id = ?", sessionID).Order("created_at ASC").Find(&movements).Error
	return movements, err
}

func (r *cashRepo) ListSessions(ctx context.Context, from, to time.Time, userID *uuid.UUID) ([]model.CashSession, error) {
	var sessions []model.CashSession
	q := r.db.WithContext(ctx).
		Preload("Movements").
		Preload("User").
		Where("opened_at >= ? AND opened_at <= ?", from, to)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	err := q.Order("opened_at DESC").Find(&sessions).Error
	return sessions, err
}
