package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wnt/rebalancer/internal/models"
	"gorm.io/gorm"
)

// ErrPoolNotFound is returned when a pool lookup matches no row
var ErrPoolNotFound = errors.New("pool not found")

// PoolStore is the persistence gateway for pools, transactions and events.
// All worker-side mutation goes through the transactional Record* methods so
// a pool's audit rows are committed or rolled back as one unit.
type PoolStore struct {
	db *gorm.DB
}

// NewPoolStore creates a pool store over an open gorm connection
func NewPoolStore(db *gorm.DB) *PoolStore {
	return &PoolStore{db: db}
}

// ListEligiblePools returns pools the worker may act on: active, strategy
// enabled, and not under emergency stop.
func (s *PoolStore) ListEligiblePools(ctx context.Context) ([]models.Pool, error) {
	var pools []models.Pool
	err := s.db.WithContext(ctx).
		Where("status = ? AND enabled = ? AND emergency_stop = ?", models.PoolStatusActive, true, false).
		Find(&pools).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible pools: %w", err)
	}
	return pools, nil
}

// GetPool returns a pool by its on-chain address
func (s *PoolStore) GetPool(ctx context.Context, address string) (*models.Pool, error) {
	var pool models.Pool
	err := s.db.WithContext(ctx).Where("address = ?", address).First(&pool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPoolNotFound
		}
		return nil, fmt.Errorf("failed to get pool %s: %w", address, err)
	}
	return &pool, nil
}

// CreatePool validates and registers a new pool, writing the pool row and its
// created event in one transaction.
func (s *PoolStore) CreatePool(ctx context.Context, pool *models.Pool) error {
	if err := pool.ValidateStrategy(); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(pool).Error; err != nil {
			return fmt.Errorf("failed to create pool: %w", err)
		}
		event := models.PoolEvent{
			PoolID:      pool.ID,
			EventType:   models.EventCreated,
			Description: fmt.Sprintf("pool %s registered", pool.Address),
			Severity:    models.SeverityInfo,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to create pool event: %w", err)
		}
		return nil
	})
}

// StrategyUpdate carries the mutable strategy parameters for a pool
type StrategyUpdate struct {
	TargetRatio        decimal.Decimal
	RebalanceThreshold decimal.Decimal
	MinTradeSize       decimal.Decimal
	MaxTradeSize       decimal.Decimal
	MaxSlippage        decimal.Decimal
	Enabled            bool
}

// UpdateStrategy validates and applies new strategy parameters, recording a
// config_changed event in the same transaction.
func (s *PoolStore) UpdateStrategy(ctx context.Context, poolID uint, update StrategyUpdate) error {
	probe := models.Pool{
		TargetRatio:        update.TargetRatio,
		RebalanceThreshold: update.RebalanceThreshold,
		MinTradeSize:       update.MinTradeSize,
		MaxTradeSize:       update.MaxTradeSize,
		MaxSlippage:        update.MaxSlippage,
	}
	if err := probe.ValidateStrategy(); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Pool{}).Where("id = ?", poolID).Updates(map[string]interface{}{
			"target_ratio":        update.TargetRatio,
			"rebalance_threshold": update.RebalanceThreshold,
			"min_trade_size":      update.MinTradeSize,
			"max_trade_size":      update.MaxTradeSize,
			"max_slippage":        update.MaxSlippage,
			"enabled":             update.Enabled,
		})
		if result.Error != nil {
			return fmt.Errorf("failed to update strategy: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrPoolNotFound
		}
		event := models.PoolEvent{
			PoolID:      poolID,
			EventType:   models.EventConfigChanged,
			Description: "strategy parameters updated",
			Severity:    models.SeverityInfo,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to create config event: %w", err)
		}
		return nil
	})
}

// SetEmergencyStop toggles the hard override flag on a pool
func (s *PoolStore) SetEmergencyStop(ctx context.Context, poolID uint, stopped bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Pool{}).Where("id = ?", poolID).Update("emergency_stop", stopped)
		if result.Error != nil {
			return fmt.Errorf("failed to set emergency stop: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrPoolNotFound
		}
		event := models.PoolEvent{
			PoolID:      poolID,
			EventType:   models.EventConfigChanged,
			Description: fmt.Sprintf("emergency stop set to %t", stopped),
			Severity:    models.SeverityWarning,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to create config event: %w", err)
		}
		return nil
	})
}

// RecordRebalanceSuccess commits the audit trail for a successful corrective
// trade: one success transaction row, one rebalanced event, and the cleared
// derived state, all in a single database transaction.
func (s *PoolStore) RecordRebalanceSuccess(ctx context.Context, poolID uint, rec *models.RebalanceTransaction, description string) error {
	rec.PoolID = poolID
	rec.Status = models.TxStatusSuccess

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("failed to insert transaction record: %w", err)
		}
		event := models.PoolEvent{
			PoolID:      poolID,
			EventType:   models.EventRebalanced,
			Description: description,
			Severity:    models.SeverityInfo,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to insert rebalanced event: %w", err)
		}
		if err := tx.Model(&models.Pool{}).Where("id = ?", poolID).Updates(map[string]interface{}{
			"rebalance_needed": false,
			"last_checked_at":  time.Now().UTC(),
		}).Error; err != nil {
			return fmt.Errorf("failed to update derived pool state: %w", err)
		}
		return nil
	})
}

// RecordRebalanceFailure commits the audit trail for a failed execution: one
// failed transaction row plus one error event, in a single database
// transaction. The deviation persists, so rebalance_needed stays set.
func (s *PoolStore) RecordRebalanceFailure(ctx context.Context, poolID uint, rec *models.RebalanceTransaction, description string) error {
	rec.PoolID = poolID
	rec.Status = models.TxStatusFailed

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("failed to insert transaction record: %w", err)
		}
		event := models.PoolEvent{
			PoolID:      poolID,
			EventType:   models.EventError,
			Description: description,
			Severity:    models.SeverityError,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to insert error event: %w", err)
		}
		if err := tx.Model(&models.Pool{}).Where("id = ?", poolID).Updates(map[string]interface{}{
			"rebalance_needed": true,
			"last_checked_at":  time.Now().UTC(),
		}).Error; err != nil {
			return fmt.Errorf("failed to update derived pool state: %w", err)
		}
		return nil
	})
}

// InsertEvent appends a standalone pool event outside any rebalance recording
func (s *PoolStore) InsertEvent(ctx context.Context, event *models.PoolEvent) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to insert pool event: %w", err)
	}
	return nil
}

// UpdateDerivedState writes the worker-maintained fields of a pool
func (s *PoolStore) UpdateDerivedState(ctx context.Context, poolID uint, rebalanceNeeded bool) error {
	err := s.db.WithContext(ctx).Model(&models.Pool{}).Where("id = ?", poolID).Updates(map[string]interface{}{
		"rebalance_needed": rebalanceNeeded,
		"last_checked_at":  time.Now().UTC(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update derived pool state: %w", err)
	}
	return nil
}

// SaveSnapshot appends an observed on-chain state row for a pool
func (s *PoolStore) SaveSnapshot(ctx context.Context, snapshot *models.PoolStateSnapshot) error {
	if err := s.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		return fmt.Errorf("failed to save pool state snapshot: %w", err)
	}
	return nil
}

// CountRebalanceNeeded returns how many active pools are currently flagged as
// needing a rebalance.
func (s *PoolStore) CountRebalanceNeeded(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Pool{}).
		Where("status = ? AND rebalance_needed = ?", models.PoolStatusActive, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count pending rebalances: %w", err)
	}
	return count, nil
}

// LatestErrorEvent returns the most recent error-severity event across all
// pools, or nil when none exists.
func (s *PoolStore) LatestErrorEvent(ctx context.Context) (*models.PoolEvent, error) {
	var event models.PoolEvent
	err := s.db.WithContext(ctx).
		Where("severity = ?", models.SeverityError).
		Order("created_at DESC").
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest error event: %w", err)
	}
	return &event, nil
}
