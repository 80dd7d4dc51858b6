package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInvalidStrategy is returned when strategy parameters fail validation
var ErrInvalidStrategy = errors.New("invalid strategy parameters")

// Pool statuses
const (
	PoolStatusActive   = "active"
	PoolStatusInactive = "inactive"
)

// Pool represents a managed liquidity pool and its rebalancing strategy.
// Strategy parameters are written by the admin surface only; the worker
// mutates nothing here except the derived fields.
type Pool struct {
	gorm.Model
	Address string `gorm:"size:44;uniqueIndex;not null"`

	// Token pair metadata
	TokenAMint     string `gorm:"size:44;index;not null"`
	TokenBMint     string `gorm:"size:44;index;not null"`
	TokenASymbol   string `gorm:"size:16"`
	TokenBSymbol   string `gorm:"size:16"`
	TokenADecimals uint8
	TokenBDecimals uint8

	// Strategy parameters
	TargetRatio        decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	RebalanceThreshold decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	MinTradeSize       decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	MaxTradeSize       decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	MaxSlippage        decimal.Decimal `gorm:"type:numeric(20,10);not null"`

	// Control flags
	Status        string `gorm:"size:20;default:'active';index"`
	Enabled       bool   `gorm:"default:false;index"`
	EmergencyStop bool   `gorm:"default:false;index"`

	// Derived state, maintained by the worker
	RebalanceNeeded bool `gorm:"default:false;index"`
	LastCheckedAt   time.Time

	// Relationships
	Transactions []RebalanceTransaction `gorm:"foreignKey:PoolID"`
	Events       []PoolEvent            `gorm:"foreignKey:PoolID"`
	Snapshots    []PoolStateSnapshot    `gorm:"foreignKey:PoolID"`
}

// ValidateStrategy rejects malformed strategy parameters. The admin surface
// enforces this at write time; the worker re-checks it defensively so a bad
// row skips the pool instead of reaching the decision function.
func (p *Pool) ValidateStrategy() error {
	one := decimal.NewFromInt(1)

	if !p.TargetRatio.IsPositive() || p.TargetRatio.GreaterThanOrEqual(one) {
		return fmt.Errorf("%w: target ratio must be in (0, 1), got %s", ErrInvalidStrategy, p.TargetRatio)
	}
	if !p.RebalanceThreshold.IsPositive() {
		return fmt.Errorf("%w: rebalance threshold must be positive, got %s", ErrInvalidStrategy, p.RebalanceThreshold)
	}
	if p.MinTradeSize.IsNegative() {
		return fmt.Errorf("%w: min trade size must not be negative, got %s", ErrInvalidStrategy, p.MinTradeSize)
	}
	if p.MaxTradeSize.LessThan(p.MinTradeSize) {
		return fmt.Errorf("%w: max trade size %s is below min trade size %s", ErrInvalidStrategy, p.MaxTradeSize, p.MinTradeSize)
	}
	if p.MaxSlippage.IsNegative() || p.MaxSlippage.GreaterThanOrEqual(one) {
		return fmt.Errorf("%w: max slippage must be in [0, 1), got %s", ErrInvalidStrategy, p.MaxSlippage)
	}
	return nil
}
