package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PoolStateSnapshot records the on-chain state observed during one sweep.
// Snapshots are informational only; the fetched state, not the snapshot, is
// what the decision was made against.
type PoolStateSnapshot struct {
	gorm.Model
	PoolID       uint            `gorm:"index;not null"`
	TokenAAmount decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	TokenBAmount decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	CurrentPrice decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	CurrentRatio decimal.Decimal `gorm:"type:numeric(30,10)"`
}
