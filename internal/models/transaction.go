package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Trade directions
const (
	DirectionBuy  = "buy"
	DirectionSell = "sell"
)

// Transaction statuses
const (
	TxStatusPending = "pending"
	TxStatusSuccess = "success"
	TxStatusFailed  = "failed"
)

// Action types
const (
	ActionRebalance = "rebalance"
)

// RebalanceTransaction is the append-only audit row for one executed (or
// attempted) corrective trade. Rows never change after reaching a terminal
// status.
type RebalanceTransaction struct {
	gorm.Model
	PoolID     uint            `gorm:"index;not null"`
	ActionType string          `gorm:"size:20;default:'rebalance';not null"`
	Direction  string          `gorm:"size:8;not null"`
	Amount     decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Price      decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	// Settlement signature from the gateway; empty when execution failed
	// before anything was submitted on-chain.
	TxSignature string `gorm:"size:88;index"`
	Status      string `gorm:"size:12;default:'pending';index;not null"`
	Error       string `gorm:"type:text"`
}
