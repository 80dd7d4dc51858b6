package models

import (
	"gorm.io/gorm"
)

// Event types
const (
	EventCreated       = "created"
	EventConfigChanged = "config_changed"
	EventRebalanced    = "rebalanced"
	EventError         = "error"
	EventExecution     = "execution"
)

// Event severities
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// PoolEvent is the append-only observability log for a pool. Written by the
// worker (rebalanced, error) and by admin actions (created, config_changed).
type PoolEvent struct {
	gorm.Model
	PoolID      uint   `gorm:"index;not null"`
	EventType   string `gorm:"size:20;index;not null"`
	Description string `gorm:"type:text"`
	Severity    string `gorm:"size:12;default:'info';index;not null"`
}
