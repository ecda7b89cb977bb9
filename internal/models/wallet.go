package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PayoutPending   = "Pending"
	PayoutCompleted = "Completed"
	PayoutRejected  = "Rejected"
)

// PayoutRequest withdraws the whole available balance of a freelancer.
type PayoutRequest struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Reference         string          `gorm:"uniqueIndex;size:32;not null" json:"reference"`
	UserID            uint            `gorm:"index;not null" json:"user_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status            string          `gorm:"size:20;default:Pending;index" json:"status"`
	PaymentMethod     string          `gorm:"size:50" json:"payment_method"`
	PaymentIdentifier string          `gorm:"size:255" json:"payment_identifier"`
	AdminNotes        *string         `gorm:"type:text" json:"admin_notes"`
	ProcessedBy       *uint           `json:"processed_by"`
	ProcessedAt       *time.Time      `json:"processed_at"`
	CreatedAt         time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (PayoutRequest) TableName() string { return "payout_requests" }

const (
	EntryEarning       = "EARNING"
	EntryPayoutHold    = "PAYOUT_HOLD"
	EntryPayoutRestore = "PAYOUT_RESTORE"
)

// WalletEntry is an append-only record of a change to walletAvailable.
type WalletEntry struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       uint            `gorm:"index;not null" json:"user_id"`
	Type         string          `gorm:"size:20;not null" json:"type"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"` // signed
	BalanceAfter decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"balance_after"`
	SubmissionID *uint           `gorm:"index" json:"submission_id,omitempty"`
	PayoutID     *uint           `gorm:"index" json:"payout_id,omitempty"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
}

func (WalletEntry) TableName() string { return "wallet_entries" }
