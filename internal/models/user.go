package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RoleApplicant  = "applicant"
	RoleFreelancer = "freelancer"
	RoleAdmin      = "admin"
)

const (
	UserStatusNew      = "New"
	UserStatusPending  = "Pending"
	UserStatusAccepted = "Accepted"
	UserStatusRejected = "Rejected"
)

const (
	TierBronze = "Bronze"
	TierSilver = "Silver"
	TierGold   = "Gold"
	TierElite  = "Elite"
)

// User is an applicant, freelancer or admin account. Freelancers carry the wallet.
type User struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	Username            string          `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password            string          `gorm:"size:255" json:"-"` // Hashed password, empty for LDAP users
	Email               string          `gorm:"size:255" json:"email"`
	Nickname            string          `gorm:"size:100" json:"nickname"`
	Role                string          `gorm:"size:20;default:applicant;index" json:"role"`
	Status              string          `gorm:"size:20;default:New;index" json:"status"`
	SkillDomain         string          `gorm:"size:20" json:"skill_domain"`
	Tier                string          `gorm:"size:20;default:Bronze" json:"tier"`
	WalletAvailable     decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"wallet_available"`
	WalletPendingReview decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"wallet_pending_review"`
	PaymentMethod       string          `gorm:"size:50" json:"payment_method"` // paypal, bank_transfer, wise, ...
	PaymentIdentifier   string          `gorm:"size:255" json:"payment_identifier"`
	AuthType            string          `gorm:"size:20;default:local" json:"auth_type"` // local, ldap
	IsActive            bool            `gorm:"default:true" json:"is_active"`
	LastLogin           *time.Time      `json:"last_login"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	DeletedAt           gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// CanSubmit reports whether the account may submit project work.
func (u *User) CanSubmit() bool {
	return u.IsActive && u.Role == RoleFreelancer && u.Status == UserStatusAccepted
}
