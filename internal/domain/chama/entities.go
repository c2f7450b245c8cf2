package chama

import (
	"time"

	"github.com/shopspring/decimal"

	"chama-engine/internal/domain/loan"
)

type Role string

const (
	RoleChairperson Role = "chairperson"
	RoleTreasurer   Role = "treasurer"
	RoleSecretary   Role = "secretary"
	RoleMember      Role = "member"
)

// IsOfficial reports whether the role may approve or reject loans.
func (r Role) IsOfficial() bool {
	return r == RoleChairperson || r == RoleTreasurer || r == RoleSecretary
}

// LoanConfig is the per-chama lending policy. It is passed explicitly
// into every loan computation; nothing reads it from ambient state.
type LoanConfig struct {
	InterestType       loan.InterestType `gorm:"column:interest_type;type:enum('FLAT','REDUCING');not null" json:"interest_type"`
	InterestRate       decimal.Decimal   `gorm:"column:interest_rate;type:decimal(7,4);not null" json:"interest_rate"`
	Multiplier         decimal.Decimal   `gorm:"column:multiplier;type:decimal(6,2);not null" json:"multiplier"`
	MaxRepaymentMonths int               `gorm:"column:max_repayment_months;not null" json:"max_repayment_months"`
	MaxConcurrentLoans int               `gorm:"column:max_concurrent_loans;not null" json:"max_concurrent_loans"`
	PenaltyRate        decimal.Decimal   `gorm:"column:penalty_rate;type:decimal(7,4);not null" json:"penalty_rate"`
}

type Chama struct {
	ID       uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	ChamaID  string `gorm:"column:chama_id;type:char(32);not null;uniqueIndex:ux_chamas_chama_id" json:"chama_id"`
	Name     string `gorm:"column:name;size:120;not null" json:"name"`
	Currency string `gorm:"column:currency;type:char(3);not null" json:"currency"`

	LoanConfig LoanConfig `gorm:"embedded;embeddedPrefix:loan_" json:"loan_config"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Chama) TableName() string { return "chamas" }

// SavingsBalance is the member's verified savings in minor units; the
// loan multiplier check reads it.
type Member struct {
	ID       uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	ChamaID  string `gorm:"column:chama_id;type:char(32);not null;uniqueIndex:ux_members_chama_member,priority:1" json:"chama_id"`
	MemberID string `gorm:"column:member_id;type:char(32);not null;uniqueIndex:ux_members_chama_member,priority:2" json:"member_id"`
	Name     string `gorm:"column:name;size:120;not null" json:"name"`
	Role     Role   `gorm:"column:role;type:enum('chairperson','treasurer','secretary','member');not null;default:'member'" json:"role"`

	SavingsBalance int64 `gorm:"column:savings_balance;not null;default:0" json:"savings_balance"`
	IsActive       bool  `gorm:"column:is_active;not null;default:true" json:"is_active"`

	JoinedAt  time.Time `gorm:"column:joined_at;not null" json:"joined_at"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Member) TableName() string { return "chama_members" }
