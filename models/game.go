package models

import (
	"time"
)

// Role represents the caller's privilege level within a game session.
type Role string

const (
	RoleBanker Role = "banker"
	RoleViewer Role = "viewer"
)

// Game holds the per-session configuration. StartBonusAmount and
// LoanInterestRate are mutable by the banker mid-game and are read at the
// moment pass-start is invoked, never cached.
type Game struct {
	ID               string    `db:"id" json:"id"`
	InitialCapital   int64     `db:"initial_capital" json:"initialCapital"`
	StartBonusAmount int64     `db:"start_bonus_amount" json:"startBonusAmount"`
	LoanInterestRate float64   `db:"loan_interest_rate" json:"loanInterestRate"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
}
