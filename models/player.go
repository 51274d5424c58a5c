package models

import (
	"time"
)

// BankID is the sentinel counterparty with unlimited funds. It never has a
// Player record of its own.
const BankID = "bank"

// Player represents one participant's money state within a game session.
type Player struct {
	ID        string    `db:"id" json:"id"`
	GameID    string    `db:"game_id" json:"gameId"`
	Name      string    `db:"name" json:"name"`
	Balance   int64     `db:"balance" json:"balance"`
	Loan      int64     `db:"loan" json:"loan"`
	Round     int       `db:"round" json:"round"`
	AvatarURL string    `db:"avatar_url" json:"avatarUrl"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Clone returns a copy the caller may mutate freely.
func (p *Player) Clone() *Player {
	c := *p
	return &c
}
