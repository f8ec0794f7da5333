package domain

import (
	"time"
)

type Account struct {
	ID           string    `json:"id" db:"id"`
	BalanceCents int64     `json:"balance_cents" db:"balance_cents"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
