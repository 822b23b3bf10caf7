package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a tracked user account in the domain layer.
// StellarAddress is the account's identity on the ledger network, used by the
// valuation source to resolve live holdings.
type Account struct {
	ID             uuid.UUID
	Name           string
	StellarAddress string
	CreatedAt      time.Time
}
