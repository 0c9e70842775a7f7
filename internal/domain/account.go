package domain

import "time"

// ============================================================
// Banca (bankroll account)
// ============================================================

// Account is the bankroll whose balance entries affect.
type Account struct {
	ID             string    `json:"id"`
	OpeningBalance int64     `json:"opening_balance"` // cents
	CreatedAt      time.Time `json:"created_at"`
}

// Balance is the derived balance of an account.
// Current = Opening + Settled, where Settled sums every resolved entry.
type Balance struct {
	AccountID string `json:"account_id"`
	Opening   int64  `json:"opening"`
	Settled   int64  `json:"settled"`
	Current   int64  `json:"current"`
}

// NewBalance derives the current balance from the opening balance and the
// sum of settled amounts.
func NewBalance(acct *Account, settled int64) *Balance {
	return &Balance{
		AccountID: acct.ID,
		Opening:   acct.OpeningBalance,
		Settled:   settled,
		Current:   acct.OpeningBalance + settled,
	}
}
