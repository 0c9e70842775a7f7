package domain

import "time"

// ============================================================
// Entries (entradas)
// ============================================================

// Category tags an entry as a sport bet or a method transaction.
type Category string

const (
	CategorySport  Category = "esporte"
	CategoryMethod Category = "metodo"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategorySport || c == CategoryMethod
}

// ParseCategory accepts the wire names and their plural route aliases.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case "esporte", "esportes":
		return CategorySport, true
	case "metodo", "metodos":
		return CategoryMethod, true
	}
	return "", false
}

// Outcome is the resolution state of an entry.
type Outcome string

const (
	OutcomePending Outcome = "pendente"
	OutcomeProfit  Outcome = "lucro"
	OutcomeLoss    Outcome = "perda"
)

// Resolved reports whether o is lucro or perda.
func (o Outcome) Resolved() bool {
	return o == OutcomeProfit || o == OutcomeLoss
}

// Entry is one ledger line.
// SettledAmount is nil exactly when Outcome is pendente.
type Entry struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"account_id"`
	Category      Category  `json:"category"`
	Timestamp     time.Time `json:"timestamp"`
	Stake         int64     `json:"stake"` // cents
	SettledAmount *int64    `json:"settled_amount,omitempty"`
	Outcome       Outcome   `json:"outcome"`

	// Sport only
	Description string   `json:"description,omitempty"`
	Market      string   `json:"market,omitempty"`
	Odds        *float64 `json:"odds,omitempty"`

	// Method only
	MethodName string `json:"method_name,omitempty"`
	Platform   string `json:"platform,omitempty"`
}

// IsPending reports whether the entry still awaits settlement.
func (e *Entry) IsPending() bool {
	return e.Outcome == OutcomePending
}

// Settled returns the settled amount, or zero while pending.
func (e *Entry) Settled() int64 {
	if e.SettledAmount == nil {
		return 0
	}
	return *e.SettledAmount
}

// ============================================================
// Mutation inputs
// ============================================================

// SportInput is the raw form input for creating or editing a sport entry.
type SportInput struct {
	Description string `json:"description"`
	Market      string `json:"market"`
	Odds        string `json:"odds"`
	Stake       string `json:"stake"`
	Date        string `json:"date,omitempty"` // optional, RFC3339 or YYYY-MM-DD
}

// MethodInput is the raw form input for creating or editing a method entry.
// Outcome is required on create and ignored on edit.
type MethodInput struct {
	MethodName    string  `json:"method_name"`
	Platform      string  `json:"platform"`
	Stake         string  `json:"stake"`
	Outcome       Outcome `json:"outcome,omitempty"`
	SettledAmount string  `json:"settled_amount,omitempty"`
	Date          string  `json:"date,omitempty"`
}

// SportFields is the canonical, validated form of a SportInput.
type SportFields struct {
	Description string
	Market      string
	Odds        float64
	Stake       int64
	Timestamp   *time.Time
}

// MethodFields is the canonical, validated form of a MethodInput.
type MethodFields struct {
	MethodName string
	Platform   string
	Stake      int64
	Timestamp  *time.Time
}

// EntryPatch carries the mutable, non-settlement columns of an entry.
// Nil fields are left untouched. It never carries outcome or amount.
type EntryPatch struct {
	Description *string
	Market      *string
	Odds        *float64
	MethodName  *string
	Platform    *string
	Stake       *int64
	Timestamp   *time.Time
}

// Settlement couples an outcome with its signed amount.
type Settlement struct {
	Outcome Outcome
	Amount  int64
}

// ============================================================
// Queries
// ============================================================

// StatusFilter restricts a listing by resolution state.
type StatusFilter string

const (
	StatusAny     StatusFilter = ""
	StatusPending StatusFilter = "pending"
	StatusSettled StatusFilter = "settled"
)

// EntryFilter selects entries of one account.
// From and To are inclusive bounds on Timestamp.
type EntryFilter struct {
	AccountID  string
	Category   Category // empty = all
	Status     StatusFilter
	From       *time.Time
	To         *time.Time
	Descending bool
	Limit      int
}
