package service

import (
	"math"
	"strings"
	"time"

	"github.com/boddenberg/banca-bfa-go/internal/domain"
)

// MinOdds is the lowest accepted decimal odd for a sport entry.
const MinOdds = 1.01

func invalid(field, msg string) error {
	return &domain.ErrValidation{Field: field, Message: msg}
}

// ValidateSport canonicalizes a sport form. The first failing field is
// reported, checked in the order description, market, odds, stake.
func ValidateSport(in domain.SportInput, cal domain.Calendar) (domain.SportFields, error) {
	var f domain.SportFields

	f.Description = strings.TrimSpace(in.Description)
	if f.Description == "" {
		return f, invalid("description", "Informe a descrição.")
	}
	f.Market = strings.ToUpper(strings.TrimSpace(in.Market))
	if f.Market == "" {
		return f, invalid("market", "Informe o mercado.")
	}

	odds, ok := domain.ParseDecimal(in.Odds)
	if !ok || math.IsNaN(odds) || odds < MinOdds-1e-9 {
		return f, invalid("odds", "Odd mínima 1,01.")
	}
	f.Odds = odds

	f.Stake = domain.ParseAmount(in.Stake)
	if f.Stake <= 0 {
		return f, invalid("stake", "Valor inválido. Use um número maior que zero.")
	}

	ts, err := parseOptionalDate(in.Date, cal)
	if err != nil {
		return f, err
	}
	f.Timestamp = ts
	return f, nil
}

// ValidateMethod canonicalizes a method form (without its outcome).
func ValidateMethod(in domain.MethodInput, cal domain.Calendar) (domain.MethodFields, error) {
	var f domain.MethodFields

	f.MethodName = strings.ToUpper(strings.TrimSpace(in.MethodName))
	if f.MethodName == "" {
		return f, invalid("method_name", "Informe o método.")
	}
	f.Platform = strings.ToUpper(strings.TrimSpace(in.Platform))
	if f.Platform == "" {
		return f, invalid("platform", "Informe a plataforma.")
	}
	f.Stake = domain.ParseAmount(in.Stake)
	if f.Stake <= 0 {
		return f, invalid("stake", "Valor inválido.")
	}

	ts, err := parseOptionalDate(in.Date, cal)
	if err != nil {
		return f, err
	}
	f.Timestamp = ts
	return f, nil
}

// ValidateOutcome accepts only resolved outcomes.
func ValidateOutcome(o domain.Outcome) error {
	if !o.Resolved() {
		return invalid("outcome", "Resultado inválido.")
	}
	return nil
}

// ValidateSettlement checks an outcome together with its signed amount.
// Profits are never negative and losses never positive.
func ValidateSettlement(o domain.Outcome, amount int64) (domain.Settlement, error) {
	if err := ValidateOutcome(o); err != nil {
		return domain.Settlement{}, err
	}
	if (o == domain.OutcomeProfit && amount < 0) || (o == domain.OutcomeLoss && amount > 0) {
		return domain.Settlement{}, invalid("settled_amount", "Valor não condiz com o resultado.")
	}
	return domain.Settlement{Outcome: o, Amount: amount}, nil
}

// DeriveSettledAmount computes the amount of a settlement with no explicit
// value. A sport profit pays stake × (odds − 1); a method profit pays the
// stake. Losses cost the stake.
func DeriveSettledAmount(o domain.Outcome, stake int64, odds *float64) int64 {
	if o == domain.OutcomeLoss {
		return -stake
	}
	if odds == nil {
		return stake
	}
	return int64(math.Round(float64(stake) * (*odds - 1)))
}

// ParseOptionalAmount returns nil for blank text, otherwise the parsed cents.
func ParseOptionalAmount(text string) *int64 {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	v := domain.ParseAmount(text)
	return &v
}

func parseOptionalDate(s string, cal domain.Calendar) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := cal.ParseTimestamp(s)
	if err != nil {
		return nil, invalid("date", "Data inválida.")
	}
	return &t, nil
}
