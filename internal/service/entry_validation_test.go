package service

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/boddenberg/banca-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var utcCal = domain.NewCalendar(time.UTC)

func validationField(t *testing.T, err error) string {
	t.Helper()
	var ve *domain.ErrValidation
	require.True(t, errors.As(err, &ve), "expected validation error, got %v", err)
	return ve.Field
}

func TestValidateSport_Canonicalizes(t *testing.T) {
	f, err := ValidateSport(domain.SportInput{
		Description: "  Flamengo x Vasco ",
		Market:      " over 2.5 ",
		Odds:        "1,85",
		Stake:       "R$ 50,00",
	}, utcCal)
	require.NoError(t, err)
	assert.Equal(t, "Flamengo x Vasco", f.Description)
	assert.Equal(t, "OVER 2.5", f.Market)
	assert.InDelta(t, 1.85, f.Odds, 1e-9)
	assert.Equal(t, int64(5000), f.Stake)
	assert.Nil(t, f.Timestamp)
}

func TestValidateSport_OddsMinimum(t *testing.T) {
	in := domain.SportInput{Description: "jogo", Market: "1x2", Stake: "10"}

	in.Odds = "1,00"
	_, err := ValidateSport(in, utcCal)
	assert.Equal(t, "odds", validationField(t, err))

	in.Odds = "1,01"
	_, err = ValidateSport(in, utcCal)
	assert.NoError(t, err)

	in.Odds = "1.01"
	_, err = ValidateSport(in, utcCal)
	assert.NoError(t, err)

	in.Odds = "abc"
	_, err = ValidateSport(in, utcCal)
	assert.Equal(t, "odds", validationField(t, err))
}

func TestValidateSport_FieldPriority(t *testing.T) {
	cases := []struct {
		name  string
		in    domain.SportInput
		field string
	}{
		{"all empty", domain.SportInput{}, "description"},
		{"blank description", domain.SportInput{Description: "  ", Market: "x", Odds: "2", Stake: "1"}, "description"},
		{"market before odds", domain.SportInput{Description: "d", Odds: "0"}, "market"},
		{"odds before stake", domain.SportInput{Description: "d", Market: "m", Odds: "0,5"}, "odds"},
		{"stake", domain.SportInput{Description: "d", Market: "m", Odds: "2", Stake: "0,00"}, "stake"},
		{"negative stake", domain.SportInput{Description: "d", Market: "m", Odds: "2", Stake: "-5"}, "stake"},
		{"bad date", domain.SportInput{Description: "d", Market: "m", Odds: "2", Stake: "5", Date: "ontem"}, "date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateSport(tc.in, utcCal)
			assert.Equal(t, tc.field, validationField(t, err))
		})
	}
}

func TestValidateSport_Date(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	cal := domain.NewCalendar(sp)

	f, err := ValidateSport(domain.SportInput{Description: "d", Market: "m", Odds: "2", Stake: "5", Date: "2025-08-10"}, cal)
	require.NoError(t, err)
	require.NotNil(t, f.Timestamp)
	assert.Equal(t, "2025-08-10", cal.DayKey(*f.Timestamp))
}

func TestValidateMethod(t *testing.T) {
	f, err := ValidateMethod(domain.MethodInput{MethodName: " surebet ", Platform: "bet365", Stake: "100,00"}, utcCal)
	require.NoError(t, err)
	assert.Equal(t, "SUREBET", f.MethodName)
	assert.Equal(t, "BET365", f.Platform)
	assert.Equal(t, int64(10000), f.Stake)

	_, err = ValidateMethod(domain.MethodInput{Platform: "x", Stake: "1"}, utcCal)
	assert.Equal(t, "method_name", validationField(t, err))

	_, err = ValidateMethod(domain.MethodInput{MethodName: "x", Stake: "1"}, utcCal)
	assert.Equal(t, "platform", validationField(t, err))

	_, err = ValidateMethod(domain.MethodInput{MethodName: "x", Platform: "y", Stake: "abc"}, utcCal)
	assert.Equal(t, "stake", validationField(t, err))
}

func TestValidateSettlement(t *testing.T) {
	s, err := ValidateSettlement(domain.OutcomeProfit, 2500)
	require.NoError(t, err)
	assert.Equal(t, domain.Settlement{Outcome: domain.OutcomeProfit, Amount: 2500}, s)

	_, err = ValidateSettlement(domain.OutcomeLoss, 0)
	assert.NoError(t, err)

	_, err = ValidateSettlement(domain.OutcomeProfit, -1)
	assert.Equal(t, "settled_amount", validationField(t, err))

	_, err = ValidateSettlement(domain.OutcomeLoss, 1)
	assert.Equal(t, "settled_amount", validationField(t, err))

	_, err = ValidateSettlement(domain.OutcomePending, 0)
	assert.Equal(t, "outcome", validationField(t, err))

	_, err = ValidateSettlement("empate", 0)
	assert.Equal(t, "outcome", validationField(t, err))
}

func TestDeriveSettledAmount(t *testing.T) {
	odds := 1.85
	assert.Equal(t, int64(4250), DeriveSettledAmount(domain.OutcomeProfit, 5000, &odds))
	assert.Equal(t, int64(-5000), DeriveSettledAmount(domain.OutcomeLoss, 5000, &odds))
	assert.Equal(t, int64(5000), DeriveSettledAmount(domain.OutcomeProfit, 5000, nil))

	third := 1.333
	assert.Equal(t, int64(1), DeriveSettledAmount(domain.OutcomeProfit, 3, &third))
}

func TestParseOptionalAmount(t *testing.T) {
	assert.Nil(t, ParseOptionalAmount("  "))
	v := ParseOptionalAmount("12,50")
	require.NotNil(t, v)
	assert.Equal(t, int64(1250), *v)
}
