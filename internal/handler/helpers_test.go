package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/boddenberg/banca-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{&domain.ErrValidation{Field: "stake", Message: "Valor inválido."}, http.StatusBadRequest},
		{&domain.ErrNotFound{Resource: "entry", ID: "x"}, http.StatusNotFound},
		{&domain.ErrConflict{Message: "entrada já liquidada"}, http.StatusConflict},
		{&domain.ErrUnauthorized{Message: "Token inválido"}, http.StatusUnauthorized},
		{&domain.ErrCircuitOpen{Service: "supabase"}, http.StatusServiceUnavailable},
		{&domain.ErrTimeout{Operation: "supabase/entradas"}, http.StatusGatewayTimeout},
		{&domain.ErrExternalService{Service: "sql/entradas", Err: errors.New("disk full")}, http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", &domain.ErrNotFound{Resource: "account", ID: "y"}), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handleServiceError(rec, tt.err, zap.NewNop())
		assert.Equal(t, tt.code, rec.Code, tt.err.Error())
	}

	rec := httptest.NewRecorder()
	handleServiceError(rec, &domain.ErrValidation{Field: "odds", Message: "Odd mínima 1,01."}, zap.NewNop())
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errorResponse{Error: "Odd mínima 1,01.", Field: "odds"}, body)
}

func TestFlexText(t *testing.T) {
	var v struct {
		A flexText `json:"a"`
		B flexText `json:"b"`
		C flexText `json:"c"`
		D flexText `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"1.250,50","b":25.5,"c":10,"d":null}`), &v))
	assert.Equal(t, flexText("1.250,50"), v.A)
	assert.Equal(t, flexText("25,5"), v.B)
	assert.Equal(t, flexText("10"), v.C)
	assert.Equal(t, flexText(""), v.D)
	assert.Equal(t, int64(2550), domain.ParseAmount(string(v.B)))

	require.NoError(t, json.Unmarshal([]byte(`{"a":1e3,"b":2.55E1,"c":1.5e-1}`), &v))
	assert.Equal(t, flexText("1000"), v.A)
	assert.Equal(t, flexText("25,5"), v.B)
	assert.Equal(t, flexText("0,15"), v.C)
	assert.Equal(t, int64(100000), domain.ParseAmount(string(v.A)))
	assert.Equal(t, int64(15), domain.ParseAmount(string(v.C)))

	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}

func TestDecodeBody(t *testing.T) {
	type req struct {
		Outcome string   `json:"outcome" validate:"required,oneof=lucro perda"`
		Note    flexText `json:"note" validate:"max=3"`
	}
	tests := []struct {
		body, field string
	}{
		{`{"outcome":"lucro"}`, ""},
		{`{}`, "outcome"},
		{`{"outcome":"empate"}`, "outcome"},
		{`{"outcome":"lucro","note":"abcd"}`, "note"},
		{`{"outcome":"lucro","x":1}`, "body"},
		{`not json`, "body"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
		var dst req
		err := decodeBody(r, &dst)
		if tt.field == "" {
			assert.NoError(t, err, tt.body)
			continue
		}
		var verr *domain.ErrValidation
		require.ErrorAs(t, err, &verr, tt.body)
		assert.Equal(t, tt.field, verr.Field, tt.body)
	}
}

func TestQueryTime(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	cal := domain.NewCalendar(loc)

	r := httptest.NewRequest(http.MethodGet, "/?from=2024-03-10&to=2024-03-10&at=2024-03-10T12:00:00Z&bad=10/03", nil)

	from, err := queryTime(r, cal, "from", false)
	require.NoError(t, err)
	assert.True(t, from.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, loc)))

	to, err := queryTime(r, cal, "to", true)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", cal.DayKey(*to))
	assert.True(t, to.After(*from))

	at, err := queryTime(r, cal, "at", false)
	require.NoError(t, err)
	assert.True(t, at.Equal(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)))

	missing, err := queryTime(r, cal, "missing", false)
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = queryTime(r, cal, "bad", false)
	assert.Error(t, err)
}
