package sqlstore

import (
	"time"

	"github.com/boddenberg/banca-bfa-go/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Banca mirrors the banca table.
type Banca struct {
	ID           string    `gorm:"primaryKey"`
	SaldoInicial int64     `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"not null;index"`
}

func (Banca) TableName() string { return "banca" }

func (banca *Banca) BeforeCreate(tx *gorm.DB) error {
	if banca.ID == "" {
		banca.ID = uuid.NewString()
	}
	return nil
}

func (banca Banca) toDomain() *domain.Account {
	return &domain.Account{
		ID:             banca.ID,
		OpeningBalance: banca.SaldoInicial,
		CreatedAt:      banca.CreatedAt,
	}
}

// Entrada mirrors the entradas table. Money columns hold cents.
type Entrada struct {
	ID             string    `gorm:"primaryKey"`
	BancaID        string    `gorm:"not null;index:idx_entradas_banca_data,priority:1"`
	Tipo           string    `gorm:"not null"`
	Data           time.Time `gorm:"not null;index:idx_entradas_banca_data,priority:2"`
	Descricao      *string
	Mercado        *string
	Odd            *float64
	Stake          int64  `gorm:"not null"`
	Resultado      string `gorm:"not null;default:pendente"`
	ValorLiquidado *int64
	Metodo         *string
	Plataforma     *string
}

func (Entrada) TableName() string { return "entradas" }

func (entrada *Entrada) BeforeCreate(tx *gorm.DB) error {
	if entrada.ID == "" {
		entrada.ID = uuid.NewString()
	}
	return nil
}

func newEntrada(e *domain.Entry) Entrada {
	model := Entrada{
		ID:             e.ID,
		BancaID:        e.AccountID,
		Tipo:           string(e.Category),
		Data:           e.Timestamp.UTC(),
		Stake:          e.Stake,
		Resultado:      string(e.Outcome),
		ValorLiquidado: e.SettledAmount,
		Odd:            e.Odds,
	}
	switch e.Category {
	case domain.CategorySport:
		model.Descricao = stringPtr(e.Description)
		model.Mercado = stringPtr(e.Market)
	case domain.CategoryMethod:
		model.Metodo = stringPtr(e.MethodName)
		model.Plataforma = stringPtr(e.Platform)
	}
	return model
}

func (entrada Entrada) toDomain() domain.Entry {
	return domain.Entry{
		ID:            entrada.ID,
		AccountID:     entrada.BancaID,
		Category:      domain.Category(entrada.Tipo),
		Timestamp:     entrada.Data,
		Stake:         entrada.Stake,
		SettledAmount: entrada.ValorLiquidado,
		Outcome:       domain.Outcome(entrada.Resultado),
		Description:   deref(entrada.Descricao),
		Market:        deref(entrada.Mercado),
		Odds:          entrada.Odd,
		MethodName:    deref(entrada.Metodo),
		Platform:      deref(entrada.Plataforma),
	}
}

func patchColumns(p domain.EntryPatch) map[string]any {
	cols := map[string]any{}
	if p.Description != nil {
		cols["descricao"] = *p.Description
	}
	if p.Market != nil {
		cols["mercado"] = *p.Market
	}
	if p.Odds != nil {
		cols["odd"] = *p.Odds
	}
	if p.MethodName != nil {
		cols["metodo"] = *p.MethodName
	}
	if p.Platform != nil {
		cols["plataforma"] = *p.Platform
	}
	if p.Stake != nil {
		cols["stake"] = *p.Stake
	}
	if p.Timestamp != nil {
		cols["data"] = p.Timestamp.UTC()
	}
	return cols
}

func stringPtr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
