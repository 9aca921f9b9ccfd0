package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Consumer wants to buy EnergyNeed kWh without spending more than Budget.
type Consumer struct {
	ID         string          `db:"id" json:"id"`
	Name       string          `db:"name" json:"name"`
	EnergyNeed decimal.Decimal `db:"energy_need" json:"energy_need"`
	Budget     decimal.Decimal `db:"budget" json:"budget"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}
