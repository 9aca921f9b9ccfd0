package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Producer lists energy capacity for sale at a per-kWh price.
type Producer struct {
	ID              string          `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	EnergyCapacity  decimal.Decimal `db:"energy_capacity" json:"energy_capacity"`
	PricePerKWh     decimal.Decimal `db:"price_per_kwh" json:"price_per_kwh"`
	AvailableEnergy decimal.Decimal `db:"available_energy" json:"available_energy"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// SoldEnergy returns how much of the capacity has already been settled.
func (p Producer) SoldEnergy() decimal.Decimal {
	return p.EnergyCapacity.Sub(p.AvailableEnergy)
}
