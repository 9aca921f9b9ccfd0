package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an immutable ledger entry for a settled trade.
type Transaction struct {
	ID           string          `db:"id" json:"id"`
	ProducerID   string          `db:"producer_id" json:"producer_id"`
	ConsumerID   string          `db:"consumer_id" json:"consumer_id"`
	EnergyAmount decimal.Decimal `db:"energy_amount" json:"energy_amount"`
	PricePerKWh  decimal.Decimal `db:"price_per_kwh" json:"price_per_kwh"`
	TotalPrice   decimal.Decimal `db:"total_price" json:"total_price"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
