package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gridmarket/backend/services/market-service/internal/models"
)

// Identifier prefixes per record kind.
const (
	ProducerPrefix    = "prd"
	ConsumerPrefix    = "con"
	TransactionPrefix = "txn"
)

// IDFunc produces a fresh identifier for the given prefix.
type IDFunc func(prefix string) string

// Clock returns the current time.
type Clock func() time.Time

// NewID returns "<prefix>_<uuid>".
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// UTCNow is the default Clock.
func UTCNow() time.Time {
	return time.Now().UTC()
}

// ProducerLockKey and ConsumerLockKey name the per-record locks.
func ProducerLockKey(id string) string { return "producer:" + id }

// ConsumerLockKey names the lock guarding a consumer record.
func ConsumerLockKey(id string) string { return "consumer:" + id }

// ValidateName rejects empty or blank names and returns the trimmed value.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", InvalidField("name", "must not be empty")
	}
	return name, nil
}

// NonNegative rejects negative quantities.
func NonNegative(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return InvalidField(field, fmt.Sprintf("must not be negative, got %s", v.String()))
	}
	return nil
}

// Affordable reports whether price <= budget/need, evaluated as price*need <= budget
// so that no division (and no rounding) is involved. A zero need is always affordable.
func Affordable(pricePerKWh, need, budget decimal.Decimal) bool {
	return pricePerKWh.Mul(need).LessThanOrEqual(budget)
}

// CheckProducer verifies 0 <= available <= capacity and non-negative price.
func CheckProducer(p models.Producer) error {
	switch {
	case p.AvailableEnergy.IsNegative():
		return fmt.Errorf("%w: producer %s available energy %s is negative", ErrInvariantViolation, p.ID, p.AvailableEnergy)
	case p.SoldEnergy().IsNegative():
		return fmt.Errorf("%w: producer %s available energy %s exceeds capacity %s", ErrInvariantViolation, p.ID, p.AvailableEnergy, p.EnergyCapacity)
	case p.PricePerKWh.IsNegative():
		return fmt.Errorf("%w: producer %s price %s is negative", ErrInvariantViolation, p.ID, p.PricePerKWh)
	}
	return nil
}

// CheckConsumer verifies budget >= 0 and energyNeed >= 0.
func CheckConsumer(c models.Consumer) error {
	switch {
	case c.Budget.IsNegative():
		return fmt.Errorf("%w: consumer %s budget %s is negative", ErrInvariantViolation, c.ID, c.Budget)
	case c.EnergyNeed.IsNegative():
		return fmt.Errorf("%w: consumer %s energy need %s is negative", ErrInvariantViolation, c.ID, c.EnergyNeed)
	}
	return nil
}

// CheckTransaction verifies energyAmount > 0 and totalPrice == energyAmount * pricePerKWh.
func CheckTransaction(t models.Transaction) error {
	if !t.EnergyAmount.IsPositive() {
		return fmt.Errorf("%w: transaction %s energy amount %s is not positive", ErrInvariantViolation, t.ID, t.EnergyAmount)
	}
	if !t.TotalPrice.Equal(t.EnergyAmount.Mul(t.PricePerKWh)) {
		return fmt.Errorf("%w: transaction %s total %s != %s * %s", ErrInvariantViolation, t.ID, t.TotalPrice, t.EnergyAmount, t.PricePerKWh)
	}
	return nil
}
