// Package fees computes the bank commission and dispersion fee attached to a
// settlement movement.
package fees

import (
	"github.com/shopspring/decimal"

	"github.com/maobits/coban365-sub000/internal/classifier"
)

// PhysicalHandlingFee is the fixed bank commission for movements handled at
// a branch or teller, in whole currency units.
const PhysicalHandlingFee int64 = 17000

// commissionTable maps normalized delivery methods to their bank commission.
// Direct bank movements cost nothing; physical handling carries the fixed
// fee. This is a business constant, not derived from anything.
var commissionTable = map[string]int64{
	"transferencia":         0,
	"compensacion":          0,
	"deposito en sucursal":  PhysicalHandlingFee,
	"deposito por taquilla": PhysicalHandlingFee,
	"deposito cb":           PhysicalHandlingFee,
	"entrega en efectivo":   PhysicalHandlingFee,
}

var (
	dispersionRate = decimal.NewFromFloat(0.001)
	thousand       = decimal.NewFromInt(1000)
)

// BankCommission returns the bank commission for a delivery method. Methods
// outside the table cost nothing.
func BankCommission(method string) int64 {
	if fee, ok := commissionTable[classifier.Normalize(method)]; ok {
		return fee
	}
	return 0
}

// Dispersion is 0.1% of the amount rounded up to the next multiple of 1000.
// Computed with exact decimal arithmetic so amounts sitting exactly on a
// thousand boundary do not pick up a spurious extra step.
func Dispersion(amount int64) int64 {
	if amount <= 0 {
		return 0
	}

	raw := decimal.NewFromInt(amount).Mul(dispersionRate).Div(thousand)
	return raw.Ceil().Mul(thousand).IntPart()
}

// MovementTotal is the amount net of both fees, clamped at zero.
func MovementTotal(amount, bankCommission, dispersion int64) int64 {
	total := amount - bankCommission - dispersion
	if total < 0 {
		return 0
	}
	return total
}

// Quote bundles the fee breakdown for one movement.
type Quote struct {
	Amount         int64 `json:"amount"`
	BankCommission int64 `json:"bank_commission"`
	Dispersion     int64 `json:"dispersion"`
	MovementTotal  int64 `json:"movement_total"`
}

// QuoteFor computes the full fee breakdown for an amount and delivery method.
func QuoteFor(amount int64, method string) Quote {
	bank := BankCommission(method)
	disp := Dispersion(amount)
	return Quote{
		Amount:         amount,
		BankCommission: bank,
		Dispersion:     disp,
		MovementTotal:  MovementTotal(amount, bank, disp),
	}
}
