// Package cash tracks a till's position and projects it past a movement.
package cash

import "github.com/maobits/coban365-sub000/internal/domain"

// CurrentBalance returns the till's live balance from its summary fields.
func CurrentBalance(till *domain.Till) int64 {
	return till.CurrentBalance()
}

// ProjectedBalance returns the till balance immediately after a movement of
// the given kind commits (the record's cash_tag). Inflow kinds add to the
// till, outflow kinds drain it. Unknown leaves the balance untouched; the
// validator keeps it from ever reaching commit.
func ProjectedBalance(till *domain.Till, kind domain.SettlementKind, amount int64) int64 {
	balance := till.CurrentBalance()
	switch {
	case kind.CashInflow():
		return balance + amount
	case kind.CashOutflow():
		return balance - amount
	}
	return balance
}
