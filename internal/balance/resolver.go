// Package balance derives the capital position between a correspondent and a
// third party and layers accumulated commission debt on top of it.
package balance

import "github.com/maobits/coban365-sub000/internal/domain"

// Resolve computes the net capital balance for a pair from its prior
// movement sums. Sign convention: positive means the third party owes the
// correspondent. Loan-outs and correspondent payments push the pair toward
// Collects; third-party payments and loan-ins push it toward Pays.
func Resolve(agg domain.MovementAggregates, creditLimit, availableCredit int64) domain.BalanceSnapshot {
	net := (agg.DebtToThirdParty + agg.LoanToThirdParty) -
		(agg.ChargeToThirdParty + agg.LoanFromThirdParty)

	action := domain.ActionNone
	switch {
	case net > 0:
		action = domain.ActionCollects
	case net < 0:
		action = domain.ActionPays
	}

	return domain.BalanceSnapshot{
		NetBalance:      net,
		Action:          action,
		AvailableCredit: availableCredit,
		CreditLimit:     creditLimit,
	}
}

// Position is the commission-aware view of a pair: what each side
// effectively owes once unpaid commission is layered on the capital balance.
// Unpaid commission always increases what the third party owes and always
// reduces what the correspondent owes, regardless of capital direction.
type Position struct {
	Snapshot        domain.BalanceSnapshot `json:"snapshot"`
	TotalCommission int64                  `json:"total_commission"`

	BaseDebtToCorrespondent    int64 `json:"base_debt_to_correspondent"`
	BasePayableByCorrespondent int64 `json:"base_payable_by_correspondent"`

	EffectiveDebtToCorrespondent    int64 `json:"effective_debt_to_correspondent"`
	EffectivePayableByCorrespondent int64 `json:"effective_payable_by_correspondent"`

	// PendingForPanel is the single number the form shows for the pair.
	PendingForPanel int64 `json:"pending_for_panel"`

	// AvailableCreditAdjusted is the third party's headroom once commission
	// debt is counted against it, clamped at zero.
	AvailableCreditAdjusted int64 `json:"available_credit_adjusted"`
}

// Combine folds accumulated commission debt into a capital snapshot.
func Combine(snap domain.BalanceSnapshot, totalCommission int64) Position {
	p := Position{
		Snapshot:        snap,
		TotalCommission: totalCommission,
	}

	switch snap.Action {
	case domain.ActionCollects:
		p.BaseDebtToCorrespondent = abs(snap.NetBalance)
	case domain.ActionPays:
		p.BasePayableByCorrespondent = abs(snap.NetBalance)
	}

	p.EffectiveDebtToCorrespondent = p.BaseDebtToCorrespondent + totalCommission
	p.EffectivePayableByCorrespondent = max64(0, p.BasePayableByCorrespondent-totalCommission)

	switch snap.Action {
	case domain.ActionCollects:
		p.PendingForPanel = p.EffectiveDebtToCorrespondent
	case domain.ActionPays:
		p.PendingForPanel = p.EffectivePayableByCorrespondent
	default:
		p.PendingForPanel = totalCommission
	}

	p.AvailableCreditAdjusted = max64(0, snap.AvailableCredit-totalCommission)

	return p
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
