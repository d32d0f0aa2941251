// Package validator decides whether a proposed settlement movement is
// admissible against live balances, live cash and the third party's credit
// line. One validation pass per submission attempt, always over freshly
// re-pulled snapshots, never the ones used to render the form.
package validator

import (
	"github.com/maobits/coban365-sub000/internal/balance"
	"github.com/maobits/coban365-sub000/internal/domain"
)

// Input carries everything one validation pass looks at.
type Input struct {
	Kind          domain.SettlementKind
	Amount        int64
	Correspondent *domain.Correspondent
	ThirdParty    *domain.ThirdParty
	Till          *domain.Till
	Position      balance.Position
}

// Validate accepts or rejects a proposed movement. It returns nil on accept
// and a *domain.RejectionError naming the violated rule, with its numeric
// limit when one exists, on reject.
func Validate(in Input) error {
	// Amount gate runs before any kind-specific rule.
	if in.Amount <= 0 {
		return domain.NewRejection(domain.RejectInvalidAmount,
			"amount must be a positive whole currency value")
	}

	if !in.Kind.IsValid() {
		return domain.NewRejection(domain.RejectUnknownKind,
			"cannot determine settlement kind for this transaction type")
	}

	switch in.Kind {
	case domain.KindDebtToThirdParty:
		if err := validateDebt(in); err != nil {
			return err
		}
	case domain.KindChargeToThirdParty:
		if err := validateCharge(in); err != nil {
			return err
		}
	case domain.KindLoanToThirdParty:
		if err := validateLoanOut(in); err != nil {
			return err
		}
	case domain.KindLoanFromThirdParty:
		// Cash inflow: no credit check, only the capacity rule below.
	}

	// Premium correspondents cap what a till may hold, so cash inflows are
	// checked against the till capacity.
	if in.Correspondent != nil && in.Correspondent.Premium && in.Till.Capacity > 0 && in.Kind.CashInflow() {
		current := in.Till.CurrentBalance()
		if current+in.Amount > in.Till.Capacity {
			return domain.NewRejectionWithLimit(domain.RejectExceedsTillCapacity,
				"movement would exceed the till capacity", in.Till.Capacity-current)
		}
	}

	return nil
}

func validateDebt(in Input) error {
	payable := in.Position.EffectivePayableByCorrespondent
	if payable <= 0 {
		return domain.NewRejection(domain.RejectNothingPayable,
			"the correspondent owes nothing to this third party")
	}
	if in.Amount > payable {
		return domain.NewRejectionWithLimit(domain.RejectExceedsPayable,
			"amount exceeds what the correspondent owes", payable)
	}
	if cashLimit := in.Till.CurrentBalance(); in.Amount > cashLimit {
		return domain.NewRejectionWithLimit(domain.RejectInsufficientCash,
			"amount exceeds the till's cash balance", cashLimit)
	}
	return nil
}

func validateCharge(in Input) error {
	p := in.Position
	collecting := p.Snapshot.Action == domain.ActionCollects &&
		p.Snapshot.NetBalance > 0 &&
		p.EffectiveDebtToCorrespondent > 0

	if !collecting && p.TotalCommission <= 0 {
		return domain.NewRejection(domain.RejectNothingCollectible,
			"the third party owes nothing to this correspondent")
	}
	if p.EffectiveDebtToCorrespondent <= 0 {
		return domain.NewRejection(domain.RejectNothingCollectible,
			"the third party owes nothing to this correspondent")
	}
	if in.Amount > p.EffectiveDebtToCorrespondent {
		return domain.NewRejectionWithLimit(domain.RejectExceedsCollectible,
			"amount exceeds what the third party owes", p.EffectiveDebtToCorrespondent)
	}
	return nil
}

func validateLoanOut(in Input) error {
	if in.ThirdParty == nil || !in.ThirdParty.Enabled() {
		return domain.NewRejection(domain.RejectThirdPartyDisabled,
			"third party not enabled for loans")
	}

	credit := in.Position.AvailableCreditAdjusted
	if credit <= 0 {
		return domain.NewRejection(domain.RejectNoAvailableCredit,
			"the third party has no available credit")
	}
	if in.Amount > credit {
		return domain.NewRejectionWithLimit(domain.RejectExceedsCredit,
			"amount exceeds the third party's available credit", credit)
	}
	if cashLimit := in.Till.CurrentBalance(); in.Amount > cashLimit {
		return domain.NewRejectionWithLimit(domain.RejectInsufficientCash,
			"amount exceeds the till's cash balance", cashLimit)
	}
	return nil
}
