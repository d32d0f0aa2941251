package domain

// Third-party state values as stored.
const (
	ThirdPartyDisabled = 0
	ThirdPartyEnabled  = 1
)

// ThirdParty is an external counterparty with its own credit line against a
// correspondent.
type ThirdParty struct {
	ID              int64  `json:"id" db:"id"`
	CorrespondentID int64  `json:"correspondent_id" db:"correspondent_id"`
	Name            string `json:"name" db:"name"`
	CreditLimit     int64  `json:"credit_limit" db:"credit_limit"`
	AvailableCredit int64  `json:"available_credit" db:"available_credit"`
	State           int    `json:"state" db:"state"`
}

// Enabled reports whether the third party may be the target of new loan-outs.
func (tp *ThirdParty) Enabled() bool {
	return tp.State == ThirdPartyEnabled
}

// BalanceAction says who moves money next for a correspondent/third-party pair.
type BalanceAction string

const (
	// ActionCollects: the third party owes the correspondent.
	ActionCollects BalanceAction = "collects"
	// ActionPays: the correspondent owes the third party.
	ActionPays BalanceAction = "pays"
	// ActionNone: the pair is settled.
	ActionNone BalanceAction = "none"
)

// BalanceSnapshot is the computed capital position of a correspondent and a
// third party. It is derived from prior movements, never stored, and is
// re-pulled fresh both when a form is rendered and immediately before commit.
type BalanceSnapshot struct {
	// NetBalance is signed: positive means the third party owes the
	// correspondent.
	NetBalance      int64         `json:"net_balance"`
	Action          BalanceAction `json:"action"`
	AvailableCredit int64         `json:"available_credit"`
	CreditLimit     int64         `json:"credit_limit"`
}

// MovementAggregates are the sums of prior settlement movements for a pair,
// as read from the ledger.
type MovementAggregates struct {
	DebtToThirdParty   int64 `json:"debt_to_third_party"`
	ChargeToThirdParty int64 `json:"charge_to_third_party"`
	LoanToThirdParty   int64 `json:"loan_to_third_party"`
	LoanFromThirdParty int64 `json:"loan_from_third_party"`
}

// CommissionLedgerEntry is the accumulated fee debt a third party owes a
// correspondent, separate from capital debt. It only moves down through
// subtract operations and is clamped at zero.
type CommissionLedgerEntry struct {
	CorrespondentID int64 `json:"correspondent_id" db:"correspondent_id"`
	ThirdPartyID    int64 `json:"third_party_id" db:"third_party_id"`
	TotalCommission int64 `json:"total_commission" db:"total_commission"`
}
