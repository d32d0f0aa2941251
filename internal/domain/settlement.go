package domain

import "time"

// SettlementKind is the canonical category of a third-party movement.
// It is produced once by the classifier; everything downstream switches
// over the kind instead of re-parsing the transaction type name.
type SettlementKind string

const (
	// KindUnknown means the transaction type name did not match the
	// settlement vocabulary. It always blocks the transaction.
	KindUnknown SettlementKind = "unknown"

	// KindDebtToThirdParty: the correspondent owes / is paying the third party.
	KindDebtToThirdParty SettlementKind = "debt_to_third_party"

	// KindChargeToThirdParty: the third party owes / is paying the correspondent.
	KindChargeToThirdParty SettlementKind = "charge_to_third_party"

	// KindLoanToThirdParty: the correspondent extends credit to the third party.
	KindLoanToThirdParty SettlementKind = "loan_to_third_party"

	// KindLoanFromThirdParty: the third party extends credit to the
	// correspondent (cash comes into the till).
	KindLoanFromThirdParty SettlementKind = "loan_from_third_party"
)

// IsValid reports whether the kind is one of the four settlement kinds.
func (k SettlementKind) IsValid() bool {
	switch k {
	case KindDebtToThirdParty, KindChargeToThirdParty, KindLoanToThirdParty, KindLoanFromThirdParty:
		return true
	}
	return false
}

// CashInflow reports whether the movement brings cash into the till.
func (k SettlementKind) CashInflow() bool {
	return k == KindChargeToThirdParty || k == KindLoanFromThirdParty
}

// CashOutflow reports whether the movement takes cash out of the till.
func (k SettlementKind) CashOutflow() bool {
	return k == KindDebtToThirdParty || k == KindLoanToThirdParty
}

// Polarity returns +1 for inflow kinds, -1 for outflow kinds and 0 for unknown.
func (k SettlementKind) Polarity() int {
	switch {
	case k.CashInflow():
		return 1
	case k.CashOutflow():
		return -1
	}
	return 0
}

// TransactionType is a configurable, locale-specific transaction type as
// listed for a correspondent. Its free-text Name is what the classifier maps
// to a SettlementKind.
type TransactionType struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Category string `json:"category" db:"category"`
}

// TransactionRecord is the persisted settlement movement. It is created
// exactly once per accepted submission and never mutated; later records
// supersede it by changing the running balance.
type TransactionRecord struct {
	ID              int64          `json:"id" db:"id"`
	Reference       string         `json:"reference" db:"reference"`
	CorrespondentID int64          `json:"correspondent_id" db:"correspondent_id"`
	ThirdPartyID    int64          `json:"third_party_id" db:"third_party_id"`
	TillID          int64          `json:"till_id" db:"till_id"`
	ActorID         string         `json:"actor_id" db:"actor_id"`
	Kind            SettlementKind `json:"kind" db:"kind"`

	// Cost is the movement amount in whole currency units.
	Cost int64 `json:"cost" db:"cost"`
	// Polarity is +1 for cash inflows, -1 for cash outflows.
	Polarity int `json:"polarity" db:"polarity"`

	// Commissions are persisted negative-signed, as costs.
	BankCommission  int64 `json:"bank_commission" db:"bank_commission"`
	Dispersion      int64 `json:"dispersion" db:"dispersion"`
	TotalCommission int64 `json:"total_commission" db:"total_commission"`

	// CashTag is the projected till balance immediately after commit.
	CashTag int64 `json:"cash_tag" db:"cash_tag"`

	DeliveryMethod string `json:"delivery_method" db:"delivery_method"`

	// AccumulatedCommissionPortion is the part of the payment applied to
	// reducing commission debt rather than capital debt. Only non-zero for
	// charge movements.
	AccumulatedCommissionPortion int64 `json:"accumulated_commission_portion" db:"accumulated_commission_portion"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
