package domain

// Correspondent is a licensed cash-handling agent with a bank credit line.
type Correspondent struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	// CreditLimit is the ceiling on the correspondent's debt to the bank.
	CreditLimit int64 `json:"credit_limit" db:"credit_limit"`

	// Premium enables inter-till transfers and enforces till-capacity
	// limits on cash inflows.
	Premium bool `json:"premium" db:"premium"`
}

// Till is a cash register with a capacity ceiling and a running balance.
type Till struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	// Capacity is the maximum amount the till may hold when premium rules
	// apply. Zero means no ceiling was configured.
	Capacity int64 `json:"capacity" db:"capacity"`

	InitialAmount    int64 `json:"initial_amount" db:"initial_amount"`
	IncomesTotal     int64 `json:"incomes_total" db:"incomes_total"`
	WithdrawalsTotal int64 `json:"withdrawals_total" db:"withdrawals_total"`
}

// CurrentBalance returns the live till balance. Callers must never reuse a
// stale snapshot across a validate-then-commit sequence; the till is
// re-pulled immediately before commit.
func (t *Till) CurrentBalance() int64 {
	return t.InitialAmount + t.IncomesTotal - t.WithdrawalsTotal
}

// BankDebtSummary is the correspondent's position against the bank.
type BankDebtSummary struct {
	DebtToBank  int64 `json:"debt_to_bank" db:"debt_to_bank"`
	Incomes     int64 `json:"incomes" db:"incomes"`
	Withdrawals int64 `json:"withdrawals" db:"withdrawals"`
	NetCash     int64 `json:"net_cash" db:"net_cash"`
}
