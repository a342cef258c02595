package treasury

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

type Method string

const (
	MethodCash Method = "cash"
	MethodVisa Method = "visa"
)

func (m Method) Valid() bool { return m == MethodCash || m == MethodVisa }

// SpecificType categorises a transaction beyond income/expense.
type SpecificType string

const (
	SpecificSales            SpecificType = "sales"
	SpecificSuppliersPayment SpecificType = "suppliers payment"
	SpecificSalaryPayment    SpecificType = "salary payment"
	SpecificRent             SpecificType = "rent"
	SpecificUtilities        SpecificType = "utilities"
	SpecificMaintenance      SpecificType = "maintenance"
	SpecificTimer            SpecificType = "timer"
	SpecificOrder            SpecificType = "order"
	SpecificReservation      SpecificType = "reservation"
	SpecificCashDeposit      SpecificType = "cash deposit"
	SpecificCashWithdrawal   SpecificType = "cash withdrawal"
	SpecificOther            SpecificType = "other"
)

var specificTypes = map[SpecificType]bool{
	SpecificSales: true, SpecificSuppliersPayment: true, SpecificSalaryPayment: true,
	SpecificRent: true, SpecificUtilities: true, SpecificMaintenance: true,
	SpecificTimer: true, SpecificOrder: true, SpecificReservation: true,
	SpecificCashDeposit: true, SpecificCashWithdrawal: true, SpecificOther: true,
}

func (s SpecificType) Valid() bool { return specificTypes[s] }

// Transaction is immutable once stored; only ReconciliationDate may be set
// later. Seq is the position in the ledger chain.
type Transaction struct {
	ID                 string          `json:"id"`
	Seq                int64           `json:"seq"`
	Type               Type            `json:"transactionType"`
	SpecificType       SpecificType    `json:"specificType"`
	Amount             decimal.Decimal `json:"amount"`
	PaymentMethod      Method          `json:"paymentMethod"`
	Description        string          `json:"description,omitempty"`
	BalanceAfter       decimal.Decimal `json:"balanceAfter"`
	CashBefore         decimal.Decimal `json:"cashInMachineBefore"`
	CashAfter          decimal.Decimal `json:"cashInMachineAfter"`
	VisaBefore         decimal.Decimal `json:"visaInMachineBefore"`
	VisaAfter          decimal.Decimal `json:"visaInMachineAfter"`
	Date               time.Time       `json:"date"`
	ReconciliationDate *time.Time      `json:"reconciliationDate,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// Entry is the input of an append.
type Entry struct {
	Amount        decimal.Decimal
	Type          Type
	SpecificType  SpecificType
	PaymentMethod Method
	Description   string
}

type Balance struct {
	Total decimal.Decimal `json:"balance"`
	Cash  decimal.Decimal `json:"cashInMachine"`
	Visa  decimal.Decimal `json:"visaInMachine"`
}

type Filter struct {
	From             *time.Time
	To               *time.Time
	UnreconciledOnly bool
	Limit            int
}

// Repo is the storage contract, bound to one transaction.
//
// LockHead serializes appenders globally for the rest of the transaction
// and returns the latest transaction (ok=false on an empty ledger).
// InsertTransaction assigns Seq. SetReconciliationDate and GetTransaction
// return an apperr not-found error for unknown ids.
type Repo interface {
	LockHead(ctx context.Context) (head Transaction, ok bool, err error)
	Head(ctx context.Context) (head Transaction, ok bool, err error)
	InsertTransaction(ctx context.Context, t *Transaction) error
	GetTransaction(ctx context.Context, id string) (Transaction, error)
	SetReconciliationDate(ctx context.Context, id string, date time.Time) error
	ReconcileUntil(ctx context.Context, until, date time.Time) (int64, error)
	ListTransactions(ctx context.Context, f Filter) ([]Transaction, error)
}

type TxRunner interface {
	InTreasuryTx(ctx context.Context, fn func(ctx context.Context, r Repo) error) error
}
