package treasury

import "github.com/shopspring/decimal"

const (
	TopicTransactionAppended = "pos.treasury.appended"
	EventTransactionAppended = "TreasuryTransactionAppended"
)

type TransactionAppendedPayload struct {
	TransactionID string          `json:"transaction_id"`
	Seq           int64           `json:"seq"`
	Type          Type            `json:"transaction_type"`
	SpecificType  SpecificType    `json:"specific_type"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod Method          `json:"payment_method"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	CashAfter     decimal.Decimal `json:"cash_in_machine_after"`
	VisaAfter     decimal.Decimal `json:"visa_in_machine_after"`
}

func AppendedPayload(t Transaction) TransactionAppendedPayload {
	return TransactionAppendedPayload{
		TransactionID: t.ID,
		Seq:           t.Seq,
		Type:          t.Type,
		SpecificType:  t.SpecificType,
		Amount:        t.Amount,
		PaymentMethod: t.PaymentMethod,
		BalanceAfter:  t.BalanceAfter,
		CashAfter:     t.CashAfter,
		VisaAfter:     t.VisaAfter,
	}
}
