package models

// Payment represents a transfer between group members to clear debts.
type Payment struct {
	// ID is the unique identifier for the payment (UUID format).
	ID string `json:"paymentId"`

	// GroupID is the group this payment belongs to.
	GroupID string `json:"groupId"`

	// Payer is the participant who paid (debtor settling up).
	Payer string `json:"payer"`

	// Payee is the participant who received payment (creditor being paid).
	Payee string `json:"payee"`

	// Amount is the payment amount.
	Amount float64 `json:"amount"`

	// Note is an optional description for the payment.
	Note string `json:"note,omitempty"`

	// CreatedBy is the user ID who recorded this payment.
	CreatedBy string `json:"createdBy,omitempty"`

	// CreatedAt is the Unix timestamp when the payment was recorded.
	CreatedAt int64 `json:"createdAt"`
}
