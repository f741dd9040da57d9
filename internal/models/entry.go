package models

// Entry represents one recorded shared expense.
// Entries are append-only; PaidStatus is the only field mutated after creation,
// and it only ever flips from false to true.
type Entry struct {
	// ID is the unique identifier for the entry (UUID format).
	ID string `json:"entryId"`

	// GroupID is the group this entry belongs to.
	GroupID string `json:"groupId"`

	// Payer is the participant who paid the full amount.
	Payer string `json:"payer"`

	// Amount is the total expense, always positive.
	Amount float64 `json:"amount"`

	// Memo is a free-form description (e.g., "Groceries").
	Memo string `json:"memo"`

	// Policy is the name of the split policy used to compute Shares.
	Policy string `json:"policy"`

	// Shares maps each participant to the portion of Amount they are responsible for.
	Shares map[string]float64 `json:"shares"`

	// PaidStatus maps each shareholder to whether they have paid the payer back.
	// The payer starts out settled with themself.
	PaidStatus map[string]bool `json:"paidStatus"`

	// CreatedAt is the Unix timestamp when the entry was recorded.
	CreatedAt int64 `json:"createdAt"`
}
