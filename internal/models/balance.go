package models

// Balance is the running total between two participants of a group.
// Amount is Creditor's net receivable from Debtor; a negative Amount means
// Creditor owes Debtor.
type Balance struct {
	GroupID  string  `json:"groupId"`
	Creditor string  `json:"creditor"`
	Debtor   string  `json:"debtor"`
	Amount   float64 `json:"amount"`
}

// BalanceDelta is a change to apply to the balance between two participants.
// Amount is added to From's receivable from To (and subtracted from To's
// receivable from From).
type BalanceDelta struct {
	From   string
	To     string
	Amount float64
}

// CanonicalPair orders two participants the way balances are stored and
// returns the sign to apply to an amount expressed from a's point of view.
func CanonicalPair(a, b string) (lo, hi string, sign float64) {
	if a < b {
		return a, b, 1
	}
	return b, a, -1
}

// Between returns x's receivable from y, or 0 if the balance is for another pair.
func (b Balance) Between(x, y string) float64 {
	switch {
	case x == b.Creditor && y == b.Debtor:
		return b.Amount
	case x == b.Debtor && y == b.Creditor:
		return -b.Amount
	default:
		return 0
	}
}
