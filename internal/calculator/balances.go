package calculator

import (
	"sort"

	"github.com/mmynk/budgetwise/internal/models"
)

// EntryForBalance represents an entry with the minimal information needed for balance calculations.
type EntryForBalance struct {
	Payer  string
	Shares map[string]float64
}

// PaymentForBalance represents a payment with the minimal information needed for balance calculations.
type PaymentForBalance struct {
	Payer  string // Who paid (debtor settling up)
	Payee  string // Who received (creditor being paid)
	Amount float64
}

// MemberBalance represents the net position of one group member.
type MemberBalance struct {
	Member     string
	NetBalance float64 // Positive = owed money, Negative = owes money
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount float64
}

// EntryDeltas returns the balance changes caused by one entry: the payer's
// receivable from every other shareholder grows by that shareholder's share.
// Deltas are sorted by debtor so callers apply them in a stable order.
func EntryDeltas(payer string, shares map[string]float64) []models.BalanceDelta {
	deltas := make([]models.BalanceDelta, 0, len(shares))
	for participant, share := range shares {
		if participant == payer || share == 0 {
			continue
		}
		deltas = append(deltas, models.BalanceDelta{From: payer, To: participant, Amount: share})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].To < deltas[j].To })
	return deltas
}

// PaymentDelta returns the balance change caused by payer handing amount to
// payee: the payer's receivable from the payee grows, which moves a debt
// toward zero.
func PaymentDelta(payer, payee string, amount float64) models.BalanceDelta {
	return models.BalanceDelta{From: payer, To: payee, Amount: amount}
}

// ApplyDelta folds a delta into balances keyed by canonical pair.
func ApplyDelta(balances map[[2]string]float64, d models.BalanceDelta) {
	lo, hi, sign := models.CanonicalPair(d.From, d.To)
	balances[[2]string{lo, hi}] += sign * d.Amount
}

// PairwiseBalances recomputes every pairwise balance of a group from its
// entry history and payments. The result is keyed by canonical pair and holds
// the first participant's receivable from the second.
func PairwiseBalances(entries []EntryForBalance, payments []PaymentForBalance) map[[2]string]float64 {
	balances := make(map[[2]string]float64)
	for _, entry := range entries {
		for _, d := range EntryDeltas(entry.Payer, entry.Shares) {
			ApplyDelta(balances, d)
		}
	}
	for _, p := range payments {
		ApplyDelta(balances, PaymentDelta(p.Payer, p.Payee, p.Amount))
	}
	return balances
}

// NetBalances sums each member's pairwise balances into one net position.
func NetBalances(balances []models.Balance) []MemberBalance {
	net := make(map[string]float64)
	for _, b := range balances {
		net[b.Creditor] += b.Amount
		net[b.Debtor] -= b.Amount
	}

	members := make([]MemberBalance, 0, len(net))
	for member, amount := range net {
		members = append(members, MemberBalance{Member: member, NetBalance: amount})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Member < members[j].Member })
	return members
}

// SimplifyDebts turns net positions into a short list of suggested transfers.
//
// Algorithm: greedy matching of the largest debtor with the largest creditor
// until everyone is within a cent of zero.
func SimplifyDebts(members []MemberBalance) []DebtEdge {
	var creditors, debtors []MemberBalance
	for _, m := range members {
		if m.NetBalance > 0.01 {
			creditors = append(creditors, m)
		} else if m.NetBalance < -0.01 {
			debtors = append(debtors, m)
		}
	}
	sort.Slice(creditors, func(i, j int) bool { return creditors[i].NetBalance > creditors[j].NetBalance })
	sort.Slice(debtors, func(i, j int) bool { return debtors[i].NetBalance < debtors[j].NetBalance })

	debtorBalance := make(map[string]float64, len(debtors))
	creditorBalance := make(map[string]float64, len(creditors))
	for _, d := range debtors {
		debtorBalance[d.Member] = -d.NetBalance // Make positive
	}
	for _, c := range creditors {
		creditorBalance[c.Member] = c.NetBalance
	}

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := debtors[i].Member
		creditor := creditors[j].Member

		// Amount to settle is minimum of what debtor owes and creditor is owed
		amount := debtorBalance[debtor]
		if creditorBalance[creditor] < amount {
			amount = creditorBalance[creditor]
		}

		if amount > 0.01 { // Avoid floating point noise
			edges = append(edges, DebtEdge{From: debtor, To: creditor, Amount: amount})
		}

		debtorBalance[debtor] -= amount
		creditorBalance[creditor] -= amount

		if debtorBalance[debtor] < 0.01 {
			i++
		}
		if creditorBalance[creditor] < 0.01 {
			j++
		}
	}

	return edges
}
