package service

import (
	"github.com/mmynk/budgetwise/internal/calculator"
	"github.com/mmynk/budgetwise/internal/ledger"
	"github.com/mmynk/budgetwise/internal/models"
	"github.com/mmynk/budgetwise/pkg/api"
)

func groupToAPI(view ledger.GroupView, names map[string]string) *api.Group {
	online := view.Online()
	participants := make([]api.Participant, len(view.Group.Participants))
	for i, id := range view.Group.Participants {
		participants[i] = api.Participant{ID: id, DisplayName: names[id], Online: online[id]}
	}
	return &api.Group{
		ID:           view.Group.ID,
		Name:         view.Group.Name,
		CreatedBy:    view.Group.CreatedBy,
		Participants: participants,
		CreatedAt:    view.Group.CreatedAt,
	}
}

func entryToAPI(e *models.Entry) *api.Entry {
	return &api.Entry{
		ID:         e.ID,
		GroupID:    e.GroupID,
		Payer:      e.Payer,
		Amount:     e.Amount,
		Memo:       e.Memo,
		Policy:     e.Policy,
		Shares:     e.Shares,
		PaidStatus: e.PaidStatus,
		CreatedAt:  e.CreatedAt,
	}
}

func paymentToAPI(p *models.Payment) *api.Payment {
	return &api.Payment{
		ID:        p.ID,
		GroupID:   p.GroupID,
		Payer:     p.Payer,
		Payee:     p.Payee,
		Amount:    p.Amount,
		Note:      p.Note,
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
	}
}

func balancesToAPI(balances []models.Balance) []api.Balance {
	out := make([]api.Balance, 0, len(balances))
	for _, b := range balances {
		if b.Amount == 0 {
			continue
		}
		out = append(out, api.Balance{Creditor: b.Creditor, Debtor: b.Debtor, Amount: b.Amount})
	}
	return out
}

func membersToAPI(members []calculator.MemberBalance) []api.MemberBalance {
	out := make([]api.MemberBalance, len(members))
	for i, m := range members {
		out[i] = api.MemberBalance{Member: m.Member, NetBalance: m.NetBalance}
	}
	return out
}

func settlementsToAPI(edges []calculator.DebtEdge) []api.Settlement {
	out := make([]api.Settlement, len(edges))
	for i, e := range edges {
		out[i] = api.Settlement{From: e.From, To: e.To, Amount: e.Amount}
	}
	return out
}

func userToAPI(u *models.User) *api.User {
	return &api.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}
