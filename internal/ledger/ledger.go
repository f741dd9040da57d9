// Package ledger owns group membership, entries and pairwise balances.
//
// Every mutating operation on a group runs under that group's lock, so the
// store round trips of one operation never interleave with another operation
// on the same group. Operations on different groups run concurrently.
// After a change is committed the ledger emits an event to the group's
// currently connected members through the realtime Notifier.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/mmynk/budgetwise/internal/calculator"
	"github.com/mmynk/budgetwise/internal/metrics"
	"github.com/mmynk/budgetwise/internal/models"
	"github.com/mmynk/budgetwise/internal/realtime"
	"github.com/mmynk/budgetwise/internal/storage"
)

// Ledger implements the group operations.
type Ledger struct {
	store    storage.Store
	policies *calculator.Policies
	resolver IdentityResolver
	registry *realtime.Registry
	notifier *realtime.Notifier
	locks    *keyedMutex
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// Config holds the collaborators of a Ledger. Metrics may be nil; Policies
// defaults to the built-in set.
type Config struct {
	Store    storage.Store
	Policies *calculator.Policies
	Resolver IdentityResolver
	Registry *realtime.Registry
	Notifier *realtime.Notifier
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// New creates a Ledger.
func New(cfg Config) *Ledger {
	if cfg.Policies == nil {
		cfg.Policies = calculator.NewPolicies()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Ledger{
		store:    cfg.Store,
		policies: cfg.Policies,
		resolver: cfg.Resolver,
		registry: cfg.Registry,
		notifier: cfg.Notifier,
		locks:    newKeyedMutex(),
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// GroupView is a group together with its roster resolved against the live
// connection registry at query time.
type GroupView struct {
	Group  *models.Group
	Roster []realtime.RosterEntry
}

// Online reports which participants had an open connection when the view was built.
func (v GroupView) Online() map[string]bool {
	online := make(map[string]bool, len(v.Roster))
	for _, r := range v.Roster {
		online[r.Participant] = r.Conn != nil && r.Conn.Open()
	}
	return online
}

// AddEntryParams describes a new shared expense.
type AddEntryParams struct {
	GroupID string
	Payer   string
	Amount  float64
	Memo    string
	// Policy names the split policy; empty means equal.
	Policy string
	// Params is passed to the policy unchanged.
	Params map[string]float64
}

// RecordPaymentParams describes a settling transfer between two participants.
type RecordPaymentParams struct {
	GroupID    string
	Payer      string
	Payee      string
	Amount     float64
	Note       string
	RecordedBy string
}

// CreateGroup resolves every invitee and creates the group with the requester
// and the resolved invitees as participants. If any invitee cannot be
// resolved nothing is created and the error wraps models.ErrResolution.
func (l *Ledger) CreateGroup(ctx context.Context, requester, name string, invitees []string) (group *models.Group, err error) {
	defer func() { l.metrics.LedgerOp("create_group", err) }()

	name = strings.TrimSpace(name)
	if requester == "" {
		return nil, fmt.Errorf("%w: requester required", models.ErrInvalidArgument)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: group name required", models.ErrInvalidArgument)
	}

	participants := []string{requester}
	seen := map[string]bool{requester: true}
	var unresolved []string
	for _, invitee := range invitees {
		id, err := l.resolver.ResolveIdentity(ctx, invitee)
		if errors.Is(err, models.ErrNotFound) {
			unresolved = append(unresolved, invitee)
			continue
		}
		if err != nil {
			return nil, persistence(err)
		}
		if !seen[id] {
			seen[id] = true
			participants = append(participants, id)
		}
	}
	if len(unresolved) > 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrResolution, strings.Join(unresolved, ", "))
	}

	group = &models.Group{
		Name:         name,
		CreatedBy:    requester,
		Participants: participants,
	}
	if err := l.store.CreateGroup(ctx, group); err != nil {
		return nil, persistence(err)
	}

	l.log.Info("Group created", "group_id", group.ID, "participants", len(participants))
	l.notify(group, realtime.Event{Type: realtime.EventNewGroup, GroupID: group.ID, Group: group})
	return group, nil
}

// AddEntry records an expense paid by p.Payer and split over every group
// participant with the named policy. The entry and the balance changes it
// causes are committed together.
func (l *Ledger) AddEntry(ctx context.Context, p AddEntryParams) (entry *models.Entry, err error) {
	defer func() { l.metrics.LedgerOp("add_entry", err) }()

	if p.Amount <= 0 || math.IsNaN(p.Amount) || math.IsInf(p.Amount, 0) {
		return nil, fmt.Errorf("%w: amount must be positive", models.ErrInvalidArgument)
	}
	policy, err := l.policies.Lookup(p.Policy)
	if err != nil {
		return nil, err
	}

	unlock := l.locks.Lock(p.GroupID)
	defer unlock()

	group, err := l.loadGroup(ctx, p.GroupID)
	if err != nil {
		return nil, err
	}
	if !group.HasParticipant(p.Payer) {
		return nil, fmt.Errorf("%w: payer %q is not a participant", models.ErrInvalidArgument, p.Payer)
	}

	shares, err := policy.Shares(p.Amount, group.Participants, p.Params)
	if err != nil {
		return nil, err
	}
	if err := calculator.FiniteShares(shares); err != nil {
		return nil, err
	}

	paid := make(map[string]bool, len(shares))
	for participant := range shares {
		paid[participant] = participant == p.Payer
	}

	policyName := strings.ToLower(strings.TrimSpace(p.Policy))
	if policyName == "" {
		policyName = calculator.PolicyEqual
	}
	entry = &models.Entry{
		GroupID:    group.ID,
		Payer:      p.Payer,
		Amount:     p.Amount,
		Memo:       p.Memo,
		Policy:     policyName,
		Shares:     shares,
		PaidStatus: paid,
	}
	if err := l.store.ApplyEntry(ctx, entry, calculator.EntryDeltas(p.Payer, shares)); err != nil {
		return nil, persistence(err)
	}

	l.log.Info("Entry added", "group_id", group.ID, "entry_id", entry.ID, "payer", p.Payer, "amount", p.Amount, "policy", policyName)
	l.notify(group, realtime.Event{Type: realtime.EventNewEntry, GroupID: group.ID, Entry: entry})
	return entry, nil
}

// RecordPayment records p.Payer handing p.Amount to p.Payee, moving their
// balance toward settlement. Entry paid flags are left untouched.
func (l *Ledger) RecordPayment(ctx context.Context, p RecordPaymentParams) (payment *models.Payment, err error) {
	defer func() { l.metrics.LedgerOp("record_payment", err) }()

	if p.Amount <= 0 || math.IsNaN(p.Amount) || math.IsInf(p.Amount, 0) {
		return nil, fmt.Errorf("%w: amount must be positive", models.ErrInvalidArgument)
	}
	if p.Payer == p.Payee {
		return nil, fmt.Errorf("%w: payer and payee must differ", models.ErrInvalidArgument)
	}

	unlock := l.locks.Lock(p.GroupID)
	defer unlock()

	group, err := l.loadGroup(ctx, p.GroupID)
	if err != nil {
		return nil, err
	}
	for _, who := range []string{p.Payer, p.Payee} {
		if !group.HasParticipant(who) {
			return nil, fmt.Errorf("%w: participant %q in group %s", models.ErrNotFound, who, group.ID)
		}
	}

	recordedBy := p.RecordedBy
	if recordedBy == "" {
		recordedBy = p.Payer
	}
	payment = &models.Payment{
		GroupID:   group.ID,
		Payer:     p.Payer,
		Payee:     p.Payee,
		Amount:    p.Amount,
		Note:      p.Note,
		CreatedBy: recordedBy,
	}
	if err := l.store.ApplyPayment(ctx, payment, calculator.PaymentDelta(p.Payer, p.Payee, p.Amount)); err != nil {
		return nil, persistence(err)
	}

	balances, err := l.store.ListBalances(ctx, group.ID)
	if err != nil {
		// The payment is committed; only the event loses its balance snapshot.
		l.log.Warn("Failed to load balances for event", "group_id", group.ID, "error", err)
	}

	l.log.Info("Payment recorded", "group_id", group.ID, "payment_id", payment.ID, "payer", p.Payer, "payee", p.Payee, "amount", p.Amount)
	l.notify(group, realtime.Event{Type: realtime.EventNewBalance, GroupID: group.ID, Payment: payment, Balances: balances})
	return payment, nil
}

// MarkPaid flags participant's share of an entry as paid. Marking an
// already-paid share succeeds without emitting an event.
func (l *Ledger) MarkPaid(ctx context.Context, groupID, entryID, participant string) (err error) {
	defer func() { l.metrics.LedgerOp("mark_paid", err) }()

	unlock := l.locks.Lock(groupID)
	defer unlock()

	group, err := l.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	entry, err := l.store.GetEntry(ctx, groupID, entryID)
	if err != nil {
		return persistence(err)
	}
	if _, ok := entry.Shares[participant]; !ok {
		return fmt.Errorf("%w: participant %q has no share in entry %s", models.ErrNotFound, participant, entryID)
	}

	changed, err := l.store.MarkPaid(ctx, entryID, participant)
	if err != nil {
		return persistence(err)
	}
	if !changed {
		return nil
	}

	l.log.Info("Share marked paid", "group_id", groupID, "entry_id", entryID, "participant", participant)
	l.notify(group, realtime.Event{Type: realtime.EventMarkPaid, GroupID: groupID, EntryID: entryID, Participant: participant})
	return nil
}

// MarkAllPaid flags participant's share as paid on every entry of the group
// they did not pay for. It returns the number of entries that changed.
func (l *Ledger) MarkAllPaid(ctx context.Context, groupID, participant string) (updated int, err error) {
	defer func() { l.metrics.LedgerOp("mark_all_paid", err) }()

	unlock := l.locks.Lock(groupID)
	defer unlock()

	group, err := l.loadGroup(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if !group.HasParticipant(participant) {
		return 0, fmt.Errorf("%w: participant %q in group %s", models.ErrNotFound, participant, groupID)
	}

	changed, err := l.store.MarkAllPaid(ctx, groupID, participant)
	if err != nil {
		return 0, persistence(err)
	}
	if len(changed) == 0 {
		return 0, nil
	}

	l.log.Info("All shares marked paid", "group_id", groupID, "participant", participant, "entries", len(changed))
	l.notify(group, realtime.Event{Type: realtime.EventMarkAllPaid, GroupID: groupID, Participant: participant, Updated: len(changed)})
	return len(changed), nil
}

// FetchGroups returns every group requester belongs to. Rosters are resolved
// against the registry on each call.
func (l *Ledger) FetchGroups(ctx context.Context, requester string) ([]GroupView, error) {
	if requester == "" {
		return nil, fmt.Errorf("%w: requester required", models.ErrInvalidArgument)
	}
	groups, err := l.store.ListGroupsByParticipant(ctx, requester)
	if err != nil {
		return nil, persistence(err)
	}

	views := make([]GroupView, len(groups))
	for i, group := range groups {
		views[i] = l.View(group)
	}
	return views, nil
}

// View pairs group with its current roster.
func (l *Ledger) View(group *models.Group) GroupView {
	view := GroupView{Group: group}
	if l.registry != nil {
		view.Roster = l.registry.Roster(group.Participants)
	}
	return view
}

// GetGroup returns one group.
func (l *Ledger) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return l.loadGroup(ctx, groupID)
}

// Entries returns a group's entries in creation order.
func (l *Ledger) Entries(ctx context.Context, groupID string) ([]*models.Entry, error) {
	if _, err := l.loadGroup(ctx, groupID); err != nil {
		return nil, err
	}
	entries, err := l.store.ListEntries(ctx, groupID)
	if err != nil {
		return nil, persistence(err)
	}
	return entries, nil
}

// Payments returns a group's payments in the order they were recorded.
func (l *Ledger) Payments(ctx context.Context, groupID string) ([]*models.Payment, error) {
	if _, err := l.loadGroup(ctx, groupID); err != nil {
		return nil, err
	}
	payments, err := l.store.ListPayments(ctx, groupID)
	if err != nil {
		return nil, persistence(err)
	}
	return payments, nil
}

// Balances returns the stored pairwise balances of a group.
func (l *Ledger) Balances(ctx context.Context, groupID string) ([]models.Balance, error) {
	if _, err := l.loadGroup(ctx, groupID); err != nil {
		return nil, err
	}
	balances, err := l.store.ListBalances(ctx, groupID)
	if err != nil {
		return nil, persistence(err)
	}
	return balances, nil
}

// Balance returns a's net receivable from b. Pairs that never interacted are 0.
func (l *Ledger) Balance(ctx context.Context, groupID, a, b string) (float64, error) {
	balances, err := l.Balances(ctx, groupID)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, bal := range balances {
		total += bal.Between(a, b)
	}
	return total, nil
}

// RecomputeBalances derives every pairwise balance from the entry history and
// payments, ignoring the incrementally maintained rows.
func (l *Ledger) RecomputeBalances(ctx context.Context, groupID string) (map[[2]string]float64, error) {
	entries, err := l.Entries(ctx, groupID)
	if err != nil {
		return nil, err
	}
	payments, err := l.Payments(ctx, groupID)
	if err != nil {
		return nil, err
	}

	forBalance := make([]calculator.EntryForBalance, len(entries))
	for i, e := range entries {
		forBalance[i] = calculator.EntryForBalance{Payer: e.Payer, Shares: e.Shares}
	}
	paymentsForBalance := make([]calculator.PaymentForBalance, len(payments))
	for i, p := range payments {
		paymentsForBalance[i] = calculator.PaymentForBalance{Payer: p.Payer, Payee: p.Payee, Amount: p.Amount}
	}
	return calculator.PairwiseBalances(forBalance, paymentsForBalance), nil
}

// Settlements suggests a short list of transfers that would settle the group.
func (l *Ledger) Settlements(ctx context.Context, groupID string) ([]calculator.DebtEdge, error) {
	balances, err := l.Balances(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return calculator.SimplifyDebts(calculator.NetBalances(balances)), nil
}

// Broadcast sends event to the connected members of a group. Unknown groups
// are a no-op.
func (l *Ledger) Broadcast(ctx context.Context, groupID string, event realtime.Event) int {
	group, err := l.store.GetGroup(ctx, groupID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			l.log.Warn("Broadcast skipped", "group_id", groupID, "error", err)
		}
		return 0
	}
	event.GroupID = group.ID
	return l.notify(group, event)
}

func (l *Ledger) notify(group *models.Group, event realtime.Event) int {
	if l.notifier == nil || l.registry == nil {
		return 0
	}
	return l.notifier.NotifyGroup(group.ID, l.registry.Roster(group.Participants), event)
}

func (l *Ledger) loadGroup(ctx context.Context, groupID string) (*models.Group, error) {
	if groupID == "" {
		return nil, fmt.Errorf("%w: group id required", models.ErrInvalidArgument)
	}
	group, err := l.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, persistence(err)
	}
	return group, nil
}

// persistence tags store failures as models.ErrPersistence. Not-found errors
// pass through unchanged.
func persistence(err error) error {
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrPersistence, err)
}
