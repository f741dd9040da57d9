package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/mmynk/budgetwise/internal/calculator"
	"github.com/mmynk/budgetwise/internal/ledger"
	"github.com/mmynk/budgetwise/internal/models"
	"github.com/mmynk/budgetwise/pkg/api"
)

// LedgerService implements api.LedgerServiceHandler on top of a ledger.Ledger.
// Every call acts as the authenticated participant and, except CreateGroup
// and ListGroups, requires the caller to belong to the group.
type LedgerService struct {
	ledger *ledger.Ledger
	users  UserDirectory
	logger *slog.Logger
}

var _ api.LedgerServiceHandler = (*LedgerService)(nil)

// UserDirectory looks up display names for group rosters.
type UserDirectory interface {
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// NewLedgerService creates a LedgerService. users may be nil, in which case
// rosters carry IDs only.
func NewLedgerService(l *ledger.Ledger, users UserDirectory, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{ledger: l, users: users, logger: logger}
}

// CreateGroup creates a group with the caller and the resolved invitees.
func (s *LedgerService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("CreateGroup request received", "name", req.Msg.Name, "invitees", len(req.Msg.Invitees))

	group, err := s.ledger.CreateGroup(ctx, caller, req.Msg.Name, req.Msg.Invitees)
	if err != nil {
		s.logger.Warn("CreateGroup failed", "error", err)
		return nil, toConnectError(err)
	}
	view := s.ledger.View(group)
	return connect.NewResponse(&api.CreateGroupResponse{Group: groupToAPI(view, s.displayNames(ctx, view))}), nil
}

// ListGroups returns the caller's groups with live rosters.
func (s *LedgerService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	views, err := s.ledger.FetchGroups(ctx, caller)
	if err != nil {
		s.logger.Error("ListGroups failed", "user_id", caller, "error", err)
		return nil, toConnectError(err)
	}

	groups := make([]*api.Group, len(views))
	for i, v := range views {
		groups[i] = groupToAPI(v, s.displayNames(ctx, v))
	}
	return connect.NewResponse(&api.ListGroupsResponse{Groups: groups}), nil
}

// AddEntry records an expense. The payer defaults to the caller.
func (s *LedgerService) AddEntry(ctx context.Context, req *connect.Request[api.AddEntryRequest]) (*connect.Response[api.AddEntryResponse], error) {
	caller, err := s.requireMember(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	payer := req.Msg.Payer
	if payer == "" {
		payer = caller
	}
	s.logger.Info("AddEntry request received",
		"group_id", req.Msg.GroupID,
		"payer", payer,
		"amount", req.Msg.Amount,
		"policy", req.Msg.Policy,
	)

	entry, err := s.ledger.AddEntry(ctx, ledger.AddEntryParams{
		GroupID: req.Msg.GroupID,
		Payer:   payer,
		Amount:  req.Msg.Amount,
		Memo:    req.Msg.Memo,
		Policy:  req.Msg.Policy,
		Params:  req.Msg.Params,
	})
	if err != nil {
		s.logger.Warn("AddEntry failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.AddEntryResponse{Entry: entryToAPI(entry)}), nil
}

// RecordPayment records a transfer between two participants. The payer
// defaults to the caller.
func (s *LedgerService) RecordPayment(ctx context.Context, req *connect.Request[api.RecordPaymentRequest]) (*connect.Response[api.RecordPaymentResponse], error) {
	caller, err := s.requireMember(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	payer := req.Msg.Payer
	if payer == "" {
		payer = caller
	}

	payment, err := s.ledger.RecordPayment(ctx, ledger.RecordPaymentParams{
		GroupID:    req.Msg.GroupID,
		Payer:      payer,
		Payee:      req.Msg.Payee,
		Amount:     req.Msg.Amount,
		Note:       req.Msg.Note,
		RecordedBy: caller,
	})
	if err != nil {
		s.logger.Warn("RecordPayment failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.RecordPaymentResponse{Payment: paymentToAPI(payment)}), nil
}

// MarkPaid marks the caller's share of one entry as paid.
func (s *LedgerService) MarkPaid(ctx context.Context, req *connect.Request[api.MarkPaidRequest]) (*connect.Response[api.MarkPaidResponse], error) {
	caller, err := s.requireMember(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.MarkPaid(ctx, req.Msg.GroupID, req.Msg.EntryID, caller); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.MarkPaidResponse{}), nil
}

// MarkAllPaid marks the caller's share of every entry in the group as paid.
func (s *LedgerService) MarkAllPaid(ctx context.Context, req *connect.Request[api.MarkAllPaidRequest]) (*connect.Response[api.MarkAllPaidResponse], error) {
	caller, err := s.requireMember(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	updated, err := s.ledger.MarkAllPaid(ctx, req.Msg.GroupID, caller)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.MarkAllPaidResponse{Updated: updated}), nil
}

// GetBalances returns pairwise balances, each member's net position and a
// short list of transfers that would settle the group.
func (s *LedgerService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	if _, err := s.requireMember(ctx, req.Msg.GroupID); err != nil {
		return nil, err
	}

	balances, err := s.ledger.Balances(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	members := calculator.NetBalances(balances)

	return connect.NewResponse(&api.GetBalancesResponse{
		Balances:    balancesToAPI(balances),
		Members:     membersToAPI(members),
		Settlements: settlementsToAPI(calculator.SimplifyDebts(members)),
	}), nil
}

// ListEntries returns the group's entries and payments in creation order.
func (s *LedgerService) ListEntries(ctx context.Context, req *connect.Request[api.ListEntriesRequest]) (*connect.Response[api.ListEntriesResponse], error) {
	if _, err := s.requireMember(ctx, req.Msg.GroupID); err != nil {
		return nil, err
	}

	entries, err := s.ledger.Entries(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	payments, err := s.ledger.Payments(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &api.ListEntriesResponse{
		Entries:  make([]*api.Entry, len(entries)),
		Payments: make([]*api.Payment, len(payments)),
	}
	for i, e := range entries {
		resp.Entries[i] = entryToAPI(e)
	}
	for i, p := range payments {
		resp.Payments[i] = paymentToAPI(p)
	}
	return connect.NewResponse(resp), nil
}

// requireMember returns the caller after checking they belong to groupID.
func (s *LedgerService) requireMember(ctx context.Context, groupID string) (string, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	group, err := s.ledger.GetGroup(ctx, groupID)
	if err != nil {
		return "", toConnectError(err)
	}
	if !group.HasParticipant(caller) {
		return "", connect.NewError(connect.CodePermissionDenied, fmt.Errorf("you must be a participant of group %s", groupID))
	}
	return caller, nil
}

// displayNames resolves participant names. Lookup failures only cost the
// names, so they are logged and ignored.
func (s *LedgerService) displayNames(ctx context.Context, views ...ledger.GroupView) map[string]string {
	names := map[string]string{}
	if s.users == nil {
		return names
	}
	var ids []string
	for _, v := range views {
		ids = append(ids, v.Group.Participants...)
	}
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to load display names", "error", err)
		return names
	}
	for id, u := range users {
		names[id] = u.DisplayName
	}
	return names
}
