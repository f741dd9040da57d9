package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// LedgerServiceName is the fully-qualified name of the LedgerService.
const LedgerServiceName = "budgetwise.v1.LedgerService"

// Procedure paths of the LedgerService RPCs.
const (
	LedgerServiceCreateGroupProcedure   = "/budgetwise.v1.LedgerService/CreateGroup"
	LedgerServiceListGroupsProcedure    = "/budgetwise.v1.LedgerService/ListGroups"
	LedgerServiceAddEntryProcedure      = "/budgetwise.v1.LedgerService/AddEntry"
	LedgerServiceRecordPaymentProcedure = "/budgetwise.v1.LedgerService/RecordPayment"
	LedgerServiceMarkPaidProcedure      = "/budgetwise.v1.LedgerService/MarkPaid"
	LedgerServiceMarkAllPaidProcedure   = "/budgetwise.v1.LedgerService/MarkAllPaid"
	LedgerServiceGetBalancesProcedure   = "/budgetwise.v1.LedgerService/GetBalances"
	LedgerServiceListEntriesProcedure   = "/budgetwise.v1.LedgerService/ListEntries"
)

// LedgerServiceHandler is implemented by the server side of LedgerService.
type LedgerServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
	AddEntry(context.Context, *connect.Request[AddEntryRequest]) (*connect.Response[AddEntryResponse], error)
	RecordPayment(context.Context, *connect.Request[RecordPaymentRequest]) (*connect.Response[RecordPaymentResponse], error)
	MarkPaid(context.Context, *connect.Request[MarkPaidRequest]) (*connect.Response[MarkPaidResponse], error)
	MarkAllPaid(context.Context, *connect.Request[MarkAllPaidRequest]) (*connect.Response[MarkAllPaidResponse], error)
	GetBalances(context.Context, *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error)
	ListEntries(context.Context, *connect.Request[ListEntriesRequest]) (*connect.Response[ListEntriesResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler for svc. It returns the path
// prefix to mount the handler on.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	createGroup := connect.NewUnaryHandler(LedgerServiceCreateGroupProcedure, svc.CreateGroup, opts...)
	listGroups := connect.NewUnaryHandler(LedgerServiceListGroupsProcedure, svc.ListGroups, opts...)
	addEntry := connect.NewUnaryHandler(LedgerServiceAddEntryProcedure, svc.AddEntry, opts...)
	recordPayment := connect.NewUnaryHandler(LedgerServiceRecordPaymentProcedure, svc.RecordPayment, opts...)
	markPaid := connect.NewUnaryHandler(LedgerServiceMarkPaidProcedure, svc.MarkPaid, opts...)
	markAllPaid := connect.NewUnaryHandler(LedgerServiceMarkAllPaidProcedure, svc.MarkAllPaid, opts...)
	getBalances := connect.NewUnaryHandler(LedgerServiceGetBalancesProcedure, svc.GetBalances, opts...)
	listEntries := connect.NewUnaryHandler(LedgerServiceListEntriesProcedure, svc.ListEntries, opts...)

	return "/" + LedgerServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case LedgerServiceCreateGroupProcedure:
			createGroup.ServeHTTP(w, r)
		case LedgerServiceListGroupsProcedure:
			listGroups.ServeHTTP(w, r)
		case LedgerServiceAddEntryProcedure:
			addEntry.ServeHTTP(w, r)
		case LedgerServiceRecordPaymentProcedure:
			recordPayment.ServeHTTP(w, r)
		case LedgerServiceMarkPaidProcedure:
			markPaid.ServeHTTP(w, r)
		case LedgerServiceMarkAllPaidProcedure:
			markAllPaid.ServeHTTP(w, r)
		case LedgerServiceGetBalancesProcedure:
			getBalances.ServeHTTP(w, r)
		case LedgerServiceListEntriesProcedure:
			listEntries.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// LedgerServiceClient calls a remote LedgerService.
type LedgerServiceClient struct {
	createGroup   *connect.Client[CreateGroupRequest, CreateGroupResponse]
	listGroups    *connect.Client[ListGroupsRequest, ListGroupsResponse]
	addEntry      *connect.Client[AddEntryRequest, AddEntryResponse]
	recordPayment *connect.Client[RecordPaymentRequest, RecordPaymentResponse]
	markPaid      *connect.Client[MarkPaidRequest, MarkPaidResponse]
	markAllPaid   *connect.Client[MarkAllPaidRequest, MarkAllPaidResponse]
	getBalances   *connect.Client[GetBalancesRequest, GetBalancesResponse]
	listEntries   *connect.Client[ListEntriesRequest, ListEntriesResponse]
}

// NewLedgerServiceClient creates a client for the service at baseURL.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &LedgerServiceClient{
		createGroup:   connect.NewClient[CreateGroupRequest, CreateGroupResponse](httpClient, baseURL+LedgerServiceCreateGroupProcedure, opts...),
		listGroups:    connect.NewClient[ListGroupsRequest, ListGroupsResponse](httpClient, baseURL+LedgerServiceListGroupsProcedure, opts...),
		addEntry:      connect.NewClient[AddEntryRequest, AddEntryResponse](httpClient, baseURL+LedgerServiceAddEntryProcedure, opts...),
		recordPayment: connect.NewClient[RecordPaymentRequest, RecordPaymentResponse](httpClient, baseURL+LedgerServiceRecordPaymentProcedure, opts...),
		markPaid:      connect.NewClient[MarkPaidRequest, MarkPaidResponse](httpClient, baseURL+LedgerServiceMarkPaidProcedure, opts...),
		markAllPaid:   connect.NewClient[MarkAllPaidRequest, MarkAllPaidResponse](httpClient, baseURL+LedgerServiceMarkAllPaidProcedure, opts...),
		getBalances:   connect.NewClient[GetBalancesRequest, GetBalancesResponse](httpClient, baseURL+LedgerServiceGetBalancesProcedure, opts...),
		listEntries:   connect.NewClient[ListEntriesRequest, ListEntriesResponse](httpClient, baseURL+LedgerServiceListEntriesProcedure, opts...),
	}
}

func (c *LedgerServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) AddEntry(ctx context.Context, req *connect.Request[AddEntryRequest]) (*connect.Response[AddEntryResponse], error) {
	return c.addEntry.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) RecordPayment(ctx context.Context, req *connect.Request[RecordPaymentRequest]) (*connect.Response[RecordPaymentResponse], error) {
	return c.recordPayment.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) MarkPaid(ctx context.Context, req *connect.Request[MarkPaidRequest]) (*connect.Response[MarkPaidResponse], error) {
	return c.markPaid.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) MarkAllPaid(ctx context.Context, req *connect.Request[MarkAllPaidRequest]) (*connect.Response[MarkAllPaidResponse], error) {
	return c.markAllPaid.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListEntries(ctx context.Context, req *connect.Request[ListEntriesRequest]) (*connect.Response[ListEntriesResponse], error) {
	return c.listEntries.CallUnary(ctx, req)
}
