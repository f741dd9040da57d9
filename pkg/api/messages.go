package api

// Participant is a group member and whether they had a live connection when
// the group was read.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	Online      bool   `json:"online"`
}

type Group struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	CreatedBy    string        `json:"createdBy"`
	Participants []Participant `json:"participants"`
	CreatedAt    int64         `json:"createdAt"`
}

type Entry struct {
	ID         string             `json:"id"`
	GroupID    string             `json:"groupId"`
	Payer      string             `json:"payer"`
	Amount     float64            `json:"amount"`
	Memo       string             `json:"memo,omitempty"`
	Policy     string             `json:"policy"`
	Shares     map[string]float64 `json:"shares"`
	PaidStatus map[string]bool    `json:"paidStatus"`
	CreatedAt  int64              `json:"createdAt"`
}

type Payment struct {
	ID        string  `json:"id"`
	GroupID   string  `json:"groupId"`
	Payer     string  `json:"payer"`
	Payee     string  `json:"payee"`
	Amount    float64 `json:"amount"`
	Note      string  `json:"note,omitempty"`
	CreatedBy string  `json:"createdBy"`
	CreatedAt int64   `json:"createdAt"`
}

// Balance is Creditor's net receivable from Debtor. A negative amount means
// Creditor owes Debtor.
type Balance struct {
	Creditor string  `json:"creditor"`
	Debtor   string  `json:"debtor"`
	Amount   float64 `json:"amount"`
}

type MemberBalance struct {
	Member     string  `json:"member"`
	NetBalance float64 `json:"netBalance"`
}

// Settlement is a suggested transfer from From to To.
type Settlement struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   int64  `json:"createdAt"`
}

// LedgerService messages.

type CreateGroupRequest struct {
	Name string `json:"name"`
	// Invitees are emails or user IDs. The caller is always a participant.
	Invitees []string `json:"invitees"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type AddEntryRequest struct {
	GroupID string `json:"groupId"`
	// Payer defaults to the caller.
	Payer  string             `json:"payer,omitempty"`
	Amount float64            `json:"amount"`
	Memo   string             `json:"memo,omitempty"`
	Policy string             `json:"policy,omitempty"`
	Params map[string]float64 `json:"params,omitempty"`
}

type AddEntryResponse struct {
	Entry *Entry `json:"entry"`
}

type RecordPaymentRequest struct {
	GroupID string `json:"groupId"`
	// Payer defaults to the caller.
	Payer  string  `json:"payer,omitempty"`
	Payee  string  `json:"payee"`
	Amount float64 `json:"amount"`
	Note   string  `json:"note,omitempty"`
}

type RecordPaymentResponse struct {
	Payment *Payment `json:"payment"`
}

// MarkPaidRequest marks the caller's share of an entry as paid.
type MarkPaidRequest struct {
	GroupID string `json:"groupId"`
	EntryID string `json:"entryId"`
}

type MarkPaidResponse struct{}

// MarkAllPaidRequest marks the caller's share of every group entry as paid.
type MarkAllPaidRequest struct {
	GroupID string `json:"groupId"`
}

type MarkAllPaidResponse struct {
	Updated int `json:"updated"`
}

type GetBalancesRequest struct {
	GroupID string `json:"groupId"`
}

type GetBalancesResponse struct {
	Balances    []Balance       `json:"balances"`
	Members     []MemberBalance `json:"members"`
	Settlements []Settlement    `json:"settlements"`
}

type ListEntriesRequest struct {
	GroupID string `json:"groupId"`
}

type ListEntriesResponse struct {
	Entries  []*Entry   `json:"entries"`
	Payments []*Payment `json:"payments"`
}

// AuthService messages.

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}
