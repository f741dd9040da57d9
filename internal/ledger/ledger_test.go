package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mmynk/budgetwise/internal/calculator"
	"github.com/mmynk/budgetwise/internal/models"
	"github.com/mmynk/budgetwise/internal/realtime"
	"github.com/mmynk/budgetwise/internal/storage"
	"github.com/mmynk/budgetwise/internal/storage/sqlite"
)

// recordingConn is a realtime.Conn that keeps every message it is sent.
type recordingConn struct {
	mu   sync.Mutex
	open bool
	msgs []map[string]any
}

func newRecordingConn() *recordingConn { return &recordingConn{open: true} }

func (c *recordingConn) Send(msg []byte) error {
	var decoded map[string]any
	if err := json.Unmarshal(msg, &decoded); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, decoded)
	return nil
}

func (c *recordingConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *recordingConn) messages() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]map[string]any(nil), c.msgs...)
}

type testEnv struct {
	ledger   *Ledger
	store    *sqlite.SQLiteStore
	registry *realtime.Registry
	users    map[string]string // name -> user ID
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "budgetwise-ledger-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "ledger.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// setupLedger creates a ledger over a temp database with the named users registered.
func setupLedger(t *testing.T, wrap func(storage.Store) storage.Store, names ...string) *testEnv {
	t.Helper()
	store := openStore(t)

	users := make(map[string]string, len(names))
	for _, name := range names {
		user := models.NewUser(name+"@example.com", name, "hash")
		if err := store.CreateUser(context.Background(), user); err != nil {
			t.Fatalf("failed to create user %s: %v", name, err)
		}
		users[name] = user.ID
	}

	var s storage.Store = store
	if wrap != nil {
		s = wrap(store)
	}
	registry := realtime.NewRegistry(nil)
	l := New(Config{
		Store:    s,
		Resolver: NewUserDirectory(store),
		Registry: registry,
		Notifier: realtime.NewNotifier(discardLogger(), nil),
		Logger:   discardLogger(),
	})
	return &testEnv{ledger: l, store: store, registry: registry, users: users}
}

func (e *testEnv) createGroup(t *testing.T, creator string, invitees ...string) *models.Group {
	t.Helper()
	emails := make([]string, len(invitees))
	for i, name := range invitees {
		emails[i] = name + "@example.com"
	}
	group, err := e.ledger.CreateGroup(context.Background(), e.users[creator], "Test Group", emails)
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return group
}

func (e *testEnv) balance(t *testing.T, groupID, a, b string) float64 {
	t.Helper()
	got, err := e.ledger.Balance(context.Background(), groupID, e.users[a], e.users[b])
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	return got
}

func TestCreateGroup(t *testing.T) {
	env := setupLedger(t, nil, "alice", "bob", "carol")
	ctx := context.Background()

	t.Run("participants are requester plus resolved invitees", func(t *testing.T) {
		group, err := env.ledger.CreateGroup(ctx, env.users["alice"], "  Roommates ", []string{
			"bob@example.com",
			"CAROL@example.com",
			env.users["bob"], // resolves by ID to the same participant
			"alice@example.com",
		})
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if group.Name != "Roommates" {
			t.Errorf("name = %q, want Roommates", group.Name)
		}
		if group.CreatedBy != env.users["alice"] {
			t.Errorf("createdBy = %s, want alice", group.CreatedBy)
		}
		want := []string{env.users["alice"], env.users["bob"], env.users["carol"]}
		if len(group.Participants) != len(want) {
			t.Fatalf("participants = %v, want %v", group.Participants, want)
		}
		for i := range want {
			if group.Participants[i] != want[i] {
				t.Errorf("participant %d = %s, want %s", i, group.Participants[i], want[i])
			}
		}
	})

	t.Run("unresolvable invitee creates nothing", func(t *testing.T) {
		before, err := env.store.ListGroupsByParticipant(ctx, env.users["carol"])
		if err != nil {
			t.Fatalf("ListGroupsByParticipant failed: %v", err)
		}

		_, err = env.ledger.CreateGroup(ctx, env.users["carol"], "Trip", []string{"bob@example.com", "ghost@example.com"})
		if !errors.Is(err, models.ErrResolution) {
			t.Fatalf("error = %v, want ErrResolution", err)
		}

		after, err := env.store.ListGroupsByParticipant(ctx, env.users["carol"])
		if err != nil {
			t.Fatalf("ListGroupsByParticipant failed: %v", err)
		}
		if len(after) != len(before) {
			t.Errorf("group count changed from %d to %d after failed create", len(before), len(after))
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		if _, err := env.ledger.CreateGroup(ctx, "", "X", nil); !errors.Is(err, models.ErrInvalidArgument) {
			t.Errorf("empty requester error = %v", err)
		}
		if _, err := env.ledger.CreateGroup(ctx, env.users["alice"], "   ", nil); !errors.Is(err, models.ErrInvalidArgument) {
			t.Errorf("empty name error = %v", err)
		}
	})

	t.Run("solo group", func(t *testing.T) {
		group, err := env.ledger.CreateGroup(ctx, env.users["alice"], "Just me", nil)
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if len(group.Participants) != 1 {
			t.Errorf("participants = %v, want only alice", group.Participants)
		}
	})
}

func TestAddEntry_EqualSplit(t *testing.T) {
	env := setupLedger(t, nil, "A", "B", "C")
	group := env.createGroup(t, "A", "B", "C")

	entry, err := env.ledger.AddEntry(context.Background(), AddEntryParams{
		GroupID: group.ID,
		Payer:   env.users["A"],
		Amount:  150,
		Memo:    "Groceries",
		Policy:  calculator.PolicyEqual,
	})
	if err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}

	for _, name := range []string{"A", "B", "C"} {
		if got := entry.Shares[env.users[name]]; got != 50 {
			t.Errorf("share[%s] = %v, want 50", name, got)
		}
	}
	if !entry.PaidStatus[env.users["A"]] {
		t.Error("payer should start out paid")
	}
	if entry.PaidStatus[env.users["B"]] || entry.PaidStatus[env.users["C"]] {
		t.Error("non-payers should start out unpaid")
	}

	tests := []struct {
		a, b string
		want float64
	}{
		{"A", "B", 50},
		{"A", "C", 50},
		{"B", "A", -50},
		{"C", "A", -50},
		{"B", "C", 0},
	}
	for _, tt := range tests {
		if got := env.balance(t, group.ID, tt.a, tt.b); got != tt.want {
			t.Errorf("Balance(%s,%s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestAddEntry_CustomSplitFallback(t *testing.T) {
	env := setupLedger(t, nil, "A", "B", "C")
	group := env.createGroup(t, "A", "B", "C")

	entry, err := env.ledger.AddEntry(context.Background(), AddEntryParams{
		GroupID: group.ID,
		Payer:   env.users["A"],
		Amount:  200,
		Policy:  calculator.PolicyCustom,
		Params:  map[string]float64{env.users["A"]: 0.5, env.users["B"]: 0.3},
	})
	if err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}

	want := map[string]float64{"A": 100, "B": 60, "C": 200 * (1.0 / 3.0)}
	for name, w := range want {
		if got := entry.Shares[env.users[name]]; math.Abs(got-w) > 1e-9 {
			t.Errorf("share[%s] = %v, want %v", name, got, w)
		}
	}
	if got := env.balance(t, group.ID, "C", "A"); math.Abs(got+200.0/3.0) > 1e-9 {
		t.Errorf("Balance(C,A) = %v, want %v", got, -200.0/3.0)
	}
}

func TestAddEntry_Errors(t *testing.T) {
	env := setupLedger(t, nil, "A", "B", "Z")
	group := env.createGroup(t, "A", "B")
	ctx := context.Background()

	tests := []struct {
		name    string
		params  AddEntryParams
		wantErr error
	}{
		{"unknown group", AddEntryParams{GroupID: "missing", Payer: env.users["A"], Amount: 10}, models.ErrNotFound},
		{"payer outside group", AddEntryParams{GroupID: group.ID, Payer: env.users["Z"], Amount: 10}, models.ErrInvalidArgument},
		{"zero amount", AddEntryParams{GroupID: group.ID, Payer: env.users["A"], Amount: 0}, models.ErrInvalidArgument},
		{"unknown policy", AddEntryParams{GroupID: group.ID, Payer: env.users["A"], Amount: 10, Policy: "lottery"}, models.ErrInvalidArgument},
		{"exact split mismatch", AddEntryParams{GroupID: group.ID, Payer: env.users["A"], Amount: 10, Policy: calculator.PolicyExact,
			Params: map[string]float64{env.users["A"]: 1}}, models.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.ledger.AddEntry(ctx, tt.params); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	entries, err := env.ledger.Entries(ctx, group.ID)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("failed AddEntry calls left %d entries", len(entries))
	}
}

func TestAddEntry_NonFiniteShares(t *testing.T) {
	env := setupLedger(t, nil, "A", "B")
	group := env.createGroup(t, "A", "B")
	ctx := context.Background()
	a, b := env.users["A"], env.users["B"]

	env.ledger.policies.Register("overflow", calculator.PolicyFunc(
		func(amount float64, participants []string, _ map[string]float64) (map[string]float64, error) {
			shares := make(map[string]float64, len(participants))
			for _, p := range participants {
				shares[p] = math.Inf(1)
			}
			return shares, nil
		}))

	tests := []struct {
		name   string
		params AddEntryParams
	}{
		{"custom fraction overflows", AddEntryParams{GroupID: group.ID, Payer: a, Amount: 1e10, Policy: calculator.PolicyCustom,
			Params: map[string]float64{a: 0, b: 1e300}}},
		{"weight total overflows", AddEntryParams{GroupID: group.ID, Payer: a, Amount: 10, Policy: calculator.PolicyWeight,
			Params: map[string]float64{a: 1e308, b: 1e308}}},
		{"registered policy returns infinity", AddEntryParams{GroupID: group.ID, Payer: a, Amount: 10, Policy: "overflow"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.ledger.AddEntry(ctx, tt.params); !errors.Is(err, models.ErrInvalidArgument) {
				t.Errorf("error = %v, want ErrInvalidArgument", err)
			}
		})
	}

	entries, err := env.ledger.Entries(ctx, group.ID)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("rejected entries persisted: %d", len(entries))
	}
	balances, err := env.ledger.Balances(ctx, group.ID)
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}
	if len(balances) != 0 {
		t.Errorf("rejected entries left balances: %+v", balances)
	}
}

func TestBalances_AntiSymmetryAndRecompute(t *testing.T) {
	env := setupLedger(t, nil, "A", "B", "C", "D")
	group := env.createGroup(t, "A", "B", "C", "D")
	ctx := context.Background()
	names := []string{"A", "B", "C", "D"}

	check := func(step string) {
		t.Helper()
		for _, a := range names {
			for _, b := range names {
				if a == b {
					continue
				}
				ab := env.balance(t, group.ID, a, b)
				ba := env.balance(t, group.ID, b, a)
				if math.Abs(ab+ba) > 1e-9 {
					t.Fatalf("%s: Balance(%s,%s)=%v but Balance(%s,%s)=%v", step, a, b, ab, b, a, ba)
				}
			}
		}

		derived, err := env.ledger.RecomputeBalances(ctx, group.ID)
		if err != nil {
			t.Fatalf("RecomputeBalances failed: %v", err)
		}
		stored, err := env.ledger.Balances(ctx, group.ID)
		if err != nil {
			t.Fatalf("Balances failed: %v", err)
		}
		for _, b := range stored {
			if math.Abs(derived[[2]string{b.Creditor, b.Debtor}]-b.Amount) > 1e-9 {
				t.Fatalf("%s: stored %s/%s = %v, derived %v", step, b.Creditor, b.Debtor, b.Amount, derived[[2]string{b.Creditor, b.Debtor}])
			}
		}
	}

	steps := []func() error{
		func() error {
			_, err := env.ledger.AddEntry(ctx, AddEntryParams{GroupID: group.ID, Payer: env.users["A"], Amount: 120})
			return err
		},
		func() error {
			_, err := env.ledger.AddEntry(ctx, AddEntryParams{GroupID: group.ID, Payer: env.users["B"], Amount: 37.5, Policy: calculator.PolicyWeight,
				Params: map[string]float64{env.users["A"]: 3, env.users["C"]: 0}})
			return err
		},
		func() error {
			_, err := env.ledger.RecordPayment(ctx, RecordPaymentParams{GroupID: group.ID, Payer: env.users["C"], Payee: env.users["A"], Amount: 30})
			return err
		},
		func() error {
			_, err := env.ledger.AddEntry(ctx, AddEntryParams{GroupID: group.ID, Payer: env.users["D"], Amount: 10, Policy: calculator.PolicyCustom,
				Params: map[string]float64{env.users["A"]: 0.9}})
			return err
		},
		func() error {
			_, err := env.ledger.RecordPayment(ctx, RecordPaymentParams{GroupID: group.ID, Payer: env.users["B"], Payee: env.users["D"], Amount: 5.25})
			return err
		},
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
		check(fmt.Sprintf("step %d", i))
	}
}

func TestRecordPayment(t *testing.T) {
	env := setupLedger(t, nil, "A", "B", "Z")
	group := env.createGroup(t, "A", "B")
	ctx := context.Background()

	entry, err := env.ledger.AddEntry(ctx, AddEntryParams{GroupID: group.ID, Payer: env.users["A"], Amount: 40})
	if err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}

	payment, err := env.ledger.RecordPayment(ctx, RecordPaymentParams{GroupID: group.ID, Payer: env.users["B"], Payee: env.users["A"], Amount: 20, Note: "cash"})
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if payment.ID == "" || payment.CreatedBy != env.users["B"] {
		t.Errorf("payment = %+v", payment)
	}

	if got := env.balance(t, group.ID, "A", "B"); got != 0 {
		t.Errorf("Balance(A,B) = %v, want 0 after settling", got)
	}

	// Payments leave entry paid flags alone.
	entries, err := env.ledger.Entries(ctx, group.ID)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if entries[0].ID != entry.ID || entries[0].PaidStatus[env.users["B"]] {
		t.Error("RecordPayment must not flip paid flags")
	}

	errTests := []struct {
		name    string
		params  RecordPaymentParams
		wantErr error
	}{
		{"self payment", RecordPaymentParams{GroupID: group.ID, Payer: env.users["A"], Payee: env.users["A"], Amount: 1}, models.ErrInvalidArgument},
		{"negative amount", RecordPaymentParams{GroupID: group.ID, Payer: env.users["A"], Payee: env.users["B"], Amount: -1}, models.ErrInvalidArgument},
		{"outsider", RecordPaymentParams{GroupID: group.ID, Payer: env.users["Z"], Payee: env.users["A"], Amount: 1}, models.ErrNotFound},
		{"unknown group", RecordPaymentParams{GroupID: "missing", Payer: env.users["A"], Payee: env.users["B"], Amount: 1}, models.ErrNotFound},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.ledger.RecordPayment(ctx, tt.params); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarkPaid(t *testing.T) {
	env := setupLedger(t, nil, "A", "B", "C", "Z")
	group := env.createGroup(t, "A", "B", "C")
	ctx := context.Background()

	bobConn := newRecordingConn()
	env.registry.Register(env.users["B"], bobConn)

	entry, err := env.ledger.AddEntry(ctx, AddEntryParams{GroupID: group.ID, Payer: env.users["A"], Amount: 30})
	if err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := env.ledger.MarkPaid(ctx, group.ID, entry.ID, env.users["B"]); err != nil {
			t.Fatalf("MarkPaid call %d failed: %v", i+1, err)
		}
	}

	entries, err := env.ledger.Entries(ctx, group.ID)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if !entries[0].PaidStatus[env.users["B"]] {
		t.Error("B should be marked paid")
	}
	if entries[0].PaidStatus[env.users["C"]] {
		t.Error("C should still be unpaid")
	}

	var markPaidEvents int
	for _, msg := range bobConn.messages() {
		if msg["type"] == string(realtime.EventMarkPaid) {
			markPaidEvents++
		}
	}
	if markPaidEvents != 1 {
		t.Errorf("markPaid events = %d, want 1 (second call is a no-op)", markPaidEvents)
	}

	if err := env.ledger.MarkPaid(ctx, group.ID, "missing-entry", env.users["B"]); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown entry error = %v, want ErrNotFound", err)
	}
	if err := env.ledger.MarkPaid(ctx, group.ID, entry.ID, env.users["Z"]); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("non-shareholder error = %v, want ErrNotFound", err)
	}
}

func TestMarkAllPaid(t *testing.T) {
	env := setupLedger(t, nil, "A", "B", "C")
	group := env.createGroup(t, "A", "B", "C")
	ctx := context.Background()

	for _, payer := range []string{"A", "B", "A"} {
		if _, err := env.ledger.AddEntry(ctx, AddEntryParams{GroupID: group.ID, Payer: env.users[payer], Amount: 30}); err != nil {
			t.Fatalf("AddEntry failed: %v", err)
		}
	}

	updated, err := env.ledger.MarkAllPaid(ctx, group.ID, env.users["B"])
	if err != nil {
		t.Fatalf("MarkAllPaid failed: %v", err)
	}
	if updated != 2 {
		t.Errorf("updated = %d, want 2 (B paid the second entry)", updated)
	}

	entries, err := env.ledger.Entries(ctx, group.ID)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	for _, e := range entries {
		if !e.PaidStatus[env.users["B"]] {
			t.Errorf("entry %s: B should be paid", e.ID)
		}
		if e.Payer != env.users["C"] && e.PaidStatus[env.users["C"]] {
			t.Errorf("entry %s: C should be untouched", e.ID)
		}
	}

	updated, err = env.ledger.MarkAllPaid(ctx, group.ID, env.users["B"])
	if err != nil || updated != 0 {
		t.Errorf("second MarkAllPaid = %d, %v; want 0, nil", updated, err)
	}

	if _, err := env.ledger.MarkAllPaid(ctx, "missing", env.users["B"]); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown group error = %v, want ErrNotFound", err)
	}
}

func TestNotifications(t *testing.T) {
	env := setupLedger(t, nil, "A", "B", "C")
	ctx := context.Background()

	aConn, bConn := newRecordingConn(), newRecordingConn()
	env.registry.Register(env.users["A"], aConn)
	env.registry.Register(env.users["B"], bConn)

	group := env.createGroup(t, "A", "B", "C")
	entry, err := env.ledger.AddEntry(ctx, AddEntryParams{GroupID: group.ID, Payer: env.users["A"], Amount: 90})
	if err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}

	for name, conn := range map[string]*recordingConn{"A": aConn, "B": bConn} {
		msgs := conn.messages()
		if len(msgs) != 2 {
			t.Fatalf("%s got %d messages, want 2 (newGroup, newEntry)", name, len(msgs))
		}
		if msgs[0]["type"] != "newGroup" || msgs[1]["type"] != "newEntry" {
			t.Errorf("%s got types %v, %v", name, msgs[0]["type"], msgs[1]["type"])
		}
		for _, msg := range msgs {
			if msg["receiverId"] != env.users[name] || msg["groupId"] != group.ID {
				t.Errorf("%s envelope = %v", name, msg)
			}
		}
		if e, _ := msgs[1]["entry"].(map[string]any); e["entryId"] != entry.ID {
			t.Errorf("%s entry payload = %v", name, msgs[1]["entry"])
		}
	}

	// B disconnects; the next event only reaches A.
	env.registry.Unregister(env.users["B"])
	if _, err := env.ledger.RecordPayment(ctx, RecordPaymentParams{GroupID: group.ID, Payer: env.users["B"], Payee: env.users["A"], Amount: 30}); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if n := len(bConn.messages()); n != 2 {
		t.Errorf("B got %d messages after disconnecting, want 2", n)
	}
	msgs := aConn.messages()
	if last := msgs[len(msgs)-1]; last["type"] != "newBalance" {
		t.Errorf("A last event = %v, want newBalance", last["type"])
	}

	if sent := env.ledger.Broadcast(ctx, "no-such-group", realtime.Event{Type: realtime.EventNewBalance}); sent != 0 {
		t.Errorf("Broadcast to unknown group sent %d", sent)
	}
	if sent := env.ledger.Broadcast(ctx, group.ID, realtime.Event{Type: realtime.EventNewBalance}); sent != 1 {
		t.Errorf("Broadcast sent %d, want 1", sent)
	}
}

func TestFetchGroups_RosterIsFresh(t *testing.T) {
	env := setupLedger(t, nil, "A", "B")
	ctx := context.Background()
	group := env.createGroup(t, "A", "B")

	conn := newRecordingConn()
	env.registry.Register(env.users["B"], conn)

	views, err := env.ledger.FetchGroups(ctx, env.users["A"])
	if err != nil {
		t.Fatalf("FetchGroups failed: %v", err)
	}
	if len(views) != 1 || views[0].Group.ID != group.ID {
		t.Fatalf("views = %+v", views)
	}
	online := views[0].Online()
	if !online[env.users["B"]] || online[env.users["A"]] {
		t.Errorf("online = %v, want only B", online)
	}

	env.registry.Unregister(env.users["B"])
	views, err = env.ledger.FetchGroups(ctx, env.users["A"])
	if err != nil {
		t.Fatalf("FetchGroups failed: %v", err)
	}
	if views[0].Online()[env.users["B"]] {
		t.Error("B should be offline after unregistering")
	}

	views, err = env.ledger.FetchGroups(ctx, "stranger")
	if err != nil || len(views) != 0 {
		t.Errorf("stranger views = %v, %v; want none", views, err)
	}
}

func TestAddEntry_ConcurrentSameGroup(t *testing.T) {
	env := setupLedger(t, nil, "A", "B", "C")
	group := env.createGroup(t, "A", "B", "C")
	ctx := context.Background()
	payers := []string{"A", "B", "C"}

	const n = 30
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.ledger.AddEntry(ctx, AddEntryParams{
				GroupID: group.ID,
				Payer:   env.users[payers[i%3]],
				Amount:  float64(3 * (i + 1)),
			})
			if err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent AddEntry failed: %v", err)
	}

	entries, err := env.ledger.Entries(ctx, group.ID)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != n {
		t.Fatalf("entries = %d, want %d", len(entries), n)
	}

	derived, err := env.ledger.RecomputeBalances(ctx, group.ID)
	if err != nil {
		t.Fatalf("RecomputeBalances failed: %v", err)
	}
	stored, err := env.ledger.Balances(ctx, group.ID)
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}
	for _, b := range stored {
		if math.Abs(derived[[2]string{b.Creditor, b.Debtor}]-b.Amount) > 1e-6 {
			t.Errorf("stored %s/%s = %v, derived %v", b.Creditor, b.Debtor, b.Amount, derived[[2]string{b.Creditor, b.Debtor}])
		}
	}
	if env.ledger.locks.size() != 0 {
		t.Errorf("group locks leaked: %d", env.ledger.locks.size())
	}
}

// failingStore fails the multi-record writes.
type failingStore struct {
	storage.Store
}

func (f failingStore) ApplyEntry(context.Context, *models.Entry, []models.BalanceDelta) error {
	return errors.New("disk full")
}

func (f failingStore) ApplyPayment(context.Context, *models.Payment, models.BalanceDelta) error {
	return errors.New("disk full")
}

func TestPersistenceFailure(t *testing.T) {
	env := setupLedger(t, func(s storage.Store) storage.Store { return failingStore{Store: s} }, "A", "B")
	group := env.createGroup(t, "A", "B")
	ctx := context.Background()

	conn := newRecordingConn()
	env.registry.Register(env.users["B"], conn)

	_, err := env.ledger.AddEntry(ctx, AddEntryParams{GroupID: group.ID, Payer: env.users["A"], Amount: 10})
	if !errors.Is(err, models.ErrPersistence) {
		t.Fatalf("AddEntry error = %v, want ErrPersistence", err)
	}
	_, err = env.ledger.RecordPayment(ctx, RecordPaymentParams{GroupID: group.ID, Payer: env.users["B"], Payee: env.users["A"], Amount: 10})
	if !errors.Is(err, models.ErrPersistence) {
		t.Fatalf("RecordPayment error = %v, want ErrPersistence", err)
	}

	if got := env.balance(t, group.ID, "A", "B"); got != 0 {
		t.Errorf("Balance(A,B) = %v after failures, want 0", got)
	}
	if n := len(conn.messages()); n != 0 {
		t.Errorf("failed operations sent %d events", n)
	}
}
