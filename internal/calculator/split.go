package calculator

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mmynk/budgetwise/internal/models"
)

// Built-in policy names.
const (
	PolicyEqual  = "equal"
	PolicyCustom = "custom"
	PolicyWeight = "weight"
	PolicyExact  = "exact"
)

// Policy computes how much of an amount each participant is responsible for.
// params is policy specific and may be nil.
type Policy interface {
	Shares(amount float64, participants []string, params map[string]float64) (map[string]float64, error)
}

// PolicyFunc adapts a plain function to the Policy interface.
type PolicyFunc func(amount float64, participants []string, params map[string]float64) (map[string]float64, error)

// Shares calls f.
func (f PolicyFunc) Shares(amount float64, participants []string, params map[string]float64) (map[string]float64, error) {
	return f(amount, participants, params)
}

// Policies is a name-keyed set of split policies. It is safe for concurrent use.
type Policies struct {
	mu     sync.RWMutex
	byName map[string]Policy
}

// NewPolicies returns a registry holding the built-in policies.
func NewPolicies() *Policies {
	p := &Policies{byName: make(map[string]Policy)}
	p.Register(PolicyEqual, PolicyFunc(EqualSplit))
	p.Register(PolicyCustom, PolicyFunc(CustomSplit))
	p.Register(PolicyWeight, PolicyFunc(WeightSplit))
	p.Register(PolicyExact, PolicyFunc(ExactSplit))
	return p
}

// Register adds or replaces the policy stored under name.
func (p *Policies) Register(name string, policy Policy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byName[normalizeName(name)] = policy
}

// Lookup returns the policy registered under name. An empty name selects
// the equal policy.
func (p *Policies) Lookup(name string) (Policy, error) {
	key := normalizeName(name)
	if key == "" {
		key = PolicyEqual
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	policy, ok := p.byName[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown split policy %q", models.ErrInvalidArgument, name)
	}
	return policy, nil
}

// Names lists the registered policy names in sorted order.
func (p *Policies) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.byName))
	for name := range p.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// EqualSplit divides amount evenly. params is ignored.
func EqualSplit(amount float64, participants []string, _ map[string]float64) (map[string]float64, error) {
	if err := validateSplitInput(amount, participants); err != nil {
		return nil, err
	}

	share := amount / float64(len(participants))
	shares := make(map[string]float64, len(participants))
	for _, p := range participants {
		shares[p] = share
	}
	return finiteShares(shares)
}

// CustomSplit gives each participant amount × params[p], where params holds
// fractions (0.25 means a quarter). Participants missing from params fall back
// to the equal fraction 1/n. The shares are not required to add up to amount.
func CustomSplit(amount float64, participants []string, params map[string]float64) (map[string]float64, error) {
	if err := validateSplitInput(amount, participants); err != nil {
		return nil, err
	}

	fallback := 1 / float64(len(participants))
	shares := make(map[string]float64, len(participants))
	for _, p := range participants {
		fraction, ok := params[p]
		if !ok {
			fraction = fallback
		}
		if err := checkParam("fraction", p, fraction); err != nil {
			return nil, err
		}
		shares[p] = amount * fraction
	}
	return finiteShares(shares)
}

// WeightSplit divides amount in proportion to params[p]. Participants missing
// from params get weight 1.
func WeightSplit(amount float64, participants []string, params map[string]float64) (map[string]float64, error) {
	if err := validateSplitInput(amount, participants); err != nil {
		return nil, err
	}

	var total float64
	weights := make(map[string]float64, len(participants))
	for _, p := range participants {
		w, ok := params[p]
		if !ok {
			w = 1
		}
		if err := checkParam("weight", p, w); err != nil {
			return nil, err
		}
		weights[p] = w
		total += w
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: weights sum to zero", models.ErrInvalidArgument)
	}
	if math.IsInf(total, 0) {
		return nil, fmt.Errorf("%w: weights sum out of range", models.ErrInvalidArgument)
	}

	shares := make(map[string]float64, len(participants))
	for p, w := range weights {
		shares[p] = amount * w / total
	}
	return finiteShares(shares)
}

// ExactSplit uses params as absolute amounts. Participants missing from params
// owe nothing. The amounts must add up to amount to the cent.
func ExactSplit(amount float64, participants []string, params map[string]float64) (map[string]float64, error) {
	if err := validateSplitInput(amount, participants); err != nil {
		return nil, err
	}

	sum := decimal.Zero
	shares := make(map[string]float64, len(participants))
	for _, p := range participants {
		v := params[p]
		if err := checkParam("amount", p, v); err != nil {
			return nil, err
		}
		shares[p] = v
		sum = sum.Add(decimal.NewFromFloat(v))
	}

	want := decimal.NewFromFloat(amount).Round(2)
	if !sum.Round(2).Equal(want) {
		return nil, fmt.Errorf("%w: exact amounts sum to %s, want %s",
			models.ErrInvalidArgument, sum.Round(2).StringFixed(2), want.StringFixed(2))
	}
	return shares, nil
}

// PercentToFraction converts percentages (0-100) to the fractions CustomSplit
// expects. Callers that collect ratios as percentages must convert before
// splitting.
func PercentToFraction(percent map[string]float64) map[string]float64 {
	fractions := make(map[string]float64, len(percent))
	for p, v := range percent {
		fractions[p] = v / 100
	}
	return fractions
}

// FiniteShares rejects share maps holding NaN or infinite values, which
// cannot be stored or sent to clients.
func FiniteShares(shares map[string]float64) error {
	for p, v := range shares {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: share for %s is not a finite number", models.ErrInvalidArgument, p)
		}
	}
	return nil
}

func finiteShares(shares map[string]float64) (map[string]float64, error) {
	if err := FiniteShares(shares); err != nil {
		return nil, err
	}
	return shares, nil
}

// checkParam requires a policy parameter to be finite and not negative.
func checkParam(kind, participant string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s for %s is not a finite number", models.ErrInvalidArgument, kind, participant)
	}
	if v < 0 {
		return fmt.Errorf("%w: negative %s for %s", models.ErrInvalidArgument, kind, participant)
	}
	return nil
}

func validateSplitInput(amount float64, participants []string) error {
	if len(participants) == 0 {
		return fmt.Errorf("%w: must have at least one participant", models.ErrInvalidArgument)
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: amount must be positive", models.ErrInvalidArgument)
	}
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if p == "" {
			return fmt.Errorf("%w: empty participant id", models.ErrInvalidArgument)
		}
		if seen[p] {
			return fmt.Errorf("%w: duplicate participant %s", models.ErrInvalidArgument, p)
		}
		seen[p] = true
	}
	return nil
}
