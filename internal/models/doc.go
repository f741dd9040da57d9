// Package models defines the core domain models for budgetwise.
//
// # Models
//
//   - User: Registered account; its ID is the participant identity used everywhere else
//   - Group: Named set of participants sharing expenses
//   - Entry: One shared expense with a payer and per-participant shares
//   - Balance: Pairwise running total between two participants of a group
//   - Payment: A settling transfer from one participant to another
//
// # Design Principles
//
// 1. **IDs, not pointers**: Relationships use participant and group ID strings
// 2. **Append-only entries**: Only an entry's PaidStatus changes after creation
// 3. **One row per pair**: A Balance is stored once per unordered pair, so
// balance(A,B) = -balance(B,A) holds by construction
package models
