package household

import (
	"github.com/shopspring/decimal"
)

// PortfolioEntry pairs a liquidatable asset with its price feed.
type PortfolioEntry struct {
	AssetID     string
	PriceFeedID string
}

// Account is the household treasury aggregate root.
// The owner is fixed at creation, is always a member and holds every role.
// Treasury balances are denominated in asset base units and are mutated only
// through Credit/Debit by the payment engine and deposit flow.
type Account struct {
	id    string
	owner string

	members map[string]struct{}
	roles   map[string]RoleSet

	portfolio []PortfolioEntry

	settlementAsset string
	settlementFeed  string

	balances map[string]decimal.Decimal

	isNew bool
}

// NewAccount creates an account with its owner and settlement configuration.
func NewAccount(id, owner, settlementAsset, settlementFeed string) (*Account, error) {
	if id == "" {
		return nil, ErrEmptyAccountID
	}
	if owner == "" {
		return nil, ErrEmptyPrincipal
	}
	if settlementAsset == "" {
		return nil, ErrZeroAsset
	}
	return &Account{
		id:              id,
		owner:           owner,
		members:         map[string]struct{}{owner: {}},
		roles:           make(map[string]RoleSet),
		settlementAsset: settlementAsset,
		settlementFeed:  settlementFeed,
		balances:        make(map[string]decimal.Decimal),
		isNew:           true,
	}, nil
}

// ID returns the account identity.
func (a *Account) ID() string { return a.id }

// Owner returns the owner principal.
func (a *Account) Owner() string { return a.owner }

// IsMember reports account membership. The owner is always a member.
func (a *Account) IsMember(principal string) bool {
	if principal == "" {
		return false
	}
	if principal == a.owner {
		return true
	}
	_, ok := a.members[principal]
	return ok
}

// HasRole reports whether the principal holds the role.
// The owner's authority is structural and independent of explicit role bits.
func (a *Account) HasRole(principal string, role Role) bool {
	if _, valid := NormalizeRole(string(role)); !valid {
		return false
	}
	if principal == a.owner {
		return true
	}
	if !a.IsMember(principal) {
		return false
	}
	return a.roles[principal].Has(role)
}

// AddMember adds a principal; any existing member may call it.
func (a *Account) AddMember(caller, principal string) error {
	if !a.IsMember(caller) {
		return ErrNotMember
	}
	if principal == "" {
		return ErrEmptyPrincipal
	}
	if a.IsMember(principal) {
		return ErrAlreadyMember
	}
	a.members[principal] = struct{}{}
	return nil
}

// RemoveMember removes a principal; only trusted members may call it.
// Removing a member also discards any roles it held.
func (a *Account) RemoveMember(caller, principal string) error {
	if principal == a.owner {
		return ErrCannotRemoveOwner
	}
	if !a.HasRole(caller, RoleTrusted) {
		return ErrNotAuthorized
	}
	if !a.IsMember(principal) {
		return ErrNotMember
	}
	delete(a.members, principal)
	delete(a.roles, principal)
	return nil
}

// GrantRole grants a role to a member; owner only.
func (a *Account) GrantRole(caller, principal string, role Role) error {
	if caller != a.owner {
		return ErrNotAuthorized
	}
	if _, valid := NormalizeRole(string(role)); !valid {
		return ErrUnknownRole
	}
	if principal == a.owner {
		return ErrCannotModifyOwnerRole
	}
	if !a.IsMember(principal) {
		return ErrNotMember
	}
	a.roles[principal] = a.roles[principal].Grant(role)
	return nil
}

// RevokeRole revokes a role from a member; owner only.
func (a *Account) RevokeRole(caller, principal string, role Role) error {
	if caller != a.owner {
		return ErrNotAuthorized
	}
	if _, valid := NormalizeRole(string(role)); !valid {
		return ErrUnknownRole
	}
	if principal == a.owner {
		return ErrCannotModifyOwnerRole
	}
	if !a.IsMember(principal) {
		return ErrNotMember
	}
	a.roles[principal] = a.roles[principal].Revoke(role)
	return nil
}

// Members returns the member principals, owner included.
func (a *Account) Members() []string {
	result := make([]string, 0, len(a.members))
	for member := range a.members {
		result = append(result, member)
	}
	return result
}

// AddAsset appends a portfolio entry; operators only.
// Uniqueness is enforced before insertion.
func (a *Account) AddAsset(caller, assetID, priceFeedID string) error {
	if !a.HasRole(caller, RoleOperator) {
		return ErrNotAuthorized
	}
	if assetID == "" {
		return ErrZeroAsset
	}
	for _, entry := range a.portfolio {
		if entry.AssetID == assetID {
			return ErrAssetExists
		}
	}
	a.portfolio = append(a.portfolio, PortfolioEntry{AssetID: assetID, PriceFeedID: priceFeedID})
	return nil
}

// RemoveAsset removes the entry at index; operators only.
// Removal swaps with the last entry and truncates, so index stability
// is not guaranteed across removals.
func (a *Account) RemoveAsset(caller string, index int) error {
	if !a.HasRole(caller, RoleOperator) {
		return ErrNotAuthorized
	}
	if index < 0 || index >= len(a.portfolio) {
		return ErrInvalidIndex
	}
	last := len(a.portfolio) - 1
	a.portfolio[index] = a.portfolio[last]
	a.portfolio = a.portfolio[:last]
	return nil
}

// Portfolio returns a copy of the ordered portfolio entries.
func (a *Account) Portfolio() []PortfolioEntry {
	return append([]PortfolioEntry(nil), a.portfolio...)
}

// SetSettlement updates the settlement asset and feed; owner only.
func (a *Account) SetSettlement(caller, assetID, priceFeedID string) error {
	if caller != a.owner {
		return ErrNotAuthorized
	}
	if assetID == "" {
		return ErrZeroAsset
	}
	if assetID == a.settlementAsset && priceFeedID == a.settlementFeed {
		return ErrNoChange
	}
	a.settlementAsset = assetID
	a.settlementFeed = priceFeedID
	return nil
}

// Settlement returns the settlement asset and its price feed.
func (a *Account) Settlement() (assetID, priceFeedID string) {
	return a.settlementAsset, a.settlementFeed
}

// RoleBits returns the explicit role bits granted to a principal.
// The owner's structural authority is not reflected here.
func (a *Account) RoleBits(principal string) RoleSet {
	return a.roles[principal]
}

// Balances returns a copy of all non-zero treasury balances.
func (a *Account) Balances() map[string]decimal.Decimal {
	result := make(map[string]decimal.Decimal, len(a.balances))
	for asset, balance := range a.balances {
		if balance.Sign() != 0 {
			result[asset] = balance
		}
	}
	return result
}

// Balance returns the treasury balance for an asset.
func (a *Account) Balance(assetID string) decimal.Decimal {
	if balance, ok := a.balances[assetID]; ok {
		return balance
	}
	return decimal.Zero
}

// Credit increases the treasury balance for an asset.
func (a *Account) Credit(assetID string, amount decimal.Decimal) error {
	if assetID == "" {
		return ErrZeroAsset
	}
	if amount.Sign() <= 0 {
		return ErrNegativeAmount
	}
	a.balances[assetID] = a.Balance(assetID).Add(amount)
	return nil
}

// Debit decreases the treasury balance for an asset.
func (a *Account) Debit(assetID string, amount decimal.Decimal) error {
	if assetID == "" {
		return ErrZeroAsset
	}
	if amount.Sign() <= 0 {
		return ErrNegativeAmount
	}
	balance := a.Balance(assetID)
	if balance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	a.balances[assetID] = balance.Sub(amount)
	return nil
}

// IsNew reports whether the account was freshly created.
func (a *Account) IsNew() bool { return a.isNew }

// MarkPersisted marks the account as persisted.
func (a *Account) MarkPersisted() {
	if a != nil {
		a.isNew = false
	}
}

// Clone returns a detached copy marked as persisted.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{
		id:              a.id,
		owner:           a.owner,
		members:         make(map[string]struct{}, len(a.members)),
		roles:           make(map[string]RoleSet, len(a.roles)),
		portfolio:       append([]PortfolioEntry(nil), a.portfolio...),
		settlementAsset: a.settlementAsset,
		settlementFeed:  a.settlementFeed,
		balances:        make(map[string]decimal.Decimal, len(a.balances)),
	}
	for member := range a.members {
		clone.members[member] = struct{}{}
	}
	for principal, set := range a.roles {
		clone.roles[principal] = set
	}
	for asset, balance := range a.balances {
		clone.balances[asset] = balance
	}
	return clone
}

// Restore rebuilds an account from persisted state.
func Restore(id, owner string, members []string, roles map[string]RoleSet, portfolio []PortfolioEntry, settlementAsset, settlementFeed string, balances map[string]decimal.Decimal) (*Account, error) {
	account, err := NewAccount(id, owner, settlementAsset, settlementFeed)
	if err != nil {
		return nil, err
	}
	account.settlementFeed = settlementFeed
	for _, member := range members {
		if member != "" {
			account.members[member] = struct{}{}
		}
	}
	for principal, set := range roles {
		if principal != "" && principal != owner {
			account.roles[principal] = set
		}
	}
	account.portfolio = append([]PortfolioEntry(nil), portfolio...)
	for asset, balance := range balances {
		if asset != "" {
			account.balances[asset] = balance
		}
	}
	account.isNew = false
	return account, nil
}
