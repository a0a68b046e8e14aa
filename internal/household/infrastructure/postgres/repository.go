package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	household "homevault/internal/household/domain"
)

const (
	defaultAccountsTable  = "accounts"
	defaultMembersTable   = "account_members"
	defaultPortfolioTable = "account_portfolio"
	defaultBalancesTable  = "account_balances"
)

// AccountRepository is a Postgres implementation of the account repository.
// Save rewrites the member, portfolio and balance rows inside one transaction.
type AccountRepository struct {
	db             *sql.DB
	accountsTable  string
	membersTable   string
	portfolioTable string
	balancesTable  string
}

// Option configures the repository.
type Option func(*AccountRepository)

// WithAccountsTable overrides the accounts table name.
func WithAccountsTable(table string) Option {
	return func(r *AccountRepository) {
		if table != "" {
			r.accountsTable = table
		}
	}
}

// NewAccountRepository constructs a repository.
func NewAccountRepository(db *sql.DB, opts ...Option) *AccountRepository {
	repo := &AccountRepository{
		db:             db,
		accountsTable:  defaultAccountsTable,
		membersTable:   defaultMembersTable,
		portfolioTable: defaultPortfolioTable,
		balancesTable:  defaultBalancesTable,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// FindByID loads an account with its members, portfolio and balances.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*household.Account, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("account repo: nil db")
	}
	if id == "" {
		return nil, household.ErrEmptyAccountID
	}

	query := fmt.Sprintf(`
SELECT owner, settlement_asset, settlement_feed
FROM %s
WHERE id = $1`, r.accountsTable)

	var owner, settlementAsset, settlementFeed string
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&owner, &settlementAsset, &settlementFeed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	members, roles, err := r.loadMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	portfolio, err := r.loadPortfolio(ctx, id)
	if err != nil {
		return nil, err
	}
	balances, err := r.loadBalances(ctx, id)
	if err != nil {
		return nil, err
	}

	return household.Restore(id, owner, members, roles, portfolio, settlementAsset, settlementFeed, balances)
}

// Save persists the full account state.
func (r *AccountRepository) Save(ctx context.Context, account *household.Account) error {
	if r == nil || r.db == nil {
		return errors.New("account repo: nil db")
	}
	if account == nil {
		return household.ErrNilAccount
	}
	if account.ID() == "" {
		return household.ErrEmptyAccountID
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	settlementAsset, settlementFeed := account.Settlement()
	upsert := fmt.Sprintf(`
INSERT INTO %s (id, owner, settlement_asset, settlement_feed)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id)
DO UPDATE SET settlement_asset = EXCLUDED.settlement_asset, settlement_feed = EXCLUDED.settlement_feed`, r.accountsTable)
	if _, err := tx.ExecContext(ctx, upsert, account.ID(), account.Owner(), settlementAsset, settlementFeed); err != nil {
		return err
	}

	if err := r.rewriteMembers(ctx, tx, account); err != nil {
		return err
	}
	if err := r.rewritePortfolio(ctx, tx, account); err != nil {
		return err
	}
	if err := r.rewriteBalances(ctx, tx, account); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	account.MarkPersisted()
	return nil
}

func (r *AccountRepository) loadMembers(ctx context.Context, id string) ([]string, map[string]household.RoleSet, error) {
	query := fmt.Sprintf(`
SELECT principal, roles
FROM %s
WHERE account_id = $1`, r.membersTable)

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var members []string
	roles := make(map[string]household.RoleSet)
	for rows.Next() {
		var principal string
		var roleBits int
		if err := rows.Scan(&principal, &roleBits); err != nil {
			return nil, nil, err
		}
		members = append(members, principal)
		if roleBits != 0 {
			roles[principal] = household.RoleSet(roleBits)
		}
	}
	return members, roles, rows.Err()
}

func (r *AccountRepository) loadPortfolio(ctx context.Context, id string) ([]household.PortfolioEntry, error) {
	query := fmt.Sprintf(`
SELECT asset_id, price_feed_id
FROM %s
WHERE account_id = $1
ORDER BY position ASC`, r.portfolioTable)

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []household.PortfolioEntry
	for rows.Next() {
		var entry household.PortfolioEntry
		if err := rows.Scan(&entry.AssetID, &entry.PriceFeedID); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *AccountRepository) loadBalances(ctx context.Context, id string) (map[string]decimal.Decimal, error) {
	query := fmt.Sprintf(`
SELECT asset_id, balance
FROM %s
WHERE account_id = $1`, r.balancesTable)

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make(map[string]decimal.Decimal)
	for rows.Next() {
		var asset, raw string
		if err := rows.Scan(&asset, &raw); err != nil {
			return nil, err
		}
		balance, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		balances[asset] = balance
	}
	return balances, rows.Err()
}

func (r *AccountRepository) rewriteMembers(ctx context.Context, tx *sql.Tx, account *household.Account) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE account_id = $1`, r.membersTable), account.ID()); err != nil {
		return err
	}
	insert := fmt.Sprintf(`
INSERT INTO %s (account_id, principal, roles)
VALUES ($1, $2, $3)`, r.membersTable)
	for _, principal := range account.Members() {
		if _, err := tx.ExecContext(ctx, insert, account.ID(), principal, int(account.RoleBits(principal))); err != nil {
			return err
		}
	}
	return nil
}

func (r *AccountRepository) rewritePortfolio(ctx context.Context, tx *sql.Tx, account *household.Account) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE account_id = $1`, r.portfolioTable), account.ID()); err != nil {
		return err
	}
	insert := fmt.Sprintf(`
INSERT INTO %s (account_id, position, asset_id, price_feed_id)
VALUES ($1, $2, $3, $4)`, r.portfolioTable)
	for position, entry := range account.Portfolio() {
		if _, err := tx.ExecContext(ctx, insert, account.ID(), position, entry.AssetID, entry.PriceFeedID); err != nil {
			return err
		}
	}
	return nil
}

func (r *AccountRepository) rewriteBalances(ctx context.Context, tx *sql.Tx, account *household.Account) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE account_id = $1`, r.balancesTable), account.ID()); err != nil {
		return err
	}
	insert := fmt.Sprintf(`
INSERT INTO %s (account_id, asset_id, balance)
VALUES ($1, $2, $3)`, r.balancesTable)
	for asset, balance := range account.Balances() {
		if _, err := tx.ExecContext(ctx, insert, account.ID(), asset, balance.String()); err != nil {
			return err
		}
	}
	return nil
}
