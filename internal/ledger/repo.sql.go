package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerlink/ledgerlink/internal/platform/db"
)

// Repository is the Postgres implementation of Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	nickname TEXT NOT NULL DEFAULT '',
	account_type TEXT NOT NULL DEFAULT '',
	currency TEXT NOT NULL DEFAULT 'USD',
	external_ids JSONB NOT NULL DEFAULT '{}',
	balance NUMERIC,
	institution_name TEXT NOT NULL DEFAULT '',
	institution_url TEXT NOT NULL DEFAULT '',
	institution_domain TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transactions (
	id UUID PRIMARY KEY,
	account_id UUID NOT NULL REFERENCES accounts(id),
	external_ids JSONB NOT NULL DEFAULT '{}',
	amount NUMERIC NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	transaction_date DATE NOT NULL,
	posted_date DATE NOT NULL,
	tags TEXT[] NOT NULL DEFAULT '{}',
	parent_id UUID REFERENCES transactions(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_transactions_account_date ON transactions (account_id, transaction_date);
CREATE INDEX IF NOT EXISTS idx_transactions_external_ids ON transactions USING GIN (external_ids);

CREATE TABLE IF NOT EXISTS balance_snapshots (
	id UUID PRIMARY KEY,
	account_id UUID NOT NULL REFERENCES accounts(id),
	balance NUMERIC NOT NULL,
	snapshot_time TIMESTAMP NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_snapshots_account_time ON balance_snapshots (account_id, snapshot_time);

CREATE TABLE IF NOT EXISTS integrations (
	name TEXT PRIMARY KEY,
	options JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate creates the ledger schema when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ledger: migrate: %w", err)
	}
	return nil
}

const accountColumns = `id, name, nickname, account_type, currency, external_ids, balance::text,
institution_name, institution_url, institution_domain, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	var balance *string
	err := row.Scan(&a.ID, &a.Name, &a.Nickname, &a.AccountType, &a.Currency, &a.ExternalIDs, &balance,
		&a.InstitutionName, &a.InstitutionURL, &a.InstitutionDomain, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Account{}, err
	}
	if balance != nil {
		b, err := decimal.NewFromString(*balance)
		if err != nil {
			return Account{}, fmt.Errorf("ledger: parse balance: %w", err)
		}
		a.Balance = &b
	}
	return a, nil
}

// Accounts returns every stored account ordered by name.
func (r *Repository) Accounts(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// AccountByID returns one account or ErrAccountNotFound.
func (r *Repository) AccountByID(ctx context.Context, id uuid.UUID) (Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

// BulkUpsertAccounts inserts or updates accounts keyed by internal id.
// account_type and nickname keep their stored values when the incoming
// account carries none, so user classification survives re-syncs.
func (r *Repository) BulkUpsertAccounts(ctx context.Context, accounts []Account) ([]Account, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, a := range accounts {
			_, err := tx.Exec(ctx, `INSERT INTO accounts (
	id, name, nickname, account_type, currency, external_ids, balance,
	institution_name, institution_url, institution_domain, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
	name = excluded.name,
	nickname = COALESCE(NULLIF(excluded.nickname, ''), accounts.nickname),
	account_type = COALESCE(NULLIF(excluded.account_type, ''), accounts.account_type),
	currency = excluded.currency,
	external_ids = excluded.external_ids,
	balance = excluded.balance,
	institution_name = excluded.institution_name,
	institution_url = excluded.institution_url,
	institution_domain = excluded.institution_domain,
	updated_at = excluded.updated_at`,
				a.ID, a.Name, a.Nickname, a.AccountType, a.Currency, externalIDs(a.ExternalIDs), balanceParam(a.Balance),
				a.InstitutionName, a.InstitutionURL, a.InstitutionDomain, a.CreatedAt, a.UpdatedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

const transactionColumns = `id, account_id, external_ids, amount::text, description,
transaction_date, posted_date, tags, parent_id, created_at, updated_at, deleted_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	var amount string
	err := row.Scan(&t.ID, &t.AccountID, &t.ExternalIDs, &amount, &t.Description,
		&t.TransactionDate, &t.PostedDate, &t.Tags, &t.ParentID, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	if err != nil {
		return Transaction{}, err
	}
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return Transaction{}, fmt.Errorf("ledger: parse amount: %w", err)
	}
	return t, nil
}

// TransactionsByAccount returns all live transactions of one account, most
// recent economic date first.
func (r *Repository) TransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+transactionColumns+` FROM transactions
WHERE account_id=$1 AND deleted_at IS NULL ORDER BY transaction_date DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// TransactionsByExternalIDs performs the batch OR-lookup used by the sync
// reconciler: any transaction whose external_ids contains one of the given
// source/id pairs matches.
func (r *Repository) TransactionsByExternalIDs(ctx context.Context, refs []ExternalIDRef) ([]Transaction, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	clauses := make([]string, 0, len(refs))
	args := make([]any, 0, len(refs))
	for i, ref := range refs {
		clauses = append(clauses, fmt.Sprintf("external_ids @> $%d::jsonb", i+1))
		args = append(args, map[string]string{ref.Source: ref.ID})
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE deleted_at IS NULL AND (` +
		strings.Join(clauses, " OR ") + `)`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// TransactionCountsByFingerprint counts stored transactions per fingerprint.
func (r *Repository) TransactionCountsByFingerprint(ctx context.Context, fingerprints []string) (map[string]int, error) {
	counts := make(map[string]int, len(fingerprints))
	if len(fingerprints) == 0 {
		return counts, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT external_ids->>'fingerprint', COUNT(*)
FROM transactions
WHERE deleted_at IS NULL AND external_ids->>'fingerprint' = ANY($1)
GROUP BY 1`, fingerprints)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var fp string
		var n int
		if err := rows.Scan(&fp, &n); err != nil {
			return nil, err
		}
		counts[fp] = n
	}
	return counts, rows.Err()
}

// MaxTransactionDate reports the latest economic date in the ledger.
func (r *Repository) MaxTransactionDate(ctx context.Context) (time.Time, bool, error) {
	var max *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MAX(transaction_date) FROM transactions WHERE deleted_at IS NULL`).Scan(&max)
	if err != nil {
		return time.Time{}, false, err
	}
	if max == nil {
		return time.Time{}, false, nil
	}
	return *max, true, nil
}

// BulkUpsertTransactions inserts or updates transactions keyed by internal id.
func (r *Repository) BulkUpsertTransactions(ctx context.Context, transactions []Transaction) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, t := range transactions {
			_, err := tx.Exec(ctx, `INSERT INTO transactions (
	id, account_id, external_ids, amount, description, transaction_date, posted_date,
	tags, parent_id, created_at, updated_at, deleted_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
	account_id = excluded.account_id,
	external_ids = excluded.external_ids,
	amount = excluded.amount,
	description = excluded.description,
	transaction_date = excluded.transaction_date,
	posted_date = excluded.posted_date,
	tags = excluded.tags,
	parent_id = excluded.parent_id,
	updated_at = excluded.updated_at,
	deleted_at = excluded.deleted_at`,
				t.ID, t.AccountID, externalIDs(t.ExternalIDs), t.Amount.String(), t.Description,
				t.TransactionDate, t.PostedDate, tags(t.Tags), t.ParentID, t.CreatedAt, t.UpdatedAt, t.DeletedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// AddBalance inserts one balance snapshot.
func (r *Repository) AddBalance(ctx context.Context, s BalanceSnapshot) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO balance_snapshots (
	id, account_id, balance, snapshot_time, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.AccountID, s.Balance.String(), s.SnapshotTime, s.CreatedAt, s.UpdatedAt)
	return err
}

// BalanceSnapshots lists snapshots, optionally filtered by account and by
// calendar day of snapshot_time.
func (r *Repository) BalanceSnapshots(ctx context.Context, accountID *uuid.UUID, day *time.Time) ([]BalanceSnapshot, error) {
	query := `SELECT id, account_id, balance::text, snapshot_time, created_at, updated_at
FROM balance_snapshots WHERE true`
	var args []any
	if accountID != nil {
		args = append(args, *accountID)
		query += fmt.Sprintf(" AND account_id=$%d", len(args))
	}
	if day != nil {
		args = append(args, DateOnly(*day))
		query += fmt.Sprintf(" AND snapshot_time::date=$%d::date", len(args))
	}
	query += " ORDER BY snapshot_time"
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var snapshots []BalanceSnapshot
	for rows.Next() {
		var s BalanceSnapshot
		var balance string
		if err := rows.Scan(&s.ID, &s.AccountID, &balance, &s.SnapshotTime, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if s.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("ledger: parse snapshot balance: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// Integrations lists every configured source.
func (r *Repository) Integrations(ctx context.Context) ([]Integration, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, options, created_at, updated_at FROM integrations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var integrations []Integration
	for rows.Next() {
		var in Integration
		if err := rows.Scan(&in.Name, &in.Options, &in.CreatedAt, &in.UpdatedAt); err != nil {
			return nil, err
		}
		integrations = append(integrations, in)
	}
	return integrations, rows.Err()
}

// UpsertIntegration stores or replaces a source's options.
func (r *Repository) UpsertIntegration(ctx context.Context, name string, options map[string]string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO integrations (name, options, created_at, updated_at)
VALUES ($1,$2,now(),now())
ON CONFLICT (name) DO UPDATE SET options = excluded.options, updated_at = now()`,
		strings.ToLower(name), externalIDs(options))
	return err
}

func collectTransactions(rows pgx.Rows) ([]Transaction, error) {
	var transactions []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func externalIDs(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func tags(t []string) []string {
	if t == nil {
		return []string{}
	}
	return t
}

func balanceParam(b *decimal.Decimal) *string {
	if b == nil {
		return nil
	}
	s := b.String()
	return &s
}
