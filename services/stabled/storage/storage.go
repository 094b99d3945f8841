package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/glebarez/sqlite"
	"github.com/google/uuid"

	stable "stablecore/native/stable"
)

// Storage wraps the stabled audit persistence layer.
type Storage struct {
	db *sql.DB
}

// ErrPathRequired is returned when the backing store path is missing.
var ErrPathRequired = errors.New("stabled storage path must be configured")

// filePragmas keeps the audit log durable under concurrent writers: WAL
// journaling plus a busy timeout instead of immediate lock errors.
const filePragmas = "mode=rwc&_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"

// FileDSN builds the DSN for a receipt database at the given path. The path
// is resolved to an absolute one so the daemon's working directory does not
// decide where the audit log lands.
func FileDSN(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", ErrPathRequired
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve storage path: %w", err)
	}
	return "file:" + abs + "?" + filePragmas, nil
}

// Open initialises the backing store using a sqlite-compatible DSN.
func Open(dsn string) (*Storage, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, ErrPathRequired
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close releases database resources.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS mint_receipts (
    id TEXT PRIMARY KEY,
    user TEXT NOT NULL,
    benefactor TEXT NOT NULL,
    collateral_mint TEXT NOT NULL,
    amount TEXT NOT NULL,
    fee_amount TEXT NOT NULL,
    net_amount TEXT NOT NULL,
    oracle_price INTEGER NOT NULL,
    one_to_one_amount TEXT NOT NULL,
    oracle_amount TEXT NOT NULL,
    result_amount TEXT NOT NULL,
    occurred_at INTEGER NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mint_receipts_vault_ts ON mint_receipts(collateral_mint, occurred_at);

CREATE TABLE IF NOT EXISTS redeem_receipts (
    id TEXT PRIMARY KEY,
    user TEXT NOT NULL,
    benefactor TEXT NOT NULL,
    collateral_mint TEXT NOT NULL,
    amount TEXT NOT NULL,
    fee_amount TEXT NOT NULL,
    net_amount TEXT NOT NULL,
    oracle_price INTEGER NOT NULL,
    one_to_one_amount TEXT NOT NULL,
    oracle_amount TEXT NOT NULL,
    result_amount TEXT NOT NULL,
    occurred_at INTEGER NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_redeem_receipts_vault_ts ON redeem_receipts(collateral_mint, occurred_at);

CREATE TABLE IF NOT EXISTS oracle_samples (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    vault TEXT NOT NULL,
    price_usd INTEGER NOT NULL,
    observed_at INTEGER NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_oracle_samples_vault_ts ON oracle_samples(vault, observed_at);
`

// ReceiptRecord is the stored form of an engine receipt.
type ReceiptRecord struct {
	ID             string
	User           string
	Benefactor     string
	CollateralMint string
	Amount         string
	FeeAmount      string
	NetAmount      string
	OraclePriceUSD uint64
	OneToOneAmount string
	OracleAmount   string
	ResultAmount   string
	OccurredAtUnix int64
	RecordedAt     time.Time
}

// RecordMint persists a mint receipt and returns its generated identifier.
func (s *Storage) RecordMint(ctx context.Context, receipt stable.MintReceipt) (string, error) {
	if s == nil {
		return "", fmt.Errorf("storage not configured")
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO mint_receipts(id, user, benefactor, collateral_mint, amount, fee_amount, net_amount,
            oracle_price, one_to_one_amount, oracle_amount, result_amount, occurred_at, recorded_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, id, receipt.User.Hex(), receipt.Benefactor.Hex(), receipt.CollateralMint.Hex(),
		formatAmount(receipt.Amount), formatAmount(receipt.FeeAmount), formatAmount(receipt.NetAmount),
		receipt.OraclePriceUSD, formatAmount(receipt.OneToOneAmount), formatAmount(receipt.OracleAmount),
		formatAmount(receipt.MintAmount), receipt.Timestamp, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("insert mint receipt: %w", err)
	}
	return id, nil
}

// RecordRedeem persists a redeem receipt and returns its generated identifier.
func (s *Storage) RecordRedeem(ctx context.Context, receipt stable.RedeemReceipt) (string, error) {
	if s == nil {
		return "", fmt.Errorf("storage not configured")
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO redeem_receipts(id, user, benefactor, collateral_mint, amount, fee_amount, net_amount,
            oracle_price, one_to_one_amount, oracle_amount, result_amount, occurred_at, recorded_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, id, receipt.User.Hex(), receipt.Benefactor.Hex(), receipt.CollateralMint.Hex(),
		formatAmount(receipt.Amount), formatAmount(receipt.FeeAmount), formatAmount(receipt.NetAmount),
		receipt.OraclePriceUSD, formatAmount(receipt.OneToOneAmount), formatAmount(receipt.OracleAmount),
		formatAmount(receipt.RedeemAmount), receipt.Timestamp, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("insert redeem receipt: %w", err)
	}
	return id, nil
}

// ListMints returns the most recent mint receipts, newest first.
func (s *Storage) ListMints(ctx context.Context, limit int) ([]ReceiptRecord, error) {
	return s.listReceipts(ctx, "mint_receipts", limit)
}

// ListRedeems returns the most recent redeem receipts, newest first.
func (s *Storage) ListRedeems(ctx context.Context, limit int) ([]ReceiptRecord, error) {
	return s.listReceipts(ctx, "redeem_receipts", limit)
}

func (s *Storage) listReceipts(ctx context.Context, table string, limit int) ([]ReceiptRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("storage not configured")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
        SELECT id, user, benefactor, collateral_mint, amount, fee_amount, net_amount,
               oracle_price, one_to_one_amount, oracle_amount, result_amount, occurred_at, recorded_at
        FROM %s
        ORDER BY occurred_at DESC, id DESC
        LIMIT ?
    `, table), limit)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()
	records := make([]ReceiptRecord, 0, limit)
	for rows.Next() {
		var rec ReceiptRecord
		if err := rows.Scan(&rec.ID, &rec.User, &rec.Benefactor, &rec.CollateralMint,
			&rec.Amount, &rec.FeeAmount, &rec.NetAmount, &rec.OraclePriceUSD,
			&rec.OneToOneAmount, &rec.OracleAmount, &rec.ResultAmount,
			&rec.OccurredAtUnix, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return records, nil
}

// Summary aggregates receipt counts and volumes per flow.
type Summary struct {
	MintCount    int64
	RedeemCount  int64
	MintVolume   *big.Int
	RedeemVolume *big.Int
}

// Summarize tallies counts and result-amount volumes across both tables.
func (s *Storage) Summarize(ctx context.Context) (Summary, error) {
	summary := Summary{MintVolume: big.NewInt(0), RedeemVolume: big.NewInt(0)}
	if s == nil {
		return summary, fmt.Errorf("storage not configured")
	}
	var err error
	summary.MintCount, summary.MintVolume, err = s.tally(ctx, "mint_receipts")
	if err != nil {
		return summary, err
	}
	summary.RedeemCount, summary.RedeemVolume, err = s.tally(ctx, "redeem_receipts")
	if err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *Storage) tally(ctx context.Context, table string) (int64, *big.Int, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT result_amount FROM %s`, table))
	if err != nil {
		return 0, nil, fmt.Errorf("query volumes: %w", err)
	}
	defer rows.Close()
	count := int64(0)
	volume := big.NewInt(0)
	for rows.Next() {
		var stored string
		if err := rows.Scan(&stored); err != nil {
			return 0, nil, fmt.Errorf("scan volume: %w", err)
		}
		count++
		amount := new(big.Int)
		if _, ok := amount.SetString(strings.TrimSpace(stored), 10); ok {
			volume.Add(volume, amount)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("iterate volumes: %w", err)
	}
	return count, volume, nil
}

// OracleSample is one observed aggregated price for a vault.
type OracleSample struct {
	Vault          string
	PriceUSD       uint64
	ObservedAtUnix int64
	RecordedAt     time.Time
}

// RecordOracleSample appends a price observation to the vault's history.
func (s *Storage) RecordOracleSample(ctx context.Context, vault string, priceUSD uint64, observedAt int64) error {
	if s == nil {
		return fmt.Errorf("storage not configured")
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO oracle_samples(vault, price_usd, observed_at, recorded_at)
        VALUES(?, ?, ?, ?)
    `, strings.TrimSpace(vault), priceUSD, observedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert oracle sample: %w", err)
	}
	return nil
}

// LatestOracleSample returns the most recent price observation for a vault.
func (s *Storage) LatestOracleSample(ctx context.Context, vault string) (OracleSample, bool, error) {
	sample := OracleSample{Vault: strings.TrimSpace(vault)}
	if s == nil {
		return sample, false, fmt.Errorf("storage not configured")
	}
	row := s.db.QueryRowContext(ctx, `
        SELECT price_usd, observed_at, recorded_at
        FROM oracle_samples
        WHERE vault = ?
        ORDER BY observed_at DESC, id DESC
        LIMIT 1
    `, sample.Vault)
	if err := row.Scan(&sample.PriceUSD, &sample.ObservedAtUnix, &sample.RecordedAt); err != nil {
		if err == sql.ErrNoRows {
			return sample, false, nil
		}
		return sample, false, fmt.Errorf("query oracle sample: %w", err)
	}
	return sample, true, nil
}

// PruneReceipts deletes receipts that occurred before the cutoff and returns
// the number of rows removed.
func (s *Storage) PruneReceipts(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("storage not configured")
	}
	removed := int64(0)
	for _, table := range []string{"mint_receipts", "redeem_receipts"} {
		result, err := s.db.ExecContext(ctx, fmt.Sprintf(`
            DELETE FROM %s WHERE occurred_at < ?
        `, table), cutoff.UTC().Unix())
		if err != nil {
			return removed, fmt.Errorf("prune receipts: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return removed, fmt.Errorf("rows affected: %w", err)
		}
		removed += affected
	}
	if _, err := s.db.ExecContext(ctx, `
        DELETE FROM oracle_samples WHERE observed_at < ?
    `, cutoff.UTC().Unix()); err != nil {
		return removed, fmt.Errorf("prune oracle samples: %w", err)
	}
	return removed, nil
}

func formatAmount(amount uint64) string {
	return new(big.Int).SetUint64(amount).String()
}
