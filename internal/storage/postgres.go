package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/life2you_mini/cycle/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id             BIGSERIAL PRIMARY KEY,
	wallet_address TEXT NOT NULL UNIQUE,
	agent_wallet   TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'paused',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS trades (
	id             TEXT PRIMARY KEY,
	user_id        BIGINT NOT NULL REFERENCES users(id),
	symbol         TEXT NOT NULL,
	direction      TEXT NOT NULL,
	entry_price    NUMERIC(30, 10) NOT NULL,
	size           NUMERIC(30, 10) NOT NULL,
	tp1            NUMERIC(30, 10) NOT NULL DEFAULT 0,
	tp2            NUMERIC(30, 10) NOT NULL DEFAULT 0,
	sl             NUMERIC(30, 10) NOT NULL DEFAULT 0,
	status         TEXT NOT NULL,
	venue_order_id TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_trades_user_created ON trades (user_id, created_at);
`

// PostgresStore 基于pgxpool的存储
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore 创建PostgreSQL存储
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("连接PostgreSQL失败: %w", err)
	}
	return NewPostgresStoreFromPool(pool), nil
}

// NewPostgresStoreFromPool 使用已有连接池创建存储
func NewPostgresStoreFromPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Initialize 检查连接并建表
func (s *PostgresStore) Initialize(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("PostgreSQL连接检查失败: %w", err)
	}
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("PostgreSQL建表失败: %w", err)
	}
	return nil
}

// Close 关闭连接池
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// AddAccount 新增账户
func (s *PostgresStore) AddAccount(ctx context.Context, account *models.Account) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (wallet_address, agent_wallet, status) VALUES ($1, $2, $3) RETURNING id`,
		account.WalletAddress, account.AgentWallet, account.Status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("新增账户失败: %w", err)
	}
	account.ID = id
	return id, nil
}

// ListTradingEnabledAccounts 查询状态为trading的账户
func (s *PostgresStore) ListTradingEnabledAccounts(ctx context.Context) ([]*models.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, wallet_address, agent_wallet, status, created_at FROM users WHERE status = $1 ORDER BY id`,
		models.AccountStatusTrading,
	)
	if err != nil {
		return nil, fmt.Errorf("查询交易账户失败: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.WalletAddress, &a.AgentWallet, &a.Status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("读取账户失败: %w", err)
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

// AppendTradeRecord 追加交易记录
func (s *PostgresStore) AppendTradeRecord(ctx context.Context, r *models.TradeRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trades (id, user_id, symbol, direction, entry_price, size, tp1, tp2, sl, status, venue_order_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`,
		r.ID, r.AccountID, r.Symbol, r.Direction, r.EntryPrice, r.Size,
		r.TP1, r.TP2, r.SL, r.Status, r.VenueOrderID, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("写入交易记录失败: %w", err)
	}
	return nil
}

// ListTrades 查询账户的交易记录
func (s *PostgresStore) ListTrades(ctx context.Context, accountID int64) ([]*models.TradeRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, symbol, direction, entry_price, size, tp1, tp2, sl, status, venue_order_id, created_at
		FROM trades WHERE user_id = $1 ORDER BY created_at, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("查询交易记录失败: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.TradeRecord, error) {
		var r models.TradeRecord
		err := row.Scan(&r.ID, &r.AccountID, &r.Symbol, &r.Direction, &r.EntryPrice, &r.Size,
			&r.TP1, &r.TP2, &r.SL, &r.Status, &r.VenueOrderID, &r.CreatedAt)
		return &r, err
	})
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("读取交易记录失败: %w", err)
	}
	return records, nil
}
