package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/life2you_mini/cycle/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	wallet_address TEXT NOT NULL UNIQUE,
	agent_wallet   TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'paused',
	created_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	id             TEXT PRIMARY KEY,
	user_id        INTEGER NOT NULL REFERENCES users(id),
	symbol         TEXT NOT NULL,
	direction      TEXT NOT NULL,
	entry_price    REAL NOT NULL,
	size           REAL NOT NULL,
	tp1            REAL NOT NULL DEFAULT 0,
	tp2            REAL NOT NULL DEFAULT 0,
	sl             REAL NOT NULL DEFAULT 0,
	status         TEXT NOT NULL,
	venue_order_id TEXT NOT NULL DEFAULT '',
	created_at     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_user_created ON trades (user_id, created_at);
`

// SQLiteStore 单机SQLite存储，时间以毫秒时间戳保存
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore 打开SQLite数据库，path为":memory:"时使用内存库
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开SQLite失败: %w", err)
	}
	// 单连接避免写锁冲突，内存库也依赖同一连接
	db.SetMaxOpenConns(1)

	return &SQLiteStore{db: db}, nil
}

// Initialize 建表
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("设置SQLite参数失败: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("SQLite建表失败: %w", err)
	}
	return nil
}

// Close 关闭数据库
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddAccount 新增账户
func (s *SQLiteStore) AddAccount(ctx context.Context, account *models.Account) (int64, error) {
	createdAt := account.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (wallet_address, agent_wallet, status, created_at) VALUES (?, ?, ?, ?)`,
		account.WalletAddress, account.AgentWallet, account.Status, createdAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("新增账户失败: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("获取账户ID失败: %w", err)
	}
	account.ID = id
	account.CreatedAt = time.UnixMilli(createdAt.UnixMilli())
	return id, nil
}

// ListTradingEnabledAccounts 查询状态为trading的账户
func (s *SQLiteStore) ListTradingEnabledAccounts(ctx context.Context) ([]*models.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, wallet_address, agent_wallet, status, created_at FROM users WHERE status = ? ORDER BY id`,
		models.AccountStatusTrading,
	)
	if err != nil {
		return nil, fmt.Errorf("查询交易账户失败: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		var (
			a         models.Account
			createdAt int64
		)
		if err := rows.Scan(&a.ID, &a.WalletAddress, &a.AgentWallet, &a.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("读取账户失败: %w", err)
		}
		a.CreatedAt = time.UnixMilli(createdAt)
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

// AppendTradeRecord 追加交易记录
func (s *SQLiteStore) AppendTradeRecord(ctx context.Context, r *models.TradeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, user_id, symbol, direction, entry_price, size, tp1, tp2, sl, status, venue_order_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		r.ID, r.AccountID, r.Symbol, r.Direction, r.EntryPrice, r.Size,
		r.TP1, r.TP2, r.SL, r.Status, r.VenueOrderID, r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("写入交易记录失败: %w", err)
	}
	return nil
}

// ListTrades 查询账户的交易记录
func (s *SQLiteStore) ListTrades(ctx context.Context, accountID int64) ([]*models.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, symbol, direction, entry_price, size, tp1, tp2, sl, status, venue_order_id, created_at
		FROM trades WHERE user_id = ? ORDER BY created_at, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("查询交易记录失败: %w", err)
	}
	defer rows.Close()

	var records []*models.TradeRecord
	for rows.Next() {
		var (
			r         models.TradeRecord
			createdAt int64
		)
		if err := rows.Scan(&r.ID, &r.AccountID, &r.Symbol, &r.Direction, &r.EntryPrice, &r.Size,
			&r.TP1, &r.TP2, &r.SL, &r.Status, &r.VenueOrderID, &createdAt); err != nil {
			return nil, fmt.Errorf("读取交易记录失败: %w", err)
		}
		r.CreatedAt = time.UnixMilli(createdAt)
		records = append(records, &r)
	}
	return records, rows.Err()
}
