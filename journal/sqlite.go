package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStore 使用 Gorm + SQLite 持久化划转流水。
// Close 与读写互斥，关闭后的调用返回 ErrClosed。
type SQLiteStore struct {
	mu sync.RWMutex
	db *gorm.DB
}

type transferModel struct {
	Seq         uint64    `gorm:"column:seq;primaryKey;autoIncrement"`
	ID          string    `gorm:"column:id;size:36;uniqueIndex"`
	Symbol      string    `gorm:"column:symbol;size:32;index"`
	Amount      string    `gorm:"column:amount"`
	FromAccount string    `gorm:"column:from_account;size:16"`
	ToAccount   string    `gorm:"column:to_account;size:16"`
	Status      string    `gorm:"column:status;size:16"`
	Reason      string    `gorm:"column:reason"`
	CreatedAt   time.Time `gorm:"column:created_at;index"`
}

func (transferModel) TableName() string { return "transfer_journal" }

// NewSQLiteStore 打开（必要时创建）数据库文件并迁移表结构。
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal: database path is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal: create dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	if err := db.AutoMigrate(&transferModel{}); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	if s == nil {
		return ErrClosed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}
	m := transferModel{
		ID:          rec.ID,
		Symbol:      rec.Symbol,
		Amount:      rec.Amount.String(),
		FromAccount: rec.From,
		ToAccount:   rec.To,
		Status:      string(rec.Status),
		Reason:      rec.Reason,
		CreatedAt:   rec.CreatedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("journal: append %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Record, error) {
	if s == nil {
		return nil, ErrClosed
	}
	s.mu.RLock()
	if s.db == nil {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	var rows []transferModel
	err := s.db.WithContext(ctx).
		Order("seq DESC").
		Limit(normalizeLimit(limit)).
		Find(&rows).Error
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		amount, err := decimal.NewFromString(row.Amount)
		if err != nil {
			return nil, fmt.Errorf("journal: record %s amount %q: %w", row.ID, row.Amount, err)
		}
		out = append(out, Record{
			ID:        row.ID,
			Symbol:    row.Symbol,
			Amount:    amount,
			From:      row.FromAccount,
			To:        row.ToAccount,
			Status:    Status(row.Status),
			Reason:    row.Reason,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

// Close 关闭底层连接。
func (s *SQLiteStore) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.db = nil
	return sqlDB.Close()
}
