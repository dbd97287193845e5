package ledger

import (
	"context"
	"errors"
	"fmt"

	"social_network/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Totals is the grouped aggregation of a wallet's ledger entries
type Totals struct {
	Sent     decimal.Decimal `gorm:"column:sent"`
	Received decimal.Decimal `gorm:"column:received"`
	Count    int64           `gorm:"column:tx_count"`
}

// Store is the persistence the ledger needs. Debit and Credit report false
// when no row matched.
type Store interface {
	UserExists(ctx context.Context, userID uint) (bool, error)
	WalletByUser(ctx context.Context, userID uint) (*domain.Wallet, error)
	Wallet(ctx context.Context, walletID string) (*domain.Wallet, error)
	CreateWallet(ctx context.Context, w *domain.Wallet) error
	Debit(ctx context.Context, walletID string, amount decimal.Decimal) (bool, error)
	Credit(ctx context.Context, walletID string, amount decimal.Decimal) (bool, error)
	Append(ctx context.Context, entry *domain.Transaction) error
	Totals(ctx context.Context, walletID string) (Totals, error)
	Entries(ctx context.Context, walletID string, limit int) ([]domain.Transaction, error)
	// WithinTx runs fn against a transactional view of the store, committing
	// when fn returns nil. It returns ErrTxUnsupported without calling fn
	// when transactions are unavailable.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// GormStore implements Store with gorm
type GormStore struct {
	db        *gorm.DB
	txEnabled bool
}

// NewGormStore builds a Store. txEnabled=false forces the compensating
// transfer path, for engines without multi-statement atomicity.
func NewGormStore(db *gorm.DB, txEnabled bool) *GormStore {
	return &GormStore{db: db, txEnabled: txEnabled}
}

func (s *GormStore) UserExists(ctx context.Context, userID uint) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *GormStore) WalletByUser(ctx context.Context, userID uint) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (s *GormStore) Wallet(ctx context.Context, walletID string) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := s.db.WithContext(ctx).Where("wallet_id = ?", walletID).First(&w).Error; err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (s *GormStore) CreateWallet(ctx context.Context, w *domain.Wallet) error {
	return s.db.WithContext(ctx).Create(w).Error
}

// Debit is the guarded decrement: it only matches while balance >= amount,
// so a concurrent debit can never drive the balance negative.
func (s *GormStore) Debit(ctx context.Context, walletID string, amount decimal.Decimal) (bool, error) {
	res := s.db.WithContext(ctx).Model(&domain.Wallet{}).
		Where("wallet_id = ? AND balance >= ?", walletID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	return res.RowsAffected == 1, res.Error
}

func (s *GormStore) Credit(ctx context.Context, walletID string, amount decimal.Decimal) (bool, error) {
	res := s.db.WithContext(ctx).Model(&domain.Wallet{}).
		Where("wallet_id = ?", walletID).
		Update("balance", gorm.Expr("balance + ?", amount))
	return res.RowsAffected == 1, res.Error
}

func (s *GormStore) Append(ctx context.Context, entry *domain.Transaction) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) Totals(ctx context.Context, walletID string) (Totals, error) {
	var t Totals
	err := s.db.WithContext(ctx).Model(&domain.Transaction{}).
		Select(`COALESCE(SUM(CASE WHEN sender_wallet_id = ? THEN amount ELSE 0 END), 0) AS sent,
			COALESCE(SUM(CASE WHEN receiver_wallet_id = ? THEN amount ELSE 0 END), 0) AS received,
			COUNT(*) AS tx_count`, walletID, walletID).
		Where("sender_wallet_id = ? OR receiver_wallet_id = ?", walletID, walletID).
		Scan(&t).Error
	return t, err
}

func (s *GormStore) Entries(ctx context.Context, walletID string, limit int) ([]domain.Transaction, error) {
	txs := []domain.Transaction{}
	err := s.db.WithContext(ctx).
		Where("sender_wallet_id = ? OR receiver_wallet_id = ?", walletID, walletID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	if !s.txEnabled {
		return ErrTxUnsupported
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrWalletNotFound
	}
	return fmt.Errorf("load wallet: %w", err)
}
