// Package ledger moves money between wallets and keeps the append-only
// transaction log.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"social_network/internal/domain"
	"social_network/internal/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Transaction list bounds
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// amounts are stored as decimal(20,8)
const maxScale = 8

// MaxAmount is the largest value a decimal(20,8) column holds
var MaxAmount = decimal.RequireFromString("999999999999.99999999")

// Stats summarizes a wallet's ledger history
type Stats struct {
	Balance       decimal.Decimal `json:"balance"`
	TotalSent     decimal.Decimal `json:"totalSent"`
	TotalReceived decimal.Decimal `json:"totalReceived"`
	TxCount       int64           `json:"txCount"`
}

// TransferResult carries both wallets as they stand after a transfer
type TransferResult struct {
	Sender   *domain.Wallet
	Receiver *domain.Wallet
	Entry    *domain.Transaction
}

// Service implements wallet creation, top-ups, transfers and history
type Service struct {
	store          Store
	initialBalance decimal.Decimal
}

// NewService creates a ledger service. New wallets start at initialBalance.
func NewService(store Store, initialBalance decimal.Decimal) *Service {
	return &Service{store: store, initialBalance: initialBalance}
}

// GetOrCreateWallet returns the user's wallet, creating it on first call.
// created is false when the wallet already existed.
func (s *Service) GetOrCreateWallet(ctx context.Context, userID uint) (wallet *domain.Wallet, created bool, err error) {
	if userID == 0 {
		return nil, false, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	w, err := s.store.WalletByUser(ctx, userID)
	if err == nil {
		return w, false, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, false, err
	}
	exists, err := s.store.UserExists(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("lookup user: %w", err)
	}
	if !exists {
		return nil, false, ErrUserNotFound
	}
	w = &domain.Wallet{
		WalletID: uuid.NewString(),
		UserID:   userID,
		Balance:  s.initialBalance,
	}
	if err := s.store.CreateWallet(ctx, w); err != nil {
		// Lost a create race on the unique user_id index; return the winner
		if existing, lerr := s.store.WalletByUser(ctx, userID); lerr == nil {
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("create wallet: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"user_id":   userID,
		"wallet_id": w.WalletID,
		"balance":   w.Balance.String(),
	}).Info("Wallet created")
	return w, true, nil
}

// WalletByUser returns the wallet owned by userID
func (s *Service) WalletByUser(ctx context.Context, userID uint) (*domain.Wallet, error) {
	return s.store.WalletByUser(ctx, userID)
}

// AddBalance credits a wallet with no counterpart debit and records a
// top-up entry. Every call is a separate credit; nothing is deduplicated.
func (s *Service) AddBalance(ctx context.Context, walletID string, amount decimal.Decimal) (*domain.Wallet, error) {
	walletID = strings.TrimSpace(walletID)
	if walletID == "" {
		return nil, fmt.Errorf("%w: walletId is required", ErrInvalidInput)
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	entry := &domain.Transaction{
		ReceiverWalletID: walletID,
		Amount:           amount,
		Status:           domain.TransactionCompleted,
	}
	path := "tx"
	err := s.store.WithinTx(ctx, func(tx Store) error {
		return topUp(ctx, tx, entry)
	})
	if errors.Is(err, ErrTxUnsupported) {
		path = "compensating"
		err = s.topUpCompensating(ctx, entry)
	}
	metrics.RecordLedgerOp("top_up", path, resultLabel(err))
	if err != nil {
		if !IsNotFound(err) {
			logrus.WithFields(logrus.Fields{
				"wallet_id": walletID,
				"amount":    amount.String(),
				"error":     err.Error(),
			}).Error("Top-up failed")
		}
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"wallet_id": walletID,
		"amount":    amount.String(),
		"type":      "top_up",
	}).Info("Top-up transaction")
	return s.store.Wallet(ctx, walletID)
}

func topUp(ctx context.Context, st Store, entry *domain.Transaction) error {
	ok, err := st.Credit(ctx, entry.ReceiverWalletID, entry.Amount)
	if err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}
	if !ok {
		return ErrWalletNotFound
	}
	if err := st.Append(ctx, entry); err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

func (s *Service) topUpCompensating(ctx context.Context, entry *domain.Transaction) error {
	ok, err := s.store.Credit(ctx, entry.ReceiverWalletID, entry.Amount)
	if err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}
	if !ok {
		return ErrWalletNotFound
	}
	if err := s.store.Append(ctx, entry); err != nil {
		// A credit without its entry would break the stats identity
		s.compensate(ctx, entry.ReceiverWalletID, entry.Amount, false)
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

// Transfer moves amount from one wallet to another. Inside a transaction
// both legs and the entry commit together. Without one, the sender is
// debited first and a failed credit is undone by a compensating credit.
func (s *Service) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*TransferResult, error) {
	fromID, toID = strings.TrimSpace(fromID), strings.TrimSpace(toID)
	if fromID == "" || toID == "" {
		return nil, fmt.Errorf("%w: fromWalletId and toWalletId are required", ErrInvalidInput)
	}
	if fromID == toID {
		return nil, ErrSameWallet
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	entry := &domain.Transaction{
		SenderWalletID:   &fromID,
		ReceiverWalletID: toID,
		Amount:           amount,
		Status:           domain.TransactionCompleted,
	}
	path := "tx"
	err := s.store.WithinTx(ctx, func(tx Store) error {
		if err := guardedDebit(ctx, tx, fromID, amount); err != nil {
			return err
		}
		ok, err := tx.Credit(ctx, toID, amount)
		if err != nil {
			return fmt.Errorf("credit receiver: %w", err)
		}
		if !ok {
			return ErrReceiverNotFound // rolls the debit back
		}
		if err := tx.Append(ctx, entry); err != nil {
			return fmt.Errorf("append entry: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrTxUnsupported) {
		path = "compensating"
		err = s.transferCompensating(ctx, entry)
	}
	metrics.RecordLedgerOp("transfer", path, resultLabel(err))
	fields := logrus.Fields{
		"from_wallet_id": fromID,
		"to_wallet_id":   toID,
		"amount":         amount.String(),
		"path":           path,
	}
	if err != nil {
		if !IsNotFound(err) && !IsValidation(err) {
			fields["error"] = err.Error()
			logrus.WithFields(fields).Error("Transfer failed")
		}
		return nil, err
	}
	logrus.WithFields(fields).Info("Transfer transaction")

	sender, err := s.store.Wallet(ctx, fromID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.store.Wallet(ctx, toID)
	if err != nil {
		return nil, err
	}
	return &TransferResult{Sender: sender, Receiver: receiver, Entry: entry}, nil
}

func (s *Service) transferCompensating(ctx context.Context, entry *domain.Transaction) error {
	fromID, toID, amount := *entry.SenderWalletID, entry.ReceiverWalletID, entry.Amount

	// Phase 1 fails closed: no match means nothing was written
	if err := guardedDebit(ctx, s.store, fromID, amount); err != nil {
		return err
	}
	ok, err := s.store.Credit(ctx, toID, amount)
	if err != nil || !ok {
		s.compensate(ctx, fromID, amount, true)
		if err != nil {
			return fmt.Errorf("credit receiver: %w", err)
		}
		return ErrReceiverNotFound
	}
	if err := s.store.Append(ctx, entry); err != nil {
		if ok, derr := s.store.Debit(context.WithoutCancel(ctx), toID, amount); derr != nil || !ok {
			logrus.WithFields(logrus.Fields{
				"wallet_id": toID,
				"amount":    amount.String(),
				"reconcile": "manual",
			}).Error("Could not reverse receiver credit")
			metrics.RecordCompensation(false)
		} else {
			metrics.RecordCompensation(true)
		}
		s.compensate(ctx, fromID, amount, true)
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

// compensate issues the inverse of a completed leg. The write detaches from
// the request context so a client disconnect cannot skip it.
func (s *Service) compensate(ctx context.Context, walletID string, amount decimal.Decimal, credit bool) {
	ctx = context.WithoutCancel(ctx)
	var ok bool
	var err error
	if credit {
		ok, err = s.store.Credit(ctx, walletID, amount)
	} else {
		ok, err = s.store.Debit(ctx, walletID, amount)
	}
	fields := logrus.Fields{
		"wallet_id": walletID,
		"amount":    amount.String(),
		"credit":    credit,
	}
	if err != nil || !ok {
		if err != nil {
			fields["error"] = err.Error()
		}
		fields["reconcile"] = "manual"
		logrus.WithFields(fields).Error("Compensating write failed")
		metrics.RecordCompensation(false)
		return
	}
	logrus.WithFields(fields).Warn("Compensating write applied")
	metrics.RecordCompensation(true)
}

func guardedDebit(ctx context.Context, st Store, walletID string, amount decimal.Decimal) error {
	ok, err := st.Debit(ctx, walletID, amount)
	if err != nil {
		return fmt.Errorf("debit sender: %w", err)
	}
	if ok {
		return nil
	}
	// Nothing matched: either the wallet is missing or the guard held
	if _, err := st.Wallet(ctx, walletID); err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return ErrSenderNotFound
		}
		return err
	}
	return ErrInsufficientFunds
}

// Stats returns the balance with totals aggregated from the ledger
func (s *Service) Stats(ctx context.Context, walletID string) (*Stats, error) {
	w, err := s.store.Wallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	t, err := s.store.Totals(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("aggregate ledger: %w", err)
	}
	return &Stats{
		Balance:       w.Balance,
		TotalSent:     t.Sent,
		TotalReceived: t.Received,
		TxCount:       t.Count,
	}, nil
}

// Transactions returns the newest entries touching a wallet
func (s *Service) Transactions(ctx context.Context, walletID string, limit int) ([]domain.Transaction, error) {
	return s.store.Entries(ctx, walletID, NormalizeLimit(limit))
}

// NormalizeLimit clamps a requested list size to [1, MaxLimit]
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}
	if amount.Exponent() < -maxScale && !amount.Equal(amount.Truncate(maxScale)) {
		return fmt.Errorf("%w: amount supports at most %d decimal places", ErrInvalidInput, maxScale)
	}
	if amount.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: amount must not exceed %s", ErrInvalidInput, MaxAmount)
	}
	return nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case IsNotFound(err):
		return "not_found"
	case IsValidation(err):
		return "invalid"
	}
	return "error"
}
