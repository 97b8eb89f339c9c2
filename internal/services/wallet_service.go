// internal/services/wallet_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"gorm.io/gorm"

	"github.com/stellara/stellara-backend/internal/config"
	"github.com/stellara/stellara-backend/internal/models"
	"github.com/stellara/stellara-backend/internal/utils"
)

// WalletService funds the account balances that settlement debits and
// credits. Deposits go through Stripe payment intents; without a Stripe key
// configured deposits complete immediately, which keeps local development
// and tests off the network.
type WalletService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewWalletService(db *gorm.DB, cfg *config.Config) *WalletService {
	if cfg.Payment.StripeSecretKey != "" {
		stripe.Key = cfg.Payment.StripeSecretKey
	}
	return &WalletService{db: db, cfg: cfg}
}

type DepositRequest struct {
	// Amount is in the smallest currency unit.
	Amount int64 `json:"amount" validate:"required,min=1"`
}

type DepositIntent struct {
	DepositID        uuid.UUID `json:"deposit_id"`
	PaymentReference string    `json:"payment_reference"`
	ClientSecret     string    `json:"client_secret,omitempty"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	Status           string    `json:"status"`
}

// CreateDeposit starts a balance top-up. With Stripe configured the caller
// receives a client secret to confirm on their side; otherwise the deposit
// is credited immediately.
func (s *WalletService) CreateDeposit(userID uuid.UUID, req *DepositRequest) (*DepositIntent, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if req.Amount < s.cfg.Payment.MinimumDeposit {
		return nil, fmt.Errorf("deposit amount below minimum of %d", s.cfg.Payment.MinimumDeposit)
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if user.Status != models.UserStatusActive {
		return nil, ErrUnauthorized
	}

	if s.cfg.Payment.StripeSecretKey == "" {
		return s.createLocalDeposit(userID, req.Amount)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(s.cfg.Payment.Currency),
	}
	params.AddMetadata("user_id", userID.String())

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	deposit := &models.Deposit{
		UserID:           userID,
		Amount:           req.Amount,
		PaymentReference: intent.ID,
		Status:           models.DepositStatusPending,
	}
	if err := s.db.Create(deposit).Error; err != nil {
		return nil, fmt.Errorf("failed to record deposit: %w", err)
	}

	return &DepositIntent{
		DepositID:        deposit.ID,
		PaymentReference: intent.ID,
		ClientSecret:     intent.ClientSecret,
		Amount:           req.Amount,
		Currency:         s.cfg.Payment.Currency,
		Status:           string(models.DepositStatusPending),
	}, nil
}

// ConfirmDeposit checks the payment intent with Stripe and, once it has
// succeeded, credits the user's balance. Confirming twice is rejected
// because the deposit is no longer pending.
func (s *WalletService) ConfirmDeposit(userID uuid.UUID, paymentReference string) (*models.Deposit, error) {
	var deposit models.Deposit
	err := s.db.Where("payment_reference = ? AND user_id = ?", paymentReference, userID).
		First(&deposit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if deposit.Status != models.DepositStatusPending {
		return nil, fmt.Errorf("deposit is not pending")
	}

	if s.cfg.Payment.StripeSecretKey != "" {
		intent, err := paymentintent.Get(paymentReference, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch payment intent: %w", err)
		}
		if intent.Status != stripe.PaymentIntentStatusSucceeded {
			return nil, fmt.Errorf("payment not completed, status: %s", intent.Status)
		}
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Deposit{}).
			Where("id = ?", deposit.ID).
			Updates(map[string]interface{}{
				"status":       models.DepositStatusCompleted,
				"processed_at": now,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("balance", gorm.Expr("balance + ?", deposit.Amount)).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to complete deposit: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  deposit.Amount,
	}).Info("Deposit completed")

	deposit.Status = models.DepositStatusCompleted
	deposit.ProcessedAt = &now
	return &deposit, nil
}

// createLocalDeposit is the no-Stripe path: the deposit completes and the
// balance is credited in one step.
func (s *WalletService) createLocalDeposit(userID uuid.UUID, amount int64) (*DepositIntent, error) {
	reference, err := utils.GeneratePaymentReference()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	deposit := &models.Deposit{
		UserID:           userID,
		Amount:           amount,
		PaymentReference: reference,
		Status:           models.DepositStatusCompleted,
		ProcessedAt:      &now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(deposit).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("balance", gorm.Expr("balance + ?", amount)).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record deposit: %w", err)
	}

	return &DepositIntent{
		DepositID:        deposit.ID,
		PaymentReference: reference,
		Amount:           amount,
		Currency:         s.cfg.Payment.Currency,
		Status:           string(models.DepositStatusCompleted),
	}, nil
}

func (s *WalletService) GetBalance(userID uuid.UUID) (int64, error) {
	var user models.User
	if err := s.db.Select("balance").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return user.Balance, nil
}

func (s *WalletService) ListDeposits(userID uuid.UUID, params utils.PaginationParams) ([]models.Deposit, int64, error) {
	query := s.db.Model(&models.Deposit{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var deposits []models.Deposit
	query = utils.ApplyPagination(query, params)
	if err := query.Order("created_at DESC").Find(&deposits).Error; err != nil {
		return nil, 0, err
	}

	return deposits, total, nil
}

// GetTradeHistory lists settlements the user took part in, either side.
func (s *WalletService) GetTradeHistory(userID uuid.UUID, params utils.PaginationParams) ([]models.Trade, int64, error) {
	query := s.db.Model(&models.Trade{}).
		Where("buyer_id = ? OR seller_id = ?", userID, userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var trades []models.Trade
	query = utils.ApplyPagination(query, params)
	if err := query.Preload("Buyer").Preload("Seller").
		Order("created_at DESC").Find(&trades).Error; err != nil {
		return nil, 0, err
	}

	return trades, total, nil
}
