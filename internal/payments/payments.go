package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
	"go.uber.org/zap"

	"wedlock-server/internal/profile"
)

// Upgrade price: Rs 29.00, expressed in paise as Razorpay expects.
const (
	upgradeAmountPaise = 2900
	upgradeCurrency    = "INR"

	// Razorpay rejects orders whose receipt exceeds 40 characters.
	receiptMaxLength = 40
)

// ErrSignatureMismatch is returned when a payment callback fails Razorpay
// signature verification.
var ErrSignatureMismatch = errors.New("payment signature verification failed")

// VerificationRequest carries the fields of a Razorpay payment callback.
type VerificationRequest struct {
	Phone     string `json:"phone"`
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// Service creates upgrade orders and verifies completed payments against
// the Razorpay signature scheme, promoting payers to GOLD.
type Service struct {
	client *razorpay.Client
	secret string
	store  profile.Store
	logger *zap.Logger

	// verify is swapped for a deterministic check in tests.
	verify func(params map[string]interface{}, signature, secret string) bool
}

// New creates a Service using the given Razorpay key pair.
func New(keyID, keySecret string, store profile.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		client: razorpay.NewClient(keyID, keySecret),
		secret: keySecret,
		store:  store,
		logger: logger,
		verify: utils.VerifyPaymentSignature,
	}
}

// CreateUpgradeOrder creates a Razorpay order for the GOLD upgrade and
// returns the raw order payload for the client-side checkout flow.
func (s *Service) CreateUpgradeOrder() (map[string]interface{}, error) {
	data := map[string]interface{}{
		"amount":   upgradeAmountPaise,
		"currency": upgradeCurrency,
		"receipt":  newReceipt(),
	}

	order, err := s.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("create razorpay order: %w", err)
	}

	s.logger.Info("created upgrade order",
		zap.Any("order_id", order["id"]),
		zap.Int("amount_paise", upgradeAmountPaise),
	)

	return order, nil
}

// newReceipt returns a unique order receipt within Razorpay's length cap.
func newReceipt() string {
	return "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// VerifyAndUpgrade checks the payment signature and, when valid, promotes
// the payer's profile to GOLD.
func (s *Service) VerifyAndUpgrade(ctx context.Context, req VerificationRequest) error {
	params := map[string]interface{}{
		"razorpay_order_id":   req.OrderID,
		"razorpay_payment_id": req.PaymentID,
	}

	if !s.verify(params, req.Signature, s.secret) {
		s.logger.Warn("rejected payment callback",
			zap.String("order_id", req.OrderID),
			zap.String("payment_id", req.PaymentID),
		)
		return ErrSignatureMismatch
	}

	if err := s.store.SetTier(ctx, req.Phone, profile.TierGold); err != nil {
		return fmt.Errorf("upgrade profile tier: %w", err)
	}

	s.logger.Info("profile upgraded to gold", zap.String("phone", req.Phone))
	return nil
}
