package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"betpulse/database"
	"betpulse/models"
	"betpulse/services/mpesa"
	"betpulse/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FinanceService owns the money flows: deposit and withdrawal initiation,
// payout dispatch, and the reconciliation of asynchronous provider
// callbacks into transaction records. It is the single writer of terminal
// transaction status; payout dispatch only ever touches metadata.
type FinanceService struct {
	users           UserStore
	txs             TransactionStore
	provider        PaymentProvider
	callbackBaseURL string
}

func NewFinanceService(users UserStore, txs TransactionStore, provider PaymentProvider, callbackBaseURL string) *FinanceService {
	return &FinanceService{
		users:           users,
		txs:             txs,
		provider:        provider,
		callbackBaseURL: strings.TrimSuffix(callbackBaseURL, "/"),
	}
}

func newReference(prefix string) string {
	return prefix + "-" + strings.ToUpper(uuid.NewString()[:12])
}

// CreateDeposit registers a pending deposit and asks the provider to
// prompt the customer. A provider failure rejects the transaction straight
// away with a diagnostic reason; the asynchronous callback path never sees
// it.
func (s *FinanceService) CreateDeposit(ctx context.Context, userID int64, amount float64, phoneNumber string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("deposit amount must be positive: %w", models.ErrInvalidArgument)
	}

	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	msisdn := s.provider.NormalizeMsisdn(phoneNumber)
	if msisdn == "" {
		return nil, fmt.Errorf("invalid mpesa number: %w", models.ErrInvalidArgument)
	}

	tx := models.Transaction{
		UserID:    user.ID,
		Type:      models.TxDeposit,
		Amount:    amount,
		Reference: newReference("DEP"),
		Channel:   "MPESA",
		Metadata: models.Metadata{
			"mpesa": map[string]interface{}{
				"msisdn":       msisdn,
				"displayPhone": s.provider.FormatInternationalMsisdn(phoneNumber),
				"status":       "initiated",
			},
		},
	}
	if err := s.txs.CreateTransaction(ctx, &tx); err != nil {
		return nil, err
	}

	stk, err := s.provider.InitiateSTKPush(ctx, mpesa.StkPushRequest{
		Amount:      amount,
		PhoneNumber: msisdn,
		Reference:   tx.Reference,
		Description: "BetPulse top-up",
		CallbackURL: s.callbackBaseURL + "/api/v1/finance/mpesa/stk-callback",
	})
	if err != nil {
		// synchronous compensation, distinct from the callback path
		if rejErr := s.markRejected(ctx, tx.ID, "failed to initiate STK push"); rejErr != nil {
			logrus.Errorf("failed to reject deposit %s after provider error: %v", tx.Reference, rejErr)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrProvider, err)
	}

	updated, err := s.txs.MergeMetadata(ctx, tx.ID, models.Metadata{
		"mpesa": map[string]interface{}{
			"status":            "pending",
			"merchantRequestId": stk.MerchantRequestID,
			"checkoutRequestId": stk.CheckoutRequestID,
			"customerMessage":   stk.CustomerMessage,
		},
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RequestWithdrawal debits the user up front via the conditional guard and
// records a pending withdrawal awaiting approval.
func (s *FinanceService) RequestWithdrawal(ctx context.Context, userID int64, amount float64, phoneNumber string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("withdrawal amount must be positive: %w", models.ErrInvalidArgument)
	}

	msisdn := s.provider.NormalizeMsisdn(phoneNumber)
	if msisdn == "" {
		return nil, fmt.Errorf("invalid mpesa number: %w", models.ErrInvalidArgument)
	}

	if err := s.users.ConditionalDebit(ctx, userID, amount); err != nil {
		return nil, err
	}

	tx := models.Transaction{
		UserID:    userID,
		Type:      models.TxWithdrawal,
		Amount:    amount,
		Reference: newReference("WDL"),
		Channel:   "MPESA",
		Metadata: models.Metadata{
			"mpesa": map[string]interface{}{
				"msisdn":       msisdn,
				"displayPhone": s.provider.FormatInternationalMsisdn(phoneNumber),
				"status":       "pending",
			},
		},
	}
	if err := s.txs.CreateTransaction(ctx, &tx); err != nil {
		// hand the stake back rather than stranding it
		if creditErr := s.users.Credit(ctx, userID, amount); creditErr != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"amount":  amount,
			}).Errorf("failed to refund withdrawal after persistence error: %v", creditErr)
		}
		return nil, err
	}
	return &tx, nil
}

// PayoutDispatch carries the correlation identifiers returned by the
// provider when a disbursement is accepted for processing.
type PayoutDispatch struct {
	ConversationID           string `json:"conversation_id"`
	OriginatorConversationID string `json:"originator_conversation_id"`
	Description              string `json:"description"`
}

// InitiateWithdrawalPayout sends the disbursement request for a pending
// withdrawal. It records the provider correlation ids under a processing
// sub-status but never touches balance or terminal status; final
// settlement belongs exclusively to the reconciliation callbacks.
func (s *FinanceService) InitiateWithdrawalPayout(ctx context.Context, transactionID int64, remarks string) (*PayoutDispatch, error) {
	tx, err := s.txs.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Type != models.TxWithdrawal {
		return nil, fmt.Errorf("only withdrawals can be paid out: %w", models.ErrInvalidState)
	}
	if tx.Status != models.StatusPending {
		return nil, fmt.Errorf("transaction already processed: %w", models.ErrInvalidState)
	}

	meta := tx.Metadata.Mpesa()
	msisdn := utils.ToString(meta["msisdn"])
	if msisdn == "" {
		msisdn = utils.ToString(meta["phoneNumber"])
	}
	if msisdn == "" {
		return nil, models.ErrMissingDestination
	}

	resp, err := s.provider.TriggerB2CPayout(ctx, mpesa.B2CRequest{
		Amount:      tx.Amount,
		PhoneNumber: msisdn,
		Reference:   tx.Reference,
		Remarks:     remarks,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProvider, err)
	}

	if _, err := s.txs.MergeMetadata(ctx, tx.ID, models.Metadata{
		"mpesa": map[string]interface{}{
			"status":                   "processing",
			"msisdn":                   msisdn,
			"conversationId":           resp.ConversationID,
			"originatorConversationId": resp.OriginatorConversationID,
			"responseDescription":      resp.ResponseDescription,
		},
	}); err != nil {
		return nil, err
	}

	return &PayoutDispatch{
		ConversationID:           resp.ConversationID,
		OriginatorConversationID: resp.OriginatorConversationID,
		Description:              resp.ResponseDescription,
	}, nil
}

// StkCallback is the parsed collection result delivered to the STK webhook.
type StkCallback struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Items             map[string]interface{}
}

// HandleStkCallback reconciles a collection result into its transaction.
// An unknown checkout id returns ErrUnrecognized so the webhook can
// acknowledge without side effects and the provider stops retrying.
func (s *FinanceService) HandleStkCallback(ctx context.Context, cb StkCallback) error {
	tx, err := s.txs.FindTransactionByCheckoutID(ctx, cb.CheckoutRequestID)
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("checkout %s: %w", cb.CheckoutRequestID, models.ErrUnrecognized)
	}
	if err != nil {
		return err
	}

	status := "failed"
	if cb.ResultCode == 0 {
		status = "completed"
	}
	inner := map[string]interface{}{
		"status":            status,
		"checkoutRequestId": cb.CheckoutRequestID,
		"merchantRequestId": cb.MerchantRequestID,
		"resultCode":        cb.ResultCode,
		"resultDescription": cb.ResultDesc,
	}
	// absent items must not clobber keys recorded at initiation
	for patchKey, itemKey := range map[string]string{
		"receipt":         "MpesaReceiptNumber",
		"amount":          "Amount",
		"transactionDate": "TransactionDate",
		"msisdn":          "PhoneNumber",
	} {
		if v, ok := cb.Items[itemKey]; ok {
			inner[patchKey] = v
		}
	}
	if _, err := s.txs.MergeMetadata(ctx, tx.ID, models.Metadata{"mpesa": inner}); err != nil {
		return err
	}

	if cb.ResultCode == 0 {
		return s.markCompleted(ctx, tx.ID)
	}
	return s.markRejected(ctx, tx.ID, cb.ResultDesc)
}

// B2CResult is the parsed disbursement result delivered to the B2C webhook.
type B2CResult struct {
	ConversationID           string
	OriginatorConversationID string
	ResultCode               int
	ResultDesc               string
	TransactionID            string
	Parameters               map[string]interface{}
}

// HandleB2CResult reconciles a disbursement result. Either correlation id
// may match the stored metadata.
func (s *FinanceService) HandleB2CResult(ctx context.Context, result B2CResult) error {
	tx, err := s.txs.FindTransactionByConversationID(ctx, result.ConversationID)
	if errors.Is(err, models.ErrNotFound) && result.OriginatorConversationID != "" {
		tx, err = s.txs.FindTransactionByConversationID(ctx, result.OriginatorConversationID)
	}
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("conversation %s: %w", result.ConversationID, models.ErrUnrecognized)
	}
	if err != nil {
		return err
	}

	status := "failed"
	if result.ResultCode == 0 {
		status = "paid"
	}
	inner := map[string]interface{}{
		"status":            status,
		"resultCode":        result.ResultCode,
		"resultDescription": result.ResultDesc,
		"transactionId":     result.TransactionID,
		"completedAt":       time.Now().UTC().Format(time.RFC3339),
	}
	if v, ok := result.Parameters["TransactionAmount"]; ok {
		inner["payoutAmount"] = v
	}
	if v, ok := result.Parameters["ReceiverPartyPublicName"]; ok {
		inner["receiver"] = v
	}
	if _, err := s.txs.MergeMetadata(ctx, tx.ID, models.Metadata{"mpesa": inner}); err != nil {
		return err
	}

	if result.ResultCode == 0 {
		return s.markCompleted(ctx, tx.ID)
	}
	return s.markRejected(ctx, tx.ID, result.ResultDesc)
}

// HandleB2CTimeout records that a queued disbursement timed out on the
// provider side. The transaction stays pending; a later result callback or
// manual review settles it.
func (s *FinanceService) HandleB2CTimeout(ctx context.Context, conversationID string, payload map[string]interface{}) {
	logrus.WithField("conversation_id", conversationID).Warnf("B2C timeout received: %v", payload)
	if conversationID == "" {
		return
	}
	tx, err := s.txs.FindTransactionByConversationID(ctx, conversationID)
	if err != nil {
		return
	}
	if _, err := s.txs.MergeMetadata(ctx, tx.ID, models.Metadata{
		"mpesa": map[string]interface{}{"status": "timeout"},
	}); err != nil {
		logrus.Errorf("failed to record timeout on transaction %d: %v", tx.ID, err)
	}
}

// markCompleted moves the transaction to completed and, for deposits,
// credits the owning user with the ORIGINAL transaction amount. The
// compare-and-set on status makes the balance effect happen at most once
// no matter how many duplicate callbacks arrive.
func (s *FinanceService) markCompleted(ctx context.Context, id int64) error {
	tx, err := s.txs.FindTransactionByID(ctx, id)
	if err != nil {
		return err
	}

	won, err := s.txs.CompareAndSetStatus(ctx, tx.ID, models.StatusPending, models.StatusCompleted)
	if err != nil {
		return err
	}
	if !won {
		// already terminal, duplicate delivery
		return nil
	}

	if tx.Type == models.TxDeposit {
		if err := s.users.Credit(ctx, tx.UserID, tx.Amount); err != nil {
			return fmt.Errorf("failed to credit deposit %s: %w", tx.Reference, err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"reference": tx.Reference,
		"type":      tx.Type,
		"amount":    tx.Amount,
	}).Info("transaction completed")
	return nil
}

// markRejected moves the transaction to rejected. A rejected withdrawal
// refunds the previously debited amount, guarded by the same
// compare-and-set so the compensating credit runs exactly once.
func (s *FinanceService) markRejected(ctx context.Context, id int64, reason string) error {
	tx, err := s.txs.FindTransactionByID(ctx, id)
	if err != nil {
		return err
	}

	won, err := s.txs.CompareAndSetStatus(ctx, tx.ID, models.StatusPending, models.StatusRejected)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	if reason != "" {
		if _, err := s.txs.MergeMetadata(ctx, tx.ID, models.Metadata{"reason": reason}); err != nil {
			logrus.Errorf("failed to record rejection reason on %s: %v", tx.Reference, err)
		}
	}

	if tx.Type == models.TxWithdrawal {
		if err := s.users.Credit(ctx, tx.UserID, tx.Amount); err != nil {
			return fmt.Errorf("failed to refund withdrawal %s: %w", tx.Reference, err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"reference": tx.Reference,
		"type":      tx.Type,
		"reason":    reason,
	}).Info("transaction rejected")
	return nil
}

func (s *FinanceService) ListUserTransactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	return s.txs.ListUserTransactions(ctx, userID, 100)
}

func (s *FinanceService) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	return s.txs.ListTransactions(ctx, 200)
}

func (s *FinanceService) Summary(ctx context.Context) (*database.FinanceSummary, error) {
	return s.txs.SummarizeFinance(ctx)
}
