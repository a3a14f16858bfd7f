package controllers

import (
	"errors"

	"betpulse/models"
	"betpulse/services"
	"betpulse/services/mpesa"
	"betpulse/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var finance *services.FinanceService

func InitFinanceService(svc *services.FinanceService) {
	finance = svc
}

type DepositRequest struct {
	Amount      float64     `json:"amount"`
	PhoneNumber interface{} `json:"phone_number"`
}

type WithdrawRequest struct {
	Amount      float64     `json:"amount"`
	PhoneNumber interface{} `json:"phone_number"`
}

type PayoutRequest struct {
	Remarks string `json:"remarks"`
}

// Deposit - POST /api/v1/finance/deposit
func Deposit(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(401).JSON(models.NewErrorResponse(401, 1, "unauthenticated"))
	}
	var req DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, "malformed body"))
	}
	tx, err := finance.CreateDeposit(c.Context(), userID, req.Amount, utils.ToString(req.PhoneNumber))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, tx))
}

// Withdraw - POST /api/v1/finance/withdraw
func Withdraw(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(401).JSON(models.NewErrorResponse(401, 1, "unauthenticated"))
	}
	var req WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, "malformed body"))
	}
	tx, err := finance.RequestWithdrawal(c.Context(), userID, req.Amount, utils.ToString(req.PhoneNumber))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, tx))
}

// MyTransactions - GET /api/v1/finance/transactions
func MyTransactions(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(401).JSON(models.NewErrorResponse(401, 1, "unauthenticated"))
	}
	list, err := finance.ListUserTransactions(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, list))
}

// AllTransactions - GET /api/v1/admin/finance/transactions
func AllTransactions(c *fiber.Ctx) error {
	list, err := finance.ListTransactions(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, list))
}

// FinanceSummary - GET /api/v1/admin/finance/summary
func FinanceSummary(c *fiber.Ctx) error {
	summary, err := finance.Summary(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, summary))
}

// ApprovePayout - POST /api/v1/admin/finance/transactions/:id/payout
func ApprovePayout(c *fiber.Ctx) error {
	txID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, "invalid transaction id"))
	}
	var req PayoutRequest
	// remarks are optional, a bare POST is fine
	_ = c.BodyParser(&req)
	if req.Remarks == "" {
		req.Remarks = "Withdrawal payout"
	}
	dispatch, err := finance.InitiateWithdrawalPayout(c.Context(), int64(txID), req.Remarks)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, dispatch))
}

// Provider webhook payloads. Parsing is deliberately forgiving: a payload
// that does not match is acknowledged and logged rather than retried
// forever by the provider.

type stkCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []mpesa.CallbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type b2cResultEnvelope struct {
	Result struct {
		ResultType               int    `json:"ResultType"`
		ResultCode               int    `json:"ResultCode"`
		ResultDesc               string `json:"ResultDesc"`
		OriginatorConversationID string `json:"OriginatorConversationID"`
		ConversationID           string `json:"ConversationID"`
		TransactionID            string `json:"TransactionID"`
		ResultParameters         struct {
			ResultParameter []mpesa.CallbackItem `json:"ResultParameter"`
		} `json:"ResultParameters"`
	} `json:"Result"`
}

func ackProvider(c *fiber.Ctx) error {
	return c.Status(200).JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// StkCallback - POST /api/v1/finance/mpesa/stk-callback
func StkCallback(c *fiber.Ctx) error {
	var env stkCallbackEnvelope
	if err := c.BodyParser(&env); err != nil {
		logrus.Warnf("unparseable STK callback: %v", err)
		return ackProvider(c)
	}
	cb := env.Body.StkCallback
	err := finance.HandleStkCallback(c.Context(), services.StkCallback{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
		Items:             mpesa.ExtractItems(cb.CallbackMetadata.Item),
	})
	if err != nil && !errors.Is(err, models.ErrUnrecognized) {
		logrus.Errorf("failed to reconcile STK callback %s: %v", cb.CheckoutRequestID, err)
	}
	return ackProvider(c)
}

// B2CResult - POST /api/v1/finance/mpesa/b2c-result
func B2CResult(c *fiber.Ctx) error {
	var env b2cResultEnvelope
	if err := c.BodyParser(&env); err != nil {
		logrus.Warnf("unparseable B2C result: %v", err)
		return ackProvider(c)
	}
	r := env.Result
	err := finance.HandleB2CResult(c.Context(), services.B2CResult{
		ConversationID:           r.ConversationID,
		OriginatorConversationID: r.OriginatorConversationID,
		ResultCode:               r.ResultCode,
		ResultDesc:               r.ResultDesc,
		TransactionID:            r.TransactionID,
		Parameters:               mpesa.ExtractItems(r.ResultParameters.ResultParameter),
	})
	if err != nil && !errors.Is(err, models.ErrUnrecognized) {
		logrus.Errorf("failed to reconcile B2C result %s: %v", r.ConversationID, err)
	}
	return ackProvider(c)
}

// B2CTimeout - POST /api/v1/finance/mpesa/b2c-timeout
func B2CTimeout(c *fiber.Ctx) error {
	var payload map[string]interface{}
	if err := c.BodyParser(&payload); err != nil {
		logrus.Warnf("unparseable B2C timeout: %v", err)
		return ackProvider(c)
	}
	conversationID := ""
	if result, ok := payload["Result"].(map[string]interface{}); ok {
		conversationID = utils.ToString(result["ConversationID"])
	}
	finance.HandleB2CTimeout(c.Context(), conversationID, payload)
	return ackProvider(c)
}

// C2BValidation - POST /api/v1/finance/mpesa/c2b-validation
func C2BValidation(c *fiber.Ctx) error {
	return ackProvider(c)
}

// C2BConfirmation - POST /api/v1/finance/mpesa/c2b-confirmation
func C2BConfirmation(c *fiber.Ctx) error {
	var payload map[string]interface{}
	if err := c.BodyParser(&payload); err == nil {
		logrus.WithField("payload", payload).Info("C2B confirmation received")
	}
	return ackProvider(c)
}
