package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"pistore/internal/payment"
	"pistore/internal/pi"
)

type createPaymentRequest struct {
	Amount   float64         `json:"amount" binding:"required"`
	Memo     string          `json:"memo" binding:"required"`
	Metadata json.RawMessage `json:"metadata"`
	UserUID  string          `json:"user_uid" binding:"required"`
}

type paymentIDRequest struct {
	PaymentID string `json:"paymentId" binding:"required"`
}

type completePaymentRequest struct {
	PaymentID string `json:"paymentId" binding:"required"`
	TxID      string `json:"txid" binding:"required"`
}

type incompletePaymentRequest struct {
	Payment json.RawMessage `json:"payment" binding:"required"`
}

// writeRaw passes a provider reply through with its original status.
func writeRaw(c *gin.Context, resp pi.RawResponse) {
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, resp.Body)
}

func CreatePayment(bridge *payment.Bridge) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /pi/create"
		defer handlePanic(c, route)

		var req createPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		resp, err := bridge.Create(c.Request.Context(), pi.CreatePaymentRequest{
			Amount:   req.Amount,
			Memo:     req.Memo,
			Metadata: req.Metadata,
			UID:      req.UserUID,
		})
		if err != nil {
			respondUpstreamError(c, route, err)
			return
		}

		log.Printf("[PAYMENT] [INFO] create forwarded for %s, provider status %d", req.UserUID, resp.StatusCode)
		writeRaw(c, resp)
	}
}

func ApprovePayment(bridge *payment.Bridge) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /pi/approve"
		defer handlePanic(c, route)

		var req paymentIDRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		resp, err := bridge.Approve(c.Request.Context(), req.PaymentID)
		if err != nil {
			respondUpstreamError(c, route, err)
			return
		}

		log.Printf("[PAYMENT] [INFO] approve %s, provider status %d", req.PaymentID, resp.StatusCode)
		writeRaw(c, resp)
	}
}

func CompletePayment(bridge *payment.Bridge) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /pi/complete"
		defer handlePanic(c, route)

		var req completePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		completion, err := bridge.Complete(c.Request.Context(), req.PaymentID, req.TxID)
		if err != nil {
			respondUpstreamError(c, route, err)
			return
		}
		respondCompletion(c, completion)
	}
}

func CancelPayment(bridge *payment.Bridge) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /pi/cancel"
		defer handlePanic(c, route)

		var req paymentIDRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		resp, err := bridge.Cancel(c.Request.Context(), req.PaymentID)
		if err != nil {
			respondUpstreamError(c, route, err)
			return
		}

		log.Printf("[PAYMENT] [INFO] cancel %s, provider status %d", req.PaymentID, resp.StatusCode)
		writeRaw(c, resp)
	}
}

func GetPayment(bridge *payment.Bridge) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /pi/payments/:id"
		defer handlePanic(c, route)

		resp, err := bridge.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondUpstreamError(c, route, err)
			return
		}
		writeRaw(c, resp)
	}
}

// ResolveIncompletePayment receives the payment object the SDK reports from
// onIncompletePaymentFound.
func ResolveIncompletePayment(bridge *payment.Bridge) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /pi/incomplete"
		defer handlePanic(c, route)

		var req incompletePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		found, err := pi.DecodePayment(req.Payment)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid payment: "+err.Error())
			return
		}

		completion, err := bridge.ResolveIncomplete(c.Request.Context(), found.Identifier, found.TxID())
		if err != nil {
			respondUpstreamError(c, route, err)
			return
		}
		respondCompletion(c, completion)
	}
}

func respondCompletion(c *gin.Context, completion payment.Completion) {
	switch completion.Outcome {
	case payment.OutcomeCompleted:
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"status":    string(completion.Outcome),
			"paymentId": completion.PaymentID,
			"order":     completion.Order,
			"duplicate": completion.Duplicate,
		})
	case payment.OutcomeCancelled:
		c.JSON(http.StatusOK, gin.H{
			"success":   false,
			"status":    string(completion.Outcome),
			"paymentId": completion.PaymentID,
		})
	default:
		c.JSON(http.StatusAccepted, gin.H{
			"success":   true,
			"status":    string(payment.OutcomePending),
			"paymentId": completion.PaymentID,
			"message":   "payment not completed yet, retry later",
		})
	}
}
