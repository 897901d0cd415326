package ginserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"travelbooking/internal/app/dto"
	bookingapp "travelbooking/internal/app/handlers/booking"
	domainuser "travelbooking/internal/domain/user"
)

type PaymentWorkflow interface {
	StartPayment(ctx context.Context, cmd bookingapp.StartPaymentCommand) (*dto.BookingDTO, error)
	ProcessPayment(ctx context.Context, cmd bookingapp.ProcessPaymentCommand) (*dto.BookingDTO, error)
	FailPayment(ctx context.Context, cmd bookingapp.FailPaymentCommand) (*dto.BookingDTO, error)
}

// PaymentHandler serves the guest's payment start and the gateway callbacks.
type PaymentHandler struct {
	Workflow PaymentWorkflow
	Logger   *slog.Logger
}

type startPaymentRequest struct {
	Method   string `json:"method"`
	Provider string `json:"provider"`
}

type completePaymentRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	Method        string `json:"method"`
	Provider      string `json:"provider"`
}

func (h PaymentHandler) Start(c *gin.Context) {
	if _, ok := requireRole(c, domainuser.RoleGuest, domainuser.RoleAdmin); !ok {
		return
	}
	var req startPaymentRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	result, err := h.Workflow.StartPayment(c.Request.Context(), bookingapp.StartPaymentCommand{
		BookingID: c.Param("id"),
		Method:    strings.TrimSpace(req.Method),
		Provider:  strings.TrimSpace(req.Provider),
	})
	h.respond(c, result, err)
}

func (h PaymentHandler) Complete(c *gin.Context) {
	if _, ok := requireRole(c, domainuser.RoleAdmin); !ok {
		return
	}
	var req completePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.Workflow.ProcessPayment(c.Request.Context(), bookingapp.ProcessPaymentCommand{
		BookingID:     c.Param("id"),
		TransactionID: strings.TrimSpace(req.TransactionID),
		Method:        strings.TrimSpace(req.Method),
		Provider:      strings.TrimSpace(req.Provider),
	})
	h.respond(c, result, err)
}

func (h PaymentHandler) Fail(c *gin.Context) {
	if _, ok := requireRole(c, domainuser.RoleAdmin); !ok {
		return
	}
	var req reasonRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	result, err := h.Workflow.FailPayment(c.Request.Context(), bookingapp.FailPaymentCommand{
		BookingID: c.Param("id"),
		Reason:    strings.TrimSpace(req.Reason),
	})
	h.respond(c, result, err)
}

func (h PaymentHandler) respond(c *gin.Context, result *dto.BookingDTO, err error) {
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PaymentHTTP = PaymentHandler{}
