package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"travelbooking/internal/app/dto"
	bookingapp "travelbooking/internal/app/handlers/booking"
	domainuser "travelbooking/internal/domain/user"
)

// BookingWorkflow is the slice of the booking workflow the HTTP layer drives.
type BookingWorkflow interface {
	CreateBooking(ctx context.Context, cmd bookingapp.CreateBookingCommand) (*dto.BookingDTO, error)
	ConfirmBooking(ctx context.Context, bookingID string) (*dto.BookingDTO, error)
	CancelBooking(ctx context.Context, cmd bookingapp.CancelBookingCommand) (*dto.CancelBookingResult, error)
	CompleteBooking(ctx context.Context, bookingID string) (*dto.BookingDTO, error)
	MarkNoShow(ctx context.Context, bookingID string) (*dto.BookingDTO, error)
	RefundBooking(ctx context.Context, cmd bookingapp.RefundBookingCommand) (*dto.RefundResult, error)
	GetBooking(ctx context.Context, bookingID string) (*dto.BookingDTO, error)
	ListGuestBookings(ctx context.Context, guestID string) (dto.GuestBookingCollection, error)
	QuotePrice(ctx context.Context, q bookingapp.QuotePriceQuery) (*dto.QuoteDTO, error)
}

type BookingHandler struct {
	Workflow BookingWorkflow
	Logger   *slog.Logger
}

type guestsRequest struct {
	Total    int `json:"total"`
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
}

type createBookingRequest struct {
	GuestID         string        `json:"guest_id"`
	UnitID          string        `json:"unit_id" binding:"required"`
	CheckIn         string        `json:"check_in" binding:"required"`
	CheckOut        string        `json:"check_out" binding:"required"`
	Guests          guestsRequest `json:"guests"`
	SpecialRequests string        `json:"special_requests"`
	GuestMessage    string        `json:"guest_message"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type refundRequest struct {
	Reason string `json:"reason"`
	Amount string `json:"amount"`
}

type quoteRequest struct {
	UnitID   string `json:"unit_id" binding:"required"`
	CheckIn  string `json:"check_in" binding:"required"`
	CheckOut string `json:"check_out" binding:"required"`
	Guests   int    `json:"guests"`
}

func (h BookingHandler) Create(c *gin.Context) {
	p, ok := requireRole(c, domainuser.RoleGuest, domainuser.RoleAdmin)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	checkIn, checkOut, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		badRequest(c, err)
		return
	}
	guestID := p.ID
	if req.GuestID != "" && p.HasRole(domainuser.RoleAdmin) {
		guestID = strings.TrimSpace(req.GuestID)
	}
	cmd := bookingapp.CreateBookingCommand{
		GuestID:         guestID,
		UnitID:          strings.TrimSpace(req.UnitID),
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          req.Guests.Total,
		Adults:          req.Guests.Adults,
		Children:        req.Guests.Children,
		Infants:         req.Guests.Infants,
		SpecialRequests: req.SpecialRequests,
		GuestMessage:    req.GuestMessage,
		IdempotencyKeyV: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
	}
	result, err := h.Workflow.CreateBooking(c.Request.Context(), cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	if _, ok := requireRole(c); !ok {
		return
	}
	result, err := h.Workflow.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Confirm(c *gin.Context) {
	h.transition(c, h.Workflow.ConfirmBooking)
}

func (h BookingHandler) Complete(c *gin.Context) {
	h.transition(c, h.Workflow.CompleteBooking)
}

func (h BookingHandler) NoShow(c *gin.Context) {
	h.transition(c, h.Workflow.MarkNoShow)
}

func (h BookingHandler) transition(c *gin.Context, apply func(context.Context, string) (*dto.BookingDTO, error)) {
	if _, ok := requireRole(c, domainuser.RoleHost, domainuser.RoleAdmin); !ok {
		return
	}
	result, err := apply(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	p, ok := requireRole(c)
	if !ok {
		return
	}
	var req reasonRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	cmd := bookingapp.CancelBookingCommand{
		Actor:     p.actor(),
		BookingID: c.Param("id"),
		Reason:    strings.TrimSpace(req.Reason),
	}
	result, err := h.Workflow.CancelBooking(c.Request.Context(), cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Refund(c *gin.Context) {
	if _, ok := requireRole(c, domainuser.RoleHost, domainuser.RoleAdmin); !ok {
		return
	}
	var req refundRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	cmd := bookingapp.RefundBookingCommand{
		BookingID: c.Param("id"),
		Reason:    strings.TrimSpace(req.Reason),
		Amount:    strings.TrimSpace(req.Amount),
	}
	result, err := h.Workflow.RefundBooking(c.Request.Context(), cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListMine(c *gin.Context) {
	p, ok := requireRole(c)
	if !ok {
		return
	}
	result, err := h.Workflow.ListGuestBookings(c.Request.Context(), p.ID)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	checkIn, checkOut, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		badRequest(c, err)
		return
	}
	guests := req.Guests
	if guests == 0 {
		guests = 1
	}
	result, err := h.Workflow.QuotePrice(c.Request.Context(), bookingapp.QuotePriceQuery{
		UnitID:   strings.TrimSpace(req.UnitID),
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Guests:   guests,
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var errDateFormat = errors.New("dates must be YYYY-MM-DD or RFC3339")

func parseStay(rawIn, rawOut string) (time.Time, time.Time, error) {
	in, err := parseDate(rawIn)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	out, err := parseDate(rawOut)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return in, out, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, errDateFormat
}

// bindOptionalJSON tolerates an empty body.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}

var _ BookingHTTP = BookingHandler{}
