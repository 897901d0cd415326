package ginserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"travelbooking/internal/app/dto"
	availabilityapp "travelbooking/internal/app/handlers/availability"
)

type OccupancyReader interface {
	GetOccupancy(ctx context.Context, q availabilityapp.GetOccupancyQuery) (dto.Occupancy, error)
}

type AvailabilityHandler struct {
	Reader OccupancyReader
	Logger *slog.Logger
}

// Occupancy lists taken nights for ?from=YYYY-MM-DD&to=YYYY-MM-DD, defaulting to the next 90 days.
func (h AvailabilityHandler) Occupancy(c *gin.Context) {
	from := time.Now().UTC().Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, 90)
	var err error
	if raw := c.Query("from"); raw != "" {
		if from, err = parseDate(raw); err != nil {
			badRequest(c, err)
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = parseDate(raw); err != nil {
			badRequest(c, err)
			return
		}
	}
	result, err := h.Reader.GetOccupancy(c.Request.Context(), availabilityapp.GetOccupancyQuery{
		UnitID: c.Param("id"),
		From:   from,
		To:     to,
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
