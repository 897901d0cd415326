package availability

import (
	"context"
	"sort"
	"strings"
	"time"

	"travelbooking/internal/app/dto"
	handlersupport "travelbooking/internal/app/handlers/support"
	"travelbooking/internal/app/queries"
	"travelbooking/internal/app/uow"
	domaincatalog "travelbooking/internal/domain/catalog"
	"travelbooking/internal/domain/shared/daterange"
)

const getOccupancyKey = "availability.occupancy"

// GetOccupancyQuery asks which nights of [From, To] are held at a unit.
type GetOccupancyQuery struct {
	UnitID string    `validate:"required"`
	From   time.Time `validate:"required"`
	To     time.Time `validate:"required"`
}

func (q GetOccupancyQuery) Key() string { return getOccupancyKey }

type GetOccupancyHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetOccupancyHandler) Handle(ctx context.Context, q GetOccupancyQuery) (dto.Occupancy, error) {
	window, err := daterange.New(q.From, q.To)
	if err != nil {
		return dto.Occupancy{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Occupancy{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	unitID := domaincatalog.UnitID(strings.TrimSpace(q.UnitID))
	if _, err := unit.Units().ByID(execCtx, unitID); err != nil {
		return dto.Occupancy{}, err
	}
	live, err := unit.Bookings().ListNonTerminalByUnit(execCtx, unitID)
	if err != nil {
		return dto.Occupancy{}, err
	}

	out := dto.Occupancy{
		UnitID: string(unitID),
		From:   window.Start.Format(time.DateOnly),
		To:     window.End.Format(time.DateOnly),
		Nights: []dto.OccupiedRange{},
	}
	for _, b := range live {
		if !b.Status.Blocking() {
			continue
		}
		nights, ok := b.Stay.OccupiedNights()
		if !ok {
			continue
		}
		held, ok := nights.Intersection(window)
		if !ok {
			continue
		}
		out.Nights = append(out.Nights, dto.OccupiedRange{
			BookingID: string(b.ID),
			Status:    string(b.Status),
			From:      held.Start.Format(time.DateOnly),
			To:        held.End.Format(time.DateOnly),
		})
	}
	sort.Slice(out.Nights, func(i, j int) bool { return out.Nights[i].From < out.Nights[j].From })
	return out, nil
}

var _ queries.Handler[GetOccupancyQuery, dto.Occupancy] = (*GetOccupancyHandler)(nil)
