package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/service"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/logger"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/response"
)

// AvailabilityHandler serves availability snapshots over REST for
// clients that cannot hold a websocket open.
type AvailabilityHandler struct {
	calculator service.Calculator
	log        *logger.Logger
}

// NewAvailabilityHandler creates a new AvailabilityHandler
func NewAvailabilityHandler(calculator service.Calculator) *AvailabilityHandler {
	return &AvailabilityHandler{
		calculator: calculator,
		log:        logger.Get().With(zap.String("component", "availability_handler")),
	}
}

// GetAvailability handles GET /api/v1/availability/:date
func (h *AvailabilityHandler) GetAvailability(c *gin.Context) {
	date := c.Param("date")

	serviceID := 0
	if raw := c.Query("serviceId"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.BadRequest(c, domain.ErrInvalidServiceID.Error())
			return
		}
		serviceID = parsed
	}

	availability, err := h.calculator.Calculate(c.Request.Context(), date, serviceID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidDate),
			errors.Is(err, domain.ErrPastDate),
			errors.Is(err, domain.ErrInvalidServiceID):
			response.BadRequest(c, err.Error())
		default:
			h.log.Error("failed to compute availability",
				zap.String("date", date),
				zap.Error(err),
			)
			response.InternalError(c, "failed to compute availability")
		}
		return
	}

	response.Success(c, availability)
}
