package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/response"
)

// mockCalculator delegates to a configurable func
type mockCalculator struct {
	calculateFunc func(ctx context.Context, date string, serviceID int) (*domain.Availability, error)
}

func (m *mockCalculator) Calculate(ctx context.Context, date string, serviceID int) (*domain.Availability, error) {
	return m.calculateFunc(ctx, date, serviceID)
}

func setupRouter(calc *mockCalculator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewAvailabilityHandler(calc)
	router.GET("/api/v1/availability/:date", h.GetAvailability)
	return router
}

func TestAvailabilityHandler_GetAvailability(t *testing.T) {
	calc := &mockCalculator{
		calculateFunc: func(ctx context.Context, date string, serviceID int) (*domain.Availability, error) {
			assert.Equal(t, "2025-06-10", date)
			assert.Equal(t, 2, serviceID)
			return &domain.Availability{
				Date:      date,
				ServiceID: serviceID,
				TimeSlots: []domain.TimeSlot{{StartTime: "10:00", EndTime: "10:30", IsAvailable: true}},
				Summary:   domain.Summary{TotalSlots: 1, AvailableSlots: 1},
			}, nil
		},
	}
	router := setupRouter(calc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability/2025-06-10?serviceId=2", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	var availability domain.Availability
	require.NoError(t, json.Unmarshal(data, &availability))
	assert.Equal(t, "2025-06-10", availability.Date)
	assert.Equal(t, 1, availability.Summary.TotalSlots)
}

func TestAvailabilityHandler_InvalidDate(t *testing.T) {
	calc := &mockCalculator{
		calculateFunc: func(ctx context.Context, date string, serviceID int) (*domain.Availability, error) {
			return nil, domain.ErrInvalidDate
		},
	}
	router := setupRouter(calc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability/not-a-date", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailabilityHandler_PastDate(t *testing.T) {
	calc := &mockCalculator{
		calculateFunc: func(ctx context.Context, date string, serviceID int) (*domain.Availability, error) {
			return nil, domain.ErrPastDate
		},
	}
	router := setupRouter(calc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability/2020-01-01", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailabilityHandler_BadServiceID(t *testing.T) {
	called := false
	calc := &mockCalculator{
		calculateFunc: func(ctx context.Context, date string, serviceID int) (*domain.Availability, error) {
			called = true
			return nil, nil
		},
	}
	router := setupRouter(calc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability/2025-06-10?serviceId=abc", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called, "calculator must not run on invalid input")
}

func TestAvailabilityHandler_StoreFailure(t *testing.T) {
	calc := &mockCalculator{
		calculateFunc: func(ctx context.Context, date string, serviceID int) (*domain.Availability, error) {
			return nil, errors.New("pg down")
		},
	}
	router := setupRouter(calc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability/2025-06-10", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	h := NewHealthHandler("1.2.3")
	h.AddCheck("redis", func(ctx context.Context) error { return nil })
	h.AddCheck("postgres", func(ctx context.Context) error { return errors.New("connection refused") })

	router.GET("/health", h.Liveness)
	router.GET("/health/ready", h.Readiness)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1.2.3")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
