package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/dto"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/hub"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/metrics"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/service"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/logger"
)

// sender delivers one outbound message without blocking
type sender interface {
	Send(msg dto.Outbound) bool
}

// Session owns the protocol for one connection: it parses inbound
// messages, applies per-action cooldowns and dispatches to the hub and
// hold service. Transport details live in Client; Session is testable
// with any sender.
type Session struct {
	id           string
	out          sender
	hub          *hub.Hub
	broadcaster  *hub.Broadcaster
	holds        *service.HoldService
	limiter      *ActionLimiter
	storeTimeout time.Duration
	log          *logger.Logger
}

// NewSession creates a session for one connection
func NewSession(
	id string,
	out sender,
	h *hub.Hub,
	broadcaster *hub.Broadcaster,
	holds *service.HoldService,
	limiter *ActionLimiter,
	storeTimeout time.Duration,
) *Session {
	if storeTimeout <= 0 {
		storeTimeout = 3 * time.Second
	}
	return &Session{
		id:           id,
		out:          out,
		hub:          h,
		broadcaster:  broadcaster,
		holds:        holds,
		limiter:      limiter,
		storeTimeout: storeTimeout,
		log:          logger.Get().With(zap.String("connection_id", id)),
	}
}

// ID returns the connection id
func (s *Session) ID() string { return s.id }

// HandleMessage processes one raw inbound frame
func (s *Session) HandleMessage(ctx context.Context, raw []byte) {
	var msg dto.Inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.sendError("invalid message format")
		return
	}

	switch msg.Type {
	case dto.ActionSubscribe, dto.ActionUnsubscribe, dto.ActionAttemptBooking, dto.ActionReleaseHold:
	default:
		s.sendError(fmt.Sprintf("unknown message type %q", msg.Type))
		return
	}

	if !s.limiter.Allow(msg.Type) {
		metrics.RateLimitRejections.Inc(ctx)
		s.out.Send(dto.Outbound{
			Type: dto.TypeRateLimited,
			Payload: dto.RateLimited{
				Action:  msg.Type,
				Message: fmt.Sprintf("too many %s requests, retry in %s", msg.Type, s.limiter.Cooldown(msg.Type)),
			},
		})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	switch msg.Type {
	case dto.ActionSubscribe:
		s.handleSubscribe(ctx, msg.Payload)
	case dto.ActionUnsubscribe:
		s.handleUnsubscribe(msg.Payload)
	case dto.ActionAttemptBooking:
		s.handleAttemptBooking(ctx, msg.Payload)
	case dto.ActionReleaseHold:
		s.handleReleaseHold(ctx, msg.Payload)
	}
}

// Close removes the connection's subscriptions. Holds are deliberately
// left in the store; they lapse through normal expiry so a reconnecting
// client does not lose its claim instantly.
func (s *Session) Close() {
	s.hub.Unregister(s.id)
}

func (s *Session) handleSubscribe(ctx context.Context, payload json.RawMessage) {
	var req dto.SubscribeRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError("invalid subscribe payload")
		return
	}
	if _, err := time.Parse(domain.DateLayout, req.Date); err != nil {
		s.sendError(domain.ErrInvalidDate.Error())
		return
	}
	if req.ServiceID < 0 {
		s.sendError(domain.ErrInvalidServiceID.Error())
		return
	}

	// The immediate snapshot doubles as validation: a past date or a
	// broken store fails here, and a failed subscribe must not leave a
	// registration behind in the hub.
	if err := s.broadcaster.Snapshot(ctx, s.sessionConn(), req.Date, req.ServiceID); err != nil {
		s.log.Warn("failed to send initial snapshot",
			zap.String("date", req.Date),
			zap.Error(err),
		)
		s.sendError(err.Error())
		return
	}

	s.hub.Subscribe(s.sessionConn(), req.Date, req.ServiceID)
}

func (s *Session) handleUnsubscribe(payload json.RawMessage) {
	var req dto.UnsubscribeRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError("invalid unsubscribe payload")
		return
	}
	s.hub.Unsubscribe(s.id, req.Date)
}

func (s *Session) handleAttemptBooking(ctx context.Context, payload json.RawMessage) {
	var req dto.AttemptBookingRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError("invalid attempt_booking payload")
		return
	}

	hold, err := s.holds.CreateHold(ctx, s.id, req.Date, req.TimeSlot, req.ServiceID)
	if err != nil {
		var conflict *service.ConflictError
		if errors.As(err, &conflict) {
			s.out.Send(dto.Outbound{
				Type: dto.TypeBookingConflict,
				Payload: dto.BookingConflict{
					TimeSlot:  conflict.TimeSlot,
					Conflicts: conflict.Conflicts,
				},
			})
			return
		}
		s.sendError(err.Error())
		return
	}

	s.out.Send(dto.Outbound{
		Type: dto.TypeHoldCreated,
		Payload: dto.HoldCreated{
			HoldID:    hold.ID,
			ExpiresAt: hold.ExpiresAt.UTC().Format(time.RFC3339),
			TimeSlot:  hold.TimeSlot,
			Date:      hold.Date,
		},
	})
}

func (s *Session) handleReleaseHold(ctx context.Context, payload json.RawMessage) {
	var req dto.ReleaseHoldRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError("invalid release_hold payload")
		return
	}

	// The release confirmation reaches the owner through the broadcaster,
	// the same path hold expiry uses.
	if err := s.holds.ReleaseHold(ctx, s.id, req.Date, req.TimeSlot); err != nil {
		s.sendError(err.Error())
	}
}

func (s *Session) sendError(message string) {
	s.out.Send(dto.Outbound{
		Type:    dto.TypeBookingError,
		Payload: dto.BookingError{Message: message},
	})
}

// sessionConn adapts the session to the hub's Connection interface
func (s *Session) sessionConn() hub.Connection {
	return sessionConnection{s}
}

type sessionConnection struct {
	s *Session
}

func (c sessionConnection) ID() string                 { return c.s.id }
func (c sessionConnection) Send(msg dto.Outbound) bool { return c.s.out.Send(msg) }
