package hub

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/dto"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/metrics"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/logger"
)

// Calculator computes a day's availability snapshot.
type Calculator interface {
	Calculate(ctx context.Context, date string, serviceID int) (*domain.Availability, error)
}

// Broadcaster fans availability snapshots and hold lifecycle events out
// to subscribed connections. One snapshot is computed per distinct
// service filter, never per connection. Delivery is fire and forget; a
// slow connection drops messages instead of stalling the rest.
type Broadcaster struct {
	hub        *Hub
	calculator Calculator
	timeout    time.Duration
	log        *logger.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(h *Hub, calculator Calculator, timeout time.Duration) *Broadcaster {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Broadcaster{
		hub:        h,
		calculator: calculator,
		timeout:    timeout,
		log:        logger.Get().With(zap.String("component", "broadcaster")),
	}
}

// NotifyDate recomputes the date's availability and pushes it to every
// subscriber of that date, including the connection whose action caused
// the change.
func (b *Broadcaster) NotifyDate(date string) {
	subscribers := b.hub.Subscribers(date)
	if len(subscribers) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	// Group by service filter so each snapshot is computed once
	byService := make(map[int][]Subscriber)
	for _, sub := range subscribers {
		byService[sub.ServiceID] = append(byService[sub.ServiceID], sub)
	}

	for serviceID, subs := range byService {
		snapshot, err := b.calculator.Calculate(ctx, date, serviceID)
		if err != nil {
			b.log.Error("failed to compute snapshot for broadcast",
				zap.String("date", date),
				zap.Int("service_id", serviceID),
				zap.Error(err),
			)
			continue
		}

		msg := dto.NewAvailabilityUpdate(snapshot)
		for _, sub := range subs {
			b.deliver(ctx, sub.Conn, msg)
		}
	}
}

// Snapshot computes and sends the current availability for one
// connection, used to answer a fresh subscription.
func (b *Broadcaster) Snapshot(ctx context.Context, conn Connection, date string, serviceID int) error {
	snapshot, err := b.calculator.Calculate(ctx, date, serviceID)
	if err != nil {
		return err
	}
	b.deliver(ctx, conn, dto.NewAvailabilityUpdate(snapshot))
	return nil
}

// NotifyHoldExpired tells the owning connection its hold lapsed
func (b *Broadcaster) NotifyHoldExpired(hold *domain.Hold) {
	conn := b.hub.Connection(hold.ConnectionID)
	if conn == nil {
		// Owner already disconnected; subscribers still learn about the
		// freed slot through NotifyDate.
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	b.deliver(ctx, conn, dto.Outbound{
		Type: dto.TypeHoldExpired,
		Payload: dto.HoldExpired{
			HoldID:   hold.ID,
			TimeSlot: hold.TimeSlot,
			Date:     hold.Date,
		},
	})
}

// NotifyHoldReleased tells the owning connection its hold was released
func (b *Broadcaster) NotifyHoldReleased(hold *domain.Hold) {
	conn := b.hub.Connection(hold.ConnectionID)
	if conn == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	b.deliver(ctx, conn, dto.Outbound{
		Type: dto.TypeHoldReleased,
		Payload: dto.HoldReleased{
			TimeSlot: hold.TimeSlot,
			Date:     hold.Date,
		},
	})
}

func (b *Broadcaster) deliver(ctx context.Context, conn Connection, msg dto.Outbound) {
	if conn.Send(msg) {
		metrics.BroadcastsSent.Inc(ctx)
		return
	}

	metrics.BroadcastsDropped.Inc(ctx)
	b.log.Warn("dropped message on full send buffer",
		zap.String("connection_id", conn.ID()),
		zap.String("type", msg.Type),
	)
}
