package consumer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/kafka"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/logger"
)

// HoldConsumer converts a confirmed booking's hold into booked capacity.
type HoldConsumer interface {
	ConsumeHold(ctx context.Context, date, timeSlot string) (*domain.Hold, error)
}

// source abstracts the Kafka consumer for tests
type source interface {
	Poll(ctx context.Context) ([]*kafka.Record, error)
	CommitRecords(ctx context.Context, records []*kafka.Record) error
	Close()
}

// BookingConfirmed is the payload published by the booking subsystem
// when a payment settles.
type BookingConfirmed struct {
	BookingID string `json:"bookingId"`
	Date      string `json:"date"`
	TimeSlot  string `json:"timeSlot"`
	ServiceID int    `json:"serviceId"`
}

// BookingConsumer drains booking confirmations and consumes the matching
// holds. Offsets are committed per batch; a store failure leaves the
// batch uncommitted so the records are redelivered.
type BookingConsumer struct {
	source source
	holds  HoldConsumer
	log    *logger.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewBookingConsumer creates a new BookingConsumer
func NewBookingConsumer(src source, holds HoldConsumer) *BookingConsumer {
	return &BookingConsumer{
		source: src,
		holds:  holds,
		log:    logger.Get().With(zap.String("component", "booking_consumer")),
	}
}

// Start launches the consume loop
func (c *BookingConsumer) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})

	c.wg.Add(1)
	go c.run()

	c.log.Info("booking consumer started")
}

// Stop shuts the consume loop down and closes the source
func (c *BookingConsumer) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	c.mu.Unlock()

	c.wg.Wait()
	c.source.Close()

	c.log.Info("booking consumer stopped")
}

func (c *BookingConsumer) run() {
	defer c.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-c.stopCh
		cancel()
	}()

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		records, err := c.source.Poll(ctx)
		if err != nil {
			select {
			case <-c.stopCh:
				return
			default:
			}
			c.log.Error("poll failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		if len(records) == 0 {
			continue
		}

		if err := c.handleBatch(ctx, records); err != nil {
			// Leave the batch uncommitted for redelivery
			c.log.Error("batch processing failed, will retry", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		if err := c.source.CommitRecords(ctx, records); err != nil {
			c.log.Error("commit failed", zap.Error(err))
		}
	}
}

// handleBatch processes one poll's records. Malformed records are logged
// and skipped; they would never become processable.
func (c *BookingConsumer) handleBatch(ctx context.Context, records []*kafka.Record) error {
	for _, record := range records {
		var confirmed BookingConfirmed
		if err := json.Unmarshal(record.Value, &confirmed); err != nil {
			c.log.Warn("skipping malformed confirmation",
				zap.Int64("offset", record.Offset),
				zap.Error(err),
			)
			continue
		}

		if confirmed.Date == "" || confirmed.TimeSlot == "" {
			c.log.Warn("skipping confirmation with missing slot key",
				zap.String("booking_id", confirmed.BookingID),
			)
			continue
		}

		hold, err := c.holds.ConsumeHold(ctx, confirmed.Date, confirmed.TimeSlot)
		if err != nil {
			return err
		}

		if hold == nil {
			// The hold may have expired before the confirmation landed;
			// availability already reflects the booking via the database.
			c.log.Info("confirmation without a live hold",
				zap.String("booking_id", confirmed.BookingID),
				zap.String("date", confirmed.Date),
				zap.String("time_slot", confirmed.TimeSlot),
			)
			continue
		}

		c.log.Info("hold consumed by confirmation",
			zap.String("booking_id", confirmed.BookingID),
			zap.String("hold_id", hold.ID),
		)
	}

	return nil
}
