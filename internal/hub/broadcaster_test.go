package hub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/dto"
)

// stubCalculator returns a canned snapshot and counts calls per service
type stubCalculator struct {
	mu    sync.Mutex
	calls map[int]int
	err   error
}

func newStubCalculator() *stubCalculator {
	return &stubCalculator{calls: make(map[int]int)}
}

func (c *stubCalculator) Calculate(ctx context.Context, date string, serviceID int) (*domain.Availability, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[serviceID]++
	if c.err != nil {
		return nil, c.err
	}
	return &domain.Availability{
		Date:      date,
		ServiceID: serviceID,
		TimeSlots: []domain.TimeSlot{},
	}, nil
}

func (c *stubCalculator) callCount(serviceID int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[serviceID]
}

func TestBroadcaster_NotifyDateReachesAllSubscribers(t *testing.T) {
	h := New()
	calc := newStubCalculator()
	b := NewBroadcaster(h, calc, time.Second)

	conns := []*fakeConn{newFakeConn("conn-a"), newFakeConn("conn-b"), newFakeConn("conn-c")}
	for _, c := range conns {
		h.Subscribe(c, "2025-06-10", 0)
	}

	// conn-a is also the connection whose action triggered the update;
	// it must receive the broadcast like everyone else.
	b.NotifyDate("2025-06-10")

	for _, c := range conns {
		msgs := c.received()
		require.Len(t, msgs, 1, "connection %s", c.ID())
		assert.Equal(t, dto.TypeAvailabilityUpdate, msgs[0].Type)

		snapshot, ok := msgs[0].Payload.(*domain.Availability)
		require.True(t, ok)
		assert.Equal(t, "2025-06-10", snapshot.Date)
	}

	// One snapshot computation served all three subscribers
	assert.Equal(t, 1, calc.callCount(0))
}

func TestBroadcaster_NotifyDateGroupsByService(t *testing.T) {
	h := New()
	calc := newStubCalculator()
	b := NewBroadcaster(h, calc, time.Second)

	h.Subscribe(newFakeConn("conn-a"), "2025-06-10", 0)
	h.Subscribe(newFakeConn("conn-b"), "2025-06-10", 0)
	h.Subscribe(newFakeConn("conn-c"), "2025-06-10", 2)

	b.NotifyDate("2025-06-10")

	assert.Equal(t, 1, calc.callCount(0))
	assert.Equal(t, 1, calc.callCount(2))
}

func TestBroadcaster_NotifyDateNoSubscribers(t *testing.T) {
	h := New()
	calc := newStubCalculator()
	b := NewBroadcaster(h, calc, time.Second)

	b.NotifyDate("2025-06-10")

	assert.Equal(t, 0, calc.callCount(0), "no snapshot computed without subscribers")
}

func TestBroadcaster_SlowConnectionDoesNotBlockOthers(t *testing.T) {
	h := New()
	calc := newStubCalculator()
	b := NewBroadcaster(h, calc, time.Second)

	healthy := newFakeConn("conn-a")
	saturated := newFakeConn("conn-b")
	saturated.full = true

	h.Subscribe(healthy, "2025-06-10", 0)
	h.Subscribe(saturated, "2025-06-10", 0)

	b.NotifyDate("2025-06-10")

	assert.Len(t, healthy.received(), 1)
	assert.Empty(t, saturated.received())
}

func TestBroadcaster_Snapshot(t *testing.T) {
	h := New()
	calc := newStubCalculator()
	b := NewBroadcaster(h, calc, time.Second)

	conn := newFakeConn("conn-a")
	require.NoError(t, b.Snapshot(context.Background(), conn, "2025-06-10", 1))

	msgs := conn.received()
	require.Len(t, msgs, 1)
	assert.Equal(t, dto.TypeAvailabilityUpdate, msgs[0].Type)
	assert.Equal(t, 1, calc.callCount(1))
}

func TestBroadcaster_HoldLifecycleNotifications(t *testing.T) {
	h := New()
	calc := newStubCalculator()
	b := NewBroadcaster(h, calc, time.Second)

	owner := newFakeConn("conn-a")
	h.Register(owner)

	hold := &domain.Hold{
		ID:           "hold-1",
		ConnectionID: "conn-a",
		Date:         "2025-06-10",
		TimeSlot:     "10:00",
	}

	b.NotifyHoldExpired(hold)
	b.NotifyHoldReleased(hold)

	msgs := owner.received()
	require.Len(t, msgs, 2)
	assert.Equal(t, dto.TypeHoldExpired, msgs[0].Type)
	assert.Equal(t, dto.TypeHoldReleased, msgs[1].Type)

	expired, ok := msgs[0].Payload.(dto.HoldExpired)
	require.True(t, ok)
	assert.Equal(t, "hold-1", expired.HoldID)

	// Disconnected owner: nothing to deliver, nothing to panic over
	hold.ConnectionID = "conn-gone"
	b.NotifyHoldExpired(hold)
	b.NotifyHoldReleased(hold)
	assert.Len(t, owner.received(), 2)
}
