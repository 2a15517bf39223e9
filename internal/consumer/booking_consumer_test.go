package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/kafka"
)

// fakeSource feeds canned batches and records commits
type fakeSource struct {
	mu        sync.Mutex
	batches   [][]*kafka.Record
	committed [][]*kafka.Record
	closed    bool
}

func (f *fakeSource) Poll(ctx context.Context) ([]*kafka.Record, error) {
	f.mu.Lock()
	if len(f.batches) > 0 {
		batch := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return batch, nil
	}
	f.mu.Unlock()

	// Block like a real poll until the consumer shuts down
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeSource) CommitRecords(ctx context.Context, records []*kafka.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, records)
	return nil
}

func (f *fakeSource) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSource) commitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

// fakeHolds records ConsumeHold calls
type fakeHolds struct {
	mu    sync.Mutex
	calls []string
	hold  *domain.Hold
	err   error
}

func (f *fakeHolds) ConsumeHold(ctx context.Context, date, timeSlot string) (*domain.Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, date+" "+timeSlot)
	if f.err != nil {
		return nil, f.err
	}
	return f.hold, nil
}

func (f *fakeHolds) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func record(value string) *kafka.Record {
	return &kafka.Record{Value: []byte(value)}
}

func TestBookingConsumer_ConsumesHoldAndCommits(t *testing.T) {
	src := &fakeSource{
		batches: [][]*kafka.Record{{
			record(`{"bookingId":"b-1","date":"2025-06-10","timeSlot":"10:00","serviceId":1}`),
		}},
	}
	holds := &fakeHolds{hold: &domain.Hold{ID: "hold-1"}}

	c := NewBookingConsumer(src, holds)
	c.Start()
	defer c.Stop()

	require.Eventually(t, func() bool {
		return src.commitCount() == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, holds.callCount())
	holds.mu.Lock()
	assert.Equal(t, "2025-06-10 10:00", holds.calls[0])
	holds.mu.Unlock()
}

func TestBookingConsumer_MalformedRecordsAreCommitted(t *testing.T) {
	src := &fakeSource{
		batches: [][]*kafka.Record{{
			record(`not json at all`),
			record(`{"bookingId":"b-2"}`), // missing slot key
		}},
	}
	holds := &fakeHolds{}

	c := NewBookingConsumer(src, holds)
	c.Start()
	defer c.Stop()

	// Malformed records are skipped but still committed so they are
	// not redelivered forever
	require.Eventually(t, func() bool {
		return src.commitCount() == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 0, holds.callCount())
}

func TestBookingConsumer_StoreFailureLeavesBatchUncommitted(t *testing.T) {
	src := &fakeSource{
		batches: [][]*kafka.Record{{
			record(`{"bookingId":"b-1","date":"2025-06-10","timeSlot":"10:00"}`),
		}},
	}
	holds := &fakeHolds{err: errors.New("store down")}

	c := NewBookingConsumer(src, holds)
	c.Start()

	require.Eventually(t, func() bool {
		return holds.callCount() >= 1
	}, time.Second, 10*time.Millisecond)

	c.Stop()
	assert.Equal(t, 0, src.commitCount(), "failed batch must not be committed")
}

func TestBookingConsumer_ExpiredHoldIsFine(t *testing.T) {
	src := &fakeSource{
		batches: [][]*kafka.Record{{
			record(`{"bookingId":"b-1","date":"2025-06-10","timeSlot":"10:00"}`),
		}},
	}
	holds := &fakeHolds{hold: nil} // no live hold for the slot

	c := NewBookingConsumer(src, holds)
	c.Start()
	defer c.Stop()

	require.Eventually(t, func() bool {
		return src.commitCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestBookingConsumer_StopClosesSource(t *testing.T) {
	src := &fakeSource{}
	c := NewBookingConsumer(src, &fakeHolds{})

	c.Start()
	c.Start() // idempotent
	c.Stop()
	c.Stop() // idempotent

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.True(t, src.closed)
}
