package ws

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/yangakandeni/kwella/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *logger.Logger {
	log := logger.NewLogger("test")
	log.SetOutput(io.Discard, io.Discard)
	return log
}

func newTestClient(log *logger.Logger) *Client {
	return NewClient(nil, nil, log)
}

func recv(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received within 1s")
		return nil
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	log := discardLogger()
	r := NewInMemoryRegistry(log)
	c := newTestClient(log)

	r.Join("trip-1", c)
	r.Join("trip-1", c)

	assert.Equal(t, 1, r.Size("trip-1"))

	require.NoError(t, r.Send(context.Background(), "trip-1", []byte("hi")))
	assert.Equal(t, []byte("hi"), recv(t, c))
	assertNoMessage(t, c)
}

func TestLeaveIsIdempotent(t *testing.T) {
	log := discardLogger()
	r := NewInMemoryRegistry(log)
	c := newTestClient(log)

	// leave без join — no-op, не ошибка
	r.Leave("trip-1", c)
	assert.Equal(t, 0, r.Size("trip-1"))

	r.Join("trip-1", c)
	r.Leave("trip-1", c)
	r.Leave("trip-1", c)
	assert.Equal(t, 0, r.Size("trip-1"))
}

func TestGroupPrunedOnLastLeave(t *testing.T) {
	log := discardLogger()
	r := NewInMemoryRegistry(log)
	c1 := newTestClient(log)
	c2 := newTestClient(log)

	r.Join("trip-1", c1)
	r.Join("trip-1", c2)
	r.Leave("trip-1", c1)

	r.mu.RLock()
	_, exists := r.groups["trip-1"]
	r.mu.RUnlock()
	assert.True(t, exists)

	r.Leave("trip-1", c2)

	r.mu.RLock()
	_, exists = r.groups["trip-1"]
	r.mu.RUnlock()
	assert.False(t, exists, "empty group must be pruned")

	// повторный join после удаления группы работает
	r.Join("trip-1", c1)
	assert.Equal(t, 1, r.Size("trip-1"))
}

func TestSendReachesOnlyGroupMembers(t *testing.T) {
	log := discardLogger()
	r := NewInMemoryRegistry(log)
	member1 := newTestClient(log)
	member2 := newTestClient(log)
	outsider := newTestClient(log)

	r.Join("trip-1", member1)
	r.Join("trip-1", member2)
	r.Join("trip-2", outsider)

	require.NoError(t, r.Send(context.Background(), "trip-1", []byte("update")))

	assert.Equal(t, []byte("update"), recv(t, member1))
	assert.Equal(t, []byte("update"), recv(t, member2))
	assertNoMessage(t, outsider)
}

func TestSendToEmptyGroupIsNoOp(t *testing.T) {
	r := NewInMemoryRegistry(discardLogger())
	assert.NoError(t, r.Send(context.Background(), "nobody-here", []byte("x")))
}

func TestSendToBypassesGroups(t *testing.T) {
	log := discardLogger()
	r := NewInMemoryRegistry(log)
	c := newTestClient(log)

	require.NoError(t, r.SendTo(c, []byte("direct")))
	assert.Equal(t, []byte("direct"), recv(t, c))
}

func TestLeaveAllRemovesEveryMembership(t *testing.T) {
	log := discardLogger()
	r := NewInMemoryRegistry(log)
	c := newTestClient(log)
	other := newTestClient(log)

	r.Join(DriverPoolGroup, c)
	r.Join("trip-1", c)
	r.Join("trip-1", other)

	r.LeaveAll(c)

	assert.Equal(t, 0, r.Size(DriverPoolGroup))
	assert.Equal(t, 1, r.Size("trip-1"))
	assert.Empty(t, r.Groups(c))
}

func TestConcurrentMembershipAndFanout(t *testing.T) {
	log := discardLogger()
	r := NewInMemoryRegistry(log)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c := newTestClient(log)
			group := fmt.Sprintf("trip-%d", n%4)
			for j := 0; j < 100; j++ {
				r.Join(group, c)
				_ = r.Send(context.Background(), group, []byte("m"))
				r.Leave(group, c)
			}
			r.LeaveAll(c)
		}(i)
	}
	wg.Wait()

	for n := 0; n < 4; n++ {
		assert.Equal(t, 0, r.Size(fmt.Sprintf("trip-%d", n)))
	}
}
