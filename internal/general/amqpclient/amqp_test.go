package amqpclient

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Azure/go-amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"denm-gateway/internal/general/logger"
)

func testLogger() *logger.Logger {
	return logger.New("amqp-test", logger.LevelError)
}

type fakeSendLink struct {
	mu     sync.Mutex
	sent   []*amqp.Message
	closed bool
}

func (f *fakeSendLink) Send(_ context.Context, msg *amqp.Message, _ *amqp.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSendLink) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeReceiveLink struct {
	mu       sync.Mutex
	queue    chan *amqp.Message
	credits  []uint32
	accepted int
	closed   bool
}

func newFakeReceiveLink(n int) *fakeReceiveLink {
	return &fakeReceiveLink{queue: make(chan *amqp.Message, n)}
}

func (f *fakeReceiveLink) Receive(ctx context.Context, _ *amqp.ReceiveOptions) (*amqp.Message, error) {
	select {
	case msg := <-f.queue:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeReceiveLink) AcceptMessage(context.Context, *amqp.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepted++
	return nil
}

func (f *fakeReceiveLink) IssueCredit(credit uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credits = append(f.credits, credit)
	return nil
}

func (f *fakeReceiveLink) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestSender_DeliversInSubmitOrder(t *testing.T) {
	link := &fakeSendLink{}
	s := newSender(link, testLogger())

	for i := 0; i < 50; i++ {
		msg := amqp.NewMessage([]byte(fmt.Sprintf("m-%d", i)))
		require.NoError(t, s.Send(context.Background(), msg))
	}
	require.NoError(t, s.Close(context.Background()))

	require.Len(t, link.sent, 50)
	for i, msg := range link.sent {
		assert.Equal(t, fmt.Sprintf("m-%d", i), string(msg.GetData()))
	}
	assert.True(t, link.closed)
}

func TestSender_ConcurrentCallersKeepPerCallerOrder(t *testing.T) {
	const callers = 8
	const perCaller = 125

	link := &fakeSendLink{}
	s := newSender(link, testLogger())

	var wg sync.WaitGroup
	for c := 0; c < callers; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			for i := 0; i < perCaller; i++ {
				msg := amqp.NewMessage([]byte(fmt.Sprintf("%d/%d", c, i)))
				assert.NoError(t, s.Send(context.Background(), msg))
			}
		}(c)
	}
	wg.Wait()
	require.NoError(t, s.Close(context.Background()))

	require.Len(t, link.sent, callers*perCaller)

	// per-caller sequence numbers must arrive monotonically
	next := make([]int, callers)
	for _, msg := range link.sent {
		var c, i int
		_, err := fmt.Sscanf(string(msg.GetData()), "%d/%d", &c, &i)
		require.NoError(t, err)
		assert.Equal(t, next[c], i)
		next[c]++
	}
}

func TestSender_SendAfterClose(t *testing.T) {
	s := newSender(&fakeSendLink{}, testLogger())
	require.NoError(t, s.Close(context.Background()))

	err := s.Send(context.Background(), amqp.NewMessage([]byte("late")))
	assert.ErrorIs(t, err, ErrSenderClosed)
}

func TestSender_CloseIsIdempotent(t *testing.T) {
	link := &fakeSendLink{}
	s := newSender(link, testLogger())

	require.NoError(t, s.Close(context.Background()))
	assert.NotPanics(t, func() {
		assert.NoError(t, s.Close(context.Background()))
	})
	assert.True(t, link.closed)
}

func TestSender_ContextCancelUnblocks(t *testing.T) {
	s := newSender(&fakeSendLink{}, testLogger())
	defer s.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, amqp.NewMessage([]byte("x")))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReceiver_GrantsWindowUpFront(t *testing.T) {
	link := newFakeReceiveLink(1)
	r, err := newReceiver(link, testLogger())
	require.NoError(t, err)
	defer r.Close(context.Background())

	link.mu.Lock()
	defer link.mu.Unlock()
	require.NotEmpty(t, link.credits)
	assert.Equal(t, uint32(creditWindow), link.credits[0])
}

func TestReceiver_DeliversAndRefreshesCredit(t *testing.T) {
	link := newFakeReceiveLink(10)
	for i := 0; i < 10; i++ {
		link.queue <- amqp.NewMessage([]byte(fmt.Sprintf("d-%d", i)))
	}

	r, err := newReceiver(link, testLogger())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		msg, err := r.Receive(context.Background())
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("d-%d", i), string(msg.GetData()))
	}
	require.NoError(t, r.Close(context.Background()))

	link.mu.Lock()
	defer link.mu.Unlock()
	assert.Equal(t, 10, link.accepted)

	// initial window grant plus one refresh per consumed message
	var total uint32
	for _, c := range link.credits {
		total += c
	}
	assert.Equal(t, uint32(creditWindow+10), total)
	assert.True(t, link.closed)
}

func TestReceiver_CloseUnblocksReceive(t *testing.T) {
	link := newFakeReceiveLink(1)
	r, err := newReceiver(link, testLogger())
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := r.Receive(context.Background())
		errc <- err
	}()

	// let the Receive call park on the empty buffer
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, r.Close(context.Background()))

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrReceiverClosed)
	case <-time.After(time.Second):
		t.Fatal("Receive did not unblock on Close")
	}
}

func TestReceiver_ContextCancelUnblocks(t *testing.T) {
	link := newFakeReceiveLink(1)
	r, err := newReceiver(link, testLogger())
	require.NoError(t, err)
	defer r.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = r.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
