package poller

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/fgeck/wait-for-it/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDialer struct {
	mu       sync.Mutex
	calls    int
	dialFunc func(ctx context.Context, network, address string) (net.Conn, error)
}

func (m *mockDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.dialFunc != nil {
		return m.dialFunc(ctx, network, address)
	}
	return pipeConn(), nil
}

func (m *mockDialer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func pipeConn() net.Conn {
	client, server := net.Pipe()
	_ = server.Close()
	return client
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testConfig() models.WaitConfig {
	return models.WaitConfig{
		Target:         models.WaitTarget{Host: "localhost", Port: 8080},
		Timeout:        10 * time.Second,
		Interval:       10 * time.Millisecond,
		AttemptTimeout: time.Second,
	}
}

func TestWait_ImmediateSuccess(t *testing.T) {
	var network, address string
	dialer := &mockDialer{
		dialFunc: func(ctx context.Context, n, a string) (net.Conn, error) {
			network, address = n, a
			return pipeConn(), nil
		},
	}

	svc := NewWithDialer(testLogger(), dialer)
	outcome, err := svc.Wait(context.Background(), testConfig())

	require.NoError(t, err)
	assert.True(t, outcome.Connected())
	assert.Equal(t, 1, outcome.Attempts)
	assert.Nil(t, outcome.LastErr)
	assert.Equal(t, 0, outcome.ElapsedSeconds())
	assert.Equal(t, "tcp", network)
	assert.Equal(t, "localhost:8080", address)
}

func TestWait_IPv6Address(t *testing.T) {
	var address string
	dialer := &mockDialer{
		dialFunc: func(ctx context.Context, n, a string) (net.Conn, error) {
			address = a
			return pipeConn(), nil
		},
	}

	cfg := testConfig()
	cfg.Target = models.WaitTarget{Host: "::1", Port: 5432}

	_, err := NewWithDialer(testLogger(), dialer).Wait(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, "[::1]:5432", address)
}

func TestWait_DelayedSuccess(t *testing.T) {
	dialer := &mockDialer{}
	dialer.dialFunc = func(ctx context.Context, n, a string) (net.Conn, error) {
		if dialer.calls < 3 {
			return nil, errors.New("connection refused")
		}
		return pipeConn(), nil
	}

	svc := NewWithDialer(testLogger(), dialer)
	outcome, err := svc.Wait(context.Background(), testConfig())

	require.NoError(t, err)
	assert.True(t, outcome.Connected())
	assert.Equal(t, 3, outcome.Attempts)
	assert.Nil(t, outcome.LastErr)
	assert.GreaterOrEqual(t, outcome.Elapsed, 20*time.Millisecond)
}

func TestWait_Timeout(t *testing.T) {
	dialer := &mockDialer{
		dialFunc: func(ctx context.Context, n, a string) (net.Conn, error) {
			return nil, errors.New("connection refused")
		},
	}

	cfg := testConfig()
	cfg.Timeout = 50 * time.Millisecond

	svc := NewWithDialer(testLogger(), dialer)
	outcome, err := svc.Wait(context.Background(), cfg)

	require.NoError(t, err)
	assert.False(t, outcome.Connected())
	assert.Equal(t, models.PollTimedOut, outcome.State)
	assert.GreaterOrEqual(t, outcome.Attempts, 2)
	assert.GreaterOrEqual(t, outcome.Elapsed, 50*time.Millisecond)
	require.Error(t, outcome.LastErr)
	assert.Contains(t, outcome.LastErr.Error(), "connection refused")
}

func TestWait_TimeoutShorterThanInterval(t *testing.T) {
	dialer := &mockDialer{
		dialFunc: func(ctx context.Context, n, a string) (net.Conn, error) {
			return nil, errors.New("connection refused")
		},
	}

	cfg := testConfig()
	cfg.Timeout = 30 * time.Millisecond
	cfg.Interval = time.Hour

	start := time.Now()
	outcome, err := NewWithDialer(testLogger(), dialer).Wait(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, models.PollTimedOut, outcome.State)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWait_ZeroTimeoutWaitsUntilSuccess(t *testing.T) {
	dialer := &mockDialer{}
	dialer.dialFunc = func(ctx context.Context, n, a string) (net.Conn, error) {
		if dialer.calls < 6 {
			return nil, errors.New("connection refused")
		}
		return pipeConn(), nil
	}

	cfg := testConfig()
	cfg.Timeout = 0

	outcome, err := NewWithDialer(testLogger(), dialer).Wait(context.Background(), cfg)

	require.NoError(t, err)
	assert.True(t, outcome.Connected())
	assert.Equal(t, 6, outcome.Attempts)
}

func TestWait_AttemptIsBounded(t *testing.T) {
	var hadDeadline bool
	dialer := &mockDialer{
		dialFunc: func(ctx context.Context, n, a string) (net.Conn, error) {
			deadline, ok := ctx.Deadline()
			hadDeadline = ok && time.Until(deadline) <= 100*time.Millisecond
			return pipeConn(), nil
		},
	}

	cfg := testConfig()
	cfg.Timeout = 0
	cfg.AttemptTimeout = 100 * time.Millisecond

	_, err := NewWithDialer(testLogger(), dialer).Wait(context.Background(), cfg)

	require.NoError(t, err)
	assert.True(t, hadDeadline)
}

func TestWait_HangingDialRespectsTimeout(t *testing.T) {
	dialer := &mockDialer{
		dialFunc: func(ctx context.Context, n, a string) (net.Conn, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	cfg := testConfig()
	cfg.Timeout = 50 * time.Millisecond
	cfg.AttemptTimeout = time.Minute

	start := time.Now()
	outcome, err := NewWithDialer(testLogger(), dialer).Wait(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, models.PollTimedOut, outcome.State)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWait_ContextCancelled(t *testing.T) {
	dialer := &mockDialer{
		dialFunc: func(ctx context.Context, n, a string) (net.Conn, error) {
			return nil, errors.New("connection refused")
		},
	}

	cfg := testConfig()
	cfg.Timeout = 0
	cfg.Interval = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	outcome, err := NewWithDialer(testLogger(), dialer).Wait(ctx, cfg)

	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, outcome.Connected())
	assert.GreaterOrEqual(t, dialer.Calls(), 1)
}
