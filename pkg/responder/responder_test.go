package responder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solrand/solrand-sdk-go/pkg/solrand"
	"github.com/solrand/solrand-sdk-go/pkg/solrand/solrandtest"
)

type fakeOracle struct {
	key     solana.PublicKey
	pending []solrand.RequestAccount
	listErr error
	fail    map[solana.PublicKey]error

	mu        sync.Mutex
	published map[solana.PublicKey]*[solrand.RandomSize]byte
}

func newFakeOracle(n int) *fakeOracle {
	o := &fakeOracle{
		key:       solana.NewWallet().PublicKey(),
		fail:      make(map[solana.PublicKey]error),
		published: make(map[solana.PublicKey]*[solrand.RandomSize]byte),
	}
	for i := 0; i < n; i++ {
		o.pending = append(o.pending, solrand.RequestAccount{
			Address:       solana.NewWallet().PublicKey(),
			Oracle:        o.key,
			ActiveRequest: true,
		})
	}
	return o
}

func (o *fakeOracle) PublicKey() solana.PublicKey { return o.key }

func (o *fakeOracle) PendingRequests(context.Context) ([]solrand.RequestAccount, error) {
	return o.pending, o.listErr
}

func (o *fakeOracle) PublishRandom(_ context.Context, requester solana.PublicKey, random *[solrand.RandomSize]byte) (solana.Signature, error) {
	if err := o.fail[requester]; err != nil {
		return solana.Signature{}, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.published[requester] = random
	return solana.Signature{1}, nil
}

func newTestResponder(oracle Oracle, opts ...Option) *Responder {
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	return New(oracle, opts...)
}

func TestPollOncePublishesAll(t *testing.T) {
	oracle := newFakeOracle(5)
	r := newTestResponder(oracle, WithWorkers(2))

	n, err := r.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Len(t, oracle.published, 5)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.metrics.polls))
	assert.Equal(t, float64(5), testutil.ToFloat64(r.metrics.pending))
	assert.Equal(t, float64(5), testutil.ToFloat64(r.metrics.published.WithLabelValues(resultOK)))
	assert.Equal(t, 1, testutil.CollectAndCount(r.metrics.duration))
}

func TestPollOnceCountsFailures(t *testing.T) {
	oracle := newFakeOracle(3)
	oracle.fail[oracle.pending[0].Address] = fmt.Errorf("publish random: %w", solrand.ErrAlreadyCompleted)
	oracle.fail[oracle.pending[1].Address] = errors.New("connection reset")
	r := newTestResponder(oracle)

	n, err := r.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, float64(1), testutil.ToFloat64(r.metrics.published.WithLabelValues(resultOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.metrics.published.WithLabelValues(resultAlreadyCompleted)))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.metrics.published.WithLabelValues(resultError)))
}

func TestPollOnceListError(t *testing.T) {
	oracle := newFakeOracle(0)
	oracle.listErr = errors.New("rpc unavailable")
	r := newTestResponder(oracle)

	_, err := r.PollOnce(context.Background())
	assert.ErrorIs(t, err, oracle.listErr)
	assert.Equal(t, float64(1), testutil.ToFloat64(r.metrics.polls))
}

func TestPollOnceRandomSource(t *testing.T) {
	oracle := newFakeOracle(1)
	r := newTestResponder(oracle, WithRandomSource(bytes.NewReader(bytes.Repeat([]byte{9}, solrand.RandomSize))))

	_, err := r.PollOnce(context.Background())
	require.NoError(t, err)

	random := oracle.published[oracle.pending[0].Address]
	require.NotNil(t, random)
	assert.Equal(t, byte(9), random[solrand.RandomSize-1])

	// Exhausted source.
	_, err = r.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(r.metrics.published.WithLabelValues(resultError)))
}

func TestPollOnceSharedRandomSource(t *testing.T) {
	const requests = 64

	// Value i of the source is filled with byte i.
	var source []byte
	for i := 0; i < requests; i++ {
		source = append(source, bytes.Repeat([]byte{byte(i)}, solrand.RandomSize)...)
	}
	oracle := newFakeOracle(requests)
	r := newTestResponder(oracle, WithWorkers(8), WithRandomSource(bytes.NewReader(source)))

	n, err := r.PollOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, requests, n)

	seen := make(map[byte]bool)
	for _, random := range oracle.published {
		fill := random[0]
		assert.Equal(t, bytes.Repeat([]byte{fill}, solrand.RandomSize), random[:])
		assert.False(t, seen[fill], "value %d published twice", fill)
		seen[fill] = true
	}
	assert.Len(t, seen, requests)
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	r := newTestResponder(newFakeOracle(0), WithInterval(0), WithInterval(-time.Second), WithWorkers(0))
	assert.Equal(t, 2*time.Second, r.interval)
	assert.Equal(t, 4, r.workers)

	r = newTestResponder(newFakeOracle(0), WithInterval(time.Minute), WithWorkers(16))
	assert.Equal(t, time.Minute, r.interval)
	assert.Equal(t, 16, r.workers)
}

func TestRunStopsOnCancel(t *testing.T) {
	oracle := newFakeOracle(0)
	r := newTestResponder(oracle, WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(r.metrics.polls) >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("responder did not stop")
	}
}

func TestResponderAnswersRequests(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	validator := solrandtest.NewValidator(t, solrand.GenerationV3)
	newSession := func(key solana.PrivateKey) *solrand.Session {
		return solrand.NewSession(validator.Client(), key,
			solrand.WithGeneration(solrand.GenerationV3),
			solrand.WithConfirmPollInterval(time.Millisecond),
			solrand.WithLogger(zerolog.Nop()),
		)
	}

	oracle := solrand.NewOracleSession(newSession(solana.NewWallet().PrivateKey))
	validator.Fund(oracle.PublicKey(), solrand.LamportsPerSol)

	userKey := solana.NewWallet().PrivateKey
	validator.Fund(userKey.PublicKey(), 10*solrand.LamportsPerSol)
	var users []*solrand.UserSession
	for id := uint64(1); id <= 3; id++ {
		user := solrand.NewUserSession(newSession(userKey), oracle.PublicKey(), id)
		require.NoError(t, user.SetAccounts())
		_, err := user.InitializeAccount(ctx)
		require.NoError(t, err)
		_, err = user.RequestRandom(ctx)
		require.NoError(t, err)
		users = append(users, user)
	}

	r := newTestResponder(oracle, WithWorkers(3))
	n, err := r.PollOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, user := range users {
		acc, err := user.Account(ctx)
		require.NoError(t, err)
		assert.False(t, acc.ActiveRequest)
		assert.Equal(t, uint64(1), acc.Count)
	}

	n, err = r.PollOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
