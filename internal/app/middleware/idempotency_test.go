package middleware

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorestay/internal/app/commands"
)

type echoCommand struct {
	Key_   string
	Reply  string
	IdemID string
}

func (c echoCommand) Key() string            { return c.Key_ }
func (c echoCommand) IdempotencyKey() string { return c.IdemID }
func (c echoCommand) ResultPrototype() any   { return &echoResult{} }

type echoResult struct {
	Reply string `json:"reply"`
}

type mapStore struct {
	items map[string]IdempotencyRecord
}

func newMapStore() *mapStore {
	return &mapStore{items: make(map[string]IdempotencyRecord)}
}

func (s *mapStore) Get(ctx context.Context, key string) (IdempotencyRecord, bool, error) {
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *mapStore) Save(ctx context.Context, rec IdempotencyRecord) error {
	s.items[rec.Key] = rec
	return nil
}

func newEchoBus(t *testing.T, calls *int, failWith error) *commands.InMemoryBus {
	t.Helper()
	bus := commands.NewInMemoryBus()
	bus.RegisterRaw("echo", func(ctx context.Context, cmd commands.Command) (any, error) {
		*calls++
		if failWith != nil {
			return nil, failWith
		}
		return &echoResult{Reply: cmd.(echoCommand).Reply}, nil
	})
	return bus
}

func TestIdempotencyReplaysStoredResult(t *testing.T) {
	calls := 0
	bus := ChainCommands(newEchoBus(t, &calls, nil), Idempotency(newMapStore(), nil))
	cmd := echoCommand{Key_: "echo", Reply: "hello", IdemID: "idem-1"}

	first, err := bus.Dispatch(context.Background(), cmd)
	require.NoError(t, err)
	second, err := bus.Dispatch(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first.(*echoResult).Reply, second.(*echoResult).Reply)
}

func TestIdempotencyReplaysStoredError(t *testing.T) {
	calls := 0
	boom := errors.New("gateway unreachable")
	bus := ChainCommands(newEchoBus(t, &calls, boom), Idempotency(newMapStore(), nil))
	cmd := echoCommand{Key_: "echo", IdemID: "idem-2"}

	_, err := bus.Dispatch(context.Background(), cmd)
	require.Error(t, err)
	_, err = bus.Dispatch(context.Background(), cmd)
	require.EqualError(t, err, "gateway unreachable")

	assert.Equal(t, 1, calls)
}

func TestIdempotencyReplayPreservesErrorKind(t *testing.T) {
	calls := 0
	conflict := errors.New("reservation: dates conflict with a confirmed stay")
	wrapped := fmt.Errorf("request booking: %w", conflict)
	bus := ChainCommands(newEchoBus(t, &calls, wrapped), Idempotency(newMapStore(), nil, conflict))
	cmd := echoCommand{Key_: "echo", IdemID: "idem-3"}

	_, err := bus.Dispatch(context.Background(), cmd)
	require.ErrorIs(t, err, conflict)
	_, err = bus.Dispatch(context.Background(), cmd)
	require.ErrorIs(t, err, conflict)

	assert.Equal(t, 1, calls)
}

func TestIdempotencySkipsCommandsWithoutKey(t *testing.T) {
	calls := 0
	bus := ChainCommands(newEchoBus(t, &calls, nil), Idempotency(newMapStore(), nil))
	cmd := echoCommand{Key_: "echo", Reply: "hi"}

	_, err := bus.Dispatch(context.Background(), cmd)
	require.NoError(t, err)
	_, err = bus.Dispatch(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}
