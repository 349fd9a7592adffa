package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/storage"
)

type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	items    map[int64]core.Movement
	balance  core.Balance
	err      error
	lastList storage.Filter
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[int64]core.Movement{}}
}

func (f *fakeStore) Create(_ context.Context, m core.Movement) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	m.ID = f.nextID
	f.items[m.ID] = m
	return m.ID, nil
}

func (f *fakeStore) Get(_ context.Context, id int64) (core.Movement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[id]
	if !ok {
		return core.Movement{}, &storage.QueryError{Op: log.OpRead, Err: storage.ErrNotFound}
	}
	return m, nil
}

func (f *fakeStore) Update(_ context.Context, m core.Movement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[m.ID]; !ok {
		return &storage.QueryError{Op: log.OpUpdate, Err: storage.ErrNotFound}
	}
	f.items[m.ID] = m
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return f.err
}

func (f *fakeStore) List(_ context.Context, filter storage.Filter) ([]core.Movement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastList = filter
	out := make([]core.Movement, 0, len(f.items))
	for _, m := range f.items {
		out = append(out, m)
	}
	return out, f.err
}

func (f *fakeStore) Recent(_ context.Context, limit int) ([]core.Movement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []core.Movement{}
	for id := f.nextID; id > 0 && len(out) < limit; id-- {
		if m, ok := f.items[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) Balance(context.Context) (core.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, f.err
}

func (f *fakeStore) Ping(context.Context) error {
	return f.err
}

type fakePublisher struct {
	events []*amqp.MovementEvent
	err    error
	closed bool
}

func (p *fakePublisher) PublishMovementEvent(_ context.Context, evt *amqp.MovementEvent) error {
	p.events = append(p.events, evt)
	return p.err
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func testLogger() *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Output = io.Discard
	return log.New(cfg)
}

func rent() core.Movement {
	return core.Movement{
		Type:    core.Expense,
		Concept: "Rent",
		Amount:  core.Money{Cents: 50000},
		Date:    core.NewDate(2024, 1, 1),
	}
}

func TestMovementService_Create(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	svc := NewMovementService(store, pub, testLogger())

	m, err := svc.CreateMovement(context.Background(), rent())

	require.NoError(t, err)
	assert.Equal(t, int64(1), m.ID)
	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.EventMovementCreated, pub.events[0].Event)
	assert.Equal(t, int64(1), pub.events[0].ID)
	assert.Equal(t, "500.00", pub.events[0].Amount)
}

func TestMovementService_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*core.Movement)
		wantErr error
	}{
		{"empty concept", func(m *core.Movement) { m.Concept = "  " }, core.ErrEmptyConcept},
		{"missing date", func(m *core.Movement) { m.Date = core.Date{} }, core.ErrInvalidDate},
		{"missing type", func(m *core.Movement) { m.Type = "" }, core.ErrEmptyType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			pub := &fakePublisher{}
			svc := NewMovementService(store, pub, testLogger())
			m := rent()
			tt.modify(&m)

			_, err := svc.CreateMovement(context.Background(), m)

			assert.True(t, IsValidation(err))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, store.items)
			assert.Empty(t, pub.events)
		})
	}
}

func TestMovementService_PublishFailureDoesNotFail(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewMovementService(newFakeStore(), pub, testLogger())

	_, err := svc.CreateMovement(context.Background(), rent())

	assert.NoError(t, err)
	assert.Len(t, pub.events, 1)
}

func TestMovementService_NilPublisher(t *testing.T) {
	svc := NewMovementService(newFakeStore(), nil, testLogger())
	ctx := context.Background()

	m, err := svc.CreateMovement(ctx, rent())
	require.NoError(t, err)
	require.NoError(t, svc.DeleteMovement(ctx, m.ID))
	assert.NoError(t, svc.Close())
}

func TestMovementService_UpdateAndDelete(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	svc := NewMovementService(store, pub, testLogger())
	ctx := context.Background()

	m, err := svc.CreateMovement(ctx, rent())
	require.NoError(t, err)

	m.Concept = "Rent February"
	m.Type = "transfer"
	require.NoError(t, svc.UpdateMovement(ctx, m), "unknown types are stored")

	got, err := svc.GetMovement(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rent February", got.Concept)

	missing := m
	missing.ID = 99
	assert.ErrorIs(t, svc.UpdateMovement(ctx, missing), storage.ErrNotFound)

	require.NoError(t, svc.DeleteMovement(ctx, m.ID))
	_, err = svc.GetMovement(ctx, m.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, svc.DeleteMovement(ctx, 12345))

	var names []string
	for _, e := range pub.events {
		names = append(names, e.Event)
	}
	assert.Equal(t, []string{
		amqp.EventMovementCreated,
		amqp.EventMovementUpdated,
		amqp.EventMovementDeleted,
		amqp.EventMovementDeleted,
	}, names)
}

func TestMovementService_List(t *testing.T) {
	store := newFakeStore()
	svc := NewMovementService(store, nil, testLogger())

	filter := storage.Filter{Type: "income", Concept: "salary"}
	_, err := svc.ListMovements(context.Background(), filter)

	require.NoError(t, err)
	assert.Equal(t, filter, store.lastList)
}

func TestMovementService_Dashboard(t *testing.T) {
	store := newFakeStore()
	store.balance = core.Balance{Income: core.Money{Cents: 1000}, Expense: core.Money{Cents: 400}}
	svc := NewMovementService(store, nil, testLogger())
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := svc.CreateMovement(ctx, rent())
		require.NoError(t, err)
	}

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(600), d.Balance.Total().Cents)
	require.Len(t, d.Recent, RecentLimit)
	assert.Equal(t, int64(7), d.Recent[0].ID)
}

func TestMovementService_DashboardError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	svc := NewMovementService(store, nil, testLogger())

	_, err := svc.Dashboard(context.Background())

	assert.Error(t, err)
	assert.ErrorIs(t, svc.Ping(context.Background()), store.err)
}

func TestMovementService_Close(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewMovementService(newFakeStore(), pub, testLogger())

	require.NoError(t, svc.Close())
	assert.True(t, pub.closed)
}
