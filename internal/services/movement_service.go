package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/storage"
)

// RecentLimit is how many movements the dashboard shows.
const RecentLimit = 5

// MovementStore is the persistence the service needs.
type MovementStore interface {
	Create(ctx context.Context, m core.Movement) (int64, error)
	Get(ctx context.Context, id int64) (core.Movement, error)
	Update(ctx context.Context, m core.Movement) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f storage.Filter) ([]core.Movement, error)
	Recent(ctx context.Context, limit int) ([]core.Movement, error)
	Balance(ctx context.Context) (core.Balance, error)
	Ping(ctx context.Context) error
}

// EventPublisher announces movement changes. A nil publisher disables events.
type EventPublisher interface {
	PublishMovementEvent(ctx context.Context, evt *amqp.MovementEvent) error
	Close() error
}

// ValidationError wraps a rejected movement.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid movement: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Dashboard is the summary shown on the landing page.
type Dashboard struct {
	Balance core.Balance
	Recent  []core.Movement
}

// MovementService orchestrates movement operations across storage and AMQP
type MovementService struct {
	store     MovementStore
	publisher EventPublisher
	logger    *log.Logger
}

func NewMovementService(store MovementStore, publisher EventPublisher, logger *log.Logger) *MovementService {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &MovementService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentMovement),
	}
}

// CreateMovement validates and stores m, then publishes a created event.
// The returned movement carries the assigned id.
func (s *MovementService) CreateMovement(ctx context.Context, m core.Movement) (core.Movement, error) {
	if err := m.Validate(); err != nil {
		return core.Movement{}, &ValidationError{Err: err}
	}

	id, err := s.store.Create(ctx, m)
	if err != nil {
		return core.Movement{}, fmt.Errorf("save movement: %w", err)
	}
	m.ID = id

	s.publish(ctx, amqp.NewMovementEvent(amqp.EventMovementCreated, m))
	return m, nil
}

// GetMovement returns one movement; storage.ErrNotFound when absent.
func (s *MovementService) GetMovement(ctx context.Context, id int64) (core.Movement, error) {
	m, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Movement{}, fmt.Errorf("get movement %d: %w", id, err)
	}
	return m, nil
}

// UpdateMovement rewrites m. Types outside income/expense are stored as sent
// but logged.
func (s *MovementService) UpdateMovement(ctx context.Context, m core.Movement) error {
	if err := m.Validate(); err != nil {
		return &ValidationError{Err: err}
	}
	if !m.Type.IsValid() {
		s.logger.WarnContext(ctx, "Updating movement with unrecognized type",
			log.FieldMovementID, m.ID,
			log.FieldType, m.Type)
	}

	if err := s.store.Update(ctx, m); err != nil {
		return fmt.Errorf("update movement %d: %w", m.ID, err)
	}

	s.publish(ctx, amqp.NewMovementEvent(amqp.EventMovementUpdated, m))
	return nil
}

// DeleteMovement removes id. Unknown ids succeed silently.
func (s *MovementService) DeleteMovement(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete movement %d: %w", id, err)
	}

	s.publish(ctx, amqp.NewDeletedEvent(id))
	return nil
}

// ListMovements returns the movements matching f, newest first.
func (s *MovementService) ListMovements(ctx context.Context, f storage.Filter) ([]core.Movement, error) {
	items, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return items, nil
}

// Dashboard loads the balance and the most recent movements concurrently.
func (s *MovementService) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b, err := s.store.Balance(gctx)
		if err != nil {
			return fmt.Errorf("load balance: %w", err)
		}
		d.Balance = b
		return nil
	})
	g.Go(func() error {
		recent, err := s.store.Recent(gctx, RecentLimit)
		if err != nil {
			return fmt.Errorf("load recent movements: %w", err)
		}
		d.Recent = recent
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// Ping checks that the database answers a trivial query.
func (s *MovementService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *MovementService) publish(ctx context.Context, evt *amqp.MovementEvent) {
	if s.publisher == nil {
		return
	}
	// the movement is already stored; a lost event must not fail the request
	if err := s.publisher.PublishMovementEvent(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish movement event",
			"event", evt.Event,
			log.FieldMovementID, evt.ID,
			log.FieldError, err)
	}
}

// Close closes the event publisher. The storage provider is owned by main.
func (s *MovementService) Close() error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Close(); err != nil {
		s.logger.Error("Failed to close event publisher", log.FieldError, err)
		return fmt.Errorf("close movement service: %w", err)
	}
	return nil
}
