package letterdesk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/rbaliyan/event/v3"
	"github.com/rbaliyan/event/v3/transport/noop"
	eventredis "github.com/rbaliyan/event/v3/transport/redis"
	"golang.org/x/sync/semaphore"

	"github.com/avirel/letterdesk/store"
)

// Service manages the letterdesk system. It handles the connection to
// storage, exposes the account, letter, signing, and delivery operations,
// and owns the event bus.
type Service interface {
	// IsConnected returns true if the service is connected and ready.
	IsConnected() bool
	// Connect establishes connections to storage backends.
	Connect(ctx context.Context) error
	// Close drains in-flight sends and closes all connections.
	Close(ctx context.Context) error
	// Directory returns the read-only identity lookup backed by the
	// account collection.
	Directory() *Directory
	// Events returns per-service event instances for subscribing and
	// publishing.
	Events() *ServiceEvents

	// Accounts (external collaborators; thin CRUD)
	RegisterAccount(ctx context.Context, req RegisterRequest) (*store.Account, error)
	Login(ctx context.Context, address, secret string) (*store.Account, error)
	Account(ctx context.Context, id string) (*store.Account, error)
	AccountByAddress(ctx context.Context, address string) (*store.Account, error)
	UpdateAccount(ctx context.Context, id string, upd store.AccountUpdate) (*store.Account, error)
	Accounts(ctx context.Context, excludeRole store.Role) ([]*store.Account, error)

	// Letters
	CreateLetter(ctx context.Context, req LetterRequest) (*store.Letter, error)
	Letters(ctx context.Context, ownerID string) ([]*store.Letter, error)
	Letter(ctx context.Context, id string) (*store.Letter, error)
	SignLetter(ctx context.Context, letterID, signerID, signatureImage string) (*store.Letter, error)

	// Delivery
	Send(ctx context.Context, req SendRequest) (*store.Message, error)
	Messages(ctx context.Context, accountID string) ([]*store.Message, error)
}

// Connection states for the service.
const (
	stateDisconnected int32 = 0
	stateConnecting   int32 = 1
	stateConnected    int32 = 2
)

// service is the default implementation of Service.
type service struct {
	store     store.Store
	directory *Directory
	logger    *slog.Logger
	opts      *options
	state     int32 // stateDisconnected, stateConnecting, or stateConnected
	otel      *otelInstrumentation
	sendSem   *semaphore.Weighted // limits concurrent sends
	eventBus  *event.Bus
	events    *ServiceEvents
}

// NewService creates a new letterdesk service.
// Call Connect() to establish connections to backends.
func NewService(opts ...Option) (Service, error) {
	o := newOptions(opts...)

	if o.store == nil {
		return nil, ErrStoreRequired
	}

	otelInstr, err := newOtelInstrumentation(o)
	if err != nil {
		return nil, fmt.Errorf("init otel: %w", err)
	}

	s := &service{
		store:   o.store,
		logger:  o.logger,
		opts:    o,
		otel:    otelInstr,
		sendSem: semaphore.NewWeighted(int64(o.maxConcurrentSends)),
	}
	s.directory = &Directory{service: s}
	return s, nil
}

// IsConnected returns true if the service is connected and ready.
func (s *service) IsConnected() bool {
	return atomic.LoadInt32(&s.state) == stateConnected
}

// Directory returns the read-only identity lookup.
func (s *service) Directory() *Directory {
	return s.directory
}

// Events returns per-service event instances.
func (s *service) Events() *ServiceEvents {
	return s.events
}

// Connect establishes connections to storage backends.
func (s *service) Connect(ctx context.Context) error {
	// Three-state transition so callers never observe partial initialization:
	// stateDisconnected -> stateConnecting -> stateConnected.
	if !atomic.CompareAndSwapInt32(&s.state, stateDisconnected, stateConnecting) {
		return ErrAlreadyConnected
	}

	success := false
	defer func() {
		if success {
			atomic.StoreInt32(&s.state, stateConnected)
		} else {
			atomic.StoreInt32(&s.state, stateDisconnected)
		}
	}()

	if err := s.store.Connect(ctx); err != nil {
		return fmt.Errorf("connect store: %w", err)
	}

	if err := s.initEventBus(ctx); err != nil {
		s.store.Close(ctx)
		return fmt.Errorf("init event bus: %w", err)
	}

	success = true
	s.logger.Info("letterdesk service connected")
	return nil
}

// busCounter generates unique suffixes for event bus names.
var busCounter int64

// initEventBus initializes the event bus for this service. Each service
// creates its own bus so events route independently.
func (s *service) initEventBus(ctx context.Context) error {
	serviceName := s.opts.serviceName
	if serviceName == "" {
		serviceName = "letterdesk"
	}
	busName := fmt.Sprintf("%s-%d", serviceName, atomic.AddInt64(&busCounter, 1))

	var bus *event.Bus
	var err error

	switch {
	case s.opts.eventTransport != nil:
		s.logger.Info("initializing event bus with custom transport")
		bus, err = event.NewBus(busName, event.WithTransport(s.opts.eventTransport))
	case s.opts.redisClient != nil:
		s.logger.Info("initializing event bus with Redis transport")
		t, transportErr := eventredis.New(s.opts.redisClient)
		if transportErr != nil {
			return fmt.Errorf("create redis transport: %w", transportErr)
		}
		bus, err = event.NewBus(busName, event.WithTransport(t))
	default:
		s.logger.Debug("initializing event bus with noop transport")
		bus, err = event.NewBus(busName, event.WithTransport(noop.New()))
	}

	if err != nil {
		return fmt.Errorf("create event bus: %w", err)
	}
	s.eventBus = bus

	s.events = newServiceEvents(busName)
	if err := registerServiceEvents(ctx, bus, s.events); err != nil {
		bus.Close(ctx)
		return fmt.Errorf("register service events: %w", err)
	}

	return nil
}

// Close drains in-flight sends and closes connections to storage backends.
func (s *service) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.state, stateConnected, stateDisconnected) {
		return nil
	}

	var errs []error

	// Wait for in-flight send operations to complete. State is already
	// disconnected, so no new sends can start; acquiring every semaphore
	// slot waits out the existing ones.
	shutdownCtx, cancel := context.WithTimeout(ctx, s.opts.shutdownTimeout)
	defer cancel()
	if err := s.sendSem.Acquire(shutdownCtx, int64(s.opts.maxConcurrentSends)); err != nil {
		s.logger.Warn("timeout waiting for in-flight operations, proceeding with shutdown",
			"error", err)
		errs = append(errs, fmt.Errorf("graceful shutdown timeout: %w", err))
	} else {
		s.sendSem.Release(int64(s.opts.maxConcurrentSends))
	}

	// Close event bus only if using a real transport; the noop bus holds no
	// resources.
	if s.eventBus != nil && (s.opts.eventTransport != nil || s.opts.redisClient != nil) {
		if err := s.eventBus.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}
	}

	if err := s.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	return errors.Join(errs...)
}

// checkAccess verifies the service is connected before an operation runs.
func (s *service) checkAccess() error {
	if atomic.LoadInt32(&s.state) != stateConnected {
		return ErrNotConnected
	}
	return nil
}
