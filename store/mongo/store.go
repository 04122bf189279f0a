// Package mongo provides a MongoDB implementation of store.Store.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/avirel/letterdesk/store"
)

// Store implements store.Store using MongoDB.
type Store struct {
	client    *mongo.Client
	db        *mongo.Database
	accounts  *mongo.Collection
	letters   *mongo.Collection
	messages  *mongo.Collection
	opts      *options
	connected int32
	logger    *slog.Logger
}

// New creates a new MongoDB store with the provided client.
// Call Connect() to initialize the collections and indexes.
func New(client *mongo.Client, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		client: client,
		opts:   o,
		logger: o.logger,
	}
}

// Connect initializes the database, collections, and indexes.
func (s *Store) Connect(ctx context.Context) error {
	if atomic.LoadInt32(&s.connected) == 1 {
		return store.ErrAlreadyConnected
	}

	if s.client == nil {
		return fmt.Errorf("mongo: client is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}

	s.db = s.client.Database(s.opts.database)
	s.accounts = s.db.Collection(s.opts.accounts)
	s.letters = s.db.Collection(s.opts.letters)
	s.messages = s.db.Collection(s.opts.messages)

	if err := s.ensureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	atomic.StoreInt32(&s.connected, 1)
	s.logger.Info("connected to MongoDB", "database", s.opts.database)
	return nil
}

// Close marks the store as disconnected.
// The caller is responsible for closing the MongoDB client.
func (s *Store) Close(ctx context.Context) error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil
	}
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

// ensureIndexes creates required indexes.
func (s *Store) ensureIndexes(ctx context.Context) error {
	// Address uniqueness backs the registration Conflict rule; the unique
	// index makes concurrent registrations race-free without locks.
	accountIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "address", Value: 1}},
			Options: mongoopts.Index().SetUnique(true),
		},
		{Keys: bson.D{bson.E{Key: "roles", Value: 1}}},
	}
	if _, err := s.accounts.Indexes().CreateMany(ctx, accountIndexes); err != nil {
		return fmt.Errorf("account indexes: %w", err)
	}

	letterIndexes := []mongo.IndexModel{
		{Keys: bson.D{
			bson.E{Key: "owner_id", Value: 1},
			bson.E{Key: "created_at", Value: 1},
		}},
	}
	if _, err := s.letters.Indexes().CreateMany(ctx, letterIndexes); err != nil {
		return fmt.Errorf("letter indexes: %w", err)
	}

	// Both halves of the two-space inbox/outbox query are indexed.
	messageIndexes := []mongo.IndexModel{
		{Keys: bson.D{
			bson.E{Key: "owner_id", Value: 1},
			bson.E{Key: "sent_at", Value: -1},
		}},
		{Keys: bson.D{
			bson.E{Key: "to", Value: 1},
			bson.E{Key: "sent_at", Value: -1},
		}},
	}
	if _, err := s.messages.Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return fmt.Errorf("message indexes: %w", err)
	}

	return nil
}

func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}

// Compile-time check
var _ store.Store = (*Store)(nil)
