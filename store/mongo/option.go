package mongo

import (
	"log/slog"
	"time"
)

// Default configuration values.
const (
	DefaultDatabase           = "letterdesk"
	DefaultAccountsCollection = "accounts"
	DefaultLettersCollection  = "letters"
	DefaultMessagesCollection = "messages"
	DefaultTimeout            = 10 * time.Second
)

// options holds MongoDB store configuration.
type options struct {
	database string
	accounts string
	letters  string
	messages string
	timeout  time.Duration
	logger   *slog.Logger
}

func newOptions(opts ...Option) *options {
	o := &options{
		database: DefaultDatabase,
		accounts: DefaultAccountsCollection,
		letters:  DefaultLettersCollection,
		messages: DefaultMessagesCollection,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a MongoDB store.
type Option func(*options)

// WithDatabase sets the database name.
func WithDatabase(name string) Option {
	return func(o *options) {
		if name != "" {
			o.database = name
		}
	}
}

// WithCollections sets the three collection names.
// Empty names keep their defaults.
func WithCollections(accounts, letters, messages string) Option {
	return func(o *options) {
		if accounts != "" {
			o.accounts = accounts
		}
		if letters != "" {
			o.letters = letters
		}
		if messages != "" {
			o.messages = messages
		}
	}
}

// WithTimeout sets the operation timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
