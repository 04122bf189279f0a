package postgres

import (
	"log/slog"
	"time"
)

// Default configuration values.
const (
	DefaultAccountsTable = "letterdesk_accounts"
	DefaultLettersTable  = "letterdesk_letters"
	DefaultMessagesTable = "letterdesk_messages"
	DefaultTimeout       = 10 * time.Second
)

// options holds PostgreSQL store configuration.
type options struct {
	accountsTable string
	lettersTable  string
	messagesTable string
	timeout       time.Duration
	logger        *slog.Logger
}

func newOptions(opts ...Option) *options {
	o := &options{
		accountsTable: DefaultAccountsTable,
		lettersTable:  DefaultLettersTable,
		messagesTable: DefaultMessagesTable,
		timeout:       DefaultTimeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a PostgreSQL store.
type Option func(*options)

// WithTables sets the three table names. Empty names keep their defaults.
func WithTables(accounts, letters, messages string) Option {
	return func(o *options) {
		if accounts != "" {
			o.accountsTable = accounts
		}
		if letters != "" {
			o.lettersTable = letters
		}
		if messages != "" {
			o.messagesTable = messages
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
