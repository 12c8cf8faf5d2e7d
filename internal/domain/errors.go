package domain

import (
	"errors"
	"strconv"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// FeedError reports a malformed record in a replay feed.
type FeedError struct {
	Line int    // 1-based line number in the feed
	Tag  string // Offending FIX tag, empty if not tag-specific
	Err  error  // Underlying error
}

func (e *FeedError) Error() string {
	msg := "feed line " + strconv.Itoa(e.Line)
	if e.Tag != "" {
		msg += " tag [" + e.Tag + "]"
	}
	return msg + ": " + e.Err.Error()
}

// IsRetriable is always false: a bad record stays bad.
func (e *FeedError) IsRetriable() bool {
	return false
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// StorageError wraps a journal failure. Lock contention on the database file
// is retriable, everything else is not.
type StorageError struct {
	Op        string // Operation that failed (e.g., "open", "insert", "query")
	Err       error
	Retriable bool
}

func (e *StorageError) Error() string {
	return "storage " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) IsRetriable() bool {
	return e.Retriable
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrInvalidSymbol is returned when a symbol is empty or malformed. Not retriable.
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrCrossedQuote is returned when a quote's bid is at or above its ask.
	ErrCrossedQuote = errors.New("crossed quote")

	// ErrUnknownMsgType is returned for a feed record with an unsupported MsgType.
	ErrUnknownMsgType = errors.New("unknown msg type")

	// ErrMissingTag is returned when a required tag is absent from a record.
	ErrMissingTag = errors.New("missing tag")

	// ErrOffTick is returned when a decimal price is not a whole number of ticks.
	ErrOffTick = errors.New("price not on tick")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
