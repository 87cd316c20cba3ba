package telemetry

import (
	"net/http"
	"sync"

	"github.com/google/uuid"

	"gitlab.com/gitlab-org/httpwatch/internal/snapshot"
)

// RequestIDPrefix prefixes every generated correlation id.
const RequestIDPrefix = "httpwatch_"

// Context carries the optional data attached to a Record call.
type Context struct {
	RequestID string
	Request   *http.Request
	Response  *http.Response
}

// EntryLogger is the interface the log stage and the collector depend on.
type EntryLogger interface {
	Record(level Level, message string, ctx Context) string
	Clear()
	HasEntries() bool
	Entries() []LogEntry
	Drain() []LogEntry
}

// TransferTimeRecorder is implemented by loggers that can attach transfer times to entries.
type TransferTimeRecorder interface {
	AttachTransferTime(id string, seconds float64)
}

// NewRequestID returns a fresh correlation id. UUIDv7 mixes a millisecond timestamp with random bits,
// so ids stay unique across concurrent requests for the lifetime of the process.
func NewRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	return RequestIDPrefix + id.String()
}

// Logger stores one LogEntry per correlation id. It is safe for concurrent use.
type Logger struct {
	mode       DetailMode
	curlFormat bool

	mu      sync.Mutex
	entries map[string]*LogEntry
	order   []string
}

// Option configures a Logger.
type Option func(*Logger)

// WithoutCurlCommand disables the curl reproduction command attached to request snapshots.
func WithoutCurlCommand() Option {
	return func(l *Logger) { l.curlFormat = false }
}

// NewLogger creates a Logger capturing as much as mode allows.
func NewLogger(mode DetailMode, opts ...Option) *Logger {
	l := &Logger{
		mode:       mode,
		curlFormat: true,
		entries:    map[string]*LogEntry{},
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Mode returns the configured detail mode.
func (l *Logger) Mode() DetailMode {
	return l.mode
}

// Record adds or updates the entry for ctx.RequestID and returns that id. A new id is generated when
// ctx.RequestID is empty. Recording an id twice updates the existing entry: the level is always
// replaced, the message only when the new one is not empty.
func (l *Logger) Record(level Level, message string, ctx Context) string {
	id := ctx.RequestID
	if id == "" {
		id = NewRequestID()
	}

	// Snapshots are taken before locking: they may read bodies.
	var (
		request  *snapshot.Request
		curl     *string
		response *snapshot.Response
	)
	if ctx.Request != nil && l.mode > DetailNone {
		request = snapshot.CaptureRequest(ctx.Request)
		if l.curlFormat {
			curl = snapshot.CurlCommand(ctx.Request, request.Body)
		}
	}
	if ctx.Response != nil && l.mode > DetailRequest {
		response = snapshot.CaptureResponse(ctx.Response, l.mode > DetailRequestAndResponseHeaders)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[id]
	if !ok {
		entry = &LogEntry{ID: id}
		l.entries[id] = entry
		l.order = append(l.order, id)
	}

	entry.Level = level
	if message != "" {
		entry.Message = message
	}
	if request != nil {
		// A body already sent by the transport may no longer be readable.
		if request.Body == nil && entry.Request != nil && entry.Request.Body != nil {
			request.Body = entry.Request.Body
			if l.curlFormat {
				curl = snapshot.CurlCommand(ctx.Request, request.Body)
			}
		}
		entry.Request = request
		entry.CurlCommand = curl
	}
	if response != nil {
		entry.Response = response
	}

	return id
}

// AttachTransferTime sets the transfer time of the entry with the given id. Unknown ids are ignored.
func (l *Logger) AttachTransferTime(id string, seconds float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[id]
	if !ok {
		return
	}

	entry.TransferTime = &seconds
}

// Clear removes every entry.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.reset()
}

// HasEntries reports whether any entry is stored.
func (l *Logger) HasEntries() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.order) > 0
}

// Entries returns a copy of the stored entries in the order they were created.
func (l *Logger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.copyEntries()
}

// Drain returns the stored entries and clears the logger in one step, so that an entry recorded
// concurrently ends up either in the returned slice or in the logger, never in both or neither.
func (l *Logger) Drain() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.copyEntries()
	l.reset()

	return entries
}

func (l *Logger) copyEntries() []LogEntry {
	entries := make([]LogEntry, 0, len(l.order))
	for _, id := range l.order {
		entry := *l.entries[id]
		if entry.TransferTime != nil {
			t := *entry.TransferTime
			entry.TransferTime = &t
		}
		entries = append(entries, entry)
	}

	return entries
}

func (l *Logger) reset() {
	l.entries = map[string]*LogEntry{}
	l.order = nil
}
