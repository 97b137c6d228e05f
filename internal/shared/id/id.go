// Package id mints prefixed ULIDs for sandbox connections and HTTP requests.
//
// A ULID sorts by creation time, so log lines tagged with conn_* or req_*
// values order the same way the sessions and requests were opened.
package id

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ConnectionID tags one WebSocket session and every process it spawns.
type ConnectionID string

// RequestID tags one HTTP request in access logs and error bodies.
type RequestID string

func (c ConnectionID) String() string { return string(c) }
func (r RequestID) String() string    { return string(r) }

const (
	connPrefix = "conn"
	reqPrefix  = "req"
	separator  = "_"
)

// Source mints ULIDs from a shared entropy reader.
type Source struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewSource returns a Source reading from r, or crypto/rand when r is nil.
func NewSource(r io.Reader) *Source {
	if r == nil {
		r = rand.Reader
	}
	return &Source{entropy: ulid.Monotonic(r, 0), now: time.Now}
}

// Next returns a fresh ULID. IDs minted within the same millisecond are
// strictly increasing.
func (s *Source) Next() ulid.ULID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy)
}

// Tagged returns prefix + "_" + a fresh ULID.
func (s *Source) Tagged(prefix string) string {
	return prefix + separator + s.Next().String()
}

var shared = NewSource(nil)

// NewConnectionID returns a conn_* identifier.
func NewConnectionID() ConnectionID { return ConnectionID(shared.Tagged(connPrefix)) }

// NewRequestID returns a req_* identifier.
func NewRequestID() RequestID { return RequestID(shared.Tagged(reqPrefix)) }

// IsValid reports whether s is a ULID, with or without a prefix.
func IsValid(s string) bool {
	_, err := parse(s)
	return err == nil
}

// Timestamp returns the time encoded in s.
func Timestamp(s string) (time.Time, error) {
	u, err := parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}

func parse(s string) (ulid.ULID, error) {
	if i := strings.LastIndex(s, separator); i >= 0 {
		s = s[i+len(separator):]
	}
	return ulid.ParseStrict(s)
}
