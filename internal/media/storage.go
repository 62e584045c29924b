// Package media provides the in-memory media storage stub for the harness.
//
// Scripts that embed an image or audio buffer route the bytes here instead of
// the production durable-storage backend. Records never touch a disk; every
// record lives for the storage's lifetime (one test) and is discarded wholesale
// when the storage is dropped.
//
// Handles are content-addressed (SHA-256 with a domain prefix), so storing the
// same bytes under the same content kind always yields the same handle. This is
// what makes media references stable across reruns within one session.
package media

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// handleDomain is the domain prefix for content-addressed media handles.
// Version suffix enables future algorithm migration.
const handleDomain = "stagehand/media/v1"

// Record is one stored media buffer.
// Once stored, a record's bytes are immutable.
type Record struct {
	// Handle uniquely identifies the record within one Storage instance.
	Handle string

	// ContentKind is the declared MIME-like kind ("image/png", "audio/wav").
	// The stub imposes no format policy; that belongs to the production backend.
	ContentKind string

	// Data holds the raw bytes.
	Data []byte
}

// Storage is the in-memory implementation of the media storage contract.
//
// One Storage is exclusively owned by one runtime singleton for the duration of
// one test; it is never shared across tests. The mutex guards against scripts
// that spawn no concurrency today but keeps the contract honest.
type Storage struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewStorage creates an empty in-memory media storage.
func NewStorage() *Storage {
	return &Storage{records: make(map[string]Record)}
}

// Store retains the given bytes and returns their handle.
//
// A size-zero buffer is accepted and stored as-is: the stub imposes no
// size or format policy. Bytes are copied so later mutation of the caller's
// buffer cannot alter the stored record.
func (s *Storage) Store(data []byte, contentKind string) (string, error) {
	handle := handleFor(data, contentKind)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Same content, same handle: storing again is a no-op.
	if _, ok := s.records[handle]; ok {
		return handle, nil
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	s.records[handle] = Record{
		Handle:      handle,
		ContentKind: contentKind,
		Data:        buf,
	}
	return handle, nil
}

// Get returns the bytes previously stored under handle.
// Returns a StorageError with ErrCodeNotFound for an unknown handle.
// The returned slice is a copy; callers cannot mutate the stored record.
func (s *Storage) Get(handle string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[handle]
	if !ok {
		return nil, NewNotFoundError(handle)
	}
	buf := make([]byte, len(rec.Data))
	copy(buf, rec.Data)
	return buf, nil
}

// GetRecord returns the full record stored under handle.
// Returns a StorageError with ErrCodeNotFound for an unknown handle.
func (s *Storage) GetRecord(handle string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[handle]
	if !ok {
		return Record{}, NewNotFoundError(handle)
	}
	buf := make([]byte, len(rec.Data))
	copy(buf, rec.Data)
	rec.Data = buf
	return rec, nil
}

// LoadResource would fetch from durable or network storage in production.
//
// The stub fails loudly instead of returning stale or synthetic data, so a
// test that accidentally reaches a real-fetch pathway gets a diagnosable
// failure rather than a silently fabricated result.
func (s *Storage) LoadResource(pathOrURL string) error {
	return NewUnsupportedOperationError("LoadResource")
}

// Len returns the number of stored records.
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// handleFor computes the content-addressed handle for a buffer.
// Format: SHA256(domain + 0x00 + contentKind + 0x00 + data), hex encoded.
// The null separators prevent boundary ambiguity between the parts.
func handleFor(data []byte, contentKind string) string {
	h := sha256.New()
	h.Write([]byte(handleDomain))
	h.Write([]byte{0x00})
	h.Write([]byte(contentKind))
	h.Write([]byte{0x00})
	h.Write(data)
	return "media/" + hex.EncodeToString(h.Sum(nil))
}
