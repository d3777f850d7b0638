package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

const (
	// GenesisHash seeds the chain before any event is written.
	GenesisHash = "sha256:genesis"

	// HashPrefix identifies the hash algorithm in chain hashes.
	HashPrefix = "sha256:"
)

// Writer is the sink for audit events.
//
// Implementations must return an error when the write fails (audit fails =
// operation fails), sync to storage before returning, and maintain the
// hash chain.
type Writer interface {
	Write(event *Event) error
	Close() error
	LastHash() string
}

// NopWriter discards all events; used when audit logging is disabled.
type NopWriter struct{}

var _ Writer = (*NopWriter)(nil)

func (NopWriter) Write(*Event) error { return nil }
func (NopWriter) Close() error       { return nil }
func (NopWriter) LastHash() string   { return GenesisHash }

// FileWriter appends events to a JSONL file with hash chaining.
type FileWriter struct {
	mu       sync.Mutex
	file     *os.File
	lastHash string
	path     string
}

var _ Writer = (*FileWriter)(nil)

// NewFileWriter opens an audit log in append mode. For an existing log the
// last event's hash is read so the chain continues unbroken.
func NewFileWriter(path string) (*FileWriter, error) {
	lastHash := GenesisHash
	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		hash, err := readLastHash(data)
		if err != nil {
			return nil, fmt.Errorf("failed to read last hash from existing log: %w", err)
		}
		lastHash = hash
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	return &FileWriter{file: file, lastHash: lastHash, path: path}, nil
}

// readLastHash returns the hash of the last event in a JSONL log.
func readLastHash(data []byte) (string, error) {
	var lastLine string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lastLine = line
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if lastLine == "" {
		return GenesisHash, nil
	}

	var event struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal([]byte(lastLine), &event); err != nil {
		return "", fmt.Errorf("failed to parse last event: %w", err)
	}
	if event.Hash == "" {
		return "", fmt.Errorf("last event has no hash")
	}
	return event.Hash, nil
}

// Write appends an event, chaining its hash to the previous one.
func (w *FileWriter) Write(event *Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	event.HashPrev = w.lastHash

	canonical, err := event.CanonicalJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	event.Hash = chainHash(canonical, w.lastHash)

	line, err := event.JSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	if _, err := w.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	// fsync before acknowledging; the chain must survive a crash.
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit log: %w", err)
	}

	w.lastHash = event.Hash
	return nil
}

// Close syncs and closes the log file.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	return w.file.Close()
}

// LastHash returns the hash of the last written event.
func (w *FileWriter) LastHash() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastHash
}

// Path returns the log file path.
func (w *FileWriter) Path() string {
	return w.path
}

// MultiWriter fans events out to several writers; every one must succeed.
type MultiWriter struct {
	writers []Writer
}

var _ Writer = (*MultiWriter)(nil)

// NewMultiWriter combines writers into one sink.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write sends the event to every writer and fails on the first error.
func (m *MultiWriter) Write(event *Event) error {
	for _, w := range m.writers {
		if err := w.Write(event); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all writers, returning the last error seen.
func (m *MultiWriter) Close() error {
	var lastErr error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// LastHash returns the first writer's last hash.
func (m *MultiWriter) LastHash() string {
	if len(m.writers) == 0 {
		return GenesisHash
	}
	return m.writers[0].LastHash()
}

// chainHash computes SHA256(data || prevHash).
func chainHash(data []byte, prevHash string) string {
	h := sha256.New()
	_, _ = h.Write(data)
	_, _ = h.Write([]byte(prevHash))
	return HashPrefix + hex.EncodeToString(h.Sum(nil))
}

// VerifyChain checks the hash chain of an audit log file. It returns the
// number of valid events and the first error found.
func VerifyChain(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read audit log: %w", err)
	}
	if len(data) == 0 {
		return 0, nil
	}

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	expectedPrev := GenesisHash
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return lineNum - 1, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}
		if event.HashPrev != expectedPrev {
			return lineNum - 1, fmt.Errorf("line %d: hash chain broken: expected prev=%s, got prev=%s",
				lineNum, expectedPrev, event.HashPrev)
		}

		canonical, err := event.CanonicalJSON()
		if err != nil {
			return lineNum - 1, fmt.Errorf("line %d: failed to serialize: %w", lineNum, err)
		}
		if want := chainHash(canonical, event.HashPrev); event.Hash != want {
			return lineNum - 1, fmt.Errorf("line %d: hash mismatch: expected=%s, got=%s",
				lineNum, want, event.Hash)
		}

		expectedPrev = event.Hash
	}

	if err := scanner.Err(); err != nil {
		return lineNum, fmt.Errorf("scan error: %w", err)
	}
	return lineNum, nil
}
