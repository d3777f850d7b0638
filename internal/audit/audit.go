package audit

import (
	"fmt"
	"sync"
)

var (
	globalMu     sync.RWMutex
	globalWriter Writer = NopWriter{}
)

// Init sets the global audit writer. A nil writer disables logging.
func Init(w Writer) error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if w == nil {
		globalWriter = NopWriter{}
		return nil
	}
	globalWriter = w
	return nil
}

// InitFile sets up file-based audit logging. An empty path disables it.
func InitFile(path string) error {
	if path == "" {
		return Init(nil)
	}
	w, err := NewFileWriter(path)
	if err != nil {
		return err
	}
	return Init(w)
}

// Enabled reports whether a real writer is installed.
func Enabled() bool {
	globalMu.RLock()
	defer globalMu.RUnlock()
	_, nop := globalWriter.(NopWriter)
	return !nop
}

// Close closes the global writer and disables logging.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	err := globalWriter.Close()
	globalWriter = NopWriter{}
	return err
}

// Log writes an event to the global writer.
func Log(event *Event) error {
	globalMu.RLock()
	w := globalWriter
	globalMu.RUnlock()
	return w.Write(event)
}

// MustLog writes an event and wraps any failure. Callers treat an error
// here as a failure of the operation being audited.
func MustLog(event *Event) error {
	if err := Log(event); err != nil {
		return fmt.Errorf("audit log failed: %w", err)
	}
	return nil
}

// LogCACreated logs a CA creation.
func LogCACreated(name, subject, algorithm string, success bool) error {
	return MustLog(NewEvent(EventCACreated, toResult(success)).
		WithObject(Object{Type: "ca", Name: name, Subject: subject}).
		WithContext(Context{Algorithm: algorithm}))
}

// LogCALoaded logs a CA load.
func LogCALoaded(name, subject string, success bool) error {
	return MustLog(NewEvent(EventCALoaded, toResult(success)).
		WithObject(Object{Type: "ca", Name: name, Subject: subject}))
}

// LogKeyAccessed logs a CA private key access.
func LogKeyAccessed(caName string, success bool, reason string) error {
	return MustLog(NewEvent(EventKeyAccessed, toResult(success)).
		WithObject(Object{Type: "key", Name: caName}).
		WithContext(Context{CA: caName, Reason: reason}))
}

// LogCertIssued logs a certificate issuance.
func LogCertIssued(caName, serial, subject, algorithm string, success bool) error {
	return MustLog(NewEvent(EventCertIssued, toResult(success)).
		WithObject(Object{Type: "certificate", Serial: serial, Subject: subject}).
		WithContext(Context{CA: caName, Algorithm: algorithm}))
}

// LogAuthFailed logs a failed key decryption or authentication attempt.
func LogAuthFailed(caName, reason string) error {
	return MustLog(NewEvent(EventAuthFailed, ResultFailure).
		WithObject(Object{Type: "ca", Name: caName}).
		WithContext(Context{CA: caName, Reason: reason}))
}

func toResult(success bool) Result {
	if success {
		return ResultSuccess
	}
	return ResultFailure
}
