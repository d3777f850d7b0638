package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// =============================================================================
// Event Tests
// =============================================================================

func TestU_NewEvent_Creation(t *testing.T) {
	event := NewEvent(EventCertIssued, ResultSuccess)

	if event.EventType != EventCertIssued {
		t.Errorf("expected EventType=%s, got %s", EventCertIssued, event.EventType)
	}
	if event.Result != ResultSuccess {
		t.Errorf("expected Result=%s, got %s", ResultSuccess, event.Result)
	}
	if event.Timestamp == "" {
		t.Error("Timestamp should not be empty")
	}
	if event.Actor.Type != "user" {
		t.Errorf("expected Actor.Type=user, got %s", event.Actor.Type)
	}
}

func TestU_Event_Validate(t *testing.T) {
	tests := []struct {
		name    string
		event   *Event
		wantErr bool
	}{
		{
			name:    "[Unit] Validate: valid event",
			event:   NewEvent(EventCertIssued, ResultSuccess),
			wantErr: false,
		},
		{
			name: "[Unit] Validate: missing event_type",
			event: &Event{
				Timestamp: "2024-01-15T10:00:00Z",
				Actor:     Actor{Type: "user", ID: "admin"},
				Result:    ResultSuccess,
			},
			wantErr: true,
		},
		{
			name: "[Unit] Validate: missing timestamp",
			event: &Event{
				EventType: EventCertIssued,
				Actor:     Actor{Type: "user", ID: "admin"},
				Result:    ResultSuccess,
			},
			wantErr: true,
		},
		{
			name: "[Unit] Validate: missing actor",
			event: &Event{
				EventType: EventCertIssued,
				Timestamp: "2024-01-15T10:00:00Z",
				Result:    ResultSuccess,
			},
			wantErr: true,
		},
		{
			name: "[Unit] Validate: missing result",
			event: &Event{
				EventType: EventCertIssued,
				Timestamp: "2024-01-15T10:00:00Z",
				Actor:     Actor{Type: "user", ID: "admin"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestU_Event_CanonicalJSON(t *testing.T) {
	event := NewEvent(EventCertIssued, ResultSuccess).
		WithObject(Object{Type: "certificate", Serial: "0x01"})
	event.HashPrev = GenesisHash

	canonical, err := event.CanonicalJSON()
	if err != nil {
		t.Fatalf("CanonicalJSON() error = %v", err)
	}

	// Verify it doesn't contain the Hash field
	if strings.Contains(string(canonical), `"hash":`) {
		t.Error("CanonicalJSON should not contain hash field")
	}

	// Verify it's valid JSON
	var parsed map[string]interface{}
	if err := json.Unmarshal(canonical, &parsed); err != nil {
		t.Errorf("CanonicalJSON produced invalid JSON: %v", err)
	}
}

func TestU_Event_WithActor(t *testing.T) {
	event := NewEvent(EventCertIssued, ResultSuccess).
		WithActor(Actor{Type: "service", ID: "issuing-service"})

	if event.Actor.Type != "service" {
		t.Errorf("Actor.Type = %s, want service", event.Actor.Type)
	}
	if event.Actor.ID != "issuing-service" {
		t.Errorf("Actor.ID = %s, want issuing-service", event.Actor.ID)
	}
}

// =============================================================================
// FileWriter Tests
// =============================================================================

func TestU_FileWriter_Write(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.jsonl")

	writer, err := NewFileWriter(logPath)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}
	defer func() { _ = writer.Close() }()

	// Write first event
	event1 := NewEvent(EventCACreated, ResultSuccess).
		WithObject(Object{Type: "ca", Name: "root-ca"})

	if err := writer.Write(event1); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// Verify first event has genesis as prev hash
	if event1.HashPrev != GenesisHash {
		t.Errorf("First event HashPrev = %s, want %s", event1.HashPrev, GenesisHash)
	}
	if !strings.HasPrefix(event1.Hash, HashPrefix) {
		t.Errorf("First event Hash should start with %s, got %s", HashPrefix, event1.Hash)
	}

	// Write second event
	event2 := NewEvent(EventCertIssued, ResultSuccess).
		WithObject(Object{Type: "certificate", Serial: "0x01"})

	if err := writer.Write(event2); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// Verify chain
	if event2.HashPrev != event1.Hash {
		t.Errorf("Second event HashPrev = %s, want %s", event2.HashPrev, event1.Hash)
	}

	// Close and verify file contents
	_ = writer.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Errorf("Expected 2 lines, got %d", len(lines))
	}
}

func TestU_FileWriter_Append(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.jsonl")

	// Write first event
	writer1, err := NewFileWriter(logPath)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}

	event1 := NewEvent(EventCACreated, ResultSuccess)
	if err := writer1.Write(event1); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	_ = writer1.Close()

	// Open again and write second event
	writer2, err := NewFileWriter(logPath)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}

	// Verify last hash is preserved
	if writer2.LastHash() != event1.Hash {
		t.Errorf("LastHash() = %s, want %s", writer2.LastHash(), event1.Hash)
	}

	event2 := NewEvent(EventCertIssued, ResultSuccess)
	if err := writer2.Write(event2); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	_ = writer2.Close()

	// Verify chain continues
	if event2.HashPrev != event1.Hash {
		t.Errorf("Event2 HashPrev = %s, want %s", event2.HashPrev, event1.Hash)
	}
}

func TestU_FileWriter_Path(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.jsonl")

	writer, err := NewFileWriter(logPath)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}
	defer func() { _ = writer.Close() }()

	if writer.Path() != logPath {
		t.Errorf("Path() = %s, want %s", writer.Path(), logPath)
	}
}

func TestU_FileWriter_InvalidPath(t *testing.T) {
	invalidPath := "/nonexistent/directory/audit.jsonl"
	_, err := NewFileWriter(invalidPath)
	if err == nil {
		t.Error("NewFileWriter() should fail with invalid path")
	}
}

func TestU_FileWriter_RejectsInvalidEvent(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.jsonl")

	writer, err := NewFileWriter(logPath)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}
	defer func() { _ = writer.Close() }()

	if err := writer.Write(&Event{}); err == nil {
		t.Error("Write() of empty event should fail")
	}
}

func TestU_FileWriter_WriteAfterClose(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.jsonl")

	writer, err := NewFileWriter(logPath)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}
	_ = writer.Close()

	event := NewEvent(EventCertIssued, ResultSuccess)
	if err := writer.Write(event); err == nil {
		t.Error("Write() after Close() should fail")
	}
}

func TestU_FileWriter_SpecialChars(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.jsonl")

	writer, err := NewFileWriter(logPath)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}
	defer func() { _ = writer.Close() }()

	event := NewEvent(EventCertIssued, ResultSuccess).
		WithObject(Object{
			Type:    "certificate",
			Subject: `/CN=Test "Quoted"/O=日本語`,
		})

	if err := writer.Write(event); err != nil {
		t.Errorf("Write() with special chars error = %v", err)
	}

	_ = writer.Close()
	count, err := VerifyChain(logPath)
	if err != nil {
		t.Errorf("VerifyChain() error = %v", err)
	}
	if count != 1 {
		t.Errorf("VerifyChain() count = %d, want 1", count)
	}
}

func TestU_FileWriter_ConcurrentWrites(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit_concurrent.jsonl")

	writer, err := NewFileWriter(logPath)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}
	defer func() { _ = writer.Close() }()

	const numGoroutines = 10
	const eventsPerGoroutine = 10

	done := make(chan bool)
	errors := make(chan error, numGoroutines*eventsPerGoroutine)

	for i := 0; i < numGoroutines; i++ {
		go func(goroutineID int) {
			for j := 0; j < eventsPerGoroutine; j++ {
				event := NewEvent(EventCertIssued, ResultSuccess).
					WithObject(Object{
						Type:   "certificate",
						Serial: "0x" + string(rune('0'+goroutineID)) + string(rune('0'+j)),
					})
				if err := writer.Write(event); err != nil {
					errors <- err
				}
			}
			done <- true
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		<-done
	}
	close(errors)

	for err := range errors {
		t.Errorf("Concurrent write error: %v", err)
	}

	_ = writer.Close()

	count, err := VerifyChain(logPath)
	if err != nil {
		t.Errorf("VerifyChain() error = %v", err)
	}
	if count != numGoroutines*eventsPerGoroutine {
		t.Errorf("VerifyChain() count = %d, want %d", count, numGoroutines*eventsPerGoroutine)
	}
}

// =============================================================================
// VerifyChain Tests
// =============================================================================

func TestU_VerifyChain_ValidLog(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.jsonl")

	writer, _ := NewFileWriter(logPath)
	for i := 0; i < 5; i++ {
		event := NewEvent(EventCertIssued, ResultSuccess).
			WithObject(Object{Serial: "0x" + string(rune('1'+i))})
		_ = writer.Write(event)
	}
	_ = writer.Close()

	count, err := VerifyChain(logPath)
	if err != nil {
		t.Errorf("VerifyChain() error = %v", err)
	}
	if count != 5 {
		t.Errorf("VerifyChain() count = %d, want 5", count)
	}
}

func TestU_VerifyChain_Tampering(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.jsonl")

	writer, _ := NewFileWriter(logPath)
	for i := 0; i < 3; i++ {
		event := NewEvent(EventCertIssued, ResultSuccess)
		_ = writer.Write(event)
	}
	_ = writer.Close()

	// Alter the second event without recomputing its hash.
	data, _ := os.ReadFile(logPath)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")

	var event Event
	_ = json.Unmarshal([]byte(lines[1]), &event)
	event.Object.Serial = "TAMPERED"
	tamperedLine, _ := event.JSON()
	lines[1] = string(tamperedLine)

	_ = os.WriteFile(logPath, []byte(strings.Join(lines, "\n")+"\n"), 0644)

	count, err := VerifyChain(logPath)
	if err == nil {
		t.Error("VerifyChain() should fail on tampered log")
	}
	if count != 1 {
		t.Errorf("VerifyChain() count = %d, want 1 (events before tampering)", count)
	}
}

func TestU_VerifyChain_BrokenChain(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "broken.jsonl")

	writer, _ := NewFileWriter(logPath)
	for i := 0; i < 3; i++ {
		event := NewEvent(EventCertIssued, ResultSuccess)
		_ = writer.Write(event)
	}
	_ = writer.Close()

	// Break the chain by rewriting the second event's hash_prev. Simulates
	// an event being dropped or replaced.
	data, _ := os.ReadFile(logPath)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")

	var event Event
	_ = json.Unmarshal([]byte(lines[1]), &event)
	event.HashPrev = "sha256:broken"
	modifiedLine, _ := event.JSON()
	lines[1] = string(modifiedLine)

	_ = os.WriteFile(logPath, []byte(strings.Join(lines, "\n")+"\n"), 0644)

	count, err := VerifyChain(logPath)
	if err == nil {
		t.Error("VerifyChain() should fail for broken chain")
	}
	if count != 1 {
		t.Errorf("VerifyChain() count = %d, want 1 (valid events before break)", count)
	}
}

func TestU_VerifyChain_RemovedEvent(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.jsonl")

	writer, _ := NewFileWriter(logPath)
	for i := 0; i < 3; i++ {
		event := NewEvent(EventCACreated, ResultSuccess).
			WithObject(Object{Type: "ca", Name: "ca"})
		_ = writer.Write(event)
	}
	_ = writer.Close()

	// Drop the middle event.
	data, _ := os.ReadFile(logPath)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	out := lines[0] + "\n" + lines[2] + "\n"
	_ = os.WriteFile(logPath, []byte(out), 0644)

	if _, err := VerifyChain(logPath); err == nil {
		t.Error("VerifyChain() should detect missing event")
	}
}

func TestU_VerifyChain_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "empty.jsonl")

	if err := os.WriteFile(logPath, []byte{}, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	count, err := VerifyChain(logPath)
	if err != nil {
		t.Errorf("VerifyChain() error = %v", err)
	}
	if count != 0 {
		t.Errorf("VerifyChain() count = %d, want 0", count)
	}
}

func TestU_VerifyChain_NonExistentFile(t *testing.T) {
	_, err := VerifyChain("/nonexistent/path/audit.jsonl")
	if err == nil {
		t.Error("VerifyChain() should fail for non-existent file")
	}
}

func TestU_VerifyChain_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "invalid.jsonl")

	if err := os.WriteFile(logPath, []byte("not valid json\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := VerifyChain(logPath); err == nil {
		t.Error("VerifyChain() should fail for invalid JSON")
	}
}

// =============================================================================
// NopWriter Tests
// =============================================================================

func TestU_NopWriter_Write(t *testing.T) {
	var w NopWriter

	event := NewEvent(EventCertIssued, ResultSuccess)
	if err := w.Write(event); err != nil {
		t.Errorf("NopWriter.Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("NopWriter.Close() error = %v", err)
	}
	if w.LastHash() != GenesisHash {
		t.Errorf("NopWriter.LastHash() = %s, want %s", w.LastHash(), GenesisHash)
	}
}

// =============================================================================
// MultiWriter Tests
// =============================================================================

func TestU_MultiWriter_Write(t *testing.T) {
	tmpDir := t.TempDir()
	logPath1 := filepath.Join(tmpDir, "audit1.jsonl")
	logPath2 := filepath.Join(tmpDir, "audit2.jsonl")

	writer1, err := NewFileWriter(logPath1)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}
	writer2, err := NewFileWriter(logPath2)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}

	multi := NewMultiWriter(writer1, writer2)

	event := NewEvent(EventCertIssued, ResultSuccess).
		WithObject(Object{Type: "certificate", Serial: "0x01"})

	if err := multi.Write(event); err != nil {
		t.Errorf("MultiWriter.Write() error = %v", err)
	}

	if multi.LastHash() != writer1.LastHash() {
		t.Errorf("MultiWriter.LastHash() = %s, want %s", multi.LastHash(), writer1.LastHash())
	}

	if err := multi.Close(); err != nil {
		t.Errorf("MultiWriter.Close() error = %v", err)
	}

	for _, p := range []string{logPath1, logPath2} {
		count, err := VerifyChain(p)
		if err != nil {
			t.Errorf("VerifyChain(%s) error = %v", p, err)
		}
		if count != 1 {
			t.Errorf("VerifyChain(%s) count = %d, want 1", p, count)
		}
	}
}

func TestU_MultiWriter_Empty(t *testing.T) {
	multi := NewMultiWriter()

	event := NewEvent(EventCertIssued, ResultSuccess)
	if err := multi.Write(event); err != nil {
		t.Errorf("MultiWriter.Write() with no writers error = %v", err)
	}
	if multi.LastHash() != GenesisHash {
		t.Errorf("MultiWriter.LastHash() = %s, want %s", multi.LastHash(), GenesisHash)
	}
	if err := multi.Close(); err != nil {
		t.Errorf("MultiWriter.Close() error = %v", err)
	}
}

// failingWriter is a mock writer that fails on Write or Close.
type failingWriter struct {
	failOnWrite bool
	failOnClose bool
}

func (f *failingWriter) Write(*Event) error {
	if f.failOnWrite {
		return os.ErrPermission
	}
	return nil
}

func (f *failingWriter) Close() error {
	if f.failOnClose {
		return os.ErrClosed
	}
	return nil
}

func (f *failingWriter) LastHash() string {
	return GenesisHash
}

func TestU_MultiWriter_WriterFails(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.jsonl")

	failing := &failingWriter{failOnWrite: true}
	working, _ := NewFileWriter(logPath)
	defer func() { _ = working.Close() }()

	event := NewEvent(EventCertIssued, ResultSuccess)

	if err := NewMultiWriter(failing, working).Write(event); err == nil {
		t.Error("MultiWriter.Write() should fail when first writer fails")
	}
	if err := NewMultiWriter(working, failing).Write(event); err == nil {
		t.Error("MultiWriter.Write() should fail when second writer fails")
	}
}

func TestU_MultiWriter_CloseErrors(t *testing.T) {
	multi := NewMultiWriter(
		&failingWriter{failOnClose: true},
		&failingWriter{failOnClose: true},
	)
	if err := multi.Close(); err == nil {
		t.Error("MultiWriter.Close() should return error when writers fail")
	}
}

// =============================================================================
// Global Audit Tests
// =============================================================================

func TestU_GlobalAudit_InitAndLog(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.jsonl")

	if err := InitFile(logPath); err != nil {
		t.Fatalf("InitFile() error = %v", err)
	}

	if !Enabled() {
		t.Error("Enabled() should return true after InitFile")
	}

	event := NewEvent(EventCertIssued, ResultSuccess)
	if err := Log(event); err != nil {
		t.Errorf("Log() error = %v", err)
	}

	if err := Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if Enabled() {
		t.Error("Enabled() should return false after Close")
	}

	count, err := VerifyChain(logPath)
	if err != nil {
		t.Errorf("VerifyChain() error = %v", err)
	}
	if count != 1 {
		t.Errorf("VerifyChain() count = %d, want 1", count)
	}
}

func TestU_GlobalAudit_InitWithNil(t *testing.T) {
	if err := Init(nil); err != nil {
		t.Errorf("Init(nil) error = %v", err)
	}

	if Enabled() {
		t.Error("Enabled() should return false after Init(nil)")
	}

	// Log should succeed (NopWriter discards)
	event := NewEvent(EventCertIssued, ResultSuccess)
	if err := Log(event); err != nil {
		t.Errorf("Log() error = %v (should succeed with NopWriter)", err)
	}
	if err := MustLog(event); err != nil {
		t.Errorf("MustLog() error = %v (should succeed with NopWriter)", err)
	}

	if err := Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestU_GlobalAudit_InitFileEmptyPath(t *testing.T) {
	if err := InitFile(""); err != nil {
		t.Errorf("InitFile(\"\") error = %v", err)
	}
	if Enabled() {
		t.Error("Enabled() should return false after InitFile(\"\")")
	}
	if err := Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestU_GlobalAudit_MultipleInit(t *testing.T) {
	tmpDir := t.TempDir()
	logPath1 := filepath.Join(tmpDir, "audit1.jsonl")
	logPath2 := filepath.Join(tmpDir, "audit2.jsonl")

	if err := InitFile(logPath1); err != nil {
		t.Fatalf("First InitFile() error = %v", err)
	}
	if err := Log(NewEvent(EventCACreated, ResultSuccess)); err != nil {
		t.Errorf("Log() to first log error = %v", err)
	}

	// Second init replaces the writer.
	if err := InitFile(logPath2); err != nil {
		t.Fatalf("Second InitFile() error = %v", err)
	}
	if err := Log(NewEvent(EventCertIssued, ResultSuccess)); err != nil {
		t.Errorf("Log() to second log error = %v", err)
	}

	if err := Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	for _, p := range []string{logPath1, logPath2} {
		count, err := VerifyChain(p)
		if err != nil {
			t.Errorf("VerifyChain(%s) error = %v", p, err)
		}
		if count != 1 {
			t.Errorf("VerifyChain(%s) count = %d, want 1", p, count)
		}
	}
}

func TestU_GlobalAudit_CloseMultipleTimes(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.jsonl")

	if err := InitFile(logPath); err != nil {
		t.Fatalf("InitFile() error = %v", err)
	}

	if err := Close(); err != nil {
		t.Errorf("First Close() error = %v", err)
	}
	// Second close sees the NopWriter.
	if err := Close(); err != nil {
		t.Errorf("Second Close() error = %v", err)
	}
}

// =============================================================================
// Helper Functions Tests
// =============================================================================

func TestU_LogHelpers_AllEvents(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.jsonl")

	if err := InitFile(logPath); err != nil {
		t.Fatalf("InitFile() error = %v", err)
	}
	defer func() { _ = Close() }()

	if err := LogCACreated("root-ca", "/CN=Root CA", "ecdsa-p256", true); err != nil {
		t.Errorf("LogCACreated() error = %v", err)
	}
	if err := LogCALoaded("root-ca", "/CN=Root CA", true); err != nil {
		t.Errorf("LogCALoaded() error = %v", err)
	}
	if err := LogKeyAccessed("root-ca", true, "sign certificate"); err != nil {
		t.Errorf("LogKeyAccessed() error = %v", err)
	}
	if err := LogCertIssued("root-ca", "0x01", "/CN=example.com", "rsa-2048", true); err != nil {
		t.Errorf("LogCertIssued() error = %v", err)
	}
	if err := LogAuthFailed("root-ca", "invalid passphrase"); err != nil {
		t.Errorf("LogAuthFailed() error = %v", err)
	}

	_ = Close()

	count, err := VerifyChain(logPath)
	if err != nil {
		t.Errorf("VerifyChain() error = %v", err)
	}
	if count != 5 {
		t.Errorf("VerifyChain() count = %d, want 5", count)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, want := range []string{"CA_CREATED", "CA_LOADED", "KEY_ACCESSED", "CERT_ISSUED", "AUTH_FAILED"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("audit log missing event type %s", want)
		}
	}
}

func TestU_LogHelpers_FailureCases(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.jsonl")

	if err := InitFile(logPath); err != nil {
		t.Fatalf("InitFile() error = %v", err)
	}
	defer func() { _ = Close() }()

	if err := LogCACreated("root-ca", "/CN=Root CA", "ecdsa-p256", false); err != nil {
		t.Errorf("LogCACreated(success=false) error = %v", err)
	}
	if err := LogCALoaded("root-ca", "/CN=Root CA", false); err != nil {
		t.Errorf("LogCALoaded(success=false) error = %v", err)
	}
	if err := LogKeyAccessed("root-ca", false, "wrong passphrase"); err != nil {
		t.Errorf("LogKeyAccessed(success=false) error = %v", err)
	}
	if err := LogCertIssued("root-ca", "0x01", "/CN=example.com", "rsa-2048", false); err != nil {
		t.Errorf("LogCertIssued(success=false) error = %v", err)
	}

	_ = Close()

	count, err := VerifyChain(logPath)
	if err != nil {
		t.Errorf("VerifyChain() error = %v", err)
	}
	if count != 4 {
		t.Errorf("VerifyChain() count = %d, want 4", count)
	}
}
