package otel

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for i, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var decoded map[string]any
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Fatalf("line %d: invalid JSON: %v", i, err)
		}
		out = append(out, decoded)
	}
	return out
}

func TestEmitWritesValidJSONL(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindStoreInsert, Level: LevelInfo, Comp: "store", PostID: 7})
	l.Close()

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0]["kind"] != "store.insert" {
		t.Errorf("expected kind=store.insert, got %v", lines[0]["kind"])
	}
	if lines[0]["comp"] != "store" {
		t.Errorf("expected comp=store, got %v", lines[0]["comp"])
	}
	if lines[0]["post_id"] != float64(7) {
		t.Errorf("expected post_id=7, got %v", lines[0]["post_id"])
	}
}

func TestEmitSetsTimeAndSessionID(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	before := time.Now()
	l.Emit(Event{Kind: KindStartup})
	l.Close()
	after := time.Now()

	var ev Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Time.Before(before) || ev.Time.After(after) {
		t.Errorf("time %v not in [%v, %v]", ev.Time, before, after)
	}
	if _, err := uuid.Parse(ev.SessionID); err != nil {
		t.Errorf("session_id %q is not a uuid: %v", ev.SessionID, err)
	}
	if ev.SessionID != l.SessionID() {
		t.Errorf("session_id %q != logger session %q", ev.SessionID, l.SessionID())
	}
}

func TestDurToMs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindCtrlAction, Dur: 1500 * time.Millisecond})
	l.Close()

	lines := decodeLines(t, &buf)
	if durMs, ok := lines[0]["dur_ms"].(float64); !ok || durMs != 1500 {
		t.Errorf("expected dur_ms=1500, got %v", lines[0]["dur_ms"])
	}
}

func TestOmitempty(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindStartup})
	l.Close()

	line := strings.TrimSpace(buf.String())
	for _, field := range []string{"dur_ms", "count", "err", "msg", "post_id", "action"} {
		if strings.Contains(line, `"`+field+`"`) {
			t.Errorf("expected field %q to be omitted, but found in: %s", field, line)
		}
	}
}

func TestConcurrentEmit(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Emit(Event{Kind: KindLiveEmit, Comp: "test"})
		}()
	}
	wg.Wait()
	l.Close()

	if lines := decodeLines(t, &buf); len(lines) != 100 {
		t.Errorf("expected 100 lines, got %d", len(lines))
	}
}

func TestCloseIdempotentAndDropsLateEmits(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindStartup, Msg: "start"})
	l.Close()
	l.Close()

	l.Emit(Event{Kind: KindShutdown})
	if l.Dropped() != 1 {
		t.Errorf("expected 1 dropped event after close, got %d", l.Dropped())
	}
	if lines := decodeLines(t, &buf); len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
}

func TestEmitRacingClose(t *testing.T) {
	for i := 0; i < 50; i++ {
		var buf bytes.Buffer
		l := NewLogger(&buf)

		start := make(chan struct{})
		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for k := 0; k < 20; k++ {
					l.Emit(Event{Kind: KindLiveEmit, Comp: "live"})
				}
			}()
		}
		close(start)
		l.Close()
		wg.Wait()

		written := uint64(len(decodeLines(t, &buf)))
		if written+l.Dropped() != 80 {
			t.Fatalf("written %d + dropped %d != 80", written, l.Dropped())
		}
	}
}

func TestConvenienceHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Info(KindStartup, "main", "starting")
	l.Warn(KindStoreError, "live", "slow")
	l.Error(KindStoreError, "store", errors.New("disk full"))
	l.Action("details", "delete", 3, time.Millisecond, nil)
	l.Action("entry", "save", 0, time.Millisecond, errors.New("boom"))
	l.Close()

	lines := decodeLines(t, &buf)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}

	tests := []struct {
		level string
		kind  string
		comp  string
	}{
		{"info", "sys.startup", "main"},
		{"warn", "store.error", "live"},
		{"error", "store.error", "store"},
		{"info", "ctrl.action", "details"},
		{"error", "ctrl.error", "entry"},
	}
	for i, tt := range tests {
		if lines[i]["level"] != tt.level {
			t.Errorf("line %d: level=%v, want %v", i, lines[i]["level"], tt.level)
		}
		if lines[i]["kind"] != tt.kind {
			t.Errorf("line %d: kind=%v, want %v", i, lines[i]["kind"], tt.kind)
		}
		if lines[i]["comp"] != tt.comp {
			t.Errorf("line %d: comp=%v, want %v", i, lines[i]["comp"], tt.comp)
		}
	}
	if lines[4]["err"] != "boom" {
		t.Errorf("expected err=boom, got %v", lines[4]["err"])
	}
}

func TestOpenLoggerCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")
	l, err := OpenLogger(path)
	if err != nil {
		t.Fatalf("OpenLogger failed: %v", err)
	}
	l.Info(KindStartup, "main", "hello")
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read event log: %v", err)
	}
	if !strings.Contains(string(data), `"sys.startup"`) {
		t.Errorf("event log missing startup event: %s", data)
	}
}

func TestDropCounter(t *testing.T) {
	bw := &blockingWriter{
		started: make(chan struct{}),
		block:   make(chan struct{}),
	}
	l := NewLogger(bw)

	// First emit gets picked up by drain, which blocks on write.
	l.Emit(Event{Kind: KindLiveEmit})
	<-bw.started

	for i := 0; i < writerChanSize+10; i++ {
		l.Emit(Event{Kind: KindLiveEmit})
	}
	if l.Dropped() == 0 {
		t.Error("expected some drops when channel is full, got 0")
	}

	close(bw.block)
	l.Close()
}

type blockingWriter struct {
	started chan struct{}
	block   chan struct{}
	once    sync.Once
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	w.once.Do(func() {
		close(w.started)
		<-w.block
	})
	return len(p), nil
}
