// Package audit appends one JSON line per operation phase to
// ~/.aster/audit.log.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

type Logger struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

type Event struct {
	Timestamp   string            `json:"timestamp"`
	OperationID string            `json:"operationId,omitempty"`
	Operation   string            `json:"operation"`
	Phase       string            `json:"phase"`
	Status      string            `json:"status"`
	Code        string            `json:"code,omitempty"`
	Message     string            `json:"message,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

func New(fs afero.Fs, path string) *Logger {
	return &Logger{fs: fs, path: path}
}

func (l *Logger) Log(ev Event) error {
	if l == nil || l.path == "" || l.fs == nil {
		return nil
	}
	ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	blob, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.fs.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := l.fs.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(blob, '\n'))
	return err
}

// Op groups the events of one operation under a shared id.
type Op struct {
	logger *Logger
	id     string
	name   string
}

// Begin logs the start phase of operation and returns a handle for the
// closing commit or fail event. Logging failures never surface.
func (l *Logger) Begin(operation string, fields map[string]string) *Op {
	op := &Op{logger: l, id: uuid.NewString(), name: operation}
	_ = l.Log(Event{OperationID: op.id, Operation: operation, Phase: "start", Status: "ok", Fields: fields})
	return op
}

func (o *Op) ID() string { return o.id }

func (o *Op) Commit(message string, fields map[string]string) {
	_ = o.logger.Log(Event{OperationID: o.id, Operation: o.name, Phase: "commit", Status: "ok", Message: message, Fields: fields})
}

func (o *Op) Fail(err error) {
	if err == nil {
		return
	}
	_ = o.logger.Log(Event{OperationID: o.id, Operation: o.name, Phase: "fail", Status: "error", Message: err.Error()})
}
