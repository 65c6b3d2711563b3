// Package log persists per-tick records as hourly rotated, zstd compressed
// JSON lines, and reads them back for replays.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"beltworks.dev/internal/sim/catalogs"
	"beltworks.dev/internal/sim/world"
)

const fileSuffix = ".jsonl.zst"

type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	// Appending starts a new zstd frame; concatenated frames decode as one stream.
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s%s", w.prefix, hour, fileSuffix))
}

// TickLogger writes one JSONL entry per tick (compressed).
type TickLogger struct{ w *JSONLZstdWriter }

func NewTickLogger(worldDir string) *TickLogger {
	return &TickLogger{w: NewJSONLZstdWriter(filepath.Join(worldDir, "ticks"), "ticks")}
}

func (l *TickLogger) WriteTick(v world.TickLogEntry) error { return l.w.Write(v) }
func (l *TickLogger) Close() error                         { return l.w.Close() }

// ProblemEntry records one config problem found while loading a run.
type ProblemEntry struct {
	RunID   string           `json:"run_id"`
	WorldID string           `json:"world_id"`
	Problem catalogs.Problem `json:"problem"`
}

// ProblemLogger keeps the config problems of every run next to its ticks.
type ProblemLogger struct{ w *JSONLZstdWriter }

func NewProblemLogger(worldDir string) *ProblemLogger {
	return &ProblemLogger{w: NewJSONLZstdWriter(filepath.Join(worldDir, "problems"), "problems")}
}

func (l *ProblemLogger) WriteProblem(v ProblemEntry) error { return l.w.Write(v) }
func (l *ProblemLogger) Close() error                      { return l.w.Close() }

// ReadTicks decodes every tick file under worldDir in file name order, which
// is chronological. A non-empty runID keeps only that run's entries.
func ReadTicks(worldDir, runID string) ([]world.TickLogEntry, error) {
	var out []world.TickLogEntry
	err := readJSONL(filepath.Join(worldDir, "ticks"), func(dec *json.Decoder) error {
		var e world.TickLogEntry
		if err := dec.Decode(&e); err != nil {
			return err
		}
		if runID == "" || e.RunID == runID {
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// ReadProblems decodes every problem file under worldDir.
func ReadProblems(worldDir string) ([]ProblemEntry, error) {
	var out []ProblemEntry
	err := readJSONL(filepath.Join(worldDir, "problems"), func(dec *json.Decoder) error {
		var e ProblemEntry
		if err := dec.Decode(&e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

func readJSONL(dir string, decode func(*json.Decoder) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), fileSuffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return err
	}
	defer dec.Close()

	for _, name := range names {
		if err := readFile(filepath.Join(dir, name), dec, decode); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func readFile(path string, dec *zstd.Decoder, decode func(*json.Decoder) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := dec.Reset(f); err != nil {
		return err
	}
	jd := json.NewDecoder(dec)
	for {
		err := decode(jd)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
