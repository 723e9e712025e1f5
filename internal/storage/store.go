package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GrooveWJH/volition/internal/control"
	"github.com/GrooveWJH/volition/internal/loop"
)

const (
	metadataFile = "metadata.json"
	traceFile    = "trace.csv"
	flushEvery   = 10
)

// ErrRunNotFound is returned when a run ID has no directory under the store.
var ErrRunNotFound = errors.New("storage: run not found")

// Columns of trace.csv in order.
var Columns = []string{
	"timestamp",
	"target_x", "target_y", "target_yaw",
	"current_x", "current_y", "current_yaw",
	"error_x", "error_y", "error_yaw",
	"distance",
	"roll_offset", "pitch_offset", "yaw_offset",
	"roll_absolute", "pitch_absolute", "yaw_absolute",
	"waypoint_index",
	"x_p", "x_i", "x_d",
	"y_p", "y_i", "y_d",
	"yaw_p", "yaw_i", "yaw_d",
	"kp_scale", "kd_scale",
	"phase", "muted",
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	Preset     string    `json:"preset,omitempty"`
	Controller string    `json:"controller"`
	Timestamp  time.Time `json:"timestamp"`
	Frequency  float64   `json:"frequency"`
	Seed       uint64    `json:"seed"`
	Ticks      int       `json:"ticks"`
	Arrivals   int       `json:"arrivals"`
	Duration   float64   `json:"duration"`
	Status     string    `json:"status,omitempty"`

	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Run is an open recording. It satisfies loop.Recorder.
type Run struct {
	dir  string
	meta RunMetadata

	mu    sync.Mutex
	file  *os.File
	w     *csv.Writer
	first float64
	last  float64
}

// Create opens a new run directory and writes the trace header. ID and
// Timestamp are filled in when empty.
func (s *Store) Create(meta RunMetadata) (*Run, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("%s_%s_%s", meta.Mode, meta.Timestamp.Format("20060102_150405"), uuid.NewString()[:8])
	}
	dir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	f, err := os.Create(filepath.Join(dir, traceFile))
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()

	r := &Run{dir: dir, meta: meta, file: f, w: w}
	if err := r.writeMetadata(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *Run) ID() string  { return r.meta.ID }
func (r *Run) Dir() string { return r.dir }

// Record appends one trace row.
func (r *Run) Record(tr loop.Trace) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return fmt.Errorf("storage: run %s is closed", r.meta.ID)
	}

	if r.meta.Ticks == 0 {
		r.first = tr.Time
	}
	r.last = tr.Time
	r.meta.Ticks++

	if err := r.w.Write(row(tr)); err != nil {
		return err
	}
	if r.meta.Ticks%flushEvery == 0 {
		r.w.Flush()
		return r.w.Error()
	}
	return nil
}

// NoteArrival counts a reached target in the metadata.
func (r *Run) NoteArrival() {
	r.mu.Lock()
	r.meta.Arrivals++
	r.mu.Unlock()
}

// SetMetrics stores flight scores in the metadata written by Close.
func (r *Run) SetMetrics(m map[string]float64) {
	r.mu.Lock()
	r.meta.Metrics = m
	r.mu.Unlock()
}

// Close flushes the trace and finalizes the metadata with status.
func (r *Run) Close(status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	r.w.Flush()
	werr := r.w.Error()
	cerr := r.file.Close()
	r.file = nil

	r.meta.Status = status
	r.meta.Duration = r.last - r.first
	merr := r.writeMetadata()
	return errors.Join(werr, cerr, merr)
}

func (r *Run) writeMetadata() error {
	f, err := os.Create(filepath.Join(r.dir, metadataFile))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(r.meta)
}

func row(tr loop.Trace) []string {
	const (
		x = control.AxisX
		y = control.AxisY
		h = control.AxisHeading
	)
	vals := []float64{
		tr.Time,
		tr.Target.Pose.X, tr.Target.Pose.Y, tr.Target.Pose.Heading,
		tr.Current.X, tr.Current.Y, tr.Current.Heading,
		tr.Errors[x], tr.Errors[y], tr.Errors[h],
		tr.Distance,
		tr.Offsets[y], tr.Offsets[x], tr.Offsets[h],
		float64(tr.Sticks.Roll), float64(tr.Sticks.Pitch), float64(tr.Sticks.Yaw),
		float64(tr.Target.Index),
		tr.Components[x].P, tr.Components[x].I, tr.Components[x].D,
		tr.Components[y].P, tr.Components[y].I, tr.Components[y].D,
		tr.Components[h].P, tr.Components[h].I, tr.Components[h].D,
		tr.Scale.Kp, tr.Scale.Kd,
		float64(tr.Phase),
		0,
	}
	if tr.Muted {
		vals[len(vals)-1] = 1
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out
}

// List returns the metadata of every run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Table is a loaded trace: one float row per tick, indexed by column name.
type Table struct {
	Header []string
	Rows   [][]float64
	index  map[string]int
}

// Column returns the named column, or nil if the trace has no such column.
func (t *Table) Column(name string) []float64 {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	col := make([]float64, len(t.Rows))
	for r, row := range t.Rows {
		if i < len(row) {
			col[r] = row[i]
		}
	}
	return col
}

// LoadTrace reads trace.csv of a run. Rows that fail to parse are skipped.
func (s *Store) LoadTrace(runID string) (*Table, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, traceFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	t := &Table{index: map[string]int{}}
	if len(records) == 0 {
		return t, nil
	}
	t.Header = records[0]
	for i, name := range t.Header {
		t.index[name] = i
	}
	t.Rows = make([][]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		vals := make([]float64, len(record))
		ok := true
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				ok = false
				break
			}
			vals[j] = v
		}
		if ok {
			t.Rows = append(t.Rows, vals)
		}
	}
	return t, nil
}
