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
	"time"

	"github.com/san-kum/nbody/internal/body"
	"github.com/san-kum/nbody/internal/compute"
	"github.com/san-kum/nbody/internal/sim"
)

const (
	metadataFile = "metadata.json"
	bodiesFile   = "bodies.csv"
	timingsFile  = "timings.csv"
)

var ErrMalformed = errors.New("storage: malformed run file")

var bodiesHeader = []string{"index", "x", "y", "z", "vx", "vy", "vz"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type Layout struct {
	TileWidth int `json:"tile_width"`
	GroupSize int `json:"group_size"`
	Fanout    int `json:"fanout"`
	Workers   int `json:"workers"`
}

func LayoutOf(l compute.Layout) Layout {
	return Layout{TileWidth: l.TileWidth, GroupSize: l.GroupSize, Fanout: l.Fanout, Workers: l.Workers}
}

type RunMetadata struct {
	ID          string           `json:"id"`
	Timestamp   time.Time        `json:"timestamp"`
	Bodies      int              `json:"bodies"`
	Exponent    int              `json:"exponent"`
	Salt        int              `json:"salt"`
	Seed        uint64           `json:"seed"`
	Dt          float32          `json:"dt"`
	Iterations  int              `json:"iterations"`
	Backend     string           `json:"backend"`
	Layout      Layout           `json:"layout"`
	MeanSeconds Float            `json:"mean_seconds"`
	Throughput  Float            `json:"throughput"`
	Metrics     map[string]Float `json:"metrics"`
	Report      *Report          `json:"report,omitempty"`
}

// Save writes a run directory holding meta, the final body state and the
// per-iteration timings of result. Fields derived from result overwrite those
// in meta.
func (s *Store) Save(meta RunMetadata, final *body.State, result *sim.Result) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("n%d_%d", final.Len(), now.UnixNano())
	meta.Timestamp = now
	meta.Bodies = final.Len()
	meta.Iterations = result.Iterations
	meta.MeanSeconds = Float(result.MeanIterationTime.Seconds())
	meta.Throughput = Float(result.Throughput)
	meta.Metrics = Metrics(result.Metrics)

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeMetadata(filepath.Join(runDir, metadataFile), &meta); err != nil {
		return "", err
	}
	if err := writeBodies(filepath.Join(runDir, bodiesFile), final); err != nil {
		return "", err
	}
	if err := writeTimings(filepath.Join(runDir, timingsFile), result.IterationTimes); err != nil {
		return "", err
	}

	return meta.ID, nil
}

func writeMetadata(path string, meta *RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeBodies(path string, st *body.State) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := writeBodyRows(w, st); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func writeBodyRows(w *csv.Writer, st *body.State) error {
	if err := w.Write(bodiesHeader); err != nil {
		return err
	}
	for i, b := range st.Bodies() {
		row := []string{
			strconv.Itoa(i),
			formatFloat(b.X), formatFloat(b.Y), formatFloat(b.Z),
			formatFloat(b.VX), formatFloat(b.VY), formatFloat(b.VZ),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

func writeTimings(path string, times []time.Duration) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"iteration", "seconds"}); err != nil {
		return err
	}
	for i, d := range times {
		if err := w.Write([]string{strconv.Itoa(i + 1), strconv.FormatFloat(d.Seconds(), 'g', -1, 64)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, oldest first. Directories without valid
// metadata are skipped.
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

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, metadataFile, err)
	}
	return &meta, nil
}

// LoadBodies reads the final body state of a run.
func (s *Store) LoadBodies(runID string) (*body.State, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, bodiesFile))
	if err != nil {
		return nil, err
	}

	st := body.New(len(records))
	for i, rec := range records {
		if len(rec) != len(bodiesHeader) {
			return nil, fmt.Errorf("%w: %s row %d has %d fields", ErrMalformed, bodiesFile, i+1, len(rec))
		}
		var v [body.FieldsPerBody]float32
		for j := range v {
			f, err := strconv.ParseFloat(rec[j+1], 32)
			if err != nil {
				return nil, fmt.Errorf("%w: %s row %d: %v", ErrMalformed, bodiesFile, i+1, err)
			}
			v[j] = float32(f)
		}
		st.Set(i, body.Body{X: v[0], Y: v[1], Z: v[2], VX: v[3], VY: v[4], VZ: v[5]})
	}
	return st, nil
}

// LoadTimings reads the per-iteration wall times of a run in seconds.
func (s *Store) LoadTimings(runID string) ([]float64, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, timingsFile))
	if err != nil {
		return nil, err
	}

	times := make([]float64, 0, len(records))
	for i, rec := range records {
		if len(rec) != 2 {
			return nil, fmt.Errorf("%w: %s row %d has %d fields", ErrMalformed, timingsFile, i+1, len(rec))
		}
		t, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %v", ErrMalformed, timingsFile, i+1, err)
		}
		times = append(times, t)
	}
	return times, nil
}

// readCSV returns the data rows of a CSV file, header dropped.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(records) < 2 {
		return [][]string{}, nil
	}
	return records[1:], nil
}
