package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/nbody/internal/body"
	"github.com/san-kum/nbody/internal/compute"
	"github.com/san-kum/nbody/internal/sim"
	"github.com/san-kum/nbody/internal/verify"
)

func sampleRun() (RunMetadata, *body.State, *sim.Result) {
	st := body.New(3)
	body.Randomize(st, 42)

	result := &sim.Result{
		Bodies:            3,
		Iterations:        2,
		IterationTimes:    []time.Duration{2 * time.Millisecond, 4 * time.Millisecond},
		MeanIterationTime: 3 * time.Millisecond,
		Throughput:        sim.Throughput(3, 3*time.Millisecond),
		Metrics:           map[string]float64{"energy_drift": 1.5e-4},
	}

	meta := RunMetadata{
		Exponent: 1,
		Salt:     7,
		Seed:     42,
		Dt:       0.01,
		Backend:  "cpu",
		Layout:   LayoutOf(compute.DefaultLayout()),
	}
	return meta, st, result
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	meta, bodies, result := sampleRun()
	runID, err := st.Save(meta, bodies, result)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Fatal("expected non-empty run id")
	}

	got, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Bodies != 3 || got.Iterations != 2 {
		t.Errorf("expected 3 bodies and 2 iterations, got %d and %d", got.Bodies, got.Iterations)
	}
	if got.Seed != 42 || got.Salt != 7 {
		t.Errorf("expected seed 42 salt 7, got %d and %d", got.Seed, got.Salt)
	}
	if got.Layout.TileWidth != compute.DefaultTileWidth {
		t.Errorf("expected tile width %d, got %d", compute.DefaultTileWidth, got.Layout.TileWidth)
	}
	if got.Metrics["energy_drift"] != 1.5e-4 {
		t.Errorf("expected energy_drift 1.5e-4, got %g", got.Metrics["energy_drift"])
	}

	loaded, err := st.LoadBodies(runID)
	if err != nil {
		t.Fatalf("load bodies failed: %v", err)
	}
	if loaded.Len() != bodies.Len() {
		t.Fatalf("expected %d bodies, got %d", bodies.Len(), loaded.Len())
	}
	for i := 0; i < bodies.Len(); i++ {
		if loaded.At(i) != bodies.At(i) {
			t.Errorf("body %d: got %+v, want %+v", i, loaded.At(i), bodies.At(i))
		}
	}

	timings, err := st.LoadTimings(runID)
	if err != nil {
		t.Fatalf("load timings failed: %v", err)
	}
	if len(timings) != 2 || timings[0] != 0.002 || timings[1] != 0.004 {
		t.Errorf("unexpected timings %v", timings)
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	meta, bodies, result := sampleRun()
	for i := 0; i < 2; i++ {
		if _, err := st.Save(meta, bodies, result); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[1].Timestamp.Before(runs[0].Timestamp) {
		t.Error("runs not ordered by timestamp")
	}
}

func TestStoreListMissingDir(t *testing.T) {
	runs, err := New(filepath.Join(t.TempDir(), "absent")).List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)

	meta, bodies, result := sampleRun()
	runID, err := st.Save(meta, bodies, result)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{metadataFile, bodiesFile, timingsFile} {
		if _, err := os.Stat(filepath.Join(dir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestStoreSaveNonFinite(t *testing.T) {
	st := New(t.TempDir())

	meta, bodies, result := sampleRun()
	nan := float32(math.NaN())
	bodies.Set(0, body.Body{X: nan, VX: float32(math.Inf(1))})
	result.Metrics = map[string]float64{
		"energy_drift":   math.NaN(),
		"momentum_drift": math.Inf(1),
	}
	meta.Report = ReportOf(&verify.Report{
		Mode:          verify.ModeAccuracy,
		Bodies:        3,
		PositionError: math.NaN(),
		VelocityError: math.Inf(-1),
		Tolerance:     1e-3,
	})

	runID, err := st.Save(meta, bodies, result)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !math.IsNaN(float64(got.Metrics["energy_drift"])) {
		t.Errorf("expected NaN energy_drift, got %v", got.Metrics["energy_drift"])
	}
	if !math.IsInf(float64(got.Metrics["momentum_drift"]), 1) {
		t.Errorf("expected +Inf momentum_drift, got %v", got.Metrics["momentum_drift"])
	}
	if got.Report == nil || !math.IsNaN(float64(got.Report.PositionError)) || !math.IsInf(float64(got.Report.VelocityError), -1) {
		t.Errorf("non-finite report errors not preserved: %+v", got.Report)
	}
	if got.Report.Tolerance != 1e-3 {
		t.Errorf("expected tolerance 1e-3, got %v", got.Report.Tolerance)
	}

	var buf bytes.Buffer
	if err := st.ExportJSON(&buf, runID); err != nil {
		t.Fatalf("export json failed: %v", err)
	}
	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !math.IsNaN(float64(data.Bodies[0][0])) || !math.IsInf(float64(data.Bodies[0][3]), 1) {
		t.Errorf("non-finite bodies not preserved: %v", data.Bodies[0])
	}
}

func TestFloatUnmarshalRejectsText(t *testing.T) {
	var f Float
	if err := json.Unmarshal([]byte(`"1.5"`), &f); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
	if err := json.Unmarshal([]byte(`2.5`), &f); err != nil || f != 2.5 {
		t.Errorf("expected 2.5, got %v (%v)", f, err)
	}
}

func TestLoadBodiesMalformed(t *testing.T) {
	dir := t.TempDir()
	runDir := filepath.Join(dir, "broken")
	if err := os.MkdirAll(runDir, 0755); err != nil {
		t.Fatal(err)
	}
	data := "index,x,y,z,vx,vy,vz\n0,1,2,3\n"
	if err := os.WriteFile(filepath.Join(runDir, bodiesFile), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := New(dir).LoadBodies("broken")
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestExport(t *testing.T) {
	st := New(t.TempDir())
	meta, bodies, result := sampleRun()
	runID, err := st.Save(meta, bodies, result)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	var buf bytes.Buffer
	if err := st.ExportJSON(&buf, runID); err != nil {
		t.Fatalf("export json failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if data.ID != runID || len(data.Bodies) != 3 || len(data.Timings) != 2 {
		t.Errorf("unexpected export: id=%s bodies=%d timings=%d", data.ID, len(data.Bodies), len(data.Timings))
	}
	if float32(data.Bodies[0][0]) != bodies.At(0).X {
		t.Errorf("x0 = %v, want %v", data.Bodies[0][0], bodies.At(0).X)
	}

	buf.Reset()
	if err := st.ExportCSV(&buf, runID); err != nil {
		t.Fatalf("export csv failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Errorf("expected header plus 3 rows, got %d lines", len(lines))
	}
	if lines[0] != "index,x,y,z,vx,vy,vz" {
		t.Errorf("unexpected header %q", lines[0])
	}
}
