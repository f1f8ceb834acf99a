package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	RunMetadata
	Timings []float64    `json:"timings"`
	Bodies  [][6]Float32 `json:"bodies"`
}

func (s *Store) exportData(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	timings, err := s.LoadTimings(runID)
	if err != nil {
		return nil, err
	}
	st, err := s.LoadBodies(runID)
	if err != nil {
		return nil, err
	}

	data := &ExportData{
		RunMetadata: *meta,
		Timings:     timings,
		Bodies:      make([][6]Float32, st.Len()),
	}
	for i, b := range st.Bodies() {
		data.Bodies[i] = [6]Float32{Float32(b.X), Float32(b.Y), Float32(b.Z), Float32(b.VX), Float32(b.VY), Float32(b.VZ)}
	}
	return data, nil
}

// ExportJSON writes the metadata, timings and final bodies of a run as one
// JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	data, err := s.exportData(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (s *Store) ExportJSONFile(path, runID string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return s.ExportJSON(f, runID)
}

// ExportCSV writes the final bodies of a run.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	st, err := s.LoadBodies(runID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := writeBodyRows(cw, st); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
