package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/san-kum/nbody/internal/verify"
)

// Float is a float64 that round-trips through JSON when it is NaN or
// infinite. Those values are written as the strings "NaN", "+Inf" and "-Inf".
type Float float64

func (f Float) MarshalJSON() ([]byte, error) { return marshalFloat(float64(f), 64) }

func (f *Float) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	v, err := unmarshalFloat(b, 64)
	*f = Float(v)
	return err
}

// Float32 is the single-precision counterpart of Float, used for body values.
type Float32 float32

func (f Float32) MarshalJSON() ([]byte, error) { return marshalFloat(float64(f), 32) }

func (f *Float32) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	v, err := unmarshalFloat(b, 32)
	*f = Float32(v)
	return err
}

func marshalFloat(v float64, bits int) ([]byte, error) {
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, bits), nil
}

func unmarshalFloat(b []byte, bits int) (float64, error) {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(s, bits)
		if err != nil || !(math.IsNaN(v) || math.IsInf(v, 0)) {
			return 0, fmt.Errorf("%w: unexpected float string %q", ErrMalformed, s)
		}
		return v, nil
	}
	return strconv.ParseFloat(string(b), bits)
}

// Metrics converts metric values for storage.
func Metrics(m map[string]float64) map[string]Float {
	out := make(map[string]Float, len(m))
	for name, v := range m {
		out[name] = Float(v)
	}
	return out
}

// Report is the stored form of a verify.Report.
type Report struct {
	Mode          verify.Mode `json:"mode"`
	Bodies        int         `json:"bodies"`
	Iterations    int         `json:"iterations"`
	Throughput    Float       `json:"throughput"`
	Salt          int         `json:"salt"`
	PositionError Float       `json:"position_error,omitempty"`
	VelocityError Float       `json:"velocity_error,omitempty"`
	Tolerance     Float       `json:"tolerance,omitempty"`
	MinThroughput Float       `json:"min_throughput,omitempty"`
	Passed        bool        `json:"passed"`
}

func ReportOf(r *verify.Report) *Report {
	if r == nil {
		return nil
	}
	return &Report{
		Mode:          r.Mode,
		Bodies:        r.Bodies,
		Iterations:    r.Iterations,
		Throughput:    Float(r.Throughput),
		Salt:          r.Salt,
		PositionError: Float(r.PositionError),
		VelocityError: Float(r.VelocityError),
		Tolerance:     Float(r.Tolerance),
		MinThroughput: Float(r.MinThroughput),
		Passed:        r.Passed,
	}
}
