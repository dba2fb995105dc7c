package types

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Run statuses
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run types
const (
	RunCompute = "compute"
	RunPlot    = "plot"
	RunTrend   = "trend"
)

// RunReport represents the result of one comparator run
type RunReport struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Status     string          `json:"status"`
	Metadata   RunMetadata     `json:"metadata"`
	Summary    *SummaryReport  `json:"summary,omitempty"`
	Trend      *TrendReport    `json:"trend,omitempty"`
	Projection *ProjectionData `json:"projection,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Duration   time.Duration   `json:"duration"`
	Error      string          `json:"error,omitempty"`
}

// RunMetadata contains metadata about the run
type RunMetadata struct {
	InputFile   string          `json:"input_file"`
	OutputFiles []string        `json:"output_files"`
	Parameters  ModelParameters `json:"parameters"`
	Profile     string          `json:"profile,omitempty"`
	FromExport  bool            `json:"from_export,omitempty"`
	Version     string          `json:"version"`
}

// ModelParameters are the corrected-model scalars used for the run
type ModelParameters struct {
	Alpha    float64 `json:"alpha"`
	LambdaKm float64 `json:"lambda_km"`
}

// SummaryReport describes the enriched table.
// Undefined or non-finite values are omitted.
type SummaryReport struct {
	Rows            int       `json:"rows"`
	First           time.Time `json:"first"`
	Last            time.Time `json:"last"`
	MinRadialKm     *float64  `json:"min_radial_km,omitempty"`
	MaxRadialKm     *float64  `json:"max_radial_km,omitempty"`
	MaxAbsResidualM *float64  `json:"max_abs_residual_m,omitempty"`
	NonFiniteRows   int       `json:"non_finite_rows,omitempty"`
	VelocityRows    int       `json:"velocity_rows,omitempty"`
	MeanSpeedKms    *float64  `json:"mean_speed_kms,omitempty"`
	Amplification   *float64  `json:"amplification,omitempty"`
}

// TrendReport is the fitted residual trend
type TrendReport struct {
	SlopeMPerDay float64   `json:"slope_m_per_day"`
	InterceptM   *float64  `json:"intercept_m,omitempty"`
	T0           time.Time `json:"t0"`
	Samples      int       `json:"samples"`
	Degenerate   bool      `json:"degenerate"`
}

// ProjectionData is the projected residual at a future date
type ProjectionData struct {
	Target     time.Time `json:"target"`
	ResidualM  *float64  `json:"residual_m,omitempty"`
	ResidualKm *float64  `json:"residual_km,omitempty"`
}

// NewRunReport creates a report with a fresh ID
func NewRunReport(runType, inputFile string) *RunReport {
	return &RunReport{
		ID:        uuid.NewString(),
		Type:      runType,
		Status:    StatusCompleted,
		Metadata:  RunMetadata{InputFile: inputFile, OutputFiles: []string{}},
		Timestamp: time.Now().UTC(),
	}
}

// Fail marks the report as failed with err
func (r *RunReport) Fail(err error) {
	r.Status = StatusFailed
	if err != nil {
		r.Error = err.Error()
	}
}

// AddOutput records a written file
func (r *RunReport) AddOutput(path string) {
	r.Metadata.OutputFiles = append(r.Metadata.OutputFiles, path)
}

// Finite returns a pointer to v, or nil when v is NaN or infinite, so that
// the value can be omitted from JSON.
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ToJSON converts the report to indented JSON
func (r *RunReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// WriteJSON writes the report to path
func (r *RunReport) WriteJSON(path string) error {
	data, err := r.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ReportFromJSON parses a report
func ReportFromJSON(data []byte) (*RunReport, error) {
	var r RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
