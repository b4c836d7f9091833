package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/qflow/internal/flow"
)

// Store persists flow runs under a base directory, one subdirectory per
// run with metadata.json and trajectory.csv.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string    `json:"id"`
	Geometry  string    `json:"geometry"`
	Scenario  string    `json:"scenario"`
	Timestamp time.Time `json:"timestamp"`
	ScaleStep float64   `json:"scale_step"`
	MaxScale  float64   `json:"max_scale"`
	Steps     int       `json:"steps"`
	State     string    `json:"state"`

	FixedPoint      bool    `json:"fixed_point"`
	ContractionRate float64 `json:"contraction_rate"`
	FinalScale      float64 `json:"final_scale"`
	FinalMeanNorm   float64 `json:"final_mean_norm"`
	FinalDefectMax  float64 `json:"final_defect_max"`
}

// Save writes one finished run. The trajectory CSV holds the per-step
// scalar summaries, not the full tensor fields.
func (s *Store) Save(geoKind, scen string, cfg flow.Config, state flow.State, traj []flow.Snapshot, fp flow.FixedPoint) (string, error) {
	runID := fmt.Sprintf("%s_%s_%d", geoKind, scen, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Geometry:  geoKind,
		Scenario:  scen,
		Timestamp: time.Now(),
		ScaleStep: cfg.ScaleStep,
		MaxScale:  cfg.MaxScale,
		Steps:     len(traj) - 1,
		State:     state.String(),

		FixedPoint:      fp.Found,
		ContractionRate: fp.ContractionRate,
		FinalScale:      fp.Scale,
		FinalMeanNorm:   fp.MeanNorm,
	}
	if len(traj) > 0 {
		meta.FinalDefectMax = traj[len(traj)-1].DefectMax
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvPath := filepath.Join(runDir, "trajectory.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	header := []string{"step", "scale", "delta", "defect_max", "mean_norm", "trace_q2", "naturality"}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, snap := range traj {
		row := []string{
			strconv.Itoa(snap.Step),
			strconv.FormatFloat(snap.Scale, 'f', 6, 64),
			strconv.FormatFloat(snap.Delta, 'g', 8, 64),
			strconv.FormatFloat(snap.DefectMax, 'g', 8, 64),
			strconv.FormatFloat(snap.MeanNorm, 'g', 8, 64),
			strconv.FormatFloat(snap.TraceQ2, 'g', 8, 64),
			strconv.FormatFloat(snap.Naturality, 'g', 8, 64),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

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

		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// TrajectoryRow is one parsed line of trajectory.csv.
type TrajectoryRow struct {
	Step       int
	Scale      float64
	Delta      float64
	DefectMax  float64
	MeanNorm   float64
	TraceQ2    float64
	Naturality float64
}

func (s *Store) LoadTrajectory(runID string) ([]TrajectoryRow, error) {
	csvPath := filepath.Join(s.baseDir, runID, "trajectory.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []TrajectoryRow{}, nil
	}

	rows := make([]TrajectoryRow, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 7 {
			continue
		}
		step, err := strconv.Atoi(record[0])
		if err != nil {
			continue
		}
		vals := make([]float64, 6)
		ok := true
		for i := 0; i < 6; i++ {
			v, err := strconv.ParseFloat(record[i+1], 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			continue
		}
		rows = append(rows, TrajectoryRow{
			Step: step, Scale: vals[0], Delta: vals[1],
			DefectMax: vals[2], MeanNorm: vals[3], TraceQ2: vals[4],
			Naturality: vals[5],
		})
	}
	return rows, nil
}

// ExportJSON writes a run's metadata and trajectory as a single JSON
// document to path.
func (s *Store) ExportJSON(runID, path string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	rows, err := s.LoadTrajectory(runID)
	if err != nil {
		return err
	}

	doc := struct {
		Metadata   *RunMetadata    `json:"metadata"`
		Trajectory []TrajectoryRow `json:"trajectory"`
	}{meta, rows}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
