// Package api exposes run status over HTTP so fine-tuning progress can be
// watched without shelling into the box that launched it.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/kiln/internal/run"
)

// Server serves read-only views over the run store.
type Server struct {
	store *run.Store
}

func NewServer(store *run.Store) *Server {
	return &Server{store: store}
}

// Register mounts the routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/runs", s.handleListRuns)
	e.GET("/v1/runs/:id", s.handleGetRun)
}

// RunView is the wire shape of a run. Timestamps are RFC 3339 in UTC.
type RunView struct {
	ID           string  `json:"id"`
	BaseModel    string  `json:"base_model"`
	DataFile     string  `json:"data_file"`
	OutputDir    string  `json:"output_dir"`
	Examples     int     `json:"examples,omitempty"`
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	MaxSeqLen    int     `json:"max_seq_len"`
	Seed         int64   `json:"seed"`
	LoRARank     int     `json:"lora_rank,omitempty"`
	Status       string  `json:"status"`
	JobID        string  `json:"job_id,omitempty"`
	ArtifactPath string  `json:"artifact_path,omitempty"`
	Error        string  `json:"error,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

type listRunsResp struct {
	Runs []RunView `json:"runs"`
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRuns(c *echo.Context) error {
	runs, err := s.store.List()
	if err != nil {
		return writeInternal(c, "list runs: "+err.Error())
	}
	out := listRunsResp{Runs: make([]RunView, 0, len(runs))}
	for _, m := range runs {
		out.Runs = append(out.Runs, viewOf(m))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetRun(c *echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return writeNotFound(c, "run not found")
	}
	m, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, run.ErrNotFound) {
			return writeNotFound(c, "run not found")
		}
		return writeInternal(c, "load run: "+err.Error())
	}
	return c.JSON(http.StatusOK, viewOf(m))
}

func viewOf(m run.Manifest) RunView {
	v := RunView{
		ID:           m.ID,
		BaseModel:    m.BaseModel,
		DataFile:     m.DataFile,
		OutputDir:    m.OutputDir,
		Examples:     m.Examples,
		Epochs:       m.Epochs,
		BatchSize:    m.BatchSize,
		LearningRate: m.LearningRate,
		MaxSeqLen:    m.MaxSeqLen,
		Seed:         m.Seed,
		Status:       string(m.Status),
		JobID:        m.JobID,
		ArtifactPath: m.ArtifactPath,
		Error:        m.Error,
		CreatedAt:    m.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    m.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if m.LoRA != nil {
		v.LoRARank = m.LoRA.Rank
	}
	return v
}
