package api

import (
	"time"

	"github.com/framecut/framecut-agent/internal/catalog"
	"github.com/framecut/framecut-agent/internal/crop"
	"github.com/framecut/framecut-agent/internal/export"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State        string       `json:"state"`
	LastError    string       `json:"last_error,omitempty"`
	SourcesCount int          `json:"sources_count"`
	AssetsCount  int          `json:"assets_count"`
	JobsRunning  int          `json:"jobs_running"`
	ActiveJob    *JobResponse `json:"active_job,omitempty"`
	CropStored   int          `json:"crop_stored"`
	AspectRatio  string       `json:"aspect_ratio"`
}

type AddFolderRequest struct {
	Path        string `json:"path"`
	DisplayName string `json:"display_name,omitempty"`
}

type AddFolderResponse struct {
	SourceID string `json:"source_id"`
}

type SourceResponse struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Path        string `json:"path"`
	DisplayName string `json:"display_name"`
	Present     bool   `json:"present"`
	CreatedAt   string `json:"created_at"`
}

type SourcesResponse struct {
	Sources []SourceResponse `json:"sources"`
}

type ScanRequest struct {
	SourceID string `json:"source_id,omitempty"`
}

type ScanResponse struct {
	JobID string `json:"job_id"`
}

type JobResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	SourceID  string `json:"source_id,omitempty"`
	Progress  int    `json:"progress"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type AssetResponse struct {
	ID          string `json:"id"`
	SourceID    string `json:"source_id"`
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	Type        string `json:"type"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Size        int64  `json:"size"`
	Fingerprint string `json:"fingerprint"`
	CreatedAt   string `json:"created_at"`
}

type AssetsResponse struct {
	Assets []AssetResponse `json:"assets"`
}

// RatioResponse describes the active aspect ratio of the crop cycle.
type RatioResponse struct {
	Ratio  float64   `json:"ratio"`
	Label  string    `json:"label"`
	Index  int       `json:"index"`
	Ratios []float64 `json:"ratios"`
}

// CropChangeRequest records the outgoing preview asset's live crop
// state and the current selection. OutgoingID and Parameter may be
// empty/null when no asset was open in the crop view.
type CropChangeRequest struct {
	OutgoingID string          `json:"outgoing_id,omitempty"`
	Parameter  *crop.Parameter `json:"parameter,omitempty"`
	Selection  []string        `json:"selection"`
}

type CropChangeResponse struct {
	Stored int `json:"stored"`
}

// CropParamResponse wraps a stored (or synthesized default) parameter.
type CropParamResponse struct {
	Parameter crop.Parameter `json:"parameter"`
	Stored    bool           `json:"stored"`
}

// ExportRequest starts a crop export run over the given selection.
// OutputDir must exist when supplied; otherwise the run writes under
// the agent's export directory. Label names the per-run subdirectory.
type ExportRequest struct {
	Selection []string `json:"selection"`
	SkipCrop  bool     `json:"skip_crop,omitempty"`
	OutputDir string   `json:"output_dir,omitempty"`
	Label     string   `json:"label,omitempty"`
}

// ExportStreamLine is one NDJSON line of an export stream. Error is
// set on the terminal line of a failed run.
type ExportStreamLine struct {
	Records     []export.Record `json:"records"`
	Selection   []string        `json:"selection"`
	AspectRatio float64         `json:"aspect_ratio"`
	Progress    float64         `json:"progress"`
	Done        bool            `json:"done"`
	Error       string          `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func SourceToResponse(s *catalog.Source) SourceResponse {
	return SourceResponse{
		ID:          s.ID,
		Type:        s.Type,
		Path:        s.Path,
		DisplayName: s.DisplayName,
		Present:     s.Present,
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
	}
}

func JobToResponse(j *catalog.Job) JobResponse {
	return JobResponse{
		ID:        j.ID,
		Type:      j.Type,
		Status:    j.Status,
		SourceID:  j.SourceID,
		Progress:  j.Progress,
		Error:     j.Error,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
}

func AssetToResponse(a *catalog.Asset) AssetResponse {
	return AssetResponse{
		ID:          a.ID,
		SourceID:    a.SourceID,
		Path:        a.Path,
		Filename:    a.Filename,
		Type:        a.Type,
		Width:       a.Width,
		Height:      a.Height,
		Size:        a.Size,
		Fingerprint: a.Fingerprint,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

func SnapshotToStreamLine(s export.Snapshot) ExportStreamLine {
	line := ExportStreamLine{
		Records:     s.Records,
		Selection:   s.Selection,
		AspectRatio: s.AspectRatio,
		Progress:    s.Progress,
		Done:        s.Done(),
	}
	if s.Err != nil {
		line.Error = s.Err.Error()
	}
	return line
}
