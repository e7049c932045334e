// Package server provides the HTTP server for the dubsync API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/maauso/dubsync/internal/job"
	"github.com/maauso/dubsync/internal/media"
)

// AnalyzeRequest is the HTTP request body for probing one file.
type AnalyzeRequest struct {
	// Path is the file to probe, relative to WorkingDir unless absolute.
	Path string `json:"path" validate:"required"`
	// WorkingDir defaults to the server's WORK_DIR.
	WorkingDir string `json:"working_dir"`
}

// AnalyzeResponse is the HTTP response with probed metadata.
type AnalyzeResponse struct {
	Duration float64 `json:"duration"`
	Channels int     `json:"channels"`
	Codec    string  `json:"codec"`
}

// StartSyncRequest is the HTTP request body for starting a sync job.
type StartSyncRequest struct {
	// MasterName is the master track file name.
	MasterName string `json:"master_name" validate:"required"`
	// DubName is the dubbed track file name.
	DubName string `json:"dub_name" validate:"required,nefield=MasterName"`
	// WorkingDir holds both inputs and receives the output.
	WorkingDir string `json:"working_dir"`
	// PushToS3 indicates whether to upload the rendered output to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// Start statuses returned by POST /start-sync.
const (
	StatusStarted        = "started"
	StatusAlreadyRunning = "already running"
)

// StartSyncResponse is the HTTP response after a start request.
type StartSyncResponse struct {
	Status string `json:"status"`
	JobID  string `json:"job_id,omitempty"`
}

// ProgressResponse is the HTTP response for the progress endpoint.
type ProgressResponse struct {
	Progress int `json:"progress"`
}

// SegmentResponse is one entry of a built timeline.
type SegmentResponse struct {
	Source string  `json:"source"`
	In     float64 `json:"in"`
	Out    float64 `json:"out"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	ID       string `json:"id"`
	State    string `json:"state"`
	Progress int    `json:"progress"`
	// Stage is the failed pipeline stage, set only when State is FAILED.
	Stage string `json:"stage,omitempty"`
	Error string `json:"error,omitempty"`

	Master     string            `json:"master"`
	Dub        string            `json:"dub"`
	MasterInfo *AnalyzeResponse  `json:"master_info,omitempty"`
	DubInfo    *AnalyzeResponse  `json:"dub_info,omitempty"`
	Segments   []SegmentResponse `json:"segments"`
	OutputPath string            `json:"output_path,omitempty"`
	OutputURL  string            `json:"output_url,omitempty"`
	Logs       []string          `json:"logs"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// JobListResponse is the HTTP response for the job history.
type JobListResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

func newJobResponse(j *job.Job) JobResponse {
	resp := JobResponse{
		ID:         j.ID,
		State:      string(j.State),
		Progress:   j.Progress,
		Stage:      string(j.Stage),
		Error:      j.Error,
		Master:     j.MasterPath,
		Dub:        j.DubPath,
		MasterInfo: infoResponse(j.Master),
		DubInfo:    infoResponse(j.Dub),
		Segments:   make([]SegmentResponse, len(j.Segments)),
		OutputPath: j.OutputPath,
		OutputURL:  j.OutputURL,
		Logs:       j.Logs,
		CreatedAt:  j.CreatedAt,
	}
	for i, seg := range j.Segments {
		resp.Segments[i] = SegmentResponse{Source: string(seg.Source), In: seg.In, Out: seg.Out}
	}
	if resp.Logs == nil {
		resp.Logs = []string{}
	}
	if !j.StartedAt.IsZero() {
		resp.StartedAt = &j.StartedAt
	}
	if !j.CompletedAt.IsZero() {
		resp.CompletedAt = &j.CompletedAt
	}
	return resp
}

func infoResponse(info media.Info) *AnalyzeResponse {
	if info == (media.Info{}) {
		return nil
	}
	return &AnalyzeResponse{Duration: info.Duration, Channels: info.Channels, Codec: info.Codec}
}
