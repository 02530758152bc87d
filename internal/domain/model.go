package domain

import "time"

type PipelineStatus string

const (
	StatusCreated PipelineStatus = "created"
	StatusRunning PipelineStatus = "running"
	StatusSuccess PipelineStatus = "success"
	StatusFailed  PipelineStatus = "failed"
)

// MessageColor is the visual state of a status message.
type MessageColor string

const (
	ColorNone    MessageColor = ""
	ColorGood    MessageColor = "good"
	ColorDanger  MessageColor = "danger"
	ColorWarning MessageColor = "warning"
)

// PipelineEvent is a pipeline-level webhook delivery, already parsed.
type PipelineEvent struct {
	ID            int64
	ProjectID     int64
	ProjectName   string
	ProjectPath   string
	Ref           string
	Status        PipelineStatus
	FinishedAt    string
	CommitMessage string
	Builds        []BuildSummary
}

// Finished reports whether the upstream system marked the pipeline done.
func (e PipelineEvent) Finished() bool { return e.FinishedAt != "" }

// BuildSummary is the per-stage state embedded in a pipeline event.
type BuildSummary struct {
	Stage  string
	Status string
}

// BuildEvent is a build/job-level webhook delivery. PipelineID is the
// correlation key the upstream embeds in the job payload.
type BuildEvent struct {
	PipelineID int64
	Stage      string
	Status     string
}

// MessageHandle identifies a posted chat message so it can be updated
// or reacted to later. The zero value means "nothing posted".
type MessageHandle struct {
	Channel   string
	Timestamp string
}

func (h MessageHandle) Zero() bool { return h.Channel == "" && h.Timestamp == "" }

// StatusMessage is the content of a pipeline status message.
type StatusMessage struct {
	Title string
	Body  string
	Color MessageColor
}

// WatchedPipeline is one in-flight pipeline execution being tracked.
type WatchedPipeline struct {
	ID        int64
	ProjectID int64
	Ref       string
	Status    PipelineStatus
	// FinishedAt is the upstream completion timestamp, empty while running.
	FinishedAt string
	// CreatedAt is the local time the record was created. Used for
	// expiry, never updated.
	CreatedAt time.Time
	Handle    MessageHandle
	Title     string
	Body      string
}

// Environment is a deployment target.
type Environment struct {
	Name string
	URL  string
}

// PipelineFilter narrows a pipeline listing.
type PipelineFilter struct {
	Status  PipelineStatus
	OrderBy string
	Sort    string
}

// PipelineRef is a pipeline as returned by a listing call.
type PipelineRef struct {
	ID  int64
	Ref string
}

// Pipeline is a full pipeline record.
type Pipeline struct {
	ID       int64
	Ref      string
	Status   PipelineStatus
	Duration int64 // seconds
	WebURL   string
}

// Deployment is one entry of a project's deployment history.
type Deployment struct {
	Ref         string
	Tag         bool
	Environment Environment
}

// Project is a repository known to the CI system.
type Project struct {
	ID          int64
	Path        string
	MergeMethod string
}

// MergeRequest is a created merge request.
type MergeRequest struct {
	IID       int64
	ProjectID int64
}

// Ticket is an issue fetched from the ticket tracker.
type Ticket struct {
	Key     string
	Summary string
	Done    bool
}

// TicketProject is a project known to the ticket tracker.
type TicketProject struct {
	Key string
}

// WatchSnapshot is the serializable view of the in-flight watch list.
type WatchSnapshot struct {
	Pipelines []WatchedPipeline
	Retrieved int64
}
