package domain

import "context"

type GitlabClient interface {
	ListPipelines(ctx context.Context, projectID int64, f PipelineFilter) ([]PipelineRef, error)
	GetPipeline(ctx context.Context, projectID, pipelineID int64) (Pipeline, error)
	ListDeployments(ctx context.Context, projectID int64) ([]Deployment, error)
}

type ReleaseClient interface {
	GetProject(ctx context.Context, path string) (Project, error)
	SetMergeMethod(ctx context.Context, projectID int64, method string) error
	CreateMergeRequest(ctx context.Context, projectID int64, source, target, title string) (MergeRequest, error)
	AcceptMergeRequest(ctx context.Context, projectID, iid int64) error
	CreateTag(ctx context.Context, projectID int64, tag, ref, message string) error
}

// Notifier posts and maintains status messages in a chat channel.
// AddReaction must be idempotent: adding a reaction that is already
// present is not an error.
type Notifier interface {
	Post(ctx context.Context, channel string, m StatusMessage) (MessageHandle, error)
	Update(ctx context.Context, h MessageHandle, m StatusMessage) (MessageHandle, error)
	AddReaction(ctx context.Context, h MessageHandle, name string) error
	PostText(ctx context.Context, channel, text string) error
}

type TicketClient interface {
	ListProjects(ctx context.Context) ([]TicketProject, error)
	GetIssue(ctx context.Context, key string) (Ticket, error)
	BrowseURL(key string) string
}

type WatchCache interface {
	Write(ctx context.Context, s WatchSnapshot) error
}
