package domain

import (
	"context"
	"strconv"
	"sync"
)

type MockGitlab struct {
	Pipelines   []PipelineRef
	Details     map[int64]Pipeline
	Deployments []Deployment

	ListErr   error
	GetErr    error
	DeployErr error

	ListCalls   int
	GetCalls    int
	DeployCalls int
}

func (m *MockGitlab) ListPipelines(ctx context.Context, projectID int64, f PipelineFilter) ([]PipelineRef, error) {
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Pipelines, nil
}

func (m *MockGitlab) GetPipeline(ctx context.Context, projectID, pipelineID int64) (Pipeline, error) {
	m.GetCalls++
	if m.GetErr != nil {
		return Pipeline{}, m.GetErr
	}
	return m.Details[pipelineID], nil
}

func (m *MockGitlab) ListDeployments(ctx context.Context, projectID int64) ([]Deployment, error) {
	m.DeployCalls++
	if m.DeployErr != nil {
		return nil, m.DeployErr
	}
	return m.Deployments, nil
}

type PostedMessage struct {
	Channel string
	Message StatusMessage
}

type UpdatedMessage struct {
	Handle  MessageHandle
	Message StatusMessage
}

type MockNotifier struct {
	mu        sync.Mutex
	Posts     []PostedMessage
	Updates   []UpdatedMessage
	Reactions []string
	Texts     []string

	PostErr   error
	UpdateErr error
	ReactErr  error
}

func (n *MockNotifier) Post(ctx context.Context, channel string, m StatusMessage) (MessageHandle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.PostErr != nil {
		return MessageHandle{}, n.PostErr
	}
	n.Posts = append(n.Posts, PostedMessage{Channel: channel, Message: m})
	return MessageHandle{Channel: channel, Timestamp: strconv.Itoa(len(n.Posts))}, nil
}

func (n *MockNotifier) Update(ctx context.Context, h MessageHandle, m StatusMessage) (MessageHandle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.UpdateErr != nil {
		return h, n.UpdateErr
	}
	n.Updates = append(n.Updates, UpdatedMessage{Handle: h, Message: m})
	return h, nil
}

func (n *MockNotifier) AddReaction(ctx context.Context, h MessageHandle, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ReactErr != nil {
		return n.ReactErr
	}
	n.Reactions = append(n.Reactions, name)
	return nil
}

func (n *MockNotifier) PostText(ctx context.Context, channel, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Texts = append(n.Texts, channel+"|"+text)
	return nil
}

type MockTicketClient struct {
	Projects []TicketProject
	Issues   map[string]Ticket

	ProjectsErr error
	IssueErr    error

	IssueCalls int
}

func (c *MockTicketClient) ListProjects(ctx context.Context) ([]TicketProject, error) {
	if c.ProjectsErr != nil {
		return nil, c.ProjectsErr
	}
	return c.Projects, nil
}

func (c *MockTicketClient) GetIssue(ctx context.Context, key string) (Ticket, error) {
	c.IssueCalls++
	if c.IssueErr != nil {
		return Ticket{}, c.IssueErr
	}
	return c.Issues[key], nil
}

func (c *MockTicketClient) BrowseURL(key string) string {
	return "https://jira.example.com/browse/" + key
}

type MockRelease struct {
	Project Project

	GetErr    error
	SetErr    error
	CreateErr error
	AcceptErr error
	TagErr    error

	MergeMethods []string
	MergeTitles  []string
	Accepted     []int64
	Tags         []string
}

func (m *MockRelease) GetProject(ctx context.Context, path string) (Project, error) {
	if m.GetErr != nil {
		return Project{}, m.GetErr
	}
	return m.Project, nil
}

func (m *MockRelease) SetMergeMethod(ctx context.Context, projectID int64, method string) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.MergeMethods = append(m.MergeMethods, method)
	return nil
}

func (m *MockRelease) CreateMergeRequest(ctx context.Context, projectID int64, source, target, title string) (MergeRequest, error) {
	if m.CreateErr != nil {
		return MergeRequest{}, m.CreateErr
	}
	m.MergeTitles = append(m.MergeTitles, source+"→"+target+": "+title)
	return MergeRequest{IID: 1, ProjectID: projectID}, nil
}

func (m *MockRelease) AcceptMergeRequest(ctx context.Context, projectID, iid int64) error {
	if m.AcceptErr != nil {
		return m.AcceptErr
	}
	m.Accepted = append(m.Accepted, iid)
	return nil
}

func (m *MockRelease) CreateTag(ctx context.Context, projectID int64, tag, ref, message string) error {
	if m.TagErr != nil {
		return m.TagErr
	}
	m.Tags = append(m.Tags, tag+"@"+ref)
	return nil
}

type MockCache struct {
	Snapshots []WatchSnapshot
	Err       error
}

func (c *MockCache) Write(ctx context.Context, s WatchSnapshot) error {
	if c.Err != nil {
		return c.Err
	}
	c.Snapshots = append(c.Snapshots, s)
	return nil
}
