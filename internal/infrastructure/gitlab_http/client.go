package gitlab_http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jeremiehuchet/chatops-bot/internal/domain"
)

type Client struct {
	baseUrl string
	token   string
	hc      *http.Client
}

func New(baseUrl string, token string, timeout time.Duration) *Client {
	tr := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseUrl: trimSlash(baseUrl),
		token:   token,
		hc:      &http.Client{Transport: tr, Timeout: timeout},
	}
}

type pipelineDTO struct {
	ID       int64  `json:"id"`
	Ref      string `json:"ref"`
	Status   string `json:"status"`
	Duration int64  `json:"duration"`
	WebURL   string `json:"web_url"`
}

type deploymentDTO struct {
	Ref         string `json:"ref"`
	Tag         bool   `json:"tag"`
	Environment struct {
		Name        string `json:"name"`
		ExternalURL string `json:"external_url"`
	} `json:"environment"`
}

type projectDTO struct {
	ID                int64  `json:"id"`
	PathWithNamespace string `json:"path_with_namespace"`
	MergeMethod       string `json:"merge_method"`
}

type mergeRequestDTO struct {
	IID       int64 `json:"iid"`
	ProjectID int64 `json:"project_id"`
}

func (c *Client) ListPipelines(ctx context.Context, projectID int64, f domain.PipelineFilter) ([]domain.PipelineRef, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.OrderBy != "" {
		q.Set("order_by", f.OrderBy)
	}
	if f.Sort != "" {
		q.Set("sort", f.Sort)
	}

	var list []pipelineDTO
	path := fmt.Sprintf("/projects/%d/pipelines?%s", projectID, q.Encode())
	if err := c.getJSON(ctx, path, &list); err != nil {
		return nil, err
	}

	out := make([]domain.PipelineRef, 0, len(list))
	for _, p := range list {
		out = append(out, domain.PipelineRef{ID: p.ID, Ref: p.Ref})
	}
	return out, nil
}

func (c *Client) GetPipeline(ctx context.Context, projectID, pipelineID int64) (domain.Pipeline, error) {
	var d pipelineDTO
	path := fmt.Sprintf("/projects/%d/pipelines/%d", projectID, pipelineID)
	if err := c.getJSON(ctx, path, &d); err != nil {
		return domain.Pipeline{}, err
	}

	return domain.Pipeline{
		ID:       d.ID,
		Ref:      d.Ref,
		Status:   domain.PipelineStatus(d.Status),
		Duration: d.Duration,
		WebURL:   d.WebURL,
	}, nil
}

func (c *Client) ListDeployments(ctx context.Context, projectID int64) ([]domain.Deployment, error) {
	var list []deploymentDTO
	path := fmt.Sprintf("/projects/%d/deployments?order_by=id&sort=desc", projectID)
	if err := c.getJSON(ctx, path, &list); err != nil {
		return nil, err
	}

	out := make([]domain.Deployment, 0, len(list))
	for _, d := range list {
		out = append(out, domain.Deployment{
			Ref: d.Ref,
			Tag: d.Tag,
			Environment: domain.Environment{
				Name: d.Environment.Name,
				URL:  d.Environment.ExternalURL,
			},
		})
	}
	return out, nil
}

func (c *Client) GetProject(ctx context.Context, path string) (domain.Project, error) {
	var d projectDTO
	if err := c.getJSON(ctx, "/projects/"+url.PathEscape(path), &d); err != nil {
		return domain.Project{}, err
	}
	return domain.Project{ID: d.ID, Path: d.PathWithNamespace, MergeMethod: d.MergeMethod}, nil
}

func (c *Client) SetMergeMethod(ctx context.Context, projectID int64, method string) error {
	path := fmt.Sprintf("/projects/%d", projectID)
	body := map[string]string{"merge_method": method}
	return c.write(ctx, http.MethodPut, path, body, nil)
}

func (c *Client) CreateMergeRequest(ctx context.Context, projectID int64, source, target, title string) (domain.MergeRequest, error) {
	path := fmt.Sprintf("/projects/%d/merge_requests", projectID)
	body := map[string]string{
		"source_branch": source,
		"target_branch": target,
		"title":         title,
	}

	var d mergeRequestDTO
	if err := c.write(ctx, http.MethodPost, path, body, &d); err != nil {
		return domain.MergeRequest{}, err
	}
	return domain.MergeRequest{IID: d.IID, ProjectID: d.ProjectID}, nil
}

func (c *Client) AcceptMergeRequest(ctx context.Context, projectID, iid int64) error {
	path := fmt.Sprintf("/projects/%d/merge_requests/%d/merge", projectID, iid)
	return c.write(ctx, http.MethodPut, path, nil, nil)
}

func (c *Client) CreateTag(ctx context.Context, projectID int64, tag, ref, message string) error {
	path := fmt.Sprintf("/projects/%d/repository/tags", projectID)
	body := map[string]string{
		"tag_name": tag,
		"ref":      ref,
		"message":  message,
	}
	return c.write(ctx, http.MethodPost, path, body, nil)
}

// getJSON runs an authenticated GET with retry on 429 and 5xx.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	op := func() error {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.baseUrl+"/api/v4"+path, nil)
		req.Header.Set("PRIVATE-TOKEN", c.token)

		resp, err := c.hc.Do(req)
		if err != nil {
			return err
		}

		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode == http.StatusTooManyRequests {
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if sec, _ := strconv.Atoi(ra); sec > 0 {
					select {
					case <-time.After(time.Duration(sec) * time.Second):
					case <-ctx.Done():
						return ctx.Err()
					}
					return fmt.Errorf("retry after due to 429")
				}
			}

			return fmt.Errorf("gitlab 429")
		}

		if resp.StatusCode >= 500 {
			return fmt.Errorf("gitlab %s", resp.Status)
		}

		if resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("gitlab %s", resp.Status))
		}

		return json.NewDecoder(resp.Body).Decode(out)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 300 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 5 * time.Second

	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

// write runs a single-shot mutating request. No retry: merge and tag
// creation are not idempotent.
func (c *Client) write(ctx context.Context, method, path string, body any, out any) error {
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseUrl+"/api/v4"+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("PRIVATE-TOKEN", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("gitlab %s %s: %s", method, path, resp.Status)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
