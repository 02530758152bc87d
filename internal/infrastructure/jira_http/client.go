package jira_http

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jeremiehuchet/chatops-bot/internal/domain"
)

// Client is a minimal Jira REST adapter. No retry: issue lookups sit
// behind a TTL cache and degrade to a missing reply.
type Client struct {
	baseUrl  string
	username string
	password string
	hc       *http.Client
}

func New(baseUrl, username, password string, timeout time.Duration) *Client {
	tr := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseUrl:  trimSlash(baseUrl),
		username: username,
		password: password,
		hc:       &http.Client{Transport: tr, Timeout: timeout},
	}
}

type projectDTO struct {
	Key string `json:"key"`
}

type issueDTO struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			StatusCategory struct {
				Key string `json:"key"`
			} `json:"statusCategory"`
		} `json:"status"`
	} `json:"fields"`
}

func (c *Client) ListProjects(ctx context.Context) ([]domain.TicketProject, error) {
	var list []projectDTO
	if err := c.getJSON(ctx, "/rest/api/2/project", &list); err != nil {
		return nil, err
	}

	out := make([]domain.TicketProject, 0, len(list))
	for _, p := range list {
		out = append(out, domain.TicketProject{Key: p.Key})
	}
	return out, nil
}

func (c *Client) GetIssue(ctx context.Context, key string) (domain.Ticket, error) {
	var d issueDTO
	if err := c.getJSON(ctx, "/rest/api/2/issue/"+key, &d); err != nil {
		return domain.Ticket{}, err
	}

	return domain.Ticket{
		Key:     d.Key,
		Summary: d.Fields.Summary,
		Done:    d.Fields.Status.StatusCategory.Key == "done",
	}, nil
}

func (c *Client) BrowseURL(key string) string {
	return c.baseUrl + "/browse/" + key
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseUrl+path, nil)
	if err != nil {
		return err
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("jira %s: %s", path, resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
