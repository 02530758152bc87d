package gitlab_http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jeremiehuchet/chatops-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPipelinesPassesFilterAndToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/42/pipelines", r.URL.Path)
		assert.Equal(t, "success", r.URL.Query().Get("status"))
		assert.Equal(t, "id", r.URL.Query().Get("order_by"))
		assert.Equal(t, "desc", r.URL.Query().Get("sort"))
		assert.Equal(t, "tok", r.Header.Get("PRIVATE-TOKEN"))
		_, _ = w.Write([]byte(`[{"id": 7, "ref": "main"}, {"id": 6, "ref": "develop"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 2*time.Second)
	list, err := c.ListPipelines(context.Background(), 42, domain.PipelineFilter{
		Status: domain.StatusSuccess, OrderBy: "id", Sort: "desc",
	})

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(7), list[0].ID)
	assert.Equal(t, "main", list[0].Ref)
}

func TestGetPipelineReturnsDuration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/42/pipelines/7", r.URL.Path)
		_, _ = w.Write([]byte(`{"id": 7, "ref": "main", "status": "success", "duration": 605}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 2*time.Second)
	p, err := c.GetPipeline(context.Background(), 42, 7)

	require.NoError(t, err)
	assert.Equal(t, int64(605), p.Duration)
	assert.Equal(t, domain.StatusSuccess, p.Status)
}

func TestListDeploymentsMapsEnvironment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/42/deployments", r.URL.Path)
		_, _ = w.Write([]byte(`[
		  {"ref": "main", "tag": false, "environment": {"name": "staging", "external_url": "https://staging"}},
		  {"ref": "v1.2", "tag": true, "environment": {"name": "production", "external_url": "https://prod"}}
		]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 2*time.Second)
	ds, err := c.ListDeployments(context.Background(), 42)

	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, "staging", ds[0].Environment.Name)
	assert.True(t, ds[1].Tag)
}

func TestGetIsNotRetriedOnClientError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 2*time.Second)
	_, err := c.GetPipeline(context.Background(), 42, 7)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestGetRetriesOnServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id": 7, "duration": 60}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 2*time.Second)
	p, err := c.GetPipeline(context.Background(), 42, 7)

	require.NoError(t, err)
	assert.Equal(t, int64(60), p.Duration)
	assert.GreaterOrEqual(t, calls, 2)
}

func TestCreateMergeRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v4/projects/42/merge_requests", r.URL.Path)
		_, _ = w.Write([]byte(`{"iid": 5, "project_id": 42}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 2*time.Second)
	mr, err := c.CreateMergeRequest(context.Background(), 42, "develop", "master", "Release 1.0")

	require.NoError(t, err)
	assert.Equal(t, int64(5), mr.IID)
	assert.Equal(t, int64(42), mr.ProjectID)
}
