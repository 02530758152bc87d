package application

import (
	"context"

	"github.com/jeremiehuchet/chatops-bot/internal/domain"
	"go.uber.org/zap"
)

// UnknownEnvironment is the sentinel returned when deployment history
// gives no usable hint.
var UnknownEnvironment = domain.Environment{Name: "unknown env", URL: "http://unknown"}

// Estimator derives notification hints from a project's history:
// an ETA from the last successful pipeline on the same ref, and a
// deployment target guess. Lookups never fail the caller; they degrade
// to "absent" / the unknown sentinel.
type Estimator struct {
	log *zap.Logger
	gl  domain.GitlabClient
}

func NewEstimator(log *zap.Logger, gl domain.GitlabClient) *Estimator {
	return &Estimator{log: log, gl: gl}
}

// EstimateDuration returns the duration of the most recent successful
// pipeline on ref, truncated to minutes plus one minute of buffer.
// A ref with no prior successful run is a normal outcome, not an error.
func (e *Estimator) EstimateDuration(ctx context.Context, projectID int64, ref string) (int, bool) {
	pipelines, err := e.gl.ListPipelines(ctx, projectID, domain.PipelineFilter{
		Status:  domain.StatusSuccess,
		OrderBy: "id",
		Sort:    "desc",
	})
	if err != nil {
		e.log.Warn("unable to retrieve last pipeline execution time",
			zap.Int64("project", projectID), zap.Error(err))
		return 0, false
	}

	for _, pr := range pipelines {
		if pr.Ref != ref {
			continue
		}
		p, err := e.gl.GetPipeline(ctx, projectID, pr.ID)
		if err != nil {
			e.log.Warn("unable to retrieve last pipeline execution time",
				zap.Int64("project", projectID), zap.Int64("pipeline", pr.ID), zap.Error(err))
			return 0, false
		}
		return int(p.Duration/60) + 1, true
	}

	e.log.Info("no prior successful run for ref",
		zap.Int64("project", projectID), zap.String("ref", ref))
	return 0, false
}

// GuessEnvironment prefers the most recent deployment on the same ref,
// then the most recent tagged deployment, then the unknown sentinel.
func (e *Estimator) GuessEnvironment(ctx context.Context, projectID int64, ref string) domain.Environment {
	deployments, err := e.gl.ListDeployments(ctx, projectID)
	if err != nil {
		e.log.Warn("unable to retrieve deployment history",
			zap.Int64("project", projectID), zap.Error(err))
		return UnknownEnvironment
	}

	for _, d := range deployments {
		if d.Ref == ref {
			return d.Environment
		}
	}
	for _, d := range deployments {
		if d.Tag {
			return d.Environment
		}
	}
	return UnknownEnvironment
}
