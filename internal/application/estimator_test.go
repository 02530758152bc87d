package application

import (
	"context"
	"errors"
	"testing"

	"github.com/jeremiehuchet/chatops-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEstimateDurationTruncatesAndAddsBuffer(t *testing.T) {
	gl := &domain.MockGitlab{
		Pipelines: []domain.PipelineRef{
			{ID: 9, Ref: "develop"},
			{ID: 7, Ref: "main"},
		},
		Details: map[int64]domain.Pipeline{7: {ID: 7, Duration: 119}},
	}
	est := NewEstimator(zap.NewNop(), gl)

	minutes, ok := est.EstimateDuration(context.Background(), 42, "main")

	require.True(t, ok)
	assert.Equal(t, 2, minutes) // trunc(119/60)+1
	assert.Equal(t, 1, gl.GetCalls)
}

func TestEstimateDurationNoPriorRunIsAbsentNotError(t *testing.T) {
	gl := &domain.MockGitlab{
		Pipelines: []domain.PipelineRef{{ID: 9, Ref: "develop"}},
	}
	est := NewEstimator(zap.NewNop(), gl)

	_, ok := est.EstimateDuration(context.Background(), 42, "main")

	assert.False(t, ok)
	assert.Equal(t, 0, gl.GetCalls)
}

func TestEstimateDurationDegradesOnListError(t *testing.T) {
	gl := &domain.MockGitlab{ListErr: errors.New("gitlab 503")}
	est := NewEstimator(zap.NewNop(), gl)

	_, ok := est.EstimateDuration(context.Background(), 42, "main")
	assert.False(t, ok)
}

func TestEstimateDurationDegradesOnDetailError(t *testing.T) {
	gl := &domain.MockGitlab{
		Pipelines: []domain.PipelineRef{{ID: 7, Ref: "main"}},
		GetErr:    errors.New("gitlab 500"),
	}
	est := NewEstimator(zap.NewNop(), gl)

	_, ok := est.EstimateDuration(context.Background(), 42, "main")
	assert.False(t, ok)
}

func TestGuessEnvironmentPrefersSameRef(t *testing.T) {
	gl := &domain.MockGitlab{
		Deployments: []domain.Deployment{
			{Ref: "v1.2", Tag: true, Environment: domain.Environment{Name: "production"}},
			{Ref: "main", Environment: domain.Environment{Name: "staging"}},
		},
	}
	est := NewEstimator(zap.NewNop(), gl)

	env := est.GuessEnvironment(context.Background(), 42, "main")
	assert.Equal(t, "staging", env.Name)
}

func TestGuessEnvironmentFallsBackToTaggedDeployment(t *testing.T) {
	gl := &domain.MockGitlab{
		Deployments: []domain.Deployment{
			{Ref: "other", Environment: domain.Environment{Name: "review"}},
			{Ref: "v1.2", Tag: true, Environment: domain.Environment{Name: "production"}},
		},
	}
	est := NewEstimator(zap.NewNop(), gl)

	env := est.GuessEnvironment(context.Background(), 42, "main")
	assert.Equal(t, "production", env.Name)
}

func TestGuessEnvironmentSentinelWhenNothingMatches(t *testing.T) {
	gl := &domain.MockGitlab{}
	est := NewEstimator(zap.NewNop(), gl)

	env := est.GuessEnvironment(context.Background(), 42, "main")
	assert.Equal(t, UnknownEnvironment, env)
	assert.Equal(t, "unknown env", env.Name)
	assert.Equal(t, "http://unknown", env.URL)
}

func TestGuessEnvironmentSentinelOnError(t *testing.T) {
	gl := &domain.MockGitlab{DeployErr: errors.New("gitlab 502")}
	est := NewEstimator(zap.NewNop(), gl)

	env := est.GuessEnvironment(context.Background(), 42, "main")
	assert.Equal(t, UnknownEnvironment, env)
}
