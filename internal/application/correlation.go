package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jeremiehuchet/chatops-bot/internal/domain"
	"go.uber.org/zap"
)

const completionReaction = "heavy_check_mark"

const lockStripes = 32

// Engine correlates pipeline-status and build-stage events into one
// status message per pipeline execution. Events for the same pipeline
// id are serialized on a mutex stripe; different ids proceed in
// parallel. The registry is the only shared mutable state.
type Engine struct {
	log       *zap.Logger
	reg       *Registry
	est       *Estimator
	note      domain.Notifier
	cache     domain.WatchCache
	reactions map[string]string
	maxAge    time.Duration

	locks [lockStripes]sync.Mutex
	now   func() time.Time
}

func NewEngine(
	log *zap.Logger,
	reg *Registry,
	est *Estimator,
	note domain.Notifier,
	cache domain.WatchCache,
	stageReactions map[string]string,
	maxAge time.Duration,
) *Engine {
	return &Engine{
		log:       log,
		reg:       reg,
		est:       est,
		note:      note,
		cache:     cache,
		reactions: stageReactions,
		maxAge:    maxAge,
		now:       time.Now,
	}
}

func (e *Engine) lockFor(id int64) *sync.Mutex {
	return &e.locks[uint64(id)%lockStripes]
}

// HandlePipeline processes one pipeline-status event for the given
// notification channel, then sweeps expired records.
func (e *Engine) HandlePipeline(ctx context.Context, channel string, ev domain.PipelineEvent) {
	e.log.Debug("handle pipeline event",
		zap.Int64("pipeline", ev.ID), zap.String("status", string(ev.Status)))

	mu := e.lockFor(ev.ID)
	mu.Lock()
	e.handlePipelineLocked(ctx, channel, ev)
	mu.Unlock()

	e.SweepNow(ctx)
}

func (e *Engine) handlePipelineLocked(ctx context.Context, channel string, ev domain.PipelineEvent) {
	p, tracked := e.reg.Get(ev.ID)
	if !tracked {
		if ev.Finished() {
			// Terminal event for a pipeline we no longer (or never)
			// track: a redelivered terminal webhook after eviction.
			// Nothing to update.
			e.log.Debug("ignore terminal event for untracked pipeline", zap.Int64("pipeline", ev.ID))
			return
		}
		p = e.watch(ctx, channel, ev)
	}

	p.Status = ev.Status
	p.FinishedAt = ev.FinishedAt
	e.reg.Put(p)

	if !ev.Finished() {
		if tracked {
			// Progress update on an already announced pipeline:
			// refresh the message, never post a second one.
			e.update(ctx, p, domain.ColorNone)
		}
		return
	}

	switch ev.Status {
	case domain.StatusSuccess:
		e.update(ctx, p, domain.ColorGood)
		e.react(ctx, p.Handle, completionReaction)
	case domain.StatusFailed:
		e.update(ctx, p, domain.ColorDanger)
	default:
		e.update(ctx, p, domain.ColorWarning)
	}

	// Terminal transition: last mutation for this id.
	e.reg.Delete(ev.ID)
}

// watch creates the registry record for a first-sighted pipeline,
// posts the initial status message and replays the build summaries
// embedded in the event. The record is in the registry before any
// replayed build event is processed.
func (e *Engine) watch(ctx context.Context, channel string, ev domain.PipelineEvent) domain.WatchedPipeline {
	p := domain.WatchedPipeline{
		ID:        ev.ID,
		ProjectID: ev.ProjectID,
		Ref:       ev.Ref,
		Status:    ev.Status,
		CreatedAt: e.now(),
	}
	e.reg.Put(p)

	var (
		wg      sync.WaitGroup
		minutes int
		hasETA  bool
		env     domain.Environment
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		minutes, hasETA = e.est.EstimateDuration(ctx, ev.ProjectID, ev.Ref)
	}()
	go func() {
		defer wg.Done()
		env = e.est.GuessEnvironment(ctx, ev.ProjectID, ev.Ref)
	}()
	wg.Wait()

	eta := "an unknown duration"
	if hasETA {
		eta = fmt.Sprintf("%d minutes", minutes)
	}
	p.Title = fmt.Sprintf(":rocket: deploying %s to %s, ready in %s", ev.ProjectName, env.Name, eta)
	p.Body = ev.CommitMessage

	h, err := e.note.Post(ctx, channel, domain.StatusMessage{Title: p.Title, Body: p.Body})
	if err != nil {
		e.log.Warn("post status message failed", zap.Int64("pipeline", ev.ID), zap.Error(err))
	} else {
		p.Handle = h
	}
	e.reg.Put(p)

	// Stages may finish before the pipeline-level webhook arrives;
	// the event repeats their stage/status pairs, so replay them.
	for _, b := range ev.Builds {
		e.handleBuildLocked(ctx, domain.BuildEvent{
			PipelineID: ev.ID,
			Stage:      b.Stage,
			Status:     b.Status,
		})
	}

	return p
}

// HandleBuild processes one build-stage event. Events whose correlation
// key is unknown are dropped: either the pipeline was never accepted,
// not yet seen, or already finished and evicted. The umbrella pipeline
// event replays the same information, so loss is acceptable.
func (e *Engine) HandleBuild(ctx context.Context, ev domain.BuildEvent) {
	mu := e.lockFor(ev.PipelineID)
	mu.Lock()
	defer mu.Unlock()
	e.handleBuildLocked(ctx, ev)
}

func (e *Engine) handleBuildLocked(ctx context.Context, ev domain.BuildEvent) {
	p, ok := e.reg.Get(ev.PipelineID)
	if !ok {
		e.log.Debug("ignore build event for untracked pipeline",
			zap.Int64("pipeline", ev.PipelineID), zap.String("stage", ev.Stage))
		return
	}

	e.log.Debug("handle build event",
		zap.Int64("pipeline", ev.PipelineID),
		zap.String("stage", ev.Stage), zap.String("status", ev.Status))

	if ev.Status == string(domain.StatusCreated) {
		return
	}
	name, ok := e.reactions[ev.Stage]
	if !ok {
		return
	}
	e.react(ctx, p.Handle, name)
}

// SweepNow evicts expired records and refreshes the snapshot cache.
func (e *Engine) SweepNow(ctx context.Context) {
	removed := e.reg.Sweep(e.now(), e.maxAge)
	if removed > 0 {
		e.log.Info("evicted expired watch list entries", zap.Int("count", removed))
	}
	e.log.Info("watch list size", zap.Int("size", e.reg.Len()))

	if e.cache != nil {
		_ = e.cache.Write(ctx, domain.WatchSnapshot{
			Pipelines: e.reg.Snapshot(),
			Retrieved: e.now().Unix(),
		})
	}
}

func (e *Engine) update(ctx context.Context, p domain.WatchedPipeline, color domain.MessageColor) {
	if p.Handle.Zero() {
		e.log.Warn("no status message to update", zap.Int64("pipeline", p.ID))
		return
	}
	m := domain.StatusMessage{Title: p.Title, Body: p.Body, Color: color}
	if _, err := e.note.Update(ctx, p.Handle, m); err != nil {
		e.log.Warn("update status message failed", zap.Int64("pipeline", p.ID), zap.Error(err))
	}
}

func (e *Engine) react(ctx context.Context, h domain.MessageHandle, name string) {
	if h.Zero() {
		e.log.Warn("can't add reaction when no message has been posted", zap.String("reaction", name))
		return
	}
	if err := e.note.AddReaction(ctx, h, name); err != nil {
		e.log.Warn("add reaction failed", zap.String("reaction", name), zap.Error(err))
	}
}
