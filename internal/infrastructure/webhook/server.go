package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jeremiehuchet/chatops-bot/internal/application"
	"github.com/jeremiehuchet/chatops-bot/internal/domain"
	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"
)

// Server is the webhook ingress: GitLab pipeline/build deliveries and
// Slack message events.
type Server struct {
	log     *zap.Logger
	engine  *application.Engine
	tickets *application.TicketLookup
	note    domain.Notifier
	secret  string

	mu      sync.RWMutex
	filter  *application.WatchFilter
	pattern *regexp.Regexp
}

func NewServer(log *zap.Logger, engine *application.Engine, filter *application.WatchFilter, secret string) *Server {
	return &Server{
		log:    log,
		engine: engine,
		filter: filter,
		secret: secret,
	}
}

// EnableTicketLookup wires the Slack events route to the ticket
// feature. pattern is the detection regexp built from the tracker's
// project keys.
func (s *Server) EnableTicketLookup(tickets *application.TicketLookup, note domain.Notifier, pattern *regexp.Regexp) {
	s.tickets = tickets
	s.note = note
	s.pattern = pattern
}

// UpdateFilter swaps the watch filter, used on config hot reload.
func (s *Server) UpdateFilter(f *application.WatchFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

func (s *Server) currentFilter() *application.WatchFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/hooks/gitlab/{channel}", s.handleGitlab)
	r.Post("/hooks/slack/events", s.handleSlackEvents)
	return r
}

// NewHTTPServer wraps the router with the usual timeouts.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

type gitlabPipelinePayload struct {
	ObjectKind       string `json:"object_kind"`
	ObjectAttributes struct {
		ID         int64  `json:"id"`
		Ref        string `json:"ref"`
		Status     string `json:"status"`
		FinishedAt string `json:"finished_at"`
	} `json:"object_attributes"`
	Project struct {
		ID                int64  `json:"id"`
		Name              string `json:"name"`
		PathWithNamespace string `json:"path_with_namespace"`
	} `json:"project"`
	Commit struct {
		Message string `json:"message"`
	} `json:"commit"`
	Builds []struct {
		Stage  string `json:"stage"`
		Status string `json:"status"`
	} `json:"builds"`
}

type gitlabBuildPayload struct {
	BuildID     int64  `json:"build_id"`
	BuildStage  string `json:"build_stage"`
	BuildStatus string `json:"build_status"`
	// The job payload's commit object carries the pipeline id, which
	// is the correlation key.
	Commit struct {
		ID int64 `json:"id"`
	} `json:"commit"`
}

func (s *Server) handleGitlab(w http.ResponseWriter, r *http.Request) {
	if s.secret != "" && r.Header.Get("X-Gitlab-Token") != s.secret {
		http.Error(w, "FORBIDDEN", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "BAD REQUEST", http.StatusBadRequest)
		return
	}

	var kind struct {
		ObjectKind string `json:"object_kind"`
	}
	if err := json.Unmarshal(body, &kind); err != nil {
		http.Error(w, "BAD REQUEST", http.StatusBadRequest)
		return
	}

	switch kind.ObjectKind {
	case "pipeline":
		var p gitlabPipelinePayload
		if err := json.Unmarshal(body, &p); err != nil {
			http.Error(w, "BAD REQUEST", http.StatusBadRequest)
			return
		}

		if !s.currentFilter().Accepts(p.Project.PathWithNamespace, p.ObjectAttributes.Ref) {
			s.log.Info("ignoring pipeline event",
				zap.Int64("pipeline", p.ObjectAttributes.ID),
				zap.String("project", p.Project.PathWithNamespace),
				zap.String("ref", p.ObjectAttributes.Ref))
			_, _ = w.Write([]byte("OK"))
			return
		}

		ev := domain.PipelineEvent{
			ID:            p.ObjectAttributes.ID,
			ProjectID:     p.Project.ID,
			ProjectName:   p.Project.Name,
			ProjectPath:   p.Project.PathWithNamespace,
			Ref:           p.ObjectAttributes.Ref,
			Status:        domain.PipelineStatus(p.ObjectAttributes.Status),
			FinishedAt:    p.ObjectAttributes.FinishedAt,
			CommitMessage: p.Commit.Message,
		}
		for _, b := range p.Builds {
			ev.Builds = append(ev.Builds, domain.BuildSummary{Stage: b.Stage, Status: b.Status})
		}

		s.engine.HandlePipeline(r.Context(), chi.URLParam(r, "channel"), ev)
		_, _ = w.Write([]byte("OK"))

	case "build":
		var b gitlabBuildPayload
		if err := json.Unmarshal(body, &b); err != nil {
			http.Error(w, "BAD REQUEST", http.StatusBadRequest)
			return
		}

		s.engine.HandleBuild(r.Context(), domain.BuildEvent{
			PipelineID: b.Commit.ID,
			Stage:      b.BuildStage,
			Status:     b.BuildStatus,
		})
		_, _ = w.Write([]byte("OK"))

	default:
		http.Error(w, "BAD REQUEST", http.StatusBadRequest)
	}
}

func (s *Server) handleSlackEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "BAD REQUEST", http.StatusBadRequest)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		http.Error(w, "BAD REQUEST", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var ch slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &ch); err != nil {
			http.Error(w, "BAD REQUEST", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(ch.Challenge))

	case slackevents.CallbackEvent:
		w.WriteHeader(http.StatusOK)
		if msg, ok := event.InnerEvent.Data.(*slackevents.MessageEvent); ok {
			s.handleTicketMentions(r, msg)
		}

	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) handleTicketMentions(r *http.Request, msg *slackevents.MessageEvent) {
	if s.tickets == nil || s.pattern == nil {
		return
	}
	if msg.BotID != "" || s.tickets.ShouldIgnore(msg.User) {
		s.log.Info("ignoring message", zap.String("user", msg.User))
		return
	}

	matches := s.pattern.FindAllString(msg.Text, -1)
	if len(matches) == 0 {
		return
	}
	s.log.Debug("handling ticket mentions", zap.Strings("tickets", matches))

	seen := make(map[string]struct{}, len(matches))
	for _, key := range matches {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		ticket, err := s.tickets.Lookup(r.Context(), key)
		if err != nil {
			s.log.Warn("ticket lookup failed", zap.String("ticket", key), zap.Error(err))
			_ = s.note.PostText(r.Context(), msg.Channel, ":boom: can't look up "+key)
			continue
		}
		if err := s.note.PostText(r.Context(), msg.Channel, s.tickets.FormatReply(ticket)); err != nil {
			s.log.Warn("ticket reply failed", zap.String("ticket", key), zap.Error(err))
		}
	}
}
