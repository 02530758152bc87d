package application

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jeremiehuchet/chatops-bot/internal/domain"
	"go.uber.org/zap"
)

// TicketLookup resolves ticket references mentioned in chat messages,
// caching fetched issues for a short TTL. The cache is append-only and
// expired FIFO: entries are inserted in fetch order, so the head is
// always the oldest.
type TicketLookup struct {
	log         *zap.Logger
	jira        domain.TicketClient
	ttl         time.Duration
	ignoreUsers *regexp.Regexp

	mu    sync.Mutex
	cache []cachedTicket

	now func() time.Time
}

type cachedTicket struct {
	expires time.Time
	ticket  domain.Ticket
}

func NewTicketLookup(log *zap.Logger, jira domain.TicketClient, ttl time.Duration, ignoreUsers string) (*TicketLookup, error) {
	if ignoreUsers == "" {
		ignoreUsers = "jira|github|gitlab"
	}
	re, err := regexp.Compile("(?i)" + ignoreUsers)
	if err != nil {
		return nil, fmt.Errorf("ignore users pattern: %w", err)
	}
	return &TicketLookup{
		log:         log,
		jira:        jira,
		ttl:         ttl,
		ignoreUsers: re,
		now:         time.Now,
	}, nil
}

// Pattern builds the ticket detection regexp from the tracker's
// project keys: \b(KEY1|KEY2)-?(\d+)\b, case-insensitive.
func (t *TicketLookup) Pattern(ctx context.Context) (*regexp.Regexp, error) {
	projects, err := t.jira.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ticket projects: %w", err)
	}

	keys := make([]string, 0, len(projects))
	for _, p := range projects {
		if p.Key != "" {
			keys = append(keys, regexp.QuoteMeta(p.Key))
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no ticket projects")
	}

	return regexp.Compile(`(?i)\b(` + strings.Join(keys, "|") + `)-?(\d+)\b`)
}

// ShouldIgnore reports whether messages from the given user name are
// skipped (bot accounts echoing ticket ids would loop otherwise).
func (t *TicketLookup) ShouldIgnore(user string) bool {
	return user == "" || t.ignoreUsers.MatchString(user)
}

// Lookup returns the ticket for key, from cache when fresh.
func (t *TicketLookup) Lookup(ctx context.Context, key string) (domain.Ticket, error) {
	if ticket, ok := t.cached(key); ok {
		return ticket, nil
	}

	ticket, err := t.jira.GetIssue(ctx, key)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("fetch issue %s: %w", key, err)
	}

	t.mu.Lock()
	t.cache = append(t.cache, cachedTicket{expires: t.now().Add(t.ttl), ticket: ticket})
	t.mu.Unlock()

	return ticket, nil
}

// FormatReply renders the chat reply for a ticket: a browse link plus
// the summary, struck through when the ticket is done.
func (t *TicketLookup) FormatReply(ticket domain.Ticket) string {
	link := fmt.Sprintf("<%s|%s>", t.jira.BrowseURL(ticket.Key), ticket.Key)
	if ticket.Done {
		link = "~" + link + "~"
	}
	return link + " " + ticket.Summary
}

func (t *TicketLookup) cached(key string) (domain.Ticket, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for len(t.cache) > 0 && !t.cache[0].expires.After(now) {
		t.cache = t.cache[1:]
	}
	t.log.Debug("ticket cache size", zap.Int("size", len(t.cache)))

	for _, e := range t.cache {
		if strings.EqualFold(e.ticket.Key, key) {
			return e.ticket, true
		}
	}
	return domain.Ticket{}, false
}
