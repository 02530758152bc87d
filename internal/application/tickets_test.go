package application

import (
	"context"
	"testing"
	"time"

	"github.com/jeremiehuchet/chatops-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTickets(t *testing.T, jira *domain.MockTicketClient) *TicketLookup {
	t.Helper()
	tl, err := NewTicketLookup(zap.NewNop(), jira, 2*time.Minute, "")
	require.NoError(t, err)
	return tl
}

func TestPatternBuiltFromProjectKeys(t *testing.T) {
	jira := &domain.MockTicketClient{
		Projects: []domain.TicketProject{{Key: "OPS"}, {Key: "WEB"}},
	}
	tl := newTestTickets(t, jira)

	re, err := tl.Pattern(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"OPS-12", "web-7"}, re.FindAllString("see OPS-12 and web-7 please", -1))
	assert.Empty(t, re.FindAllString("nothing here", -1))
	assert.Empty(t, re.FindAllString("XOPS-12", -1))
}

func TestPatternFailsWithoutProjects(t *testing.T) {
	tl := newTestTickets(t, &domain.MockTicketClient{})

	_, err := tl.Pattern(context.Background())
	assert.Error(t, err)
}

func TestLookupCachesIssues(t *testing.T) {
	jira := &domain.MockTicketClient{
		Issues: map[string]domain.Ticket{"OPS-12": {Key: "OPS-12", Summary: "broken build"}},
	}
	tl := newTestTickets(t, jira)

	first, err := tl.Lookup(context.Background(), "OPS-12")
	require.NoError(t, err)
	second, err := tl.Lookup(context.Background(), "OPS-12")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, jira.IssueCalls)
}

func TestLookupRefetchesAfterTTL(t *testing.T) {
	jira := &domain.MockTicketClient{
		Issues: map[string]domain.Ticket{"OPS-12": {Key: "OPS-12", Summary: "broken build"}},
	}
	tl := newTestTickets(t, jira)

	t0 := time.Now()
	tl.now = func() time.Time { return t0 }
	_, err := tl.Lookup(context.Background(), "OPS-12")
	require.NoError(t, err)

	tl.now = func() time.Time { return t0.Add(3 * time.Minute) }
	_, err = tl.Lookup(context.Background(), "OPS-12")
	require.NoError(t, err)

	assert.Equal(t, 2, jira.IssueCalls)
}

func TestShouldIgnoreBotUsers(t *testing.T) {
	tl := newTestTickets(t, &domain.MockTicketClient{})

	assert.True(t, tl.ShouldIgnore("gitlab"))
	assert.True(t, tl.ShouldIgnore("JIRA"))
	assert.True(t, tl.ShouldIgnore(""))
	assert.False(t, tl.ShouldIgnore("alice"))
}

func TestFormatReplyStrikesDoneTickets(t *testing.T) {
	tl := newTestTickets(t, &domain.MockTicketClient{})

	open := tl.FormatReply(domain.Ticket{Key: "OPS-12", Summary: "broken build"})
	assert.Equal(t, "<https://jira.example.com/browse/OPS-12|OPS-12> broken build", open)

	done := tl.FormatReply(domain.Ticket{Key: "OPS-12", Summary: "broken build", Done: true})
	assert.Equal(t, "~<https://jira.example.com/browse/OPS-12|OPS-12>~ broken build", done)
}
