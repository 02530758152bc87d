package notify_slack

import (
	"context"

	"github.com/jeremiehuchet/chatops-bot/internal/domain"
	"github.com/slack-go/slack"
)

// Notifier drives Slack status messages: one post per pipeline, then
// in-place updates and reactions on the same message.
type Notifier struct {
	api *slack.Client
}

func New(token string, opts ...slack.Option) *Notifier {
	return &Notifier{api: slack.New(token, opts...)}
}

func (n *Notifier) Post(ctx context.Context, channel string, m domain.StatusMessage) (domain.MessageHandle, error) {
	ch, ts, err := n.api.PostMessageContext(ctx, channel, attachment(m))
	if err != nil {
		return domain.MessageHandle{}, err
	}
	return domain.MessageHandle{Channel: ch, Timestamp: ts}, nil
}

func (n *Notifier) Update(ctx context.Context, h domain.MessageHandle, m domain.StatusMessage) (domain.MessageHandle, error) {
	ch, ts, _, err := n.api.UpdateMessageContext(ctx, h.Channel, h.Timestamp, attachment(m))
	if err != nil {
		return h, err
	}
	return domain.MessageHandle{Channel: ch, Timestamp: ts}, nil
}

// AddReaction treats already_reacted as success: reactions are
// idempotent from the caller's point of view.
func (n *Notifier) AddReaction(ctx context.Context, h domain.MessageHandle, name string) error {
	err := n.api.AddReactionContext(ctx, name, slack.NewRefToMessage(h.Channel, h.Timestamp))
	if err != nil && err.Error() == "already_reacted" {
		return nil
	}
	return err
}

func (n *Notifier) PostText(ctx context.Context, channel, text string) error {
	_, _, err := n.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	return err
}

func attachment(m domain.StatusMessage) slack.MsgOption {
	return slack.MsgOptionAttachments(slack.Attachment{
		Title: m.Title,
		Text:  m.Body,
		Color: string(m.Color),
	})
}
