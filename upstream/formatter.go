package upstream

import (
	"context"
	"fmt"
	"time"

	"discord-relay/contract"
	"discord-relay/domain"
)

// Formatter completes a raw upstream message into the wire shape the
// browser expects: collections are real arrays, the author identity
// is resolved, timestamps are present. Avatar resolution may hit the
// directory, so callers bound every Format with a deadline context.
type Formatter struct {
	directory contract.Directory
}

func NewFormatter(directory contract.Directory) *Formatter {
	return &Formatter{directory: directory}
}

func (f *Formatter) Format(ctx context.Context, msg domain.Message) (domain.Message, error) {
	if msg.ID == "" || msg.ChannelID == "" || msg.Author.ID == "" {
		return domain.Message{}, fmt.Errorf("malformed upstream payload: missing identifiers (message %q)", msg.ID)
	}

	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if msg.Author.DisplayName == "" {
		msg.Author.DisplayName = msg.Author.Username
	}

	// Clients iterate these unconditionally; null would break them.
	if msg.Attachments == nil {
		msg.Attachments = []domain.Attachment{}
	}
	if msg.Embeds == nil {
		msg.Embeds = []domain.Embed{}
	}
	if msg.Reactions == nil {
		msg.Reactions = []domain.Reaction{}
	}

	if msg.Author.Avatar == "" {
		profile, err := f.directory.UserInfo(ctx, msg.Author.ID)
		if err != nil {
			return domain.Message{}, fmt.Errorf("resolving author %s: %w", msg.Author.ID, err)
		}
		msg.Author.Avatar = profile.Avatar
		if msg.Author.Username == "" {
			msg.Author.Username = profile.Username
		}
	}

	return msg, nil
}
