package matrix

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/arne314/chat-collab/internal/turns"
)

const historyPageSize = 100

// replyResolver resolves a reply target event id to the referenced message.
// It returns nil when the target no longer exists (redacted or unfetchable).
type replyResolver func(eventId string) *turns.Message

// FetchRoomHistory pages backwards through a room's history starting at the
// given pagination token ("" for the live end) and returns the collected
// messages in chronological order together with the token to resume older
// history from on a later run. A limit of 0 means no limit.
func (mc *MatrixClient) FetchRoomHistory(
	ctx context.Context, roomId string, from string, limit int,
) ([]*turns.Message, string, error) {
	var events []*event.Event
	resumeToken := from
	for {
		pageSize := historyPageSize
		if limit > 0 && limit-len(events) < pageSize {
			pageSize = limit - len(events)
		}
		if pageSize <= 0 {
			break
		}
		resp, err := mc.client.Messages(
			ctx, id.RoomID(roomId), resumeToken, "",
			mautrix.DirectionBackward, nil, pageSize,
		)
		if err != nil {
			return nil, from, err
		}
		for _, evt := range resp.Chunk {
			if evt.Type == event.EventMessage {
				events = append(events, evt)
			}
		}
		resumeToken = resp.End
		if resp.End == "" || len(resp.Chunk) == 0 {
			break
		}
	}
	messages := chronologicalMessages(events, mc.resolveReply(ctx, roomId))
	return messages, resumeToken, nil
}

func (mc *MatrixClient) resolveReply(ctx context.Context, roomId string) replyResolver {
	return func(eventId string) *turns.Message {
		evt, err := mc.client.GetEvent(ctx, id.RoomID(roomId), id.EventID(eventId))
		if err != nil {
			log.Warnf("Error fetching replied-to event %v: %v", eventId, err)
			return nil
		}
		if evt.Unsigned.RedactedBecause != nil {
			return nil
		}
		if err := evt.Content.ParseRaw(event.EventMessage); err != nil &&
			err != event.ErrContentAlreadyParsed {
			return nil
		}
		content := evt.Content.AsMessage()
		content.RemoveReplyFallback()
		if content.Body == "" {
			return nil
		}
		return &turns.Message{
			Author:    evt.Sender.String(),
			Text:      content.Body,
			Timestamp: time.UnixMilli(evt.Timestamp),
		}
	}
}

// chronologicalMessages converts newest-first history events into the
// grouper's message type, reversed to oldest first. Reply references are
// resolved through the given resolver; a nil result marks the reference as
// deleted, which disables the preceding-message override.
func chronologicalMessages(events []*event.Event, resolve replyResolver) []*turns.Message {
	messages := make([]*turns.Message, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		evt := events[i]
		if err := evt.Content.ParseRaw(event.EventMessage); err != nil &&
			err != event.ErrContentAlreadyParsed {
			continue
		}
		content := evt.Content.AsMessage()
		// rich replies quote the replied-to message in Body; only the
		// actual reply text belongs in the dataset
		content.RemoveReplyFallback()
		msg := &turns.Message{
			Author:    evt.Sender.String(),
			Text:      content.Body,
			Timestamp: time.UnixMilli(evt.Timestamp),
		}
		if replyTo := content.RelatesTo.GetReplyTo(); replyTo != "" {
			msg.ReplyTo = resolve(replyTo.String())
		}
		messages = append(messages, msg)
	}
	return messages
}
