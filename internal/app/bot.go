package app

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	cfg "github.com/arne314/chat-collab/internal/config"
	"github.com/arne314/chat-collab/internal/db"
	"github.com/arne314/chat-collab/internal/llm"
	"github.com/arne314/chat-collab/internal/matrix"
)

// Bot replies to messages in monitored rooms with completions from the
// fine-tuned model.
type Bot struct {
	config        *cfg.Config
	dbHandler     *db.DbHandler
	matrixHandler *matrix.MatrixHandler
	generator     *llm.Generator
}

func (b *Bot) Setup(
	config *cfg.Config,
	dbHandler *db.DbHandler,
	matrixHandler *matrix.MatrixHandler,
) {
	b.config = config
	b.dbHandler = dbHandler
	b.matrixHandler = matrixHandler
	b.generator = llm.NewGenerator(config.LLM)
}

// HandleMessage is invoked by the matrix syncer for every incoming text
// message. Completion failures are logged and nothing is sent.
func (b *Bot) HandleMessage(ctx context.Context, msg matrix.IncomingMessage) {
	if !b.config.Matrix.MonitorsRoom(msg.RoomId) {
		return
	}
	lines, err := b.generator.Complete(ctx, msg.Text)
	if err != nil {
		log.Errorf("Error generating reply in room %v: %v", msg.RoomId, err)
		return
	}
	if len(lines) == 0 {
		return
	}
	for _, line := range lines {
		if !b.matrixHandler.SendRoomMessage(msg.RoomId, line) {
			return
		}
	}
	b.dbHandler.LogExchange(ctx, msg.RoomId, msg.Sender, msg.Text, strings.Join(lines, "\n"), msg.Timestamp)
}
