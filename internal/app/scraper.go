package app

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	cfg "github.com/arne314/chat-collab/internal/config"
	"github.com/arne314/chat-collab/internal/db"
	"github.com/arne314/chat-collab/internal/matrix"
	"github.com/arne314/chat-collab/internal/turns"
)

type ScrapeOptions struct {
	UserId  string
	RoomId  string        // empty means all joined rooms
	Limit   int           // max messages per room, 0 means unbounded
	Output  string        // csv path, timestamp suffix is appended
	TimeGap time.Duration // max gap between messages of the same turn
}

// Scraper harvests a target user's historical messages into a training
// dataset, one csv row per grouped turn.
type Scraper struct {
	config        *cfg.Config
	dbHandler     *db.DbHandler
	matrixHandler *matrix.MatrixHandler
}

func (s *Scraper) Setup(
	config *cfg.Config,
	dbHandler *db.DbHandler,
	matrixHandler *matrix.MatrixHandler,
) {
	s.config = config
	s.dbHandler = dbHandler
	s.matrixHandler = matrixHandler
}

func (s *Scraper) Run(ctx context.Context, opts ScrapeOptions) {
	dataset := &turns.Dataset{}
	for _, room := range s.matrixHandler.ScrapeRooms(ctx, opts.RoomId) {
		log.Infof("Scraping messages from %v...", room)
		from := s.dbHandler.GetScrapeState(ctx, room)
		messages, resume, ok := s.matrixHandler.FetchRoomHistory(ctx, room, from, opts.Limit)
		if !ok {
			continue
		}
		groups := turns.GroupTurns(messages, opts.UserId, opts.TimeGap)
		dataset.Add(groups...)
		s.dbHandler.SaveScrapeState(ctx, room, resume, len(groups))
		log.Infof("Grouped %v messages from %v into %v turns", len(messages), room, len(groups))
	}

	path, err := dataset.WriteCSV(opts.Output)
	if errors.Is(err, turns.ErrEmptyDataset) {
		log.Warnf("No messages to save")
		return
	}
	if err != nil {
		log.Fatalf("Error writing dataset: %v", err)
		return
	}
	log.Infof("Saved %v message groups to %v", dataset.Len(), path)
}
