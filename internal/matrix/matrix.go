package matrix

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
	"maunium.net/go/mautrix"

	config "github.com/arne314/chat-collab/internal/config"
	"github.com/arne314/chat-collab/internal/turns"
)

type MatrixHandler struct {
	client *MatrixClient
	Config *config.MatrixConfig
}

func (mh *MatrixHandler) Setup(cfg *config.Config, onMessage MessageCallback) {
	mh.Config = cfg.Matrix
	mh.client = &MatrixClient{}
	mh.client.Login(cfg.Matrix, onMessage)
}

func (mh *MatrixHandler) Run() {
	mh.client.Run()
}

func (mh *MatrixHandler) SendRoomMessage(roomId string, text string) bool {
	ok, _ := mh.client.SendRoomMessage(roomId, text)
	return ok
}

// ScrapeRooms returns the rooms to harvest: the explicitly requested room,
// or every joined room when none is given.
func (mh *MatrixHandler) ScrapeRooms(ctx context.Context, roomId string) []string {
	if roomId != "" {
		return []string{roomId}
	}
	rooms, err := mh.client.JoinedRooms(ctx)
	if err != nil {
		log.Fatalf("Error listing joined rooms: %v", err)
	}
	return rooms
}

// FetchRoomHistory wraps the client fetch with the per-room error policy:
// access problems and any other per-room errors are logged and reported as
// an empty result so the scrape continues with the remaining rooms.
func (mh *MatrixHandler) FetchRoomHistory(
	ctx context.Context, roomId string, from string, limit int,
) ([]*turns.Message, string, bool) {
	messages, resume, err := mh.client.FetchRoomHistory(ctx, roomId, from, limit)
	if IsForbidden(err) {
		log.Warnf("Cannot access room %v due to permissions", roomId)
		return nil, from, false
	}
	if err != nil {
		log.Errorf("Error scraping room %v: %v", roomId, err)
		return nil, from, false
	}
	return messages, resume, true
}

func (mh *MatrixHandler) Stop(waitGroup *sync.WaitGroup) {
	defer waitGroup.Done()
	mh.client.Stop()
}

// IsForbidden reports whether the error means the room denied us access.
func IsForbidden(err error) bool {
	return errors.Is(err, mautrix.MForbidden)
}
