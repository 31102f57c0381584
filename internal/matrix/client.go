package matrix

import (
	"context"
	"time"

	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/crypto/cryptohelper"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	config "github.com/arne314/chat-collab/internal/config"
)

// IncomingMessage is a text message received while syncing.
type IncomingMessage struct {
	RoomId    string
	Sender    string
	Text      string
	Timestamp time.Time
}

type MessageCallback func(ctx context.Context, msg IncomingMessage)

type MatrixClient struct {
	client       *mautrix.Client
	cryptoHelper *cryptohelper.CryptoHelper
	startupTime  time.Time
}

func (mc *MatrixClient) Login(cfg *config.MatrixConfig, onMessage MessageCallback) {
	client, err := mautrix.NewClient(cfg.HomeServer, id.UserID(cfg.UserID), cfg.AccessToken)
	mc.client = client
	mc.startupTime = time.Now().UTC()
	if err != nil {
		log.Fatalf("Invalid matrix config: %v", err)
	}
	syncer := client.Syncer.(*mautrix.DefaultSyncer)

	// listen for messages
	if onMessage != nil {
		syncer.OnEventType(event.EventMessage, func(ctx context.Context, evt *event.Event) {
			if evt.Sender == client.UserID {
				return
			}
			timestamp := time.UnixMilli(evt.Timestamp)
			if timestamp.Before(mc.startupTime) {
				return // backfilled by the initial sync
			}
			content := evt.Content.AsMessage()
			content.RemoveReplyFallback()
			if content.MsgType != event.MsgText || content.Body == "" {
				return
			}
			onMessage(ctx, IncomingMessage{
				RoomId:    evt.RoomID.String(),
				Sender:    evt.Sender.String(),
				Text:      content.Body,
				Timestamp: timestamp,
			})
		})
	}

	// accept room invites
	syncer.OnEventType(event.StateMember, func(ctx context.Context, evt *event.Event) {
		if evt.GetStateKey() == client.UserID.String() &&
			evt.Content.AsMember().Membership == event.MembershipInvite {
			_, err := client.JoinRoomByID(ctx, evt.RoomID)
			if err != nil {
				log.Errorf("Error joining room: %v", err)
			}
		}
	})

	// reuse the existing session from the access token
	cryptoHelper, err := cryptohelper.NewCryptoHelper(client, []byte("chat-collab"), "session.db")
	mc.cryptoHelper = cryptoHelper
	if err != nil {
		log.Fatalf("Error setting up cryptohelper: %v", err)
	}
	err = cryptoHelper.Init(context.Background())
	if err != nil {
		log.Fatalf("Error setting up cryptohelper: %v", err)
	}
	client.Crypto = cryptoHelper
	log.Infof("Logged into matrix as %v", client.UserID)
}

func (mc *MatrixClient) SendRoomMessage(roomId string, text string) (bool, string) {
	resp, err := mc.client.SendText(context.Background(), id.RoomID(roomId), text)
	if err != nil {
		log.Errorf("Error sending message to matrix: %v", err)
		return false, ""
	}
	return true, resp.EventID.String()
}

func (mc *MatrixClient) JoinedRooms(ctx context.Context) ([]string, error) {
	resp, err := mc.client.JoinedRooms(ctx)
	if err != nil {
		return nil, err
	}
	rooms := make([]string, len(resp.JoinedRooms))
	for i, room := range resp.JoinedRooms {
		rooms[i] = room.String()
	}
	return rooms, nil
}

func (mc *MatrixClient) Run() {
	err := mc.client.Sync()
	if err != nil {
		log.Fatalf("Error syncing with matrix server: %v", err)
	}
}

func (mc *MatrixClient) Stop() {
	mc.client.StopSync()
	log.Info("Stopped matrix sync")
}
