package db

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	config "github.com/arne314/chat-collab/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS scrape_state (
	room_id TEXT PRIMARY KEY,
	resume_token TEXT NOT NULL DEFAULT '',
	turn_count BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS exchanges (
	id BIGSERIAL PRIMARY KEY,
	room_id TEXT NOT NULL,
	sender TEXT NOT NULL,
	incoming TEXT NOT NULL,
	reply TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// DbHandler persists scrape resume tokens and the bot's exchange log.
// The database is optional: without a DATABASE_URL every scrape starts
// from the live end of each room and exchanges are not logged.
type DbHandler struct {
	connection *pgx.Conn
}

func (dh *DbHandler) Setup(cfg *config.Config) {
	if cfg.DatabaseUrl == "" {
		log.Warnf("No DATABASE_URL configured, scrape state and exchange log are disabled")
		return
	}
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.DatabaseUrl)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
		return
	}
	dh.connection = conn
	if _, err := conn.Exec(ctx, schema); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
		return
	}
	log.Infof("Connected to database on %v", conn.Config().Host)
}

func (dh *DbHandler) Enabled() bool {
	return dh.connection != nil
}

// GetScrapeState returns the pagination token a previous run stopped at
// for the room, or "" when the room has not been scraped before.
func (dh *DbHandler) GetScrapeState(ctx context.Context, roomId string) string {
	if !dh.Enabled() {
		return ""
	}
	var token string
	err := dh.connection.QueryRow(
		ctx, `SELECT resume_token FROM scrape_state WHERE room_id = $1`, roomId,
	).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return ""
	}
	if err != nil {
		log.Errorf("Error loading scrape state for %v: %v", roomId, err)
		return ""
	}
	return token
}

func (dh *DbHandler) SaveScrapeState(ctx context.Context, roomId string, token string, turnCount int) {
	if !dh.Enabled() {
		return
	}
	_, err := dh.connection.Exec(ctx, `
		INSERT INTO scrape_state (room_id, resume_token, turn_count, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (room_id) DO UPDATE SET
			resume_token = EXCLUDED.resume_token,
			turn_count = scrape_state.turn_count + EXCLUDED.turn_count,
			updated_at = EXCLUDED.updated_at`,
		roomId, token, turnCount, time.Now().UTC(),
	)
	if err != nil {
		log.Errorf("Error saving scrape state for %v: %v", roomId, err)
	}
}

func (dh *DbHandler) LogExchange(
	ctx context.Context, roomId, sender, incoming, reply string, timestamp time.Time,
) {
	if !dh.Enabled() {
		return
	}
	_, err := dh.connection.Exec(ctx, `
		INSERT INTO exchanges (room_id, sender, incoming, reply, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		roomId, sender, incoming, reply, timestamp.UTC(),
	)
	if err != nil {
		log.Errorf("Error logging exchange: %v", err)
	}
}

func (dh *DbHandler) Stop(waitGroup *sync.WaitGroup) {
	defer waitGroup.Done()
	if !dh.Enabled() {
		return
	}
	err := dh.connection.Close(context.Background())
	if err != nil {
		log.Errorf("Failed to close database connection: %v", err)
	}
}
