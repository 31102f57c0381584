package main

import (
	"context"
	"flag"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/arne314/chat-collab/internal/app"
	cfg "github.com/arne314/chat-collab/internal/config"
	"github.com/arne314/chat-collab/internal/db"
	"github.com/arne314/chat-collab/internal/matrix"
)

var (
	waitGroup     *sync.WaitGroup       = &sync.WaitGroup{}
	config        *cfg.Config           = &cfg.Config{}
	dbHandler     *db.DbHandler         = &db.DbHandler{}
	matrixHandler *matrix.MatrixHandler = &matrix.MatrixHandler{}
	scraper       *app.Scraper          = &app.Scraper{}
)

func main() {
	configPath := flag.String("config", "config/config.toml", "Path to the config file")
	userId := flag.String("user_id", "", "User id to scrape messages from")
	channelId := flag.String("channel_id", "", "Room id to scrape from (default: all joined rooms)")
	limit := flag.Int("limit", 0, "Maximum number of messages to retrieve per room (0 = no limit)")
	output := flag.String("output", "", "Output csv file path")
	timeGap := flag.Int("time_gap", 0, "Maximum minutes between messages of the same turn")
	flag.Parse()

	config.Load(*configPath)
	config.PromptAccessToken()
	opts := scrapeOptions(*userId, *channelId, *limit, *output, *timeGap)

	dbHandler.Setup(config)
	matrixHandler.Setup(config, nil)
	scraper.Setup(config, dbHandler, matrixHandler)
	scraper.Run(context.Background(), opts)
	shutdown()
}

// scrapeOptions merges flags with config defaults and falls back to
// interactive prompts when no user id was given on the command line.
func scrapeOptions(userId, channelId string, limit int, output string, timeGap int) app.ScrapeOptions {
	if userId == "" {
		log.Info("Please provide the required parameters:")
		userId = cfg.Prompt("User id to scrape: ")
		if userId == "" {
			log.Fatalf("A user id is required")
		}
		channelId = cfg.Prompt("Room id to scrape (leave blank for all joined rooms): ")
		if input := cfg.Prompt("Message limit per room (leave blank for no limit): "); input != "" {
			parsed, err := strconv.Atoi(input)
			if err != nil {
				log.Fatalf("Invalid message limit: %v", err)
			}
			limit = parsed
		}
		output = cfg.Prompt("Output file path (leave blank for default): ")
	}
	if output == "" {
		output = config.Scrape.Output
	}
	if timeGap == 0 {
		timeGap = config.Scrape.TimeGapMins
	}
	return app.ScrapeOptions{
		UserId:  userId,
		RoomId:  channelId,
		Limit:   limit,
		Output:  output,
		TimeGap: time.Duration(timeGap) * time.Minute,
	}
}

func shutdown() {
	waitGroup.Add(2)
	dbHandler.Stop(waitGroup)
	matrixHandler.Stop(waitGroup)
	waitGroup.Wait()
}
