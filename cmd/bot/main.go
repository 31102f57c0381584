package main

import (
	"flag"
	"os"
	"os/signal"
	"sync"

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
	bot           *app.Bot              = &app.Bot{}
)

func main() {
	log.Info("Starting chat-collab bot...")
	configPath := flag.String("config", "config/config.toml", "Path to the config file")
	flag.Parse()
	config.Load(*configPath)
	config.RequireAccessToken()
	if config.LLM == nil || config.LLM.ApiUrl == "" {
		log.Fatalf("No llm api configured")
	}

	dbHandler.Setup(config)
	bot.Setup(config, dbHandler, matrixHandler)
	matrixHandler.Setup(config, bot.HandleMessage)
	go matrixHandler.Run()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	log.Info("Startup complete")
	<-stop
	log.Info("Shutting down chat-collab bot...")
	defer shutdown()
}

func shutdown() {
	waitGroup.Add(2)
	dbHandler.Stop(waitGroup)
	matrixHandler.Stop(waitGroup)
	waitGroup.Wait()
	log.Info("Shutdown successful")
}
