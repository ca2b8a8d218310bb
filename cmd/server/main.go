package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/skillhub/internal/logging"
	"github.com/dmitrijs2005/skillhub/internal/server"
	"github.com/dmitrijs2005/skillhub/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger := logging.New(
		logging.WithFormat(logging.ParseFormat(cfg.LogFormat)),
		logging.WithLevel(logging.ParseLevel(cfg.LogLevel)),
	)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		return
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "app stopped with error", "error", err)
	}

}
