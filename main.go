package main

import (
	"os"

	"github.com/SundayYogurt/identity_service/config"
	"github.com/SundayYogurt/identity_service/internal/api"
	"github.com/SundayYogurt/identity_service/internal/logger"
)

func main() {
	//load configuration
	cfg := config.LoadConfig()
	log := logger.NewLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if err := api.StartServer(cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
