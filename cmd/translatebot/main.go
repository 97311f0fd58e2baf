package main

import (
	"log"

	"github.com/joho/godotenv"
	corecmd "github.com/m3rciful/translatebot/core/cmd"
	"github.com/m3rciful/translatebot/internal/app"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config/config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.Load(path)
		},
		Bootstrap: func(cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.Bootstrap(cfg.(*app.Config))
		},
	})
	if err != nil {
		log.Fatalf("translatebot: %v", err)
	}
}
