package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/m3rciful/refbot/core/cmd"
	"github.com/m3rciful/refbot/internal/app"
)

func main() {
	_ = godotenv.Load()

	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return app.Load(path)
		},
		Bootstrap: func(cfg cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			return app.Bootstrap(cfg.(*app.Config))
		},
	})
	if err != nil {
		log.Fatalf("refbot: %v", err)
	}
}
