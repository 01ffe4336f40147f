package main

import (
	"log"

	"github.com/mev-engine/tx-simulator/internal/app"
	"github.com/mev-engine/tx-simulator/internal/config"
	"go.uber.org/fx"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	fxApp := fx.New(
		fx.Provide(func() *config.Config { return cfg }),
		app.Module,
	)

	fxApp.Run()
}
