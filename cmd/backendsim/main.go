package main

import (
	"log"

	"github.com/progress/jsdo/internal/backendsim"
	"github.com/progress/jsdo/internal/config"
)

func main() {
	cfg, err := config.LoadServerConfig("")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	application, err := backendsim.NewApplication(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
