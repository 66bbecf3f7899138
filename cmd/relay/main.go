package main

import (
	"log"

	"github.com/MrSnakeDoc/relay/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ relay failed to start: %v", err)
	}
}
