package main

import (
	"context"
	"log"

	"wiki-rag-be/internal/bootstrap"
	"wiki-rag-be/internal/config"
	"wiki-rag-be/internal/server"
	"wiki-rag-be/internal/tracer"
	"wiki-rag-be/pkg/database"

	"github.com/fatih/color"
)

func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg := config.Load()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	container := bootstrap.NewContainer(gormDB, cfg)

	// Background indexing workers
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	srv := server.New(cfg, container)

	color.Green("wiki-rag-backend ready (env: %s)", cfg.App.Environment)
	log.Fatal(srv.Run())
}
