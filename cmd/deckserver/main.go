package main

import (
	"log"

	"quizme"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := quizme.LoadDeckServerConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := quizme.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()
	quizme.SetLogger(zl)
	quizme.SetVerbose(cfg.Verbose)

	db, err := quizme.OpenDeckDB(cfg.DeckDBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := newRouter(db)
	quizme.Log().Infow("starting deck server", "port", cfg.Port, "db", cfg.DeckDBPath)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
