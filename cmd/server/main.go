package main

import (
	"fmt"
	"log"

	"wishlist/internal/app"
	"wishlist/internal/config"
	"wishlist/internal/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if cfg.LogFile != "" {
		logFile, err := util.TeeLog(cfg.LogFile)
		if err != nil {
			log.Printf("Warning: cannot open log file %s: %v. Logging to stdout only.", cfg.LogFile, err)
		} else {
			defer logFile.Close()
		}
	}

	router := app.NewRouter(cfg)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	log.Printf("Server starting on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
