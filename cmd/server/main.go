package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/townsquare/internal/server"
	"github.com/dmitrijs2005/townsquare/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}

}
