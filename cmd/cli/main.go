package main

import (
	"context"
	"log"
	"os"

	"github.com/chicrypt/relay/internal/buildinfo"
	"github.com/chicrypt/relay/internal/client/cli"
	"github.com/chicrypt/relay/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
