package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/dentdocs/internal/client/cli"
	"github.com/dmitrijs2005/dentdocs/internal/client/config"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {

	cfg := config.LoadConfig()

	if err := cli.Execute(context.Background(), cfg, version); err != nil {
		os.Exit(1)
	}

}
