// Package main provides the devserve static file server for local site development.
package main

import (
	"log"
	"os"

	"github.com/clean-dependency-project/devserve/internal/cli"
)

func main() {
	app := cli.NewApp()

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
