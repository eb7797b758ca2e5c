package main

import (
	"os"

	"github.com/zurustar/sketch/pkg/app"
)

func main() {
	application := app.New()
	if err := application.Run(os.Args[1:]); err != nil {
		app.Report(os.Stderr, err)
		os.Exit(1)
	}
}
