package main

import (
	"os"

	"moda.fit/trendpulse/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
