package main

import (
	"os"

	"github.com/vmud/newshub/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
