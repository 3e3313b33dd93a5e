package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/lienzo/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "lienzo: %v\n", err)
		os.Exit(1)
	}
}
