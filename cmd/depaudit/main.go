package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/blackwell-systems/depaudit/internal/app"
)

func main() {
	if err := app.Execute(); err != nil {
		if errors.Is(err, app.ErrFlaggedDependencies) {
			fmt.Fprintln(os.Stderr, "depaudit:", err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
