package main

import (
	"fmt"
	"os"

	"modelgate/internal/gatectl"
)

func main() {
	if err := gatectl.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
