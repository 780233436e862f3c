//go:build ignore

package main

import (
	"fmt"
	"os"

	"github.com/ormasoftchile/fomod/pkg/kernel/schema"
)

func main() {
	if err := os.MkdirAll("schemas", 0755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir: %v\n", err)
		os.Exit(1)
	}
	data, err := schema.GenerateModuleJSONSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile("schemas/module-v0.json", data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote schemas/module-v0.json")

	selData, err := schema.GenerateSelectionJSONSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating selection schema: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile("schemas/selection-v0.json", selData, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote schemas/selection-v0.json")
}
