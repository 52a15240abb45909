package main

import (
	"fmt"
	"os"

	"github.com/tsawler/go-metal/checkpoints"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: modelcheck <model.onnx> [model.onnx ...]")
		fmt.Println("\nInspects the ONNX models the estimator ships with")
		fmt.Println("(face detector and landmark mesh) and reports their layers.")
		fmt.Println("\nExample:")
		fmt.Println("  go run ./cmd/modelcheck models/blazeface.onnx models/facemesh.onnx")
		os.Exit(1)
	}

	failed := false
	for _, modelPath := range os.Args[1:] {
		if err := check(modelPath); err != nil {
			fmt.Printf("%s: %v\n", modelPath, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func check(modelPath string) error {
	fmt.Printf("Checking ONNX model: %s\n", modelPath)

	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found")
	}

	importer := checkpoints.NewONNXImporter()
	checkpoint, err := importer.ImportFromONNX(modelPath)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("  Layers: %d\n", len(checkpoint.ModelSpec.Layers))
	fmt.Printf("  Weights: %d tensors\n", len(checkpoint.Weights))
	for i, layer := range checkpoint.ModelSpec.Layers {
		fmt.Printf("  %d: %s (%s)\n", i+1, layer.Name, layer.Type)
	}
	fmt.Println()

	return nil
}
