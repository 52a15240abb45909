package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/dudu/facemesh/internal/facemesh"
)

type Config struct {
	ImagePath     string
	DetectorModel string
	MeshModel     string
	OutputPath    string
	MaxFaces      int
	Flip          bool
	Verbose       bool
}

func main() {
	config := parseFlags()

	if config.ImagePath == "" {
		fmt.Fprintln(os.Stderr, "Error: --image flag is required")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() Config {
	config := Config{}

	flag.StringVar(&config.ImagePath, "image", "", "Input image (required)")
	flag.StringVar(&config.ImagePath, "i", "", "Input image (shorthand)")
	flag.StringVar(&config.DetectorModel, "detector", "models/blazeface.onnx", "Face detector model")
	flag.StringVar(&config.MeshModel, "mesh", "models/facemesh.onnx", "Landmark mesh model")
	flag.StringVar(&config.OutputPath, "out", "", "Write annotated image to this path")
	flag.StringVar(&config.OutputPath, "o", "", "Write annotated image (shorthand)")
	flag.IntVar(&config.MaxFaces, "max-faces", 10, "Maximum number of faces")
	flag.BoolVar(&config.Flip, "flip", false, "Mirror results horizontally")
	flag.BoolVar(&config.Verbose, "verbose", false, "Enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "FaceMesh - dense facial landmark estimation\n\n")
		fmt.Fprintf(os.Stderr, "Usage: facemesh [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  facemesh --image face.jpg\n")
		fmt.Fprintf(os.Stderr, "  facemesh --image face.jpg --out annotated.jpg\n")
	}

	flag.Parse()
	return config
}

func run(config Config) error {
	if config.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	img := gocv.IMRead(config.ImagePath, gocv.IMReadColor)
	if img.Empty() {
		return fmt.Errorf("failed to load image: %s", config.ImagePath)
	}
	defer img.Close()

	rgb := gocv.NewMat()
	gocv.CvtColor(img, &rgb, gocv.ColorBGRToRGB)
	defer rgb.Close()

	pixels, err := rgb.ToImage()
	if err != nil {
		return fmt.Errorf("failed to convert image: %w", err)
	}

	ctx := context.Background()
	estimator, err := facemesh.Load(ctx, facemesh.Config{
		DetectorModelPath: config.DetectorModel,
		MeshModelPath:     config.MeshModel,
		MaxFaces:          config.MaxFaces,
	})
	if err != nil {
		return fmt.Errorf("failed to load estimator: %w", err)
	}
	defer estimator.Close()

	faces, err := estimator.EstimateFaces(ctx,
		facemesh.Input{Image: pixels},
		facemesh.EstimateOptions{FlipHorizontal: config.Flip})
	if err != nil {
		return fmt.Errorf("estimation failed: %w", err)
	}
	if faces == nil {
		fmt.Println("No faces found")
		return nil
	}

	for i, face := range faces {
		mesh, ok := face.Geometry.(*facemesh.MeshArrays)
		if !ok {
			continue
		}
		fmt.Printf("Face %d: confidence %.3f, box (%.0f,%.0f)-(%.0f,%.0f), %d landmarks\n",
			i, face.Confidence,
			mesh.Box.TopLeft.X, mesh.Box.TopLeft.Y,
			mesh.Box.BottomRight.X, mesh.Box.BottomRight.Y,
			len(mesh.ScaledMesh))

		if config.OutputPath != "" {
			drawFace(&img, mesh)
		}
	}

	if config.OutputPath != "" {
		if ok := gocv.IMWrite(config.OutputPath, img); !ok {
			return fmt.Errorf("failed to write image: %s", config.OutputPath)
		}
		fmt.Printf("Annotated image written to %s\n", config.OutputPath)
	}

	return nil
}

// drawFace marks every scaled landmark and outlines the eyes and lips.
func drawFace(img *gocv.Mat, mesh *facemesh.MeshArrays) {
	green := color.RGBA{G: 255, A: 255}
	red := color.RGBA{R: 255, A: 255}

	for _, p := range mesh.ScaledMesh {
		gocv.Circle(img, image.Pt(int(p.X), int(p.Y)), 1, green, -1)
	}

	for _, name := range []string{"lipsUpperOuter", "lipsLowerOuter", "rightEyeUpper0", "rightEyeLower0", "leftEyeUpper0", "leftEyeLower0"} {
		points := mesh.Annotations[name]
		for i := 1; i < len(points); i++ {
			gocv.Line(img,
				image.Pt(int(points[i-1].X), int(points[i-1].Y)),
				image.Pt(int(points[i].X), int(points[i].Y)),
				red, 1)
		}
	}
}
