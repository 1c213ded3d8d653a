package main

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spf13/cobra"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/calder-vision/imagenet-api/internal/classify"
	"github.com/calder-vision/imagenet-api/internal/config"
	"github.com/calder-vision/imagenet-api/internal/model"
)

var (
	topK       int
	centerOnly bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify <image>",
	Short: "Classify a single image file and print the top-k predictions",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

func init() {
	flags := classifyCmd.Flags()
	flags.IntVarP(&topK, "top", "k", 5, "Number of predictions to print")
	flags.BoolVar(&centerOnly, "center-only", false, "Use a single center crop instead of 10-crop oversampling")
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	m, err := model.Load(cfg.WeightsPath, cfg.MetaPath)
	if err != nil {
		return err
	}
	defer m.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	classifier := classify.New(m)
	scores, err := classifier.Classify(img, centerOnly)
	if err != nil {
		return err
	}

	top, err := classifier.TopK(scores, topK)
	if err != nil {
		return err
	}

	for _, p := range top {
		fmt.Printf("%4d  %-40s %.6f\n", p.Index, p.Label, p.Score)
	}
	return nil
}
