package cmd

import (
	"fmt"
	"image"
	"io"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/andresmejia3/facemark/internal/annotate"
	"github.com/andresmejia3/facemark/internal/config"
	"github.com/andresmejia3/facemark/internal/imageio"
	"github.com/andresmejia3/facemark/internal/pipeline"
)

// showImage is swapped out in tests so no viewer gets launched.
var showImage = func(v annotate.Viewer, img image.Image) (string, error) {
	return v.Show(img)
}

var stageIcons = map[string]string{
	pipeline.StageLoading:   "📂",
	pipeline.StageDetecting: "🔍",
	pipeline.StageEncoding:  "🧬",
	pipeline.StageMatching:  "🧩",
}

// newBar returns a staged progress bar on w. total is a step estimate; stages that get
// skipped simply leave the bar short until Finish.
func newBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("🚀 Starting"),
		progressbar.OptionSetWriter(w), // Write bar to Stderr
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
	)
}

// trackStages advances bar once per pipeline stage.
func trackStages(bar *progressbar.ProgressBar) func(stage, path string) {
	return func(stage, path string) {
		bar.Describe(fmt.Sprintf("%s %s %s", stageIcons[stage], stage, filepath.Base(path)))
		bar.Add(1)
	}
}

// present draws boxes over img, then saves and/or shows the result.
func present(cfg *config.Config, img image.Image, boxes []annotate.Box, margin int, outputPath string, show bool, status io.Writer) error {
	out, err := annotate.Draw(img, boxes, style(cfg, margin))
	if err != nil {
		return err
	}

	if outputPath != "" {
		if err := imageio.Save(out, outputPath, cfg.SaveOptions()); err != nil {
			return err
		}
		fmt.Fprintf(status, "💾 Saved annotated image to %s\n", outputPath)
	}

	if show {
		if _, err := showImage(viewer(cfg), out); err != nil {
			return err
		}
	}
	return nil
}
