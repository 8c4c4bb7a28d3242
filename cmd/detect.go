package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/andresmejia3/facemark/internal/annotate"
	"github.com/andresmejia3/facemark/internal/config"
	"github.com/andresmejia3/facemark/internal/faces"
	"github.com/andresmejia3/facemark/internal/imageio"
	"github.com/andresmejia3/facemark/internal/pipeline"
	"github.com/andresmejia3/facemark/internal/types"
)

var detectOpts = Options{Model: types.HOG}

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Detect every face in an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runDetect(Engine, Cfg, args[0], detectOpts, cmd.OutOrStdout(), statusWriter())
	},
}

func init() {
	detectCmd.Flags().VarP(&detectOpts.Model, "model", "m", "Detection model (hog or cnn)")
	detectCmd.Flags().IntVarP(&detectOpts.Upsample, "upsample", "u", 1, "Times to double the image before CNN detection (0-3)")
	detectCmd.Flags().StringVarP(&detectOpts.OutputPath, "output", "o", "", "Save the annotated image to this file")
	detectCmd.Flags().BoolVar(&detectOpts.NoShow, "no-show", false, "Do not open the annotated image in a viewer")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(eng faces.Engine, cfg *config.Config, path string, opts Options, stdout, status io.Writer) error {
	if err := faces.CheckUpsample(opts.Upsample); err != nil {
		return err
	}
	if err := imageio.CheckOutputPath(opts.OutputPath); err != nil {
		return err
	}

	bar := newBar(status, 3)
	p := &pipeline.Pipeline{Engine: eng, Status: status, OnStage: trackStages(bar)}

	img, locs, err := p.Detect(path, opts.Model, opts.Upsample)
	if err != nil {
		return err
	}
	bar.Finish()

	fmt.Fprintf(stdout, "Found %d face(s)\n", len(locs))

	if opts.OutputPath == "" && opts.NoShow {
		return nil
	}
	boxes := make([]annotate.Box, len(locs))
	for i, l := range locs {
		boxes[i] = annotate.Box{Loc: l}
	}
	return present(cfg, img.Pixels, boxes, 0, opts.OutputPath, !opts.NoShow, status)
}
