package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/andresmejia3/facemark/internal/annotate"
	"github.com/andresmejia3/facemark/internal/config"
	"github.com/andresmejia3/facemark/internal/faces"
	"github.com/andresmejia3/facemark/internal/imageio"
	"github.com/andresmejia3/facemark/internal/match"
	"github.com/andresmejia3/facemark/internal/pipeline"
	"github.com/andresmejia3/facemark/internal/types"
)

var recognizeOpts = Options{Model: types.HOG, Strategy: match.StrategyCompare}

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "Highlight the faces in an image that match a known face",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runRecognize(Engine, Cfg, recognizeOpts, cmd.OutOrStdout(), statusWriter())
	},
}

func init() {
	recognizeCmd.Flags().StringArrayVarP(&recognizeOpts.KnownPaths, "known", "k", nil, "Image containing the known face (repeatable)")
	recognizeCmd.Flags().StringVarP(&recognizeOpts.UnknownPath, "unknown", "i", "", "Image that may contain the known face")
	recognizeCmd.Flags().VarP(&recognizeOpts.Model, "model", "m", "Detection model (hog or cnn)")
	recognizeCmd.Flags().IntVarP(&recognizeOpts.Upsample, "upsample", "u", 1, "Times to double the image before CNN detection (0-3)")
	recognizeCmd.Flags().Var(&recognizeOpts.Strategy, "strategy", "Match strategy: compare (first within tolerance) or nearest (closest within tolerance)")
	recognizeCmd.Flags().BoolVarP(&recognizeOpts.Labels, "labels", "l", false, "Label each match with the known image name and distance")
	recognizeCmd.Flags().StringVarP(&recognizeOpts.OutputPath, "output", "o", "", "Save the annotated image to this file")
	recognizeCmd.Flags().BoolVar(&recognizeOpts.NoShow, "no-show", false, "Do not open the annotated image in a viewer")
	recognizeCmd.MarkFlagRequired("known")
	recognizeCmd.MarkFlagRequired("unknown")
	rootCmd.AddCommand(recognizeCmd)
}

func runRecognize(eng faces.Engine, cfg *config.Config, opts Options, stdout, status io.Writer) error {
	if err := faces.CheckUpsample(opts.Upsample); err != nil {
		return err
	}
	if err := imageio.CheckOutputPath(opts.OutputPath); err != nil {
		return err
	}

	// load, detect, encode per known image; load, detect, encode, match for the unknown one
	bar := newBar(status, 3*len(opts.KnownPaths)+4)
	p := &pipeline.Pipeline{Engine: eng, Status: status, OnStage: trackStages(bar)}

	res, err := p.Recognize(opts.KnownPaths, opts.UnknownPath, pipeline.RecognizeOptions{
		Model:    opts.Model,
		Upsample: opts.Upsample,
		Strategy: opts.Strategy,
	})
	if err != nil {
		return err
	}
	bar.Finish()

	fmt.Fprintf(stdout, "Found %d matching face(s)\n", len(res.Matches))

	if opts.OutputPath == "" && opts.NoShow {
		return nil
	}
	return present(cfg, res.Image.Pixels, matchBoxes(res, opts.Labels), 0, opts.OutputPath, !opts.NoShow, status)
}

func matchBoxes(res *pipeline.Result, labels bool) []annotate.Box {
	boxes := make([]annotate.Box, len(res.Matches))
	for i, m := range res.Matches {
		boxes[i] = annotate.Box{Loc: m.Loc}
		if labels {
			boxes[i].Label = fmt.Sprintf("%s (%.2f)", res.Known[m.KnownIndex].Name(), m.Distance)
		}
	}
	return boxes
}
