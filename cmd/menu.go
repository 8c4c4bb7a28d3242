package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andresmejia3/facemark/internal/annotate"
	"github.com/andresmejia3/facemark/internal/config"
	"github.com/andresmejia3/facemark/internal/faces"
	"github.com/andresmejia3/facemark/internal/match"
	"github.com/andresmejia3/facemark/internal/pipeline"
	"github.com/andresmejia3/facemark/internal/types"
)

const menuText = `1) Detect faces (CNN)
2) Detect faces (HOG)
3) Recognize a known face
Choice: `

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Choose an operation and image paths interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runMenu(Engine, Cfg, cmd.InOrStdin(), cmd.OutOrStdout(), statusWriter())
	},
}

func init() {
	rootCmd.AddCommand(menuCmd)
}

// runMenu reads one choice and the paths it needs, then shows the annotated result.
// Bad input ends the run; there is no retry.
func runMenu(eng faces.Engine, cfg *config.Config, in io.Reader, out, status io.Writer) error {
	r := bufio.NewReader(in)

	fmt.Fprint(out, menuText)
	line, err := readLine(r)
	if err != nil {
		return err
	}
	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return fmt.Errorf("%w: menu choice must be a number: %w", types.ErrArgument, err)
	}

	p := &pipeline.Pipeline{Engine: eng, Status: status}
	margin := cfg.Annotate.MenuMargin

	switch choice {
	case 1, 2:
		model := types.HOG
		if choice == 1 {
			model = types.CNN
		}
		fmt.Fprint(out, "Image path: ")
		path, err := readLine(r)
		if err != nil {
			return err
		}

		img, locs, err := p.Detect(path, model, 0)
		if err != nil {
			return err
		}
		boxes := make([]annotate.Box, len(locs))
		for i, l := range locs {
			boxes[i] = annotate.Box{Loc: l}
		}
		return present(cfg, img.Pixels, boxes, margin, "", true, status)

	case 3:
		fmt.Fprint(out, "Known image path: ")
		known, err := readLine(r)
		if err != nil {
			return err
		}
		fmt.Fprint(out, "Unknown image path: ")
		unknown, err := readLine(r)
		if err != nil {
			return err
		}

		res, err := p.Recognize([]string{known}, unknown, pipeline.RecognizeOptions{
			Model:    types.HOG,
			Strategy: match.StrategyNearest,
		})
		if err != nil {
			return err
		}
		return present(cfg, res.Image.Pixels, matchBoxes(res, false), margin, "", true, status)
	}

	return fmt.Errorf("%w: menu choice must be 1, 2 or 3, got %d", types.ErrArgument, choice)
}

// readLine returns the next line without its terminator.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("%w: unexpected end of input", types.ErrArgument)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
