package annotate

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"

	"github.com/andresmejia3/facemark/internal/imageio"
	"github.com/andresmejia3/facemark/internal/types"
	"github.com/andresmejia3/facemark/internal/utils"
)

// Viewer opens images in an external program.
type Viewer struct {
	// Command overrides the platform default. It is split on whitespace and the file path is
	// appended as the last argument.
	Command string
	// Wait blocks Show until the viewer exits.
	Wait bool
}

// run is swapped out in tests.
var run = func(s *utils.SafeCommand, wait bool) error {
	if wait {
		return s.Wrap(s.Run())
	}
	if err := s.Start(); err != nil {
		return s.Wrap(err)
	}
	// Reap the child in the background so it does not linger as a zombie.
	go s.Wait()
	return nil
}

// Show writes img to a temporary PNG and opens it. It returns the temp file path.
func (v Viewer) Show(img image.Image) (string, error) {
	path := filepath.Join(os.TempDir(), "facemark-"+uuid.NewString()+".png")
	if err := imageio.Save(img, path, imageio.DefaultSaveOptions()); err != nil {
		return "", err
	}

	name, args := v.commandFor(path)
	if name == "" {
		return path, fmt.Errorf("%w: no image viewer configured for %s", types.ErrArgument, runtime.GOOS)
	}

	s := utils.NewSafeCommand(name, args...)
	if err := run(s, v.Wait); err != nil {
		return path, fmt.Errorf("failed to launch viewer: %w", err)
	}
	return path, nil
}

func (v Viewer) commandFor(path string) (string, []string) {
	if fields := strings.Fields(v.Command); len(fields) > 0 {
		return fields[0], append(fields[1:], path)
	}
	return defaultCommand(runtime.GOOS, path)
}

func defaultCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", path}
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{path}
	}
	return "", nil
}
