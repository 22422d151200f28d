// Package browser opens URLs in the desktop browser.
package browser

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
)

// Opener launches the platform URL handler
type Opener struct {
	goos   string
	run    func(ctx context.Context, name string, args ...string) error
	logger *zap.Logger
}

var _ repositories.Opener = (*Opener)(nil)

// NewOpener creates an opener for the running platform
func NewOpener(logger *zap.Logger) *Opener {
	return &Opener{
		goos:   runtime.GOOS,
		run:    start,
		logger: logger,
	}
}

// Open hands url to the OS without waiting for the browser to exit
func (o *Opener) Open(ctx context.Context, url string) error {
	name, args := Command(o.goos, url)
	if err := o.run(ctx, name, args...); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	o.logger.Info("Opened URL", zap.String("url", url))
	return nil
}

// Command returns the launcher for goos
func Command(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}

func start(ctx context.Context, name string, args ...string) error {
	// the launcher must outlive the tool call that asked for it
	cmd := exec.CommandContext(context.WithoutCancel(ctx), name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
