// Package browser hands a URL to the default desktop viewer.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Open launches the platform's default browser on the given URL.
//
// The browser is started detached; Open does not wait for it to exit or
// report whether the page actually loaded.
func Open(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
