package browser

import (
	"os/exec"
	"runtime"
)

// Open tries to open the URL in the default browser. It does not wait for
// the browser to exit.
func Open(url string) error {
	args := command(runtime.GOOS, url)
	cmd := exec.Command(args[0], args[1:]...)
	return cmd.Start()
}

// command returns the launcher invocation for goos
func command(goos, url string) []string {
	var args []string
	switch goos {
	case "darwin":
		args = []string{"open"}
	case "windows":
		args = []string{"rundll32", "url.dll,FileProtocolHandler"}
	default:
		args = []string{"xdg-open"}
	}
	return append(args, url)
}
