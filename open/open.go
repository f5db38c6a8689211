// Package open hands URLs to the system's default handler or to a chosen application.
package open

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/yks-player/yks/constant"
)

var (
	ErrUnsupportedOS = fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	ErrScheme        = errors.New("only http and https urls can be opened")
)

// Start opens input with the default system handler without waiting for it.
func Start(input string) error {
	cmd, ok := command(input)
	if !ok {
		return ErrUnsupportedOS
	}
	return cmd.Start()
}

// StartWith opens input with app without waiting for it. An empty app means the default handler.
func StartWith(input, app string) error {
	if app == "" {
		return Start(input)
	}
	cmd, ok := commandWith(input, app)
	if !ok {
		return ErrUnsupportedOS
	}
	return cmd.Start()
}

// Browser returns an opener for web pages. Anything but http and https is refused
// before a process is started.
func Browser(app string) func(string) error {
	return func(input string) error {
		u, err := url.Parse(input)
		if err != nil {
			return err
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%w: %q", ErrScheme, input)
		}
		return StartWith(u.String(), app)
	}
}

func command(input string) (*exec.Cmd, bool) {
	switch runtime.GOOS {
	case constant.Windows:
		rundll := filepath.Join(os.Getenv("SYSTEMROOT"), "System32", "rundll32.exe")
		return exec.Command(rundll, "url.dll,FileProtocolHandler", input), true
	case constant.Darwin:
		return exec.Command("open", input), true
	case constant.Linux:
		return exec.Command("xdg-open", input), true
	case constant.Android:
		return exec.Command("termux-open-url", input), true
	default:
		return nil, false
	}
}

func commandWith(input, app string) (*exec.Cmd, bool) {
	switch runtime.GOOS {
	case constant.Windows:
		// start treats & as a command separator
		escaped := strings.ReplaceAll(input, "&", "^&")
		return exec.Command("cmd", "/C", "start", "", app, escaped), true
	case constant.Darwin:
		return exec.Command("open", "-a", app, input), true
	case constant.Linux:
		return exec.Command(app, input), true
	case constant.Android:
		return exec.Command("termux-open-url", input), true
	default:
		return nil, false
	}
}
