package popup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

var (
	ErrNoDisplay  = errors.New("no graphical display available")
	ErrNoLauncher = errors.New("no browser launcher found")
)

// launcherGrace is how long Closed waits for a launcher to hand off to the browser.
const launcherGrace = 2 * time.Second

// SystemOpener opens windows through the platform's browser launcher.
type SystemOpener struct {
	GOOS     string
	Getenv   func(string) string
	LookPath func(string) (string, error)
	Command  func(name string, args ...string) *exec.Cmd
}

// NewSystemOpener returns an opener bound to the running platform.
func NewSystemOpener() *SystemOpener {
	return &SystemOpener{
		GOOS:     runtime.GOOS,
		Getenv:   os.Getenv,
		LookPath: exec.LookPath,
		Command:  exec.Command,
	}
}

// Launcher resolves the command used to open a URL.
func (o *SystemOpener) Launcher() (string, []string, error) {
	name, args, _, err := o.resolve()
	return name, args, err
}

// resolve also reports whether the command is a browser rather than a
// launcher that hands the URL off and exits.
func (o *SystemOpener) resolve() (string, []string, bool, error) {
	if b := strings.TrimSpace(o.Getenv("BROWSER")); b != "" {
		fields := strings.Fields(b)
		return fields[0], fields[1:], true, nil
	}
	switch o.GOOS {
	case "darwin":
		return o.launcher("open")
	case "windows":
		return o.launcher("rundll32", "url.dll,FileProtocolHandler")
	default:
		if o.Getenv("DISPLAY") == "" && o.Getenv("WAYLAND_DISPLAY") == "" && o.Getenv("WSL_DISTRO_NAME") == "" {
			return "", nil, false, ErrNoDisplay
		}
		for _, name := range []string{"xdg-open", "wslview"} {
			if path, args, _, err := o.launcher(name); err == nil {
				return path, args, false, nil
			}
		}
		if path, args, err := o.find("x-www-browser"); err == nil {
			return path, args, true, nil
		}
		return "", nil, false, ErrNoLauncher
	}
}

func (o *SystemOpener) launcher(name string, args ...string) (string, []string, bool, error) {
	path, args, err := o.find(name, args...)
	return path, args, false, err
}

func (o *SystemOpener) find(name string, args ...string) (string, []string, error) {
	path, err := o.LookPath(name)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s", ErrNoLauncher, name)
	}
	return path, args, nil
}

// Open starts the launcher for url and returns a handle on the launcher process.
func (o *SystemOpener) Open(url string) (Window, error) {
	name, args, browser, err := o.resolve()
	if err != nil {
		return nil, err
	}
	cmd := o.Command(name, append(args, url)...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	w := &processWindow{cmd: cmd, browser: browser, done: make(chan struct{})}
	go w.wait()
	return w, nil
}

// processWindow tracks a launcher process. A launcher that exits non-zero
// could not hand the URL to a browser. When browser is set the process is the
// browser itself and Close leaves it running.
type processWindow struct {
	cmd     *exec.Cmd
	browser bool
	done    chan struct{}

	mu      sync.Mutex
	exitErr error
}

func (w *processWindow) wait() {
	err := w.cmd.Wait()
	w.mu.Lock()
	w.exitErr = err
	w.mu.Unlock()
	close(w.done)
}

func (w *processWindow) Closed() (bool, bool) {
	select {
	case <-w.done:
	case <-time.After(launcherGrace):
		// still running: the launcher owns a live browser window
		return false, true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exitErr != nil, true
}

// Close stops a launcher that has not exited yet. The blank page it may have
// handed to the browser stays open; there is no handle on the tab.
func (w *processWindow) Close() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	if w.browser || w.cmd.Process == nil {
		return nil
	}
	if err := w.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
