// Package popup detects whether the desktop will let the app open a browser
// window before a real login window is attempted.
package popup

import (
	"fmt"
)

// BlankURL is what the probe opens. It loads nothing.
const BlankURL = "about:blank"

// Window is a handle to a window the Opener created.
type Window interface {
	// Closed reports whether the window is already gone. known is false when
	// the platform cannot tell, which is how some launchers signal a block.
	Closed() (closed bool, known bool)
	Close() error
}

// Opener opens a browser window for url.
type Opener interface {
	Open(url string) (Window, error)
}

// Result is the outcome of one probe. It is computed per login attempt and
// not kept.
type Result struct {
	Blocked bool
	Reason  string
}

// Prober runs Probe against a fixed Opener.
type Prober struct {
	Opener Opener
}

// Probe runs Probe(p.Opener).
func (p Prober) Probe() Result {
	return Probe(p.Opener)
}

// Probe opens a throwaway window, checks that it stayed open, and closes it.
// It never panics and never returns an error; a missing capability is
// reported as Blocked. The window is closed on every path before Probe returns.
func Probe(opener Opener) (res Result) {
	if opener == nil {
		return Result{Blocked: true, Reason: "no window opener configured"}
	}

	var w Window
	defer func() {
		if r := recover(); r != nil {
			res = Result{Blocked: true, Reason: fmt.Sprintf("probe panicked: %v", r)}
		}
		if w != nil {
			_ = w.Close()
		}
	}()

	w, err := opener.Open(BlankURL)
	if err != nil {
		return Result{Blocked: true, Reason: err.Error()}
	}
	if w == nil {
		return Result{Blocked: true, Reason: "window was not created"}
	}
	closed, known := w.Closed()
	switch {
	case !known:
		return Result{Blocked: true, Reason: "window state unknown"}
	case closed:
		return Result{Blocked: true, Reason: "window closed immediately"}
	}
	return Result{}
}
