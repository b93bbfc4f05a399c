package popup

import (
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeWindow struct {
	closed, known bool
	panicOnState  bool
	closeCalls    int
}

func (w *fakeWindow) Closed() (bool, bool) {
	if w.panicOnState {
		panic("window gone")
	}
	return w.closed, w.known
}

func (w *fakeWindow) Close() error {
	w.closeCalls++
	return nil
}

type fakeOpener struct {
	win  *fakeWindow
	err  error
	nilW bool
	urls []string
}

func (o *fakeOpener) Open(url string) (Window, error) {
	o.urls = append(o.urls, url)
	if o.err != nil {
		return nil, o.err
	}
	if o.nilW {
		return nil, nil
	}
	return o.win, nil
}

func TestProbeAllowed(t *testing.T) {
	w := &fakeWindow{known: true}
	o := &fakeOpener{win: w}
	res := Prober{Opener: o}.Probe()
	require.False(t, res.Blocked)
	require.Equal(t, []string{BlankURL}, o.urls)
	require.Equal(t, 1, w.closeCalls)
}

func TestProbeBlockedCases(t *testing.T) {
	cases := []struct {
		name       string
		opener     Opener
		wantClosed int
		win        *fakeWindow
	}{
		{name: "open error", opener: &fakeOpener{err: errors.New("denied")}},
		{name: "nil window", opener: &fakeOpener{nilW: true}},
		{name: "closed", win: &fakeWindow{closed: true, known: true}, wantClosed: 1},
		{name: "state unknown", win: &fakeWindow{known: false}, wantClosed: 1},
		{name: "panics", win: &fakeWindow{panicOnState: true}, wantClosed: 1},
		{name: "no opener"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opener := tc.opener
			if tc.win != nil {
				opener = &fakeOpener{win: tc.win}
			}
			res := Probe(opener)
			require.True(t, res.Blocked)
			require.NotEmpty(t, res.Reason)
			if tc.win != nil {
				require.Equal(t, tc.wantClosed, tc.win.closeCalls)
			}
		})
	}
}

func TestSystemOpenerHeadlessLinux(t *testing.T) {
	o := &SystemOpener{
		GOOS:     "linux",
		Getenv:   func(string) string { return "" },
		LookPath: func(string) (string, error) { return "/usr/bin/xdg-open", nil },
		Command:  exec.Command,
	}
	res := Probe(o)
	require.True(t, res.Blocked)
	require.Contains(t, res.Reason, ErrNoDisplay.Error())
}

func TestSystemOpenerMissingLauncher(t *testing.T) {
	o := &SystemOpener{
		GOOS:     "linux",
		Getenv:   func(k string) string { return map[string]string{"DISPLAY": ":0"}[k] },
		LookPath: func(string) (string, error) { return "", exec.ErrNotFound },
		Command:  exec.Command,
	}
	_, _, err := o.Launcher()
	require.ErrorIs(t, err, ErrNoLauncher)
}

func TestSystemOpenerLauncherExitCode(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	opener := func(script string) *SystemOpener {
		return &SystemOpener{
			GOOS:     "linux",
			Getenv:   func(k string) string { return map[string]string{"DISPLAY": ":0"}[k] },
			LookPath: func(string) (string, error) { return sh, nil },
			Command: func(string, ...string) *exec.Cmd {
				return exec.Command(sh, "-c", script)
			},
		}
	}

	require.False(t, Probe(opener("exit 0")).Blocked)
	require.True(t, Probe(opener("exit 3")).Blocked)
}

func TestSystemOpenerBrowserEnv(t *testing.T) {
	o := &SystemOpener{
		GOOS:   "linux",
		Getenv: func(k string) string { return map[string]string{"BROWSER": "firefox --new-window"}[k] },
	}
	name, args, err := o.Launcher()
	require.NoError(t, err)
	require.Equal(t, "firefox", name)
	require.Equal(t, []string{"--new-window"}, args)
}

func TestSystemOpenerCloseSparesBrowser(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	opener := func(env map[string]string) *SystemOpener {
		return &SystemOpener{
			GOOS:     "linux",
			Getenv:   func(k string) string { return env[k] },
			LookPath: func(string) (string, error) { return sh, nil },
			Command: func(string, ...string) *exec.Cmd {
				return exec.Command(sh, "-c", "sleep 30")
			},
		}
	}

	// $BROWSER names the browser binary: closing must not kill it
	win, err := opener(map[string]string{"BROWSER": "firefox"}).Open(BlankURL)
	require.NoError(t, err)
	pw := win.(*processWindow)
	t.Cleanup(func() { _ = pw.cmd.Process.Kill() })
	require.True(t, pw.browser)
	require.NoError(t, pw.Close())
	select {
	case <-pw.done:
		t.Fatal("browser process was killed")
	case <-time.After(100 * time.Millisecond):
	}

	// a launcher such as xdg-open is stopped
	win, err = opener(map[string]string{"DISPLAY": ":0"}).Open(BlankURL)
	require.NoError(t, err)
	lw := win.(*processWindow)
	require.False(t, lw.browser)
	require.NoError(t, lw.Close())
	select {
	case <-lw.done:
	case <-time.After(5 * time.Second):
		t.Fatal("launcher still running after Close")
	}
}
