package session

import "fmt"

// UserMessage is the short line shown for s. It never includes provider
// diagnostics.
func UserMessage(s Session) string {
	switch s.Status {
	case StatusAuthenticating:
		return "Waiting for you to finish signing in in your browser..."
	case StatusAuthenticated:
		return "Signed in."
	case StatusError:
		if s.ErrorKind == ErrorPopupBlocked {
			return "The sign-in window could not be opened."
		}
		return "Sign-in did not complete. Please try again."
	default:
		return "Sign in to view your wallet."
	}
}

// Remediation lists the steps that fix the failure in s, nil when there is
// nothing to fix. The demo wallet is always offered as a way out.
func (c *Controller) Remediation(s Session) []string {
	origin := s.Origin
	if origin == "" {
		origin = c.cfg.Origin
	}
	console := c.cfg.ConsoleURL
	if console == "" {
		console = "the provider console"
	}

	switch s.ErrorKind {
	case ErrorPopupBlocked:
		return []string{
			"Allow this terminal to open a browser window: run it in a desktop session or set $BROWSER to your browser command.",
			fmt.Sprintf("Add %s to the allowed origins of your API key in %s.", origin, console),
			fmt.Sprintf("Check that the API key and chain %q match the project in the console.", c.cfg.ChainID),
			"Or press d to open the demo wallet, which needs no sign-in.",
		}
	case ErrorProviderFailure:
		return []string{
			"Press enter to try signing in again.",
			fmt.Sprintf("If it keeps failing, confirm %s is an allowed origin in %s.", origin, console),
			"Or press d to open the demo wallet, which needs no sign-in.",
		}
	}
	return nil
}
