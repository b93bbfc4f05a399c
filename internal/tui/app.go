package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jask/credawallet/internal/chain"
	"github.com/jask/credawallet/internal/database/repository"
	"github.com/jask/credawallet/internal/flow"
	"github.com/jask/credawallet/internal/session"
	"github.com/jask/credawallet/internal/views"
)

// Wallet is the read side the dashboard renders.
type Wallet interface {
	Balances(ctx context.Context) (map[string]decimal.Decimal, error)
	DepositAddress(ctx context.Context) (string, error)
}

// Mode is one wallet backend with its own navigation state.
type Mode struct {
	Views    *views.Controller
	Wallet   Wallet
	Activity *repository.ActivityRepo
}

// Options wires the App. Session is nil when the app runs demo-only, or when
// Setup holds the configuration problem that keeps sign-in unavailable.
type Options struct {
	Session *session.Controller
	Live    Mode
	Demo    Mode
	// Setup and SetupSteps are shown on the login screen in place of sign-in.
	Setup      error
	SetupSteps []string
	Chain      chain.Chain
	Currency   string
	Logger     zerolog.Logger
}

// App ties together views.
type App struct {
	ctx  context.Context
	opts Options
	log  zerolog.Logger

	state   appState
	demo    bool
	mode    Mode
	gen     int
	session session.Session

	balances map[string]decimal.Decimal
	address  string
	activity []repository.Activity
	form     *form
	spin     spinner.Model
	status   string
}

type appState string

const (
	stateLogin  appState = "login"
	stateWallet appState = "wallet"
)

// New builds the App. A restored session starts on the dashboard.
func New(ctx context.Context, opts Options) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(accent)

	a := &App{
		ctx:  ctx,
		opts: opts,
		log:  opts.Logger.With().Str("component", "tui").Logger(),
		spin: sp,
	}
	if a.opts.Currency == "" {
		a.opts.Currency = "$"
	}
	switch {
	case opts.Session == nil && opts.Setup != nil:
		a.state = stateLogin
	case opts.Session == nil:
		a.enterMode(opts.Demo, true)
	default:
		a.session = opts.Session.CurrentStatus()
		if a.session.Status == session.StatusAuthenticated {
			a.enterMode(opts.Live, false)
		} else {
			a.state = stateLogin
		}
	}
	return a
}

func (a *App) Init() tea.Cmd {
	if a.state == stateWallet {
		return a.refresh()
	}
	return nil
}

func (a *App) enterMode(m Mode, demo bool) {
	a.state = stateWallet
	a.mode = m
	a.demo = demo
	a.gen++
	a.balances, a.address, a.activity, a.form = nil, "", nil, nil
}

func (a *App) refresh() tea.Cmd {
	return tea.Batch(a.loadWallet(), a.loadActivity())
}

func (a *App) loadWallet() tea.Cmd {
	gen, w := a.gen, a.mode.Wallet
	return func() tea.Msg {
		if w == nil {
			return walletMsg{gen: gen}
		}
		bals, err := w.Balances(a.ctx)
		if err != nil {
			return walletMsg{gen: gen, err: err}
		}
		addr, err := w.DepositAddress(a.ctx)
		return walletMsg{gen: gen, balances: bals, address: addr, err: err}
	}
}

func (a *App) loadActivity() tea.Cmd {
	gen, repo := a.gen, a.mode.Activity
	return func() tea.Msg {
		if repo == nil {
			return activityMsg{gen: gen}
		}
		list, err := repo.List(a.ctx, repository.ActivityFilters{Limit: 5})
		if err != nil {
			return errMsg{err}
		}
		return activityMsg{gen: gen, list: list}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		if m.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.state == stateLogin {
			return a.handleLoginKey(m)
		}
		if a.screen() != views.Dashboard {
			return a.handleFormKey(m)
		}
		return a.handleDashboardKey(m)
	case loginMsg:
		a.session = m.session
		if errors.Is(m.err, session.ErrLoginSuperseded) || a.state != stateLogin {
			return a, nil
		}
		if a.session.Status == session.StatusAuthenticated {
			a.status = ""
			a.enterMode(a.opts.Live, false)
			return a, a.refresh()
		}
	case signedOutMsg:
		a.session = a.opts.Session.CurrentStatus()
		a.state = stateLogin
		a.form = nil
		a.status = ""
		if m.err != nil {
			a.status = "signed out locally; the provider session could not be revoked"
		}
	case walletMsg:
		if m.gen != a.gen {
			return a, nil
		}
		if m.err != nil {
			a.log.Warn().Err(m.err).Msg("wallet refresh failed")
			a.status = "could not load wallet, press r to retry"
			return a, nil
		}
		a.balances, a.address = m.balances, m.address
	case activityMsg:
		if m.gen == a.gen {
			a.activity = m.list
		}
	case submitMsg:
		return a.handleSubmitDone(m)
	case spinner.TickMsg:
		if a.form == nil || !a.form.submitting {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(m)
		return a, cmd
	case errMsg:
		a.status = "error: " + m.Error()
	}
	return a, nil
}

// hasLogin reports whether the demo can go back to a login screen.
func (a *App) hasLogin() bool {
	return a.opts.Session != nil || a.opts.Setup != nil
}

// screen is the active view of the current mode.
func (a *App) screen() views.View {
	if a.state != stateWallet || a.mode.Views == nil {
		return views.Dashboard
	}
	return a.mode.Views.Current()
}

func (a *App) handleLoginKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q":
		return a, tea.Quit
	case "enter", "l":
		if a.opts.Session == nil {
			a.status = "sign-in needs the configuration fixed first"
			return a, nil
		}
		switch a.session.Status {
		case session.StatusAuthenticating:
			return a, nil
		case session.StatusAuthenticated:
			a.enterMode(a.opts.Live, false)
			return a, a.refresh()
		}
		a.session.Status = session.StatusAuthenticating
		a.session.ErrorKind = session.ErrorNone
		return a, a.loginCmd()
	case "d":
		if a.opts.Demo.Views == nil {
			return a, nil
		}
		a.enterMode(a.opts.Demo, true)
		a.status = "demo wallet: nothing here touches a real account"
		return a, a.refresh()
	}
	return a, nil
}

func (a *App) handleDashboardKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q":
		return a, tea.Quit
	case "d":
		return a.startFlow(a.mode.Views.StartDeposit)
	case "s":
		return a.startFlow(a.mode.Views.StartSend)
	case "r":
		a.status = "refreshing..."
		return a, a.refresh()
	case "o":
		if a.demo {
			if !a.hasLogin() {
				return a, nil
			}
			a.mode.Views.Reset()
			a.state = stateLogin
			a.status = ""
			return a, nil
		}
		a.status = "signing out..."
		return a, a.signOutCmd()
	}
	return a, nil
}

func (a *App) startFlow(start func() (*flow.Flow, error)) (tea.Model, tea.Cmd) {
	f, err := start()
	if err != nil {
		a.status = err.Error()
		return a, nil
	}
	a.status = ""
	a.form = newForm(f)
	return a, a.form.focusCmd()
}

func (a *App) handleFormKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	fm := a.form
	if active := a.mode.Views.Active(); fm == nil || fm.flow != active {
		if active == nil {
			a.mode.Views.Back()
			a.form = nil
			return a, nil
		}
		a.form = newForm(active)
		return a, a.form.focusCmd()
	}
	switch m.String() {
	case "esc":
		a.mode.Views.Back()
		a.form = nil
		a.status = "cancelled"
		return a, nil
	case "enter":
		if fm.submitting {
			return a, nil
		}
		if err := fm.apply(); err != nil {
			a.status = err.Error()
			return a, nil
		}
		fm.submitting = true
		fm.clearErrors()
		return a, tea.Batch(a.submitCmd(fm.flow), a.spin.Tick)
	case "tab", "down":
		return a, fm.move(1)
	case "shift+tab", "up":
		return a, fm.move(-1)
	}
	if fm.submitting {
		return a, nil
	}
	return a, fm.updateInput(m)
}

func (a *App) handleSubmitDone(m submitMsg) (tea.Model, tea.Cmd) {
	fm := a.form
	if fm == nil || fm.flow.ID() != m.flowID {
		a.log.Debug().Str("intent", m.flowID).Msg("result for inactive flow dropped")
		return a, nil
	}
	fm.submitting = false

	var verr *flow.ValidationError
	var terr *flow.TransferError
	switch {
	case m.err == nil:
		a.form = nil
		a.status = fmt.Sprintf("%s of %s confirmed", kindLabel(m.intent.Kind), a.formatAmount(m.intent.Asset, m.intent.Amount))
		return a, a.refresh()
	case errors.As(m.err, &verr):
		fm.fieldErrs[verr.Field] = verr.Reason
	case errors.As(m.err, &terr):
		fm.failure = terr.Reason
		return a, a.loadActivity()
	case errors.Is(m.err, flow.ErrFlowClosed):
		a.form = nil
	default:
		fm.failure = "could not check your balance, try again"
		a.log.Warn().Err(m.err).Msg("submit failed before execution")
	}
	return a, nil
}

func (a *App) View() string {
	var body string
	switch {
	case a.state == stateLogin:
		body = a.renderLogin()
	case a.screen() == views.Dashboard:
		body = a.renderDashboard()
	default:
		body = a.renderForm()
	}
	if a.status != "" {
		body += "\n" + mutedStyle.Render(a.status)
	}
	return body
}

// commands
func (a *App) loginCmd() tea.Cmd {
	sess := a.opts.Session
	return func() tea.Msg {
		s, err := sess.BeginLogin(a.ctx)
		return loginMsg{session: s, err: err}
	}
}

func (a *App) signOutCmd() tea.Cmd {
	sess := a.opts.Session
	return func() tea.Msg {
		return signedOutMsg{err: sess.SignOut(a.ctx)}
	}
}

func (a *App) submitCmd(f *flow.Flow) tea.Cmd {
	return func() tea.Msg {
		in, err := f.Submit(a.ctx)
		return submitMsg{flowID: f.ID(), intent: in, err: err}
	}
}

// messages
type loginMsg struct {
	session session.Session
	err     error
}

type signedOutMsg struct{ err error }

type walletMsg struct {
	gen      int
	balances map[string]decimal.Decimal
	address  string
	err      error
}

type activityMsg struct {
	gen  int
	list []repository.Activity
}

type submitMsg struct {
	flowID string
	intent flow.Intent
	err    error
}

type errMsg struct{ error }

func (a *App) sortedAssets() []string {
	out := make([]string, 0, len(a.balances))
	for k := range a.balances {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (a *App) formatAmount(asset string, amount decimal.Decimal) string {
	asset = strings.ToLower(asset)
	if isStable(asset) {
		return a.opts.Currency + amount.StringFixed(2) + " " + strings.ToUpper(asset)
	}
	return amount.String() + " " + strings.ToUpper(asset)
}

func isStable(asset string) bool {
	switch asset {
	case "usdc", "usdt", "usdxm":
		return true
	}
	return false
}

func kindLabel(k flow.Kind) string {
	if k == flow.KindSend {
		return "Send"
	}
	return "Deposit"
}
