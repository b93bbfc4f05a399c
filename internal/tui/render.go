package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jask/credawallet/internal/flow"
	"github.com/jask/credawallet/internal/session"
)

// styles
var (
	accent      = lipgloss.Color("#7D56F4")
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	badgeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(accent).Padding(0, 1)
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1).Width(30)
	numberStyle = lipgloss.NewStyle().Bold(true)
)

type product struct {
	title string
	blurb string
}

var newProducts = []product{
	{"Get your card", "Spend your balance anywhere cards are accepted."},
	{"Earn yield", "Up to 3.15% APY on your stablecoins."},
}

func (a *App) renderLogin() string {
	if a.opts.Session == nil {
		return a.renderSetup()
	}
	title := titleStyle.Render("credawallet")
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n", title, session.UserMessage(a.session))
	fmt.Fprintf(&b, "Chain: %s   Sign-in origin: %s\n", a.opts.Chain.Name, a.session.Origin)

	if steps := a.opts.Session.Remediation(a.session); len(steps) > 0 {
		b.WriteString("\n" + errorStyle.Render("How to fix this:") + "\n")
		for i, step := range steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}

	switch a.session.Status {
	case session.StatusAuthenticating:
		b.WriteString("\n[d] Demo  [q] Quit")
	case session.StatusError:
		b.WriteString("\n[enter] Try again  [d] Demo  [q] Quit")
	default:
		b.WriteString("\n[enter] Sign in  [d] Demo  [q] Quit")
	}
	return b.String()
}

// renderSetup is the login screen when the configuration rules out sign-in.
func (a *App) renderSetup() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("credawallet") + "\n")
	b.WriteString("Sign-in is not available until the configuration is fixed.\n")
	if a.opts.Setup != nil {
		for _, line := range strings.Split(a.opts.Setup.Error(), "\n") {
			b.WriteString(errorStyle.Render(line) + "\n")
		}
	}
	if len(a.opts.SetupSteps) > 0 {
		b.WriteString("\nHow to fix this:\n")
		for i, step := range a.opts.SetupSteps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}
	b.WriteString("\n[d] Demo  [q] Quit")
	return b.String()
}

func (a *App) renderDashboard() string {
	heading := "Dashboard"
	if a.opts.Chain.Name != "" {
		heading += " - " + a.opts.Chain.Name
	}
	title := titleStyle.Render(heading)
	if a.demo {
		title += " " + badgeStyle.Render("DEMO")
	}

	var b strings.Builder
	b.WriteString(title + "\n")
	if a.address != "" {
		fmt.Fprintf(&b, "Wallet: %s\n", shortAddress(a.address))
	}

	b.WriteString("\nBalances:")
	if len(a.balances) == 0 {
		b.WriteString("\n  " + mutedStyle.Render("loading..."))
	}
	for _, asset := range a.sortedAssets() {
		fmt.Fprintf(&b, "\n  %-8s %s", strings.ToUpper(asset), numberStyle.Render(a.formatAmount(asset, a.balances[asset])))
	}

	cards := make([]string, 0, len(newProducts))
	for _, p := range newProducts {
		cards = append(cards, cardStyle.Render(p.title+"\n"+mutedStyle.Render(p.blurb)+"\nComing soon"))
	}
	b.WriteString("\n\nNew products\n" + lipgloss.JoinHorizontal(lipgloss.Top, cards...))

	b.WriteString("\n\nRecent activity:")
	if len(a.activity) == 0 {
		b.WriteString("\n  " + mutedStyle.Render("No activity yet"))
	}
	for _, act := range a.activity {
		line := fmt.Sprintf("%-8s %s %s  %s", act.Kind, act.Amount, strings.ToUpper(act.Asset), act.Status)
		if act.TargetAddress != nil {
			line += "  to " + shortAddress(*act.TargetAddress)
		}
		if act.Failure != nil {
			line += "  (" + *act.Failure + ")"
		}
		b.WriteString("\n  " + line)
	}

	signOut := "[o] Sign out"
	if a.demo {
		signOut = "[o] Exit demo"
		if !a.hasLogin() {
			signOut = ""
		}
	}
	fmt.Fprintf(&b, "\n\n[d] Deposit  [s] Send  [r] Refresh  %s [q] Quit", signOut)
	return b.String()
}

func (a *App) renderForm() string {
	fm := a.form
	if fm == nil {
		return titleStyle.Render(string(a.screen()))
	}
	in := fm.flow.Intent()
	title := titleStyle.Render(kindLabel(fm.flow.Kind()) + " " + strings.ToUpper(in.Asset))

	var b strings.Builder
	b.WriteString(title + "\n")
	if fm.flow.Kind() == flow.KindDeposit && a.address != "" {
		fmt.Fprintf(&b, "Deposit address: %s\n", a.address)
	}
	if bal, ok := a.balances[in.Asset]; ok {
		fmt.Fprintf(&b, "Available: %s\n", a.formatAmount(in.Asset, bal))
	}
	for i, input := range fm.inputs {
		b.WriteString("\n" + input.View())
		if reason := fm.fieldErrs[fm.fields[i]]; reason != "" {
			b.WriteString("  " + errorStyle.Render(reason))
		}
	}
	b.WriteString("\n")

	switch {
	case fm.submitting:
		b.WriteString("\n" + a.spin.View() + " submitting...")
	case fm.failure != "":
		b.WriteString("\n" + errorStyle.Render("Failed: "+fm.failure))
		b.WriteString("\n[enter] Retry  [esc] Back")
	default:
		b.WriteString("\n[enter] Submit  [tab] Next field  [esc] Back")
	}
	return b.String()
}

func shortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
