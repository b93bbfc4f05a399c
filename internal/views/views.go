// Package views holds the navigation state between the dashboard and the
// deposit and send flows.
package views

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jask/credawallet/internal/flow"
)

// View is the screen shown after sign-in.
type View string

const (
	Dashboard View = "dashboard"
	Deposit   View = "deposit"
	Send      View = "send"
)

var (
	ErrNotOnDashboard   = errors.New("views: flows start from the dashboard")
	ErrNotAuthenticated = errors.New("views: sign in to continue")
)

// Gate reports whether flows may be started. The session controller backs it
// in the real app; the demo passes Open.
type Gate func() bool

// Open is a Gate that always allows flows.
func Open() bool { return true }

// FlowFactory builds a fresh flow of kind. onComplete must be passed through
// as the flow's completion callback.
type FlowFactory func(kind flow.Kind, onComplete func()) *flow.Flow

// Controller is the only owner of the current View. At most one flow is
// active, and deposit and send are never active together.
type Controller struct {
	gate    Gate
	newFlow FlowFactory
	log     zerolog.Logger

	mu     sync.Mutex
	view   View
	active *flow.Flow
	seq    uint64
	// activeSeq identifies the flow instance that may complete.
	activeSeq uint64
}

func New(gate Gate, factory FlowFactory, logger zerolog.Logger) *Controller {
	if gate == nil {
		gate = Open
	}
	return &Controller{
		gate:    gate,
		newFlow: factory,
		log:     logger.With().Str("component", "views").Logger(),
		view:    Dashboard,
	}
}

// Current returns the active view.
func (c *Controller) Current() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Active returns the flow behind the current view, nil on the dashboard.
func (c *Controller) Active() *flow.Flow {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// StartDeposit moves from the dashboard to a fresh deposit flow.
func (c *Controller) StartDeposit() (*flow.Flow, error) {
	return c.start(Deposit, flow.KindDeposit)
}

// StartSend moves from the dashboard to a fresh send flow.
func (c *Controller) StartSend() (*flow.Flow, error) {
	return c.start(Send, flow.KindSend)
}

func (c *Controller) start(to View, kind flow.Kind) (*flow.Flow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view != Dashboard {
		return nil, ErrNotOnDashboard
	}
	if !c.gate() {
		return nil, ErrNotAuthenticated
	}

	c.seq++
	seq := c.seq
	f := c.newFlow(kind, func() { c.complete(seq) })
	c.view, c.active, c.activeSeq = to, f, seq
	c.log.Info().Str("view", string(to)).Str("intent", f.ID()).Msg("view changed")
	return f, nil
}

// Back returns to the dashboard, abandoning the active flow. A draft intent
// is discarded.
func (c *Controller) Back() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaveLocked("back")
}

// Reset abandons any flow and shows the dashboard. It runs on sign-out.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaveLocked("reset")
}

// complete is the flow's onComplete. Only the first call for the active,
// confirmed flow has an effect.
func (c *Controller) complete(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil || seq != c.activeSeq {
		return
	}
	if c.active.Intent().Status != flow.StatusConfirmed {
		c.log.Warn().Str("intent", c.active.ID()).Msg("completion ignored for unconfirmed intent")
		return
	}
	c.log.Info().Str("intent", c.active.ID()).Msg("flow completed")
	c.view, c.active, c.activeSeq = Dashboard, nil, 0
}

func (c *Controller) leaveLocked(reason string) {
	if c.view == Dashboard {
		return
	}
	if c.active != nil {
		in := c.active.Abandon()
		c.log.Info().Str("intent", in.ID).Str("status", string(in.Status)).Str("reason", reason).Msg("flow abandoned")
	}
	c.view, c.active, c.activeSeq = Dashboard, nil, 0
}
