package interaction

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/flowmap-core/internal/domain"
	"github.com/couchcryptid/flowmap-core/internal/geo"
	"github.com/couchcryptid/flowmap-core/internal/observability"
	"github.com/couchcryptid/flowmap-core/internal/state"
)

// ErrClosed is returned for events handled after Close.
var ErrClosed = errors.New("interaction coordinator is closed")

// DefaultHoverDelay is the quiet period before a hover tooltip first appears.
const DefaultHoverDelay = 500 * time.Millisecond

// flowTooltipRadius is the half size of the target box around the pointer.
const flowTooltipRadius = 5

// Dispatcher applies actions. *state.Store implements it.
type Dispatcher interface {
	Dispatch(a state.Action) state.State
	State() state.State
}

// Lookup resolves node names and totals for tooltips.
type Lookup interface {
	NodeByID(id string) (domain.Node, bool)
	LocationTotals(s state.State) (map[string]domain.Totals, bool)
}

// Options configures a Coordinator.
type Options struct {
	HoverDelay     time.Duration
	ViewportWidth  float64
	ViewportHeight float64
}

// Coordinator converts events into actions. Handlers and delayed callbacks
// dispatch under one mutex, so actions are applied in the order they were
// decided and nothing is dispatched after Close returns.
type Coordinator struct {
	dispatcher Dispatcher
	lookup     Lookup
	scheduler  Scheduler
	opts       Options
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu        sync.Mutex
	closed    bool
	highlight debouncer
	tooltip   debouncer
}

// NewCoordinator creates a coordinator.
func NewCoordinator(d Dispatcher, lookup Lookup, scheduler Scheduler, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Coordinator {
	if opts.HoverDelay <= 0 {
		opts.HoverDelay = DefaultHoverDelay
	}
	return &Coordinator{
		dispatcher: d,
		lookup:     lookup,
		scheduler:  scheduler,
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
		highlight:  debouncer{channel: "highlight"},
		tooltip:    debouncer{channel: "tooltip"},
	}
}

// Hover handles the pointer moving over a picking result.
func (c *Coordinator) Hover(info PickInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	switch info.Kind {
	case PickFlow:
		if info.Flow == nil {
			c.clearHover()
			return nil
		}
		f := *info.Flow
		c.dispatcher.Dispatch(state.SetHighlight{Highlight: state.FlowHighlight{Origin: f.Origin, Dest: f.Dest}})
		c.cancel(&c.highlight)
		c.showTooltip(state.Tooltip{
			Target:    boxAround(info.X, info.Y, flowTooltipRadius),
			Placement: state.PlacementTop,
			Content:   c.flowContent(f),
		})
	case PickLocation:
		if info.LocationID == "" {
			c.clearHover()
			return nil
		}
		c.schedule(&c.highlight, state.SetHighlight{Highlight: state.LocationHighlight{LocationID: info.LocationID}})
		c.showLocationTooltip(info)
	case PickLocationArea, PickNone:
		c.clearHover()
	default:
		panic(fmt.Sprintf("interaction: unhandled pick kind %v", info.Kind))
	}
	return nil
}

// Click handles a click on a picking result. With incremental set (a held
// modifier key) the location is toggled in the selection.
func (c *Coordinator) Click(info PickInfo, incremental bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	switch info.Kind {
	case PickLocation, PickLocationArea:
		if info.LocationID != "" {
			c.dispatcher.Dispatch(state.SelectLocation{LocationID: info.LocationID, Incremental: incremental})
		}
	case PickFlow, PickNone:
	default:
		panic(fmt.Sprintf("interaction: unhandled pick kind %v", info.Kind))
	}
	return nil
}

// KeyDown handles a key press anywhere on the page.
func (c *Coordinator) KeyDown(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if key == "Escape" {
		c.dispatcher.Dispatch(state.ClearSelection{})
	}
	return nil
}

// ViewStateChange is called on every frame of a pan or zoom gesture and is
// never delayed.
func (c *Coordinator) ViewStateChange(vs domain.ViewState) error {
	vs.Zoom = domain.ClampZoom(vs.Zoom)
	return c.dispatch(state.SetViewState{ViewState: vs})
}

// ZoomIn handles the zoom in button.
func (c *Coordinator) ZoomIn() error { return c.dispatch(state.ZoomIn{}) }

// ZoomOut handles the zoom out button.
func (c *Coordinator) ZoomOut() error { return c.dispatch(state.ZoomOut{}) }

// SelectLocations handles a selection change made in the search box.
func (c *Coordinator) SelectLocations(ids []string) error {
	return c.dispatch(state.SetSelectedLocations{LocationIDs: ids})
}

// Dispatch applies an action coming from a settings widget.
func (c *Coordinator) Dispatch(a state.Action) error { return c.dispatch(a) }

// MouseLeave hides the tooltip when the pointer leaves the map.
func (c *Coordinator) MouseLeave() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.hideTooltip()
	return nil
}

// Close cancels every pending delayed dispatch. Later events return ErrClosed.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel(&c.highlight)
	c.cancel(&c.tooltip)
}

func (c *Coordinator) dispatch(a state.Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.dispatcher.Dispatch(a)
	return nil
}

// clearHover drops highlight and tooltip without delay. c.mu must be held.
func (c *Coordinator) clearHover() {
	c.dispatcher.Dispatch(state.SetHighlight{})
	c.cancel(&c.highlight)
	c.hideTooltip()
}

func (c *Coordinator) hideTooltip() {
	c.dispatcher.Dispatch(state.SetTooltip{})
	c.cancel(&c.tooltip)
}

// showTooltip replaces a visible tooltip at once and delays the first one.
func (c *Coordinator) showTooltip(t state.Tooltip) {
	if c.dispatcher.State().Tooltip != nil {
		c.dispatcher.Dispatch(state.SetTooltip{Tooltip: &t})
		c.cancel(&c.tooltip)
		return
	}
	c.schedule(&c.tooltip, state.SetTooltip{Tooltip: &t})
}

func (c *Coordinator) showLocationTooltip(info PickInfo) {
	node, ok := c.lookup.NodeByID(info.LocationID)
	if !ok {
		c.logger.Debug("hovered location not found", "location_id", info.LocationID)
		c.hideTooltip()
		return
	}
	s := c.dispatcher.State()
	centroid := node.Centroid()
	vp := geo.Viewport{ViewState: s.ViewState, Width: c.opts.ViewportWidth, Height: c.opts.ViewportHeight}
	x, y := vp.Project(centroid.Lon(), centroid.Lat())

	content := state.LocationTooltipContent{LocationID: node.NodeID(), Name: node.NodeName()}
	if totals, ok := c.lookup.LocationTotals(s); ok {
		content.Totals = totals[node.NodeID()]
	}
	c.showTooltip(state.Tooltip{
		Target:    boxAround(x, y, info.CircleRadius+5),
		Placement: state.PlacementTop,
		Content:   content,
	})
}

func (c *Coordinator) flowContent(f domain.Flow) state.FlowTooltipContent {
	return state.FlowTooltipContent{
		Origin:     f.Origin,
		OriginName: c.nodeName(f.Origin),
		Dest:       f.Dest,
		DestName:   c.nodeName(f.Dest),
		Count:      f.Count,
	}
}

func (c *Coordinator) nodeName(id string) string {
	if n, ok := c.lookup.NodeByID(id); ok {
		return n.NodeName()
	}
	return id
}

// schedule replaces the pending call of d with a delayed dispatch of a.
func (c *Coordinator) schedule(d *debouncer, a state.Action) {
	c.cancel(d)
	gen := d.gen
	d.handle = c.scheduler.Schedule(c.opts.HoverDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || d.gen != gen {
			return
		}
		d.handle = nil
		c.dispatcher.Dispatch(a)
	})
}

func (c *Coordinator) cancel(d *debouncer) {
	if d.cancel() {
		c.metrics.DebounceCancelled.WithLabelValues(d.channel).Inc()
	}
}

func boxAround(x, y, r float64) state.Bounds {
	return state.Bounds{Left: x - r, Top: y - r, Width: 2 * r, Height: 2 * r}
}
