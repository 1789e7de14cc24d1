// Package layout implements the force-directed simulation that settles
// unpinned nodes.
//
// Every [Simulation.Step] reads all node positions into a snapshot first
// and computes forces from that snapshot only, then writes the new
// positions in one pass. The result of a step therefore does not depend
// on slot order, and anything that runs after the step (anchor
// resolution, rendering) sees positions from a single tick.
//
// Pinned nodes exert forces but never move. Detached links are ignored.
//
// The simulation cools down: alpha decays geometrically each step and the
// simulation stops on its own once alpha drops below AlphaMin. Stop and
// Resume are the only scheduling controls; resuming a running simulation
// is a no-op.
package layout

import (
	"time"

	"github.com/matzehuels/petrisync/pkg/diagram"
	"github.com/matzehuels/petrisync/pkg/geom"
	"github.com/matzehuels/petrisync/pkg/observability"
)

// Params are the physical constants of the simulation.
type Params struct {
	// LinkDistance is the rest length of an arc.
	LinkDistance float64
	// LinkStrength scales the spring force of arcs.
	LinkStrength float64
	// Charge is the pairwise node force; negative values repel.
	Charge float64
	// Gravity pulls nodes toward Center.
	Gravity float64
	// Friction scales velocity after each step (0 freezes, 1 never damps).
	Friction float64
	// AlphaDecay is the fraction of alpha lost per step.
	AlphaDecay float64
	// AlphaMin is the temperature below which the simulation stops.
	AlphaMin float64
	// Reheat is the temperature Resume restores after a cool-down.
	Reheat float64
	// Center is the gravity well, normally the canvas origin.
	Center geom.Point
	// Interval is the wall-clock time between ticks.
	Interval time.Duration
}

// DefaultParams returns constants that settle a few dozen nodes in about
// five seconds at 60 ticks per second.
func DefaultParams() Params {
	return Params{
		LinkDistance: 90,
		LinkStrength: 0.5,
		Charge:       -300,
		Gravity:      0.05,
		Friction:     0.6,
		AlphaDecay:   0.0228,
		AlphaMin:     0.001,
		Reheat:       0.3,
		Interval:     16 * time.Millisecond,
	}
}

// Simulation holds the scheduling state of the layout.
type Simulation struct {
	p       Params
	alpha   float64
	running bool
	ticks   int
	prev    []geom.Point
	force   []geom.Point
}

// New returns a stopped simulation.
func New(p Params) *Simulation {
	def := DefaultParams()
	if p.Friction <= 0 || p.Friction > 1 {
		p.Friction = def.Friction
	}
	if p.AlphaDecay <= 0 || p.AlphaDecay >= 1 {
		p.AlphaDecay = def.AlphaDecay
	}
	if p.AlphaMin <= 0 {
		p.AlphaMin = def.AlphaMin
	}
	if p.Reheat <= 0 {
		p.Reheat = def.Reheat
	}
	if p.Interval <= 0 {
		p.Interval = def.Interval
	}
	return &Simulation{p: p}
}

// Params returns the simulation constants.
func (s *Simulation) Params() Params { return s.p }

// Start heats the simulation to alpha 1 and runs it.
func (s *Simulation) Start() {
	s.alpha = 1
	s.running = true
}

// Stop suspends ticking without changing alpha.
func (s *Simulation) Stop() { s.running = false }

// Resume continues a stopped simulation, reheating it if it had cooled
// down. It reports whether anything changed.
func (s *Simulation) Resume() bool {
	if s.running {
		return false
	}
	if s.alpha < s.p.Reheat {
		s.alpha = s.p.Reheat
	}
	s.running = true
	return true
}

// Running reports whether ticks should be scheduled.
func (s *Simulation) Running() bool { return s.running }

// Alpha returns the current temperature.
func (s *Simulation) Alpha() float64 { return s.alpha }

// Ticks returns the number of steps taken since creation.
func (s *Simulation) Ticks() int { return s.ticks }

// Step advances every unpinned node of st by one tick and cools the
// simulation. It returns false once the simulation has settled. Step
// integrates even when the simulation is stopped; scheduling is the
// caller's business.
func (s *Simulation) Step(st *diagram.State) bool {
	start := time.Now()
	nodes := st.Nodes.Items()
	s.snapshot(nodes)

	s.applyCharge()
	s.applyLinks(st)
	s.applyGravity()

	for i, n := range nodes {
		if n.Pinned {
			n.Velocity = geom.Point{}
			continue
		}
		n.Velocity = n.Velocity.Add(s.force[i]).Scale(s.p.Friction)
		n.Position = s.prev[i].Add(n.Velocity)
	}

	s.alpha -= s.alpha * s.p.AlphaDecay
	s.ticks++
	observability.Layout().OnTick(len(nodes), s.alpha, time.Since(start))
	if s.alpha < s.p.AlphaMin {
		if s.running {
			observability.Layout().OnSettled(s.ticks)
		}
		s.running = false
		return false
	}
	return true
}

func (s *Simulation) snapshot(nodes []*diagram.Node) {
	s.prev = s.prev[:0]
	s.force = s.force[:0]
	for _, n := range nodes {
		s.prev = append(s.prev, n.Position)
		s.force = append(s.force, geom.Point{})
	}
}

func (s *Simulation) applyCharge() {
	if s.p.Charge == 0 {
		return
	}
	k := s.p.Charge * s.alpha
	for i := range s.prev {
		for j := i + 1; j < len(s.prev); j++ {
			d := separation(s.prev[i], s.prev[j], i, j)
			l2 := d.X*d.X + d.Y*d.Y
			if l2 < 1 {
				l2 = 1
			}
			f := d.Scale(k / l2)
			s.force[i] = s.force[i].Add(f)
			s.force[j] = s.force[j].Sub(f)
		}
	}
}

func (s *Simulation) applyLinks(st *diagram.State) {
	if s.p.LinkStrength == 0 {
		return
	}
	for _, l := range st.Links.Items() {
		if st.Detached(l) || l.Source == l.Target {
			continue
		}
		si, _ := st.Nodes.Index(l.Source.ID)
		ti, _ := st.Nodes.Index(l.Target.ID)
		d := separation(s.prev[si], s.prev[ti], si, ti)
		length := d.Len()
		k := (length - s.p.LinkDistance) / length * s.alpha * s.p.LinkStrength
		shift := d.Scale(k / 2)
		s.force[si] = s.force[si].Add(shift)
		s.force[ti] = s.force[ti].Sub(shift)
	}
}

func (s *Simulation) applyGravity() {
	if s.p.Gravity == 0 {
		return
	}
	k := s.p.Gravity * s.alpha
	for i, p := range s.prev {
		s.force[i] = s.force[i].Add(s.p.Center.Sub(p).Scale(k))
	}
}

// separation returns b-a, nudged apart when the points coincide so that
// stacked nodes still push each other in a stable direction.
func separation(a, b geom.Point, i, j int) geom.Point {
	d := b.Sub(a)
	if d.X == 0 && d.Y == 0 {
		d.X = 0.01 * float64(j-i)
		d.Y = 0.005 * float64(j-i)
	}
	return d
}
