// SPDX-License-Identifier: EPL-2.0

// Package bus implements a hierarchical gain-and-duck graph: a tree of
// named buses with per-bus user gain, a separate duck-relationship DAG,
// and a three-pass per-frame update that computes each bus's final
// linear gain.
package bus

import (
	"errors"
	"fmt"
)

// ErrUnknownBus is returned when a definition references a bus name
// that was never declared.
var ErrUnknownBus = errors.New("bus: unknown bus name")

// ErrDuplicateMaster is returned when a Builder is asked to add a
// second bus named "master".
var ErrDuplicateMaster = errors.New("bus: duplicate master bus")

// ErrNoMaster is returned by Build when no bus named "master" was added.
var ErrNoMaster = errors.New("bus: no master bus defined")

// MasterName is the reserved name of the graph's unique root bus.
const MasterName = "master"

// Handle references a bus within a Graph.
type Handle struct {
	index uint32
}

// IsValid reports whether h refers to a real bus rather than being the
// InvalidHandle sentinel returned by a failed lookup.
func (h Handle) IsValid() bool { return h.index != invalidIndex }

const invalidIndex = ^uint32(0)

// InvalidHandle is the sentinel returned by lookups that fail.
var InvalidHandle = Handle{index: invalidIndex}

type node struct {
	name         string
	definedGain  float64
	userGain     float64
	targetGain   float64
	gainStep     float64 // per-second; 0 once the fade completes
	duckGain     float64
	finalGain    float64
	activeCount  int
	children     []uint32
	duckedByWhen []uint32 // buses this one ducks when active
	duckGainTgt  float64
	duckFadeIn   float64
	duckFadeOut  float64
	duckTrans    float64 // current position in [0,1] toward "active"
}

// Graph is a built, immutable-shaped bus tree (the set of buses and
// edges never changes after Build; only gains and duck state change
// per frame).
type Graph struct {
	nodes  []node
	byName map[string]uint32
}

// Def is one bus definition, mirroring the bus-definition blob's
// fields.
type Def struct {
	Name            string
	Gain            float64
	ChildBuses      []string
	DuckBuses       []string
	DuckGain        float64
	DuckFadeInTime  float64
	DuckFadeOutTime float64
}

// Build validates and compiles a list of bus definitions into a Graph.
// Exactly one Def must be named "master"; any ChildBuses/DuckBuses
// entry referencing an undeclared name is a fatal ErrUnknownBus.
func Build(defs []Def) (*Graph, error) {
	g := &Graph{byName: make(map[string]uint32, len(defs))}

	haveMaster := false
	for _, d := range defs {
		if _, exists := g.byName[d.Name]; exists {
			if d.Name == MasterName {
				return nil, ErrDuplicateMaster
			}
			return nil, fmt.Errorf("bus: duplicate bus name %q", d.Name)
		}
		if d.Name == MasterName {
			haveMaster = true
		}
		idx := uint32(len(g.nodes))
		g.nodes = append(g.nodes, node{
			name:        d.Name,
			definedGain: d.Gain,
			userGain:    1,
			targetGain:  1,
			duckGain:    1,
			duckGainTgt: d.DuckGain,
			duckFadeIn:  d.DuckFadeInTime,
			duckFadeOut: d.DuckFadeOutTime,
			duckTrans:   0,
		})
		g.byName[d.Name] = idx
	}
	if !haveMaster {
		return nil, ErrNoMaster
	}

	for i, d := range defs {
		for _, childName := range d.ChildBuses {
			ci, ok := g.byName[childName]
			if !ok {
				return nil, fmt.Errorf("%w: %q (child of %q)", ErrUnknownBus, childName, d.Name)
			}
			g.nodes[i].children = append(g.nodes[i].children, ci)
		}
		for _, duckedName := range d.DuckBuses {
			di, ok := g.byName[duckedName]
			if !ok {
				return nil, fmt.Errorf("%w: %q (ducked by %q)", ErrUnknownBus, duckedName, d.Name)
			}
			g.nodes[i].duckedByWhen = append(g.nodes[i].duckedByWhen, di)
		}
	}

	return g, nil
}

// Find resolves a bus name to a Handle, or InvalidHandle if unknown.
func (g *Graph) Find(name string) Handle {
	idx, ok := g.byName[name]
	if !ok {
		return InvalidHandle
	}
	return Handle{index: idx}
}

// Master returns the graph's root bus handle.
func (g *Graph) Master() Handle {
	return g.Find(MasterName)
}

// Gain returns h's current user gain.
func (g *Graph) Gain(h Handle) float64 {
	return g.nodes[h.index].userGain
}

// SetGain immediately sets h's user gain, canceling any in-flight fade.
func (g *Graph) SetGain(h Handle, gain float64) {
	n := &g.nodes[h.index]
	n.userGain = gain
	n.targetGain = gain
	n.gainStep = 0
}

// FadeTo schedules h's user gain to move linearly toward target over
// duration seconds. duration <= 0 snaps immediately.
func (g *Graph) FadeTo(h Handle, target float64, duration float64) {
	n := &g.nodes[h.index]
	n.targetGain = target
	if duration <= 0 {
		n.userGain = target
		n.gainStep = 0
		return
	}
	n.gainStep = (target - n.userGain) / duration
}

// FinalGain returns h's most recently computed final_gain; valid only
// after at least one Update.
func (g *Graph) FinalGain(h Handle) float64 {
	return g.nodes[h.index].finalGain
}

// Activate increments h's active_count, tracking that a channel bound
// to h has entered a non-Stopped lifecycle state.
func (g *Graph) Activate(h Handle) {
	g.nodes[h.index].activeCount++
}

// Deactivate decrements h's active_count.
func (g *Graph) Deactivate(h Handle) {
	n := &g.nodes[h.index]
	if n.activeCount > 0 {
		n.activeCount--
	}
}

// ActiveCount returns h's active_count.
func (g *Graph) ActiveCount(h Handle) int {
	return g.nodes[h.index].activeCount
}

// Update runs the three-pass per-frame bus computation: reset duck
// gains, advance duck transitions and propagate the min-ducker rule,
// then recurse from master applying definition gain, parent gain, duck
// gain, and the user-gain fade.
func (g *Graph) Update(dt float64, masterGain float64, muted bool) {
	for i := range g.nodes {
		g.nodes[i].duckGain = 1
	}

	for i := range g.nodes {
		n := &g.nodes[i]
		if n.activeCount > 0 {
			n.duckTrans = advanceToward(n.duckTrans, 1, n.duckFadeIn, dt)
		} else {
			n.duckTrans = advanceToward(n.duckTrans, 0, n.duckFadeOut, dt)
		}
		d := lerp(1, n.duckGainTgt, n.duckTrans)
		for _, ei := range n.duckedByWhen {
			e := &g.nodes[ei]
			if d < e.duckGain {
				e.duckGain = d
			}
		}
	}

	parentGain := masterGain
	if muted {
		parentGain = 0
	}
	g.updateRecursive(g.Master().index, parentGain, dt)
}

func (g *Graph) updateRecursive(idx uint32, parentGain float64, dt float64) {
	n := &g.nodes[idx]
	advanceUserGain(n, dt)
	n.finalGain = n.definedGain * parentGain * n.duckGain * n.userGain

	for _, ci := range n.children {
		g.updateRecursive(ci, n.finalGain, dt)
	}
}

func advanceUserGain(n *node, dt float64) {
	if n.gainStep == 0 {
		return
	}
	next := n.userGain + n.gainStep*dt
	if (n.gainStep > 0 && next >= n.targetGain) || (n.gainStep < 0 && next <= n.targetGain) {
		n.userGain = n.targetGain
		n.gainStep = 0
		return
	}
	n.userGain = next
}

// advanceToward moves cur toward target at rate 1/fadeTime per second,
// snapping to target immediately when fadeTime is 0.
func advanceToward(cur, target, fadeTime, dt float64) float64 {
	if fadeTime <= 0 {
		return target
	}
	rate := dt / fadeTime
	if target > cur {
		cur += rate
		if cur > target {
			cur = target
		}
	} else if target < cur {
		cur -= rate
		if cur < target {
			cur = target
		}
	}
	return cur
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
