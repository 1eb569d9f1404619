package planning

import (
	"container/heap"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Qfusion/qfusion-sub007/internal/worldstate"
)

const (
	DefaultMaxNodes        = 512
	DefaultHeuristicWeight = 1.0
)

var (
	// ErrNoPlan is returned when no sequence of actions reaches the goal.
	ErrNoPlan = errors.New("planning: no plan found")
	// ErrGoalSatisfied is returned when the current state already satisfies
	// the goal, so there is nothing to plan.
	ErrGoalSatisfied = errors.New("planning: goal already satisfied")
	// ErrBudgetExceeded is returned when the search expands more nodes than
	// the planner allows.
	ErrBudgetExceeded = errors.New("planning: node budget exceeded")
)

// Planner performs a bounded best-first search from the current world state
// to a state that satisfies a goal.
//
// Nodes are ordered by f = g + w*h, where g is the summed action cost and h
// the number of desired variables not yet satisfied. States are deduplicated
// by hash and equality, keeping the cheapest path to each.
type Planner struct {
	MaxNodes        int
	HeuristicWeight float32
	Logger          *slog.Logger
}

// NewPlanner returns a Planner with the given budget, falling back to
// defaults for non-positive values.
func NewPlanner(maxNodes int, heuristicWeight float32, logger *slog.Logger) *Planner {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	if heuristicWeight <= 0 {
		heuristicWeight = DefaultHeuristicWeight
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{MaxNodes: maxNodes, HeuristicWeight: heuristicWeight, Logger: logger}
}

// FindPlan searches for the cheapest sequence of actions leading from current
// to goal's desired state.
func (p *Planner) FindPlan(goal Goal, current *worldstate.WorldState, actions []Action) (*Plan, error) {
	desired := worldstate.New()
	goal.GetDesiredWorldState(desired)
	if desired.IsSatisfiedBy(current) {
		return nil, ErrGoalSatisfied
	}

	maxNodes := p.MaxNodes
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	w := p.HeuristicWeight
	if w <= 0 {
		w = DefaultHeuristicWeight
	}

	rootState := current.Clone()
	root := &PlannerNode{
		worldState:     rootState,
		worldStateHash: rootState.Hash(),
		heapIndex:      -1,
	}
	root.f = w * float32(desired.UnsatisfiedCount(rootState))

	open := &nodeHeap{}
	heap.Push(open, root)
	seen := map[uint64][]*PlannerNode{root.worldStateHash: {root}}

	expanded := 0
	for open.Len() > 0 {
		n := heap.Pop(open).(*PlannerNode)
		if n != root && desired.IsSatisfiedBy(n.worldState) {
			plan := newPlan(goal, n, p.logger())
			p.logger().Debug("plan found",
				"goal", goal.Name(),
				"steps", len(plan.records),
				"cost", n.g,
				"expanded", expanded)
			return plan, nil
		}
		n.closed = true
		expanded++
		if expanded > maxNodes {
			return nil, fmt.Errorf("%w: goal %s, %d nodes", ErrBudgetExceeded, goal.Name(), maxNodes)
		}

		for _, action := range actions {
			child := action.TryApply(n.worldState)
			if child == nil {
				continue
			}
			g := n.g + child.cost
			if prev := findNode(seen, child); prev != nil {
				if prev.closed || prev.g <= g {
					continue
				}
				prev.parent = n
				prev.record = child.record
				prev.cost = child.cost
				prev.f = prev.f - prev.g + g
				prev.g = g
				heap.Fix(open, prev.heapIndex)
				continue
			}
			child.parent = n
			child.g = g
			child.f = g + w*float32(desired.UnsatisfiedCount(child.worldState))
			heap.Push(open, child)
			seen[child.worldStateHash] = append(seen[child.worldStateHash], child)
		}
	}
	return nil, fmt.Errorf("%w: goal %s", ErrNoPlan, goal.Name())
}

func (p *Planner) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func findNode(seen map[uint64][]*PlannerNode, n *PlannerNode) *PlannerNode {
	for _, other := range seen[n.worldStateHash] {
		if other.worldState.Equal(n.worldState) {
			return other
		}
	}
	return nil
}
