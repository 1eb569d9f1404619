// Package planning provides the goal oriented action planning primitives used
// by bots: goals, actions, action records, planner nodes, the plan search, and
// plan execution.
//
// Goals and actions are implemented either natively in Go, or by scripts via
// the scripting package. Both flavours satisfy the same interfaces.
package planning

import (
	"fmt"

	"github.com/Qfusion/qfusion-sub007/internal/worldstate"
)

// Goal is something a bot wants to achieve, expressed as a desired world
// state, with a weight recomputed every think.
type Goal interface {
	Name() string
	// UpdateWeight recomputes the goal weight from the bot's current world
	// state. A weight of zero or less disables the goal for this think.
	UpdateWeight(current *worldstate.WorldState)
	Weight() float32
	// GetDesiredWorldState fills desired, which starts with every variable
	// ignored.
	GetDesiredWorldState(desired *worldstate.WorldState)
}

// Action is a planner level transition. TryApply returns nil when the action
// cannot be applied to the given state, or a node made by
// BaseAction.NewNodeForRecord holding the predicted state.
type Action interface {
	Name() string
	TryApply(current *worldstate.WorldState) *PlannerNode
}

// ActionRecord is the executable instance of an action, bound into a plan.
type ActionRecord interface {
	Name() string
	Activate()
	Deactivate()
	CheckStatus(current *worldstate.WorldState) Status
}

// Status is the result of polling an ActionRecord.
type Status int

const (
	// Invalid discards the whole plan; it is rebuilt on a later think.
	Invalid Status = iota
	// Valid keeps executing the record.
	Valid
	// Completed advances to the next plan step without waiting.
	Completed
)

func (s Status) String() string {
	switch s {
	case Invalid:
		return "INVALID"
	case Valid:
		return "VALID"
	case Completed:
		return "COMPLETED"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// BaseGoal implements the name and weight bookkeeping of Goal.
type BaseGoal struct {
	name   string
	weight float32
}

func NewBaseGoal(name string) BaseGoal { return BaseGoal{name: name} }

func (g *BaseGoal) Name() string             { return g.name }
func (g *BaseGoal) Weight() float32          { return g.weight }
func (g *BaseGoal) SetWeight(weight float32) { g.weight = weight }

// BaseAction implements Action.Name and is the only way to build a
// PlannerNode.
type BaseAction struct {
	name string
}

func NewBaseAction(name string) BaseAction { return BaseAction{name: name} }

func (a *BaseAction) Name() string { return a.name }

// NewNodeForRecord binds record into a new planner node that owns a copy of
// ws, and stamps the node with the hash of that copy. A nil record yields a
// nil node.
func (a *BaseAction) NewNodeForRecord(record ActionRecord, cost float32, ws *worldstate.WorldState) *PlannerNode {
	if record == nil {
		return nil
	}
	state := ws.Clone()
	return &PlannerNode{
		worldState:     state,
		cost:           cost,
		record:         record,
		worldStateHash: state.Hash(),
		heapIndex:      -1,
	}
}

// BaseActionRecord implements the no-op parts of ActionRecord.
type BaseActionRecord struct {
	name string
}

func NewBaseActionRecord(name string) BaseActionRecord { return BaseActionRecord{name: name} }

func (r *BaseActionRecord) Name() string { return r.name }
func (r *BaseActionRecord) Activate()    {}
func (r *BaseActionRecord) Deactivate()  {}
