package planning

import (
	"fmt"
	"log/slog"

	bt "github.com/joeycumines/go-behaviortree"
	pabtpkg "github.com/joeycumines/go-pabt"

	"github.com/Qfusion/qfusion-sub007/internal/worldstate"
)

// DeclarativeAction describes an action by its preconditions and effects,
// both as world states where ignored variables are irrelevant. It is used by
// the reactive planner, which expands a behavior tree backwards from failed
// goal conditions instead of searching ahead.
type DeclarativeAction interface {
	Name() string
	Preconditions() *worldstate.WorldState
	Effects() *worldstate.WorldState
	// NewRecord returns a fresh record each time the action starts running.
	NewRecord() ActionRecord
}

// ReactivePlan adapts a bot's world state and declarative actions to go-pabt.
// The world state is sampled on every Tick, so the tree reacts to changes
// without replanning.
type ReactivePlan struct {
	goal    Goal
	actions []*reactiveAction
	node    bt.Node
	current *worldstate.WorldState
	logger  *slog.Logger
}

var _ pabtpkg.IState = (*reactiveState)(nil)

type reactiveState struct {
	p *ReactivePlan
}

// Variable returns the worldstate.Value for a worldstate.Key.
func (s reactiveState) Variable(key any) (any, error) {
	k := key.(worldstate.Key)
	if s.p.current == nil {
		return worldstate.Value{Kind: k.Kind, Ignore: true}, nil
	}
	return s.p.current.Value(k), nil
}

// Actions returns the actions with an effect that satisfies failed.
func (s reactiveState) Actions(failed pabtpkg.Condition) ([]pabtpkg.IAction, error) {
	var out []pabtpkg.IAction
	for _, a := range s.p.actions {
		if failed == nil {
			out = append(out, a)
			continue
		}
		for _, e := range a.effects {
			if e.Key() == failed.Key() && failed.Match(e.Value()) {
				out = append(out, a)
				break
			}
		}
	}
	return out, nil
}

type varCondition struct {
	key     worldstate.Key
	desired worldstate.Value
}

func (c *varCondition) Key() any { return c.key }

func (c *varCondition) Match(value any) bool {
	v, ok := value.(worldstate.Value)
	return ok && v.Satisfies(c.desired)
}

type varEffect struct {
	key   worldstate.Key
	value worldstate.Value
}

func (e *varEffect) Key() any   { return e.key }
func (e *varEffect) Value() any { return e.value }

func conditionsOf(ws *worldstate.WorldState) pabtpkg.IConditions {
	var conds pabtpkg.IConditions
	for _, k := range worldstate.Keys() {
		v := ws.Value(k)
		if v.Ignore {
			continue
		}
		conds = append(conds, &varCondition{key: k, desired: v})
	}
	return conds
}

type reactiveAction struct {
	decl       DeclarativeAction
	conditions []pabtpkg.IConditions
	effects    pabtpkg.Effects
	node       bt.Node
	record     ActionRecord
}

func (a *reactiveAction) Conditions() []pabtpkg.IConditions { return a.conditions }
func (a *reactiveAction) Effects() pabtpkg.Effects          { return a.effects }
func (a *reactiveAction) Node() bt.Node                     { return a.node }

// NewReactivePlan builds a go-pabt plan for goal over actions. Every
// desired variable of the goal must be an effect of some action, otherwise
// ErrNoPlan is returned.
func NewReactivePlan(goal Goal, actions []DeclarativeAction, logger *slog.Logger) (*ReactivePlan, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &ReactivePlan{goal: goal, logger: logger}
	for _, decl := range actions {
		a := &reactiveAction{decl: decl}
		if conds := conditionsOf(decl.Preconditions()); len(conds) > 0 {
			a.conditions = []pabtpkg.IConditions{conds}
		}
		effects := decl.Effects()
		for _, k := range worldstate.Keys() {
			v := effects.Value(k)
			if v.Ignore {
				continue
			}
			a.effects = append(a.effects, &varEffect{key: k, value: v})
		}
		a.node = p.actionNode(a)
		p.actions = append(p.actions, a)
	}

	desired := worldstate.New()
	goal.GetDesiredWorldState(desired)
	conds := conditionsOf(desired)
	for _, c := range conds {
		if !p.produces(c) {
			return nil, fmt.Errorf("%w: goal %s, no action sets %s", ErrNoPlan, goal.Name(), c.Key())
		}
	}
	plan, err := pabtpkg.INew(reactiveState{p}, []pabtpkg.IConditions{conds})
	if err != nil {
		return nil, err
	}
	p.node = plan.Node()
	return p, nil
}

func (p *ReactivePlan) produces(c pabtpkg.Condition) bool {
	for _, a := range p.actions {
		for _, e := range a.effects {
			if e.Key() == c.Key() && c.Match(e.Value()) {
				return true
			}
		}
	}
	return false
}

// actionNode runs a record per activation. Starting an action stops any
// other one still active.
func (p *ReactivePlan) actionNode(a *reactiveAction) bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		if a.record == nil {
			for _, other := range p.actions {
				if other != a && other.record != nil {
					p.finish(other)
				}
			}
			a.record = a.decl.NewRecord()
			if a.record == nil {
				return bt.Failure, nil
			}
			a.record.Activate()
		}
		switch a.record.CheckStatus(p.current) {
		case Valid:
			return bt.Running, nil
		case Completed:
			p.finish(a)
			return bt.Success, nil
		default:
			p.logger.Debug("reactive action invalid", "goal", p.goal.Name(), "action", a.decl.Name())
			p.finish(a)
			return bt.Failure, nil
		}
	})
}

func (p *ReactivePlan) finish(a *reactiveAction) {
	a.record.Deactivate()
	a.record = nil
}

func (p *ReactivePlan) Goal() Goal { return p.goal }

func (p *ReactivePlan) Node() bt.Node { return p.node }

// Tick runs the tree once against current.
func (p *ReactivePlan) Tick(current *worldstate.WorldState) (bt.Status, error) {
	p.current = current
	return p.node.Tick()
}

// Discard deactivates any record still running.
func (p *ReactivePlan) Discard() {
	for _, a := range p.actions {
		if a.record != nil {
			p.finish(a)
		}
	}
}
