package planning

import (
	"log/slog"

	bt "github.com/joeycumines/go-behaviortree"

	"github.com/Qfusion/qfusion-sub007/internal/worldstate"
)

// Plan is an ordered list of action records executed as a behavior tree
// sequence. Each step is a leaf that polls its record: VALID keeps the tree
// running, COMPLETED moves on to the next step within the same tick, and
// INVALID fails the tree, which discards the plan.
type Plan struct {
	goal    Goal
	records []ActionRecord
	active  []bool
	done    []bool
	node    bt.Node
	logger  *slog.Logger

	current   *worldstate.WorldState
	discarded bool
}

func newPlan(goal Goal, last *PlannerNode, logger *slog.Logger) *Plan {
	var records []ActionRecord
	for n := last; n != nil && n.record != nil; n = n.parent {
		records = append(records, n.record)
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return NewPlan(goal, records, logger)
}

// NewPlan builds a plan from an explicit list of records.
func NewPlan(goal Goal, records []ActionRecord, logger *slog.Logger) *Plan {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Plan{
		goal:    goal,
		records: records,
		active:  make([]bool, len(records)),
		done:    make([]bool, len(records)),
		logger:  logger,
	}
	leaves := make([]bt.Node, len(records))
	for i := range records {
		leaves[i] = p.stepNode(i)
	}
	p.node = bt.New(bt.Sequence, leaves...)
	return p
}

func (p *Plan) stepNode(i int) bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		if p.done[i] {
			return bt.Success, nil
		}
		record := p.records[i]
		if !p.active[i] {
			record.Activate()
			p.active[i] = true
		}
		switch status := record.CheckStatus(p.current); status {
		case Valid:
			return bt.Running, nil
		case Completed:
			record.Deactivate()
			p.active[i] = false
			p.done[i] = true
			p.logger.Debug("plan step completed", "goal", p.goal.Name(), "action", record.Name())
			return bt.Success, nil
		default:
			p.logger.Debug("plan step invalid", "goal", p.goal.Name(), "action", record.Name(), "status", status)
			return bt.Failure, nil
		}
	})
}

func (p *Plan) Goal() Goal { return p.goal }

// Records returns the plan steps in execution order.
func (p *Plan) Records() []ActionRecord { return p.records }

// Node returns the behavior tree that executes the plan. It reads the state
// passed to the most recent Tick.
func (p *Plan) Node() bt.Node { return p.node }

// Tick advances the plan against current. Success means every step
// completed, Failure means the plan is invalid. Either way the plan is
// discarded and must not be ticked again.
func (p *Plan) Tick(current *worldstate.WorldState) (bt.Status, error) {
	if p.discarded {
		return bt.Failure, nil
	}
	p.current = current
	status, err := p.node.Tick()
	if err != nil || status != bt.Running {
		p.Discard()
	}
	return status, err
}

// Discard deactivates any active record. It is idempotent.
func (p *Plan) Discard() {
	if p.discarded {
		return
	}
	p.discarded = true
	for i, record := range p.records {
		if p.active[i] {
			record.Deactivate()
			p.active[i] = false
		}
	}
}

// Discarded reports whether the plan has finished or was abandoned.
func (p *Plan) Discarded() bool { return p.discarded }
