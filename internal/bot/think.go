package bot

import (
	"errors"
	"math"
	"sort"
	"time"

	bt "github.com/joeycumines/go-behaviortree"

	"github.com/Qfusion/qfusion-sub007/internal/aas"
	"github.com/Qfusion/qfusion-sub007/internal/geom"
	"github.com/Qfusion/qfusion-sub007/internal/planning"
	ws "github.com/Qfusion/qfusion-sub007/internal/worldstate"
)

// ThinkContext is what a bot needs from its surroundings for one think.
type ThinkContext struct {
	Now     time.Time
	World   aas.World
	Planner *planning.Planner
}

// Goals returns the installed goals, native ones first.
func (b *Bot) Goals() []planning.Goal { return b.goals }

func (b *Bot) Actions() []planning.Action { return b.actions }

// AddGoal installs an extra goal, e.g. a script goal or an expression goal.
func (b *Bot) AddGoal(g planning.Goal) { b.goals = append(b.goals, g) }

func (b *Bot) AddAction(a planning.Action) { b.actions = append(b.actions, a) }

// Plan returns the searched plan being executed, or nil.
func (b *Bot) Plan() *planning.Plan { return b.plan }

// ReactivePlan returns the reactive fallback being executed, or nil.
func (b *Bot) ReactivePlan() *planning.ReactivePlan { return b.reactive }

// CurrentGoal returns the goal of whichever plan is executing, or nil.
func (b *Bot) CurrentGoal() planning.Goal {
	if p := b.running(); p != nil {
		return p.Goal()
	}
	return nil
}

type runningPlan interface {
	Goal() planning.Goal
	Tick(current *ws.WorldState) (bt.Status, error)
	Discard()
}

func (b *Bot) running() runningPlan {
	switch {
	case b.plan != nil:
		return b.plan
	case b.reactive != nil:
		return b.reactive
	}
	return nil
}

func (b *Bot) discardPlan() {
	if b.plan != nil {
		b.plan.Discard()
		b.plan = nil
	}
	if b.reactive != nil {
		b.reactive.Discard()
		b.reactive = nil
	}
}

// Think runs one step of goal and action selection. Sense must have been
// called for the same frame.
func (b *Bot) Think(tc ThinkContext) {
	if !b.IsAlive() {
		b.discardPlan()
		return
	}
	current := b.CurrentWorldState(tc.World)
	if p := b.running(); p != nil {
		status, err := p.Tick(current)
		if err != nil {
			b.logger.Warn("plan execution failed", "goal", p.Goal().Name(), "error", err)
		}
		if status == bt.Running && err == nil {
			return
		}
		b.logger.Debug("plan finished", "goal", p.Goal().Name(), "status", status)
		b.discardPlan()
		return
	}
	b.plan, b.reactive = b.buildPlan(tc.Planner, current)
}

// buildPlan searches a plan for the heaviest goal it can. When the search
// fails for every goal, the heaviest goal the declarative actions can reach
// gets a reactive plan instead.
func (b *Bot) buildPlan(planner *planning.Planner, current *ws.WorldState) (*planning.Plan, *planning.ReactivePlan) {
	if planner == nil {
		return nil, nil
	}
	goals := make([]planning.Goal, 0, len(b.goals))
	for _, g := range b.goals {
		g.UpdateWeight(current)
		if g.Weight() > 0 {
			goals = append(goals, g)
		}
	}
	sort.SliceStable(goals, func(i, j int) bool { return goals[i].Weight() > goals[j].Weight() })
	var unreached []planning.Goal
	for _, g := range goals {
		plan, err := planner.FindPlan(g, current, b.actions)
		if err == nil {
			b.logger.Debug("new plan", "goal", g.Name(), "weight", g.Weight(), "steps", len(plan.Records()))
			return plan, nil
		}
		if !errors.Is(err, planning.ErrGoalSatisfied) {
			b.logger.Debug("goal rejected", "goal", g.Name(), "error", err)
			unreached = append(unreached, g)
		}
	}
	for _, g := range unreached {
		rp, err := planning.NewReactivePlan(g, b.declarative, b.logger)
		if err != nil {
			b.logger.Debug("no reactive plan", "goal", g.Name(), "error", err)
			continue
		}
		b.logger.Debug("reactive plan", "goal", g.Name(), "weight", g.Weight())
		return nil, rp
	}
	return nil, nil
}

// CurrentWorldState describes the bot as the planner sees it.
func (b *Bot) CurrentWorldState(world aas.World) *ws.WorldState {
	s := ws.New()
	s.Short(ws.Health).Set(clampShort(b.Health))
	s.Short(ws.Armor).Set(clampShort(b.Armor))
	s.Bool(ws.HasQuad).Set(b.Powerups.Has(Quad))
	s.Bool(ws.HasShell).Set(b.Powerups.Has(Shell))
	s.Float(ws.Offensiveness).Set(b.Offensiveness())
	s.Origin(ws.BotOrigin).Set(b.Origin)
	s.Bool(ws.HasJustKilledEnemy).Set(false)
	s.Bool(ws.HasRunAway).Set(false)
	s.Bool(ws.IsRunningAway).Set(false)

	if enemy, ok := b.selectedEnemies.Primary(); ok {
		dist := b.Origin.DistanceTo(enemy.Origin)
		ownDTK := DamageToKill(float32(b.Health), float32(b.Armor), ArmorProtection, ArmorDegradation)
		enemyDTK := enemy.DamageToKill()
		if b.Powerups.Has(Quad) {
			enemyDTK /= 4
		}
		if enemy.Powerups.Has(Quad) {
			ownDTK /= 4
		}
		ratio := float32(math.MaxFloat32)
		if ownDTK > 0 {
			ratio = enemyDTK / ownDTK
		}
		s.Bool(ws.HasThreat).Set(true)
		s.Bool(ws.EnemyHasQuad).Set(enemy.Powerups.Has(Quad))
		s.Origin(ws.EnemyOrigin).Set(enemy.Origin)
		s.Float(ws.DistanceToEnemy).Set(dist)
		s.Bool(ws.CanHitEnemy).Set(dist <= b.weightConfig.Get(WeightAdvanceCloseRange))
		s.Short(ws.RawDamageToKill).Set(clampShort(int(enemyDTK)))
		s.Float(ws.KillToBeKilledDamageRatio).Set(ratio)
		if world != nil {
			s.SetOriginProvider(ws.CoverSpot, b.coverSpotProvider(world, enemy))
			s.OriginLazy(ws.CoverSpot).SetIgnore(false)
		}
	} else {
		s.Bool(ws.HasThreat).Set(false)
	}

	if nav, ok := b.NavTarget(); ok {
		s.Origin(ws.NavTargetOrigin).Set(nav.Origin)
		if world != nil {
			s.Unsigned(ws.NavTargetAreaNum).Set(uint32(aas.FindAreaNum(world, nav.Origin)))
		}
	}
	return s
}

// coverSpotProvider looks for a reachable point away from the enemy that
// the enemy cannot see.
func (b *Bot) coverSpotProvider(world aas.World, enemy Enemy) ws.OriginProvider {
	origin := b.Origin
	radius := b.weightConfig.Get(WeightRetreatCoverRadius)
	return func() (geom.Vec3, bool) {
		away := origin.Sub(enemy.Origin)
		away.Z = 0
		l := away.Length()
		if l < 1 {
			away = geom.V(1, 0, 0)
		} else {
			away = away.Scale(1 / l)
		}
		side := geom.V(-away.Y, away.X, 0)
		candidates := []geom.Vec3{
			away,
			away.Add(side).Scale(0.7071),
			away.Sub(side).Scale(0.7071),
			side,
			side.Scale(-1),
		}
		enemyEye := enemy.Origin
		enemyEye.Z += ViewHeight
		for _, dir := range candidates {
			spot := origin.Add(dir.Scale(radius))
			if aas.FindAreaNum(world, spot) == 0 {
				continue
			}
			eye := spot
			eye.Z += ViewHeight
			if tr := world.Trace(enemyEye, eye, enemy.Entity); tr.Fraction < 1 {
				return spot, true
			}
		}
		return geom.Vec3{}, false
	}
}

func clampShort(v int) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
