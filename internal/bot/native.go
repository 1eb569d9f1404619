package bot

import (
	"github.com/Qfusion/qfusion-sub007/internal/geom"
	"github.com/Qfusion/qfusion-sub007/internal/planning"
	ws "github.com/Qfusion/qfusion-sub007/internal/worldstate"
)

// Movement costs are expressed in seconds at run speed.
const runSpeed float32 = 320

// reachEpsilon is how close a move must get to count as arrived.
const reachEpsilon float32 = 32

func (b *Bot) installNativeBehaviour() {
	b.goals = append(b.goals,
		&KillEnemyGoal{BaseGoal: planning.NewBaseGoal("KillEnemy"), bot: b},
		&RunAwayGoal{BaseGoal: planning.NewBaseGoal("RunAway"), bot: b},
		&ReachNavTargetGoal{BaseGoal: planning.NewBaseGoal("ReachNavTarget"), bot: b},
	)
	b.actions = append(b.actions,
		&AdvanceToEnemyAction{BaseAction: planning.NewBaseAction("AdvanceToEnemy"), bot: b},
		&AttackFromPositionAction{BaseAction: planning.NewBaseAction("AttackFromPosition"), bot: b},
		&RetreatToCoverAction{BaseAction: planning.NewBaseAction("RetreatToCover"), bot: b},
		&ReachNavTargetAction{BaseAction: planning.NewBaseAction("ReachNavTargetAction"), bot: b},
	)
}

// KillEnemyGoal wants the primary enemy dead. Its weight grows with
// offensiveness and shrinks when the enemy is much harder to kill than the
// bot.
type KillEnemyGoal struct {
	planning.BaseGoal
	bot *Bot
}

func (g *KillEnemyGoal) UpdateWeight(current *ws.WorldState) {
	threat := current.Bool(ws.HasThreat)
	if threat.Ignore() || !threat.Value() {
		g.SetWeight(0)
		return
	}
	c := g.bot.weightConfig
	w := c.Get(WeightKillEnemyBase) + c.Get(WeightKillEnemyOffensive)*current.Float(ws.Offensiveness).Value()
	ratio := current.Float(ws.KillToBeKilledDamageRatio).Value()
	if threshold := c.Get(WeightRunAwayDamageRatio); ratio > threshold {
		w *= threshold / ratio
	}
	g.SetWeight(w)
}

func (g *KillEnemyGoal) GetDesiredWorldState(desired *ws.WorldState) {
	desired.Bool(ws.HasJustKilledEnemy).Set(true)
}

// RunAwayGoal wants the bot out of a fight it is likely to lose.
type RunAwayGoal struct {
	planning.BaseGoal
	bot *Bot
}

func (g *RunAwayGoal) UpdateWeight(current *ws.WorldState) {
	threat := current.Bool(ws.HasThreat)
	if threat.Ignore() || !threat.Value() {
		g.SetWeight(0)
		return
	}
	ratio := current.Float(ws.KillToBeKilledDamageRatio).Value()
	if ratio <= 1 {
		g.SetWeight(0)
		return
	}
	c := g.bot.weightConfig
	offensiveness := current.Float(ws.Offensiveness).Value()
	g.SetWeight(c.Get(WeightRunAwayBase) * (ratio - 1) * (1.5 - offensiveness))
}

func (g *RunAwayGoal) GetDesiredWorldState(desired *ws.WorldState) {
	desired.Bool(ws.HasRunAway).Set(true)
}

// ReachNavTargetGoal wants the bot at its selected nav target.
type ReachNavTargetGoal struct {
	planning.BaseGoal
	bot    *Bot
	target geom.Vec3
}

func (g *ReachNavTargetGoal) UpdateWeight(current *ws.WorldState) {
	nav := current.Origin(ws.NavTargetOrigin)
	if nav.Ignore() {
		g.SetWeight(0)
		return
	}
	g.target = nav.Value()
	g.SetWeight(g.bot.weightConfig.Get(WeightReachNavTargetBase))
}

func (g *ReachNavTargetGoal) GetDesiredWorldState(desired *ws.WorldState) {
	desired.Origin(ws.BotOrigin).Set(g.target).SetEpsilon(reachEpsilon)
}

// AdvanceToEnemyAction closes in on the enemy until it can be hit.
type AdvanceToEnemyAction struct {
	planning.BaseAction
	bot *Bot
}

func (a *AdvanceToEnemyAction) TryApply(current *ws.WorldState) *planning.PlannerNode {
	if !isTrue(current.Bool(ws.HasThreat)) || isTrue(current.Bool(ws.CanHitEnemy)) {
		return nil
	}
	enemy := current.Origin(ws.EnemyOrigin)
	if enemy.Ignore() {
		return nil
	}
	closeRange := a.bot.weightConfig.Get(WeightAdvanceCloseRange)
	from := current.Origin(ws.BotOrigin).Value()
	dist := from.DistanceTo(enemy.Value())
	target := enemy.Value()
	if dist > closeRange {
		target = from.Lerp(enemy.Value(), 1-closeRange/dist)
	}

	next := current.Clone()
	next.Origin(ws.BotOrigin).Set(target)
	next.Bool(ws.CanHitEnemy).Set(true)
	next.Float(ws.DistanceToEnemy).Set(min(dist, closeRange))
	record := &advanceRecord{BaseActionRecord: planning.NewBaseActionRecord(a.Name()), bot: a.bot, closeRange: closeRange}
	return a.NewNodeForRecord(record, (dist-closeRange)/runSpeed+0.1, next)
}

type advanceRecord struct {
	planning.BaseActionRecord
	bot        *Bot
	closeRange float32
}

func (r *advanceRecord) Deactivate() { r.bot.ClearMoveTarget() }

func (r *advanceRecord) CheckStatus(current *ws.WorldState) planning.Status {
	if !isTrue(current.Bool(ws.HasThreat)) {
		return planning.Invalid
	}
	enemy := current.Origin(ws.EnemyOrigin).Value()
	if current.Float(ws.DistanceToEnemy).Value() <= r.closeRange {
		return planning.Completed
	}
	r.bot.SetMoveTarget(enemy)
	return planning.Valid
}

// AttackFromPositionAction fights the enemy from the current spot.
type AttackFromPositionAction struct {
	planning.BaseAction
	bot *Bot
}

func (a *AttackFromPositionAction) TryApply(current *ws.WorldState) *planning.PlannerNode {
	if !isTrue(current.Bool(ws.HasThreat)) || !isTrue(current.Bool(ws.CanHitEnemy)) {
		return nil
	}
	next := current.Clone()
	next.Bool(ws.HasJustKilledEnemy).Set(true)
	next.Bool(ws.HasThreat).Set(false)
	cost := float32(1)
	if dtk := current.Short(ws.RawDamageToKill); !dtk.Ignore() {
		cost += float32(dtk.Value()) / 100
	}
	record := &attackRecord{BaseActionRecord: planning.NewBaseActionRecord(a.Name()), bot: a.bot}
	return a.NewNodeForRecord(record, cost, next)
}

type attackRecord struct {
	planning.BaseActionRecord
	bot *Bot
}

func (r *attackRecord) Activate() {
	if e, ok := r.bot.selectedEnemies.Primary(); ok {
		r.bot.SetAttackTarget(e.Entity)
	}
}

func (r *attackRecord) Deactivate() { r.bot.SetAttackTarget(0) }

func (r *attackRecord) CheckStatus(current *ws.WorldState) planning.Status {
	if !isTrue(current.Bool(ws.HasThreat)) {
		return planning.Completed
	}
	if !isTrue(current.Bool(ws.CanHitEnemy)) {
		return planning.Invalid
	}
	if e, ok := r.bot.selectedEnemies.Primary(); ok {
		r.bot.SetAttackTarget(e.Entity)
	}
	return planning.Valid
}

// RetreatToCoverAction moves out of the enemy's sight.
type RetreatToCoverAction struct {
	planning.BaseAction
	bot *Bot
}

func (a *RetreatToCoverAction) TryApply(current *ws.WorldState) *planning.PlannerNode {
	if !isTrue(current.Bool(ws.HasThreat)) || isTrue(current.Bool(ws.HasRunAway)) {
		return nil
	}
	cover, ok := current.OriginLazy(ws.CoverSpot).Value()
	if !ok {
		return nil
	}
	from := current.Origin(ws.BotOrigin).Value()
	next := current.Clone()
	next.Origin(ws.BotOrigin).Set(cover)
	next.Bool(ws.HasRunAway).Set(true)
	next.Bool(ws.IsRunningAway).Set(false)
	next.Bool(ws.CanHitEnemy).Set(false)
	record := &moveRecord{BaseActionRecord: planning.NewBaseActionRecord(a.Name()), bot: a.bot, target: cover}
	return a.NewNodeForRecord(record, from.DistanceTo(cover)/runSpeed+0.1, next)
}

// ReachNavTargetAction moves to the selected nav target.
type ReachNavTargetAction struct {
	planning.BaseAction
	bot *Bot
}

func (a *ReachNavTargetAction) TryApply(current *ws.WorldState) *planning.PlannerNode {
	nav := current.Origin(ws.NavTargetOrigin)
	if nav.Ignore() {
		return nil
	}
	from := current.Origin(ws.BotOrigin).Value()
	if from.DistanceTo(nav.Value()) <= reachEpsilon {
		return nil
	}
	next := current.Clone()
	next.Origin(ws.BotOrigin).Set(nav.Value())
	record := &moveRecord{BaseActionRecord: planning.NewBaseActionRecord(a.Name()), bot: a.bot, target: nav.Value()}
	return a.NewNodeForRecord(record, from.DistanceTo(nav.Value())/runSpeed, next)
}

// moveRecord completes once the bot is within reach of target.
type moveRecord struct {
	planning.BaseActionRecord
	bot    *Bot
	target geom.Vec3
}

func (r *moveRecord) Activate()   { r.bot.SetMoveTarget(r.target) }
func (r *moveRecord) Deactivate() { r.bot.ClearMoveTarget() }

func (r *moveRecord) CheckStatus(current *ws.WorldState) planning.Status {
	if current.Origin(ws.BotOrigin).Value().DistanceTo(r.target) <= reachEpsilon {
		return planning.Completed
	}
	return planning.Valid
}

func isTrue(v ws.BoolVar) bool { return !v.Ignore() && v.Value() }
