package bot

import (
	"github.com/Qfusion/qfusion-sub007/internal/geom"
	"github.com/Qfusion/qfusion-sub007/internal/planning"
	ws "github.com/Qfusion/qfusion-sub007/internal/worldstate"
)

// declarativeAction is a native action described by what it needs and what
// it achieves, for the reactive fallback.
type declarativeAction struct {
	name      string
	pre, eff  *ws.WorldState
	newRecord func() planning.ActionRecord
}

func (a *declarativeAction) Name() string                     { return a.name }
func (a *declarativeAction) Preconditions() *ws.WorldState    { return a.pre }
func (a *declarativeAction) Effects() *ws.WorldState          { return a.eff }
func (a *declarativeAction) NewRecord() planning.ActionRecord { return a.newRecord() }

var _ planning.DeclarativeAction = (*declarativeAction)(nil)

// DeclarativeActions returns the actions the reactive fallback plans with.
func (b *Bot) DeclarativeActions() []planning.DeclarativeAction { return b.declarative }

// AddDeclarativeAction makes an extra action available to the reactive
// fallback.
func (b *Bot) AddDeclarativeAction(a planning.DeclarativeAction) {
	b.declarative = append(b.declarative, a)
}

func (b *Bot) installDeclarativeActions() {
	threat := ws.New()
	threat.Bool(ws.HasThreat).Set(true)

	inRange := ws.New()
	inRange.Bool(ws.HasThreat).Set(true)
	inRange.Bool(ws.CanHitEnemy).Set(true)

	canHit := ws.New()
	canHit.Bool(ws.CanHitEnemy).Set(true)
	killed := ws.New()
	killed.Bool(ws.HasJustKilledEnemy).Set(true)
	ranAway := ws.New()
	ranAway.Bool(ws.HasRunAway).Set(true)

	b.declarative = append(b.declarative,
		&declarativeAction{name: "ChargeEnemy", pre: threat, eff: canHit, newRecord: func() planning.ActionRecord {
			return &advanceRecord{
				BaseActionRecord: planning.NewBaseActionRecord("ChargeEnemy"),
				bot:              b,
				closeRange:       b.weightConfig.Get(WeightAdvanceCloseRange),
			}
		}},
		&declarativeAction{name: "FightEnemy", pre: inRange, eff: killed, newRecord: func() planning.ActionRecord {
			return &attackRecord{BaseActionRecord: planning.NewBaseActionRecord("FightEnemy"), bot: b}
		}},
		&declarativeAction{name: "FleeEnemy", pre: threat, eff: ranAway, newRecord: func() planning.ActionRecord {
			return &fleeRecord{
				BaseActionRecord: planning.NewBaseActionRecord("FleeEnemy"),
				bot:              b,
				distance:         b.weightConfig.Get(WeightRetreatCoverRadius),
			}
		}},
	)
}

// fleeRecord runs straight away from the enemy until it is out of sight.
// It needs no cover spot, so it works where RetreatToCover finds none.
type fleeRecord struct {
	planning.BaseActionRecord
	bot      *Bot
	distance float32
}

func (r *fleeRecord) Deactivate() { r.bot.ClearMoveTarget() }

func (r *fleeRecord) CheckStatus(current *ws.WorldState) planning.Status {
	if !isTrue(current.Bool(ws.HasThreat)) {
		return planning.Completed
	}
	enemy := current.Origin(ws.EnemyOrigin)
	if enemy.Ignore() {
		return planning.Invalid
	}
	from := current.Origin(ws.BotOrigin).Value()
	away := from.Sub(enemy.Value())
	away.Z = 0
	if l := away.Length(); l < 1 {
		away = geom.V(1, 0, 0)
	} else {
		away = away.Scale(1 / l)
	}
	r.bot.SetMoveTarget(from.Add(away.Scale(r.distance)))
	return planning.Valid
}
