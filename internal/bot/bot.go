// Package bot holds the per-bot state read and written by the team layers:
// status and inventory, external entity weight overrides, base
// offensiveness, auto-alert spots, the squad a bot belongs to, and the
// bot's own goal and action selection.
package bot

import (
	"log/slog"

	"github.com/Qfusion/qfusion-sub007/internal/geom"
	"github.com/Qfusion/qfusion-sub007/internal/planning"
)

// DefaultOffensiveness is the neutral base offensiveness a bot returns to at
// the start of every objective think.
const DefaultOffensiveness float32 = 0.5

// SquadRef is the squad layer's handle of the squad a bot belongs to. The
// bot only stores it.
type SquadRef struct {
	Index int32
	Gen   uint32
}

// Bot is one AI controlled client.
type Bot struct {
	handle Handle
	name   string
	team   int

	Origin           geom.Vec3
	Health           int
	Armor            int
	Ghosting         bool
	Powerups         Powerups
	CarriesObjective bool
	Inventory        Inventory

	squad    SquadRef
	hasSquad bool

	entityWeights     map[int]float32
	baseOffensiveness float32

	alertSpots []alertSpotEntry

	selectedEnemies SelectedEnemies
	navTarget       *NavEntity
	moveTarget      *geom.Vec3
	attackTarget    int

	goals        []planning.Goal
	actions      []planning.Action
	declarative  []planning.DeclarativeAction
	plan         *planning.Plan
	reactive     *planning.ReactivePlan
	weightConfig *WeightConfig

	logger *slog.Logger
}

// New returns a bot with the native goals and actions installed.
func New(name string, team int, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bot{
		name:              name,
		team:              team,
		Health:            100,
		entityWeights:     make(map[int]float32),
		baseOffensiveness: DefaultOffensiveness,
		weightConfig:      NewWeightConfig(),
		logger:            logger.With("bot", name),
	}
	b.Inventory.Give(Gunblade, 0)
	b.installNativeBehaviour()
	b.installDeclarativeActions()
	return b
}

func (b *Bot) Handle() Handle { return b.handle }
func (b *Bot) Name() string   { return b.name }
func (b *Bot) Team() int      { return b.team }

// Slot is the client number of the bot.
func (b *Bot) Slot() int { return int(b.handle.Index) }

// Entity is the game entity number of the bot; entity 0 is the world.
func (b *Bot) Entity() int { return int(b.handle.Index) + 1 }

// IsAlive reports whether the bot takes part in the game right now.
func (b *Bot) IsAlive() bool { return b.Health > 0 && !b.Ghosting }

func (b *Bot) Logger() *slog.Logger { return b.logger }

// Squad returns the squad the bot is attached to.
func (b *Bot) Squad() (SquadRef, bool) { return b.squad, b.hasSquad }

// OnAttachedToSquad is called by the squad layer when the bot joins a squad.
func (b *Bot) OnAttachedToSquad(ref SquadRef) {
	b.squad = ref
	b.hasSquad = true
	b.logger.Debug("attached to squad", "squad", ref.Index)
}

// OnDetachedFromSquad is called by the squad layer when the bot leaves or
// its squad is released.
func (b *Bot) OnDetachedFromSquad(ref SquadRef) {
	if !b.hasSquad || b.squad != ref {
		return
	}
	b.squad = SquadRef{}
	b.hasSquad = false
	b.logger.Debug("detached from squad", "squad", ref.Index)
}

// SetExternalEntityWeight adds a bias for an entity to the bot's target
// selection. Weights are cleared every objective think.
func (b *Bot) SetExternalEntityWeight(entity int, weight float32) {
	if weight <= 0 {
		delete(b.entityWeights, entity)
		return
	}
	b.entityWeights[entity] = weight
}

func (b *Bot) ExternalEntityWeight(entity int) float32 { return b.entityWeights[entity] }

// OverriddenEntityWeights returns a copy of the current weight overrides.
func (b *Bot) OverriddenEntityWeights() map[int]float32 {
	out := make(map[int]float32, len(b.entityWeights))
	for k, v := range b.entityWeights {
		out[k] = v
	}
	return out
}

func (b *Bot) ClearOverriddenEntityWeights() {
	clear(b.entityWeights)
}

// BaseOffensiveness is in [0, 1], 0 meaning fully defensive.
func (b *Bot) BaseOffensiveness() float32 { return b.baseOffensiveness }

func (b *Bot) SetBaseOffensiveness(v float32) { b.baseOffensiveness = geom.Clamp01(v) }

// Offensiveness is the value goals use. Objective carriers play it safe.
func (b *Bot) Offensiveness() float32 {
	if b.CarriesObjective {
		return 0
	}
	return b.baseOffensiveness
}

func (b *Bot) WeightConfig() *WeightConfig { return b.weightConfig }

// SetWeightConfig replaces the weight config, e.g. with one built by a
// script factory.
func (b *Bot) SetWeightConfig(c *WeightConfig) {
	if c != nil {
		b.weightConfig = c
	}
}

// MoveTarget is the point the current action wants the bot to move to.
// Movement itself is executed outside the brain.
func (b *Bot) MoveTarget() (geom.Vec3, bool) {
	if b.moveTarget == nil {
		return geom.Vec3{}, false
	}
	return *b.moveTarget, true
}

func (b *Bot) SetMoveTarget(p geom.Vec3) { b.moveTarget = &p }

func (b *Bot) ClearMoveTarget() { b.moveTarget = nil }

// AttackTarget is the entity the current action wants to shoot at.
func (b *Bot) AttackTarget() (int, bool) { return b.attackTarget, b.attackTarget != 0 }

func (b *Bot) SetAttackTarget(entity int) { b.attackTarget = entity }

// SetNavTarget sets the item or spot the bot wants to reach, or clears it
// when e is nil.
func (b *Bot) SetNavTarget(e *NavEntity) {
	if e == nil {
		b.navTarget = nil
		return
	}
	t := *e
	b.navTarget = &t
}

func (b *Bot) NavTarget() (NavEntity, bool) {
	if b.navTarget == nil {
		return NavEntity{}, false
	}
	return *b.navTarget, true
}
