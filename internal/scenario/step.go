package scenario

import (
	"time"

	"github.com/Qfusion/qfusion-sub007/internal/bot"
)

// DamagePerSecond is what a bot holding every weapon with full ammo deals
// to its attack target.
const DamagePerSecond float32 = 200

// Step advances bots by dt: each live bot walks toward its move target
// unless a wall is in the way, then shoots at its attack target if it can
// see it. Killed bots keep their slot with zero health.
func (w *World) Step(bots []*bot.Bot, dt time.Duration) {
	secs := float32(dt.Seconds())
	for _, b := range bots {
		if !b.IsAlive() {
			continue
		}
		target, ok := b.MoveTarget()
		if !ok {
			continue
		}
		delta := target.Sub(b.Origin)
		dist := delta.Length()
		if dist < 1e-3 {
			continue
		}
		next := target
		if stride := w.Speed * secs; stride < dist {
			next = b.Origin.Add(delta.Scale(stride / dist))
		}
		if w.blocked(b.Origin, next) < 1 || w.PointAreaNum(next) == 0 {
			continue
		}
		b.Origin = next
	}

	byEntity := make(map[int]*bot.Bot, len(bots))
	for _, b := range bots {
		byEntity[b.Entity()] = b
	}
	for _, b := range bots {
		if !b.IsAlive() {
			continue
		}
		entity, ok := b.AttackTarget()
		if !ok {
			continue
		}
		victim := byEntity[entity]
		if victim == nil || !victim.IsAlive() || w.blocked(b.Origin, victim.Origin) < 1 {
			continue
		}
		damage := DamagePerSecond * secs * max(b.Inventory.WeaponScore(), 0.05)
		if b.Powerups.Has(bot.Quad) {
			damage *= 4
		}
		applyDamage(victim, damage)
	}
}

// applyDamage lets armor absorb its protected share while it lasts.
func applyDamage(victim *bot.Bot, damage float32) {
	if victim.Powerups.Has(bot.Shell) {
		damage /= 4
	}
	absorbed := damage * bot.ArmorProtection
	if wear := damage * bot.ArmorDegradation; wear > float32(victim.Armor) {
		absorbed *= float32(victim.Armor) / wear
		victim.Armor = 0
	} else {
		victim.Armor -= int(wear + 0.5)
	}
	victim.Health -= int(damage - absorbed + 0.5)
	if victim.Health < 0 {
		victim.Health = 0
	}
}
