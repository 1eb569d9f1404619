package bot

import (
	"sort"
	"time"

	"github.com/Qfusion/qfusion-sub007/internal/aas"
	"github.com/Qfusion/qfusion-sub007/internal/geom"
)

const (
	// SensingRange is the farthest an enemy can be noticed from.
	SensingRange float32 = 2000
	// ViewHeight is the eye offset above the origin used for visibility.
	ViewHeight float32 = 22
)

// Enemy is what a bot knows about a selected enemy.
type Enemy struct {
	Entity           int
	Name             string
	Origin           geom.Vec3
	Health           int
	Armor            int
	Powerups         Powerups
	CarriesObjective bool
	SeenAt           time.Time
}

// DamageToKill estimates the damage needed to kill the enemy.
func (e Enemy) DamageToKill() float32 {
	return DamageToKill(float32(e.Health), float32(e.Armor), ArmorProtection, ArmorDegradation)
}

// SelectedEnemies is the result of the last enemy selection, nearest first.
type SelectedEnemies struct {
	enemies    []Enemy
	selectedAt time.Time
	instanceID uint64
}

func (s SelectedEnemies) AreValid() bool { return len(s.enemies) > 0 }

// Primary returns the nearest selected enemy.
func (s SelectedEnemies) Primary() (Enemy, bool) {
	if len(s.enemies) == 0 {
		return Enemy{}, false
	}
	return s.enemies[0], true
}

func (s SelectedEnemies) All() []Enemy { return append([]Enemy(nil), s.enemies...) }

func (s SelectedEnemies) SelectedAt() time.Time { return s.selectedAt }

// InstanceID changes every time the selection changes.
func (s SelectedEnemies) InstanceID() uint64 { return s.instanceID }

// NavEntity is an item, spot or teammate the bot may travel to.
type NavEntity struct {
	Entity int
	Name   string
	Origin geom.Vec3
	Cost   float32
}

// AlertSpot is a watched area. Enemies inside Radius raise an alert level
// proportional to how deep inside they are.
type AlertSpot struct {
	ID                         int
	Origin                     geom.Vec3
	Radius                     float32
	RegularEnemyInfluenceScale float32
	CarrierEnemyInfluenceScale float32
}

// AlertCallback receives alert levels in (0, 1] for a spot, stamped with
// the time of the sensing frame.
type AlertCallback func(b *Bot, spotID int, level float32, now time.Time)

type alertSpotEntry struct {
	spot     AlertSpot
	callback AlertCallback
}

// EnableAutoAlert makes the bot report enemies near spot. Enabling a spot
// that is already enabled with the same id, origin and radius only replaces
// the callback.
func (b *Bot) EnableAutoAlert(spot AlertSpot, callback AlertCallback) {
	for i := range b.alertSpots {
		e := &b.alertSpots[i]
		if e.spot.ID != spot.ID {
			continue
		}
		e.spot = spot
		e.callback = callback
		return
	}
	b.alertSpots = append(b.alertSpots, alertSpotEntry{spot: spot, callback: callback})
}

// DisableAutoAlert stops reporting for a spot id. It is a no-op for an id
// that is not enabled.
func (b *Bot) DisableAutoAlert(id int) {
	for i := range b.alertSpots {
		if b.alertSpots[i].spot.ID == id {
			b.alertSpots = append(b.alertSpots[:i], b.alertSpots[i+1:]...)
			return
		}
	}
}

// HasAutoAlert reports whether the bot watches a spot id.
func (b *Bot) HasAutoAlert(id int) bool {
	for i := range b.alertSpots {
		if b.alertSpots[i].spot.ID == id {
			return true
		}
	}
	return false
}

func (b *Bot) SelectedEnemies() SelectedEnemies { return b.selectedEnemies }

// SelectedNavEntity returns the nav target chosen for the current think.
func (b *Bot) SelectedNavEntity() (NavEntity, bool) { return b.NavTarget() }

func (b *Bot) eye() geom.Vec3 {
	e := b.Origin
	e.Z += ViewHeight
	return e
}

// Sense selects visible enemies among others and reports alert levels for
// every watched spot.
func (b *Bot) Sense(now time.Time, tracer aas.Tracer, others []*Bot) {
	var seen []Enemy
	for _, o := range others {
		if o == b || o.team == b.team || !o.IsAlive() {
			continue
		}
		if b.Origin.SquareDistanceTo(o.Origin) > SensingRange*SensingRange {
			continue
		}
		if !aas.Visible(tracer, b.eye(), o.eye(), b.Entity(), o.Entity()) {
			continue
		}
		seen = append(seen, Enemy{
			Entity:           o.Entity(),
			Name:             o.name,
			Origin:           o.Origin,
			Health:           o.Health,
			Armor:            o.Armor,
			Powerups:         o.Powerups,
			CarriesObjective: o.CarriesObjective,
			SeenAt:           now,
		})
	}
	sort.SliceStable(seen, func(i, j int) bool {
		return b.Origin.SquareDistanceTo(seen[i].Origin) < b.Origin.SquareDistanceTo(seen[j].Origin)
	})

	if len(seen) > 0 || b.selectedEnemies.AreValid() {
		b.selectedEnemies = SelectedEnemies{
			enemies:    seen,
			selectedAt: now,
			instanceID: b.selectedEnemies.instanceID + 1,
		}
	}

	b.reportAlerts(now, seen)
}

func (b *Bot) reportAlerts(now time.Time, seen []Enemy) {
	for _, e := range b.alertSpots {
		level := alertLevel(e.spot, seen)
		if level > 0 && e.callback != nil {
			e.callback(b, e.spot.ID, level, now)
		}
	}
}

func alertLevel(spot AlertSpot, enemies []Enemy) float32 {
	if spot.Radius <= 0 {
		return 0
	}
	var level float32
	for _, e := range enemies {
		d := e.Origin.DistanceTo(spot.Origin)
		if d > spot.Radius {
			continue
		}
		scale := spot.RegularEnemyInfluenceScale
		if e.CarriesObjective {
			scale = spot.CarrierEnemyInfluenceScale
		}
		level += (1 - d/spot.Radius) * scale
	}
	if level > 1 {
		level = 1
	}
	return level
}
