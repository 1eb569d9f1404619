package objective

import (
	"math"
	"sort"
	"time"

	"github.com/Qfusion/qfusion-sub007/internal/aas"
	"github.com/Qfusion/qfusion-sub007/internal/bot"
	"github.com/Qfusion/qfusion-sub007/internal/geom"
)

const (
	// DefenderSpotWeight is the entity weight toward its spot of a
	// defender at or beyond the spot radius.
	DefenderSpotWeight float32 = 12
	// AttackerSpotWeight is the flat entity weight of an attacker toward
	// its spot.
	AttackerSpotWeight float32 = 9
	// CarrierSupportWeight is the largest entity weight toward a teammate
	// carrying the objective.
	CarrierSupportWeight float32 = 3

	powerupDefenceScale float32 = 0.001
	powerupOffenceScale float32 = 4

	carrierSupportDistance   float32 = 1000
	carrierSupportTravelTime float32 = 500
)

// Think assigns roles for this frame. It expects the squad frame to have
// run for now.
func (o *Brain) Think(now time.Time) {
	o.Advance(now)

	var candidates []*bot.Bot
	for _, b := range o.Members() {
		b.ClearOverriddenEntityWeights()
		b.SetBaseOffensiveness(bot.DefaultOffensiveness)
		if b.IsAlive() {
			candidates = append(candidates, b)
		}
	}

	for _, s := range o.defenceSpots {
		if !now.Before(s.alertTimeoutAt) {
			s.alertLevel = 0
		}
	}
	o.registerAutoAlerts()

	clear(o.defenders)
	clear(o.attackers)
	clear(o.roles)

	pool := make([]*bot.Bot, 0, len(candidates))
	for _, b := range candidates {
		if !b.CarriesObjective {
			pool = append(pool, b)
		}
	}
	pool = o.assignDefenders(pool)
	o.assignAttackers(pool)
	o.supportCarriers(candidates)
}

func (o *Brain) registerAutoAlerts() {
	members := o.Members()
	for _, s := range o.defenceSpots {
		if !s.UsesAutoAlert {
			continue
		}
		spot := s.alertSpot()
		for _, b := range members {
			b.EnableAutoAlert(spot, o.OnAlertReported)
		}
	}
}

type scored struct {
	bot   *bot.Bot
	score float32
}

func rawScore(b *bot.Bot) float32 {
	dtk := bot.DamageToKill(float32(b.Health), float32(b.Armor), bot.ArmorProtection, bot.ArmorDegradation)
	return dtk * float32(math.Sqrt(float64(b.Inventory.WeaponScore())))
}

// pick moves the best n candidates for origin out of pool. The effective
// score of a candidate is its raw score divided by its distance to origin.
func pick(pool []*bot.Bot, origin geom.Vec3, raw func(*bot.Bot) float32, n int) (picked, rest []*bot.Bot) {
	ranked := make([]scored, len(pool))
	for i, b := range pool {
		ranked[i] = scored{bot: b, score: raw(b) / max(b.Origin.DistanceTo(origin), 1)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	for i, r := range ranked {
		if i < n {
			picked = append(picked, r.bot)
		} else {
			rest = append(rest, r.bot)
		}
	}
	return picked, rest
}

// quota returns the guaranteed picks plus extras proportional to weight and
// what is left of the pool.
func quota(poolSize, minimum, limit int, weight float32) int {
	guaranteed := max(1, minimum)
	extra := int(math.Round(float64(geom.Clamp01(weight) * float32(max(poolSize-guaranteed, 0)))))
	return min(guaranteed+extra, limit, poolSize)
}

func (o *Brain) assignDefenders(pool []*bot.Bot) []*bot.Bot {
	spots := append([]*DefenceSpot(nil), o.defenceSpots...)
	sort.SliceStable(spots, func(i, j int) bool { return spots[i].alertLevel > spots[j].alertLevel })

	raw := func(b *bot.Bot) float32 {
		s := rawScore(b)
		if b.Powerups != 0 {
			s *= powerupDefenceScale
		}
		return s
	}
	for _, s := range spots {
		if len(pool) == 0 {
			break
		}
		var picked []*bot.Bot
		n := quota(len(pool), s.MinDefenders, s.maxDefenders(), s.alertLevel)
		picked, pool = pick(pool, s.Origin, raw, n)
		for _, b := range picked {
			o.defenders[s.ID] = append(o.defenders[s.ID], b.Handle())
			o.roles[b.Handle()] = RoleDefender
			o.applyDefender(b, s)
		}
	}
	return pool
}

// applyDefender pulls a defender toward its spot harder the farther away it
// is, and makes it calmer the farther it is.
func (o *Brain) applyDefender(b *bot.Bot, s *DefenceSpot) {
	factor := float32(1)
	if s.Radius > 0 {
		inner := s.Radius / 3
		factor = geom.Clamp01((b.Origin.DistanceTo(s.Origin) - inner) / (s.Radius - inner))
	}
	b.SetExternalEntityWeight(s.Entity, DefenderSpotWeight*factor)
	b.SetBaseOffensiveness(1 - factor)
}

func (o *Brain) assignAttackers(pool []*bot.Bot) {
	spots := append([]*OffenceSpot(nil), o.offenceSpots...)
	sort.SliceStable(spots, func(i, j int) bool { return spots[i].Weight > spots[j].Weight })

	raw := func(b *bot.Bot) float32 {
		s := rawScore(b)
		if b.Powerups != 0 {
			s *= powerupOffenceScale
		}
		return s
	}
	for _, s := range spots {
		if len(pool) == 0 {
			return
		}
		var picked []*bot.Bot
		n := quota(len(pool), s.MinAttackers, s.maxAttackers(), s.Weight)
		picked, pool = pick(pool, s.Origin, raw, n)
		for _, b := range picked {
			o.attackers[s.ID] = append(o.attackers[s.ID], b.Handle())
			o.roles[b.Handle()] = RoleAttacker
			b.SetExternalEntityWeight(s.Entity, AttackerSpotWeight)
			b.SetBaseOffensiveness(0)
		}
	}
}

// supportCarriers biases every other candidate toward a teammate carrying
// the objective. Supporters that are far, out of sight or slow to reach the
// carrier get the larger bias.
func (o *Brain) supportCarriers(candidates []*bot.Bot) {
	for _, carrier := range candidates {
		if !carrier.CarriesObjective {
			continue
		}
		for _, b := range candidates {
			if b == carrier {
				continue
			}
			distance := geom.Clamp01(b.Origin.DistanceTo(carrier.Origin) / carrierSupportDistance)
			visibility := float32(1)
			if aas.Visible(o.World(), eye(b), eye(carrier), b.Entity(), carrier.Entity()) {
				visibility = 0
			}
			travel := float32(1)
			if t := o.TravelTime(b, carrier); t > 0 {
				travel = geom.Clamp01(float32(t) / carrierSupportTravelTime)
			}
			w := CarrierSupportWeight * (distance + visibility + travel) / 3
			b.SetExternalEntityWeight(carrier.Entity(), max(w, b.ExternalEntityWeight(carrier.Entity())))
		}
	}
}

func eye(b *bot.Bot) geom.Vec3 {
	e := b.Origin
	e.Z += bot.ViewHeight
	return e
}
