// Package objective assigns defenders and attackers to the objective spots
// of a team, on top of the team's squad brain. Its outputs are entity weight
// biases and base offensiveness, which each bot reads when it selects goals.
package objective

import (
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Qfusion/qfusion-sub007/internal/aas"
	"github.com/Qfusion/qfusion-sub007/internal/bot"
	"github.com/Qfusion/qfusion-sub007/internal/invariant"
	"github.com/Qfusion/qfusion-sub007/internal/squad"
)

const (
	// AlertTimeout is how long a reported alert lasts.
	AlertTimeout = 1000 * time.Millisecond
	// AlertStaleAfter is the age after which a lower alert report may
	// replace a higher one.
	AlertStaleAfter = 150 * time.Millisecond
	// AlertNotifyJump is the alert level increase that makes the reporter
	// warn its team.
	AlertNotifyJump float32 = 0.3
)

// Tuning holds the alert handling parameters.
type Tuning struct {
	AlertTimeout    time.Duration
	AlertStaleAfter time.Duration
	AlertNotifyJump float32
}

func DefaultTuning() Tuning {
	return Tuning{
		AlertTimeout:    AlertTimeout,
		AlertStaleAfter: AlertStaleAfter,
		AlertNotifyJump: AlertNotifyJump,
	}
}

func (t Tuning) withDefaults() Tuning {
	d := DefaultTuning()
	if t.AlertTimeout <= 0 {
		t.AlertTimeout = d.AlertTimeout
	}
	if t.AlertStaleAfter <= 0 {
		t.AlertStaleAfter = d.AlertStaleAfter
	}
	if t.AlertNotifyJump <= 0 {
		t.AlertNotifyJump = d.AlertNotifyJump
	}
	return t
}

// Notifier delivers a team chat message sent by a bot.
type Notifier func(from *bot.Bot, message string)

// Role is what the last think assigned to a bot.
type Role uint8

const (
	RoleNone Role = iota
	RoleDefender
	RoleAttacker
)

func (r Role) String() string {
	switch r {
	case RoleDefender:
		return "defender"
	case RoleAttacker:
		return "attacker"
	default:
		return "none"
	}
}

// Brain is the objective based brain of one team.
type Brain struct {
	*squad.Brain

	tuning       Tuning
	defenceSpots []*DefenceSpot
	offenceSpots []*OffenceSpot

	defenders map[int][]bot.Handle
	attackers map[int][]bot.Handle
	roles     map[bot.Handle]Role

	now    time.Time
	notify Notifier
	title  cases.Caser
}

// NewBrain returns the objective brain of a team. A nil notify logs team
// messages at Info.
func NewBrain(team int, bots squad.BotSource, world aas.World, squadTuning squad.Tuning, tuning Tuning, notify Notifier, logger *slog.Logger) *Brain {
	o := &Brain{
		Brain:     squad.NewBrain(team, bots, world, squadTuning, logger),
		tuning:    tuning.withDefaults(),
		defenders: map[int][]bot.Handle{},
		attackers: map[int][]bot.Handle{},
		roles:     map[bot.Handle]Role{},
		notify:    notify,
		title:     cases.Title(language.Und),
	}
	if o.notify == nil {
		o.notify = func(from *bot.Bot, message string) {
			o.Logger().Info("team message", "from", from.Name(), "message", message)
		}
	}
	return o
}

// Frame runs the squad frame followed by the objective think.
func (o *Brain) Frame(now time.Time) {
	o.Brain.Frame(now)
	o.Think(now)
}

// Defenders returns the bots assigned to a defence spot by the last think.
func (o *Brain) Defenders(spotID int) []*bot.Bot { return o.resolve(o.defenders[spotID]) }

// Attackers returns the bots assigned to an offence spot by the last think.
func (o *Brain) Attackers(spotID int) []*bot.Bot { return o.resolve(o.attackers[spotID]) }

// Role returns the role the last think gave b, RoleNone if it has none.
func (o *Brain) Role(b *bot.Bot) Role { return o.roles[b.Handle()] }

// Now returns the brain time, the latest time passed to Advance.
func (o *Brain) Now() time.Time { return o.now }

// Advance moves the brain clock to now. Alerts and reports are stamped with
// this clock, so the caller advances it every frame, including frames on
// which the brain does not think. The clock never moves backwards.
func (o *Brain) Advance(now time.Time) {
	if !now.After(o.now) {
		return
	}
	o.now = now
	for _, s := range o.defenceSpots {
		if s.pendingTimeout > 0 {
			s.alertTimeoutAt = now.Add(s.pendingTimeout)
			s.lastReportAt = now
			s.pendingTimeout = 0
		}
	}
}

func (o *Brain) resolve(hs []bot.Handle) []*bot.Bot {
	out := make([]*bot.Bot, 0, len(hs))
	for _, h := range hs {
		if b := o.Bots().Get(h); b != nil {
			out = append(out, b)
		}
	}
	return out
}

// OnAlertReported is the auto alert callback installed on teammates, with
// now being the time the reporter sensed the enemies. A report at least as
// high as the current level replaces it and refreshes the timeout at once;
// a lower one only after the current report went stale. Reporting a spot
// that is not registered is a fatal error.
func (o *Brain) OnAlertReported(reporter *bot.Bot, spotID int, level float32, now time.Time) {
	spot := o.findDefenceSpot(spotID)
	if spot == nil {
		invariant.Failf("OnAlertReported", "can't find a defence spot by id %d", spotID)
		return
	}
	o.Advance(now)
	if level < spot.alertLevel && o.now.Sub(spot.lastReportAt) < o.tuning.AlertStaleAfter {
		return
	}
	if level-spot.alertLevel > o.tuning.AlertNotifyJump {
		o.notify(reporter, o.alertMessage(spot))
	}
	spot.alertLevel = level
	spot.lastReportAt = o.now
	spot.alertTimeoutAt = o.now.Add(o.tuning.AlertTimeout)
}

func (o *Brain) alertMessage(spot *DefenceSpot) string {
	name := o.World().NearestLocationName(spot.Origin)
	if name == "" {
		return fmt.Sprintf("An enemy is incoming at defence spot %d!", spot.ID)
	}
	return fmt.Sprintf("An enemy is incoming @ %s!", o.title.String(name))
}
