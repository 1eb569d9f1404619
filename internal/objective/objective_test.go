package objective

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Qfusion/qfusion-sub007/internal/bot"
	"github.com/Qfusion/qfusion-sub007/internal/geom"
	"github.com/Qfusion/qfusion-sub007/internal/invariant"
	"github.com/Qfusion/qfusion-sub007/internal/scenario"
	"github.com/Qfusion/qfusion-sub007/internal/squad"
)

type fixture struct {
	brain    *Brain
	pool     *bot.Pool
	world    *scenario.World
	messages []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{pool: &bot.Pool{}}
	f.world = scenario.NewWorld(geom.V(-4096, -4096, 0), geom.V(4096, 4096, 0), 64, 320)
	f.world.Locations = []scenario.Location{{Name: "red base", Origin: geom.V(0, 0, 0)}}
	f.brain = NewBrain(1, f.pool, f.world, squad.DefaultTuning(), DefaultTuning(),
		func(_ *bot.Bot, msg string) { f.messages = append(f.messages, msg) }, nil)
	return f
}

func (f *fixture) add(t *testing.T, team int, origins ...geom.Vec3) []*bot.Bot {
	t.Helper()
	var out []*bot.Bot
	for _, o := range origins {
		b := bot.New("b", team, nil)
		b.Origin = o
		_, err := f.pool.Add(b)
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

func report(o *Brain, b *bot.Bot, id int, level float32, at time.Time) (err error) {
	defer invariant.Recover(&err)
	o.OnAlertReported(b, id, level, at)
	return nil
}

func TestSpotBookkeeping(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.brain

	assert.ErrorIs(t, o.AddDefenceSpot(DefenceSpot{ID: 0}), ErrInvalidID)
	assert.ErrorIs(t, o.AddDefenceSpot(DefenceSpot{ID: -2}), ErrInvalidID)
	for id := 1; id <= MaxDefenceSpots; id++ {
		require.NoError(t, o.AddDefenceSpot(DefenceSpot{ID: id, Radius: 100}))
	}
	assert.ErrorIs(t, o.AddDefenceSpot(DefenceSpot{ID: 1}), ErrDuplicateID)
	assert.ErrorIs(t, o.AddDefenceSpot(DefenceSpot{ID: 9}), ErrCapacityExceeded)
	assert.Len(t, o.DefenceSpots(), MaxDefenceSpots)

	assert.ErrorIs(t, o.RemoveDefenceSpot(9), ErrUnknownID)
	assert.ErrorIs(t, o.RemoveDefenceSpot(0), ErrInvalidID)
	require.NoError(t, o.RemoveDefenceSpot(2))
	assert.Len(t, o.DefenceSpots(), MaxDefenceSpots-1)
	require.NoError(t, o.AddDefenceSpot(DefenceSpot{ID: 9}))

	assert.ErrorIs(t, o.SetDefenceSpotAlert(2, 1, time.Second), ErrUnknownID)
	assert.ErrorIs(t, o.EnableDefenceSpotAutoAlert(2), ErrUnknownID)
	assert.ErrorIs(t, o.DisableDefenceSpotAutoAlert(-1), ErrInvalidID)

	for id := 1; id <= MaxOffenceSpots; id++ {
		require.NoError(t, o.AddOffenceSpot(OffenceSpot{ID: id}))
	}
	assert.ErrorIs(t, o.AddOffenceSpot(OffenceSpot{ID: 1}), ErrDuplicateID)
	assert.ErrorIs(t, o.AddOffenceSpot(OffenceSpot{ID: 4}), ErrCapacityExceeded)
	assert.ErrorIs(t, o.RemoveOffenceSpot(4), ErrUnknownID)
	require.NoError(t, o.RemoveOffenceSpot(3))
	assert.Len(t, o.OffenceSpots(), MaxOffenceSpots-1)
}

func TestAlertDecaysAfterTimeout(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.brain
	guard := f.add(t, 1, geom.V(100, 0, 0))[0]
	require.NoError(t, o.AddDefenceSpot(DefenceSpot{ID: 1, Radius: 500}))

	t0 := time.Unix(100, 0)
	o.Think(t0)
	require.NoError(t, report(o, guard, 1, 0.9, t0))
	assert.InDelta(t, 0.9, o.DefenceSpots()[0].AlertLevel(), 1e-6)
	assert.Equal(t, t0.Add(AlertTimeout), o.DefenceSpots()[0].AlertTimeoutAt())
	assert.Equal(t, []string{"An enemy is incoming @ Red Base!"}, f.messages)

	o.Think(t0.Add(999 * time.Millisecond))
	assert.InDelta(t, 0.9, o.DefenceSpots()[0].AlertLevel(), 1e-6)

	o.Think(t0.Add(1001 * time.Millisecond))
	assert.Zero(t, o.DefenceSpots()[0].AlertLevel())
}

func TestAlertHysteresis(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.brain
	guard := f.add(t, 1, geom.V(100, 0, 0))[0]
	require.NoError(t, o.AddDefenceSpot(DefenceSpot{ID: 1, Radius: 500}))
	level := func() float32 { return o.DefenceSpots()[0].AlertLevel() }

	t0 := time.Unix(100, 0)
	o.Think(t0)
	require.NoError(t, report(o, guard, 1, 0.9, t0))

	o.Think(t0.Add(100 * time.Millisecond))
	require.NoError(t, report(o, guard, 1, 0.5, t0.Add(100*time.Millisecond)))
	assert.InDelta(t, 0.9, level(), 1e-6, "a fresh higher report wins")

	o.Think(t0.Add(150 * time.Millisecond))
	require.NoError(t, report(o, guard, 1, 0.5, t0.Add(150*time.Millisecond)))
	assert.InDelta(t, 0.5, level(), 1e-6, "a stale report is replaced")
	assert.Equal(t, t0.Add(1150*time.Millisecond), o.DefenceSpots()[0].AlertTimeoutAt())

	require.NoError(t, report(o, guard, 1, 0.6, t0.Add(150*time.Millisecond)))
	assert.InDelta(t, 0.6, level(), 1e-6, "a higher report wins at once")
	assert.Len(t, f.messages, 1, "small jumps are not announced")
}

func TestAlertRepeatedSightingRefreshesTimeout(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.brain
	guard := f.add(t, 1, geom.V(100, 0, 0))[0]
	require.NoError(t, o.AddDefenceSpot(DefenceSpot{ID: 1, Radius: 500}))

	t0 := time.Unix(100, 0)
	o.Think(t0)
	require.NoError(t, report(o, guard, 1, 0.5, t0))
	require.NoError(t, report(o, guard, 1, 0.5, t0.Add(50*time.Millisecond)))
	assert.Equal(t, t0.Add(1050*time.Millisecond), o.DefenceSpots()[0].AlertTimeoutAt())

	o.Think(t0.Add(1020 * time.Millisecond))
	assert.InDelta(t, 0.5, o.DefenceSpots()[0].AlertLevel(), 1e-6)
}

func TestAlertReportsUseTheirOwnTime(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.brain
	guard := f.add(t, 1, geom.V(100, 0, 0))[0]
	require.NoError(t, o.AddDefenceSpot(DefenceSpot{ID: 1, Radius: 500}))
	level := func() float32 { return o.DefenceSpots()[0].AlertLevel() }

	// The brain thinks once; reports keep arriving on later frames.
	t0 := time.Unix(100, 0)
	o.Think(t0)
	require.NoError(t, report(o, guard, 1, 0.9, t0.Add(100*time.Millisecond)))
	assert.Equal(t, t0.Add(1100*time.Millisecond), o.DefenceSpots()[0].AlertTimeoutAt())
	assert.Equal(t, t0.Add(100*time.Millisecond), o.Now())

	require.NoError(t, report(o, guard, 1, 0.5, t0.Add(200*time.Millisecond)))
	assert.InDelta(t, 0.9, level(), 1e-6, "100ms old is still fresh")

	require.NoError(t, report(o, guard, 1, 0.5, t0.Add(250*time.Millisecond)))
	assert.InDelta(t, 0.5, level(), 1e-6, "150ms old is stale")
	assert.Equal(t, t0.Add(1250*time.Millisecond), o.DefenceSpots()[0].AlertTimeoutAt())
}

func TestAlertSetBeforeFirstFrame(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.brain
	f.add(t, 1, geom.V(100, 0, 0))
	require.NoError(t, o.AddDefenceSpot(DefenceSpot{ID: 1, Radius: 500}))
	require.NoError(t, o.SetDefenceSpotAlert(1, 0.8, time.Second))

	t0 := time.Unix(100, 0)
	o.Think(t0)
	assert.InDelta(t, 0.8, o.DefenceSpots()[0].AlertLevel(), 1e-6)
	assert.Equal(t, t0.Add(time.Second), o.DefenceSpots()[0].AlertTimeoutAt())

	o.Think(t0.Add(999 * time.Millisecond))
	assert.InDelta(t, 0.8, o.DefenceSpots()[0].AlertLevel(), 1e-6)
	o.Think(t0.Add(time.Second))
	assert.Zero(t, o.DefenceSpots()[0].AlertLevel())
}

func TestAdvanceIsMonotonic(t *testing.T) {
	t.Parallel()
	o := newFixture(t).brain
	t0 := time.Unix(100, 0)
	o.Advance(t0)
	o.Advance(t0.Add(-time.Second))
	assert.Equal(t, t0, o.Now())
}

func TestAlertForUnknownSpotIsFatal(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	guard := f.add(t, 1, geom.V(100, 0, 0))[0]
	err := report(f.brain, guard, 7, 0.5, time.Unix(100, 0))
	var v *invariant.Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "OnAlertReported", v.Site)
	assert.Contains(t, v.Error(), "7")
}

func TestAutoAlert(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.brain
	guard := f.add(t, 1, geom.V(100, 0, 0))[0]
	enemy := f.add(t, 2, geom.V(200, 0, 0))[0]
	require.NoError(t, o.AddDefenceSpot(DefenceSpot{ID: 1, Radius: 500, UsesAutoAlert: true}))

	now := time.Unix(100, 0)
	o.Think(now)
	assert.True(t, guard.HasAutoAlert(1))
	assert.False(t, enemy.HasAutoAlert(1))

	guard.Sense(now, f.world, []*bot.Bot{guard, enemy})
	assert.InDelta(t, 0.6, o.DefenceSpots()[0].AlertLevel(), 1e-5)
	assert.Len(t, f.messages, 1)

	require.NoError(t, o.DisableDefenceSpotAutoAlert(1))
	assert.False(t, guard.HasAutoAlert(1))
	o.Think(now.Add(16 * time.Millisecond))
	assert.False(t, guard.HasAutoAlert(1))

	require.NoError(t, o.EnableDefenceSpotAutoAlert(1))
	o.Think(now.Add(32 * time.Millisecond))
	assert.True(t, guard.HasAutoAlert(1))
	require.NoError(t, o.RemoveDefenceSpot(1))
	assert.False(t, guard.HasAutoAlert(1))
}

func TestRoleAssignment(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.brain
	bots := f.add(t, 1,
		geom.V(50, 0, 0), geom.V(400, 0, 0), geom.V(800, 0, 0),
		geom.V(1200, 0, 0), geom.V(1600, 0, 0), geom.V(2000, 0, 0),
	)
	require.NoError(t, o.AddDefenceSpot(DefenceSpot{ID: 1, Entity: 70, Radius: 300}))
	require.NoError(t, o.AddOffenceSpot(OffenceSpot{ID: 1, Entity: 80, Origin: geom.V(3000, 0, 0), Weight: 0.5}))

	now := time.Unix(100, 0)
	for _, b := range bots {
		b.SetExternalEntityWeight(99, 5)
		b.SetBaseOffensiveness(0.9)
	}
	o.Think(now)
	assertDisjointRoles(t, o, bots)

	assert.Equal(t, []*bot.Bot{bots[0]}, o.Defenders(1))
	assert.Equal(t, RoleDefender, o.Role(bots[0]))
	assert.Equal(t, float32(1), bots[0].BaseOffensiveness(), "inside a third of the radius")
	assert.Zero(t, bots[0].ExternalEntityWeight(70))

	assert.ElementsMatch(t, []*bot.Bot{bots[3], bots[4], bots[5]}, o.Attackers(1))
	for _, b := range o.Attackers(1) {
		assert.Equal(t, AttackerSpotWeight, b.ExternalEntityWeight(80))
		assert.Zero(t, b.BaseOffensiveness())
	}
	for _, b := range bots[1:3] {
		assert.Equal(t, RoleNone, o.Role(b))
		assert.Equal(t, bot.DefaultOffensiveness, b.BaseOffensiveness())
		assert.Zero(t, b.ExternalEntityWeight(99), "overrides are reset every think")
	}

	require.NoError(t, o.SetDefenceSpotAlert(1, 1, time.Second))
	o.Think(now.Add(16 * time.Millisecond))
	assertDisjointRoles(t, o, bots)
	assert.Len(t, o.Defenders(1), MaxSpotDefenders)
	assert.Equal(t, []*bot.Bot{bots[5]}, o.Attackers(1))
	assert.Equal(t, DefenderSpotWeight, bots[1].ExternalEntityWeight(70))
	assert.Zero(t, bots[1].BaseOffensiveness())
}

func assertDisjointRoles(t *testing.T, o *Brain, bots []*bot.Bot) {
	t.Helper()
	defenders := map[*bot.Bot]bool{}
	for _, s := range o.DefenceSpots() {
		for _, b := range o.Defenders(s.ID) {
			defenders[b] = true
		}
	}
	for _, s := range o.OffenceSpots() {
		for _, b := range o.Attackers(s.ID) {
			assert.False(t, defenders[b], "%s is both defender and attacker", b.Name())
		}
	}
}

func TestPowerupHoldersDoNotCamp(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.brain
	bots := f.add(t, 1, geom.V(200, 0, 0), geom.V(-200, 0, 0))
	bots[0].Powerups = bot.Quad
	require.NoError(t, o.AddDefenceSpot(DefenceSpot{ID: 1, Entity: 70, Radius: 300}))
	require.NoError(t, o.AddOffenceSpot(OffenceSpot{ID: 1, Entity: 80, Origin: geom.V(0, 3000, 0)}))

	o.Think(time.Unix(100, 0))
	assert.Equal(t, []*bot.Bot{bots[1]}, o.Defenders(1))
	assert.Equal(t, []*bot.Bot{bots[0]}, o.Attackers(1))
}

func TestCarrierSupport(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.world.Walls = []scenario.Wall{{From: geom.V(500, -1000, 0), To: geom.V(500, 1000, 0)}}
	o := f.brain
	bots := f.add(t, 1, geom.V(0, 0, 0), geom.V(100, 0, 0), geom.V(900, 0, 0))
	carrier, near, far := bots[0], bots[1], bots[2]
	carrier.CarriesObjective = true

	o.Think(time.Unix(100, 0))
	nearWeight := near.ExternalEntityWeight(carrier.Entity())
	farWeight := far.ExternalEntityWeight(carrier.Entity())
	assert.Less(t, nearWeight, float32(0.5))
	assert.Greater(t, farWeight, float32(2.5))
	assert.LessOrEqual(t, farWeight, CarrierSupportWeight)
	assert.Zero(t, carrier.ExternalEntityWeight(carrier.Entity()))
	assert.Zero(t, carrier.Offensiveness())
}

func TestFrameFormsSquadsThenAssigns(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.brain
	bots := f.add(t, 1, geom.V(0, 0, 0), geom.V(150, 0, 0), geom.V(0, 150, 0))
	require.NoError(t, o.AddDefenceSpot(DefenceSpot{ID: 1, Entity: 70, Radius: 300}))

	o.Frame(time.Unix(100, 0))
	require.Len(t, o.Squads(), 1)
	assert.Equal(t, 3, o.Squads()[0].Len())
	assert.Len(t, o.Defenders(1), 1)
	assert.Contains(t, bots, o.Defenders(1)[0])
}

func TestRoleString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "defender", RoleDefender.String())
	assert.Equal(t, "attacker", RoleAttacker.String())
	assert.Equal(t, "none", RoleNone.String())
}
