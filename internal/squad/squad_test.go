package squad

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Qfusion/qfusion-sub007/internal/aas"
	"github.com/Qfusion/qfusion-sub007/internal/bot"
	"github.com/Qfusion/qfusion-sub007/internal/geom"
	"github.com/Qfusion/qfusion-sub007/internal/scenario"
)

// tableWorld has one area per registered point and explicit travel times.
type tableWorld struct {
	points  []geom.Vec3
	times   map[[2]int]int
	blocked bool
}

func (w *tableWorld) PointAreaNum(p geom.Vec3) int {
	for i, q := range w.points {
		if p.SquareDistanceTo(q) < 1 {
			return i + 1
		}
	}
	return 0
}

func (w *tableWorld) TravelTimeToGoalArea(from int, _ geom.Vec3, to int, _ aas.TravelFlags) int {
	return w.times[[2]int{from, to}]
}

func (w *tableWorld) Trace(geom.Vec3, geom.Vec3, int) aas.TraceResult {
	if w.blocked {
		return aas.TraceResult{Fraction: 0.5}
	}
	return aas.TraceResult{Fraction: 1}
}

func (w *tableWorld) NearestLocationName(geom.Vec3) string { return "" }

func (w *tableWorld) connect(a, b, cs int) {
	if w.times == nil {
		w.times = map[[2]int]int{}
	}
	w.times[[2]int{a, b}] = cs
	w.times[[2]int{b, a}] = cs
}

func newBots(t *testing.T, pool *bot.Pool, team int, origins ...geom.Vec3) []*bot.Bot {
	t.Helper()
	out := make([]*bot.Bot, 0, len(origins))
	for i, o := range origins {
		b := bot.New(string(rune('a'+i)), team, nil)
		b.Origin = o
		_, err := pool.Add(b)
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

func squadOf(t *testing.T, brain *Brain, b *bot.Bot) *Squad {
	t.Helper()
	ref, ok := b.Squad()
	require.True(t, ok, "%s has no squad", b.Name())
	s := brain.Squad(ref)
	require.NotNil(t, s)
	return s
}

func TestSetupSquads_ThreeFormFourthStaysOrphan(t *testing.T) {
	t.Parallel()
	w := &tableWorld{points: []geom.Vec3{
		geom.V(0, 0, 0), geom.V(200, 0, 0), geom.V(100, 150, 0), geom.V(2000, 2000, 0),
	}}
	w.connect(1, 2, 150)
	w.connect(1, 3, 150)
	w.connect(2, 3, 150)

	var pool bot.Pool
	bots := newBots(t, &pool, 1, w.points...)
	brain := NewBrain(1, &pool, w, DefaultTuning(), nil)

	brain.Frame(time.Unix(10, 0))

	s := squadOf(t, brain, bots[0])
	assert.Equal(t, 3, s.Len())
	assert.Same(t, s, squadOf(t, brain, bots[1]))
	assert.Same(t, s, squadOf(t, brain, bots[2]))
	_, ok := bots[3].Squad()
	assert.False(t, ok)
	assert.Equal(t, []*bot.Bot{bots[3]}, brain.Orphans())
	assert.Len(t, brain.Squads(), 1)
	assert.NotEqual(t, [16]byte{}, [16]byte(s.ID()))
}

func TestSetupSquads_SizeIsBounded(t *testing.T) {
	t.Parallel()
	w := &tableWorld{}
	for i := 0; i < 7; i++ {
		w.points = append(w.points, geom.V(float32(i*40), 0, 0))
	}
	for i := 1; i <= 7; i++ {
		for j := i + 1; j <= 7; j++ {
			w.connect(i, j, 10*(j-i))
		}
	}
	var pool bot.Pool
	bots := newBots(t, &pool, 1, w.points...)
	brain := NewBrain(1, &pool, w, DefaultTuning(), nil)

	now := time.Unix(10, 0)
	for i := 0; i < 3; i++ {
		brain.Frame(now)
		now = now.Add(100 * time.Millisecond)
	}
	placed := 0
	for _, s := range brain.Squads() {
		assert.LessOrEqual(t, s.Len(), MaxSize)
		assert.GreaterOrEqual(t, s.Len(), 2)
		placed += s.Len()
		for _, m := range s.Members() {
			ref, ok := m.Squad()
			require.True(t, ok)
			assert.Equal(t, s.Ref(), ref)
		}
	}
	assert.Equal(t, len(bots), placed+len(brain.Orphans()))
	assert.GreaterOrEqual(t, placed, 6)
}

func TestSetupSquads_RequiresMutualCandidates(t *testing.T) {
	t.Parallel()
	w := &tableWorld{points: []geom.Vec3{geom.V(0, 0, 0), geom.V(100, 0, 0)}}
	// reachable one way only
	w.times = map[[2]int]int{{1, 2}: 100}
	var pool bot.Pool
	bots := newBots(t, &pool, 1, w.points...)
	brain := NewBrain(1, &pool, w, DefaultTuning(), nil)
	brain.Frame(time.Unix(10, 0))
	assert.Empty(t, brain.Squads())
	assert.Len(t, brain.Orphans(), len(bots))

	// too slow in sum
	w.connect(1, 2, 200)
	brain.Frame(time.Unix(11, 0))
	assert.Empty(t, brain.Squads())

	w.connect(1, 2, 199)
	brain.Frame(time.Unix(12, 0))
	assert.Len(t, brain.Squads(), 1)
}

func TestTryAttachBot(t *testing.T) {
	t.Parallel()
	w := &tableWorld{points: []geom.Vec3{geom.V(0, 0, 0), geom.V(100, 0, 0), geom.V(300, 0, 0)}}
	w.connect(1, 2, 50)
	var pool bot.Pool
	bots := newBots(t, &pool, 1, w.points[:2]...)
	brain := NewBrain(1, &pool, w, DefaultTuning(), nil)
	now := time.Unix(10, 0)
	brain.Frame(now)
	s := squadOf(t, brain, bots[0])

	late := newBots(t, &pool, 1, w.points[2])[0]
	// connected to the second member only
	w.connect(2, 3, 90)
	brain.Frame(now.Add(time.Second))
	assert.Same(t, s, squadOf(t, brain, late))
	assert.Equal(t, 3, s.Len())

	extra := bot.New("extra", 1, nil)
	_, err := pool.Add(extra)
	require.NoError(t, err)
	assert.False(t, s.TryAttachBot(extra), "squad is full")
	assert.ErrorIs(t, s.AddBot(extra), ErrCapacityExceeded)
}

func TestConnectivityTimeoutReleasesOnce(t *testing.T) {
	t.Parallel()
	w := &tableWorld{points: []geom.Vec3{geom.V(0, 0, 0), geom.V(100, 0, 0)}}
	w.connect(1, 2, 50)
	var pool bot.Pool
	bots := newBots(t, &pool, 1, w.points...)
	brain := NewBrain(1, &pool, w, DefaultTuning(), nil)
	releases := 0
	brain.OnRelease = func(_ bot.SquadRef, members []bot.Handle) {
		releases++
		assert.Len(t, members, 2)
	}

	t0 := time.Unix(10, 0)
	brain.Frame(t0)
	s := squadOf(t, brain, bots[0])
	ref := s.Ref()

	// lose both movement and sight
	w.connect(1, 2, 0)
	w.blocked = true
	brain.Frame(t0.Add(100 * time.Millisecond))
	assert.True(t, s.IsValid())
	assert.False(t, s.CanMoveTogether())
	assert.False(t, s.CanFightTogether())

	brain.Frame(t0.Add(749 * time.Millisecond))
	assert.True(t, s.IsValid())

	brain.Frame(t0.Add(750 * time.Millisecond))
	assert.False(t, s.IsValid())
	_, ok := bots[0].Squad()
	assert.True(t, ok, "members are released on the next frame")

	for i := 1; i <= 3; i++ {
		brain.Frame(t0.Add(750*time.Millisecond + time.Duration(i)*16*time.Millisecond))
	}
	assert.Equal(t, 1, releases)
	assert.Nil(t, brain.Squad(ref))
	for _, b := range bots {
		_, ok := b.Squad()
		assert.False(t, ok)
	}
	assert.Len(t, brain.Orphans(), 2)
}

func TestSightAloneKeepsSquad(t *testing.T) {
	t.Parallel()
	w := &tableWorld{points: []geom.Vec3{geom.V(0, 0, 0), geom.V(100, 0, 0)}}
	w.connect(1, 2, 50)
	var pool bot.Pool
	newBots(t, &pool, 1, w.points...)
	brain := NewBrain(1, &pool, w, DefaultTuning(), nil)
	t0 := time.Unix(10, 0)
	brain.Frame(t0)
	require.Len(t, brain.Squads(), 1)

	w.connect(1, 2, 0)
	brain.Frame(t0.Add(2 * time.Second))
	s := brain.Squads()[0]
	assert.True(t, s.IsValid())
	assert.True(t, s.CanFightTogether())
	assert.Equal(t, t0.Add(2*time.Second+ConnectivityTimeout), s.BrokenConnectivityTimeoutAt())
}

func TestGhostingMemberInvalidates(t *testing.T) {
	t.Parallel()
	w := &tableWorld{points: []geom.Vec3{geom.V(0, 0, 0), geom.V(100, 0, 0), geom.V(50, 50, 0)}}
	w.connect(1, 2, 50)
	w.connect(1, 3, 50)
	w.connect(2, 3, 50)
	var pool bot.Pool
	bots := newBots(t, &pool, 1, w.points...)
	brain := NewBrain(1, &pool, w, DefaultTuning(), nil)
	t0 := time.Unix(10, 0)
	brain.Frame(t0)
	s := squadOf(t, brain, bots[0])

	bots[2].Ghosting = true
	brain.Frame(t0.Add(16 * time.Millisecond))
	assert.False(t, s.IsValid())

	brain.Frame(t0.Add(32 * time.Millisecond))
	_, ok := bots[2].Squad()
	assert.False(t, ok)
	// the other two regroup straight away
	assert.Same(t, squadOf(t, brain, bots[0]), squadOf(t, brain, bots[1]))
}

func TestOtherTeamsAreIgnored(t *testing.T) {
	t.Parallel()
	w := &tableWorld{points: []geom.Vec3{geom.V(0, 0, 0), geom.V(100, 0, 0)}}
	w.connect(1, 2, 50)
	var pool bot.Pool
	newBots(t, &pool, 1, w.points[0])
	newBots(t, &pool, 2, w.points[1])
	brain := NewBrain(1, &pool, w, DefaultTuning(), nil)
	brain.Frame(time.Unix(10, 0))
	assert.Empty(t, brain.Squads())
	assert.Len(t, brain.Orphans(), 1)
}

func TestScenarioWorld(t *testing.T) {
	t.Parallel()
	w := scenario.NewWorld(geom.V(0, 0, 0), geom.V(4096, 4096, 0), 32, 320)
	w.Walls = []scenario.Wall{{From: geom.V(1000, 0, 0), To: geom.V(1000, 4096, 0)}}
	var pool bot.Pool
	bots := newBots(t, &pool, 1,
		geom.V(100, 100, 0), geom.V(300, 100, 0), geom.V(200, 250, 0),
		geom.V(2100, 100, 0),
	)
	brain := NewBrain(1, &pool, w, DefaultTuning(), nil)
	brain.Frame(time.Unix(10, 0))

	s := squadOf(t, brain, bots[0])
	assert.Equal(t, 3, s.Len())
	_, ok := bots[3].Squad()
	assert.False(t, ok)
}
