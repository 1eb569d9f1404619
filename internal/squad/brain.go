package squad

import (
	"container/heap"
	"log/slog"
	"sort"
	"time"

	"github.com/Qfusion/qfusion-sub007/internal/aas"
	"github.com/Qfusion/qfusion-sub007/internal/bot"
	"github.com/Qfusion/qfusion-sub007/internal/geom"
	"github.com/Qfusion/qfusion-sub007/internal/navcache"
)

// MaxSquads is the size of a brain's squad pool. It can hold every bot in a
// squad of its own.
const MaxSquads = navcache.MaxClients

// BotSource resolves bots. *bot.Pool implements it.
type BotSource interface {
	Get(h bot.Handle) *bot.Bot
	Slot(i int) *bot.Bot
	All() []*bot.Bot
}

// Brain maintains the squads of one team.
type Brain struct {
	team   int
	bots   BotSource
	world  aas.World
	tuning Tuning
	matrix *navcache.Matrix
	logger *slog.Logger

	squads  [MaxSquads]Squad
	orphans []*bot.Bot

	// OnRelease, if set, is called once for every released squad with the
	// handles of its members.
	OnRelease func(ref bot.SquadRef, members []bot.Handle)
}

// NewBrain returns the squad brain of a team.
func NewBrain(team int, bots BotSource, world aas.World, tuning Tuning, logger *slog.Logger) *Brain {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Brain{
		team:   team,
		bots:   bots,
		world:  world,
		tuning: tuning.withDefaults(),
		logger: logger.With("team", team),
	}
	b.matrix = navcache.New(world, b.locate)
	for i := range b.squads {
		s := &b.squads[i]
		s.brain = b
		s.ref.Index = int32(i)
	}
	return b
}

func (b *Brain) locate(slot int) (geom.Vec3, bool) {
	if bt := b.bots.Slot(slot); bt != nil {
		return bt.Origin, true
	}
	return geom.Vec3{}, false
}

// Team returns the team number the brain thinks for.
func (b *Brain) Team() int { return b.team }

// World returns the navigation world squads are checked against.
func (b *Brain) World() aas.World { return b.world }

// Tuning returns the squad parameters, defaults filled in.
func (b *Brain) Tuning() Tuning { return b.tuning }

// Logger returns the brain logger, tagged with the team.
func (b *Brain) Logger() *slog.Logger { return b.logger }

// Bots returns the source the brain draws its members from.
func (b *Brain) Bots() BotSource { return b.bots }

// Matrix returns the travel time cache refreshed on every frame.
func (b *Brain) Matrix() *navcache.Matrix { return b.matrix }

// TravelTime is the cached travel time between two bots this frame.
func (b *Brain) TravelTime(from, to *bot.Bot) int {
	return b.matrix.TravelTime(from.Slot(), to.Slot())
}

// Members returns the bots of the team in slot order.
func (b *Brain) Members() []*bot.Bot {
	var out []*bot.Bot
	for _, bt := range b.bots.All() {
		if bt.Team() == b.team {
			out = append(out, bt)
		}
	}
	return out
}

// Squad resolves a squad reference, returning nil when it is stale.
func (b *Brain) Squad(ref bot.SquadRef) *Squad {
	if ref.Index < 0 || int(ref.Index) >= len(b.squads) {
		return nil
	}
	s := &b.squads[ref.Index]
	if !s.inUse || s.ref.Gen != ref.Gen {
		return nil
	}
	return s
}

// Squads returns the squads in use.
func (b *Brain) Squads() []*Squad {
	var out []*Squad
	for i := range b.squads {
		if b.squads[i].inUse {
			out = append(out, &b.squads[i])
		}
	}
	return out
}

// Orphans returns the bots left without a squad by the last frame.
func (b *Brain) Orphans() []*bot.Bot { return append([]*bot.Bot(nil), b.orphans...) }

// Frame runs one squad brain frame: release invalid squads, clear the travel
// time cache, refresh connectivity of the rest, then form squads from
// orphans.
func (b *Brain) Frame(now time.Time) {
	for i := range b.squads {
		s := &b.squads[i]
		if s.inUse && !s.valid {
			members := s.release()
			if b.OnRelease != nil {
				b.OnRelease(s.ref, members)
			}
		}
	}
	b.matrix.Clear()

	for i := range b.squads {
		if b.squads[i].inUse {
			b.squads[i].Think(now)
		}
	}

	b.orphans = b.orphans[:0]
	for _, bt := range b.Members() {
		if !bt.IsAlive() {
			continue
		}
		if _, ok := bt.Squad(); ok {
			continue
		}
		b.orphans = append(b.orphans, bt)
	}
	if len(b.orphans) > 0 {
		b.SetupSquads(now)
	}
}

// connectionCost tests whether two bots may share a squad: close enough
// and reachable both ways with a summed travel time under the budget. The
// summed time is the cost.
func (b *Brain) connectionCost(x, y *bot.Bot) (int, bool) {
	if x.Origin.SquareDistanceTo(y.Origin) > b.tuning.Proximity*b.tuning.Proximity {
		return 0, false
	}
	there := b.TravelTime(x, y)
	if there == 0 {
		return 0, false
	}
	back := b.TravelTime(y, x)
	if back == 0 {
		return 0, false
	}
	sum := there + back
	if sum >= b.tuning.MoveCentiseconds {
		return 0, false
	}
	return sum, true
}

type candidate struct {
	orphan int
	cost   int
}

// candidateHeap is a max-heap on cost, so the worst kept candidate is on
// top and is the one evicted.
type candidateHeap []candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return h[i].cost > h[j].cost }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	c := old[len(old)-1]
	*h = old[:len(old)-1]
	return c
}

// candidates returns up to MaxSize-1 orphans connected to orphan i,
// cheapest first.
func (b *Brain) candidates(i int) []candidate {
	h := make(candidateHeap, 0, MaxSize-1)
	for j, other := range b.orphans {
		if j == i {
			continue
		}
		cost, ok := b.connectionCost(b.orphans[i], other)
		if !ok {
			continue
		}
		c := candidate{orphan: j, cost: cost}
		if h.Len() < MaxSize-1 {
			heap.Push(&h, c)
			continue
		}
		if cost < h[0].cost {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}
	sort.Slice(h, func(x, y int) bool { return h[x].cost < h[y].cost })
	return h
}

func listNames(list []candidate, orphan int) bool {
	for _, c := range list {
		if c.orphan == orphan {
			return true
		}
	}
	return false
}

// SetupSquads forms new squads from the current orphans by pairing mutual
// candidates, then tries to attach the leftovers to existing squads.
func (b *Brain) SetupSquads(now time.Time) {
	n := len(b.orphans)
	lists := make([][]candidate, n)
	order := make([]int, 0, n)
	for i := range b.orphans {
		lists[i] = b.candidates(i)
		if len(lists[i]) > 0 {
			order = append(order, i)
		}
	}
	// Owners with the tightest neighbours go first.
	sort.SliceStable(order, func(x, y int) bool {
		return lists[order[x]][0].cost < lists[order[y]][0].cost
	})

	squadIDs := make([]int, n)
	sizes := map[int]int{}
	nextID := 1
	for _, owner := range order {
		for _, c := range lists[owner] {
			id := squadIDs[owner]
			if id != 0 && sizes[id] >= MaxSize {
				break
			}
			if squadIDs[c.orphan] != 0 || !listNames(lists[c.orphan], owner) {
				continue
			}
			if id == 0 {
				id = nextID
				nextID++
				squadIDs[owner] = id
				sizes[id] = 1
			}
			squadIDs[c.orphan] = id
			sizes[id]++
		}
	}

	for id := 1; id < nextID; id++ {
		s := b.allocate(now)
		if s == nil {
			b.logger.Warn("squad pool exhausted", "pending", nextID-id)
			break
		}
		for i, sid := range squadIDs {
			if sid != id {
				continue
			}
			if err := s.AddBot(b.orphans[i]); err != nil {
				b.logger.Warn("cannot add bot to new squad", "bot", b.orphans[i].Name(), "error", err)
			}
		}
		s.justCreated = true
		b.logger.Debug("squad formed", "squad", s.id.String(), "size", s.Len())
	}

	for _, bt := range b.orphans {
		if _, ok := bt.Squad(); ok {
			continue
		}
		b.TryAttachBot(bt)
	}

	kept := b.orphans[:0]
	for _, bt := range b.orphans {
		if _, ok := bt.Squad(); !ok {
			kept = append(kept, bt)
		}
	}
	b.orphans = kept
	for i := range b.squads {
		b.squads[i].justCreated = false
	}
}

// TryAttachBot attaches bt to the first existing squad that accepts it.
// Squads created in the same pass are not considered.
func (b *Brain) TryAttachBot(bt *bot.Bot) bool {
	for i := range b.squads {
		if b.squads[i].TryAttachBot(bt) {
			return true
		}
	}
	return false
}

func (b *Brain) allocate(now time.Time) *Squad {
	for i := range b.squads {
		if s := &b.squads[i]; !s.inUse {
			s.prepare(now)
			return s
		}
	}
	return nil
}
