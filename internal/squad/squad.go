// Package squad groups bots of a team into small squads whose members can
// reach and see each other. Squads are formed every brain frame from bots
// without a squad by pairing mutual nearest neighbours, and are released
// once their members lose contact for longer than a timeout.
package squad

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Qfusion/qfusion-sub007/internal/aas"
	"github.com/Qfusion/qfusion-sub007/internal/bot"
	"github.com/Qfusion/qfusion-sub007/internal/geom"
)

const (
	// MaxSize bounds the number of members of a squad.
	MaxSize = 3
	// ConnectivityProximity is the farthest two bots can be apart and still
	// form a squad.
	ConnectivityProximity float32 = 500
	// ConnectivityMoveCentiseconds bounds the summed travel time between two
	// candidates. Existing squads test each direction against half of it.
	ConnectivityMoveCentiseconds = 400
	// ConnectivityTimeout is how long a squad survives without contact.
	ConnectivityTimeout = 750 * time.Millisecond
)

var (
	ErrCapacityExceeded = errors.New("squad: capacity exceeded")
	ErrNotInUse         = errors.New("squad: not in use")
)

// Tuning holds the connectivity thresholds of a brain.
type Tuning struct {
	Proximity        float32
	MoveCentiseconds int
	Timeout          time.Duration
}

func DefaultTuning() Tuning {
	return Tuning{
		Proximity:        ConnectivityProximity,
		MoveCentiseconds: ConnectivityMoveCentiseconds,
		Timeout:          ConnectivityTimeout,
	}
}

func (t Tuning) withDefaults() Tuning {
	d := DefaultTuning()
	if t.Proximity <= 0 {
		t.Proximity = d.Proximity
	}
	if t.MoveCentiseconds <= 0 {
		t.MoveCentiseconds = d.MoveCentiseconds
	}
	if t.Timeout <= 0 {
		t.Timeout = d.Timeout
	}
	return t
}

// Squad is a pool slot of a Brain. Members are stored as bot handles and
// resolved through the brain's bot source on use.
type Squad struct {
	brain *Brain
	ref   bot.SquadRef
	id    uuid.UUID

	members []bot.Handle

	inUse       bool
	valid       bool
	justCreated bool

	canMoveTogether             bool
	canFightTogether            bool
	brokenConnectivityTimeoutAt time.Time

	logger *slog.Logger
}

func (s *Squad) Ref() bot.SquadRef { return s.ref }

// ID is a correlation id, unique per squad lifetime.
func (s *Squad) ID() uuid.UUID { return s.id }

func (s *Squad) InUse() bool   { return s.inUse }
func (s *Squad) IsValid() bool { return s.inUse && s.valid }

func (s *Squad) CanMoveTogether() bool  { return s.canMoveTogether }
func (s *Squad) CanFightTogether() bool { return s.canFightTogether }

func (s *Squad) BrokenConnectivityTimeoutAt() time.Time { return s.brokenConnectivityTimeoutAt }

func (s *Squad) Len() int { return len(s.members) }

// Members resolves the member handles, skipping bots that left the pool.
func (s *Squad) Members() []*bot.Bot {
	out := make([]*bot.Bot, 0, len(s.members))
	for _, h := range s.members {
		if b := s.brain.bots.Get(h); b != nil {
			out = append(out, b)
		}
	}
	return out
}

// prepare takes a free slot into use.
func (s *Squad) prepare(now time.Time) {
	s.ref.Gen++
	s.id = uuid.New()
	s.members = s.members[:0]
	s.inUse = true
	s.valid = true
	s.justCreated = false
	s.canMoveTogether = false
	s.canFightTogether = false
	s.brokenConnectivityTimeoutAt = now.Add(s.brain.tuning.Timeout)
	s.logger = s.brain.logger.With("squad", s.id.String())
}

// AddBot adds b to the squad and notifies it.
func (s *Squad) AddBot(b *bot.Bot) error {
	if !s.IsValid() {
		return fmt.Errorf("%w: %d", ErrNotInUse, s.ref.Index)
	}
	if len(s.members) >= MaxSize {
		return fmt.Errorf("%w: squad %s has %d members", ErrCapacityExceeded, s.id, MaxSize)
	}
	s.members = append(s.members, b.Handle())
	b.OnAttachedToSquad(s.ref)
	s.logger.Debug("bot joined squad", "bot", b.Name(), "size", len(s.members))
	return nil
}

// Invalidate marks the squad for release at the start of the next brain
// frame.
func (s *Squad) Invalidate() {
	if s.valid {
		s.logger.Debug("squad invalidated", "size", len(s.members))
	}
	s.valid = false
}

// release detaches every member and frees the slot.
func (s *Squad) release() []bot.Handle {
	members := append([]bot.Handle(nil), s.members...)
	for _, b := range s.Members() {
		b.OnDetachedFromSquad(s.ref)
	}
	s.members = s.members[:0]
	s.inUse = false
	s.valid = false
	s.justCreated = false
	s.logger.Debug("squad released", "size", len(members))
	return members
}

// Think refreshes connectivity. A squad with a member that left the game or
// stopped playing is invalidated outright; otherwise it is invalidated once
// neither movement nor sight has connected its members for the timeout.
func (s *Squad) Think(now time.Time) {
	if !s.IsValid() {
		return
	}
	members := make([]*bot.Bot, 0, len(s.members))
	for _, h := range s.members {
		b := s.brain.bots.Get(h)
		if b == nil || !b.IsAlive() {
			s.Invalidate()
			return
		}
		members = append(members, b)
	}

	s.canMoveTogether = s.checkCanMoveTogether(members)
	s.canFightTogether = s.checkCanFightTogether(members)
	if s.canMoveTogether || s.canFightTogether {
		s.brokenConnectivityTimeoutAt = now.Add(s.brain.tuning.Timeout)
		return
	}
	if !now.Before(s.brokenConnectivityTimeoutAt) {
		s.Invalidate()
	}
}

func (s *Squad) checkCanMoveTogether(members []*bot.Bot) bool {
	limit := s.brain.tuning.MoveCentiseconds / 2
	m := s.brain.matrix
	for i, a := range members {
		for _, b := range members[i+1:] {
			there := m.TravelTime(a.Slot(), b.Slot())
			back := m.TravelTime(b.Slot(), a.Slot())
			if (there == 0 || there >= limit) && (back == 0 || back >= limit) {
				return false
			}
		}
	}
	return true
}

func (s *Squad) checkCanFightTogether(members []*bot.Bot) bool {
	for i, a := range members {
		for _, b := range members[i+1:] {
			if !aas.Visible(s.brain.world, eye(a), eye(b), a.Entity(), b.Entity()) {
				return false
			}
		}
	}
	return true
}

// TryAttachBot adds b if it is connected to any single member.
func (s *Squad) TryAttachBot(b *bot.Bot) bool {
	if !s.IsValid() || s.justCreated || len(s.members) >= MaxSize {
		return false
	}
	for _, m := range s.Members() {
		if _, ok := s.brain.connectionCost(b, m); ok {
			return s.AddBot(b) == nil
		}
	}
	return false
}

func eye(b *bot.Bot) geom.Vec3 {
	o := b.Origin
	o.Z += bot.ViewHeight
	return o
}
