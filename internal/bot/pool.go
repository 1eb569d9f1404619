package bot

import (
	"errors"
	"fmt"

	"github.com/Qfusion/qfusion-sub007/internal/navcache"
)

var (
	// ErrCapacityExceeded is returned when every bot slot is taken.
	ErrCapacityExceeded = errors.New("bot: capacity exceeded")
	// ErrUnknownBot is returned for a handle that does not resolve.
	ErrUnknownBot = errors.New("bot: unknown bot")
)

// Handle addresses a bot in a Pool. A handle goes stale once its bot is
// removed, even if the slot is reused. The zero Handle never resolves.
type Handle struct {
	Index int32
	Gen   uint32
}

func (h Handle) IsValid() bool { return h.Gen != 0 }

func (h Handle) String() string { return fmt.Sprintf("bot#%d.%d", h.Index, h.Gen) }

type poolSlot struct {
	bot *Bot
	gen uint32
}

// Pool is a fixed capacity bot table. Slot numbers double as client numbers
// for the travel time matrix.
type Pool struct {
	slots [navcache.MaxClients]poolSlot
	count int
}

// Add places b in the first free slot and returns its handle.
func (p *Pool) Add(b *Bot) (Handle, error) {
	for i := range p.slots {
		s := &p.slots[i]
		if s.bot != nil {
			continue
		}
		s.gen++
		s.bot = b
		p.count++
		b.handle = Handle{Index: int32(i), Gen: s.gen}
		return b.handle, nil
	}
	return Handle{}, fmt.Errorf("%w: %d slots", ErrCapacityExceeded, len(p.slots))
}

// Remove frees the slot of h.
func (p *Pool) Remove(h Handle) error {
	b := p.Get(h)
	if b == nil {
		return fmt.Errorf("%w: %s", ErrUnknownBot, h)
	}
	b.discardPlan()
	p.slots[h.Index].bot = nil
	p.count--
	return nil
}

// Get resolves h, returning nil for a stale or zero handle.
func (p *Pool) Get(h Handle) *Bot {
	if !h.IsValid() || h.Index < 0 || int(h.Index) >= len(p.slots) {
		return nil
	}
	s := &p.slots[h.Index]
	if s.gen != h.Gen {
		return nil
	}
	return s.bot
}

// Slot returns the bot in a slot, or nil.
func (p *Pool) Slot(i int) *Bot {
	if i < 0 || i >= len(p.slots) {
		return nil
	}
	return p.slots[i].bot
}

func (p *Pool) Len() int { return p.count }

// All returns the live bots in slot order.
func (p *Pool) All() []*Bot {
	out := make([]*Bot, 0, p.count)
	for i := range p.slots {
		if b := p.slots[i].bot; b != nil {
			out = append(out, b)
		}
	}
	return out
}
