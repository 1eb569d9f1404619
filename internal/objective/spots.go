package objective

import (
	"errors"
	"fmt"
	"time"

	"github.com/Qfusion/qfusion-sub007/internal/bot"
	"github.com/Qfusion/qfusion-sub007/internal/geom"
)

const (
	MaxDefenceSpots = 3
	MaxOffenceSpots = 3

	MaxSpotDefenders = 5
	MaxSpotAttackers = 5
)

var (
	ErrInvalidID        = errors.New("objective: spot id must be positive")
	ErrDuplicateID      = errors.New("objective: duplicate spot id")
	ErrCapacityExceeded = errors.New("objective: spot capacity exceeded")
	ErrUnknownID        = errors.New("objective: unknown spot id")
)

// DefenceSpot is a place the team guards, e.g. its own flag. The alert
// level doubles as the spot weight when defenders are assigned.
type DefenceSpot struct {
	ID           int
	Entity       int
	Origin       geom.Vec3
	Radius       float32
	MinDefenders int
	MaxDefenders int

	UsesAutoAlert          bool
	RegularEnemyAlertScale float32
	CarrierEnemyAlertScale float32

	alertLevel     float32
	alertTimeoutAt time.Time
	lastReportAt   time.Time
	// Set while an alert waits for the first clock reading to be stamped.
	pendingTimeout time.Duration
}

func (s DefenceSpot) AlertLevel() float32 { return s.alertLevel }

func (s DefenceSpot) AlertTimeoutAt() time.Time { return s.alertTimeoutAt }

func (s *DefenceSpot) alertSpot() bot.AlertSpot {
	regular, carrier := s.RegularEnemyAlertScale, s.CarrierEnemyAlertScale
	if regular <= 0 {
		regular = 1
	}
	if carrier <= 0 {
		carrier = regular
	}
	return bot.AlertSpot{
		ID:                         s.ID,
		Origin:                     s.Origin,
		Radius:                     s.Radius,
		RegularEnemyInfluenceScale: regular,
		CarrierEnemyInfluenceScale: carrier,
	}
}

func (s *DefenceSpot) maxDefenders() int {
	if s.MaxDefenders <= 0 || s.MaxDefenders > MaxSpotDefenders {
		return MaxSpotDefenders
	}
	return s.MaxDefenders
}

// OffenceSpot is a place the team attacks, e.g. the enemy flag.
type OffenceSpot struct {
	ID           int
	Entity       int
	Origin       geom.Vec3
	Weight       float32
	MinAttackers int
	MaxAttackers int
}

func (s *OffenceSpot) maxAttackers() int {
	if s.MaxAttackers <= 0 || s.MaxAttackers > MaxSpotAttackers {
		return MaxSpotAttackers
	}
	return s.MaxAttackers
}

func checkID(id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	return nil
}

// AddDefenceSpot registers a defence spot. Errors are logged and leave the
// spot list unchanged.
func (o *Brain) AddDefenceSpot(spot DefenceSpot) error {
	err := o.addDefenceSpot(spot)
	if err != nil {
		o.Logger().Warn("cannot add defence spot", "id", spot.ID, "error", err)
	}
	return err
}

func (o *Brain) addDefenceSpot(spot DefenceSpot) error {
	if err := checkID(spot.ID); err != nil {
		return err
	}
	if o.findDefenceSpot(spot.ID) != nil {
		return fmt.Errorf("%w: defence spot %d", ErrDuplicateID, spot.ID)
	}
	if len(o.defenceSpots) >= MaxDefenceSpots {
		return fmt.Errorf("%w: %d defence spots", ErrCapacityExceeded, MaxDefenceSpots)
	}
	spot.alertLevel = 0
	spot.alertTimeoutAt = time.Time{}
	spot.lastReportAt = time.Time{}
	spot.pendingTimeout = 0
	o.defenceSpots = append(o.defenceSpots, &spot)
	return nil
}

// RemoveDefenceSpot unregisters a defence spot and stops auto alerts for it.
func (o *Brain) RemoveDefenceSpot(id int) error {
	i, err := o.defenceSpotIndex(id)
	if err != nil {
		o.Logger().Warn("cannot remove defence spot", "id", id, "error", err)
		return err
	}
	o.defenceSpots = append(o.defenceSpots[:i], o.defenceSpots[i+1:]...)
	for _, b := range o.Members() {
		b.DisableAutoAlert(id)
	}
	delete(o.defenders, id)
	return nil
}

// AddOffenceSpot registers an offence spot.
func (o *Brain) AddOffenceSpot(spot OffenceSpot) error {
	err := o.addOffenceSpot(spot)
	if err != nil {
		o.Logger().Warn("cannot add offence spot", "id", spot.ID, "error", err)
	}
	return err
}

func (o *Brain) addOffenceSpot(spot OffenceSpot) error {
	if err := checkID(spot.ID); err != nil {
		return err
	}
	if o.findOffenceSpot(spot.ID) != nil {
		return fmt.Errorf("%w: offence spot %d", ErrDuplicateID, spot.ID)
	}
	if len(o.offenceSpots) >= MaxOffenceSpots {
		return fmt.Errorf("%w: %d offence spots", ErrCapacityExceeded, MaxOffenceSpots)
	}
	o.offenceSpots = append(o.offenceSpots, &spot)
	return nil
}

func (o *Brain) RemoveOffenceSpot(id int) error {
	err := checkID(id)
	if err == nil {
		for i, s := range o.offenceSpots {
			if s.ID == id {
				o.offenceSpots = append(o.offenceSpots[:i], o.offenceSpots[i+1:]...)
				delete(o.attackers, id)
				return nil
			}
		}
		err = fmt.Errorf("%w: offence spot %d", ErrUnknownID, id)
	}
	o.Logger().Warn("cannot remove offence spot", "id", id, "error", err)
	return err
}

// SetDefenceSpotAlert sets the alert level of a spot until timeout after
// the current brain time. Before the brain has seen any frame the timeout
// starts at the first frame.
func (o *Brain) SetDefenceSpotAlert(id int, level float32, timeout time.Duration) error {
	i, err := o.defenceSpotIndex(id)
	if err != nil {
		o.Logger().Warn("cannot set defence spot alert", "id", id, "error", err)
		return err
	}
	s := o.defenceSpots[i]
	s.alertLevel = geom.Clamp01(level)
	if o.now.IsZero() {
		s.pendingTimeout = max(timeout, 1)
		return nil
	}
	s.pendingTimeout = 0
	s.alertTimeoutAt = o.now.Add(timeout)
	s.lastReportAt = o.now
	return nil
}

// EnableDefenceSpotAutoAlert makes teammates report enemies near the spot
// from the next think on.
func (o *Brain) EnableDefenceSpotAutoAlert(id int) error {
	return o.setAutoAlert(id, true)
}

func (o *Brain) DisableDefenceSpotAutoAlert(id int) error {
	return o.setAutoAlert(id, false)
}

func (o *Brain) setAutoAlert(id int, enabled bool) error {
	i, err := o.defenceSpotIndex(id)
	if err != nil {
		o.Logger().Warn("cannot change defence spot auto alert", "id", id, "enable", enabled, "error", err)
		return err
	}
	o.defenceSpots[i].UsesAutoAlert = enabled
	if !enabled {
		for _, b := range o.Members() {
			b.DisableAutoAlert(id)
		}
	}
	return nil
}

// DefenceSpots returns copies of the registered defence spots.
func (o *Brain) DefenceSpots() []DefenceSpot {
	out := make([]DefenceSpot, len(o.defenceSpots))
	for i, s := range o.defenceSpots {
		out[i] = *s
	}
	return out
}

func (o *Brain) OffenceSpots() []OffenceSpot {
	out := make([]OffenceSpot, len(o.offenceSpots))
	for i, s := range o.offenceSpots {
		out[i] = *s
	}
	return out
}

func (o *Brain) findDefenceSpot(id int) *DefenceSpot {
	for _, s := range o.defenceSpots {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (o *Brain) findOffenceSpot(id int) *OffenceSpot {
	for _, s := range o.offenceSpots {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (o *Brain) defenceSpotIndex(id int) (int, error) {
	if err := checkID(id); err != nil {
		return -1, err
	}
	for i, s := range o.defenceSpots {
		if s.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: defence spot %d", ErrUnknownID, id)
}
