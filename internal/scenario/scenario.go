// Package scenario loads YAML test worlds: a flat grid implementing the
// area and trace oracles, the bots placed in it and the objective spots of
// each team. It also advances bots between thinks, which the brain layers
// never do themselves.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Qfusion/qfusion-sub007/internal/bot"
	"github.com/Qfusion/qfusion-sub007/internal/geom"
	"github.com/Qfusion/qfusion-sub007/internal/planning"
)

// ErrInvalid wraps every validation failure of a scenario file.
var ErrInvalid = errors.New("scenario: invalid")

// Point is a YAML [x, y, z] triple; a missing z defaults to zero.
type Point []float32

func (p Point) Vec() geom.Vec3 {
	var v geom.Vec3
	if len(p) > 0 {
		v.X = p[0]
	}
	if len(p) > 1 {
		v.Y = p[1]
	}
	if len(p) > 2 {
		v.Z = p[2]
	}
	return v
}

func (p Point) valid() bool { return len(p) == 2 || len(p) == 3 }

type WorldSpec struct {
	Min          Point          `yaml:"min"`
	Max          Point          `yaml:"max"`
	CellSize     float32        `yaml:"cell_size"`
	Speed        float32        `yaml:"speed"`
	DetourFactor float32        `yaml:"detour_factor"`
	Walls        []WallSpec     `yaml:"walls"`
	Locations    []LocationSpec `yaml:"locations"`
}

type WallSpec struct {
	From Point `yaml:"from"`
	To   Point `yaml:"to"`
}

type LocationSpec struct {
	Name   string `yaml:"name"`
	Origin Point  `yaml:"origin"`
}

type BotSpec struct {
	Name          string         `yaml:"name"`
	Team          int            `yaml:"team"`
	Origin        Point          `yaml:"origin"`
	Health        *int           `yaml:"health"`
	Armor         int            `yaml:"armor"`
	Weapons       map[string]int `yaml:"weapons"`
	Powerups      []string       `yaml:"powerups"`
	Carrier       bool           `yaml:"carrier"`
	Offensiveness *float32       `yaml:"offensiveness"`
	NavTarget     *NavTargetSpec `yaml:"nav_target"`
}

type NavTargetSpec struct {
	Entity int    `yaml:"entity"`
	Name   string `yaml:"name"`
	Origin Point  `yaml:"origin"`
}

type DefenceSpotSpec struct {
	Team             int     `yaml:"team"`
	ID               int     `yaml:"id"`
	Entity           int     `yaml:"entity"`
	Origin           Point   `yaml:"origin"`
	Radius           float32 `yaml:"radius"`
	MinDefenders     int     `yaml:"min_defenders"`
	MaxDefenders     int     `yaml:"max_defenders"`
	AutoAlert        bool    `yaml:"auto_alert"`
	RegularInfluence float32 `yaml:"regular_influence"`
	CarrierInfluence float32 `yaml:"carrier_influence"`
}

type OffenceSpotSpec struct {
	Team         int     `yaml:"team"`
	ID           int     `yaml:"id"`
	Entity       int     `yaml:"entity"`
	Origin       Point   `yaml:"origin"`
	Weight       float32 `yaml:"weight"`
	MinAttackers int     `yaml:"min_attackers"`
	MaxAttackers int     `yaml:"max_attackers"`
}

// Scenario is a parsed scenario file.
type Scenario struct {
	Name         string                    `yaml:"name"`
	Ticks        int                       `yaml:"ticks"`
	TickMillis   int                       `yaml:"tick_ms"`
	World        WorldSpec                 `yaml:"world"`
	Bots         []BotSpec                 `yaml:"bots"`
	DefenceSpots []DefenceSpotSpec         `yaml:"defence_spots"`
	OffenceSpots []OffenceSpotSpec         `yaml:"offence_spots"`
	Goals        []planning.GoalDefinition `yaml:"goals"`
}

const (
	defaultTicks      = 100
	defaultTickMillis = 16
)

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	s, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates scenario YAML.
func Parse(raw []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.Ticks <= 0 {
		s.Ticks = defaultTicks
	}
	if s.TickMillis <= 0 {
		s.TickMillis = defaultTickMillis
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if !s.World.Min.valid() || !s.World.Max.valid() {
		return fmt.Errorf("%w: world min and max need 2 or 3 coordinates", ErrInvalid)
	}
	lo, hi := s.World.Min.Vec(), s.World.Max.Vec()
	if hi.X <= lo.X || hi.Y <= lo.Y {
		return fmt.Errorf("%w: world max must exceed min", ErrInvalid)
	}
	for i, w := range s.World.Walls {
		if !w.From.valid() || !w.To.valid() {
			return fmt.Errorf("%w: wall %d needs from and to points", ErrInvalid, i)
		}
	}
	names := make(map[string]bool, len(s.Bots))
	for i, b := range s.Bots {
		switch {
		case b.Name == "":
			return fmt.Errorf("%w: bot %d has no name", ErrInvalid, i)
		case names[b.Name]:
			return fmt.Errorf("%w: duplicate bot %q", ErrInvalid, b.Name)
		case !b.Origin.valid():
			return fmt.Errorf("%w: bot %q needs an origin", ErrInvalid, b.Name)
		}
		names[b.Name] = true
		for w := range b.Weapons {
			if _, ok := bot.ParseWeapon(w); !ok {
				return fmt.Errorf("%w: bot %q: unknown weapon %q", ErrInvalid, b.Name, w)
			}
		}
		for _, p := range b.Powerups {
			if _, ok := parsePowerup(p); !ok {
				return fmt.Errorf("%w: bot %q: unknown powerup %q", ErrInvalid, b.Name, p)
			}
		}
	}
	for _, d := range s.DefenceSpots {
		if !d.Origin.valid() {
			return fmt.Errorf("%w: defence spot %d needs an origin", ErrInvalid, d.ID)
		}
	}
	for _, o := range s.OffenceSpots {
		if !o.Origin.valid() {
			return fmt.Errorf("%w: offence spot %d needs an origin", ErrInvalid, o.ID)
		}
	}
	return nil
}

func parsePowerup(s string) (bot.Powerups, bool) {
	switch s {
	case "quad":
		return bot.Quad, true
	case "shell":
		return bot.Shell, true
	case "regen":
		return bot.Regen, true
	}
	return 0, false
}

// TickDuration is the simulated time between thinks.
func (s *Scenario) TickDuration() time.Duration {
	return time.Duration(s.TickMillis) * time.Millisecond
}

// BuildWorld returns the grid world described by the scenario.
func (s *Scenario) BuildWorld() *World {
	w := &World{
		CellSize:     s.World.CellSize,
		Speed:        s.World.Speed,
		Min:          s.World.Min.Vec(),
		Max:          s.World.Max.Vec(),
		DetourFactor: s.World.DetourFactor,
	}
	for _, wall := range s.World.Walls {
		w.Walls = append(w.Walls, Wall{From: wall.From.Vec(), To: wall.To.Vec()})
	}
	for _, l := range s.World.Locations {
		w.Locations = append(w.Locations, Location{Name: l.Name, Origin: l.Origin.Vec()})
	}
	w.init()
	return w
}

// NewBot builds the bot described by spec.
func (spec BotSpec) NewBot() *bot.Bot {
	b := bot.New(spec.Name, spec.Team, nil)
	b.Origin = spec.Origin.Vec()
	if spec.Health != nil {
		b.Health = *spec.Health
	}
	b.Armor = spec.Armor
	b.CarriesObjective = spec.Carrier
	for name, ammo := range spec.Weapons {
		w, _ := bot.ParseWeapon(name)
		b.Inventory.Give(w, ammo)
	}
	for _, name := range spec.Powerups {
		p, _ := parsePowerup(name)
		b.Powerups |= p
	}
	if spec.Offensiveness != nil {
		b.SetBaseOffensiveness(*spec.Offensiveness)
	}
	if spec.NavTarget != nil {
		b.SetNavTarget(&bot.NavEntity{
			Entity: spec.NavTarget.Entity,
			Name:   spec.NavTarget.Name,
			Origin: spec.NavTarget.Origin.Vec(),
		})
	}
	return b
}

// Target receives the contents of a scenario.
type Target interface {
	AddBot(b *bot.Bot) (bot.Handle, error)
	AddDefenceSpot(spec DefenceSpotSpec) error
	AddOffenceSpot(spec OffenceSpotSpec) error
	AddGoal(def planning.GoalDefinition) error
}

// Apply adds every bot, spot and goal definition to t. It stops at the first
// error.
func (s *Scenario) Apply(t Target) ([]*bot.Bot, error) {
	bots := make([]*bot.Bot, 0, len(s.Bots))
	for _, spec := range s.Bots {
		b := spec.NewBot()
		if _, err := t.AddBot(b); err != nil {
			return bots, fmt.Errorf("add bot %q: %w", spec.Name, err)
		}
		bots = append(bots, b)
	}
	for _, d := range s.DefenceSpots {
		if err := t.AddDefenceSpot(d); err != nil {
			return bots, fmt.Errorf("add defence spot %d: %w", d.ID, err)
		}
	}
	for _, o := range s.OffenceSpots {
		if err := t.AddOffenceSpot(o); err != nil {
			return bots, fmt.Errorf("add offence spot %d: %w", o.ID, err)
		}
	}
	for _, g := range s.Goals {
		if err := t.AddGoal(g); err != nil {
			return bots, fmt.Errorf("add goal %q: %w", g.Name, err)
		}
	}
	return bots, nil
}
