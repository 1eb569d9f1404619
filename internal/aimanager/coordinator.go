// Package aimanager owns the bots of a game and drives every team brain and
// bot once per server tick, in a fixed order: team brains (squads, then
// objective roles) first, then each bot senses and thinks.
//
// Frame affinity spreads that work across ticks: with a modulo of N, a
// team brain or bot only thinks on ticks where tick % N equals its offset.
// It is a pacing policy. All work still runs on the caller's goroutine.
package aimanager

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Qfusion/qfusion-sub007/internal/aas"
	"github.com/Qfusion/qfusion-sub007/internal/bot"
	"github.com/Qfusion/qfusion-sub007/internal/objective"
	"github.com/Qfusion/qfusion-sub007/internal/planning"
	"github.com/Qfusion/qfusion-sub007/internal/scripting"
	"github.com/Qfusion/qfusion-sub007/internal/squad"
)

var ErrNoWorld = errors.New("aimanager: no world")

// Tuning collects the knobs of every layer driven by the coordinator.
type Tuning struct {
	Squad     squad.Tuning
	Objective objective.Tuning

	PlannerMaxNodes int
	HeuristicWeight float32

	// AffinityModulo is the number of ticks over which thinking is spread.
	// Values below 2 make everything think every tick.
	AffinityModulo int
}

func DefaultTuning() Tuning {
	return Tuning{
		Squad:           squad.DefaultTuning(),
		Objective:       objective.DefaultTuning(),
		PlannerMaxNodes: planning.DefaultMaxNodes,
		HeuristicWeight: planning.DefaultHeuristicWeight,
		AffinityModulo:  1,
	}
}

// Options configure a Coordinator. World is required.
type Options struct {
	World  aas.World
	Tuning Tuning

	// Notify receives team messages, e.g. alerts. Nil logs them.
	Notify objective.Notifier

	Logger *slog.Logger
}

// Coordinator holds the bot pool and one objective brain per team.
type Coordinator struct {
	world   aas.World
	tuning  Tuning
	scripts *scripting.Host
	notify  objective.Notifier
	logger  *slog.Logger

	pool    bot.Pool
	brains  map[int]*objective.Brain
	teams   []int
	planner *planning.Planner
	goals   []planning.GoalDefinition
}

var _ scripting.SpotController = (*Coordinator)(nil)

func NewCoordinator(opts Options) (*Coordinator, error) {
	if opts.World == nil {
		return nil, ErrNoWorld
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Tuning.AffinityModulo < 1 {
		opts.Tuning.AffinityModulo = 1
	}
	return &Coordinator{
		world:   opts.World,
		tuning:  opts.Tuning,
		notify:  opts.Notify,
		logger:  logger,
		brains:  map[int]*objective.Brain{},
		planner: planning.NewPlanner(opts.Tuning.PlannerMaxNodes, opts.Tuning.HeuristicWeight, logger),
	}, nil
}

// UseScripts makes h supply script goals, actions and weight configs for
// every bot added from now on.
func (c *Coordinator) UseScripts(h *scripting.Host) { c.scripts = h }

// Pool returns the bot pool. Callers must not add or remove bots through it.
func (c *Coordinator) Pool() *bot.Pool { return &c.pool }

// All returns the bots in slot order.
func (c *Coordinator) All() []*bot.Bot { return c.pool.All() }

// Teams returns the teams that have a brain, in ascending order.
func (c *Coordinator) Teams() []int { return slices.Clone(c.teams) }

// Brain returns the objective brain of a team, or nil.
func (c *Coordinator) Brain(team int) *objective.Brain { return c.brains[team] }

func (c *Coordinator) brain(team int) *objective.Brain {
	if o, ok := c.brains[team]; ok {
		return o
	}
	o := objective.NewBrain(team, &c.pool, c.world, c.tuning.Squad, c.tuning.Objective, c.notify, c.logger)
	c.brains[team] = o
	i, _ := slices.BinarySearch(c.teams, team)
	c.teams = slices.Insert(c.teams, i, team)
	c.logger.Debug("team brain created", "team", team)
	return o
}

// AddBot places b in the pool, creating its team brain on first use, and
// installs the goal definitions and script behaviour added so far.
func (c *Coordinator) AddBot(b *bot.Bot) (bot.Handle, error) {
	h, err := c.pool.Add(b)
	if err != nil {
		return bot.Handle{}, err
	}
	c.brain(b.Team())
	for _, def := range c.goals {
		if err := c.addExprGoal(b, def); err != nil {
			_ = c.pool.Remove(h)
			return bot.Handle{}, err
		}
	}
	if c.scripts != nil {
		if err := c.scripts.InstallBot(b); err != nil {
			_ = c.pool.Remove(h)
			return bot.Handle{}, fmt.Errorf("install scripts for %s: %w", b.Name(), err)
		}
	}
	c.logger.Info("bot added", "bot", b.Name(), "team", b.Team(), "handle", h.String())
	return h, nil
}

// RemoveBot frees the slot of h. A squad holding the bot is invalidated on
// its next think.
func (c *Coordinator) RemoveBot(h bot.Handle) error {
	b := c.pool.Get(h)
	if err := c.pool.Remove(h); err != nil {
		return err
	}
	c.logger.Info("bot removed", "bot", b.Name(), "handle", h.String())
	return nil
}

// AddGoal installs an expression goal on every bot, current and future.
func (c *Coordinator) AddGoal(def planning.GoalDefinition) error {
	if _, err := planning.NewExprGoal(def, nil, c.logger); err != nil {
		return err
	}
	for _, b := range c.pool.All() {
		if err := c.addExprGoal(b, def); err != nil {
			return err
		}
	}
	c.goals = append(c.goals, def)
	return nil
}

func (c *Coordinator) addExprGoal(b *bot.Bot, def planning.GoalDefinition) error {
	g, err := planning.NewExprGoal(def, func() map[string]float64 {
		return b.WeightConfig().Values()
	}, b.Logger())
	if err != nil {
		return fmt.Errorf("bot %s: %w", b.Name(), err)
	}
	b.AddGoal(g)
	return nil
}

// Frame runs one server tick. Every brain clock advances to now, whether
// or not the brain thinks on this tick.
func (c *Coordinator) Frame(now time.Time, tick uint64) {
	modulo := uint64(c.tuning.AffinityModulo)
	for _, team := range c.teams {
		c.brains[team].Advance(now)
	}
	for _, team := range c.teams {
		if tick%modulo == uint64(team)%modulo {
			c.brains[team].Frame(now)
		}
	}

	bots := c.pool.All()
	tc := bot.ThinkContext{Now: now, World: c.world, Planner: c.planner}
	for _, b := range bots {
		if tick%modulo != uint64(b.Slot())%modulo {
			continue
		}
		b.Sense(now, c.world, bots)
		b.Think(tc)
	}
}
