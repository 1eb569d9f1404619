package command

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/Qfusion/qfusion-sub007/internal/aimanager"
	"github.com/Qfusion/qfusion-sub007/internal/bot"
	"github.com/Qfusion/qfusion-sub007/internal/config"
	"github.com/Qfusion/qfusion-sub007/internal/planning"
	"github.com/Qfusion/qfusion-sub007/internal/scenario"
	"github.com/Qfusion/qfusion-sub007/internal/scripting"
)

// simEpoch is the simulated clock at tick 0. Fixed so runs are repeatable.
var simEpoch = time.Unix(1_000_000, 0)

// SimulateCommand runs a scenario through the coordinator and reports the
// squads and roles it settles on.
type SimulateCommand struct {
	*BaseCommand
	config *config.Config

	ticks       int
	reportEvery int
	scripts     string
	goals       string
	logLevel    string
	logFormat   string
	logFile     string
}

func NewSimulateCommand(cfg *config.Config) *SimulateCommand {
	return &SimulateCommand{
		BaseCommand: NewBaseCommand(
			"simulate",
			"Run a YAML scenario and report squads and roles",
			"simulate [options] <scenario.yaml>",
		),
		config: cfg,
	}
}

func (c *SimulateCommand) SetupFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.ticks, "ticks", 0, "Ticks to run (default from [simulate] ticks, then the scenario)")
	fs.IntVar(&c.reportEvery, "report-every", -1, "Ticks between reports, 0 for the end only (default from [simulate] report-every)")
	fs.StringVar(&c.scripts, "scripts", "", "Behaviour scripts, as a path list (default from script.paths)")
	fs.StringVar(&c.goals, "goals", "", "Goal definition files, as a path list (default from goal.paths)")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&c.logFormat, "log-format", "", "Log format: auto, text, json")
	fs.StringVar(&c.logFile, "log-file", "", "Write JSON logs to this file instead of stderr")
}

func (c *SimulateCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		_, _ = fmt.Fprintf(stderr, "Usage: %s\n", c.Usage())
		return fmt.Errorf("expected one scenario file, got %d arguments", len(args))
	}

	lc, err := resolveLogConfig(c.logLevel, c.logFormat, c.logFile, c.config)
	if err != nil {
		return err
	}
	defer lc.close()
	// Every log line of one run carries the same run id.
	logger := lc.logger(stderr).With("run", uuid.NewString())

	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}
	world := sc.BuildWorld()

	coord, err := aimanager.NewCoordinator(aimanager.Options{
		World:  world,
		Tuning: c.config.Tuning(),
		Notify: func(from *bot.Bot, message string) {
			_, _ = fmt.Fprintf(stdout, "[team %d] %s: %s\n", from.Team(), from.Name(), message)
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	if paths := c.pathList(c.scripts, c.config.ScriptPaths); len(paths) > 0 {
		host, err := scripting.NewHost(ctx, scripting.Options{Spots: coord, Bots: coord, Logger: logger})
		if err != nil {
			return err
		}
		defer func() { _ = host.Close() }()
		coord.UseScripts(host)
		if err := loadScripts(host, paths); err != nil {
			return err
		}
	}

	for _, path := range c.pathList(c.goals, c.config.GoalPaths) {
		defs, err := planning.LoadGoalDefinitions(path)
		if err != nil {
			return fmt.Errorf("load goals %s: %w", path, err)
		}
		for _, def := range defs {
			if err := coord.AddGoal(def); err != nil {
				return fmt.Errorf("%s: goal %q: %w", path, def.Name, err)
			}
		}
	}

	if _, err := sc.Apply(coord.ScenarioTarget()); err != nil {
		return err
	}

	ticks := c.resolveTicks(sc)
	every := c.resolveReportEvery()
	dt := sc.TickDuration()
	logger.Info("simulation started", "scenario", sc.Name, "ticks", ticks, "tick", dt, "bots", len(coord.All()))

	now := simEpoch
	for tick := range ticks {
		if err := ctx.Err(); err != nil {
			return err
		}
		coord.Frame(now, uint64(tick))
		world.Step(coord.All(), dt)
		now = now.Add(dt)
		if every > 0 && (tick+1)%every == 0 && tick+1 < ticks {
			report(stdout, coord, tick+1, now.Sub(simEpoch))
		}
	}
	report(stdout, coord, ticks, now.Sub(simEpoch))
	logger.Info("simulation finished", "scenario", sc.Name, "ticks", ticks)
	return nil
}

func (c *SimulateCommand) pathList(flagValue string, fromConfig func() []string) []string {
	if flagValue != "" {
		return filepath.SplitList(flagValue)
	}
	return fromConfig()
}

func (c *SimulateCommand) resolveTicks(sc *scenario.Scenario) int {
	if c.ticks > 0 {
		return c.ticks
	}
	if n, ok := c.commandInt("ticks"); ok && n > 0 {
		return n
	}
	return sc.Ticks
}

func (c *SimulateCommand) resolveReportEvery() int {
	if c.reportEvery >= 0 {
		return c.reportEvery
	}
	if n, ok := c.commandInt("report-every"); ok && n >= 0 {
		return n
	}
	return 0
}

func (c *SimulateCommand) commandInt(name string) (int, bool) {
	v, ok := c.config.GetCommandOption(c.Name(), name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring malformed option", "section", c.Name(), "option", name, "value", v)
		return 0, false
	}
	return n, true
}

func loadScripts(host *scripting.Host, paths []string) error {
	for _, path := range paths {
		code, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		if err := host.LoadScript(path, string(code)); err != nil {
			return err
		}
	}
	return nil
}

// report prints every team's squads, then one line per bot.
func report(w io.Writer, coord *aimanager.Coordinator, tick int, elapsed time.Duration) {
	_, _ = fmt.Fprintf(w, "tick %d (%s)\n", tick, elapsed)
	for _, team := range coord.Teams() {
		brain := coord.Brain(team)
		_, _ = fmt.Fprintf(w, "team %d\n", team)
		for _, s := range brain.Squads() {
			_, _ = fmt.Fprintf(w, "  squad %s: %s\n", s.ID().String()[:8], botNames(s.Members()))
		}
		if orphans := brain.Orphans(); len(orphans) > 0 {
			_, _ = fmt.Fprintf(w, "  orphans: %s\n", botNames(orphans))
		}

		tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		for _, b := range brain.Members() {
			goal := "-"
			if g := b.CurrentGoal(); g != nil {
				goal = g.Name()
			}
			_, _ = fmt.Fprintf(tw, "  %s\t%s\thp %d\tgoal %s\tat %s\n", b.Name(), brain.Role(b), b.Health, goal, b.Origin)
		}
		_ = tw.Flush()
	}
}

func botNames(bots []*bot.Bot) string {
	names := make([]string, len(bots))
	for i, b := range bots {
		names[i] = b.Name()
	}
	return strings.Join(names, " ")
}
