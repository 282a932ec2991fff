package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/comalice/attributex"
	"github.com/comalice/attributex/internal/config"
	"github.com/comalice/attributex/internal/extensibility"
	"github.com/comalice/attributex/internal/hostreflect"
	"github.com/comalice/attributex/internal/primitives"
	"github.com/comalice/attributex/internal/production"
	"github.com/comalice/attributex/realtime"
)

const defaultRuleSet = `
id: player
class: Game.Character
attributes:
  - {name: Health, base: 100}
  - {name: MaxHealth, base: 100}
  - {name: Stamina, base: 50}
rules:
  - type: clamp
    attribute: Health
    min: {type: constant, value: 0}
    max: {type: attribute, attribute: MaxHealth}
    policy: keep_relative
  - type: clamp
    attribute: MaxHealth
    min: {type: metadata}
    max: {type: metadata}
  - type: binding
    attribute: Health
    targetClass: Game.HUD
    targetProperty: Health
  - type: script
    subscribe: [Stamina]
    events: {preChange: true}
    source: |
      function pre_change(rule, name, value)
        if value < 0 then return 0 end
        if rule:get("Health") <= 0 then return 0 end
        return value
      end
`

var defaultMetadata = attributex.MapMetadata{
	"Health":    {Min: 0, Max: 500, Default: 100},
	"MaxHealth": {Min: 1, Max: 500, Default: 100},
	"Stamina":   {Min: 0, Max: 100, Default: 50},
}

// HUD is the component the Health binding writes to.
type HUD struct {
	Health int
}

func main() {
	cfg, err := config.LoadDemo()
	if err != nil {
		config.Exitf("%v", err)
	}
	logger := log.New(os.Stderr, "", log.LstdFlags)

	ruleSet, scriptDir, err := loadRuleSet(cfg.RuleSet)
	if err != nil {
		config.Exitf("rule set: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metadata, closeMetadata, err := loadMetadata(ctx, cfg)
	if err != nil {
		config.Exitf("metadata: %v", err)
	}
	defer closeMetadata()

	world := hostreflect.NewWorld()
	if _, err := world.RegisterType("Game.HUD", HUD{}); err != nil {
		config.Exitf("%v", err)
	}
	const owner = "player"
	hud := &HUD{}
	if _, err := world.Attach(owner, hud); err != nil {
		config.Exitf("%v", err)
	}

	changes := make(chan production.ChangeEvent, 64)
	publisher := production.NewPublisherRule(changes)
	c, err := ruleSet.NewContainer(extensibility.Loader(scriptDir),
		attributex.WithLogger(logger),
		attributex.WithMetadata(metadata),
		attributex.WithReflector(world),
		attributex.WithInstanceFinder(world),
		attributex.WithOwner(owner),
		attributex.WithMaxChangeDepth(32),
		attributex.WithRules(publisher),
	)
	if err != nil {
		config.Exitf("container: %v", err)
	}
	if err := c.InitFromMetadata(nil); err != nil {
		config.Exitf("init: %v", err)
	}
	fmt.Printf("Container %s (%s), rule set version %s\n", c.ID(), c.Class(), primitives.ComputeVersion(ruleSet))

	health, maxHealth, stamina := c.Attribute("Health"), c.Attribute("MaxHealth"), c.Attribute("Stamina")
	applied := make(chan struct{}, 1)
	runner := realtime.NewFrameRunner(c, realtime.Config{
		TickRate: cfg.Tick,
		OnFrame: func(c *attributex.Container, f realtime.Frame) {
			if len(f.Applied) == 0 {
				return
			}
			fmt.Printf("\n--- Frame %d ---\n", f.Tick)
			for _, a := range f.Applied {
				if a.Err != nil {
					fmt.Printf("  %s: %v\n", a.Attribute.Name, a.Err)
				}
			}
			fmt.Printf("  Health %g/%g  Stamina %g  HUD %d\n",
				c.GetValue(health), c.GetValue(maxHealth), c.GetValue(stamina), hud.Health)
			for drained := false; !drained; {
				select {
				case ev := <-changes:
					fmt.Printf("  published %s %g -> %g\n", ev.Attribute.Name, ev.Old, ev.New)
				default:
					drained = true
				}
			}
			select {
			case applied <- struct{}{}:
			default:
			}
		},
	})
	if err := runner.Start(ctx); err != nil {
		config.Exitf("%v", err)
	}

	script := [][]realtime.ChangeRequest{
		{{Attribute: health, Value: 60}, {Attribute: stamina, Value: -20}},
		{{Attribute: maxHealth, Value: 200, Base: true}},
		{{Attribute: health, Value: 1000}},
		{{Attribute: maxHealth, Value: 50, Base: true}, {Attribute: stamina, Value: 75}},
		{{Attribute: health, Value: 0}, {Attribute: stamina, Value: 90}},
	}
frames:
	for i := 0; i < cfg.Frames; i++ {
		for _, req := range script[i%len(script)] {
			if err := runner.Submit(req); err != nil {
				logger.Printf("submit: %v", err)
			}
		}
		select {
		case <-applied:
		case <-ctx.Done():
			fmt.Println("\nShutting down gracefully...")
			break frames
		}
	}
	runner.Stop()

	runner.Do(func(c *attributex.Container) {
		fmt.Println("\nDOT:\n" + (&production.DOTVisualizer{}).ExportDOT(c))
		if cfg.SnapshotDir == "" {
			return
		}
		p, err := production.NewYAMLPersister(cfg.SnapshotDir)
		if err != nil {
			logger.Printf("snapshot: %v", err)
			return
		}
		if err := production.SaveContainer(ctx, p, c); err != nil {
			logger.Printf("snapshot: %v", err)
			return
		}
		fmt.Printf("Snapshot written to %s\n", filepath.Join(cfg.SnapshotDir, c.ID()+".yaml"))
	})
}

func loadRuleSet(path string) (*primitives.RuleSetConfig, string, error) {
	if path == "" {
		cfg, err := primitives.ParseRuleSet([]byte(defaultRuleSet))
		return cfg, ".", err
	}
	cfg, err := primitives.LoadRuleSet(path)
	return cfg, filepath.Dir(path), err
}

// loadMetadata picks SQLite when ATTRX_METADATA_DB is set, seeding it from
// the YAML table if one is given; otherwise the YAML table or the defaults.
func loadMetadata(ctx context.Context, cfg config.Demo) (attributex.MetadataTable, func(), error) {
	table := defaultMetadata
	if cfg.Metadata != "" {
		t, err := production.LoadYAMLMetadata(cfg.Metadata)
		if err != nil {
			return nil, nil, err
		}
		table = t
	}
	if cfg.MetadataDB == "" {
		return table, func() {}, nil
	}
	db, err := production.OpenSQLiteMetadata(ctx, cfg.MetadataDB)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Import(ctx, table); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}
