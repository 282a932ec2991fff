package production

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/attributex"
)

func newCharacter(t *testing.T, opts ...attributex.Option) *attributex.Container {
	t.Helper()
	base := []attributex.Option{
		attributex.WithLogger(log.New(&bytes.Buffer{}, "", 0)),
		attributex.WithAttributes(
			attributex.AttributeDef{Name: "Health", Base: 50},
			attributex.AttributeDef{Name: "MaxHealth", Base: 100},
		),
	}
	c, err := attributex.NewContainer("Game.Character", append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func TestPersisters_RoundTrip(t *testing.T) {
	for name, newPersister := range map[string]func(string) (Persister, error){
		"json": func(dir string) (Persister, error) { return NewJSONPersister(dir) },
		"yaml": func(dir string) (Persister, error) { return NewYAMLPersister(dir) },
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p, err := newPersister(filepath.Join(t.TempDir(), "snapshots"))
			require.NoError(t, err)

			c := newCharacter(t)
			health := c.Attribute("Health")
			require.NoError(t, c.SetValue(health, 42))
			require.NoError(t, SaveContainer(ctx, p, c))

			require.NoError(t, c.SetBaseValue(health, 7))
			require.NoError(t, RestoreContainer(ctx, p, c))
			assert.Equal(t, 42.0, c.GetValue(health))
			assert.Equal(t, 50.0, c.GetBaseValue(health))

			snap, err := p.Load(ctx, c.ID())
			require.NoError(t, err)
			assert.Equal(t, "Game.Character", snap.Class)
			assert.Equal(t, attributex.ValuePair{Base: 100, Current: 100}, snap.Values["MaxHealth"])

			_, err = p.Load(ctx, "missing")
			assert.ErrorIs(t, err, os.ErrNotExist)
		})
	}
}

func TestPersister_CanceledContext(t *testing.T) {
	p, err := NewJSONPersister(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Save(ctx, newCharacter(t).Snapshot()), context.Canceled)
}

func TestRestore_FiresNothing(t *testing.T) {
	ctx := context.Background()
	p, err := NewYAMLPersister(t.TempDir())
	require.NoError(t, err)

	ch := make(chan ChangeEvent, 8)
	c := newCharacter(t, attributex.WithRules(NewPublisherRule(ch)))
	require.NoError(t, SaveContainer(ctx, p, c))
	require.NoError(t, RestoreContainer(ctx, p, c))
	assert.Empty(t, ch)
}

const metadataYAML = `
Health: {min: 0, max: 100, default: 80}
MaxHealth: {min: 1, max: 500, default: 100}
`

func TestYAMLMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.yaml")
	require.NoError(t, os.WriteFile(path, []byte(metadataYAML), 0o644))

	table, err := LoadYAMLMetadata(path)
	require.NoError(t, err)
	md, ok := table.Lookup("Health")
	require.True(t, ok)
	assert.Equal(t, attributex.MetaData{Min: 0, Max: 100, Default: 80}, md)

	_, err = ParseYAMLMetadata([]byte("Bad: {min: 5, max: 1}"))
	assert.Error(t, err)
}

func TestSQLiteMetadata(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLiteMetadata(ctx, filepath.Join(t.TempDir(), "metadata.db"))
	require.NoError(t, err)
	defer db.Close()

	table, err := ParseYAMLMetadata([]byte(metadataYAML))
	require.NoError(t, err)
	require.NoError(t, db.Import(ctx, table))
	require.NoError(t, db.Put(ctx, "Health", attributex.MetaData{Min: 0, Max: 150, Default: 120}))

	md, ok := db.Lookup("Health")
	require.True(t, ok)
	assert.Equal(t, 120.0, md.Default)
	assert.Equal(t, 150.0, md.Max)

	_, ok = db.Lookup("Mana")
	assert.False(t, ok)
	_, err = db.Get(ctx, "Mana")
	assert.ErrorIs(t, err, attributex.ErrMissingMetadata)

	c := newCharacter(t)
	require.NoError(t, c.InitFromMetadata(db))
	assert.Equal(t, 120.0, c.GetValue(c.Attribute("Health")))
	assert.Equal(t, 100.0, c.GetBaseValue(c.Attribute("MaxHealth")))
}

func TestSQLiteMetadata_ClampFromMetadata(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLiteMetadata(ctx, filepath.Join(t.TempDir(), "metadata.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Put(ctx, "Health", attributex.MetaData{Min: 10, Max: 90, Default: 50}))

	c := newCharacter(t,
		attributex.WithMetadata(db),
		attributex.WithRules(attributex.NewClampRule(
			attributex.NewAttribute("Game.Character", "Health"),
			attributex.FromMetadata(), attributex.FromMetadata(), attributex.KeepAbsolute)),
	)
	health := c.Attribute("Health")
	require.NoError(t, c.SetValue(health, 500))
	assert.Equal(t, 90.0, c.GetValue(health))
	require.NoError(t, c.SetValue(health, -5))
	assert.Equal(t, 10.0, c.GetValue(health))
}

func TestPublisherRule(t *testing.T) {
	ch := make(chan ChangeEvent, 1)
	c := newCharacter(t)
	health := c.Attribute("Health")
	pub := NewPublisherRule(ch, health)
	require.NoError(t, c.AddRule(pub))

	require.NoError(t, c.SetValue(health, 60))
	require.NoError(t, c.SetValue(health, 70))
	require.NoError(t, c.SetValue(c.Attribute("MaxHealth"), 10))

	ev := <-ch
	assert.Equal(t, c.ID(), ev.ContainerID)
	assert.Equal(t, health, ev.Attribute)
	assert.Equal(t, 50.0, ev.Old)
	assert.Equal(t, 60.0, ev.New)
	assert.False(t, ev.At.IsZero())
	assert.Equal(t, uint64(1), pub.Dropped())
	assert.Empty(t, ch)
}

func TestPublisherRule_AllAttributes(t *testing.T) {
	ch := make(chan ChangeEvent, 4)
	pub := NewPublisherRule(ch)
	c := newCharacter(t, attributex.WithRules(pub))
	assert.Len(t, pub.Attributes, 2)

	require.NoError(t, c.SetBaseValue(c.Attribute("MaxHealth"), 120))
	ev := <-ch
	assert.Equal(t, "MaxHealth", ev.Attribute.Name)
}

func TestDOTVisualizer(t *testing.T) {
	c := newCharacter(t)
	health, maxHealth := c.Attribute("Health"), c.Attribute("MaxHealth")
	require.NoError(t, c.AddRule(attributex.NewClampRule(health,
		attributex.Constant(0), attributex.FromAttribute(maxHealth), attributex.KeepRelative)))
	require.NoError(t, c.AddRule(attributex.NewBindingRule(health, "Game.HUD", "Health")))
	require.NoError(t, c.AddRule(attributex.NewClampRule(maxHealth,
		attributex.FromAttribute(attributex.NewAttribute("Game.Buffs", "Floor")), attributex.Constant(999), attributex.KeepAbsolute)))

	edges := CollectEdges(c)
	assert.Equal(t, []Edge{
		{From: "MaxHealth", To: "Health", Label: "clamp max"},
		{From: "Health", To: "Game.HUD.Health", Label: "binding"},
		{From: "Game.Buffs.Floor", To: "MaxHealth", Label: "clamp min"},
	}, edges)

	dot := (&DOTVisualizer{}).ExportDOT(c)
	assert.True(t, strings.HasPrefix(dot, `digraph "Game.Character" {`))
	assert.Contains(t, dot, `"Health" [label="Health\n50 (base 50)"];`)
	assert.Contains(t, dot, `"Game.HUD.Health" [style=dashed];`)
	assert.Contains(t, dot, `"MaxHealth" -> "Health" [label="clamp max"];`)
	assert.NotContains(t, dot, `"Health" [style=dashed]`)
}
