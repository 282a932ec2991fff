package attributex_test

import (
	"testing"

	"github.com/comalice/attributex"
)

// BenchmarkSetValue measures one current-value change with no subscribers.
func BenchmarkSetValue(b *testing.B) {
	c, err := attributex.NewContainer("Game.Character",
		attributex.WithAttributes(attributex.AttributeDef{Name: "Health", Base: 100}))
	if err != nil {
		b.Fatal(err)
	}
	health := c.Attribute("Health")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.SetValue(health, float64(i))
	}
}

// BenchmarkClampedChain measures a base change that moves a clamp range and
// rescales the clamped attribute.
func BenchmarkClampedChain(b *testing.B) {
	c, err := attributex.NewContainer("Game.Character",
		attributex.WithAttributes(
			attributex.AttributeDef{Name: "Health", Base: 50},
			attributex.AttributeDef{Name: "MaxHealth", Base: 100},
		),
		attributex.WithRules(attributex.NewClampRule(
			attributex.NewAttribute("Game.Character", "Health"),
			attributex.Constant(0),
			attributex.FromAttribute(attributex.NewAttribute("Game.Character", "MaxHealth")),
			attributex.KeepRelative,
		)),
	)
	if err != nil {
		b.Fatal(err)
	}
	maxHealth := c.Attribute("MaxHealth")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.SetBaseValue(maxHealth, float64(100+i%2*100))
	}
}
