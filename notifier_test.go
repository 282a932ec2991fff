package attributex_test

import (
	"testing"

	"github.com/comalice/attributex"
)

func TestPreChangeFoldOrder(t *testing.T) {
	n := attributex.NewNotifier()
	attr := attributex.NewAttribute("Game.Character", "Health")

	var seen []float64
	for _, step := range []func(float64) float64{
		func(v float64) float64 { return v + 1 },
		func(v float64) float64 { return v * 10 },
		func(v float64) float64 { return v - 3 },
	} {
		step := step
		n.OnPreAttributeChange(attr).Add(func(v float64) float64 {
			seen = append(seen, v)
			return step(v)
		})
	}

	got := n.NotifyPreAttributeChange(attr, 4)
	if got != 47 {
		t.Errorf("fold result = %v, want 47", got)
	}
	want := []float64{4, 5, 50}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("inputs = %v, want %v", seen, want)
		}
	}

	if got := n.NotifyPreAttributeChange(attributex.NewAttribute("Game.Character", "Mana"), 4); got != 4 {
		t.Errorf("no subscribers should pass value through, got %v", got)
	}
}

func TestPreBaseChangeIsSeparate(t *testing.T) {
	n := attributex.NewNotifier()
	attr := attributex.NewAttribute("Game.Character", "Health")
	n.OnPreAttributeBaseChange(attr).Add(func(v float64) float64 { return v / 2 })

	if got := n.NotifyPreAttributeBaseChange(attr, 10); got != 5 {
		t.Errorf("base fold = %v, want 5", got)
	}
	if got := n.NotifyPreAttributeChange(attr, 10); got != 10 {
		t.Errorf("current fold = %v, want 10", got)
	}
}

func TestPostChangeBroadcast(t *testing.T) {
	n := attributex.NewNotifier()
	attr := attributex.NewAttribute("Game.Character", "Health")

	var calls []string
	n.OnPostAttributeChange(attr).Add(func(o, v float64) {
		calls = append(calls, "first")
		if o != 1 || v != 2 {
			t.Errorf("first got %v -> %v", o, v)
		}
		n.OnPostAttributeChange(attr).Add(func(_, _ float64) { calls = append(calls, "late") })
	})
	n.OnPostAttributeChange(attr).Add(func(o, v float64) {
		calls = append(calls, "second")
		if o != 1 || v != 2 {
			t.Errorf("second got %v -> %v", o, v)
		}
	})

	n.NotifyPostAttributeChange(attr, 1, 2)
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("calls = %v; subscribers added during dispatch run next time", calls)
	}
}

func TestInitNotification(t *testing.T) {
	n := attributex.NewNotifier()
	attr := attributex.NewAttribute("Game.Character", "Health")
	var got attributex.MetaData
	n.OnInitAttribute(attr).Add(func(md attributex.MetaData) { got = md })

	want := attributex.MetaData{Min: 0, Max: 100, Default: 80}
	n.NotifyInitAttribute(attr, want)
	if got != want {
		t.Errorf("init got %+v, want %+v", got, want)
	}
}

func TestSubscriptions(t *testing.T) {
	n := attributex.NewNotifier()
	health := attributex.NewAttribute("Game.Character", "Health")
	armor := attributex.NewAttribute("Game.Character", "Armor")

	n.OnPostAttributeChange(health).Add(func(_, _ float64) {})
	n.OnPreAttributeChange(health).Add(func(v float64) float64 { return v })
	n.OnPreAttributeChange(health).Add(func(v float64) float64 { return v })
	n.OnInitAttribute(armor).Add(func(attributex.MetaData) {})
	n.OnPreAttributeBaseChange(armor) // created but empty

	got := n.Subscriptions()
	want := []attributex.Subscription{
		{Attribute: armor, Phase: attributex.PhaseInit, Count: 1},
		{Attribute: health, Phase: attributex.PhasePreChange, Count: 2},
		{Attribute: health, Phase: attributex.PhasePostChange, Count: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("Subscriptions = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Subscriptions[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
