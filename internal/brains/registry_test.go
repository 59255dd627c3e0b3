package brains

import (
	"reflect"
	"testing"
	"time"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

func TestIterateInFixedOrder_VisitsAllFourBrains(t *testing.T) {
	r := NewRegistry()
	want := []fxtypes.Component{
		fxtypes.ComponentA2, fxtypes.ComponentB3, fxtypes.ComponentC3, fxtypes.ComponentD2,
	}
	if !reflect.DeepEqual(r.IDs(), want) {
		t.Fatalf("expected brain ids %v, got %v", want, r.IDs())
	}

	snap := fxtypes.MarketSnapshot{Symbol: "EURUSD", ExecutionHealth: fxtypes.ExecutionHealthOK, GlobalMode: fxtypes.GlobalModeNormal}

	var seen []fxtypes.Component
	r.IterateInFixedOrder(snap, "corr-1", time.Now(), func(id fxtypes.Component, intent *fxtypes.Intent, skip *fxtypes.Why) {
		seen = append(seen, id)
		if (intent == nil) == (skip == nil) {
			t.Error("exactly one of intent/skip must be set")
		}
	})
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("expected visit order %v, got %v", want, seen)
	}
}

func TestBrainA2_TrendProducesIntent(t *testing.T) {
	snap := fxtypes.MarketSnapshot{Symbol: "EURUSD", Structure: fxtypes.StructureTrend, Volatility: fxtypes.VolatilityNormal}
	intent, skip := brainA2(snap, "corr-1", time.Now())
	if skip != nil {
		t.Errorf("expected no skip reason, got %v", skip)
	}
	if intent == nil {
		t.Fatal("expected an intent")
	}
	if intent.Type != fxtypes.IntentOpenLong {
		t.Errorf("expected intent type %s, got %s", fxtypes.IntentOpenLong, intent.Type)
	}
}

func TestBrainA2_SkipsOnRange(t *testing.T) {
	snap := fxtypes.MarketSnapshot{Symbol: "EURUSD", Structure: fxtypes.StructureRange}
	intent, skip := brainA2(snap, "corr-1", time.Now())
	if intent != nil {
		t.Errorf("expected no intent, got %v", intent)
	}
	if skip == nil {
		t.Fatal("expected a skip reason")
	}
}
