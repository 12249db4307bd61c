package telemetry

import (
	"testing"

	"github.com/pthm-cable/brine/components"
)

func TestLifetimeTrackerFold(t *testing.T) {
	lt := NewLifetimeTracker()

	lt.Register(&components.Lifecycle{ID: 1, Origin: components.OriginSeed, BirthTick: 0})
	lt.Register(&components.Lifecycle{ID: 2, Origin: components.OriginReproduced, BirthTick: 100})

	lt.UpdateEnergy(1, 80)
	lt.UpdateEnergy(1, 60) // below peak, ignored
	lt.RecordChild(1)
	lt.RecordChild(1)

	if lt.Count() != 2 {
		t.Fatalf("Count = %d, want 2", lt.Count())
	}

	folded := lt.Fold(1, 1000, 25)
	if folded == nil {
		t.Fatal("Fold returned nil for a registered body")
	}
	if folded.PeakEnergy != 80 {
		t.Errorf("PeakEnergy = %v, want 80", folded.PeakEnergy)
	}
	if folded.Children != 2 {
		t.Errorf("Children = %d, want 2", folded.Children)
	}
	if folded.AgeTicksAtFold != 1000 {
		t.Errorf("AgeTicksAtFold = %d, want 1000", folded.AgeTicksAtFold)
	}
	if folded.EnergyAtFold != 25 {
		t.Errorf("EnergyAtFold = %v, want 25", folded.EnergyAtFold)
	}

	lt.Fold(2, 400, 15)

	if lt.Count() != 0 {
		t.Errorf("Count after folds = %d, want 0", lt.Count())
	}
	if lt.FoldedCount() != 2 {
		t.Errorf("FoldedCount = %d, want 2", lt.FoldedCount())
	}
	if lt.FoldedEnergyTotal() != 40 {
		t.Errorf("FoldedEnergyTotal = %v, want 40", lt.FoldedEnergyTotal())
	}
	// Ages: 1000 and 300
	if got := lt.MeanFoldedAge(); got != 650 {
		t.Errorf("MeanFoldedAge = %v, want 650", got)
	}
}

func TestLifetimeTrackerFoldUnknownBody(t *testing.T) {
	lt := NewLifetimeTracker()

	if lt.Fold(99, 100, 10) != nil {
		t.Error("Fold of an unregistered body should return nil")
	}
	if lt.FoldedCount() != 0 {
		t.Error("unregistered fold must not touch aggregates")
	}

	// Updates against unknown bodies are ignored without panicking
	lt.UpdateEnergy(99, 50)
	lt.RecordChild(99)
}
