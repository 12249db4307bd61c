package telemetry

import (
	"math/rand"
	"testing"
)

func leaderRecord(id uint32, class Class, ageTicks int64) DeathRecord {
	return DeathRecord{
		BodyID:   id,
		Reason:   "starvation",
		Class:    class,
		AgeTicks: ageTicks,
	}
}

func leaderGeometry() BodyState {
	return testBodyState(1)
}

func TestLeaderBoardRejectsPhysicsRemovals(t *testing.T) {
	lb := NewLeaderBoard(8, 0)

	if lb.Consider(leaderRecord(1, ClassPhysics, 99999), nil, leaderGeometry()) {
		t.Error("board accepted a physics-class removal")
	}
	if lb.Consider(leaderRecord(2, ClassUnknown, 99999), nil, leaderGeometry()) {
		t.Error("board accepted an unknown-class removal")
	}
	if lb.Size() != 0 {
		t.Errorf("board size = %d, want 0", lb.Size())
	}
}

func TestLeaderBoardMinAge(t *testing.T) {
	lb := NewLeaderBoard(8, 1200)

	if lb.Consider(leaderRecord(1, ClassNonPhysics, 1199), nil, leaderGeometry()) {
		t.Error("board accepted a body below the minimum age")
	}
	if !lb.Consider(leaderRecord(2, ClassNonPhysics, 1200), nil, leaderGeometry()) {
		t.Error("board rejected a body at the minimum age")
	}
}

func TestLeaderBoardOrdersByFitness(t *testing.T) {
	lb := NewLeaderBoard(8, 0)

	lb.Consider(leaderRecord(1, ClassNonPhysics, 5000), nil, leaderGeometry())
	lb.Consider(leaderRecord(2, ClassNonPhysics, 2000), &LifetimeStats{Children: 2}, leaderGeometry())

	// Two children outweigh the age gap
	if got := lb.TopFitness(); got != 6000 {
		t.Errorf("TopFitness = %v, want 6000", got)
	}
	if lb.Size() != 2 {
		t.Errorf("Size = %d, want 2", lb.Size())
	}
}

func TestLeaderBoardBounded(t *testing.T) {
	lb := NewLeaderBoard(3, 0)

	for i := 1; i <= 5; i++ {
		lb.Consider(leaderRecord(uint32(i), ClassNonPhysics, int64(i*1000)), nil, leaderGeometry())
	}

	if lb.Size() != 3 {
		t.Fatalf("Size = %d, want 3", lb.Size())
	}
	if lb.TopFitness() != 5000 {
		t.Errorf("TopFitness = %v, want 5000", lb.TopFitness())
	}

	// Anything below the current floor bounces off a full board
	if lb.Consider(leaderRecord(9, ClassNonPhysics, 1500), nil, leaderGeometry()) {
		t.Error("full board accepted an entry below its floor")
	}
}

func TestLeaderBoardSample(t *testing.T) {
	lb := NewLeaderBoard(8, 0)

	if lb.Sample(rand.New(rand.NewSource(1))) != nil {
		t.Error("empty board sample should be nil")
	}

	for i := 1; i <= 4; i++ {
		lb.Consider(leaderRecord(uint32(i), ClassNonPhysics, int64(i*1000)), nil, leaderGeometry())
	}

	a := lb.Sample(rand.New(rand.NewSource(42)))
	b := lb.Sample(rand.New(rand.NewSource(42)))
	if a == nil || b == nil {
		t.Fatal("sample from a populated board returned nil")
	}
	if a.BodyID != b.BodyID {
		t.Errorf("same seed sampled different entries: %d vs %d", a.BodyID, b.BodyID)
	}

	// The sample is a copy; mutating it must not touch the board
	top := lb.TopFitness()
	a.Fitness = -1
	if lb.TopFitness() != top {
		t.Error("mutating a sampled entry changed the board")
	}
}

func TestLeaderBoardDisabled(t *testing.T) {
	lb := NewLeaderBoard(0, 0)

	if lb.Consider(leaderRecord(1, ClassNonPhysics, 99999), nil, leaderGeometry()) {
		t.Error("disabled board accepted an entry")
	}
	if lb.Sample(rand.New(rand.NewSource(1))) != nil {
		t.Error("disabled board sampled an entry")
	}
}
