package telemetry

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/pthm-cable/brine/components"
	"github.com/pthm-cable/brine/config"
)

// DeathRecord captures one body removal. Records are immutable once
// observed; they live in the tracker ring and stream to deaths.csv.
type DeathRecord struct {
	Seq        uint64                 `csv:"seq"`
	Tick       int64                  `csv:"tick"`
	BodyID     uint32                 `csv:"body_id"`
	Reason     string                 `csv:"reason"`
	Class      Class                  `csv:"class"`
	Kind       PhysicsKind            `csv:"kind"`
	Origin     components.BirthOrigin `csv:"origin"`
	Stage      string                 `csv:"stage"`
	Generation int32                  `csv:"generation"`
	ParentID   uint32                 `csv:"parent_id"`
	LineageID  uint32                 `csv:"lineage_id"`
	AgeTicks   int64                  `csv:"age_ticks"`
	Points     int                    `csv:"points"`
	Springs    int                    `csv:"springs"`
	Energy     float64                `csv:"energy"`
	X          float32                `csv:"x"`
	Y          float32                `csv:"y"`
	Diag       string                 `csv:"diag"`
}

// InstabilityTracker aggregates removals for one world: counters by
// reason, class, kind, birth origin, and lifecycle stage, plus a
// bounded ring of the most recent DeathRecords. Diagnostics for
// watched reasons are rate limited per reason prefix.
type InstabilityTracker struct {
	juvenileTicks int64
	matureTicks   int64

	nextSeq uint64

	total    int
	byReason map[string]int
	byClass  map[Class]int
	byKind   map[PhysicsKind]int
	byOrigin map[components.BirthOrigin]int
	byStage  map[string]int

	ring       []DeathRecord
	writeIndex int
	ringCount  int

	watched      []string
	minInterval  int64
	lastDiagTick map[string]int64
}

func NewInstabilityTracker(cfg *config.Config) *InstabilityTracker {
	ringSize := cfg.Telemetry.DeathRingSize
	if ringSize < 1 {
		ringSize = 1
	}
	return &InstabilityTracker{
		juvenileTicks: cfg.Telemetry.StageJuvenileTicks,
		matureTicks:   cfg.Telemetry.StageMatureTicks,
		byReason:      make(map[string]int),
		byClass:       make(map[Class]int),
		byKind:        make(map[PhysicsKind]int),
		byOrigin:      make(map[components.BirthOrigin]int),
		byStage:       make(map[string]int),
		ring:          make([]DeathRecord, ringSize),
		watched:       cfg.Telemetry.WatchedReasons,
		minInterval:   int64(cfg.Telemetry.DiagMinIntervalTicks),
		lastDiagTick:  make(map[string]int64),
	}
}

// Observe ingests one removal and returns the completed record. Seq is
// assigned here and is strictly increasing for the life of the
// tracker. diag is marshaled to JSON on a best-effort basis; a value
// that cannot be marshaled degrades to an empty string rather than
// blocking the removal.
func (t *InstabilityTracker) Observe(tick int64, reason string, lc *components.Lifecycle, points, springs int, energy float64, x, y float32, diag any) DeathRecord {
	class, kind := Classify(reason)
	age := lc.AgeTicks(tick)
	rec := DeathRecord{
		Seq:        t.nextSeq + 1,
		Tick:       tick,
		BodyID:     lc.ID,
		Reason:     reason,
		Class:      class,
		Kind:       kind,
		Origin:     lc.Origin,
		Stage:      StageFor(age, t.juvenileTicks, t.matureTicks),
		Generation: lc.Generation,
		ParentID:   lc.ParentID,
		LineageID:  lc.LineageID,
		AgeTicks:   age,
		Points:     points,
		Springs:    springs,
		Energy:     energy,
		X:          x,
		Y:          y,
		Diag:       marshalDiag(diag),
	}
	t.nextSeq = rec.Seq

	t.total++
	t.byReason[reason]++
	t.byClass[class]++
	if kind != KindNone {
		t.byKind[kind]++
	}
	t.byOrigin[rec.Origin]++
	t.byStage[rec.Stage]++

	t.ring[t.writeIndex] = rec
	t.writeIndex = (t.writeIndex + 1) % len(t.ring)
	if t.ringCount < len(t.ring) {
		t.ringCount++
	}

	t.maybeDiagnose(tick, rec)
	return rec
}

func marshalDiag(diag any) string {
	if diag == nil {
		return ""
	}
	b, err := json.Marshal(diag)
	if err != nil {
		return ""
	}
	return string(b)
}

// maybeDiagnose logs a structured diagnostic when the reason matches a
// watched prefix and that prefix has been quiet for minInterval ticks.
func (t *InstabilityTracker) maybeDiagnose(tick int64, rec DeathRecord) {
	prefix := t.watchedPrefix(rec.Reason)
	if prefix == "" {
		return
	}
	if last, ok := t.lastDiagTick[prefix]; ok && tick-last < t.minInterval {
		return
	}
	t.lastDiagTick[prefix] = tick
	slog.Warn("instability diagnostic",
		"tick", tick,
		"seq", rec.Seq,
		"body", rec.BodyID,
		"reason", rec.Reason,
		"class", rec.Class,
		"kind", rec.Kind,
		"origin", rec.Origin,
		"stage", rec.Stage,
		"age", rec.AgeTicks,
		"energy", rec.Energy,
		"x", rec.X,
		"y", rec.Y,
		"diag", rec.Diag,
	)
}

func (t *InstabilityTracker) watchedPrefix(reason string) string {
	for _, p := range t.watched {
		if strings.HasPrefix(reason, p) {
			return p
		}
	}
	return ""
}

func (t *InstabilityTracker) Total() int             { return t.total }
func (t *InstabilityTracker) LastSeq() uint64        { return t.nextSeq }
func (t *InstabilityTracker) ClassCount(c Class) int { return t.byClass[c] }

func (t *InstabilityTracker) ReasonCounts() map[string]int {
	out := make(map[string]int, len(t.byReason))
	for k, v := range t.byReason {
		out[k] = v
	}
	return out
}

func (t *InstabilityTracker) KindCounts() map[PhysicsKind]int {
	out := make(map[PhysicsKind]int, len(t.byKind))
	for k, v := range t.byKind {
		out[k] = v
	}
	return out
}

func (t *InstabilityTracker) OriginCounts() map[components.BirthOrigin]int {
	out := make(map[components.BirthOrigin]int, len(t.byOrigin))
	for k, v := range t.byOrigin {
		out[k] = v
	}
	return out
}

func (t *InstabilityTracker) StageCounts() map[string]int {
	out := make(map[string]int, len(t.byStage))
	for k, v := range t.byStage {
		out[k] = v
	}
	return out
}

// Records returns the retained removals oldest first.
func (t *InstabilityTracker) Records() []DeathRecord {
	out := make([]DeathRecord, 0, t.ringCount)
	start := 0
	if t.ringCount == len(t.ring) {
		start = t.writeIndex
	}
	for i := 0; i < t.ringCount; i++ {
		out = append(out, t.ring[(start+i)%len(t.ring)])
	}
	return out
}
