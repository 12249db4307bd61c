package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/brine/components"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the complete body population state for replay.
// Environment fields are regenerated from the recorded seeds on
// restore; only body geometry and lifecycle survive exactly.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`

	WorldWidth  float32 `json:"world_width"`
	WorldHeight float32 `json:"world_height"`

	Tick       int64  `json:"tick"`
	NextBodyID uint32 `json:"next_body_id"`

	Bodies []BodyState `json:"bodies"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// BodyState holds one body's complete state.
type BodyState struct {
	ID            uint32                 `json:"id"`
	Origin        components.BirthOrigin `json:"origin"`
	Generation    int32                  `json:"generation"`
	ParentID      uint32                 `json:"parent_id"`
	LineageID     uint32                 `json:"lineage_id"`
	BirthTick     int64                  `json:"birth_tick"`
	ReproCount    int32                  `json:"repro_count"`
	CooldownUntil int64                  `json:"cooldown_until"`

	Energy float64 `json:"energy"`

	Points  []PointState  `json:"points"`
	Springs []SpringState `json:"springs"`

	Lifetime *LifetimeStats `json:"lifetime,omitempty"`
}

// PointState is the serialized form of one mass point.
type PointState struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	PrevX  float32 `json:"prev_x"`
	PrevY  float32 `json:"prev_y"`
	Radius float32 `json:"radius"`
	Mass   float32 `json:"mass"`
	Kind   uint8   `json:"kind"`
	Fixed  bool    `json:"fixed,omitempty"`
}

// SpringState is the serialized form of one spring.
type SpringState struct {
	A         int     `json:"a"`
	B         int     `json:"b"`
	Rest      float32 `json:"rest"`
	Stiffness float32 `json:"stiffness"`
	Damping   float32 `json:"damping"`
	Rigid     bool    `json:"rigid,omitempty"`
}

// CaptureBody records a body's lifecycle, energy, and geometry.
func CaptureBody(lc *components.Lifecycle, energy float64, sb *components.SoftBody) BodyState {
	bs := BodyState{
		ID:            lc.ID,
		Origin:        lc.Origin,
		Generation:    lc.Generation,
		ParentID:      lc.ParentID,
		LineageID:     lc.LineageID,
		BirthTick:     lc.BirthTick,
		ReproCount:    lc.ReproCount,
		CooldownUntil: lc.CooldownUntil,
		Energy:        energy,
		Points:        make([]PointState, len(sb.Points)),
		Springs:       make([]SpringState, len(sb.Springs)),
	}
	for i, p := range sb.Points {
		bs.Points[i] = PointState{
			X:      p.X,
			Y:      p.Y,
			PrevX:  p.PrevX,
			PrevY:  p.PrevY,
			Radius: p.Radius,
			Mass:   p.Mass,
			Kind:   uint8(p.Kind),
			Fixed:  p.Fixed,
		}
	}
	for i, s := range sb.Springs {
		bs.Springs[i] = SpringState{
			A:         s.A,
			B:         s.B,
			Rest:      s.Rest,
			Stiffness: s.Stiffness,
			Damping:   s.Damping,
			Rigid:     s.Rigid,
		}
	}
	return bs
}

// Geometry rebuilds the soft body described by the state.
func (bs *BodyState) Geometry() *components.SoftBody {
	sb := &components.SoftBody{
		Points:  make([]components.MassPoint, len(bs.Points)),
		Springs: make([]components.Spring, len(bs.Springs)),
	}
	for i, p := range bs.Points {
		sb.Points[i] = components.MassPoint{
			X:      p.X,
			Y:      p.Y,
			PrevX:  p.PrevX,
			PrevY:  p.PrevY,
			Radius: p.Radius,
			Mass:   p.Mass,
			Kind:   components.NodeKind(p.Kind),
			Fixed:  p.Fixed,
		}
	}
	for i, s := range bs.Springs {
		sb.Springs[i] = components.Spring{
			A:         s.A,
			B:         s.B,
			Rest:      s.Rest,
			Stiffness: s.Stiffness,
			Damping:   s.Damping,
			Rigid:     s.Rigid,
		}
	}
	return sb
}

// Lifecycle rebuilds the lifecycle component described by the state.
func (bs *BodyState) Lifecycle() components.Lifecycle {
	return components.Lifecycle{
		ID:            bs.ID,
		Origin:        bs.Origin,
		Generation:    bs.Generation,
		ParentID:      bs.ParentID,
		LineageID:     bs.LineageID,
		BirthTick:     bs.BirthTick,
		ReproCount:    bs.ReproCount,
		CooldownUntil: bs.CooldownUntil,
		Stabilized:    true,
	}
}

// Validate checks the snapshot for structural corruption. A snapshot
// that fails validation must not be restored.
func (s *Snapshot) Validate() error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	for i := range s.Bodies {
		b := &s.Bodies[i]
		if len(b.Points) == 0 {
			return fmt.Errorf("snapshot body %d (id %d): no points", i, b.ID)
		}
		for j, sp := range b.Springs {
			if sp.A < 0 || sp.A >= len(b.Points) || sp.B < 0 || sp.B >= len(b.Points) {
				return fmt.Errorf("snapshot body %d (id %d): spring %d endpoints (%d,%d) out of range [0,%d)",
					i, b.ID, j, sp.A, sp.B, len(b.Points))
			}
			if sp.A == sp.B {
				return fmt.Errorf("snapshot body %d (id %d): spring %d connects point %d to itself", i, b.ID, j, sp.A)
			}
		}
	}
	return nil
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk and validates it.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	return &snapshot, nil
}
