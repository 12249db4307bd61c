package components

// Position represents an entity's world position.
type Position struct {
	X, Y float32
}

// Velocity represents an entity's velocity.
type Velocity struct {
	X, Y float32
}

// Life is the remaining lifetime of a drifting particle, in ticks.
// Particles are culled when it reaches zero.
type Life struct {
	Remaining float32
}
