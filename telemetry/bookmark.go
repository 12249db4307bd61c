package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkPhysicsBurst       BookmarkType = "physics_burst"
	BookmarkPopulationCrash    BookmarkType = "population_crash"
	BookmarkPopulationRecovery BookmarkType = "population_recovery"
	BookmarkStablePopulation   BookmarkType = "stable_population"
	BookmarkFluidSurge         BookmarkType = "fluid_surge"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType
	Tick        int64
	Description string
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	recentBodyMin      int // minimum live body count in recent history
	recentBodyPeak     int // peak live body count in recent history
	stableWindowsCount int // consecutive windows with a stable population
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable population detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		// Physics burst: physics removals > 2x rolling average
		if b := bd.checkPhysicsBurst(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Population crash: dropped >30% from recent peak
		if b := bd.checkPopulationCrash(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Population recovery: was near the floor, now >=3x that
		if b := bd.checkPopulationRecovery(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Stable population: low variance over 5+ windows
		if b := bd.checkStablePopulation(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Fluid surge: peak speed > 2x rolling average
		if b := bd.checkFluidSurge(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	// Update history
	bd.addToHistory(stats)

	// Track body minimum and peak
	if stats.LiveBodies < bd.recentBodyMin || bd.recentBodyMin == 0 {
		bd.recentBodyMin = stats.LiveBodies
	}
	if stats.LiveBodies > bd.recentBodyPeak {
		bd.recentBodyPeak = stats.LiveBodies
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkPhysicsBurst(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.RemovedPhysics
	}
	avg := float64(total) / float64(len(history))

	if stats.RemovedPhysics >= 3 && float64(stats.RemovedPhysics) > avg*2.0 {
		return &Bookmark{
			Type:        BookmarkPhysicsBurst,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d physics removals in one window vs %.1f average", stats.RemovedPhysics, avg),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkPopulationCrash(stats WindowStats) *Bookmark {
	if bd.recentBodyPeak == 0 {
		return nil
	}

	dropPercent := 1.0 - float64(stats.LiveBodies)/float64(bd.recentBodyPeak)
	if dropPercent > 0.30 && stats.LiveBodies < bd.recentBodyPeak-5 {
		// Reset peak after crash
		oldPeak := bd.recentBodyPeak
		bd.recentBodyPeak = stats.LiveBodies

		return &Bookmark{
			Type:        BookmarkPopulationCrash,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Population crashed %.0f%% from peak %d to %d", dropPercent*100, oldPeak, stats.LiveBodies),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkPopulationRecovery(stats WindowStats) *Bookmark {
	if bd.recentBodyMin == 0 || bd.recentBodyMin > 4 {
		return nil
	}

	threshold := bd.recentBodyMin * 3
	if stats.LiveBodies >= threshold && stats.LiveBodies >= 8 {
		// Reset the minimum after triggering
		oldMin := bd.recentBodyMin
		bd.recentBodyMin = stats.LiveBodies

		return &Bookmark{
			Type:        BookmarkPopulationRecovery,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Population recovered from %d to %d", oldMin, stats.LiveBodies),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkStablePopulation(stats WindowStats) *Bookmark {
	// Need a living population above the floor
	if stats.LiveBodies < 6 {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	var sum float64
	for _, h := range history[len(history)-4:] {
		sum += float64(h.LiveBodies)
	}
	mean := sum / 4

	var variance float64
	for _, h := range history[len(history)-4:] {
		diff := float64(h.LiveBodies) - mean
		variance += diff * diff
	}
	variance /= 4

	// Low variance: coefficient of variation < 20%
	cv := 0.0
	if mean > 0 {
		cv = variance / (mean * mean)
	}

	if cv < 0.04 { // CV^2 < 0.04 means CV < 0.2
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkStablePopulation,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Stable population of %d bodies over 5+ windows", stats.LiveBodies),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkFluidSurge(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.FluidMaxSpeed
	}
	avg := total / float64(len(history))

	if avg == 0 {
		return nil
	}

	if stats.FluidMaxSpeed > avg*2.0 && stats.FluidMaxSpeed > 5.0 {
		return &Bookmark{
			Type:        BookmarkFluidSurge,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Fluid peak speed %.1f is %.1fx average (%.1f)", stats.FluidMaxSpeed, stats.FluidMaxSpeed/avg, avg),
		}
	}

	return nil
}
