package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/dooshek/duologue/internal/fileops"
	"github.com/dooshek/duologue/internal/logger"
)

// ProviderStats holds usage statistics for one synthesis provider
type ProviderStats struct {
	Characters   int     `json:"characters"`
	Turns        int     `json:"turns"`
	Failures     int     `json:"failures"`
	AudioSeconds float64 `json:"audio_seconds"`
}

// Stats holds all usage statistics
type Stats struct {
	Renders   int                       `json:"renders"`
	Providers map[string]*ProviderStats `json:"providers"`
}

// Usage is one provider's share of a single render
type Usage struct {
	Provider     string
	Characters   int
	Turns        int
	Failures     int
	AudioSeconds float64
}

// StatsManager manages usage statistics persistence
type StatsManager struct {
	stats    Stats
	filePath string
	mu       sync.Mutex
}

// NewStatsManager creates a stats manager for the default stats file
func NewStatsManager(fileOps fileops.FileOps) *StatsManager {
	return NewStatsManagerAt(fileOps.GetStatsPath())
}

// NewStatsManagerAt creates a stats manager backed by filePath and loads
// existing data
func NewStatsManagerAt(filePath string) *StatsManager {
	sm := &StatsManager{
		filePath: filePath,
		stats:    Stats{Providers: make(map[string]*ProviderStats)},
	}

	if err := sm.load(); err != nil {
		logger.Debugf("Could not load stats (will start fresh): %v", err)
	}

	return sm
}

// AddRender records one finished render and persists immediately
func (sm *StatsManager) AddRender(usage []Usage) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.stats.Renders++
	for _, u := range usage {
		ps, ok := sm.stats.Providers[u.Provider]
		if !ok {
			ps = &ProviderStats{}
			sm.stats.Providers[u.Provider] = ps
		}
		ps.Characters += u.Characters
		ps.Turns += u.Turns
		ps.Failures += u.Failures
		ps.AudioSeconds += u.AudioSeconds
	}

	if err := sm.save(); err != nil {
		return fmt.Errorf("failed to save stats after render: %w", err)
	}
	return nil
}

// GetStats returns a deep copy of current statistics
func (sm *StatsManager) GetStats() Stats {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	statsCopy := Stats{
		Renders:   sm.stats.Renders,
		Providers: make(map[string]*ProviderStats, len(sm.stats.Providers)),
	}
	for name, ps := range sm.stats.Providers {
		c := *ps
		statsCopy.Providers[name] = &c
	}
	return statsCopy
}

// ProviderNames returns the providers with recorded usage, sorted
func (s Stats) ProviderNames() []string {
	names := make([]string, 0, len(s.Providers))
	for name := range s.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears all statistics and persists empty state
func (sm *StatsManager) Reset() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.stats = Stats{Providers: make(map[string]*ProviderStats)}

	if err := sm.save(); err != nil {
		return fmt.Errorf("failed to save reset stats: %w", err)
	}
	return nil
}

func (sm *StatsManager) load() error {
	data, err := os.ReadFile(sm.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debugf("Stats file not found, starting fresh: %s", sm.filePath)
			return nil
		}
		return fmt.Errorf("failed to read stats file: %w", err)
	}

	if err := json.Unmarshal(data, &sm.stats); err != nil {
		return fmt.Errorf("failed to unmarshal stats: %w", err)
	}

	if sm.stats.Providers == nil {
		sm.stats.Providers = make(map[string]*ProviderStats)
	}

	logger.Debugf("Loaded stats from %s", sm.filePath)
	return nil
}

func (sm *StatsManager) save() error {
	data, err := json.MarshalIndent(sm.stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	if err := fileops.WriteFileAtomic(sm.filePath, data, 0o644); err != nil {
		return err
	}

	logger.Debugf("Saved stats to %s", sm.filePath)
	return nil
}
