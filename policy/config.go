package policy

import (
	"sync"
)

// GroupConfig holds one group's moderation settings. The zero value is a
// usable "all defaults" config.
type GroupConfig struct {
	// Default is true while the group has never customized its settings.
	Default bool
	// Lock is the config lock level set by group admins.
	Lock int64
	// RestrictNew enables admission limits for recently joined members.
	RestrictNew bool
	// FriendMode relaxes mention checks to "friend" semantics.
	FriendMode bool

	// Enabled holds explicit per-category switches. Categories absent from
	// the map fall back to the built-in defaults.
	Enabled map[Category]bool
}

// Allows reports whether the given category is enabled for this group.
// Unknown categories are never enabled.
func (gc *GroupConfig) Allows(c Category) bool {
	if !Valid(c) {
		return false
	}
	if gc == nil || gc.Enabled == nil {
		return defaultOn[c]
	}
	v, ok := gc.Enabled[c]
	if !ok {
		return defaultOn[c]
	}
	return v
}

// DefaultConfig returns a fresh config with the built-in default switches
// materialized, for admin-facing display and editing.
func DefaultConfig() GroupConfig {
	enabled := make(map[Category]bool, len(AllCategories)+len(SchedulingFlags))
	for _, c := range AllCategories {
		enabled[c] = defaultOn[c]
	}
	for _, c := range SchedulingFlags {
		enabled[c] = false
	}
	return GroupConfig{
		Default: true,
		Enabled: enabled,
	}
}

// Store holds per-group configs for the process lifetime. Mutations come
// from external command handlers; the classification pipeline only reads.
type Store struct {
	mu      sync.RWMutex
	configs map[int64]GroupConfig
	onDirty func()
}

func NewStore(onDirty func()) *Store {
	if onDirty == nil {
		onDirty = func() {}
	}
	return &Store{
		configs: make(map[int64]GroupConfig),
		onDirty: onDirty,
	}
}

// Get returns the config for the group, falling back to defaults for
// unknown groups.
func (s *Store) Get(groupID int64) GroupConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[groupID]
	if !ok {
		return DefaultConfig()
	}
	return cfg
}

func (s *Store) Set(groupID int64, cfg GroupConfig) {
	s.mu.Lock()
	s.configs[groupID] = cfg
	s.mu.Unlock()
	s.onDirty()
}

// Load replaces the full config map, used at startup by the persistence
// collaborator.
func (s *Store) Load(configs map[int64]GroupConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs = configs
}
