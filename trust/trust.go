// Package trust assigns users and content to privilege tiers: privileged
// (group admins, sibling agents, self), blocked (globally banned), trusted
// (explicitly excepted), or ordinary.
package trust

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/chatsweep/chatsweep/message"
)

// Identities is the static "which agents are around" configuration,
// injected at startup.
type Identities struct {
	// Self is this agent's own account id.
	Self int64
	// Siblings are the cooperating moderation agents, by account id.
	Siblings map[int64]bool
	// RecheckSibling is the sibling whose presence among a group's admins
	// switches the QR clean-hash cache to strict mode.
	RecheckSibling int64
}

// IsAgent reports whether uid is this agent or a sibling.
func (ids Identities) IsAgent(uid int64) bool {
	return uid == ids.Self || ids.Siblings[uid]
}

// WatchPurpose keys the watch list.
type WatchPurpose string

const (
	WatchBan    WatchPurpose = "ban"
	WatchDelete WatchPurpose = "delete"
)

// Sets holds the process-wide trust state: blocked ids, exceptions, group
// admin rosters and per-group trusted members. A single RWMutex guards all
// of it; the pipeline only reads, external command handlers mutate.
type Sets struct {
	mu sync.RWMutex

	ids Identities

	blockedUsers    map[int64]bool
	blockedChannels map[int64]bool

	exceptedChannels map[int64]bool
	exceptedContent  map[string]bool
	tempContent      *expirable.LRU[string, bool]

	admins  map[int64]map[int64]bool
	trusted map[int64]map[int64]bool

	watch map[WatchPurpose]map[int64]int64

	onDirty func(structure string)
}

// NewSets builds an empty trust state. tempTTL bounds how long short-lived
// content exemptions (previously examined-and-clean fingerprints) survive.
func NewSets(ids Identities, tempTTL time.Duration, onDirty func(structure string)) *Sets {
	if onDirty == nil {
		onDirty = func(string) {}
	}
	return &Sets{
		ids:              ids,
		blockedUsers:     make(map[int64]bool),
		blockedChannels:  make(map[int64]bool),
		exceptedChannels: make(map[int64]bool),
		exceptedContent:  make(map[string]bool),
		tempContent:      expirable.NewLRU[string, bool](10_000, nil, tempTTL),
		admins:           make(map[int64]map[int64]bool),
		trusted:          make(map[int64]map[int64]bool),
		watch: map[WatchPurpose]map[int64]int64{
			WatchBan:    {},
			WatchDelete: {},
		},
		onDirty: onDirty,
	}
}

func (s *Sets) Identities() Identities {
	return s.ids
}

// IsPrivileged reports whether the message sender is class C for its group:
// a group admin, a sibling agent, or this agent itself.
func (s *Sets) IsPrivileged(m *message.Message) bool {
	if m == nil || m.From == nil {
		return false
	}
	uid := m.From.ID
	if m.From.IsSelf || s.ids.IsAgent(uid) {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admins[m.ChatID][uid]
}

// IsBlocked reports whether the message is a class D object: sender or
// forward origin in the global block sets.
func (s *Sets) IsBlocked(m *message.Message) bool {
	if m == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m.From != nil && s.blockedUsers[m.From.ID] {
		return true
	}
	if m.ForwardFrom != nil && s.blockedUsers[m.ForwardFrom.ID] {
		return true
	}
	if m.ForwardFromChat != nil && s.blockedChannels[m.ForwardFromChat.ID] {
		return true
	}
	return false
}

// IsBlockedUser reports whether the user id is globally banned.
func (s *Sets) IsBlockedUser(uid int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blockedUsers[uid]
}

// IsTrustedUser reports whether the user is class E: a sibling agent, or a
// trusted member of any group.
func (s *Sets) IsTrustedUser(uid int64) bool {
	if s.ids.IsAgent(uid) {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, members := range s.trusted {
		if members[uid] {
			return true
		}
	}
	return false
}

// IsTrustedContent reports whether the message itself is class E: forwarded
// from an excepted channel, an excepted game, or carrying an excepted
// content fingerprint (long-lived or temporary).
func (s *Sets) IsTrustedContent(m *message.Message, fingerprint string) bool {
	if m == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m.ForwardFromChat != nil && s.exceptedChannels[m.ForwardFromChat.ID] {
		return true
	}
	if m.Game != nil && s.exceptedContent[m.Game.ShortName] {
		return true
	}
	if fingerprint == "" {
		return false
	}
	if s.exceptedContent[fingerprint] {
		return true
	}
	_, ok := s.tempContent.Get(fingerprint)
	return ok
}

// IsExceptedChannel reports whether the channel id is explicitly excepted.
func (s *Sets) IsExceptedChannel(chatID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exceptedChannels[chatID]
}

// IsTempContent reports whether the fingerprint is in the short-lived
// exemption cache.
func (s *Sets) IsTempContent(fingerprint string) bool {
	_, ok := s.tempContent.Get(fingerprint)
	return ok
}

// AddTempContent records a short-lived content exemption, e.g. an image
// hash examined and found clean.
func (s *Sets) AddTempContent(fingerprint string) {
	s.tempContent.Add(fingerprint, true)
	s.onDirty("except")
}

// IsAdmin reports whether uid administers the group.
func (s *Sets) IsAdmin(groupID, uid int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admins[groupID][uid]
}

// HasAdminRecords reports whether this agent holds an admin roster for the
// chat, i.e. the chat is administered by the agent's operator set.
func (s *Sets) HasAdminRecords(chatID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.admins[chatID]) > 0
}

// IsWatched reports whether the user is under active heightened scrutiny
// for the purpose. Trusted users are never watched.
func (s *Sets) IsWatched(purpose WatchPurpose, uid int64, now int64) bool {
	if s.IsTrustedUser(uid) {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now < s.watch[purpose][uid]
}

// Mutation surface, used by external command handlers and startup loading.

func (s *Sets) BlockUser(uid int64) {
	s.mu.Lock()
	s.blockedUsers[uid] = true
	s.mu.Unlock()
	s.onDirty("bad")
}

func (s *Sets) UnblockUser(uid int64) {
	s.mu.Lock()
	delete(s.blockedUsers, uid)
	s.mu.Unlock()
	s.onDirty("bad")
}

func (s *Sets) BlockChannel(chatID int64) {
	s.mu.Lock()
	s.blockedChannels[chatID] = true
	s.mu.Unlock()
	s.onDirty("bad")
}

func (s *Sets) ExceptChannel(chatID int64) {
	s.mu.Lock()
	s.exceptedChannels[chatID] = true
	s.mu.Unlock()
	s.onDirty("except")
}

func (s *Sets) ExceptContent(fingerprint string) {
	s.mu.Lock()
	s.exceptedContent[fingerprint] = true
	s.mu.Unlock()
	s.onDirty("except")
}

func (s *Sets) SetAdmins(groupID int64, uids []int64) {
	set := make(map[int64]bool, len(uids))
	for _, uid := range uids {
		set[uid] = true
	}
	s.mu.Lock()
	s.admins[groupID] = set
	s.mu.Unlock()
}

func (s *Sets) TrustMember(groupID, uid int64) {
	s.mu.Lock()
	members, ok := s.trusted[groupID]
	if !ok {
		members = make(map[int64]bool)
		s.trusted[groupID] = members
	}
	members[uid] = true
	s.mu.Unlock()
	s.onDirty("trust")
}

func (s *Sets) SetWatch(purpose WatchPurpose, uid int64, until int64) {
	s.mu.Lock()
	s.watch[purpose][uid] = until
	s.mu.Unlock()
	s.onDirty("watch")
}
