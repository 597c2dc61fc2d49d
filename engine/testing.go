package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chatsweep/chatsweep/admission"
	"github.com/chatsweep/chatsweep/bypass"
	"github.com/chatsweep/chatsweep/content"
	"github.com/chatsweep/chatsweep/declare"
	"github.com/chatsweep/chatsweep/emoji"
	"github.com/chatsweep/chatsweep/message"
	"github.com/chatsweep/chatsweep/platform"
	"github.com/chatsweep/chatsweep/policy"
	"github.com/chatsweep/chatsweep/rulebank"
	"github.com/chatsweep/chatsweep/trust"
)

// MockDirectory is an in-memory platform.Directory for tests. Intentionally
// exported, for use in other packages.
type MockDirectory struct {
	mu           sync.Mutex
	Descriptions map[int64]string
	PinnedMsgs   map[int64]*message.Message
	Stickers     map[int64]string
	Members      map[int64]map[int64]platform.Member
	Handles      map[string]platform.Resolved
}

var _ platform.Directory = (*MockDirectory)(nil)

func NewMockDirectory() *MockDirectory {
	return &MockDirectory{
		Descriptions: make(map[int64]string),
		PinnedMsgs:   make(map[int64]*message.Message),
		Stickers:     make(map[int64]string),
		Members:      make(map[int64]map[int64]platform.Member),
		Handles:      make(map[string]platform.Resolved),
	}
}

func (d *MockDirectory) Description(ctx context.Context, chatID int64) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Descriptions[chatID], nil
}

func (d *MockDirectory) Pinned(ctx context.Context, chatID int64) (*message.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.PinnedMsgs[chatID], nil
}

func (d *MockDirectory) GroupSticker(ctx context.Context, chatID int64) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Stickers[chatID], nil
}

func (d *MockDirectory) Member(ctx context.Context, chatID, userID int64) (*platform.Member, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.Members[chatID][userID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (d *MockDirectory) ResolveHandle(ctx context.Context, handle string) (*platform.Resolved, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.Handles[handle]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// AddMember records a group member for lookups.
func (d *MockDirectory) AddMember(chatID, userID int64, status platform.MemberStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	members, ok := d.Members[chatID]
	if !ok {
		members = make(map[int64]platform.Member)
		d.Members[chatID] = members
	}
	members[userID] = platform.Member{Status: status}
}

// MockImages is an in-memory platform.Images: downloads yield fixed paths,
// decoding and hashing come from maps.
type MockImages struct {
	Paths   map[string]string
	QRTexts map[string]string
	Hashes  map[string]string
}

var _ platform.Images = (*MockImages)(nil)

func NewMockImages() *MockImages {
	return &MockImages{
		Paths:   make(map[string]string),
		QRTexts: make(map[string]string),
		Hashes:  make(map[string]string),
	}
}

func (i *MockImages) Download(ctx context.Context, ref message.FileRef) (string, error) {
	return i.Paths[ref.ID], nil
}

func (i *MockImages) DecodeQR(ctx context.Context, path string) (string, error) {
	return i.QRTexts[path], nil
}

func (i *MockImages) Hash(path string) (string, error) {
	return i.Hashes[path], nil
}

// Fixture identities shared by tests.
const (
	FixtureSelfID    int64 = 100
	FixtureSiblingID int64 = 101
	FixtureRecheckID int64 = 102
	FixtureGroupID   int64 = -1001
	FixtureAdminID   int64 = 201
)

// EngineTestFixture builds a fully wired in-memory engine with a small rule
// bank, one group and one admin.
func EngineTestFixture() *Engine {
	logger := slog.Default()
	ids := trust.Identities{
		Self:           FixtureSelfID,
		Siblings:       map[int64]bool{FixtureSiblingID: true, FixtureRecheckID: true},
		RecheckSibling: FixtureRecheckID,
	}
	sets := trust.NewSets(ids, time.Hour, nil)
	sets.SetAdmins(FixtureGroupID, []int64{FixtureAdminID})

	bank := rulebank.New(nil)
	mustSet := func(class rulebank.Class, patterns ...string) {
		if err := bank.SetPatterns(class, patterns); err != nil {
			panic(err)
		}
	}
	mustSet(rulebank.ClassBan, `join now and win`)
	mustSet(rulebank.ClassAd, `best price`)
	mustSet(rulebank.ClassContact, `contact me`)
	mustSet(rulebank.ClassIM, `whatsapp`)
	mustSet(rulebank.ClassPhone, `\+\d{11}`)
	mustSet(rulebank.ClassShortLink, `bit\.ly/`)
	mustSet(rulebank.ClassPlatform, `t\.me/`)
	mustSet(rulebank.ClassProxy, `proxy\?server=`)
	mustSet(rulebank.ClassPromo, `ref=\w+`)

	counter := emoji.New(
		[]string{"😀", "😀😀", "💰"},
		nil,
		emoji.Thresholds{AdSingle: 15, AdTotal: 30, Many: 15, WbSingle: 10, WbTotal: 15},
	)

	users := admission.NewStore(nil)
	ctrl := admission.NewController(users, sets, admission.Windows{
		New:        86400,
		Short:      3600,
		Track:      172800,
		TrackLimit: 3,
		Punish:     600,
	})

	dir := NewMockDirectory()
	resolver := bypass.NewResolver(logger, dir, sets, bank, []string{"joinchat", "socks", "proxy"})

	eng := &Engine{
		Logger:    logger,
		Configs:   policy.NewStore(nil),
		Bank:      bank,
		Emoji:     counter,
		Trust:     sets,
		Admission: ctrl,
		Bypass:    resolver,
		Declared:  declare.NewMemIndex(),
		Contents:  content.NewMemCache(1000, time.Hour),
		Directory: dir,
		Images:    NewMockImages(),
		Cleaner:   platform.NopCleaner{},
		Persist:   platform.NopPersister{},
		Retention: NewRetention(),
		KnownCommands: map[string]bool{
			"config": true, "version": true, "purge": true, "mention": true,
		},
		QRTimeout: 5 * time.Second,
	}
	return eng
}

// FixtureUsers exposes the admission store wired into a fixture engine.
// Tests mutate join history and scores through it.
func FixtureUsers(eng *Engine) *admission.Store {
	return eng.Admission.Users()
}
