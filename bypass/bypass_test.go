package bypass

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chatsweep/chatsweep/message"
	"github.com/chatsweep/chatsweep/platform"
	"github.com/chatsweep/chatsweep/rulebank"
	"github.com/chatsweep/chatsweep/trust"
)

const (
	testGroupID   int64 = -1001
	testChannelID int64 = -5005
	testUserID    int64 = 555
	testMemberID  int64 = 556
)

type fakeDirectory struct {
	descriptions map[int64]string
	pinned       map[int64]*message.Message
	members      map[int64]map[int64]platform.Member
	handles      map[string]platform.Resolved
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		descriptions: make(map[int64]string),
		pinned:       make(map[int64]*message.Message),
		members:      make(map[int64]map[int64]platform.Member),
		handles:      make(map[string]platform.Resolved),
	}
}

func (d *fakeDirectory) Description(ctx context.Context, chatID int64) (string, error) {
	return d.descriptions[chatID], nil
}

func (d *fakeDirectory) Pinned(ctx context.Context, chatID int64) (*message.Message, error) {
	return d.pinned[chatID], nil
}

func (d *fakeDirectory) GroupSticker(ctx context.Context, chatID int64) (string, error) {
	return "", nil
}

func (d *fakeDirectory) Member(ctx context.Context, chatID, userID int64) (*platform.Member, error) {
	m, ok := d.members[chatID][userID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (d *fakeDirectory) ResolveHandle(ctx context.Context, handle string) (*platform.Resolved, error) {
	r, ok := d.handles[handle]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (d *fakeDirectory) addMember(chatID, userID int64, status platform.MemberStatus) {
	members, ok := d.members[chatID]
	if !ok {
		members = make(map[int64]platform.Member)
		d.members[chatID] = members
	}
	members[userID] = platform.Member{Status: status}
}

func testResolver(t *testing.T) (*Resolver, *fakeDirectory, *trust.Sets) {
	dir := newFakeDirectory()
	sets := trust.NewSets(trust.Identities{Self: 100}, time.Hour, nil)
	bank := rulebank.New(nil)
	if err := bank.SetPatterns(rulebank.ClassPlatform, []string{`t\.me/`}); err != nil {
		t.Fatal(err)
	}
	r := NewResolver(slog.Default(), dir, sets, bank, []string{"joinchat", "socks", "proxy"})
	return r, dir, sets
}

func TestIsFriendHandleSyntax(t *testing.T) {
	assert := assert.New(t)
	r, _, _ := testResolver(t)
	ctx := context.Background()

	assert.False(r.IsFriendHandle(ctx, testGroupID, "", false, false, false))
	assert.False(r.IsFriendHandle(ctx, testGroupID, "abc", false, false, false))
	assert.False(r.IsFriendHandle(ctx, testGroupID, "1leading", false, false, false))
	// syntactically fine but unresolvable
	assert.False(r.IsFriendHandle(ctx, testGroupID, "ghostuser", false, false, false))
}

func TestIsFriendHandleChannel(t *testing.T) {
	assert := assert.New(t)
	r, dir, sets := testResolver(t)
	ctx := context.Background()

	dir.handles["newschan"] = platform.Resolved{Kind: platform.KindChannel, ID: testChannelID}

	assert.False(r.IsFriendHandle(ctx, testGroupID, "newschan", true, false, false))
	sets.ExceptChannel(testChannelID)
	assert.True(r.IsFriendHandle(ctx, testGroupID, "@newschan", true, false, false))
	// without any friend gate even excepted channels stay foreign
	assert.False(r.IsFriendHandle(ctx, testGroupID, "newschan", false, false, false))
}

func TestIsFriendHandleManagedChannel(t *testing.T) {
	assert := assert.New(t)
	r, dir, sets := testResolver(t)
	ctx := context.Background()

	dir.handles["ourchan"] = platform.Resolved{Kind: platform.KindChannel, ID: testChannelID}
	sets.SetAdmins(testChannelID, []int64{42})

	assert.True(r.IsFriendHandle(ctx, testGroupID, "ourchan", false, true, false))
}

func TestIsFriendHandleUser(t *testing.T) {
	assert := assert.New(t)
	r, dir, sets := testResolver(t)
	ctx := context.Background()

	dir.handles["aliceps"] = platform.Resolved{Kind: platform.KindUser, ID: testMemberID}

	// a non-member user is foreign
	assert.False(r.IsFriendHandle(ctx, testGroupID, "alice_ps", false, false, false))
	assert.False(r.IsFriendHandle(ctx, testGroupID, "alice"+"ps", false, false, false))

	// group members are fine
	dir.addMember(testGroupID, testMemberID, platform.StatusMember)
	assert.True(r.IsFriendHandle(ctx, testGroupID, "aliceps", false, false, false))

	// departed members are not
	dir.addMember(testGroupID, testMemberID, platform.StatusLeft)
	assert.False(r.IsFriendHandle(ctx, testGroupID, "aliceps", false, false, false))

	// friend mode with the user gate accepts any resolvable user
	assert.True(r.IsFriendHandle(ctx, testGroupID, "aliceps", false, true, true))

	// trusted users pass under either friend gate
	sets.TrustMember(testGroupID, testMemberID)
	assert.True(r.IsFriendHandle(ctx, testGroupID, "aliceps", true, false, false))
}

func violMsg(text string) *message.Message {
	return &message.Message{ChatID: testGroupID, ID: 7, From: &message.User{ID: testUserID}, Text: text}
}

func TestHasViolatingLink(t *testing.T) {
	assert := assert.New(t)
	r, dir, _ := testResolver(t)
	ctx := context.Background()

	m := violMsg("check t.me/spamchan for deals")
	assert.True(r.HasViolatingLink(ctx, m, false, false))

	// links repeated in the group description are sanctioned
	dir.descriptions[testGroupID] = "official mirror: t.me/spamchan"
	assert.False(r.HasViolatingLink(ctx, m, false, false))
}

func TestHasViolatingLinkPinned(t *testing.T) {
	assert := assert.New(t)
	r, dir, _ := testResolver(t)
	ctx := context.Background()

	m := violMsg("see t.me/spamchan")
	dir.pinned[testGroupID] = &message.Message{Text: "rules: t.me/spamchan is ours"}
	assert.False(r.HasViolatingLink(ctx, m, false, false))
}

func TestHasViolatingLinkInvalidHandle(t *testing.T) {
	assert := assert.New(t)
	r, _, _ := testResolver(t)
	ctx := context.Background()

	// reserved handles never resolve anywhere, so they carry no one to ban
	m := violMsg("t.me/joinchat/AAAAAExAmpLe")
	assert.True(r.HasViolatingLink(ctx, m, false, false))

	m = violMsg("t.me/socks/")
	assert.False(r.HasViolatingLink(ctx, m, false, false))
}

func TestHasViolatingLinkForwardOrigin(t *testing.T) {
	assert := assert.New(t)
	r, _, _ := testResolver(t)
	ctx := context.Background()

	m := violMsg("follow t.me/mychannel")
	m.ForwardFromChat = &message.Chat{ID: testChannelID, Handle: "MyChannel"}
	assert.False(r.HasViolatingLink(ctx, m, false, false))

	// a different channel's link is still a violation
	m.ForwardFromChat = &message.Chat{ID: testChannelID, Handle: "OtherChan"}
	assert.True(r.HasViolatingLink(ctx, m, false, false))
}

func TestHasViolatingMention(t *testing.T) {
	assert := assert.New(t)
	r, dir, _ := testResolver(t)
	ctx := context.Background()

	m := violMsg("ask @strangerguy about it")
	m.Entities = []message.Entity{{Type: message.EntityMention, Offset: 4, Length: 12}}
	assert.True(r.HasViolatingLink(ctx, m, false, false))

	// mentions of present members pass
	dir.handles["strangerguy"] = platform.Resolved{Kind: platform.KindUser, ID: testMemberID}
	dir.addMember(testGroupID, testMemberID, platform.StatusMember)
	assert.False(r.HasViolatingLink(ctx, m, false, false))
}

func TestHasViolatingMentionOwnGroup(t *testing.T) {
	assert := assert.New(t)
	r, _, _ := testResolver(t)
	ctx := context.Background()

	m := violMsg("welcome to @ourgroup")
	m.ChatHandle = "OurGroup"
	m.Entities = []message.Entity{{Type: message.EntityMention, Offset: 11, Length: 9}}
	assert.False(r.HasViolatingLink(ctx, m, false, false))
}

func TestHasViolatingUserMention(t *testing.T) {
	assert := assert.New(t)
	r, dir, _ := testResolver(t)
	ctx := context.Background()

	m := violMsg("hey stranger")
	m.Entities = []message.Entity{{
		Type: message.EntityUserMention, Offset: 4, Length: 8,
		User: &message.User{ID: testMemberID},
	}}
	// unresolvable mentioned users are a violation signal
	assert.True(r.HasViolatingLink(ctx, m, false, false))

	dir.addMember(testGroupID, testMemberID, platform.StatusMember)
	assert.False(r.HasViolatingLink(ctx, m, false, false))

	dir.addMember(testGroupID, testMemberID, platform.StatusKicked)
	assert.True(r.HasViolatingLink(ctx, m, false, false))
}
