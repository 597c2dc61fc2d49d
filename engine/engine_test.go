package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chatsweep/chatsweep/content"
	"github.com/chatsweep/chatsweep/message"
	"github.com/chatsweep/chatsweep/policy"
)

const testSenderID int64 = 555

func enableCats(eng *Engine, cats ...policy.Category) {
	cfg := policy.DefaultConfig()
	for _, c := range cats {
		cfg.Enabled[c] = true
	}
	eng.Configs.Set(FixtureGroupID, cfg)
}

func fixtureMsg(text string) *message.Message {
	return &message.Message{
		ChatID: FixtureGroupID,
		ID:     42,
		Date:   1_000_000,
		From:   &message.User{ID: testSenderID},
		Text:   text,
	}
}

func TestClassifyAllowed(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	ctx := context.Background()

	assert.Equal(policy.None, eng.Classify(ctx, fixtureMsg("good morning everyone")))
	assert.Equal(policy.None, eng.Classify(ctx, nil))
	assert.Equal(policy.None, eng.Classify(ctx, &message.Message{Text: "no chat id"}))
}

func TestClassifyPrivacy(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	ctx := context.Background()

	m := fixtureMsg("")
	m.Contact = true
	assert.Equal(policy.Contact, eng.Classify(ctx, m))

	m = fixtureMsg("")
	m.Location = true
	assert.Equal(policy.Location, eng.Classify(ctx, m))

	m = fixtureMsg("")
	m.Venue = true
	assert.Equal(policy.Location, eng.Classify(ctx, m))

	m = fixtureMsg("")
	m.VideoNote = true
	assert.Equal(policy.VideoNote, eng.Classify(ctx, m))

	m = fixtureMsg("")
	m.Voice = true
	assert.Equal(policy.Voice, eng.Classify(ctx, m))

	// privacy categories apply even to group admins
	m = fixtureMsg("")
	m.From.ID = FixtureAdminID
	m.Contact = true
	assert.Equal(policy.Contact, eng.Classify(ctx, m))
}

func TestClassifyService(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	ctx := context.Background()

	m := fixtureMsg("")
	m.Service = true
	assert.Equal(policy.Service, eng.Classify(ctx, m))
}

func TestClassifyBotCommand(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	enableCats(eng, policy.BotCommand)
	ctx := context.Background()

	assert.Equal(policy.BotCommand, eng.Classify(ctx, fixtureMsg("/weirdcmd")))
	assert.Equal(policy.None, eng.Classify(ctx, fixtureMsg("/config")))
	assert.Equal(policy.None, eng.Classify(ctx, fixtureMsg("/weirdcmd with args")))
}

func TestClassifyMedia(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	enableCats(eng, policy.Sticker, policy.AnimatedSticker, policy.GIF, policy.Dice)
	ctx := context.Background()

	m := fixtureMsg("")
	m.Sticker = &message.Sticker{SetName: "randomset"}
	assert.Equal(policy.Sticker, eng.Classify(ctx, m))

	m = fixtureMsg("")
	m.Sticker = &message.Sticker{SetName: "randomset", Animated: true}
	assert.Equal(policy.AnimatedSticker, eng.Classify(ctx, m))

	m = fixtureMsg("")
	m.Animation = &message.FileRef{ID: "a1"}
	assert.Equal(policy.GIF, eng.Classify(ctx, m))

	// a bare dice message has no payload fields at all
	m = fixtureMsg("")
	assert.Equal(policy.Dice, eng.Classify(ctx, m))

	// media categories never hit privileged senders
	m = fixtureMsg("")
	m.From.ID = FixtureAdminID
	m.Sticker = &message.Sticker{SetName: "randomset"}
	assert.Equal(policy.None, eng.Classify(ctx, m))
}

func TestClassifySpam(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	enableCats(eng, policy.IMContact, policy.PhoneNumber, policy.ShortLink, policy.PlatformProxy, policy.PromoLink)
	ctx := context.Background()

	assert.Equal(policy.IMContact, eng.Classify(ctx, fixtureMsg("find me on whatsapp")))
	assert.Equal(policy.PhoneNumber, eng.Classify(ctx, fixtureMsg("call +12345678901")))
	assert.Equal(policy.ShortLink, eng.Classify(ctx, fixtureMsg("bit.ly/xyz")))
	assert.Equal(policy.PlatformProxy, eng.Classify(ctx, fixtureMsg("proxy?server=1.2.3.4")))
	assert.Equal(policy.PromoLink, eng.Classify(ctx, fixtureMsg("signup ref=abc123")))

	// admins and trusted members are exempt
	m := fixtureMsg("find me on whatsapp")
	m.From.ID = FixtureAdminID
	assert.Equal(policy.None, eng.Classify(ctx, m))

	eng.Trust.TrustMember(FixtureGroupID, testSenderID)
	assert.Equal(policy.None, eng.Classify(ctx, fixtureMsg("find me on whatsapp")))
}

func TestClassifyExecutable(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	enableCats(eng, policy.Executable)
	ctx := context.Background()

	m := fixtureMsg("latest release")
	m.Document = &message.Document{FileName: "setup.exe", MimeType: "application/octet-stream"}
	assert.Equal(policy.Executable, eng.Classify(ctx, m))

	m = fixtureMsg("grab it at files.example/tool.apk")
	assert.Equal(policy.Executable, eng.Classify(ctx, m))
}

func TestClassifyPlatformLink(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	enableCats(eng, policy.PlatformLink)
	ctx := context.Background()

	assert.Equal(policy.PlatformLink, eng.Classify(ctx, fixtureMsg("join t.me/spamchan now")))

	// links sanctioned by the group description pass
	dir := eng.Directory.(*MockDirectory)
	dir.Descriptions[FixtureGroupID] = "our channel: t.me/spamchan"
	assert.Equal(policy.None, eng.Classify(ctx, fixtureMsg("join t.me/spamchan now")))
}

func TestClassifyPunished(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	ctx := context.Background()

	m := fixtureMsg("nothing wrong here")
	eng.Trust.BlockUser(testSenderID)
	assert.Equal(policy.None, eng.Classify(ctx, m))

	FixtureUsers(eng).RecordDetected(testSenderID, FixtureGroupID, m.Date-100)
	assert.Equal(policy.Detected, eng.Classify(ctx, m))

	// the punish window is finite
	late := fixtureMsg("nothing wrong here")
	late.Date = m.Date + 10_000
	assert.Equal(policy.None, eng.Classify(ctx, late))
}

func TestClassifyBypassPinned(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	enableCats(eng, policy.IMContact)
	ctx := context.Background()

	assert.Equal(policy.IMContact, eng.Classify(ctx, fixtureMsg("whatsapp")))

	dir := eng.Directory.(*MockDirectory)
	dir.PinnedMsgs[FixtureGroupID] = &message.Message{Text: "support is on whatsapp only"}
	assert.Equal(policy.IMContact, eng.Classify(ctx, fixtureMsg("use whatsapp instead")))
	assert.Equal(policy.None, eng.Classify(ctx, fixtureMsg("whatsapp")))
}

// noDescriptionDirectory fails description lookups while everything else
// keeps working.
type noDescriptionDirectory struct {
	*MockDirectory
}

func (d noDescriptionDirectory) Description(ctx context.Context, chatID int64) (string, error) {
	return "", errors.New("directory unavailable")
}

func TestClassifyBypassSurvivesLookupError(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	enableCats(eng, policy.IMContact)
	ctx := context.Background()

	dir := eng.Directory.(*MockDirectory)
	dir.PinnedMsgs[FixtureGroupID] = &message.Message{Text: "support is on whatsapp only"}
	eng.Directory = noDescriptionDirectory{dir}

	// a failed description lookup must not cancel the pinned-message allow
	assert.Equal(policy.None, eng.Classify(ctx, fixtureMsg("whatsapp")))
}

func TestClassifyBypassGroupSticker(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	enableCats(eng, policy.Sticker)
	ctx := context.Background()

	dir := eng.Directory.(*MockDirectory)
	dir.Stickers[FixtureGroupID] = "houseset"

	m := fixtureMsg("")
	m.Sticker = &message.Sticker{SetName: "houseset"}
	assert.Equal(policy.None, eng.Classify(ctx, m))

	m = fixtureMsg("")
	m.Sticker = &message.Sticker{SetName: "otherset"}
	assert.Equal(policy.Sticker, eng.Classify(ctx, m))
}

func TestClassifyKnownContent(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	enableCats(eng, policy.IMContact)
	ctx := context.Background()

	m := fixtureMsg("totally innocuous words")
	assert.Equal(policy.None, eng.Classify(ctx, m))

	eng.RecordContent(ctx, content.MessageFingerprint(m), policy.IMContact)
	assert.Equal(policy.IMContact, eng.Classify(ctx, m))

	// cached verdicts never hit privileged senders
	m.From.ID = FixtureAdminID
	assert.Equal(policy.None, eng.Classify(ctx, m))
}

func TestClassifyKnownLink(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	enableCats(eng, policy.ShortLink)
	ctx := context.Background()

	m := fixtureMsg("see evil.example/x please")
	assert.Equal(policy.None, eng.Classify(ctx, m))

	eng.RecordLink(ctx, "https://evil.example/x/", policy.ShortLink)
	assert.Equal(policy.ShortLink, eng.Classify(ctx, m))
}

func qrFixture(eng *Engine, qrText string) *message.Message {
	imgs := eng.Images.(*MockImages)
	imgs.Paths["p1"] = "/tmp/img-test-1"
	imgs.Hashes["/tmp/img-test-1"] = "hash1"
	imgs.QRTexts["/tmp/img-test-1"] = qrText

	m := fixtureMsg("")
	m.Photo = &message.Photo{FileRef: message.FileRef{ID: "p1", Unique: "pu1"}}
	return m
}

func TestClassifyQR(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	enableCats(eng, policy.QRCode)
	ctx := context.Background()

	m := qrFixture(eng, "https://evil.example/scan")
	assert.Equal(policy.QRCode, eng.Classify(ctx, m))

	// admins may post QR codes
	m.From.ID = FixtureAdminID
	assert.Equal(policy.None, eng.Classify(ctx, m))
}

func TestClassifyQRCleanHashCached(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	enableCats(eng, policy.QRCode)
	ctx := context.Background()

	m := qrFixture(eng, "")
	assert.Equal(policy.None, eng.Classify(ctx, m))
	assert.True(eng.Trust.IsTempContent("hash1"))

	// once recorded clean, the image is not examined again
	imgs := eng.Images.(*MockImages)
	imgs.QRTexts["/tmp/img-test-1"] = "https://evil.example/scan"
	assert.Equal(policy.None, eng.Classify(ctx, m))
}

func TestClassifyQRDeclared(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	enableCats(eng, policy.QRCode)
	ctx := context.Background()

	m := qrFixture(eng, "https://evil.example/scan")
	assert.NoError(eng.Declared.Declare(ctx, FixtureGroupID, m.ID))
	assert.Equal(policy.None, eng.Classify(ctx, m))
}

func TestClassifyQRRecheckDeferral(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	enableCats(eng, policy.QRCode)
	ctx := context.Background()

	// with the recheck sibling among the admins, ban-worthy QR text is left
	// for it to handle
	eng.Trust.SetAdmins(FixtureGroupID, []int64{FixtureAdminID, FixtureRecheckID})

	m := qrFixture(eng, "join now and win")
	assert.Equal(policy.None, eng.Classify(ctx, m))

	m = qrFixture(eng, "https://evil.example/scan")
	assert.Equal(policy.QRCode, eng.Classify(ctx, m))
}

func TestClassifyRetention(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	ctx := context.Background()

	m := fixtureMsg("")
	m.Sticker = &message.Sticker{SetName: "randomset"}
	assert.Equal(policy.None, eng.Classify(ctx, m))
	assert.Equal(1, eng.Retention.Len())

	// re-classifying the same message does not duplicate the entry
	assert.Equal(policy.None, eng.Classify(ctx, m))
	assert.Equal(1, eng.Retention.Len())

	drained := eng.Retention.DrainBefore(m.Date)
	assert.Equal([]int64{m.ID}, drained[FixtureGroupID])
	assert.Equal(0, eng.Retention.Len())
}
