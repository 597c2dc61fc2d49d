package engine

import (
	"context"
	"strings"

	"github.com/chatsweep/chatsweep/content"
	"github.com/chatsweep/chatsweep/detect"
	"github.com/chatsweep/chatsweep/emoji"
	"github.com/chatsweep/chatsweep/message"
	"github.com/chatsweep/chatsweep/policy"
	"github.com/chatsweep/chatsweep/rulebank"
)

// messageChecks is the full pipeline, in evaluation order. First match
// wins.
var messageChecks = []namedCheck{
	{"bypass", checkBypass},
	{"punished", checkPunished},
	{"known-content", checkKnownContent},
	{"known-link", checkKnownLink},
	{"privacy", checkPrivacy},
	{"basic", checkBasic},
	{"media", checkMedia},
	{"spam", checkSpam},
	{"qr", checkQR},
	{"retention", checkRetention},
}

// checkBypass allows messages matching the group's own pinned message,
// description, or official sticker. These skip everything else, for every
// sender.
func checkBypass(c *checkContext) (policy.Category, bool) {
	m := c.msg
	text := message.GetText(m, false)

	if text != "" {
		if desc := c.description(); desc != "" && strings.Contains(desc, text) {
			return policy.None, true
		}
	}

	pinned := c.pinned()
	if pinned != nil {
		if fp := c.Fingerprint(); fp != "" && fp == content.MessageFingerprint(pinned) {
			return policy.None, true
		}
		if text != "" {
			if pt := message.GetText(pinned, false); pt != "" && strings.Contains(pt, text) {
				return policy.None, true
			}
		}
	}

	if m.Sticker != nil && m.Sticker.SetName != "" {
		set, err := c.engine.Directory.GroupSticker(c.Ctx, m.ChatID)
		if err != nil {
			if c.Err == nil {
				c.Err = err
			}
		} else if set != "" && set == m.Sticker.SetName {
			return policy.None, true
		}
	}
	return policy.None, false
}

// checkPunished short-circuits for blocked senders punished recently in
// this group: the caller acts again without a fresh classification.
func checkPunished(c *checkContext) (policy.Category, bool) {
	m := c.msg
	if m.From == nil || !c.engine.Trust.IsBlocked(m) {
		return policy.None, false
	}
	if c.engine.Admission.IsDetected(m.ChatID, m.From.ID, c.now) {
		return policy.Detected, true
	}
	return policy.None, false
}

// checkKnownContent returns the cached category for content this agent
// already classified, when the group enables that category.
func checkKnownContent(c *checkContext) (policy.Category, bool) {
	if c.Privileged() {
		return policy.None, false
	}
	fp := c.Fingerprint()
	if fp == "" {
		return policy.None, false
	}
	cat, err := c.engine.Contents.Get(c.Ctx, fp)
	if err != nil {
		if c.Err == nil {
			c.Err = err
		}
		return policy.None, false
	}
	if cat != policy.None && c.allows(cat) {
		return cat, true
	}
	return policy.None, false
}

// checkKnownLink returns the recorded category of any link in the message.
func checkKnownLink(c *checkContext) (policy.Category, bool) {
	if c.Privileged() {
		return policy.None, false
	}
	for _, link := range message.ExtractLinks(c.msg) {
		cat, err := c.engine.Contents.Get(c.Ctx, linkFingerprint(link))
		if err != nil {
			if c.Err == nil {
				c.Err = err
			}
			continue
		}
		if cat != policy.None && c.allows(cat) {
			return cat, true
		}
	}
	return policy.None, false
}

// checkPrivacy covers the structural privacy categories. These apply to
// every sender, privileged included.
func checkPrivacy(c *checkContext) (policy.Category, bool) {
	m := c.msg
	if c.allows(policy.Contact) && m.Contact {
		return policy.Contact, true
	}
	if c.allows(policy.Location) && (m.Location || m.Venue) {
		return policy.Location, true
	}
	if c.allows(policy.VideoNote) && m.VideoNote {
		return policy.VideoNote, true
	}
	if c.allows(policy.Voice) && m.Voice {
		return policy.Voice, true
	}
	return policy.None, false
}

// checkBasic covers stray bot commands and service messages.
func checkBasic(c *checkContext) (policy.Category, bool) {
	m := c.msg
	if c.allows(policy.BotCommand) && detect.IsBotCommand(m, c.engine.KnownCommands) {
		return policy.BotCommand, true
	}
	if c.allows(policy.Service) && m.Service {
		return policy.Service, true
	}
	return policy.None, false
}

// checkMedia covers media-type categories, skipped for privileged senders.
func checkMedia(c *checkContext) (policy.Category, bool) {
	if c.Privileged() {
		return policy.None, false
	}
	m := c.msg
	if c.allows(policy.AnimatedSticker) && m.Sticker != nil && m.Sticker.Animated {
		return policy.AnimatedSticker, true
	}
	if c.allows(policy.Audio) && m.Audio {
		return policy.Audio, true
	}
	if c.allows(policy.Document) && m.Document != nil {
		return policy.Document, true
	}
	if c.allows(policy.Game) && m.Game != nil {
		return policy.Game, true
	}
	if c.allows(policy.GIF) && isGIF(m) {
		return policy.GIF, true
	}
	if c.allows(policy.ViaBot) && m.ViaBot {
		return policy.ViaBot, true
	}
	if c.allows(policy.Video) && m.Video {
		return policy.Video, true
	}
	if c.allows(policy.Sticker) && m.Sticker != nil {
		return policy.Sticker, true
	}
	// Interactive dice can be sent with no other payload at all, dodging
	// every other media category.
	if c.allows(policy.Dice) && (m.Dice || m.IsEmptyPayload()) {
		return policy.Dice, true
	}
	return policy.None, false
}

func isGIF(m *message.Message) bool {
	if m.Animation != nil {
		return true
	}
	return m.Document != nil && strings.Contains(m.Document.MimeType, "gif")
}

// checkSpam covers the text/link spam categories, skipped for privileged
// and trusted senders.
func checkSpam(c *checkContext) (policy.Category, bool) {
	if c.Privileged() || c.Trusted() {
		return policy.None, false
	}
	m := c.msg
	eng := c.engine
	text := message.GetText(m, true)

	if c.allows(policy.PromoLink) && eng.Bank.Has(rulebank.ClassPromo, text, false) {
		return policy.PromoLink, true
	}
	if c.allows(policy.EmojiSpam) && eng.Emoji.Check(emoji.PurposeMany, message.GetText(m, false)) {
		return policy.EmojiSpam, true
	}
	if c.allows(policy.Executable) && detect.IsExecutable(m, message.ExtractLinks(m)) {
		return policy.Executable, true
	}
	if c.allows(policy.IMContact) && eng.Bank.Has(rulebank.ClassIM, text, false) {
		return policy.IMContact, true
	}
	if c.allows(policy.PhoneNumber) && eng.Bank.Has(rulebank.ClassPhone, text, false) {
		return policy.PhoneNumber, true
	}
	if c.allows(policy.ShortLink) && eng.Bank.Has(rulebank.ClassShortLink, text, false) {
		return policy.ShortLink, true
	}
	if c.allows(policy.PlatformLink) && eng.Bypass.HasViolatingLink(c.Ctx, m, c.cfg.FriendMode, false) {
		return policy.PlatformLink, true
	}
	if c.allows(policy.PlatformProxy) && eng.Bank.Has(rulebank.ClassProxy, text, false) {
		return policy.PlatformProxy, true
	}
	return policy.None, false
}

// checkQR downloads and decodes the message's image when the group filters
// QR codes. The download is bounded by the engine's QR timeout and the
// temp file is scheduled for deletion on every path.
func checkQR(c *checkContext) (policy.Category, bool) {
	if c.Privileged() || c.Trusted() {
		return policy.None, false
	}
	if !c.allows(policy.QRCode) {
		return policy.None, false
	}
	m := c.msg
	eng := c.engine

	ref, ok := m.ImageRef()
	if !ok {
		return policy.None, false
	}

	ctx := c.Ctx
	if eng.QRTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, eng.QRTimeout)
		defer cancel()
	}

	path, err := eng.Images.Download(ctx, ref)
	if err != nil {
		imageDownloadCount.WithLabelValues("error").Inc()
		if c.Err == nil {
			c.Err = err
		}
		return policy.None, false
	}
	if path == "" {
		imageDownloadCount.WithLabelValues("skipped").Inc()
		return policy.None, false
	}
	imageDownloadCount.WithLabelValues("ok").Inc()
	defer eng.Cleaner.ScheduleDelete(path)

	hash, err := eng.Images.Hash(path)
	if err != nil || hash == "" {
		if c.Err == nil {
			c.Err = err
		}
		return policy.None, false
	}
	if eng.Trust.IsTempContent(hash) {
		// Already examined and recorded clean.
		return policy.None, false
	}

	declared, err := eng.Declared.IsDeclared(ctx, m.ChatID, m.ID)
	if err != nil {
		if c.Err == nil {
			c.Err = err
		}
	} else if declared {
		// A sibling claimed this message; never act on it twice.
		return policy.None, true
	}

	qr, err := eng.Images.DecodeQR(ctx, path)
	if err != nil {
		if c.Err == nil {
			c.Err = err
		}
		return policy.None, false
	}
	if qr == "" {
		eng.Trust.AddTempContent(hash)
		return policy.None, false
	}

	// When the recheck sibling administers this group and the decoded text
	// is ban-worthy, leave the message for that stricter sibling instead of
	// claiming it as a QR violation.
	if eng.Trust.IsAdmin(m.ChatID, eng.Trust.Identities().RecheckSibling) &&
		detect.IsBan(eng.Bank, eng.Emoji, qr, false) {
		return policy.None, false
	}
	return policy.QRCode, true
}

// checkRetention schedules stickers, animations and dice that passed every
// check for delayed bulk cleanup.
func checkRetention(c *checkContext) (policy.Category, bool) {
	m := c.msg
	if m.Sticker != nil || m.Animation != nil || m.Dice || isGIF(m) {
		c.engine.Retention.Record(m.ChatID, m.ID, c.now)
		retentionRecordCount.Inc()
		c.engine.Persist.MarkDirty("retention")
	}
	return policy.None, false
}
