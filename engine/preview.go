package engine

import (
	"context"
	"strings"
	"time"

	"github.com/chatsweep/chatsweep/detect"
	"github.com/chatsweep/chatsweep/message"
	"github.com/chatsweep/chatsweep/policy"
	"github.com/chatsweep/chatsweep/rulebank"
)

// ClassifyPreview evaluates the link/proxy spam subset against link-preview
// metadata delivered separately from the message body: a text snippet of
// the form "message text\n\npreview url" and/or a standalone downloaded
// image. It applies the same config gating as Classify but has no sender or
// media context.
func (eng *Engine) ClassifyPreview(ctx context.Context, groupID int64, text, imagePath string) (verdict policy.Category) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("preview classification panic", "err", r, "group", groupID)
			checkPanicCount.WithLabelValues("preview").Inc()
			verdict = policy.None
		}
		classifyDuration.WithLabelValues("preview").Observe(time.Since(start).Seconds())
		classifyVerdictCount.WithLabelValues(string(verdict)).Inc()
	}()

	if groupID == 0 {
		return policy.None
	}
	cfg := eng.Configs.Get(groupID)

	if text != "" {
		if cfg.Allows(policy.PromoLink) && eng.Bank.Has(rulebank.ClassPromo, text, false) {
			return policy.PromoLink
		}
		if cfg.Allows(policy.IMContact) && eng.Bank.Has(rulebank.ClassIM, text, false) {
			return policy.IMContact
		}
		if eng.Bank.Has(rulebank.ClassPlatform, text, false) {
			if cfg.Allows(policy.PlatformLink) && eng.previewPlatformLink(text) {
				return policy.PlatformLink
			}
			if cfg.Allows(policy.ShortLink) && eng.Bank.Has(rulebank.ClassShortLink, text, false) {
				return policy.ShortLink
			}
		}
		if cfg.Allows(policy.PlatformProxy) && eng.Bank.Has(rulebank.ClassProxy, text, false) {
			return policy.PlatformProxy
		}
	}

	if imagePath != "" && cfg.Allows(policy.QRCode) {
		qr, err := eng.Images.DecodeQR(ctx, imagePath)
		if err != nil {
			eng.Logger.Warn("preview qr decode failed", "group", groupID, "err", err)
			return policy.None
		}
		if qr == "" {
			return policy.None
		}
		if eng.Trust.IsAdmin(groupID, eng.Trust.Identities().RecheckSibling) &&
			detect.IsBan(eng.Bank, eng.Emoji, qr, false) {
			return policy.None
		}
		return policy.QRCode
	}
	return policy.None
}

// previewPlatformLink ignores the message's own text and the preview's
// display url when possible, re-typing only what remains.
func (eng *Engine) previewPlatformLink(text string) bool {
	parts := strings.SplitN(text, "\n\n", 2)
	if len(parts) != 2 {
		return eng.Bank.Has(rulebank.ClassPlatform, text, false)
	}
	msgText, url := parts[0], parts[1]
	rest := strings.Replace(text, msgText, "", 1)
	if strings.Contains(msgText, message.StripLink(url)) {
		rest = strings.Replace(rest, url, "", 1)
	}
	return eng.Bank.Has(rulebank.ClassPlatform, rest, false)
}
