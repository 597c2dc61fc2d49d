// Package bypass decides whether an otherwise-flagged link or mention is
// exempted by group context: the pinned message, the description, forward
// origin, or friend channels and users.
package bypass

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/chatsweep/chatsweep/message"
	"github.com/chatsweep/chatsweep/platform"
	"github.com/chatsweep/chatsweep/rulebank"
	"github.com/chatsweep/chatsweep/trust"
)

var (
	handleRe     = regexp.MustCompile(`(?i)^[a-z][0-9a-z_]{4,31}$`)
	linkHandleRe = regexp.MustCompile(`(?i)t\.me/([a-z][0-9a-z_]{4,31})/`)
)

// Resolver evaluates exemptions. Lookup failures are treated as "no
// evidence" except where the contract says otherwise (unresolvable user
// mentions are a violation signal).
type Resolver struct {
	logger *slog.Logger
	dir    platform.Directory
	trust  *trust.Sets
	bank   *rulebank.Bank
	// invalid holds reserved platform handles that never resolve to a real
	// channel or user (injected at startup).
	invalid map[string]bool
}

func NewResolver(logger *slog.Logger, dir platform.Directory, sets *trust.Sets, bank *rulebank.Bank, invalidHandles []string) *Resolver {
	invalid := make(map[string]bool, len(invalidHandles))
	for _, h := range invalidHandles {
		invalid[strings.ToLower(h)] = true
	}
	return &Resolver{
		logger:  logger,
		dir:     dir,
		trust:   sets,
		bank:    bank,
		invalid: invalid,
	}
}

// IsFriendHandle reports whether the handle belongs to a friendly channel
// or user for the group. friendMode is the caller's explicit friend gate;
// cfgFriend is the group's configured friend setting; friendUser
// additionally accepts arbitrary users under friend mode.
func (r *Resolver) IsFriendHandle(ctx context.Context, groupID int64, handle string, cfgFriend, friendMode, friendUser bool) bool {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" || !handleRe.MatchString(handle) {
		return false
	}

	resolved, err := r.dir.ResolveHandle(ctx, handle)
	if err != nil {
		r.logger.Warn("handle resolution failed", "handle", handle, "err", err)
		return false
	}
	if resolved == nil {
		return false
	}

	switch resolved.Kind {
	case platform.KindChannel:
		if cfgFriend || friendMode {
			if r.trust.IsExceptedChannel(resolved.ID) || r.trust.HasAdminRecords(resolved.ID) {
				return true
			}
		}
	case platform.KindUser:
		if friendMode && friendUser {
			return true
		}
		if (friendMode || cfgFriend) && r.trust.IsTrustedUser(resolved.ID) {
			return true
		}
		member, err := r.dir.Member(ctx, groupID, resolved.ID)
		if err == nil && member != nil && member.Status.Present() {
			return true
		}
	}
	return false
}

// HasViolatingLink reports whether the message contains a platform link or
// mention that no bypass covers. This backs the platform-link category.
func (r *Resolver) HasViolatingLink(ctx context.Context, m *message.Message, cfgFriend, friendMode bool) bool {
	gid := m.ChatID

	description := strings.ToLower(r.description(ctx, gid))
	pinnedText := strings.ToLower(r.pinnedText(ctx, gid))
	originLink := message.StripLink(message.ChannelLink(m))

	links := message.ExtractLinks(m)
	var platformLinks []string
	for _, link := range links {
		if r.bank.Has(rulebank.ClassPlatform, link, false) {
			platformLinks = append(platformLinks, strings.ToLower(link))
		}
	}

	var bypassed []string
	for _, link := range platformLinks {
		if r.isBypassLink(ctx, gid, link, originLink, description, pinnedText, cfgFriend, friendMode) {
			bypassed = append(bypassed, link)
		}
	}
	if len(bypassed) != len(platformLinks) {
		return true
	}

	// Re-scan the text with bypassed links removed; anything left that
	// still types as a platform link is a violation.
	text := strings.ToLower(message.GetText(m, true))
	for _, link := range bypassed {
		text = strings.ReplaceAll(text, link, "")
	}
	if r.bank.Has(rulebank.ClassPlatform, text, false) {
		return true
	}

	return r.hasViolatingMention(ctx, m, description, pinnedText, cfgFriend, friendMode)
}

func (r *Resolver) isBypassLink(ctx context.Context, gid int64, link, originLink, description, pinnedText string, cfgFriend, friendMode bool) bool {
	handle := ""
	if sub := linkHandleRe.FindStringSubmatch(link + "/"); sub != nil {
		handle = strings.ToLower(sub[1])
		if handle == "joinchat" {
			// Invite links carry no handle to vouch for; only the
			// description and pinned checks below can sanction them.
			handle = ""
		} else if r.invalid[handle] {
			return true
		} else if r.IsFriendHandle(ctx, gid, handle, cfgFriend, friendMode, false) {
			return true
		}
	}
	if originLink != "" && strings.Contains(link+"/", originLink+"/") {
		return true
	}
	if description != "" && (strings.Contains(description, link) || (handle != "" && strings.Contains(description, handle))) {
		return true
	}
	if pinnedText != "" && (strings.Contains(pinnedText, link) || (handle != "" && strings.Contains(pinnedText, handle))) {
		return true
	}
	return false
}

func (r *Resolver) hasViolatingMention(ctx context.Context, m *message.Message, description, pinnedText string, cfgFriend, friendMode bool) bool {
	for _, e := range m.AllEntities() {
		switch e.Type {
		case message.EntityMention:
			handle := strings.ToLower(strings.TrimPrefix(message.EntityText(m, e), "@"))
			if handle == "" || r.invalid[handle] {
				continue
			}
			if m.ChatHandle != "" && handle == strings.ToLower(m.ChatHandle) {
				continue
			}
			if description != "" && strings.Contains(description, handle) {
				continue
			}
			if pinnedText != "" && strings.Contains(pinnedText, handle) {
				continue
			}
			if !r.IsFriendHandle(ctx, m.ChatID, handle, cfgFriend, friendMode, false) {
				return true
			}
		case message.EntityUserMention:
			if e.User == nil {
				continue
			}
			member, err := r.dir.Member(ctx, m.ChatID, e.User.ID)
			if err != nil || member == nil {
				// Unresolvable mentioned users are a violation signal.
				return true
			}
			if !member.Status.Present() {
				return true
			}
		}
	}
	return false
}

func (r *Resolver) description(ctx context.Context, gid int64) string {
	desc, err := r.dir.Description(ctx, gid)
	if err != nil {
		r.logger.Warn("group description lookup failed", "group", gid, "err", err)
		return ""
	}
	return desc
}

func (r *Resolver) pinnedText(ctx context.Context, gid int64) string {
	pinned, err := r.dir.Pinned(ctx, gid)
	if err != nil {
		r.logger.Warn("pinned message lookup failed", "group", gid, "err", err)
		return ""
	}
	return message.GetText(pinned, false)
}
