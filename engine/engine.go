// Package engine sequences the trust, admission, signal and bypass
// subsystems into the message classification pipeline.
package engine

import (
	"context"
	"log/slog"
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

// Engine is the runtime for classifying messages against per-group policy.
//
// All fields are expected to be non-nil; use EngineTestFixture for tests.
type Engine struct {
	Logger    *slog.Logger
	Configs   *policy.Store
	Bank      *rulebank.Bank
	Emoji     *emoji.Counter
	Trust     *trust.Sets
	Admission *admission.Controller
	Bypass    *bypass.Resolver
	Declared  declare.Index
	Contents  content.Cache
	Directory platform.Directory
	Images    platform.Images
	Cleaner   platform.Cleaner
	Persist   platform.Persister
	Retention *Retention

	// KnownCommands are the administrative commands handled by this agent
	// and its siblings; stray slash commands outside this set type as bmd.
	KnownCommands map[string]bool

	// QRTimeout bounds the download+decode path for one message.
	QRTimeout time.Duration

	// Now is the clock, overridable in tests. When nil, message timestamps
	// and the wall clock are used.
	Now func() int64
}

func (eng *Engine) now(m *message.Message) int64 {
	if m != nil && m.Date != 0 {
		return m.Date
	}
	if eng.Now != nil {
		return eng.Now()
	}
	return time.Now().Unix()
}

// Classify decides whether the message violates its group's policy,
// returning the violated category or policy.None when allowed. It never
// panics or returns an error to the caller: any internal failure is logged
// and that single check treated as no-signal, so one broken detector cannot
// block unrelated checks.
func (eng *Engine) Classify(ctx context.Context, m *message.Message) (verdict policy.Category) {
	start := time.Now()
	// similar to an HTTP server, we want to recover any panics from check execution
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("classification panic", "err", r)
			checkPanicCount.WithLabelValues("classify").Inc()
			verdict = policy.None
		}
		classifyDuration.WithLabelValues("message").Observe(time.Since(start).Seconds())
		classifyVerdictCount.WithLabelValues(string(verdict)).Inc()
	}()

	if m == nil || m.ChatID == 0 {
		return policy.None
	}

	c := &checkContext{
		Ctx:    ctx,
		Logger: eng.Logger.With("group", m.ChatID, "message", m.ID),
		engine: eng,
		msg:    m,
		cfg:    eng.Configs.Get(m.ChatID),
		now:    eng.now(m),
	}

	for _, check := range messageChecks {
		cat, done := c.run(check.name, check.fn)
		if done {
			return cat
		}
	}
	return policy.None
}

// RecordContent caches a fingerprint to category mapping, used when this
// agent (or a command handler) concludes a piece of content is spam.
func (eng *Engine) RecordContent(ctx context.Context, fingerprint string, cat policy.Category) {
	if fingerprint == "" || cat == policy.None {
		return
	}
	if err := eng.Contents.Set(ctx, fingerprint, cat); err != nil {
		eng.Logger.Warn("content cache write failed", "err", err)
	}
}

// RecordLink caches a link to category mapping keyed by the link's
// normalized fingerprint.
func (eng *Engine) RecordLink(ctx context.Context, link string, cat policy.Category) {
	eng.RecordContent(ctx, linkFingerprint(link), cat)
}

func linkFingerprint(link string) string {
	return content.Fingerprint("link/" + message.StripLink(link))
}
