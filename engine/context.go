package engine

import (
	"context"
	"log/slog"

	"github.com/chatsweep/chatsweep/content"
	"github.com/chatsweep/chatsweep/message"
	"github.com/chatsweep/chatsweep/policy"
)

// checkContext is the per-invocation state shared by pipeline checks.
// Errors encountered inside a check roll up into Err; the runner logs and
// clears them, treating an undecided check as no-signal.
type checkContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Err    error

	engine *Engine
	msg    *message.Message
	cfg    policy.GroupConfig
	now    int64

	// lazily computed, shared across checks
	fingerprint    string
	fingerprintSet bool
	privileged     *bool
	trusted        *bool
}

// checkFunc evaluates one pipeline stage. Returning done=true stops the
// pipeline with the given verdict (which may be policy.None for an
// explicit early allow).
type checkFunc func(c *checkContext) (cat policy.Category, done bool)

type namedCheck struct {
	name string
	fn   checkFunc
}

// run executes one check with panic and error isolation.
func (c *checkContext) run(name string, fn checkFunc) (cat policy.Category, done bool) {
	defer func() {
		if r := recover(); r != nil {
			c.Logger.Error("check panicked", "check", name, "err", r)
			checkPanicCount.WithLabelValues(name).Inc()
			cat, done = policy.None, false
		}
	}()
	cat, done = fn(c)
	if c.Err != nil {
		c.Logger.Warn("check failed, treating as no signal", "check", name, "err", c.Err)
		checkErrorCount.WithLabelValues(name).Inc()
		c.Err = nil
		// A decided check survives a partial lookup failure, whether it
		// detected or explicitly allowed; only an undecided one becomes
		// no-signal.
		if !done {
			return policy.None, false
		}
	}
	return cat, done
}

// allows reports whether the group's config enables the category.
func (c *checkContext) allows(cat policy.Category) bool {
	return c.cfg.Allows(cat)
}

// Fingerprint returns the message's normalized content fingerprint,
// computed once.
func (c *checkContext) Fingerprint() string {
	if !c.fingerprintSet {
		c.fingerprint = content.MessageFingerprint(c.msg)
		c.fingerprintSet = true
	}
	return c.fingerprint
}

// Privileged reports whether the sender is class C, computed once.
func (c *checkContext) Privileged() bool {
	if c.privileged == nil {
		v := c.engine.Trust.IsPrivileged(c.msg)
		c.privileged = &v
	}
	return *c.privileged
}

// Trusted reports whether the sender or content is class E, computed once.
func (c *checkContext) Trusted() bool {
	if c.trusted == nil {
		v := c.engine.Trust.IsTrustedContent(c.msg, c.Fingerprint())
		if !v && c.msg.From != nil {
			v = c.engine.Trust.IsTrustedUser(c.msg.From.ID)
		}
		c.trusted = &v
	}
	return *c.trusted
}

// description fetches the group description, recording lookup failure.
func (c *checkContext) description() string {
	desc, err := c.engine.Directory.Description(c.Ctx, c.msg.ChatID)
	if err != nil {
		if c.Err == nil {
			c.Err = err
		}
		return ""
	}
	return desc
}

// pinned fetches the group's pinned message, recording lookup failure.
func (c *checkContext) pinned() *message.Message {
	pinned, err := c.engine.Directory.Pinned(c.Ctx, c.msg.ChatID)
	if err != nil {
		if c.Err == nil {
			c.Err = err
		}
		return nil
	}
	return pinned
}
