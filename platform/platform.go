// Package platform declares the narrow interfaces to external
// collaborators: chat directory lookups, image retrieval and decoding,
// persistence flush triggers and temp-file cleanup. The decision core only
// consumes these; transport and storage live elsewhere.
package platform

import (
	"context"

	"github.com/chatsweep/chatsweep/message"
)

// MemberStatus mirrors the platform's membership states.
type MemberStatus string

const (
	StatusCreator       MemberStatus = "creator"
	StatusAdministrator MemberStatus = "administrator"
	StatusMember        MemberStatus = "member"
	StatusRestricted    MemberStatus = "restricted"
	StatusLeft          MemberStatus = "left"
	StatusKicked        MemberStatus = "kicked"
)

// Present reports whether the status counts as current group membership.
func (s MemberStatus) Present() bool {
	switch s {
	case StatusCreator, StatusAdministrator, StatusMember:
		return true
	}
	return false
}

type Member struct {
	Status MemberStatus
}

// ResolvedKind tags what a handle resolved to.
type ResolvedKind string

const (
	KindUser    ResolvedKind = "user"
	KindChannel ResolvedKind = "channel"
)

type Resolved struct {
	Kind ResolvedKind
	ID   int64
}

// Directory answers group and identity lookups. Implementations may cache;
// failures are treated as "no evidence" by callers.
type Directory interface {
	// Description returns the group's description text, "" when unset.
	Description(ctx context.Context, chatID int64) (string, error)
	// Pinned returns the group's pinned message, nil when none.
	Pinned(ctx context.Context, chatID int64) (*message.Message, error)
	// GroupSticker returns the group's official sticker set name.
	GroupSticker(ctx context.Context, chatID int64) (string, error)
	// Member returns the user's membership, nil when absent.
	Member(ctx context.Context, chatID, userID int64) (*Member, error)
	// ResolveHandle resolves a public handle, nil when unresolved.
	ResolveHandle(ctx context.Context, handle string) (*Resolved, error)
}

// Images downloads and decodes media referenced by messages. DecodeQR is a
// black box; this core only consumes its text result.
type Images interface {
	// Download fetches the file to a local temp path, "" when unavailable.
	Download(ctx context.Context, ref message.FileRef) (string, error)
	// DecodeQR returns decoded QR text, "" when the image has none.
	DecodeQR(ctx context.Context, path string) (string, error)
	// Hash returns a stable digest of the file contents.
	Hash(path string) (string, error)
}

// Persister triggers an asynchronous best-effort flush of a named
// structure after mutation.
type Persister interface {
	MarkDirty(structure string)
}

// Cleaner schedules best-effort deletion of a temporary file. Must not
// block and must tolerate duplicate requests.
type Cleaner interface {
	ScheduleDelete(path string)
}

// NopDirectory answers every lookup with "absent", for tooling that runs
// the pipeline without a platform connection.
type NopDirectory struct{}

var _ Directory = NopDirectory{}

func (NopDirectory) Description(context.Context, int64) (string, error) { return "", nil }
func (NopDirectory) Pinned(context.Context, int64) (*message.Message, error) {
	return nil, nil
}
func (NopDirectory) GroupSticker(context.Context, int64) (string, error) { return "", nil }
func (NopDirectory) Member(context.Context, int64, int64) (*Member, error) {
	return nil, nil
}
func (NopDirectory) ResolveHandle(context.Context, string) (*Resolved, error) {
	return nil, nil
}

// NopImages never downloads or decodes anything.
type NopImages struct{}

var _ Images = NopImages{}

func (NopImages) Download(context.Context, message.FileRef) (string, error) { return "", nil }
func (NopImages) DecodeQR(context.Context, string) (string, error)          { return "", nil }
func (NopImages) Hash(string) (string, error)                               { return "", nil }

// NopPersister discards flush triggers, for tests and read-only tooling.
type NopPersister struct{}

func (NopPersister) MarkDirty(string) {}

// NopCleaner discards cleanup requests.
type NopCleaner struct{}

func (NopCleaner) ScheduleDelete(string) {}
