package admission

// Windows holds the operator-tuned admission timing, in seconds.
type Windows struct {
	// New: a join within this window makes the member "new".
	New int64
	// Short: a join within this window makes the member limited in that
	// group regardless of config.
	Short int64
	// Track: the lookback window for the join-velocity heuristic.
	Track int64
	// TrackLimit: joining at least this many distinct groups within Track
	// marks the member limited.
	TrackLimit int
	// Punish: a punishment within this window keeps the member "detected".
	Punish int64
}

// ScoreLimit is the aggregated score at which a member is limited.
const ScoreLimit = 1.8

// HighScoreLimit is the aggregated score at which IsHighScore reports.
const HighScoreLimit = 3.0

// TrustChecker is the slice of the trust subsystem admission needs.
type TrustChecker interface {
	IsTrustedUser(uid int64) bool
}

// Controller answers admission questions from join history and scores.
type Controller struct {
	users   *Store
	trust   TrustChecker
	windows Windows
}

func NewController(users *Store, trust TrustChecker, windows Windows) *Controller {
	return &Controller{users: users, trust: trust, windows: windows}
}

// Users exposes the backing store, for event handlers that record joins and
// scores.
func (c *Controller) Users() *Store {
	return c.users
}

// IsNew reports whether the user joined the given group (or, when groupID
// is zero, any group) within the "new" window. Trusted users are never new.
func (c *Controller) IsNew(uid, now, groupID int64) bool {
	if c.trust.IsTrustedUser(uid) {
		return false
	}
	u, ok := c.users.Get(uid)
	if !ok || len(u.Join) == 0 {
		return false
	}
	if groupID != 0 {
		join, ok := u.Join[groupID]
		return ok && now-join < c.windows.New
	}
	for _, join := range u.Join {
		if now-join < c.windows.New {
			return true
		}
	}
	return false
}

// IsLimited reports whether the user should be treated as rate limited in
// the group: config-gated newness, high aggregated score, a recent join of
// this group, or join-velocity across groups. Trusted users are exempt.
func (c *Controller) IsLimited(groupID, uid, now int64, restrictNew bool) bool {
	if c.trust.IsTrustedUser(uid) {
		return false
	}
	if restrictNew && c.IsNew(uid, now, groupID) {
		return true
	}
	u, ok := c.users.Get(uid)
	if !ok || len(u.Join) == 0 {
		return false
	}
	if c.users.SumScore(uid) >= ScoreLimit {
		return true
	}
	if join, ok := u.Join[groupID]; ok && now-join < c.windows.Short {
		return true
	}
	recent := 0
	for _, join := range u.Join {
		if now-join < c.windows.Track {
			recent++
		}
	}
	return c.windows.TrackLimit > 0 && recent >= c.windows.TrackLimit
}

// IsHighScore returns the user's aggregated score when it reaches the high
// threshold, else zero. Trusted users always report zero.
func (c *Controller) IsHighScore(uid int64) float64 {
	if c.trust.IsTrustedUser(uid) {
		return 0
	}
	score := c.users.SumScore(uid)
	if score >= HighScoreLimit {
		return score
	}
	return 0
}

// IsDetected reports whether the user was punished in the group within the
// punish window.
func (c *Controller) IsDetected(groupID, uid, now int64) bool {
	u, ok := c.users.Get(uid)
	if !ok {
		return false
	}
	last, ok := u.Detected[groupID]
	return ok && now-last < c.windows.Punish
}
