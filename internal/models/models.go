package models

import "time"

// Session represents one continuous stay in a voice channel. A nil EndTime
// means the session is still open.
type Session struct {
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	ChannelID   string     `json:"channelId"`
	ChannelName string     `json:"channelName"`
	MicEnabled  bool       `json:"micEnabled"`
	Deafened    bool       `json:"deafened"`
	Streaming   bool       `json:"streaming"`
	Duration    int64      `json:"duration"` // whole minutes, set when the session closes
}

// IsOpen reports whether the session has not been closed yet.
func (s *Session) IsOpen() bool {
	return s.EndTime == nil
}

// ActivityRecord tracks voice activity for one user in one guild. Sessions
// are append-only and kept in chronological order; TotalTimeInVoice is
// derived from the closed sessions.
type ActivityRecord struct {
	UserID           string
	Username         string
	GuildID          string
	GuildName        string
	Sessions         []Session
	TotalTimeInVoice int64 // minutes
	IsPremium        bool
	CreatedAt        time.Time
	LastUpdated      time.Time
}

// DurationMinutes returns the whole minutes elapsed between start and end.
func DurationMinutes(start, end time.Time) int64 {
	if end.Before(start) {
		return 0
	}
	return int64(end.Sub(start) / time.Minute)
}

// OpenSession returns the currently open session, or nil if there is none.
// At most one session is ever open; the most recent one wins if history
// somehow contains more.
func (r *ActivityRecord) OpenSession() *Session {
	for i := len(r.Sessions) - 1; i >= 0; i-- {
		if r.Sessions[i].IsOpen() {
			return &r.Sessions[i]
		}
	}
	return nil
}

// StartSession appends a new open session starting at now. Any session still
// open at that point is closed first, so a duplicate join or a missed leave
// cannot leave two sessions open.
func (r *ActivityRecord) StartSession(channelID, channelName string, micEnabled, deafened, streaming bool, now time.Time) {
	r.EndOpenSession(now)
	r.Sessions = append(r.Sessions, Session{
		StartTime:   now,
		ChannelID:   channelID,
		ChannelName: channelName,
		MicEnabled:  micEnabled,
		Deafened:    deafened,
		Streaming:   streaming,
	})
	r.LastUpdated = now
}

// EndOpenSession closes every open session at now, stamps its duration and
// refreshes the total. Closing with no open session is a no-op; it reports
// whether anything was closed.
func (r *ActivityRecord) EndOpenSession(now time.Time) bool {
	closed := false
	for i := range r.Sessions {
		if !r.Sessions[i].IsOpen() {
			continue
		}
		end := now
		r.Sessions[i].EndTime = &end
		r.Sessions[i].Duration = DurationMinutes(r.Sessions[i].StartTime, end)
		closed = true
	}
	if closed {
		r.RecomputeTotal()
		r.LastUpdated = now
	}
	return closed
}

// UpdateSessionStatus overwrites the status flags on the open session. It
// reports whether anything changed; with no open session, or with identical
// flags already set, it is a no-op.
func (r *ActivityRecord) UpdateSessionStatus(micEnabled, deafened, streaming bool, now time.Time) bool {
	session := r.OpenSession()
	if session == nil {
		return false
	}
	if session.MicEnabled == micEnabled && session.Deafened == deafened && session.Streaming == streaming {
		return false
	}
	session.MicEnabled = micEnabled
	session.Deafened = deafened
	session.Streaming = streaming
	r.LastUpdated = now
	return true
}

// TotalMinutes sums the durations of all closed sessions without mutating
// the record. Sessions closed before durations were stamped are derived from
// their start and end times.
func (r *ActivityRecord) TotalMinutes() int64 {
	var total int64
	for i := range r.Sessions {
		session := &r.Sessions[i]
		switch {
		case session.Duration > 0:
			total += session.Duration
		case session.EndTime != nil:
			total += DurationMinutes(session.StartTime, *session.EndTime)
		}
	}
	return total
}

// RecomputeTotal reassigns TotalTimeInVoice from the session history.
func (r *ActivityRecord) RecomputeTotal() int64 {
	r.TotalTimeInVoice = r.TotalMinutes()
	return r.TotalTimeInVoice
}

// Stats is the read view of one user's activity in one guild.
type Stats struct {
	TotalTimeInVoice int64
	SessionsCount    int
	IsPremium        bool
	LastUpdated      time.Time
}

// LeaderboardEntry is one ranked row of a guild leaderboard.
type LeaderboardEntry struct {
	UserID           string
	Username         string
	TotalTimeInVoice int64
	IsPremium        bool
}
