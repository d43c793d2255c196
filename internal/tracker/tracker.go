package tracker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"voicetime/internal/database"
	"voicetime/internal/metrics"
	"voicetime/internal/models"
)

// Store is the persistence the tracker needs. *database.Repository satisfies
// it; tests substitute an in-memory fake.
type Store interface {
	GetOrCreate(ctx context.Context, userID, username, guildID, guildName string) (*models.ActivityRecord, error)
	FindByKey(ctx context.Context, userID, guildID string) (*models.ActivityRecord, error)
	Save(ctx context.Context, record *models.ActivityRecord) error
	TopByTotalTime(ctx context.Context, guildID string, limit int) ([]*models.ActivityRecord, error)
	SetPremiumForUser(ctx context.Context, userID string, isPremium bool) (bool, error)
}

// Event is one voice presence change for a user in a guild. Empty channel
// IDs mean "not in a voice channel" on that side of the transition.
type Event struct {
	UserID              string
	Username            string
	GuildID             string
	GuildName           string
	PreviousChannelID   string
	PreviousChannelName string
	NewChannelID        string
	NewChannelName      string
	MicEnabled          bool
	Deafened            bool
	Streaming           bool
}

// Transition classifies an Event.
type Transition string

const (
	TransitionJoin   Transition = "join"
	TransitionLeave  Transition = "leave"
	TransitionMove   Transition = "move"
	TransitionStatus Transition = "status"
	TransitionNoop   Transition = "noop"
)

// Classify maps an event onto the session state machine.
func (e *Event) Classify() Transition {
	switch {
	case e.PreviousChannelID == "" && e.NewChannelID != "":
		return TransitionJoin
	case e.PreviousChannelID != "" && e.NewChannelID == "":
		return TransitionLeave
	case e.PreviousChannelID != "" && e.NewChannelID != "" && e.PreviousChannelID != e.NewChannelID:
		return TransitionMove
	case e.PreviousChannelID != "" && e.PreviousChannelID == e.NewChannelID:
		return TransitionStatus
	default:
		return TransitionNoop
	}
}

// Tracker drives session records from voice presence events and answers
// stats, leaderboard and premium queries.
type Tracker struct {
	store  Store
	logger *zap.Logger
	locks  *keyLocks
	now    func() time.Time
}

// New creates a tracker backed by the given store.
func New(store Store, logger *zap.Logger) *Tracker {
	return &Tracker{
		store:  store,
		logger: logger,
		locks:  newKeyLocks(),
		now:    time.Now,
	}
}

// HandleVoiceStateChange applies one presence event to the session history
// of its (user, guild) pair. Mutations for the same pair are serialized so
// rapid event bursts cannot leave two sessions open; events for different
// pairs proceed independently.
func (t *Tracker) HandleVoiceStateChange(ctx context.Context, event Event) error {
	transition := event.Classify()
	metrics.VoiceEvents.WithLabelValues(string(transition)).Inc()

	if transition == TransitionNoop {
		return nil
	}

	unlock := t.locks.lock(event.GuildID + ":" + event.UserID)
	defer unlock()

	var err error
	switch transition {
	case TransitionJoin:
		err = t.handleJoin(ctx, event)
	case TransitionLeave:
		err = t.handleLeave(ctx, event)
	case TransitionMove:
		err = t.handleMove(ctx, event)
	case TransitionStatus:
		err = t.handleStatus(ctx, event)
	}

	if err != nil {
		metrics.StoreErrors.Inc()
		t.logger.Error("failed to handle voice state change",
			zap.String("transition", string(transition)),
			zap.String("user_id", event.UserID),
			zap.String("guild_id", event.GuildID),
			zap.Error(err))
		return err
	}

	t.logger.Debug("voice state change handled",
		zap.String("transition", string(transition)),
		zap.String("user_id", event.UserID),
		zap.String("guild_id", event.GuildID),
		zap.String("channel_id", event.NewChannelID))
	return nil
}

func (t *Tracker) handleJoin(ctx context.Context, event Event) error {
	record, err := t.store.GetOrCreate(ctx, event.UserID, event.Username, event.GuildID, event.GuildName)
	if err != nil {
		return err
	}
	record.StartSession(event.NewChannelID, event.NewChannelName, event.MicEnabled, event.Deafened, event.Streaming, t.now())
	return t.store.Save(ctx, record)
}

func (t *Tracker) handleLeave(ctx context.Context, event Event) error {
	record, err := t.store.FindByKey(ctx, event.UserID, event.GuildID)
	if errors.Is(err, database.ErrNotFound) {
		// Nothing tracked for this user; a leave without a join is harmless.
		return nil
	}
	if err != nil {
		return err
	}
	if !record.EndOpenSession(t.now()) {
		return nil
	}
	return t.store.Save(ctx, record)
}

func (t *Tracker) handleMove(ctx context.Context, event Event) error {
	record, err := t.store.GetOrCreate(ctx, event.UserID, event.Username, event.GuildID, event.GuildName)
	if err != nil {
		return err
	}
	// A move is close-then-open: two sessions, never one spanning channels.
	record.EndOpenSession(t.now())
	record.StartSession(event.NewChannelID, event.NewChannelName, event.MicEnabled, event.Deafened, event.Streaming, t.now())
	return t.store.Save(ctx, record)
}

func (t *Tracker) handleStatus(ctx context.Context, event Event) error {
	record, err := t.store.FindByKey(ctx, event.UserID, event.GuildID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !record.UpdateSessionStatus(event.MicEnabled, event.Deafened, event.Streaming, t.now()) {
		return nil
	}
	return t.store.Save(ctx, record)
}

// Stats returns the activity stats for a user in a guild. Unknown users get
// the zero value, never an error. The total is recomputed from the session
// history on the way out without writing anything back.
func (t *Tracker) Stats(ctx context.Context, userID, guildID string) (models.Stats, error) {
	record, err := t.store.FindByKey(ctx, userID, guildID)
	if errors.Is(err, database.ErrNotFound) {
		return models.Stats{}, nil
	}
	if err != nil {
		metrics.StoreErrors.Inc()
		return models.Stats{}, err
	}

	return models.Stats{
		TotalTimeInVoice: record.TotalMinutes(),
		SessionsCount:    len(record.Sessions),
		IsPremium:        record.IsPremium,
		LastUpdated:      record.LastUpdated,
	}, nil
}

// DefaultLeaderboardLimit is used when a caller asks for no particular size.
const DefaultLeaderboardLimit = 10

// Leaderboard returns up to limit users of a guild ranked by total voice
// time. A guild with no records yields an empty slice.
func (t *Tracker) Leaderboard(ctx context.Context, guildID string, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}

	records, err := t.store.TopByTotalTime(ctx, guildID, limit)
	if err != nil {
		metrics.StoreErrors.Inc()
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, models.LeaderboardEntry{
			UserID:           record.UserID,
			Username:         record.Username,
			TotalTimeInVoice: record.TotalTimeInVoice,
			IsPremium:        record.IsPremium,
		})
	}
	return entries, nil
}

// SetPremium flips the premium flag on every guild record of a user and
// reports whether any record changed.
func (t *Tracker) SetPremium(ctx context.Context, userID string, isPremium bool) (bool, error) {
	updated, err := t.store.SetPremiumForUser(ctx, userID, isPremium)
	if err != nil {
		metrics.StoreErrors.Inc()
		return false, err
	}
	return updated, nil
}
