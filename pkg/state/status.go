package state

import (
	"sync"
	"time"
)

// Cooldown durations by moderation severity.
const (
	CooldownHigh    = 60 * time.Second
	CooldownMedium  = 45 * time.Second
	CooldownDefault = 40 * time.Second
)

// maxOfflineEvents caps the offline-event ring buffer.
const maxOfflineEvents = 50

// Status is the online/offline state of one character. IsOnline is derived:
// reads go through the tracker, which lazily expires the cooldown first.
type Status struct {
	CharacterID        string     `json:"character_id"`
	IsOnline           bool       `json:"is_online"`
	OfflineUntil       *time.Time `json:"offline_until,omitempty"`
	OfflineReason      string     `json:"offline_reason,omitempty"`
	LastOfflineMessage string     `json:"last_offline_message,omitempty"`
}

// OfflineEvent records one moderation-triggered transition for diagnostics.
type OfflineEvent struct {
	CharacterID string        `json:"character_id"`
	At          time.Time     `json:"at"`
	Reason      string        `json:"reason"`
	Duration    time.Duration `json:"duration"`
	Message     string        `json:"message"` // the user message that triggered it
}

// StatusTracker owns character availability. There is no background timer:
// the offline→online transition happens lazily on the next status read.
type StatusTracker struct {
	mu       sync.Mutex
	now      func() time.Time
	statuses map[string]*Status
	events   []OfflineEvent
}

func NewStatusTracker() *StatusTracker {
	return NewStatusTrackerWithClock(time.Now)
}

// NewStatusTrackerWithClock allows tests to control time.
func NewStatusTrackerWithClock(now func() time.Time) *StatusTracker {
	return &StatusTracker{
		now:      now,
		statuses: make(map[string]*Status),
		events:   make([]OfflineEvent, 0),
	}
}

// Init registers a character as online. Characters that were never
// initialized are treated as online anyway (fail-open), so this mainly makes
// the character visible in Statuses().
func (t *StatusTracker) Init(characterID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.statuses[characterID]; !ok {
		t.statuses[characterID] = &Status{CharacterID: characterID, IsOnline: true}
	}
}

// CooldownForSeverity maps a moderation severity to an offline duration.
func CooldownForSeverity(severity string) time.Duration {
	switch severity {
	case "high":
		return CooldownHigh
	case "medium":
		return CooldownMedium
	default:
		return CooldownDefault
	}
}

// SetOffline puts a character into cooldown and records the event.
// offlineMessage is the canned refusal shown while the character is away;
// triggerMessage is the user input that caused the transition.
func (t *StatusTracker) SetOffline(characterID, reason, offlineMessage, triggerMessage string, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	until := t.now().Add(duration)
	status, ok := t.statuses[characterID]
	if !ok {
		status = &Status{CharacterID: characterID}
		t.statuses[characterID] = status
	}
	status.IsOnline = false
	status.OfflineUntil = &until
	status.OfflineReason = reason
	status.LastOfflineMessage = offlineMessage

	t.events = append(t.events, OfflineEvent{
		CharacterID: characterID,
		At:          t.now(),
		Reason:      reason,
		Duration:    duration,
		Message:     triggerMessage,
	})
	if len(t.events) > maxOfflineEvents {
		t.events = t.events[len(t.events)-maxOfflineEvents:]
	}
}

// SetOnline clears any cooldown immediately. Used by resets.
func (t *StatusTracker) SetOnline(characterID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	status, ok := t.statuses[characterID]
	if !ok {
		t.statuses[characterID] = &Status{CharacterID: characterID, IsOnline: true}
		return
	}
	status.IsOnline = true
	status.OfflineUntil = nil
	status.OfflineReason = ""
	status.LastOfflineMessage = ""
}

// IsOnline reports availability, transitioning expired cooldowns back to
// online before answering. Unknown characters are online by default.
func (t *StatusTracker) IsOnline(characterID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	status, ok := t.statuses[characterID]
	if !ok {
		return true
	}
	t.expireLocked(status)
	return status.IsOnline
}

// TimeUntilOnline returns the remaining cooldown in whole seconds, rounded
// up, or 0 if the character is online.
func (t *StatusTracker) TimeUntilOnline(characterID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	status, ok := t.statuses[characterID]
	if !ok {
		return 0
	}
	t.expireLocked(status)
	if status.IsOnline || status.OfflineUntil == nil {
		return 0
	}
	remaining := status.OfflineUntil.Sub(t.now())
	return int((remaining + time.Second - 1) / time.Second)
}

// OfflineReason returns the stored reason, or empty if online.
func (t *StatusTracker) OfflineReason(characterID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	status, ok := t.statuses[characterID]
	if !ok {
		return ""
	}
	t.expireLocked(status)
	return status.OfflineReason
}

// Get returns a copy of the character's status after lazy expiry.
func (t *StatusTracker) Get(characterID string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	status, ok := t.statuses[characterID]
	if !ok {
		return Status{CharacterID: characterID, IsOnline: true}
	}
	t.expireLocked(status)
	return *status
}

// Statuses returns a copy of every tracked status after lazy expiry, in no
// particular order. Characters that were never initialized do not appear.
func (t *StatusTracker) Statuses() []Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Status, 0, len(t.statuses))
	for _, status := range t.statuses {
		t.expireLocked(status)
		out = append(out, *status)
	}
	return out
}

// Events returns a copy of the offline-event history, oldest first.
func (t *StatusTracker) Events() []OfflineEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]OfflineEvent, len(t.events))
	copy(out, t.events)
	return out
}

// Reset clears all statuses and the event history.
func (t *StatusTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.statuses = make(map[string]*Status)
	t.events = make([]OfflineEvent, 0)
}

// expireLocked flips the status back to online if the cooldown has elapsed.
// Caller must hold t.mu.
func (t *StatusTracker) expireLocked(status *Status) {
	if status.IsOnline || status.OfflineUntil == nil {
		return
	}
	if !t.now().Before(*status.OfflineUntil) {
		status.IsOnline = true
		status.OfflineUntil = nil
		status.OfflineReason = ""
		status.LastOfflineMessage = ""
	}
}
