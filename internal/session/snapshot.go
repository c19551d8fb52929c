package session

import (
	"github.com/srgulbay/mikrocoach/pkg/models"
)

// ItemView is the presentation payload for the current entry. The back
// of a flashcard is withheld until the user reveals it.
type ItemView struct {
	EntryID int64           `json:"entry_id"`
	Type    models.ItemType `json:"type"`
	ItemID  int64           `json:"item_id"`
	Title   string          `json:"title,omitempty"`
	Front   string          `json:"front,omitempty"`
	Back    string          `json:"back,omitempty"`
	Body    string          `json:"body,omitempty"`
	Options []string        `json:"options,omitempty"`
}

// Snapshot is what the UI sees of a session after any operation.
type Snapshot struct {
	SessionID   string          `json:"session_id"`
	UserID      int64           `json:"user_id"`
	State       State           `json:"state"`
	Filter      models.ItemType `json:"filter,omitempty"`
	Position    int             `json:"position"`
	QueueLength int             `json:"queue_length"`
	Revealed    bool            `json:"revealed"`
	Warning     string          `json:"warning,omitempty"`
	Current     *ItemView       `json:"current,omitempty"`
	// DetourURL is set when the current item must be reviewed in an
	// external view; the UI navigates there instead of grading inline.
	DetourURL string `json:"detour_url,omitempty"`
	// ResumeLocation is the cleaned session address after a handoff has
	// been consumed; the UI replaces the visible address with it.
	ResumeLocation string `json:"resume_location,omitempty"`
}

// snapshot builds the UI view of a session. Caller holds the user's
// session lock.
func (m *Manager) snapshot(sess *Session) *Snapshot {
	snap := &Snapshot{
		SessionID:   sess.ID,
		UserID:      sess.UserID,
		State:       sess.State,
		Filter:      sess.Filter,
		Position:    sess.Position,
		QueueLength: len(sess.Queue),
		Revealed:    sess.Revealed,
		Warning:     sess.Warning,
	}

	current := sess.current()
	if current == nil {
		return snap
	}

	view := &ItemView{
		EntryID: current.Entry.ID,
		Type:    current.Entry.ItemType,
		ItemID:  current.Entry.ItemID,
	}
	if current.Item != nil {
		view.Title = current.Item.Title
		view.Front = current.Item.Front
		view.Body = current.Item.Body
		view.Options = current.Item.Options
		// Flashcard backs stay hidden until revealed
		if current.Entry.ItemType != models.ItemTypeFlashcard || sess.Revealed {
			view.Back = current.Item.Back
		}
	}
	snap.Current = view

	if current.Entry.ItemType.RequiresDetour() {
		snap.DetourURL = DetourURL(current, sess.Filter)
	}
	return snap
}
