package models

// ReviewItem is the resolved content payload behind an SRS entry, in the
// one shape all item types share. Which fields are populated depends on
// the type: flashcards carry Front/Back, questions carry Body and
// Options, topic summaries carry Body only.
type ReviewItem struct {
	Type    ItemType `json:"type"`
	ItemID  int64    `json:"item_id"`
	Title   string   `json:"title,omitempty"`
	Front   string   `json:"front,omitempty"`
	Back    string   `json:"back,omitempty"`
	Body    string   `json:"body,omitempty"`
	Options []string `json:"options,omitempty"`
}

// ResolvedEntry pairs a ledger entry with its resolved content.
type ResolvedEntry struct {
	Entry SrsEntry    `json:"entry"`
	Item  *ReviewItem `json:"item"`
}

// ReviewBatch is the result of due-set selection plus content
// resolution. SkippedEntryIDs lists entries whose content has vanished
// since they were scheduled; they are reported rather than silently
// dropped.
type ReviewBatch struct {
	Items           []ResolvedEntry `json:"items"`
	SkippedEntryIDs []int64         `json:"skipped_entry_ids,omitempty"`
}
