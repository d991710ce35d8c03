package domain

import "fmt"

// PageCount is the number of pages in the standard printed Quran.
const PageCount = 604

// BatchSize is the number of pages sent with each reading reminder.
const BatchSize = 5

// PageRange is an inclusive range of Quran pages.
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r PageRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

func (r PageRange) String() string {
	if r.Start == r.End {
		return fmt.Sprintf("%d", r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Pages expands the range into individual page numbers.
func (r PageRange) Pages() []int {
	if r.End < r.Start {
		return nil
	}
	out := make([]int, 0, r.Len())
	for p := r.Start; p <= r.End; p++ {
		out = append(out, p)
	}
	return out
}

// NextBatch returns the next n pages after lastPage. The start wraps to 1
// past the last page; the end is capped at PageCount, so the batch at the
// end of the book may be shorter than n.
func NextBatch(lastPage, n int) PageRange {
	if n < 1 {
		n = BatchSize
	}
	start := lastPage + 1
	if start > PageCount || start < 1 {
		start = 1
	}
	end := start + n - 1
	if end > PageCount {
		end = PageCount
	}
	return PageRange{Start: start, End: end}
}

// ReadingProgress is a user's Quran reading state.
//
// LastPage is the highest page sent so far; the next batch starts right
// after it. UnreadPages accumulates dispatched-but-unconfirmed pages; while
// it is non-empty the scheduled dispatch is suppressed and the user is
// pointed back at the backlog instead. TotalPagesRead counts every page ever
// sent and never decreases.
type ReadingProgress struct {
	UserID            int64 `json:"user_id"`
	LastPage          int   `json:"last_page"`
	TotalPagesRead    int   `json:"total_pages_read"`
	UnreadPages       []int `json:"unread_pages,omitempty"`
	LastReadConfirmed bool  `json:"last_read_confirmed"`

	// Message handles for later retraction; 0 means none outstanding.
	ReminderMessageID     int `json:"reminder_message_id,omitempty"`
	WirdReminderMessageID int `json:"wird_reminder_message_id,omitempty"`
}

// NewReadingProgress returns the zero record for a user who has not been
// sent any pages yet.
func NewReadingProgress(userID int64) ReadingProgress {
	return ReadingProgress{UserID: userID, LastReadConfirmed: true}
}

// HasBacklog reports whether dispatched pages are still unconfirmed.
func (p *ReadingProgress) HasBacklog() bool {
	return len(p.UnreadPages) > 0
}
