package progress

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/homelab-dl/homelab-dl/internal/downloader"
	"github.com/homelab-dl/homelab-dl/internal/logutils"
)

const (
	barSegments = 10
	// percentBucket is the rendered-value granularity: an edit is only
	// worth sending when progress crossed into a new 5% bucket.
	percentBucket = 5.0
	// byteBucket applies when the total size is unknown and progress can
	// only be counted in bytes.
	byteBucket = 10 * 1024 * 1024
)

// Editor edits one already-sent chat message in place.
type Editor interface {
	EditMessage(chatID int64, messageID int, text string) error
}

// Clock exists so throttle behavior is testable with a fake time source.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Tracker owns the single status message of one download request and
// converts progress callbacks into throttled message edits. An edit goes
// out only when the rendered value changed bucket AND the minimum interval
// since the previous edit has elapsed; terminal edits always go out.
type Tracker struct {
	editor      Editor
	chatID      int64
	messageID   int
	title       string
	minInterval time.Duration
	clock       Clock

	mu           sync.Mutex
	lastEditTime time.Time
	lastBucket   int64
	maxPercent   float64
	maxBytes     int64
	done         bool
}

func NewTracker(editor Editor, chatID int64, messageID int, title string, minInterval time.Duration) *Tracker {
	return NewTrackerWithClock(editor, chatID, messageID, title, minInterval, realClock{})
}

func NewTrackerWithClock(
	editor Editor,
	chatID int64,
	messageID int,
	title string,
	minInterval time.Duration,
	clock Clock,
) *Tracker {
	return &Tracker{
		editor:      editor,
		chatID:      chatID,
		messageID:   messageID,
		title:       title,
		minInterval: minInterval,
		clock:       clock,
		lastBucket:  -1,
	}
}

// Update records a progress callback and edits the status message when the
// dual throttle allows it. Progress never moves backwards: stale callbacks
// are clamped to the furthest value seen.
func (t *Tracker) Update(p downloader.Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return
	}

	if p.Percent > t.maxPercent {
		t.maxPercent = p.Percent
	}
	if p.Downloaded > t.maxBytes {
		t.maxBytes = p.Downloaded
	}

	bucket := t.currentBucket(p.Total)
	if bucket == t.lastBucket {
		return
	}

	now := t.clock.Now()
	if !t.lastEditTime.IsZero() && now.Sub(t.lastEditTime) < t.minInterval {
		return
	}

	t.edit(t.render(p.Total))
	t.lastBucket = bucket
	t.lastEditTime = now
}

// Complete sends the terminal success rendering. Always edits.
func (t *Tracker) Complete(fileName string) {
	t.terminal(fmt.Sprintf("✅ Download complete!\n📂 Saved: %s", fileName))
}

// Fail sends the terminal failure rendering. Always edits.
func (t *Tracker) Fail(reason string) {
	t.terminal("❌ " + reason)
}

func (t *Tracker) terminal(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	t.edit(text)
	t.lastEditTime = t.clock.Now()
}

func (t *Tracker) currentBucket(total int64) int64 {
	if t.maxPercent > 0 || total > 0 {
		return int64(t.maxPercent / percentBucket)
	}
	return t.maxBytes / byteBucket
}

func (t *Tracker) render(total int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📥 Downloading: %s", t.title)
	if t.maxPercent > 0 || total > 0 {
		fmt.Fprintf(&b, "\n[%s] %.1f%%", renderBar(t.maxPercent), t.maxPercent)
	}
	if t.maxBytes > 0 {
		if total > 0 {
			fmt.Fprintf(&b, "\n💾 %s / %s", humanize.Bytes(uint64(t.maxBytes)), humanize.Bytes(uint64(total)))
		} else {
			fmt.Fprintf(&b, "\n💾 %s", humanize.Bytes(uint64(t.maxBytes)))
		}
	}
	return b.String()
}

func renderBar(percent float64) string {
	filled := int(percent / 100 * barSegments)
	if filled > barSegments {
		filled = barSegments
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("■", filled) + strings.Repeat("□", barSegments-filled)
}

func (t *Tracker) edit(text string) {
	if err := t.editor.EditMessage(t.chatID, t.messageID, text); err != nil {
		logutils.Log.WithError(err).Debug("Progress edit failed")
	}
}
