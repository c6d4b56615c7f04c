// Package progress computes tier gating, completion percentages and the next
// recommended activity over a curriculum and a per-session progress record.
//
// Everything here is a pure computation over caller-owned values: no I/O,
// no logging, no shared mutable state.
package progress

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/tsea/internal/curriculum"
)

// QuizItem is the item id that marks a module's quiz.
const QuizItem = curriculum.ReservedQuizID

// Key addresses one completable item: a lesson or a module's quiz.
type Key struct {
	ModuleID string
	ItemID   string
}

func (k Key) String() string {
	return k.ModuleID + "/" + k.ItemID
}

// ParseKey is the inverse of Key.String. Module ids never contain "/"
// (curriculum.Validate), so the first separator splits the key.
func ParseKey(s string) (Key, error) {
	moduleID, itemID, ok := strings.Cut(s, "/")
	if !ok || moduleID == "" || itemID == "" {
		return Key{}, fmt.Errorf("invalid progress key %q", s)
	}
	return Key{ModuleID: moduleID, ItemID: itemID}, nil
}

// LessonKey returns the key of a lesson.
func LessonKey(moduleID, lessonID string) Key {
	return Key{ModuleID: moduleID, ItemID: lessonID}
}

// QuizKey returns the key of a module's quiz.
func QuizKey(moduleID string) Key {
	return Key{ModuleID: moduleID, ItemID: QuizItem}
}

// Progress maps items to their completion flag. Entries are only ever set to
// true. The zero value is nil; use New before recording.
type Progress map[Key]bool

// New returns an empty progress record.
func New() Progress {
	return make(Progress)
}

// Clone returns an independent copy.
func (p Progress) Clone() Progress {
	out := make(Progress, len(p))
	for k, v := range p {
		if v {
			out[k] = true
		}
	}
	return out
}

// Done reports whether an item is complete.
func (p Progress) Done(k Key) bool {
	return p[k]
}

// ActivityKind distinguishes lessons from quizzes.
type ActivityKind string

const (
	ActivityLesson ActivityKind = "lesson"
	ActivityQuiz   ActivityKind = "quiz"
)

// Activity references the next thing a learner should do.
type Activity struct {
	Kind     ActivityKind `json:"kind"`
	ModuleID string       `json:"module_id"`
	LessonID string       `json:"lesson_id,omitempty"`
}

// IsTrackVisible reports whether a tier may see a track. Unknown tiers see nothing.
func IsTrackVisible(tier Tier, track curriculum.Track) bool {
	cat := CategoryOf(track.ID)
	switch tier {
	case TierElite:
		return true
	case TierPro:
		return cat != CategoryAdvanced
	case TierBasic:
		return cat == CategoryBeginner
	case TierUnknown:
		return false
	}
	return false
}

// ModuleCompletionPct returns the completed share of a module's lessons plus
// its quiz, in [0,100]. The quiz always counts as one unit.
func ModuleCompletionPct(p Progress, m curriculum.Module) float64 {
	total := len(m.Lessons) + 1
	done := 0
	for _, l := range m.Lessons {
		if p[LessonKey(m.ID, l.ID)] {
			done++
		}
	}
	if p[QuizKey(m.ID)] {
		done++
	}
	return float64(done) / float64(total) * 100
}

// TrackCompletionPct averages ModuleCompletionPct over the track's modules.
// A track without modules is at 0.
func TrackCompletionPct(p Progress, c *curriculum.Curriculum, track curriculum.Track) float64 {
	modules := c.ModulesForTrack(track.ID)
	if len(modules) == 0 {
		return 0
	}
	var sum float64
	for _, m := range modules {
		sum += ModuleCompletionPct(p, m)
	}
	return sum / float64(len(modules))
}

// NextActivity walks modules in declaration order, skipping those on tracks the
// tier cannot see, and returns the first incomplete lesson, or the quiz once all
// lessons of that module are done. It returns false when everything visible is complete.
func NextActivity(p Progress, c *curriculum.Curriculum, tier Tier) (Activity, bool) {
	for _, m := range c.Modules() {
		track, ok := c.Track(m.TrackID)
		if !ok || !IsTrackVisible(tier, track) {
			continue
		}
		for _, l := range m.Lessons {
			if !p[LessonKey(m.ID, l.ID)] {
				return Activity{Kind: ActivityLesson, ModuleID: m.ID, LessonID: l.ID}, true
			}
		}
		if !p[QuizKey(m.ID)] {
			return Activity{Kind: ActivityQuiz, ModuleID: m.ID}, true
		}
	}
	return Activity{}, false
}

// RecordLessonComplete marks a lesson complete. Repeated calls have no further effect.
func RecordLessonComplete(p Progress, moduleID, lessonID string) {
	p[LessonKey(moduleID, lessonID)] = true
}

// RecordQuizComplete marks a module's quiz complete. Repeated calls have no further effect.
func RecordQuizComplete(p Progress, moduleID string) {
	p[QuizKey(moduleID)] = true
}
