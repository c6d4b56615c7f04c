package progress

import (
	"errors"
	"fmt"

	"github.com/p-n-ai/tsea/internal/curriculum"
)

// ErrTrackLocked is returned when a tier tries to reach content on a track it cannot see.
var ErrTrackLocked = errors.New("track not available for tier")

// NotFoundError reports a module, lesson, question or track id absent from the curriculum.
type NotFoundError struct {
	Kind string // "module", "lesson", "question" or "track"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// Engine binds the progress computations to one curriculum and resolves ids.
type Engine struct {
	curriculum *curriculum.Curriculum
}

// NewEngine creates an engine over a loaded curriculum.
func NewEngine(c *curriculum.Curriculum) *Engine {
	return &Engine{curriculum: c}
}

// Curriculum returns the curriculum the engine was built with.
func (e *Engine) Curriculum() *curriculum.Curriculum {
	return e.curriculum
}

func (e *Engine) module(id string) (curriculum.Module, error) {
	m, ok := e.curriculum.Module(id)
	if !ok {
		return curriculum.Module{}, &NotFoundError{Kind: "module", ID: id}
	}
	return m, nil
}

// Access resolves a module and checks that its track is visible to tier.
func (e *Engine) Access(tier Tier, moduleID string) (curriculum.Module, error) {
	m, err := e.module(moduleID)
	if err != nil {
		return curriculum.Module{}, err
	}
	track, ok := e.curriculum.Track(m.TrackID)
	if !ok {
		return curriculum.Module{}, &NotFoundError{Kind: "track", ID: m.TrackID}
	}
	if !IsTrackVisible(tier, track) {
		return curriculum.Module{}, fmt.Errorf("module %s: %w", moduleID, ErrTrackLocked)
	}
	return m, nil
}

// Lesson resolves a lesson inside a module visible to tier.
func (e *Engine) Lesson(tier Tier, moduleID, lessonID string) (curriculum.Module, curriculum.Lesson, error) {
	m, err := e.Access(tier, moduleID)
	if err != nil {
		return curriculum.Module{}, curriculum.Lesson{}, err
	}
	l, ok := m.Lesson(lessonID)
	if !ok {
		return curriculum.Module{}, curriculum.Lesson{}, &NotFoundError{Kind: "lesson", ID: lessonID}
	}
	return m, l, nil
}

// CompleteLesson records a lesson as complete after checking the ids exist.
func (e *Engine) CompleteLesson(p Progress, tier Tier, moduleID, lessonID string) error {
	if _, _, err := e.Lesson(tier, moduleID, lessonID); err != nil {
		return err
	}
	RecordLessonComplete(p, moduleID, lessonID)
	return nil
}

// Grade grades a module quiz. Answers naming questions the quiz does not have
// are rejected with a NotFoundError.
func (e *Engine) Grade(p Progress, tier Tier, moduleID string, answers map[string]int) (QuizResult, error) {
	m, err := e.Access(tier, moduleID)
	if err != nil {
		return QuizResult{}, err
	}
	for qid := range answers {
		if _, ok := m.Quiz.Question(qid); !ok {
			return QuizResult{}, &NotFoundError{Kind: "question", ID: qid}
		}
	}
	return GradeQuiz(p, m, answers), nil
}

// ModulePct returns ModuleCompletionPct for a module id.
func (e *Engine) ModulePct(p Progress, moduleID string) (float64, error) {
	m, err := e.module(moduleID)
	if err != nil {
		return 0, err
	}
	return ModuleCompletionPct(p, m), nil
}

// TrackPct returns TrackCompletionPct for a track id.
func (e *Engine) TrackPct(p Progress, trackID string) (float64, error) {
	t, ok := e.curriculum.Track(trackID)
	if !ok {
		return 0, &NotFoundError{Kind: "track", ID: trackID}
	}
	return TrackCompletionPct(p, e.curriculum, t), nil
}

// Next returns the next recommended activity for tier.
func (e *Engine) Next(p Progress, tier Tier) (Activity, bool) {
	return NextActivity(p, e.curriculum, tier)
}

// ModuleOverview summarises one module.
type ModuleOverview struct {
	ModuleID     string  `json:"module_id"`
	Title        string  `json:"title"`
	Pct          float64 `json:"pct"`
	LessonsDone  int     `json:"lessons_done"`
	LessonsTotal int     `json:"lessons_total"`
	QuizDone     bool    `json:"quiz_done"`
}

// TrackOverview summarises one visible track.
type TrackOverview struct {
	TrackID string           `json:"track_id"`
	Name    string           `json:"name"`
	Pct     float64          `json:"pct"`
	Modules []ModuleOverview `json:"modules"`
}

// Overview summarises every track visible to tier, in declaration order.
func (e *Engine) Overview(p Progress, tier Tier) []TrackOverview {
	var out []TrackOverview
	for _, t := range e.curriculum.Tracks() {
		if !IsTrackVisible(tier, t) {
			continue
		}
		to := TrackOverview{
			TrackID: t.ID,
			Name:    t.Name,
			Pct:     TrackCompletionPct(p, e.curriculum, t),
			Modules: []ModuleOverview{},
		}
		for _, m := range e.curriculum.ModulesForTrack(t.ID) {
			mo := ModuleOverview{
				ModuleID:     m.ID,
				Title:        m.Title,
				Pct:          ModuleCompletionPct(p, m),
				LessonsTotal: len(m.Lessons),
				QuizDone:     p[QuizKey(m.ID)],
			}
			for _, l := range m.Lessons {
				if p[LessonKey(m.ID, l.ID)] {
					mo.LessonsDone++
				}
			}
			to.Modules = append(to.Modules, mo)
		}
		out = append(out, to)
	}
	return out
}

// VisibleModules returns the modules tier may open, in declaration order.
func (e *Engine) VisibleModules(tier Tier) []curriculum.Module {
	var out []curriculum.Module
	for _, m := range e.curriculum.Modules() {
		if t, ok := e.curriculum.Track(m.TrackID); ok && IsTrackVisible(tier, t) {
			out = append(out, m)
		}
	}
	return out
}
