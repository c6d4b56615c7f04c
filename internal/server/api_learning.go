package server

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/tsea/internal/agent"
	"github.com/p-n-ai/tsea/internal/curriculum"
	"github.com/p-n-ai/tsea/internal/progress"
)

type lessonSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

type moduleSummary struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Lessons   []lessonSummary `json:"lessons"`
	Questions int             `json:"questions"`
	QuizDone  bool            `json:"quiz_done"`
	Pct       float64         `json:"pct"`
}

type trackSummary struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Modules     []moduleSummary `json:"modules"`
}

type curriculumBody struct {
	Tier   progress.Tier  `json:"tier"`
	Tracks []trackSummary `json:"tracks"`
}

// learner loads the caller and their progress.
func (s *Server) learner(r *http.Request) (viewer, progress.Progress, error) {
	v, err := s.viewer(r)
	if err != nil {
		return v, nil, err
	}
	p, err := s.store.Load(r.Context(), v.Session.ID)
	if err != nil {
		return v, nil, err
	}
	return v, p, nil
}

func (s *Server) handleCurriculum(w http.ResponseWriter, r *http.Request) {
	v, p, err := s.learner(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	c := s.progress.Curriculum()
	body := curriculumBody{Tier: v.Tier(), Tracks: []trackSummary{}}
	for _, t := range c.Tracks() {
		if !progress.IsTrackVisible(v.Tier(), t) {
			continue
		}
		ts := trackSummary{ID: t.ID, Name: t.Name, Description: t.Description, Modules: []moduleSummary{}}
		for _, m := range c.ModulesForTrack(t.ID) {
			ts.Modules = append(ts.Modules, summarizeModule(p, m))
		}
		body.Tracks = append(body.Tracks, ts)
	}
	writeJSON(w, http.StatusOK, body)
}

func summarizeModule(p progress.Progress, m curriculum.Module) moduleSummary {
	ms := moduleSummary{
		ID:        m.ID,
		Title:     m.Title,
		Lessons:   make([]lessonSummary, 0, len(m.Lessons)),
		Questions: len(m.Quiz.Questions),
		QuizDone:  p.Done(progress.QuizKey(m.ID)),
		Pct:       progress.ModuleCompletionPct(p, m),
	}
	for _, l := range m.Lessons {
		ms.Lessons = append(ms.Lessons, lessonSummary{ID: l.ID, Title: l.Title, Done: p.Done(progress.LessonKey(m.ID, l.ID))})
	}
	return ms
}

type lessonBody struct {
	ModuleID    string            `json:"module_id"`
	ModuleTitle string            `json:"module_title"`
	Lesson      curriculum.Lesson `json:"lesson"`
	Done        bool              `json:"done"`
	Prev        *lessonSummary    `json:"prev"`
	Next        *lessonSummary    `json:"next"`
	Position    int               `json:"position"`
	Total       int               `json:"total"`
}

func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	v, p, err := s.learner(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	m, l, err := s.progress.Lesson(v.Tier(), r.PathValue("module"), r.PathValue("lesson"))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	body := lessonBody{
		ModuleID:    m.ID,
		ModuleTitle: m.Title,
		Lesson:      l,
		Done:        p.Done(progress.LessonKey(m.ID, l.ID)),
		Position:    m.LessonIndex(l.ID) + 1,
		Total:       len(m.Lessons),
	}
	if prev, ok := m.PrevLesson(l.ID); ok {
		body.Prev = &lessonSummary{ID: prev.ID, Title: prev.Title, Done: p.Done(progress.LessonKey(m.ID, prev.ID))}
	}
	if next, ok := m.NextLesson(l.ID); ok {
		body.Next = &lessonSummary{ID: next.ID, Title: next.Title, Done: p.Done(progress.LessonKey(m.ID, next.ID))}
	}
	writeJSON(w, http.StatusOK, body)
}

type completionBody struct {
	ModuleID  string             `json:"module_id"`
	ModulePct float64            `json:"module_pct"`
	Next      *progress.Activity `json:"next"`
}

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	v, p, err := s.learner(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	moduleID, lessonID := r.PathValue("module"), r.PathValue("lesson")
	m, _, err := s.progress.Lesson(v.Tier(), moduleID, lessonID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	progress.RecordLessonComplete(p, moduleID, lessonID)
	if err := s.store.Save(r.Context(), v.Session.ID, p); err != nil {
		writeErr(w, r, err)
		return
	}
	s.logEvent(r, agent.Event{
		UserID:    userID(v),
		SessionID: v.Session.ID,
		EventType: agent.EventLessonCompleted,
		Data:      map[string]any{"module_id": moduleID, "lesson_id": lessonID},
	})

	writeJSON(w, http.StatusOK, completionBody{
		ModuleID:  moduleID,
		ModulePct: progress.ModuleCompletionPct(p, m),
		Next:      s.next(p, v),
	})
}

func (s *Server) next(p progress.Progress, v viewer) *progress.Activity {
	if a, ok := s.progress.Next(p, v.Tier()); ok {
		return &a
	}
	return nil
}

// quizQuestion hides the answer and explanation until the quiz is graded.
type quizQuestion struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

type quizBody struct {
	ModuleID  string         `json:"module_id"`
	Title     string         `json:"title"`
	Questions []quizQuestion `json:"questions"`
	Done      bool           `json:"done"`
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	v, p, err := s.learner(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	m, err := s.progress.Access(v.Tier(), r.PathValue("module"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	body := quizBody{
		ModuleID:  m.ID,
		Title:     m.Title,
		Questions: make([]quizQuestion, 0, len(m.Quiz.Questions)),
		Done:      p.Done(progress.QuizKey(m.ID)),
	}
	for _, q := range m.Quiz.Questions {
		opts := q.Options
		if opts == nil {
			opts = []string{}
		}
		body.Questions = append(body.Questions, quizQuestion{ID: q.ID, Prompt: q.Prompt, Options: opts})
	}
	writeJSON(w, http.StatusOK, body)
}

type gradeRequest struct {
	Answers map[string]int `json:"answers"`
}

type gradeBody struct {
	progress.QuizResult
	ScorePct float64            `json:"score_pct"`
	Next     *progress.Activity `json:"next"`
}

func (s *Server) handleGradeQuiz(w http.ResponseWriter, r *http.Request) {
	var in gradeRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, r, err)
		return
	}
	v, p, err := s.learner(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	res, err := s.progress.Grade(p, v.Tier(), r.PathValue("module"), in.Answers)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := s.store.Save(r.Context(), v.Session.ID, p); err != nil {
		writeErr(w, r, err)
		return
	}
	s.logEvent(r, agent.Event{
		UserID:    userID(v),
		SessionID: v.Session.ID,
		EventType: agent.EventQuizGraded,
		Data:      map[string]any{"module_id": res.ModuleID, "correct": res.Correct, "total": res.Total},
	})
	writeJSON(w, http.StatusOK, gradeBody{QuizResult: res, ScorePct: res.ScorePct(), Next: s.next(p, v)})
}

type progressBody struct {
	Tier   progress.Tier            `json:"tier"`
	Tracks []progress.TrackOverview `json:"tracks"`
	Next   *progress.Activity       `json:"next"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	v, p, err := s.learner(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	tracks := s.progress.Overview(p, v.Tier())
	if tracks == nil {
		tracks = []progress.TrackOverview{}
	}
	writeJSON(w, http.StatusOK, progressBody{Tier: v.Tier(), Tracks: tracks, Next: s.next(p, v)})
}

// handleNext reports the next activity, or null when everything visible is done.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	v, p, err := s.learner(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*progress.Activity{"next": s.next(p, v)})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	v, p, err := s.learner(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := s.progress.WriteReport(&buf, p, v.Tier()); err != nil {
		writeErr(w, r, fmt.Errorf("write report: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="tsea-progress.xlsx"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func userID(v viewer) string {
	if v.User == nil {
		return ""
	}
	return v.User.ID
}
