package progress

import "github.com/p-n-ai/tsea/internal/curriculum"

// NoAnswer is the selection recorded for a question the learner skipped.
const NoAnswer = -1

// QuestionFeedback is the graded outcome of one question.
type QuestionFeedback struct {
	QuestionID  string `json:"question_id"`
	Selected    int    `json:"selected"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation"`
}

// QuizResult is the outcome of grading a module quiz.
type QuizResult struct {
	ModuleID string             `json:"module_id"`
	Correct  int                `json:"correct"`
	Total    int                `json:"total"`
	Feedback []QuestionFeedback `json:"feedback"`
}

// ScorePct returns the share of correct answers in [0,100].
func (r QuizResult) ScorePct() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total) * 100
}

// GradeQuiz grades answers (question id -> selected option index) against a
// module's quiz. A missing answer counts as NoAnswer and is always wrong.
//
// Grading marks the quiz complete regardless of score: attempting the quiz is
// what completes it.
func GradeQuiz(p Progress, m curriculum.Module, answers map[string]int) QuizResult {
	res := QuizResult{
		ModuleID: m.ID,
		Total:    len(m.Quiz.Questions),
		Feedback: make([]QuestionFeedback, 0, len(m.Quiz.Questions)),
	}
	for _, q := range m.Quiz.Questions {
		selected, ok := answers[q.ID]
		if !ok {
			selected = NoAnswer
		}
		correct := selected == q.CorrectAnswerIndex
		if correct {
			res.Correct++
		}
		res.Feedback = append(res.Feedback, QuestionFeedback{
			QuestionID:  q.ID,
			Selected:    selected,
			Correct:     correct,
			Explanation: q.Explanation,
		})
	}

	RecordQuizComplete(p, m.ID)
	return res
}
