package curriculum

// Track is a top-level gating category (e.g. "beginner", "advanced").
type Track struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Module is a unit of ordered lessons plus one quiz, belonging to one track.
type Module struct {
	ID      string   `yaml:"id" json:"id"`
	TrackID string   `yaml:"track_id" json:"track_id"`
	Title   string   `yaml:"title" json:"title"`
	Lessons []Lesson `yaml:"lessons" json:"lessons"`
	Quiz    Quiz     `yaml:"quiz" json:"quiz"`
}

// Lesson is a single piece of content. Order within the module is significant.
type Lesson struct {
	ID      string `yaml:"id" json:"id"`
	Title   string `yaml:"title" json:"title"`
	Content string `yaml:"content" json:"content"`
}

// Quiz holds the ordered questions closing a module.
type Quiz struct {
	Questions []Question `yaml:"questions" json:"questions"`
}

// Question is a multiple-choice question with one correct option.
type Question struct {
	ID                 string   `yaml:"id" json:"id"`
	Prompt             string   `yaml:"prompt" json:"prompt"`
	Options            []string `yaml:"options,omitempty" json:"options,omitempty"`
	CorrectAnswerIndex int      `yaml:"correct_answer_index" json:"correct_answer_index"`
	Explanation        string   `yaml:"explanation" json:"explanation"`
}

// Lesson returns the lesson with the given ID.
func (m *Module) Lesson(id string) (Lesson, bool) {
	i := m.LessonIndex(id)
	if i < 0 {
		return Lesson{}, false
	}
	return m.Lessons[i], true
}

// LessonIndex returns the position of a lesson in the module, or -1.
func (m *Module) LessonIndex(id string) int {
	for i, l := range m.Lessons {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// PrevLesson returns the lesson declared before id.
func (m *Module) PrevLesson(id string) (Lesson, bool) {
	i := m.LessonIndex(id)
	if i <= 0 {
		return Lesson{}, false
	}
	return m.Lessons[i-1], true
}

// NextLesson returns the lesson declared after id.
func (m *Module) NextLesson(id string) (Lesson, bool) {
	i := m.LessonIndex(id)
	if i < 0 || i+1 >= len(m.Lessons) {
		return Lesson{}, false
	}
	return m.Lessons[i+1], true
}

// Question returns the quiz question with the given ID.
func (q Quiz) Question(id string) (Question, bool) {
	for _, qu := range q.Questions {
		if qu.ID == id {
			return qu, true
		}
	}
	return Question{}, false
}

// document is the on-disk shape of a curriculum file.
type document struct {
	Tracks  []Track  `yaml:"tracks" json:"tracks"`
	Modules []Module `yaml:"modules" json:"modules"`
}
