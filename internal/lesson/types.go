// Package lesson defines the lesson aggregate: topics, subtopics, resources
// and quiz questions.
package lesson

// ResourceType classifies supplementary material attached to a subtopic.
type ResourceType string

const (
	ResourceText  ResourceType = "text"
	ResourceImage ResourceType = "image"
	ResourceVideo ResourceType = "video"
	ResourceAudio ResourceType = "audio"
	ResourceLink  ResourceType = "link"
)

// Valid reports whether t is a known resource type.
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceText, ResourceImage, ResourceVideo, ResourceAudio, ResourceLink:
		return true
	default:
		return false
	}
}

// Lesson is the aggregate root. Topic order is fixed for a session.
type Lesson struct {
	ID       string  `yaml:"id" json:"id"`
	Title    string  `yaml:"title" json:"title"`
	Level    string  `yaml:"level" json:"level"`
	Language string  `yaml:"language" json:"language"`
	Topics   []Topic `yaml:"topics" json:"topics"`
}

// Topic groups an ordered list of subtopics.
type Topic struct {
	ID        string     `yaml:"id" json:"id"`
	Title     string     `yaml:"title" json:"title"`
	Order     int        `yaml:"order" json:"order"`
	Subtopics []Subtopic `yaml:"subtopics" json:"subtopics"`
}

// Subtopic is the unit of completion tracking.
type Subtopic struct {
	ID          string     `yaml:"id" json:"id"`
	Title       string     `yaml:"title" json:"title"`
	Objective   string     `yaml:"objective" json:"objective"`
	KeyConcepts []string   `yaml:"key_concepts" json:"key_concepts"`
	Resources   []Resource `yaml:"resources" json:"resources,omitempty"`

	// Annotated from the progress store; never authored.
	Completed   bool `yaml:"-" json:"completed"`
	DBQuizScore *int `yaml:"-" json:"db_quiz_score"`
	AIQuizScore *int `yaml:"-" json:"ai_quiz_score"`
}

// Resource is read-only reference material.
type Resource struct {
	ID              string       `yaml:"id" json:"id"`
	Type            ResourceType `yaml:"type" json:"type"`
	URL             string       `yaml:"url" json:"url,omitempty"`
	Title           string       `yaml:"title" json:"title"`
	Description     string       `yaml:"description" json:"description,omitempty"`
	Purpose         string       `yaml:"purpose" json:"purpose,omitempty"`
	RecommendedWhen string       `yaml:"recommended_when" json:"recommended_when,omitempty"`
	Optional        bool         `yaml:"optional" json:"is_optional"`
}

// QuizQuestion is a four-option multiple-choice question.
type QuizQuestion struct {
	Question      string   `yaml:"question" json:"question"`
	Options       []string `yaml:"options" json:"options"`
	CorrectAnswer int      `yaml:"correct_answer" json:"correct_answer"`
	Explanation   string   `yaml:"explanation" json:"explanation"`
}

// OptionCount is the number of answer options every question carries.
const OptionCount = 4

// Subtopic returns the subtopic at (topic, sub), or false when either index
// is out of range.
func (l *Lesson) Subtopic(topic, sub int) (*Subtopic, bool) {
	if l == nil || topic < 0 || topic >= len(l.Topics) {
		return nil, false
	}
	subs := l.Topics[topic].Subtopics
	if sub < 0 || sub >= len(subs) {
		return nil, false
	}
	return &l.Topics[topic].Subtopics[sub], true
}

// FindSubtopic locates a subtopic by ID.
func (l *Lesson) FindSubtopic(id string) (topic, sub int, ok bool) {
	if l == nil {
		return 0, 0, false
	}
	for t := range l.Topics {
		for s := range l.Topics[t].Subtopics {
			if l.Topics[t].Subtopics[s].ID == id {
				return t, s, true
			}
		}
	}
	return 0, 0, false
}

// Clone returns a deep copy so per-session annotations never leak into the
// shared library.
func (l *Lesson) Clone() *Lesson {
	if l == nil {
		return nil
	}
	out := *l
	out.Topics = make([]Topic, len(l.Topics))
	for i, t := range l.Topics {
		t.Subtopics = append([]Subtopic(nil), t.Subtopics...)
		for j := range t.Subtopics {
			s := &t.Subtopics[j]
			s.KeyConcepts = append([]string(nil), s.KeyConcepts...)
			s.Resources = append([]Resource(nil), s.Resources...)
			s.DBQuizScore = cloneInt(s.DBQuizScore)
			s.AIQuizScore = cloneInt(s.AIQuizScore)
		}
		out.Topics[i] = t
	}
	return &out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
