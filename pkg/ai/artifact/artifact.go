// Package artifact defines the generated study artifacts (note blocks,
// flashcards and quiz questions), the parameters shared by every generation
// graph, and schema validation for model output.
package artifact

import (
	"fmt"
	"strings"
)

type Kind string

const (
	KindNote       Kind = "note"
	KindFlashcards Kind = "flashcards"
	KindQuiz       Kind = "quiz"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindNote, KindFlashcards, KindQuiz:
		return k, nil
	default:
		return "", fmt.Errorf("unknown artifact kind %q", s)
	}
}

type LearningStyle string

const (
	LearningVisual      LearningStyle = "visual"
	LearningAuditory    LearningStyle = "auditory"
	LearningReading     LearningStyle = "reading"
	LearningKinesthetic LearningStyle = "kinesthetic"
)

type StudyLevel string

const (
	LevelHighSchool    StudyLevel = "high_school"
	LevelUndergraduate StudyLevel = "undergraduate"
	LevelGraduate      StudyLevel = "graduate"
	LevelProfessional  StudyLevel = "professional"
)

// Params is the caller-supplied input shared by every generation graph.
type Params struct {
	Content         string        `json:"content" validate:"required"`
	LearningStyle   LearningStyle `json:"learning_style" validate:"omitempty,oneof=visual auditory reading kinesthetic"`
	StudyLevel      StudyLevel    `json:"study_level" validate:"omitempty,oneof=high_school undergraduate graduate professional"`
	Course          string        `json:"course"`
	NoteTakingStyle string        `json:"note_taking_style"`
	Plan            string        `json:"plan"`
	// PriorArtifacts lists what earlier chunks already produced (for
	// flashcards, their fronts) so the model can avoid repeating them.
	PriorArtifacts []string `json:"prior_artifacts,omitempty"`
}

type BlockType string

const (
	BlockImage     BlockType = "image"
	BlockHeader    BlockType = "header"
	BlockParagraph BlockType = "paragraph"
)

// Block is one rendered piece of a note. Content is HTML, Source the
// markdown (or image URL) it was rendered from.
type Block struct {
	Type    BlockType `json:"type" validate:"required,oneof=image header paragraph"`
	Content string    `json:"content" validate:"required"`
	Source  string    `json:"source,omitempty"`
}

type NoteBlock struct {
	Blocks []Block `json:"blocks" validate:"required,min=1,max=3,dive"`
}

func (n NoteBlock) Text() string {
	parts := make([]string, 0, len(n.Blocks))
	for _, b := range n.Blocks {
		if b.Type == BlockImage {
			continue
		}
		parts = append(parts, b.Source)
	}
	return strings.Join(parts, "\n\n")
}

// MinFlashcards is the smallest set a single generation may return.
const MinFlashcards = 5

type Flashcard struct {
	Front      string   `json:"front" validate:"required"`
	Back       string   `json:"back" validate:"required"`
	Difficulty string   `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Status     string   `json:"status" validate:"required,oneof=new learning review mastered"`
	Tags       []string `json:"tags,omitempty"`
	Image      string   `json:"image,omitempty" validate:"omitempty,url"`
}

type FlashcardSet struct {
	Cards []Flashcard `json:"flashcards" validate:"required,min=5,dive"`
}

func (s FlashcardSet) Fronts() []string {
	fronts := make([]string, len(s.Cards))
	for i, c := range s.Cards {
		fronts[i] = c.Front
	}
	return fronts
}

func (s FlashcardSet) Text() string {
	var sb strings.Builder
	for i, c := range s.Cards {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Q: %s\nA: %s", c.Front, c.Back)
	}
	return sb.String()
}

type QuizType string

const (
	QuizShortAnswer    QuizType = "short_answer"
	QuizMultipleChoice QuizType = "multiple_choice"
	QuizTrueFalse      QuizType = "true_false"
)

func (q QuizType) Valid() bool {
	switch q {
	case QuizShortAnswer, QuizMultipleChoice, QuizTrueFalse:
		return true
	}
	return false
}

type QuizQuestion struct {
	Type        QuizType `json:"type" validate:"required,oneof=short_answer multiple_choice true_false"`
	Question    string   `json:"question" validate:"required"`
	Options     []string `json:"options,omitempty" validate:"required_if=Type multiple_choice,omitempty,len=4,dive,required"`
	AnswerIndex *int     `json:"answer_index,omitempty" validate:"required_if=Type multiple_choice,omitempty,min=0,max=3"`
	AnswerBool  *bool    `json:"answer_bool,omitempty" validate:"required_if=Type true_false"`
	Answer      string   `json:"answer,omitempty" validate:"required_if=Type short_answer"`
	Explanation string   `json:"explanation,omitempty"`
}

func (q QuizQuestion) Text() string {
	var sb strings.Builder
	sb.WriteString(q.Question)
	for i, o := range q.Options {
		fmt.Fprintf(&sb, "\n%c) %s", 'A'+i, o)
	}
	switch q.Type {
	case QuizMultipleChoice:
		if q.AnswerIndex != nil && *q.AnswerIndex < len(q.Options) {
			fmt.Fprintf(&sb, "\nAnswer: %s", q.Options[*q.AnswerIndex])
		}
	case QuizTrueFalse:
		if q.AnswerBool != nil {
			fmt.Fprintf(&sb, "\nAnswer: %t", *q.AnswerBool)
		}
	default:
		if q.Answer != "" {
			fmt.Fprintf(&sb, "\nAnswer: %s", q.Answer)
		}
	}
	if q.Explanation != "" {
		fmt.Fprintf(&sb, "\n%s", q.Explanation)
	}
	return sb.String()
}

// Artifact is the tagged union produced by one graph invocation. Exactly
// the field matching Kind is set.
type Artifact struct {
	Kind       Kind          `json:"kind"`
	Note       *NoteBlock    `json:"note,omitempty"`
	Flashcards *FlashcardSet `json:"flashcards,omitempty"`
	Quiz       *QuizQuestion `json:"quiz,omitempty"`
}

func NewNote(n NoteBlock) Artifact {
	return Artifact{Kind: KindNote, Note: &n}
}

func NewFlashcards(s FlashcardSet) Artifact {
	return Artifact{Kind: KindFlashcards, Flashcards: &s}
}

func NewQuiz(q QuizQuestion) Artifact {
	return Artifact{Kind: KindQuiz, Quiz: &q}
}

// Text is the plain-text form used for persistence and embedding.
func (a Artifact) Text() string {
	switch a.Kind {
	case KindNote:
		if a.Note != nil {
			return a.Note.Text()
		}
	case KindFlashcards:
		if a.Flashcards != nil {
			return a.Flashcards.Text()
		}
	case KindQuiz:
		if a.Quiz != nil {
			return a.Quiz.Text()
		}
	}
	return ""
}

// Validate checks that the variant matching Kind is present and valid.
func (a Artifact) Validate() error {
	switch a.Kind {
	case KindNote:
		if a.Note == nil {
			return newValidationError(a.Kind, []string{"note is missing"}, nil)
		}
		return Validate(a.Kind, a.Note)
	case KindFlashcards:
		if a.Flashcards == nil {
			return newValidationError(a.Kind, []string{"flashcards are missing"}, nil)
		}
		return Validate(a.Kind, a.Flashcards)
	case KindQuiz:
		if a.Quiz == nil {
			return newValidationError(a.Kind, []string{"quiz question is missing"}, nil)
		}
		return Validate(a.Kind, a.Quiz)
	default:
		return newValidationError(a.Kind, []string{fmt.Sprintf("unknown kind %q", a.Kind)}, nil)
	}
}

// Profile renders the learner fields for prompt templates.
func (p Params) Profile() string {
	var sb strings.Builder
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "%s: %s\n", label, value)
		}
	}
	line("Course", p.Course)
	line("Study level", string(p.StudyLevel))
	line("Learning style", string(p.LearningStyle))
	line("Note-taking style", p.NoteTakingStyle)
	return strings.TrimRight(sb.String(), "\n")
}
