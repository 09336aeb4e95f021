package domain

import "time"

// Phase is the quiz-taking lifecycle state.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseActive
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseActive:
		return "active"
	case PhaseCompleted:
		return "completed"
	}
	return "unknown"
}

// MarshalText lets phases travel as strings in JSON snapshots.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
	Points  int      `json:"points,omitempty"`
}

// Quiz is a timed collection of questions.
type Quiz struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"durationMinutes"`
	Questions       []Question `json:"questions"`
}

// Question returns the question with the given id.
func (q Quiz) Question(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// AnswerMap maps a question id to the selected option id.
type AnswerMap map[string]string

// Clone returns an independent copy.
func (m AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Result is the frozen outcome of a completed attempt.
type Result struct {
	AttemptID        string    `json:"attemptId"`
	QuizID           string    `json:"quizId"`
	UserID           string    `json:"userId,omitempty"`
	Score            int       `json:"score"`
	Correct          int       `json:"correct"`
	Total            int       `json:"total"`
	Answers          AnswerMap `json:"answers"`
	RemainingSeconds int       `json:"remainingSeconds"`
	AutoSubmitted    bool      `json:"autoSubmitted"`
	CompletedAt      time.Time `json:"completedAt"`
}

// SessionContext is the caller identity passed explicitly to every component that needs it.
type SessionContext struct {
	UserID      string
	DisplayName string
	Token       string
}

// Thread is a discussion thread as listed by the platform.
type Thread struct {
	ID             string    `json:"id"`
	CourseID       string    `json:"courseId,omitempty"`
	TopicID        string    `json:"topicId,omitempty"`
	Title          string    `json:"title"`
	Body           string    `json:"body,omitempty"`
	AuthorID       string    `json:"authorId,omitempty"`
	AuthorName     string    `json:"authorName,omitempty"`
	ReplyCount     int       `json:"replyCount"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Reply is a single reply inside a thread.
type Reply struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"threadId"`
	AuthorID  string    `json:"authorId,omitempty"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// EventType names a live feed event.
type EventType string

const (
	EventThreadCreated EventType = "thread_created"
	EventThreadUpdated EventType = "thread_updated"
	EventThreadDeleted EventType = "thread_deleted"
	EventReplyCreated  EventType = "reply_created"
)

// ThreadEvent is one change notification from the live feed.
// Deleted events may carry only ThreadID.
type ThreadEvent struct {
	Type      EventType `json:"type"`
	Thread    *Thread   `json:"thread,omitempty"`
	ThreadID  string    `json:"threadId,omitempty"`
	Reply     *Reply    `json:"reply,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TargetID resolves the thread the event refers to.
func (e ThreadEvent) TargetID() string {
	switch {
	case e.ThreadID != "":
		return e.ThreadID
	case e.Thread != nil:
		return e.Thread.ID
	case e.Reply != nil:
		return e.Reply.ThreadID
	}
	return ""
}

// ThreadQuery filters and paginates thread listings.
type ThreadQuery struct {
	CourseID string
	TopicID  string
	Query    string
	Page     int
	Limit    int
}

// ThreadPage is one page of thread results.
type ThreadPage struct {
	Threads []Thread `json:"threads"`
	Page    int      `json:"page"`
	Total   int      `json:"total"`
}

type Course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Topic struct {
	ID       string `json:"id"`
	CourseID string `json:"courseId"`
	Name     string `json:"name"`
}

// KnowledgeEntity is a backend-extracted concept with confidence and frequency metadata.
type KnowledgeEntity struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Confidence float64  `json:"confidence"`
	Frequency  int      `json:"frequency"`
	Related    []string `json:"related,omitempty"`
}

// SummaryRequest asks for an AI summary of a free-text query or a thread.
type SummaryRequest struct {
	Query    string `json:"query,omitempty"`
	ThreadID string `json:"threadId,omitempty"`
}

type Summary struct {
	Query       string    `json:"query,omitempty"`
	ThreadID    string    `json:"threadId,omitempty"`
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// StudySession is a tracked block of study time.
type StudySession struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId,omitempty"`
	CourseID        string     `json:"courseId,omitempty"`
	Title           string     `json:"title"`
	Notes           string     `json:"notes,omitempty"`
	StartedAt       time.Time  `json:"startedAt"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	DurationMinutes int        `json:"durationMinutes"`
	Completed       bool       `json:"completed"`
}

// StudySessionInput is the create/update payload for study sessions.
type StudySessionInput struct {
	CourseID        string     `json:"courseId,omitempty"`
	Title           string     `json:"title" validate:"required,max=200"`
	Notes           string     `json:"notes,omitempty" validate:"max=4000"`
	StartedAt       time.Time  `json:"startedAt" validate:"required"`
	EndedAt         *time.Time `json:"endedAt,omitempty" validate:"omitempty,gtfield=StartedAt"`
	DurationMinutes int        `json:"durationMinutes" validate:"gte=0"`
	Completed       bool       `json:"completed"`
}

// StudyStats aggregates a user's study sessions.
type StudyStats struct {
	TotalMinutes   int `json:"totalMinutes"`
	CompletedCount int `json:"completedCount"`
	SessionCount   int `json:"sessionCount"`
}

// AnswerSubmission models one answer sent by a client.
type AnswerSubmission struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}
