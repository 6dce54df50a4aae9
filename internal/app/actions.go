package app

import (
	"github.com/entrepeneur4lyf/repairforge/internal/guide"
	"github.com/entrepeneur4lyf/repairforge/internal/history"
	"github.com/entrepeneur4lyf/repairforge/internal/llm"
)

// Action is a state transition request. Results of asynchronous work carry
// the token they were issued under so stale ones can be dropped.
type Action interface {
	Name() string
}

type (
	// StartAnalysis begins a new analysis and resets guide, translation and chat.
	StartAnalysis struct{ Description string }

	AnalysisSucceeded struct {
		Generation uint64
		Guide      *guide.RepairGuide
		Session    llm.ChatSession
		Greeting   guide.ChatMessage
		History    []history.Entry
	}

	AnalysisFailed struct {
		Generation uint64
		Message    string
	}

	ChatSent struct {
		Generation uint64
		Message    guide.ChatMessage
	}

	ChatReplied struct {
		Generation uint64
		Message    guide.ChatMessage
	}

	// ChatFailed carries the formatted error shown in place of a reply.
	ChatFailed struct {
		Generation uint64
		Message    guide.ChatMessage
	}

	// ChatUnavailable is appended when there is no session to send to.
	ChatUnavailable struct{ Message guide.ChatMessage }

	ToggleChat    struct{}
	ToggleHistory struct{}

	// HistoryViewed loads a past entry as the current analysis.
	HistoryViewed struct {
		Entry    history.Entry
		Session  llm.ChatSession
		Greeting guide.ChatMessage
		MediaRef string
	}

	HistoryLoaded struct{ History []history.Entry }

	TranslationStarted struct{}

	TranslationSucceeded struct {
		Seq   uint64
		Guide *guide.RepairGuide
	}

	TranslationFailed struct {
		Seq     uint64
		Message string
	}

	LocaleChanged struct{ Locale string }

	// StepBoxEdited sets (Box non-nil) or clears a step's bounding box on
	// the original guide.
	StepBoxEdited struct {
		Index int
		Box   *guide.BoundingBox
	}

	MediaAttached struct {
		Media *guide.Media
		Ref   string
	}

	MediaRejected       struct{ Message string }
	MediaRemoved        struct{}
	DescriptionRejected struct{ Message string }
	ErrorDismissed      struct{}
)

func (StartAnalysis) Name() string        { return "start_analysis" }
func (AnalysisSucceeded) Name() string    { return "analysis_succeeded" }
func (AnalysisFailed) Name() string       { return "analysis_failed" }
func (ChatSent) Name() string             { return "chat_sent" }
func (ChatReplied) Name() string          { return "chat_replied" }
func (ChatFailed) Name() string           { return "chat_failed" }
func (ChatUnavailable) Name() string      { return "chat_unavailable" }
func (ToggleChat) Name() string           { return "toggle_chat" }
func (ToggleHistory) Name() string        { return "toggle_history" }
func (HistoryViewed) Name() string        { return "history_viewed" }
func (HistoryLoaded) Name() string        { return "history_loaded" }
func (TranslationStarted) Name() string   { return "translation_started" }
func (TranslationSucceeded) Name() string { return "translation_succeeded" }
func (TranslationFailed) Name() string    { return "translation_failed" }
func (LocaleChanged) Name() string        { return "locale_changed" }
func (StepBoxEdited) Name() string        { return "step_box_edited" }
func (MediaAttached) Name() string        { return "media_attached" }
func (MediaRejected) Name() string        { return "media_rejected" }
func (MediaRemoved) Name() string         { return "media_removed" }
func (DescriptionRejected) Name() string  { return "description_rejected" }
func (ErrorDismissed) Name() string       { return "error_dismissed" }
