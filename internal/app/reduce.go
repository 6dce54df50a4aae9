package app

import (
	"github.com/entrepeneur4lyf/repairforge/internal/guide"
	"github.com/entrepeneur4lyf/repairforge/internal/i18n"
)

// Reduce returns the state after applying a. It has no side effects and
// never writes through slices or pointers held by s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case StartAnalysis:
		return State{
			Status:         StatusAnalyzing,
			Generation:     s.Generation + 1,
			Description:    a.Description,
			TranslationSeq: s.TranslationSeq + 1,
			Locale:         s.Locale,
			MediaRef:       s.Form.MediaRef,
			HistoryOpen:    s.HistoryOpen,
			History:        s.History,
		}

	case AnalysisSucceeded:
		if a.Generation != s.Generation || s.Status != StatusAnalyzing {
			return s
		}
		s.Status = StatusReady
		s.Error = ""
		s.Guide = a.Guide
		s.Chat = ChatState{
			Open:     s.Chat.Open,
			Session:  a.Session,
			Messages: []guide.ChatMessage{a.Greeting},
		}
		if a.History != nil {
			s.History = a.History
		}
		return s

	case AnalysisFailed:
		if a.Generation != s.Generation || s.Status != StatusAnalyzing {
			return s
		}
		s.Status = StatusFailed
		s.Error = a.Message
		s.Guide = nil
		s.Translated = nil
		s.MediaRef = ""
		s.Chat = ChatState{}
		return s

	case ChatSent:
		if a.Generation != s.Generation {
			return s
		}
		s.Chat.Messages = appendMessage(s.Chat.Messages, a.Message)
		s.Chat.Awaiting = true
		return s

	case ChatReplied:
		return chatResult(s, a.Generation, a.Message)

	case ChatFailed:
		return chatResult(s, a.Generation, a.Message)

	case ChatUnavailable:
		s.Chat.Messages = appendMessage(s.Chat.Messages, a.Message)
		return s

	case ToggleChat:
		s.Chat.Open = !s.Chat.Open
		return s

	case ToggleHistory:
		s.HistoryOpen = !s.HistoryOpen
		return s

	case HistoryLoaded:
		s.History = a.History
		return s

	case HistoryViewed:
		return State{
			Status:         StatusReady,
			Generation:     s.Generation + 1,
			Description:    a.Entry.Description,
			Guide:          a.Entry.Guide,
			TranslationSeq: s.TranslationSeq + 1,
			Locale:         s.Locale,
			MediaRef:       a.MediaRef,
			Chat: ChatState{
				Session:  a.Session,
				Messages: []guide.ChatMessage{a.Greeting},
			},
			History: s.History,
			Form:    s.Form,
		}

	case TranslationStarted:
		if s.Guide == nil {
			return s
		}
		s.TranslationSeq++
		s.Translating = true
		return s

	case TranslationSucceeded:
		if a.Seq != s.TranslationSeq {
			return s
		}
		s.Translating = false
		s.Translated = a.Guide
		return s

	case TranslationFailed:
		if a.Seq != s.TranslationSeq {
			return s
		}
		s.Translating = false
		s.Translated = nil
		s.Error = a.Message
		return s

	case LocaleChanged:
		s.Locale = a.Locale
		if a.Locale == i18n.DefaultLocale {
			s.Translated = nil
			s.Translating = false
			s.TranslationSeq++
		}
		return s

	case StepBoxEdited:
		out, changed, err := guide.WithStepBox(s.Guide, a.Index, a.Box)
		if err != nil || !changed {
			return s
		}
		s.Guide = out
		return s

	case MediaAttached:
		s.Form.Media = a.Media
		s.Form.MediaRef = a.Ref
		s.Form.MediaError = ""
		return s

	case MediaRejected:
		s.Form.MediaError = a.Message
		return s

	case MediaRemoved:
		s.Form.Media = nil
		s.Form.MediaRef = ""
		s.Form.MediaError = ""
		return s

	case DescriptionRejected:
		s.Form.DescriptionError = a.Message
		return s

	case ErrorDismissed:
		s.Error = ""
		return s
	}
	return s
}

func chatResult(s State, gen uint64, msg guide.ChatMessage) State {
	if gen != s.Generation {
		return s
	}
	s.Chat.Messages = appendMessage(s.Chat.Messages, msg)
	s.Chat.Awaiting = false
	return s
}

// appendMessage copies before appending so earlier snapshots keep their
// own backing array.
func appendMessage(msgs []guide.ChatMessage, m guide.ChatMessage) []guide.ChatMessage {
	out := make([]guide.ChatMessage, len(msgs), len(msgs)+1)
	copy(out, msgs)
	return append(out, m)
}
