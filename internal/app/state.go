// Package app owns the repair assistant state machine: a pure reducer over
// typed actions, a store that serializes dispatch, and a controller that
// runs the model, storage and media effects and feeds their results back.
package app

import (
	"github.com/entrepeneur4lyf/repairforge/internal/guide"
	"github.com/entrepeneur4lyf/repairforge/internal/history"
	"github.com/entrepeneur4lyf/repairforge/internal/llm"
)

// Status is the analysis lifecycle state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusAnalyzing Status = "analyzing"
	StatusReady     Status = "ready"
	StatusFailed    Status = "failed"
)

// ChatState is the chat sub-state. Session is nil when no conversation
// can be continued.
type ChatState struct {
	Open     bool                `json:"open"`
	Awaiting bool                `json:"awaiting"`
	Messages []guide.ChatMessage `json:"messages"`
	Session  llm.ChatSession     `json:"-"`
}

// FormState is the submission form: the accepted media and the inline
// validation messages.
type FormState struct {
	Media            *guide.Media `json:"media,omitempty"`
	MediaRef         string       `json:"mediaRef,omitempty"`
	DescriptionError string       `json:"descriptionError,omitempty"`
	MediaError       string       `json:"mediaError,omitempty"`
}

// State is one immutable snapshot. Slices and guides inside a snapshot are
// never modified after it is published; the reducer always builds new ones.
type State struct {
	Status         Status             `json:"status"`
	Generation     uint64             `json:"generation"`
	Description    string             `json:"description,omitempty"`
	Error          string             `json:"error,omitempty"`
	Guide          *guide.RepairGuide `json:"guide,omitempty"`
	Translated     *guide.RepairGuide `json:"translated,omitempty"`
	Translating    bool               `json:"translating"`
	TranslationSeq uint64             `json:"translationSeq"`
	Locale         string             `json:"locale"`
	MediaRef       string             `json:"mediaRef,omitempty"`
	Chat           ChatState          `json:"chat"`
	HistoryOpen    bool               `json:"historyOpen"`
	History        []history.Entry    `json:"history"`
	Form           FormState          `json:"form"`
}

// NewState returns the initial state for locale.
func NewState(locale string) State {
	return State{Status: StatusIdle, Locale: locale}
}

// DisplayGuide returns the translation when one is present, otherwise the
// original guide.
func (s State) DisplayGuide() *guide.RepairGuide {
	if s.Translated != nil {
		return s.Translated
	}
	return s.Guide
}
