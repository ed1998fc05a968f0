package turn

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Result statuses
const (
	StatusSuccess    = "success"
	StatusNeedsRetry = "needs_retry"
)

// MaxInputLength bounds a single user message, in runes.
const MaxInputLength = 2000

var (
	ErrEmptyInput   = errors.New("message cannot be empty")
	ErrInputTooLong = errors.New("message is too long")
)

// Request is a user's answer to the current beat. The session comes from
// the URL.
type Request struct {
	Message string `json:"message"`
}

// Validate checks the trimmed message against the input bounds.
func (r Request) Validate() error {
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		return ErrEmptyInput
	}
	if utf8.RuneCountInString(msg) > MaxInputLength {
		return ErrInputTooLong
	}
	return nil
}

// Result is the outcome of one submitted turn. A success carries all three
// of Classification, ActionSummary and NextSceneText; a retry carries only
// ErrorMessage.
type Result struct {
	Status         string `json:"status"`
	Classification string `json:"classification,omitempty"`
	ActionSummary  string `json:"action_summary,omitempty"`
	NextSceneText  string `json:"next_scene_text,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	Turn           int    `json:"turn"`               // turn the session is now on
	Complete       bool   `json:"complete,omitempty"` // every beat has been answered
	NextQuestion   string `json:"next_question,omitempty"`
}

func Success(classification, summary, scene string) Result {
	return Result{
		Status:         StatusSuccess,
		Classification: classification,
		ActionSummary:  summary,
		NextSceneText:  scene,
	}
}

func NeedsRetry(msg string) Result {
	return Result{Status: StatusNeedsRetry, ErrorMessage: msg}
}

func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Record is everything a successful turn adds to a session.
type Record struct {
	Input          string
	Classification string
	ActionSummary  string
	Narrative      string
}

const summaryWordLimit = 12

// SummarizeAction derives a short action summary from the user's input: the
// first sentence, capped at a dozen words, lower-cased at the start.
func SummarizeAction(input string) string {
	s := strings.Join(strings.Fields(input), " ")
	if i := sentenceEnd(s); i > 0 {
		s = s[:i]
	}
	words := strings.Fields(s)
	truncated := len(words) > summaryWordLimit
	if truncated {
		words = words[:summaryWordLimit]
	}
	s = strings.TrimRightFunc(strings.Join(words, " "), func(r rune) bool {
		return unicode.IsPunct(r) && r != '"' && r != '\''
	})
	if s == "" {
		return ""
	}
	if first, size := utf8.DecodeRuneInString(s); unicode.IsUpper(first) && !isAcronym(words[0]) && !isAbbreviation(words[0]) {
		s = string(unicode.ToLower(first)) + s[size:]
	}
	if truncated {
		s += "…"
	}
	return s
}

func isAcronym(w string) bool {
	upper := 0
	for _, r := range w {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return upper > 1 || w == "I" || strings.HasPrefix(w, "I'")
}

// abbreviations end in a period without ending the sentence.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"st": true, "jr": true, "sr": true, "vs": true, "etc": true,
	"e.g": true, "i.e": true,
}

func isAbbreviation(w string) bool {
	return strings.HasSuffix(w, ".") && abbreviations[strings.ToLower(strings.TrimSuffix(w, "."))]
}

// sentenceEnd returns the index of the first sentence-ending mark in s, or
// -1. A period only ends a sentence when followed by a space or the end of
// the text and not preceded by an abbreviation.
func sentenceEnd(s string) int {
	for i, r := range s {
		switch r {
		case '!', '?':
			return i
		case '.':
			if i+1 < len(s) && s[i+1] != ' ' {
				continue
			}
			word := s[strings.LastIndexByte(s[:i], ' ')+1 : i+1]
			if isAbbreviation(word) {
				continue
			}
			return i
		}
	}
	return -1
}
