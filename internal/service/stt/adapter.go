// Package stt defines the interface for Speech-to-Text providers.
package stt

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"call-transcript-service/internal/models"
	"call-transcript-service/internal/service/audio"
)

// ErrAudioTooLarge is returned when a channel exceeds what the provider
// accepts in a single request.
var ErrAudioTooLarge = errors.New("channel audio exceeds provider request limit")

// Provider transcribes one mono channel into word records (Google, mock, etc.).
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Transcribe returns the words in clip ordered by start time.
	// A nil or empty clip yields an empty list.
	Transcribe(ctx context.Context, clip *audio.Clip, languageCode string) ([]models.WordRecord, error)
}

// Normalize lowercases a recognized token and strips everything except
// letters, digits and apostrophes.
func Normalize(word string) string {
	var b strings.Builder
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
