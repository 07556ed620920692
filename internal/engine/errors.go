package engine

import "errors"

var (
	// ErrPromptTooShort is returned for creation prompts under 10 characters.
	ErrPromptTooShort = errors.New("prompt too short")
	// ErrPromptTooLong is returned for creation prompts over 5000 characters.
	ErrPromptTooLong = errors.New("prompt too long")
	// ErrNoActiveGame is returned for modification requests before any game
	// has been generated.
	ErrNoActiveGame = errors.New("no active game to modify")
	// ErrValidationFailed is returned when every generation attempt failed
	// validation. The session's game version is unchanged.
	ErrValidationFailed = errors.New("generated code failed validation")
)

const (
	minPromptChars = 10
	maxPromptChars = 5000
)
