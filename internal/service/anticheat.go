package service

import (
	"errors"
	"strings"
)

// minAttemptSeconds is the shortest believable attempt. Anything quicker is
// treated as pre-written or pasted.
const minAttemptSeconds = 15.0

// conversationalMarkers betray copy-pasted assistant output rather than code
// written in the attempt window. Matching is case-insensitive.
var conversationalMarkers = []string{
	"here is the code",
	"as an ai",
	"hope this helps",
}

// ErrTooFast indicates the attempt finished before the minimum duration.
var ErrTooFast = errors.New("submission faster than minimum attempt duration")

// ErrContentRejected indicates the code carries conversational artifacts.
var ErrContentRejected = errors.New("conversational artifact detected")

// ScreenSubmission applies the pre-grading gates in order: the speed gate
// first, then the deny list. It reads no state and writes none; the attempt
// window was already spent when the caller consumed the timer, so a
// rejection here costs the participant a fresh language selection.
func ScreenSubmission(elapsedSeconds float64, code string) error {
	if elapsedSeconds < minAttemptSeconds {
		return ErrTooFast
	}

	lowered := strings.ToLower(code)
	for _, marker := range conversationalMarkers {
		if strings.Contains(lowered, marker) {
			return ErrContentRejected
		}
	}

	return nil
}
