// Package voice links speech to the display: recognized phrases pick an
// animation, and the displayed prediction can be spoken aloud.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// ErrUnsupported is returned by capabilities that are not available.
var ErrUnsupported = errors.New("speech capability unsupported")

// RecognitionHandler receives the outcome of a recognition session.
type RecognitionHandler interface {
	OnTranscript(text string)
	OnRecognitionError(err error)
}

// SpeechRecognizer turns speech into text. Start begins one listening
// session and returns without waiting for its result; the result is
// delivered to h.
type SpeechRecognizer interface {
	Supported() bool
	Start(ctx context.Context, h RecognitionHandler) error
}

// SpeechSynthesizer speaks text. Speak returns when the utterance has been
// handed off or finished, or when ctx is canceled.
type SpeechSynthesizer interface {
	Supported() bool
	Speak(ctx context.Context, text string, rate float64) error
}

// Unsupported is both a recognizer and a synthesizer for platforms without
// speech support.
type Unsupported struct{}

// Supported always reports false.
func (Unsupported) Supported() bool { return false }

// Start always fails with ErrUnsupported.
func (Unsupported) Start(context.Context, RecognitionHandler) error { return ErrUnsupported }

// Speak always fails with ErrUnsupported.
func (Unsupported) Speak(context.Context, string, float64) error { return ErrUnsupported }

// Capability kinds accepted by NewRecognizer and NewSynthesizer.
const (
	KindNone    = "none"
	KindAuto    = "auto"
	KindBrowser = "browser"
	KindStdin   = "stdin"
	KindESpeak  = "espeak"
	KindSay     = "say"
)

// NewRecognizer resolves a recognizer by kind. The browser kind relays
// through cmd; the stdin kind reads transcripts from in.
func NewRecognizer(kind, lang string, cmd Commander, in io.Reader) (SpeechRecognizer, error) {
	switch kind {
	case KindNone, "":
		return Unsupported{}, nil
	case KindBrowser, KindAuto:
		if cmd == nil {
			return Unsupported{}, nil
		}
		return NewBrowserRecognizer(cmd, lang), nil
	case KindStdin:
		return NewLineRecognizer(in), nil
	default:
		return nil, fmt.Errorf("unknown speech recognizer: %s", kind)
	}
}

// NewSynthesizer resolves a synthesizer by kind. Auto prefers the local
// system voice and falls back to the browser, then to none.
func NewSynthesizer(kind string, cmd Commander) (SpeechSynthesizer, error) {
	switch kind {
	case KindNone, "":
		return Unsupported{}, nil
	case KindBrowser:
		if cmd == nil {
			return Unsupported{}, nil
		}
		return NewBrowserSynthesizer(cmd), nil
	case KindESpeak:
		return NewESpeakSynthesizer(), nil
	case KindSay:
		return NewSaySynthesizer(), nil
	case KindAuto:
		if runtime.GOOS == "darwin" {
			if _, err := exec.LookPath("say"); err == nil {
				return NewSaySynthesizer(), nil
			}
		}
		if _, err := exec.LookPath(espeakProgram); err == nil {
			return NewESpeakSynthesizer(), nil
		}
		if cmd != nil {
			return NewBrowserSynthesizer(cmd), nil
		}
		return Unsupported{}, nil
	default:
		return nil, fmt.Errorf("unknown speech synthesizer: %s", kind)
	}
}
