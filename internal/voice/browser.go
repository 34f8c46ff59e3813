package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Command types sent to a connected browser.
const (
	CommandListen = "listen"
	CommandSpeak  = "speak"
)

// ReasonUnsupported is the error a browser reports when it has no speech
// recognition.
const ReasonUnsupported = "unsupported"

// Command asks a connected browser to use its speech APIs.
type Command struct {
	Type string  `json:"type"`
	Text string  `json:"text,omitempty"`
	Rate float64 `json:"rate,omitempty"`
	Lang string  `json:"lang,omitempty"`
}

// Commander delivers commands to connected browsers.
type Commander interface {
	Send(cmd Command) error
}

// BrowserRecognizer relays recognition to a browser's speech API. Results
// come back through Deliver and Fail.
type BrowserRecognizer struct {
	cmd  Commander
	lang string

	mu      sync.Mutex
	handler RecognitionHandler
}

// NewBrowserRecognizer creates a recognizer that sends listen commands via cmd.
func NewBrowserRecognizer(cmd Commander, lang string) *BrowserRecognizer {
	if lang == "" {
		lang = "en-US"
	}
	return &BrowserRecognizer{cmd: cmd, lang: lang}
}

// Supported reports true; availability is decided by the browser.
func (r *BrowserRecognizer) Supported() bool { return true }

// Start asks the browser to listen and routes its answer to h.
func (r *BrowserRecognizer) Start(ctx context.Context, h RecognitionHandler) error {
	r.mu.Lock()
	r.handler = h
	r.mu.Unlock()

	return r.cmd.Send(Command{Type: CommandListen, Lang: r.lang})
}

// Deliver passes a final transcript from the browser to the handler.
func (r *BrowserRecognizer) Deliver(text string) {
	if h := r.current(); h != nil {
		h.OnTranscript(text)
	}
}

// Fail passes a browser recognition error to the handler. ReasonUnsupported
// is reported as ErrUnsupported.
func (r *BrowserRecognizer) Fail(reason string) {
	h := r.current()
	if h == nil {
		return
	}
	if reason == ReasonUnsupported {
		h.OnRecognitionError(fmt.Errorf("browser: %w", ErrUnsupported))
		return
	}
	h.OnRecognitionError(errors.New(reason))
}

func (r *BrowserRecognizer) current() RecognitionHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handler
}

// BrowserSynthesizer asks a connected browser to speak. The browser cancels
// its own pending utterance before starting a new one.
type BrowserSynthesizer struct {
	cmd Commander
}

// NewBrowserSynthesizer creates a synthesizer that sends speak commands via cmd.
func NewBrowserSynthesizer(cmd Commander) *BrowserSynthesizer {
	return &BrowserSynthesizer{cmd: cmd}
}

// Supported reports true; availability is decided by the browser.
func (s *BrowserSynthesizer) Supported() bool { return true }

// Speak sends the utterance to the browser and returns immediately.
func (s *BrowserSynthesizer) Speak(ctx context.Context, text string, rate float64) error {
	return s.cmd.Send(Command{Type: CommandSpeak, Text: text, Rate: rate})
}
