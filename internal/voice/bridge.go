package voice

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ayusman/signbridge/internal/display"
	"github.com/ayusman/signbridge/internal/metrics"
)

// DefaultRate is the normal speaking rate.
const DefaultRate = 1.0

// Presenter is the part of the display surface the bridge drives.
type Presenter interface {
	Prediction() string
	SetSpeechText(text string)
	ShowAsset(path string)
	HideAsset()
	DisableListening()
	EnableListening()
}

// TranscriptResolver maps a recognized phrase to an animation.
type TranscriptResolver interface {
	ResolveTranscript(transcript string) (string, bool)
}

// Bridge connects speech capabilities to the display surface.
type Bridge struct {
	recognizer  SpeechRecognizer
	synthesizer SpeechSynthesizer
	resolver    TranscriptResolver
	view        Presenter
	rate        float64
	logger      zerolog.Logger

	mu           sync.Mutex
	listenOff    bool
	cancelSpeech context.CancelFunc
	utterance    uint64
	speaking     sync.WaitGroup
}

// NewBridge creates a Bridge. When the recognizer is unsupported the listen
// control is disabled on the surface straight away.
func NewBridge(rec SpeechRecognizer, synth SpeechSynthesizer, resolver TranscriptResolver, view Presenter, rate float64, logger zerolog.Logger) *Bridge {
	if rec == nil {
		rec = Unsupported{}
	}
	if synth == nil {
		synth = Unsupported{}
	}
	if rate <= 0 {
		rate = DefaultRate
	}

	b := &Bridge{
		recognizer:  rec,
		synthesizer: synth,
		resolver:    resolver,
		view:        view,
		rate:        rate,
		logger:      logger.With().Str("component", "voice").Logger(),
	}

	if !rec.Supported() {
		b.listenOff = true
		view.DisableListening()
	}
	return b
}

// SetListenAvailable enables or disables the listen control. It is driven by
// capability reports from the place recognition runs, such as a browser.
func (b *Bridge) SetListenAvailable(available bool) {
	if available && !b.recognizer.Supported() {
		return
	}

	b.mu.Lock()
	b.listenOff = !available
	b.mu.Unlock()

	if available {
		b.view.EnableListening()
	} else {
		b.view.DisableListening()
	}
}

// ListenAvailable reports whether StartListening can start a session.
func (b *Bridge) ListenAvailable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.listenOff
}

// StartListening begins a recognition session. It does nothing and returns
// ErrUnsupported when recognition is unavailable.
func (b *Bridge) StartListening(ctx context.Context) error {
	if !b.recognizer.Supported() || !b.ListenAvailable() {
		return ErrUnsupported
	}

	b.view.SetSpeechText(display.ListeningText)
	if err := b.recognizer.Start(ctx, b); err != nil {
		b.OnRecognitionError(err)
		return err
	}
	return nil
}

// OnTranscript shows the transcript and the animation it maps to.
func (b *Bridge) OnTranscript(text string) {
	b.logger.Info().Str("transcript", text).Msg("speech recognized")
	b.view.SetSpeechText(text)

	path, ok := b.resolver.ResolveTranscript(text)
	if !ok {
		b.view.HideAsset()
		b.logger.Info().Msg("no asset mapped for spoken text")
		return
	}
	b.view.ShowAsset(path)
}

// OnRecognitionError shows a fixed message for a failed session. When the
// recognizer turns out to be unsupported, the listen control is disabled
// instead.
func (b *Bridge) OnRecognitionError(err error) {
	if errors.Is(err, ErrUnsupported) {
		b.logger.Warn().Err(err).Msg("speech recognition unavailable")
		b.SetListenAvailable(false)
		b.view.SetSpeechText("")
		return
	}
	b.logger.Warn().Err(err).Msg("speech recognition error")
	b.view.SetSpeechText(display.NotUnderstoodText)
}

// SpeakPrediction speaks the displayed prediction, cancelling any utterance
// still in progress. It reports whether an utterance was started; the
// placeholder and empty text are never spoken.
func (b *Bridge) SpeakPrediction(ctx context.Context) bool {
	text := b.view.Prediction()
	if text == "" || text == display.Placeholder {
		return false
	}
	return b.Speak(ctx, text)
}

// Speak cancels any utterance in progress and speaks text in the background.
// Synthesis failures are logged only.
func (b *Bridge) Speak(ctx context.Context, text string) bool {
	if !b.synthesizer.Supported() {
		metrics.Utterances.WithLabelValues("unsupported").Inc()
		b.logger.Warn().Err(ErrUnsupported).Msg("speech synthesis unavailable")
		return false
	}

	speakCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	b.mu.Lock()
	if b.cancelSpeech != nil {
		b.cancelSpeech()
	}
	b.cancelSpeech = cancel
	b.utterance++
	id := b.utterance
	b.mu.Unlock()

	b.speaking.Add(1)
	go func() {
		defer b.speaking.Done()
		defer b.finish(id, cancel)

		err := b.synthesizer.Speak(speakCtx, text, b.rate)
		switch {
		case err == nil:
			metrics.Utterances.WithLabelValues("ok").Inc()
		case errors.Is(err, context.Canceled):
			metrics.Utterances.WithLabelValues("canceled").Inc()
		default:
			metrics.Utterances.WithLabelValues("error").Inc()
			b.logger.Warn().Err(err).Str("text", text).Msg("speech synthesis error")
		}
	}()
	return true
}

// CancelSpeech stops the utterance in progress, if any.
func (b *Bridge) CancelSpeech() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelSpeech != nil {
		b.cancelSpeech()
		b.cancelSpeech = nil
	}
}

// Wait blocks until every started utterance has returned.
func (b *Bridge) Wait() {
	b.speaking.Wait()
}

func (b *Bridge) finish(id uint64, cancel context.CancelFunc) {
	cancel()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.utterance == id {
		b.cancelSpeech = nil
	}
}
