package voice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

const (
	espeakProgram = "espeak-ng"
	// baseWPM is the speaking rate at rate 1.0.
	baseWPM = 175
)

// CommandSynthesizer speaks through a local text-to-speech program. A
// canceled context kills the running program.
type CommandSynthesizer struct {
	program string
	args    func(text string, wpm int) []string
}

// NewCommandSynthesizer creates a synthesizer running program with the
// arguments built by args.
func NewCommandSynthesizer(program string, args func(text string, wpm int) []string) *CommandSynthesizer {
	return &CommandSynthesizer{program: program, args: args}
}

// NewESpeakSynthesizer speaks with espeak-ng.
func NewESpeakSynthesizer() *CommandSynthesizer {
	return NewCommandSynthesizer(espeakProgram, func(text string, wpm int) []string {
		return []string{"-s", strconv.Itoa(wpm), "--", text}
	})
}

// NewSaySynthesizer speaks with the macOS say command.
func NewSaySynthesizer() *CommandSynthesizer {
	return NewCommandSynthesizer("say", func(text string, wpm int) []string {
		return []string{"-r", strconv.Itoa(wpm), "--", text}
	})
}

// Supported reports whether the program is on PATH.
func (s *CommandSynthesizer) Supported() bool {
	_, err := exec.LookPath(s.program)
	return err == nil
}

// Speak runs the program and waits for it to finish.
func (s *CommandSynthesizer) Speak(ctx context.Context, text string, rate float64) error {
	if text == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, s.program, s.args(text, wordsPerMinute(rate))...)
	out, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s failed: %w: %s", s.program, err, msg)
		}
		return fmt.Errorf("%s failed: %w", s.program, err)
	}
	return nil
}

func wordsPerMinute(rate float64) int {
	if rate <= 0 {
		rate = 1
	}
	return int(math.Round(baseWPM * rate))
}

// LineRecognizer treats each line read from a stream as a final transcript.
// It stands in for a microphone on headless machines.
type LineRecognizer struct {
	mu        sync.Mutex
	scanner   *bufio.Scanner
	listening bool
}

// NewLineRecognizer reads transcripts from in.
func NewLineRecognizer(in io.Reader) *LineRecognizer {
	return &LineRecognizer{scanner: bufio.NewScanner(in)}
}

// Supported always reports true.
func (r *LineRecognizer) Supported() bool { return true }

// Start reads the next non-empty line in the background and hands it to h.
// A Start while a line is still pending is a no-op.
func (r *LineRecognizer) Start(ctx context.Context, h RecognitionHandler) error {
	r.mu.Lock()
	if r.listening {
		r.mu.Unlock()
		return nil
	}
	r.listening = true
	r.mu.Unlock()

	go func() {
		text, err := r.next()

		r.mu.Lock()
		r.listening = false
		r.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			h.OnRecognitionError(err)
			return
		}
		h.OnTranscript(text)
	}()
	return nil
}

func (r *LineRecognizer) next() (string, error) {
	for r.scanner.Scan() {
		if line := strings.TrimSpace(r.scanner.Text()); line != "" {
			return line, nil
		}
	}
	if err := r.scanner.Err(); err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return "", io.EOF
}
