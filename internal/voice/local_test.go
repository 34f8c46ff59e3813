package voice

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu          sync.Mutex
	transcripts []string
	errs        []error
	done        chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{done: make(chan struct{}, 10)}
}

func (h *recordingHandler) OnTranscript(text string) {
	h.mu.Lock()
	h.transcripts = append(h.transcripts, text)
	h.mu.Unlock()
	h.done <- struct{}{}
}

func (h *recordingHandler) OnRecognitionError(err error) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
	h.done <- struct{}{}
}

func (h *recordingHandler) wait(t *testing.T) {
	t.Helper()
	select {
	case <-h.done:
	case <-time.After(time.Second):
		t.Fatal("handler was not called")
	}
}

func TestLineRecognizer(t *testing.T) {
	t.Run("delivers the next non-empty line", func(t *testing.T) {
		r := NewLineRecognizer(strings.NewReader("\n  \nhello world\nthank you\n"))
		h := newRecordingHandler()

		require.NoError(t, r.Start(context.Background(), h))
		h.wait(t)
		require.NoError(t, r.Start(context.Background(), h))
		h.wait(t)

		assert.Equal(t, []string{"hello world", "thank you"}, h.transcripts)
		assert.Empty(t, h.errs)
	})

	t.Run("end of input is a recognition error", func(t *testing.T) {
		r := NewLineRecognizer(strings.NewReader(""))
		h := newRecordingHandler()

		require.NoError(t, r.Start(context.Background(), h))
		h.wait(t)

		require.Len(t, h.errs, 1)
		assert.True(t, errors.Is(h.errs[0], io.EOF))
	})

	t.Run("start while listening is ignored", func(t *testing.T) {
		pr, pw := io.Pipe()
		r := NewLineRecognizer(pr)
		h := newRecordingHandler()

		require.NoError(t, r.Start(context.Background(), h))
		require.NoError(t, r.Start(context.Background(), h))

		_, err := pw.Write([]byte("yes\n"))
		require.NoError(t, err)
		h.wait(t)
		pw.Close()

		select {
		case <-h.done:
			t.Fatal("second start should not have produced a result")
		case <-time.After(50 * time.Millisecond):
		}
		assert.Equal(t, []string{"yes"}, h.transcripts)
	})
}

func TestCommandSynthesizer(t *testing.T) {
	t.Run("missing program is unsupported", func(t *testing.T) {
		s := NewCommandSynthesizer("signbridge-no-such-voice", func(string, int) []string { return nil })
		assert.False(t, s.Supported())
	})

	t.Run("passes text and rate", func(t *testing.T) {
		if _, err := exec.LookPath("true"); err != nil {
			t.Skip("true not available")
		}
		var gotText string
		var gotWPM int
		s := NewCommandSynthesizer("true", func(text string, wpm int) []string {
			gotText, gotWPM = text, wpm
			return nil
		})

		require.NoError(t, s.Speak(context.Background(), "hello", 2))
		assert.Equal(t, "hello", gotText)
		assert.Equal(t, 350, gotWPM)
	})

	t.Run("failure carries the program name", func(t *testing.T) {
		if _, err := exec.LookPath("false"); err != nil {
			t.Skip("false not available")
		}
		s := NewCommandSynthesizer("false", func(string, int) []string { return nil })

		err := s.Speak(context.Background(), "hello", 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "false failed")
	})

	t.Run("cancel stops the program", func(t *testing.T) {
		if _, err := exec.LookPath("sleep"); err != nil {
			t.Skip("sleep not available")
		}
		s := NewCommandSynthesizer("sleep", func(string, int) []string { return []string{"5"} })

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := s.Speak(ctx, "hello", 1)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("empty text is a no-op", func(t *testing.T) {
		s := NewCommandSynthesizer("signbridge-no-such-voice", func(string, int) []string { return nil })
		assert.NoError(t, s.Speak(context.Background(), "", 1))
	})
}

func TestWordsPerMinute(t *testing.T) {
	assert.Equal(t, 175, wordsPerMinute(1))
	assert.Equal(t, 88, wordsPerMinute(0.5))
	assert.Equal(t, 175, wordsPerMinute(0))
	assert.Equal(t, 175, wordsPerMinute(-3))
}

type recordingCommander struct {
	mu   sync.Mutex
	sent []Command
}

func (c *recordingCommander) Send(cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, cmd)
	return nil
}

func TestBrowserCapabilities(t *testing.T) {
	cmd := &recordingCommander{}
	rec := NewBrowserRecognizer(cmd, "")
	h := newRecordingHandler()

	require.NoError(t, rec.Start(context.Background(), h))
	rec.Deliver("hello")
	rec.Fail("no-speech")
	rec.Fail(ReasonUnsupported)

	assert.Equal(t, []Command{{Type: CommandListen, Lang: "en-US"}}, cmd.sent)
	assert.Equal(t, []string{"hello"}, h.transcripts)
	require.Len(t, h.errs, 2)
	assert.EqualError(t, h.errs[0], "no-speech")
	assert.NotErrorIs(t, h.errs[0], ErrUnsupported)
	assert.ErrorIs(t, h.errs[1], ErrUnsupported)

	synth := NewBrowserSynthesizer(cmd)
	require.NoError(t, synth.Speak(context.Background(), "YES", 1.5))
	assert.Equal(t, Command{Type: CommandSpeak, Text: "YES", Rate: 1.5}, cmd.sent[1])
}

func TestNewRecognizer(t *testing.T) {
	cmd := &recordingCommander{}

	tests := []struct {
		kind      string
		cmd       Commander
		supported bool
		wantErr   bool
	}{
		{kind: KindNone},
		{kind: ""},
		{kind: KindBrowser, cmd: cmd, supported: true},
		{kind: KindBrowser},
		{kind: KindAuto, cmd: cmd, supported: true},
		{kind: KindStdin, supported: true},
		{kind: "telepathy", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			rec, err := NewRecognizer(tt.kind, "en-US", tt.cmd, strings.NewReader(""))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.supported, rec.Supported())
		})
	}
}

func TestNewSynthesizer(t *testing.T) {
	s, err := NewSynthesizer(KindNone, nil)
	require.NoError(t, err)
	assert.False(t, s.Supported())

	s, err = NewSynthesizer(KindBrowser, &recordingCommander{})
	require.NoError(t, err)
	assert.IsType(t, &BrowserSynthesizer{}, s)

	s, err = NewSynthesizer(KindESpeak, nil)
	require.NoError(t, err)
	assert.IsType(t, &CommandSynthesizer{}, s)

	s, err = NewSynthesizer(KindAuto, &recordingCommander{})
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = NewSynthesizer("telepathy", nil)
	assert.Error(t, err)
}
