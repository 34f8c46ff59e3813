// Package display holds the user-facing state of a sign session: the current
// prediction, the shown animation and the speech readout.
package display

import (
	"sync"
)

// Fixed texts shown on the surface.
const (
	Placeholder       = "-"
	ListeningText     = "Listening..."
	NotUnderstoodText = "Could not understand speech"
	ListenLabel       = "Start Listening"
	UnsupportedLabel  = "Speech Recognition Unsupported"
)

// Snapshot is a copy of the surface state.
type Snapshot struct {
	Prediction    string `json:"prediction"`
	AssetSrc      string `json:"asset_src"`
	AssetVisible  bool   `json:"asset_visible"`
	SpeechText    string `json:"speech_text"`
	ListenEnabled bool   `json:"listen_enabled"`
	ListenLabel   string `json:"listen_label"`
}

// Surface is the mutable display state shared by the prediction and voice
// paths. Every change is pushed to subscribers in the order it was applied.
type Surface struct {
	mu          sync.Mutex
	state       Snapshot
	subscribers map[int]func(Snapshot)
	nextID      int
}

// NewSurface returns a surface showing the placeholder with no animation.
func NewSurface() *Surface {
	return &Surface{
		state: Snapshot{
			Prediction:    Placeholder,
			ListenEnabled: true,
			ListenLabel:   ListenLabel,
		},
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Subscribe registers fn for state changes and returns a function that
// removes it. fn is called with the surface lock held and must not block.
func (s *Surface) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Snapshot returns the current state.
func (s *Surface) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Prediction returns the displayed prediction text.
func (s *Surface) Prediction() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Prediction
}

// SetPrediction displays a prediction label.
func (s *Surface) SetPrediction(label string) {
	s.update(func(st *Snapshot) { st.Prediction = label })
}

// ShowPrediction displays a label together with its animation. An empty
// path hides the animation.
func (s *Surface) ShowPrediction(label, assetPath string) {
	s.update(func(st *Snapshot) {
		st.Prediction = label
		setAsset(st, assetPath)
	})
}

// ClearPrediction resets the label to the placeholder and hides the animation.
func (s *Surface) ClearPrediction() {
	s.update(func(st *Snapshot) {
		st.Prediction = Placeholder
		setAsset(st, "")
	})
}

// ShowAsset displays the animation at path.
func (s *Surface) ShowAsset(path string) {
	s.update(func(st *Snapshot) { setAsset(st, path) })
}

// HideAsset hides the animation, leaving its last source in place.
func (s *Surface) HideAsset() {
	s.update(func(st *Snapshot) { st.AssetVisible = false })
}

// SetSpeechText sets the speech readout.
func (s *Surface) SetSpeechText(text string) {
	s.update(func(st *Snapshot) { st.SpeechText = text })
}

// DisableListening marks speech recognition as unavailable.
func (s *Surface) DisableListening() {
	s.update(func(st *Snapshot) {
		st.ListenEnabled = false
		st.ListenLabel = UnsupportedLabel
	})
}

// EnableListening marks speech recognition as available again.
func (s *Surface) EnableListening() {
	s.update(func(st *Snapshot) {
		st.ListenEnabled = true
		st.ListenLabel = ListenLabel
	})
}

func setAsset(st *Snapshot, path string) {
	if path == "" {
		st.AssetVisible = false
		return
	}
	st.AssetSrc = path
	st.AssetVisible = true
}

func (s *Surface) update(apply func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apply(&s.state)
	snap := s.state
	for _, fn := range s.subscribers {
		fn(snap)
	}
}
