// Package avatar tracks the mood the companion's face is showing.
// Surfaces subscribe to changes and render the matching asset; the
// mapping ships here so every surface draws the same face.
package avatar

import (
	"sync"

	"github.com/bmolabs/companion/pkg/mood"
)

// faces maps each mood label to its face asset.
var faces = map[mood.Label]string{
	mood.Happy:     "Rosto-01.png",
	mood.Sad:       "Rosto-15.png",
	mood.Surprised: "Rosto-13.png",
	mood.Angry:     "Rosto-16.png",
	mood.Confused:  "Rosto-05.png",
	mood.Excited:   "Rosto-27.png",
	mood.Loving:    "Rosto-21.png",
	mood.Tired:     "Rosto-25.png",
	mood.Proud:     "Rosto-19.png",
	mood.Nervous:   "Rosto-23.png",
	mood.Neutral:   "Rosto-02.png",
	mood.Thinking:  "Rosto-02.png",
	mood.Talking:   "Rosto-03.png",
}

// Face returns the asset filename for a label, falling back to the
// default mood's face for unknown labels.
func Face(label mood.Label) string {
	if f, ok := faces[label]; ok {
		return f
	}
	return faces[mood.Default]
}

// State holds the currently displayed mood.
type State struct {
	mu        sync.Mutex
	current   mood.Label
	listeners []func(mood.Label)
}

// NewState creates an avatar state showing the default mood.
func NewState() *State {
	return &State{current: mood.Default}
}

// Current returns the displayed mood.
func (s *State) Current() mood.Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set switches the displayed mood. Transient labels (thinking,
// talking) are allowed; anything else unknown falls back to the
// default face. Listeners fire only on an actual change.
func (s *State) Set(label mood.Label) {
	if _, ok := faces[label]; !ok {
		label = mood.Default
	}

	s.mu.Lock()
	if label == s.current {
		s.mu.Unlock()
		return
	}
	s.current = label
	listeners := make([]func(mood.Label), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(label)
	}
}

// OnChange registers a listener called with each new mood.
func (s *State) OnChange(fn func(mood.Label)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
