// Package mood infers the assistant's emotional state from text.
//
// The local inferencer is a fixed, ordered list of (label, keywords)
// rules scanned in priority order; the first rule with a matching
// keyword wins. An optional remote analyzer can be layered on top via
// Chain, with the local rules as fallback when the remote fails.
package mood

import (
	"context"
	"strings"
)

// Label is an avatar emotion label.
type Label string

// The closed set of labels surfaces know how to render.
const (
	Happy     Label = "happy"
	Sad       Label = "sad"
	Surprised Label = "surprised"
	Angry     Label = "angry"
	Confused  Label = "confused"
	Excited   Label = "excited"
	Loving    Label = "loving"
	Tired     Label = "tired"
	Proud     Label = "proud"
	Nervous   Label = "nervous"
	Neutral   Label = "neutral"
)

// Default is the canonical label returned when no keyword matches or
// the input is empty.
const Default = Happy

// Transient moods shown while a turn is in flight. They are display
// states, not inference results.
const (
	Thinking Label = "thinking"
	Talking  Label = "talking"
)

// Valid reports whether l is in the closed label set.
func Valid(l Label) bool {
	switch l {
	case Happy, Sad, Surprised, Angry, Confused, Excited, Loving, Tired, Proud, Nervous, Neutral:
		return true
	}
	return false
}

// Normalize maps an arbitrary label string onto the closed set,
// falling back to Default for anything unrecognized.
func Normalize(s string) Label {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	if Valid(l) {
		return l
	}
	return Default
}

// Analyzer classifies text into an emotion label.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Label, error)
}

// Rule pairs a label with the keywords that select it.
type Rule struct {
	Label    Label
	Keywords []string
}

// Rules is an ordered rule list. Order is the priority order: when an
// utterance matches several rules, the earliest rule wins.
type Rules struct {
	rules []Rule
}

// NewRules builds an inferencer from an explicit rule list.
func NewRules(rules []Rule) *Rules {
	return &Rules{rules: rules}
}

// Default keyword rules. Keywords include expressive symbols alongside
// words; matching is case-insensitive substring containment.
var defaultRules = []Rule{
	{Happy, []string{"happy", "great", "wonderful", "excellent", "good", "amazing", "awesome", "beautiful", "fantastic", "haha", "hehe", "yay", "😊", "😄"}},
	{Sad, []string{"sad", "sorry", "bad", "terrible", "awful", "hate", "disappointment", "cry", "depressed", "unhappy", "😢", "😭"}},
	{Surprised, []string{"wow", "amazing", "surprised", "really", "seriously", "no way", "incredible", "unbelievable", "wait", "what", "😮", "🤩"}},
	{Angry, []string{"angry", "frustrated", "mad", "furious", "hate", "terrible", "disgusting", "awful", "😠", "🤬"}},
	{Confused, []string{"what", "confused", "how", "why", "unclear", "don't understand", "huh", "pardon", "🤔", "😕"}},
	{Excited, []string{"excited", "yay", "awesome", "can't wait", "amazing", "incredible", "🎉", "😃", "🤩"}},
	{Loving, []string{"love", "like", "appreciate", "grateful", "thank you", "thanks", "adore", "❤️", "💕"}},
	{Tired, []string{"tired", "sleepy", "exhausted", "drain", "😴", "😪"}},
	{Proud, []string{"proud", "accomplished", "did it", "success", "achieved", "🏆", "😎"}},
	{Nervous, []string{"nervous", "worried", "anxiety", "scared", "afraid", "fear", "😰", "😟"}},
}

// NewDefaultRules returns the standard rule set in its fixed priority
// order: happy, sad, surprised, angry, confused, excited, loving,
// tired, proud, nervous.
func NewDefaultRules() *Rules {
	return NewRules(defaultRules)
}

// Infer returns the label of the first rule with a keyword contained
// in text. It is deterministic, total and side-effect-free: empty or
// unmatched input returns Default, never an error.
func (r *Rules) Infer(text string) Label {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return Default
	}

	for _, rule := range r.rules {
		for _, kw := range rule.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(lower, kw) {
				return rule.Label
			}
		}
	}

	return Default
}

// Analyze implements Analyzer. It never fails.
func (r *Rules) Analyze(_ context.Context, text string) (Label, error) {
	return r.Infer(text), nil
}

// Verify Rules implements Analyzer at compile time.
var _ Analyzer = (*Rules)(nil)
