package avatar

import (
	"testing"

	"github.com/bmolabs/companion/pkg/mood"
)

func TestState(t *testing.T) {
	t.Run("starts at default mood", func(t *testing.T) {
		s := NewState()
		if s.Current() != mood.Default {
			t.Errorf("current = %q, want %q", s.Current(), mood.Default)
		}
	})

	t.Run("set notifies on change only", func(t *testing.T) {
		s := NewState()
		var seen []mood.Label
		s.OnChange(func(l mood.Label) { seen = append(seen, l) })

		s.Set(mood.Sad)
		s.Set(mood.Sad)
		s.Set(mood.Thinking)
		s.Set(mood.Happy)

		want := []mood.Label{mood.Sad, mood.Thinking, mood.Happy}
		if len(seen) != len(want) {
			t.Fatalf("changes = %v, want %v", seen, want)
		}
		for i := range want {
			if seen[i] != want[i] {
				t.Errorf("change %d = %q, want %q", i, seen[i], want[i])
			}
		}
	})

	t.Run("unknown label falls back to default", func(t *testing.T) {
		s := NewState()
		s.Set(mood.Label("ecstatic"))
		if s.Current() != mood.Default {
			t.Errorf("current = %q, want %q", s.Current(), mood.Default)
		}
	})
}

func TestFace(t *testing.T) {
	if Face(mood.Talking) != "Rosto-03.png" {
		t.Errorf("talking face = %q", Face(mood.Talking))
	}
	if Face(mood.Label("bogus")) != Face(mood.Default) {
		t.Error("unknown label should map to the default face")
	}
}
