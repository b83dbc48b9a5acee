package quiz_test

import (
	"testing"

	"github.com/dblearn/quizdesk/internal/quiz"
)

func TestDigestOrderIndependence(t *testing.T) {
	h := quiz.NewHasher("test-salt")

	a := h.Digest([]string{"A", "B"})
	b := h.Digest([]string{"B", "A"})
	if a != b {
		t.Fatalf("digests differ for reordered sets: %q vs %q", a, b)
	}
	// JSON-decoded submissions arrive as []any
	c := h.Digest([]any{"B", "A"})
	if a != c {
		t.Fatalf("[]any selection hashed differently: %q vs %q", a, c)
	}
}

func TestDigestScalarNormalization(t *testing.T) {
	h := quiz.NewHasher("test-salt")

	if h.Digest(" Select ") != h.Digest("select") {
		t.Fatalf("trim+lowercase normalization broken")
	}
	if h.Digest("select") == h.Digest("insert") {
		t.Fatalf("different answers must not collide")
	}
}

func TestDigestSaltMatters(t *testing.T) {
	a := quiz.NewHasher("salt-one").Digest("answer")
	b := quiz.NewHasher("salt-two").Digest("answer")
	if a == b {
		t.Fatalf("digest must depend on salt")
	}
}

func TestKeyDigestMatchesSubmissionForm(t *testing.T) {
	h := quiz.NewHasher("test-salt")

	// Single-choice keys are stored in scalar form so a scalar submission
	// can match.
	if h.KeyDigest(quiz.TypeSingleChoice, []string{"B"}) != h.Digest("B") {
		t.Fatalf("single-choice key digest must equal scalar digest")
	}
	if h.KeyDigest(quiz.TypeText, []string{"select * from users"}) != h.Digest("SELECT * FROM Users") {
		t.Fatalf("text key digest must match case-insensitively")
	}
	// Multi-choice keys are stored in set form.
	if h.KeyDigest(quiz.TypeMultipleChoice, []string{"A", "B"}) != h.Digest([]string{"B", "A"}) {
		t.Fatalf("multi-choice key digest must equal set digest")
	}
}
