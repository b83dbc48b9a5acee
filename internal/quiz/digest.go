package quiz

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Hasher turns answers into salted digests for equality comparison.
// The salt is a single process-wide value: two questions with the same
// correct answer share a digest.
type Hasher struct {
	salt string
}

func NewHasher(salt string) *Hasher { return &Hasher{salt: salt} }

// Digest canonicalizes an answer and returns the hex SHA-256 of the
// canonical form concatenated with the salt. A multi-valued selection
// is sorted before serialization, so {A,B} and {B,A} hash identically.
// A scalar answer is trimmed and lowercased.
func (h *Hasher) Digest(answer any) string {
	var canon string
	if vals, ok := toStringSlice(answer); ok {
		sorted := append([]string(nil), vals...)
		sort.Strings(sorted)
		b, _ := json.Marshal(sorted)
		canon = string(b)
	} else {
		canon = strings.ToLower(strings.TrimSpace(fmt.Sprint(answer)))
	}
	sum := sha256.Sum256([]byte(canon + h.salt))
	return hex.EncodeToString(sum[:])
}

// KeyDigest hashes the stored correct-answer set the same way a
// matching submission will be hashed: multi-choice keys as a set,
// single-choice and text keys as their one scalar value.
func (h *Hasher) KeyDigest(questionType string, correct []string) string {
	if questionType == TypeMultipleChoice {
		return h.Digest(correct)
	}
	if len(correct) == 0 {
		return h.Digest("")
	}
	return h.Digest(correct[0])
}

func toStringSlice(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// emptyAnswer reports whether a submitted value counts as no answer.
// An empty answer scores zero, never an error.
func emptyAnswer(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}
