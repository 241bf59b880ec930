package prompt

import (
	"fmt"
	"strings"

	"biblestudy/internal/services"
)

// Perspective is a theological framing for commentary requests.
type Perspective string

const (
	PerspectiveCatholic     Perspective = "catholic"
	PerspectiveEnduringWord Perspective = "enduring_word"
	PerspectiveHistorical   Perspective = "historical"
)

var perspectives = []Perspective{PerspectiveCatholic, PerspectiveEnduringWord, PerspectiveHistorical}

// Perspectives lists every perspective in display order.
func Perspectives() []Perspective {
	out := make([]Perspective, len(perspectives))
	copy(out, perspectives)
	return out
}

// Instruction is the template placed ahead of the passage text.
func (p Perspective) Instruction() string {
	switch p {
	case PerspectiveCatholic:
		return "Drawing from Catholic tradition, saints, and Church Fathers, provide a theological commentary on the passage. Focus on sacramental, covenantal, and Christological themes."
	case PerspectiveEnduringWord:
		return "In the style of a clear, verse-by-verse evangelical commentary like David Guzik's Enduring Word, explain the meaning and application of the passage."
	case PerspectiveHistorical:
		return "Provide a theological commentary on the passage from the perspective of a key historical theologian (like Augustine, Aquinas, Luther, Calvin, or Wesley). Name the theologian and explain their likely interpretation based on their known theological commitments."
	default:
		return ""
	}
}

// Label is the human-readable name.
func (p Perspective) Label() string {
	switch p {
	case PerspectiveCatholic:
		return "Catholic Perspective"
	case PerspectiveEnduringWord:
		return "Enduring Word Style"
	case PerspectiveHistorical:
		return "Historical Theologian"
	default:
		return string(p)
	}
}

func (p Perspective) Valid() bool {
	return p.Instruction() != ""
}

func (p Perspective) String() string { return string(p) }

// ParsePerspective accepts the wire name, case-insensitively. Hyphens are
// treated as underscores so "enduring-word" works on the command line.
func ParsePerspective(raw string) (Perspective, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	p := Perspective(normalized)
	if !p.Valid() {
		names := make([]string, len(perspectives))
		for i, candidate := range perspectives {
			names[i] = string(candidate)
		}
		return "", services.Wrap(services.ErrValidation, "prompt", "parse perspective",
			fmt.Sprintf("unknown perspective %q; expected one of: %s", raw, strings.Join(names, ", ")), nil)
	}
	return p, nil
}
