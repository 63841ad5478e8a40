package rotationdomain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies one of the two rotating awards.
type Kind string

const (
	// KindMVP is awarded to one player per event.
	KindMVP Kind = "mvp"
	// KindWinner is awarded to one alliance per event.
	KindWinner Kind = "winner"
)

// ErrUnknownKind is returned by ParseKind for anything other than mvp or winner.
var ErrUnknownKind = errors.New("unknown award kind")

// Kinds lists every award kind in a stable order.
func Kinds() []Kind { return []Kind{KindMVP, KindWinner} }

// ParseKind accepts the canonical names plus the participant nouns used by
// operators ("player", "alliance").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mvp", "player", "players":
		return KindMVP, nil
	case "winner", "alliance", "alliances":
		return KindWinner, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return k == KindMVP || k == KindWinner }

// SupportsExclusion reports whether participants of this kind can be excluded.
// Only players can; alliances always stay in the rotation.
func (k Kind) SupportsExclusion() bool { return k == KindMVP }

// ParticipantNoun is the human name for a participant of this kind.
func (k Kind) ParticipantNoun() string {
	if k == KindWinner {
		return "alliance"
	}
	return "player"
}

func (k Kind) String() string { return string(k) }
