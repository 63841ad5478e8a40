package rotationdb

import (
	"fmt"

	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
)

// Tables names the tables and event flag column backing one kind.
type Tables struct {
	Participants string
	Assignments  string
	EventFlag    string
}

// kindTables is the closed mapping from kind to schema. Table names never
// come from caller input.
var kindTables = map[rotationdomain.Kind]Tables{
	rotationdomain.KindMVP: {
		Participants: "players",
		Assignments:  "mvp_assignments",
		EventFlag:    "has_mvp",
	},
	rotationdomain.KindWinner: {
		Participants: "alliances",
		Assignments:  "winner_assignments",
		EventFlag:    "has_winner",
	},
}

// TablesFor returns the tables for kind.
func TablesFor(kind rotationdomain.Kind) (Tables, error) {
	t, ok := kindTables[kind]
	if !ok {
		return Tables{}, fmt.Errorf("%w: %q", rotationdomain.ErrUnknownKind, kind)
	}
	return t, nil
}
