package permission

import (
	"encoding/json"
	"strings"
)

// Level is an ordered access tier. The zero value is not a valid level; use LevelNone.
type Level string

const (
	LevelNone  Level = "NONE"
	LevelRead  Level = "READ"
	LevelWrite Level = "WRITE"
	LevelAdmin Level = "ADMIN"
)

var levelRanks = map[Level]int{
	LevelNone:  0,
	LevelRead:  1,
	LevelWrite: 2,
	LevelAdmin: 3,
}

// ParseLevel parses a level name case-insensitively. Unknown names resolve to LevelNone with ok=false.
func ParseLevel(s string) (Level, bool) {
	lvl := Level(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := levelRanks[lvl]; !ok {
		return LevelNone, false
	}
	return lvl, true
}

func (l Level) Valid() bool {
	_, ok := levelRanks[l]
	return ok
}

// Rank returns the position of the level in the total order. Invalid levels rank as LevelNone.
func (l Level) Rank() int {
	return levelRanks[l]
}

// AtLeast reports whether l grants everything required grants.
func (l Level) AtLeast(required Level) bool {
	return l.Rank() >= required.Rank()
}

func (l Level) String() string {
	if !l.Valid() {
		return string(LevelNone)
	}
	return string(l)
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l, _ = ParseLevel(s)
	return nil
}
