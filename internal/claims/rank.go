package claims

import "fmt"

// Rank is a trust level a claimant grants to another player. Ranks are
// totally ordered from least to most trusted.
type Rank int

const (
	RankEnemy Rank = iota
	RankPassive
	RankAlly
	RankFriend
	RankManager
	RankCoOwner
)

const (
	// StrangerRank is held by players without a friend entry.
	StrangerRank = RankPassive
	// MostRestrictiveRank is required for permissions with no configured default.
	MostRestrictiveRank = RankCoOwner
)

var rankNames = [...]string{
	RankEnemy:   "ENEMY",
	RankPassive: "PASSIVE",
	RankAlly:    "ALLY",
	RankFriend:  "FRIEND",
	RankManager: "MANAGER",
	RankCoOwner: "CO_OWNER",
}

func (r Rank) Valid() bool {
	return r >= RankEnemy && r <= RankCoOwner
}

func (r Rank) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Rank(%d)", int(r))
	}
	return rankNames[r]
}

func ParseRank(s string) (Rank, error) {
	for r, name := range rankNames {
		if name == s {
			return Rank(r), nil
		}
	}
	return 0, fmt.Errorf("unknown rank %q", s)
}

// CanPerform reports whether a player holding actual satisfies required.
func CanPerform(required, actual Rank) bool {
	return actual >= required
}

// Ranks lists every rank in increasing order.
func Ranks() []Rank {
	out := make([]Rank, 0, len(rankNames))
	for r := range rankNames {
		out = append(out, Rank(r))
	}
	return out
}
