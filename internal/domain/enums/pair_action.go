package enums

import "strings"

// PairAction is the current state of a directional (actor, target) record in
// the pair history ledger. A pair has at most one current action; a newer
// action supersedes the previous one.
type PairAction string

const (
	PairActionLiked     PairAction = "liked"
	PairActionSkipped   PairAction = "skipped"
	PairActionMatched   PairAction = "matched"
	PairActionUnmatched PairAction = "unmatched"
)

func ParsePairAction(input string) (PairAction, bool) {
	switch PairAction(strings.ToLower(strings.TrimSpace(input))) {
	case PairActionLiked:
		return PairActionLiked, true
	case PairActionSkipped:
		return PairActionSkipped, true
	case PairActionMatched:
		return PairActionMatched, true
	case PairActionUnmatched:
		return PairActionUnmatched, true
	default:
		return "", false
	}
}
