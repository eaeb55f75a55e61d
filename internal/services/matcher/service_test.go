package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/Envologia/unimatch-ethio/internal/domain/enums"
	"github.com/Envologia/unimatch-ethio/internal/domain/model"
	pgrepo "github.com/Envologia/unimatch-ethio/internal/repo/postgres"
)

type pairKey struct {
	actor  int64
	target int64
}

type pairStoreStub struct {
	rows  map[pairKey]model.PairActionRecord
	locks int
}

func newPairStoreStub() *pairStoreStub {
	return &pairStoreStub{rows: map[pairKey]model.PairActionRecord{}}
}

func (s *pairStoreStub) LockPair(_ context.Context, _ pgx.Tx, _, _ int64) error {
	s.locks++
	return nil
}

func (s *pairStoreStub) Upsert(_ context.Context, _ pgx.Tx, actorID, targetID int64, action enums.PairAction) (model.PairActionRecord, error) {
	rec := model.PairActionRecord{ActorID: actorID, TargetID: targetID, Action: action}
	s.rows[pairKey{actorID, targetID}] = rec
	return rec, nil
}

func (s *pairStoreStub) GetCurrentForUpdate(_ context.Context, _ pgx.Tx, actorID, targetID int64) (model.PairActionRecord, error) {
	rec, ok := s.rows[pairKey{actorID, targetID}]
	if !ok {
		return model.PairActionRecord{}, pgrepo.ErrPairActionNotFound
	}
	return rec, nil
}

func (s *pairStoreStub) MarkBothMatched(_ context.Context, _ pgx.Tx, userID, otherID int64) error {
	return s.markBoth(userID, otherID, enums.PairActionMatched)
}

func (s *pairStoreStub) MarkBothUnmatched(_ context.Context, _ pgx.Tx, userID, otherID int64) error {
	return s.markBoth(userID, otherID, enums.PairActionUnmatched)
}

func (s *pairStoreStub) markBoth(userID, otherID int64, action enums.PairAction) error {
	for _, key := range []pairKey{{userID, otherID}, {otherID, userID}} {
		if rec, ok := s.rows[key]; ok {
			rec.Action = action
			s.rows[key] = rec
		}
	}
	return nil
}

type matchStoreStub struct {
	active map[pairKey]model.Match
	nextID int64
}

func newMatchStoreStub() *matchStoreStub {
	return &matchStoreStub{active: map[pairKey]model.Match{}}
}

func canonical(a, b int64) pairKey {
	if a > b {
		return pairKey{b, a}
	}
	return pairKey{a, b}
}

func (s *matchStoreStub) CreateActive(_ context.Context, _ pgx.Tx, userID, otherID int64) (model.Match, bool, error) {
	key := canonical(userID, otherID)
	if existing, ok := s.active[key]; ok {
		return existing, false, nil
	}

	s.nextID++
	match := model.Match{ID: s.nextID, UserA: key.actor, UserB: key.target, Status: enums.MatchStatusActive}
	s.active[key] = match
	return match, true, nil
}

func (s *matchStoreStub) SetUnmatched(_ context.Context, _ pgx.Tx, userID, otherID int64) (bool, error) {
	key := canonical(userID, otherID)
	if _, ok := s.active[key]; !ok {
		return false, nil
	}
	delete(s.active, key)
	return true, nil
}

type matcherUserStub struct {
	users map[int64]model.User
}

func (s *matcherUserStub) GetByID(_ context.Context, userID int64) (model.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return user, nil
}

type matcherBlockStub struct {
	pairs map[pairKey]bool
}

func (s *matcherBlockStub) Exists(_ context.Context, userID, otherID int64) (bool, error) {
	return s.pairs[canonical(userID, otherID)], nil
}

type matcherQuotaStub struct {
	consumed map[int64]int
	limit    int
}

func (s *matcherQuotaStub) ConsumeMatchAction(_ context.Context, _ pgx.Tx, userID int64) (int, error) {
	if s.limit > 0 && s.consumed[userID] >= s.limit {
		return 0, ErrQuotaExceeded
	}
	s.consumed[userID]++
	return s.consumed[userID], nil
}

type matcherEventsRecorder struct {
	formed [][2]int64
	ended  [][2]int64
}

func (r *matcherEventsRecorder) MatchFormed(_ context.Context, userA, userB int64) {
	r.formed = append(r.formed, [2]int64{userA, userB})
}

func (r *matcherEventsRecorder) MatchEnded(_ context.Context, userA, userB int64) {
	r.ended = append(r.ended, [2]int64{userA, userB})
}

type matcherFixture struct {
	svc     *Service
	pairs   *pairStoreStub
	matches *matchStoreStub
	blocks  *matcherBlockStub
	quota   *matcherQuotaStub
	events  *matcherEventsRecorder
}

func newMatcherFixture() *matcherFixture {
	f := &matcherFixture{
		pairs:   newPairStoreStub(),
		matches: newMatchStoreStub(),
		blocks:  &matcherBlockStub{pairs: map[pairKey]bool{}},
		quota:   &matcherQuotaStub{consumed: map[int64]int{}},
		events:  &matcherEventsRecorder{},
	}
	f.svc = NewService(Dependencies{
		PairStore:  f.pairs,
		MatchStore: f.matches,
		UserStore: &matcherUserStub{users: map[int64]model.User{
			1: {ID: 1, Visible: true},
			2: {ID: 2, Visible: true},
			3: {ID: 3, Visible: true},
		}},
		Blocks: f.blocks,
		Quota:  f.quota,
		Events: f.events,
	})
	f.svc.runTx = func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
		return fn(ctx, nil)
	}
	return f
}

func TestNormalizeChoice(t *testing.T) {
	cases := []struct {
		input string
		want  enums.PairAction
		ok    bool
	}{
		{"like", enums.PairActionLiked, true},
		{"LIKE", enums.PairActionLiked, true},
		{"  skip ", enums.PairActionSkipped, true},
		{"Skip", enums.PairActionSkipped, true},
		{"superlike", "", false},
		{"matched", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, err := normalizeChoice(tc.input)
		if tc.ok {
			if err != nil {
				t.Fatalf("normalize %q: %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("normalize %q: got %s want %s", tc.input, got, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrUnsupportedChoice) {
			t.Fatalf("normalize %q: expected ErrUnsupportedChoice, got %v", tc.input, err)
		}
	}
}

func TestDecideValidation(t *testing.T) {
	svc := NewService(Dependencies{})

	if _, err := svc.Decide(context.Background(), 0, 2, "like"); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero seeker: expected ErrValidation, got %v", err)
	}
	if _, err := svc.Decide(context.Background(), 1, 0, "like"); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero candidate: expected ErrValidation, got %v", err)
	}
	if _, err := svc.Decide(context.Background(), 7, 7, "like"); !errors.Is(err, ErrValidation) {
		t.Fatalf("self decision: expected ErrValidation, got %v", err)
	}
	if _, err := svc.Decide(context.Background(), 1, 2, "wink"); !errors.Is(err, ErrUnsupportedChoice) {
		t.Fatalf("unknown choice: expected ErrUnsupportedChoice, got %v", err)
	}
}

func TestUnmatchValidation(t *testing.T) {
	svc := NewService(Dependencies{})

	if err := svc.Unmatch(context.Background(), 0, 2); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero user: expected ErrValidation, got %v", err)
	}
	if err := svc.Unmatch(context.Background(), 3, 3); !errors.Is(err, ErrValidation) {
		t.Fatalf("self unmatch: expected ErrValidation, got %v", err)
	}
}

func TestMutualLikeCreatesSingleMatch(t *testing.T) {
	f := newMatcherFixture()
	ctx := context.Background()

	result, err := f.svc.Decide(ctx, 1, 2, "like")
	if err != nil {
		t.Fatalf("first like: %v", err)
	}
	if result.Matched {
		t.Fatalf("unilateral like must not match")
	}
	if len(f.events.formed) != 0 {
		t.Fatalf("no event expected yet: %+v", f.events.formed)
	}

	result, err = f.svc.Decide(ctx, 2, 1, "like")
	if err != nil {
		t.Fatalf("reciprocal like: %v", err)
	}
	if !result.Matched {
		t.Fatalf("mutual like must match")
	}
	if len(f.matches.active) != 1 {
		t.Fatalf("expected exactly one active match, got %d", len(f.matches.active))
	}
	if len(f.events.formed) != 1 || f.events.formed[0] != [2]int64{1, 2} {
		t.Fatalf("match event must fire exactly once: %+v", f.events.formed)
	}
	if f.pairs.locks == 0 {
		t.Fatalf("decide must lock the pair before reading it")
	}

	both := []pairKey{{1, 2}, {2, 1}}
	for _, key := range both {
		if f.pairs.rows[key].Action != enums.PairActionMatched {
			t.Fatalf("row %+v not marked matched: %s", key, f.pairs.rows[key].Action)
		}
	}
}

func TestRepeatedLikeDoesNotConsumeQuota(t *testing.T) {
	f := newMatcherFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Decide(ctx, 1, 2, "like"); err != nil {
			t.Fatalf("like %d: %v", i, err)
		}
	}

	if f.quota.consumed[1] != 1 {
		t.Fatalf("repeated like consumed quota %d times", f.quota.consumed[1])
	}
	if len(f.matches.active) != 0 {
		t.Fatalf("unilateral likes created a match")
	}
}

func TestRepeatedLikeResolvesExistingReciprocalLike(t *testing.T) {
	f := newMatcherFixture()
	ctx := context.Background()

	// Both directional likes recorded, no match row. This is the state two
	// perfectly overlapping like transactions can commit; the next like from
	// either side has to converge on the match.
	f.pairs.rows[pairKey{1, 2}] = model.PairActionRecord{ActorID: 1, TargetID: 2, Action: enums.PairActionLiked}
	f.pairs.rows[pairKey{2, 1}] = model.PairActionRecord{ActorID: 2, TargetID: 1, Action: enums.PairActionLiked}

	result, err := f.svc.Decide(ctx, 1, 2, "like")
	if err != nil {
		t.Fatalf("converging like: %v", err)
	}
	if !result.Matched {
		t.Fatalf("reciprocal liked rows must resolve to a match")
	}
	if len(f.matches.active) != 1 {
		t.Fatalf("expected one active match, got %d", len(f.matches.active))
	}
	if len(f.events.formed) != 1 {
		t.Fatalf("match event must fire exactly once: %+v", f.events.formed)
	}
	if f.quota.consumed[1] != 0 {
		t.Fatalf("repeating a recorded like must not consume quota, consumed %d", f.quota.consumed[1])
	}
}

func TestDecideAfterMatchIsNoop(t *testing.T) {
	f := newMatcherFixture()
	ctx := context.Background()

	if _, err := f.svc.Decide(ctx, 1, 2, "like"); err != nil {
		t.Fatalf("like: %v", err)
	}
	if _, err := f.svc.Decide(ctx, 2, 1, "like"); err != nil {
		t.Fatalf("reciprocal like: %v", err)
	}

	result, err := f.svc.Decide(ctx, 1, 2, "like")
	if err != nil {
		t.Fatalf("like after match: %v", err)
	}
	if !result.Matched {
		t.Fatalf("like after match must still report matched")
	}
	if len(f.events.formed) != 1 {
		t.Fatalf("second match event fired: %+v", f.events.formed)
	}
	if f.quota.consumed[1] != 1 {
		t.Fatalf("like after match consumed quota, total %d", f.quota.consumed[1])
	}
}

func TestSkipNeverCreatesMatch(t *testing.T) {
	f := newMatcherFixture()
	ctx := context.Background()

	if _, err := f.svc.Decide(ctx, 1, 2, "like"); err != nil {
		t.Fatalf("like: %v", err)
	}
	result, err := f.svc.Decide(ctx, 2, 1, "skip")
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if result.Matched {
		t.Fatalf("skip against a like must not match")
	}
	if len(f.matches.active) != 0 || len(f.events.formed) != 0 {
		t.Fatalf("skip produced a match or event")
	}
}

func TestUnmatchIsIdempotent(t *testing.T) {
	f := newMatcherFixture()
	ctx := context.Background()

	if _, err := f.svc.Decide(ctx, 1, 2, "like"); err != nil {
		t.Fatalf("like: %v", err)
	}
	if _, err := f.svc.Decide(ctx, 2, 1, "like"); err != nil {
		t.Fatalf("reciprocal like: %v", err)
	}

	if err := f.svc.Unmatch(ctx, 1, 2); err != nil {
		t.Fatalf("unmatch: %v", err)
	}
	if err := f.svc.Unmatch(ctx, 1, 2); err != nil {
		t.Fatalf("second unmatch: %v", err)
	}

	if len(f.matches.active) != 0 {
		t.Fatalf("active match survived unmatch")
	}
	if len(f.events.ended) != 1 {
		t.Fatalf("unmatch event must fire exactly once: %+v", f.events.ended)
	}
	for _, key := range []pairKey{{1, 2}, {2, 1}} {
		if f.pairs.rows[key].Action != enums.PairActionUnmatched {
			t.Fatalf("row %+v not marked unmatched: %s", key, f.pairs.rows[key].Action)
		}
	}
}

func TestDecideQuotaExceeded(t *testing.T) {
	f := newMatcherFixture()
	f.quota.limit = 1
	ctx := context.Background()

	if _, err := f.svc.Decide(ctx, 1, 2, "like"); err != nil {
		t.Fatalf("first like: %v", err)
	}
	if _, err := f.svc.Decide(ctx, 1, 3, "like"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestDecideRejectsBlockedPair(t *testing.T) {
	f := newMatcherFixture()
	f.blocks.pairs[canonical(1, 2)] = true

	if _, err := f.svc.Decide(context.Background(), 1, 2, "like"); !errors.Is(err, ErrCandidateNotFound) {
		t.Fatalf("expected ErrCandidateNotFound for blocked pair, got %v", err)
	}
}

func TestDecideMissingCandidate(t *testing.T) {
	f := newMatcherFixture()

	if _, err := f.svc.Decide(context.Background(), 1, 99, "like"); !errors.Is(err, ErrCandidateNotFound) {
		t.Fatalf("expected ErrCandidateNotFound, got %v", err)
	}
}
