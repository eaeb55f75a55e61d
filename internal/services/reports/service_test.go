package reports

import (
	"context"
	"errors"
	"testing"

	"github.com/Envologia/unimatch-ethio/internal/domain/enums"
	"github.com/Envologia/unimatch-ethio/internal/domain/model"
	pgrepo "github.com/Envologia/unimatch-ethio/internal/repo/postgres"
)

type reportStoreStub struct {
	reports map[int64]model.Report
	counts  map[int64]int
}

func (s *reportStoreStub) Create(_ context.Context, reporterID, targetID int64, reason string) (model.Report, error) {
	report := model.Report{
		ID:         int64(len(s.reports) + 1),
		ReporterID: reporterID,
		TargetID:   targetID,
		Reason:     reason,
		Status:     enums.ReportStatusPending,
	}
	s.reports[report.ID] = report
	s.counts[targetID]++
	return report, nil
}

func (s *reportStoreStub) CountAgainst(_ context.Context, targetID int64) (int, error) {
	return s.counts[targetID], nil
}

func (s *reportStoreStub) ListByStatus(_ context.Context, status enums.ReportStatus, _ int) ([]model.Report, error) {
	var out []model.Report
	for _, report := range s.reports {
		if report.Status == status {
			out = append(out, report)
		}
	}
	return out, nil
}

func (s *reportStoreStub) UpdateStatus(_ context.Context, reportID int64, status enums.ReportStatus) (model.Report, error) {
	report, ok := s.reports[reportID]
	if !ok {
		return model.Report{}, pgrepo.ErrReportNotFound
	}
	report.Status = status
	s.reports[reportID] = report
	return report, nil
}

type reportUserStub struct {
	users  map[int64]model.User
	hidden []int64
}

func (s *reportUserStub) GetByID(_ context.Context, userID int64) (model.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return user, nil
}

func (s *reportUserStub) UpdateFields(_ context.Context, userID int64, patch pgrepo.UserPatch) (model.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	if patch.Visible != nil {
		user.Visible = *patch.Visible
		if !user.Visible {
			s.hidden = append(s.hidden, userID)
		}
	}
	s.users[userID] = user
	return user, nil
}

type blockStoreStub struct {
	pairs [][2]int64
}

func (s *blockStoreStub) Upsert(_ context.Context, actorID, targetID int64) error {
	s.pairs = append(s.pairs, [2]int64{actorID, targetID})
	return nil
}

type reportEventsRecorder struct {
	filed      []int64
	autoHidden []int64
	lastCount  int
}

func (r *reportEventsRecorder) ReportFiled(_ context.Context, report model.Report) {
	r.filed = append(r.filed, report.ID)
}

func (r *reportEventsRecorder) UserAutoHidden(_ context.Context, userID int64, count int) {
	r.autoHidden = append(r.autoHidden, userID)
	r.lastCount = count
}

func newReportService(threshold int) (*Service, *reportStoreStub, *reportUserStub, *blockStoreStub, *reportEventsRecorder) {
	store := &reportStoreStub{reports: map[int64]model.Report{}, counts: map[int64]int{}}
	users := &reportUserStub{users: map[int64]model.User{
		2: {ID: 2, Visible: true},
	}}
	blocks := &blockStoreStub{}
	events := &reportEventsRecorder{}
	svc := NewService(Dependencies{Store: store, Users: users, Blocks: blocks, Events: events}, Config{AutoHideThreshold: threshold})
	return svc, store, users, blocks, events
}

func TestSubmitFilesReportAndBlocksPair(t *testing.T) {
	svc, store, users, blocks, events := newReportService(3)

	report, err := svc.Submit(context.Background(), 1, 2, "spam messages")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if report.Status != enums.ReportStatusPending {
		t.Fatalf("unexpected status: %s", report.Status)
	}
	if len(blocks.pairs) != 1 || blocks.pairs[0] != [2]int64{1, 2} {
		t.Fatalf("expected reporter-target block, got %+v", blocks.pairs)
	}
	if len(events.filed) != 1 {
		t.Fatalf("expected one filed event, got %d", len(events.filed))
	}
	if len(users.hidden) != 0 {
		t.Fatalf("target must stay visible below the threshold")
	}
	if store.counts[2] != 1 {
		t.Fatalf("unexpected report count: %d", store.counts[2])
	}
}

func TestSubmitAutoHidesAtThreshold(t *testing.T) {
	svc, _, users, _, events := newReportService(3)

	ctx := context.Background()
	for reporter := int64(10); reporter < 13; reporter++ {
		if _, err := svc.Submit(ctx, reporter, 2, "harassment"); err != nil {
			t.Fatalf("submit from %d: %v", reporter, err)
		}
	}

	if len(users.hidden) != 1 || users.hidden[0] != 2 {
		t.Fatalf("expected target 2 to be hidden once, got %v", users.hidden)
	}
	if users.users[2].Visible {
		t.Fatalf("target must be invisible after the third report")
	}
	if len(events.autoHidden) != 1 || events.autoHidden[0] != 2 {
		t.Fatalf("expected one auto-hide event for user 2, got %v", events.autoHidden)
	}
	if events.lastCount != 3 {
		t.Fatalf("unexpected report count in event: %d", events.lastCount)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _, _, _ := newReportService(3)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, 1, 1, "self"); !errors.Is(err, ErrValidation) {
		t.Fatalf("self report: expected ErrValidation, got %v", err)
	}
	if _, err := svc.Submit(ctx, 1, 2, "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank reason: expected ErrValidation, got %v", err)
	}
	if _, err := svc.Submit(ctx, 1, 99, "ghost"); !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("missing target: expected ErrTargetNotFound, got %v", err)
	}
}

func TestResolveRestrictsStatuses(t *testing.T) {
	svc, store, _, _, _ := newReportService(3)
	ctx := context.Background()

	report, err := svc.Submit(ctx, 1, 2, "spam")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	resolved, err := svc.Resolve(ctx, report.ID, enums.ReportStatusResolved)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != enums.ReportStatusResolved {
		t.Fatalf("unexpected status: %s", resolved.Status)
	}

	if _, err := svc.Resolve(ctx, report.ID, enums.ReportStatusPending); !errors.Is(err, ErrValidation) {
		t.Fatalf("resolving back to pending must fail, got %v", err)
	}
	if _, err := svc.Resolve(ctx, 99, enums.ReportStatusReviewed); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("unknown report: expected ErrReportNotFound, got %v", err)
	}

	if store.reports[report.ID].Status != enums.ReportStatusResolved {
		t.Fatalf("stored status changed unexpectedly: %s", store.reports[report.ID].Status)
	}
}

func TestBlockWithoutReport(t *testing.T) {
	svc, store, _, blocks, _ := newReportService(3)

	if err := svc.Block(context.Background(), 1, 2); err != nil {
		t.Fatalf("block: %v", err)
	}
	if len(blocks.pairs) != 1 {
		t.Fatalf("expected one block, got %d", len(blocks.pairs))
	}
	if len(store.reports) != 0 {
		t.Fatalf("block must not file a report")
	}
	if err := svc.Block(context.Background(), 1, 1); !errors.Is(err, ErrValidation) {
		t.Fatalf("self block: expected ErrValidation, got %v", err)
	}
}
