package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Envologia/unimatch-ethio/internal/domain/enums"
	"github.com/Envologia/unimatch-ethio/internal/domain/model"
	pgrepo "github.com/Envologia/unimatch-ethio/internal/repo/postgres"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrTargetNotFound = errors.New("reported user not found")
	ErrReportNotFound = errors.New("report not found")
)

type Store interface {
	Create(ctx context.Context, reporterID, targetID int64, reason string) (model.Report, error)
	CountAgainst(ctx context.Context, targetID int64) (int, error)
	ListByStatus(ctx context.Context, status enums.ReportStatus, limit int) ([]model.Report, error)
	UpdateStatus(ctx context.Context, reportID int64, status enums.ReportStatus) (model.Report, error)
}

type UserStore interface {
	GetByID(ctx context.Context, userID int64) (model.User, error)
	UpdateFields(ctx context.Context, userID int64, patch pgrepo.UserPatch) (model.User, error)
}

type BlockStore interface {
	Upsert(ctx context.Context, actorID, targetID int64) error
}

type Events interface {
	ReportFiled(ctx context.Context, report model.Report)
	UserAutoHidden(ctx context.Context, userID int64, reportCount int)
}

type Config struct {
	AutoHideThreshold int
}

type Dependencies struct {
	Store  Store
	Users  UserStore
	Blocks BlockStore
	Events Events
}

type Service struct {
	store  Store
	users  UserStore
	blocks BlockStore
	events Events
	cfg    Config
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.AutoHideThreshold <= 0 {
		cfg.AutoHideThreshold = 3
	}

	return &Service{
		store:  deps.Store,
		users:  deps.Users,
		blocks: deps.Blocks,
		events: deps.Events,
		cfg:    cfg,
	}
}

// Submit files the report, blocks the pair so they stop seeing each other,
// and hides the target once the accumulated report count reaches the
// threshold. Moderators still review every report by hand.
func (s *Service) Submit(ctx context.Context, reporterID, targetID int64, reason string) (model.Report, error) {
	if reporterID <= 0 || targetID <= 0 || reporterID == targetID {
		return model.Report{}, ErrValidation
	}
	if strings.TrimSpace(reason) == "" {
		return model.Report{}, ErrValidation
	}
	if s.store == nil || s.users == nil || s.blocks == nil {
		return model.Report{}, fmt.Errorf("report dependencies are not configured")
	}

	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.Report{}, ErrTargetNotFound
		}
		return model.Report{}, fmt.Errorf("load reported user: %w", err)
	}

	report, err := s.store.Create(ctx, reporterID, targetID, reason)
	if err != nil {
		return model.Report{}, fmt.Errorf("file report: %w", err)
	}

	if err := s.blocks.Upsert(ctx, reporterID, targetID); err != nil {
		return model.Report{}, fmt.Errorf("block reported pair: %w", err)
	}

	count, err := s.store.CountAgainst(ctx, targetID)
	if err != nil {
		return model.Report{}, fmt.Errorf("count reports against target: %w", err)
	}

	if count >= s.cfg.AutoHideThreshold {
		visible := false
		if _, err := s.users.UpdateFields(ctx, targetID, pgrepo.UserPatch{Visible: &visible}); err != nil && !errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.Report{}, fmt.Errorf("hide reported user: %w", err)
		}
		if s.events != nil {
			s.events.UserAutoHidden(ctx, targetID, count)
		}
	}

	if s.events != nil {
		s.events.ReportFiled(ctx, report)
	}

	return report, nil
}

// Block hides the pair from each other without filing a report.
func (s *Service) Block(ctx context.Context, actorID, targetID int64) error {
	if actorID <= 0 || targetID <= 0 || actorID == targetID {
		return ErrValidation
	}
	if s.blocks == nil {
		return fmt.Errorf("report dependencies are not configured")
	}

	if err := s.blocks.Upsert(ctx, actorID, targetID); err != nil {
		return fmt.Errorf("block pair: %w", err)
	}

	return nil
}

func (s *Service) ListPending(ctx context.Context, limit int) ([]model.Report, error) {
	if s.store == nil {
		return nil, fmt.Errorf("report dependencies are not configured")
	}

	reports, err := s.store.ListByStatus(ctx, enums.ReportStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending reports: %w", err)
	}

	return reports, nil
}

// Resolve moves a report to reviewed or resolved.
func (s *Service) Resolve(ctx context.Context, reportID int64, status enums.ReportStatus) (model.Report, error) {
	if reportID <= 0 {
		return model.Report{}, ErrValidation
	}
	if status != enums.ReportStatusReviewed && status != enums.ReportStatusResolved {
		return model.Report{}, ErrValidation
	}
	if s.store == nil {
		return model.Report{}, fmt.Errorf("report dependencies are not configured")
	}

	report, err := s.store.UpdateStatus(ctx, reportID, status)
	if err != nil {
		if errors.Is(err, pgrepo.ErrReportNotFound) {
			return model.Report{}, ErrReportNotFound
		}
		return model.Report{}, fmt.Errorf("update report status: %w", err)
	}

	return report, nil
}
