package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/dsr-service/internal/model"
	"github.com/iliyamo/dsr-service/internal/repository"
)

// Pagination bounds for ListReports.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// ReportStore is the persistence the report service needs.  Create and
// Update must apply the daily cap atomically with the write.
type ReportStore interface {
	CreateWithinDailyLimit(ctx context.Context, rec *model.DSR) error
	GetForUser(ctx context.Context, userID, id uint64) (model.DSR, error)
	Update(ctx context.Context, userID, id uint64, hours float64, description string, enforceDailyCap bool) (model.DSR, error)
	List(ctx context.Context, q repository.DSRQuery) ([]model.DSR, int64, error)
}

// ReportService manages a user's daily status reports.
type ReportService struct {
	reports            ReportStore
	enforceCapOnUpdate bool
	log                *zap.Logger
}

// NewReportService builds the service.  When enforceCapOnUpdate is false an
// update only checks the single record against the cap, not the day's total.
func NewReportService(reports ReportStore, enforceCapOnUpdate bool, log *zap.Logger) *ReportService {
	return &ReportService{reports: reports, enforceCapOnUpdate: enforceCapOnUpdate, log: log.Named("dsr")}
}

// NewReport is the payload of a report submission.
type NewReport struct {
	Project       string  `json:"project"`
	Date          string  `json:"date"`
	EstimatedHour float64 `json:"estimatedHour"`
	Description   string  `json:"description"`
}

// ReportUpdate is the payload of a report edit.
type ReportUpdate struct {
	ID            uint64  `json:"id"`
	EstimatedHour float64 `json:"estimatedHour"`
	Description   string  `json:"description"`
}

// ListFilter selects one page of a user's reports.  The date range applies
// only when both bounds are set.
type ListFilter struct {
	Start *model.Date
	End   *model.Date
	Page  int
	Limit int
}

func (s *ReportService) CreateReport(ctx context.Context, userID uint64, in NewReport) (model.DSR, error) {
	log := s.log.With(zap.Uint64("user_id", userID), zap.String("date", in.Date))
	project := strings.TrimSpace(in.Project)
	desc := strings.TrimSpace(in.Description)
	if project == "" || desc == "" || strings.TrimSpace(in.Date) == "" {
		return model.DSR{}, badRequest(MsgDSRFields)
	}
	date, err := model.ParseDate(in.Date)
	if err != nil {
		return model.DSR{}, badRequest(MsgInvalidDate)
	}
	if err := checkHours(in.EstimatedHour); err != nil {
		log.Warn("dsr creation rejected", zap.Float64("hours", in.EstimatedHour), zap.String("reason", err.Message))
		return model.DSR{}, err
	}

	rec := model.DSR{
		UserID:        userID,
		Project:       project,
		Date:          date,
		EstimatedHour: in.EstimatedHour,
		Description:   desc,
	}
	switch err := s.reports.CreateWithinDailyLimit(ctx, &rec); {
	case errors.Is(err, repository.ErrDailyLimit):
		log.Warn("dsr creation failed: daily limit reached", zap.Float64("hours", in.EstimatedHour))
		return model.DSR{}, newError(KindBadRequest, MsgLimitReached, err)
	case errors.Is(err, repository.ErrNotFound):
		log.Warn("dsr creation failed: user not found")
		return model.DSR{}, notFound(MsgUserNotFound)
	case err != nil:
		log.Error("dsr creation failed", zap.Error(err))
		return model.DSR{}, internal(MsgDSRCreateFailed, err)
	}

	log.Info("dsr created", zap.Uint64("dsr_id", rec.ID), zap.Float64("hours", rec.EstimatedHour))
	return rec, nil
}

func (s *ReportService) UpdateReport(ctx context.Context, userID uint64, in ReportUpdate) (model.DSR, error) {
	log := s.log.With(zap.Uint64("user_id", userID), zap.Uint64("dsr_id", in.ID))
	desc := strings.TrimSpace(in.Description)
	if in.ID == 0 || desc == "" {
		return model.DSR{}, badRequest(MsgDSRUpdateFields)
	}

	// existence first so a foreign id reads as not found, not as a limit error
	if _, err := s.reports.GetForUser(ctx, userID, in.ID); errors.Is(err, repository.ErrNotFound) {
		log.Warn("dsr update failed: not found")
		return model.DSR{}, notFound(MsgDSRNotFound)
	} else if err != nil {
		log.Error("dsr update lookup failed", zap.Error(err))
		return model.DSR{}, internal(MsgDSRUpdateFailed, err)
	}
	if err := checkHours(in.EstimatedHour); err != nil {
		log.Warn("dsr update rejected", zap.Float64("hours", in.EstimatedHour), zap.String("reason", err.Message))
		return model.DSR{}, err
	}

	updated, err := s.reports.Update(ctx, userID, in.ID, in.EstimatedHour, desc, s.enforceCapOnUpdate)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		log.Warn("dsr update failed: not found")
		return model.DSR{}, notFound(MsgDSRNotFound)
	case errors.Is(err, repository.ErrDailyLimit):
		log.Warn("dsr update failed: daily limit reached", zap.Float64("hours", in.EstimatedHour))
		return model.DSR{}, newError(KindBadRequest, MsgLimitReached, err)
	case err != nil:
		log.Error("dsr update failed", zap.Error(err))
		return model.DSR{}, internal(MsgDSRUpdateFailed, err)
	}

	log.Info("dsr updated", zap.Float64("hours", updated.EstimatedHour))
	return updated, nil
}

func (s *ReportService) ListReports(ctx context.Context, userID uint64, f ListFilter) (model.DSRPage, error) {
	if f.Page == 0 {
		f.Page = DefaultPage
	}
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Page < 1 || f.Limit < 1 || f.Limit > MaxLimit {
		return model.DSRPage{}, badRequest(MsgInvalidPagination)
	}

	q := repository.DSRQuery{UserID: userID, Page: f.Page, Limit: f.Limit}
	if f.Start != nil && f.End != nil {
		q.Start, q.End = f.Start, f.End
	}
	records, total, err := s.reports.List(ctx, q)
	if err != nil {
		s.log.Error("dsr list failed", zap.Uint64("user_id", userID), zap.Error(err))
		return model.DSRPage{}, internal(MsgDSRFetchFailed, err)
	}
	s.log.Debug("dsr list", zap.Uint64("user_id", userID), zap.Int64("total", total), zap.Int("page", f.Page))
	return model.DSRPage{Total: total, Page: f.Page, Limit: f.Limit, Records: records}, nil
}

func (s *ReportService) GetReportByID(ctx context.Context, userID, id uint64) (model.DSR, error) {
	rec, err := s.reports.GetForUser(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("dsr not found", zap.Uint64("user_id", userID), zap.Uint64("dsr_id", id))
		return model.DSR{}, notFound(MsgDSRNotFound)
	}
	if err != nil {
		s.log.Error("dsr fetch failed", zap.Uint64("user_id", userID), zap.Uint64("dsr_id", id), zap.Error(err))
		return model.DSR{}, internal(MsgDSRFetchFailed, err)
	}
	return rec, nil
}

func checkHours(h float64) *Error {
	if h <= 0 {
		return badRequest(MsgHoursPositive)
	}
	if model.OverRecordCap(h) {
		return badRequest(MsgLimitReached)
	}
	return nil
}
