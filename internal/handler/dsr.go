package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dsr-service/internal/model"
	"github.com/iliyamo/dsr-service/internal/service"
)

// Reports is the report service as seen by the HTTP layer.
type Reports interface {
	CreateReport(ctx context.Context, userID uint64, in service.NewReport) (model.DSR, error)
	UpdateReport(ctx context.Context, userID uint64, in service.ReportUpdate) (model.DSR, error)
	ListReports(ctx context.Context, userID uint64, f service.ListFilter) (model.DSRPage, error)
	GetReportByID(ctx context.Context, userID, id uint64) (model.DSR, error)
}

// DSRHandler serves the daily status report routes.  Every route requires
// JWTAuth.
type DSRHandler struct {
	svc Reports
}

func NewDSRHandler(svc Reports) *DSRHandler { return &DSRHandler{svc: svc} }

func (h *DSRHandler) Create(c echo.Context) error {
	uid, authed := currentUser(c)
	if !authed {
		return fail(c, http.StatusUnauthorized, service.MsgUnauthorized)
	}
	var req service.NewReport
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidBody)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), opTimeout)
	defer cancel()

	rec, err := h.svc.CreateReport(ctx, uid, req)
	if err != nil {
		return fromError(c, err, service.MsgDSRCreateFailed)
	}
	return ok(c, http.StatusCreated, service.MsgDSRCreated, rec)
}

func (h *DSRHandler) Update(c echo.Context) error {
	uid, authed := currentUser(c)
	if !authed {
		return fail(c, http.StatusUnauthorized, service.MsgUnauthorized)
	}
	var req service.ReportUpdate
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidBody)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), opTimeout)
	defer cancel()

	rec, err := h.svc.UpdateReport(ctx, uid, req)
	if err != nil {
		return fromError(c, err, service.MsgDSRUpdateFailed)
	}
	return ok(c, http.StatusOK, service.MsgDSRUpdated, rec)
}

func (h *DSRHandler) List(c echo.Context) error {
	uid, authed := currentUser(c)
	if !authed {
		return fail(c, http.StatusUnauthorized, service.MsgUnauthorized)
	}
	f, msg := parseListFilter(c)
	if msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), opTimeout)
	defer cancel()

	page, err := h.svc.ListReports(ctx, uid, f)
	if err != nil {
		return fromError(c, err, service.MsgDSRFetchFailed)
	}
	return ok(c, http.StatusOK, service.MsgDSRFetched, page)
}

func (h *DSRHandler) GetByID(c echo.Context) error {
	uid, authed := currentUser(c)
	if !authed {
		return fail(c, http.StatusUnauthorized, service.MsgUnauthorized)
	}
	id, err := strconv.ParseUint(c.Param("dsrId"), 10, 64)
	if err != nil || id == 0 {
		return fail(c, http.StatusBadRequest, service.MsgInvalidID)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), opTimeout)
	defer cancel()

	rec, err := h.svc.GetReportByID(ctx, uid, id)
	if err != nil {
		return fromError(c, err, service.MsgDSRFetchFailed)
	}
	return ok(c, http.StatusOK, service.MsgDSRFetched, rec)
}

// parseListFilter reads startDate, endDate, page and limit.  A non-empty
// second return value is the 400 message.
func parseListFilter(c echo.Context) (service.ListFilter, string) {
	f := service.ListFilter{Page: service.DefaultPage, Limit: service.DefaultLimit}

	var ok bool
	if f.Page, ok = positiveInt(c.QueryParam("page"), service.DefaultPage); !ok {
		return f, service.MsgInvalidPagination
	}
	if f.Limit, ok = positiveInt(c.QueryParam("limit"), service.DefaultLimit); !ok || f.Limit > service.MaxLimit {
		return f, service.MsgInvalidPagination
	}

	for _, p := range []struct {
		raw string
		dst **model.Date
	}{
		{c.QueryParam("startDate"), &f.Start},
		{c.QueryParam("endDate"), &f.End},
	} {
		if strings.TrimSpace(p.raw) == "" {
			continue
		}
		d, err := model.ParseDate(p.raw)
		if err != nil {
			return f, service.MsgInvalidDate
		}
		*p.dst = &d
	}
	return f, ""
}

func positiveInt(raw string, def int) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
