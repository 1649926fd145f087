package api

import (
	models "KolTrack/internal/domain/models"
	"KolTrack/internal/usecase"
	xhttp "KolTrack/pkg/http"
	xlogger "KolTrack/pkg/logger"

	"github.com/labstack/echo/v4"
)

// TrackerEchoHandler exposes the tracker read API over Echo.
type TrackerEchoHandler struct {
	logger  *xlogger.Logger
	tracker *usecase.Tracker
}

func NewTrackerEchoHandler(logger *xlogger.Logger, tracker *usecase.Tracker) *TrackerEchoHandler {
	return &TrackerEchoHandler{logger: logger, tracker: tracker}
}

func (h *TrackerEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/leaderboard", h.Leaderboard)
	g.GET("/pnl", h.PnL)
	g.GET("/performance", h.Performance)
	g.GET("/balance", h.Balance)
	g.GET("/profile", h.Profile)
}

func (h *TrackerEchoHandler) Leaderboard(c echo.Context) error {
	req := &models.LeaderboardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	entries, err := h.tracker.GetLeaderboard(c.Request().Context(), req.Window, req.Limit)
	if err != nil {
		h.logger.Error("leaderboard usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if entries == nil {
		entries = []*models.LeaderboardEntry{}
	}
	return xhttp.ListResponse(c, entries, int64(len(entries)))
}

func (h *TrackerEchoHandler) PnL(c echo.Context) error {
	req := &models.PnLRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.tracker.ComputeRealizedPnL(c.Request().Context(), req.Participant, req.Asset)
	if err != nil {
		h.logger.Error("pnl usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if res == nil {
		return xhttp.NotFoundResponse(c, "no transactions for pair")
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *TrackerEchoHandler) Performance(c echo.Context) error {
	req := &models.PerformanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.tracker.ComputePerformance(c.Request().Context(), req.Participant, req.Window)
	if err != nil {
		h.logger.Error("performance usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if res == nil {
		return xhttp.NotFoundResponse(c, "no activity in window")
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *TrackerEchoHandler) Balance(c echo.Context) error {
	req := &models.BalanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.tracker.GetBalance(c.Request().Context(), req.Participant, req.Asset)
	if err != nil {
		h.logger.Error("balance usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *TrackerEchoHandler) Profile(c echo.Context) error {
	req := &models.ProfileRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.tracker.GetProfile(c.Request().Context(), req.Participant)
	if err != nil {
		h.logger.Error("profile usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if res == nil {
		return xhttp.NotFoundResponse(c, "no profile for participant")
	}
	return xhttp.SuccessResponse(c, res)
}
