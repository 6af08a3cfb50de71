package api

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/planner"
	"alcyxob/fitness-dashboard/internal/settings"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// LocalHandler serves state kept in the local key-value store: settings,
// theme and the weekly planner. None of it needs the gateway.
type LocalHandler struct {
	settings *settings.Store
	theme    *settings.ThemeStore
	planner  *planner.Planner
}

func NewLocalHandler(st *settings.Store, theme *settings.ThemeStore, p *planner.Planner) *LocalHandler {
	return &LocalHandler{settings: st, theme: theme, planner: p}
}

type SettingsResponse struct {
	Settings domain.UserSettings `json:"settings"`
	Loaded   bool                `json:"loaded"`
}

type ThemeRequest struct {
	Theme string `json:"theme"`
}

type ThemeResponse struct {
	Theme domain.Theme `json:"theme"`
}

type PlannerResponse struct {
	Week    planner.Week    `json:"week"`
	Summary planner.Summary `json:"summary"`
}

type DayRequest struct {
	BodyWeight      *float64 `json:"bodyWeight"`
	ClearBodyWeight bool     `json:"clearBodyWeight"`
	Notes           *string  `json:"notes"`
}

func plannerResponse(w planner.Week) PlannerResponse {
	return PlannerResponse{Week: w, Summary: planner.Summarize(w)}
}

func (h *LocalHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, SettingsResponse{Settings: h.settings.Settings(), Loaded: h.settings.Loaded()})
}

// UpdateSettings merges the request over the stored record and saves it.
func (h *LocalHandler) UpdateSettings(c *gin.Context) {
	var patch settings.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	next, err := h.settings.ApplyPatch(c.Request.Context(), patch)
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, settings.ErrInvalidSettings) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Could not save settings")
		}
		return
	}
	c.JSON(http.StatusOK, SettingsResponse{Settings: next, Loaded: h.settings.Loaded()})
}

func (h *LocalHandler) GetTheme(c *gin.Context) {
	c.JSON(http.StatusOK, ThemeResponse{Theme: h.theme.Theme()})
}

func (h *LocalHandler) SetTheme(c *gin.Context) {
	var req ThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.theme.Set(c.Request.Context(), domain.ParseTheme(req.Theme)); err != nil {
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "Could not save theme")
		return
	}
	c.JSON(http.StatusOK, ThemeResponse{Theme: h.theme.Theme()})
}

func (h *LocalHandler) GetPlanner(c *gin.Context) {
	c.JSON(http.StatusOK, plannerResponse(h.planner.Week()))
}

func (h *LocalHandler) AddPlannerEntry(c *gin.Context) {
	var req planner.Entry
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	entry, err := h.planner.AddEntry(c.Request.Context(), c.Param("day"), req)
	if err != nil {
		h.abortWithPlannerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *LocalHandler) RemovePlannerEntry(c *gin.Context) {
	week, err := h.planner.RemoveEntry(c.Request.Context(), c.Param("day"), c.Param("entryId"))
	if err != nil {
		h.abortWithPlannerError(c, err)
		return
	}
	c.JSON(http.StatusOK, plannerResponse(week))
}

// UpdatePlannerDay sets the body weight and/or notes of one day.
func (h *LocalHandler) UpdatePlannerDay(c *gin.Context) {
	var req DayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	ctx := c.Request.Context()
	day := c.Param("day")
	week := h.planner.Week()
	var err error
	if req.BodyWeight != nil || req.ClearBodyWeight {
		if week, err = h.planner.SetBodyWeight(ctx, day, req.BodyWeight); err != nil {
			h.abortWithPlannerError(c, err)
			return
		}
	}
	if req.Notes != nil {
		if week, err = h.planner.SetNotes(ctx, day, *req.Notes); err != nil {
			h.abortWithPlannerError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, plannerResponse(week))
}

func (h *LocalHandler) SetPlannerTargets(c *gin.Context) {
	var req planner.Targets
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	week, err := h.planner.SetTargets(c.Request.Context(), req)
	if err != nil {
		h.abortWithPlannerError(c, err)
		return
	}
	c.JSON(http.StatusOK, plannerResponse(week))
}

func (h *LocalHandler) ResetPlanner(c *gin.Context) {
	week, err := h.planner.Reset(c.Request.Context())
	if err != nil {
		h.abortWithPlannerError(c, err)
		return
	}
	c.JSON(http.StatusOK, plannerResponse(week))
}

func (h *LocalHandler) abortWithPlannerError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, planner.ErrUnknownDay):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, planner.ErrInvalidEntry):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Could not save week plan")
	}
}
