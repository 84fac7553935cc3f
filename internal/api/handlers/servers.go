package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/queryshield/a2sproxy/internal/api/models"
)

// List godoc
// @Summary List configured servers
// @Description Returns online/offline state, failure streak, and cache ages for every configured game server
// @Tags servers
// @Produce json
// @Success 200 {object} models.ServerListResponse
// @Security ApiKeyAuth
// @Router /servers [get]
func (h *Handler) List(c *gin.Context) {
	statuses := h.manager.Status()
	resp := models.ServerListResponse{Servers: make([]models.ServerStatus, 0, len(statuses))}
	for _, s := range statuses {
		caches := make([]models.CacheStatus, 0, len(s.Caches))
		for _, ca := range s.Caches {
			cs := models.CacheStatus{Key: ca.Key, Populated: ca.Fresh}
			if ca.Fresh {
				cs.AgeMs = ca.Age.Milliseconds()
			}
			caches = append(caches, cs)
		}
		resp.Servers = append(resp.Servers, models.ServerStatus{
			Name:             s.Name,
			Online:           s.Online,
			ConsecutiveFails: s.ConsecutiveFails,
			Caches:           caches,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// History godoc
// @Summary Recent health transitions for one server
// @Description Returns up to `limit` (default 50) most recent online/offline transitions, newest first
// @Tags servers
// @Produce json
// @Param name path string true "server name"
// @Param limit query int false "max events to return"
// @Success 200 {object} models.ServerHistoryResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /servers/{name}/history [get]
func (h *Handler) History(c *gin.Context) {
	name := c.Param("name")
	if !h.manager.HasServer(name) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "no such server: " + name})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := h.manager.History(c.Request.Context(), name, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}

	resp := models.ServerHistoryResponse{Name: name, Events: make([]models.HealthEventEntry, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, models.HealthEventEntry{
			Transition: string(e.Transition),
			OccurredAt: e.OccurredAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh godoc
// @Summary Nudge a server's refresh loops
// @Description Best-effort request to refresh caches sooner than their configured lifetime. Not a guaranteed immediate refresh.
// @Tags servers
// @Produce json
// @Param name path string true "server name"
// @Success 202 {object} models.RefreshResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /servers/{name}/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	name := c.Param("name")
	if !h.manager.HasServer(name) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "no such server: " + name})
		return
	}
	acknowledged := h.manager.Nudge(name)
	c.JSON(http.StatusAccepted, models.RefreshResponse{Name: name, Acknowledged: acknowledged})
}
