// Quota HTTP handler.
//
// Exposes the read-only quota snapshot used by the chat UI to show remaining
// actions and the next reset. The endpoint never consumes a slot; polling it
// is free.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// QuotaResponse is the quota snapshot returned to the UI. A daily_limit of
// -1 means unlimited; can_use_chat mirrors whether the next action would be
// admitted.
type QuotaResponse struct {
	RemainingCount int    `json:"remaining_count"`
	DailyLimit     int    `json:"daily_limit"`
	ResetTime      string `json:"reset_time"`
	CanUseChat     bool   `json:"can_use_chat"`
	PlanName       string `json:"plan_name,omitempty"`
}

// GetQuota godoc
// @ID          getHubQuota
// @Summary     Current quota status
// @Description Returns the user's remaining daily actions, the plan limit, and the next reset time. Read-only; never consumes quota.
// @Tags        Hub
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {object}  handlers.QuotaResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /hub/quota [get]
func (h *Handlers) GetQuota(c *gin.Context) {
	st, err := h.quota.Peek(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, QuotaResponse{
		RemainingCount: st.RemainingCount,
		DailyLimit:     st.DailyLimit,
		ResetTime:      st.ResetTime.UTC().Format(time.RFC3339),
		CanUseChat:     st.CanUse,
		PlanName:       st.PlanName,
	})
}
