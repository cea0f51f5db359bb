package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/sitebuilder/internal/actions"
	"github.com/yanizio/sitebuilder/internal/apperr"
	"github.com/yanizio/sitebuilder/internal/auth"
	"github.com/yanizio/sitebuilder/internal/logger"
	"github.com/yanizio/sitebuilder/internal/metrics"
	"github.com/yanizio/sitebuilder/internal/revalidate"
	"github.com/yanizio/sitebuilder/internal/tenant"
)

const (
	maxBody        = 4 << 20
	publishTimeout = 2 * time.Second
)

// Envelope is the request body of POST /api/actions.
type Envelope struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type actionHandler struct {
	registry  *actions.Registry
	publisher revalidate.Publisher
	log       *zap.Logger
}

func (h *actionHandler) serve(w http.ResponseWriter, r *http.Request) {
	var env Envelope
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(&env); err != nil {
		writeError(w, apperr.Validation("malformed request body: "+err.Error()))
		return
	}
	if env.Action == "" {
		writeError(w, apperr.Validation("action is required",
			apperr.FieldError{Field: "action", Message: "required"}))
		return
	}

	appID, _ := tenant.AppID(r.Context())
	userID, _ := auth.UserID(r.Context())
	c := actions.Context{AppID: appID, UserID: userID}

	ctx := logger.WithContext(r.Context(), h.log)
	res, err := h.registry.Dispatch(ctx, c, env.Action, env.Data)
	if err != nil {
		writeError(w, err)
		return
	}

	if t, ok := res.(actions.Tagged); ok {
		h.revalidate(r.Context(), appID, t.CacheTags())
	}
	writeJSON(w, http.StatusOK, res)
}

// revalidate is best-effort; the action has already committed.
func (h *actionHandler) revalidate(ctx context.Context, appID string, tags []string) {
	if len(tags) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := h.publisher.Publish(ctx, appID, tags); err != nil {
		metrics.RevalidateErrorsTotal.Inc()
		h.log.Warn("revalidate publish failed",
			zap.String("app", appID), zap.Strings("tags", tags), zap.Error(err))
	}
}
