package syncengine

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	engine *Engine
}

func (h *handler) syncNow(c echo.Context) error {
	h.engine.SyncNow()
	return errors.WithStack(c.NoContent(http.StatusAccepted))
}

func (h *handler) listConflicts(c echo.Context) error {
	ctx := c.Request().Context()

	conflicts, err := h.engine.ListConflicts(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Conflicts []ConflictSummary `json:"conflicts"`
	}{conflicts}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) resolveConflict(c echo.Context) error {
	ctx := c.Request().Context()

	params := ResolveConflictPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	rec, err := h.engine.ResolveConflict(ctx, params.EntityType, params.EntityID, params.Side)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, rec))
}
