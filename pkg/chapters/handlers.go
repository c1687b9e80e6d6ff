package chapters

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/scrivanobooks/scrivano/pkg/models"
)

type handler struct {
	chapterService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateChapterPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	chapter, err := h.chapterService.CreateChapter(ctx, CreateChapterOptions{
		VersionID: params.VersionID,
		Title:     params.Title,
		Content:   params.Content,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, chapter))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	chapter, err := h.chapterService.RetrieveChapter(ctx, c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, chapter))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListChaptersQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	chapters, err := h.chapterService.ListChapters(ctx, params.VersionID)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Chapters []*models.Chapter `json:"chapters"`
	}{chapters}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	params := UpdateChapterPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	chapter, err := h.chapterService.UpdateChapter(ctx, c.Param("id"), UpdateChapterOptions{
		Title:   params.Title,
		Content: params.Content,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, chapter))
}

func (h *handler) reorder(c echo.Context) error {
	ctx := c.Request().Context()

	params := ReorderChaptersPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	chapters, err := h.chapterService.ReorderChapters(ctx, params.VersionID, params.Order)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Chapters []*models.Chapter `json:"chapters"`
	}{chapters}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.chapterService.DeleteChapter(ctx, c.Param("id")); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
