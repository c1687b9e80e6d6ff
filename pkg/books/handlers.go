package books

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/scrivanobooks/scrivano/pkg/models"
)

type handler struct {
	bookService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.CreateBook(ctx, CreateBookOptions{
		Title:    params.Title,
		Subtitle: params.Subtitle,
		Author:   params.Author,
		Genre:    params.Genre,
		Language: params.Language,
		Synopsis: params.Synopsis,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID:              c.Param("id"),
		IncludeVersions: true,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	books, err := h.bookService.ListBooks(ctx, ListBooksOptions{
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Books []*models.Book `json:"books"`
	}{books}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.UpdateBook(ctx, c.Param("id"), UpdateBookOptions{
		Title:    params.Title,
		Subtitle: params.Subtitle,
		Author:   params.Author,
		Genre:    params.Genre,
		Language: params.Language,
		Synopsis: params.Synopsis,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.bookService.DeleteBook(ctx, c.Param("id")); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) createVersion(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateVersionPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	version, err := h.bookService.CreateVersion(ctx, CreateVersionOptions{
		BookID: c.Param("id"),
		Name:   params.Name,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, version))
}

func (h *handler) listVersions(c echo.Context) error {
	ctx := c.Request().Context()

	versions, err := h.bookService.ListVersions(ctx, c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Versions []*models.Version `json:"versions"`
	}{versions}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) updateVersion(c echo.Context) error {
	ctx := c.Request().Context()

	params := UpdateVersionPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	version, err := h.bookService.UpdateVersion(ctx, c.Param("versionId"), UpdateVersionOptions{
		Name:   params.Name,
		Status: params.Status,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, version))
}

func (h *handler) deleteVersion(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.bookService.DeleteVersion(ctx, c.Param("versionId")); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
