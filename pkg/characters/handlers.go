package characters

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/scrivanobooks/scrivano/pkg/models"
)

type handler struct {
	characterService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateCharacterPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	character, err := h.characterService.CreateCharacter(ctx, CreateCharacterOptions{
		VersionID: params.VersionID,
		Name:      params.Name,
		Summary:   params.Summary,
		Traits:    params.Traits,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, character))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	character, err := h.characterService.RetrieveCharacter(ctx, c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, character))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListCharactersQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	characters, err := h.characterService.ListCharacters(ctx, params.VersionID)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Characters []*models.Character `json:"characters"`
	}{characters}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	params := UpdateCharacterPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	character, err := h.characterService.UpdateCharacter(ctx, c.Param("id"), UpdateCharacterOptions{
		Name:    params.Name,
		Summary: params.Summary,
		Traits:  params.Traits,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, character))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.characterService.DeleteCharacter(ctx, c.Param("id")); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
