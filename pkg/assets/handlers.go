package assets

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/scrivanobooks/scrivano/pkg/errcodes"
	"github.com/scrivanobooks/scrivano/pkg/models"
)

type handler struct {
	assetService *Service
}

type importAssetResponse struct {
	Asset  *models.Asset `json:"asset"`
	Reused bool          `json:"reused"`
}

func (h *handler) importAsset(c echo.Context) error {
	ctx := c.Request().Context()

	params := ImportAssetPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	fh, ok := params.FormFiles["file"]
	if !ok {
		return errcodes.ValidationError("A file is required.")
	}

	f, err := fh.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return errors.WithStack(err)
	}

	opts := ImportOptions{
		Data:     data,
		MimeType: fh.Header.Get(echo.HeaderContentType),
	}

	if params.EntityType != nil {
		if params.EntityID == nil || params.Role == nil {
			return errcodes.ValidationError("Linking on import requires entity_type, entity_id, and role.")
		}
		opts.Link = &LinkAssetOptions{
			EntityType:  *params.EntityType,
			EntityID:    *params.EntityID,
			Role:        *params.Role,
			SortOrder:   params.SortOrder,
			Description: params.Description,
			Tags:        params.Tags,
		}
	}

	asset, reused, err := h.assetService.ImportLocalFile(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	status := http.StatusCreated
	if reused {
		status = http.StatusOK
	}

	return errors.WithStack(c.JSON(status, importAssetResponse{Asset: asset, Reused: reused}))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	asset, err := h.assetService.RetrieveAsset(ctx, RetrieveAssetOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, asset))
}

func (h *handler) content(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	asset, err := h.assetService.Resolve(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	c.Response().Header().Set(echo.HeaderContentType, asset.MimeType)
	return errors.WithStack(c.File(*asset.LocalPath))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	if err := h.assetService.DeleteAsset(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) createLink(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	params := CreateLinkPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	link, err := h.assetService.LinkAsset(ctx, LinkAssetOptions{
		AssetID:     id,
		EntityType:  params.EntityType,
		EntityID:    params.EntityID,
		Role:        params.Role,
		SortOrder:   params.SortOrder,
		Description: params.Description,
		Tags:        params.Tags,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, link))
}

func (h *handler) listLinks(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListLinksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	links, err := h.assetService.LinkedAssets(ctx, ListLinkedAssetsOptions{
		EntityType: params.EntityType,
		EntityID:   params.EntityID,
		Role:       params.Role,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Links []*models.AssetLink `json:"links"`
	}{links}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) unlink(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.assetService.Unlink(ctx, c.Param("linkId")); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
