package api

import (
	"net/http"

	"github.com/xraph/forge"
)

func (a *API) registerHierarchyRoutes(router forge.Router) error {
	g := router.Group("/v1/hierarchy", forge.WithGroupTags("hierarchy"))

	return g.POST("/link", a.linkHierarchy,
		forge.WithSummary("Link hierarchy paths"),
		forge.WithDescription("Creates parent tuples for slash-separated resource paths, skipping edges that already exist."),
		forge.WithOperationID("linkHierarchy"),
		forge.WithRequestSchema(LinkHierarchyRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Link result", LinkHierarchyResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) linkHierarchy(ctx forge.Context, req *LinkHierarchyRequest) (*LinkHierarchyResponse, error) {
	if len(req.Paths) == 0 {
		return nil, forge.BadRequest("paths cannot be empty")
	}

	created, err := a.eng.EnsureParentTuplesBatch(ctx.Context(), req.Paths, req.ZoneID)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &LinkHierarchyResponse{Created: created}
	return resp, ctx.JSON(http.StatusOK, resp)
}
