package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/lattice"
)

func (a *API) registerExpandRoutes(router forge.Router) error {
	g := router.Group("/v1/rebac", forge.WithGroupTags("rebac"))

	if err := g.POST("/expand", a.expand,
		forge.WithSummary("Expand permission"),
		forge.WithDescription("Lists every subject holding the permission on the object."),
		forge.WithOperationID("rebacExpand"),
		forge.WithRequestSchema(ExpandRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Subjects", ExpandResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/allowed", a.listAllowed,
		forge.WithSummary("List allowed resources"),
		forge.WithDescription("Lists every resource of a type the subject may reach with the permission."),
		forge.WithOperationID("rebacListAllowed"),
		forge.WithRequestSchema(ListAllowedRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Resource IDs", ListAllowedResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) expand(ctx forge.Context, req *ExpandRequest) (*ExpandResponse, error) {
	if req.Permission == "" || req.ObjectType == "" || req.ObjectID == "" {
		return nil, forge.BadRequest("permission, object_type, and object_id are required")
	}

	subjects, err := a.eng.Expand(ctx.Context(), &lattice.ExpandRequest{
		Permission: req.Permission,
		Object:     lattice.Object{Type: req.ObjectType, ID: req.ObjectID},
		ZoneID:     req.ZoneID,
	})
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ExpandResponse{Subjects: make([]SubjectInfo, len(subjects))}
	for i, s := range subjects {
		resp.Subjects[i] = SubjectInfo{Type: s.Type, ID: s.ID}
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) listAllowed(ctx forge.Context, req *ListAllowedRequest) (*ListAllowedResponse, error) {
	if req.SubjectID == "" || req.Permission == "" || req.ResourceType == "" {
		return nil, forge.BadRequest("subject_id, permission, and resource_type are required")
	}

	subjectType := req.SubjectType
	if subjectType == "" {
		subjectType = lattice.SubjectUser
	}

	ids, err := a.eng.ListAllowed(ctx.Context(),
		lattice.Subject{Type: subjectType, ID: req.SubjectID},
		req.Permission, req.ResourceType, req.ZoneID)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListAllowedResponse{ResourceIDs: ids}
	return resp, ctx.JSON(http.StatusOK, resp)
}
