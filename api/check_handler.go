package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/lattice"
)

func (a *API) registerCheckRoutes(router forge.Router) error {
	g := router.Group("/v1/rebac", forge.WithGroupTags("rebac"))

	if err := g.POST("/check", a.check,
		forge.WithSummary("Permission check"),
		forge.WithDescription("Evaluates whether the subject holds the permission on the object."),
		forge.WithOperationID("rebacCheck"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Check result", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/enforce", a.enforce,
		forge.WithSummary("Enforce permission"),
		forge.WithDescription("Returns 200 if allowed, 403 if denied."),
		forge.WithOperationID("rebacEnforce"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Allowed", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/batch-check", a.batchCheck,
		forge.WithSummary("Batch permission check"),
		forge.WithDescription("Evaluates multiple permission checks in one request."),
		forge.WithOperationID("rebacBatchCheck"),
		forge.WithRequestSchema(BatchCheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Batch results", BatchCheckResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) check(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	if req.SubjectID == "" || req.Permission == "" || req.ObjectID == "" {
		return nil, forge.BadRequest("subject_id, permission, and object_id are required")
	}

	result, err := a.eng.Check(ctx.Context(), toCheckRequest(req))
	if err != nil {
		return nil, mapError(err)
	}

	resp := toCheckResponse(result)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) enforce(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	if req.SubjectID == "" || req.Permission == "" || req.ObjectID == "" {
		return nil, forge.BadRequest("subject_id, permission, and object_id are required")
	}

	result, err := a.eng.Check(ctx.Context(), toCheckRequest(req))
	if err != nil {
		return nil, mapError(err)
	}

	resp := toCheckResponse(result)
	if !result.Allowed {
		return resp, ctx.JSON(http.StatusForbidden, resp)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) batchCheck(ctx forge.Context, req *BatchCheckRequest) (*BatchCheckResponse, error) {
	if len(req.Checks) == 0 {
		return nil, forge.BadRequest("checks cannot be empty")
	}

	results := make([]CheckResponse, len(req.Checks))
	for i, c := range req.Checks {
		result, err := a.eng.Check(ctx.Context(), toCheckRequest(&c))
		if err != nil {
			return nil, mapError(err)
		}
		results[i] = *toCheckResponse(result)
	}

	resp := &BatchCheckResponse{Results: results}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func toCheckRequest(r *CheckRequest) *lattice.CheckRequest {
	subjectType := r.SubjectType
	if subjectType == "" {
		subjectType = lattice.SubjectUser
	}
	return &lattice.CheckRequest{
		Subject:    lattice.Subject{Type: subjectType, ID: r.SubjectID},
		Permission: r.Permission,
		Object:     lattice.Object{Type: r.ObjectType, ID: r.ObjectID},
		ZoneID:     r.ZoneID,
	}
}

func toCheckResponse(r *lattice.CheckResult) *CheckResponse {
	return &CheckResponse{
		Allowed:    r.Allowed,
		Decision:   string(r.Decision),
		Relation:   r.Relation,
		Inherited:  r.Inherited,
		EvalTimeNs: r.EvalTimeNs,
	}
}
