package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/lattice"
	"github.com/xraph/lattice/id"
	"github.com/xraph/lattice/tuple"
)

func (a *API) registerTupleRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("tuples"))

	if err := g.POST("/tuples", a.writeTuple,
		forge.WithSummary("Write tuple"),
		forge.WithDescription("Creates a relationship tuple after zone validation."),
		forge.WithOperationID("writeTuple"),
		forge.WithRequestSchema(WriteTupleRequest{}),
		forge.WithCreatedResponse(WriteTupleResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/tuples", a.listTuples,
		forge.WithSummary("List tuples"),
		forge.WithOperationID("listTuples"),
		forge.WithRequestSchema(ListTuplesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Tuple list", ListResponse[*tuple.Tuple]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/tuples/:tupleId", a.getTuple,
		forge.WithSummary("Get tuple"),
		forge.WithOperationID("getTuple"),
		forge.WithRequestSchema(GetTupleRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Tuple", &tuple.Tuple{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/tuples/:tupleId", a.deleteTuple,
		forge.WithSummary("Delete tuple"),
		forge.WithDescription("Deletes a tuple by ID and invalidates affected cache entries."),
		forge.WithOperationID("deleteTuple"),
		forge.WithRequestSchema(GetTupleRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) writeTuple(ctx forge.Context, req *WriteTupleRequest) (*WriteTupleResponse, error) {
	if req.SubjectType == "" || req.SubjectID == "" || req.Relation == "" || req.ObjectType == "" || req.ObjectID == "" {
		return nil, forge.BadRequest("subject_type, subject_id, relation, object_type, and object_id are required")
	}

	tupleID, err := a.eng.WriteTuple(ctx.Context(), &lattice.WriteRequest{
		Subject:       lattice.Subject{Type: req.SubjectType, ID: req.SubjectID},
		Relation:      req.Relation,
		Object:        lattice.Object{Type: req.ObjectType, ID: req.ObjectID},
		ZoneID:        req.ZoneID,
		SubjectZoneID: req.SubjectZoneID,
		ObjectZoneID:  req.ObjectZoneID,
		ExpiresAt:     req.ExpiresAt,
	})
	if err != nil {
		return nil, mapError(err)
	}

	resp := &WriteTupleResponse{TupleID: tupleID.String()}
	return resp, ctx.JSON(http.StatusCreated, resp)
}

func (a *API) getTuple(ctx forge.Context, req *GetTupleRequest) (*tuple.Tuple, error) {
	tupleID, err := id.ParseTupleID(req.TupleID)
	if err != nil {
		return nil, forge.BadRequest("invalid tuple id")
	}

	t, err := a.eng.Store().GetTuple(ctx.Context(), tupleID)
	if err != nil {
		return nil, mapError(err)
	}
	return t, ctx.JSON(http.StatusOK, t)
}

func (a *API) deleteTuple(ctx forge.Context, req *GetTupleRequest) (*struct{}, error) {
	tupleID, err := id.ParseTupleID(req.TupleID)
	if err != nil {
		return nil, forge.BadRequest("invalid tuple id")
	}

	if _, err := a.eng.DeleteTuple(ctx.Context(), tupleID); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listTuples(ctx forge.Context, req *ListTuplesRequest) (*ListResponse[*tuple.Tuple], error) {
	filter := &tuple.ListFilter{
		ZoneID:      req.ZoneID,
		SubjectType: req.SubjectType,
		SubjectID:   req.SubjectID,
		Relation:    req.Relation,
		ObjectType:  req.ObjectType,
		ObjectID:    req.ObjectID,
		Limit:       defaultLimit(req.Limit),
		Offset:      req.Offset,
	}

	tuples, err := a.eng.ListTuples(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.eng.Store().CountTuples(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*tuple.Tuple]{
		Items:  tuples,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}
