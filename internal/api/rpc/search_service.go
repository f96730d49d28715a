// Package rpc provides the Connect service exposing catalog search.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/Thomaz-Klifson/car-search/internal/catalog"
	"github.com/Thomaz-Klifson/car-search/internal/observability"
	"github.com/Thomaz-Klifson/car-search/internal/search"
)

// SearchServiceName is the fully-qualified name of the search service.
const SearchServiceName = "carsearch.v1.SearchService"

// Procedure paths.
const (
	SearchCarsProcedure     = "/" + SearchServiceName + "/SearchCars"
	GetSimilarCarsProcedure = "/" + SearchServiceName + "/GetSimilarCars"
	ParseQueryProcedure     = "/" + SearchServiceName + "/ParseQuery"
	FallbackProcedure       = "/" + SearchServiceName + "/Fallback"
)

// SearchService implements the Connect search service.
type SearchService struct {
	logger       *observability.Logger
	exec         search.Executor
	extractor    search.Extractor
	orchestrator *search.Orchestrator
	presenter    catalog.Presenter
}

// NewSearchService creates a new search service.
func NewSearchService(logger *observability.Logger, exec search.Executor, extractor search.Extractor, orchestrator *search.Orchestrator, presenter catalog.Presenter) *SearchService {
	if logger == nil {
		logger = observability.Nop()
	}
	return &SearchService{
		logger:       logger,
		exec:         exec,
		extractor:    extractor,
		orchestrator: orchestrator,
		presenter:    presenter,
	}
}

// SearchCarsRequest mirrors the searchCars tool arguments.
type SearchCarsRequest struct {
	Name     string   `json:"name,omitempty"`
	Location string   `json:"location,omitempty"`
	MinPrice *float64 `json:"minPrice,omitempty"`
	MaxPrice *float64 `json:"maxPrice,omitempty"`
}

// GetSimilarCarsRequest mirrors the getSimilarCars tool arguments.
type GetSimilarCarsRequest struct {
	ReferenceCar string   `json:"referenceCar"`
	UserBudget   *float64 `json:"userBudget,omitempty"`
}

// ParseQueryRequest carries a free-text utterance.
type ParseQueryRequest struct {
	Utterance string `json:"utterance"`
}

// ParseQueryResponse is the criteria recovered from an utterance.
type ParseQueryResponse struct {
	Name     string   `json:"name,omitempty"`
	Location string   `json:"location,omitempty"`
	MaxPrice *float64 `json:"maxPrice,omitempty"`
}

// FallbackResponse reports which fallback stage answered.
type FallbackResponse struct {
	Stage        string             `json:"stage"`
	Found        bool               `json:"found"`
	Criteria     ParseQueryResponse `json:"criteria"`
	RaisedBudget *float64           `json:"raisedBudget,omitempty"`
	Result       interface{}        `json:"result,omitempty"`
}

// SearchCars filters the catalog.
func (s *SearchService) SearchCars(ctx context.Context, req *connect.Request[SearchCarsRequest]) (*connect.Response[catalog.SearchView], error) {
	result := s.exec.Search(ctx, catalog.Criteria{
		Name:     req.Msg.Name,
		Location: req.Msg.Location,
		MinPrice: req.Msg.MinPrice,
		MaxPrice: req.Msg.MaxPrice,
	})

	view := s.presenter.Present(result).(catalog.SearchView)
	return connect.NewResponse(&view), nil
}

// GetSimilarCars finds alternatives to a reference car.
func (s *SearchService) GetSimilarCars(ctx context.Context, req *connect.Request[GetSimilarCarsRequest]) (*connect.Response[catalog.SimilarityView], error) {
	if strings.TrimSpace(req.Msg.ReferenceCar) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("referenceCar is required"))
	}

	result := s.exec.Similar(ctx, catalog.SimilarRequest{
		ReferenceCar: req.Msg.ReferenceCar,
		Budget:       req.Msg.UserBudget,
	})

	view := s.presenter.Present(result).(catalog.SimilarityView)
	return connect.NewResponse(&view), nil
}

// ParseQuery extracts criteria from free text.
func (s *SearchService) ParseQuery(ctx context.Context, req *connect.Request[ParseQueryRequest]) (*connect.Response[ParseQueryResponse], error) {
	if strings.TrimSpace(req.Msg.Utterance) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("utterance is required"))
	}

	c := s.extractor.ParseQuery(req.Msg.Utterance)
	return connect.NewResponse(&ParseQueryResponse{Name: c.Name, Location: c.Location, MaxPrice: c.MaxPrice}), nil
}

// Fallback runs the fallback chain on free text.
func (s *SearchService) Fallback(ctx context.Context, req *connect.Request[ParseQueryRequest]) (*connect.Response[FallbackResponse], error) {
	if strings.TrimSpace(req.Msg.Utterance) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("utterance is required"))
	}

	out := s.orchestrator.Run(ctx, req.Msg.Utterance)
	s.logger.Debug().
		Str("stage", string(out.Stage)).
		Bool("found", out.Found).
		Msg("Fallback served over rpc")

	resp := &FallbackResponse{
		Stage: string(out.Stage),
		Found: out.Found,
		Criteria: ParseQueryResponse{
			Name:     out.Criteria.Name,
			Location: out.Criteria.Location,
			MaxPrice: out.Criteria.MaxPrice,
		},
		RaisedBudget: out.RaisedBudget,
	}
	if out.Result != nil {
		resp.Result = s.presenter.Present(out.Result)
	}
	return connect.NewResponse(resp), nil
}

// NewSearchServiceHandler builds an HTTP handler serving every procedure of
// the service. Mount it at the returned path.
func NewSearchServiceHandler(svc *SearchService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(SearchCarsProcedure, connect.NewUnaryHandler(SearchCarsProcedure, svc.SearchCars, opts...))
	mux.Handle(GetSimilarCarsProcedure, connect.NewUnaryHandler(GetSimilarCarsProcedure, svc.GetSimilarCars, opts...))
	mux.Handle(ParseQueryProcedure, connect.NewUnaryHandler(ParseQueryProcedure, svc.ParseQuery, opts...))
	mux.Handle(FallbackProcedure, connect.NewUnaryHandler(FallbackProcedure, svc.Fallback, opts...))

	return "/" + SearchServiceName + "/", mux
}

// JSONCodec encodes plain Go structs as JSON. Connect's built-in JSON codec
// only accepts protobuf messages.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
