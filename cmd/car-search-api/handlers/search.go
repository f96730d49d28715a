package handlers

import (
	"net/http"
	"strings"

	"github.com/Thomaz-Klifson/car-search/internal/catalog"
	"github.com/Thomaz-Klifson/car-search/internal/observability"
	"github.com/Thomaz-Klifson/car-search/internal/search"
)

// SearchHandler exposes the catalog tools directly, without the model.
type SearchHandler struct {
	logger       *observability.Logger
	catalog      *catalog.Catalog
	exec         search.Executor
	orchestrator *search.Orchestrator
	presenter    catalog.Presenter
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(logger *observability.Logger, cat *catalog.Catalog, exec search.Executor, orchestrator *search.Orchestrator, presenter catalog.Presenter) *SearchHandler {
	return &SearchHandler{
		logger:       logger,
		catalog:      cat,
		exec:         exec,
		orchestrator: orchestrator,
		presenter:    presenter,
	}
}

// UtteranceRequestDTO carries a free-text user message.
type UtteranceRequestDTO struct {
	Utterance string `json:"utterance"`
}

// CriteriaDTO is the criteria recovered from an utterance.
type CriteriaDTO struct {
	Name     string   `json:"name,omitempty"`
	Location string   `json:"location,omitempty"`
	MaxPrice *float64 `json:"maxPrice,omitempty"`
}

// FallbackResponseDTO reports which fallback stage answered.
type FallbackResponseDTO struct {
	Stage        string      `json:"stage"`
	Found        bool        `json:"found"`
	Criteria     CriteriaDTO `json:"criteria"`
	RaisedBudget *float64    `json:"raisedBudget,omitempty"`
	Skipped      []string    `json:"skipped,omitempty"`
	Result       interface{} `json:"result"`
	LatencyMs    int64       `json:"latencyMs"`
}

// AdviceResponseDTO is an advised search ready for clients.
type AdviceResponseDTO struct {
	SearchType   catalog.SearchType `json:"searchType"`
	Message      string             `json:"message"`
	ExactMatches []catalog.CarView  `json:"exactMatches"`
	Suggestions  []catalog.CarView  `json:"suggestions"`
}

// LocationsResponseDTO lists the catalog's cities and price range.
type LocationsResponseDTO struct {
	Locations  []string           `json:"locations"`
	PriceRange catalog.PriceRange `json:"priceRange"`
	Total      int                `json:"total"`
}

// Search handles POST /cars/search. Body fields follow the searchCars tool;
// prices may be numbers or locale strings.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	args, ok := h.decodeArgs(w, r)
	if !ok {
		return
	}

	result := h.exec.Search(r.Context(), catalog.CriteriaFromArgs(args))
	writeJSON(w, h.logger, http.StatusOK, h.presenter.Present(result))
}

// Similar handles POST /cars/similar.
func (h *SearchHandler) Similar(w http.ResponseWriter, r *http.Request) {
	args, ok := h.decodeArgs(w, r)
	if !ok {
		return
	}

	req := catalog.SimilarRequestFromArgs(args)
	if strings.TrimSpace(req.ReferenceCar) == "" {
		writeError(w, http.StatusBadRequest, "referenceCar is required", "")
		return
	}

	result := h.exec.Similar(r.Context(), req)
	writeJSON(w, h.logger, http.StatusOK, h.presenter.Present(result))
}

// Advise handles POST /cars/advise.
func (h *SearchHandler) Advise(w http.ResponseWriter, r *http.Request) {
	args, ok := h.decodeArgs(w, r)
	if !ok {
		return
	}

	advice := h.catalog.Advise(catalog.CriteriaFromArgs(args))
	writeJSON(w, h.logger, http.StatusOK, AdviceResponseDTO{
		SearchType:   advice.SearchType,
		Message:      advice.Message,
		ExactMatches: h.presenter.Cars(advice.ExactMatches),
		Suggestions:  h.presenter.Cars(advice.Suggestions),
	})
}

// Locations handles GET /cars/locations.
func (h *SearchHandler) Locations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, LocationsResponseDTO{
		Locations:  h.catalog.Locations(),
		PriceRange: h.catalog.PriceRange(),
		Total:      h.catalog.Len(),
	})
}

// ParseQuery handles POST /query/parse.
func (h *SearchHandler) ParseQuery(w http.ResponseWriter, r *http.Request) {
	utterance, ok := h.decodeUtterance(w, r)
	if !ok {
		return
	}

	writeJSON(w, h.logger, http.StatusOK, toCriteriaDTO(h.catalog.ParseQuery(utterance)))
}

// Fallback handles POST /query/fallback.
func (h *SearchHandler) Fallback(w http.ResponseWriter, r *http.Request) {
	utterance, ok := h.decodeUtterance(w, r)
	if !ok {
		return
	}

	out := h.orchestrator.Run(r.Context(), utterance)

	resp := FallbackResponseDTO{
		Stage:        string(out.Stage),
		Found:        out.Found,
		Criteria:     toCriteriaDTO(out.Criteria),
		RaisedBudget: out.RaisedBudget,
		LatencyMs:    out.Duration.Milliseconds(),
	}
	for _, s := range out.Skipped {
		resp.Skipped = append(resp.Skipped, string(s))
	}
	if out.Result != nil {
		resp.Result = h.presenter.Present(out.Result)
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *SearchHandler) decodeArgs(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	args := map[string]interface{}{}
	if err := decodeBody(r, &args); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return nil, false
	}
	return args, true
}

func (h *SearchHandler) decodeUtterance(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req UtteranceRequestDTO
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return "", false
	}
	if strings.TrimSpace(req.Utterance) == "" {
		writeError(w, http.StatusBadRequest, "utterance is required", "")
		return "", false
	}
	return req.Utterance, true
}

func toCriteriaDTO(c catalog.Criteria) CriteriaDTO {
	return CriteriaDTO{Name: c.Name, Location: c.Location, MaxPrice: c.MaxPrice}
}
