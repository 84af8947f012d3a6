// Package triageapi serves the dashboard endpoints: the triage table of
// mothers with computed risk, the CHW roster, and visit-route planning.
package triageapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/doula/internal/routeplan"
	"github.com/linnemanlabs/doula/internal/triage"
)

// API holds dependencies for the dashboard HTTP handlers.
type API struct {
	logger log.Logger
	store  triage.Store
}

// New creates a new dashboard API handler.
func New(logger log.Logger, store triage.Store) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if store == nil {
		panic(xerrors.New("triage store is required"))
	}
	return &API{
		logger: logger,
		store:  store,
	}
}

// RegisterRoutes attaches the dashboard endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/mothers", a.handleListMothers)
		r.Get("/mothers/{id}", a.handleGetMother)
		r.Put("/mothers/{id}", a.handlePutMother)
		r.Get("/chws", a.handleListCHWs)
		r.Put("/chws/{id}", a.handlePutCHW)
		r.Post("/routes/plan", a.handlePlanRoutes)
	})
}

// TriagedMother is a mother record joined with its computed assessment, the
// row the dashboard table renders.
type TriagedMother struct {
	triage.Mother
	triage.Assessment
}

func (a *API) handleListMothers(w http.ResponseWriter, r *http.Request) {
	mothers, err := a.store.ListMothers(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list mothers")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	out := make([]TriagedMother, 0, len(mothers))
	for _, m := range mothers {
		out = append(out, TriagedMother{Mother: *m, Assessment: triage.Assess(m)})
	}
	writeJSON(w, out)
}

func (a *API) handleGetMother(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("doula.mother.id", id))

	m, ok, err := a.store.GetMother(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get mother", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, TriagedMother{Mother: *m, Assessment: triage.Assess(m)})
}

func (a *API) handlePutMother(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// The shadow pointer field distinguishes an absent baby_feeding from an
	// explicit false. Absent means feeding is fine; only a reported problem
	// should raise NB_FEED_ISSUE.
	var body struct {
		triage.Mother
		BabyFeeding *bool `json:"baby_feeding"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	m := body.Mother
	m.BabyFeeding = body.BabyFeeding == nil || *body.BabyFeeding
	if id == "new" || id == "" {
		id = ulid.Make().String()
	}
	m.ID = id
	if m.Bleeding == "" {
		m.Bleeding = "none"
	}
	if m.Priority == "" {
		m.Priority = triage.PriorityAuto
	}
	if !validBleeding(m.Bleeding) {
		http.Error(w, `{"error":"bleeding must be none, light, or heavy"}`, http.StatusBadRequest)
		return
	}
	if !validPriority(m.Priority) {
		http.Error(w, `{"error":"priority must be auto or a risk level"}`, http.StatusBadRequest)
		return
	}

	if err := a.store.PutMother(r.Context(), &m); err != nil {
		a.logger.Error(r.Context(), err, "failed to store mother", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	a.logger.Info(r.Context(), "mother record stored", "id", id)
	writeJSON(w, TriagedMother{Mother: m, Assessment: triage.Assess(&m)})
}

func (a *API) handleListCHWs(w http.ResponseWriter, r *http.Request) {
	chws, err := a.store.ListCHWs(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list chws")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, chws)
}

func (a *API) handlePutCHW(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var c triage.CHW
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if id == "new" || id == "" {
		id = ulid.Make().String()
	}
	c.ID = id
	if c.MaxVisitsDay <= 0 {
		http.Error(w, `{"error":"max_visits_day must be positive"}`, http.StatusBadRequest)
		return
	}

	if err := a.store.PutCHW(r.Context(), &c); err != nil {
		a.logger.Error(r.Context(), err, "failed to store chw", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	a.logger.Info(r.Context(), "chw record stored", "id", id)
	writeJSON(w, c)
}

// PlanRequest carries the what-if controls for route planning.
type PlanRequest struct {
	// ExtraCHWs adds simulated workers cloned from the first real one.
	ExtraCHWs int `json:"extra_chws"`

	// VisitsPerCHW overrides every worker's daily capacity when positive.
	VisitsPerCHW int `json:"visits_per_chw"`

	// Blocked lists node-ID pairs whose leg should be avoided.
	Blocked [][2]string `json:"blocked"`
}

func (a *API) handlePlanRoutes(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
			return
		}
	}
	if req.ExtraCHWs < 0 || req.VisitsPerCHW < 0 {
		http.Error(w, `{"error":"extra_chws and visits_per_chw must not be negative"}`, http.StatusBadRequest)
		return
	}

	mothers, err := a.store.ListMothers(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list mothers for planning")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	chws, err := a.store.ListCHWs(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list chws for planning")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	stops := make([]routeplan.Stop, 0, len(mothers))
	for _, m := range mothers {
		as := triage.Assess(m)
		stops = append(stops, routeplan.Stop{
			ID:             m.ID,
			Lat:            m.Lat,
			Lng:            m.Lng,
			Priority:       as.FinalPriority,
			DaysPostpartum: m.DaysPostpartum,
		})
	}

	workers := make([]routeplan.Worker, 0, len(chws)+req.ExtraCHWs)
	for _, c := range chws {
		capacity := c.MaxVisitsDay
		if req.VisitsPerCHW > 0 {
			capacity = req.VisitsPerCHW
		}
		workers = append(workers, routeplan.Worker{
			ID:       c.ID,
			Name:     c.Name,
			BaseLat:  c.BaseLat,
			BaseLng:  c.BaseLng,
			Capacity: capacity,
		})
	}
	workers = append(workers, simulatedWorkers(chws, req)...)

	blocked := make([]routeplan.Edge, 0, len(req.Blocked))
	for _, p := range req.Blocked {
		blocked = append(blocked, routeplan.Edge{A: p[0], B: p[1]})
	}

	plan := routeplan.Assign(stops, workers, blocked)
	a.logger.Info(r.Context(), "route plan generated",
		"stops", len(stops),
		"workers", len(workers),
		"unserved", len(plan.Unserved),
	)
	writeJSON(w, plan)
}

// simulatedWorkers builds the what-if extra CHWs, based at the first real
// worker's location so the simulation stays in the service area.
func simulatedWorkers(chws []*triage.CHW, req PlanRequest) []routeplan.Worker {
	if req.ExtraCHWs <= 0 || len(chws) == 0 {
		return nil
	}
	base := chws[0]
	capacity := base.MaxVisitsDay
	if req.VisitsPerCHW > 0 {
		capacity = req.VisitsPerCHW
	}
	out := make([]routeplan.Worker, 0, req.ExtraCHWs)
	for i := 0; i < req.ExtraCHWs; i++ {
		out = append(out, routeplan.Worker{
			ID:       ulid.Make().String(),
			Name:     "Simulated CHW",
			BaseLat:  base.BaseLat,
			BaseLng:  base.BaseLng,
			Capacity: capacity,
		})
	}
	return out
}

func validBleeding(v string) bool {
	switch strings.ToLower(v) {
	case "none", "light", "heavy":
		return true
	}
	return false
}

func validPriority(v string) bool {
	if strings.EqualFold(v, triage.PriorityAuto) {
		return true
	}
	switch triage.Risk(v) {
	case triage.RiskEmergency, triage.RiskPriority, triage.RiskRoutine:
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
