package triageapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/doula/internal/routeplan"
	"github.com/linnemanlabs/doula/internal/triage"
	"github.com/linnemanlabs/doula/internal/triage/memstore"
)

func newTestRouter(t *testing.T) (chi.Router, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	api := New(nil, store)
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	return r, store
}

func doJSON(t *testing.T, r chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestNew_NilStore_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("New(nil, nil) did not panic; expected panic for nil store")
		}
	}()
	New(nil, nil)
}

func TestPutAndGetMother(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	body := `{"name":"Amina","days_postpartum":3,"bleeding":"heavy","temp_c":36.9,"baby_feeding":true,"lat":-1.95,"lng":30.06}`
	rec := doJSON(t, r, http.MethodPut, "/api/v1/mothers/m-001", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body %s", rec.Code, rec.Body.String())
	}

	var put TriagedMother
	if err := json.NewDecoder(rec.Body).Decode(&put); err != nil {
		t.Fatalf("decode PUT response: %v", err)
	}
	if put.ID != "m-001" {
		t.Fatalf("ID = %q, want path ID", put.ID)
	}
	if put.Risk != triage.RiskEmergency {
		t.Fatalf("Risk = %q, want EMERGENCY for heavy bleeding", put.Risk)
	}
	if put.SLAHours != 4 {
		t.Fatalf("SLAHours = %d, want 4", put.SLAHours)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/mothers/m-001", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	var got TriagedMother
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode GET response: %v", err)
	}
	if got.Name != "Amina" || got.Risk != triage.RiskEmergency {
		t.Fatalf("GET = %+v", got)
	}
}

func TestPutMother_GeneratesID(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPut, "/api/v1/mothers/new", `{"name":"Grace","baby_feeding":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got TriagedMother
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID == "" || got.ID == "new" {
		t.Fatalf("ID = %q, want a generated ULID", got.ID)
	}
}

func TestPutMother_AbsentBabyFeedingMeansFeedingOK(t *testing.T) {
	t.Parallel()

	r, store := newTestRouter(t)

	body := `{"name":"Grace","bleeding":"none","temp_c":36.8,"priority":"auto"}`
	rec := doJSON(t, r, http.MethodPut, "/api/v1/mothers/m-grace", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var got TriagedMother
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.BabyFeeding {
		t.Fatal("absent baby_feeding stored as a feeding problem")
	}
	if got.Risk != triage.RiskRoutine {
		t.Fatalf("Risk = %q (flags %v), want ROUTINE for a healthy record", got.Risk, got.Flags)
	}

	stored, ok, err := store.GetMother(context.Background(), "m-grace")
	if err != nil || !ok {
		t.Fatalf("GetMother: ok=%v err=%v", ok, err)
	}
	if !stored.BabyFeeding {
		t.Fatal("stored record lost the feeding-ok default")
	}
}

func TestPutMother_ExplicitFeedingProblemStillFlags(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	body := `{"name":"Divine","bleeding":"none","temp_c":36.8,"baby_feeding":false}`
	rec := doJSON(t, r, http.MethodPut, "/api/v1/mothers/m-divine", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var got TriagedMother
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.BabyFeeding {
		t.Fatal("explicit baby_feeding=false was overridden")
	}
	if got.Risk != triage.RiskEmergency {
		t.Fatalf("Risk = %q, want EMERGENCY for a feeding problem", got.Risk)
	}
}

func TestPutMother_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{nope`},
		{"bad bleeding", `{"name":"x","bleeding":"gushing"}`},
		{"bad priority", `{"name":"x","priority":"URGENT"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, store := newTestRouter(t)
			rec := doJSON(t, r, http.MethodPut, "/api/v1/mothers/m-bad", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body %s", rec.Code, rec.Body.String())
			}
			if _, ok, _ := store.GetMother(context.Background(), "m-bad"); ok {
				t.Fatal("invalid record was stored")
			}
		})
	}
}

func TestGetMother_NotFound(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/api/v1/mothers/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListMothers_ComputesRisk(t *testing.T) {
	t.Parallel()

	r, store := newTestRouter(t)
	ctx := context.Background()

	seed := []*triage.Mother{
		{ID: "m-001", Name: "Amina", Bleeding: "heavy", BabyFeeding: true, Priority: "auto"},
		{ID: "m-002", Name: "Grace", Bleeding: "none", BabyFeeding: true, Priority: "auto"},
	}
	for _, m := range seed {
		if err := store.PutMother(ctx, m); err != nil {
			t.Fatalf("PutMother: %v", err)
		}
	}

	rec := doJSON(t, r, http.MethodGet, "/api/v1/mothers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got []TriagedMother
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Risk != triage.RiskEmergency {
		t.Fatalf("got[0].Risk = %q, want EMERGENCY", got[0].Risk)
	}
	if got[1].Risk != triage.RiskRoutine {
		t.Fatalf("got[1].Risk = %q, want ROUTINE", got[1].Risk)
	}
}

func TestPutAndListCHWs(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPut, "/api/v1/chws/chw-1",
		`{"name":"Agnes","base_lat":-1.97,"base_lng":30.10,"max_visits_day":6}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/chws", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	var got []triage.CHW
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Agnes" || got[0].MaxVisitsDay != 6 {
		t.Fatalf("chws = %+v", got)
	}
}

func TestPutCHW_RejectsZeroCapacity(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPut, "/api/v1/chws/chw-1", `{"name":"Agnes","max_visits_day":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func seedPlanningData(t *testing.T, store *memstore.Store) {
	t.Helper()
	ctx := context.Background()

	mothers := []*triage.Mother{
		{ID: "m-near", Lat: -1.951, Lng: 30.060, Bleeding: "none", BabyFeeding: true, Priority: "auto"},
		{ID: "m-mid", Lat: -1.960, Lng: 30.070, Bleeding: "none", BabyFeeding: true, Priority: "auto"},
		{ID: "m-far", Lat: -2.000, Lng: 30.120, Bleeding: "none", BabyFeeding: true, Priority: "auto"},
	}
	for _, m := range mothers {
		if err := store.PutMother(ctx, m); err != nil {
			t.Fatalf("PutMother: %v", err)
		}
	}
	chw := &triage.CHW{ID: "chw-1", Name: "Agnes", BaseLat: -1.950, BaseLng: 30.058, MaxVisitsDay: 2}
	if err := store.PutCHW(ctx, chw); err != nil {
		t.Fatalf("PutCHW: %v", err)
	}
}

func TestPlanRoutes(t *testing.T) {
	t.Parallel()

	r, store := newTestRouter(t)
	seedPlanningData(t, store)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/routes/plan", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var plan routeplan.Plan
	if err := json.NewDecoder(rec.Body).Decode(&plan); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(plan.Routes) != 1 {
		t.Fatalf("routes = %d, want 1", len(plan.Routes))
	}
	// Capacity 2 leaves the far stop unserved.
	if len(plan.Unserved) != 1 || plan.Unserved[0] != "m-far" {
		t.Fatalf("unserved = %v, want [m-far]", plan.Unserved)
	}
}

func TestPlanRoutes_WhatIfExtraCHW(t *testing.T) {
	t.Parallel()

	r, store := newTestRouter(t)
	seedPlanningData(t, store)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/routes/plan", `{"extra_chws":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var plan routeplan.Plan
	if err := json.NewDecoder(rec.Body).Decode(&plan); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(plan.Routes) != 2 {
		t.Fatalf("routes = %d, want 2 with an extra CHW", len(plan.Routes))
	}
	if len(plan.Unserved) != 0 {
		t.Fatalf("unserved = %v, want none with an extra CHW", plan.Unserved)
	}
}

func TestPlanRoutes_CapacityOverrideAndBlocked(t *testing.T) {
	t.Parallel()

	r, store := newTestRouter(t)
	seedPlanningData(t, store)

	body := `{"visits_per_chw":3,"blocked":[["DEPOT","m-near"]]}`
	rec := doJSON(t, r, http.MethodPost, "/api/v1/routes/plan", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var plan routeplan.Plan
	if err := json.NewDecoder(rec.Body).Decode(&plan); err != nil {
		t.Fatalf("decode: %v", err)
	}
	route := plan.Routes[0]
	if len(route.Sequence) != 4 { // depot + all three with the raised capacity
		t.Fatalf("sequence = %v, want all stops served", route.Sequence)
	}
	if route.Sequence[1] == "m-near" {
		t.Fatalf("sequence = %v; blocked first leg taken", route.Sequence)
	}
}

func TestPlanRoutes_RejectsNegatives(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/api/v1/routes/plan", `{"extra_chws":-1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
