package pgstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/linnemanlabs/doula/internal/triage"
	"github.com/linnemanlabs/doula/internal/triage/pgstore"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("DOULA_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("DOULA_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	s, err := pgstore.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestPutAndGetMother(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	m := &triage.Mother{
		ID:             "test-mother-001",
		Name:           "Amina",
		Phone:          "+250788000001",
		DaysPostpartum: 3,
		Bleeding:       "heavy",
		TempC:          38.4,
		Headache:       true,
		VisionBlur:     false,
		BabyFeeding:    true,
		Priority:       triage.PriorityAuto,
		Lat:            -1.9501,
		Lng:            30.0588,
	}
	if err := s.PutMother(ctx, m); err != nil {
		t.Fatalf("PutMother: %v", err)
	}

	got, ok, err := s.GetMother(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMother: %v", err)
	}
	if !ok {
		t.Fatal("GetMother returned ok=false, want true")
	}

	assertEqual(t, "ID", m.ID, got.ID)
	assertEqual(t, "Name", m.Name, got.Name)
	assertEqual(t, "Phone", m.Phone, got.Phone)
	assertEqual(t, "DaysPostpartum", m.DaysPostpartum, got.DaysPostpartum)
	assertEqual(t, "Bleeding", m.Bleeding, got.Bleeding)
	assertEqual(t, "TempC", m.TempC, got.TempC)
	assertEqual(t, "Headache", m.Headache, got.Headache)
	assertEqual(t, "VisionBlur", m.VisionBlur, got.VisionBlur)
	assertEqual(t, "BabyFeeding", m.BabyFeeding, got.BabyFeeding)
	assertEqual(t, "Priority", m.Priority, got.Priority)
	assertEqual(t, "Lat", m.Lat, got.Lat)
	assertEqual(t, "Lng", m.Lng, got.Lng)
}

func TestGetMotherMissing(t *testing.T) {
	s := openStore(t)

	_, ok, err := s.GetMother(context.Background(), "nonexistent-id")
	if err != nil {
		t.Fatalf("GetMother: %v", err)
	}
	if ok {
		t.Error("GetMother returned ok=true for nonexistent ID")
	}
}

func TestPutMotherUpsert(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	m := &triage.Mother{ID: "test-mother-upsert", Bleeding: "none", Priority: "auto", BabyFeeding: true}
	if err := s.PutMother(ctx, m); err != nil {
		t.Fatalf("PutMother initial: %v", err)
	}

	m.Bleeding = "heavy"
	m.Priority = "EMERGENCY"
	if err := s.PutMother(ctx, m); err != nil {
		t.Fatalf("PutMother update: %v", err)
	}

	got, ok, err := s.GetMother(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMother after upsert: %v", err)
	}
	if !ok {
		t.Fatal("GetMother returned ok=false after upsert")
	}
	assertEqual(t, "Bleeding", "heavy", got.Bleeding)
	assertEqual(t, "Priority", "EMERGENCY", got.Priority)
}

func TestListMothers(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	for _, id := range []string{"test-list-b", "test-list-a"} {
		if err := s.PutMother(ctx, &triage.Mother{ID: id, BabyFeeding: true, Priority: "auto"}); err != nil {
			t.Fatalf("PutMother(%s): %v", id, err)
		}
	}

	got, err := s.ListMothers(ctx)
	if err != nil {
		t.Fatalf("ListMothers: %v", err)
	}

	// Ordered by ID; other tests may have inserted rows, so check relative order.
	ia, ib := -1, -1
	for i, m := range got {
		switch m.ID {
		case "test-list-a":
			ia = i
		case "test-list-b":
			ib = i
		}
	}
	if ia == -1 || ib == -1 {
		t.Fatalf("inserted rows missing from list (a=%d b=%d)", ia, ib)
	}
	if ia > ib {
		t.Errorf("list not ordered by ID: a at %d, b at %d", ia, ib)
	}
}

func TestPutAndGetCHW(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	c := &triage.CHW{
		ID:           "test-chw-001",
		Name:         "Agnes",
		BaseLat:      -1.9706,
		BaseLng:      30.1044,
		MaxVisitsDay: 6,
	}
	if err := s.PutCHW(ctx, c); err != nil {
		t.Fatalf("PutCHW: %v", err)
	}

	got, ok, err := s.GetCHW(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCHW: %v", err)
	}
	if !ok {
		t.Fatal("GetCHW returned ok=false")
	}
	assertEqual(t, "Name", c.Name, got.Name)
	assertEqual(t, "BaseLat", c.BaseLat, got.BaseLat)
	assertEqual(t, "BaseLng", c.BaseLng, got.BaseLng)
	assertEqual(t, "MaxVisitsDay", c.MaxVisitsDay, got.MaxVisitsDay)

	all, err := s.ListCHWs(ctx)
	if err != nil {
		t.Fatalf("ListCHWs: %v", err)
	}
	found := false
	for _, x := range all {
		if x.ID == c.ID {
			found = true
		}
	}
	if !found {
		t.Error("inserted CHW missing from ListCHWs")
	}
}

func assertEqual[T comparable](t *testing.T, field string, want, got T) {
	t.Helper()
	if want != got {
		t.Errorf("%s: got %v, want %v", field, got, want)
	}
}
