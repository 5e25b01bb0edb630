package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"billview/internal/core"
	"billview/internal/source"
)

func TestStoreBeneficiaryLifecycle(t *testing.T) {
	s := New(nil, []core.Beneficiary{{ID: "4", FarmerName: "Ram", CenterName: "A"}}, nil)
	ctx := context.Background()

	if err := s.CreateBeneficiary(ctx, core.Beneficiary{FarmerName: "Sita", CenterName: "A"}, ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	list, _ := s.ListBeneficiaries(ctx)
	if len(list) != 2 || list[1].ID != "5" {
		t.Fatalf("list = %+v", list)
	}
	if err := s.CreateBeneficiary(ctx, core.Beneficiary{CenterName: "A"}, ""); !errors.Is(err, core.ErrMissingFarmerName) {
		t.Fatalf("invalid create: %v", err)
	}

	if err := s.UpdateBeneficiary(ctx, core.Beneficiary{ID: "5", FarmerName: "Sita Devi", CenterName: "B"}, ""); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.UpdateBeneficiary(ctx, core.Beneficiary{ID: "99"}, ""); !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}
	if err := s.DeleteBeneficiary(ctx, "4", ""); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ = s.ListBeneficiaries(ctx)
	if len(list) != 1 || list[0].FarmerName != "Sita Devi" {
		t.Fatalf("list after delete = %+v", list)
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(recordsFile, `[{"center_name":"A","allocated_quantity":"10","updated_quantity":"4","rate":"2"}]`)
	write(regionsFile, `[{"center_name":"A","vikas_khand_name":"Sahaspur"}]`)

	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	recs, _ := s.FetchRecords(context.Background())
	if len(recs) != 1 || recs[0].Remaining() != 6 {
		t.Fatalf("records = %+v", recs)
	}
	r, err := s.LookupRegion(context.Background(), " a ")
	if err != nil || r.VikasKhand != "Sahaspur" {
		t.Fatalf("region = %+v, %v", r, err)
	}
	if _, err := s.LookupRegion(context.Background(), "B"); !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("missing region: %v", err)
	}
	list, _ := s.ListBeneficiaries(context.Background())
	if list == nil || len(list) != 0 {
		t.Fatalf("beneficiaries = %#v", list)
	}

	write(beneficiariesFile, `{not json`)
	if _, err := NewFromFiles(dir); err == nil {
		t.Fatal("expected decode error")
	}
}
