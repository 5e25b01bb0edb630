package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"billview/internal/core"
	"billview/internal/source"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{
		BaseURL: srv.URL,
		Endpoints: Endpoints{
			BillingItems:  "/api/billing-items",
			Beneficiaries: "/api/beneficiaries",
			VikasKhand:    "/api/vikas-khand-by-center",
		},
		Timeout:  2 * time.Second,
		RetryMax: 0,
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestFetchRecords(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/billing-items" || r.Method != http.MethodGet {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `[{"center_name":"A","allocated_quantity":"100","updated_quantity":"40","rate":"2"},
			{"center_name":"B","allocated_quantity":30,"updated_quantity":"x","rate":5}]`)
	}))
	recs, err := c.FetchRecords(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(recs) != 2 || recs[0].Allocated != 100 || recs[1].Sold != 0 || recs[1].CoercionFailures != 1 {
		t.Fatalf("records = %+v", recs)
	}
}

func TestFetchRecords_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }, core.ErrServer},
		{"not found", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }, core.ErrServer},
		{"bad json", func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, `[{"center_name":`) }, core.ErrData},
		{"object without data", func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, `{"items":[]}`) }, core.ErrData},
		{"scalar", func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, `42`) }, core.ErrData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.FetchRecords(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFetchRecords_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, Endpoints: Endpoints{BillingItems: "/items"}, Timeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = c.FetchRecords(context.Background())
	if !errors.Is(err, core.ErrNetwork) {
		t.Fatalf("err = %v", err)
	}
	if core.UserMessage(err) != core.MessageNetwork {
		t.Fatal("wrong banner message")
	}
}

func TestFetchRecords_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()
	c, err := New(Config{BaseURL: srv.URL, Endpoints: Endpoints{BillingItems: "/items"}, Timeout: time.Second, RetryMax: 2}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	recs, err := c.FetchRecords(context.Background())
	if err != nil || len(recs) != 0 {
		t.Fatalf("recs=%v err=%v", recs, err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestBeneficiaryWrites_NotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	c, err := New(Config{
		BaseURL:   srv.URL,
		Endpoints: Endpoints{Beneficiaries: "/beneficiaries"},
		Timeout:   time.Second,
		RetryMax:  2,
	}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	tests := []struct {
		name string
		call func() error
	}{
		{"create", func() error {
			return c.CreateBeneficiary(context.Background(), core.Beneficiary{FarmerName: "A", CenterName: "B"}, "k1")
		}},
		{"update", func() error {
			return c.UpdateBeneficiary(context.Background(), core.Beneficiary{ID: "1", FarmerName: "A", CenterName: "B"}, "k2")
		}},
		{"delete", func() error { return c.DeleteBeneficiary(context.Background(), "1", "k3") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls.Store(0)
			err := tt.call()
			if !errors.Is(err, core.ErrServer) {
				t.Fatalf("err = %v, want server error", err)
			}
			if n := calls.Load(); n != 1 {
				t.Fatalf("requests sent = %d, want 1", n)
			}
		})
	}
}

func TestListBeneficiaries_BothShapes(t *testing.T) {
	bodies := map[string]string{
		"wrapped": `{"data":[{"beneficiary_id":1,"farmer_name":"Ram","center_name":"A"}]}`,
		"bare":    `[{"beneficiary_id":"1","farmer_name":"Ram","center_name":"A"}]`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, body)
			}))
			list, err := c.ListBeneficiaries(context.Background())
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 1 || list[0].ID != "1" || list[0].FarmerName != "Ram" {
				t.Fatalf("list = %+v", list)
			}
		})
	}
}

func TestBeneficiaryMutations(t *testing.T) {
	type seen struct {
		method string
		key    string
		body   map[string]any
	}
	var (
		mu  sync.Mutex
		got []seen
	)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		got = append(got, seen{r.Method, r.Header.Get("Idempotency-Key"), body})
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	ctx := context.Background()
	b := core.Beneficiary{ID: "7", FarmerName: "Sita", CenterName: "A", Quantity: 2}

	if err := c.CreateBeneficiary(ctx, b, "k1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := c.UpdateBeneficiary(ctx, b, "k2"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := c.DeleteBeneficiary(ctx, "7", "k3"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("requests = %d", len(got))
	}
	wantMethods := []string{http.MethodPost, http.MethodPut, http.MethodDelete}
	for i, s := range got {
		if s.method != wantMethods[i] {
			t.Errorf("request %d method = %s", i, s.method)
		}
		if s.body["beneficiary_id"] != "7" {
			t.Errorf("request %d body = %v", i, s.body)
		}
	}
	if got[0].key != "k1" || got[0].body["farmer_name"] != "Sita" {
		t.Fatalf("create request = %+v", got[0])
	}
	if err := c.UpdateBeneficiary(ctx, core.Beneficiary{}, ""); !errors.Is(err, core.ErrMissingBeneficiaryID) {
		t.Fatalf("update without id: %v", err)
	}
}

func TestLookupRegion_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr error
	}{
		{"object", `{"vikas_khand_name":"Sahaspur","district_name":"Dehradun"}`, "Sahaspur", nil},
		{"array", `[{"vikas_khand_name":"Raipur"},{"vikas_khand_name":"Other"}]`, "Raipur", nil},
		{"wrapped array", `{"data":[{"vikas_khand_name":"Doiwala"}]}`, "Doiwala", nil},
		{"empty array", `[]`, "", source.ErrNotFound},
		{"empty object", `{}`, "", source.ErrNotFound},
		{"string", `"nope"`, "", core.ErrData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("center_name") != "Center 1" {
					t.Errorf("query = %s", r.URL.RawQuery)
				}
				io.WriteString(w, tt.body)
			}))
			r, err := c.LookupRegion(context.Background(), "Center 1")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("lookup: %v", err)
			}
			if r.VikasKhand != tt.want || r.CenterName != "Center 1" {
				t.Fatalf("region = %+v", r)
			}
		})
	}
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "localhost:8000"}, nil); err == nil {
		t.Fatal("expected error")
	}
}
