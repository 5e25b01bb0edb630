package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestResolveChoice(t *testing.T) {
	options := []string{"General", "OBC", "SC", "ST"}
	tests := []struct {
		selected, other string
		custom          bool
		value           string
	}{
		{"SC", "", false, "SC"},
		{"Other", " Landless ", true, "Landless"},
		{"अन्य", "भूमिहीन", true, "भूमिहीन"},
		{"Unlisted", "", true, "Unlisted"},
	}
	for _, tt := range tests {
		c := ResolveChoice(tt.selected, tt.other, options)
		if c.IsCustom() != tt.custom || c.Value() != tt.value {
			t.Errorf("ResolveChoice(%q,%q) = {%v %q}", tt.selected, tt.other, c.IsCustom(), c.Value())
		}
	}
}

func TestBeneficiaryJSON_KeepsExtraFields(t *testing.T) {
	in := `{"beneficiary_id":17,"farmer_name":"Ram","center_name":"A","quantity":"2.5","rate":10,"aadhaar_last4":"1234"}`
	var b Beneficiary
	if err := json.Unmarshal([]byte(in), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if b.ID != "17" || b.Quantity != 2.5 || b.Rate != 10 {
		t.Fatalf("decoded %+v", b)
	}
	if b.Extra["aadhaar_last4"] != "1234" {
		t.Fatalf("extra = %v", b.Extra)
	}
	out, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["beneficiary_id"] != "17" || m["aadhaar_last4"] != "1234" || m["farmer_name"] != "Ram" {
		t.Fatalf("flattened body = %v", m)
	}
}

func TestBeneficiaryValidate(t *testing.T) {
	tests := []struct {
		name string
		b    Beneficiary
		want error
	}{
		{"ok", Beneficiary{FarmerName: "Ram", CenterName: "A"}, nil},
		{"no farmer", Beneficiary{CenterName: "A"}, ErrMissingFarmerName},
		{"no center", Beneficiary{FarmerName: "Ram"}, ErrMissingCenter},
		{"negative", Beneficiary{FarmerName: "Ram", CenterName: "A", Quantity: -1}, ErrInvalidQuantity},
	}
	for _, tt := range tests {
		if err := tt.b.Validate(); !errors.Is(err, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestFetchErrorTaxonomy(t *testing.T) {
	tests := []struct {
		err       error
		sentinel  error
		message   string
		retryable bool
	}{
		{NetworkError("billing", errors.New("dial tcp: refused")), ErrNetwork, MessageNetwork, true},
		{ServerError("billing", 500), ErrServer, MessageServer, true},
		{DataError("billing", errors.New("unexpected EOF")), ErrData, MessageData, false},
	}
	for _, tt := range tests {
		wrapped := fmt.Errorf("refresh: %w", tt.err)
		if !errors.Is(wrapped, tt.sentinel) {
			t.Errorf("%v: not %v", tt.err, tt.sentinel)
		}
		if got := UserMessage(wrapped); got != tt.message {
			t.Errorf("%v: message %q", tt.err, got)
		}
		var fe *FetchError
		if !errors.As(wrapped, &fe) || fe.Retryable() != tt.retryable {
			t.Errorf("%v: retryable mismatch", tt.err)
		}
	}
	if UserMessage(errors.New("boom")) != MessageData {
		t.Fatal("unclassified errors should map to the data message")
	}
	if errors.Is(ServerError("x", 502), ErrNetwork) {
		t.Fatal("server error matched network sentinel")
	}
}
