package core

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrMissingBeneficiaryID = errors.New("missing beneficiary id")
	ErrMissingFarmerName    = errors.New("missing farmer name")
	ErrMissingCenter        = errors.New("missing center name")
	ErrInvalidQuantity      = errors.New("quantity and rate must not be negative")
)

// Beneficiary is a farmer registered against a center. Fields beyond the
// known set are kept in Extra and round-trip unchanged.
type Beneficiary struct {
	ID           string  `json:"beneficiary_id"`
	FarmerName   string  `json:"farmer_name"`
	FatherName   string  `json:"father_name,omitempty"`
	Category     string  `json:"category,omitempty"`
	Village      string  `json:"village_name,omitempty"`
	CenterName   string  `json:"center_name"`
	VikasKhand   string  `json:"vikas_khand_name,omitempty"`
	SupplyItem   string  `json:"supplied_item_name,omitempty"`
	Scheme       string  `json:"scheme_name,omitempty"`
	Unit         string  `json:"unit,omitempty"`
	Quantity     float64 `json:"quantity"`
	Rate         float64 `json:"rate"`
	MobileNumber string  `json:"mobile_number,omitempty"`

	Extra map[string]any `json:"-"`
}

type beneficiaryAlias Beneficiary

func (b *Beneficiary) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var flex struct {
		ID           flexString `json:"beneficiary_id"`
		FarmerName   flexString `json:"farmer_name"`
		FatherName   flexString `json:"father_name"`
		Category     flexString `json:"category"`
		Village      flexString `json:"village_name"`
		CenterName   flexString `json:"center_name"`
		VikasKhand   flexString `json:"vikas_khand_name"`
		SupplyItem   flexString `json:"supplied_item_name"`
		Scheme       flexString `json:"scheme_name"`
		Unit         flexString `json:"unit"`
		Quantity     flexNumber `json:"quantity"`
		Rate         flexNumber `json:"rate"`
		MobileNumber flexString `json:"mobile_number"`
	}
	if err := json.Unmarshal(data, &flex); err != nil {
		return err
	}
	*b = Beneficiary{
		ID:           string(flex.ID),
		FarmerName:   string(flex.FarmerName),
		FatherName:   string(flex.FatherName),
		Category:     string(flex.Category),
		Village:      string(flex.Village),
		CenterName:   string(flex.CenterName),
		VikasKhand:   string(flex.VikasKhand),
		SupplyItem:   string(flex.SupplyItem),
		Scheme:       string(flex.Scheme),
		Unit:         string(flex.Unit),
		Quantity:     flex.Quantity.value,
		Rate:         flex.Rate.value,
		MobileNumber: string(flex.MobileNumber),
	}
	for k, v := range raw {
		if knownBeneficiaryKeys[k] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		if b.Extra == nil {
			b.Extra = make(map[string]any)
		}
		b.Extra[k] = val
	}
	return nil
}

// MarshalJSON flattens Extra next to the known fields.
func (b Beneficiary) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(beneficiaryAlias(b))
	if err != nil {
		return nil, err
	}
	if len(b.Extra) == 0 {
		return known, nil
	}
	out := make(map[string]any, len(b.Extra)+len(knownBeneficiaryKeys))
	for k, v := range b.Extra {
		out[k] = v
	}
	var fields map[string]any
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		out[k] = v
	}
	return json.Marshal(out)
}

var knownBeneficiaryKeys = map[string]bool{
	"beneficiary_id": true, "farmer_name": true, "father_name": true, "category": true,
	"village_name": true, "center_name": true, "vikas_khand_name": true,
	"supplied_item_name": true, "scheme_name": true, "unit": true,
	"quantity": true, "rate": true, "mobile_number": true,
}

// ApplyChoices overwrites the dropdown-backed fields with resolved choices.
func (b *Beneficiary) ApplyChoices(category, unit, scheme, supplyItem Choice) {
	b.Category = category.Value()
	b.Unit = unit.Value()
	b.Scheme = scheme.Value()
	b.SupplyItem = supplyItem.Value()
}

// Validate checks the fields required to create a registration.
func (b Beneficiary) Validate() error {
	if strings.TrimSpace(b.FarmerName) == "" {
		return ErrMissingFarmerName
	}
	if strings.TrimSpace(b.CenterName) == "" {
		return ErrMissingCenter
	}
	if b.Quantity < 0 || b.Rate < 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// Region is the administrative placement of a center.
type Region struct {
	CenterName  string `json:"center_name"`
	VikasKhand  string `json:"vikas_khand_name"`
	VidhanSabha string `json:"vidhan_sabha_name"`
	District    string `json:"district_name"`
}
