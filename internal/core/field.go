package core

import (
	"fmt"
	"strings"
)

// Field names a categorical column of a billing record.
type Field string

const (
	FieldCenter     Field = "center_name"
	FieldSource     Field = "source_of_receipt"
	FieldScheme     Field = "scheme_name"
	FieldComponent  Field = "component"
	FieldInvestment Field = "investment_name"
	FieldUnit       Field = "unit"
)

// Fields lists every groupable field in display order.
var Fields = []Field{FieldCenter, FieldSource, FieldScheme, FieldComponent, FieldInvestment, FieldUnit}

var fieldAccessors = map[Field]func(Record) string{
	FieldCenter:     func(r Record) string { return r.CenterName },
	FieldSource:     func(r Record) string { return r.SourceOfReceipt },
	FieldScheme:     func(r Record) string { return r.SchemeName },
	FieldComponent:  func(r Record) string { return r.Component },
	FieldInvestment: func(r Record) string { return r.InvestmentName },
	FieldUnit:       func(r Record) string { return r.Unit },
}

var fieldAliases = map[string]Field{
	"center":     FieldCenter,
	"source":     FieldSource,
	"scheme":     FieldScheme,
	"component":  FieldComponent,
	"investment": FieldInvestment,
	"unit":       FieldUnit,
}

var fieldLabels = map[Field]string{
	FieldCenter:     "Center",
	FieldSource:     "Source of Receipt",
	FieldScheme:     "Scheme",
	FieldComponent:  "Component",
	FieldInvestment: "Investment",
	FieldUnit:       "Unit",
}

// ParseField accepts a column key or its short alias.
func ParseField(s string) (Field, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if f, ok := fieldAliases[s]; ok {
		return f, nil
	}
	if _, ok := fieldAccessors[Field(s)]; ok {
		return Field(s), nil
	}
	return "", fmt.Errorf("unknown field %q", s)
}

func (f Field) Valid() bool {
	_, ok := fieldAccessors[f]
	return ok
}

// Label is the human readable column name.
func (f Field) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

func (f Field) String() string { return string(f) }
