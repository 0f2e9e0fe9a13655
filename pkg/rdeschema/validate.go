// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package rdeschema

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kraklabs/rdesys/pkg/result"
)

// ErrorKind enumerates the ways a document can fail validation.
type ErrorKind string

const (
	KindMissing        ErrorKind = "Missing"
	KindTypeMismatch   ErrorKind = "TypeMismatch"
	KindEnumViolation  ErrorKind = "EnumViolation"
	KindExtraProperty  ErrorKind = "ExtraProperty"
	KindFormatError    ErrorKind = "FormatError"
	KindSizeExceeded   ErrorKind = "SizeExceeded"
)

// ReportItem is one validation failure, localized to a field path.
type ReportItem struct {
	Path   string
	Kind   ErrorKind
	Detail string
}

// ValidationReport collects every failure found in a single document.
// Validation is fail-slow within a document: every reachable error is
// collected rather than stopping at the first one.
type ValidationReport struct {
	Items []ReportItem
}

func (r *ValidationReport) add(path string, kind ErrorKind, detail string) {
	r.Items = append(r.Items, ReportItem{Path: path, Kind: kind, Detail: detail})
}

func (r *ValidationReport) Empty() bool { return len(r.Items) == 0 }

func (r *ValidationReport) Error() string {
	if r.Empty() {
		return "no validation errors"
	}
	s := fmt.Sprintf("%d validation error(s):", len(r.Items))
	for _, it := range r.Items {
		s += fmt.Sprintf("\n  %s: %s (%s)", it.Path, it.Detail, it.Kind)
	}
	return s
}

// ValidateOptions configures validate_invoice.
type ValidateOptions struct {
	// RequiredOnly restricts checks to fields declared required by the
	// schema (plus the always-required basic/datasetId containers).
	RequiredOnly bool
}

// sampleWhenRestructuredMarker names the one field of the allow-shape referenced in §4.C2:
// when a sample has been restructured (split across multiple physical
// samples) only sampleId is mandatory; the rest of the usual sample
// requirements are waived.
const sampleWhenRestructuredMarker = "sampleId"

// ValidateInvoice enforces required keys, type compatibility, enum
// membership and the sampleWhenRestructured allow-shape. doc is the
// generic JSON-decoded document (map[string]any); schema is the parsed
// invoice.schema.json.
func ValidateInvoice(doc map[string]any, schema *InvoiceSchema, opts ValidateOptions) result.Result[struct{}, *ValidationReport] {
	report := &ValidationReport{}
	if schema == nil || schema.Root == nil {
		return result.Ok[struct{}, *ValidationReport](struct{}{})
	}
	validateObject("$", schema.Root, doc, opts.RequiredOnly, report)
	restructuredSampleCheck(doc, report)
	if report.Empty() {
		return result.Ok[struct{}, *ValidationReport](struct{}{})
	}
	return result.Err[struct{}](report)
}

// restructuredSampleCheck implements the sampleWhenRestructured allow-shape:
// if sample.ownerId is absent (the physical sample belongs to another
// dataset, i.e. it was "restructured"), only sample.sampleId is required,
// overriding whatever else the schema would otherwise demand of sample.
func restructuredSampleCheck(doc map[string]any, report *ValidationReport) {
	sampleAny, ok := doc["sample"]
	if !ok {
		return
	}
	sample, ok := sampleAny.(map[string]any)
	if !ok {
		return
	}
	if _, hasOwner := sample["ownerId"]; hasOwner {
		return
	}
	kept := report.Items[:0]
	for _, it := range report.Items {
		if it.Kind == KindMissing && strings.HasPrefix(it.Path, "$/sample/") {
			continue
		}
		kept = append(kept, it)
	}
	report.Items = kept
	if _, hasSampleID := sample[sampleWhenRestructuredMarker]; !hasSampleID {
		report.add("$/sample/"+sampleWhenRestructuredMarker, KindMissing,
			"sample.sampleId is required when sample.ownerId is absent (restructured sample)")
	}
}

func validateObject(path string, f *Field, value any, requiredOnly bool, report *ValidationReport) {
	if f == nil {
		return
	}
	switch f.Type {
	case KindObject:
		obj, ok := asObject(value)
		if !ok {
			if value != nil {
				report.add(path, KindTypeMismatch, "expected object")
			}
			return
		}
		for _, req := range f.Required {
			if _, present := obj[req]; !present {
				report.add(path+"/"+req, KindMissing, "required field is missing")
			}
		}
		for _, name := range sortedKeys(f.Properties) {
			child := f.Properties[name]
			childVal, present := obj[name]
			if !present {
				// missing required fields were already reported above
				continue
			}
			if requiredOnly && !contains(f.Required, name) && !(path == "$" && (name == "basic" || name == "datasetId")) {
				continue
			}
			validateObject(path+"/"+name, child, childVal, requiredOnly, report)
		}
	case KindArray:
		arr, ok := value.([]any)
		if !ok {
			if value != nil {
				report.add(path, KindTypeMismatch, "expected array")
			}
			return
		}
		if f.Items != nil {
			for i, el := range arr {
				validateObject(fmt.Sprintf("%s[%d]", path, i), f.Items, el, requiredOnly, report)
			}
		}
	default:
		validateScalar(path, f, value, report)
	}
}

func validateScalar(path string, f *Field, value any, report *ValidationReport) {
	if value == nil {
		return
	}
	switch f.Type {
	case KindString:
		if _, ok := value.(string); !ok {
			report.add(path, KindTypeMismatch, "expected string")
			return
		}
	case KindNumber:
		if !isNumber(value) {
			report.add(path, KindTypeMismatch, "expected number")
			return
		}
	case KindInteger:
		if !isInteger(value) {
			report.add(path, KindTypeMismatch, "expected integer")
			return
		}
	case KindBoolean:
		if _, ok := value.(bool); !ok {
			report.add(path, KindTypeMismatch, "expected boolean")
			return
		}
	}
	if len(f.Enum) > 0 && !enumContains(f.Enum, value) {
		report.add(path, KindEnumViolation, fmt.Sprintf("value %v is not one of the declared enum values", value))
	}
}

func asObject(value any) (map[string]any, bool) {
	m, ok := value.(map[string]any)
	return m, ok
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64, decimal.Decimal:
		return true
	}
	return false
}

func isInteger(v any) bool {
	switch n := v.(type) {
	case int, int64:
		return true
	case float64:
		return n == float64(int64(n))
	case decimal.Decimal:
		return n.Equal(n.Truncate(0))
	}
	return false
}

// enumContains compares by decimal value rather than string form when either
// side is a decimal.Decimal, so that "1.50" still matches a declared enum
// value of 1.5.
func enumContains(enum []any, value any) bool {
	if d, ok := value.(decimal.Decimal); ok {
		for _, e := range enum {
			if ed, err := decimal.NewFromString(fmt.Sprint(e)); err == nil && ed.Equal(d) {
				return true
			}
		}
		return false
	}
	for _, e := range enum {
		if fmt.Sprint(e) == fmt.Sprint(value) {
			return true
		}
	}
	return false
}

func contains(list []string, name string) bool {
	for _, l := range list {
		if l == name {
			return true
		}
	}
	return false
}
