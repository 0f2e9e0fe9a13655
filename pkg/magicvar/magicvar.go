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

// Package magicvar resolves the ${...} token language used in derived
// invoice filenames and fields.
package magicvar

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kraklabs/rdesys/internal/rdeerrors"
)

var tokenPattern = regexp.MustCompile(`\$\{([^}]*)\}`)

var collapseUnderscores = regexp.MustCompile(`_{2,}`)

// Context supplies the values a token can resolve to.
type Context struct {
	// Filename is the raw file name (with extension) of the tile's first
	// input file.
	Filename string
	// InvoiceOrg is the caller-provided original invoice, used as the
	// template base for invoice:basic:*, invoice:custom:* and
	// invoice:sample:names.
	InvoiceOrg map[string]any
	// MetadataConstant is metadata.json's constant section, keyed by
	// field name, holding already-stringified values.
	MetadataConstant map[string]string
}

// Resolve substitutes every ${...} token found in s. Missing fields are
// fatal (TemplateError); metadata:variable:* is always rejected.
func Resolve(s string, ctx Context) (string, error) {
	var firstErr error
	out := tokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		if firstErr != nil {
			return tok
		}
		inner := strings.TrimSuffix(strings.TrimPrefix(tok, "${"), "}")
		val, err := resolveToken(inner, ctx)
		if err != nil {
			firstErr = err
			return tok
		}
		return val
	})
	if firstErr != nil {
		return "", firstErr
	}
	// Empty-string substitutions leave adjacent underscores behind;
	// collapse them so "__" never appears in the result (§8 invariant).
	out = collapseUnderscores.ReplaceAllString(out, "_")
	return out, nil
}

// SubstituteDocument walks the basic/custom/sample sections of doc and
// resolves every ${...} token found in string leaves, returning a new
// document (doc itself is never mutated).
func SubstituteDocument(doc map[string]any, ctx Context) (map[string]any, error) {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if k != "basic" && k != "custom" && k != "sample" {
			out[k] = v
			continue
		}
		resolved, err := substituteValue(v, ctx)
		if err != nil {
			return nil, err
		}
		out[k] = resolved
	}
	return out, nil
}

func substituteValue(v any, ctx Context) (any, error) {
	switch val := v.(type) {
	case string:
		return Resolve(val, ctx)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			resolved, err := substituteValue(child, ctx)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			resolved, err := substituteValue(child, ctx)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

func resolveToken(inner string, ctx Context) (string, error) {
	if inner == "filename" {
		return ctx.Filename, nil
	}
	parts := strings.SplitN(inner, ":", 3)
	if len(parts) < 2 || parts[0] != "invoice" && parts[0] != "metadata" {
		return "", templateErr(inner, "unrecognized magic-variable pattern")
	}
	switch parts[0] {
	case "invoice":
		if len(parts) != 3 {
			return "", templateErr(inner, "expected invoice:<section>:<field>")
		}
		return resolveInvoiceToken(inner, parts[1], parts[2], ctx)
	case "metadata":
		if len(parts) != 3 {
			return "", templateErr(inner, "expected metadata:<section>:<field>")
		}
		return resolveMetadataToken(inner, parts[1], parts[2], ctx)
	}
	return "", templateErr(inner, "unrecognized magic-variable pattern")
}

func resolveInvoiceToken(tok, section, field string, ctx Context) (string, error) {
	if section == "sample" {
		if field != "names" {
			return "", templateErr(tok, "only invoice:sample:names is supported")
		}
		return joinSampleNames(ctx.InvoiceOrg), nil
	}
	if section != "basic" && section != "custom" {
		return "", templateErr(tok, "invoice section must be basic, custom, or sample")
	}
	sec, _ := ctx.InvoiceOrg[section].(map[string]any)
	val, ok := sec[field]
	if !ok {
		return "", templateErr(tok, fmt.Sprintf("invoice_org.%s.%s is not present", section, field))
	}
	return fmt.Sprint(val), nil
}

func joinSampleNames(invoiceOrg map[string]any) string {
	sample, _ := invoiceOrg["sample"].(map[string]any)
	namesAny, _ := sample["names"].([]any)
	var parts []string
	for _, n := range namesAny {
		s := fmt.Sprint(n)
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "_")
}

func resolveMetadataToken(tok, section, field string, ctx Context) (string, error) {
	if section == "variable" {
		return "", templateErr(tok, "metadata:variable:* is rejected — it varies at runtime")
	}
	if section != "constant" {
		return "", templateErr(tok, "metadata section must be constant")
	}
	val, ok := ctx.MetadataConstant[field]
	if !ok {
		return "", templateErr(tok, fmt.Sprintf("metadata.constant.%s is not present", field))
	}
	return val, nil
}

func templateErr(token, detail string) error {
	return rdeerrors.NewTemplateError(
		"Magic-variable resolution failed",
		fmt.Sprintf("${%s}: %s", token, detail),
		"check the invoice/metadata context supplies the referenced field",
		nil,
	)
}
