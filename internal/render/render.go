/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package render evaluates the SVG template substitution grammar:
// double-brace placeholders with an optional default filter,
//
//	{{ name }}
//	{{ name | default(value="fallback") }}
//
// Text outside placeholders passes through untouched. Callers are
// expected to fall back to the raw template on any error so a session
// always has a renderable frame.
package render

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Render substitutes args into the template. It returns an error on a
// malformed placeholder, an unknown filter, or a missing variable
// without a default; callers fall back to the raw template.
func Render(template string, args map[string]any) (string, error) {
	var out strings.Builder
	rest := template

	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		out.WriteString(rest[:open])

		closing := strings.Index(rest[open:], "}}")
		if closing < 0 {
			return "", fmt.Errorf("unclosed placeholder at offset %d", open)
		}

		expr := rest[open+2 : open+closing]
		value, err := evalExpr(expr, args)
		if err != nil {
			return "", err
		}
		out.WriteString(value)

		rest = rest[open+closing+2:]
	}
}

// evalExpr evaluates the inside of one placeholder: an identifier
// followed by zero or more pipe-separated filters.
func evalExpr(expr string, args map[string]any) (string, error) {
	parts := strings.Split(expr, "|")

	name := strings.TrimSpace(parts[0])
	if !isIdent(name) {
		return "", fmt.Errorf("invalid variable name %q", name)
	}

	value, present := args[name]
	if value == nil {
		// JSON null counts as absent.
		present = false
	}

	for _, raw := range parts[1:] {
		filter := strings.TrimSpace(raw)
		def, err := parseDefaultFilter(filter)
		if err != nil {
			return "", err
		}
		if !present {
			value = def
			present = true
		}
	}

	if !present {
		return "", fmt.Errorf("variable %q is undefined", name)
	}
	return formatValue(value)
}

// parseDefaultFilter parses `default(value=<literal>)`, the only
// supported filter, and returns the literal.
func parseDefaultFilter(filter string) (any, error) {
	inner, ok := strings.CutPrefix(filter, "default(")
	if !ok {
		return nil, fmt.Errorf("unknown filter %q", filter)
	}
	inner, ok = strings.CutSuffix(inner, ")")
	if !ok {
		return nil, fmt.Errorf("malformed filter %q", filter)
	}
	arg, ok := strings.CutPrefix(strings.TrimSpace(inner), "value")
	if !ok {
		return nil, fmt.Errorf("default filter requires a value argument, got %q", inner)
	}
	arg, ok = strings.CutPrefix(strings.TrimSpace(arg), "=")
	if !ok {
		return nil, fmt.Errorf("default filter requires a value argument, got %q", inner)
	}
	return parseLiteral(strings.TrimSpace(arg))
}

// parseLiteral parses a quoted string, a number, or a boolean.
func parseLiteral(lit string) (any, error) {
	if len(lit) >= 2 {
		if (lit[0] == '"' && lit[len(lit)-1] == '"') || (lit[0] == '\'' && lit[len(lit)-1] == '\'') {
			return lit[1 : len(lit)-1], nil
		}
	}
	switch lit {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if n, err := strconv.ParseFloat(lit, 64); err == nil {
		return n, nil
	}
	return nil, fmt.Errorf("invalid literal %q", lit)
}

// formatValue renders an argument value as template output. Strings
// are verbatim, numbers use their minimal decimal form, and composite
// values are re-encoded as compact JSON.
func formatValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case json.Number:
		return v.String(), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("unrenderable value: %w", err)
		}
		return string(data), nil
	}
}

// isIdent reports whether s is a valid variable name,
// [A-Za-z_][A-Za-z0-9_]*.
func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
