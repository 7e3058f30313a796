// Package iampolicy reads IAM policy documents (trust policies and resource
// policies) well enough to answer "does this Allow statement grant X to Y".
package iampolicy

import (
	"errors"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// Statement is one normalized policy statement. Single-string fields of the
// JSON document are widened to slices.
type Statement struct {
	Sid        string
	Effect     string
	Actions    []string
	Principals map[string][]string
	// AnyPrincipal is set for "Principal": "*".
	AnyPrincipal bool
}

type Document struct {
	Version    string
	Statements []Statement
}

// Parse accepts a raw or URL-encoded JSON policy document.
func Parse(raw string) (Document, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Document{}, errors.New("empty policy document")
	}
	if !strings.HasPrefix(raw, "{") {
		decoded, err := url.QueryUnescape(raw)
		if err != nil {
			return Document{}, err
		}
		raw = decoded
	}
	if !gjson.Valid(raw) {
		return Document{}, errors.New("policy document is not valid JSON")
	}
	root := gjson.Parse(raw)
	doc := Document{Version: root.Get("Version").String()}
	statements := root.Get("Statement")
	if statements.IsArray() {
		for _, item := range statements.Array() {
			doc.Statements = append(doc.Statements, parseStatement(item))
		}
	} else if statements.IsObject() {
		doc.Statements = append(doc.Statements, parseStatement(statements))
	}
	return doc, nil
}

func parseStatement(value gjson.Result) Statement {
	stmt := Statement{
		Sid:        value.Get("Sid").String(),
		Effect:     value.Get("Effect").String(),
		Actions:    stringList(value.Get("Action")),
		Principals: map[string][]string{},
	}
	principal := value.Get("Principal")
	switch {
	case principal.Type == gjson.String && principal.String() == "*":
		stmt.AnyPrincipal = true
	case principal.IsObject():
		principal.ForEach(func(key, val gjson.Result) bool {
			stmt.Principals[key.String()] = stringList(val)
			return true
		})
	}
	return stmt
}

func stringList(value gjson.Result) []string {
	if value.IsArray() {
		out := make([]string, 0, len(value.Array()))
		for _, item := range value.Array() {
			out = append(out, item.String())
		}
		return out
	}
	if value.Exists() {
		return []string{value.String()}
	}
	return nil
}

func (s Statement) IsAllow() bool {
	return strings.EqualFold(s.Effect, "Allow")
}

// AllowsAction reports whether the statement's actions cover action, either
// exactly, through the service wildcard ("ecr:*") or through "*".
func (s Statement) AllowsAction(action string) bool {
	service := action
	if idx := strings.Index(action, ":"); idx >= 0 {
		service = action[:idx]
	}
	for _, candidate := range s.Actions {
		if candidate == "*" || strings.EqualFold(candidate, action) || strings.EqualFold(candidate, service+":*") {
			return true
		}
	}
	return false
}

// HasPrincipal reports whether principal is named under kind ("Service",
// "AWS"), counting "*" as a match.
func (s Statement) HasPrincipal(kind, principal string) bool {
	if s.AnyPrincipal {
		return true
	}
	for _, value := range s.Principals[kind] {
		if value == "*" || strings.EqualFold(value, principal) {
			return true
		}
	}
	return false
}

// Grants reports whether some Allow statement gives principal every action.
func (d Document) Grants(kind, principal string, actions ...string) bool {
	for _, stmt := range d.Statements {
		if !stmt.IsAllow() || !stmt.HasPrincipal(kind, principal) {
			continue
		}
		all := true
		for _, action := range actions {
			if !stmt.AllowsAction(action) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}
