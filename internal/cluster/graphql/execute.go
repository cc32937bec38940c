package graphql

import (
	"context"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

// Response is a GraphQL response envelope: {data, errors}.
type Response struct {
	Data   map[string]interface{} `json:"data,omitempty"`
	Errors []string                `json:"errors,omitempty"`
}

// Execute parses and validates query against Schema, then hand-dispatches
// each top-level field of the first operation to the matching Resolver
// method. Unknown fields and parse/validation failures surface as entries in
// the response's errors list rather than a panic.
func (r *Resolver) Execute(ctx context.Context, query string, variables map[string]interface{}) Response {
	doc, err := parser.ParseQuery(&ast.Source{Name: "query", Input: query})
	if err != nil {
		return Response{Errors: []string{err.Error()}}
	}

	if errs := validator.Validate(Schema, doc); len(errs) > 0 {
		return Response{Errors: errListToStrings(errs)}
	}

	if len(doc.Operations) == 0 {
		return Response{Errors: []string{"no operation in query document"}}
	}
	op := doc.Operations[0]

	cache := newRequestCache()
	data := make(map[string]interface{}, len(op.SelectionSet))
	var errs []string

	for _, sel := range op.SelectionSet {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		alias := field.Alias
		if alias == "" {
			alias = field.Name
		}
		val, err := r.resolveField(ctx, cache, field, variables)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", field.Name, err))
			continue
		}
		data[alias] = val
	}

	return Response{Data: data, Errors: errs}
}

func (r *Resolver) resolveField(ctx context.Context, cache *requestCache, field *ast.Field, variables map[string]interface{}) (interface{}, error) {
	switch field.Name {
	case "containers":
		var agentID *string
		if v, ok := argString(field, variables, "agentId"); ok {
			agentID = &v
		}
		return r.Containers(ctx, agentID), nil

	case "containerDetails":
		containerID, _ := argString(field, variables, "containerId")
		agentID, _ := argString(field, variables, "agentId")
		return r.ContainerDetails(ctx, cache, containerID, agentID)

	case "agents":
		return r.Agents(ctx), nil

	default:
		return nil, fmt.Errorf("unknown field %q", field.Name)
	}
}

// argString resolves one field argument, following $variable references.
func argString(field *ast.Field, variables map[string]interface{}, name string) (string, bool) {
	arg := field.Arguments.ForName(name)
	if arg == nil || arg.Value == nil {
		return "", false
	}
	if arg.Value.Kind == ast.Variable {
		v, ok := variables[arg.Value.Raw]
		if !ok {
			return "", false
		}
		s, ok := v.(string)
		return s, ok
	}
	return arg.Value.Raw, true
}

func errListToStrings(errs gqlerror.List) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}
