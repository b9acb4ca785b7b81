package tools

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Registry maps tool names to their implementations. Built once at startup;
// immutable afterwards. Dispatch is an explicit name lookup, no reflection.
type Registry struct {
	order  []string
	byName map[string]Tool
}

// NewRegistry validates each tool's descriptor and registers it. Malformed
// descriptors and duplicate names are programming errors caught here rather
// than at invocation time.
func NewRegistry(list ...Tool) (*Registry, error) {
	r := &Registry{byName: make(map[string]Tool, len(list))}
	for _, t := range list {
		if err := validateDescriptor(t); err != nil {
			return nil, fmt.Errorf("register tool %q: %w", t.Name, err)
		}
		if _, dup := r.byName[t.Name]; dup {
			return nil, fmt.Errorf("register tool %q: duplicate name", t.Name)
		}
		r.byName[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return r, nil
}

func validateDescriptor(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("name is empty")
	}
	if t.Execute == nil {
		return fmt.Errorf("execute function is nil")
	}
	if t.InputSchema == nil {
		return fmt.Errorf("input schema is nil")
	}
	if typ, _ := t.InputSchema["type"].(string); typ != "object" {
		return fmt.Errorf("input schema type must be \"object\"")
	}
	props, err := schemaProperties(t.InputSchema)
	if err != nil {
		return err
	}
	for _, req := range schemaRequired(t.InputSchema) {
		if _, ok := props[req]; !ok {
			return fmt.Errorf("required parameter %q not in properties", req)
		}
	}
	return nil
}

// List returns the registered tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, len(r.order))
	for i, name := range r.order {
		out[i] = r.byName[name]
	}
	return out
}

// Invoke validates params against the named tool's schema and dispatches.
// Unknown names fail with *NotFoundError, schema violations with
// *InvocationError before the underlying function runs. Execution errors
// (such as *dataset.ComputeError) pass through unchanged.
func (r *Registry) Invoke(ctx context.Context, name string, params map[string]interface{}) (string, error) {
	t, ok := r.byName[name]
	if !ok {
		return "", &NotFoundError{Name: name}
	}
	if err := validateParams(t, params); err != nil {
		return "", err
	}

	result, err := t.Execute(ctx, params)
	if err != nil {
		log.Warn().Err(err).Str("tool", name).Msg("tool execution failed")
		return "", err
	}
	return result, nil
}

// validateParams rejects unknown keys, missing required keys, and type
// mismatches against the descriptor's JSON schema.
func validateParams(t Tool, params map[string]interface{}) error {
	props, err := schemaProperties(t.InputSchema)
	if err != nil {
		return &InvocationError{Tool: t.Name, Msg: err.Error()}
	}

	for key, val := range params {
		prop, ok := props[key]
		if !ok {
			return &InvocationError{Tool: t.Name, Msg: fmt.Sprintf("unknown parameter %q", key)}
		}
		if err := checkType(key, prop, val); err != nil {
			return &InvocationError{Tool: t.Name, Msg: err.Error()}
		}
	}

	for _, req := range schemaRequired(t.InputSchema) {
		if _, ok := params[req]; !ok {
			return &InvocationError{Tool: t.Name, Msg: fmt.Sprintf("missing required parameter %q", req)}
		}
	}
	return nil
}

func schemaProperties(schema map[string]interface{}) (map[string]map[string]interface{}, error) {
	raw, ok := schema["properties"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("input schema has no properties object")
	}
	props := make(map[string]map[string]interface{}, len(raw))
	for name, p := range raw {
		pm, ok := p.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("property %q is not an object", name)
		}
		props[name] = pm
	}
	return props, nil
}

func schemaRequired(schema map[string]interface{}) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []interface{}:
		out := make([]string, 0, len(req))
		for _, v := range req {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func checkType(key string, prop map[string]interface{}, val interface{}) error {
	typ, _ := prop["type"].(string)
	if typ == "" || val == nil {
		return nil
	}
	ok := false
	switch typ {
	case "string":
		_, ok = val.(string)
	case "boolean":
		_, ok = val.(bool)
	case "number":
		ok = isNumber(val)
	case "integer":
		if f, isNum := numberValue(val); isNum {
			ok = f == float64(int64(f))
		}
	case "array":
		_, ok = val.([]interface{})
	case "object":
		_, ok = val.(map[string]interface{})
	default:
		ok = true
	}
	if !ok {
		return fmt.Errorf("parameter %q must be of type %s", key, typ)
	}
	return nil
}

func isNumber(val interface{}) bool {
	_, ok := numberValue(val)
	return ok
}

func numberValue(val interface{}) (float64, bool) {
	switch n := val.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
