package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"github.com/xiaot623/rolo/internal/domain"
)

// Normalize returns a copy of args with declared defaults filled in, then
// validates it against the schema. Absent and null values take the declared
// default; a blank string does too when the property declares one. Numeric
// strings are accepted for integer and number properties because models
// often quote them. Booleans are never coerced.
func Normalize(schema domain.ParameterSchema, args map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(args)+len(schema.Properties))
	for k, v := range args {
		if v != nil {
			out[k] = v
		}
	}

	for name, prop := range schema.Properties {
		v, ok := out[name]
		if prop.Default != nil && (!ok || isBlank(v)) {
			v, ok = prop.Default, true
			out[name] = v
		}
		if !ok {
			continue
		}
		switch prop.Type {
		case "integer":
			if n, ok := toInteger(v); ok {
				out[name] = n
			}
		case "number":
			if f, ok := toNumber(v); ok {
				out[name] = f
			}
		}
	}

	if err := validateSchema(schema, out); err != nil {
		return nil, err
	}
	return out, nil
}

// validateSchema checks args against schema with gojsonschema and reports
// every violation as one VALIDATION_ERROR.
func validateSchema(schema domain.ParameterSchema, args map[string]interface{}) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schemaDocument(schema)),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		return fmt.Errorf("failed to validate arguments: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		if field := e.Field(); field != "" && field != "(root)" {
			problems = append(problems, "argument "+field+": "+e.Description())
			continue
		}
		problems = append(problems, e.Description())
	}
	sort.Strings(problems)
	return domain.ValidationError("invalid arguments: %s", strings.Join(problems, "; "))
}

// schemaDocument renders the parts of schema that constrain values.
func schemaDocument(schema domain.ParameterSchema) map[string]interface{} {
	props := make(map[string]interface{}, len(schema.Properties))
	for name, prop := range schema.Properties {
		p := map[string]interface{}{}
		if prop.Type != "" {
			p["type"] = prop.Type
		}
		if len(prop.Enum) > 0 {
			p["enum"] = prop.Enum
		}
		props[name] = p
	}
	doc := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(schema.Required) > 0 {
		doc["required"] = schema.Required
	}
	return doc
}

func isBlank(v interface{}) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func toInteger(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if math.Trunc(v) == v && !math.IsInf(v, 0) {
			return int64(v), true
		}
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func toNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}
