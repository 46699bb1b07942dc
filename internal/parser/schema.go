package parser

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mark3labs/mcp-go/mcp"
)

// maxSchemaDepth bounds nested property conversion; serializers may be recursive.
const maxSchemaDepth = 4

// schemaToMCPOptions converts an OpenAPI schema to MCP tool option
func schemaToMCPOptions(schema *openapi3.SchemaRef, name string, required bool) mcp.ToolOption {
	if schema == nil || schema.Value == nil || schema.Value.Type == nil {
		opts := []mcp.PropertyOption{mcp.Description("Request body")}
		if required {
			opts = append(opts, mcp.Required())
		}
		return mcp.WithObject(name, opts...)
	}

	s := schema.Value
	baseOpts := []mcp.PropertyOption{mcp.Description(s.Description)}
	if required {
		baseOpts = append(baseOpts, mcp.Required())
	}

	switch {
	case s.Type.Includes(openapi3.TypeArray):
		return createArrayOption(s, name, baseOpts)
	case s.Type.Includes(openapi3.TypeObject):
		return createObjectOption(s, name, baseOpts)
	case s.Type.Includes(openapi3.TypeString):
		return createStringOption(s, name, baseOpts)
	case s.Type.Includes(openapi3.TypeNumber) || s.Type.Includes(openapi3.TypeInteger):
		return createNumberOption(s, name, baseOpts)
	case s.Type.Includes(openapi3.TypeBoolean):
		return mcp.WithBoolean(name, baseOpts...)
	default:
		baseOpts = append(baseOpts, mcp.Description(fmt.Sprintf("%s (unknown type: %v)", s.Description, s.Type.Slice())))
		return mcp.WithObject(name, baseOpts...)
	}
}

func createArrayOption(s *openapi3.Schema, name string, baseOpts []mcp.PropertyOption) mcp.ToolOption {
	opts := baseOpts
	if s.Items != nil && s.Items.Value != nil {
		opts = append(opts, mcp.Items(jsonSchema(s.Items.Value, 0)))
	}
	return mcp.WithArray(name, opts...)
}

// createObjectOption describes a request body object. Read-only properties
// (ids, timestamps) are server generated and left out.
func createObjectOption(s *openapi3.Schema, name string, baseOpts []mcp.PropertyOption) mcp.ToolOption {
	opts := baseOpts
	if props := writableProperties(s, 0); len(props) > 0 {
		opts = append(opts, mcp.Properties(props))
	}

	if s.MaxProps != nil {
		opts = append(opts, mcp.MaxProperties(int(*s.MaxProps)))
	}
	if s.MinProps != 0 {
		opts = append(opts, mcp.MinProperties(int(s.MinProps)))
	}
	if s.AdditionalProperties.Has != nil && *s.AdditionalProperties.Has {
		if ap := s.AdditionalProperties.Schema; ap != nil && ap.Value != nil {
			opts = append(opts, mcp.AdditionalProperties(jsonSchema(ap.Value, 0)))
		} else {
			opts = append(opts, mcp.AdditionalProperties(true))
		}
	}

	if required := writableRequired(s); len(required) > 0 {
		opts = append(opts, func(m map[string]any) {
			m["required"] = required
		})
	}

	return mcp.WithObject(name, opts...)
}

func createStringOption(s *openapi3.Schema, name string, baseOpts []mcp.PropertyOption) mcp.ToolOption {
	opts := baseOpts
	if enum := stringEnum(s.Enum); len(enum) > 0 {
		opts = append(opts, mcp.Enum(enum...))
	}
	if s.MaxLength != nil {
		opts = append(opts, mcp.MaxLength(int(*s.MaxLength)))
	}
	if s.MinLength != 0 {
		opts = append(opts, mcp.MinLength(int(s.MinLength)))
	}
	if s.Pattern != "" {
		opts = append(opts, mcp.Pattern(s.Pattern))
	}
	return mcp.WithString(name, opts...)
}

func createNumberOption(s *openapi3.Schema, name string, baseOpts []mcp.PropertyOption) mcp.ToolOption {
	opts := baseOpts
	if s.Max != nil {
		opts = append(opts, mcp.Max(*s.Max))
	}
	if s.Min != nil {
		opts = append(opts, mcp.Min(*s.Min))
	}
	if s.MultipleOf != nil {
		opts = append(opts, mcp.MultipleOf(*s.MultipleOf))
	}
	return mcp.WithNumber(name, opts...)
}

// jsonSchema renders s as a plain JSON Schema map.
func jsonSchema(s *openapi3.Schema, depth int) map[string]interface{} {
	out := make(map[string]interface{})
	if s.Type != nil && len(s.Type.Slice()) > 0 {
		out["type"] = s.Type.Slice()[0]
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.Format != "" {
		out["format"] = s.Format
	}
	if s.Nullable {
		out["nullable"] = true
	}

	switch {
	case s.Type.Includes(openapi3.TypeString):
		if s.MaxLength != nil {
			out["maxLength"] = *s.MaxLength
		}
		if s.MinLength != 0 {
			out["minLength"] = s.MinLength
		}
		if s.Pattern != "" {
			out["pattern"] = s.Pattern
		}
		if len(s.Enum) > 0 {
			out["enum"] = s.Enum
		}
	case s.Type.Includes(openapi3.TypeNumber) || s.Type.Includes(openapi3.TypeInteger):
		if s.Max != nil {
			out["maximum"] = *s.Max
		}
		if s.Min != nil {
			out["minimum"] = *s.Min
		}
		if s.MultipleOf != nil {
			out["multipleOf"] = *s.MultipleOf
		}
	case s.Type.Includes(openapi3.TypeArray):
		if s.Items != nil && s.Items.Value != nil && depth < maxSchemaDepth {
			out["items"] = jsonSchema(s.Items.Value, depth+1)
		}
	case s.Type.Includes(openapi3.TypeObject):
		if depth < maxSchemaDepth {
			if props := writableProperties(s, depth+1); len(props) > 0 {
				out["properties"] = props
			}
			if required := writableRequired(s); len(required) > 0 {
				out["required"] = required
			}
		}
	}
	return out
}

func writableProperties(s *openapi3.Schema, depth int) map[string]interface{} {
	props := make(map[string]interface{}, len(s.Properties))
	for name, prop := range s.Properties {
		if prop == nil || prop.Value == nil || prop.Value.ReadOnly {
			continue
		}
		props[name] = jsonSchema(prop.Value, depth)
	}
	return props
}

func writableRequired(s *openapi3.Schema) []string {
	var required []string
	for _, name := range s.Required {
		if prop, ok := s.Properties[name]; ok && prop != nil && prop.Value != nil && prop.Value.ReadOnly {
			continue
		}
		required = append(required, name)
	}
	return required
}

func stringEnum(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
