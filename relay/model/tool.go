package model

import (
	"encoding/json"
	"sync"

	"github.com/Laisky/errors/v2"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ToolSpecification describes a tool the model may call.
type ToolSpecification struct {
	Name        string          `json:"name" validate:"required,max=64"`
	Description string          `json:"description,omitempty"`
	Parameters  *ToolParameters `json:"parameters,omitempty"`
}

// Validate checks the specification is usable by a provider.
func (s *ToolSpecification) Validate() error {
	if err := getValidator().Struct(s); err != nil {
		return errors.Wrapf(err, "invalid tool specification %q", s.Name)
	}
	return nil
}

// ToolParameters is the argument schema of a tool.
type ToolParameters struct {
	Properties map[string]map[string]any
	Required   []string
}

// MarshalJSON renders the parameters as a JSON Schema object.
func (p *ToolParameters) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Schema())
}

// Schema returns the JSON Schema object for the parameters.
func (p *ToolParameters) Schema() map[string]any {
	props := p.Properties
	if props == nil {
		props = map[string]map[string]any{}
	}
	required := p.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// ToolSpecificationBuilder assembles a ToolSpecification.
type ToolSpecificationBuilder struct {
	spec ToolSpecification
}

// NewToolSpecification starts a builder for the named tool.
func NewToolSpecification(name string) *ToolSpecificationBuilder {
	return &ToolSpecificationBuilder{spec: ToolSpecification{Name: name}}
}

func (b *ToolSpecificationBuilder) Description(description string) *ToolSpecificationBuilder {
	b.spec.Description = description
	return b
}

// AddParameter adds a required parameter.
func (b *ToolSpecificationBuilder) AddParameter(name string, props ...JSONSchemaProperty) *ToolSpecificationBuilder {
	b.addParameter(name, props)
	b.spec.Parameters.Required = append(b.spec.Parameters.Required, name)
	return b
}

// AddOptionalParameter adds a parameter the model may omit.
func (b *ToolSpecificationBuilder) AddOptionalParameter(name string, props ...JSONSchemaProperty) *ToolSpecificationBuilder {
	b.addParameter(name, props)
	return b
}

func (b *ToolSpecificationBuilder) addParameter(name string, props []JSONSchemaProperty) {
	if b.spec.Parameters == nil {
		b.spec.Parameters = &ToolParameters{Properties: map[string]map[string]any{}}
	}
	schema := make(map[string]any, len(props))
	for _, p := range props {
		schema[p.Key] = p.Value
	}
	b.spec.Parameters.Properties[name] = schema
}

// Build validates and returns the specification.
func (b *ToolSpecificationBuilder) Build() (*ToolSpecification, error) {
	spec := b.spec
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// JSONSchemaProperty is one key of a parameter's JSON Schema.
type JSONSchemaProperty struct {
	Key   string
	Value any
}

var (
	Integer = JSONSchemaProperty{Key: "type", Value: "integer"}
	Number  = JSONSchemaProperty{Key: "type", Value: "number"}
	String  = JSONSchemaProperty{Key: "type", Value: "string"}
	Boolean = JSONSchemaProperty{Key: "type", Value: "boolean"}
	Array   = JSONSchemaProperty{Key: "type", Value: "array"}
	Object  = JSONSchemaProperty{Key: "type", Value: "object"}
)

func Description(description string) JSONSchemaProperty {
	return JSONSchemaProperty{Key: "description", Value: description}
}

func Enum(values ...string) JSONSchemaProperty {
	return JSONSchemaProperty{Key: "enum", Value: values}
}

// Items describes the element schema of an Array parameter.
func Items(props ...JSONSchemaProperty) JSONSchemaProperty {
	schema := make(map[string]any, len(props))
	for _, p := range props {
		schema[p.Key] = p.Value
	}
	return JSONSchemaProperty{Key: "items", Value: schema}
}

// ToolExecutionRequest is a tool call issued by the model.
// Arguments is a JSON object encoded as a string.
type ToolExecutionRequest struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name" validate:"required"`
	Arguments string `json:"arguments" validate:"omitempty,json"`
}

// Validate checks the request names a tool and carries well-formed arguments.
func (r ToolExecutionRequest) Validate() error {
	if err := getValidator().Struct(r); err != nil {
		return errors.Wrapf(err, "invalid tool execution request %q", r.Name)
	}
	return nil
}

// ArgumentsMap decodes Arguments. Empty arguments decode to an empty map.
func (r ToolExecutionRequest) ArgumentsMap() (map[string]any, error) {
	out := map[string]any{}
	if r.Arguments == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(r.Arguments), &out); err != nil {
		return nil, errors.Wrapf(err, "decode arguments of tool %q", r.Name)
	}
	return out, nil
}
