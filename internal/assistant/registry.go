package assistant

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Function defines the interface for a registry-resident operation.
// Call receives the raw JSON arguments (already validated against the spec's
// Parameters schema) and returns a JSON-serializable payload.
type Function interface {
	Spec() FunctionSpec
	Call(args json.RawMessage) (map[string]any, error)
}

// FunctionResult status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// FunctionResult is the outcome of executing a function. Failures (unknown
// function, invalid arguments, handler error) come back as Status=StatusError
// rather than a Go error so the loop can report them to the provider and let
// it retry with corrected arguments.
type FunctionResult struct {
	Status  string         `json:"status"`
	Payload map[string]any `json:"payload,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Registry manages the available functions. Register compiles each function's
// Parameters schema once; after initialization the registry is read-only and
// safe to share across concurrent invocations.
type Registry struct {
	functions map[string]Function
	schemas   map[string]*jsonschema.Schema
	order     []string
}

// NewRegistry creates a new function registry
func NewRegistry() *Registry {
	return &Registry{
		functions: make(map[string]Function),
		schemas:   make(map[string]*jsonschema.Schema),
	}
}

// Register adds a function to the registry, compiling its argument schema.
// Registration order is preserved by Specs.
func (r *Registry) Register(f Function) error {
	spec := f.Spec()
	if spec.Name == "" {
		return fmt.Errorf("function spec has empty name")
	}
	if _, exists := r.functions[spec.Name]; exists {
		return fmt.Errorf("function %q already registered", spec.Name)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(spec.Parameters))
	if err != nil {
		return fmt.Errorf("invalid parameters schema for %q: %w", spec.Name, err)
	}
	compiler := jsonschema.NewCompiler()
	resource := spec.Name + ".schema.json"
	if err := compiler.AddResource(resource, doc); err != nil {
		return fmt.Errorf("adding schema resource for %q: %w", spec.Name, err)
	}
	schema, err := compiler.Compile(resource)
	if err != nil {
		return fmt.Errorf("compiling schema for %q: %w", spec.Name, err)
	}

	r.functions[spec.Name] = f
	r.schemas[spec.Name] = schema
	r.order = append(r.order, spec.Name)
	return nil
}

// Get retrieves a function by name
func (r *Registry) Get(name string) (Function, bool) {
	f, ok := r.functions[name]
	return f, ok
}

// Specs returns the specs of all registered functions in registration order
func (r *Registry) Specs() []FunctionSpec {
	specs := make([]FunctionSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.functions[name].Spec())
	}
	return specs
}

// Execute runs the named function with the given JSON arguments. It never
// returns a Go error: unknown function names, malformed or schema-invalid
// arguments, and handler failures all produce a StatusError result.
func (r *Registry) Execute(name string, args json.RawMessage) FunctionResult {
	f, ok := r.functions[name]
	if !ok {
		return FunctionResult{
			Status: StatusError,
			Error:  fmt.Sprintf("unknown function: %s", name),
		}
	}

	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	var v any
	if err := json.Unmarshal(args, &v); err != nil {
		return FunctionResult{
			Status: StatusError,
			Error:  fmt.Sprintf("invalid arguments for %s: %v", name, err),
		}
	}
	if err := r.schemas[name].Validate(v); err != nil {
		return FunctionResult{
			Status: StatusError,
			Error:  fmt.Sprintf("invalid arguments for %s: %v", name, err),
		}
	}

	payload, err := f.Call(args)
	if err != nil {
		return FunctionResult{
			Status: StatusError,
			Error:  fmt.Sprintf("%s failed: %v", name, err),
		}
	}
	return FunctionResult{Status: StatusSuccess, Payload: payload}
}

// Helper to parse args
func ParseArgs(args json.RawMessage, v interface{}) error {
	return json.Unmarshal(args, v)
}
