// ABOUTME: Pipeline elements
// ABOUTME: Typed result carriers passed between processing stages

package pipeline

import "github.com/nainya/metatree/pkg/metapath"

// ResultState classifies one pipeline result.
type ResultState int

const (
	Success ResultState = iota
	Failure
	Stop
)

func (s ResultState) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case Failure:
		return "FAILURE"
	case Stop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// ElementState tells the pipeline driver whether to keep feeding an
// element downstream.
type ElementState int

const (
	Continue ElementState = iota
	Halt
)

// Result is one typed outcome attached to an element.
type Result struct {
	State     ResultState
	Message   string
	BaseError map[string]any
}

// ToJSON renders the result for serialized pipeline output.
func (r Result) ToJSON() map[string]any {
	out := map[string]any{"state": r.State.String()}
	if r.BaseError != nil {
		out["error"] = r.BaseError
	}
	if r.Message != "" {
		out["message"] = r.Message
	}
	return out
}

// Element is the unit of data flowing through a pipeline. It carries
// typed result lists, the element path, and free-form dynamic data
// stages use to communicate.
type Element struct {
	State ElementState
	Path  metapath.Path

	results map[string][]Result
	dynamic map[string]any
}

// NewElement creates an empty element in the Continue state.
func NewElement(path metapath.Path) *Element {
	return &Element{
		Path:    path,
		results: map[string][]Result{},
		dynamic: map[string]any{},
	}
}

// DynamicData returns stage-attached data, or nil when unset.
func (e *Element) DynamicData(key string) any {
	return e.dynamic[key]
}

// SetDynamicData attaches stage data under a key.
func (e *Element) SetDynamicData(key string, data any) {
	e.dynamic[key] = data
}

// AddResult appends one result under a result type.
func (e *Element) AddResult(resultType string, result Result) {
	e.results[resultType] = append(e.results[resultType], result)
}

// AddResults appends a result list under a result type.
func (e *Element) AddResults(resultType string, results []Result) {
	e.results[resultType] = append(e.results[resultType], results...)
}

// SetResults replaces the result list of a result type.
func (e *Element) SetResults(resultType string, results []Result) {
	e.results[resultType] = results
}

// Results returns the result list of a type, or nil.
func (e *Element) Results(resultType string) []Result {
	return e.results[resultType]
}

// Copy returns an independent element with the same results and
// dynamic data. Result lists are copied; dynamic values are shared.
func (e *Element) Copy() *Element {
	copied := NewElement(e.Path)
	for resultType, results := range e.results {
		copied.results[resultType] = append([]Result(nil), results...)
	}
	for key, value := range e.dynamic {
		copied.dynamic[key] = value
	}
	return copied
}

// ToJSON renders the element for serialized pipeline output.
func (e *Element) ToJSON() map[string]any {
	results := map[string]any{}
	for resultType, list := range e.results {
		rendered := make([]map[string]any, 0, len(list))
		for _, result := range list {
			rendered = append(rendered, result.ToJSON())
		}
		results[resultType] = rendered
	}
	results["path"] = e.Path.String()
	return map[string]any{
		"state":  e.State.stateName(),
		"result": results,
	}
}

func (s ElementState) stateName() string {
	if s == Halt {
		return "STOP"
	}
	return "CONTINUE"
}
