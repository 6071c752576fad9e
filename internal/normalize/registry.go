package normalize

import "statesdb/internal/model"

// Kind selects the parser used for a field.
type Kind string

const (
	KindText        Kind = "text"
	KindInteger     Kind = "integer"
	KindFloat       Kind = "float"
	KindEnum        Kind = "enum"
	KindOrderedList Kind = "ordered_list"
	KindSet         Kind = "set"
	KindCity        Kind = "city"
)

// ParseFunc is a parser with its result type erased.
type ParseFunc func(model.Fragment) Result[any]

// Registry binds fields to kinds and kinds to parsers.
type Registry struct {
	parsers map[Kind]ParseFunc
	fields  map[model.Field]Kind
}

func textParser[T any](fn func(string) Result[T]) ParseFunc {
	return func(f model.Fragment) Result[any] { return erase(fn(f.Text)) }
}

// DefaultRegistry wires every known field to its parser.
func DefaultRegistry() *Registry {
	r := &Registry{
		parsers: map[Kind]ParseFunc{},
		fields:  map[model.Field]Kind{},
	}
	r.Register(KindText, textParser(ParseText))
	r.Register(KindInteger, textParser(ParseInteger))
	r.Register(KindFloat, textParser(ParseFloat))
	r.Register(KindEnum, textParser(ParseGovernment))
	r.Register(KindOrderedList, textParser(ParseTimezones))
	r.Register(KindSet, textParser(ParseLanguages))
	r.Register(KindCity, func(f model.Fragment) Result[any] { return erase(ParseCapital(f)) })

	r.Bind(model.FieldName, KindText)
	r.Bind(model.FieldCapital, KindCity)
	r.Bind(model.FieldGovernment, KindEnum)
	r.Bind(model.FieldPopulation, KindInteger)
	r.Bind(model.FieldArea, KindFloat)
	r.Bind(model.FieldDensity, KindFloat)
	r.Bind(model.FieldLanguages, KindSet)
	r.Bind(model.FieldTimezones, KindOrderedList)
	return r
}

// Register installs or replaces the parser for kind.
func (r *Registry) Register(kind Kind, fn ParseFunc) {
	r.parsers[kind] = fn
}

// Bind assigns a kind to a field.
func (r *Registry) Bind(field model.Field, kind Kind) {
	r.fields[field] = kind
}

// KindOf returns the kind bound to field.
func (r *Registry) KindOf(field model.Field) (Kind, bool) {
	k, ok := r.fields[field]
	return k, ok
}

// Parse runs the parser bound to field.
func (r *Registry) Parse(field model.Field, frag model.Fragment) Result[any] {
	kind, ok := r.fields[field]
	if !ok {
		return Fail[any]("no parser bound to field %s", field)
	}
	fn, ok := r.parsers[kind]
	if !ok {
		return Fail[any]("no parser registered for kind %s", kind)
	}
	return fn(frag)
}

// typed narrows an erased result back to T.
func typed[T any](r Result[any]) Result[T] {
	v, ok := r.Value()
	if !ok {
		return Result[T]{reason: r.Reason()}
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return Fail[T]("parser returned %T, want %T", v, zero)
	}
	return Ok(t)
}
