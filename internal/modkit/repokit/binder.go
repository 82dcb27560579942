package repokit

// Binder produces a domain repo bound to a concrete Queryer, so the
// same SQL code runs against the pool or inside a transaction
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a plain function into a Binder
type BindFunc[T any] func(Queryer) T

func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// RequireQueryer panics on a nil Queryer, which is always a wiring bug
func RequireQueryer(q Queryer) Queryer {
	if q == nil {
		panic("repokit: nil Queryer")
	}
	return q
}

// MustBind validates q then binds
func MustBind[T any](b Binder[T], q Queryer) T {
	return b.Bind(RequireQueryer(q))
}
