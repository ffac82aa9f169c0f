package repokit

// Binder binds a domain repo to a Queryer, either the pool or a live tx
type Binder[T any] interface {
	Bind(Queryer) T
}
