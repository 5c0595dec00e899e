package ecs

import (
	"fmt"
	"iter"
)

//go:generate go run ../cmd/gen-foreach -max 5 -o foreach_generated.go

// QueryResult holds the entities matching a signature, each paired with its
// components in dense-index order. It is only valid during the callback that
// produced it; the engine may move or invalidate components afterwards.
type QueryResult struct {
	signature *Signature
	registry  *TypeRegistry
	rows      []EntityRow
}

// Signature returns the filter the result was produced for.
func (r *QueryResult) Signature() *Signature {
	return r.signature
}

// Len returns the number of matching entities.
func (r *QueryResult) Len() int {
	return len(r.rows)
}

// Rows returns the matching rows. Row i's component at position j is the
// component whose type has dense index j in Signature.
func (r *QueryResult) Rows() []EntityRow {
	return r.rows
}

// Entities returns the matching entities in result order.
func (r *QueryResult) Entities() []Entity {
	entities := make([]Entity, len(r.rows))
	for i, row := range r.rows {
		entities[i] = row.Entity
	}
	return entities
}

// Iter iterates over entities and their dense component arrays.
func (r *QueryResult) Iter() iter.Seq2[Entity, []Component] {
	return func(yield func(Entity, []Component) bool) {
		for _, row := range r.rows {
			if !yield(row.Entity, row.Components) {
				return
			}
		}
	}
}

// ComponentAt returns the T component of row i.
func ComponentAt[T Component](r *QueryResult, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(r.rows) {
		return zero, fmt.Errorf("row %d: %w (result has %d rows)", i, ErrRowOutOfRange, len(r.rows))
	}
	idx, err := denseIndex[T](r.registry, r.signature)
	if err != nil {
		return zero, err
	}
	return component[T](r.rows[i], idx)
}

// Column iterates over every entity of r with its T component. The dense
// index of T is resolved once, before iteration starts.
func Column[T Component](r *QueryResult) (iter.Seq2[Entity, T], error) {
	idx, err := denseIndex[T](r.registry, r.signature)
	if err != nil {
		return nil, err
	}
	for _, row := range r.rows {
		if _, err := component[T](row, idx); err != nil {
			return nil, err
		}
	}
	return func(yield func(Entity, T) bool) {
		for _, row := range r.rows {
			if !yield(row.Entity, row.Components[idx].(T)) {
				return
			}
		}
	}, nil
}

// Query asks the engine for every entity matching sig, which need not be
// related to the System's own signature. sig is frozen by this call.
func (b *Base) Query(sig *Signature) (*QueryResult, error) {
	sig.Freeze()
	rows, err := fetch(b.engine, sig)
	if err != nil {
		return nil, err
	}
	return &QueryResult{
		signature: sig,
		registry:  b.registry,
		rows:      rows,
	}, nil
}

// QueryOf builds a signature from keys and queries it.
func (b *Base) QueryOf(keys ...TypeKey) (*QueryResult, error) {
	return b.Query(b.registry.SignatureOf(keys...))
}

// fetch performs the bulk fetch for sig and checks the result shape. Either
// every row is well formed or no rows are returned.
func fetch(engine Engine, sig *Signature) ([]EntityRow, error) {
	key, err := sig.IntegerKey()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", sig, err)
	}

	rows, err := engine.FetchEntitiesForSignature(key)
	if err != nil {
		return nil, fmt.Errorf("fetch entities for signature %s: %w", sig, err)
	}

	want := sig.Len()
	for i, row := range rows {
		if len(row.Components) != want {
			return nil, fmt.Errorf("%w: row %d (%s) has %d components, signature %s needs %d",
				ErrMalformedResult, i, row.Entity, len(row.Components), sig, want)
		}
	}
	return rows, nil
}

// ownRows freezes the System's signature and fetches its entities.
func (b *Base) ownRows() ([]EntityRow, error) {
	b.signature.Freeze()
	return fetch(b.engine, b.signature)
}

// denseIndex returns the position of T in sig. A T that was never assigned
// an id cannot be in sig and is not registered by this lookup.
func denseIndex[T Component](r *TypeRegistry, sig *Signature) (int, error) {
	key := KeyOf[T]()
	id, ok := r.Lookup(key)
	if !ok {
		return 0, fmt.Errorf("%s: %w", key, ErrTypeNotInSignature)
	}
	idx, err := sig.DenseIndexOf(id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return idx, nil
}

func component[T Component](row EntityRow, idx int) (T, error) {
	c, ok := row.Components[idx].(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s at position %d of %s: %w: got %T",
			KeyOf[T](), idx, row.Entity, ErrComponentTypeMismatch, row.Components[idx])
	}
	return c, nil
}
