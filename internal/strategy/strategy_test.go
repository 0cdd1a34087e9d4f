package strategy

import "testing"

func TestRegistry_GetKnownNames(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Get(Naive).(*NaiveStrategy); !ok {
		t.Fatal("expected Naive to resolve to *NaiveStrategy")
	}
	if _, ok := r.Get(Pessimistic).(*PessimisticStrategy); !ok {
		t.Fatal("expected Pessimistic to resolve to *PessimisticStrategy")
	}
	if _, ok := r.Get(Optimistic).(*OptimisticStrategy); !ok {
		t.Fatal("expected Optimistic to resolve to *OptimisticStrategy")
	}
}

func TestRegistry_FallsBackToOptimisticForUnknownName(t *testing.T) {
	r := NewRegistry()

	got := r.Get(Name("does-not-exist"))
	if _, ok := got.(*OptimisticStrategy); !ok {
		t.Fatalf("expected unknown strategy name to fall back to optimistic, got %T", got)
	}
}
