package buffer

import (
	"reflect"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNewRing(t *testing.T) {
	r := NewRing[int](5)
	if r.Cap() != 5 {
		t.Errorf("expected capacity 5, got %d", r.Cap())
	}
	if r.Len() != 0 {
		t.Errorf("expected length 0, got %d", r.Len())
	}

	// Zero and negative capacity default to 1
	if c := NewRing[int](0).Cap(); c != 1 {
		t.Errorf("expected capacity 1 for zero input, got %d", c)
	}
	if c := NewRing[int](-5).Cap(); c != 1 {
		t.Errorf("expected capacity 1 for negative input, got %d", c)
	}
}

func TestRing_Push(t *testing.T) {
	r := NewRing[string](3)
	r.Push("a")
	r.Push("b")

	if got := r.Items(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", got)
	}

	r.Push("c")
	r.Push("d")
	r.Push("e")

	if r.Len() != 3 {
		t.Errorf("expected length 3, got %d", r.Len())
	}
	if got := r.Items(); !reflect.DeepEqual(got, []string{"c", "d", "e"}) {
		t.Errorf("expected [c d e], got %v", got)
	}
}

func TestRing_ItemsIsCopy(t *testing.T) {
	r := NewRing[int](2)
	r.Push(1)

	items := r.Items()
	items[0] = 42

	if got := r.Items(); got[0] != 1 {
		t.Errorf("mutating the returned slice changed the buffer: %v", got)
	}
}

func TestRing_Clear(t *testing.T) {
	r := NewRing[int](2)
	r.Push(1)
	r.Push(2)
	r.Push(3)
	r.Clear()

	if r.Len() != 0 {
		t.Errorf("expected length 0 after clear, got %d", r.Len())
	}

	r.Push(4)
	if got := r.Items(); !reflect.DeepEqual(got, []int{4}) {
		t.Errorf("expected [4], got %v", got)
	}
}

func TestRing_Concurrent(t *testing.T) {
	r := NewRing[int](16)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Push(base*100 + j)
				_ = r.Items()
			}
		}(i)
	}
	wg.Wait()

	if r.Len() != 16 {
		t.Errorf("expected length 16, got %d", r.Len())
	}
}

// The buffer always holds the last min(n, cap) pushed items in push order.
func TestRing_Property_KeepsMostRecent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("items are the most recent pushes in order", prop.ForAll(
		func(capacity int, values []int) bool {
			r := NewRing[int](capacity)
			for _, v := range values {
				r.Push(v)
			}

			want := values
			if len(want) > capacity {
				want = want[len(want)-capacity:]
			}
			got := r.Items()
			if len(want) == 0 {
				return len(got) == 0
			}
			return reflect.DeepEqual(got, want)
		},
		gen.IntRange(1, 20),
		gen.SliceOf(gen.Int()),
	))

	properties.TestingRun(t)
}
