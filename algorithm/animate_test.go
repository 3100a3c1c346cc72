package algorithm

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"slices"
	"testing"
)

func TestCountInversions(t *testing.T) {
	tests := []struct {
		name string
		in   []int
		want int64
	}{
		{"empty", []int{}, 0},
		{"nil", nil, 0},
		{"single", []int{7}, 0},
		{"three", []int{3, 1, 2}, 2},
		{"ascending", []int{1, 2, 3, 4, 5}, 0},
		{"equal", []int{5, 5, 5}, 0},
		{"mixed", []int{1, 3, 5, 2, 4, 6}, 3},
		{"descending", []int{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountInversions(tt.in); got != tt.want {
				t.Errorf("CountInversions(%v) = %d, want %d", tt.in, got, tt.want)
			}
			if got := CountInversionsFast(tt.in); got != tt.want {
				t.Errorf("CountInversionsFast(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestCountInversionsDescendingIdentity(t *testing.T) {
	for n := 0; n <= 40; n++ {
		desc := make([]int, n)
		for i := range desc {
			desc[i] = n - i
		}
		want := int64(n * (n - 1) / 2)
		if got := CountInversions(desc); got != want {
			t.Fatalf("n=%d: got %d, want %d", n, got, want)
		}
		slices.Reverse(desc)
		if got := CountInversions(desc); got != 0 {
			t.Fatalf("n=%d reversed: got %d, want 0", n, got)
		}
	}
}

func TestCountInversionsFastEquivalence(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 200; round++ {
		n := rng.IntN(60)
		values := make([]float64, n)
		for i := range values {
			// 取值范围较小以制造大量重复元素。
			values[i] = float64(rng.IntN(15)-7) / 2
		}
		before := slices.Clone(values)

		naive := CountInversions(values)
		fast := CountInversionsFast(values)
		if naive != fast {
			t.Fatalf("round %d: naive=%d fast=%d for %v", round, naive, fast, values)
		}
		if !slices.Equal(values, before) {
			t.Fatalf("round %d: input mutated", round)
		}
	}
}

func TestAnimateQuickSort_Scenario(t *testing.T) {
	run := AnimateQuickSort([]int{3, 1, 2})

	if run.Len() != 1 {
		t.Fatalf("expected 1 frame, got %d", run.Len())
	}
	if !slices.Equal(run.Frames[0], []int{1, 2, 3}) {
		t.Errorf("unexpected frame: %v", run.Frames[0])
	}
	if run.Inversions[0] != 0 {
		t.Errorf("expected final inversions 0, got %d", run.Inversions[0])
	}
	if run.Annotations[0] != "Pivot=2 placed at index 1" {
		t.Errorf("unexpected annotation: %q", run.Annotations[0])
	}
}

func TestAnimateQuickSort_EqualValues(t *testing.T) {
	run := AnimateQuickSort([]int{5, 5, 5})

	wantNotes := []string{"Pivot=5 placed at index 0", "Pivot=5 placed at index 1"}
	if !slices.Equal(run.Annotations, wantNotes) {
		t.Errorf("annotations = %q, want %q", run.Annotations, wantNotes)
	}
	for i, inv := range run.Inversions {
		if inv != 0 {
			t.Errorf("step %d: inversions = %d, want 0", i, inv)
		}
	}
	final, ok := run.Final()
	if !ok || !slices.Equal(final, []int{5, 5, 5}) {
		t.Errorf("final = %v, %v", final, ok)
	}
}

func TestAnimateMergeSort_Scenario(t *testing.T) {
	run := AnimateMergeSort([]int{3, 1, 2})

	wantFrames := [][]int{{3, 1, 2}, {1, 2, 3}}
	wantInv := []int64{2, 0}
	wantNotes := []string{
		"1 dropped at 0, 2 dropped at 1",
		"1 dropped at 0, 2 dropped at 1, 3 dropped at 2",
	}

	if !reflect.DeepEqual(run.Frames, wantFrames) {
		t.Errorf("frames = %v, want %v", run.Frames, wantFrames)
	}
	if !slices.Equal(run.Inversions, wantInv) {
		t.Errorf("inversions = %v, want %v", run.Inversions, wantInv)
	}
	if !slices.Equal(run.Annotations, wantNotes) {
		t.Errorf("annotations = %q, want %q", run.Annotations, wantNotes)
	}
}

func TestAnimateMergeSort_EqualValues(t *testing.T) {
	run := AnimateMergeSort([]int{5, 5, 5})

	wantNotes := []string{
		"5 dropped at 0, 5 dropped at 1",
		"5 dropped at 0, 5 dropped at 1, 5 dropped at 2",
	}
	if !slices.Equal(run.Annotations, wantNotes) {
		t.Errorf("annotations = %q, want %q", run.Annotations, wantNotes)
	}
	for i, inv := range run.Inversions {
		if inv != 0 {
			t.Errorf("step %d: inversions = %d, want 0", i, inv)
		}
	}
}

func TestAnimateMergeSort_PositionsRelativeToMergedRange(t *testing.T) {
	run := AnimateMergeSort([]int{4, 3, 2, 1})

	wantFrames := [][]int{{3, 4, 2, 1}, {3, 4, 1, 2}, {1, 2, 3, 4}}
	wantNotes := []string{
		"3 dropped at 0, 4 dropped at 1",
		"1 dropped at 0, 2 dropped at 1",
		"1 dropped at 0, 2 dropped at 1, 3 dropped at 2, 4 dropped at 3",
	}
	if !reflect.DeepEqual(run.Frames, wantFrames) {
		t.Errorf("frames = %v, want %v", run.Frames, wantFrames)
	}
	if !slices.Equal(run.Inversions, []int64{5, 4, 0}) {
		t.Errorf("inversions = %v", run.Inversions)
	}
	if !slices.Equal(run.Annotations, wantNotes) {
		t.Errorf("annotations = %q, want %q", run.Annotations, wantNotes)
	}
}

func TestAnimate_FloatAnnotations(t *testing.T) {
	run := AnimateQuickSort([]float64{2.5, 1})
	if run.Annotations[0] != "Pivot=1 placed at index 0" {
		t.Errorf("unexpected annotation: %q", run.Annotations[0])
	}

	run = AnimateMergeSort([]float64{2.5, 1})
	if run.Annotations[0] != "1 dropped at 0, 2.5 dropped at 1" {
		t.Errorf("unexpected annotation: %q", run.Annotations[0])
	}
}

func TestAnimate_EmptyAndSingleton(t *testing.T) {
	for _, in := range [][]float64{nil, {}, {42}} {
		for _, algo := range Algorithms() {
			run, err := Animate(algo, in)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", algo, err)
			}
			if !run.Empty() || run.Len() != 0 {
				t.Errorf("%s(%v): expected empty run, got %d frames", algo, in, run.Len())
			}
			if run.Frames == nil || run.Inversions == nil || run.Annotations == nil {
				t.Errorf("%s(%v): sequences must be empty, not nil", algo, in)
			}
			if _, ok := run.Final(); ok {
				t.Errorf("%s(%v): Final on empty run should report false", algo, in)
			}
		}
	}
}

func TestAnimate_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 2024))

	for round := 0; round < 150; round++ {
		n := 2 + rng.IntN(40)
		values := make([]int, n)
		for i := range values {
			values[i] = rng.IntN(30)
		}
		input := slices.Clone(values)
		sorted := slices.Sorted(slices.Values(values))

		finals := make([][]int, 0, 2)
		for _, algo := range Algorithms() {
			run, err := Animate(algo, values)
			if err != nil {
				t.Fatalf("%s: %v", algo, err)
			}

			if len(run.Frames) != len(run.Inversions) || len(run.Frames) != len(run.Annotations) {
				t.Fatalf("%s: sequence lengths differ: %d/%d/%d", algo,
					len(run.Frames), len(run.Inversions), len(run.Annotations))
			}

			for i, frame := range run.Frames {
				if len(frame) != n {
					t.Fatalf("%s step %d: frame length %d, want %d", algo, i, len(frame), n)
				}
				if got := CountInversions(frame); got != run.Inversions[i] {
					t.Fatalf("%s step %d: recorded %d, recount %d", algo, i, run.Inversions[i], got)
				}
			}

			final, ok := run.Final()
			if !ok {
				t.Fatalf("%s: expected frames for n=%d", algo, n)
			}
			if !slices.Equal(final, sorted) {
				t.Fatalf("%s: final %v, want %v", algo, final, sorted)
			}
			if run.Inversions[run.Len()-1] != 0 || CountInversions(final) != 0 {
				t.Fatalf("%s: final inversions not zero", algo)
			}

			switch algo {
			case AlgoMergeSort:
				if run.Len() != n-1 {
					t.Errorf("mergesort: %d merges for n=%d, want %d", run.Len(), n, n-1)
				}
			case AlgoQuickSort:
				if run.Len() < 1 || run.Len() > n-1 {
					t.Errorf("quicksort: %d partitions for n=%d", run.Len(), n)
				}
			}
			finals = append(finals, final)
		}

		if !slices.Equal(finals[0], finals[1]) {
			t.Fatalf("algorithms disagree: %v vs %v", finals[0], finals[1])
		}
		if !slices.Equal(values, input) {
			t.Fatalf("caller slice mutated: %v -> %v", input, values)
		}
	}
}

func TestAnimate_FastCountIdentical(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	values := make([]float64, 64)
	for i := range values {
		values[i] = rng.Float64()*200 - 100
	}

	for _, algo := range Algorithms() {
		slow, _ := Animate(algo, values)
		fast, _ := Animate(algo, values, WithFastInversionCount())
		if !reflect.DeepEqual(slow, fast) {
			t.Errorf("%s: fast inversion count changed the run", algo)
		}
	}
}

func TestAnimate_FramesAreSnapshots(t *testing.T) {
	run := AnimateMergeSort([]int{4, 3, 2, 1})
	first := slices.Clone(run.Frames[0])
	run.Frames[run.Len()-1][0] = 99
	if !slices.Equal(run.Frames[0], first) {
		t.Errorf("frames share backing storage")
	}
}

func TestRunSteps(t *testing.T) {
	run := AnimateMergeSort([]int{2, 1})
	steps := run.Steps()
	if len(steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(steps))
	}
	step := steps[0]
	if step.Index != 0 || step.Inversions != 0 || step.Annotation != "1 dropped at 0, 2 dropped at 1" {
		t.Errorf("unexpected step: %+v", step)
	}
	if !slices.Equal(step.Values, []int{1, 2}) {
		t.Errorf("unexpected values: %v", step.Values)
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := map[string]Algorithm{
		"quick":      AlgoQuickSort,
		"QuickSort":  AlgoQuickSort,
		" quicksort": AlgoQuickSort,
		"merge":      AlgoMergeSort,
		"MERGESORT":  AlgoMergeSort,
		"merge_sort": AlgoMergeSort,
	}
	for in, want := range tests {
		got, err := ParseAlgorithm(in)
		if err != nil || got != want {
			t.Errorf("ParseAlgorithm(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := ParseAlgorithm("bogosort"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("expected ErrUnknownAlgorithm, got %v", err)
	}
	if _, err := Animate(Algorithm("heap"), []int{2, 1}); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("expected ErrUnknownAlgorithm, got %v", err)
	}
}

func BenchmarkAnimateQuickSort(b *testing.B) {
	values := make([]int, 100)
	for i := range values {
		values[i] = (i * 37) % 101
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		AnimateQuickSort(values)
	}
}

func BenchmarkAnimateMergeSortFastCount(b *testing.B) {
	values := make([]int, 100)
	for i := range values {
		values[i] = (i * 37) % 101
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		AnimateMergeSort(values, WithFastInversionCount())
	}
}
