package image

import (
	"reflect"
	"testing"

	"imageset-go/internal/platform/errors"
)

func TestPlan_StaticSizes(t *testing.T) {
	tests := []struct {
		name        string
		spec        SizeSpec
		sourceWidth int
		want        []int
	}{
		{
			name:        "clamped sizes deduplicate",
			spec:        SizeSpec{Sizes: []string{"50", "100", "1000"}},
			sourceWidth: 200,
			want:        []int{50, 100, 200},
		},
		{
			name:        "single static size",
			spec:        SizeSpec{Size: "300"},
			sourceWidth: 800,
			want:        []int{300},
		},
		{
			name:        "fractional size rounds down",
			spec:        SizeSpec{Size: "299.7"},
			sourceWidth: 800,
			want:        []int{299},
		},
		{
			name:        "no size source yields native width",
			spec:        SizeSpec{},
			sourceWidth: 640,
			want:        []int{640},
		},
		{
			name:        "duplicate clamps keep first occurrence order",
			spec:        SizeSpec{Sizes: []string{"500", "100", "900"}},
			sourceWidth: 400,
			want:        []int{400, 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Plan(tt.spec, tt.sourceWidth)
			if err != nil {
				t.Fatalf("Plan() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Plan() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlan_Range(t *testing.T) {
	tests := []struct {
		name        string
		spec        SizeSpec
		sourceWidth int
		want        []int
	}{
		{
			name:        "default steps over range",
			spec:        SizeSpec{Min: "10", Max: "100"},
			sourceWidth: 1000,
			want:        []int{10, 40, 70, 100},
		},
		{
			name:        "explicit steps",
			spec:        SizeSpec{Min: "10", Max: "100", Steps: 4},
			sourceWidth: 1000,
			want:        []int{10, 40, 70, 100},
		},
		{
			name:        "uneven span rounds each value up",
			spec:        SizeSpec{Min: "10", Max: "20", Steps: 4},
			sourceWidth: 1000,
			want:        []int{10, 14, 17, 20},
		},
		{
			name:        "steps below two clamp to endpoints",
			spec:        SizeSpec{Min: "100", Max: "400", Steps: 1},
			sourceWidth: 1000,
			want:        []int{100, 400},
		},
		{
			name:        "range beats static sizes",
			spec:        SizeSpec{Min: "10", Max: "40", Steps: 2, Sizes: []string{"777"}},
			sourceWidth: 1000,
			want:        []int{10, 40},
		},
		{
			name:        "range values clamp to source width",
			spec:        SizeSpec{Min: "100", Max: "1000", Steps: 2},
			sourceWidth: 500,
			want:        []int{100, 500},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Plan(tt.spec, tt.sourceWidth)
			if err != nil {
				t.Fatalf("Plan() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Plan() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlan_Overrides(t *testing.T) {
	spec := SizeSpec{
		OverrideSizes: []string{"120", "240"},
		Sizes:         []string{"999"},
		Min:           "10",
		Max:           "100",
	}
	got, err := Plan(spec, 1000)
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	want := []int{120, 240}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("override sizes should win, got %v want %v", got, want)
	}

	single := SizeSpec{OverrideSize: "64", Sizes: []string{"999"}}
	got, err = Plan(single, 1000)
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if !reflect.DeepEqual(got, []int{64}) {
		t.Errorf("override size should win, got %v", got)
	}
}

func TestPlan_EmptyOverrideYieldsEmptyPlan(t *testing.T) {
	got, err := Plan(SizeSpec{OverrideSizes: []string{}, Sizes: []string{"300"}}, 1000)
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("empty override list must produce an empty plan, got %v", got)
	}
}

func TestPlan_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		spec SizeSpec
	}{
		{name: "non-numeric size", spec: SizeSpec{Sizes: []string{"wide"}}},
		{name: "zero size", spec: SizeSpec{Size: "0"}},
		{name: "negative size", spec: SizeSpec{Size: "-20"}},
		{name: "non-numeric range min", spec: SizeSpec{Min: "tiny", Max: "100"}},
		{name: "non-numeric range max", spec: SizeSpec{Min: "10", Max: "huge"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Plan(tt.spec, 1000)
			if err == nil {
				t.Fatal("Plan() should fail on invalid size value")
			}
			if !errors.IsKind(err, errors.KindPlan) {
				t.Errorf("expected a planning error, got %v", err)
			}
		})
	}
}
