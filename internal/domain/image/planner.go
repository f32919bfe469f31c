package image

import (
	"math"
	"strconv"

	"imageset-go/internal/platform/errors"
)

const defaultRangeSteps = 4

// Plan resolves the raw size policy into the ordered, deduplicated list of
// target widths. Priority: per-call override, then a min/max range, then the
// static option, then the source's native width. Each width is clamped to the
// source width; duplicates keep their first occurrence.
func Plan(spec SizeSpec, sourceWidth int) ([]int, error) {
	raw, found := rawSizes(spec)
	if !found {
		return dedupe([]int{sourceWidth}), nil
	}

	widths := make([]int, 0, len(raw))
	for _, value := range raw {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) || f <= 0 {
			return nil, errors.New(errors.KindPlan, "plan", "non-numeric size value "+strconv.Quote(value))
		}
		width := int(math.Floor(f))
		if sourceWidth < width {
			width = sourceWidth
		}
		widths = append(widths, width)
	}

	return dedupe(widths), nil
}

// rawSizes picks the size source by priority and renders it as raw tokens.
// The second return is false only when no source at all is configured, which
// means "native size".
func rawSizes(spec SizeSpec) ([]string, bool) {
	if spec.OverrideSizes != nil {
		return spec.OverrideSizes, true
	}
	if spec.OverrideSize != "" {
		return []string{spec.OverrideSize}, true
	}
	if spec.Min != "" && spec.Max != "" {
		return rangeSizes(spec)
	}
	if spec.Sizes != nil {
		return spec.Sizes, true
	}
	if spec.Size != "" {
		return []string{spec.Size}, true
	}
	return nil, false
}

// rangeSizes generates steps evenly spaced values from min to max inclusive,
// each rounded up. Raw min/max parse errors surface later through Plan's
// numeric check on the rendered tokens.
func rangeSizes(spec SizeSpec) ([]string, bool) {
	min, errMin := strconv.ParseFloat(spec.Min, 64)
	max, errMax := strconv.ParseFloat(spec.Max, 64)
	if errMin != nil || errMax != nil {
		// keep the malformed token so Plan reports it
		bad := spec.Min
		if errMin == nil {
			bad = spec.Max
		}
		return []string{bad}, true
	}

	steps := spec.Steps
	if steps == 0 {
		steps = defaultRangeSteps
	}
	if steps < 2 {
		steps = 2
	}

	values := make([]string, 0, steps)
	span := (max - min) / float64(steps-1)
	for i := 0; i < steps; i++ {
		v := math.Ceil(min + span*float64(i))
		values = append(values, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return values, true
}

func dedupe(widths []int) []int {
	seen := make(map[int]struct{}, len(widths))
	out := widths[:0]
	for _, w := range widths {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
