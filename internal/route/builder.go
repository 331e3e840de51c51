// Package route turns a directions service response into a timestamped
// trajectory.
package route

import (
	"fmt"
	"strings"
)

// Spacing selects how coordinates are timed.
type Spacing string

const (
	SpacingConstant   Spacing = "constant"
	SpacingAccelDecel Spacing = "acceldecel"
)

// ParseSpacing maps a config value to a Spacing. Empty means constant.
func ParseSpacing(s string) (Spacing, error) {
	switch sp := Spacing(strings.ToLower(strings.TrimSpace(s))); sp {
	case "":
		return SpacingConstant, nil
	case SpacingConstant, SpacingAccelDecel:
		return sp, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
	}
}

// Builder builds trajectories with a fixed spacing mode.
type Builder struct {
	spacing Spacing
	rate    float64
}

// NewBuilder validates spacing. A non-positive rate selects DefaultAccelRate.
func NewBuilder(spacing Spacing, rate float64) (*Builder, error) {
	if spacing != SpacingConstant && spacing != SpacingAccelDecel {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, spacing)
	}
	if !(rate > 0) {
		rate = DefaultAccelRate
	}
	return &Builder{spacing: spacing, rate: rate}, nil
}

func (b *Builder) Spacing() Spacing { return b.spacing }

// Timestamp times already normalized segments.
func (b *Builder) Timestamp(segs []Segment) ([]TimedSegment, error) {
	if b.spacing == SpacingAccelDecel {
		return TimestampAccelDecel(segs, b.rate)
	}
	out := make([]TimedSegment, 0, len(segs))
	for i, s := range segs {
		ts, err := TimestampConstant(s)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		out = append(out, ts)
	}
	return out, nil
}

// Build normalizes, times and concatenates a directions response.
func (b *Builder) Build(d *Directions) (*Trajectory, error) {
	segs, err := NormalizeSegments(d)
	if err != nil {
		return nil, err
	}
	timed, err := b.Timestamp(segs)
	if err != nil {
		return nil, err
	}
	return Concatenate(timed)
}

// Build is a one-shot Builder.Build with the default rate.
func Build(d *Directions, spacing Spacing) (*Trajectory, error) {
	b, err := NewBuilder(spacing, DefaultAccelRate)
	if err != nil {
		return nil, err
	}
	return b.Build(d)
}
