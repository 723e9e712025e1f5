package control

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Axis identifies one controlled degree of freedom.
type Axis int

const (
	// AxisX is the forward position axis, driven through the pitch channel.
	AxisX Axis = iota
	// AxisY is the left position axis, driven through the roll channel.
	AxisY
	// AxisHeading is the yaw angle axis, driven through the yaw channel.
	AxisHeading

	NumAxes = 3
)

var axisNames = [NumAxes]string{"x", "y", "heading"}

func (a Axis) String() string {
	if a < 0 || int(a) >= NumAxes {
		return fmt.Sprintf("axis(%d)", int(a))
	}
	return axisNames[a]
}

// ParseAxis maps a name ("x", "y", "heading" or "yaw") to an Axis.
func ParseAxis(name string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "x", "pitch":
		return AxisX, nil
	case "y", "roll":
		return AxisY, nil
	case "heading", "yaw":
		return AxisHeading, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAxis, name)
}

// AxisSet is a bitset of axes.
type AxisSet uint8

// NewAxisSet returns the set containing the given axes.
func NewAxisSet(axes ...Axis) AxisSet {
	var s AxisSet
	for _, a := range axes {
		s |= 1 << uint(a)
	}
	return s
}

func (s AxisSet) Has(a Axis) bool { return s&(1<<uint(a)) != 0 }
func (s AxisSet) Empty() bool     { return s == 0 }

// Axes lists the members in axis order.
func (s AxisSet) Axes() []Axis {
	axes := make([]Axis, 0, NumAxes)
	for a := Axis(0); a < NumAxes; a++ {
		if s.Has(a) {
			axes = append(axes, a)
		}
	}
	return axes
}

// Mask renders the set in the positional form used by ParseAxisMask.
func (s AxisSet) Mask() string {
	var b strings.Builder
	for a := Axis(0); a < NumAxes; a++ {
		if s.Has(a) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func (s AxisSet) String() string {
	names := make([]string, 0, NumAxes)
	for _, a := range s.Axes() {
		names = append(names, a.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}

// ParseAxisMask decodes a positional mask such as "010", where position i
// selects Axis(i). Shorter masks leave the remaining axes unset.
func ParseAxisMask(mask string) (AxisSet, error) {
	if len(mask) > NumAxes {
		return 0, fmt.Errorf("%w: mask %q has more than %d positions", ErrUnknownAxis, mask, NumAxes)
	}
	var s AxisSet
	for i, c := range mask {
		switch c {
		case '1':
			s |= 1 << uint(i)
		case '0':
		default:
			return 0, fmt.Errorf("%w: mask %q contains %q", ErrUnknownAxis, mask, c)
		}
	}
	return s, nil
}

// UnmarshalYAML accepts either a positional mask string or a list of axis names.
func (s *AxisSet) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		set, err := ParseAxisMask(node.Value)
		if err != nil {
			return err
		}
		*s = set
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		var set AxisSet
		for _, n := range names {
			a, err := ParseAxis(n)
			if err != nil {
				return err
			}
			set |= NewAxisSet(a)
		}
		*s = set
		return nil
	}
	return fmt.Errorf("%w: cannot decode axis set from yaml kind %d", ErrUnknownAxis, node.Kind)
}

// MarshalYAML writes the positional mask form.
func (s AxisSet) MarshalYAML() (interface{}, error) {
	return s.Mask(), nil
}
