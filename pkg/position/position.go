// Package position turns model position descriptors into layout coordinates.
//
// A descriptor is either cartesian, "dx,dy", or polar, "angle:radius" with
// the angle in degrees counter-clockwise from the positive x axis. Offsets
// are relative to an origin and the model's "up" is positive, so the
// vertical component is inverted when mapped to screen coordinates:
//
//	Resolve("100,50", geom.Pt(480, 250)) // (580, 200)
//	Resolve("0:100", geom.Pt(480, 250))  // (580, 250)
//	Resolve("90:50", geom.Pt(480, 250))  // (480, 200)
package position

import (
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/petrisync/pkg/errors"
	"github.com/matzehuels/petrisync/pkg/geom"
)

// Resolve parses desc and returns the absolute position it denotes.
// A descriptor containing a comma is cartesian; otherwise it must contain
// a colon and is polar. Any other input, or a non-numeric component,
// yields an error with code [errors.ErrCodeMalformedPosition].
func Resolve(desc string, origin geom.Point) (geom.Point, error) {
	offset, err := Offset(desc)
	if err != nil {
		return geom.Point{}, err
	}
	return geom.Point{X: origin.X + offset.X, Y: origin.Y - offset.Y}, nil
}

// Offset parses desc into a model-space offset (y up).
func Offset(desc string) (geom.Point, error) {
	if a, b, ok := strings.Cut(desc, ","); ok {
		dx, err := parse(desc, a)
		if err != nil {
			return geom.Point{}, err
		}
		dy, err := parse(desc, b)
		if err != nil {
			return geom.Point{}, err
		}
		return geom.Point{X: dx, Y: dy}, nil
	}

	a, b, ok := strings.Cut(desc, ":")
	if !ok {
		return geom.Point{}, errors.New(errors.ErrCodeMalformedPosition,
			"position %q is neither \"x,y\" nor \"angle:radius\"", desc)
	}
	angle, err := parse(desc, a)
	if err != nil {
		return geom.Point{}, err
	}
	radius, err := parse(desc, b)
	if err != nil {
		return geom.Point{}, err
	}
	rad := angle * math.Pi / 180
	return geom.Point{X: math.Cos(rad) * radius, Y: math.Sin(rad) * radius}, nil
}

func parse(desc, part string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeMalformedPosition, err, "position %q", desc)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New(errors.ErrCodeMalformedPosition, "position %q is not finite", desc)
	}
	return v, nil
}

// Cartesian formats p as a cartesian descriptor relative to origin, the
// inverse of [Resolve] for cartesian input.
func Cartesian(p, origin geom.Point) string {
	dx := p.X - origin.X
	dy := origin.Y - p.Y
	return format(dx) + "," + format(dy)
}

func format(v float64) string {
	// two decimals are finer than any pointer device
	v = math.Round(v*100) / 100
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
