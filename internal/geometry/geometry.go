package geometry

import "math"

// Point is a position on the arena ground plane. Height is ignored by every
// collision test, so only X and Z are carried.
type Point struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Sub returns the offset from other to p.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Z: p.Z - other.Z}
}

// Lerp interpolates between a and b with t in [0, 1].
func Lerp(a, b Point, t float64) Point {
	return Point{
		X: a.X + (b.X-a.X)*t,
		Z: a.Z + (b.Z-a.Z)*t,
	}
}

// DistanceSquared avoids the sqrt for radius comparisons.
func DistanceSquared(a, b Point) float64 {
	dx := a.X - b.X
	dz := a.Z - b.Z
	return dx*dx + dz*dz
}

// Heading reports the bearing of the offset using the arena convention:
// zero points along +Z ("forward") and the angle grows toward +X, so the
// bearing is atan2(dx, dz) rather than the math-textbook atan2(dy, dx).
func Heading(offset Point) float64 {
	return math.Atan2(offset.X, offset.Z)
}

// NormalizeAngle wraps an angle into (-pi, pi].
func NormalizeAngle(angle float64) float64 {
	wrapped := math.Mod(angle+math.Pi, 2*math.Pi)
	if wrapped <= 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}

// RotateIntoLocal maps a world-space offset into the local frame of a shape
// rotated by the given heading. With rotation zero the offset is unchanged;
// otherwise local Z stays the shape's forward axis.
func RotateIntoLocal(offset Point, rotation float64) Point {
	if rotation == 0 {
		return offset
	}
	sin := math.Sin(rotation)
	cos := math.Cos(rotation)
	return Point{
		X: offset.X*cos - offset.Z*sin,
		Z: offset.X*sin + offset.Z*cos,
	}
}

// Shape is a pure containment predicate over a point already translated to
// the shape's center and rotated into its local frame. Implementations treat
// boundary points as inside.
type Shape interface {
	Contains(local Point) bool
}

// Circle is a disc centered on the origin.
type Circle struct {
	Radius float64
}

func (c Circle) Contains(local Point) bool {
	return local.X*local.X+local.Z*local.Z <= c.Radius*c.Radius
}

// Line is an oriented rectangle: Length spans the local forward axis, Width
// spans side to side, both centered on the origin.
type Line struct {
	Length float64
	Width  float64
}

func (l Line) Contains(local Point) bool {
	return math.Abs(local.X) <= l.Width/2 && math.Abs(local.Z) <= l.Length/2
}

// Cone is a circular sector opening along the local forward axis. Angle is
// the full aperture, not the half-angle.
type Cone struct {
	Radius float64
	Angle  float64
}

func (c Cone) Contains(local Point) bool {
	if local.X*local.X+local.Z*local.Z > c.Radius*c.Radius {
		return false
	}
	bearing := NormalizeAngle(Heading(local))
	return math.Abs(bearing) <= c.Angle/2
}

// TShape is the union of a stem rectangle running from the origin out along
// the local forward axis and a crossbar centered at the stem's far end.
type TShape struct {
	StemLength float64
	StemWidth  float64
	BarLength  float64
	BarWidth   float64
}

func (t TShape) Contains(local Point) bool {
	inStem := math.Abs(local.X) <= t.StemWidth/2 &&
		local.Z >= 0 && local.Z <= t.StemLength
	if inStem {
		return true
	}
	return math.Abs(local.X) <= t.BarLength/2 &&
		math.Abs(local.Z-t.StemLength) <= t.BarWidth/2
}

// Plus is the union of two centered rectangles: one arm along the local
// forward axis and one across it, each ArmLength long and ArmWidth wide.
type Plus struct {
	ArmLength float64
	ArmWidth  float64
}

func (p Plus) Contains(local Point) bool {
	inVertical := math.Abs(local.X) <= p.ArmWidth/2 && math.Abs(local.Z) <= p.ArmLength/2
	if inVertical {
		return true
	}
	return math.Abs(local.Z) <= p.ArmWidth/2 && math.Abs(local.X) <= p.ArmLength/2
}

// ContainsWorld translates a world-space query point into the frame of a
// shape placed at center with the given rotation, then runs the predicate.
func ContainsWorld(shape Shape, center Point, rotation float64, query Point) bool {
	if shape == nil {
		return false
	}
	return shape.Contains(RotateIntoLocal(query.Sub(center), rotation))
}
