package geometry

import (
	"fmt"
	"math"
	"strconv"
)

// Epsilon is the absolute tolerance for every "is zero" / "is parallel" /
// "is coincident" test, applied to normalized inputs. It is a fixed property
// of the kernel, not per-call configuration.
const Epsilon = 1e-9

// vec3 embeds all coordinates in 3D; 2D inputs carry z = 0 so every routine
// shares one set of vector algebra.
type vec3 [3]float64

func (a vec3) sub(b vec3) vec3   { return vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func (a vec3) add(b vec3) vec3   { return vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func (a vec3) scale(s float64) vec3 { return vec3{a[0] * s, a[1] * s, a[2] * s} }
func (a vec3) dot(b vec3) float64   { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func (a vec3) cross(b vec3) vec3 {
	return vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func (a vec3) normSq() float64 { return a.dot(a) }
func (a vec3) norm() float64   { return math.Sqrt(a.normSq()) }

// fnum renders a number in the shortest form that round-trips, so step
// expressions and encoded keylogs are deterministic.
func fnum(v float64) string {
	// Normalize negative zero; it would otherwise leak a spurious minus key.
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// routines maps formula ids to their kernel implementations. The
// compatibility table may only reference formula ids present here.
var routines = map[string]struct {
	binary bool
	unary  func(a ShapeDescriptor) CalculationResult
	pair   func(a, b ShapeDescriptor) CalculationResult
}{
	"point_point_distance":       {binary: true, pair: pointPointDistance},
	"point_line_distance":        {binary: true, pair: pointLineDistance},
	"point_plane_distance":       {binary: true, pair: pointPlaneDistance},
	"line_line_intersection":     {binary: true, pair: lineLineIntersection},
	"line_plane_intersection":    {binary: true, pair: linePlaneIntersection},
	"plane_plane_intersection":   {binary: true, pair: planePlaneIntersection},
	"circle_circle_intersection": {binary: true, pair: circleCircleIntersection},
	"circle_area":                {unary: circleArea},
	"sphere_volume":              {unary: sphereVolume},
	"line_equation_2d":           {unary: lineEquation2D},
	"line_equation_3d":           {unary: lineEquation3D},
}

// KnownFormula reports whether the kernel implements the formula id. The
// table loader uses this to reject configuration referencing missing routines
// at startup rather than per request.
func KnownFormula(id string) bool {
	_, ok := routines[id]
	return ok
}

// Compute evaluates the kernel routine named by formulaID. Degenerate
// geometry is reported in the result's Status/Reason, never as an error; the
// only errors are a formula id the kernel does not implement or a missing
// second shape, both of which indicate configuration out of sync with the
// validator.
func Compute(formulaID string, a ShapeDescriptor, b *ShapeDescriptor) (CalculationResult, error) {
	routine, ok := routines[formulaID]
	if !ok {
		return CalculationResult{}, fmt.Errorf("kernel has no routine for formula %q", formulaID)
	}
	if routine.binary {
		if b == nil {
			return CalculationResult{}, fmt.Errorf("formula %q needs two shapes", formulaID)
		}
		return routine.pair(a, *b), nil
	}
	return routine.unary(a), nil
}

func degenerate(formulaID string, reason DegenerateReason, steps []Step) CalculationResult {
	return CalculationResult{
		FormulaID: formulaID,
		Status:    StatusDegenerate,
		Reason:    reason,
		Steps:     steps,
		Values:    map[string]float64{},
	}
}

// orderShapes returns the shapes of a symmetric pair with the wanted kind
// first, so a rule matched in reverse order still reaches the right routine
// arguments.
func orderShapes(a ShapeDescriptor, b ShapeDescriptor, first ShapeKind) (ShapeDescriptor, ShapeDescriptor) {
	if a.Kind == first {
		return a, b
	}
	return b, a
}

var axisNames = [3]string{"x", "y", "z"}

func pointPointDistance(pa, pb ShapeDescriptor) CalculationResult {
	p, q := pa.point(), pb.point()
	dim := pa.Dimension

	steps := make([]Step, 0, dim+2)
	radicand := 0.0
	radicandExpr := ""
	for i := 0; i < dim; i++ {
		d := q[i] - p[i]
		steps = append(steps, Step{
			Name:       "d" + axisNames[i],
			Expression: fmt.Sprintf("%s - %s", fnum(q[i]), fnum(p[i])),
			Value:      d,
		})
		if i > 0 {
			radicandExpr += " + "
		}
		radicandExpr += fnum(d) + "^2"
		radicand += d * d
	}

	steps = append(steps, Step{Name: "radicand", Expression: radicandExpr, Value: radicand})

	dist := math.Sqrt(radicand)
	steps = append(steps, Step{
		Name:       "distance",
		Expression: fmt.Sprintf("sqrt(%s)", fnum(radicand)),
		Value:      dist,
	})

	return CalculationResult{
		FormulaID: "point_point_distance",
		Values:    map[string]float64{"distance": dist},
		Steps:     steps,
		Status:    StatusOk,
		Kind:      "scalar",
	}
}

func pointLineDistance(a, b ShapeDescriptor) CalculationResult {
	pt, line := orderShapes(a, b, KindPoint)

	p := pt.point()
	p0 := line.point()
	u := line.direction()

	if u.norm() < Epsilon {
		return degenerate("point_line_distance", ReasonZeroVector, nil)
	}

	w := p.sub(p0)
	c := w.cross(u)

	steps := []Step{
		{Name: "cross_x", Expression: fmt.Sprintf("%s*%s - %s*%s", fnum(w[1]), fnum(u[2]), fnum(w[2]), fnum(u[1])), Value: c[0]},
		{Name: "cross_y", Expression: fmt.Sprintf("%s*%s - %s*%s", fnum(w[2]), fnum(u[0]), fnum(w[0]), fnum(u[2])), Value: c[1]},
		{Name: "cross_z", Expression: fmt.Sprintf("%s*%s - %s*%s", fnum(w[0]), fnum(u[1]), fnum(w[1]), fnum(u[0])), Value: c[2]},
	}

	crossRad := c.normSq()
	dirRad := u.normSq()
	steps = append(steps,
		Step{Name: "cross_radicand", Expression: fmt.Sprintf("%s^2 + %s^2 + %s^2", fnum(c[0]), fnum(c[1]), fnum(c[2])), Value: crossRad},
		Step{Name: "dir_radicand", Expression: fmt.Sprintf("%s^2 + %s^2 + %s^2", fnum(u[0]), fnum(u[1]), fnum(u[2])), Value: dirRad},
	)

	dist := math.Sqrt(crossRad) / math.Sqrt(dirRad)
	steps = append(steps, Step{
		Name:       "distance",
		Expression: fmt.Sprintf("sqrt(%s)/sqrt(%s)", fnum(crossRad), fnum(dirRad)),
		Value:      dist,
	})

	return CalculationResult{
		FormulaID: "point_line_distance",
		Values:    map[string]float64{"distance": dist},
		Steps:     steps,
		Status:    StatusOk,
		Kind:      "scalar",
	}
}

func pointPlaneDistance(a, b ShapeDescriptor) CalculationResult {
	pt, plane := orderShapes(a, b, KindPoint)

	p := pt.point()
	n := plane.normal()
	d := plane.offset()

	if n.norm() < Epsilon {
		return degenerate("point_plane_distance", ReasonZeroVector, nil)
	}

	signed := n.dot(p) + d
	num := math.Abs(signed)
	normalRad := n.normSq()

	steps := []Step{
		{
			Name: "numerator",
			Expression: fmt.Sprintf("abs(%s*%s + %s*%s + %s*%s + %s)",
				fnum(n[0]), fnum(p[0]), fnum(n[1]), fnum(p[1]), fnum(n[2]), fnum(p[2]), fnum(d)),
			Value: num,
		},
		{
			Name:       "normal_radicand",
			Expression: fmt.Sprintf("%s^2 + %s^2 + %s^2", fnum(n[0]), fnum(n[1]), fnum(n[2])),
			Value:      normalRad,
		},
	}

	dist := num / math.Sqrt(normalRad)
	steps = append(steps, Step{
		Name:       "distance",
		Expression: fmt.Sprintf("%s/sqrt(%s)", fnum(num), fnum(normalRad)),
		Value:      dist,
	})

	return CalculationResult{
		FormulaID: "point_plane_distance",
		Values:    map[string]float64{"distance": dist},
		Steps:     steps,
		Status:    StatusOk,
		Kind:      "scalar",
	}
}

func lineLineIntersection(la, lb ShapeDescriptor) CalculationResult {
	p1, u := la.point(), la.direction()
	p2, v := lb.point(), lb.direction()

	if u.norm() < Epsilon || v.norm() < Epsilon {
		return degenerate("line_line_intersection", ReasonZeroVector, nil)
	}

	c := u.cross(v)
	w := p2.sub(p1)

	// Parallel test on normalized directions.
	if c.norm()/(u.norm()*v.norm()) < Epsilon {
		if w.norm() < Epsilon {
			return degenerate("line_line_intersection", ReasonCoincident, nil)
		}
		wn := w.scale(1 / w.norm())
		un := u.scale(1 / u.norm())
		if wn.cross(un).norm() < Epsilon {
			return degenerate("line_line_intersection", ReasonCoincident, nil)
		}
		return degenerate("line_line_intersection", ReasonParallel, nil)
	}

	// Pick the axis where the cross product is largest; the other two axes
	// give a well-conditioned 2x2 system u_i*t - v_i*s = w_i.
	k := 0
	for i := 1; i < 3; i++ {
		if math.Abs(c[i]) > math.Abs(c[k]) {
			k = i
		}
	}
	i, j := (k+1)%3, (k+2)%3

	a11, a12, b1 := u[i], -v[i], w[i]
	a21, a22, b2 := u[j], -v[j], w[j]

	det := a11*a22 - a12*a21
	tNum := b1*a22 - a12*b2
	sNum := a11*b2 - b1*a21
	t := tNum / det
	s := sNum / det

	steps := []Step{
		{Name: "det", Expression: fmt.Sprintf("%s*%s - %s*%s", fnum(a11), fnum(a22), fnum(a12), fnum(a21)), Value: det},
		{Name: "t_numerator", Expression: fmt.Sprintf("%s*%s - %s*%s", fnum(b1), fnum(a22), fnum(a12), fnum(b2)), Value: tNum},
		{Name: "s_numerator", Expression: fmt.Sprintf("%s*%s - %s*%s", fnum(a11), fnum(b2), fnum(b1), fnum(a21)), Value: sNum},
		{Name: "t", Expression: fmt.Sprintf("%s/%s", fnum(tNum), fnum(det)), Value: t},
		{Name: "s", Expression: fmt.Sprintf("%s/%s", fnum(sNum), fnum(det)), Value: s},
	}

	q1 := p1.add(u.scale(t))
	q2 := p2.add(v.scale(s))
	if q1.sub(q2).norm() > Epsilon*(1+q1.norm()+q2.norm()) {
		return degenerate("line_line_intersection", ReasonSkew, steps)
	}

	values := map[string]float64{
		"t": t, "s": s,
		"a11": a11, "a12": a12, "b1": b1,
		"a21": a21, "a22": a22, "b2": b2,
	}
	for axis := 0; axis < 3; axis++ {
		name := axisNames[axis]
		values[name] = q1[axis]
		steps = append(steps, Step{
			Name:       name,
			Expression: fmt.Sprintf("%s + %s*%s", fnum(p1[axis]), fnum(t), fnum(u[axis])),
			Value:      q1[axis],
		})
	}

	return CalculationResult{
		FormulaID: "line_line_intersection",
		Values:    values,
		Steps:     steps,
		Status:    StatusOk,
		Kind:      "point",
	}
}

func linePlaneIntersection(a, b ShapeDescriptor) CalculationResult {
	line, plane := orderShapes(a, b, KindLine)

	p0, u := line.point(), line.direction()
	n, d := plane.normal(), plane.offset()

	if u.norm() < Epsilon || n.norm() < Epsilon {
		return degenerate("line_plane_intersection", ReasonZeroVector, nil)
	}

	denom := n.dot(u)
	if math.Abs(denom)/(n.norm()*u.norm()) < Epsilon {
		// Line parallel to the plane; coincident when its point satisfies
		// the plane equation.
		if math.Abs(n.dot(p0)+d)/n.norm() < Epsilon {
			return degenerate("line_plane_intersection", ReasonCoincident, nil)
		}
		return degenerate("line_plane_intersection", ReasonParallel, nil)
	}

	num := -(n.dot(p0) + d)
	t := num / denom

	steps := []Step{
		{
			Name: "numerator",
			Expression: fmt.Sprintf("-(%s*%s + %s*%s + %s*%s + %s)",
				fnum(n[0]), fnum(p0[0]), fnum(n[1]), fnum(p0[1]), fnum(n[2]), fnum(p0[2]), fnum(d)),
			Value: num,
		},
		{
			Name: "denominator",
			Expression: fmt.Sprintf("%s*%s + %s*%s + %s*%s",
				fnum(n[0]), fnum(u[0]), fnum(n[1]), fnum(u[1]), fnum(n[2]), fnum(u[2])),
			Value: denom,
		},
		{Name: "t", Expression: fmt.Sprintf("%s/%s", fnum(num), fnum(denom)), Value: t},
	}

	q := p0.add(u.scale(t))
	values := map[string]float64{"t": t}
	for axis := 0; axis < 3; axis++ {
		name := axisNames[axis]
		values[name] = q[axis]
		steps = append(steps, Step{
			Name:       name,
			Expression: fmt.Sprintf("%s + %s*%s", fnum(p0[axis]), fnum(t), fnum(u[axis])),
			Value:      q[axis],
		})
	}

	return CalculationResult{
		FormulaID: "line_plane_intersection",
		Values:    values,
		Steps:     steps,
		Status:    StatusOk,
		Kind:      "point",
	}
}

func planePlaneIntersection(pa, pb ShapeDescriptor) CalculationResult {
	n1, d1 := pa.normal(), pa.offset()
	n2, d2 := pb.normal(), pb.offset()

	if n1.norm() < Epsilon || n2.norm() < Epsilon {
		return degenerate("plane_plane_intersection", ReasonZeroVector, nil)
	}

	c := n1.cross(n2)
	if c.norm()/(n1.norm()*n2.norm()) < Epsilon {
		// Normals parallel; coincident when a point of the first plane
		// satisfies the second.
		q := n1.scale(-d1 / n1.normSq())
		if math.Abs(n2.dot(q)+d2)/n2.norm() < Epsilon {
			return degenerate("plane_plane_intersection", ReasonCoincident, nil)
		}
		return degenerate("plane_plane_intersection", ReasonParallel, nil)
	}

	steps := []Step{
		{Name: "dir_x", Expression: fmt.Sprintf("%s*%s - %s*%s", fnum(n1[1]), fnum(n2[2]), fnum(n1[2]), fnum(n2[1])), Value: c[0]},
		{Name: "dir_y", Expression: fmt.Sprintf("%s*%s - %s*%s", fnum(n1[2]), fnum(n2[0]), fnum(n1[0]), fnum(n2[2])), Value: c[1]},
		{Name: "dir_z", Expression: fmt.Sprintf("%s*%s - %s*%s", fnum(n1[0]), fnum(n2[1]), fnum(n1[1]), fnum(n2[0])), Value: c[2]},
	}

	// Point on the intersection line: ((d2*n1 - d1*n2) x c) / |c|^2.
	m := n1.scale(d2).sub(n2.scale(d1))
	q := m.cross(c).scale(1 / c.normSq())

	values := map[string]float64{
		"dir_x": c[0], "dir_y": c[1], "dir_z": c[2],
		"n1_x": n1[0], "n1_y": n1[1], "n1_z": n1[2],
		"n2_x": n2[0], "n2_y": n2[1], "n2_z": n2[2],
	}
	for axis := 0; axis < 3; axis++ {
		name := axisNames[axis]
		values[name] = q[axis]
		steps = append(steps, Step{
			Name:       "point_" + name,
			Expression: fnum(q[axis]),
			Value:      q[axis],
		})
	}

	return CalculationResult{
		FormulaID: "plane_plane_intersection",
		Values:    values,
		Steps:     steps,
		Status:    StatusOk,
		Kind:      "line",
	}
}

func circleCircleIntersection(ca, cb ShapeDescriptor) CalculationResult {
	c1, r1 := ca.point(), ca.radius()
	c2, r2 := cb.point(), cb.radius()

	d := c2.sub(c1).norm()

	steps := []Step{{
		Name: "center_distance",
		Expression: fmt.Sprintf("sqrt((%s - %s)^2 + (%s - %s)^2)",
			fnum(c2[0]), fnum(c1[0]), fnum(c2[1]), fnum(c1[1])),
		Value: d,
	}}

	if d < Epsilon {
		if math.Abs(r1-r2) < Epsilon {
			return degenerate("circle_circle_intersection", ReasonCoincident, steps)
		}
		return degenerate("circle_circle_intersection", ReasonDisjoint, steps)
	}
	if d > r1+r2+Epsilon || d < math.Abs(r1-r2)-Epsilon {
		return degenerate("circle_circle_intersection", ReasonDisjoint, steps)
	}

	a := (d*d + r1*r1 - r2*r2) / (2 * d)
	hSq := r1*r1 - a*a
	if hSq < 0 {
		hSq = 0 // tangent within tolerance
	}
	h := math.Sqrt(hSq)

	steps = append(steps,
		Step{
			Name:       "a",
			Expression: fmt.Sprintf("(%s^2 + %s^2 - %s^2)/(2*%s)", fnum(d), fnum(r1), fnum(r2), fnum(d)),
			Value:      a,
		},
		Step{
			Name:       "h",
			Expression: fmt.Sprintf("sqrt(%s^2 - %s^2)", fnum(r1), fnum(a)),
			Value:      h,
		},
	)

	ex := (c2[0] - c1[0]) / d
	ey := (c2[1] - c1[1]) / d
	bx := c1[0] + a*ex
	by := c1[1] + a*ey

	x1, y1 := bx+h*ey, by-h*ex
	x2, y2 := bx-h*ey, by+h*ex

	steps = append(steps,
		Step{Name: "x1", Expression: fnum(x1), Value: x1},
		Step{Name: "y1", Expression: fnum(y1), Value: y1},
		Step{Name: "x2", Expression: fnum(x2), Value: x2},
		Step{Name: "y2", Expression: fnum(y2), Value: y2},
	)

	return CalculationResult{
		FormulaID: "circle_circle_intersection",
		Values:    map[string]float64{"x1": x1, "y1": y1, "x2": x2, "y2": y2},
		Steps:     steps,
		Status:    StatusOk,
		Kind:      "points",
	}
}

func circleArea(c ShapeDescriptor) CalculationResult {
	r := c.radius()
	rSq := r * r
	area := math.Pi * rSq

	steps := []Step{
		{Name: "radius_squared", Expression: fmt.Sprintf("%s^2", fnum(r)), Value: rSq},
		{Name: "area", Expression: fmt.Sprintf("pi*%s", fnum(rSq)), Value: area},
	}

	return CalculationResult{
		FormulaID: "circle_area",
		Values:    map[string]float64{"area": area, "radius": r},
		Steps:     steps,
		Status:    StatusOk,
		Kind:      "scalar",
	}
}

func sphereVolume(s ShapeDescriptor) CalculationResult {
	r := s.radius()
	rCu := r * r * r
	vol := 4.0 / 3.0 * math.Pi * rCu

	steps := []Step{
		{Name: "radius_cubed", Expression: fmt.Sprintf("%s^3", fnum(r)), Value: rCu},
		{Name: "volume", Expression: fmt.Sprintf("4/3*pi*%s", fnum(rCu)), Value: vol},
	}

	return CalculationResult{
		FormulaID: "sphere_volume",
		Values:    map[string]float64{"volume": vol, "radius": r},
		Steps:     steps,
		Status:    StatusOk,
		Kind:      "scalar",
	}
}

func lineEquation2D(l ShapeDescriptor) CalculationResult {
	p0, u := l.point(), l.direction()
	if u.norm() < Epsilon {
		return degenerate("line_equation_2d", ReasonZeroVector, nil)
	}

	// Normal form a*x + b*y + c = 0 with (a, b) perpendicular to the direction.
	a := u[1]
	b := -u[0]
	c := -(a*p0[0] + b*p0[1])

	steps := []Step{
		{Name: "a", Expression: fnum(u[1]), Value: a},
		{Name: "b", Expression: fmt.Sprintf("-(%s)", fnum(u[0])), Value: b},
		{Name: "c", Expression: fmt.Sprintf("-(%s*%s + %s*%s)", fnum(a), fnum(p0[0]), fnum(b), fnum(p0[1])), Value: c},
		{
			Name:       "general_form",
			Expression: fmt.Sprintf("%s*x + %s*y + %s", fnum(a), fnum(b), fnum(c)),
			Value:      0,
		},
	}

	return CalculationResult{
		FormulaID: "line_equation_2d",
		Values:    map[string]float64{"a": a, "b": b, "c": c},
		Steps:     steps,
		Status:    StatusOk,
		Kind:      "equation",
	}
}

func lineEquation3D(l ShapeDescriptor) CalculationResult {
	p0, u := l.point(), l.direction()
	if u.norm() < Epsilon {
		return degenerate("line_equation_3d", ReasonZeroVector, nil)
	}

	steps := make([]Step, 0, 3)
	values := make(map[string]float64, 6)
	for axis := 0; axis < 3; axis++ {
		name := axisNames[axis]
		values[name+"0"] = p0[axis]
		values["d"+name] = u[axis]
		steps = append(steps, Step{
			Name:       "equation_" + name,
			Expression: fmt.Sprintf("%s = %s + %s*t", name, fnum(p0[axis]), fnum(u[axis])),
			Value:      0,
		})
	}

	return CalculationResult{
		FormulaID: "line_equation_3d",
		Values:    values,
		Steps:     steps,
		Status:    StatusOk,
		Kind:      "equation",
	}
}
