package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/zonecsg/pkg/body"
	"github.com/chazu/zonecsg/pkg/geom"
	"github.com/chazu/zonecsg/pkg/registry"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms zonecsg Lisp source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: inner-radius -> inner_radius
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments,
// so zone expressions such as "+a -b" pass through untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Only when the hyphen sits between identifier characters; a minus
		// operator is always followed by a space or a digit.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a geom.Vector3.
type sexpVec3 struct {
	vec geom.Vector3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpTransform wraps a rototranslation built by `transform`.
type sexpTransform struct {
	t geom.Transform
}

func (t *sexpTransform) SexpString(ps *zygo.PrintState) string {
	v := t.t.Translation
	return fmt.Sprintf("(transform :translate (vec3 %g %g %g))", v.X, v.Y, v.Z)
}
func (t *sexpTransform) Type() *zygo.RegisteredType { return nil }

// sexpZone wraps a zone built by `zone`.
type sexpZone struct {
	zone registry.Zone
	text string
}

func (z *sexpZone) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(zone %q)", z.text)
}
func (z *sexpZone) Type() *zygo.RegisteredType { return nil }

// sexpOperand wraps a signed sub-zone built by `include` or `exclude`.
type sexpOperand struct {
	op   registry.Operand
	text string
}

func (o *sexpOperand) SexpString(ps *zygo.PrintState) string {
	return o.text
}
func (o *sexpOperand) Type() *zygo.RegisteredType { return nil }

// sexpRef names an entity declared in the registry being built.
type sexpRef struct {
	kind string // "body", "region", "lattice"
	name string
}

func (r *sexpRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", r.kind, r.name)
}
func (r *sexpRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toName extracts an entity name from a string or a reference returned by
// a declaring builtin.
func toName(s zygo.Sexp) (string, error) {
	if r, ok := s.(*sexpRef); ok {
		return r.name, nil
	}
	name, err := toString(s)
	if err != nil {
		return "", fmt.Errorf("expected name or reference: %w", err)
	}
	return name, nil
}

// toVec3 extracts a Vector3 from a sexpVec3.
func toVec3(s zygo.Sexp) (geom.Vector3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return geom.Vector3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toTransform extracts a Transform from a sexpTransform.
func toTransform(s zygo.Sexp) (geom.Transform, error) {
	if t, ok := s.(*sexpTransform); ok {
		return t.t, nil
	}
	return geom.Transform{}, fmt.Errorf("expected transform, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// argReader consumes positional body parameters. A vector parameter is a
// vec3 or three plain numbers. The first error sticks.
type argReader struct {
	body string
	args []zygo.Sexp
	i    int
	err  error
}

func (r *argReader) fail(what string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s: %w", what, err)
	}
}

func (r *argReader) take(what string) zygo.Sexp {
	if r.err != nil {
		return nil
	}
	if r.i >= len(r.args) {
		r.fail(what, fmt.Errorf("missing argument"))
		return nil
	}
	s := r.args[r.i]
	r.i++
	return s
}

func (r *argReader) float(what string) float64 {
	s := r.take(what)
	if s == nil {
		return 0
	}
	f, err := toFloat64(s)
	if err != nil {
		r.fail(what, err)
	}
	return f
}

func (r *argReader) int(what string) int {
	s := r.take(what)
	if s == nil {
		return 0
	}
	n, err := toInt(s)
	if err != nil {
		r.fail(what, err)
	}
	return n
}

func (r *argReader) vec(what string) geom.Vector3 {
	if r.err == nil && r.i < len(r.args) {
		if v, ok := r.args[r.i].(*sexpVec3); ok {
			r.i++
			return v.vec
		}
	}
	return geom.Vec(r.float(what+".x"), r.float(what+".y"), r.float(what+".z"))
}

// finish reports the first error or any unread argument.
func (r *argReader) finish() error {
	if r.err != nil {
		return r.err
	}
	if r.i < len(r.args) {
		return fmt.Errorf("%d unexpected trailing argument(s)", len(r.args)-r.i)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Body parameter readers
// ---------------------------------------------------------------------------

// bodyForms maps each body builtin to its kind and positional parameter
// reader, following the FLUKA card order of WHAT fields.
var bodyForms = map[string]struct {
	kind body.Kind
	read func(r *argReader) (body.Params, error)
}{
	"rpp": {body.KindRPP, func(r *argReader) (body.Params, error) {
		x0, x1 := r.float("xmin"), r.float("xmax")
		y0, y1 := r.float("ymin"), r.float("ymax")
		z0, z1 := r.float("zmin"), r.float("zmax")
		return body.RPP{Min: geom.Vec(x0, y0, z0), Max: geom.Vec(x1, y1, z1)}, nil
	}},
	"box": {body.KindBOX, func(r *argReader) (body.Params, error) {
		return body.Box{V: r.vec("v"), H1: r.vec("h1"), H2: r.vec("h2"), H3: r.vec("h3")}, nil
	}},
	"sph": {body.KindSPH, func(r *argReader) (body.Params, error) {
		return body.Sphere{Centre: r.vec("centre"), Radius: r.float("radius")}, nil
	}},
	"rcc": {body.KindRCC, func(r *argReader) (body.Params, error) {
		return body.RCC{V: r.vec("v"), H: r.vec("h"), Radius: r.float("radius")}, nil
	}},
	"rec": {body.KindREC, func(r *argReader) (body.Params, error) {
		return body.REC{V: r.vec("v"), H: r.vec("h"), R1: r.vec("r1"), R2: r.vec("r2")}, nil
	}},
	"trc": {body.KindTRC, func(r *argReader) (body.Params, error) {
		return body.TRC{V: r.vec("v"), H: r.vec("h"), R1: r.float("r1"), R2: r.float("r2")}, nil
	}},
	"ell": {body.KindELL, func(r *argReader) (body.Params, error) {
		return body.Ellipsoid{F1: r.vec("f1"), F2: r.vec("f2"), Length: r.float("length")}, nil
	}},
	"wed": {body.KindWED, readWedge},
	"raw": {body.KindRAW, readWedge},
	"arb": {body.KindARB, readARB},
	"yzp": {body.KindYZP, axisPlane(body.AxisX)},
	"xzp": {body.KindXZP, axisPlane(body.AxisY)},
	"xyp": {body.KindXYP, axisPlane(body.AxisZ)},
	"pla": {body.KindPLA, func(r *argReader) (body.Params, error) {
		return body.Plane{Normal: r.vec("normal"), Point: r.vec("point")}, nil
	}},
	"xcc": {body.KindXCC, axisCylinder(body.AxisX)},
	"ycc": {body.KindYCC, axisCylinder(body.AxisY)},
	"zcc": {body.KindZCC, axisCylinder(body.AxisZ)},
	"xec": {body.KindXEC, axisEllipticalCylinder(body.AxisX)},
	"yec": {body.KindYEC, axisEllipticalCylinder(body.AxisY)},
	"zec": {body.KindZEC, axisEllipticalCylinder(body.AxisZ)},
	"qua": {body.KindQUA, func(r *argReader) (body.Params, error) {
		var q body.Quadric
		for i, name := range []string{"axx", "ayy", "azz", "axy", "axz", "ayz", "ax", "ay", "az", "a0"} {
			q.Coeffs[i] = r.float(name)
		}
		return q, nil
	}},
}

func readWedge(r *argReader) (body.Params, error) {
	return body.Wedge{V: r.vec("v"), H1: r.vec("h1"), H2: r.vec("h2"), H3: r.vec("h3")}, nil
}

// readARB reads eight vertices and six faces. Each face is a number whose
// decimal digits are one-based vertex indices, as on a FLUKA ARB card:
// 4321 is the face 4-3-2-1, and a zero digit pads a triangle.
func readARB(r *argReader) (body.Params, error) {
	verts := make([]geom.Vector3, 8)
	for i := range verts {
		verts[i] = r.vec(fmt.Sprintf("vertex %d", i+1))
	}
	faces := make([][]int, 6)
	for i := range faces {
		code := r.int(fmt.Sprintf("face %d", i+1))
		if code < 0 || code > 9999 {
			return nil, fmt.Errorf("face %d: code %d out of range", i+1, code)
		}
		for _, d := range [4]int{code / 1000, code / 100 % 10, code / 10 % 10, code % 10} {
			if d != 0 {
				faces[i] = append(faces[i], d)
			}
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return body.NewARB(r.body, verts, faces)
}

func axisPlane(a body.Axis) func(*argReader) (body.Params, error) {
	return func(r *argReader) (body.Params, error) {
		return body.AxisPlane{Axis: a, Value: r.float("value")}, nil
	}
}

func axisCylinder(a body.Axis) func(*argReader) (body.Params, error) {
	return func(r *argReader) (body.Params, error) {
		return body.AxisCylinder{Axis: a, A: r.float("a"), B: r.float("b"), Radius: r.float("radius")}, nil
	}
}

func axisEllipticalCylinder(a body.Axis) func(*argReader) (body.Params, error) {
	return func(r *argReader) (body.Params, error) {
		return body.AxisEllipticalCylinder{
			Axis: a, A: r.float("a"), B: r.float("b"),
			SemiA: r.float("semi-a"), SemiB: r.float("semi-b"),
		}, nil
	}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all zonecsg DSL builtins into a zygomys
// environment. The builtins populate b during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *registry.Builder) {
	names := func(id registry.BodyID) string { return b.Body(id).Name }

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		r := &argReader{args: args}
		v := r.vec("vec3")
		if err := r.finish(); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpVec3{vec: v}, nil
	})

	// (transform :translate (vec3 0 0 10) :rotate (vec3 0 0 90))
	env.AddFunction("transform", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("transform takes only :translate and :rotate")
		}
		var trans, rot geom.Vector3
		if v, ok := pa.kw["translate"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("transform: translate: %w", err)
			}
			trans = vec
		}
		if v, ok := pa.kw["rotate"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("transform: rotate: %w", err)
			}
			rot = vec
		}
		return &sexpTransform{t: geom.FromEulerDegrees(trans, rot.X, rot.Y, rot.Z)}, nil
	})

	// (sph "target" 0 0 0 5 :transform t :expansion 0.1) and the other bodies.
	for form, spec := range bodyForms {
		env.AddFunction(form, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if len(pa.positional) < 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires a name argument", form)
			}
			bodyName, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: name: %w", form, err)
			}
			var opts []body.Option
			if v, ok := pa.kw["transform"]; ok {
				t, err := toTransform(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s %s: transform: %w", form, bodyName, err)
				}
				opts = append(opts, body.WithTransform(t))
			}
			if v, ok := pa.kw["expansion"]; ok {
				f, err := toFloat64(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s %s: expansion: %w", form, bodyName, err)
				}
				opts = append(opts, body.WithExpansion(f))
			}

			r := &argReader{body: bodyName, args: pa.positional[1:]}
			data, err := spec.read(r)
			if err == nil {
				err = r.finish()
			}
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s %s: %w", form, bodyName, err)
			}
			bd, err := body.New(bodyName, spec.kind, data, opts...)
			if err != nil {
				return zygo.SexpNull, err
			}
			if _, dup := b.Lookup(bodyName); dup {
				return zygo.SexpNull, fmt.Errorf("%s: body %q is already defined", form, bodyName)
			}
			b.AddBody(bd)
			return &sexpRef{kind: "body", name: bodyName}, nil
		})
	}

	// (zone "+a -b" (exclude (zone "+c -d")))
	env.AddFunction("zone", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		var z registry.Zone
		for i, arg := range args {
			switch v := arg.(type) {
			case *sexpOperand:
				z.Operands = append(z.Operands, v.op)
			case *zygo.SexpStr:
				zones, err := parseZones(v.S, b.Lookup)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("zone: %w", err)
				}
				if len(zones) > 1 {
					return zygo.SexpNull, fmt.Errorf("zone: argument %d is a union; use region", i+1)
				}
				z.Operands = append(z.Operands, zones[0].Operands...)
			default:
				return zygo.SexpNull, fmt.Errorf("zone: argument %d: expected expression or operand, got %T (%s)",
					i+1, arg, arg.SexpString(nil))
			}
		}
		if len(z.Operands) == 0 {
			return zygo.SexpNull, fmt.Errorf("zone requires at least one operand")
		}
		return &sexpZone{zone: z, text: z.Format(names)}, nil
	})

	// (include (zone ...)) and (exclude (zone ...))
	for form, sign := range map[string]registry.Sign{"include": registry.Include, "exclude": registry.Exclude} {
		env.AddFunction(form, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires exactly one zone", form)
			}
			zs, err := toZones(args[0], b)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", form, err)
			}
			if len(zs) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s: a sub-zone cannot be a union", form)
			}
			sub := zs[0]
			op := registry.Operand{Sign: sign, Sub: &sub}
			return &sexpOperand{op: op, text: registry.NewZone(op).Format(names)}, nil
		})
	}

	// (material "STEEL")
	env.AddFunction("material", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("material requires exactly one name")
		}
		m, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("material: %w", err)
		}
		if m == "" {
			return zygo.SexpNull, fmt.Errorf("material: empty name")
		}
		b.DeclareMaterial(m)
		return &zygo.SexpStr{S: m}, nil
	})

	// (region "shell" :material "IRON" "+outer -inner" (zone ...) ...)
	env.AddFunction("region", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("region requires a name argument")
		}
		regionName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("region: name: %w", err)
		}
		v, ok := pa.kw["material"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("region %s: :material is required", regionName)
		}
		material, err := toString(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("region %s: material: %w", regionName, err)
		}

		// Zones may also come in lists, e.g. built with map.
		var items []zygo.Sexp
		for _, arg := range pa.positional[1:] {
			switch arg.(type) {
			case *zygo.SexpPair, *zygo.SexpArray:
				list, err := sexpListToSlice(arg)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("region %s: %w", regionName, err)
				}
				items = append(items, list...)
			default:
				items = append(items, arg)
			}
		}
		rg := registry.Region{Name: regionName, Material: material}
		for i, item := range items {
			zs, err := toZones(item, b)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("region %s: zone %d: %w", regionName, i+1, err)
			}
			rg.Zones = append(rg.Zones, zs...)
		}
		b.AddRegion(rg)
		return &sexpRef{kind: "region", name: regionName}, nil
	})

	// (lattice "cell1" :prototype "proto" :transform (transform :translate (vec3 50 0 0)))
	env.AddFunction("lattice", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("lattice requires exactly one name argument")
		}
		cellName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("lattice: name: %w", err)
		}
		c := registry.LatticeCell{Name: cellName, Transform: geom.Identity()}
		v, ok := pa.kw["prototype"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("lattice %s: :prototype is required", cellName)
		}
		if c.Prototype, err = toName(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("lattice %s: prototype: %w", cellName, err)
		}
		if v, ok := pa.kw["transform"]; ok {
			if c.Transform, err = toTransform(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("lattice %s: transform: %w", cellName, err)
			}
		}
		b.AddLattice(c)
		return &sexpRef{kind: "lattice", name: cellName}, nil
	})
}

// toZones converts a zone object or an expression string into zones.
func toZones(s zygo.Sexp, b *registry.Builder) ([]registry.Zone, error) {
	switch v := s.(type) {
	case *sexpZone:
		return []registry.Zone{v.zone}, nil
	case *zygo.SexpStr:
		return parseZones(v.S, b.Lookup)
	}
	return nil, fmt.Errorf("expected zone or expression, got %T (%s)", s, s.SexpString(nil))
}
