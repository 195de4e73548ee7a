package registry

import "fmt"

// ValidationSeverity indicates whether a validation finding blocks
// conversion or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks conversion
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Entity   string             // "region FOO", "body BAR"; empty for registry-level findings
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Entity, e.Message)
}

// ValidationResult bundles errors (blocking) and warnings (advisory) from
// all validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether no blocking finding was made.
func (v ValidationResult) OK() bool { return len(v.Errors) == 0 }

// Validate runs the Tier 1 structural checks on a built registry. Build
// already rejects integrity violations, so these findings concern
// geometries that are well formed but suspicious or certainly empty.
func Validate(r *Registry) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateRegionsHaveZones(r)...)
	errs = append(errs, validateSelfCancellingZones(r)...)
	errs = append(errs, validateUnusedBodies(r)...)
	errs = append(errs, validateLatticePrototypes(r)...)
	return errs
}

// ValidateAll runs all validation tiers (structural, geometric, material)
// and returns a ValidationResult with separated errors and warnings.
func ValidateAll(r *Registry) ValidationResult {
	var all []ValidationError
	// Tier 1: structural.
	all = append(all, Validate(r)...)
	// Tier 2: geometric.
	all = append(all, validateBoundedZones(r)...)
	// Tier 3: materials.
	all = append(all, validateMaterials(r)...)

	var result ValidationResult
	for _, e := range all {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, e)
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Tier 1 — structure
// ---------------------------------------------------------------------------

func validateRegionsHaveZones(r *Registry) []ValidationError {
	var errs []ValidationError
	for _, reg := range r.regions {
		if len(reg.Zones) == 0 {
			errs = append(errs, ValidationError{
				Entity:   "region " + reg.Name,
				Message:  "region has no zones and converts to nothing",
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateSelfCancellingZones flags zones that include and exclude the same
// body at the top level. Such a zone is always empty.
func validateSelfCancellingZones(r *Registry) []ValidationError {
	var errs []ValidationError
	for _, reg := range r.regions {
		for zi, z := range reg.Zones {
			signs := make(map[BodyID]Sign)
			for _, o := range z.Operands {
				if o.IsZone() {
					continue
				}
				if prev, ok := signs[o.Body]; ok && prev != o.Sign {
					errs = append(errs, ValidationError{
						Entity:   "region " + reg.Name,
						Message:  fmt.Sprintf("zone %d includes and excludes body %s", zi, r.BodyName(o.Body)),
						Severity: SeverityError,
					})
				}
				signs[o.Body] = o.Sign
			}
		}
	}
	return errs
}

func validateUnusedBodies(r *Registry) []ValidationError {
	var errs []ValidationError
	for id, bd := range r.bodies {
		if len(r.usage[id]) == 0 {
			errs = append(errs, ValidationError{
				Entity:   "body " + bd.Name,
				Message:  "body is not referenced by any region",
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateLatticePrototypes warns about cells that coincide with their
// prototype.
func validateLatticePrototypes(r *Registry) []ValidationError {
	var errs []ValidationError
	for _, c := range r.lattices {
		if c.Transform.IsIdentity() {
			errs = append(errs, ValidationError{
				Entity:   "lattice " + c.Name,
				Message:  fmt.Sprintf("identity transform places the cell on top of prototype %s", c.Prototype),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// ---------------------------------------------------------------------------
// Tier 2 — geometry
// ---------------------------------------------------------------------------

// validateBoundedZones warns about zones whose Include operands are all
// infinite bodies; they are bounded only by extent resolution.
func validateBoundedZones(r *Registry) []ValidationError {
	var errs []ValidationError
	for _, reg := range r.regions {
		for zi, z := range reg.Zones {
			finite := false
			for _, o := range z.Operands {
				if o.Sign == Include && !o.IsZone() && !r.bodies[o.Body].IsInfinite() {
					finite = true
					break
				}
			}
			if !finite {
				errs = append(errs, ValidationError{
					Entity:   "region " + reg.Name,
					Message:  fmt.Sprintf("zone %d is bounded only by infinite bodies", zi),
					Severity: SeverityWarning,
				})
			}
		}
	}
	return errs
}

// ---------------------------------------------------------------------------
// Tier 3 — materials
// ---------------------------------------------------------------------------

func validateMaterials(r *Registry) []ValidationError {
	used := make(map[string]bool)
	for _, reg := range r.regions {
		used[reg.Material] = true
	}
	predefined := make(map[string]bool, len(PredefinedMaterials))
	for _, m := range PredefinedMaterials {
		predefined[m] = true
	}
	var errs []ValidationError
	for _, m := range r.materials {
		if !used[m] && !predefined[m] {
			errs = append(errs, ValidationError{
				Entity:   "material " + m,
				Message:  "declared material is not used by any region",
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
