package convert

import (
	"errors"
	"fmt"

	"github.com/chazu/zonecsg/pkg/body"
	"github.com/chazu/zonecsg/pkg/csg"
	"github.com/chazu/zonecsg/pkg/registry"
)

// Pipeline stages, in execution order.
const (
	StageValidate = "validate"
	StageOrient   = "orient"
	StageSafety   = "safety"
	StageSplit    = "split"
	StageExtent   = "extent"
	StageLattice  = "lattice"
	StageEmit     = "emit"
)

// StageError reports the pipeline stage a conversion failed in and the
// entity named by the underlying error, when there is one.
type StageError struct {
	Stage  string
	Entity string // "region FOO", "body BAR"; empty when unknown
	Err    error
}

func (e *StageError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("convert: %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("convert: %s: %s: %v", e.Stage, e.Entity, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageError(stage string, err error) error {
	return &StageError{Stage: stage, Entity: entityOf(err), Err: err}
}

// entityOf names the first entity carried by err.
func entityOf(err error) string {
	var (
		nse *csg.NullSolidError
		gce *body.GeometryConstraintError
		awe *body.AmbiguousWindingError
		rie *registry.RegistryIntegrityError
		ve  registry.ValidationError
	)
	switch {
	case errors.As(err, &nse):
		return "region " + nse.Region
	case errors.As(err, &gce):
		return "body " + gce.Body
	case errors.As(err, &awe):
		return "body " + awe.Body
	case errors.As(err, &rie):
		return rie.Kind + " " + rie.Name
	case errors.As(err, &ve):
		return ve.Entity
	}
	return ""
}
