package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ericfisherdev/scangate/internal/domain/model"
)

// GateOptions selects how a run's results become a pipeline verdict.
type GateOptions struct {
	Policy         model.GatePolicy
	Thresholds     model.ThresholdSpec
	WaitForResults bool
}

// Validate rejects contradictory gate settings. It runs before any network call.
func (o GateOptions) Validate() error {
	switch o.Policy {
	case model.PolicyNone, "":
		return nil
	case model.PolicyNonCompliance:
		if !o.WaitForResults {
			return fmt.Errorf("%w: failing on non-compliant findings requires waiting for results", model.ErrConfiguration)
		}
		return nil
	case model.PolicyThreshold:
		if err := o.Thresholds.Validate(); err != nil {
			return err
		}
		if !o.WaitForResults {
			return fmt.Errorf("%w: failbuildif requires waiting for results", model.ErrConfiguration)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown gate policy %q", model.ErrConfiguration, o.Policy)
	}
}

// EvaluateGate applies the gate policy to results. A nil results snapshot
// yields VerdictSkipped. A failing verdict comes with an error wrapping
// model.ErrNonCompliant or model.ErrThresholdExceeded.
func EvaluateGate(o GateOptions, results *model.ScanResults) (model.Verdict, error) {
	if results == nil {
		return model.VerdictSkipped, nil
	}

	switch o.Policy {
	case model.PolicyNonCompliance:
		if results.Counts.Total > 0 {
			return model.VerdictFail, fmt.Errorf("%w: %d issues found", model.ErrNonCompliant, results.Counts.Total)
		}
		return model.VerdictPass, nil
	case model.PolicyThreshold:
		verdict, breaches := o.Thresholds.Evaluate(results.Counts)
		if verdict == model.VerdictFail {
			return verdict, fmt.Errorf("%w: %w", model.ErrThresholdExceeded, describeBreaches(breaches))
		}
		return verdict, nil
	default:
		return model.VerdictPass, nil
	}
}

func describeBreaches(breaches []model.Breach) error {
	parts := make([]string, 0, len(breaches))
	for _, b := range breaches {
		parts = append(parts, fmt.Sprintf("%s issues %d > %d", b.Name, b.Count, b.Limit))
	}
	return errors.New(strings.Join(parts, ", "))
}
