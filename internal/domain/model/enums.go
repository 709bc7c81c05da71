package model

import "strings"

// ScanType is the kind of site being scanned.
type ScanType string

const (
	ScanTypeProduction ScanType = "Production"
	ScanTypeStaging    ScanType = "Staging"
	ScanTypeCustom     ScanType = "Custom" // Forced when a scan template file is supplied.
)

// Optimization is the test optimization level requested for a dynamic scan.
type Optimization string

const (
	OptimizationFast           Optimization = "Fast"
	OptimizationFaster         Optimization = "Faster"
	OptimizationFastest        Optimization = "Fastest"
	OptimizationNoOptimization Optimization = "NoOptimization"
)

// legacyOptimizations maps optimization names accepted by older releases to
// their current equivalents.
var legacyOptimizations = map[string]Optimization{
	"Normal":    OptimizationNoOptimization,
	"Optimized": OptimizationFast,
}

// NormalizeOptimization maps a legacy optimization name to its canonical
// value and canonicalizes case for current names. Unknown values are
// returned unchanged so validation can reject them.
func NormalizeOptimization(v string) Optimization {
	for legacy, canonical := range legacyOptimizations {
		if strings.EqualFold(v, legacy) {
			return canonical
		}
	}
	for _, o := range []Optimization{OptimizationFast, OptimizationFaster, OptimizationFastest, OptimizationNoOptimization} {
		if strings.EqualFold(v, string(o)) {
			return o
		}
	}
	return Optimization(v)
}

// LoginMode selects how the scanner authenticates against the target site.
type LoginMode string

const (
	LoginNone      LoginMode = "None"
	LoginAutomatic LoginMode = "Automatic"
	LoginRecorded  LoginMode = "Manual" // Login sequence recorded in a traffic file.
)

// ReportFormat is the file format of the downloaded security report.
type ReportFormat string

const (
	ReportHTML ReportFormat = "html"
	ReportPDF  ReportFormat = "pdf"
	ReportCSV  ReportFormat = "csv"
	ReportXML  ReportFormat = "xml"
)

// GatePolicy selects how scan results are turned into a pipeline verdict.
type GatePolicy string

const (
	PolicyNone          GatePolicy = "none"
	PolicyNonCompliance GatePolicy = "noncompliance" // Fail on any non-compliant finding.
	PolicyThreshold     GatePolicy = "threshold"     // Fail when a count exceeds its ceiling.
)

// Verdict is the outcome of gate evaluation.
type Verdict string

const (
	VerdictPass    Verdict = "pass"
	VerdictFail    Verdict = "fail"
	VerdictSkipped Verdict = "skipped" // Results were not awaited or not available.
)
