package decision

import (
	"fmt"
	"math"
	"strings"

	"kyc-gateway/internal/provider"
)

// Score computes the weighted verification score for a provider decision.
// Deterministic: the same decision always produces the same score.
func Score(d *provider.Decision) int {
	if d == nil {
		return 0
	}

	earned, applicable := 0, 0

	if d.IDVerification != nil {
		applicable += weightDocument
		earned += documentPoints(d.IDVerification)
	}
	if d.FaceMatch != nil {
		applicable += weightFaceMatch
		earned += faceMatchPoints(d.FaceMatch)
	}
	if d.Liveness != nil {
		applicable += weightLiveness
		earned += livenessPoints(d.Liveness)
	}
	if d.AML != nil {
		applicable += weightAML
		earned += amlPoints(d.AML)
	}

	if applicable == 0 {
		return 0
	}
	return int(math.Round(100 * float64(earned) / float64(applicable)))
}

// Evaluate applies the compliance policy to a terminal decision. A session is
// compliant only if the score meets the minimum AND the document check is
// approved AND neither face match nor liveness explicitly failed AND the AML
// screening is not a confirmed hit with non-low risk.
//
// Rule priority (all violated rules are reported, not just the first):
//  1. Document approval - identity baseline
//  2. Face match - biometric binding
//  3. Liveness - presentation-attack defense
//  4. AML screening - compliance-critical
//  5. Minimum score - aggregate quality gate
func Evaluate(d *provider.Decision, minScore int) Verdict {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}

	verdict := Verdict{Score: Score(d), Reasons: []string{}}
	if d == nil {
		verdict.Reasons = append(verdict.Reasons,
			"El proveedor no devolvió una decisión de verificación.")
		return verdict
	}

	if d.IDVerification == nil || d.IDVerification.Status != provider.CheckApproved {
		verdict.Reasons = append(verdict.Reasons,
			"El documento de identidad no fue aprobado. Verifique que el documento sea legible y esté vigente.")
	}
	if faceMatchFailed(d.FaceMatch) {
		verdict.Reasons = append(verdict.Reasons,
			"La verificación facial falló. Repita la captura de rostro con buena iluminación.")
	}
	if livenessFailed(d.Liveness) {
		verdict.Reasons = append(verdict.Reasons,
			"La prueba de vida falló. Repita la prueba de vida siguiendo las instrucciones en pantalla.")
	}
	if amlBlocked(d.AML) {
		verdict.Reasons = append(verdict.Reasons,
			"La verificación de antecedentes detectó coincidencias de riesgo. El caso será revisado por el área de cumplimiento.")
	}
	if verdict.Score < minScore {
		verdict.Reasons = append(verdict.Reasons, fmt.Sprintf(
			"La puntuación de verificación (%d) es inferior al mínimo requerido (%d).",
			verdict.Score, minScore))
	}

	verdict.Compliant = len(verdict.Reasons) == 0
	return verdict
}

// Summarize builds the VerificationSummary the registration flow consumes.
func Summarize(d *provider.Decision, minScore int) Summary {
	verdict := Evaluate(d, minScore)
	summary := Summary{
		IsFullyVerified:   verdict.Compliant,
		VerificationScore: verdict.Score,
		CompletedChecks:   []string{},
		FailedChecks:      []string{},
		Warnings:          []string{},
	}
	if d == nil {
		return summary
	}

	classify := func(name string, passed, failed bool, detail string) {
		switch {
		case passed:
			summary.CompletedChecks = append(summary.CompletedChecks, name)
		case failed:
			summary.FailedChecks = append(summary.FailedChecks, name)
		default:
			summary.Warnings = append(summary.Warnings, detail)
		}
	}

	if c := d.IDVerification; c != nil {
		classify(CheckDocument,
			c.Status == provider.CheckApproved,
			strings.EqualFold(c.Status, provider.CheckDeclined),
			"la validación del documento quedó en revisión manual")
	}
	if c := d.FaceMatch; c != nil {
		classify(CheckFaceMatch,
			c.Status == provider.FaceMatchMatch,
			faceMatchFailed(c),
			"la coincidencia facial no fue concluyente")
	}
	if c := d.Liveness; c != nil {
		classify(CheckLiveness,
			c.Status == provider.LivenessLive,
			livenessFailed(c),
			"la prueba de vida no fue concluyente")
	}
	if a := d.AML; a != nil {
		classify(CheckAML,
			a.Status == provider.AMLClear,
			amlBlocked(a),
			"la verificación de antecedentes reportó coincidencias de bajo riesgo")
	}

	summary.Warnings = append(summary.Warnings, d.Warnings...)
	return summary
}

func documentPoints(c *provider.CheckResult) int {
	switch {
	case c.Status == provider.CheckApproved:
		return 40
	case strings.EqualFold(c.Status, provider.CheckInReview):
		return 20
	default:
		return 0
	}
}

func faceMatchPoints(c *provider.CheckResult) int {
	switch {
	case c.Status == provider.FaceMatchMatch:
		return 30
	case c.Confidence != nil && *c.Confidence >= confidenceFloor:
		return 15
	default:
		return 0
	}
}

func livenessPoints(c *provider.CheckResult) int {
	switch {
	case c.Status == provider.LivenessLive:
		return 20
	case c.Confidence != nil && *c.Confidence >= confidenceFloor:
		return 10
	default:
		return 0
	}
}

func amlPoints(a *provider.AMLResult) int {
	switch {
	case a.Status == provider.AMLClear:
		return 10
	case a.Risk == provider.RiskLow:
		return 5
	default:
		return 0
	}
}

// faceMatchFailed reports an explicit face-match failure. An absent check is
// not a failure; it is simply excluded from scoring.
func faceMatchFailed(c *provider.CheckResult) bool {
	return c != nil && c.Status == provider.FaceMatchNoMatch
}

// livenessFailed reports an explicit liveness failure.
func livenessFailed(c *provider.CheckResult) bool {
	return c != nil && (c.Status == provider.LivenessNotLive || strings.EqualFold(c.Status, "failed"))
}

// amlBlocked reports a confirmed AML hit carrying non-low risk.
func amlBlocked(a *provider.AMLResult) bool {
	return a != nil && a.Status == provider.AMLHit && a.Risk != provider.RiskLow
}
