package playbook

// Classify scans A, B, C in order and returns the first grade whose threshold the
// score meets (inclusive). Scores below every threshold are D. Grades absent from t
// are skipped, so callers normally pass t.WithDefaults().
func Classify(score float64, t Thresholds) Grade {
	for _, g := range thresholdGrades {
		if min, ok := t[g]; ok && score >= min {
			return g
		}
	}
	return GradeD
}
