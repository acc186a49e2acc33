package alerting

// FindMatches returns the eligible candidates that match alert's criteria,
// in input order.
func FindMatches(alert *JobAlert, candidates []JobCandidate) []JobCandidate {
	var matched []JobCandidate
	for i := range candidates {
		job := &candidates[i]
		if !job.Eligible() {
			continue
		}
		if Matches(&alert.Criteria, job) {
			matched = append(matched, *job)
		}
	}
	return matched
}
