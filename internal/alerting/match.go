package alerting

import (
	"slices"
	"strings"
)

// Matches reports whether job satisfies every clause of c. Empty or unset
// criteria impose no constraint. A company on the exclude list never
// matches, whatever the other clauses say.
func Matches(c *Criteria, job *JobCandidate) bool {
	if slices.Contains(c.ExcludeCompanies, job.CompanyID) {
		return false
	}

	if len(c.Keywords) > 0 && !matchesKeywords(c.Keywords, job) {
		return false
	}

	if len(c.Skills) > 0 && !matchesSkills(c.Skills, job.Skills) {
		return false
	}

	if c.Location.Type != "" && c.Location.Type != LocationAny && job.LocationType != c.Location.Type {
		return false
	}

	if len(c.JobTypes) > 0 && !slices.Contains(c.JobTypes, job.JobType) {
		return false
	}

	if len(c.ExperienceLevels) > 0 && !slices.Contains(c.ExperienceLevels, job.ExperienceLevel) {
		return false
	}

	if !matchesSalary(c.Salary, job) {
		return false
	}

	if len(c.Companies) > 0 && !slices.Contains(c.Companies, job.CompanyID) {
		return false
	}

	return true
}

// MatchesSubscription applies the job type and experience level filters of s
func MatchesSubscription(s *Subscription, job *JobCandidate) bool {
	if job.CompanyID != s.CompanyID {
		return false
	}
	if len(s.JobTypes) > 0 && !slices.Contains(s.JobTypes, job.JobType) {
		return false
	}
	if len(s.ExperienceLevels) > 0 && !slices.Contains(s.ExperienceLevels, job.ExperienceLevel) {
		return false
	}
	return true
}

func matchesKeywords(keywords []string, job *JobCandidate) bool {
	title := strings.ToLower(job.Title)
	description := strings.ToLower(job.Description)

	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if strings.Contains(title, kw) || strings.Contains(description, kw) {
			return true
		}
	}
	return false
}

func matchesSkills(wanted, have []string) bool {
	for _, skill := range have {
		skill = strings.ToLower(skill)
		for _, w := range wanted {
			if strings.Contains(skill, strings.ToLower(w)) {
				return true
			}
		}
	}
	return false
}

// matchesSalary only rejects on bounds the job actually declares
func matchesSalary(r SalaryRange, job *JobCandidate) bool {
	if r.Max != nil && job.SalaryMin != nil && *job.SalaryMin > *r.Max {
		return false
	}
	if r.Min != nil && job.SalaryMax != nil && *job.SalaryMax < *r.Min {
		return false
	}
	return true
}
