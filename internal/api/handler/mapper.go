package handler

import (
	"github.com/lib/pq"

	"github.com/cuongbtq/jobboard-be/internal/alerting"
	"github.com/cuongbtq/jobboard-be/internal/api/dto"
	"github.com/cuongbtq/jobboard-be/internal/api/model"
)

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func stringArray(values []string) pq.StringArray {
	if values == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(values)
}

// applyCriteria copies c onto a, defaulting location type to any and the
// salary currency to USD
func applyCriteria(a *model.JobAlert, c *dto.CriteriaDTO) {
	a.Keywords = stringArray(c.Keywords)
	a.Skills = stringArray(c.Skills)

	a.LocationType = c.Location.Type
	if a.LocationType == "" {
		a.LocationType = string(alerting.LocationAny)
	}
	a.LocationCity = c.Location.City
	a.LocationState = c.Location.State
	a.LocationCountry = c.Location.Country
	a.LocationRadiusKM = c.Location.RadiusKM

	a.JobTypes = stringArray(c.JobTypes)
	a.ExperienceLevels = stringArray(c.ExperienceLevels)

	a.SalaryMin = c.Salary.Min
	a.SalaryMax = c.Salary.Max
	a.SalaryCurrency = c.Salary.Currency
	if a.SalaryCurrency == "" {
		a.SalaryCurrency = "USD"
	}

	a.Industries = stringArray(c.Industries)
	a.Companies = stringArray(c.Companies)
	a.ExcludeCompanies = stringArray(c.ExcludeCompanies)
}

// applyPreferences merges the fields present in p onto the current values
func applyPreferences(email, push, sms *bool, p *dto.PreferencesDTO) {
	if p == nil {
		return
	}
	*email = boolOr(p.Email, *email)
	*push = boolOr(p.Push, *push)
	*sms = boolOr(p.SMS, *sms)
}

func salaryRangeValid(min, max *float64) bool {
	return min == nil || max == nil || *min <= *max
}

func toAlertDTO(a *model.JobAlert) dto.AlertDTO {
	return dto.AlertDTO{
		ID:     a.ID,
		UserID: a.UserID,
		Name:   a.Name,
		Criteria: dto.CriteriaDTO{
			Keywords: a.Keywords,
			Skills:   a.Skills,
			Location: dto.LocationDTO{
				Type:     a.LocationType,
				City:     a.LocationCity,
				State:    a.LocationState,
				Country:  a.LocationCountry,
				RadiusKM: a.LocationRadiusKM,
			},
			JobTypes:         a.JobTypes,
			ExperienceLevels: a.ExperienceLevels,
			Salary: dto.SalaryDTO{
				Min:      a.SalaryMin,
				Max:      a.SalaryMax,
				Currency: a.SalaryCurrency,
			},
			Industries:       a.Industries,
			Companies:        a.Companies,
			ExcludeCompanies: a.ExcludeCompanies,
		},
		IsActive:  a.IsActive,
		Frequency: a.Frequency,
		Preferences: dto.PreferencesResponse{
			Email: a.NotifyEmail,
			Push:  a.NotifyPush,
			SMS:   a.NotifySMS,
		},
		LastChecked:          formatTimePtr(a.LastChecked),
		LastNotificationSent: formatTimePtr(a.LastNotificationSent),
		TotalMatches:         a.TotalMatches,
		CreatedAt:            formatTime(a.CreatedAt),
		UpdatedAt:            formatTime(a.UpdatedAt),
	}
}

func toSubscriptionDTO(s *model.Subscription, companyName string) dto.SubscriptionDTO {
	return dto.SubscriptionDTO{
		ID:               s.ID,
		UserID:           s.UserID,
		CompanyID:        s.CompanyID,
		CompanyName:      companyName,
		JobTypes:         stringArray(s.JobTypes),
		ExperienceLevels: stringArray(s.ExperienceLevels),
		Preferences: dto.PreferencesResponse{
			Email: s.NotifyEmail,
			Push:  s.NotifyPush,
			SMS:   s.NotifySMS,
		},
		IsActive:               s.IsActive,
		LastNotificationSent:   formatTimePtr(s.LastNotificationSent),
		TotalNotificationsSent: s.TotalNotificationsSent,
		CreatedAt:              formatTime(s.CreatedAt),
		UpdatedAt:              formatTime(s.UpdatedAt),
	}
}

func toJobDTO(j *model.JobWithCompany) dto.JobDTO {
	return dto.JobDTO{
		ID:               j.ID,
		CompanyID:        j.CompanyID,
		CompanyName:      j.CompanyName,
		Title:            j.Title,
		Description:      j.Description,
		Skills:           stringArray(j.Skills),
		LocationType:     j.LocationType,
		City:             j.City,
		State:            j.State,
		Country:          j.Country,
		JobType:          j.JobType,
		ExperienceLevel:  j.ExperienceLevel,
		SalaryMin:        j.SalaryMin,
		SalaryMax:        j.SalaryMax,
		SalaryCurrency:   j.SalaryCurrency,
		SalaryPeriod:     j.SalaryPeriod,
		ApplicationCount: j.ApplicationCount,
		CreatedAt:        formatTime(j.CreatedAt),
	}
}

func candidateToJobDTO(j *alerting.JobCandidate) dto.JobDTO {
	return dto.JobDTO{
		ID:              j.ID,
		CompanyID:       j.CompanyID,
		CompanyName:     j.CompanyName,
		Title:           j.Title,
		Description:     j.Description,
		Skills:          stringArray(j.Skills),
		LocationType:    string(j.LocationType),
		City:            j.City,
		State:           j.State,
		Country:         j.Country,
		JobType:         string(j.JobType),
		ExperienceLevel: string(j.ExperienceLevel),
		SalaryMin:       j.SalaryMin,
		SalaryMax:       j.SalaryMax,
		SalaryCurrency:  j.SalaryCurrency,
		CreatedAt:       formatTime(j.CreatedAt),
	}
}
