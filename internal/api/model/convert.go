package model

import "github.com/cuongbtq/jobboard-be/internal/alerting"

func (a *JobAlert) ToAlerting() alerting.JobAlert {
	return alerting.JobAlert{
		ID:     a.ID,
		UserID: a.UserID,
		Name:   a.Name,
		Criteria: alerting.Criteria{
			Keywords: a.Keywords,
			Skills:   a.Skills,
			Location: alerting.LocationFilter{
				Type:     alerting.LocationType(a.LocationType),
				City:     a.LocationCity,
				State:    a.LocationState,
				Country:  a.LocationCountry,
				RadiusKM: a.LocationRadiusKM,
			},
			JobTypes:         JobTypes(a.JobTypes),
			ExperienceLevels: ExperienceLevels(a.ExperienceLevels),
			Salary: alerting.SalaryRange{
				Min:      a.SalaryMin,
				Max:      a.SalaryMax,
				Currency: a.SalaryCurrency,
			},
			Industries:       a.Industries,
			Companies:        a.Companies,
			ExcludeCompanies: a.ExcludeCompanies,
		},
		IsActive:  a.IsActive,
		Frequency: alerting.Frequency(a.Frequency),
		Preferences: alerting.Preferences{
			Email: a.NotifyEmail,
			Push:  a.NotifyPush,
			SMS:   a.NotifySMS,
		},
		LastChecked:          a.LastChecked,
		LastNotificationSent: a.LastNotificationSent,
		TotalMatches:         a.TotalMatches,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
}

func (a *JobAlertWithOwner) ToAlerting() alerting.JobAlert {
	alert := a.JobAlert.ToAlerting()
	alert.Owner = alerting.Recipient{
		UserID:    a.UserID,
		Email:     a.OwnerEmail,
		FirstName: a.OwnerFirstName,
	}
	return alert
}

func (s *Subscription) ToAlerting() alerting.Subscription {
	return alerting.Subscription{
		ID:               s.ID,
		UserID:           s.UserID,
		CompanyID:        s.CompanyID,
		JobTypes:         JobTypes(s.JobTypes),
		ExperienceLevels: ExperienceLevels(s.ExperienceLevels),
		Preferences: alerting.Preferences{
			Email: s.NotifyEmail,
			Push:  s.NotifyPush,
			SMS:   s.NotifySMS,
		},
		IsActive:               s.IsActive,
		LastNotificationSent:   s.LastNotificationSent,
		TotalNotificationsSent: s.TotalNotificationsSent,
		CreatedAt:              s.CreatedAt,
		UpdatedAt:              s.UpdatedAt,
	}
}

func (s *SubscriptionWithOwner) ToAlerting() alerting.Subscription {
	sub := s.Subscription.ToAlerting()
	sub.Owner = alerting.Recipient{
		UserID:    s.UserID,
		Email:     s.OwnerEmail,
		FirstName: s.OwnerFirstName,
	}
	return sub
}

func (j *JobWithCompany) ToCandidate() alerting.JobCandidate {
	return alerting.JobCandidate{
		ID:              j.ID,
		CompanyID:       j.CompanyID,
		CompanyName:     j.CompanyName,
		Title:           j.Title,
		Description:     j.Description,
		Skills:          j.Skills,
		LocationType:    alerting.LocationType(j.LocationType),
		City:            j.City,
		State:           j.State,
		Country:         j.Country,
		JobType:         alerting.JobType(j.JobType),
		ExperienceLevel: alerting.ExperienceLevel(j.ExperienceLevel),
		SalaryMin:       j.SalaryMin,
		SalaryMax:       j.SalaryMax,
		SalaryCurrency:  j.SalaryCurrency,
		IsActive:        j.IsActive,
		IsDeleted:       j.IsDeleted,
		CreatedAt:       j.CreatedAt,
	}
}

func (c *Company) ToAlerting() alerting.Company {
	return alerting.Company{ID: c.ID, Name: c.Name, Industry: c.Industry}
}

func JobTypes(values []string) []alerting.JobType {
	out := make([]alerting.JobType, 0, len(values))
	for _, v := range values {
		out = append(out, alerting.JobType(v))
	}
	return out
}

func ExperienceLevels(values []string) []alerting.ExperienceLevel {
	out := make([]alerting.ExperienceLevel, 0, len(values))
	for _, v := range values {
		out = append(out, alerting.ExperienceLevel(v))
	}
	return out
}
