package alerting

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/jobboard-be/internal/notification"
)

func recipientOf(r Recipient) notification.Recipient {
	return notification.Recipient{Email: r.Email, FirstName: r.FirstName}
}

func summarize(jobs []JobCandidate) []notification.JobSummary {
	out := make([]notification.JobSummary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, notification.JobSummary{
			ID:              j.ID,
			Title:           j.Title,
			CompanyName:     j.CompanyName,
			LocationType:    string(j.LocationType),
			City:            j.City,
			State:           j.State,
			Country:         j.Country,
			JobType:         string(j.JobType),
			ExperienceLevel: string(j.ExperienceLevel),
			SalaryMin:       j.SalaryMin,
			SalaryMax:       j.SalaryMax,
			SalaryCurrency:  j.SalaryCurrency,
			CreatedAt:       j.CreatedAt,
		})
	}
	return out
}

func digestMessage(alert *JobAlert, matches []JobCandidate, now time.Time) notification.Message {
	plural := "es"
	if len(matches) == 1 {
		plural = ""
	}

	return notification.Message{
		ID:        uuid.NewString(),
		Kind:      notification.KindBatchDigest,
		Recipient: recipientOf(alert.Owner),
		Subject:   fmt.Sprintf("Your %s job digest: %d new match%s", alert.Frequency, len(matches), plural),
		Data: notification.Data{
			AlertID:   alert.ID,
			AlertName: alert.Name,
			Frequency: string(alert.Frequency),
			Jobs:      summarize(matches),
		},
		CreatedAt: now,
	}
}

func customAlertMessage(alert *JobAlert, job *JobCandidate, now time.Time) notification.Message {
	return notification.Message{
		ID:        uuid.NewString(),
		Kind:      notification.KindCustomAlert,
		Recipient: recipientOf(alert.Owner),
		Subject:   fmt.Sprintf("Job Alert: %s at %s", job.Title, job.CompanyName),
		Data: notification.Data{
			AlertID:     alert.ID,
			AlertName:   alert.Name,
			CompanyName: job.CompanyName,
			Frequency:   string(alert.Frequency),
			Jobs:        summarize([]JobCandidate{*job}),
		},
		CreatedAt: now,
	}
}

func companyJobMessage(sub *Subscription, job *JobCandidate, company *Company, now time.Time) notification.Message {
	return notification.Message{
		ID:        uuid.NewString(),
		Kind:      notification.KindCompanyJob,
		Recipient: recipientOf(sub.Owner),
		Subject:   fmt.Sprintf("New Job at %s: %s", company.Name, job.Title),
		Data: notification.Data{
			SubscriptionID: sub.ID,
			CompanyName:    company.Name,
			Jobs:           summarize([]JobCandidate{*job}),
		},
		CreatedAt: now,
	}
}

func interviewReminderMessage(iv *Interview, now time.Time) notification.Message {
	interviewers := make([]notification.Interviewer, 0, len(iv.Interviewers))
	for _, p := range iv.Interviewers {
		interviewers = append(interviewers, notification.Interviewer{Name: p.Name, Title: p.Title})
	}

	return notification.Message{
		ID:        uuid.NewString(),
		Kind:      notification.KindInterviewReminder,
		Recipient: recipientOf(iv.Owner),
		Subject:   fmt.Sprintf("Interview Reminder: %s at %s", iv.JobTitle, iv.CompanyName),
		Data: notification.Data{
			CompanyName: iv.CompanyName,
			Interview: &notification.InterviewSummary{
				ID:               iv.ID,
				JobTitle:         iv.JobTitle,
				CompanyName:      iv.CompanyName,
				Type:             iv.Type,
				Round:            iv.Round,
				ScheduledAt:      iv.ScheduledAt,
				DurationMinutes:  iv.DurationMinutes,
				LocationType:     iv.Location.Type,
				Address:          iv.Location.Address,
				MeetingLink:      iv.Location.MeetingLink,
				PhoneNumber:      iv.Location.PhoneNumber,
				Interviewers:     interviewers,
				PreparationNotes: iv.PreparationNotes,
			},
		},
		CreatedAt: now,
	}
}
