package model

import "time"

// JobPatch is a partial update. Nil fields are left untouched.
type JobPatch struct {
	Title          *string   `json:"title,omitempty"`
	Company        *string   `json:"company,omitempty"`
	Location       *string   `json:"location,omitempty"`
	Type           *string   `json:"type,omitempty"`
	Sector         *string   `json:"sector,omitempty"`
	Salary         *string   `json:"salary,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Requirements   *[]string `json:"requirements,omitempty"`
	Qualifications *[]string `json:"qualifications,omitempty"`
	Experience     *string   `json:"experience,omitempty"`
	ApplyLink      *string   `json:"applyLink,omitempty"`
	Featured       *bool     `json:"featured,omitempty"`
	IsActive       *bool     `json:"isActive,omitempty"`
	IsApproved     *bool     `json:"isApproved,omitempty"`
}

// Deactivate is the patch used by soft deletes and the expiration sweep.
func Deactivate() JobPatch {
	inactive := false
	return JobPatch{IsActive: &inactive}
}

// ApplyTo writes the set fields of p onto r and stamps the update.
func (p JobPatch) ApplyTo(r *JobRecord, actor string, now time.Time) {
	setString(&r.Title, p.Title)
	setString(&r.Company, p.Company)
	setString(&r.Location, p.Location)
	setString(&r.Type, p.Type)
	setString(&r.Sector, p.Sector)
	setString(&r.Salary, p.Salary)
	setString(&r.Description, p.Description)
	setString(&r.Experience, p.Experience)
	setString(&r.ApplyLink, p.ApplyLink)
	if p.Requirements != nil {
		r.Requirements = *p.Requirements
	}
	if p.Qualifications != nil {
		r.Qualifications = *p.Qualifications
	}
	setBool(&r.Featured, p.Featured)
	setBool(&r.IsActive, p.IsActive)
	setBool(&r.IsApproved, p.IsApproved)

	r.UpdatedAt = now.UTC()
	r.LastUpdatedBy = actor
	r.Normalize()
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Counter names one of the engagement counters on a JobRecord.
type Counter string

const (
	CounterViews        Counter = "views"
	CounterShares       Counter = "shares"
	CounterApplications Counter = "applications"
	CounterSaves        Counter = "saves"
)

// Bump adds one to counter c on r and returns the new value.
func (r *JobRecord) Bump(c Counter) int64 {
	switch c {
	case CounterViews:
		r.Views++
		return r.Views
	case CounterShares:
		r.Shares++
		return r.Shares
	case CounterApplications:
		r.Applications++
		return r.Applications
	case CounterSaves:
		r.Saves++
		return r.Saves
	}
	return 0
}

// Valid reports whether c is a known counter.
func (c Counter) Valid() bool {
	switch c {
	case CounterViews, CounterShares, CounterApplications, CounterSaves:
		return true
	}
	return false
}
