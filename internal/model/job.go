// Package model defines the job catalog records shared by the stores, the
// sync engine and the transports.
package model

import (
	"time"

	"github.com/google/uuid"
)

// TTL is how long a posting stays active after creation.
const TTL = 90 * 24 * time.Hour

// Origin records where a JobRecord was last confirmed.
type Origin string

const (
	OriginRemote Origin = "remote" // written straight to the remote store
	OriginSynced Origin = "synced" // pushed to the remote store by the synchronizer
	OriginLocal  Origin = "local"  // only in the local cache, awaiting a push
)

// JobRecord is a job posting as stored in either the remote store or the
// local fallback cache.
type JobRecord struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Company        string   `json:"company"`
	Location       string   `json:"location"`
	Type           string   `json:"type"`
	Sector         string   `json:"sector"`
	Salary         string   `json:"salary"`
	Description    string   `json:"description"`
	Requirements   []string `json:"requirements"`
	Qualifications []string `json:"qualifications"`
	Experience     string   `json:"experience"`
	ApplyLink      string   `json:"applyLink"`
	Featured       bool     `json:"featured"`

	IsActive   bool `json:"isActive"`
	IsApproved bool `json:"isApproved"`

	Views        int64 `json:"views"`
	Shares       int64 `json:"shares"`
	Applications int64 `json:"applications"`
	Saves        int64 `json:"saves"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ExpiresAt time.Time `json:"expiresAt"`

	CreatedBy     string `json:"createdBy"`
	LastUpdatedBy string `json:"lastUpdatedBy"`
	Origin        Origin `json:"origin"`
}

// JobInput is the caller-supplied content of a new posting. It is also the
// document shape read by the bulk import command.
type JobInput struct {
	Title          string   `json:"title" yaml:"title"`
	Company        string   `json:"company" yaml:"company"`
	Location       string   `json:"location" yaml:"location"`
	Type           string   `json:"type" yaml:"type"`
	Sector         string   `json:"sector" yaml:"sector"`
	Salary         string   `json:"salary" yaml:"salary"`
	Description    string   `json:"description" yaml:"description"`
	Requirements   []string `json:"requirements,omitempty" yaml:"requirements"`
	Qualifications []string `json:"qualifications,omitempty" yaml:"qualifications"`
	Experience     string   `json:"experience" yaml:"experience"`
	ApplyLink      string   `json:"applyLink" yaml:"applyLink"`
	Featured       bool     `json:"featured" yaml:"featured"`
	IsApproved     *bool    `json:"isApproved,omitempty" yaml:"isApproved"`
}

// NewJobRecord is the only constructor of a valid JobRecord. It assigns the
// ID, timestamps and expiry, and normalises the list fields.
func NewJobRecord(in JobInput, actor string, now time.Time) JobRecord {
	approved := true
	if in.IsApproved != nil {
		approved = *in.IsApproved
	}
	now = now.UTC()
	r := JobRecord{
		ID:             NewID(),
		Title:          in.Title,
		Company:        in.Company,
		Location:       in.Location,
		Type:           in.Type,
		Sector:         in.Sector,
		Salary:         in.Salary,
		Description:    in.Description,
		Requirements:   in.Requirements,
		Qualifications: in.Qualifications,
		Experience:     in.Experience,
		ApplyLink:      in.ApplyLink,
		Featured:       in.Featured,
		IsActive:       true,
		IsApproved:     approved,
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      actor,
		LastUpdatedBy:  actor,
		Origin:         OriginRemote,
	}
	r.Normalize()
	return r
}

// NewID returns a time-ordered random identifier that needs no server
// coordination.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Normalize enforces the record invariants on data read back from a store:
// list fields are never nil and ExpiresAt is always CreatedAt + TTL.
func (r *JobRecord) Normalize() {
	if r.Requirements == nil {
		r.Requirements = []string{}
	}
	if r.Qualifications == nil {
		r.Qualifications = []string{}
	}
	r.ExpiresAt = r.CreatedAt.Add(TTL)
	if r.Origin == "" {
		r.Origin = OriginRemote
	}
}

// Expired reports whether the posting is past its TTL at now.
func (r JobRecord) Expired(now time.Time) bool {
	return r.ExpiresAt.Before(now)
}

// Snapshot is the full content of the local fallback cache.
type Snapshot struct {
	Jobs       []JobRecord
	CapturedAt time.Time
}
