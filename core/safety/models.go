// Package safety holds the school-safety workflows: incident reports,
// visitor logging, occurrences, notices, drills, campaigns and the
// emergency-alert button. Every record is append-only; only the status
// transitions spelled out here may mutate one after creation.
package safety

import (
	"time"

	"github.com/trezcool/kinga/core"
)

// Report statuses
const (
	ReportPending  = "pending"
	ReportReviewed = "reviewed"
	ReportResolved = "resolved"
)

var ReportStatuses = []string{ReportPending, ReportReviewed, ReportResolved}

type (
	// Report is an incident report submitted by any member of the school.
	// When Anonymous is set, ReporterID is never stored.
	Report struct {
		ID          string    `json:"id"`
		Type        string    `json:"type"`
		Description string    `json:"description"`
		Anonymous   bool      `json:"anonymous"`
		ReporterID  string    `json:"reporter_id,omitempty"`
		Status      string    `json:"status"`
		CreatedAt   time.Time `json:"created_at"` // UTC
		UpdatedAt   time.Time `json:"updated_at"` // UTC
	}

	// Visit is a visitor check-in; ExitTime stays zero until the visit is closed.
	Visit struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Document     string    `json:"document"`
		Purpose      string    `json:"purpose"`
		Destination  string    `json:"destination"`
		RegisteredBy string    `json:"registered_by"`
		EntryTime    time.Time `json:"entry_time"` // UTC
		ExitTime     time.Time `json:"exit_time"`  // UTC; zero while the visit is open
	}

	// Occurrence is an internal incident logged by staff.
	Occurrence struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Severity    string    `json:"severity"`
		CreatedBy   string    `json:"created_by"`
		CreatedAt   time.Time `json:"created_at"` // UTC
	}

	Notice struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Content   string    `json:"content"`
		Urgent    bool      `json:"urgent"`
		CreatedBy string    `json:"created_by"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	Drill struct {
		ID            string    `json:"id"`
		Title         string    `json:"title"`
		Description   string    `json:"description"`
		Type          string    `json:"type"`
		ScheduledDate time.Time `json:"scheduled_date"` // UTC
		CreatedBy     string    `json:"created_by"`
		CreatedAt     time.Time `json:"created_at"` // UTC
	}

	Campaign struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Content   string    `json:"content"`
		Category  string    `json:"category"`
		CreatedBy string    `json:"created_by"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	EmergencyAlert struct {
		ID          string    `json:"id"`
		Message     string    `json:"message"`
		Location    string    `json:"location,omitempty"`
		TriggeredBy string    `json:"triggered_by"`
		Resolved    bool      `json:"resolved"`
		ResolvedBy  string    `json:"resolved_by,omitempty"`
		ResolvedAt  time.Time `json:"resolved_at"` // UTC; zero while unresolved
		CreatedAt   time.Time `json:"created_at"`  // UTC
	}
)

// Open reports whether the visitor has not checked out yet.
func (v Visit) Open() bool { return v.ExitTime.IsZero() }

// NewReport contains information needed to submit a Report.
type NewReport struct {
	Type        string `json:"type" validate:"required,oneof=bullying fight theft vandalism other"`
	Description string `json:"description" validate:"required"`
	Anonymous   bool   `json:"anonymous"`
}

func (nr *NewReport) Validate() error {
	nr.Type = core.CleanString(nr.Type, true /* lower */)
	nr.Description = core.CleanString(nr.Description)
	return core.Validate.Struct(nr)
}

type NewVisit struct {
	Name        string `json:"name" validate:"required"`
	Document    string `json:"document" validate:"required"`
	Purpose     string `json:"purpose" validate:"required"`
	Destination string `json:"destination" validate:"required"`
}

func (nv *NewVisit) Validate() error {
	nv.Name = core.CleanString(nv.Name)
	nv.Document = core.CleanString(nv.Document)
	nv.Purpose = core.CleanString(nv.Purpose)
	nv.Destination = core.CleanString(nv.Destination)
	return core.Validate.Struct(nv)
}

type NewOccurrence struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Severity    string `json:"severity" validate:"omitempty,oneof=low medium high"`
}

func (no *NewOccurrence) Validate() error {
	no.Title = core.CleanString(no.Title)
	no.Description = core.CleanString(no.Description)
	no.Severity = core.CleanString(no.Severity, true /* lower */)
	if no.Severity == "" {
		no.Severity = "medium"
	}
	return core.Validate.Struct(no)
}

type NewNotice struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
	Urgent  bool   `json:"urgent"`
}

func (nn *NewNotice) Validate() error {
	nn.Title = core.CleanString(nn.Title)
	nn.Content = core.CleanString(nn.Content)
	return core.Validate.Struct(nn)
}

type NewDrill struct {
	Title         string    `json:"title" validate:"required"`
	Description   string    `json:"description"`
	Type          string    `json:"type" validate:"required,oneof=evacuation fire earthquake lockdown"`
	ScheduledDate time.Time `json:"scheduled_date" validate:"required"`
}

func (nd *NewDrill) Validate() error {
	nd.Title = core.CleanString(nd.Title)
	nd.Description = core.CleanString(nd.Description)
	nd.Type = core.CleanString(nd.Type, true /* lower */)
	return core.Validate.Struct(nd)
}

type NewCampaign struct {
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content" validate:"required"`
	Category string `json:"category" validate:"required,oneof=digital_safety traffic_education general"`
}

func (nc *NewCampaign) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	nc.Content = core.CleanString(nc.Content)
	nc.Category = core.CleanString(nc.Category, true /* lower */)
	return core.Validate.Struct(nc)
}

type NewAlert struct {
	Message  string `json:"message" validate:"required"`
	Location string `json:"location"`
}

func (na *NewAlert) Validate() error {
	na.Message = core.CleanString(na.Message)
	na.Location = core.CleanString(na.Location)
	return core.Validate.Struct(na)
}

// Query filters

type ReportFilter struct {
	Status     string `query:"status"`
	ReporterID string `query:"reporter_id"`
}

func (rf *ReportFilter) IsEmpty() bool { return rf.Status == "" && rf.ReporterID == "" }

type VisitFilter struct {
	Open     *bool  `query:"open"`
	Document string `query:"document"`
}

func (vf *VisitFilter) IsEmpty() bool { return vf.Open == nil && vf.Document == "" }

type AlertFilter struct {
	Resolved *bool `query:"resolved"`
}

func (af *AlertFilter) IsEmpty() bool { return af.Resolved == nil }
