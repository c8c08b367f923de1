package safety

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/kinga/core"
	"github.com/trezcool/kinga/core/auth"
	"github.com/trezcool/kinga/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("record not found")
	// ErrPermissionDenied is deliberately generic: it never says which
	// permission was missing.
	ErrPermissionDenied = errors.New("permission denied")
	ErrVisitClosed      = errors.New("visit already closed")
	ErrAlertResolved    = errors.New("alert already resolved")
	errInvalidStatus    = errors.New("invalid status")
)

type (
	Repository interface {
		CreateReport(ctx context.Context, rep Report) (Report, error)
		GetReportByID(ctx context.Context, id string) (Report, error)
		FilterReports(ctx context.Context, filter ReportFilter) ([]Report, error)
		UpdateReportStatus(ctx context.Context, id, status string, at time.Time) (Report, error)

		CreateVisit(ctx context.Context, v Visit) (Visit, error)
		GetVisitByID(ctx context.Context, id string) (Visit, error)
		FilterVisits(ctx context.Context, filter VisitFilter) ([]Visit, error)
		CloseVisit(ctx context.Context, id string, at time.Time) (Visit, error)

		CreateOccurrence(ctx context.Context, occ Occurrence) (Occurrence, error)
		QueryAllOccurrences(ctx context.Context) ([]Occurrence, error)

		CreateNotice(ctx context.Context, n Notice) (Notice, error)
		QueryAllNotices(ctx context.Context) ([]Notice, error)

		CreateDrill(ctx context.Context, d Drill) (Drill, error)
		QueryAllDrills(ctx context.Context) ([]Drill, error)

		CreateCampaign(ctx context.Context, c Campaign) (Campaign, error)
		QueryAllCampaigns(ctx context.Context) ([]Campaign, error)

		CreateAlert(ctx context.Context, a EmergencyAlert) (EmergencyAlert, error)
		GetAlertByID(ctx context.Context, id string) (EmergencyAlert, error)
		FilterAlerts(ctx context.Context, filter AlertFilter) ([]EmergencyAlert, error)
		ResolveAlert(ctx context.Context, id, resolvedBy string, at time.Time) (EmergencyAlert, error)
	}

	// Authorizer scopes permission checks to a session; implemented by auth.Manager.
	Authorizer interface {
		Authorize(sess *auth.Session, perm user.Permission) bool
		IsValid(sess *auth.Session) bool
	}

	// Dispatcher is invoked fire-and-forget for urgent notices and for
	// every emergency alert. Delivery is not this package's concern.
	Dispatcher interface {
		DispatchNotice(n Notice)
		DispatchEmergency(a EmergencyAlert)
	}

	Service struct {
		repo     Repository
		users    *user.Service
		authz    Authorizer
		dispatch Dispatcher
		log      core.Logger
	}
)

func NewService(repo Repository, usrSvc *user.Service, authz Authorizer, dispatch Dispatcher, log core.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    usrSvc,
		authz:    authz,
		dispatch: dispatch,
		log:      log,
	}
}

// Reports

// SubmitReport files an incident report. Anonymous reports never store the
// reporter's identity, whoever submitted them.
func (svc *Service) SubmitReport(ctx context.Context, sess *auth.Session, nr NewReport) (Report, error) {
	if !svc.authz.Authorize(sess, user.PermReportIncident) {
		return Report{}, ErrPermissionDenied
	}
	if err := nr.Validate(); err != nil {
		return Report{}, err
	}

	now := time.Now().UTC()
	rep := Report{
		Type:        nr.Type,
		Description: nr.Description,
		Anonymous:   nr.Anonymous,
		Status:      ReportPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !nr.Anonymous {
		rep.ReporterID = sess.Account.ID
	}
	return svc.repo.CreateReport(ctx, rep)
}

func (svc *Service) QueryReports(ctx context.Context, sess *auth.Session, filter ReportFilter) ([]Report, error) {
	if !svc.authz.Authorize(sess, user.PermViewReports) {
		return nil, ErrPermissionDenied
	}
	return svc.repo.FilterReports(ctx, filter)
}

// SetReportStatus moves a report along pending -> reviewed -> resolved.
func (svc *Service) SetReportStatus(ctx context.Context, sess *auth.Session, id, status string) (Report, error) {
	if !svc.authz.Authorize(sess, user.PermViewReports) {
		return Report{}, ErrPermissionDenied
	}
	var valid bool
	for _, s := range ReportStatuses {
		if s == status {
			valid = true
			break
		}
	}
	if !valid {
		return Report{}, core.NewValidationError(errInvalidStatus, core.FieldError{Field: "status", Error: errInvalidStatus.Error()})
	}
	return svc.repo.UpdateReportStatus(ctx, id, status, time.Now().UTC())
}

// Visitors

func (svc *Service) RegisterVisit(ctx context.Context, sess *auth.Session, nv NewVisit) (Visit, error) {
	if !svc.authz.Authorize(sess, user.PermRegisterVisitor) {
		return Visit{}, ErrPermissionDenied
	}
	if err := nv.Validate(); err != nil {
		return Visit{}, err
	}
	return svc.repo.CreateVisit(ctx, Visit{
		Name:         nv.Name,
		Document:     nv.Document,
		Purpose:      nv.Purpose,
		Destination:  nv.Destination,
		RegisteredBy: sess.Account.ID,
		EntryTime:    time.Now().UTC(),
	})
}

func (svc *Service) QueryVisits(ctx context.Context, sess *auth.Session, filter VisitFilter) ([]Visit, error) {
	if !svc.authz.Authorize(sess, user.PermRegisterVisitor) {
		return nil, ErrPermissionDenied
	}
	return svc.repo.FilterVisits(ctx, filter)
}

// CloseVisit records the visitor's check-out time.
func (svc *Service) CloseVisit(ctx context.Context, sess *auth.Session, id string) (Visit, error) {
	if !svc.authz.Authorize(sess, user.PermRegisterVisitor) {
		return Visit{}, ErrPermissionDenied
	}
	return svc.repo.CloseVisit(ctx, id, time.Now().UTC())
}

// Occurrences

func (svc *Service) LogOccurrence(ctx context.Context, sess *auth.Session, no NewOccurrence) (Occurrence, error) {
	if !svc.authz.Authorize(sess, user.PermLogIncident) {
		return Occurrence{}, ErrPermissionDenied
	}
	if err := no.Validate(); err != nil {
		return Occurrence{}, err
	}
	return svc.repo.CreateOccurrence(ctx, Occurrence{
		Title:       no.Title,
		Description: no.Description,
		Severity:    no.Severity,
		CreatedBy:   sess.Account.ID,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) QueryOccurrences(ctx context.Context, sess *auth.Session) ([]Occurrence, error) {
	if !svc.authz.Authorize(sess, user.PermLogIncident) {
		return nil, ErrPermissionDenied
	}
	return svc.repo.QueryAllOccurrences(ctx)
}

// Notices

// CreateNotice publishes a notice; an urgent one also triggers the
// notification dispatcher.
func (svc *Service) CreateNotice(ctx context.Context, sess *auth.Session, nn NewNotice) (Notice, error) {
	if !svc.authz.Authorize(sess, user.PermCreateNotice) {
		return Notice{}, ErrPermissionDenied
	}
	if err := nn.Validate(); err != nil {
		return Notice{}, err
	}
	ntc, err := svc.repo.CreateNotice(ctx, Notice{
		Title:     nn.Title,
		Content:   nn.Content,
		Urgent:    nn.Urgent,
		CreatedBy: sess.Account.ID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Notice{}, err
	}
	if ntc.Urgent {
		svc.dispatch.DispatchNotice(ntc)
	}
	return ntc, nil
}

func (svc *Service) QueryNotices(ctx context.Context, sess *auth.Session) ([]Notice, error) {
	if !svc.authz.Authorize(sess, user.PermViewNotices) {
		return nil, ErrPermissionDenied
	}
	return svc.repo.QueryAllNotices(ctx)
}

// Drills

func (svc *Service) ScheduleDrill(ctx context.Context, sess *auth.Session, nd NewDrill) (Drill, error) {
	if !svc.authz.Authorize(sess, user.PermCreateNotice) {
		return Drill{}, ErrPermissionDenied
	}
	if err := nd.Validate(); err != nil {
		return Drill{}, err
	}
	return svc.repo.CreateDrill(ctx, Drill{
		Title:         nd.Title,
		Description:   nd.Description,
		Type:          nd.Type,
		ScheduledDate: nd.ScheduledDate.UTC(),
		CreatedBy:     sess.Account.ID,
		CreatedAt:     time.Now().UTC(),
	})
}

func (svc *Service) QueryDrills(ctx context.Context, sess *auth.Session) ([]Drill, error) {
	if !svc.authz.IsValid(sess) {
		return nil, ErrPermissionDenied
	}
	return svc.repo.QueryAllDrills(ctx)
}

// Campaigns

func (svc *Service) CreateCampaign(ctx context.Context, sess *auth.Session, nc NewCampaign) (Campaign, error) {
	if !svc.authz.Authorize(sess, user.PermCreateCampaign) {
		return Campaign{}, ErrPermissionDenied
	}
	if err := nc.Validate(); err != nil {
		return Campaign{}, err
	}
	return svc.repo.CreateCampaign(ctx, Campaign{
		Title:     nc.Title,
		Content:   nc.Content,
		Category:  nc.Category,
		CreatedBy: sess.Account.ID,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) QueryCampaigns(ctx context.Context, sess *auth.Session) ([]Campaign, error) {
	if !svc.authz.Authorize(sess, user.PermViewCampaigns) {
		return nil, ErrPermissionDenied
	}
	return svc.repo.QueryAllCampaigns(ctx)
}

// Emergency alerts

// TriggerEmergency requires nothing beyond a valid session: emergency
// reporting must never be blocked by role.
func (svc *Service) TriggerEmergency(ctx context.Context, sess *auth.Session, na NewAlert) (EmergencyAlert, error) {
	if !svc.authz.IsValid(sess) {
		return EmergencyAlert{}, ErrPermissionDenied
	}
	if err := na.Validate(); err != nil {
		return EmergencyAlert{}, err
	}
	alert, err := svc.repo.CreateAlert(ctx, EmergencyAlert{
		Message:     na.Message,
		Location:    na.Location,
		TriggeredBy: sess.Account.ID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return EmergencyAlert{}, err
	}
	svc.dispatch.DispatchEmergency(alert)
	return alert, nil
}

func (svc *Service) QueryAlerts(ctx context.Context, sess *auth.Session, filter AlertFilter) ([]EmergencyAlert, error) {
	if !svc.authz.Authorize(sess, user.PermViewReports) {
		return nil, ErrPermissionDenied
	}
	return svc.repo.FilterAlerts(ctx, filter)
}

func (svc *Service) ResolveAlert(ctx context.Context, sess *auth.Session, id string) (EmergencyAlert, error) {
	if !svc.authz.Authorize(sess, user.PermGenerateReport) {
		return EmergencyAlert{}, ErrPermissionDenied
	}
	return svc.repo.ResolveAlert(ctx, id, sess.Account.ID, time.Now().UTC())
}

// Accounts

// SetUserActive bans or reinstates an account; direction only. The account
// data stays intact either way.
func (svc *Service) SetUserActive(ctx context.Context, sess *auth.Session, email string, active bool) (user.User, error) {
	if !svc.authz.Authorize(sess, user.PermBanUser) {
		return user.User{}, ErrPermissionDenied
	}
	return svc.users.SetActive(ctx, email, active)
}
