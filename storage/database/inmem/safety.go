package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/kinga/core/safety"
)

type safetyRepository struct {
	db *safetyTables
}

var _ safety.Repository = (*safetyRepository)(nil) // interface compliance check

func NewSafetyRepository(db *DB) safety.Repository {
	return &safetyRepository{db: db.safety}
}

// Reports

func (repo *safetyRepository) CreateReport(ctx context.Context, rep safety.Report) (safety.Report, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rep.ID = uuid.New().String()
	repo.db.reports[rep.ID] = &rep
	return rep, nil
}

func (repo *safetyRepository) GetReportByID(ctx context.Context, id string) (safety.Report, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rep, ok := repo.db.reports[id]; ok {
		return *rep, nil
	}
	return safety.Report{}, safety.ErrNotFound
}

func (repo *safetyRepository) FilterReports(ctx context.Context, filter safety.ReportFilter) ([]safety.Report, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reports := make([]safety.Report, 0, len(repo.db.reports))
	for _, rep := range repo.db.reports {
		if filter.Status != "" && rep.Status != filter.Status {
			continue
		}
		if filter.ReporterID != "" && rep.ReporterID != filter.ReporterID {
			continue
		}
		reports = append(reports, *rep)
	}
	return reports, nil
}

func (repo *safetyRepository) UpdateReportStatus(ctx context.Context, id, status string, at time.Time) (safety.Report, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rep, ok := repo.db.reports[id]
	if !ok {
		return safety.Report{}, safety.ErrNotFound
	}
	rep.Status = status
	rep.UpdatedAt = at
	return *rep, nil
}

// Visits

func (repo *safetyRepository) CreateVisit(ctx context.Context, v safety.Visit) (safety.Visit, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	v.ID = uuid.New().String()
	repo.db.visits[v.ID] = &v
	return v, nil
}

func (repo *safetyRepository) GetVisitByID(ctx context.Context, id string) (safety.Visit, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if v, ok := repo.db.visits[id]; ok {
		return *v, nil
	}
	return safety.Visit{}, safety.ErrNotFound
}

func (repo *safetyRepository) FilterVisits(ctx context.Context, filter safety.VisitFilter) ([]safety.Visit, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	visits := make([]safety.Visit, 0, len(repo.db.visits))
	for _, v := range repo.db.visits {
		if filter.Open != nil && v.Open() != *filter.Open {
			continue
		}
		if filter.Document != "" && v.Document != filter.Document {
			continue
		}
		visits = append(visits, *v)
	}
	return visits, nil
}

func (repo *safetyRepository) CloseVisit(ctx context.Context, id string, at time.Time) (safety.Visit, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	v, ok := repo.db.visits[id]
	if !ok {
		return safety.Visit{}, safety.ErrNotFound
	}
	if !v.Open() {
		return safety.Visit{}, safety.ErrVisitClosed
	}
	v.ExitTime = at
	return *v, nil
}

// Occurrences

func (repo *safetyRepository) CreateOccurrence(ctx context.Context, occ safety.Occurrence) (safety.Occurrence, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	occ.ID = uuid.New().String()
	repo.db.occurrences[occ.ID] = &occ
	return occ, nil
}

func (repo *safetyRepository) QueryAllOccurrences(ctx context.Context) ([]safety.Occurrence, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	occurrences := make([]safety.Occurrence, 0, len(repo.db.occurrences))
	for _, occ := range repo.db.occurrences {
		occurrences = append(occurrences, *occ)
	}
	return occurrences, nil
}

// Notices

func (repo *safetyRepository) CreateNotice(ctx context.Context, n safety.Notice) (safety.Notice, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n.ID = uuid.New().String()
	repo.db.notices[n.ID] = &n
	return n, nil
}

func (repo *safetyRepository) QueryAllNotices(ctx context.Context) ([]safety.Notice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	notices := make([]safety.Notice, 0, len(repo.db.notices))
	for _, n := range repo.db.notices {
		notices = append(notices, *n)
	}
	return notices, nil
}

// Drills

func (repo *safetyRepository) CreateDrill(ctx context.Context, d safety.Drill) (safety.Drill, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	d.ID = uuid.New().String()
	repo.db.drills[d.ID] = &d
	return d, nil
}

func (repo *safetyRepository) QueryAllDrills(ctx context.Context) ([]safety.Drill, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	drills := make([]safety.Drill, 0, len(repo.db.drills))
	for _, d := range repo.db.drills {
		drills = append(drills, *d)
	}
	return drills, nil
}

// Campaigns

func (repo *safetyRepository) CreateCampaign(ctx context.Context, c safety.Campaign) (safety.Campaign, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = uuid.New().String()
	repo.db.campaigns[c.ID] = &c
	return c, nil
}

func (repo *safetyRepository) QueryAllCampaigns(ctx context.Context) ([]safety.Campaign, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	campaigns := make([]safety.Campaign, 0, len(repo.db.campaigns))
	for _, c := range repo.db.campaigns {
		campaigns = append(campaigns, *c)
	}
	return campaigns, nil
}

// Emergency alerts

func (repo *safetyRepository) CreateAlert(ctx context.Context, a safety.EmergencyAlert) (safety.EmergencyAlert, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = uuid.New().String()
	repo.db.alerts[a.ID] = &a
	return a, nil
}

func (repo *safetyRepository) GetAlertByID(ctx context.Context, id string) (safety.EmergencyAlert, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.alerts[id]; ok {
		return *a, nil
	}
	return safety.EmergencyAlert{}, safety.ErrNotFound
}

func (repo *safetyRepository) FilterAlerts(ctx context.Context, filter safety.AlertFilter) ([]safety.EmergencyAlert, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	alerts := make([]safety.EmergencyAlert, 0, len(repo.db.alerts))
	for _, a := range repo.db.alerts {
		if filter.Resolved != nil && a.Resolved != *filter.Resolved {
			continue
		}
		alerts = append(alerts, *a)
	}
	return alerts, nil
}

func (repo *safetyRepository) ResolveAlert(ctx context.Context, id, resolvedBy string, at time.Time) (safety.EmergencyAlert, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a, ok := repo.db.alerts[id]
	if !ok {
		return safety.EmergencyAlert{}, safety.ErrNotFound
	}
	if a.Resolved {
		return safety.EmergencyAlert{}, safety.ErrAlertResolved
	}
	a.Resolved = true
	a.ResolvedBy = resolvedBy
	a.ResolvedAt = at
	return *a, nil
}
