package jsonfiledb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/kinga/core/safety"
)

type safetyRepository struct {
	db *DB
}

var _ safety.Repository = (*safetyRepository)(nil) // interface compliance check

func NewSafetyRepository(db *DB) safety.Repository {
	return &safetyRepository{db: db}
}

// Reports

func (repo *safetyRepository) CreateReport(ctx context.Context, rep safety.Report) (safety.Report, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	rep.ID = uuid.New().String()
	repo.db.reports[rep.ID] = &rep
	if err := repo.db.save(reportsFile, repo.db.reports); err != nil {
		delete(repo.db.reports, rep.ID)
		return safety.Report{}, err
	}
	return rep, nil
}

func (repo *safetyRepository) GetReportByID(ctx context.Context, id string) (safety.Report, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rep, ok := repo.db.reports[id]; ok {
		return *rep, nil
	}
	return safety.Report{}, safety.ErrNotFound
}

func (repo *safetyRepository) FilterReports(ctx context.Context, filter safety.ReportFilter) ([]safety.Report, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

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
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.reports[id]
	if !ok {
		return safety.Report{}, safety.ErrNotFound
	}

	updated := *orig
	updated.Status = status
	updated.UpdatedAt = at
	repo.db.reports[id] = &updated
	if err := repo.db.save(reportsFile, repo.db.reports); err != nil {
		repo.db.reports[id] = orig
		return safety.Report{}, err
	}
	return updated, nil
}

// Visits

func (repo *safetyRepository) CreateVisit(ctx context.Context, v safety.Visit) (safety.Visit, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	v.ID = uuid.New().String()
	repo.db.visits[v.ID] = &v
	if err := repo.db.save(visitsFile, repo.db.visits); err != nil {
		delete(repo.db.visits, v.ID)
		return safety.Visit{}, err
	}
	return v, nil
}

func (repo *safetyRepository) GetVisitByID(ctx context.Context, id string) (safety.Visit, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if v, ok := repo.db.visits[id]; ok {
		return *v, nil
	}
	return safety.Visit{}, safety.ErrNotFound
}

func (repo *safetyRepository) FilterVisits(ctx context.Context, filter safety.VisitFilter) ([]safety.Visit, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

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
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.visits[id]
	if !ok {
		return safety.Visit{}, safety.ErrNotFound
	}
	if !orig.Open() {
		return safety.Visit{}, safety.ErrVisitClosed
	}

	updated := *orig
	updated.ExitTime = at
	repo.db.visits[id] = &updated
	if err := repo.db.save(visitsFile, repo.db.visits); err != nil {
		repo.db.visits[id] = orig
		return safety.Visit{}, err
	}
	return updated, nil
}

// Occurrences

func (repo *safetyRepository) CreateOccurrence(ctx context.Context, occ safety.Occurrence) (safety.Occurrence, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	occ.ID = uuid.New().String()
	repo.db.occurrences[occ.ID] = &occ
	if err := repo.db.save(occurrencesFile, repo.db.occurrences); err != nil {
		delete(repo.db.occurrences, occ.ID)
		return safety.Occurrence{}, err
	}
	return occ, nil
}

func (repo *safetyRepository) QueryAllOccurrences(ctx context.Context) ([]safety.Occurrence, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	occurrences := make([]safety.Occurrence, 0, len(repo.db.occurrences))
	for _, occ := range repo.db.occurrences {
		occurrences = append(occurrences, *occ)
	}
	return occurrences, nil
}

// Notices

func (repo *safetyRepository) CreateNotice(ctx context.Context, n safety.Notice) (safety.Notice, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	n.ID = uuid.New().String()
	repo.db.notices[n.ID] = &n
	if err := repo.db.save(noticesFile, repo.db.notices); err != nil {
		delete(repo.db.notices, n.ID)
		return safety.Notice{}, err
	}
	return n, nil
}

func (repo *safetyRepository) QueryAllNotices(ctx context.Context) ([]safety.Notice, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	notices := make([]safety.Notice, 0, len(repo.db.notices))
	for _, n := range repo.db.notices {
		notices = append(notices, *n)
	}
	return notices, nil
}

// Drills

func (repo *safetyRepository) CreateDrill(ctx context.Context, d safety.Drill) (safety.Drill, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	d.ID = uuid.New().String()
	repo.db.drills[d.ID] = &d
	if err := repo.db.save(drillsFile, repo.db.drills); err != nil {
		delete(repo.db.drills, d.ID)
		return safety.Drill{}, err
	}
	return d, nil
}

func (repo *safetyRepository) QueryAllDrills(ctx context.Context) ([]safety.Drill, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	drills := make([]safety.Drill, 0, len(repo.db.drills))
	for _, d := range repo.db.drills {
		drills = append(drills, *d)
	}
	return drills, nil
}

// Campaigns

func (repo *safetyRepository) CreateCampaign(ctx context.Context, c safety.Campaign) (safety.Campaign, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	c.ID = uuid.New().String()
	repo.db.campaigns[c.ID] = &c
	if err := repo.db.save(campaignsFile, repo.db.campaigns); err != nil {
		delete(repo.db.campaigns, c.ID)
		return safety.Campaign{}, err
	}
	return c, nil
}

func (repo *safetyRepository) QueryAllCampaigns(ctx context.Context) ([]safety.Campaign, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	campaigns := make([]safety.Campaign, 0, len(repo.db.campaigns))
	for _, c := range repo.db.campaigns {
		campaigns = append(campaigns, *c)
	}
	return campaigns, nil
}

// Emergency alerts

func (repo *safetyRepository) CreateAlert(ctx context.Context, a safety.EmergencyAlert) (safety.EmergencyAlert, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	a.ID = uuid.New().String()
	repo.db.alerts[a.ID] = &a
	if err := repo.db.save(alertsFile, repo.db.alerts); err != nil {
		delete(repo.db.alerts, a.ID)
		return safety.EmergencyAlert{}, err
	}
	return a, nil
}

func (repo *safetyRepository) GetAlertByID(ctx context.Context, id string) (safety.EmergencyAlert, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if a, ok := repo.db.alerts[id]; ok {
		return *a, nil
	}
	return safety.EmergencyAlert{}, safety.ErrNotFound
}

func (repo *safetyRepository) FilterAlerts(ctx context.Context, filter safety.AlertFilter) ([]safety.EmergencyAlert, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

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
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.alerts[id]
	if !ok {
		return safety.EmergencyAlert{}, safety.ErrNotFound
	}
	if orig.Resolved {
		return safety.EmergencyAlert{}, safety.ErrAlertResolved
	}

	updated := *orig
	updated.Resolved = true
	updated.ResolvedBy = resolvedBy
	updated.ResolvedAt = at
	repo.db.alerts[id] = &updated
	if err := repo.db.save(alertsFile, repo.db.alerts); err != nil {
		repo.db.alerts[id] = orig
		return safety.EmergencyAlert{}, err
	}
	return updated, nil
}
