package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kinga/core"
	"github.com/trezcool/kinga/core/safety"
)

// newestFirst is the default ordering of every record listing.
var newestFirst = core.DBOrdering{Field: "created_at"}

type safetyRepository struct {
	db *sqlx.DB
}

var _ safety.Repository = (*safetyRepository)(nil) // interface compliance check

func NewSafetyRepository(db *sql.DB) *safetyRepository {
	return &safetyRepository{db: sqlx.NewDb(db, "postgres")}
}

// trapNoRowsErr maps psql "no rows" err to safety.ErrNotFound
func (repo safetyRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return safety.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// Reports

type reportRow struct {
	ID          string      `db:"id"`
	Type        string      `db:"type"`
	Description string      `db:"description"`
	Anonymous   bool        `db:"anonymous"`
	ReporterID  null.String `db:"reporter_id"`
	Status      string      `db:"status"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

func rowReport(row reportRow) safety.Report {
	return safety.Report{
		ID:          row.ID,
		Type:        row.Type,
		Description: row.Description,
		Anonymous:   row.Anonymous,
		ReporterID:  row.ReporterID.String,
		Status:      row.Status,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

func (repo safetyRepository) CreateReport(ctx context.Context, rep safety.Report) (safety.Report, error) {
	rep.ID = uuid.New().String()
	row := reportRow{
		ID:          rep.ID,
		Type:        rep.Type,
		Description: rep.Description,
		Anonymous:   rep.Anonymous,
		ReporterID:  null.NewString(rep.ReporterID, rep.ReporterID != ""),
		Status:      rep.Status,
		CreatedAt:   null.TimeFrom(rep.CreatedAt.UTC()),
		UpdatedAt:   null.TimeFrom(rep.UpdatedAt.UTC()),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO report (id, type, description, anonymous, reporter_id, status, created_at, updated_at)
		VALUES (:id, :type, :description, :anonymous, :reporter_id, :status, :created_at, :updated_at)`, row)
	if err != nil {
		return safety.Report{}, errors.Wrap(err, "inserting report")
	}
	return rep, nil
}

func (repo safetyRepository) GetReportByID(ctx context.Context, id string) (safety.Report, error) {
	var row reportRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM report WHERE id = $1`, id); err != nil {
		return safety.Report{}, repo.trapNoRowsErr(err, "getting report by ID")
	}
	return rowReport(row), nil
}

func (repo safetyRepository) FilterReports(ctx context.Context, filter safety.ReportFilter) ([]safety.Report, error) {
	var (
		clauses []string
		args    []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, "status = $1")
	}
	if filter.ReporterID != "" {
		args = append(args, filter.ReporterID)
		clauses = append(clauses, "reporter_id = $"+strconv.Itoa(len(args)))
	}

	query := `SELECT * FROM report`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY ` + newestFirst.String()

	var rows []reportRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering reports")
	}
	reports := make([]safety.Report, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, rowReport(row))
	}
	return reports, nil
}

func (repo safetyRepository) UpdateReportStatus(ctx context.Context, id, status string, at time.Time) (safety.Report, error) {
	var row reportRow
	err := repo.db.GetContext(ctx, &row,
		`UPDATE report SET status = $1, updated_at = $2 WHERE id = $3 RETURNING *`, status, at.UTC(), id)
	if err != nil {
		return safety.Report{}, repo.trapNoRowsErr(err, "updating report status")
	}
	return rowReport(row), nil
}

// Visits

type visitRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Document     string      `db:"document"`
	Purpose      string      `db:"purpose"`
	Destination  string      `db:"destination"`
	RegisteredBy null.String `db:"registered_by"`
	EntryTime    null.Time   `db:"entry_time"`
	ExitTime     null.Time   `db:"exit_time"`
}

func rowVisit(row visitRow) safety.Visit {
	return safety.Visit{
		ID:           row.ID,
		Name:         row.Name,
		Document:     row.Document,
		Purpose:      row.Purpose,
		Destination:  row.Destination,
		RegisteredBy: row.RegisteredBy.String,
		EntryTime:    row.EntryTime.Time,
		ExitTime:     row.ExitTime.Time,
	}
}

func (repo safetyRepository) CreateVisit(ctx context.Context, v safety.Visit) (safety.Visit, error) {
	v.ID = uuid.New().String()
	row := visitRow{
		ID:           v.ID,
		Name:         v.Name,
		Document:     v.Document,
		Purpose:      v.Purpose,
		Destination:  v.Destination,
		RegisteredBy: null.NewString(v.RegisteredBy, v.RegisteredBy != ""),
		EntryTime:    null.TimeFrom(v.EntryTime.UTC()),
		ExitTime:     null.NewTime(v.ExitTime.UTC(), !v.ExitTime.IsZero()),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO visit (id, name, document, purpose, destination, registered_by, entry_time, exit_time)
		VALUES (:id, :name, :document, :purpose, :destination, :registered_by, :entry_time, :exit_time)`, row)
	if err != nil {
		return safety.Visit{}, errors.Wrap(err, "inserting visit")
	}
	return v, nil
}

func (repo safetyRepository) GetVisitByID(ctx context.Context, id string) (safety.Visit, error) {
	var row visitRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM visit WHERE id = $1`, id); err != nil {
		return safety.Visit{}, repo.trapNoRowsErr(err, "getting visit by ID")
	}
	return rowVisit(row), nil
}

func (repo safetyRepository) FilterVisits(ctx context.Context, filter safety.VisitFilter) ([]safety.Visit, error) {
	var (
		clauses []string
		args    []interface{}
	)
	if filter.Open != nil {
		if *filter.Open {
			clauses = append(clauses, "exit_time IS NULL")
		} else {
			clauses = append(clauses, "exit_time IS NOT NULL")
		}
	}
	if filter.Document != "" {
		args = append(args, filter.Document)
		clauses = append(clauses, "document = $"+strconv.Itoa(len(args)))
	}

	query := `SELECT * FROM visit`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY ` + core.DBOrdering{Field: "entry_time"}.String()

	var rows []visitRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering visits")
	}
	visits := make([]safety.Visit, 0, len(rows))
	for _, row := range rows {
		visits = append(visits, rowVisit(row))
	}
	return visits, nil
}

func (repo safetyRepository) CloseVisit(ctx context.Context, id string, at time.Time) (safety.Visit, error) {
	var row visitRow
	err := repo.db.GetContext(ctx, &row,
		`UPDATE visit SET exit_time = $1 WHERE id = $2 AND exit_time IS NULL RETURNING *`, at.UTC(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			// distinguish "no such visit" from "already closed"
			if _, gerr := repo.GetVisitByID(ctx, id); gerr == nil {
				return safety.Visit{}, safety.ErrVisitClosed
			}
			return safety.Visit{}, safety.ErrNotFound
		}
		return safety.Visit{}, errors.Wrap(err, "closing visit")
	}
	return rowVisit(row), nil
}

// Occurrences

type occurrenceRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Description string      `db:"description"`
	Severity    string      `db:"severity"`
	CreatedBy   null.String `db:"created_by"`
	CreatedAt   null.Time   `db:"created_at"`
}

func (repo safetyRepository) CreateOccurrence(ctx context.Context, occ safety.Occurrence) (safety.Occurrence, error) {
	occ.ID = uuid.New().String()
	row := occurrenceRow{
		ID:          occ.ID,
		Title:       occ.Title,
		Description: occ.Description,
		Severity:    occ.Severity,
		CreatedBy:   null.NewString(occ.CreatedBy, occ.CreatedBy != ""),
		CreatedAt:   null.TimeFrom(occ.CreatedAt.UTC()),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO occurrence (id, title, description, severity, created_by, created_at)
		VALUES (:id, :title, :description, :severity, :created_by, :created_at)`, row)
	if err != nil {
		return safety.Occurrence{}, errors.Wrap(err, "inserting occurrence")
	}
	return occ, nil
}

func (repo safetyRepository) QueryAllOccurrences(ctx context.Context) ([]safety.Occurrence, error) {
	var rows []occurrenceRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM occurrence ORDER BY `+newestFirst.String()); err != nil {
		return nil, errors.Wrap(err, "querying occurrences")
	}
	occurrences := make([]safety.Occurrence, 0, len(rows))
	for _, row := range rows {
		occurrences = append(occurrences, safety.Occurrence{
			ID:          row.ID,
			Title:       row.Title,
			Description: row.Description,
			Severity:    row.Severity,
			CreatedBy:   row.CreatedBy.String,
			CreatedAt:   row.CreatedAt.Time,
		})
	}
	return occurrences, nil
}

// Notices

type noticeRow struct {
	ID        string      `db:"id"`
	Title     string      `db:"title"`
	Content   string      `db:"content"`
	Urgent    bool        `db:"urgent"`
	CreatedBy null.String `db:"created_by"`
	CreatedAt null.Time   `db:"created_at"`
}

func (repo safetyRepository) CreateNotice(ctx context.Context, n safety.Notice) (safety.Notice, error) {
	n.ID = uuid.New().String()
	row := noticeRow{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		Urgent:    n.Urgent,
		CreatedBy: null.NewString(n.CreatedBy, n.CreatedBy != ""),
		CreatedAt: null.TimeFrom(n.CreatedAt.UTC()),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO notice (id, title, content, urgent, created_by, created_at)
		VALUES (:id, :title, :content, :urgent, :created_by, :created_at)`, row)
	if err != nil {
		return safety.Notice{}, errors.Wrap(err, "inserting notice")
	}
	return n, nil
}

func (repo safetyRepository) QueryAllNotices(ctx context.Context) ([]safety.Notice, error) {
	var rows []noticeRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM notice ORDER BY `+newestFirst.String()); err != nil {
		return nil, errors.Wrap(err, "querying notices")
	}
	notices := make([]safety.Notice, 0, len(rows))
	for _, row := range rows {
		notices = append(notices, safety.Notice{
			ID:        row.ID,
			Title:     row.Title,
			Content:   row.Content,
			Urgent:    row.Urgent,
			CreatedBy: row.CreatedBy.String,
			CreatedAt: row.CreatedAt.Time,
		})
	}
	return notices, nil
}

// Drills

type drillRow struct {
	ID            string      `db:"id"`
	Title         string      `db:"title"`
	Description   null.String `db:"description"`
	Type          string      `db:"type"`
	ScheduledDate time.Time   `db:"scheduled_date"`
	CreatedBy     null.String `db:"created_by"`
	CreatedAt     null.Time   `db:"created_at"`
}

func (repo safetyRepository) CreateDrill(ctx context.Context, d safety.Drill) (safety.Drill, error) {
	d.ID = uuid.New().String()
	row := drillRow{
		ID:            d.ID,
		Title:         d.Title,
		Description:   null.NewString(d.Description, d.Description != ""),
		Type:          d.Type,
		ScheduledDate: d.ScheduledDate.UTC(),
		CreatedBy:     null.NewString(d.CreatedBy, d.CreatedBy != ""),
		CreatedAt:     null.TimeFrom(d.CreatedAt.UTC()),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO drill (id, title, description, type, scheduled_date, created_by, created_at)
		VALUES (:id, :title, :description, :type, :scheduled_date, :created_by, :created_at)`, row)
	if err != nil {
		return safety.Drill{}, errors.Wrap(err, "inserting drill")
	}
	return d, nil
}

func (repo safetyRepository) QueryAllDrills(ctx context.Context) ([]safety.Drill, error) {
	var rows []drillRow
	// upcoming drills first
	order := core.DBOrdering{Field: "scheduled_date", Ascending: true}
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM drill ORDER BY `+order.String()); err != nil {
		return nil, errors.Wrap(err, "querying drills")
	}
	drills := make([]safety.Drill, 0, len(rows))
	for _, row := range rows {
		drills = append(drills, safety.Drill{
			ID:            row.ID,
			Title:         row.Title,
			Description:   row.Description.String,
			Type:          row.Type,
			ScheduledDate: row.ScheduledDate,
			CreatedBy:     row.CreatedBy.String,
			CreatedAt:     row.CreatedAt.Time,
		})
	}
	return drills, nil
}

// Campaigns

type campaignRow struct {
	ID        string      `db:"id"`
	Title     string      `db:"title"`
	Content   string      `db:"content"`
	Category  string      `db:"category"`
	CreatedBy null.String `db:"created_by"`
	CreatedAt null.Time   `db:"created_at"`
}

func (repo safetyRepository) CreateCampaign(ctx context.Context, c safety.Campaign) (safety.Campaign, error) {
	c.ID = uuid.New().String()
	row := campaignRow{
		ID:        c.ID,
		Title:     c.Title,
		Content:   c.Content,
		Category:  c.Category,
		CreatedBy: null.NewString(c.CreatedBy, c.CreatedBy != ""),
		CreatedAt: null.TimeFrom(c.CreatedAt.UTC()),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO campaign (id, title, content, category, created_by, created_at)
		VALUES (:id, :title, :content, :category, :created_by, :created_at)`, row)
	if err != nil {
		return safety.Campaign{}, errors.Wrap(err, "inserting campaign")
	}
	return c, nil
}

func (repo safetyRepository) QueryAllCampaigns(ctx context.Context) ([]safety.Campaign, error) {
	var rows []campaignRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM campaign ORDER BY `+newestFirst.String()); err != nil {
		return nil, errors.Wrap(err, "querying campaigns")
	}
	campaigns := make([]safety.Campaign, 0, len(rows))
	for _, row := range rows {
		campaigns = append(campaigns, safety.Campaign{
			ID:        row.ID,
			Title:     row.Title,
			Content:   row.Content,
			Category:  row.Category,
			CreatedBy: row.CreatedBy.String,
			CreatedAt: row.CreatedAt.Time,
		})
	}
	return campaigns, nil
}

// Emergency alerts

type alertRow struct {
	ID          string      `db:"id"`
	Message     string      `db:"message"`
	Location    null.String `db:"location"`
	TriggeredBy null.String `db:"triggered_by"`
	Resolved    bool        `db:"resolved"`
	ResolvedBy  null.String `db:"resolved_by"`
	ResolvedAt  null.Time   `db:"resolved_at"`
	CreatedAt   null.Time   `db:"created_at"`
}

func rowAlert(row alertRow) safety.EmergencyAlert {
	return safety.EmergencyAlert{
		ID:          row.ID,
		Message:     row.Message,
		Location:    row.Location.String,
		TriggeredBy: row.TriggeredBy.String,
		Resolved:    row.Resolved,
		ResolvedBy:  row.ResolvedBy.String,
		ResolvedAt:  row.ResolvedAt.Time,
		CreatedAt:   row.CreatedAt.Time,
	}
}

func (repo safetyRepository) CreateAlert(ctx context.Context, a safety.EmergencyAlert) (safety.EmergencyAlert, error) {
	a.ID = uuid.New().String()
	row := alertRow{
		ID:          a.ID,
		Message:     a.Message,
		Location:    null.NewString(a.Location, a.Location != ""),
		TriggeredBy: null.NewString(a.TriggeredBy, a.TriggeredBy != ""),
		Resolved:    a.Resolved,
		ResolvedBy:  null.NewString(a.ResolvedBy, a.ResolvedBy != ""),
		ResolvedAt:  null.NewTime(a.ResolvedAt.UTC(), !a.ResolvedAt.IsZero()),
		CreatedAt:   null.TimeFrom(a.CreatedAt.UTC()),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO emergency_alert (id, message, location, triggered_by, resolved, resolved_by, resolved_at, created_at)
		VALUES (:id, :message, :location, :triggered_by, :resolved, :resolved_by, :resolved_at, :created_at)`, row)
	if err != nil {
		return safety.EmergencyAlert{}, errors.Wrap(err, "inserting alert")
	}
	return a, nil
}

func (repo safetyRepository) GetAlertByID(ctx context.Context, id string) (safety.EmergencyAlert, error) {
	var row alertRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM emergency_alert WHERE id = $1`, id); err != nil {
		return safety.EmergencyAlert{}, repo.trapNoRowsErr(err, "getting alert by ID")
	}
	return rowAlert(row), nil
}

func (repo safetyRepository) FilterAlerts(ctx context.Context, filter safety.AlertFilter) ([]safety.EmergencyAlert, error) {
	query := `SELECT * FROM emergency_alert`
	var args []interface{}
	if filter.Resolved != nil {
		query += ` WHERE resolved = $1`
		args = append(args, *filter.Resolved)
	}
	query += ` ORDER BY ` + newestFirst.String()

	var rows []alertRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering alerts")
	}
	alerts := make([]safety.EmergencyAlert, 0, len(rows))
	for _, row := range rows {
		alerts = append(alerts, rowAlert(row))
	}
	return alerts, nil
}

func (repo safetyRepository) ResolveAlert(ctx context.Context, id, resolvedBy string, at time.Time) (safety.EmergencyAlert, error) {
	var row alertRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE emergency_alert SET resolved = TRUE, resolved_by = $1, resolved_at = $2
		WHERE id = $3 AND resolved = FALSE RETURNING *`, resolvedBy, at.UTC(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			if _, gerr := repo.GetAlertByID(ctx, id); gerr == nil {
				return safety.EmergencyAlert{}, safety.ErrAlertResolved
			}
			return safety.EmergencyAlert{}, safety.ErrNotFound
		}
		return safety.EmergencyAlert{}, errors.Wrap(err, "resolving alert")
	}
	return rowAlert(row), nil
}

