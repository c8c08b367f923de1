package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/kinga/apps/api/echo"
	"github.com/trezcool/kinga/core/safety"
	"github.com/trezcool/kinga/core/user"
	testutil "github.com/trezcool/kinga/tests"
)

func TestSafetyReports(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Alice Alice", "alice@school.test", password, user.RoleStudent, true)
	staff := testutil.CreateUser(t, usrRepo, "Bob Bob", "bob@school.test", password, user.RoleStaff, true)
	direction := testutil.CreateUser(t, usrRepo, "Dan Dan", "dan@school.test", password, user.RoleDirection, true)

	// missing token
	req, rec := newRequest(http.MethodPost, "/v1/reports", marchallObj(t, safety.NewReport{Type: "bullying", Description: "x"}))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)

	// students may submit
	req, rec = newAuthRequest(http.MethodPost, "/v1/reports", getToken(t, student),
		marchallObj(t, safety.NewReport{Type: "bullying", Description: "recess incident near the gym"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var rep safety.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("failed to parse Report: %v", err)
	}
	assert.Equal(t, safety.ReportPending, rep.Status)
	assert.Equal(t, student.ID, rep.ReporterID)

	// an anonymous one never carries the reporter
	req, rec = newAuthRequest(http.MethodPost, "/v1/reports", getToken(t, student),
		marchallObj(t, safety.NewReport{Type: "theft", Description: "missing backpack", Anonymous: true}))
	app.ServeHTTP(rec, req)
	var anonRep safety.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &anonRep); err != nil {
		t.Fatalf("failed to parse Report: %v", err)
	}
	assert.Empty(t, anonRep.ReporterID)

	// only direction reads reports back
	for _, usr := range []user.User{student, staff} {
		req, rec = newAuthRequest(http.MethodGet, "/v1/reports", getToken(t, usr))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/reports", getToken(t, direction))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
	}
	var reports []safety.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &reports); err != nil {
		t.Fatalf("failed to parse reports: %v", err)
	}
	assert.Len(t, reports, 2)

	// status transition stays direction-only
	req, rec = newAuthRequest(http.MethodPatch, "/v1/reports/"+rep.ID+"/status", getToken(t, staff),
		marchallObj(t, StatusRequest{Status: "reviewed"}))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

	req, rec = newAuthRequest(http.MethodPatch, "/v1/reports/"+rep.ID+"/status", getToken(t, direction),
		marchallObj(t, StatusRequest{Status: "Reviewed"})) // case-insensitive
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
	}
	rep = safety.Report{}
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("failed to parse Report: %v", err)
	}
	assert.Equal(t, safety.ReportReviewed, rep.Status)

	req, rec = newAuthRequest(http.MethodPatch, "/v1/reports/"+rep.ID+"/status", getToken(t, direction),
		marchallObj(t, StatusRequest{Status: "archived"}))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"status": "invalid status"})}, rec)
}

func TestSafetyVisitors(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Alice Alice", "alice@school.test", password, user.RoleStudent, true)
	staff := testutil.CreateUser(t, usrRepo, "Bob Bob", "bob@school.test", password, user.RoleStaff, true)

	visitBody := marchallObj(t, safety.NewVisit{
		Name: "Visiting Parent", Document: "AB123", Purpose: "meeting", Destination: "principal office",
	})

	// students may not register visitors
	req, rec := newAuthRequest(http.MethodPost, "/v1/visitors", getToken(t, student), visitBody)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/visitors", getToken(t, staff), visitBody)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var visit safety.Visit
	if err := json.Unmarshal(rec.Body.Bytes(), &visit); err != nil {
		t.Fatalf("failed to parse Visit: %v", err)
	}
	assert.True(t, visit.Open())
	assert.Equal(t, staff.ID, visit.RegisteredBy)

	// check-out
	req, rec = newAuthRequest(http.MethodPost, "/v1/visitors/"+visit.ID+"/checkout", getToken(t, staff))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
	}
	visit = safety.Visit{}
	if err := json.Unmarshal(rec.Body.Bytes(), &visit); err != nil {
		t.Fatalf("failed to parse Visit: %v", err)
	}
	assert.False(t, visit.Open())

	// a second check-out conflicts
	req, rec = newAuthRequest(http.MethodPost, "/v1/visitors/"+visit.ID+"/checkout", getToken(t, staff))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "visit already closed"})}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/visitors/no-such-id/checkout", getToken(t, staff))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "record not found"})}, rec)
}

func TestSafetyNotices(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Alice Alice", "alice@school.test", password, user.RoleStudent, true)
	staff := testutil.CreateUser(t, usrRepo, "Bob Bob", "bob@school.test", password, user.RoleStaff, true)
	direction := testutil.CreateUser(t, usrRepo, "Dan Dan", "dan@school.test", password, user.RoleDirection, true)

	// publishing is direction-only
	for _, usr := range []user.User{student, staff} {
		req, rec := newAuthRequest(http.MethodPost, "/v1/notices", getToken(t, usr),
			marchallObj(t, safety.NewNotice{Title: "gates close early", Content: "maintenance"}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	}

	req, rec := newAuthRequest(http.MethodPost, "/v1/notices", getToken(t, direction),
		marchallObj(t, safety.NewNotice{Title: "evacuation", Content: "leave through the north exit", Urgent: true}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
	}
	assert.Len(t, dispatch.Notices, 1)

	// everyone reads notices
	req, rec = newAuthRequest(http.MethodGet, "/v1/notices", getToken(t, student))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
	}
	var notices []safety.Notice
	if err := json.Unmarshal(rec.Body.Bytes(), &notices); err != nil {
		t.Fatalf("failed to parse notices: %v", err)
	}
	assert.Len(t, notices, 1)
}

func TestSafetyEmergency(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Alice Alice", "alice@school.test", password, user.RoleStudent, true)
	staff := testutil.CreateUser(t, usrRepo, "Bob Bob", "bob@school.test", password, user.RoleStaff, true)
	direction := testutil.CreateUser(t, usrRepo, "Dan Dan", "dan@school.test", password, user.RoleDirection, true)

	// any role triggers
	req, rec := newAuthRequest(http.MethodPost, "/v1/emergency", getToken(t, student),
		marchallObj(t, safety.NewAlert{Message: "intruder at the gate", Location: "main entrance"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var alert safety.EmergencyAlert
	if err := json.Unmarshal(rec.Body.Bytes(), &alert); err != nil {
		t.Fatalf("failed to parse EmergencyAlert: %v", err)
	}
	assert.Equal(t, student.ID, alert.TriggeredBy)
	assert.Len(t, dispatch.Alerts, 1)

	// only direction browses the alert log
	for _, usr := range []user.User{student, staff} {
		req, rec = newAuthRequest(http.MethodGet, "/v1/emergency", getToken(t, usr))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/emergency", getToken(t, direction))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
	}

	// resolution is direction only
	req, rec = newAuthRequest(http.MethodPost, "/v1/emergency/"+alert.ID+"/resolve", getToken(t, staff))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/emergency/"+alert.ID+"/resolve", getToken(t, direction))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
	}
	alert = safety.EmergencyAlert{}
	if err := json.Unmarshal(rec.Body.Bytes(), &alert); err != nil {
		t.Fatalf("failed to parse EmergencyAlert: %v", err)
	}
	assert.True(t, alert.Resolved)
	assert.Equal(t, direction.ID, alert.ResolvedBy)

	req, rec = newAuthRequest(http.MethodPost, "/v1/emergency/"+alert.ID+"/resolve", getToken(t, direction))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "alert already resolved"})}, rec)
}

func TestSafetyDrillsAndCampaigns(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Alice Alice", "alice@school.test", password, user.RoleStudent, true)
	staff := testutil.CreateUser(t, usrRepo, "Bob Bob", "bob@school.test", password, user.RoleStaff, true)
	direction := testutil.CreateUser(t, usrRepo, "Dan Dan", "dan@school.test", password, user.RoleDirection, true)

	drillBody := []byte(`{"title": "fire drill", "type": "fire", "scheduled_date": "2026-09-15T09:00:00Z"}`)

	// scheduling is direction-only
	req, rec := newAuthRequest(http.MethodPost, "/v1/drills", getToken(t, staff), drillBody)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/drills", getToken(t, direction), drillBody)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
	}

	// drills are visible to everyone
	req, rec = newAuthRequest(http.MethodGet, "/v1/drills", getToken(t, student))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
	}
	var drills []safety.Drill
	if err := json.Unmarshal(rec.Body.Bytes(), &drills); err != nil {
		t.Fatalf("failed to parse drills: %v", err)
	}
	assert.Len(t, drills, 1)

	// campaigns are direction only
	campaignBody := marchallObj(t, safety.NewCampaign{
		Title: "think before you click", Content: "phishing basics", Category: "digital_safety",
	})
	req, rec = newAuthRequest(http.MethodPost, "/v1/campaigns", getToken(t, staff), campaignBody)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/campaigns", getToken(t, direction), campaignBody)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/campaigns", getToken(t, student))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
	}
	var campaigns []safety.Campaign
	if err := json.Unmarshal(rec.Body.Bytes(), &campaigns); err != nil {
		t.Fatalf("failed to parse campaigns: %v", err)
	}
	assert.Len(t, campaigns, 1)
}
