package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kinga/core"
	"github.com/trezcool/kinga/core/safety"
)

type safetyApi struct {
	svc *safety.Service
}

func registerSafetyAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *safety.Service) {
	api := safetyApi{svc: svc}

	rg := g.Group("/reports", jwt)
	rg.POST("", api.submitReport)
	rg.GET("", api.queryReports)
	rg.PATCH("/:id/status", api.setReportStatus)

	vg := g.Group("/visitors", jwt)
	vg.POST("", api.registerVisit)
	vg.GET("", api.queryVisits)
	vg.POST("/:id/checkout", api.closeVisit)

	og := g.Group("/occurrences", jwt)
	og.POST("", api.logOccurrence)
	og.GET("", api.queryOccurrences)

	ng := g.Group("/notices", jwt)
	ng.POST("", api.createNotice)
	ng.GET("", api.queryNotices)

	dg := g.Group("/drills", jwt)
	dg.POST("", api.scheduleDrill)
	dg.GET("", api.queryDrills)

	cg := g.Group("/campaigns", jwt)
	cg.POST("", api.createCampaign)
	cg.GET("", api.queryCampaigns)

	eg := g.Group("/emergency", jwt)
	eg.POST("", api.triggerEmergency)
	eg.GET("", api.queryAlerts)
	eg.POST("/:id/resolve", api.resolveAlert)
}

// Reports

func (api *safetyApi) submitReport(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data safety.NewReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReport")
	}

	rep, err := api.svc.SubmitReport(ctx.Request().Context(), sess, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rep)
}

func (api *safetyApi) queryReports(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	filter := new(safety.ReportFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []safety.Report{})
	}

	reports, err := api.svc.QueryReports(ctx.Request().Context(), sess, *filter)
	if err != nil {
		return err
	}
	if reports == nil {
		reports = []safety.Report{}
	}
	return ctx.JSON(http.StatusOK, reports)
}

func (api *safetyApi) setReportStatus(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data StatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rep, err := api.svc.SetReportStatus(ctx.Request().Context(), sess, ctx.Param("id"), data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}

// Visitors

func (api *safetyApi) registerVisit(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data safety.NewVisit
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewVisit")
	}

	visit, err := api.svc.RegisterVisit(ctx.Request().Context(), sess, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, visit)
}

func (api *safetyApi) queryVisits(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	filter := new(safety.VisitFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []safety.Visit{})
	}

	visits, err := api.svc.QueryVisits(ctx.Request().Context(), sess, *filter)
	if err != nil {
		return err
	}
	if visits == nil {
		visits = []safety.Visit{}
	}
	return ctx.JSON(http.StatusOK, visits)
}

func (api *safetyApi) closeVisit(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	visit, err := api.svc.CloseVisit(ctx.Request().Context(), sess, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, visit)
}

// Occurrences

func (api *safetyApi) logOccurrence(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data safety.NewOccurrence
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOccurrence")
	}

	occ, err := api.svc.LogOccurrence(ctx.Request().Context(), sess, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, occ)
}

func (api *safetyApi) queryOccurrences(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	occurrences, err := api.svc.QueryOccurrences(ctx.Request().Context(), sess)
	if err != nil {
		return err
	}
	if occurrences == nil {
		occurrences = []safety.Occurrence{}
	}
	return ctx.JSON(http.StatusOK, occurrences)
}

// Notices

func (api *safetyApi) createNotice(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data safety.NewNotice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotice")
	}

	notice, err := api.svc.CreateNotice(ctx.Request().Context(), sess, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, notice)
}

func (api *safetyApi) queryNotices(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	notices, err := api.svc.QueryNotices(ctx.Request().Context(), sess)
	if err != nil {
		return err
	}
	if notices == nil {
		notices = []safety.Notice{}
	}
	return ctx.JSON(http.StatusOK, notices)
}

// Drills

func (api *safetyApi) scheduleDrill(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data safety.NewDrill
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDrill")
	}

	drill, err := api.svc.ScheduleDrill(ctx.Request().Context(), sess, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, drill)
}

func (api *safetyApi) queryDrills(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	drills, err := api.svc.QueryDrills(ctx.Request().Context(), sess)
	if err != nil {
		return err
	}
	if drills == nil {
		drills = []safety.Drill{}
	}
	return ctx.JSON(http.StatusOK, drills)
}

// Campaigns

func (api *safetyApi) createCampaign(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data safety.NewCampaign
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCampaign")
	}

	campaign, err := api.svc.CreateCampaign(ctx.Request().Context(), sess, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, campaign)
}

func (api *safetyApi) queryCampaigns(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	campaigns, err := api.svc.QueryCampaigns(ctx.Request().Context(), sess)
	if err != nil {
		return err
	}
	if campaigns == nil {
		campaigns = []safety.Campaign{}
	}
	return ctx.JSON(http.StatusOK, campaigns)
}

// Emergency alerts

func (api *safetyApi) triggerEmergency(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data safety.NewAlert
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAlert")
	}

	alert, err := api.svc.TriggerEmergency(ctx.Request().Context(), sess, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, alert)
}

func (api *safetyApi) queryAlerts(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	filter := new(safety.AlertFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []safety.EmergencyAlert{})
	}

	alerts, err := api.svc.QueryAlerts(ctx.Request().Context(), sess, *filter)
	if err != nil {
		return err
	}
	if alerts == nil {
		alerts = []safety.EmergencyAlert{}
	}
	return ctx.JSON(http.StatusOK, alerts)
}

func (api *safetyApi) resolveAlert(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	alert, err := api.svc.ResolveAlert(ctx.Request().Context(), sess, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, alert)
}

type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (sr *StatusRequest) Validate() error {
	sr.Status = core.CleanString(sr.Status, true /* lower */)
	return core.Validate.Struct(sr)
}
