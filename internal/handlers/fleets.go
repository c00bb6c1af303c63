package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ukydev/moto-fleet/internal/links"
	"github.com/ukydev/moto-fleet/internal/middleware"
	"github.com/ukydev/moto-fleet/internal/models"
	"github.com/ukydev/moto-fleet/internal/state"
	"github.com/ukydev/moto-fleet/internal/status"
)

// FleetStore resolves tenants to their opened fleets.
type FleetStore interface {
	List(ctx context.Context) ([]models.FleetInfo, error)
	Add(ctx context.Context, info models.FleetInfo) (models.FleetInfo, error)
	Fleet(ctx context.Context, id string) (*state.Fleet, error)
}

// FleetHandler serves the per-tenant record API
type FleetHandler struct {
	fleets FleetStore
}

// NewFleetHandler creates a new fleet handler
func NewFleetHandler(fleets FleetStore) *FleetHandler {
	return &FleetHandler{fleets: fleets}
}

// Routes mounts the tenant registry and every tenant route on r.
func (h *FleetHandler) Routes(r chi.Router, mw *middleware.AuthMiddleware) {
	r.Get("/fleets", h.ListFleets)
	r.With(mw.RequireView(models.ViewSettings)).Post("/fleets", h.CreateFleet)

	r.Route("/fleets/{"+middleware.FleetParam+"}", func(r chi.Router) {
		r.Use(mw.RequireFleet)

		r.Route("/bikes", func(r chi.Router) {
			r.Use(mw.RequireView(models.ViewFleet))
			mount(r, h, resource[models.Bike]{
				list:   (*state.Fleet).Bikes,
				add:    (*state.Fleet).AddBike,
				update: (*state.Fleet).UpdateBike,
				remove: (*state.Fleet).DeleteBike,
				setID:  func(b *models.Bike, id string) { b.ID = id },
			})
		})

		r.Route("/drivers", func(r chi.Router) {
			r.Use(mw.RequireView(models.ViewDrivers))
			mount(r, h, resource[models.Driver]{
				list:   (*state.Fleet).Drivers,
				add:    (*state.Fleet).AddDriver,
				update: (*state.Fleet).UpdateDriver,
				remove: (*state.Fleet).DeleteDriver,
				setID:  func(d *models.Driver, id string) { d.ID = id },
			})
			r.Post("/{id}/verify/{check}", h.VerifyDriver)
			r.Get("/{id}/statement", h.Statement)
			r.Get("/{id}/balance", h.Balance)
			r.Get("/{id}/reminder", h.Reminder)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Use(mw.RequireView(models.ViewPayments))
			mount(r, h, resource[models.Payment]{
				list:   (*state.Fleet).Payments,
				add:    (*state.Fleet).AddPayment,
				update: (*state.Fleet).UpdatePayment,
				remove: (*state.Fleet).DeletePayment,
				setID:  func(p *models.Payment, id string) { p.ID = id },
			})
		})

		r.Route("/maintenance", func(r chi.Router) {
			r.Use(mw.RequireView(models.ViewMaintenance))
			mount(r, h, resource[models.MaintenanceRecord]{
				list:   (*state.Fleet).Maintenance,
				view:   maintenanceViews,
				add:    (*state.Fleet).AddMaintenance,
				update: (*state.Fleet).UpdateMaintenance,
				remove: (*state.Fleet).DeleteMaintenance,
				setID:  func(m *models.MaintenanceRecord, id string) { m.ID = id },
			})
		})

		r.Route("/fines", func(r chi.Router) {
			r.Use(mw.RequireView(models.ViewFines))
			mount(r, h, resource[models.TrafficFine]{
				list:   (*state.Fleet).Fines,
				view:   fineViews,
				add:    (*state.Fleet).AddFine,
				update: (*state.Fleet).UpdateFine,
				remove: (*state.Fleet).DeleteFine,
				setID:  func(f *models.TrafficFine, id string) { f.ID = id },
			})
			r.Put("/{id}/status", h.SetFineStatus)
		})

		r.Route("/accidents", func(r chi.Router) {
			r.Use(mw.RequireView(models.ViewAccidents))
			mount(r, h, resource[models.AccidentReport]{
				list:   (*state.Fleet).Accidents,
				view:   accidentViews,
				add:    (*state.Fleet).AddAccident,
				update: (*state.Fleet).UpdateAccident,
				remove: (*state.Fleet).DeleteAccident,
				setID:  func(a *models.AccidentReport, id string) { a.ID = id },
			})
			r.Put("/{id}/status", h.SetAccidentStatus)
		})

		r.Route("/workshops", func(r chi.Router) {
			r.Use(mw.RequireView(models.ViewWorkshops))
			mount(r, h, resource[models.Workshop]{
				list:   (*state.Fleet).Workshops,
				add:    (*state.Fleet).AddWorkshop,
				update: (*state.Fleet).UpdateWorkshop,
				remove: (*state.Fleet).DeleteWorkshop,
				setID:  func(ws *models.Workshop, id string) { ws.ID = id },
			})
			r.Get("/{id}/booking", h.Booking)
		})

		r.With(mw.RequireView(models.ViewDashboard)).Get("/dashboard", h.Dashboard)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireView(models.ViewNotifications))
			r.Get("/notifications", h.Notifications)
			r.Delete("/notifications", h.ClearNotifications)
			r.Post("/automation/run", h.RunAutomation)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireView(models.ViewSettings))
			r.Get("/export", h.Export)
			r.Post("/import", h.Import)
			r.Post("/sync", h.Sync)
		})
	})
}

// resource binds one collection's CRUD operations to HTTP verbs.
type resource[T models.Entity] struct {
	list   func(*state.Fleet) []T
	view   func(*state.Fleet, []T) any
	add    func(*state.Fleet, context.Context, T) (T, error)
	update func(*state.Fleet, context.Context, T) error
	remove func(*state.Fleet, context.Context, string) error
	setID  func(*T, string)
}

func mount[T models.Entity](r chi.Router, h *FleetHandler, res resource[T]) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		f, ok := h.fleet(w, r)
		if !ok {
			return
		}
		if res.view != nil {
			writeJSON(w, http.StatusOK, res.view(f, res.list(f)))
			return
		}
		writeJSON(w, http.StatusOK, res.list(f))
	})

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		f, ok := h.fleet(w, r)
		if !ok {
			return
		}
		var item T
		if !readJSON(w, r, &item) {
			return
		}
		created, err := res.add(f, r.Context(), item)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	})

	r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
		f, ok := h.fleet(w, r)
		if !ok {
			return
		}
		var item T
		if !readJSON(w, r, &item) {
			return
		}
		id := chi.URLParam(r, "id")
		if item.EntityID() != "" && item.EntityID() != id {
			http.Error(w, "Record id does not match the URL", http.StatusBadRequest)
			return
		}
		res.setID(&item, id)
		if err := res.update(f, r.Context(), item); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	})

	r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
		f, ok := h.fleet(w, r)
		if !ok {
			return
		}
		if err := res.remove(f, r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// fleet resolves the tenant named in the URL, writing an error response when
// it cannot.
func (h *FleetHandler) fleet(w http.ResponseWriter, r *http.Request) (*state.Fleet, bool) {
	f, err := h.fleets.Fleet(r.Context(), chi.URLParam(r, middleware.FleetParam))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return f, true
}

// ListFleets returns the tenant registry
func (h *FleetHandler) ListFleets(w http.ResponseWriter, r *http.Request) {
	fleets, err := h.fleets.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fleets)
}

// CreateFleet registers a new tenant
func (h *FleetHandler) CreateFleet(w http.ResponseWriter, r *http.Request) {
	var info models.FleetInfo
	if !readJSON(w, r, &info) {
		return
	}
	created, err := h.fleets.Add(r.Context(), info)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetFineStatus sets a fine's status directly
func (h *FleetHandler) SetFineStatus(w http.ResponseWriter, r *http.Request) {
	f, ok := h.fleet(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !readJSON(w, r, &req) {
		return
	}
	fine, err := f.SetFineStatus(r.Context(), chi.URLParam(r, "id"), models.FineStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fine)
}

// SetAccidentStatus sets an accident report's status directly
func (h *FleetHandler) SetAccidentStatus(w http.ResponseWriter, r *http.Request) {
	f, ok := h.fleet(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !readJSON(w, r, &req) {
		return
	}
	report, err := f.SetAccidentStatus(r.Context(), chi.URLParam(r, "id"), models.AccidentStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// VerifyDriver runs a simulated eNaTIS or contact check
func (h *FleetHandler) VerifyDriver(w http.ResponseWriter, r *http.Request) {
	f, ok := h.fleet(w, r)
	if !ok {
		return
	}
	d, err := f.VerifyDriver(r.Context(), chi.URLParam(r, "id"), models.VerificationCheck(chi.URLParam(r, "check")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Statement returns a driver's monthly payment statement
func (h *FleetHandler) Statement(w http.ResponseWriter, r *http.Request) {
	f, ok := h.fleet(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, found := f.Driver(id); !found {
		http.Error(w, "Driver not found", http.StatusNotFound)
		return
	}

	now := f.Now()
	year, month, weeks := now.Year(), now.Month(), status.DefaultBillingWeeks
	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid year", http.StatusBadRequest)
			return
		}
		year = n
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			http.Error(w, "Invalid month", http.StatusBadRequest)
			return
		}
		month = time.Month(n)
	}
	if v := q.Get("weeks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > status.WeeksInMonth(year, month) {
			http.Error(w, "Invalid weeks", http.StatusBadRequest)
			return
		}
		weeks = n
	}

	writeJSON(w, http.StatusOK, status.MonthlyStatement(f.Payments(), id, year, month, weeks, f.WeeklyTarget()))
}

// Balance returns a driver's arrears balance between two dates, inclusive.
// The period defaults to the current month and weeks to the week buckets it
// spans.
func (h *FleetHandler) Balance(w http.ResponseWriter, r *http.Request) {
	f, ok := h.fleet(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, found := f.Driver(id); !found {
		http.Error(w, "Driver not found", http.StatusNotFound)
		return
	}

	now := f.Now()
	from := models.NewDate(now.Year(), now.Month(), 1)
	to := models.DateOf(now)
	q := r.URL.Query()
	for name, d := range map[string]*models.Date{"from": &from, "to": &to} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		parsed, err := models.ParseDate(v)
		if err != nil {
			http.Error(w, "Invalid "+name+" date", http.StatusBadRequest)
			return
		}
		*d = parsed
	}
	if to.Before(from.Time) {
		http.Error(w, "Period ends before it starts", http.StatusBadRequest)
		return
	}

	weeks := int(to.Sub(from.Time).Hours()/24)/7 + 1
	if v := q.Get("weeks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid weeks", http.StatusBadRequest)
			return
		}
		weeks = n
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		DriverID:     id,
		From:         from,
		To:           to,
		Weeks:        weeks,
		WeeklyTarget: f.WeeklyTarget(),
		Balance:      status.Balance(f.Payments(), id, from, to, weeks, f.WeeklyTarget()),
	})
}

type linkResponse struct {
	URL         string  `json:"url"`
	Phone       string  `json:"phone"`
	Message     string  `json:"message"`
	Outstanding float64 `json:"outstanding,omitempty"`
}

// Reminder returns a WhatsApp link reminding a driver of this month's shortfall
func (h *FleetHandler) Reminder(w http.ResponseWriter, r *http.Request) {
	f, ok := h.fleet(w, r)
	if !ok {
		return
	}
	d, found := f.Driver(chi.URLParam(r, "id"))
	if !found {
		http.Error(w, "Driver not found", http.StatusNotFound)
		return
	}
	if d.Phone == "" {
		http.Error(w, "Driver has no phone number", http.StatusUnprocessableEntity)
		return
	}

	now := f.Now()
	st := status.MonthlyStatement(f.Payments(), d.ID, now.Year(), now.Month(), status.DefaultBillingWeeks, f.WeeklyTarget())
	outstanding := 0.0
	if st.InArrears() {
		outstanding = -st.Balance
	}

	writeJSON(w, http.StatusOK, linkResponse{
		URL:         links.DriverReminder(d.Phone, d.Name, outstanding),
		Phone:       links.NormalizeDriverPhone(d.Phone),
		Message:     links.ReminderMessage(d.Name, outstanding),
		Outstanding: outstanding,
	})
}

// Booking returns a WhatsApp link asking a workshop to service a bike
func (h *FleetHandler) Booking(w http.ResponseWriter, r *http.Request) {
	f, ok := h.fleet(w, r)
	if !ok {
		return
	}
	ws, found := f.Workshop(chi.URLParam(r, "id"))
	if !found {
		http.Error(w, "Workshop not found", http.StatusNotFound)
		return
	}
	if ws.Phone == "" {
		http.Error(w, "Workshop has no phone number", http.StatusUnprocessableEntity)
		return
	}
	bike := status.BikeLabel(f.Bikes(), r.URL.Query().Get("bikeId"))

	writeJSON(w, http.StatusOK, linkResponse{
		URL:     links.WorkshopBooking(ws.Phone, ws.Name, bike),
		Phone:   links.NormalizeWorkshopPhone(ws.Phone),
		Message: links.BookingMessage(ws.Name, bike),
	})
}

// Dashboard returns the fleet summary
func (h *FleetHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	f, ok := h.fleet(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, status.Dashboard(f.Snapshot(), f.Now(), f.WeeklyTarget(), status.DefaultBillingWeeks))
}

// Notifications returns the queued reminders, newest first
func (h *FleetHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	f, ok := h.fleet(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, f.Notifications())
}

// ClearNotifications empties the reminder queue
func (h *FleetHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	f, ok := h.fleet(w, r)
	if !ok {
		return
	}
	if err := f.ClearNotifications(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type automationResponse struct {
	Queued        int                   `json:"queued"`
	Notifications []models.Notification `json:"notifications"`
}

// RunAutomation runs the arrears check now
func (h *FleetHandler) RunAutomation(w http.ResponseWriter, r *http.Request) {
	f, ok := h.fleet(w, r)
	if !ok {
		return
	}
	fresh, err := f.RunAutomation(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if fresh == nil {
		fresh = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, automationResponse{Queued: len(fresh), Notifications: fresh})
}
