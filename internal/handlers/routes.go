package handlers

import "net/http"

// Routes wires every API endpoint onto the mux.
func Routes(mux *http.ServeMux, appointments *AppointmentHandler, scenarios *ScenarioHandler, clients *ClientHandler, devices *DeviceHandler, notifications *NotificationHandler, photos *PhotoRequestHandler) {
	mux.HandleFunc("POST /api/v1/appointments", appointments.Create)
	mux.HandleFunc("GET /api/v1/appointments", appointments.List)
	mux.HandleFunc("GET /api/v1/appointments/{id}", appointments.Get)
	mux.HandleFunc("PATCH /api/v1/appointments/{id}", appointments.Update)

	mux.HandleFunc("POST /api/v1/scenarios", scenarios.Create)
	mux.HandleFunc("GET /api/v1/scenarios", scenarios.List)
	mux.HandleFunc("GET /api/v1/scenarios/{id}", scenarios.Get)
	mux.HandleFunc("PATCH /api/v1/scenarios/{id}", scenarios.Update)
	mux.HandleFunc("DELETE /api/v1/scenarios/{id}", scenarios.Delete)

	mux.HandleFunc("PUT /api/v1/clients/me", clients.UpsertMe)
	mux.HandleFunc("GET /api/v1/clients/me", clients.GetMe)
	mux.HandleFunc("GET /api/v1/clients", clients.List)
	mux.HandleFunc("GET /api/v1/clients/{id}", clients.Get)

	mux.HandleFunc("PUT /api/v1/devices", devices.Register)
	mux.HandleFunc("GET /api/v1/notifications", notifications.List)

	mux.HandleFunc("POST /api/v1/photo-requests", photos.Create)
	mux.HandleFunc("GET /api/v1/photo-requests", photos.List)
	mux.HandleFunc("GET /api/v1/photo-requests/{id}", photos.Get)
	mux.HandleFunc("PATCH /api/v1/photo-requests/{id}", photos.Update)
}
