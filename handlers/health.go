package handlers

import (
	"net/http"

	"github.com/upb/persona-relay/app"
	"github.com/upb/persona-relay/utils"
)

// HealthCheck returns a simple liveness handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, map[string]string{"status": "ok"})
	}
}

// ReadinessCheck reports ready once at least one provider is registered.
// With none the relay still answers, but only from the emergency set.
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count := deps.Registry.Len()
		response := map[string]any{
			"status":    "ready",
			"providers": count,
		}

		status := http.StatusOK
		if count == 0 {
			response["status"] = "not_ready"
			status = http.StatusServiceUnavailable
		}
		_ = utils.WriteJSON(w, status, response)
	}
}

// StatusHandler returns application status information
func StatusHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, map[string]any{
			"version":     app.Version,
			"environment": deps.Config.Environment,
			"providers":   deps.Registry.IDs(),
			"priority":    deps.Config.Relay.Priority,
		})
	}
}

// PersonaHandler returns the public persona texts (name, greeting, help)
func PersonaHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, deps.Persona)
	}
}
