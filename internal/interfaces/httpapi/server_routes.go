package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	registerAuthorizedDeviceRoutes(mux, handler, verifier)
	registerAuthorizedConditionRoutes(mux, handler, verifier)
	registerAuthorizedTeamRoutes(mux, handler, verifier)
}

func registerAuthorizedDeviceRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/devices", RequireAuth(verifier, http.HandlerFunc(handler.RegisterDevice)))
	mux.Handle("GET /v1/devices", RequireAuth(verifier, http.HandlerFunc(handler.ListDevices)))
	mux.Handle("GET /v1/devices/{deviceID}", RequireAuth(verifier, http.HandlerFunc(handler.GetDevice)))
	mux.Handle("DELETE /v1/devices/{deviceID}", RequireAuth(verifier, http.HandlerFunc(handler.DeleteDevice)))
	mux.Handle("GET /v1/devices/{deviceID}/overview", RequireAuth(verifier, http.HandlerFunc(handler.GetDeviceOverview)))
}

func registerAuthorizedConditionRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/devices/{deviceID}/conditions/playing", RequireAuth(verifier, http.HandlerFunc(handler.ConditionPlaying)))
	mux.Handle("GET /v1/devices/{deviceID}/conditions/winning", RequireAuth(verifier, http.HandlerFunc(handler.ConditionWinning)))
	mux.Handle("GET /v1/devices/{deviceID}/conditions/losing", RequireAuth(verifier, http.HandlerFunc(handler.ConditionLosing)))
	mux.Handle("GET /v1/devices/{deviceID}/conditions/drawing", RequireAuth(verifier, http.HandlerFunc(handler.ConditionDrawing)))
	mux.Handle("GET /v1/devices/{deviceID}/conditions/upcoming", RequireAuth(verifier, http.HandlerFunc(handler.ConditionUpcoming)))
	mux.Handle("GET /v1/devices/{deviceID}/next-match", RequireAuth(verifier, http.HandlerFunc(handler.GetNextMatch)))
	mux.Handle("GET /v1/devices/{deviceID}/scoreboard", RequireAuth(verifier, http.HandlerFunc(handler.GetScoreboard)))
}

func registerAuthorizedTeamRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/teams", RequireAuth(verifier, http.HandlerFunc(handler.ListTeams)))
	mux.Handle("GET /v1/teams/{teamID}", RequireAuth(verifier, http.HandlerFunc(handler.GetTeam)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/refresh", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRefreshJob)))
	mux.Handle("POST /v1/internal/jobs/cycle", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunCycleJob)))
}
