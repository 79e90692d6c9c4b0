// Package echo binds the provider's redirect to the token lifecycle engine
// for hosts built on the echo framework. The redirect's query parameters
// are forwarded verbatim; all validation happens in the engine.
package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	oauthkit "go.pilab.hu/oauthkit"
	"go.pilab.hu/oauthkit/statetoken"
)

// CallbackAPI routes provider redirects to the owning service, using the
// state token's embedded service name.
type CallbackAPI struct {
	codec    *statetoken.Codec
	services map[string]*oauthkit.Service
}

// NewCallbackAPI creates a CallbackAPI over the given services. The codec
// must be the same one the services encode their state tokens with.
func NewCallbackAPI(codec *statetoken.Codec, services ...*oauthkit.Service) *CallbackAPI {
	byName := make(map[string]*oauthkit.Service, len(services))
	for _, svc := range services {
		byName[svc.Name()] = svc
	}
	return &CallbackAPI{
		codec:    codec,
		services: byName,
	}
}

// RegisterRoutes registers the callback route.
func (a *CallbackAPI) RegisterRoutes(e *echo.Echo, path string) {
	e.GET(path, a.CallbackHandler)
}

// CallbackHandler completes the authorization-code flow for the redirected
// request. Invalid or hostile callbacks get a plain 403; the engine already
// logged why.
func (a *CallbackAPI) CallbackHandler(c echo.Context) error {
	cb := oauthkit.CallbackRequest{
		Code:  c.QueryParam("code"),
		State: c.QueryParam("state"),
		Error: c.QueryParam("error"),
	}

	if cb.State == "" {
		return c.String(http.StatusForbidden, "authorization denied")
	}

	state, err := a.codec.Decode(cb.State)
	if err != nil {
		log.Warn().Err(err).Msg("callback carried an invalid state token")
		return c.String(http.StatusForbidden, "authorization denied")
	}

	svc, ok := a.services[state.ServiceName]
	if !ok {
		log.Warn().Str("service", state.ServiceName).Msg("callback for unknown service")
		return c.String(http.StatusForbidden, "authorization denied")
	}

	authorized, err := svc.HandleCallback(c.Request().Context(), cb)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !authorized {
		return c.String(http.StatusForbidden, "authorization denied")
	}

	return c.String(http.StatusOK, "authorization complete")
}

// Handler returns a standalone echo.HandlerFunc for hosts with a single
// service and their own routing.
func Handler(svc *oauthkit.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		authorized, err := svc.HandleCallback(c.Request().Context(), oauthkit.CallbackRequest{
			Code:  c.QueryParam("code"),
			State: c.QueryParam("state"),
			Error: c.QueryParam("error"),
		})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if !authorized {
			return c.String(http.StatusForbidden, "authorization denied")
		}
		return c.String(http.StatusOK, "authorization complete")
	}
}
