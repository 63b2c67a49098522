package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/foundry-9/quilltap/llm"
)

type providerResponse struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
}

type modelsResponse struct {
	Provider string   `json:"provider"`
	Models   []string `json:"models"`
}

// handleProviders lists the registered provider identifiers and whether
// each has credentials configured.
func (s *Server) handleProviders(c echo.Context) error {
	configured := make(map[string]bool)
	for _, name := range s.cfg.ConfiguredProviders() {
		configured[name] = true
	}

	var resp []providerResponse
	for _, name := range s.registry.Providers() {
		resp = append(resp, providerResponse{Name: name, Configured: configured[name]})
	}
	return c.JSON(http.StatusOK, resp)
}

// handleModels lists the models a provider reports as available. Model
// listing goes through the retry decorator since vendor list endpoints
// are flaky enough to be worth a couple of attempts.
func (s *Server) handleModels(c echo.Context) error {
	name := c.Param("name")

	provider, err := s.resolveProvider(name)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), modelListTimeout)
	defer cancel()

	retrying := llm.WithModelListRetry(provider, modelListTimeout)
	models := retrying.AvailableModels(ctx)

	return c.JSON(http.StatusOK, modelsResponse{Provider: name, Models: models})
}
