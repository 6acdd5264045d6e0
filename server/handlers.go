package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/richinex/booster/comparison"
	"github.com/richinex/booster/connection"
	"github.com/richinex/booster/llm"
	"github.com/richinex/booster/modelconfig"
	"github.com/richinex/booster/service"
)

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Welcome to Prompt Booster API"})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

type providerView struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	BaseURL      string         `json:"baseUrl"`
	DefaultModel string         `json:"defaultModel"`
	Endpoints    llm.Endpoints  `json:"endpoints"`
	AuthType     llm.AuthType   `json:"authType"`
	Format       llm.FormatType `json:"format"`
}

func (s *Server) handleProviders(c echo.Context) error {
	specs := s.svc.Registry().List()
	out := make([]providerView, 0, len(specs))
	for _, spec := range specs {
		out = append(out, providerView{
			ID:           spec.ID,
			Name:         spec.Name,
			BaseURL:      spec.BaseURL,
			DefaultModel: spec.DefaultModel,
			Endpoints:    spec.Endpoints,
			AuthType:     spec.Auth.Type,
			Format:       spec.RequestFormat,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"providers": out})
}

func (s *Server) handleModels(c echo.Context) error {
	rows, active, err := s.svc.Models(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"models": rows, "activeModel": active})
}

// handleSaveModel saves a standard slot, or updates a custom interface when
// the id is not a standard type.
func (s *Server) handleSaveModel(c echo.Context) error {
	var form modelconfig.ModelConfig
	if err := decodeRequestBody(c, &form); err != nil {
		return err
	}
	ctx := c.Request().Context()
	id := c.Param("id")

	if modelconfig.IsStandardModelType(id) {
		saved, err := s.svc.SaveStandardModel(ctx, id, form)
		if err != nil {
			return toHTTPError(err)
		}
		saved.APIKey = modelconfig.MaskAPIKey(saved.APIKey)
		return c.JSON(http.StatusOK, saved)
	}

	form.ID = id
	saved, err := s.svc.UpdateCustomInterface(ctx, modelconfig.CustomInterface(form))
	if err != nil {
		return toHTTPError(err)
	}
	saved.APIKey = modelconfig.MaskAPIKey(saved.APIKey)
	return c.JSON(http.StatusOK, saved)
}

func (s *Server) handleCatalog(c echo.Context) error {
	var form *modelconfig.ModelConfig
	if c.Request().ContentLength != 0 {
		var body modelconfig.ModelConfig
		if err := decodeRequestBody(c, &body); err != nil {
			return err
		}
		form = &body
	}

	opts, err := s.svc.FetchModels(c.Request().Context(), c.Param("id"), form)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"models": opts})
}

func (s *Server) handleAddCustom(c echo.Context) error {
	var form modelconfig.CustomInterface
	if err := decodeRequestBody(c, &form); err != nil {
		return err
	}
	saved, err := s.svc.AddCustomInterface(c.Request().Context(), form)
	if err != nil {
		return toHTTPError(err)
	}
	saved.APIKey = modelconfig.MaskAPIKey(saved.APIKey)
	return c.JSON(http.StatusCreated, saved)
}

func (s *Server) handleDeleteCustom(c echo.Context) error {
	if err := s.svc.DeleteCustomInterface(c.Request().Context(), c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type activeModelRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleActiveModel(c echo.Context) error {
	var req activeModelRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}
	if err := s.svc.SetActiveModel(c.Request().Context(), req.ID); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"activeModel": req.ID})
}

// handleConnectionTest always answers 200; the outcome is in the body.
func (s *Server) handleConnectionTest(c echo.Context) error {
	var p connection.Params
	if err := decodeRequestBody(c, &p); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.svc.TestConnection(c.Request().Context(), p))
}

type chatRequest struct {
	service.Request
	Stream bool `json:"stream"`
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		return requestError{Status: http.StatusBadRequest, Message: "userMessage is required", Type: string(connection.ErrorValidation)}
	}
	ctx := c.Request().Context()

	if !req.Stream {
		resp, err := s.svc.Chat(ctx, req.Request)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, resp)
	}

	// Resolve before committing the response so lookup failures keep
	// their status code.
	client, err := s.svc.ClientFor(ctx, req.ModelID)
	if err != nil {
		return toHTTPError(err)
	}
	out, err := newSSEWriter(c)
	if err != nil {
		return err
	}
	s.svc.StreamWith(ctx, client, req.Request, sseHandler{out: out})
	return nil
}

type compareRequest struct {
	ModelID         string `json:"modelId,omitempty"`
	UserMessage     string `json:"userMessage"`
	OriginalPrompt  string `json:"originalPrompt"`
	OptimizedPrompt string `json:"optimizedPrompt"`
}

// handleCompare streams both sides as events tagged "original" and
// "optimized", then a final "done" event. Closing the connection aborts
// both sides.
func (s *Server) handleCompare(c echo.Context) error {
	var req compareRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		return requestError{Status: http.StatusBadRequest, Message: "userMessage is required", Type: string(connection.ErrorValidation)}
	}
	ctx := c.Request().Context()

	if _, err := s.svc.ClientConfig(ctx, req.ModelID); err != nil {
		return toHTTPError(err)
	}
	out, err := newSSEWriter(c)
	if err != nil {
		return err
	}

	err = s.svc.Compare(ctx, req.ModelID, req.UserMessage,
		comparison.Side{SystemMessage: req.OriginalPrompt, Handler: sseHandler{out: out, side: "original"}},
		comparison.Side{SystemMessage: req.OptimizedPrompt, Handler: sseHandler{out: out, side: "optimized"}},
	)
	if err != nil {
		kind, msg := connection.Classify(err)
		_ = out.event("error", errorEvent{ErrorType: kind, Message: msg})
		return nil
	}
	_ = out.event("done", struct{}{})
	return nil
}
