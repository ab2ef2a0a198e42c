package http

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var openapiSpec []byte

var (
	swaggerOnce sync.Once
	swaggerDoc  *openapi3.T
	swaggerErr  error
)

// rawSpec returns the embedded OpenAPI document.
func rawSpec() ([]byte, error) {
	if len(openapiSpec) == 0 {
		return nil, errors.New("openapi spec not embedded")
	}
	return openapiSpec, nil
}

// GetSwagger parses and validates the embedded OpenAPI document.
func GetSwagger() (*openapi3.T, error) {
	swaggerOnce.Do(func() {
		data, err := rawSpec()
		if err != nil {
			swaggerErr = err
			return
		}
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(data)
		if err != nil {
			swaggerErr = fmt.Errorf("error loading openapi spec: %w", err)
			return
		}
		if err := doc.Validate(context.Background()); err != nil {
			swaggerErr = fmt.Errorf("invalid openapi spec: %w", err)
			return
		}
		swaggerDoc = doc
	})
	return swaggerDoc, swaggerErr
}

// validateRequests rejects requests that violate the OpenAPI document with 400.
// Paths the document does not describe (e.g. /metrics) pass through untouched.
func validateRequests(doc *openapi3.T, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	opts := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		MultiError:         false,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				if !errors.Is(err, routers.ErrPathNotFound) && !errors.Is(err, routers.ErrMethodNotAllowed) {
					logger.Debug("openapi route lookup failed", "path", r.URL.Path, "err", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    opts,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				logger.Warn("request rejected by openapi validation", "path", r.URL.Path, "err", err)
				writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}
