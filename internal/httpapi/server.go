package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"predictd/internal/predictor"
	"predictd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Predict(ctx context.Context, in types.PredictionInput) (predictor.Result, error)
	ListModels() []types.Model
	Status() types.StatusResponse
	Ready() bool
}

// NewMux builds the router serving svc.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Compress(5))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(corsHandler())
	}

	h := &handlers{svc: svc}
	r.Post("/predictions", h.predict)
	r.Get("/schema", h.schema)
	r.Get("/models", h.models)
	r.Get("/status", h.status)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

func corsHandler() func(http.Handler) http.Handler {
	origins := corsAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	methods := corsAllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	headers := corsAllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Content-Type", "Authorization", "X-Log-Level", "X-Request-Id"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: methods,
		AllowedHeaders: headers,
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	})
}

type handlers struct {
	svc Service
}

// predict runs a prediction.
//
//	@Summary		Run a prediction
//	@Description	Generates n continuations of the prompt. Output texts include the prompt.
//	@Tags			predictions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		types.PredictionRequest	true	"Prediction request"
//	@Success		200		{object}	types.PredictionResponse
//	@Failure		400		{object}	types.ErrorResponse
//	@Failure		415		{object}	types.ErrorResponse
//	@Failure		422		{object}	types.ErrorResponse
//	@Failure		429		{object}	types.ErrorResponse
//	@Failure		500		{object}	types.PredictionResponse
//	@Failure		503		{object}	types.ErrorResponse
//	@Router			/predictions [post]
func (h *handlers) predict(w http.ResponseWriter, r *http.Request) {
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	lvl := requestLogLevel(r)
	log := reqLogger(r).With().Str("prediction_id", req.ID).Logger()
	if lvl >= LevelDebug {
		// the override wins over the process level
		log = log.Level(zerolog.DebugLevel)
	}
	created := time.Now().UTC()
	if lvl >= LevelInfo {
		log.Info().Msg("prediction start")
	}
	if lvl >= LevelDebug {
		log.Debug().Interface("input", req.Input).Msg("prediction input")
	}

	ctx, cancel := joinContexts(r.Context(), serverBaseCtx)
	defer cancel()
	if predictTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, predictTimeout)
		defer tcancel()
	}

	res, err := h.svc.Predict(ctx, req.Input)
	completed := time.Now().UTC()
	if err != nil {
		// client went away or server is shutting down
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status := statusFor(err)
		if lvl >= LevelError {
			log.Error().Err(err).Int("status", status).Dur("dur", completed.Sub(created)).Msg("prediction end")
		}
		switch status {
		case http.StatusUnprocessableEntity:
			writeJSON(w, status, types.ErrorResponse{Error: err.Error(), Code: status, Field: predictor.InvalidField(err)})
		case http.StatusInternalServerError, http.StatusGatewayTimeout:
			writeJSON(w, status, types.PredictionResponse{
				ID:          req.ID,
				Status:      types.StatusFailed,
				Input:       req.Input,
				Output:      []string{},
				Error:       err.Error(),
				CreatedAt:   created,
				CompletedAt: completed,
			})
		default:
			if status == http.StatusTooManyRequests {
				IncrementBackpressure("queue_wait")
			}
			writeJSONError(w, status, err.Error())
		}
		return
	}

	if lvl >= LevelInfo {
		log.Info().Int("n", len(res.Output)).Int("prompt_tokens", res.PromptTokens).
			Dur("dur", completed.Sub(created)).Msg("prediction end")
	}
	if lvl >= LevelDebug {
		log.Debug().Strs("output", res.Output).Msg("prediction output")
	}
	writeJSON(w, http.StatusOK, types.PredictionResponse{
		ID:          req.ID,
		Status:      types.StatusSucceeded,
		Input:       req.Input,
		Output:      res.Output,
		CreatedAt:   created,
		CompletedAt: completed,
		Metrics: &types.PredictionMetrics{
			PredictTime:  completed.Sub(created).Seconds(),
			PromptTokens: res.PromptTokens,
		},
	})
}

// schema lists the declared inputs.
//
//	@Summary	Input schema
//	@Tags		predictions
//	@Produce	json
//	@Success	200	{object}	types.SchemaResponse
//	@Router		/schema [get]
func (h *handlers) schema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, predictor.Schema())
}

// models lists the configured and cached weights.
//
//	@Summary	List models
//	@Tags		models
//	@Produce	json
//	@Success	200	{object}	map[string][]types.Model
//	@Router		/models [get]
func (h *handlers) models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": h.svc.ListModels()})
}

// status reports predictor state.
//
//	@Summary	Predictor status
//	@Tags		status
//	@Produce	json
//	@Success	200	{object}	types.StatusResponse
//	@Router		/status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}
