// Package handler is the HTTP edge of the voiceprint pipeline. It parses
// multipart uploads and delegates to the orchestration service without
// embedding business logic.
package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"voicegate/internal/audio"
	"voicegate/internal/platform/middleware"
	"voicegate/internal/transport/http/shared"
	"voicegate/internal/voiceprint/models"
	pkgerrors "voicegate/pkg/domain-errors"
)

const (
	audioFormField  = "audio"
	defaultLogLimit = 50
	maxLogLimit     = 500
)

// Service is the orchestration surface the handler drives.
type Service interface {
	Enroll(ctx context.Context, userID int64, audioData []byte, fileName, featureInfo string) (*models.EnrollResult, error)
	Identify(ctx context.Context, audioData []byte, fileName string, client models.ClientContext) (*models.IdentifyResult, error)
	Delete(ctx context.Context, userID int64) (bool, error)
	Templates(ctx context.Context, userID int64) ([]*models.Template, error)
	AttemptLog(ctx context.Context, userID *int64, limit int) ([]*models.Attempt, error)
	AttemptsByRequest(ctx context.Context, requestID string) ([]*models.Attempt, error)
	Statistics(ctx context.Context) (*models.Statistics, error)
}

// Prober inspects uploaded audio without sending it anywhere.
type Prober interface {
	Probe(data []byte, fileName string) audio.Info
}

// Handler handles the voiceprint endpoints.
type Handler struct {
	svc         Service
	prober      Prober
	logger      *slog.Logger
	maxFormSize int64
}

// New creates a voiceprint Handler. maxFormSize bounds multipart parsing and
// should sit above the audio size limit to leave room for the other fields.
func New(svc Service, prober Prober, maxFormSize int64, logger *slog.Logger) *Handler {
	return &Handler{
		svc:         svc,
		prober:      prober,
		logger:      logger,
		maxFormSize: maxFormSize,
	}
}

// Register registers the voiceprint routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/enroll", h.handleEnroll)
	r.Post("/identify", h.handleIdentify)
	r.Delete("/user/{userID}", h.handleDelete)
	r.Get("/user/{userID}", h.handleStatus)
	r.Get("/logs", h.handleLogs)
	r.Post("/audio/info", h.handleAudioInfo)
	r.Get("/statistics", h.handleStatistics)
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	userID, err := formUserID(r, h.maxFormSize)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	data, fileName, err := audioUpload(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	res, err := h.svc.Enroll(ctx, userID, data, fileName, r.FormValue("featureInfo"))
	if err != nil {
		h.logger.WarnContext(ctx, "enrollment rejected",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleIdentify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	if err := r.ParseMultipartForm(h.maxFormSize); err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid multipart form"))
		return
	}
	data, fileName, err := audioUpload(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	client := models.ClientContext{
		IP:        middleware.GetClientIP(ctx),
		UserAgent: middleware.GetUserAgent(ctx),
	}
	res, err := h.svc.Identify(ctx, data, fileName, client)
	if err != nil {
		h.logger.WarnContext(ctx, "identification failed",
			"request_id", requestID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := pathUserID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	deleted, err := h.svc.Delete(ctx, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "voiceprint deletion failed",
			"request_id", middleware.GetRequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"userId":  userID,
		"deleted": deleted,
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := pathUserID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	templates, err := h.svc.Templates(ctx, userID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"userId":    userID,
		"enrolled":  len(templates) > 0,
		"templates": templates,
	})
}

func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if requestID := r.URL.Query().Get("requestId"); requestID != "" {
		rows, err := h.svc.AttemptsByRequest(ctx, requestID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, map[string]any{
			"count": len(rows),
			"logs":  rows,
		})
		return
	}

	var userID *int64
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			shared.WriteError(w, pkgerrors.New(pkgerrors.CodeInvalidInput, "userId must be an integer"))
			return
		}
		userID = &id
	}

	limit := defaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			shared.WriteError(w, pkgerrors.New(pkgerrors.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxLogLimit)
	}

	rows, err := h.svc.AttemptLog(ctx, userID, limit)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"count": len(rows),
		"logs":  rows,
	})
}

func (h *Handler) handleAudioInfo(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxFormSize); err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid multipart form"))
		return
	}
	data, fileName, err := audioUpload(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, h.prober.Probe(data, fileName))
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Statistics(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, stats)
}

func formUserID(r *http.Request, maxFormSize int64) (int64, error) {
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid multipart form")
	}
	raw := r.FormValue("userId")
	if raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidInput, "userId is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidInput, "userId must be a positive integer")
	}
	return id, nil
}

func pathUserID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidInput, "userId must be a positive integer")
	}
	return id, nil
}

func audioUpload(r *http.Request) ([]byte, string, error) {
	file, header, err := r.FormFile(audioFormField)
	if err != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeInvalidInput,
			fmt.Sprintf("multipart field %q is required", audioFormField))
	}
	defer file.Close()

	data, err := readUpload(file)
	if err != nil {
		return nil, "", pkgerrors.Wrap(err, pkgerrors.CodeBadRequest, "read audio upload")
	}
	return data, header.Filename, nil
}

func readUpload(file multipart.File) ([]byte, error) {
	return io.ReadAll(file)
}
