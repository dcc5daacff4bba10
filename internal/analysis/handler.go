// AngelaMos | 2026
// handler.go

package analysis

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/angelamos/socialfinance/internal/core"
	"github.com/angelamos/socialfinance/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, optionalAuth func(http.Handler) http.Handler,
) {
	r.Route("/analyses", func(r chi.Router) {
		// Reads work anonymously; the gate decides per analysis.
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)

			r.Get("/", h.List)
			r.Get("/{analysisID}", h.Get)
			r.Get("/{analysisID}/images", h.ListImages)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticator)

			r.Post("/", h.Create)
			r.Get("/mine", h.ListMine)
			r.Put("/{analysisID}", h.Update)
			r.Delete("/{analysisID}", h.Delete)
			r.Post("/{analysisID}/images", h.UploadImage)
		})
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CreateAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	analysis, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, ToAnalysisResponse(analysis))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserID(r.Context())
	analysisID := chi.URLParam(r, "analysisID")

	analysis, err := h.service.Get(r.Context(), viewerID, analysisID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "analysis")
		case errors.Is(err, core.ErrForbidden):
			core.Forbidden(w, "subscription required")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, ToAnalysisResponse(analysis))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListAnalysesParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		AuthorID: r.URL.Query().Get("author_id"),
		Ticker:   r.URL.Query().Get("ticker"),
	}

	h.list(w, r, params)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	params := ListAnalysesParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		AuthorID: middleware.GetUserID(r.Context()),
		Ticker:   r.URL.Query().Get("ticker"),
	}

	h.list(w, r, params)
}

func (h *Handler) list(
	w http.ResponseWriter,
	r *http.Request,
	params ListAnalysesParams,
) {
	analyses, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	params.Normalize()
	core.Paginated(
		w,
		ToAnalysisResponseList(analyses),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	analysisID := chi.URLParam(r, "analysisID")

	var req UpdateAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	analysis, err := h.service.Update(r.Context(), userID, analysisID, req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "analysis")
		case errors.Is(err, core.ErrForbidden):
			core.Forbidden(w, "only the author can modify an analysis")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, ToAnalysisResponse(analysis))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	analysisID := chi.URLParam(r, "analysisID")

	if err := h.service.Delete(r.Context(), userID, analysisID); err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "analysis")
		case errors.Is(err, core.ErrForbidden):
			core.Forbidden(w, "only the author can delete an analysis")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.NoContent(w)
}

func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	analysisID := chi.URLParam(r, "analysisID")

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		core.BadRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		core.BadRequest(w, "missing file field")
		return
	}
	defer file.Close()

	image, err := h.service.AddImage(r.Context(), userID, analysisID, file, header)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "analysis")
		case errors.Is(err, core.ErrForbidden):
			core.Forbidden(w, "only the author can attach images")
		case errors.Is(err, core.ErrInvalidState):
			core.JSONError(w, core.InvalidStateError("image limit reached"))
		case errors.Is(err, core.ErrInvalidInput):
			core.BadRequest(w, "file must be an image within the size limit")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.Created(w, ImageResponse{
		ID:        image.ID,
		FilePath:  image.FilePath,
		Filename:  image.Filename,
		CreatedAt: image.CreatedAt,
	})
}

func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserID(r.Context())
	analysisID := chi.URLParam(r, "analysisID")

	images, err := h.service.ListImages(r.Context(), viewerID, analysisID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "analysis")
		case errors.Is(err, core.ErrForbidden):
			core.Forbidden(w, "subscription required")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	out := make([]ImageResponse, 0, len(images))
	for i := range images {
		out = append(out, ImageResponse{
			ID:        images[i].ID,
			FilePath:  images[i].FilePath,
			Filename:  images[i].Filename,
			CreatedAt: images[i].CreatedAt,
		})
	}

	core.OK(w, out)
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
