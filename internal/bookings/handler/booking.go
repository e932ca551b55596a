package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	bookingserrors "motobooking/internal/bookings/errors"
	"motobooking/internal/bookings/service"
	apperrors "motobooking/pkg/errors"
	httputil "motobooking/pkg/http"
	"motobooking/pkg/logger"
	"motobooking/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const CollectionPath = "/"

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

// Get returns the whole collection, or a single booking when an id is given.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id, present, err := httputil.ExtractID(r)
	if err != nil {
		h.writeError(w, "Get", idError(err))
		return
	}

	if !present {
		bookings, err := h.service.GetAll(r.Context())
		if err != nil {
			h.writeError(w, "Get", err)
			return
		}
		h.writeSuccess(w, "Get", bookings)
		return
	}

	booking, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}
	h.writeSuccess(w, "Get", booking)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	booking, err := readBooking(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	created, err := h.service.Create(r.Context(), booking)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) Replace(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id, err := httputil.RequireID(r)
	if err != nil {
		h.writeError(w, "Replace", idError(err))
		return
	}

	booking, err := readBooking(r)
	if err != nil {
		h.writeError(w, "Replace", err)
		return
	}

	replaced, err := h.service.Replace(r.Context(), id, booking)
	if err != nil {
		h.writeError(w, "Replace", err)
		return
	}
	h.writeSuccess(w, "Replace", replaced)
}

func (h *BookingHandler) Patch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id, err := httputil.RequireID(r)
	if err != nil {
		h.writeError(w, "Patch", idError(err))
		return
	}

	patch, err := readBooking(r)
	if err != nil {
		h.writeError(w, "Patch", err)
		return
	}

	merged, err := h.service.Patch(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, "Patch", err)
		return
	}
	h.writeSuccess(w, "Patch", merged)
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id, err := httputil.RequireID(r)
	if err != nil {
		h.writeError(w, "Delete", idError(err))
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := httputil.WriteMessage(w, fmt.Sprintf("Booking %d deleted", id)); err != nil {
		h.log.Error("failed to write message response", "handler", "Delete", "operation", "WriteMessage", "error", err)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET(CollectionPath, h.Get)
	router.POST(CollectionPath, h.Create)
	router.PUT(CollectionPath, h.Replace)
	router.PATCH(CollectionPath, h.Patch)
	router.DELETE(CollectionPath, h.Delete)

	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	router.HandleOPTIONS = false
	router.NotFound = http.HandlerFunc(h.notFound)
	router.MethodNotAllowed = http.HandlerFunc(h.methodNotAllowed)
}

func (h *BookingHandler) notFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, "NotFound", apperrors.New(apperrors.CodeNotFound, "Not found", http.StatusNotFound))
}

func (h *BookingHandler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, "MethodNotAllowed", apperrors.MethodNotAllowed())
}

func (h *BookingHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

// readBooking decodes the request body as a single JSON object.
func readBooking(r *http.Request) (*model.Booking, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apperrors.PayloadTooLarge(maxErr.Limit)
		}
		return nil, apperrors.InvalidInput("Invalid request body")
	}

	booking, err := model.DecodeBooking(body)
	if err != nil {
		return nil, bookingserrors.MalformedPayload(err)
	}
	return booking, nil
}

// idError reports an id beyond int range as an unknown booking.
func idError(err error) error {
	if errors.Is(err, httputil.ErrIDOutOfRange) {
		return bookingserrors.NotFound()
	}
	return err
}
