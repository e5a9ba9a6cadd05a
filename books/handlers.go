// HTTP handlers for the catalog endpoints.
package books

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/user/libris-go/apperror"
	"github.com/user/libris-go/auth"
	"github.com/user/libris-go/storage"
)

// maxCoverSize bounds cover uploads.
const maxCoverSize = 5 * 1024 * 1024 // 5MB

// BookHandlers provides HTTP handlers for catalog management.
type BookHandlers struct {
	service *BookService
	blobs   storage.Store
}

// NewBookHandlers creates new BookHandlers.
func NewBookHandlers(service *BookService, blobs storage.Store) *BookHandlers {
	return &BookHandlers{service: service, blobs: blobs}
}

// urlParamID parses the {id} route parameter as a uuid.
func urlParamID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperror.NewBadRequestError("invalid id", err)
	}
	return id, nil
}

// HandleList godoc
// @Summary List catalog
// @Description Lists books, optionally filtered by a free-text search over title/author/ISBN and an exact category.
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param search query string false "Substring match over title, author, ISBN"
// @Param category query string false "Exact category"
// @Success 200 {array} books.Book
// @Failure 401 {object} apperror.ErrorResponse "Unauthorized"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /books [get]
func (h *BookHandlers) HandleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := ListQuery{
			Search:   strings.TrimSpace(r.URL.Query().Get("search")),
			Category: strings.TrimSpace(r.URL.Query().Get("category")),
		}
		result, err := h.service.List(r.Context(), q)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, result)
	}
}

// HandleGet godoc
// @Summary Get a book
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param id path string true "Book id"
// @Success 200 {object} books.Book
// @Failure 404 {object} apperror.ErrorResponse "Book not found"
// @Router /books/{id} [get]
func (h *BookHandlers) HandleGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamID(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		book, err := h.service.Get(r.Context(), id)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, book)
	}
}

// HandleCreate godoc
// @Summary Add a book (librarian)
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param bookBody body books.CreateBookRequest true "Book details"
// @Success 201 {object} books.Book
// @Failure 400 {object} apperror.ErrorResponse "Invalid input"
// @Failure 403 {object} apperror.ErrorResponse "Not a librarian"
// @Router /books [post]
func (h *BookHandlers) HandleCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		book, err := h.service.Create(r.Context(), req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusCreated, book)
	}
}

// HandleUpdate godoc
// @Summary Edit a book (librarian)
// @Description Updates book metadata. Changing quantity adjusts availability by the same delta, never below the copies currently on loan.
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Book id"
// @Param bookBody body books.UpdateBookRequest true "Fields to update"
// @Success 200 {object} books.Book
// @Failure 400 {object} apperror.ErrorResponse "Invalid input"
// @Failure 404 {object} apperror.ErrorResponse "Book not found"
// @Router /books/{id} [put]
func (h *BookHandlers) HandleUpdate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamID(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		var req UpdateBookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		book, err := h.service.Update(r.Context(), id, req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, book)
	}
}

// HandleUploadCover godoc
// @Summary Upload a cover image (librarian)
// @Tags Books
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "Book id"
// @Param cover formData file true "Cover image"
// @Success 200 {object} books.Book
// @Failure 400 {object} apperror.ErrorResponse "Missing or oversized file"
// @Failure 404 {object} apperror.ErrorResponse "Book not found"
// @Router /books/{id}/cover [post]
func (h *BookHandlers) HandleUploadCover() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamID(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxCoverSize)
		file, header, err := r.FormFile("cover")
		if err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("cover file is required", err))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("failed to read cover file", err))
			return
		}

		ext := strings.ToLower(filepath.Ext(header.Filename))
		objectPath := "covers/" + uuid.NewString() + ext
		url, err := h.blobs.Put(r.Context(), objectPath, data)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		if err := h.service.SetCoverURL(r.Context(), id, url); err != nil {
			auth.WriteError(w, r, err)
			return
		}

		book, err := h.service.Get(r.Context(), id)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, book)
	}
}

// HandleCategories godoc
// @Summary List catalog categories
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Success 200 {array} string
// @Router /books/categories [get]
func (h *BookHandlers) HandleCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := h.service.Categories(r.Context())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, categories)
	}
}
