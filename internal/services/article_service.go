package services

import (
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/banksampah/backend/internal/models"
)

// ArticleService serves the education content shown on dashboards.
type ArticleService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewArticleService(db *sql.DB) *ArticleService {
	return &ArticleService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

// ListArticles lists education articles
// @Summary List articles
// @Tags articles
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Article
// @Router /articles [get]
func (s *ArticleService) ListArticles(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.QueryContext(r.Context(), `
		SELECT id, title, content, image, author_id, created_at, updated_at
		FROM articles ORDER BY created_at DESC`)
	if err != nil {
		log.Printf("[ARTICLE] List query failed: %v", err)
		SendErrorResponse(w, "Failed to list articles", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	articles := []models.Article{}
	for rows.Next() {
		var a models.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.Image, &a.AuthorID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			SendErrorResponse(w, "Failed to list articles", http.StatusInternalServerError, nil)
			return
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		SendErrorResponse(w, "Failed to list articles", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": articles})
}

// GetArticle fetches one article
// @Summary Get an article
// @Tags articles
// @Produce json
// @Security BearerAuth
// @Param articleId path string true "Article ID"
// @Success 200 {object} models.Article
// @Failure 404 {object} ErrorResponse
// @Router /articles/{articleId} [get]
func (s *ArticleService) GetArticle(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "articleId")

	var a models.Article
	err := s.db.QueryRowContext(r.Context(), `
		SELECT id, title, content, image, author_id, created_at, updated_at
		FROM articles WHERE id = $1`, articleID).
		Scan(&a.ID, &a.Title, &a.Content, &a.Image, &a.AuthorID, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Article not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		SendErrorResponse(w, "Failed to fetch article", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": a})
}

// CreateArticle publishes a new article
// @Summary Create an article
// @Tags articles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{title=string,content=string,image=string} true "Article"
// @Success 201 {object} models.Article
// @Failure 400 {object} ErrorResponse
// @Router /articles [post]
func (s *ArticleService) CreateArticle(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("userID").(string)

	var req struct {
		Title   string  `json:"title" validate:"required,min=3"`
		Content string  `json:"content" validate:"required"`
		Image   *string `json:"image"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	a := models.Article{
		ID:       uuid.NewString(),
		Title:    req.Title,
		Content:  req.Content,
		Image:    req.Image,
		AuthorID: userID,
	}
	err := s.db.QueryRowContext(r.Context(), `
		INSERT INTO articles (id, title, content, image, author_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		a.ID, a.Title, a.Content, a.Image, a.AuthorID).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		log.Printf("[ARTICLE] Insert failed: %v", err)
		SendErrorResponse(w, "Failed to create article", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"message": "Article created",
		"data":    a,
	})
}

// UpdateArticle edits an existing article
// @Summary Update an article
// @Tags articles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param articleId path string true "Article ID"
// @Param request body object{title=string,content=string,image=string} true "Article"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /articles/{articleId} [put]
func (s *ArticleService) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "articleId")

	var req struct {
		Title   string  `json:"title" validate:"required,min=3"`
		Content string  `json:"content" validate:"required"`
		Image   *string `json:"image"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	res, err := s.db.ExecContext(r.Context(), `
		UPDATE articles SET title = $1, content = $2, image = $3, updated_at = NOW() WHERE id = $4`,
		req.Title, req.Content, req.Image, articleID)
	if err != nil {
		log.Printf("[ARTICLE] Update failed for %s: %v", articleID, err)
		SendErrorResponse(w, "Failed to update article", http.StatusInternalServerError, nil)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		SendErrorResponse(w, "Article not found", http.StatusNotFound, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Article updated"})
}

// DeleteArticle removes an article
// @Summary Delete an article
// @Tags articles
// @Produce json
// @Security BearerAuth
// @Param articleId path string true "Article ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /articles/{articleId} [delete]
func (s *ArticleService) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "articleId")

	res, err := s.db.ExecContext(r.Context(), `DELETE FROM articles WHERE id = $1`, articleID)
	if err != nil {
		SendErrorResponse(w, "Failed to delete article", http.StatusInternalServerError, nil)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		SendErrorResponse(w, "Article not found", http.StatusNotFound, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Article deleted"})
}
