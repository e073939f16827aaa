package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"supportchat/internal/app"
	"supportchat/internal/pkg/pdfextract"
	"supportchat/internal/rag"
	"supportchat/internal/transport/http/response"
)

const maxUploadSize = 10 << 20 // 10 MB

type DocumentHandler struct {
	ingestService *app.IngestService
}

type CreateDocumentRequest struct {
	DocumentID string `json:"document_id" binding:"omitempty,max=64"`
	Filename   string `json:"filename" binding:"max=255"`
	Content    string `json:"content" binding:"required"`
}

func NewDocumentHandler(ingestService *app.IngestService) *DocumentHandler {
	return &DocumentHandler{ingestService: ingestService}
}

// Create ingests raw text. Re-sending the same document_id replaces that
// document's chunks; omitting it creates a fresh document.
func (h *DocumentHandler) Create(c *gin.Context) {
	tenantID, ok := getTenantIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid tenant context")
		return
	}

	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	documentID := strings.TrimSpace(req.DocumentID)
	if documentID == "" {
		documentID = uuid.NewString()
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), app.IngestInput{
		TenantID:   tenantID,
		DocumentID: documentID,
		Filename:   req.Filename,
		Content:    req.Content,
	})
	if err != nil {
		h.writeIngestError(c, err)
		return
	}

	response.OK(c, result)
}

// Upload accepts a multipart form with "file" (PDF, TXT or Markdown) and an
// optional "document_id" for replacement.
func (h *DocumentHandler) Upload(c *gin.Context) {
	tenantID, ok := getTenantIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid tenant context")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 10MB)")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	var text string
	switch ext := strings.ToLower(filepath.Ext(file.Filename)); ext {
	case ".pdf":
		text, err = pdfextract.ExtractText(f)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to extract text from PDF: "+err.Error())
			return
		}
	case ".txt", ".md":
		raw, readErr := io.ReadAll(io.LimitReader(f, maxUploadSize))
		if readErr != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
			return
		}
		text = string(raw)
	default:
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only PDF, TXT and Markdown files are allowed")
		return
	}

	if strings.TrimSpace(text) == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file contains no extractable text")
		return
	}

	documentID := strings.TrimSpace(c.PostForm("document_id"))
	if documentID == "" {
		documentID = uuid.NewString()
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), app.IngestInput{
		TenantID:   tenantID,
		DocumentID: documentID,
		Filename:   file.Filename,
		Content:    text,
	})
	if err != nil {
		h.writeIngestError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *DocumentHandler) List(c *gin.Context) {
	tenantID, ok := getTenantIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid tenant context")
		return
	}

	docs, err := h.ingestService.ListDocuments(tenantID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}

	response.OK(c, docs)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	tenantID, ok := getTenantIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid tenant context")
		return
	}

	docID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || docID64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	if err := h.ingestService.DeleteDocument(tenantID, uint(docID64)); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		}
		return
	}

	response.OK(c, gin.H{"deleted_document_id": uint(docID64)})
}

func (h *DocumentHandler) writeIngestError(c *gin.Context, err error) {
	var ingestErr *rag.IngestionError
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.As(err, &ingestErr):
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, ingestErr.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest failed")
	}
}
