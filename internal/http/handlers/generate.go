package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/nanobanana/nanobanana-api/internal/service"
)

// maxImageUploadSize bounds the multipart body for generation requests.
const maxImageUploadSize = 12 * 1024 * 1024 // 12MB

// GenerateHandler handles image generation requests. Multipart bodies
// don't fit the typed JSON layer, so this is a raw handler.
type GenerateHandler struct {
	generationSvc *service.GenerationService
	logger        *slog.Logger
}

// NewGenerateHandler creates a new generation handler.
func NewGenerateHandler(generationSvc *service.GenerationService, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{generationSvc: generationSvc, logger: logger}
}

// GenerateResponse is the generation result returned to clients.
type GenerateResponse struct {
	Success           bool   `json:"success"`
	Result            string `json:"result"`
	OriginalImage     string `json:"originalImage,omitempty"`
	GeneratedImage    string `json:"generatedImage,omitempty"`
	StoredImageURL    string `json:"storedImageUrl,omitempty"`
	Prompt            string `json:"prompt"`
	Mode              string `json:"mode"`
	HasGeneratedImage bool   `json:"hasGeneratedImage"`
}

// HandleGenerate runs one generation request for the session user.
func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())
	if userID == "" {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageUploadSize)
	if err := r.ParseMultipartForm(maxImageUploadSize); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	prompt := strings.TrimSpace(r.FormValue("prompt"))
	if prompt == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	mode := strings.TrimSpace(r.FormValue("mode"))
	if mode == "" {
		mode = "edit"
	}

	sourceImage, err := readImagePart(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if sourceImage == "" && mode != "create" {
		writeJSONError(w, http.StatusBadRequest, "image is required for image editing")
		return
	}

	output, err := h.generationSvc.Generate(r.Context(), service.GenerationParams{
		UserID:         userID,
		Prompt:         prompt,
		Mode:           mode,
		SourceImageURL: sourceImage,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInsufficientCredits):
			writeJSONError(w, http.StatusBadRequest, "insufficient_credits")
		case errors.Is(err, service.ErrNoGenerationOutput):
			writeJSONError(w, http.StatusBadGateway, "model returned no output")
		default:
			h.logger.Error("generation request failed",
				"user_id", userID,
				"mode", mode,
				"error", err,
			)
			writeJSONError(w, http.StatusBadGateway, "generation failed")
		}
		return
	}

	resp := GenerateResponse{
		Success:           true,
		Result:            output.Text,
		OriginalImage:     sourceImage,
		GeneratedImage:    output.GeneratedImage,
		StoredImageURL:    output.StoredURL,
		Prompt:            prompt,
		Mode:              mode,
		HasGeneratedImage: output.GeneratedImage != "",
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to write generation response", "error", err)
	}
}

// readImagePart reads the optional image upload and converts it to a
// data URL for the model request.
func readImagePart(r *http.Request) (string, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("invalid image upload")
	}
	defer func() { _ = file.Close() }()

	raw, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read image upload")
	}
	if len(raw) == 0 {
		return "", nil
	}

	contentType := imageContentType(header, raw)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("uploaded file is not an image")
	}

	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(raw)), nil
}

// imageContentType prefers the declared part type, falling back to
// content sniffing.
func imageContentType(header *multipart.FileHeader, raw []byte) string {
	if declared := header.Header.Get("Content-Type"); declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return http.DetectContentType(raw)
}

// writeJSONError writes the error shape shared by the raw handlers.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"error":` + quoteJSON(message) + `}`))
}

func quoteJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
