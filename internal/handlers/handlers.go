package handlers

import (
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/calder-vision/imagenet-api/internal/classify"
)

const defaultTopK = 5

// maxUploadBytes bounds the multipart form we are willing to parse.
const maxUploadBytes = 10 << 20

type Handler struct {
	classifier *classify.Classifier
	labels     []string
	logger     *zap.Logger
}

func New(classifier *classify.Classifier, labels []string, logger *zap.Logger) *Handler {
	return &Handler{
		classifier: classifier,
		labels:     labels,
		logger:     logger,
	}
}

// RegisterRoutes wires the handler into a gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(corsMiddleware())
	r.GET("/health", h.Health)
	r.GET("/labels", h.Labels)
	r.POST("/classify", h.Classify)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) Labels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"count":  len(h.labels),
		"labels": h.labels,
	})
}

// Classify accepts a multipart image upload and returns the top-k
// predictions. Query parameters: k (default 5), center_only
// (default false, skips the 10-crop oversampling; accepts any
// strconv.ParseBool form).
func (h *Handler) Classify(c *gin.Context) {
	k := defaultTopK
	if raw := c.Query("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "k must be an integer"})
			return
		}
		k = parsed
	}

	centerOnly := false
	if raw := c.Query("center_only"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "center_only must be a boolean"})
			return
		}
		centerOnly = parsed
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image file provided, use 'image' as the form field name"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image, supported formats: jpeg, png, gif, bmp, webp"})
		return
	}

	h.logger.Debug("classifying image",
		zap.String("filename", fileHeader.Filename),
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
		zap.Int("k", k),
		zap.Bool("center_only", centerOnly),
	)

	scores, err := h.classifier.Classify(img, centerOnly)
	if err != nil {
		h.logger.Error("classification failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "classification failed"})
		return
	}

	top, err := h.classifier.TopK(scores, k)
	if err != nil {
		if errors.Is(err, classify.ErrKOutOfRange) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("ranking failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ranking failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"center_only": centerOnly,
		"predictions": top,
	})
}
