package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorgonia.org/tensor"

	"github.com/calder-vision/imagenet-api/internal/classify"
	"github.com/calder-vision/imagenet-api/internal/model"
	"github.com/calder-vision/imagenet-api/internal/preprocess"
)

type stubPredictor struct {
	scores []float32
}

func (s *stubPredictor) Predict(batch *tensor.Dense) (*tensor.Dense, error) {
	n := batch.Shape()[0]
	classes := len(s.scores)
	data := make([]float32, n*classes)
	for i := 0; i < n; i++ {
		copy(data[i*classes:(i+1)*classes], s.scores)
	}
	return tensor.New(tensor.WithShape(n, classes), tensor.WithBacking(data)), nil
}

func (s *stubPredictor) Close() error { return nil }

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	labels := make([]string, 10)
	for i := range labels {
		labels[i] = fmt.Sprintf("class-%d", i)
	}
	// Class 7 is the clear winner.
	scores := make([]float32, len(labels))
	for i := range scores {
		scores[i] = 0.01
	}
	scores[7] = 0.9

	meta := model.Metadata{
		LabelNames: labels,
		MeanImage:  make([]float32, preprocess.CanonSize*preprocess.CanonSize*preprocess.Channels),
	}
	m, err := model.New(meta, &stubPredictor{scores: scores})
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}

	router := gin.New()
	New(classify.New(m), m.Labels(), zap.NewNop()).RegisterRoutes(router)
	return router
}

func pngUpload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "test.png")
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(part, img); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return body, writer.FormDataContentType()
}

func TestHealth(t *testing.T) {
	router := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestLabels(t *testing.T) {
	router := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/labels", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Count  int      `json:"count"`
		Labels []string `json:"labels"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Count != 10 || len(resp.Labels) != 10 {
		t.Fatalf("count = %d, labels = %d, want 10", resp.Count, len(resp.Labels))
	}
}

func TestClassifyEndpoint(t *testing.T) {
	router := testRouter(t)
	body, contentType := pngUpload(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/classify?k=3", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		CenterOnly  bool                  `json:"center_only"`
		Predictions []classify.Prediction `json:"predictions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(resp.Predictions) != 3 {
		t.Fatalf("got %d predictions, want 3", len(resp.Predictions))
	}
	if resp.Predictions[0].Index != 7 || resp.Predictions[0].Label != "class-7" {
		t.Fatalf("top prediction = %+v, want class 7", resp.Predictions[0])
	}
	for i := 1; i < len(resp.Predictions); i++ {
		if resp.Predictions[i].Score > resp.Predictions[i-1].Score {
			t.Fatalf("predictions not sorted: %+v", resp.Predictions)
		}
	}
}

func TestClassifyCenterOnly(t *testing.T) {
	router := testRouter(t)

	// Every ParseBool spelling of true must enable the center crop.
	for _, raw := range []string{"true", "1", "True", "TRUE"} {
		body, contentType := pngUpload(t)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/classify?center_only="+raw+"&k=1", body)
		req.Header.Set("Content-Type", contentType)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("center_only=%s: status = %d, want 200, body: %s", raw, w.Code, w.Body.String())
		}
		var resp struct {
			CenterOnly bool `json:"center_only"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if !resp.CenterOnly {
			t.Fatalf("center_only=%s not honored", raw)
		}
	}
}

func TestClassifyBadCenterOnly(t *testing.T) {
	router := testRouter(t)
	body, contentType := pngUpload(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/classify?center_only=yes", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestClassifyBadK(t *testing.T) {
	router := testRouter(t)

	for _, k := range []string{"0", "11", "abc"} {
		body, contentType := pngUpload(t)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/classify?k="+k, body)
		req.Header.Set("Content-Type", contentType)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("k=%s: status = %d, want 400", k, w.Code)
		}
	}
}

func TestClassifyMissingFile(t *testing.T) {
	router := testRouter(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/classify", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestClassifyBadImage(t *testing.T) {
	router := testRouter(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "junk.bin")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("definitely not an image"))
	writer.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/classify", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
