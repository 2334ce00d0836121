package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/shopspring/decimal"

	"github.com/zombor/splitmate/internal/scanning"
	"github.com/zombor/splitmate/internal/split"
)

func multipartBody(fields map[string]string, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		Expect(writer.WriteField(k, v)).To(Succeed())
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := writer.CreatePart(h)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

func decodeBody(resp *http.Response, v any) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(body, v)).To(Succeed())
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		detector    *mockDetector
		suggester   *mockSuggester
		service     *Service
		server      *Server
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		detector = &mockDetector{text: "Latte 4.50\nTotal 4.50"}
		suggester = &mockSuggester{suggestion: &split.Suggestion{
			Source:     split.SourceRule,
			Allocation: map[string]decimal.Decimal{"Ann": decimal.RequireFromString("4.50")},
			Summary:    "Split by explicit percent rule in prompt.",
		}}
		service = NewServiceWithDeps(db, detector, suggester, storage,
			&mockIDGenerator{ids: []string{"id1"}},
			&mockTimeSource{now: time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)})
		server = NewServerWithMux(service, 1<<20, http.NewServeMux())

		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	postAnalyze := func(fields map[string]string, filename, contentType string, data []byte) *http.Response {
		body, formType := multipartBody(fields, filename, contentType, data)
		resp, err := http.Post(ghttpServer.URL()+"/analyze/", formType, body)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	Describe("CORS", func() {
		It("answers preflight requests with no content", func() {
			req, err := http.NewRequest(http.MethodOptions, ghttpServer.URL()+"/analyze/", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})

		It("sets headers on errors too", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/analyses/missing")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("GET /health", func() {
		It("reports ok", func() {
			resp, err := http.Get(ghttpServer.URL() + "/health")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body map[string]string
			decodeBody(resp, &body)
			Expect(body).To(HaveKeyWithValue("status", "ok"))
		})
	})

	Describe("POST /analyze/", func() {
		It("returns the parsed receipt and suggestion", func() {
			resp := postAnalyze(map[string]string{"instruction": "Ann 100%", "names": "Ann, Bob"}, "receipt.png", "image/png", []byte("image"))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

			var body struct {
				ID         string          `json:"id"`
				Parsed     json.RawMessage `json:"parsed"`
				Suggestion json.RawMessage `json:"suggestion"`
			}
			decodeBody(resp, &body)
			Expect(body.ID).To(Equal("id1"))
			Expect(body.Parsed).To(MatchJSON(`{"items":[{"name":"Latte","price":4.50}],"tax":0.00,"fee":0.00,"total":4.50}`))
			Expect(body.Suggestion).To(MatchJSON(`{"source":"rule","allocation":{"Ann":4.50},"summary":"Split by explicit percent rule in prompt."}`))
			Expect(suggester.names).To(Equal([]string{"Ann", "Bob"}))
		})

		It("derives the content type from the extension when the part has none", func() {
			resp := postAnalyze(map[string]string{"names": "Ann"}, "scan.pdf", "", []byte("%PDF-1.4"))
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(db.analyses["id1"].ContentType).To(Equal("application/pdf"))
		})

		It("rejects a missing file", func() {
			resp := postAnalyze(map[string]string{"names": "Ann"}, "", "", nil)
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a missing name list", func() {
			resp := postAnalyze(map[string]string{"names": " , "}, "receipt.png", "image/png", []byte("image"))
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(storage.files).To(BeEmpty())
		})

		It("rejects a body that is not a form", func() {
			resp, err := http.Post(ghttpServer.URL()+"/analyze/", "text/plain", strings.NewReader("hello"))
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("reports OCR failures as a bad gateway", func() {
			detector.err = &scanning.OCRError{Engine: "gemini", Message: "quota exceeded"}
			resp := postAnalyze(map[string]string{"names": "Ann"}, "receipt.png", "image/png", []byte("image"))
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
			var body map[string]string
			decodeBody(resp, &body)
			Expect(body["error"]).To(ContainSubstring("quota exceeded"))
		})

		It("reports unreadable images as a bad request", func() {
			detector.err = scanning.ErrUnreadableImage
			resp := postAnalyze(map[string]string{"names": "Ann"}, "receipt.png", "image/png", []byte("image"))
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("reports model failures as a bad gateway", func() {
			suggester.err = errors.New("connection refused")
			resp := postAnalyze(map[string]string{"names": "Ann"}, "receipt.png", "image/png", []byte("image"))
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
		})

		It("reports database failures as an internal error", func() {
			db.saveErr = errors.New("database locked")
			resp := postAnalyze(map[string]string{"names": "Ann"}, "receipt.png", "image/png", []byte("image"))
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("POST /api/parse", func() {
		It("parses the text body", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/parse", "text/plain", strings.NewReader("Burger 10.00\nFries 5.00\nTax 1.00"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body json.RawMessage
			decodeBody(resp, &body)
			Expect(body).To(MatchJSON(`{"items":[{"name":"Burger","price":10.00},{"name":"Fries","price":5.00}],"tax":1.00,"fee":0.00,"total":16.00}`))
		})
	})

	Describe("POST /api/split", func() {
		It("suggests a split for a parsed receipt", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/split", "application/json",
				strings.NewReader(`{"parsed":{"items":[{"name":"Latte","price":4.50}],"tax":0,"fee":0,"total":4.50},"instruction":"Ann 100%","names":["Ann"]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body json.RawMessage
			decodeBody(resp, &body)
			Expect(body).To(MatchJSON(`{"source":"rule","allocation":{"Ann":4.50},"summary":"Split by explicit percent rule in prompt."}`))
			Expect(suggester.parsed.Total.StringFixed(2)).To(Equal("4.50"))
		})

		It("rejects invalid JSON", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/split", "application/json", strings.NewReader(`{`))
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("requires a parsed receipt", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/split", "application/json", strings.NewReader(`{"names":["Ann"]}`))
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("requires names", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/split", "application/json", strings.NewReader(`{"parsed":{"items":[],"total":1}}`))
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/analyses", func() {
		It("returns an empty array when there are none", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/analyses")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body json.RawMessage
			decodeBody(resp, &body)
			Expect(body).To(MatchJSON(`[]`))
		})

		It("reports database failures", func() {
			db.listErr = errors.New("boom")
			resp, err := http.Get(ghttpServer.URL() + "/api/analyses")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("GET /api/analyses/{id}", func() {
		It("returns the analysis", func() {
			db.analyses["a"] = &Analysis{ID: "a", Names: []string{"Ann"}}
			resp, err := http.Get(ghttpServer.URL() + "/api/analyses/a")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body map[string]any
			decodeBody(resp, &body)
			Expect(body).To(HaveKeyWithValue("id", "a"))
		})
	})

	Describe("GET /api/analyses/{id}/file", func() {
		It("serves the upload with its content type", func() {
			db.analyses["a"] = &Analysis{ID: "a", Filename: "a_receipt.png", ContentType: "image/png"}
			storage.files["a_receipt.png"] = []byte("image")

			resp, err := http.Get(ghttpServer.URL() + "/api/analyses/a/file")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
			data, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("image")))
		})

		It("returns 404 for unknown IDs", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/analyses/missing/file")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("DELETE /api/analyses/{id}", func() {
		It("deletes the analysis", func() {
			db.analyses["a"] = &Analysis{ID: "a", Filename: "a_receipt.png"}
			storage.files["a_receipt.png"] = []byte("image")

			req, err := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/analyses/a", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.analyses).To(BeEmpty())
		})

		It("returns 404 for unknown IDs", func() {
			req, err := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/analyses/missing", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})
})
