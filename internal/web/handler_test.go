package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-form/internal/form"
	"github.com/a3tai/mcp-pdf-form/internal/form/formtest"
	"github.com/a3tai/mcp-pdf-form/internal/pdf"
)

func newTestHandler(t *testing.T) (*Handler, *pdf.Service) {
	t.Helper()
	service, err := pdf.NewService(1024*1024, t.TempDir(), nil, nil)
	require.NoError(t, err)
	h, err := NewHandler(service)
	require.NoError(t, err)
	return h, service
}

func uploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("pdf", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func fillRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/fill", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewHandler_NilService(t *testing.T) {
	_, err := NewHandler(nil)
	assert.Error(t, err)
}

func TestHandler_Index(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, `name="pdf"`)
	assert.Contains(t, body, "<h2>How it works</h2>")
	assert.Contains(t, body, "<code>filled_form.pdf</code>")
}

func TestHandler_UnknownPath(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_FillWithoutUpload(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := serve(h, fillRequest(url.Values{"f:Policy Number": {"X"}}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), UploadRequiredMessage)
	assert.Nil(t, h.Current())
}

func TestHandler_FieldsWithoutUpload(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/fields", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), UploadRequiredMessage)
}

func TestHandler_UploadRejects(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		contains string
	}{
		{"missing file", "", nil, UploadRequiredMessage},
		{"empty file", "empty.pdf", nil, form.ErrEmptyDocument.Error()},
		{"not a pdf", "notes.pdf", []byte("just some text"), "not a PDF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t)

			rec := serve(h, uploadRequest(t, tt.filename, tt.data))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
			assert.Nil(t, h.Current())
		})
	}
}

func TestHandler_Sanitize(t *testing.T) {
	h, _ := newTestHandler(t)

	assert.Equal(t, "P-7", h.sanitize("<b>P-7</b>"))
	assert.Equal(t, "Tom & Jerry", h.sanitize("<script>alert(1)</script>Tom & Jerry"))
	assert.Equal(t, "plain", h.sanitize("plain"))
}

func TestHandler_UploadAndFill(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping PDF integration test in short mode")
	}

	h, service := newTestHandler(t)
	service.SetDefaultFlatten(false)

	rec := serve(h, uploadRequest(t, "application.pdf", formtest.FormPDF(t)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, "application.pdf: 5 field(s), 2 tag(s)")
	assert.Contains(t, body, "policyNumber")
	assert.Contains(t, body, `name="f:Policy Number"`)
	assert.Contains(t, body, `name="t:{{insuredName}}"`)
	require.NotNil(t, h.Current())

	t.Run("fields json", func(t *testing.T) {
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/fields", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Name    string          `json:"name"`
			HasForm bool            `json:"has_form"`
			Fields  []form.Field    `json:"fields"`
			Tags    []form.TagField `json:"tags"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "application.pdf", resp.Name)
		assert.True(t, resp.HasForm)
		assert.Len(t, resp.Fields, 5)
		assert.Equal(t, []form.TagField{
			{ID: "{{policyNumber}}", Label: "policyNumber"},
			{ID: "{{insuredName}}", Label: "insuredName"},
		}, resp.Tags)
	})

	t.Run("fill fields", func(t *testing.T) {
		rec := serve(h, fillRequest(url.Values{
			"f:Policy Number": {"<b>P-7</b>"},
			"f:Missing":       {"ignored"},
		}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), form.DefaultOutputName)

		doc, err := form.NewDocument(rec.Body.Bytes(), form.DefaultOutputName, nil)
		require.NoError(t, err)
		field, err := doc.Field("policyNumber")
		require.NoError(t, err)
		assert.Equal(t, "P-7", field.Value)
	})

	t.Run("fill tags", func(t *testing.T) {
		rec := serve(h, fillRequest(url.Values{
			"mode":              {modeTags},
			"t:{{insuredName}}": {"Jane Doe"},
		}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		doc, err := form.NewDocument(rec.Body.Bytes(), form.DefaultOutputName, nil)
		require.NoError(t, err)
		field, err := doc.Field("insuredName")
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", field.Value)
	})

	t.Run("unknown tag warns", func(t *testing.T) {
		rec := serve(h, fillRequest(url.Values{
			"mode":          {modeTags},
			"t:{{nowhere}}": {"x"},
		}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Header().Get("X-Fill-Warnings"), "{{nowhere}}")
	})
}

func TestHandler_UploadReplacesDocument(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping PDF integration test in short mode")
	}

	h, _ := newTestHandler(t)

	rec := serve(h, uploadRequest(t, "first.pdf", formtest.FormPDF(t)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(h, uploadRequest(t, "second.pdf", formtest.PlainPDF(t, "Dear {{name}}")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "second.pdf: 0 field(s), 1 tag(s)")
	require.NotNil(t, h.Current())
	assert.Equal(t, "second.pdf", h.Current().Name())
}

func TestHandler_FillFieldsMode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping PDF integration test in short mode")
	}

	h, _ := newTestHandler(t)
	checked := bytes.Replace(formtest.FormPDF(t), []byte("/V /Off /AS /Off /AP << /N << /Yes"),
		[]byte("/V /Yes /AS /Yes /AP << /N << /Yes"), 1)

	rec := serve(h, uploadRequest(t, "checked.pdf", checked))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	agree, err := h.Current().Field("Agree")
	require.NoError(t, err)
	require.Equal(t, true, agree.Value)

	t.Run("absent checkbox is unchecked", func(t *testing.T) {
		rec := serve(h, fillRequest(url.Values{
			"mode":            {modeFields},
			"f:Policy Number": {"P-8"},
		}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		doc, err := form.NewDocument(rec.Body.Bytes(), form.DefaultOutputName, nil)
		require.NoError(t, err)
		hasForm, err := doc.HasForm()
		require.NoError(t, err)
		assert.True(t, hasForm, "an absent flatten box keeps the form")

		agree, err := doc.Field("Agree")
		require.NoError(t, err)
		assert.Equal(t, false, agree.Value)
		policy, err := doc.Field("policyNumber")
		require.NoError(t, err)
		assert.Equal(t, "P-8", policy.Value)
	})

	t.Run("flatten box", func(t *testing.T) {
		rec := serve(h, fillRequest(url.Values{
			"mode":            {modeFields},
			"f:Policy Number": {"P-9"},
			"f:Agree":         {"true"},
			"flatten":         {"true"},
		}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		doc, err := form.NewDocument(rec.Body.Bytes(), form.DefaultOutputName, nil)
		require.NoError(t, err)
		hasForm, err := doc.HasForm()
		require.NoError(t, err)
		assert.False(t, hasForm)
	})
}
