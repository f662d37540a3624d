package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vistoria/inspection/internal/checklist"
	"github.com/vistoria/inspection/internal/inspection"
	"github.com/vistoria/inspection/internal/models"
	"github.com/vistoria/inspection/internal/session"
	"github.com/vistoria/inspection/internal/testutil"
	"github.com/vmihailenco/msgpack/v5"
)

// pngHeader is enough of a PNG file for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type testEnv struct {
	e        *echo.Echo
	drafts   *session.Manager
	store    *testutil.MockStorage
	repo     *testutil.FailingRepository
	notifier *testutil.RecordingNotifier
	handlers *Handlers
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	today := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	env := &testEnv{
		e:        echo.New(),
		drafts:   session.NewManager(checklist.NewRegistry(), session.WithClock(func() time.Time { return today })),
		store:    testutil.NewMockStorage(),
		repo:     testutil.NewFailingRepository(nil),
		notifier: &testutil.RecordingNotifier{},
	}
	env.handlers = NewHandlers(&Dependencies{
		Drafts:    env.drafts,
		Templates: checklist.NewRegistry(),
		Store:     env.store,
		Repo:      env.repo,
		Notifier:  env.notifier,
		Backend:   "memory",
		Version:   "test",
	})
	env.e.HTTPErrorHandler = ErrorHandler
	RegisterRoutes(env.e, env.handlers)
	return env
}

func (env *testEnv) newDraft(t *testing.T) string {
	t.Helper()
	info, err := env.drafts.Create("")
	require.NoError(t, err)
	return info.ID
}

func (env *testEnv) fillRequired(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, env.drafts.With(id, func(f *inspection.Form) error {
		if err := f.SetField(inspection.FieldProperty, "Rua das Flores, 123"); err != nil {
			return err
		}
		return f.SetField(inspection.FieldInspector, "Ana Souza")
	}))
}

func jsonContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func requireAPIError(t *testing.T, err error, status int, code string) *APIError {
	t.Helper()
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %T", err)
	assert.Equal(t, status, apiErr.Status)
	assert.Equal(t, code, apiErr.Code)
	return apiErr
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t)
	env.newDraft(t)

	c, rec := jsonContext(env.e, http.MethodGet, "/api/health", "")
	require.NoError(t, env.handlers.Health.HandleHealth(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["storage"])
	assert.EqualValues(t, 1, body["openDrafts"])
}

func TestTemplateHandler_List(t *testing.T) {
	env := newTestEnv(t)

	c, rec := jsonContext(env.e, http.MethodGet, "/api/checklist/templates", "")
	require.NoError(t, env.handlers.Templates.HandleListTemplates(c))

	var templates []models.ChecklistTemplate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &templates))
	require.Len(t, templates, 1)
	assert.Equal(t, "Padrão", templates[0].Name)
	assert.Len(t, templates[0].Items, 5)
}

func TestDraftHandler_Create(t *testing.T) {
	env := newTestEnv(t)

	c, rec := jsonContext(env.e, http.MethodPost, "/api/inspections/drafts", `{"propertyType":""}`)
	require.NoError(t, env.handlers.Drafts.HandleCreateDraft(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var view session.DraftView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "2024-03-15", view.Values.Date)
	assert.Equal(t, models.StatusPending, view.Values.Status)
	require.Len(t, view.Items, 5)
	for _, item := range view.Items {
		assert.False(t, item.Checked)
		assert.Equal(t, models.ConditionGood, item.Condition)
		assert.Empty(t, item.Notes)
	}

	// An empty body uses the default template too.
	c, rec = jsonContext(env.e, http.MethodPost, "/api/inspections/drafts", "")
	require.NoError(t, env.handlers.Drafts.HandleCreateDraft(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, env.drafts.Len())
}

func TestDraftHandler_GetUnknown(t *testing.T) {
	env := newTestEnv(t)

	c, _ := jsonContext(env.e, http.MethodGet, "/", "")
	c.SetParamNames("draftId")
	c.SetParamValues("missing")

	requireAPIError(t, env.handlers.Drafts.HandleGetDraft(c), http.StatusNotFound, "NOT_FOUND")
}

func TestDraftHandler_UpdateFields(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantFields []string
	}{
		{
			name:       "sets metadata",
			body:       `{"property":"Rua A, 10","inspector":"Ana","status":"approved","date":"2024-04-01","notes":"ok"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "rejects malformed date",
			body:       `{"date":"01/04/2024"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantFields: []string{"date"},
		},
		{
			name:       "rejects unknown status and date together",
			body:       `{"status":"archived","date":"yesterday"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantFields: []string{"date", "status"},
		},
		{
			name:       "empty patch",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			id := env.newDraft(t)

			c, rec := jsonContext(env.e, http.MethodPatch, "/", tt.body)
			c.SetParamNames("draftId")
			c.SetParamValues(id)

			err := env.handlers.Drafts.HandleUpdateDraft(c)
			if tt.wantStatus != http.StatusOK {
				require.Error(t, err)
				apiErr := err.(*APIError)
				assert.Equal(t, tt.wantStatus, apiErr.Status)
				for _, f := range tt.wantFields {
					assert.Contains(t, apiErr.Fields, f)
				}
				return
			}

			require.NoError(t, err)
			var view session.DraftView
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
			assert.Equal(t, "Rua A, 10", view.Values.Property)
			assert.Equal(t, "Ana", view.Values.Inspector)
			assert.Equal(t, models.StatusApproved, view.Values.Status)
			assert.Equal(t, "2024-04-01", view.Values.Date)
		})
	}
}

func TestDraftHandler_UpdateItem(t *testing.T) {
	tests := []struct {
		name       string
		itemID     string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"toggle checked", "2", `{"field":"checked","value":true}`, http.StatusOK, ""},
		{"set condition", "3", `{"field":"condition","value":"poor"}`, http.StatusOK, ""},
		{"set notes", "1", `{"field":"notes","value":"<b>mancha</b> na parede"}`, http.StatusOK, ""},
		{"unknown item", "99", `{"field":"checked","value":true}`, http.StatusNotFound, "NOT_FOUND"},
		{"invalid condition", "1", `{"field":"condition","value":"excellent"}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"unknown field", "1", `{"field":"color","value":"red"}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"missing field", "1", `{"value":true}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing value", "1", `{"field":"checked"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			id := env.newDraft(t)
			before, err := env.drafts.View(id)
			require.NoError(t, err)

			c, rec := jsonContext(env.e, http.MethodPatch, "/", tt.body)
			c.SetParamNames("draftId", "itemId")
			c.SetParamValues(id, tt.itemID)

			err = env.handlers.Drafts.HandleUpdateItem(c)
			after, viewErr := env.drafts.View(id)
			require.NoError(t, viewErr)

			if tt.wantCode != "" {
				requireAPIError(t, err, tt.wantStatus, tt.wantCode)
				assert.Equal(t, before.Items, after.Items, "checklist must be unchanged")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, rec.Code)
			var item models.InspectionItem
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
			assert.Equal(t, tt.itemID, item.ID)

			changed := 0
			for i := range before.Items {
				if before.Items[i] != after.Items[i] {
					changed++
					assert.Equal(t, tt.itemID, after.Items[i].ID)
				}
			}
			assert.Equal(t, 1, changed)
		})
	}
}

func TestDraftHandler_UpdateItemKeepsNotesAsTyped(t *testing.T) {
	env := newTestEnv(t)
	id := env.newDraft(t)

	c, rec := jsonContext(env.e, http.MethodPatch, "/", `{"field":"notes","value":"  a<b & Tom &amp; Jerry\n"}`)
	c.SetParamNames("draftId", "itemId")
	c.SetParamValues(id, "1")
	require.NoError(t, env.handlers.Drafts.HandleUpdateItem(c))

	var item models.InspectionItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, "  a<b & Tom &amp; Jerry\n", item.Notes)
	assert.NotContains(t, rec.Body.String(), "<b", "JSON output escapes markup characters")
}

func multipartImages(t *testing.T, files map[string][]byte, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	for name, data := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="images"; filename="`+name+`"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestDraftHandler_UploadImages(t *testing.T) {
	env := newTestEnv(t)
	id := env.newDraft(t)

	body, ct := multipartImages(t, map[string][]byte{"sala.png": pngHeader, "quarto.png": pngHeader}, "image/png")
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set(echo.HeaderContentType, ct)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetParamNames("draftId")
	c.SetParamValues(id)

	require.NoError(t, env.handlers.Drafts.HandleUploadImages(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var saved []models.Attachment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Len(t, saved, 2)
	assert.Equal(t, 2, env.store.GetFileCount())

	view, err := env.drafts.View(id)
	require.NoError(t, err)
	assert.Len(t, view.Values.Images, 2)
}

func TestDraftHandler_UploadRejectsNonImages(t *testing.T) {
	env := newTestEnv(t)
	id := env.newDraft(t)

	body, ct := multipartImages(t, map[string][]byte{"notes.txt": []byte("plain text")}, "text/plain")
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set(echo.HeaderContentType, ct)
	c := env.e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("draftId")
	c.SetParamValues(id)

	requireAPIError(t, env.handlers.Drafts.HandleUploadImages(c), http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE")
	assert.Zero(t, env.store.GetFileCount())

	view, err := env.drafts.View(id)
	require.NoError(t, err)
	assert.Empty(t, view.Values.Images)
}

func TestDraftHandler_UploadRejectsDisguisedContent(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		contentType string
		data        []byte
	}{
		{"svg", "planta.svg", "image/svg+xml", []byte(`<svg xmlns="http://www.w3.org/2000/svg" onload="alert(1)"/>`)},
		{"html labelled png", "sala.png", "image/png", []byte("<html><script>alert(1)</script></html>")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			id := env.newDraft(t)

			body, ct := multipartImages(t, map[string][]byte{tt.file: tt.data}, tt.contentType)
			req := httptest.NewRequest(http.MethodPost, "/", body)
			req.Header.Set(echo.HeaderContentType, ct)
			c := env.e.NewContext(req, httptest.NewRecorder())
			c.SetParamNames("draftId")
			c.SetParamValues(id)

			requireAPIError(t, env.handlers.Drafts.HandleUploadImages(c), http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE")
			assert.Zero(t, env.store.GetFileCount())
		})
	}
}

func TestDraftHandler_UploadUnknownDraft(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartImages(t, map[string][]byte{"sala.png": pngHeader}, "image/png")
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set(echo.HeaderContentType, ct)
	c := env.e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("draftId")
	c.SetParamValues("missing")

	requireAPIError(t, env.handlers.Drafts.HandleUploadImages(c), http.StatusNotFound, "NOT_FOUND")
	assert.Zero(t, env.store.GetFileCount())
}

func TestDraftHandler_DeleteImage(t *testing.T) {
	env := newTestEnv(t)
	id := env.newDraft(t)
	img := env.store.AddFile("img-1", "sala.png", "image/png", pngHeader)
	require.NoError(t, env.drafts.With(id, func(f *inspection.Form) error {
		f.AttachImage(*img)
		return nil
	}))

	c, rec := jsonContext(env.e, http.MethodDelete, "/", "")
	c.SetParamNames("draftId", "imageId")
	c.SetParamValues(id, "img-1")
	require.NoError(t, env.handlers.Drafts.HandleDeleteImage(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, env.store.Has("img-1"))

	c, _ = jsonContext(env.e, http.MethodDelete, "/", "")
	c.SetParamNames("draftId", "imageId")
	c.SetParamValues(id, "img-1")
	requireAPIError(t, env.handlers.Drafts.HandleDeleteImage(c), http.StatusNotFound, "NOT_FOUND")
}

func TestDraftHandler_Submit(t *testing.T) {
	env := newTestEnv(t)
	id := env.newDraft(t)
	env.fillRequired(t, id)
	require.NoError(t, env.drafts.With(id, func(f *inspection.Form) error {
		return f.UpdateChecklistItem("2", "checked", true)
	}))

	c, rec := jsonContext(env.e, http.MethodPost, "/", "")
	c.SetParamNames("draftId")
	c.SetParamValues(id)
	require.NoError(t, env.handlers.Drafts.HandleSubmitDraft(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Inspection   models.Inspection       `json:"inspection"`
		Notification inspection.Notification `json:"notification"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Inspection.ID)
	assert.Equal(t, "2024-03-15", resp.Inspection.Date)
	require.Len(t, resp.Inspection.Items, 5)
	assert.True(t, resp.Inspection.Items[1].Checked)
	assert.Equal(t, "Vistoria salva", resp.Notification.Title)
	assert.Equal(t, resp.Inspection.ID, resp.Notification.InspectionID)

	require.Len(t, env.notifier.Sent(), 1)
	assert.Zero(t, env.drafts.Len())

	stored, err := env.repo.Get(context.Background(), resp.Inspection.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rua das Flores, 123", stored.Property)
}

func TestDraftHandler_SubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	id := env.newDraft(t)

	c, _ := jsonContext(env.e, http.MethodPost, "/", "")
	c.SetParamNames("draftId")
	c.SetParamValues(id)

	apiErr := requireAPIError(t, env.handlers.Drafts.HandleSubmitDraft(c), http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	assert.Contains(t, apiErr.Fields, "property")
	assert.Contains(t, apiErr.Fields, "inspector")
	assert.NotContains(t, apiErr.Fields, "date")
	assert.Zero(t, env.repo.Calls())
	assert.Empty(t, env.notifier.Sent())
}

func TestDraftHandler_SubmitFailureKeepsDraft(t *testing.T) {
	env := newTestEnv(t)
	id := env.newDraft(t)
	env.fillRequired(t, id)
	env.repo.SetErr(errors.New("database offline"))

	c, _ := jsonContext(env.e, http.MethodPost, "/", "")
	c.SetParamNames("draftId")
	c.SetParamValues(id)
	requireAPIError(t, env.handlers.Drafts.HandleSubmitDraft(c), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")
	assert.Empty(t, env.notifier.Sent())

	view, err := env.drafts.View(id)
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", view.Values.Inspector)

	// Retry once the repository recovers.
	env.repo.SetErr(nil)
	c, rec := jsonContext(env.e, http.MethodPost, "/", "")
	c.SetParamNames("draftId")
	c.SetParamValues(id)
	require.NoError(t, env.handlers.Drafts.HandleSubmitDraft(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, env.notifier.Sent(), 1)
}

func TestDraftHandler_DeleteDraft(t *testing.T) {
	env := newTestEnv(t)
	id := env.newDraft(t)
	img := env.store.AddFile("img-9", "varanda.png", "image/png", pngHeader)
	require.NoError(t, env.drafts.With(id, func(f *inspection.Form) error {
		f.AttachImage(*img)
		return nil
	}))

	c, rec := jsonContext(env.e, http.MethodDelete, "/", "")
	c.SetParamNames("draftId")
	c.SetParamValues(id)
	require.NoError(t, env.handlers.Drafts.HandleDeleteDraft(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, env.store.Has("img-9"))
	assert.Zero(t, env.drafts.Len())
}

func submitSample(t *testing.T, env *testEnv) string {
	t.Helper()
	id := env.newDraft(t)
	env.fillRequired(t, id)
	record, err := env.drafts.Submit(context.Background(), id, env.repo, nil)
	require.NoError(t, err)
	return record.ID
}

func TestInspectionHandler_GetAndMsgpack(t *testing.T) {
	env := newTestEnv(t)
	inspectionID := submitSample(t, env)

	c, rec := jsonContext(env.e, http.MethodGet, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(inspectionID)
	require.NoError(t, env.handlers.Inspections.HandleGetInspection(c))
	var record models.Inspection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, inspectionID, record.ID)

	c, rec = jsonContext(env.e, http.MethodGet, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(inspectionID)
	require.NoError(t, env.handlers.Inspections.HandleGetInspectionMsgpack(c))
	assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))
	var decoded models.Inspection
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, inspectionID, decoded.ID)
	assert.Len(t, decoded.Items, 5)

	c, _ = jsonContext(env.e, http.MethodGet, "/", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")
	requireAPIError(t, env.handlers.Inspections.HandleGetInspection(c), http.StatusNotFound, "NOT_FOUND")
}

func TestInspectionHandler_List(t *testing.T) {
	env := newTestEnv(t)
	submitSample(t, env)
	submitSample(t, env)

	c, rec := jsonContext(env.e, http.MethodGet, "/api/inspections?limit=1", "")
	require.NoError(t, env.handlers.Inspections.HandleListInspections(c))
	var records []models.Inspection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	assert.Len(t, records, 1)

	c, _ = jsonContext(env.e, http.MethodGet, "/api/inspections?limit=abc", "")
	requireAPIError(t, env.handlers.Inspections.HandleListInspections(c), http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestInspectionHandler_GetImage(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddFile("img-1", "cozinha.png", "image/png", pngHeader)

	c, rec := jsonContext(env.e, http.MethodGet, "/", "")
	c.SetParamNames("imageId")
	c.SetParamValues("img-1")
	require.NoError(t, env.handlers.Inspections.HandleGetImage(c))
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
	assert.Equal(t, pngHeader, rec.Body.Bytes())

	c, _ = jsonContext(env.e, http.MethodGet, "/", "")
	c.SetParamNames("imageId")
	c.SetParamValues("nope")
	requireAPIError(t, env.handlers.Inspections.HandleGetImage(c), http.StatusNotFound, "NOT_FOUND")
}

func TestRoutes_DraftLifecycle(t *testing.T) {
	env := newTestEnv(t)

	do := func(method, target, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, target, nil)
		} else {
			req = httptest.NewRequest(method, target, strings.NewReader(body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		}
		rec := httptest.NewRecorder()
		env.e.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/api/inspections/drafts", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var view session.DraftView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	base := "/api/inspections/drafts/" + view.ID

	rec = do(http.MethodPatch, base, `{"property":"Rua B, 5","inspector":"João"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodPatch, base+"/items/4", `{"field":"condition","value":"fair"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodPatch, base+"/items/404", `{"field":"checked","value":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "NOT_FOUND", apiErr.Code)

	rec = do(http.MethodPost, base+"/submit", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(http.MethodGet, "/api/inspections", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var records []models.Inspection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, models.ConditionFair, records[0].Items[3].Condition)
}

func TestErrorHandler_ValidationEnvelope(t *testing.T) {
	e := echo.New()
	c, rec := jsonContext(e, http.MethodPost, "/", "")

	ErrorHandler(NewFieldValidationError(map[string]string{"property": "property is required"}), c)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Equal(t, map[string]interface{}{"property": "property is required"}, body["fields"])
}

func TestErrorHandler_UnknownError(t *testing.T) {
	e := echo.New()
	c, rec := jsonContext(e, http.MethodGet, "/", "")

	ErrorHandler(errors.New("boom"), c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNKNOWN_ERROR")
}
