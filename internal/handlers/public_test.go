package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"domus/internal/models"
	"domus/internal/repositories"
	"domus/internal/services/audit"
	maintsvc "domus/internal/services/maintenance"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type publicFixture struct {
	app   *fiber.App
	maint maintsvc.Service
	db    *gorm.DB
}

func newPublicFixture(t *testing.T) *publicFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))

	maint := maintsvc.NewService(repositories.NewMaintenanceRepository(db))
	auditSvc := audit.NewService(repositories.NewAuditRepository(db))
	h := NewPublicHandler(maint, auditSvc)

	app := fiber.New()
	pub := app.Group("/api/public")
	pub.Get("/requests/:token", h.GetRequest)
	pub.Patch("/requests/:token", h.UpdateRequest)
	pub.Get("/templates/:token", h.GetTemplate)

	return &publicFixture{app: app, maint: maint, db: db}
}

func (f *publicFixture) sharedRequest(t *testing.T) (string, *models.MaintenanceRequest) {
	t.Helper()
	req, err := f.maint.CreateRequest(&models.MaintenanceRequest{
		Title:       "Boiler inspection",
		Description: "Annual check",
		Category:    "hvac",
		PropertyID:  3,
		CreatedByID: 2,
	})
	require.NoError(t, err)
	raw, _, err := f.maint.IssueRequestToken(req.ID, time.Hour)
	require.NoError(t, err)
	return raw, req
}

func decodeBody(t *testing.T, res *http.Response) map[string]interface{} {
	t.Helper()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}

func TestPublicGetRequest_RedactsInternalFields(t *testing.T) {
	f := newPublicFixture(t)
	raw, _ := f.sharedRequest(t)

	res, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/api/public/requests/"+raw, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	body := decodeBody(t, res)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "Boiler inspection", data["title"])
	assert.Equal(t, "new", data["status"])
	for _, hidden := range []string{"assignedToId", "assignedToKind", "createdById", "publicTokenHash", "mediaRefs"} {
		_, present := data[hidden]
		assert.False(t, present, "field %q must not leak through the public view", hidden)
	}
}

func TestPublicGetRequest_UnknownTokenIs404(t *testing.T) {
	f := newPublicFixture(t)

	res, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/api/public/requests/bogus", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestPublicGetRequest_ExpiredTokenIs401(t *testing.T) {
	f := newPublicFixture(t)
	raw, req := f.sharedRequest(t)
	past := time.Now().Add(-time.Minute)
	require.NoError(t, f.db.Model(req).Update("public_link_expires_at", past).Error)

	res, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/api/public/requests/"+raw, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode,
		"a link that worked and then expired is a dead credential, not a missing resource")

	body := decodeBody(t, res)
	assert.Equal(t, false, body["success"])
}

func patchJSON(t *testing.T, app *fiber.App, path string, payload interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPatch, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	return res
}

func TestPublicUpdateRequest(t *testing.T) {
	f := newPublicFixture(t)
	raw, req := f.sharedRequest(t)

	// Walk the request into in_progress so the public caller can complete it.
	_, err := f.maint.Transition(req.ID, models.RequestTriaged, maintsvc.TransitionContext{Manager: true})
	require.NoError(t, err)
	_, err = f.maint.Assign(req.ID, models.VendorAssignee(9), maintsvc.TransitionContext{Manager: true})
	require.NoError(t, err)
	_, err = f.maint.Transition(req.ID, models.RequestInProgress, maintsvc.TransitionContext{Manager: true})
	require.NoError(t, err)

	t.Run("caller identity is required", func(t *testing.T) {
		res := patchJSON(t, f.app, "/api/public/requests/"+raw, fiber.Map{"status": "completed"})
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("restricted transitions are forbidden", func(t *testing.T) {
		res := patchJSON(t, f.app, "/api/public/requests/"+raw, fiber.Map{
			"name": "Ace Plumbing", "phone": "555-0101", "status": "on_hold",
		})
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
	})

	t.Run("completion with a comment", func(t *testing.T) {
		res := patchJSON(t, f.app, "/api/public/requests/"+raw, fiber.Map{
			"name": "Ace Plumbing", "phone": "555-0101",
			"status": "completed", "comment": "Replaced the valve",
		})
		assert.Equal(t, http.StatusOK, res.StatusCode)
		data := decodeBody(t, res)["data"].(map[string]interface{})
		assert.Equal(t, "completed", data["status"])

		var comment models.Comment
		require.NoError(t, f.db.Where("resource_id = ?", req.ID).First(&comment).Error)
		assert.Equal(t, "Ace Plumbing", comment.AuthorName)
		assert.Equal(t, "555-0101", comment.AuthorPhone)
		assert.Nil(t, comment.AuthorID, "public comments carry no account identity")

		// The precise denial and the update both landed in the audit log.
		var audits int64
		require.NoError(t, f.db.Model(&models.AuditEntry{}).
			Where("action = ?", models.ActionPublicAccess).Count(&audits).Error)
		assert.Positive(t, audits)
	})

	t.Run("illegal transition is a 422", func(t *testing.T) {
		res := patchJSON(t, f.app, "/api/public/requests/"+raw, fiber.Map{
			"name": "Ace Plumbing", "phone": "555-0101", "status": "in_progress",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	})
}

func TestPublicGetTemplate(t *testing.T) {
	f := newPublicFixture(t)
	tpl, err := f.maint.CreateTemplate(&models.ScheduledMaintenance{
		Title:         "Gutter cleaning",
		PropertyID:    3,
		CreatedByID:   1,
		ScheduledDate: time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	raw, _, err := f.maint.IssueTemplateToken(tpl.ID, time.Hour)
	require.NoError(t, err)

	res, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/api/public/templates/"+raw, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	data := decodeBody(t, res)["data"].(map[string]interface{})
	assert.Equal(t, "Gutter cleaning", data["title"])
	_, present := data["publicTokenHash"]
	assert.False(t, present)
}
