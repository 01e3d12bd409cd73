package engine_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"dataservice/internal/auth"
	"dataservice/internal/engine"
	"dataservice/internal/schema"
	"dataservice/internal/store"
)

const testSecret = "test-secret"

func setupApp(t *testing.T) (*fiber.App, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := &store.Store{DB: db, Dialect: store.NewDialect("postgres")}
	recorder := engine.NewRecorder(s.Dialect, true, zerolog.Nop())
	eng := engine.NewEngine(s, recorder)
	handler := engine.NewHandler(s, schema.NewRegistry(), eng)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var appErr *engine.AppError
			if errors.As(err, &appErr) {
				return c.Status(appErr.Status).JSON(engine.ErrorResponse(appErr))
			}
			return c.Status(500).JSON(engine.ErrorResponse(
				engine.NewAppError("INTERNAL_SERVER_ERROR", 500, "Internal Server Error")))
		},
	})

	verifier, err := auth.NewVerifier(testSecret, "")
	require.NoError(t, err)
	engine.RegisterRoutes(app, handler,
		auth.Authenticate(verifier), auth.RequireRoles([]string{"admin"}))
	return app, mock
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateAccessToken("alice", []string{"admin"}, testSecret, time.Minute)
	require.NoError(t, err)
	return token
}

func viewerToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateAccessToken("bob", []string{"viewer"}, testSecret, time.Minute)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) (string, map[string]any) {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(raw, &envelope), "body: %s", raw)
	status, _ := envelope["status"].(string)
	return status, envelope
}

func TestRoutes_RequireToken(t *testing.T) {
	app, _ := setupApp(t)

	resp := doJSON(t, app, "GET", "/categories", "", "")
	require.Equal(t, 401, resp.StatusCode)

	status, envelope := decodeEnvelope(t, resp)
	require.Equal(t, "error", status)
	errObj := envelope["error"].(map[string]any)
	require.Equal(t, "UNAUTHORIZED", errObj["code"])
}

func TestList_UnknownEntity(t *testing.T) {
	app, _ := setupApp(t)

	resp := doJSON(t, app, "GET", "/widgets", viewerToken(t), "")
	require.Equal(t, 404, resp.StatusCode)

	_, envelope := decodeEnvelope(t, resp)
	errObj := envelope["error"].(map[string]any)
	require.Equal(t, "NOT_FOUND", errObj["code"])
	require.Equal(t, "Entity not found", errObj["message"])
}

func TestList_ReturnsRows(t *testing.T) {
	app, mock := setupApp(t)

	mock.ExpectQuery("SELECT id, name, description FROM category").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}).
			AddRow(int64(1), "Books", nil))

	resp := doJSON(t, app, "GET", "/categories", viewerToken(t), "")
	require.Equal(t, 200, resp.StatusCode)

	status, envelope := decodeEnvelope(t, resp)
	require.Equal(t, "success", status)
	rows := envelope["data"].([]any)
	require.Len(t, rows, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NonNumericIDIsNotFound(t *testing.T) {
	app, mock := setupApp(t)

	resp := doJSON(t, app, "GET", "/categories/abc", viewerToken(t), "")
	require.Equal(t, 404, resp.StatusCode)

	_, envelope := decodeEnvelope(t, resp)
	errObj := envelope["error"].(map[string]any)
	require.Equal(t, "Record not found", errObj["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}

// Validation failures are rejected before any storage work happens.
func TestCreate_ValidationCollectsAllErrors(t *testing.T) {
	app, mock := setupApp(t)

	body := `{"sku":"WID-1","name":"Widget","quantity":-1,"price":-5,"category_id":1}`
	resp := doJSON(t, app, "POST", "/inventory", viewerToken(t), body)
	require.Equal(t, 400, resp.StatusCode)

	_, envelope := decodeEnvelope(t, resp)
	errObj := envelope["error"].(map[string]any)
	require.Equal(t, "VALIDATION_ERROR", errObj["code"])
	msg := errObj["message"].(string)
	require.Contains(t, msg, `"quantity"`)
	require.Contains(t, msg, `"price"`)
	require.Contains(t, msg, "; ")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_Success(t *testing.T) {
	app, mock := setupApp(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO category").
		WithArgs("Books").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}).
			AddRow(int64(3), "Books", nil))
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	resp := doJSON(t, app, "POST", "/categories", viewerToken(t), `{"name":"Books"}`)
	require.Equal(t, 201, resp.StatusCode)

	status, envelope := decodeEnvelope(t, resp)
	require.Equal(t, "success", status)
	data := envelope["data"].(map[string]any)
	require.Equal(t, "Books", data["name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_InternalEntityIsReadOnly(t *testing.T) {
	app, mock := setupApp(t)

	resp := doJSON(t, app, "POST", "/auditlogs", viewerToken(t), `{"entity":"x"}`)
	require.Equal(t, 403, resp.StatusCode)

	_, envelope := decodeEnvelope(t, resp)
	errObj := envelope["error"].(map[string]any)
	require.Equal(t, "FORBIDDEN", errObj["code"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_RequiresAdminRole(t *testing.T) {
	app, mock := setupApp(t)

	resp := doJSON(t, app, "DELETE", "/categories/3", viewerToken(t), "")
	require.Equal(t, 403, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_AdminSucceeds(t *testing.T) {
	app, mock := setupApp(t)

	mock.ExpectQuery("SELECT id, name, description FROM category").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}).
			AddRow(int64(3), "Books", nil))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM category").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	resp := doJSON(t, app, "DELETE", "/categories/3", adminToken(t), "")
	require.Equal(t, 204, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateOnly(t *testing.T) {
	app, _ := setupApp(t)

	resp := doJSON(t, app, "POST", "/validation/inventory", viewerToken(t),
		`{"data":{"sku":"WID-1","name":"Widget","quantity":-1,"price":9.99,"category_id":1}}`)
	require.Equal(t, 200, resp.StatusCode)

	_, envelope := decodeEnvelope(t, resp)
	data := envelope["data"].(map[string]any)
	require.Equal(t, false, data["valid"])
	require.NotEmpty(t, data["errors"])

	resp = doJSON(t, app, "POST", "/validation/inventory", viewerToken(t),
		`{"sku":"WID-1","name":"Widget","quantity":5,"price":9.99,"category_id":1}`)
	require.Equal(t, 200, resp.StatusCode)

	_, envelope = decodeEnvelope(t, resp)
	data = envelope["data"].(map[string]any)
	require.Equal(t, true, data["valid"])
	require.NotNil(t, data["data"])
}

func TestImport_RequiresAdminRole(t *testing.T) {
	app, mock := setupApp(t)

	body := `{"source":"legacy","target":"categories","options":{"records":[]}}`
	resp := doJSON(t, app, "POST", "/migration/import", viewerToken(t), body)
	require.Equal(t, 403, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImport_AdminSucceeds(t *testing.T) {
	app, mock := setupApp(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO category").
		WithArgs("Books").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}).
			AddRow(int64(1), "Books", nil))
	mock.ExpectExec("INSERT INTO migration_tracking").
		WithArgs("cat-1", int64(1), "Category", "completed").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	body := `{"source":"legacy_categories","target":"categories","options":{"records":[{"legacy_id":"cat-1","name":"Books"}]}}`
	resp := doJSON(t, app, "POST", "/migration/import", adminToken(t), body)
	require.Equal(t, 200, resp.StatusCode)

	status, envelope := decodeEnvelope(t, resp)
	require.Equal(t, "success", status)
	data := envelope["data"].(map[string]any)
	require.Equal(t, float64(1), data["imported"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImport_MissingSourceOrTarget(t *testing.T) {
	app, _ := setupApp(t)

	resp := doJSON(t, app, "POST", "/migration/import", adminToken(t), `{"source":"legacy"}`)
	require.Equal(t, 400, resp.StatusCode)

	_, envelope := decodeEnvelope(t, resp)
	errObj := envelope["error"].(map[string]any)
	require.Equal(t, "VALIDATION_ERROR", errObj["code"])
}

func TestExport_WithWhereAndFilter(t *testing.T) {
	app, mock := setupApp(t)

	mock.ExpectQuery("SELECT id, name, description FROM category WHERE name =").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}).
			AddRow(int64(1), "Books", "keep").
			AddRow(int64(2), "Books", nil))
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(1, 1))

	body := `{"source":"categories","options":{"where":{"name":"Books"},"filter":"description != nil"}}`
	resp := doJSON(t, app, "POST", "/migration/export", adminToken(t), body)
	require.Equal(t, 200, resp.StatusCode)

	status, envelope := decodeEnvelope(t, resp)
	require.Equal(t, "success", status)
	data := envelope["data"].(map[string]any)
	require.Equal(t, float64(1), data["exported"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExport_UnknownFilterField(t *testing.T) {
	app, _ := setupApp(t)

	body := `{"source":"categories","options":{"where":{"color":"red"}}}`
	resp := doJSON(t, app, "POST", "/migration/export", adminToken(t), body)
	require.Equal(t, 400, resp.StatusCode)

	_, envelope := decodeEnvelope(t, resp)
	errObj := envelope["error"].(map[string]any)
	require.Contains(t, errObj["message"], "Unknown filter field")
}
