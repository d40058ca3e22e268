package v1

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/xiaot623/rolo/internal/domain"
)

func TestListTools(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)
	c, rec := newJSONContext(e, http.MethodGet, "/v1/tools", nil)

	assert.NoError(t, h.ListTools(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp domain.ListToolsResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	names := map[string]domain.Classification{}
	for _, tool := range resp.Tools {
		names[tool.Name] = tool.Classification
		assert.Equal(t, "object", tool.Parameters.Type)
	}
	assert.Equal(t, domain.ClassificationSQL, names["execute_sql"])
	assert.Equal(t, domain.ClassificationRead, names["search_contacts"])
}

func TestInvokeTool(t *testing.T) {
	e := echo.New()
	handler, fx := newTestHandler(t)

	invoke := func(tool string, args map[string]interface{}) domain.ToolCallResult {
		c, rec := newJSONContext(e, http.MethodPost, "/v1/tools/"+tool+"/invoke", domain.ToolInvokeRequest{Args: args})
		c.SetPath("/v1/tools/:tool_name/invoke")
		c.SetParamNames("tool_name")
		c.SetParamValues(tool)

		assert.NoError(t, handler.InvokeTool(c))
		assert.Equal(t, http.StatusOK, rec.Code) // tool failures are results, not HTTP errors

		var res domain.ToolCallResult
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		return res
	}

	t.Run("Create Contact Takes Backup", func(t *testing.T) {
		res := invoke("create_contact", map[string]interface{}{"first_name": "Ada", "last_name": "Lovelace"})
		assert.True(t, res.Success, res.Message)
		if assert.NotNil(t, res.BackupID) {
			assert.Equal(t, int64(1), *res.BackupID)
		}
	})

	t.Run("SQL Requires Confirmation", func(t *testing.T) {
		res := invoke("execute_sql", map[string]interface{}{"sql": "SELECT * FROM contacts"})
		assert.False(t, res.Success)
		assert.Equal(t, domain.ErrorKindConfirmationRequired, res.Error)
	})

	t.Run("SQL Injection Rejected", func(t *testing.T) {
		res := invoke("execute_sql", map[string]interface{}{"sql": "SELECT 1; DROP TABLE contacts", "confirm": true})
		assert.False(t, res.Success)
		assert.Equal(t, domain.ErrorKindSafetyRejected, res.Error)
	})

	t.Run("Unknown Tool", func(t *testing.T) {
		res := invoke("weather.query", nil)
		assert.Equal(t, domain.ErrorKindValidation, res.Error)
	})

	backups, err := fx.Backups.ListBackups(t.Context())
	assert.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestInvokeToolInvalidBody(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)
	c, rec := newJSONContext(e, http.MethodPost, "/v1/tools/list_tags/invoke", "not an object")
	c.SetParamNames("tool_name")
	c.SetParamValues("list_tags")

	assert.NoError(t, h.InvokeTool(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListBackups(t *testing.T) {
	e := echo.New()
	h, fx := newTestHandler(t)
	if _, err := fx.Backups.CreateBackup(t.Context(), "manual", false); err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	c, rec := newJSONContext(e, http.MethodGet, "/v1/backups", nil)
	assert.NoError(t, h.ListBackups(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp domain.ListBackupsResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	if assert.Len(t, resp.Backups, 1) {
		assert.False(t, resp.Backups[0].IsAuto)
		assert.Equal(t, "manual", resp.Backups[0].Comment)
	}
}
