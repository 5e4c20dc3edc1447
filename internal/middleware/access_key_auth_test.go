package middleware_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nimbusiot/iot-dashboard-backend/internal/middleware"
	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"github.com/nimbusiot/iot-dashboard-backend/internal/services/access_key"
)

func issueTestKey(t *testing.T, db *gorm.DB, projectID uint, domains []string) *models.IssuedAccessKey {
	t.Helper()
	svc := access_key.NewService(db)
	issued, err := svc.Issue(&models.CreateAccessKeyRequest{
		ProjectID: projectID,
		Name:      "external",
		Domains:   domains,
		ValidDays: 7,
	})
	require.NoError(t, err)
	return issued
}

func verifyRouter(db *gorm.DB, withDomainCheck bool) *gin.Engine {
	m := middleware.NewAccessKeyAuthMiddleware(access_key.NewService(db))

	r := gin.New()
	chain := []gin.HandlerFunc{m.VerifyAccessKey()}
	if withDomainCheck {
		chain = append(chain, m.ValidateDomain())
	}
	chain = append(chain, func(c *gin.Context) {
		key := c.MustGet("verified_access_key").(*models.AccessKey)
		c.JSON(http.StatusOK, gin.H{"success": true, "key_id": key.ID})
	})
	r.POST("/external", chain...)
	return r
}

func postJSON(r *gin.Engine, body string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/external", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestVerifyAccessKey(t *testing.T) {
	t.Run("Should verify a valid pair and expose the key", func(t *testing.T) {
		db := newTestDB(t)
		_, _, project := seedOwner(t, db)
		issued := issueTestKey(t, db, project.ID, nil)
		r := verifyRouter(db, false)

		body := fmt.Sprintf(
			`{"project_id": %d, "access_key_client": %q, "access_key_secret": %q}`,
			project.ID, issued.Client, issued.Secret)
		w := postJSON(r, body, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.EqualValues(t, issued.ID, resp["key_id"])

		// Use is recorded on successful verification.
		var key models.AccessKey
		require.NoError(t, db.First(&key, "access_key_id = ?", issued.ID).Error)
		assert.NotNil(t, key.LastUsedAt)
	})

	t.Run("Should reject a wrong pair", func(t *testing.T) {
		db := newTestDB(t)
		_, _, project := seedOwner(t, db)
		issueTestKey(t, db, project.ID, nil)
		r := verifyRouter(db, false)

		body := fmt.Sprintf(
			`{"project_id": %d, "access_key_client": "wrong", "access_key_secret": "wrong"}`,
			project.ID)
		w := postJSON(r, body, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Should require all credential fields", func(t *testing.T) {
		db := newTestDB(t)
		r := verifyRouter(db, false)

		w := postJSON(r, `{"project_id": 1}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should reject a malformed body", func(t *testing.T) {
		db := newTestDB(t)
		r := verifyRouter(db, false)

		w := postJSON(r, `not json`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestValidateDomain(t *testing.T) {
	t.Run("Should pass an unrestricted key without an origin", func(t *testing.T) {
		db := newTestDB(t)
		_, _, project := seedOwner(t, db)
		issued := issueTestKey(t, db, project.ID, nil)
		r := verifyRouter(db, true)

		body := fmt.Sprintf(
			`{"project_id": %d, "access_key_client": %q, "access_key_secret": %q}`,
			project.ID, issued.Client, issued.Secret)
		w := postJSON(r, body, nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Should pass a matching origin", func(t *testing.T) {
		db := newTestDB(t)
		_, _, project := seedOwner(t, db)
		issued := issueTestKey(t, db, project.ID, []string{"https://allowed.example.com"})
		r := verifyRouter(db, true)

		body := fmt.Sprintf(
			`{"project_id": %d, "access_key_client": %q, "access_key_secret": %q}`,
			project.ID, issued.Client, issued.Secret)
		w := postJSON(r, body, map[string]string{"Origin": "https://allowed.example.com"})

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Should match bare domain rows against the origin hostname", func(t *testing.T) {
		db := newTestDB(t)
		_, _, project := seedOwner(t, db)
		issued := issueTestKey(t, db, project.ID, []string{"allowed.example.com"})
		r := verifyRouter(db, true)

		body := fmt.Sprintf(
			`{"project_id": %d, "access_key_client": %q, "access_key_secret": %q}`,
			project.ID, issued.Client, issued.Secret)
		w := postJSON(r, body, map[string]string{"Origin": "https://allowed.example.com"})

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Should reject a mismatched origin with the allowed list", func(t *testing.T) {
		db := newTestDB(t)
		_, _, project := seedOwner(t, db)
		issued := issueTestKey(t, db, project.ID, []string{"allowed.example.com"})
		r := verifyRouter(db, true)

		body := fmt.Sprintf(
			`{"project_id": %d, "access_key_client": %q, "access_key_secret": %q}`,
			project.ID, issued.Client, issued.Secret)
		w := postJSON(r, body, map[string]string{"Origin": "https://evil.example.com"})

		assert.Equal(t, http.StatusForbidden, w.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "evil.example.com", resp["requested_domain"])
		assert.Contains(t, resp["allowed_domains"], "allowed.example.com")
	})

	t.Run("Should reject a restricted key with no derivable origin", func(t *testing.T) {
		db := newTestDB(t)
		_, _, project := seedOwner(t, db)
		issued := issueTestKey(t, db, project.ID, []string{"allowed.example.com"})
		r := verifyRouter(db, true)

		body := fmt.Sprintf(
			`{"project_id": %d, "access_key_client": %q, "access_key_secret": %q}`,
			project.ID, issued.Client, issued.Secret)
		w := postJSON(r, body, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Should fall back to the Referer header", func(t *testing.T) {
		db := newTestDB(t)
		_, _, project := seedOwner(t, db)
		issued := issueTestKey(t, db, project.ID, []string{"allowed.example.com"})
		r := verifyRouter(db, true)

		body := fmt.Sprintf(
			`{"project_id": %d, "access_key_client": %q, "access_key_secret": %q}`,
			project.ID, issued.Client, issued.Secret)
		w := postJSON(r, body, map[string]string{"Referer": "https://allowed.example.com/dashboard"})

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestVerifyAccessKeyBatch(t *testing.T) {
	batchRouter := func(db *gorm.DB) *gin.Engine {
		m := middleware.NewAccessKeyAuthMiddleware(access_key.NewService(db))
		r := gin.New()
		r.POST("/external", m.VerifyAccessKeyBatch(), func(c *gin.Context) {
			verified := c.MustGet("verified_access_keys").([]*models.AccessKey)
			c.JSON(http.StatusOK, gin.H{"success": true, "verified_count": len(verified)})
		})
		return r
	}

	t.Run("Should proceed with the verified subset", func(t *testing.T) {
		db := newTestDB(t)
		_, _, project := seedOwner(t, db)
		issued := issueTestKey(t, db, project.ID, nil)
		r := batchRouter(db)

		body := fmt.Sprintf(
			`{"project_id": %d, "access_key_array": [
				{"access_key_client": %q, "access_key_secret": %q},
				{"access_key_client": "bogus", "access_key_secret": "bogus"}
			]}`, project.ID, issued.Client, issued.Secret)
		w := postJSON(r, body, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.EqualValues(t, 1, resp["verified_count"])
	})

	t.Run("Should fail when nothing verifies", func(t *testing.T) {
		db := newTestDB(t)
		_, _, project := seedOwner(t, db)
		r := batchRouter(db)

		body := fmt.Sprintf(
			`{"project_id": %d, "access_key_array": [
				{"access_key_client": "bogus", "access_key_secret": "bogus"}
			]}`, project.ID)
		w := postJSON(r, body, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Should require at least one pair", func(t *testing.T) {
		db := newTestDB(t)
		_, _, project := seedOwner(t, db)
		r := batchRouter(db)

		body := fmt.Sprintf(`{"project_id": %d, "access_key_array": []}`, project.ID)
		w := postJSON(r, body, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestVerifyCredentials(t *testing.T) {
	credentialsRouter := func(db *gorm.DB) *gin.Engine {
		m := middleware.NewAccessKeyAuthMiddleware(access_key.NewService(db))
		r := gin.New()
		r.POST("/external", m.VerifyCredentials(), func(c *gin.Context) {
			batch := 0
			if verified, ok := c.Get("verified_access_keys"); ok {
				batch = len(verified.([]*models.AccessKey))
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "batch_count": batch})
		})
		return r
	}

	t.Run("Should take the single pair path", func(t *testing.T) {
		db := newTestDB(t)
		_, _, project := seedOwner(t, db)
		issued := issueTestKey(t, db, project.ID, nil)
		r := credentialsRouter(db)

		body := fmt.Sprintf(
			`{"project_id": %d, "access_key_client": %q, "access_key_secret": %q}`,
			project.ID, issued.Client, issued.Secret)
		w := postJSON(r, body, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.EqualValues(t, 0, resp["batch_count"])
	})

	t.Run("Should dispatch a body carrying access_key_array to the batch path", func(t *testing.T) {
		db := newTestDB(t)
		_, _, project := seedOwner(t, db)
		issued := issueTestKey(t, db, project.ID, nil)
		r := credentialsRouter(db)

		body := fmt.Sprintf(
			`{"project_id": %d, "access_key_array": [
				{"access_key_client": %q, "access_key_secret": %q}
			]}`, project.ID, issued.Client, issued.Secret)
		w := postJSON(r, body, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.EqualValues(t, 1, resp["batch_count"])
	})

	t.Run("Should reject a malformed body", func(t *testing.T) {
		db := newTestDB(t)
		r := credentialsRouter(db)

		w := postJSON(r, `not json`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
