package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"github.com/nimbusiot/iot-dashboard-backend/internal/apperrors"
	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"github.com/nimbusiot/iot-dashboard-backend/internal/services/access_key"
	"github.com/nimbusiot/iot-dashboard-backend/internal/utils"
)

// verifyRequest is the body shape shared by the external endpoints. Handlers
// re-bind the same cached body for their own fields.
type verifyRequest struct {
	ProjectID uint   `json:"project_id"`
	Client    string `json:"access_key_client"`
	Secret    string `json:"access_key_secret"`

	// batch form
	Pairs []models.AccessKeyCredentials `json:"access_key_array"`
}

// AccessKeyAuthMiddleware authenticates external callers by their access key
// pair instead of a user session.
type AccessKeyAuthMiddleware struct {
	accessKeyService *access_key.Service
}

// NewAccessKeyAuthMiddleware creates a new access key auth middleware
func NewAccessKeyAuthMiddleware(accessKeyService *access_key.Service) *AccessKeyAuthMiddleware {
	return &AccessKeyAuthMiddleware{accessKeyService: accessKeyService}
}

// VerifyAccessKey authenticates a single client/secret pair from the request
// body and sets the verified key in context. The pair's last use time is
// recorded on success.
func (m *AccessKeyAuthMiddleware) VerifyAccessKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyRequest
		if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid request body",
			})
			c.Abort()
			return
		}

		if req.ProjectID == 0 || req.Client == "" || req.Secret == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "project_id, access_key_client, and access_key_secret are required",
			})
			c.Abort()
			return
		}

		key, err := m.accessKeyService.VerifyPair(req.ProjectID, req.Client, req.Secret)
		if err != nil {
			m.renderVerifyError(c, err)
			return
		}

		m.accessKeyService.TouchLastUsed(key.ID)

		c.Set("verified_access_key", key)
		c.Set("parsed_project_id", req.ProjectID)
		c.Next()
	}
}

// VerifyAccessKeyBatch authenticates an array of pairs. At least one pair
// must verify; the verified subset is set in context along with the per-pair
// outcomes.
func (m *AccessKeyAuthMiddleware) VerifyAccessKeyBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyRequest
		if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid request body",
			})
			c.Abort()
			return
		}

		if req.ProjectID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "project_id is required",
			})
			c.Abort()
			return
		}

		results, verified, err := m.accessKeyService.VerifyBatch(req.ProjectID, req.Pairs)
		if err != nil {
			m.renderVerifyError(c, err)
			return
		}

		for _, key := range verified {
			m.accessKeyService.TouchLastUsed(key.ID)
		}

		c.Set("verified_access_key", verified[0])
		c.Set("verified_access_keys", verified)
		c.Set("verification_results", results)
		c.Set("parsed_project_id", req.ProjectID)
		c.Next()
	}
}

// VerifyCredentials authenticates either credential shape: a body carrying
// access_key_array takes the batch path, anything else the single-pair path.
func (m *AccessKeyAuthMiddleware) VerifyCredentials() gin.HandlerFunc {
	single := m.VerifyAccessKey()
	batch := m.VerifyAccessKeyBatch()
	return func(c *gin.Context) {
		var req verifyRequest
		if err := c.ShouldBindBodyWith(&req, binding.JSON); err == nil && len(req.Pairs) > 0 {
			batch(c)
			return
		}
		single(c)
	}
}

// ValidateDomain enforces the verified key's domain scope against the
// caller's origin. Must run after VerifyAccessKey; a key with zero domain
// rows is unrestricted.
func (m *AccessKeyAuthMiddleware) ValidateDomain() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("verified_access_key")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Access key not verified",
			})
			c.Abort()
			return
		}
		key := value.(*models.AccessKey)

		if len(key.Domains) == 0 {
			c.Next()
			return
		}

		allowed := make([]string, 0, len(key.Domains))
		for _, d := range key.Domains {
			allowed = append(allowed, utils.Hostname(d.DomainName))
		}

		origin := utils.ExtractOrigin(c.Request)
		if origin == "" {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Domain validation failed: No domain found in request",
			})
			c.Abort()
			return
		}

		requestDomain := utils.Hostname(origin)
		for _, name := range allowed {
			if name == requestDomain {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"success":          false,
			"message":          "Domain not allowed for this access key",
			"requested_domain": requestDomain,
			"allowed_domains":  allowed,
		})
		c.Abort()
	}
}

// CheckDeviceScope rejects requests naming devices outside the verified
// key's device scope. A key with zero device rows is unrestricted.
func CheckDeviceScope(key *models.AccessKey, deviceIDs []uint) error {
	disallowed := key.DisallowedDevices(deviceIDs)
	if len(disallowed) > 0 {
		return apperrors.Forbidden("Access key does not allow the requested devices").
			WithDetails(map[string]interface{}{"disallowed_devices": disallowed})
	}
	return nil
}

func (m *AccessKeyAuthMiddleware) renderVerifyError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logrus.Errorf("Access key verification failed: %v", err)
		c.JSON(status, gin.H{
			"success": false,
			"message": "Failed to verify access keys",
		})
		c.Abort()
		return
	}

	body := gin.H{
		"success": false,
		"message": apperrors.Message(err),
	}
	for k, v := range apperrors.Details(err) {
		body[k] = v
	}
	c.JSON(status, body)
	c.Abort()
}
