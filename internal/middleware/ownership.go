package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/nimbusiot/iot-dashboard-backend/internal/apperrors"
	"github.com/nimbusiot/iot-dashboard-backend/internal/database/repository"
)

// IDSource declares where the resource id is read from
type IDSource string

const (
	SourceParam IDSource = "param"
	SourceQuery IDSource = "query"
	SourceBody  IDSource = "body"
)

var sourceLabels = map[IDSource]string{
	SourceParam: "parameter",
	SourceQuery: "query parameter",
	SourceBody:  "field",
}

// OwnedResource names a resource type registered with the ownership guard
type OwnedResource string

const (
	ResourceProject   OwnedResource = "project"
	ResourceAccessKey OwnedResource = "accessKey"
	ResourceDataTable OwnedResource = "dataTable"
	ResourceWidget    OwnedResource = "widget"
	ResourceShare     OwnedResource = "sharedDashboard"
)

// ownershipResolver loads a resource by id and walks the ownership chain up
// to the owning user. On success it attaches the resource and parsed id to
// the call context so handlers do not repeat the lookup.
type ownershipResolver struct {
	idField string
	resolve func(db *gorm.DB, c *gin.Context, id uint) (ownerID uint, err error)
}

// resolvers is the ownership table. Adding a new ownership-checked resource
// type means adding an entry here, not new control flow.
var resolvers = map[OwnedResource]ownershipResolver{
	ResourceProject: {
		idField: "project_id",
		resolve: func(db *gorm.DB, c *gin.Context, id uint) (uint, error) {
			project, err := repository.NewProjectRepository(db).GetByID(id)
			if err != nil {
				return 0, err
			}
			if project == nil {
				return 0, apperrors.NotFound("Project not found")
			}
			c.Set("project", project)
			c.Set("parsed_project_id", id)
			return project.UserID, nil
		},
	},
	ResourceAccessKey: {
		idField: "access_key_id",
		resolve: func(db *gorm.DB, c *gin.Context, id uint) (uint, error) {
			key, err := repository.NewAccessKeyRepository(db).GetByIDWithScope(id)
			if err != nil {
				return 0, err
			}
			if key == nil {
				return 0, apperrors.NotFound("Access key not found")
			}
			project, err := repository.NewProjectRepository(db).GetByID(key.ProjectID)
			if err != nil {
				return 0, err
			}
			if project == nil {
				return 0, apperrors.NotFound("Access key project not found")
			}
			c.Set("access_key", key)
			c.Set("project", project)
			c.Set("parsed_access_key_id", id)
			return project.UserID, nil
		},
	},
	ResourceDataTable: {
		idField: "tbl_id",
		resolve: func(db *gorm.DB, c *gin.Context, id uint) (uint, error) {
			table, err := repository.NewDataTableRepository(db).GetByID(id)
			if err != nil {
				return 0, err
			}
			if table == nil {
				return 0, apperrors.NotFound("Datatable not found")
			}
			project, err := repository.NewProjectRepository(db).GetByID(table.ProjectID)
			if err != nil {
				return 0, err
			}
			if project == nil {
				return 0, apperrors.NotFound("Datatable project not found")
			}
			c.Set("data_table", table)
			c.Set("project", project)
			c.Set("parsed_tbl_id", id)
			return project.UserID, nil
		},
	},
	ResourceWidget: {
		idField: "widget_id",
		resolve: func(db *gorm.DB, c *gin.Context, id uint) (uint, error) {
			widget, err := repository.NewWidgetRepository(db).GetByID(id)
			if err != nil {
				return 0, err
			}
			if widget == nil {
				return 0, apperrors.NotFound("Widget not found")
			}
			project, err := repository.NewProjectRepository(db).GetByID(widget.ProjectID)
			if err != nil {
				return 0, err
			}
			if project == nil {
				return 0, apperrors.NotFound("Widget project not found")
			}
			c.Set("widget", widget)
			c.Set("project", project)
			c.Set("parsed_widget_id", id)
			return project.UserID, nil
		},
	},
	ResourceShare: {
		idField: "share_id",
		resolve: func(db *gorm.DB, c *gin.Context, id uint) (uint, error) {
			dashboard, err := repository.NewSharedDashboardRepository(db).GetByID(id)
			if err != nil {
				return 0, err
			}
			if dashboard == nil {
				return 0, apperrors.NotFound("Shared dashboard not found")
			}
			project, err := repository.NewProjectRepository(db).GetByID(dashboard.ProjectID)
			if err != nil {
				return 0, err
			}
			if project == nil {
				return 0, apperrors.NotFound("Shared dashboard project not found")
			}
			c.Set("shared_dashboard", dashboard)
			c.Set("project", project)
			c.Set("parsed_share_id", id)
			return project.UserID, nil
		},
	},
}

// OwnershipMiddleware gates resource access on the authenticated user owning
// the resource, walking the chain resource -> project -> user.
type OwnershipMiddleware struct {
	db *gorm.DB
}

// NewOwnershipMiddleware creates a new ownership middleware
func NewOwnershipMiddleware(db *gorm.DB) *OwnershipMiddleware {
	return &OwnershipMiddleware{db: db}
}

// RequireOwnership returns a middleware verifying that the authenticated
// user owns the resource named by the declared id field. Unknown resource
// types fail at route registration, not per request.
func (m *OwnershipMiddleware) RequireOwnership(resource OwnedResource, source IDSource) gin.HandlerFunc {
	handler, ok := resolvers[resource]
	if !ok {
		panic(fmt.Sprintf("invalid ownership resource: %s", resource))
	}
	label, ok := sourceLabels[source]
	if !ok {
		panic(fmt.Sprintf("invalid id source: %s", source))
	}

	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication required",
			})
			c.Abort()
			return
		}

		rawID := m.rawID(c, source, handler.idField)
		if rawID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": fmt.Sprintf("Missing required %s: %s", label, handler.idField),
			})
			c.Abort()
			return
		}

		parsedID, err := strconv.ParseUint(rawID, 10, 32)
		if err != nil || parsedID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": fmt.Sprintf("Invalid %s: must be a positive integer", handler.idField),
			})
			c.Abort()
			return
		}

		ownerID, err := handler.resolve(m.db, c, uint(parsedID))
		if err != nil {
			if apperrors.Is(err, apperrors.KindNotFound) {
				c.JSON(http.StatusNotFound, gin.H{
					"success": false,
					"message": apperrors.Message(err),
				})
			} else {
				logrus.Errorf("Ownership check failed for %s %d: %v", resource, parsedID, err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Failed to verify resource ownership",
				})
			}
			c.Abort()
			return
		}

		if ownerID != userID.(uint) {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": fmt.Sprintf("Forbidden: You do not own this %s", resource),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// rawID extracts the raw id value from the declared source. Body extraction
// uses the cached-body binding so handlers can still bind the payload.
func (m *OwnershipMiddleware) rawID(c *gin.Context, source IDSource, field string) string {
	switch source {
	case SourceParam:
		return c.Param(field)
	case SourceQuery:
		return c.Query(field)
	case SourceBody:
		var body map[string]interface{}
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
			return ""
		}
		switch v := body[field].(type) {
		case float64:
			return strconv.FormatUint(uint64(v), 10)
		case string:
			return v
		default:
			return ""
		}
	}
	return ""
}
