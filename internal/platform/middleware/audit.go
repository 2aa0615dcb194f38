package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/domain/audit"
	"github.com/careflow/careflow/internal/platform/auth"
)

// Recorder is what the access-audit middleware needs from the audit
// subsystem. Reads are recorded in non-strict mode: a failed write must
// never block clinical flow.
type Recorder interface {
	Record(ctx context.Context, ev *audit.Event, strict bool) error
}

// AccessAudit records who read which clinical resource. Mutations are
// audited by the journey orchestrator itself (strict mode); this middleware
// only covers reads, so it skips everything but GET.
func AccessAudit(logger zerolog.Logger, recorder Recorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet || !isAuditablePath(req.URL.Path) {
				return next(c)
			}

			err := next(c)

			ctx := req.Context()
			rid, _ := c.Get("request_id").(string)

			ev := &audit.Event{
				Action:             "record_viewed",
				EntityType:         resourceFromPath(req.URL.Path),
				ActorRole:          firstRole(auth.RolesFromContext(ctx)),
				FacilityID:         auth.FacilityFromContext(ctx),
				Sensitivity:        audit.SensitivityRoutine,
				ComplianceCategory: audit.CategoryAccess,
				Recorded:           time.Now().UTC(),
			}
			if uid, parseErr := uuid.Parse(auth.UserIDFromContext(ctx)); parseErr == nil {
				ev.ActorID = &uid
			}
			if eid, parseErr := uuid.Parse(c.Param("id")); parseErr == nil {
				ev.EntityID = eid
			}

			if recErr := recorder.Record(ctx, ev, false); recErr != nil {
				logger.Error().Err(recErr).Str("request_id", rid).Msg("access audit failed")
			}

			logger.Info().
				Str("type", "access_audit").
				Str("request_id", rid).
				Str("actor_id", auth.UserIDFromContext(ctx)).
				Strs("roles", auth.RolesFromContext(ctx)).
				Str("resource", ev.EntityType).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Msg("record_access")

			return err
		}
	}
}

func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/")
}

// resourceFromPath parses the resource segment: /api/v1/visits/123 -> visits.
func resourceFromPath(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	if len(segments) > 0 && segments[0] != "" {
		return segments[0]
	}
	return "unknown"
}

func firstRole(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	return roles[0]
}
