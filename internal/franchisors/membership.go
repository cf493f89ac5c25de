package franchisors

import (
	"context"
	"net/http"

	"fddhub/internal/franchisors/repository"
	"fddhub/platform/apperr"
	"fddhub/platform/httpkit"
	"fddhub/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgNotAssociated = "Not associated with any franchisor"

// MembershipResolver finds the franchisor a user acts for.
type MembershipResolver interface {
	ResolveMembership(ctx context.Context, userID uuid.UUID) (repository.Membership, error)
}

// RequireMembership resolves the caller's franchisor and stores it as the
// tenant for downstream handlers. Callers with no franchisor get 403.
func RequireMembership(resolver MembershipResolver, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := httpkit.MustGetIdentity(c)
		if identity == nil {
			return
		}

		membership, err := resolver.ResolveMembership(c.Request.Context(), identity.UserID())
		if err != nil {
			if !apperr.Is(err, apperr.KindNotFound) {
				log.WithContext(c.Request.Context()).WithUserID(identity.UserID().String()).DatabaseError("franchisors.resolve_membership", err)
				httpkit.Error(c, http.StatusInternalServerError, "internal server error", nil)
				c.Abort()
				return
			}
			httpkit.Error(c, http.StatusForbidden, msgNotAssociated, nil)
			c.Abort()
			return
		}

		c.Set(httpkit.ContextTenantIDKey, membership.FranchisorID)
		c.Set(httpkit.ContextMemberRoleKey, membership.Role)
		c.Next()
	}
}
