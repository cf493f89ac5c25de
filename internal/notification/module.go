// Package notification turns domain events into emails and in-app
// notifications for buyers and franchisor teams, and runs the
// sales-eligibility scan.
package notification

import (
	"context"
	"fmt"
	"strings"

	accesssvc "fddhub/internal/access/service"
	"fddhub/internal/email"
	"fddhub/internal/events"
	apphttp "fddhub/internal/http"
	"fddhub/internal/notification/eligibility"
	notifhandler "fddhub/internal/notification/handler"
	"fddhub/internal/notification/inapp"
	"fddhub/internal/notification/recipients"
	"fddhub/internal/notification/sse"
	"fddhub/platform/cache"
	"fddhub/platform/config"
	"fddhub/platform/httpkit"
	"fddhub/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const expiresOnLayout = "January 2, 2006"

// Module handles all notification-related event subscriptions.
type Module struct {
	sender       email.Sender
	directory    recipients.Directory
	inAppService *inapp.Service
	inAppHandler *notifhandler.HTTPHandler
	scanner      *eligibility.Scanner
	sse          *sse.Service
	log          *logger.Logger
}

// New creates the notification module backed by postgres. A nil locker
// disables cross-process locking of the eligibility scan.
func New(pool *pgxpool.Pool, sender email.Sender, cfg config.HubConfig, locker cache.Locker, log *logger.Logger) *Module {
	return newModule(
		inapp.NewRepository(pool),
		recipients.New(pool),
		eligibility.NewRepository(pool),
		sender, cfg.GetAppBaseURL(), locker, log,
	)
}

func newModule(store inapp.Store, directory recipients.Directory, source eligibility.CandidateSource, sender email.Sender, baseURL string, locker cache.Locker, log *logger.Logger) *Module {
	if locker == nil {
		locker = cache.NoopLocker{}
	}
	inAppSvc := inapp.NewService(store, log)
	sseSvc := sse.New(log)
	inAppSvc.SetSSE(sseSvc)
	scanner := eligibility.NewScanner(source, directory, inAppSvc, sender, locker, baseURL, log)

	return &Module{
		sender:       sender,
		directory:    directory,
		inAppService: inAppSvc,
		inAppHandler: notifhandler.NewHTTPHandler(inAppSvc, scanner),
		scanner:      scanner,
		sse:          sseSvc,
		log:          log,
	}
}

func (m *Module) Name() string {
	return "notification"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	notifications := ctx.Protected.Group("/notifications")
	m.inAppHandler.RegisterRoutes(notifications)

	ctx.Franchisor.GET("/notifications/stream", m.sse.Handler(userIDFromContext, franchisorIDFromContext))
	ctx.Franchisor.GET("/notifications/check-sales-eligible", m.inAppHandler.CheckSalesEligible)
	ctx.Franchisor.POST("/notifications/check-sales-eligible", m.inAppHandler.CheckSalesEligible)

	ctx.Admin.GET("/notifications/check-sales-eligible", m.inAppHandler.AdminCheckSalesEligible)
	ctx.Admin.POST("/notifications/check-sales-eligible", m.inAppHandler.AdminCheckSalesEligible)
}

// InAppService exposes the in-app notification service for integration points.
func (m *Module) InAppService() *inapp.Service { return m.inAppService }

// SSE exposes the live push service.
func (m *Module) SSE() *sse.Service { return m.sse }

// Scanner exposes the sales-eligibility scan to the scheduler.
func (m *Module) Scanner() *eligibility.Scanner { return m.scanner }

// RegisterHandlers subscribes to all relevant domain events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.InvitationSent{}.EventName(), m)
	bus.Subscribe(events.TeamMemberInvited{}.EventName(), m)
	bus.Subscribe(events.HighEngagementReached{}.EventName(), m)
	bus.Subscribe(events.ReceiptSigned{}.EventName(), m)
	bus.Subscribe(events.LeadStageChanged{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.InvitationSent:
		return m.handleInvitationSent(ctx, e)
	case events.TeamMemberInvited:
		return m.handleTeamMemberInvited(ctx, e)
	case events.HighEngagementReached:
		return m.handleHighEngagement(ctx, e)
	case events.ReceiptSigned:
		return m.handleReceiptSigned(ctx, e)
	case events.LeadStageChanged:
		m.sse.PublishToFranchisor(e.FranchisorID, sse.Event{
			Type:    sse.EventLeadUpdated,
			LeadID:  e.LeadID,
			Message: "Moved to " + e.ToStageName,
		})
		return nil
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleInvitationSent(ctx context.Context, e events.InvitationSent) error {
	err := m.sender.SendLeadInvitationEmail(ctx, e.LeadEmail, email.LeadInvitation{
		LeadName:      e.LeadName,
		FranchiseName: e.FranchiseName,
		CompanyName:   e.CompanyName,
		Message:       e.Message,
		InviteURL:     e.InvitationLink,
		ExpiresOn:     e.ExpiresAt.Format(expiresOnLayout),
	})
	if err != nil {
		m.log.SideEffectFailed("notification.invitation_email", err, "invitationId", e.InvitationID)
		return err
	}
	m.log.Info("lead invitation email sent", "invitationId", e.InvitationID)
	return nil
}

func (m *Module) handleTeamMemberInvited(ctx context.Context, e events.TeamMemberInvited) error {
	err := m.sender.SendTeamInvitationEmail(ctx, e.Email, email.TeamInvitation{
		FullName:    e.FullName,
		CompanyName: e.CompanyName,
		Role:        e.Role,
		InvitedBy:   e.InvitedBy,
		AcceptURL:   e.AcceptLink,
	})
	if err != nil {
		m.log.SideEffectFailed("notification.team_invitation_email", err, "memberId", e.MemberID)
		return err
	}
	return nil
}

func (m *Module) handleHighEngagement(ctx context.Context, e events.HighEngagementReached) error {
	lead, err := m.directory.LeadContext(ctx, e.BuyerID, e.FranchiseID)
	if err != nil {
		m.log.SideEffectFailed("notification.hot_lead", err, "buyerId", e.BuyerID)
		return err
	}

	minutes := e.TimeSpent / 60
	message := fmt.Sprintf("%s has spent %d minutes reviewing the %s FDD, viewed %d items and asked %d questions.",
		lead.LeadName, minutes, lead.FranchiseName, e.ViewedItems, e.QuestionCount)
	dedupeKey := e.BuyerID.String() + ":" + e.FranchiseID.String()

	return m.notifyTeam(ctx, lead, inapp.CreateParams{
		Type:    inapp.TypeHotLead,
		Title:   "Hot Lead: " + lead.LeadName,
		Message: message,
		Data: map[string]any{
			"buyer_id":       e.BuyerID,
			"franchise_id":   e.FranchiseID,
			"franchise_name": lead.FranchiseName,
			"time_spent":     e.TimeSpent,
			"viewed_items":   e.ViewedItems,
			"question_count": e.QuestionCount,
		},
		DedupeKey: &dedupeKey,
	})
}

func (m *Module) handleReceiptSigned(ctx context.Context, e events.ReceiptSigned) error {
	lead, err := m.directory.LeadContext(ctx, e.BuyerID, e.FranchiseID)
	if err != nil {
		m.log.SideEffectFailed("notification.receipt_signed", err, "accessId", e.AccessID)
		return err
	}

	eligibleAt := accesssvc.EligibleDate(e.SignedAt)
	message := fmt.Sprintf("%s signed the Item 23 receipt for %s. They become sales eligible on %s.",
		lead.LeadName, lead.FranchiseName, eligibleAt.Format(expiresOnLayout))
	dedupeKey := e.AccessID.String()

	return m.notifyTeam(ctx, lead, inapp.CreateParams{
		Type:    inapp.TypeReceiptSigned,
		Title:   "Receipt Signed: " + lead.LeadName,
		Message: message,
		Data: map[string]any{
			"access_id":         e.AccessID,
			"buyer_id":          e.BuyerID,
			"franchise_id":      e.FranchiseID,
			"receipt_signed_at": e.SignedAt,
			"eligible_at":       eligibleAt,
		},
		DedupeKey: &dedupeKey,
	})
}

// notifyTeam fans one notification out to every recipient of the lead's
// franchisor, stamping the lead id into the payload when known.
func (m *Module) notifyTeam(ctx context.Context, lead recipients.LeadContext, base inapp.CreateParams) error {
	users, err := m.directory.Recipients(ctx, lead.FranchisorID)
	if err != nil {
		return err
	}
	if lead.LeadID != nil {
		base.Data["lead_id"] = *lead.LeadID
	}
	franchisorID := lead.FranchisorID
	base.FranchisorID = &franchisorID

	var failed []string
	for _, u := range users {
		p := base
		p.UserID = u.UserID
		if _, err := m.inAppService.Send(ctx, p); err != nil {
			m.log.SideEffectFailed("notification."+p.Type, err, "userId", u.UserID)
			failed = append(failed, u.UserID.String())
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("notification %s failed for %s", base.Type, strings.Join(failed, ", "))
	}
	return nil
}

func userIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.GetIdentity(c)
	if !identity.IsAuthenticated() {
		return uuid.UUID{}, false
	}
	return identity.UserID(), true
}

func franchisorIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	tenantID := httpkit.GetIdentity(c).TenantID()
	if tenantID == nil {
		return uuid.UUID{}, false
	}
	return *tenantID, true
}
