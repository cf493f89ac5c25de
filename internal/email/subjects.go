package email

const (
	subjectLeadInvitationFmt = "%s invited you to review the %s FDD"
	subjectTeamInvitationFmt = "You're invited to join %s on FDDHub"
	subjectSalesEligibleFmt  = "%s is now sales eligible"
)
