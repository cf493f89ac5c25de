package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderLeadInvitation(t *testing.T) {
	subject, content, err := renderLeadInvitation(LeadInvitation{
		LeadName:      "Jane Doe",
		FranchiseName: "Sunny Tacos",
		CompanyName:   "Sunny Brands",
		Message:       "<script>x</script>Looking forward to it",
		InviteURL:     "https://app.test/hub/invite/abc",
	})
	require.NoError(t, err)

	assert.Equal(t, "Sunny Brands invited you to review the Sunny Tacos FDD", subject)
	assert.Contains(t, content, "Hi Jane Doe")
	assert.Contains(t, content, `href="https://app.test/hub/invite/abc"`)
	assert.NotContains(t, content, "<script>")
}

func TestRenderTeamAndSalesEligible(t *testing.T) {
	subject, content, err := renderTeamInvitation(TeamInvitation{FullName: "Sam", CompanyName: "Sunny Brands", Role: "recruiter", AcceptURL: "https://app.test/team/accept?token=t"})
	require.NoError(t, err)
	assert.Equal(t, "You're invited to join Sunny Brands on FDDHub", subject)
	assert.Contains(t, content, "recruiter")

	subject, content, err = renderSalesEligible(SalesEligible{LeadName: "Jane Doe", FranchiseName: "Sunny Tacos"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe is now sales eligible", subject)
	assert.Contains(t, content, "14-day FTC disclosure period")
}

func TestRenderLeadContact(t *testing.T) {
	subject, content, err := renderLeadContact(LeadContact{
		LeadName:    "Jane Doe",
		CompanyName: "Sunny Brands",
		SenderName:  "Sam Recruiter",
		SenderEmail: "sam@sunny.test",
		Subject:     "Next steps",
		Message:     "Thanks for your time.\r\n\r\n<b>Call me</b> this week.",
	})
	require.NoError(t, err)

	assert.Equal(t, "Next steps", subject)
	assert.Contains(t, content, "Hi Jane Doe")
	assert.Contains(t, content, "Thanks for your time.")
	assert.Contains(t, content, "&lt;b&gt;Call me&lt;/b&gt;")
	assert.Contains(t, content, `href="mailto:sam@sunny.test"`)
	assert.Contains(t, content, "Sam Recruiter")
}

func TestBrevoSenderPostsRenderedEmail(t *testing.T) {
	var got brevoEmailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-1", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sender := NewBrevoSender("key-1", "FDDHub", "hub@fddhub.test")
	sender.endpoint = srv.URL

	err := sender.SendSalesEligibleEmail(context.Background(), "owner@brand.test", SalesEligible{LeadName: "Jane", FranchiseName: "Sunny Tacos"})
	require.NoError(t, err)

	assert.Equal(t, "Jane is now sales eligible", got.Subject)
	assert.Equal(t, "hub@fddhub.test", got.Sender.Email)
	require.Len(t, got.To, 1)
	assert.Equal(t, "owner@brand.test", got.To[0].Email)
}

func TestBrevoSenderReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	sender := NewBrevoSender("wrong", "FDDHub", "hub@fddhub.test")
	sender.endpoint = srv.URL

	err := sender.SendCustomEmail(context.Background(), "a@b.test", "Hi", "<p>Hi</p>")
	assert.ErrorContains(t, err, "status 401")
}
