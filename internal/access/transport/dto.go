package transport

import "time"

type ConsentRequest struct {
	FranchiseID   string `json:"franchiseId" validate:"omitempty,uuid"`
	FranchiseSlug string `json:"franchiseSlug" validate:"omitempty,max=200"`
}

type Item23Request struct {
	FranchiseID      string `json:"franchiseId" validate:"omitempty,uuid"`
	FranchiseSlug    string `json:"franchiseSlug" validate:"omitempty,max=200"`
	SignatureDataURL string `json:"signatureDataUrl" validate:"required"`
}

type AccessResponse struct {
	ID              string     `json:"id"`
	BuyerID         string     `json:"buyerId"`
	FranchiseID     string     `json:"franchiseId"`
	Status          string     `json:"status"`
	GrantedVia      string     `json:"grantedVia"`
	ConsentGivenAt  *time.Time `json:"consentGivenAt"`
	Item23SignedAt  *time.Time `json:"item23SignedAt"`
	ReceiptSignedAt *time.Time `json:"receiptSignedAt"`
}

type ConsentResponse struct {
	Success bool           `json:"success"`
	Access  AccessResponse `json:"access"`
}

type Item23Response struct {
	Success      bool           `json:"success"`
	SignatureURL string         `json:"signatureUrl"`
	Access       AccessResponse `json:"access"`
}

type ComplianceResponse struct {
	ReceiptSignedAt *time.Time `json:"receiptSignedAt"`
	EligibleAt      *time.Time `json:"eligibleAt"`
	DaysRemaining   int        `json:"daysRemaining"`
	SalesEligible   bool       `json:"salesEligible"`
}
