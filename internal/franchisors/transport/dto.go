package transport

type FranchiseResponse struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Slug    string  `json:"slug"`
	LogoURL *string `json:"logoUrl,omitempty"`
}

type ProfileResponse struct {
	ID          string              `json:"id"`
	CompanyName string              `json:"companyName"`
	LogoURL     *string             `json:"logoUrl,omitempty"`
	Role        string              `json:"role"`
	Franchises  []FranchiseResponse `json:"franchises"`
}
