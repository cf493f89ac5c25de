package transport

type ChatRequest struct {
	FranchiseID      string         `json:"franchiseId"`
	FranchiseName    string         `json:"franchiseName" validate:"required,max=200"`
	Question         string         `json:"question" validate:"required,max=2000"`
	FDDTextContent   string         `json:"fddTextContent"`
	FranchiseContext string         `json:"franchiseContext" validate:"max=5000"`
	FDDPageMapping   map[string]int `json:"fddPageMapping"`
}

type SourceResponse struct {
	Item int  `json:"item"`
	Page *int `json:"page,omitempty"`
}

type ChatResponse struct {
	Answer        string          `json:"answer"`
	Source        *SourceResponse `json:"source"`
	RelevantItems []int           `json:"relevantItems"`
}
