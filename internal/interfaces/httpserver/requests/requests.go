package requests

type CreateCaseRequest struct {
	MessageID uint   `json:"message_id" binding:"required"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	Priority  string `json:"priority"`
}

type UpdateCaseStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AnalysisRequest is the write-back payload of the analysis collaborator.
type AnalysisRequest struct {
	Urgency   *int   `json:"urgency"`
	Sentiment string `json:"sentiment"`
}
