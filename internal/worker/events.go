package worker

type IndexTaskPayload struct {
	UserID        string `json:"user_id"`
	CorrelationID string `json:"correlation_id"`
}
