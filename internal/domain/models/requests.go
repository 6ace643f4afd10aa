package models

// PredictRequest is the POST /ml/predict body. StudentID is a pointer so a
// missing field can be told apart from an explicit 0.
type PredictRequest struct {
	StudentID *int64 `json:"student_id" validate:"required"`
}
