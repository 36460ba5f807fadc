package dto

// EmailRequest asks for a message to be delivered to a student.
type EmailRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Message   string `json:"message" validate:"required,max=5000"`
}

// EmailResponse confirms a delivered message.
type EmailResponse struct {
	Recipient string `json:"recipient"`
	Name      string `json:"name"`
	Subject   string `json:"subject"`
}
