package dto

// CreateInstructorRequest adds an entry to the authorized-instructor whitelist.
type CreateInstructorRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required"`
}

// UpdateInstructorRequest updates a whitelist entry.
type UpdateInstructorRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}
