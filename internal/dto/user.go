package dto

// RegisterUserRequest is the administrator payload for creating an account.
type RegisterUserRequest struct {
	Names       string  `json:"names" validate:"required,min=2,max=100"`
	Surnames    string  `json:"surnames" validate:"required,min=2,max=100"`
	Email       string  `json:"email" validate:"required,email,max=255"`
	Password    string  `json:"password" validate:"required,min=6,max=72"`
	Role        string  `json:"role" validate:"required"`
	TeacherCode *string `json:"teacher_code" validate:"omitempty,min=3,max=20"`
}

// UpdateUserStatusRequest activates or deactivates an account.
type UpdateUserStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE active inactive"`
}

// UserListQuery filters the administrator user listing.
type UserListQuery struct {
	Page   *int   `form:"page" validate:"omitempty,min=1"`
	Limit  *int   `form:"limit" validate:"omitempty,min=1,max=100"`
	Role   string `form:"role"`
	Status string `form:"status" validate:"omitempty,oneof=ACTIVE INACTIVE active inactive"`
	Search string `form:"search" validate:"max=100"`
}
