package dto

type CreateUserRequest struct {
	Name     string `json:"name"     validate:"required,min=2,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role"     validate:"required,oneof=ADMIN STAFF"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name"     validate:"omitempty,min=2,max=100"`
	Role     *string `json:"role"     validate:"omitempty,oneof=ADMIN STAFF"`
	Password *string `json:"password" validate:"omitempty,min=6,max=72"`
}
