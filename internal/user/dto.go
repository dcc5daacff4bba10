// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

// UpdateUserRequest lists the mutable profile fields explicitly; absent
// fields are left untouched.
type UpdateUserRequest struct {
	FullName     *string  `json:"full_name,omitempty"     validate:"omitempty,max=100"`
	Bio          *string  `json:"bio,omitempty"           validate:"omitempty,max=2000"`
	ProfileImage *string  `json:"profile_image,omitempty" validate:"omitempty,max=500"`
	MonthlyFee   *float64 `json:"monthly_fee,omitempty"   validate:"omitempty,gte=0,lte=10000"`
}

type UserResponse struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	ProfileImage string    `json:"profile_image,omitempty"`
	IsVerified   bool      `json:"is_verified"`
	MonthlyFee   float64   `json:"monthly_fee"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UserStatsResponse struct {
	UserResponse
	TotalAnalyses   int      `json:"total_analyses"`
	SuccessRate     *float64 `json:"success_rate"`
	SubscriberCount int      `json:"subscriber_count"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Bio:          u.Bio,
		ProfileImage: u.ProfileImage,
		IsVerified:   u.IsVerified,
		MonthlyFee:   u.MonthlyFee,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func ToUserStatsResponse(u *UserWithStats) UserStatsResponse {
	return UserStatsResponse{
		UserResponse:    ToUserResponse(&u.User),
		TotalAnalyses:   u.TotalAnalyses,
		SuccessRate:     u.SuccessRate(),
		SubscriberCount: u.SubscriberCount,
	}
}

func ToUserStatsResponseList(users []UserWithStats) []UserStatsResponse {
	responses := make([]UserStatsResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToUserStatsResponse(&users[i]))
	}
	return responses
}
