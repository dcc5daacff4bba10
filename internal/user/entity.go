// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID               string     `db:"id"`
	Username         string     `db:"username"`
	Email            string     `db:"email"`
	PasswordHash     string     `db:"password_hash"`
	FullName         string     `db:"full_name"`
	Bio              string     `db:"bio"`
	ProfileImage     string     `db:"profile_image"`
	Role             string     `db:"role"`
	IsVerified       bool       `db:"is_verified"`
	MonthlyFee       float64    `db:"monthly_fee"`
	StripeCustomerID *string    `db:"stripe_customer_id"`
	TokenVersion     int        `db:"token_version"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
	DeletedAt        *time.Time `db:"deleted_at"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsCreator reports whether the user charges for subscriptions.
func (u *User) IsCreator() bool {
	return u.MonthlyFee > 0
}

// DisplayName is what external collaborators (billing, emails) see.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UserWithStats is a user row joined with aggregate publishing stats.
type UserWithStats struct {
	User
	TotalAnalyses   int `db:"total_analyses"`
	SuccessCount    int `db:"success_count"`
	SubscriberCount int `db:"subscriber_count"`
}

// SuccessRate returns the share of successful analyses as a percentage, or
// nil when the user has published nothing.
func (u *UserWithStats) SuccessRate() *float64 {
	if u.TotalAnalyses == 0 {
		return nil
	}
	rate := float64(u.SuccessCount) / float64(u.TotalAnalyses) * 100
	return &rate
}
