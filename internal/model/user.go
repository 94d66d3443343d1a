package model

import "time"

type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleEmployee UserRole = "employee"
)

type UserProfile struct {
	ID          string    `bson:"_id" json:"id"`
	Email       string    `bson:"email" json:"email"`
	DisplayName string    `bson:"display_name" json:"display_name"`
	Role        UserRole  `bson:"role" json:"role"`
	CompanyID   string    `bson:"company_id" json:"company_id"`
	Department  string    `bson:"department,omitempty" json:"department,omitempty"`
	EmployeeID  string    `bson:"employee_id,omitempty" json:"employee_id,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

func (u *UserProfile) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
