package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleOfficer    UserRole = "OFFICER"
	RoleOperator   UserRole = "OPERATOR"
	RoleViewer     UserRole = "VIEWER"
)

// User is an entry of the read-only officer directory.
type User struct {
	ID       string   `db:"id" json:"id"`
	FullName string   `db:"full_name" json:"fullName"`
	Phone    *string  `db:"phone" json:"phone,omitempty"`
	Email    *string  `db:"email" json:"email,omitempty"`
	Role     UserRole `db:"role" json:"role"`
	Active   bool     `db:"active" json:"active"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes page counts for total rows split into pages of limit.
func NewPagination(page, limit, total int) *Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return &Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}
