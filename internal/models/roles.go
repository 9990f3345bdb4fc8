package models

// Caller roles
const (
	RoleAdmin = "admin" // Grammar management and key administration
	RoleUser  = "user"  // Parse and clarify access
)
