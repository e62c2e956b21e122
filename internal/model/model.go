package model

import "time"

// Account roles. SuperAdmin is a singleton bootstrap account; Staff members
// live in their own identity space (see Staff below) and are not Users.
const (
	RoleStudent    = "student"
	RoleWarden     = "warden"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superAdmin"

	// RoleStaff only ever appears in token claims; staff are not Users.
	RoleStaff = "staff"
)

// Trade roles a complaint is assigned to and a staff member can hold.
var TradeRoles = []string{"electrician", "plumber", "cleaner", "network", "carpenter"}

// Complaint status axes. The student-facing and staff-facing statuses are
// independent: a student may mark a ticket RESOLVED while staff never touched
// it, and vice versa.
const (
	ComplaintPending  = "PENDING"
	ComplaintResolved = "RESOLVED"

	ComplaintUnsettled = "UNSETTLED"
	ComplaintSettled   = "SETTLED"
)

type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	Role         string
	Mobile       *string
	HostelID     *string
	RoomID       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Staff struct {
	ID        string
	Phone     string
	FullName  string
	Roles     []string
	HostelID  string
	PINHash   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Hostel struct {
	ID        string
	Name      string
	Code      string
	CreatedAt time.Time
}

type Room struct {
	ID        string
	Number    string
	HostelID  string
	Capacity  int
	CreatedAt time.Time
}

type Complaint struct {
	ID              string
	Title           string
	Description     string
	AssignedRole    string
	StudentID       string
	HostelID        string
	RoomID          string
	Mobile          *string
	StatusByStudent string
	StatusByStaff   string
	ResolvedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type StudentProfile struct {
	UserID                 string
	Gender                 string
	DateOfBirth            string
	BloodGroup             string
	FatherName             string
	FatherPhone            string
	MotherName             string
	MotherPhone            *string
	AddressLine1           string
	AddressLine2           *string
	City                   string
	State                  string
	Pincode                string
	HasChronicDisease      bool
	ChronicDiseaseDetails  *string
	EmergencyContactName   *string
	EmergencyContactNumber *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Refresh-session subjects. Users and staff share the session table but are
// disjoint id spaces, so the subject type travels with the session.
const (
	SubjectUser  = "user"
	SubjectStaff = "staff"
)

type RefreshSession struct {
	ID          string
	SubjectID   string
	SubjectType string
	FamilyID    string
	TokenHash   string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	UserAgent   *string
	IPAddress   *string
}

func ValidTradeRole(role string) bool {
	for _, r := range TradeRoles {
		if r == role {
			return true
		}
	}
	return false
}
