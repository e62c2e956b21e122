package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ayushroy-246/hmp/internal/config"
	"github.com/ayushroy-246/hmp/internal/crypto"
	"github.com/ayushroy-246/hmp/internal/db"
	portal "github.com/ayushroy-246/hmp/internal/http"
	"github.com/ayushroy-246/hmp/internal/model"
	"github.com/ayushroy-246/hmp/internal/repository"
)

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

type testEnv struct {
	ts    *httptest.Server
	pool  *pgxpool.Pool
	store *repository.Store
	uniq  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dbURL := os.Getenv("PORTAL_TEST_DB")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("set PORTAL_TEST_DB or DATABASE_URL to run")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.Config{
		JWTSecret:       "integration-test-secret",
		JWTIssuer:       "hmp-test",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		StatsCacheTTL:   time.Second,
	}
	store := repository.NewStore(pool)
	server := portal.NewServer(cfg, store, nil, zap.NewNop())
	ts := httptest.NewServer(server.Router())
	t.Cleanup(func() {
		ts.Close()
		pool.Close()
	})

	return &testEnv{
		ts:    ts,
		pool:  pool,
		store: store,
		uniq:  fmt.Sprintf("%d", time.Now().UnixNano()),
	}
}

func (e *testEnv) request(t *testing.T, method, path, token string, payload interface{}) (int, envelope) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, env
}

// seedUser inserts an account directly, bypassing the provisioning routes.
func (e *testEnv) seedUser(t *testing.T, username, role string, hostelID, roomID *string) model.User {
	t.Helper()
	hash, err := crypto.HashPassword("test-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@test.local",
		FullName:     "Test " + role,
		PasswordHash: hash,
		Role:         role,
		HostelID:     hostelID,
		RoomID:       roomID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (e *testEnv) login(t *testing.T, path, username string) (string, string) {
	t.Helper()
	status, env := e.request(t, http.MethodPost, path, "", map[string]string{
		"username": username,
		"password": "test-password",
	})
	if status != http.StatusOK {
		t.Fatalf("login %s: status %d (%s)", username, status, env.Message)
	}
	var resp struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode login data: %v", err)
	}
	return resp.AccessToken, resp.RefreshToken
}

func (e *testEnv) createHostelAndRoom(t *testing.T, adminToken string, capacity int) (hostelID, roomID string) {
	t.Helper()
	status, env := e.request(t, http.MethodPost, "/api/v1/admin/hostels", adminToken, map[string]string{
		"name": "Hostel " + e.uniq,
		"code": "H" + e.uniq,
	})
	if status != http.StatusCreated {
		t.Fatalf("create hostel: status %d (%s)", status, env.Message)
	}
	var hostel struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &hostel); err != nil {
		t.Fatalf("decode hostel: %v", err)
	}

	status, env = e.request(t, http.MethodPost, "/api/v1/admin/rooms", adminToken, map[string]interface{}{
		"number":   "101",
		"hostelId": hostel.ID,
		"capacity": capacity,
	})
	if status != http.StatusCreated {
		t.Fatalf("create room: status %d (%s)", status, env.Message)
	}
	var room struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &room); err != nil {
		t.Fatalf("decode room: %v", err)
	}
	return hostel.ID, room.ID
}

func TestRoomCapacityEnforcement(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "admin-"+e.uniq, model.RoleAdmin, nil, nil)
	adminToken, _ := e.login(t, "/api/v1/admin/login", "admin-"+e.uniq)

	hostelID, roomID := e.createHostelAndRoom(t, adminToken, 2)

	createStudent := func(n int) (int, envelope) {
		return e.request(t, http.MethodPost, "/api/v1/admin/create-student", adminToken, map[string]string{
			"username": fmt.Sprintf("stu%d-%s", n, e.uniq),
			"email":    fmt.Sprintf("stu%d-%s@test.local", n, e.uniq),
			"fullName": fmt.Sprintf("Student %d", n),
			"password": "test-password",
			"hostelId": hostelID,
			"roomId":   roomID,
		})
	}

	if status, env := createStudent(1); status != http.StatusCreated {
		t.Fatalf("first student: status %d (%s)", status, env.Message)
	}
	if status, env := createStudent(2); status != http.StatusCreated {
		t.Fatalf("second student: status %d (%s)", status, env.Message)
	}
	if status, _ := createStudent(3); status != http.StatusConflict {
		t.Fatalf("third student into a full room: expected 409, got %d", status)
	}
}

func TestStudentCreationHostelMismatch(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "admin-"+e.uniq, model.RoleAdmin, nil, nil)
	adminToken, _ := e.login(t, "/api/v1/admin/login", "admin-"+e.uniq)

	_, roomID := e.createHostelAndRoom(t, adminToken, 2)

	// Second hostel, but the room belongs to the first.
	status, env := e.request(t, http.MethodPost, "/api/v1/admin/hostels", adminToken, map[string]string{
		"name": "Other " + e.uniq,
		"code": "O" + e.uniq,
	})
	if status != http.StatusCreated {
		t.Fatalf("create hostel: status %d (%s)", status, env.Message)
	}
	var other struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &other); err != nil {
		t.Fatalf("decode hostel: %v", err)
	}

	status, _ = e.request(t, http.MethodPost, "/api/v1/admin/create-student", adminToken, map[string]string{
		"username": "mismatch-" + e.uniq,
		"email":    "mismatch-" + e.uniq + "@test.local",
		"fullName": "Mismatch Student",
		"password": "test-password",
		"hostelId": other.ID,
		"roomId":   roomID,
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for hostel mismatch, got %d", status)
	}

	// The account must not have been created.
	if _, err := e.store.GetUserByUsername(context.Background(), "mismatch-"+e.uniq); err == nil {
		t.Fatalf("failed enrollment must not leave a user row behind")
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "rotator-"+e.uniq, model.RoleStudent, nil, nil)
	_, refreshToken := e.login(t, "/api/v1/student/login", "rotator-"+e.uniq)

	status, env := e.request(t, http.MethodPost, "/api/v1/refresh-token", "", map[string]string{
		"refreshToken": refreshToken,
	})
	if status != http.StatusOK {
		t.Fatalf("refresh: status %d (%s)", status, env.Message)
	}
	var rotated struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.Unmarshal(env.Data, &rotated); err != nil {
		t.Fatalf("decode refresh data: %v", err)
	}

	// Replaying the superseded token must fail and burn the family.
	status, _ = e.request(t, http.MethodPost, "/api/v1/refresh-token", "", map[string]string{
		"refreshToken": refreshToken,
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("replayed token: expected 401, got %d", status)
	}
	status, _ = e.request(t, http.MethodPost, "/api/v1/refresh-token", "", map[string]string{
		"refreshToken": rotated.RefreshToken,
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("token from burned family: expected 401, got %d", status)
	}
}

func TestComplaintRequiresRoom(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "roomless-"+e.uniq, model.RoleStudent, nil, nil)
	token, _ := e.login(t, "/api/v1/student/login", "roomless-"+e.uniq)

	status, _ := e.request(t, http.MethodPost, "/api/v1/student/create-complaint", token, map[string]string{
		"title":       "Leaky tap",
		"description": "The tap drips all night",
		"category":    "plumber",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("complaint without room: expected 400, got %d", status)
	}
}

func TestComplaintLifecycle(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "admin-"+e.uniq, model.RoleAdmin, nil, nil)
	adminToken, _ := e.login(t, "/api/v1/admin/login", "admin-"+e.uniq)
	hostelID, roomID := e.createHostelAndRoom(t, adminToken, 4)

	owner := e.seedUser(t, "owner-"+e.uniq, model.RoleStudent, &hostelID, &roomID)
	e.seedUser(t, "other-"+e.uniq, model.RoleStudent, &hostelID, &roomID)
	ownerToken, _ := e.login(t, "/api/v1/student/login", owner.Username)
	otherToken, _ := e.login(t, "/api/v1/student/login", "other-"+e.uniq)

	status, env := e.request(t, http.MethodPost, "/api/v1/student/create-complaint", ownerToken, map[string]string{
		"title":       "Broken socket",
		"description": "Power socket sparks",
		"category":    "electrician",
	})
	if status != http.StatusCreated {
		t.Fatalf("create complaint: status %d (%s)", status, env.Message)
	}
	var complaint struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &complaint); err != nil {
		t.Fatalf("decode complaint: %v", err)
	}

	// Resolving touches only the student axis.
	status, env = e.request(t, http.MethodPatch, "/api/v1/student/resolve-complaint/"+complaint.ID, ownerToken, nil)
	if status != http.StatusOK {
		t.Fatalf("resolve: status %d (%s)", status, env.Message)
	}
	var resolved struct {
		StatusByStudent string  `json:"statusByStudent"`
		StatusByStaff   string  `json:"statusByStaff"`
		ResolvedAt      *string `json:"resolvedAt"`
	}
	if err := json.Unmarshal(env.Data, &resolved); err != nil {
		t.Fatalf("decode resolved: %v", err)
	}
	if resolved.StatusByStudent != "RESOLVED" || resolved.StatusByStaff != "UNSETTLED" || resolved.ResolvedAt == nil {
		t.Fatalf("unexpected post-resolve state: %+v", resolved)
	}

	// Resolving someone else's ticket reads as not found.
	status, _ = e.request(t, http.MethodPatch, "/api/v1/student/resolve-complaint/"+complaint.ID, otherToken, nil)
	if status != http.StatusNotFound {
		t.Fatalf("resolve by non-owner: expected 404, got %d", status)
	}

	// Deletion by a non-owner is forbidden.
	status, _ = e.request(t, http.MethodDelete, "/api/v1/student/delete-complaint/"+complaint.ID, otherToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("delete by non-owner: expected 403, got %d", status)
	}

	// Once staff settles the ticket, even the owner cannot delete it.
	if _, err := e.pool.Exec(context.Background(),
		`UPDATE complaints SET status_by_staff = 'SETTLED' WHERE id = $1`, complaint.ID); err != nil {
		t.Fatalf("settle complaint: %v", err)
	}
	status, _ = e.request(t, http.MethodDelete, "/api/v1/student/delete-complaint/"+complaint.ID, ownerToken, nil)
	if status != http.StatusConflict {
		t.Fatalf("delete settled complaint: expected 409, got %d", status)
	}
}

func TestWardenComplaintBoardScoping(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "admin-"+e.uniq, model.RoleAdmin, nil, nil)
	adminToken, _ := e.login(t, "/api/v1/admin/login", "admin-"+e.uniq)
	hostelID, roomID := e.createHostelAndRoom(t, adminToken, 4)

	e.seedUser(t, "warden-"+e.uniq, model.RoleWarden, &hostelID, nil)
	student := e.seedUser(t, "scoped-"+e.uniq, model.RoleStudent, &hostelID, &roomID)
	studentToken, _ := e.login(t, "/api/v1/student/login", student.Username)

	for _, category := range []string{"electrician", "plumber"} {
		status, env := e.request(t, http.MethodPost, "/api/v1/student/create-complaint", studentToken, map[string]string{
			"title":       "Issue " + category,
			"description": "Needs a " + category,
			"category":    category,
		})
		if status != http.StatusCreated {
			t.Fatalf("create %s complaint: status %d (%s)", category, status, env.Message)
		}
	}

	wardenToken, _ := e.login(t, "/api/v1/warden/login", "warden-"+e.uniq)
	status, env := e.request(t, http.MethodGet, "/api/v1/warden/complaints?status=PENDING&role=electrician", wardenToken, nil)
	if status != http.StatusOK {
		t.Fatalf("warden board: status %d (%s)", status, env.Message)
	}
	var board []struct {
		Category        string `json:"category"`
		StatusByStudent string `json:"statusByStudent"`
	}
	if err := json.Unmarshal(env.Data, &board); err != nil {
		t.Fatalf("decode board: %v", err)
	}
	if len(board) == 0 {
		t.Fatalf("expected at least one matching ticket")
	}
	for _, ticket := range board {
		if ticket.Category != "electrician" || ticket.StatusByStudent != "PENDING" {
			t.Fatalf("filter leaked ticket: %+v", ticket)
		}
	}
}

func TestUsernameUniqueness(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "admin-"+e.uniq, model.RoleAdmin, nil, nil)
	adminToken, _ := e.login(t, "/api/v1/admin/login", "admin-"+e.uniq)
	hostelID, roomID := e.createHostelAndRoom(t, adminToken, 4)

	createStudent := func(username string) (int, envelope) {
		return e.request(t, http.MethodPost, "/api/v1/admin/create-student", adminToken, map[string]string{
			"username": username,
			"email":    username + "@test.local",
			"fullName": "Duplicate Check",
			"password": "test-password",
			"hostelId": hostelID,
			"roomId":   roomID,
		})
	}

	// Mixed case on the way in, lowercased in storage.
	if status, env := createStudent("Dup-" + e.uniq); status != http.StatusCreated {
		t.Fatalf("first create: status %d (%s)", status, env.Message)
	}
	stored, err := e.store.GetUserByUsername(context.Background(), "dup-"+e.uniq)
	if err != nil {
		t.Fatalf("lookup by lowercased username: %v", err)
	}
	if stored.Username != "dup-"+e.uniq {
		t.Fatalf("stored username %q, want %q", stored.Username, "dup-"+e.uniq)
	}

	if status, _ := createStudent("dup-" + e.uniq); status != http.StatusConflict {
		t.Fatalf("second create with same username: expected 409, got %d", status)
	}
	if status, _ := createStudent("DUP-" + e.uniq); status != http.StatusConflict {
		t.Fatalf("second create with same username in caps: expected 409, got %d", status)
	}

	// Renaming another account onto a taken username conflicts too.
	other := e.seedUser(t, "rename-"+e.uniq, model.RoleStudent, nil, nil)
	status, env := e.request(t, http.MethodPatch, "/api/v1/admin/users/"+other.ID, adminToken, map[string]string{
		"username": "dup-" + e.uniq,
	})
	if status != http.StatusConflict {
		t.Fatalf("rename onto taken username: expected 409, got %d (%s)", status, env.Message)
	}
	// Re-submitting an account's own username is not a conflict.
	status, env = e.request(t, http.MethodPatch, "/api/v1/admin/users/"+other.ID, adminToken, map[string]string{
		"username": "rename-" + e.uniq,
		"fullName": "Renamed Nobody",
	})
	if status != http.StatusOK {
		t.Fatalf("patch keeping own username: status %d (%s)", status, env.Message)
	}
}

func TestWardenRosterChronicFilter(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "admin-"+e.uniq, model.RoleAdmin, nil, nil)
	adminToken, _ := e.login(t, "/api/v1/admin/login", "admin-"+e.uniq)
	hostelID, roomID := e.createHostelAndRoom(t, adminToken, 4)

	e.seedUser(t, "warden-"+e.uniq, model.RoleWarden, &hostelID, nil)
	chronic := e.seedUser(t, "chronic-"+e.uniq, model.RoleStudent, &hostelID, &roomID)
	e.seedUser(t, "healthy-"+e.uniq, model.RoleStudent, &hostelID, &roomID)

	details := "asthma"
	profile := model.StudentProfile{
		UserID:                chronic.ID,
		Gender:                "male",
		DateOfBirth:           "2004-06-15",
		BloodGroup:            "B+",
		FatherName:            "Father Name",
		FatherPhone:           "9000000001",
		MotherName:            "Mother Name",
		AddressLine1:          "12 Test Lane",
		City:                  "Testville",
		State:                 "Teststate",
		Pincode:               "560001",
		HasChronicDisease:     true,
		ChronicDiseaseDetails: &details,
		CreatedAt:             time.Now().UTC(),
		UpdatedAt:             time.Now().UTC(),
	}
	if err := e.store.UpsertStudentProfile(context.Background(), profile); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}

	wardenToken, _ := e.login(t, "/api/v1/warden/login", "warden-"+e.uniq)
	status, env := e.request(t, http.MethodGet, "/api/v1/warden/students?hasChronicDisease=true", wardenToken, nil)
	if status != http.StatusOK {
		t.Fatalf("roster: status %d (%s)", status, env.Message)
	}
	var roster struct {
		Students []struct {
			Username          string `json:"username"`
			HasChronicDisease *bool  `json:"hasChronicDisease"`
		} `json:"students"`
	}
	if err := json.Unmarshal(env.Data, &roster); err != nil {
		t.Fatalf("decode roster: %v", err)
	}
	if len(roster.Students) != 1 {
		t.Fatalf("expected exactly one chronic student, got %d", len(roster.Students))
	}
	if roster.Students[0].Username != chronic.Username {
		t.Fatalf("filter returned %q, want %q", roster.Students[0].Username, chronic.Username)
	}
}

func TestStaffLoginAndIdentity(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "admin-"+e.uniq, model.RoleAdmin, nil, nil)
	adminToken, _ := e.login(t, "/api/v1/admin/login", "admin-"+e.uniq)
	hostelID, _ := e.createHostelAndRoom(t, adminToken, 2)

	e.seedUser(t, "warden-"+e.uniq, model.RoleWarden, &hostelID, nil)
	wardenToken, _ := e.login(t, "/api/v1/warden/login", "warden-"+e.uniq)

	phone := "98" + e.uniq[len(e.uniq)-8:]
	status, env := e.request(t, http.MethodPost, "/api/v1/warden/create-staff", wardenToken, map[string]interface{}{
		"phone":    phone,
		"fullName": "Fix It Fast",
		"roles":    []string{"electrician", "plumber"},
		"pin":      "4321",
	})
	if status != http.StatusCreated {
		t.Fatalf("create staff: status %d (%s)", status, env.Message)
	}

	status, env = e.request(t, http.MethodPost, "/api/v1/staff/login", "", map[string]string{
		"phone": phone,
		"pin":   "4321",
	})
	if status != http.StatusOK {
		t.Fatalf("staff login: status %d (%s)", status, env.Message)
	}
	var session struct {
		AccessToken string `json:"accessToken"`
		Staff       struct {
			Phone    string `json:"phone"`
			HostelID string `json:"hostelId"`
		} `json:"staff"`
	}
	if err := json.Unmarshal(env.Data, &session); err != nil {
		t.Fatalf("decode staff login data: %v", err)
	}
	if session.Staff.HostelID != hostelID {
		t.Fatalf("staff hostel %q, want %q", session.Staff.HostelID, hostelID)
	}

	// The staff token resolves to the staff identity, not a user row.
	status, env = e.request(t, http.MethodGet, "/api/v1/me", session.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("staff /me: status %d (%s)", status, env.Message)
	}
	var me struct {
		Phone string   `json:"phone"`
		Roles []string `json:"roles"`
	}
	if err := json.Unmarshal(env.Data, &me); err != nil {
		t.Fatalf("decode staff identity: %v", err)
	}
	if me.Phone != phone || len(me.Roles) != 2 {
		t.Fatalf("unexpected staff identity: %+v", me)
	}

	// A wrong PIN never matches any candidate on that phone.
	status, _ = e.request(t, http.MethodPost, "/api/v1/staff/login", "", map[string]string{
		"phone": phone,
		"pin":   "0000",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("staff login with wrong pin: expected 401, got %d", status)
	}
}

func TestRoleGates(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "gated-"+e.uniq, model.RoleStudent, nil, nil)
	studentToken, _ := e.login(t, "/api/v1/student/login", "gated-"+e.uniq)

	status, _ := e.request(t, http.MethodGet, "/api/v1/admin/users", studentToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("student on admin route: expected 403, got %d", status)
	}
	status, _ = e.request(t, http.MethodGet, "/api/v1/admin/users", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("anonymous on admin route: expected 401, got %d", status)
	}
	status, _ = e.request(t, http.MethodPost, "/api/v1/admin/login", "", map[string]string{
		"username": "gated-" + e.uniq,
		"password": "test-password",
	})
	if status != http.StatusForbidden {
		t.Fatalf("student on admin login: expected 403, got %d", status)
	}
}
