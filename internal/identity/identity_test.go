package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/legalaid-center/platform/internal/shared/config"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// --- Capability table ---

func TestHasCapability(t *testing.T) {
	tests := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleAdmin, CapCaseCreateDirect, true},
		{RoleAdmin, CapCaseOperateStatus, false},
		{RoleSuperAdmin, CapCaseApprove, true},
		{RoleLawyer, CapCaseOperateStatus, true},
		{RoleLawyer, CapCaseCreateDirect, false},
		{RoleLawyer, CapCaseApprove, false},
		{RoleViewer, CapCaseReadAll, true},
		{RoleViewer, CapCaseEdit, false},
		{RoleExpert, CapCaseReadAssigned, true},
		{RoleExpert, CapDocumentAttach, false},
		{RoleBeneficiary, CapCaseCreateSelf, true},
		{RoleBeneficiary, CapCaseReadAll, false},
		{Role("unknown"), CapCaseReadAll, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.cap), func(t *testing.T) {
			if got := HasCapability(tt.role, tt.cap); got != tt.want {
				t.Errorf("HasCapability(%s, %s) = %v, want %v", tt.role, tt.cap, got, tt.want)
			}
		})
	}
}

func TestPrincipalHelpers(t *testing.T) {
	admin := Principal{UserID: types.NewID(), Kind: KindStaff, Role: RoleAdmin}
	if !admin.IsStaff() || !admin.IsAdmin() || admin.IsBeneficiary() {
		t.Error("Admin principal misclassified")
	}

	b := Principal{UserID: types.NewID(), Kind: KindBeneficiary, Role: RoleBeneficiary}
	if b.IsStaff() || b.IsAdmin() || !b.IsBeneficiary() {
		t.Error("Beneficiary principal misclassified")
	}

	// A beneficiary account claiming a staff role is still not staff.
	forged := Principal{UserID: types.NewID(), Kind: KindBeneficiary, Role: RoleAdmin}
	if forged.IsStaff() || forged.IsAdmin() {
		t.Error("Kind and role must both match for staff classification")
	}

	if (Principal{}).Can(CapCaseReadAll) {
		t.Error("Zero principal should have no capabilities")
	}
}

// --- Session resolution ---

type fakeDirectory struct {
	users map[types.ID]*User
}

func (f *fakeDirectory) FindUser(ctx context.Context, id types.ID) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, errors.NotFound("user", id.String())
	}
	return u, nil
}

func sessionToken(t *testing.T, secret string, userID types.ID, kind Kind, role Role) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Kind: string(kind),
		Role: string(role),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func testResolver(dir Directory) *Resolver {
	return NewResolver(config.AuthConfig{JWTSecret: "test-secret", SessionCookie: "session"}, dir)
}

func resolvePrincipal(t *testing.T, rv *Resolver, cookie *http.Cookie) (Principal, bool) {
	t.Helper()

	var p Principal
	var ok bool
	handler := rv.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok = FromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return p, ok
}

func TestMiddlewareResolvesStaffSession(t *testing.T) {
	userID := types.NewID()
	rv := testResolver(&fakeDirectory{})

	token := sessionToken(t, "test-secret", userID, KindStaff, RoleLawyer)
	p, ok := resolvePrincipal(t, rv, &http.Cookie{Name: "session", Value: token})

	if !ok {
		t.Fatal("Expected an authenticated principal")
	}
	if p.UserID != userID || p.Role != RoleLawyer || !p.IsStaff() {
		t.Errorf("Unexpected principal: %+v", p)
	}
}

func TestMiddlewareResolvesBeneficiaryProfileFromDirectory(t *testing.T) {
	userID := types.NewID()
	beneficiaryID := types.NewID()
	dir := &fakeDirectory{users: map[types.ID]*User{
		userID: {ID: userID, Kind: KindBeneficiary, Role: RoleBeneficiary, BeneficiaryID: beneficiaryID},
	}}
	rv := testResolver(dir)

	token := sessionToken(t, "test-secret", userID, KindBeneficiary, RoleBeneficiary)
	p, ok := resolvePrincipal(t, rv, &http.Cookie{Name: "session", Value: token})

	if !ok {
		t.Fatal("Expected an authenticated principal")
	}
	if p.BeneficiaryID != beneficiaryID {
		t.Error("BeneficiaryID should come from the directory")
	}
}

func TestMiddlewareUnlinkedBeneficiaryIsProfileIncomplete(t *testing.T) {
	userID := types.NewID()
	rv := testResolver(&fakeDirectory{users: map[types.ID]*User{}})

	token := sessionToken(t, "test-secret", userID, KindBeneficiary, RoleBeneficiary)
	p, ok := resolvePrincipal(t, rv, &http.Cookie{Name: "session", Value: token})

	if !ok {
		t.Fatal("Session should still authenticate")
	}
	if !p.BeneficiaryID.IsZero() {
		t.Error("Missing directory link should leave BeneficiaryID zero")
	}
}

func TestMiddlewareFailsClosedToAnonymous(t *testing.T) {
	rv := testResolver(&fakeDirectory{})

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"no cookie", nil},
		{"garbage token", &http.Cookie{Name: "session", Value: "not-a-jwt"}},
		{"wrong secret", &http.Cookie{Name: "session", Value: sessionToken(t, "other-secret", types.NewID(), KindStaff, RoleAdmin)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := resolvePrincipal(t, rv, tt.cookie); ok {
				t.Error("Invalid session should resolve to anonymous")
			}
		})
	}
}

func TestMiddlewareExpiredTokenIsAnonymous(t *testing.T) {
	rv := testResolver(&fakeDirectory{})

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   types.NewID().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		Kind: string(KindStaff),
		Role: string(RoleAdmin),
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))

	if _, ok := resolvePrincipal(t, rv, &http.Cookie{Name: "session", Value: token}); ok {
		t.Error("Expired session should resolve to anonymous")
	}
}

// --- Route guards ---

func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Anonymous request should get 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	ctx := WithPrincipal(req.Context(), Principal{UserID: types.NewID(), Kind: KindStaff, Role: RoleAdmin})
	handler.ServeHTTP(rec, req.WithContext(ctx))
	if rec.Code != http.StatusOK {
		t.Errorf("Authenticated request should pass, got %d", rec.Code)
	}
}

func TestRequireStaff(t *testing.T) {
	handler := RequireStaff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	ctx := WithPrincipal(req.Context(), Principal{UserID: types.NewID(), Kind: KindBeneficiary, Role: RoleBeneficiary})
	handler.ServeHTTP(rec, req.WithContext(ctx))
	if rec.Code != http.StatusForbidden {
		t.Errorf("Beneficiary should get 403, got %d", rec.Code)
	}
}
