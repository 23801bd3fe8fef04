package auth

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestUserStore(t *testing.T) *UserStore {
	t.Helper()
	store, err := NewUserStore(filepath.Join(t.TempDir(), "users.json"))
	if err != nil {
		t.Fatalf("NewUserStore failed: %v", err)
	}
	return store
}

func TestUserStore_CreateAndFind(t *testing.T) {
	store := newTestUserStore(t)

	user, err := store.Create("Alice@Example.com", "hunter22", "Alice")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if user.ID == "" {
		t.Error("Create must assign an id")
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized lowercase", user.Email)
	}
	if user.Password == "hunter22" {
		t.Error("password must be stored hashed, not plaintext")
	}

	byEmail, err := store.FindByEmail("ALICE@example.COM")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("FindByEmail returned id %q, want %q", byEmail.ID, user.ID)
	}

	byID, err := store.FindByID(user.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if byID.Email != user.Email {
		t.Errorf("FindByID returned email %q", byID.Email)
	}
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	store := newTestUserStore(t)

	if _, err := store.Create("bob@example.com", "secret99", "Bob"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create("BOB@example.com", "other", "Bobby"); err != ErrEmailTaken {
		t.Errorf("duplicate Create = %v, want ErrEmailTaken", err)
	}
}

func TestUserStore_FindMissing(t *testing.T) {
	store := newTestUserStore(t)

	if _, err := store.FindByEmail("nobody@example.com"); err != ErrUserNotFound {
		t.Errorf("FindByEmail = %v, want ErrUserNotFound", err)
	}
	if _, err := store.FindByID("missing-id"); err != ErrUserNotFound {
		t.Errorf("FindByID = %v, want ErrUserNotFound", err)
	}
}

func TestUser_CheckPassword(t *testing.T) {
	store := newTestUserStore(t)

	user, err := store.Create("carol@example.com", "correct horse", "Carol")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !user.CheckPassword("correct horse") {
		t.Error("CheckPassword rejected the right password")
	}
	if user.CheckPassword("wrong") {
		t.Error("CheckPassword accepted the wrong password")
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")

	token, err := issuer.GenerateToken("user-42")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	id, err := issuer.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if id != "user-42" {
		t.Errorf("ParseToken returned %q, want user-42", id)
	}
}

func TestTokenIssuer_RejectsWrongSecret(t *testing.T) {
	token, err := NewTokenIssuer("secret-a").GenerateToken("user-1")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := NewTokenIssuer("secret-b").ParseToken(token); err == nil {
		t.Error("ParseToken must reject a token signed with a different secret")
	}
}

func TestTokenIssuer_RejectsGarbage(t *testing.T) {
	if _, err := NewTokenIssuer("secret").ParseToken("not-a-token"); err == nil {
		t.Error("ParseToken must reject malformed input")
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := newTestUserStore(t)
	issuer := NewTokenIssuer("test-secret")

	user, err := store.Create("dave@example.com", "password1", "Dave")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	token, err := issuer.GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	router := gin.New()
	router.GET("/protected", Middleware(issuer, store), func(c *gin.Context) {
		current, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no user in context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": current.ID})
	})

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc123", http.StatusUnauthorized},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestMiddleware_DeletedUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := newTestUserStore(t)
	issuer := NewTokenIssuer("test-secret")

	token, err := issuer.GenerateToken("gone-user")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	router := gin.New()
	router.GET("/protected", Middleware(issuer, store), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for token of a nonexistent user", rec.Code)
	}
}
