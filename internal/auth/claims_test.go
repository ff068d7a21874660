package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-jwt-signing-0123"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("lab-agent", RoleOperator, testSecret, 15)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "lab-agent" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "lab-agent")
	}
	if claims.Role != RoleOperator {
		t.Errorf("Role = %q, want %q", claims.Role, RoleOperator)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl < 14*time.Minute || ttl > 15*time.Minute {
		t.Errorf("expiry in %v, want ~15m", ttl)
	}
}

func TestGenerateToken_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		secret  string
		wantErr error
	}{
		{"no secret", RoleViewer, "", ErrNoSecret},
		{"unknown role", Role("admin"), testSecret, ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := GenerateToken("x", tt.role, tt.secret, 0); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseToken_Invalid(t *testing.T) {
	valid, err := GenerateToken("lab-agent", RoleViewer, testSecret, 0)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	expired := signClaims(t, CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "lab-agent",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Role: RoleViewer,
	})
	noRole := signClaims(t, CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "lab-agent"},
	})
	noSubject := signClaims(t, CustomClaims{Role: RoleOperator})

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"garbage", "not-a-valid-jwt", testSecret},
		{"wrong secret", valid, "another-secret-that-is-long-enough"},
		{"expired", expired, testSecret},
		{"missing role", noRole, testSecret},
		{"missing subject", noSubject, testSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, tt.secret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "x"},
		Role:             RoleOperator,
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	if _, err := ParseToken(signed, testSecret); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("ParseToken(HS512) error = %v, want ErrTokenInvalid", err)
	}
}

func TestRolePermissions(t *testing.T) {
	if !RoleOperator.CanInvokeTools() || RoleViewer.CanInvokeTools() {
		t.Error("only operators may invoke tools")
	}
	if Role("").Valid() {
		t.Error("empty role should be invalid")
	}
}

func signClaims(t *testing.T, c CustomClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	return signed
}
