package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"shop_back_end/internal/models"
)

var testSecret = []byte("test-secret")

func testUser() models.User {
	return models.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com", Role: models.RoleUser}
}

func TestGenerateAndParseJWT(t *testing.T) {
	u := testUser()
	token, err := GenerateJWT(u, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ParseJWT(token, testSecret)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != u.ID.String() || claims.Role != models.RoleUser || claims.Username != "alice" || claims.Email != u.Email {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseJWTRejectsWrongSecret(t *testing.T) {
	token, _ := GenerateJWT(testUser(), testSecret, time.Hour)
	if _, err := ParseJWT(token, []byte("other")); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseJWTRejectsExpired(t *testing.T) {
	token, _ := GenerateJWT(testUser(), testSecret, -time.Minute)
	_, err := ParseJWT(token, testSecret)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseJWTRejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{UserID: uuid.NewString(), Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := ParseJWT(token, testSecret); err == nil {
		t.Fatal("expected alg=none to be rejected")
	}
}
