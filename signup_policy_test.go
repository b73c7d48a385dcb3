package ninjaauth_test

import (
	"errors"
	"testing"

	na "github.com/devsnb/ninja-authentication"
)

// =============================================================================
// SignupPolicy Tests
// =============================================================================

func TestSignupPolicyDefaults(t *testing.T) {
	policy := na.DefaultSignupPolicy()
	if policy.RequireName || policy.RequireConfirmation || policy.MinPasswordLength != 0 {
		t.Errorf("Unexpected default policy %+v", policy)
	}
}

func TestSignupPolicyValidate(t *testing.T) {
	strict := na.SignupPolicy{RequireName: true, RequireConfirmation: true, MinPasswordLength: 8}

	tests := []struct {
		name   string
		policy na.SignupPolicy
		input  na.SignupInput
		code   string
		field  string
	}{
		{"valid default", na.DefaultSignupPolicy(), na.SignupInput{Email: "a@example.com", Password: "x"}, "", ""},
		{"missing email", na.DefaultSignupPolicy(), na.SignupInput{Password: "x"}, na.ErrCodeMissingField, "email"},
		{"bad email", na.DefaultSignupPolicy(), na.SignupInput{Email: "not-an-email", Password: "x"}, na.ErrCodeInvalidEmail, "email"},
		{"missing password", na.DefaultSignupPolicy(), na.SignupInput{Email: "a@example.com"}, na.ErrCodeMissingField, "password"},
		{"confirmation mismatch", na.DefaultSignupPolicy(), na.SignupInput{Email: "a@example.com", Password: "x", ConfirmPassword: "y"}, na.ErrCodePasswordConfirmationMismatch, "confirm_password"},
		{"strict missing name", strict, na.SignupInput{Email: "a@example.com", Password: "longenough", ConfirmPassword: "longenough"}, na.ErrCodeMissingField, "name"},
		{"strict weak password", strict, na.SignupInput{Name: "A", Email: "a@example.com", Password: "short", ConfirmPassword: "short"}, na.ErrCodeWeakPassword, "password"},
		{"strict missing confirmation", strict, na.SignupInput{Name: "A", Email: "a@example.com", Password: "longenough"}, na.ErrCodeMissingField, "confirm_password"},
		{"strict valid", strict, na.SignupInput{Name: "A", Email: "a@example.com", Password: "longenough", ConfirmPassword: "longenough"}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate(tt.input)
			if tt.code == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			var authErr *na.AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("Expected *AuthError, got %v", err)
			}
			if authErr.Code != tt.code || authErr.Field != tt.field {
				t.Errorf("Expected %s/%s, got %s/%s", tt.code, tt.field, authErr.Code, authErr.Field)
			}
		})
	}
}
