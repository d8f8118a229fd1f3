package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"canonical", "254712345678", "254712345678", true},
		{"plus prefix", "+254712345678", "254712345678", true},
		{"spaces and dashes", "254 712-345-678", "254712345678", true},
		{"local format rejected", "0712345678", "", false},
		{"too short", "25471234567", "", false},
		{"too long", "2547123456789", "", false},
		{"wrong country code", "255712345678", "", false},
		{"letters only", "not-a-phone", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizePhone(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	normalized, ok := NormalizePhone("+254 712 345 678")
	assert.True(t, ok)

	again, ok := NormalizePhone(normalized)
	assert.True(t, ok)
	assert.Equal(t, normalized, again)
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("jane@example.com"))
	assert.True(t, IsValidEmail("jane.doe+tag@sub.example.co.ke"))
	assert.False(t, IsValidEmail("jane@"))
	assert.False(t, IsValidEmail("not-an-email"))
	assert.False(t, IsValidEmail(""))
}

func TestMissingFields(t *testing.T) {
	missing := MissingFields(map[string]string{
		"name":  "Jane",
		"email": "",
		"phone": "",
		"date":  "2026-09-01",
	}, []string{"name", "email", "phone", "date"})

	assert.Equal(t, []string{"email", "phone"}, missing)
}
