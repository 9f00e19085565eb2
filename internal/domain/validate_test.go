package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tazhibayda/smartfarm-api/internal/domain"
)

func TestValidUsername(t *testing.T) {
	cases := map[string]bool{
		"alice":                 true,
		"_farm_01":              true,
		"ab":                    false,
		"1alice":                false,
		"alice-b":               false,
		"abcdefghijklmnopqrst":  true,
		"abcdefghijklmnopqrstu": false,
	}
	for in, want := range cases {
		assert.Equal(t, want, domain.ValidUsername(in), in)
	}
}

func TestStrongPassword(t *testing.T) {
	assert.True(t, domain.StrongPassword("Secret123!"))
	assert.False(t, domain.StrongPassword("secret123!"), "no upper")
	assert.False(t, domain.StrongPassword("SECRET123!"), "no lower")
	assert.False(t, domain.StrongPassword("SecretABC!"), "no digit")
	assert.False(t, domain.StrongPassword("Secret1234"), "no special")
	assert.False(t, domain.StrongPassword("Se1!"), "short")
}

func TestNormalizeAndEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", domain.NormalizeEmail("  Alice@Example.COM "))
	assert.True(t, domain.ValidEmail("alice@example.com"))
	assert.False(t, domain.ValidEmail("alice"))
	assert.False(t, domain.ValidEmail(""))
}

func TestSanitizeUsername(t *testing.T) {
	assert.Equal(t, "alicesmith", domain.SanitizeUsername("Alice Smith"))
	assert.Equal(t, "bob_1", domain.SanitizeUsername("Bob_1!"))
}

func TestSensorID(t *testing.T) {
	assert.True(t, domain.ValidSensorID("sen_0001"))
	assert.False(t, domain.ValidSensorID("sen_1"))
	assert.False(t, domain.ValidSensorID("sns_0001"))
}
