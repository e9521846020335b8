package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contactForm struct {
	Name  string `validate:"required,max=100"`
	Email string `validate:"omitempty,email"`
	Phone string `validate:"max=30"`
}

func TestStruct_Valid(t *testing.T) {
	assert.Nil(t, Struct(contactForm{Name: "Jo Smith", Email: "jo@example.com"}))
}

func TestStruct_EmptyRequiredField(t *testing.T) {
	fields := Struct(contactForm{Email: "jo@example.com"})
	require.NotNil(t, fields)
	assert.Equal(t, "name is required", fields["name"])
	assert.NotContains(t, fields, "email")
}

func TestStruct_InvalidEmail(t *testing.T) {
	fields := Struct(contactForm{Name: "Jo", Email: "not-an-email"})
	require.NotNil(t, fields)
	assert.Equal(t, "email must be a valid email address", fields["email"])
}

func TestStruct_SnakeCasesFieldNames(t *testing.T) {
	type form struct {
		CompanyName  string `validate:"required"`
		AddressLine1 string `validate:"required"`
	}

	fields := Struct(form{})
	require.NotNil(t, fields)
	assert.Contains(t, fields, "company_name")
	assert.Contains(t, fields, "address_line1")
}

func TestStruct_MaxLength(t *testing.T) {
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'x'
	}

	fields := Struct(contactForm{Name: string(long)})
	require.NotNil(t, fields)
	assert.Equal(t, "name must be at most 100 characters", fields["name"])
}

func TestStruct_OneofMessage(t *testing.T) {
	type form struct {
		Status string `validate:"required,oneof=open closed"`
	}

	fields := Struct(form{Status: "pending"})
	require.NotNil(t, fields)
	assert.Equal(t, "status must be one of: open, closed", fields["status"])
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("42", "number"))
	assert.Error(t, Var("forty-two", "number"))
}
