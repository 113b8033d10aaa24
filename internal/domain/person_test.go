package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func samplePerson() Person {
	return Person{
		TaxCode: "RSSMRA85T10A562S",
		Name:    "Mario",
		Surname: "Rossi",
		Address: Address{
			Street:   "Via Roma",
			StreetNo: "12",
			City:     "Milano",
			Province: "MI",
			Country:  "Italia",
		},
	}
}

func TestToEditBufferProjectsAllMutableFields(t *testing.T) {
	buf := ToEditBuffer(samplePerson())

	assert.Equal(t, EditBuffer{
		Name:     "Mario",
		Surname:  "Rossi",
		Street:   "Via Roma",
		StreetNo: "12",
		City:     "Milano",
		Province: "MI",
		Country:  "Italia",
	}, buf)
}

func TestEditBufferPersonUsesCallerIdentity(t *testing.T) {
	buf := ToEditBuffer(samplePerson())
	buf.Name = "Maria"
	buf.Province = "to"

	p := buf.Person(" rssmra85t10a562s ")

	assert.Equal(t, "RSSMRA85T10A562S", p.TaxCode)
	assert.Equal(t, "Maria", p.Name)
	assert.Equal(t, "TO", p.Address.Province)
}
