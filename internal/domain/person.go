package domain

// Address is a value object owned by a Person. It has no identity of its own
// and always travels nested inside its Person. All fields except Province are
// free-form and may be empty.
type Address struct {
	Street   string `json:"street"`
	StreetNo string `json:"streetNo"`
	City     string `json:"city"`
	Province string `json:"province"`
	Country  string `json:"country"`
}

// Person is the registry entity. TaxCode is the sole identity key: it is
// unique in the external store and immutable after creation. Uniqueness is
// enforced server-side; the client only surfaces conflicts.
type Person struct {
	TaxCode string  `json:"taxCode"`
	Name    string  `json:"name"`
	Surname string  `json:"surname"`
	Address Address `json:"address"`
}

// EditBuffer is the flat, editable projection of a Person. It mirrors the
// last-loaded record field by field; it never carries the identity key, so an
// edited buffer can only ever target the record it was projected from.
type EditBuffer struct {
	Name     string
	Surname  string
	Street   string
	StreetNo string
	City     string
	Province string
	Country  string
}

// ToEditBuffer projects a Person into an EditBuffer. It is the only way a
// buffer is produced from a record: the buffer stays a pure function of the
// last successful read.
func ToEditBuffer(p Person) EditBuffer {
	return EditBuffer{
		Name:     p.Name,
		Surname:  p.Surname,
		Street:   p.Address.Street,
		StreetNo: p.Address.StreetNo,
		City:     p.Address.City,
		Province: p.Address.Province,
		Country:  p.Address.Country,
	}
}

// Person materializes the buffer against an identity. The tax code always
// comes from the caller, never from buffer content.
func (b EditBuffer) Person(taxCode string) Person {
	return Person{
		TaxCode: NormalizeTaxCode(taxCode),
		Name:    b.Name,
		Surname: b.Surname,
		Address: Address{
			Street:   b.Street,
			StreetNo: b.StreetNo,
			City:     b.City,
			Province: NormalizeProvince(b.Province),
			Country:  b.Country,
		},
	}
}
