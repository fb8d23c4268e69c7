package user

// Field names a user attribute that can be sorted on or written to.
type Field string

const (
	FieldID      Field = "id"
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldAddress Field = "address"
)

// Fields lists every known attribute in document order.
var Fields = []Field{FieldID, FieldName, FieldEmail, FieldAddress}

// ParseField maps a client-supplied name onto the field whitelist.
func ParseField(name string) (Field, bool) {
	for _, f := range Fields {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}

// Writable reports whether clients may assign f directly.
func (f Field) Writable() bool {
	return f == FieldName || f == FieldEmail || f == FieldAddress
}
