package model

// Contact is the data structure for a person that we know. A contact belongs to the user who
// created it. Contacts stored before owners existed have a nil Owner.
type Contact struct {
	Id          int64   `json:"id"              db:"id"`
	Name        string  `json:"name"            db:"name"`
	PhoneNumber string  `json:"phone_number"    db:"phone_number"`
	Email       string  `json:"email"           db:"email"`
	Notes       *string `json:"notes"           db:"notes"`
	Owner       *string `json:"owner,omitempty" db:"owner"`
}

// Fields returns the user editable values of the contact.
func (c Contact) Fields() Fields {
	return Fields{
		Name:        c.Name,
		PhoneNumber: c.PhoneNumber,
		Email:       c.Email,
		Notes:       c.Notes,
	}
}

// Fields are the values a user enters for a contact. The struct tags describe what a valid
// contact looks like.
type Fields struct {
	Name        string  `json:"name"         validate:"required,max=100"`
	PhoneNumber string  `json:"phone_number" validate:"required,max=20,number"`
	Email       string  `json:"email"        validate:"required,email"`
	Notes       *string `json:"notes"        validate:"omitempty,max=256"`
}

// Patch holds new values for some of the fields of a contact. Nil values are left unchanged.
type Patch struct {
	Name        *string
	PhoneNumber *string
	Email       *string
	Notes       *string
}

// Empty returns true if the patch would not change anything.
func (p Patch) Empty() bool {
	return p.Name == nil && p.PhoneNumber == nil && p.Email == nil && p.Notes == nil
}

// Apply returns a copy of f with all non-nil values of the patch set.
func (p Patch) Apply(f Fields) Fields {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.PhoneNumber != nil {
		f.PhoneNumber = *p.PhoneNumber
	}
	if p.Email != nil {
		f.Email = *p.Email
	}
	if p.Notes != nil {
		f.Notes = p.Notes
	}
	return f
}

// BackupRecord is one element of the JSON array in a backup file. Only Fields is read back on
// import; Model and Pk are written for compatibility with older backups.
type BackupRecord struct {
	Model  string `json:"model"`
	Pk     int64  `json:"pk"`
	Fields Fields `json:"fields"`
}

// Credentials are the username and password of a user. Usernames identify the owner of a
// contact.
type Credentials struct {
	Username string `json:"username" validate:"required,max=150,excludesall=/\\:"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}
