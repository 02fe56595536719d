// Package model contains the JSON bodies of the address book REST API. They are shared by the
// service and its clients.
package model

// Contact is the data structure for a person that we know, as exchanged over the API. In
// requests, all fields with the exception of the Id field are optional: a field that is omitted
// from an update keeps its value.
type Contact struct {
	Id          int64   `json:"id,omitempty"`
	Name        *string `json:"name,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Email       *string `json:"email,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	Owner       *string `json:"owner,omitempty"`
}

// BackupRequest names the backup file to write or read. An empty name selects the default file.
type BackupRequest struct {
	FileName string `json:"file_name"`
}

// BackupResponse reports the result of an export.
type BackupResponse struct {
	FileName string `json:"file_name"`
	Exported int    `json:"exported"`
}

// ImportResponse reports the result of an import.
type ImportResponse struct {
	FileName string `json:"file_name"`
	Imported int    `json:"imported"`
}

// DeleteAllResponse reports how many contacts a bulk delete removed.
type DeleteAllResponse struct {
	Deleted int64 `json:"deleted"`
}

// User is the body for registering a new user.
type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
