package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
)

func TestIsOwner(t *testing.T) {
	ada := "ada"
	tests := []struct {
		name    string
		owner   *string
		caller  string
		isOwner bool
	}{
		{"same user", &ada, "ada", true},
		{"other user", &ada, "bob", false},
		{"case differs", &ada, "Ada", false},
		{"anonymous caller", &ada, "", false},
		{"legacy contact without owner", nil, "ada", false},
		{"legacy contact and anonymous caller", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contact := model.Contact{Id: 1, Name: "Ada", Owner: tt.owner}
			assert.Equal(t, tt.isOwner, IsOwner(contact, tt.caller))
		})
	}
}
