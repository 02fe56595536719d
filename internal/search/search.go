// Package search finds contacts by exact value.
//
// A contact matches a query if its name, phone number, email or notes are equal to the query.
// The comparison is case sensitive and covers the whole value; there is no substring or fuzzy
// matching. Results keep the order in which the store returns the contacts.
package search

import (
	"context"
	"fmt"

	"gitlab.com/dirk.krummacker/address-book/internal/model"
)

// Scope selects the contacts a search looks at.
type Scope int

const (
	// ScopeOwner searches only the contacts of the caller.
	ScopeOwner Scope = iota
	// ScopeAll searches the contacts of all users.
	ScopeAll
)

// Source provides the contacts to search in.
type Source interface {
	List(ctx context.Context, owner string) ([]model.Contact, error)
	ListAll(ctx context.Context) ([]model.Contact, error)
}

// Search returns the contacts within scope that match the query. An empty query matches
// nothing. Only failures of the source are reported as errors.
func Search(ctx context.Context, source Source, query string, scope Scope, caller string) ([]model.Contact, error) {
	if query == "" {
		return []model.Contact{}, nil
	}
	var contacts []model.Contact
	var err error
	switch scope {
	case ScopeOwner:
		contacts, err = source.List(ctx, caller)
	case ScopeAll:
		contacts, err = source.ListAll(ctx)
	default:
		return nil, fmt.Errorf("unknown search scope %d", scope)
	}
	if err != nil {
		return nil, err
	}
	return Match(query, contacts), nil
}

// Match returns the contacts with at least one value equal to the query.
func Match(query string, contacts []model.Contact) []model.Contact {
	matches := []model.Contact{}
	if query == "" {
		return matches
	}
	for _, contact := range contacts {
		if matchesContact(query, contact) {
			matches = append(matches, contact)
		}
	}
	return matches
}

func matchesContact(query string, contact model.Contact) bool {
	return contact.Name == query ||
		contact.PhoneNumber == query ||
		contact.Email == query ||
		(contact.Notes != nil && *contact.Notes == query)
}
