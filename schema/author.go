package schema

import (
	"errors"

	"github.com/chemked/chemked/orcid"
)

// Author returns the rule for an author entry: a non-empty name and an
// optional ORCID. A present ORCID must pass the checksum and, when the
// registry is reachable, the registered name must agree with the document.
// Registry outages downgrade to a warning.
func Author() *ObjectRule {
	return Object().
		Field("name", String().NonEmpty()).Required().
		Field("ORCID", String().Pattern(`^\d{4}-\d{4}-\d{4}-\d{3}[\dX]$`)).Optional().
		Refine(checkAuthorIdentity)
}

func checkAuthorIdentity(cx *Context, path string, m map[string]any) {
	id, ok := m["ORCID"].(string)
	if !ok {
		return
	}
	name, _ := m["name"].(string)
	if !orcid.ValidChecksum(id) {
		cx.Errorf(path+"/ORCID", CodeBadChecksum, "ORCID %s fails the checksum", id)
		return
	}
	person, err := cx.ORCID.Person(cx.ctx, id)
	switch {
	case errors.Is(err, orcid.ErrUnavailable):
		cx.Warnf(path+"/ORCID", "ORCID registry not available, %s not validated", id)
		return
	case errors.Is(err, orcid.ErrNotFound):
		cx.Errorf(path+"/ORCID", CodeUnknownIdentifier, "ORCID incorrect or invalid for %s", name)
		return
	case err != nil:
		cx.Warnf(path+"/ORCID", "ORCID lookup failed: %v", err)
		return
	}
	if !orcid.MatchName(person.GivenName, person.FamilyName, name) {
		cx.Errorf(path, CodeNameMismatch,
			"name and ORCID do not match: name supplied %q, name associated with ORCID %q",
			name, person.GivenName+" "+person.FamilyName)
	}
}
