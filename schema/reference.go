package schema

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/chemked/chemked/crossref"
	"github.com/chemked/chemked/orcid"
)

// Reference returns the rule for bibliographic metadata. When a DOI and a
// reachable registry are both present, the registered record must agree with
// the document (journal, year, volume, pages, author list); an unreachable
// registry is advisory only.
func Reference() *ObjectRule {
	return Object().
		Field("doi", String().NonEmpty()).Optional().
		Field("journal", String()).Optional().
		Field("year", Int().Min(1601)).Required().
		Field("volume", Int().Min(1)).Optional().
		Field("pages", String()).Optional().
		Field("detail", String()).Optional().
		Field("authors", List(Author()).NonEmpty()).Required().
		Refine(checkDOIAgreement)
}

func checkDOIAgreement(cx *Context, path string, m map[string]any) {
	rawDOI, ok := m["doi"].(string)
	if !ok {
		return
	}
	doi := crossref.NormalizeDOI(rawDOI)
	work, err := cx.DOI.Work(cx.ctx, doi)
	switch {
	case errors.Is(err, crossref.ErrUnavailable):
		cx.Warnf(path+"/doi", "network not available, DOI not validated")
		return
	case errors.Is(err, crossref.ErrNotFound):
		cx.Errorf(path+"/doi", CodeDOIMismatch, "DOI not found: %s", doi)
		return
	case err != nil:
		cx.Warnf(path+"/doi", "DOI lookup failed: %v", err)
		return
	}

	if journal, _ := m["journal"].(string); work.Journal != "" && journal != work.Journal {
		cx.Errorf(path+"/journal", CodeDOIMismatch, "journal should be %q", work.Journal)
	}
	if year, ok := AsInt(m["year"]); work.Year != 0 && (!ok || year != int64(work.Year)) {
		cx.Errorf(path+"/year", CodeDOIMismatch, "year should be %d", work.Year)
	}
	checkVolume(cx, path, m, work)
	checkPages(cx, path, m, work)
	checkAuthorList(cx, path, m, work)
}

func checkVolume(cx *Context, path string, m map[string]any, work *crossref.Work) {
	volume, present := m["volume"]
	if work.Volume == "" {
		if present {
			cx.Errorf(path+"/volume", CodeDOIMismatch,
				"volume was specified in the document but is not present in the DOI record")
		}
		return
	}
	want, err := strconv.Atoi(work.Volume)
	if err != nil {
		return // non-numeric registry volume, nothing to compare against
	}
	got, ok := AsInt(volume)
	if !present || !ok || got != int64(want) {
		cx.Errorf(path+"/volume", CodeDOIMismatch, "volume should be %d", want)
	}
}

func checkPages(cx *Context, path string, m map[string]any, work *crossref.Work) {
	pages, present := m["pages"]
	if work.Pages == "" {
		if present {
			cx.Errorf(path+"/pages", CodeDOIMismatch,
				"pages were specified in the document but are not present in the DOI record")
		}
		return
	}
	if got, _ := pages.(string); !present || got != work.Pages {
		cx.Errorf(path+"/pages", CodeDOIMismatch, "pages should be %q", work.Pages)
	}
}

// checkAuthorList requires every registered author to appear in the document
// and no extras; a registered ORCID missing from the document is advisory.
func checkAuthorList(cx *Context, path string, m map[string]any, work *crossref.Work) {
	rawAuthors, _ := m["authors"].([]any)
	type docAuthor struct {
		idx   int
		name  string
		orcid string
	}
	remaining := make([]docAuthor, 0, len(rawAuthors))
	for i, ra := range rawAuthors {
		am, ok := AsMap(ra)
		if !ok {
			continue
		}
		name, _ := am["name"].(string)
		id, _ := am["ORCID"].(string)
		remaining = append(remaining, docAuthor{idx: i, name: name, orcid: id})
	}

	for _, wa := range work.Authors {
		found := -1
		for i, da := range remaining {
			if orcid.MatchName(wa.Given, wa.Family, da.name) {
				found = i
				break
			}
		}
		if found < 0 {
			cx.Errorf(path+"/authors", CodeDOIMismatch, "missing author: %s %s", wa.Given, wa.Family)
			continue
		}
		da := remaining[found]
		remaining = append(remaining[:found], remaining[found+1:]...)
		if wa.ORCID == "" {
			continue
		}
		if da.orcid == "" {
			cx.Warnf(fmt.Sprintf("%s/authors/%d", path, da.idx), "ORCID %s missing for %s", wa.ORCID, da.name)
		} else if da.orcid != wa.ORCID {
			cx.Errorf(fmt.Sprintf("%s/authors/%d/ORCID", path, da.idx), CodeDOIMismatch,
				"%s ORCID does not match that in the DOI record: registry %s, given %s", da.name, wa.ORCID, da.orcid)
		}
	}

	if len(work.Authors) > 0 {
		for _, da := range remaining {
			cx.Errorf(fmt.Sprintf("%s/authors/%d", path, da.idx), CodeDOIMismatch, "extra author given: %s", da.name)
		}
	}
}
