package session

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/srgulbay/mikrocoach/pkg/models"
)

// Query parameter names shared with the external views. The external
// view copies entry and return from the detour address, appends the
// verdict, and redirects back to the return location.
const (
	paramEntry   = "entry"
	paramVerdict = "correct"
	paramFilter  = "type"
	paramReturn  = "return"
)

// Token is the handoff message a detour carries back into the session:
// which ledger entry the verdict belongs to, the verdict itself, and
// the filter the resumed session should keep.
type Token struct {
	EntryID int64
	Verdict bool
	Filter  models.ItemType
}

// ReturnLocation is the session address a detour redirects back to,
// scoped to the session's filter so resumption keeps the same scope.
func ReturnLocation(filter models.ItemType) string {
	loc := "/coach/session"
	if filter != "" {
		loc += "?" + paramFilter + "=" + url.QueryEscape(string(filter))
	}
	return loc
}

// DetourURL builds the external view address for a queue item. The
// entry id and return location ride along as query parameters, which is
// what lets the token survive a full page transition.
func DetourURL(resolved *models.ResolvedEntry, filter models.ItemType) string {
	var base string
	switch resolved.Entry.ItemType {
	case models.ItemTypeQuestion:
		base = "/quiz/solve/" + strconv.FormatInt(resolved.Entry.ItemID, 10)
	case models.ItemTypeTopicSummary:
		base = "/lectures/read/" + strconv.FormatInt(resolved.Entry.ItemID, 10)
	default:
		return ""
	}

	values := url.Values{}
	values.Set(paramEntry, strconv.FormatInt(resolved.Entry.ID, 10))
	values.Set(paramReturn, ReturnLocation(filter))
	return base + "?" + values.Encode()
}

// EncodeReturn appends a verdict to a return location, producing the
// address the external view redirects to.
func EncodeReturn(returnLoc string, entryID int64, verdict bool) (string, error) {
	u, err := url.Parse(returnLoc)
	if err != nil {
		return "", fmt.Errorf("invalid return location: %v", err)
	}
	q := u.Query()
	q.Set(paramEntry, strconv.FormatInt(entryID, 10))
	q.Set(paramVerdict, strconv.FormatBool(verdict))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// DecodeReturn extracts a handoff token from incoming query values. The
// second return value is false when no verdict is present, i.e. a plain
// session load rather than a detour return.
func DecodeReturn(q url.Values) (*Token, bool, error) {
	entryStr := q.Get(paramEntry)
	verdictStr := q.Get(paramVerdict)
	if entryStr == "" && verdictStr == "" {
		return nil, false, nil
	}
	if entryStr == "" || verdictStr == "" {
		return nil, false, fmt.Errorf("incomplete handoff: need both %s and %s", paramEntry, paramVerdict)
	}

	entryID, err := strconv.ParseInt(entryStr, 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("invalid %s parameter: %v", paramEntry, err)
	}
	verdict, err := strconv.ParseBool(verdictStr)
	if err != nil {
		return nil, false, fmt.Errorf("invalid %s parameter: %v", paramVerdict, err)
	}

	return &Token{
		EntryID: entryID,
		Verdict: verdict,
		Filter:  models.ItemType(q.Get(paramFilter)),
	}, true, nil
}

// StripReturn removes the verdict fields from an address so a reload or
// back-navigation cannot reapply them. The rest of the session context,
// the filter included, stays in place.
func StripReturn(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid address: %v", err)
	}
	q := u.Query()
	q.Del(paramEntry)
	q.Del(paramVerdict)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
