package httpx

import (
	"errors"
	"net/url"
	"strings"
)

// StripQuery drops the query string from the URL of a transport error, so
// credentials passed as query parameters never reach a log line. The cause
// and the rest of the message are kept.
func StripQuery(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	u, _, found := strings.Cut(ue.URL, "?")
	if !found {
		return err
	}
	return &url.Error{Op: ue.Op, URL: u, Err: ue.Err}
}
