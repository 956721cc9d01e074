// Package browse sequences the archive resolver, snapshot fetcher and page
// sanitizer behind one operation. Every failure comes back as a *Error with
// a displayable message; the fetch stage is never retried here.
package browse
