package gitobj

import (
	"regexp"
	"strconv"
	"strings"
)

// Commit is the decoded form of a commit object.
type Commit struct {
	Tree      ObjectID
	Parents   []ObjectID
	Author    string
	Email     string
	Timestamp int64 // unix seconds
	Message   string
}

var authorRe = regexp.MustCompile(`^author (.+) <(.+)> (\d+)`)

// ParseCommit decodes commit object content. Headers end at the first
// blank line; the remainder, trimmed, is the message. A missing or
// malformed author line yields empty strings and a zero timestamp rather
// than an error, so partially mangled history still renders.
func ParseCommit(content []byte) *Commit {
	text := string(content)
	c := &Commit{Parents: []ObjectID{}}

	headers, message, found := strings.Cut(text, "\n\n")
	if !found {
		headers = text
	}
	c.Message = strings.TrimSpace(message)

	for _, line := range strings.Split(headers, "\n") {
		switch {
		case strings.HasPrefix(line, "tree "):
			if oid, err := ParseObjectID(strings.TrimPrefix(line, "tree ")); err == nil {
				c.Tree = oid
			}
		case strings.HasPrefix(line, "parent "):
			if oid, err := ParseObjectID(strings.TrimPrefix(line, "parent ")); err == nil {
				c.Parents = append(c.Parents, oid)
			}
		case strings.HasPrefix(line, "author "):
			m := authorRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			c.Author = m[1]
			c.Email = m[2]
			if ts, err := strconv.ParseInt(m[3], 10, 64); err == nil {
				c.Timestamp = ts
			}
		}
	}
	return c
}
