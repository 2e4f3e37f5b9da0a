package github

import (
	"encoding/json"
	"time"

	gh "github.com/google/go-github/v57/github"
)

// PageRequest selects one page of commits
type PageRequest struct {
	Repo    string // owner/name
	Ref     string // optional branch or sha filter
	Since   time.Time
	Until   time.Time
	PerPage int
	Cursor  string // empty for the first page
}

// Page is one decoded response
type Page struct {
	Commits    []Commit
	NextCursor string // empty on the last page

	// RateRemaining is -1 when neither body nor headers reported it
	RateRemaining int
	RateResetAt   time.Time
}

// Last reports whether no further page should be requested
func (p Page) Last() bool { return len(p.Commits) == 0 || p.NextCursor == "" }

// Commit is a commit as received; timestamps stay verbatim so that casting is
// left to the transform stage
type Commit struct {
	SHA         string
	AuthorName  string
	AuthorEmail string
	Message     string
	AuthoredAt  string
	CommittedAt string
}

// pageBody is the response envelope
type pageBody struct {
	Commits            []json.RawMessage `json:"commits"`
	NextPageCursor     *string           `json:"next_page_cursor"`
	RateLimitRemaining *int              `json:"rate_limit_remaining"`
	RateLimitResetAt   *string           `json:"rate_limit_reset_at"`
}

// commitDates captures author/committer dates as raw strings
type commitDates struct {
	Commit struct {
		Author struct {
			Date json.RawMessage `json:"date"`
		} `json:"author"`
		Committer struct {
			Date json.RawMessage `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

// decodeCommit maps the identity fields through go-github's RepositoryCommit and
// keeps dates as sent. A date the go-github model cannot parse does not fail the page.
func decodeCommit(raw json.RawMessage) (Commit, error) {
	var dates commitDates
	if err := json.Unmarshal(raw, &dates); err != nil {
		return Commit{}, err
	}

	var rc gh.RepositoryCommit
	if err := json.Unmarshal(raw, &rc); err != nil {
		// retry without the date fields so an odd timestamp stays a row-level problem
		var loose struct {
			SHA    *string `json:"sha"`
			Commit *struct {
				Author *struct {
					Name  *string `json:"name"`
					Email *string `json:"email"`
				} `json:"author"`
				Message *string `json:"message"`
			} `json:"commit"`
		}
		if lerr := json.Unmarshal(raw, &loose); lerr != nil {
			return Commit{}, err
		}
		rc = gh.RepositoryCommit{SHA: loose.SHA}
		if loose.Commit != nil {
			rc.Commit = &gh.Commit{Message: loose.Commit.Message}
			if loose.Commit.Author != nil {
				rc.Commit.Author = &gh.CommitAuthor{Name: loose.Commit.Author.Name, Email: loose.Commit.Author.Email}
			}
		}
	}

	author := rc.GetCommit().GetAuthor()
	return Commit{
		SHA:         rc.GetSHA(),
		AuthorName:  author.GetName(),
		AuthorEmail: author.GetEmail(),
		Message:     rc.GetCommit().GetMessage(),
		AuthoredAt:  rawString(dates.Commit.Author.Date),
		CommittedAt: rawString(dates.Commit.Committer.Date),
	}, nil
}

// rawString unquotes JSON strings and keeps numbers/other literals as their text
func rawString(b json.RawMessage) string {
	if len(b) == 0 || string(b) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return s
	}
	return string(b)
}
