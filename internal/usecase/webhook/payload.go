package webhook

// GitHub webhook payload shapes, trimmed to the fields the engine reads.

type RepositoryInfo struct {
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
}

type CommitAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type PushCommit struct {
	ID        string       `json:"id"`
	Message   string       `json:"message"`
	Timestamp string       `json:"timestamp"`
	URL       string       `json:"url"`
	Author    CommitAuthor `json:"author"`
}

type PushEvent struct {
	Ref        string         `json:"ref"`
	Before     string         `json:"before"`
	After      string         `json:"after"`
	Repository RepositoryInfo `json:"repository"`
	Commits    []PushCommit   `json:"commits"`
}

type PRUser struct {
	Login string `json:"login"`
	Email string `json:"email"`
}

type PRBranch struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

type PRInfo struct {
	Number       int      `json:"number"`
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	State        string   `json:"state"`
	Draft        bool     `json:"draft"`
	Merged       bool     `json:"merged"`
	Additions    int      `json:"additions"`
	Deletions    int      `json:"deletions"`
	ChangedFiles int      `json:"changed_files"`
	HTMLURL      string   `json:"html_url"`
	User         PRUser   `json:"user"`
	Head         PRBranch `json:"head"`
	Base         PRBranch `json:"base"`
}

type PullRequestEvent struct {
	Action      string         `json:"action"`
	Number      int            `json:"number"`
	Repository  RepositoryInfo `json:"repository"`
	PullRequest PRInfo         `json:"pull_request"`
}
