package profiles

import (
	"bufio"
	"strings"
)

// ParsedCredentials is what ParseCredentialText could recover. Any field may
// be empty.
type ParsedCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
}

// Empty reports whether nothing was recognised.
func (p ParsedCredentials) Empty() bool {
	return p == ParsedCredentials{}
}

// ParseCredentialText extracts AWS credentials from shell-style text such as
// the output of "aws configure export-credentials --format env":
//
//	export AWS_ACCESS_KEY_ID="AKIA..."
//	AWS_SECRET_ACCESS_KEY=...
//
// Blank lines, comments and unknown keys are ignored. AWS_DEFAULT_REGION is
// used only when AWS_REGION is absent.
func ParseCredentialText(text string) ParsedCredentials {
	var out ParsedCredentials
	var defaultRegion string

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "export "); ok {
			line = strings.TrimSpace(rest)
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))
		if value == "" {
			continue
		}

		switch key {
		case "AWS_ACCESS_KEY_ID":
			out.AccessKeyID = value
		case "AWS_SECRET_ACCESS_KEY":
			out.SecretAccessKey = value
		case "AWS_SESSION_TOKEN":
			out.SessionToken = value
		case "AWS_REGION":
			out.Region = value
		case "AWS_DEFAULT_REGION":
			defaultRegion = value
		}
	}

	if out.Region == "" {
		out.Region = defaultRegion
	}
	return out
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
