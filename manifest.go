package setup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Requirement is one parsed line of a requirements.txt style manifest.
type Requirement struct {
	Name    string
	Extras  []string
	Op      string // "==", ">=", ... or empty for an unpinned requirement
	Version string
	Marker  string // environment marker after ';', kept verbatim
}

// version comparison operators, longest first so that "==" is found before
// a lone ">" or "<" would match.
var versionOps = []string{"==", ">=", "<=", "~=", "!=", ">", "<"}

// Pinned reports whether the requirement names an exact version.
func (r Requirement) Pinned() bool { return r.Op == "==" }

// ImportName returns the Python module name used to import the requirement.
func (r Requirement) ImportName() string { return pythonImportName(r.Name) }

// Spec returns the pip install argument for the requirement, without the
// environment marker.
func (r Requirement) Spec() string {
	spec := r.Name
	if len(r.Extras) > 0 {
		spec += "[" + strings.Join(r.Extras, ",") + "]"
	}
	if r.Op != "" {
		spec += r.Op + r.Version
	}
	return spec
}

// String renders the requirement back into manifest form.
func (r Requirement) String() string {
	line := r.Spec()
	if r.Marker != "" {
		line += " ; " + r.Marker
	}
	return line
}

// ParseManifest reads a requirements.txt style manifest. Comments and blank
// lines are skipped. Option lines ("-r", "-e", "--index-url", ...) are
// rejected: the manifest consumed here is a plain pin list.
func ParseManifest(r io.Reader) ([]Requirement, error) {
	var reqs []Requirement
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			// pip only treats '#' as a comment at line start or after
			// whitespace
			if idx == 0 || line[idx-1] == ' ' || line[idx-1] == '\t' {
				line = line[:idx]
			}
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "-") {
			return nil, fmt.Errorf("line %d: option lines are not supported: %q", lineNo, line)
		}
		req, err := parseRequirement(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		reqs = append(reqs, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return reqs, nil
}

// LoadManifest reads a manifest from the given path, or from the embedded
// default manifest when path is empty.
func LoadManifest(path, embeddedName string) ([]Requirement, error) {
	if path == "" {
		return ParseManifest(strings.NewReader(MustGetResource(embeddedName)))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseManifest(f)
}

func parseRequirement(line string) (Requirement, error) {
	req := Requirement{}
	if idx := strings.Index(line, ";"); idx >= 0 {
		req.Marker = strings.TrimSpace(line[idx+1:])
		line = strings.TrimSpace(line[:idx])
	}
	for _, op := range versionOps {
		if idx := strings.Index(line, op); idx >= 0 {
			req.Op = op
			req.Version = strings.TrimSpace(line[idx+len(op):])
			line = strings.TrimSpace(line[:idx])
			if req.Version == "" {
				return req, fmt.Errorf("missing version after %q", op)
			}
			break
		}
	}
	if idx := strings.Index(line, "["); idx >= 0 {
		end := strings.Index(line, "]")
		if end < idx {
			return req, fmt.Errorf("unterminated extras in %q", line)
		}
		for _, extra := range strings.Split(line[idx+1:end], ",") {
			if extra = strings.TrimSpace(extra); extra != "" {
				req.Extras = append(req.Extras, extra)
			}
		}
		line = line[:idx]
	}
	req.Name = strings.TrimSpace(line)
	if req.Name == "" {
		return req, fmt.Errorf("missing package name")
	}
	return req, nil
}
