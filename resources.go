package setup

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	rice "github.com/GeertJohan/go.rice"
)

var resourceBox *rice.Box

// openBoxes opens the embedded resource payload. For go.rice's 'append' mode
// to work, the call to FindBox() has to be with a literal string parameter.
func openBoxes() {
	var err error
	resourceBox, err = rice.FindBox("resources")
	if err != nil {
		panic(err)
	}
}

// GetResource returns the contents of the named resource file. If name is a
// directory, a newline-separated list of its files is returned instead.
func GetResource(name string) (string, error) {
	if resourceBox == nil {
		openBoxes()
	}
	text, err := resourceBox.String(name)
	if err != nil {
		contents := []string{}
		walkErr := resourceBox.Walk(name, func(path string, info os.FileInfo, err error) error {
			if path != name {
				contents = append(contents, path)
				if info.IsDir() {
					return filepath.SkipDir
				}
			}
			return nil
		})
		if walkErr != nil {
			return "", fmt.Errorf("resource %s not found", name)
		}
		text = ""
		for i, line := range contents {
			if i > 0 {
				text += "\n"
			}
			text += line
		}
	}
	return text, nil
}

// GetResourceFiltered returns all files inside the resource directory dir
// whose paths match the given filter, as a map from path to content.
func GetResourceFiltered(dir string, filter *regexp.Regexp) (map[string]string, error) {
	if resourceBox == nil {
		openBoxes()
	}
	files := make(map[string]string)
	err := resourceBox.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if path == dir || info.IsDir() {
			return nil
		}
		if filter.FindStringIndex(path) != nil {
			content, err := resourceBox.String(path)
			if err != nil {
				return err
			}
			files[path] = content
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("resource dir %s not readable: %w", dir, err)
	}
	return files, nil
}

// MustGetResource is GetResource for resources that ship with the binary and
// cannot be missing.
func MustGetResource(name string) string {
	text, err := GetResource(name)
	if err != nil {
		panic(err)
	}
	return text
}

// MustGetResourceFiltered is the panicking variant of GetResourceFiltered.
func MustGetResourceFiltered(dir string, filter *regexp.Regexp) map[string]string {
	files, err := GetResourceFiltered(dir, filter)
	if err != nil {
		panic(err)
	}
	return files
}
