package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Item is one photo to transform.
type Item struct {
	Index int
	Path  string
}

type jsonItem struct {
	Path string `json:"path"`
}

// FromPaths numbers paths in order.
func FromPaths(paths []string) ([]Item, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no photos given")
	}
	items := make([]Item, len(paths))
	for i, p := range paths {
		items[i] = Item{Index: i + 1, Path: p}
	}
	return items, nil
}

// ParseFile reads a list of photo paths. Relative paths are resolved against
// the list file's directory.
func ParseFile(path string) ([]Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var items []Item
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		items, err = ParseJSON(file)
	case ".txt", "":
		items, err = ParseText(file)
	default:
		return nil, fmt.Errorf("unsupported list format %q: use .txt or .json", ext)
	}
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i := range items {
		if !filepath.IsAbs(items[i].Path) {
			items[i].Path = filepath.Join(base, items[i].Path)
		}
	}
	return items, nil
}

// ParseText reads one path per line, skipping blanks and # comments.
func ParseText(r io.Reader) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(r)
	index := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		index++
		items = append(items, Item{
			Index: index,
			Path:  line,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no photos found in file")
	}

	return items, nil
}

// ParseJSON reads an array of {"path": "..."} objects or plain strings.
func ParseJSON(r io.Reader) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("no photos found in file")
	}

	items := make([]Item, len(raw))
	for i, msg := range raw {
		var ji jsonItem
		if err := json.Unmarshal(msg, &ji.Path); err != nil {
			if err := json.Unmarshal(msg, &ji); err != nil {
				return nil, fmt.Errorf("item %d: %w", i+1, err)
			}
		}
		if strings.TrimSpace(ji.Path) == "" {
			return nil, fmt.Errorf("item %d has empty path", i+1)
		}
		items[i] = Item{Index: i + 1, Path: ji.Path}
	}

	return items, nil
}
