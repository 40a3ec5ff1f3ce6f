package media

import (
	"bufio"
	"fmt"
	"strings"
)

// APIMarker marks manifest lines that point at downloadable segments
const APIMarker = "/api"

// SelectSegments returns every manifest line containing APIMarker,
// prefixed with baseURL. Other lines (tags, comments, blanks) are skipped.
// A manifest that cannot be read to the end is an error, not a shorter list.
func SelectSegments(manifest, baseURL string) ([]string, error) {
	var urls []string

	scanner := bufio.NewScanner(strings.NewReader(manifest))
	// Signed segment paths can be long
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.Contains(line, APIMarker) {
			urls = append(urls, baseURL+line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	return urls, nil
}
