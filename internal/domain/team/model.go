package team

import (
	"fmt"
	"strconv"
	"strings"
)

// Team is a followed football club.
type Team struct {
	ID    int64
	Name  string
	Short string
}

func (t Team) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("team id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("team name is required")
	}

	return nil
}

// ParseID normalizes an externally supplied team identifier. Hosts and
// providers disagree on whether IDs travel as numbers or strings, so the
// comparison form is always the parsed integer.
func ParseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("team id is required")
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("team id %q is not a positive number", raw)
	}

	return id, nil
}
