package validate

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reEmail  = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reMobile = regexp.MustCompile(`^\+?[1-9]\d{9,14}$`)
	rePage   = regexp.MustCompile(`^[a-z]{1,20}$`)
)

// Email trims and checks an address, up to the 254 characters SMTP allows.
func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 254 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Mobile accepts an international number with optional leading '+'.
func Mobile(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reMobile.MatchString(s)
}

func Qty(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	if n > 50 {
		return 50
	} // clamp to avoid abuse
	return n
}

// ProductID parses a catalog id.
func ProductID(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Step parses a wizard step number; range checks belong to the wizard.
func Step(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return n, err == nil
}

// Page validates a router page name.
func Page(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, rePage.MatchString(s)
}

// Required reports the names of fields whose value is blank.
func Required(fields map[string]string, names ...string) []string {
	var missing []string
	for _, n := range names {
		if strings.TrimSpace(fields[n]) == "" {
			missing = append(missing, n)
		}
	}
	return missing
}
