package app

import (
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var timePattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func validTime(s string) bool {
	return timePattern.MatchString(s)
}

// normalizeTime zero-pads a valid time to HH:MM so text ordering matches
// clock ordering.
func normalizeTime(s string) (string, bool) {
	if !validTime(s) {
		return "", false
	}
	hh, mm, _ := strings.Cut(s, ":")
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	return fmt.Sprintf("%02d:%02d", h, m), true
}

// validEmail accepts a bare address only; display-name forms are rejected.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s, "@")
}

func validOptionalID(id *int64) bool {
	return id == nil || *id > 0
}
