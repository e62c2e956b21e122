// Package enrollment derives academic metadata from the enrollment-id
// username pattern, e.g. "2024UGCS032" -> year 2024, B.Tech, Computer
// Science & Engineering. The values are computed on read and never stored.
package enrollment

import (
	"strconv"
	"strings"
)

type Academic struct {
	AdmissionYear int    `json:"admissionYear"`
	Course        string `json:"course"`
	Branch        string `json:"branch"`
}

var courseByLevel = map[string]string{
	"UG": "B.Tech",
	"PG": "M.Tech",
}

var branchByCode = map[string]string{
	"CS": "Computer Science & Engineering",
	"EC": "Electronics & Communication Engineering",
	"ME": "Mechanical Engineering",
	"CE": "Civil Engineering",
	"EE": "Electrical Engineering",
	"MM": "Metallurgical & Material Engineering",
	"PI": "Production & Industrial Engineering",
}

// Decode parses the fixed-width prefix of an enrollment id: four digits of
// admission year, two letters of level, two letters of branch. Unknown level
// or branch codes pass through uppercased rather than failing, matching how
// the portal has always displayed legacy ids.
func Decode(username string) Academic {
	username = strings.ToUpper(strings.TrimSpace(username))

	var academic Academic
	if len(username) >= 4 {
		if year, err := strconv.Atoi(username[:4]); err == nil {
			academic.AdmissionYear = year
		}
	}
	if len(username) >= 6 {
		level := username[4:6]
		if course, ok := courseByLevel[level]; ok {
			academic.Course = course
		} else {
			academic.Course = level
		}
	}
	if len(username) >= 8 {
		branch := username[6:8]
		if name, ok := branchByCode[branch]; ok {
			academic.Branch = name
		} else {
			academic.Branch = branch
		}
	}
	return academic
}
