package models

import "strings"

// HelicopterMode describes how a Helicopter final submission was flown and recorded.
type HelicopterMode string

const (
	HelicopterTwoHelicoptersTwoStudents      HelicopterMode = "TWO_HELICOPTERS_TWO_STUDENTS"
	HelicopterTwoHelicoptersOneStudent       HelicopterMode = "TWO_HELICOPTERS_ONE_STUDENT"
	HelicopterOneHelicopterOneStudentTwoVids HelicopterMode = "ONE_HELICOPTER_ONE_STUDENT_TWO_VIDEOS"
	HelicopterOneHelicopterOneStudentOneVid  HelicopterMode = "ONE_HELICOPTER_ONE_STUDENT_ONE_VIDEO"
)

var helicopterModes = []struct {
	mode  HelicopterMode
	label string
}{
	{HelicopterTwoHelicoptersTwoStudents, "Two helicopters, two students, two videos"},
	{HelicopterTwoHelicoptersOneStudent, "Two helicopters, one student, two videos"},
	{HelicopterOneHelicopterOneStudentTwoVids, "One helicopter, one student, two videos"},
	{HelicopterOneHelicopterOneStudentOneVid, "One helicopter, one student, one video"},
}

// Label returns the human readable form of the mode.
func (m HelicopterMode) Label() string {
	for _, hm := range helicopterModes {
		if hm.mode == m {
			return hm.label
		}
	}
	return string(m)
}

// ParseHelicopterMode converts a trimmed constant name into a HelicopterMode.
func ParseHelicopterMode(s string) (HelicopterMode, error) {
	trimmed := strings.TrimSpace(s)
	for _, hm := range helicopterModes {
		if string(hm.mode) == trimmed {
			return hm.mode, nil
		}
	}
	allowed := make([]string, len(helicopterModes))
	for i, hm := range helicopterModes {
		allowed[i] = string(hm.mode)
	}
	return "", &EnumError{Field: "HelicopterMode", Value: s, Allowed: allowed}
}
