package report

import (
	"regexp"
	"strings"

	"medical-summary/internal/models"
)

var (
	nameRe   = regexp.MustCompile(models.PatientNameRegex)
	ageRe    = regexp.MustCompile(models.PatientAgeRegex)
	genderRe = regexp.MustCompile(models.PatientGenderRegex)
	dobRe    = regexp.MustCompile(models.PatientDOBRegex)
)

// PatientInfo holds the demographics shown in the report header. Fields the
// profile text does not mention stay empty.
type PatientInfo struct {
	Name   string
	Age    string
	Gender string
	DOB    string
}

func ExtractPatientInfo(profile string) PatientInfo {
	var info PatientInfo
	if m := nameRe.FindStringSubmatch(profile); m != nil {
		info.Name = strings.TrimSpace(m[1])
	}
	if m := ageRe.FindStringSubmatch(profile); m != nil {
		info.Age = m[1] + " Y"
	}
	if m := genderRe.FindStringSubmatch(profile); m != nil {
		switch strings.ToLower(m[1])[0] {
		case 'f':
			info.Gender = "Female"
		case 'm':
			info.Gender = "Male"
		}
	}
	if m := dobRe.FindStringSubmatch(profile); m != nil {
		info.DOB = strings.TrimSpace(m[1])
	}
	return info
}

// SexAge joins gender and age as "Female / 54 Y", omitting a missing half.
func (p PatientInfo) SexAge() string {
	switch {
	case p.Gender != "" && p.Age != "":
		return p.Gender + " / " + p.Age
	case p.Gender != "":
		return p.Gender
	default:
		return p.Age
	}
}
