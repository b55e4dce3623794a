package application

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// Column limits for free-text fields, in characters.
const (
	maxNameLength        = 100
	maxDesignationLength = 100
	maxWorkplaceLength   = 255
	maxPhoneLength       = 20
	maxEmailLength       = 254
	maxLabelLength       = 200
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func validGender(gender string) bool {
	return gender == GenderMale || gender == GenderFemale
}

func requireText(v *ValidationError, field, value, message string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, message)
	}
}

// limitText records a message when the trimmed value is longer than limit characters.
func limitText(v *ValidationError, field, value string, limit int) {
	if utf8.RuneCountInString(strings.TrimSpace(value)) > limit {
		v.add(field, fmt.Sprintf("must be at most %d characters", limit))
	}
}

func validatePerson(v *ValidationError, fullName, email, gender, designation, workplace string) {
	requireText(v, "full_name", fullName, "full name is required")
	limitText(v, "full_name", fullName, maxNameLength)
	switch normalized := normalizeEmail(email); {
	case normalized == "":
		v.add("email", "email is required")
	case utf8.RuneCountInString(normalized) > maxEmailLength:
		v.add("email", fmt.Sprintf("must be at most %d characters", maxEmailLength))
	case !validEmail(normalized):
		v.add("email", "email is invalid")
	}
	if !validGender(strings.TrimSpace(gender)) {
		v.add("gender", "gender must be Male or Female")
	}
	requireText(v, "designation", designation, "designation is required")
	limitText(v, "designation", designation, maxDesignationLength)
	requireText(v, "workplace_address", workplace, "workplace address is required")
	limitText(v, "workplace_address", workplace, maxWorkplaceLength)
}

func validateVoterInput(input VoterInput) *ValidationError {
	v := &ValidationError{}
	validatePerson(v, input.FullName, input.Email, input.Gender, input.Designation, input.WorkplaceAddress)
	return v
}

func validateNominationInput(input NominationInput) *ValidationError {
	v := &ValidationError{}
	validatePerson(v, input.FullName, input.Email, input.Gender, input.Designation, input.WorkplaceAddress)
	requireText(v, "phone_number", input.PhoneNumber, "phone number is required")
	limitText(v, "phone_number", input.PhoneNumber, maxPhoneLength)
	if input.Interested == nil {
		v.add("interested", "choose whether you want to stand as a candidate")
	}
	return v
}

func validateSessionInput(input SessionInput) *ValidationError {
	v := &ValidationError{}
	requireText(v, "name", input.Name, "name is required")
	limitText(v, "name", input.Name, maxNameLength)
	if before(input.NominationEnd, input.NominationStart) {
		v.add("nomination_end", "nomination end must not precede its start")
	}
	if before(input.VotingEnd, input.VotingStart) {
		v.add("voting_end", "voting end must not precede its start")
	}
	if before(input.VotingStart, input.NominationEnd) {
		v.add("voting_start", "voting must not start before nominations end")
	}
	return v
}

// before reports whether both times are set and a is earlier than b.
func before(a, b *time.Time) bool {
	return a != nil && b != nil && a.Before(*b)
}
